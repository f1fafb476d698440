package invoice

import (
	"github.com/smallbiznis/salesengine/internal/invoice/repository"
	"github.com/smallbiznis/salesengine/internal/invoice/service"
	"go.uber.org/fx"
)

var Module = fx.Module("invoice.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
