package receivable

import (
	"github.com/smallbiznis/salesengine/internal/receivable/repository"
	"github.com/smallbiznis/salesengine/internal/receivable/service"
	"go.uber.org/fx"
)

var Module = fx.Module("receivable.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
