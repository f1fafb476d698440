package revenue

import (
	"github.com/smallbiznis/salesengine/internal/revenue/publisher"
	"github.com/smallbiznis/salesengine/internal/revenue/repository"
	"github.com/smallbiznis/salesengine/internal/revenue/service"
	"go.uber.org/fx"
)

var Module = fx.Module("revenue.service",
	fx.Provide(repository.Provide),
	fx.Provide(publisher.NewFromConfig),
	fx.Provide(service.New),
)
