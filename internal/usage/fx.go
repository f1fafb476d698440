package usage

import (
	"github.com/smallbiznis/salesengine/internal/cache"
	"github.com/smallbiznis/salesengine/internal/usage/repository"
	"github.com/smallbiznis/salesengine/internal/usage/service"
	"go.uber.org/fx"
)

var Module = fx.Module("usage.service",
	fx.Provide(cache.NewOwnerCache),
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
