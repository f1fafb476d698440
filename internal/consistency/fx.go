package consistency

import (
	"github.com/smallbiznis/salesengine/internal/consistency/repository"
	"github.com/smallbiznis/salesengine/internal/consistency/service"
	"go.uber.org/fx"
)

var Module = fx.Module("consistency.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
