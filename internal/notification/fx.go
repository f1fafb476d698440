package notification

import (
	"github.com/smallbiznis/salesengine/internal/notification/email"
	"github.com/smallbiznis/salesengine/internal/notification/service"
	"go.uber.org/fx"
)

var Module = fx.Module("notification",
	fx.Provide(email.NewFromConfig),
	fx.Provide(service.New),
)
