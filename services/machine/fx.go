package machine

import (
	"go.uber.org/fx"
)

var Module = fx.Module("machine.service",
	fx.Provide(NewService),
)
