package agency

import (
	"go.uber.org/fx"
)

var Module = fx.Module("agency.service",
	fx.Provide(NewService),
)
