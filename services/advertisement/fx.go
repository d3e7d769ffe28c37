package advertisement

import (
	"go.uber.org/fx"
)

var Module = fx.Module("advertisement.service",
	fx.Provide(NewService),
)
