package registration

import (
	"go.uber.org/fx"
)

var Module = fx.Module("registration.service",
	fx.Provide(NewService),
)
