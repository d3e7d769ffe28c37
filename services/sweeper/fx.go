package sweeper

import (
	"estatehub-marketplace/pkg/taskname"

	"github.com/hibiken/asynq"
	"go.uber.org/fx"
)

var Module = fx.Module("sweeper.service",
	fx.Provide(NewService, NewScheduler),
	fx.Invoke(StartScheduler),
)

var Worker = fx.Module("sweeper.worker",
	fx.Invoke(registerHandlers),
)

func registerHandlers(mux *asynq.ServeMux, svc *Service) {
	mux.HandleFunc(taskname.AdvertisementExpiryRun, svc.HandleExpiryRun)
}
