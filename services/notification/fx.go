package notification

import (
	"estatehub-marketplace/pkg/taskname"

	"github.com/hibiken/asynq"
	"go.uber.org/fx"
)

var Module = fx.Module("notification.service",
	fx.Provide(NewLogSender, NewService),
)

// Worker registers the dispatch handler on the asynq mux.
var Worker = fx.Module("notification.worker",
	fx.Invoke(registerHandlers),
)

func registerHandlers(mux *asynq.ServeMux, svc *Service) {
	mux.HandleFunc(taskname.NotificationDispatch, svc.HandleDispatch)
}
