package mailer

import (
	"estatehub-marketplace/pkg/taskname"

	"github.com/hibiken/asynq"
	"go.uber.org/fx"
)

var Module = fx.Module("mailer.service",
	fx.Provide(
		NewLogTransport,
		NewService,
		func(s *Service) EmailSender { return s },
	),
)

var Worker = fx.Module("mailer.worker",
	fx.Invoke(registerHandlers),
)

func registerHandlers(mux *asynq.ServeMux, svc *Service) {
	mux.HandleFunc(taskname.EmailSend, svc.HandleSend)
}
