package mailer

import (
	"context"
	"encoding/json"

	"estatehub-marketplace/pkg/config"
	"estatehub-marketplace/pkg/errutil"
	"estatehub-marketplace/pkg/task"
	"estatehub-marketplace/pkg/taskname"

	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	TemplateWelcome         = "welcome"
	TemplateRejected        = "rejected"
	TemplatePendingApproval = "pending_approval"
)

// EmailSender is the contract the registration flow dispatches through. All
// sends are best-effort; the caller logs and moves on.
type EmailSender interface {
	SendWelcome(ctx context.Context, email, name string) error
	SendRejected(ctx context.Context, email, name, reason string) error
	SendPendingApproval(ctx context.Context, email, name string) error
}

type emailPayload struct {
	Template string `json:"template"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Reason   string `json:"reason,omitempty"`
}

// Transport delivers one rendered email. The in-repo transport only logs;
// SMTP delivery is an external collaborator.
type Transport interface {
	Deliver(ctx context.Context, p emailPayload) error
}

type logTransport struct {
	fromAddress string
	fromName    string
}

func (t *logTransport) Deliver(_ context.Context, p emailPayload) error {
	zap.L().Info("email delivered",
		zap.String("template", p.Template),
		zap.String("to", p.Email),
		zap.String("from_address", t.fromAddress),
		zap.String("from_name", t.fromName),
	)
	return nil
}

func NewLogTransport(cfg *config.Config) Transport {
	return &logTransport{
		fromAddress: cfg.Email.FromAddress,
		fromName:    cfg.Email.FromName,
	}
}

// Service queues outgoing emails on asynq and delivers them through the
// configured transport on the worker side.
type Service struct {
	enqueuer  task.Enqueuer
	transport Transport
}

type ServiceParams struct {
	fx.In
	Enqueuer  task.Enqueuer
	Transport Transport
}

func NewService(p ServiceParams) *Service {
	return &Service{
		enqueuer:  p.Enqueuer,
		transport: p.Transport,
	}
}

func (s *Service) enqueue(p emailPayload) error {
	if p.Email == "" {
		return errutil.ValidationFailed("recipient email is required", nil)
	}

	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}

	if _, err := s.enqueuer.Enqueue(asynq.NewTask(taskname.EmailSend, raw)); err != nil {
		zap.L().Error("failed to enqueue email",
			zap.String("template", p.Template),
			zap.String("to", p.Email),
			zap.Error(err),
		)
		return err
	}

	return nil
}

func (s *Service) SendWelcome(_ context.Context, email, name string) error {
	return s.enqueue(emailPayload{Template: TemplateWelcome, Email: email, Name: name})
}

func (s *Service) SendRejected(_ context.Context, email, name, reason string) error {
	return s.enqueue(emailPayload{Template: TemplateRejected, Email: email, Name: name, Reason: reason})
}

func (s *Service) SendPendingApproval(_ context.Context, email, name string) error {
	return s.enqueue(emailPayload{Template: TemplatePendingApproval, Email: email, Name: name})
}

// HandleSend is the asynq handler behind taskname.EmailSend.
func (s *Service) HandleSend(ctx context.Context, t *asynq.Task) error {
	var p emailPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return err
	}
	return s.transport.Deliver(ctx, p)
}
