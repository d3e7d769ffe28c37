package mailer

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"estatehub-marketplace/pkg/taskname"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type captureEnqueuer struct {
	tasks []*asynq.Task
}

func (c *captureEnqueuer) Enqueue(t *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	c.tasks = append(c.tasks, t)
	return &asynq.TaskInfo{}, nil
}

type captureTransport struct {
	delivered []emailPayload
}

func (c *captureTransport) Deliver(_ context.Context, p emailPayload) error {
	c.delivered = append(c.delivered, p)
	return nil
}

func TestSendEnqueuesTemplates(t *testing.T) {
	enqueuer := &captureEnqueuer{}
	svc := NewService(ServiceParams{Enqueuer: enqueuer, Transport: &captureTransport{}})

	require.NoError(t, svc.SendWelcome(context.Background(), "agent@example.com", "Agent"))
	require.NoError(t, svc.SendRejected(context.Background(), "agent@example.com", "Agent", "incomplete"))
	require.NoError(t, svc.SendPendingApproval(context.Background(), "agent@example.com", "Agent"))

	require.Len(t, enqueuer.tasks, 3)
	require.Equal(t, taskname.EmailSend, enqueuer.tasks[0].Type())

	var p emailPayload
	require.NoError(t, json.Unmarshal(enqueuer.tasks[1].Payload(), &p))
	require.Equal(t, TemplateRejected, p.Template)
	require.Equal(t, "incomplete", p.Reason)
}

func TestSendRequiresRecipient(t *testing.T) {
	svc := NewService(ServiceParams{Enqueuer: &captureEnqueuer{}, Transport: &captureTransport{}})

	require.Error(t, svc.SendWelcome(context.Background(), "", "Agent"))
}

func TestHandleSendDelivers(t *testing.T) {
	transport := &captureTransport{}
	svc := NewService(ServiceParams{Enqueuer: &captureEnqueuer{}, Transport: transport})

	payload, err := json.Marshal(emailPayload{Template: TemplateWelcome, Email: "agent@example.com", Name: "Agent"})
	require.NoError(t, err)

	require.NoError(t, svc.HandleSend(context.Background(), asynq.NewTask(taskname.EmailSend, payload)))
	require.Len(t, transport.delivered, 1)
	require.Equal(t, TemplateWelcome, transport.delivered[0].Template)
}
