package notification

import (
	"context"
	"encoding/json"

	"estatehub-marketplace/pkg/db/option"
	"estatehub-marketplace/pkg/db/pagination"
	"estatehub-marketplace/pkg/errutil"
	"estatehub-marketplace/pkg/rediskey"
	"estatehub-marketplace/pkg/repository"
	"estatehub-marketplace/pkg/task"
	"estatehub-marketplace/pkg/taskname"

	"github.com/bwmarrin/snowflake"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Sender pushes a stored notification to the live delivery channel
// (websocket fan-out lives outside this repository).
type Sender interface {
	Send(ctx context.Context, n *Notification) error
}

type logSender struct{}

func (logSender) Send(_ context.Context, n *Notification) error {
	zap.L().Info("notification dispatched",
		zap.String("notification_id", n.ID),
		zap.String("user_id", n.UserID),
		zap.String("type", n.Type),
	)
	return nil
}

// NewLogSender is the default Sender: it only logs, real-time delivery is an
// external collaborator.
func NewLogSender() Sender {
	return logSender{}
}

type Service struct {
	node          *snowflake.Node
	notifications repository.Repository[Notification]
	enqueuer      task.Enqueuer
	rdb           *redis.Client
	sender        Sender
}

type ServiceParams struct {
	fx.In
	DB       *gorm.DB
	Node     *snowflake.Node
	Enqueuer task.Enqueuer
	Redis    *redis.Client
	Sender   Sender
}

func NewService(p ServiceParams) *Service {
	return &Service{
		node:          p.Node,
		notifications: repository.ProvideStore[Notification](p.DB),
		enqueuer:      p.Enqueuer,
		rdb:           p.Redis,
		sender:        p.Sender,
	}
}

type DispatchRequest struct {
	UserID string            `json:"user_id"`
	Type   string            `json:"type"`
	Title  string            `json:"title"`
	Body   string            `json:"body"`
	Data   map[string]string `json:"data,omitempty"`
}

// Dispatch queues a notification for asynchronous delivery. Callers treat it
// as fire-and-forget: a queue failure is the caller's to log, never to fail on.
func (s *Service) Dispatch(ctx context.Context, req DispatchRequest) error {
	span := trace.SpanFromContext(ctx)
	defer span.End()

	if req.UserID == "" || req.Type == "" {
		return errutil.ValidationFailed("user_id and type are required", nil)
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return err
	}

	if _, err := s.enqueuer.Enqueue(asynq.NewTask(taskname.NotificationDispatch, payload)); err != nil {
		zap.L().Error("failed to enqueue notification",
			zap.String("user_id", req.UserID),
			zap.String("type", req.Type),
			zap.Error(err),
		)
		return err
	}

	return nil
}

// HandleDispatch is the asynq handler behind taskname.NotificationDispatch:
// persist the row, bump the unread counter, push to the sender.
func (s *Service) HandleDispatch(ctx context.Context, t *asynq.Task) error {
	var req DispatchRequest
	if err := json.Unmarshal(t.Payload(), &req); err != nil {
		return err
	}

	n := &Notification{
		ID:     s.node.Generate().String(),
		UserID: req.UserID,
		Type:   req.Type,
		Title:  req.Title,
		Body:   req.Body,
	}

	if req.Data != nil {
		raw, err := json.Marshal(req.Data)
		if err != nil {
			return err
		}
		n.Data = raw
	}

	if err := s.notifications.Create(ctx, n); err != nil {
		return err
	}

	if err := s.rdb.Incr(ctx, rediskey.BuildUnreadCountKey(req.UserID)).Err(); err != nil {
		zap.L().Warn("failed to bump unread counter", zap.String("user_id", req.UserID), zap.Error(err))
	}

	if err := s.sender.Send(ctx, n); err != nil {
		zap.L().Warn("sender delivery failed", zap.String("notification_id", n.ID), zap.Error(err))
	}

	return nil
}

func (s *Service) MarkRead(ctx context.Context, userID, notificationID string) error {
	span := trace.SpanFromContext(ctx)
	defer span.End()

	n, err := s.notifications.FindOne(ctx, &Notification{ID: notificationID})
	if err != nil {
		return err
	}
	if n == nil {
		return errutil.NotFound("notification not found", nil)
	}
	if n.UserID != userID {
		return errutil.Forbidden("notification belongs to another user", nil)
	}
	if n.Read {
		return nil
	}

	if err := s.notifications.Update(ctx, notificationID, map[string]any{"read": true}); err != nil {
		return err
	}

	if err := s.rdb.Decr(ctx, rediskey.BuildUnreadCountKey(userID)).Err(); err != nil {
		zap.L().Warn("failed to drop unread counter", zap.String("user_id", userID), zap.Error(err))
	}

	return nil
}

func (s *Service) List(ctx context.Context, userID string, page, limit int) ([]*Notification, error) {
	span := trace.SpanFromContext(ctx)
	defer span.End()

	return s.notifications.Find(ctx, &Notification{UserID: userID},
		option.WithSortBy(option.QuerySortBy{
			SortBy:  "created_at",
			OrderBy: "desc",
			Allow: map[string]bool{
				"created_at": true,
			},
		}),
		option.ApplyPagination(pagination.FromPage(page, limit)),
	)
}
