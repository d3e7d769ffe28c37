package user

import (
	"context"
	"time"

	"estatehub-marketplace/pkg/errutil"
	"estatehub-marketplace/pkg/repository"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	node  *snowflake.Node
	users repository.Repository[User]
}

type ServiceParams struct {
	fx.In
	DB   *gorm.DB
	Node *snowflake.Node
}

func NewService(p ServiceParams) *Service {
	return &Service{
		node:  p.Node,
		users: repository.ProvideStore[User](p.DB),
	}
}

type CreateRequest struct {
	Email string
	Name  string
	Role  string
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (*User, error) {
	span := trace.SpanFromContext(ctx)
	defer span.End()

	if req.Email == "" {
		return nil, errutil.ValidationFailed("email is required", nil)
	}

	role := req.Role
	if role == "" {
		role = RoleUser
	}
	if !validRole(role) {
		return nil, errutil.ValidationFailed("unknown role", nil)
	}

	exist, err := s.users.FindOne(ctx, &User{Email: req.Email})
	if err != nil {
		return nil, err
	}
	if exist != nil {
		return nil, errutil.Conflict("email already registered", nil)
	}

	u := &User{
		ID:     s.node.Generate().String(),
		Email:  req.Email,
		Name:   req.Name,
		Role:   role,
		Status: StatusPending,
	}

	if err := s.users.Create(ctx, u); err != nil {
		zap.L().Error("failed to create user", zap.Error(err))
		return nil, err
	}

	return u, nil
}

func (s *Service) Get(ctx context.Context, userID string) (*User, error) {
	span := trace.SpanFromContext(ctx)
	defer span.End()

	u, err := s.users.FindOne(ctx, &User{ID: userID})
	if err != nil {
		return nil, err
	}

	if u == nil {
		return nil, errutil.NotFound("user not found", nil)
	}

	return u, nil
}

// UpdateStatusRoleWithTrx flips a user's status and role on the caller's
// transaction handle, so the registration flow can include the flip in its
// atomic unit.
func (s *Service) UpdateStatusRoleWithTrx(ctx context.Context, tx *gorm.DB, userID, status, role string) error {
	if !validStatus(status) || !validRole(role) {
		return errutil.ValidationFailed("unknown status or role", nil)
	}

	users := s.users.WithTrx(tx)

	u, err := users.FindOne(ctx, &User{ID: userID})
	if err != nil {
		return err
	}
	if u == nil {
		return errutil.NotFound("user not found", nil)
	}

	return users.Update(ctx, userID, map[string]any{
		"status":     status,
		"role":       role,
		"updated_at": time.Now(),
	})
}

func (s *Service) UpdateStatusRole(ctx context.Context, userID, status, role string) error {
	span := trace.SpanFromContext(ctx)
	defer span.End()

	return s.UpdateStatusRoleWithTrx(ctx, nil, userID, status, role)
}
