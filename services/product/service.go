package product

import (
	"context"
	"time"

	"estatehub-marketplace/pkg/errutil"
	"estatehub-marketplace/pkg/repository"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service covers the slice of the listing domain the purchase flow depends on:
// creating a listing, loading it, and flipping its status. The full listing
// surface (attributes, images) lives outside this repository.
type Service struct {
	node     *snowflake.Node
	products repository.Repository[Product]
}

type ServiceParams struct {
	fx.In
	DB   *gorm.DB
	Node *snowflake.Node
}

func NewService(p ServiceParams) *Service {
	return &Service{
		node:     p.Node,
		products: repository.ProvideStore[Product](p.DB),
	}
}

type CreateRequest struct {
	UserID string
	Title  string
	Price  decimal.Decimal
	Status string
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (*Product, error) {
	span := trace.SpanFromContext(ctx)
	defer span.End()

	if req.UserID == "" || req.Title == "" {
		return nil, errutil.ValidationFailed("user_id and title are required", nil)
	}

	status := req.Status
	if status == "" {
		status = StatusDraft
	}
	if !validStatus(status) {
		return nil, errutil.ValidationFailed("unknown product status", nil)
	}

	p := &Product{
		ID:     s.node.Generate().String(),
		UserID: req.UserID,
		Title:  req.Title,
		Price:  req.Price,
		Status: status,
	}

	if err := s.products.Create(ctx, p); err != nil {
		zap.L().Error("failed to create product", zap.Error(err))
		return nil, err
	}

	return p, nil
}

func (s *Service) Get(ctx context.Context, productID string) (*Product, error) {
	span := trace.SpanFromContext(ctx)
	defer span.End()

	p, err := s.products.FindOne(ctx, &Product{ID: productID})
	if err != nil {
		return nil, err
	}

	if p == nil {
		return nil, errutil.NotFound("product not found", nil)
	}

	return p, nil
}

func (s *Service) UpdateStatus(ctx context.Context, productID, status string) error {
	span := trace.SpanFromContext(ctx)
	defer span.End()

	if !validStatus(status) {
		return errutil.ValidationFailed("unknown product status", nil)
	}

	if _, err := s.Get(ctx, productID); err != nil {
		return err
	}

	return s.products.Update(ctx, productID, map[string]any{
		"status":     status,
		"updated_at": time.Now(),
	})
}
