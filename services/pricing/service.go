package pricing

import (
	"context"
	"time"

	"estatehub-marketplace/pkg/db/option"
	"estatehub-marketplace/pkg/errutil"
	"estatehub-marketplace/pkg/repository"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	node    *snowflake.Node
	pricing repository.Repository[AdTierPricing]
}

type ServiceParams struct {
	fx.In
	DB   *gorm.DB
	Node *snowflake.Node
}

func NewService(p ServiceParams) *Service {
	return &Service{
		node:    p.Node,
		pricing: repository.ProvideStore[AdTierPricing](p.DB),
	}
}

func (s *Service) Get(ctx context.Context, adType string) (*AdTierPricing, error) {
	span := trace.SpanFromContext(ctx)
	defer span.End()

	if !validTier(adType) {
		return nil, errutil.ValidationFailed("unknown advertisement tier", nil)
	}

	row, err := s.pricing.FindOne(ctx, &AdTierPricing{AdType: adType})
	if err != nil {
		zap.L().Error("failed to query pricing", zap.String("ad_type", adType), zap.Error(err))
		return nil, err
	}

	if row == nil {
		return nil, errutil.NotFound("pricing not found", nil)
	}

	return row, nil
}

func (s *Service) List(ctx context.Context) ([]*AdTierPricing, error) {
	span := trace.SpanFromContext(ctx)
	defer span.End()

	return s.pricing.Find(ctx, &AdTierPricing{}, option.WithSortBy(option.QuerySortBy{
		SortBy:  "price",
		OrderBy: "asc",
		Allow: map[string]bool{
			"price": true,
		},
	}))
}

type UpsertRequest struct {
	AdType       string
	Price        decimal.Decimal
	DurationDays int
	Discount     decimal.NullDecimal
	IsActive     bool
}

// Upsert creates or replaces the pricing row for one tier.
func (s *Service) Upsert(ctx context.Context, req UpsertRequest) (*AdTierPricing, error) {
	span := trace.SpanFromContext(ctx)
	defer span.End()

	if !validTier(req.AdType) {
		return nil, errutil.ValidationFailed("unknown advertisement tier", nil)
	}

	if !req.Price.IsPositive() {
		return nil, errutil.ValidationFailed("price must be greater than zero", nil)
	}

	if req.DurationDays <= 0 {
		return nil, errutil.ValidationFailed("duration must be greater than zero", nil)
	}

	if req.Discount.Valid {
		rate := req.Discount.Decimal
		if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
			return nil, errutil.ValidationFailed("discount must be a rate in [0, 1)", nil)
		}
	}

	exist, err := s.pricing.FindOne(ctx, &AdTierPricing{AdType: req.AdType})
	if err != nil {
		return nil, err
	}

	if exist == nil {
		row := &AdTierPricing{
			ID:           s.node.Generate().String(),
			AdType:       req.AdType,
			Price:        req.Price,
			DurationDays: req.DurationDays,
			Discount:     req.Discount,
			IsActive:     req.IsActive,
		}
		if err := s.pricing.Create(ctx, row); err != nil {
			return nil, err
		}
		return row, nil
	}

	updates := map[string]any{
		"price":         req.Price,
		"duration_days": req.DurationDays,
		"discount":      req.Discount,
		"is_active":     req.IsActive,
		"updated_at":    time.Now(),
	}
	if err := s.pricing.Update(ctx, exist.ID, updates); err != nil {
		return nil, err
	}

	return s.pricing.FindOne(ctx, &AdTierPricing{AdType: req.AdType})
}

// Seed inserts the default tier table when a tier is missing. Existing rows are
// left untouched so operators can adjust prices without fighting the seeder.
func (s *Service) Seed(ctx context.Context) error {
	defaults := []UpsertRequest{
		{AdType: TierCheap, Price: decimal.NewFromInt(5), DurationDays: 7, IsActive: true},
		{AdType: TierNormal, Price: decimal.NewFromInt(10), DurationDays: 14, IsActive: true},
		{
			AdType:       TierPremium,
			Price:        decimal.NewFromInt(20),
			DurationDays: 30,
			Discount:     decimal.NewNullDecimal(decimal.NewFromFloat(0.15)),
			IsActive:     true,
		},
	}

	for _, def := range defaults {
		exist, err := s.pricing.FindOne(ctx, &AdTierPricing{AdType: def.AdType})
		if err != nil {
			return err
		}
		if exist != nil {
			continue
		}

		if _, err := s.Upsert(ctx, def); err != nil {
			return err
		}

		zap.L().Info("seeded advertisement tier", zap.String("ad_type", def.AdType))
	}

	return nil
}
