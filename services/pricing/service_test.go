package pricing

import (
	"context"
	"errors"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"estatehub-marketplace/pkg/errutil"
	"estatehub-marketplace/services/testutil"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func newTestService(t *testing.T) *Service {
	t.Helper()

	db := testutil.NewTestDB(t, &AdTierPricing{})

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return NewService(ServiceParams{DB: db, Node: node})
}

func TestFinalPrice(t *testing.T) {
	row := &AdTierPricing{
		Price:    decimal.NewFromInt(10),
		Discount: decimal.NewNullDecimal(decimal.NewFromFloat(0.2)),
	}
	require.True(t, row.FinalPrice().Equal(decimal.NewFromInt(8)))

	row = &AdTierPricing{
		Price:    decimal.NewFromInt(20),
		Discount: decimal.NewNullDecimal(decimal.NewFromFloat(0.15)),
	}
	require.True(t, row.FinalPrice().Equal(decimal.NewFromInt(17)))

	row = &AdTierPricing{Price: decimal.NewFromInt(10)}
	require.True(t, row.FinalPrice().Equal(decimal.NewFromInt(10)))
}

func TestGetUnknownTier(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Get(context.Background(), "platinum")
	require.Error(t, err)

	var be errutil.BaseError
	require.True(t, errors.As(err, &be))
	require.Equal(t, errutil.StatusValidationFailed, be.Status())
}

func TestGetNotFound(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Get(context.Background(), TierNormal)
	require.Error(t, err)

	var be errutil.BaseError
	require.True(t, errors.As(err, &be))
	require.Equal(t, errutil.StatusNotFound, be.Status())
}

func TestSeedIsIdempotent(t *testing.T) {
	svc := newTestService(t)

	require.NoError(t, svc.Seed(context.Background()))

	normal, err := svc.Get(context.Background(), TierNormal)
	require.NoError(t, err)
	require.True(t, normal.Price.Equal(decimal.NewFromInt(10)))
	require.Equal(t, 14, normal.DurationDays)
	require.False(t, normal.Discount.Valid)

	_, err = svc.Upsert(context.Background(), UpsertRequest{
		AdType:       TierNormal,
		Price:        decimal.NewFromInt(12),
		DurationDays: 14,
		IsActive:     true,
	})
	require.NoError(t, err)

	require.NoError(t, svc.Seed(context.Background()))

	normal, err = svc.Get(context.Background(), TierNormal)
	require.NoError(t, err)
	require.True(t, normal.Price.Equal(decimal.NewFromInt(12)))
}

func TestUpsertValidatesDiscountRange(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Upsert(context.Background(), UpsertRequest{
		AdType:       TierCheap,
		Price:        decimal.NewFromInt(5),
		DurationDays: 7,
		Discount:     decimal.NewNullDecimal(decimal.NewFromInt(1)),
		IsActive:     true,
	})
	require.Error(t, err)

	var be errutil.BaseError
	require.True(t, errors.As(err, &be))
	require.Equal(t, errutil.StatusValidationFailed, be.Status())
}

func TestListSortedByPrice(t *testing.T) {
	svc := newTestService(t)
	require.NoError(t, svc.Seed(context.Background()))

	rows, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, TierCheap, rows[0].AdType)
	require.Equal(t, TierPremium, rows[2].AdType)
}
