package advertisement

import (
	"context"
	"fmt"
	"time"

	"estatehub-marketplace/pkg/db/option"
	"estatehub-marketplace/pkg/errutil"
	"estatehub-marketplace/pkg/repository"
	"estatehub-marketplace/pkg/sequence"
	"estatehub-marketplace/services/notification"
	"estatehub-marketplace/services/pricing"
	"estatehub-marketplace/services/product"
	"estatehub-marketplace/services/wallet"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

type Service struct {
	db   *gorm.DB
	node *snowflake.Node

	ads      repository.Repository[ProductAdvertisement]
	products repository.Repository[product.Product]

	pricing       *pricing.Service
	wallets       *wallet.Service
	notifications *notification.Service
	codes         sequence.Generator
}

type ServiceParams struct {
	fx.In
	DB            *gorm.DB
	Node          *snowflake.Node
	Pricing       *pricing.Service
	Wallets       *wallet.Service
	Notifications *notification.Service
	Codes         sequence.Generator
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:            p.DB,
		node:          p.Node,
		ads:           repository.ProvideStore[ProductAdvertisement](p.DB),
		products:      repository.ProvideStore[product.Product](p.DB),
		pricing:       p.Pricing,
		wallets:       p.Wallets,
		notifications: p.Notifications,
		codes:         p.Codes,
	}
}

type PurchaseRequest struct {
	ProductID string
	AdType    string
	UserID    string
}

// Purchase validates the product and tier, debits the buyer's wallet for the
// discounted price, and creates the advertisement row, all in one database
// transaction. The locking read on the product row serializes the
// no-active-ad check against concurrent purchases of the same product.
func (s *Service) Purchase(ctx context.Context, req PurchaseRequest) (*ProductAdvertisement, error) {
	span := trace.SpanFromContext(ctx)
	defer span.End()

	zapLog := zap.L().With(
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("product_id", req.ProductID),
		zap.String("user_id", req.UserID),
		zap.String("ad_type", req.AdType),
	)

	tier, err := s.pricing.Get(ctx, req.AdType)
	if err != nil {
		return nil, err
	}
	if !tier.IsActive {
		return nil, errutil.UnprocessableEntity("advertisement tier is not for sale", nil)
	}

	var ad *ProductAdvertisement
	if err := s.db.Transaction(func(tx *gorm.DB) error {
		tx = tx.Scopes(option.LockingUpdate)

		p, err := s.products.WithTrx(tx).FindOne(ctx, &product.Product{ID: req.ProductID}, option.WithLockingUpdate())
		if err != nil {
			return err
		}
		if p == nil {
			return errutil.NotFound("product not found", nil)
		}
		if p.UserID != req.UserID {
			return errutil.Forbidden("product belongs to another user", nil)
		}
		if p.Status != product.StatusActive {
			return errutil.UnprocessableEntity("product is not active", nil)
		}

		now := time.Now()

		active, err := s.ads.WithTrx(tx).FindOne(ctx,
			&ProductAdvertisement{ProductID: req.ProductID, Status: StatusActive},
			option.ApplyOperator(option.Condition{Field: "end_date", Operator: option.GT, Value: now}),
		)
		if err != nil {
			return err
		}
		if active != nil {
			return errutil.Conflict("product is already advertised", nil)
		}

		finalPrice := tier.FinalPrice()

		debit, err := s.wallets.ApplyWithTrx(ctx, tx, wallet.ApplyRequest{
			UserID:      req.UserID,
			Type:        wallet.TxPurchase,
			Amount:      finalPrice,
			Description: fmt.Sprintf("%s advertisement for product %s", req.AdType, req.ProductID),
		})
		if err != nil {
			return err
		}

		code, err := s.codes.NextAdvertisementCode(ctx)
		if err != nil {
			return err
		}

		ad = &ProductAdvertisement{
			ID:         s.node.Generate().String(),
			Code:       code,
			ProductID:  req.ProductID,
			UserID:     req.UserID,
			AdType:     req.AdType,
			StartDate:  now,
			EndDate:    now.AddDate(0, 0, tier.DurationDays),
			Status:     StatusActive,
			WalletTxID: debit.TransactionID,
		}

		return s.ads.WithTrx(tx).Create(ctx, ad)
	}); err != nil {
		zapLog.Warn("purchase aborted", zap.Error(err))
		return nil, err
	}

	zapLog.Info("advertisement purchased",
		zap.String("advertisement_id", ad.ID),
		zap.Time("end_date", ad.EndDate),
	)

	return ad, nil
}

// FindExpired lists active advertisements past their end date.
func (s *Service) FindExpired(ctx context.Context, now time.Time) ([]ExpiredAd, error) {
	span := trace.SpanFromContext(ctx)
	defer span.End()

	rows, err := s.ads.Find(ctx, &ProductAdvertisement{Status: StatusActive},
		option.ApplyOperator(option.Condition{Field: "end_date", Operator: option.LTE, Value: now}),
	)
	if err != nil {
		return nil, err
	}

	out := make([]ExpiredAd, 0, len(rows))
	for _, row := range rows {
		out = append(out, ExpiredAd{ID: row.ID, UserID: row.UserID, ProductID: row.ProductID})
	}

	return out, nil
}

// ExpireAds flips every active advertisement past its end date to expired in a
// single bulk update and notifies each owner. Notification failures are logged
// and never undo the expiry.
func (s *Service) ExpireAds(ctx context.Context, now time.Time) (int64, error) {
	span := trace.SpanFromContext(ctx)
	defer span.End()

	expired, err := s.FindExpired(ctx, now)
	if err != nil {
		return 0, err
	}

	res := s.db.WithContext(ctx).
		Model(&ProductAdvertisement{}).
		Where("status = ? AND end_date <= ?", StatusActive, now).
		Update("status", StatusExpired)
	if res.Error != nil {
		zap.L().Error("bulk expiry failed", zap.Error(res.Error))
		return 0, res.Error
	}

	if res.RowsAffected > 0 {
		s.notifyExpired(ctx, expired)
	}

	zap.L().Info("expiry sweep finished",
		zap.Int64("expired_count", res.RowsAffected),
		zap.Time("cutoff", now),
	)

	return res.RowsAffected, nil
}

func (s *Service) notifyExpired(ctx context.Context, expired []ExpiredAd) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)

	for _, ad := range expired {
		ad := ad
		g.Go(func() error {
			if err := s.notifications.Dispatch(ctx, notification.DispatchRequest{
				UserID: ad.UserID,
				Type:   notification.TypeAdvertisementExpire,
				Title:  "Advertisement expired",
				Body:   "Your product advertisement has expired.",
				Data: map[string]string{
					"advertisement_id": ad.ID,
					"product_id":       ad.ProductID,
				},
			}); err != nil {
				zap.L().Warn("expiry notification not queued",
					zap.String("advertisement_id", ad.ID),
					zap.Error(err),
				)
			}
			return nil
		})
	}

	_ = g.Wait()
}

// GetActive returns the live advertisement for a product, or nil.
func (s *Service) GetActive(ctx context.Context, productID string) (*ProductAdvertisement, error) {
	span := trace.SpanFromContext(ctx)
	defer span.End()

	return s.ads.FindOne(ctx,
		&ProductAdvertisement{ProductID: productID, Status: StatusActive},
		option.ApplyOperator(option.Condition{Field: "end_date", Operator: option.GT, Value: time.Now()}),
	)
}
