package pricing

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	TierCheap   = "cheap"
	TierNormal  = "normal"
	TierPremium = "premium"
)

// AdTierPricing is the reference row for one advertisement tier. Discount is a
// fractional rate in [0, 1); a null discount means the tier sells at list price.
type AdTierPricing struct {
	ID           string              `gorm:"column:id;primaryKey" json:"id"`
	AdType       string              `gorm:"column:ad_type;uniqueIndex" json:"ad_type"`
	Price        decimal.Decimal     `gorm:"column:price;type:numeric(20,2)" json:"price"`
	DurationDays int                 `gorm:"column:duration_days" json:"duration_days"`
	Discount     decimal.NullDecimal `gorm:"column:discount;type:numeric(20,2)" json:"discount"`
	IsActive     bool                `gorm:"column:is_active" json:"is_active"`
	CreatedAt    time.Time           `gorm:"column:created_at" json:"created_at"`
	UpdatedAt    time.Time           `gorm:"column:updated_at" json:"updated_at"`
}

func (AdTierPricing) TableName() string {
	return "ad_tier_pricings"
}

// FinalPrice applies the tier discount, rounded to two decimal places.
func (p *AdTierPricing) FinalPrice() decimal.Decimal {
	if !p.Discount.Valid {
		return p.Price
	}
	return p.Price.Mul(decimal.NewFromInt(1).Sub(p.Discount.Decimal)).Round(2)
}

func validTier(adType string) bool {
	switch adType {
	case TierCheap, TierNormal, TierPremium:
		return true
	}
	return false
}
