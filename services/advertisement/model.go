package advertisement

import (
	"time"
)

const (
	StatusPending  = "pending"
	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusExpired  = "expired"
)

// ProductAdvertisement is one paid placement of a product. WalletTxID points
// at the purchase entry in the wallet ledger; the two rows are created in the
// same database transaction.
type ProductAdvertisement struct {
	ID         string    `gorm:"column:id;primaryKey" json:"id"`
	Code       string    `gorm:"column:code;uniqueIndex" json:"code"`
	ProductID  string    `gorm:"column:product_id;index" json:"product_id"`
	UserID     string    `gorm:"column:user_id;index" json:"user_id"`
	AdType     string    `gorm:"column:ad_type" json:"ad_type"`
	StartDate  time.Time `gorm:"column:start_date" json:"start_date"`
	EndDate    time.Time `gorm:"column:end_date" json:"end_date"`
	Status     string    `gorm:"column:status" json:"status"`
	WalletTxID string    `gorm:"column:wallet_tx_id" json:"wallet_tx_id"`
	CreatedAt  time.Time `gorm:"column:created_at" json:"created_at"`
}

// ExpiredAd is the tuple the sweep reports and notifies on.
type ExpiredAd struct {
	ID        string
	UserID    string
	ProductID string
}
