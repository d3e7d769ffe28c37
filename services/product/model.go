package product

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	StatusDraft    = "draft"
	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusSold     = "sold"
)

type Product struct {
	ID        string          `gorm:"column:id;primaryKey" json:"id"`
	UserID    string          `gorm:"column:user_id;index" json:"user_id"`
	Title     string          `gorm:"column:title" json:"title"`
	Status    string          `gorm:"column:status" json:"status"`
	Price     decimal.Decimal `gorm:"column:price;type:numeric(20,2)" json:"price"`
	CreatedAt time.Time       `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time       `gorm:"column:updated_at" json:"updated_at"`
}

func validStatus(status string) bool {
	switch status {
	case StatusDraft, StatusActive, StatusInactive, StatusSold:
		return true
	}
	return false
}
