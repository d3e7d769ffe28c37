package notification

import (
	"time"

	"gorm.io/datatypes"
)

const (
	TypeAdvertisementExpire   = "advertisement_expire"
	TypeRegistrationSubmitted = "registration_submitted"
	TypeRegistrationApproved  = "registration_approved"
	TypeRegistrationRejected  = "registration_rejected"
)

type Notification struct {
	ID        string         `gorm:"column:id;primaryKey" json:"id"`
	UserID    string         `gorm:"column:user_id;index" json:"user_id"`
	Type      string         `gorm:"column:type" json:"type"`
	Title     string         `gorm:"column:title" json:"title"`
	Body      string         `gorm:"column:body" json:"body"`
	Data      datatypes.JSON `gorm:"column:data" json:"data,omitempty"`
	Read      bool           `gorm:"column:read" json:"read"`
	CreatedAt time.Time      `gorm:"column:created_at" json:"created_at"`
}
