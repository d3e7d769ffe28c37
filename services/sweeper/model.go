package sweeper

import (
	"time"
)

const (
	JobStatusPending = "pending"
	JobStatusRunning = "running"
	JobStatusSuccess = "success"
	JobStatusFailed  = "failed"
)

const JobNameAdvertisementExpiry = "advertisement_expiry"

// SweepJob is the execution record of one sweep run.
type SweepJob struct {
	ID           string     `gorm:"column:id;primaryKey" json:"id"`
	Name         string     `gorm:"column:name;index" json:"name"`
	Status       string     `gorm:"column:status" json:"status"`
	ErrorMsg     string     `gorm:"column:error_msg" json:"error_msg,omitempty"`
	ExpiredCount int64      `gorm:"column:expired_count" json:"expired_count"`
	StartedAt    *time.Time `gorm:"column:started_at" json:"started_at,omitempty"`
	CompletedAt  *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CreatedAt    time.Time  `gorm:"column:created_at" json:"created_at"`
}
