package registration

import (
	"time"
)

const (
	StatusPending     = "pending"
	StatusUnderReview = "under_review"
	StatusApproved    = "approved"
	StatusRejected    = "rejected"
)

const (
	ActionApproved = "approved"
	ActionRejected = "rejected"
)

const RequestTypeJoinAgency = "join_agency"

// RegistrationRequest is one attempt by a user to join an agency as an agent.
// ReviewedBy and ReviewedAt are set only on the terminal transition; the state
// machine never moves backwards.
type RegistrationRequest struct {
	ID               string     `gorm:"column:id;primaryKey" json:"id"`
	Code             string     `gorm:"column:code;uniqueIndex" json:"code"`
	UserID           string     `gorm:"column:user_id;index" json:"user_id"`
	AgencyID         string     `gorm:"column:agency_id;index" json:"agency_id"`
	RequestType      string     `gorm:"column:request_type" json:"request_type"`
	Status           string     `gorm:"column:status" json:"status"`
	RequestedRole    string     `gorm:"column:requested_role" json:"requested_role"`
	IDCardNumber     string     `gorm:"column:id_card_number" json:"id_card_number"`
	VerificationCode string     `gorm:"column:verification_code" json:"-"`
	ReviewedBy       string     `gorm:"column:reviewed_by" json:"reviewed_by,omitempty"`
	ReviewNotes      string     `gorm:"column:review_notes" json:"review_notes,omitempty"`
	ReviewedAt       *time.Time `gorm:"column:reviewed_at" json:"reviewed_at,omitempty"`
	CreatedAt        time.Time  `gorm:"column:created_at" json:"created_at"`
}

func terminal(status string) bool {
	return status == StatusApproved || status == StatusRejected
}
