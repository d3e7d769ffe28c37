package agency

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const (
	AgentStatusActive     = "active"
	AgentStatusInactive   = "inactive"
	AgentStatusTerminated = "terminated"
)

// AgencyAgent is the employment relationship between an agency and a user.
// Exactly one row is created when a registration request is approved.
type AgencyAgent struct {
	ID             string          `gorm:"column:id;primaryKey" json:"id"`
	AgencyID       string          `gorm:"column:agency_id;index" json:"agency_id"`
	AgentID        string          `gorm:"column:agent_id;index" json:"agent_id"`
	AddedBy        string          `gorm:"column:added_by" json:"added_by"`
	IDCardNumber   string          `gorm:"column:id_card_number" json:"id_card_number"`
	RoleInAgency   string          `gorm:"column:role_in_agency" json:"role_in_agency"`
	CommissionRate decimal.Decimal `gorm:"column:commission_rate;type:numeric(20,2)" json:"commission_rate"`
	Status         string          `gorm:"column:status" json:"status"`
	StartDate      time.Time       `gorm:"column:start_date" json:"start_date"`
	EndDate        *time.Time      `gorm:"column:end_date" json:"end_date,omitempty"`
}

// AgentPermission holds the capability flags granted to one agency agent,
// stored as a JSON map of flag name to bool.
type AgentPermission struct {
	ID            string         `gorm:"column:id;primaryKey" json:"id"`
	AgencyAgentID string         `gorm:"column:agency_agent_id;uniqueIndex" json:"agency_agent_id"`
	Flags         datatypes.JSON `gorm:"column:flags" json:"flags"`
	CreatedAt     time.Time      `gorm:"column:created_at" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"column:updated_at" json:"updated_at"`
}
