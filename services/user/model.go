package user

import (
	"time"
)

const (
	RoleUser        = "user"
	RoleAgent       = "agent"
	RoleAgencyOwner = "agency_owner"
)

const (
	StatusPending   = "pending"
	StatusActive    = "active"
	StatusSuspended = "suspended"
)

type User struct {
	ID        string    `gorm:"column:id;primaryKey" json:"id"`
	Email     string    `gorm:"column:email;uniqueIndex" json:"email"`
	Name      string    `gorm:"column:name" json:"name"`
	Role      string    `gorm:"column:role" json:"role"`
	Status    string    `gorm:"column:status" json:"status"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func validRole(role string) bool {
	switch role {
	case RoleUser, RoleAgent, RoleAgencyOwner:
		return true
	}
	return false
}

func validStatus(status string) bool {
	switch status {
	case StatusPending, StatusActive, StatusSuspended:
		return true
	}
	return false
}
