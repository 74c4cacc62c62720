package models

import (
	"time"
)

const (
	RoleOps    = "Ops"
	RoleClient = "Client"
)

// ValidRole reports whether role is one of the fixed role names.
func ValidRole(role string) bool {
	return role == RoleOps || role == RoleClient
}

// RoleAssignment records one role grant. Assignments are append-only; a
// user's effective role is the assignment with the highest ID.
type RoleAssignment struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    *uint     `json:"userId" gorm:"index"` // nullable: survives user deletion
	Role      string    `json:"role" gorm:"size:10;not null"`
	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime"`
}
