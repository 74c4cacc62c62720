package roles

import (
	"errors"
	"fmt"

	"github.com/opshare/opshare/internal/models"
	"gorm.io/gorm"
)

// ErrInvalidRole means the role is not one of the fixed role names.
var ErrInvalidRole = errors.New("invalid role")

// Registry owns role assignments. Assignments are append-only; the
// effective role is resolved explicitly by the highest assignment ID rather
// than by creation timestamps.
type Registry struct {
	db *gorm.DB
}

func NewRegistry(db *gorm.DB) *Registry {
	return &Registry{db: db}
}

// Assign grants role to the user. The role must be Ops or Client.
func (r *Registry) Assign(userID uint, role string) error {
	if !models.ValidRole(role) {
		return ErrInvalidRole
	}
	rec := models.RoleAssignment{UserID: &userID, Role: role}
	if err := r.db.Create(&rec).Error; err != nil {
		return fmt.Errorf("create role assignment: %w", err)
	}
	return nil
}

// RoleOf returns the user's current role, or "" when the user has no
// assignment.
func (r *Registry) RoleOf(userID uint) (string, error) {
	var rec models.RoleAssignment
	err := r.db.Where("user_id = ?", userID).
		Order("id DESC").
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("fetch role assignment: %w", err)
	}
	return rec.Role, nil
}
