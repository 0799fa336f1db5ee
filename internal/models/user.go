package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/orgtreehq/orgtree/internal/access"
)

// User describes platform accounts. The system role is platform-wide; access to an
// organization's data is governed by memberships plus the evaluator bypasses.
type User struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	Email    string `gorm:"uniqueIndex;not null" json:"email"`
	Name     string `gorm:"not null" json:"name"`
	Password string `gorm:"not null" json:"-"`

	SystemRole access.SystemRole `gorm:"not null;default:user" json:"system_role"`
	IsActive   bool              `gorm:"default:true" json:"is_active"`

	Memberships []Membership `gorm:"foreignKey:UserID" json:"memberships,omitempty"`

	LastLoginAt *time.Time `json:"last_login_at"`
	LastLoginIP string     `json:"last_login_ip"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate ensures a UUID is present before persisting.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.SystemRole == "" {
		u.SystemRole = access.SystemRoleUser
	}
	return nil
}

// IsSuperuser reports whether the account holds the unconditional bypass role.
func (u *User) IsSuperuser() bool {
	return u.SystemRole == access.SystemRoleSuperuser
}

// Identity projects the account into the evaluator's input shape.
func (u *User) Identity() access.Identity {
	return access.Identity{ID: u.ID, SystemRole: u.SystemRole}
}
