package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/orgtreehq/orgtree/internal/access"
)

// Membership is the authoritative (organization, user, role) relation, unique per
// (organization, user) pair. Every organization must keep at least one owner row;
// the evaluator's creator bypass covers historical data where that was violated.
type Membership struct {
	ID string `gorm:"primaryKey;type:uuid" json:"id"`

	OrganizationID string        `gorm:"type:uuid;not null;uniqueIndex:idx_memberships_org_user" json:"organization_id"`
	Organization   *Organization `gorm:"foreignKey:OrganizationID" json:"organization,omitempty"`

	UserID string `gorm:"type:uuid;not null;uniqueIndex:idx_memberships_org_user;index" json:"user_id"`
	User   *User  `gorm:"foreignKey:UserID" json:"user,omitempty"`

	Role access.Role `gorm:"not null" json:"role"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate ensures identifier generation and rejects invalid roles before they
// reach storage.
func (m *Membership) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return m.validateRole()
}

// BeforeUpdate guards role mutations the same way as creation.
func (m *Membership) BeforeUpdate(tx *gorm.DB) error {
	return m.validateRole()
}

func (m *Membership) validateRole() error {
	if m.Role == "" {
		return nil
	}
	_, err := access.ParseRole(string(m.Role))
	return err
}
