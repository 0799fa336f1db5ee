package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TransferStatus is the closed lifecycle state set of an ownership transfer.
// Pending is the only non-terminal state.
type TransferStatus string

const (
	TransferPending   TransferStatus = "pending"
	TransferAccepted  TransferStatus = "accepted"
	TransferRejected  TransferStatus = "rejected"
	TransferCancelled TransferStatus = "cancelled"
)

// ParseTransferStatus validates a raw status string.
func ParseTransferStatus(value string) (TransferStatus, error) {
	status := TransferStatus(strings.ToLower(strings.TrimSpace(value)))
	switch status {
	case TransferPending, TransferAccepted, TransferRejected, TransferCancelled:
		return status, nil
	default:
		return "", fmt.Errorf("models: unknown transfer status %q", value)
	}
}

// Terminal reports whether the status admits no further transitions.
func (s TransferStatus) Terminal() bool {
	return s != TransferPending
}

// OwnershipTransfer tracks a pending move of the owner role between two users of an
// organization. Rows are immutable once resolved; resolver ip/user-agent are kept
// for the audit trail.
type OwnershipTransfer struct {
	ID string `gorm:"primaryKey;type:uuid" json:"id"`

	OrganizationID string        `gorm:"type:uuid;not null;index" json:"organization_id"`
	Organization   *Organization `gorm:"foreignKey:OrganizationID" json:"organization,omitempty"`

	FromUserID string `gorm:"type:uuid;not null;index" json:"from_user_id"`
	FromUser   *User  `gorm:"foreignKey:FromUserID" json:"from_user,omitempty"`

	ToUserID string `gorm:"type:uuid;not null;index" json:"to_user_id"`
	ToUser   *User  `gorm:"foreignKey:ToUserID" json:"to_user,omitempty"`

	Status TransferStatus `gorm:"not null;default:pending;index" json:"status"`
	Reason string         `json:"reason"`

	RequestedAt       time.Time  `gorm:"not null" json:"requested_at"`
	ResolvedAt        *time.Time `json:"resolved_at"`
	ResolverIP        string     `json:"resolver_ip"`
	ResolverUserAgent string     `json:"resolver_user_agent"`
}

// BeforeCreate assigns identifiers and defaults the lifecycle state.
func (t *OwnershipTransfer) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Status == "" {
		t.Status = TransferPending
	}
	if t.RequestedAt.IsZero() {
		t.RequestedAt = time.Now()
	}
	_, err := ParseTransferStatus(string(t.Status))
	return err
}
