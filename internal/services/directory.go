package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/orgtreehq/orgtree/internal/access"
	"github.com/orgtreehq/orgtree/internal/models"
)

// GormDirectory implements access.Directory over the application database. It is
// the production wiring of the evaluator; tests may substitute an in-memory fake.
type GormDirectory struct {
	db *gorm.DB
}

// NewGormDirectory constructs the directory over the supplied handle.
func NewGormDirectory(db *gorm.DB) (*GormDirectory, error) {
	if db == nil {
		return nil, errors.New("directory: db is required")
	}
	return &GormDirectory{db: db}, nil
}

// OrganizationCreator looks up the immutable creator id for an organization.
func (d *GormDirectory) OrganizationCreator(ctx context.Context, orgID string) (string, error) {
	ctx = ensureContext(ctx)

	var org models.Organization
	err := d.db.WithContext(ctx).Select("id", "created_by_id").First(&org, "id = ?", orgID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", access.ErrOrganizationNotFound
	}
	if err != nil {
		return "", fmt.Errorf("directory: load organization: %w", err)
	}
	return org.CreatedByID, nil
}

// MembershipRole returns the stored role for the (organization, user) pair.
func (d *GormDirectory) MembershipRole(ctx context.Context, orgID, userID string) (access.Role, bool, error) {
	ctx = ensureContext(ctx)

	if userID == "" {
		return "", false, nil
	}

	var membership models.Membership
	err := d.db.WithContext(ctx).
		Select("id", "role").
		First(&membership, "organization_id = ? AND user_id = ?", orgID, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("directory: load membership: %w", err)
	}
	return membership.Role, true, nil
}

// NewEvaluator is a convenience constructor wiring the evaluator to this database.
func NewEvaluator(db *gorm.DB) (*access.Evaluator, error) {
	dir, err := NewGormDirectory(db)
	if err != nil {
		return nil, err
	}
	return access.NewEvaluator(dir)
}
