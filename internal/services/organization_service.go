package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/orgtreehq/orgtree/internal/access"
	"github.com/orgtreehq/orgtree/internal/auditctx"
	"github.com/orgtreehq/orgtree/internal/models"
	apperrors "github.com/orgtreehq/orgtree/pkg/errors"
	"github.com/orgtreehq/orgtree/pkg/crypto"
)

const shareTokenBytes = 24

// CreateOrganizationInput captures the attributes required to register an organization.
type CreateOrganizationInput struct {
	Name        string
	Description string
	Public      bool
	Settings    map[string]any
}

// UpdateOrganizationInput represents mutable organization fields.
type UpdateOrganizationInput struct {
	Name        *string
	Description *string
	Public      *bool
	Settings    map[string]any
}

// OrganizationService manages lifecycle operations for organizations. Every read
// and mutation is guarded by a fresh evaluator decision; nothing is cached.
type OrganizationService struct {
	db           *gorm.DB
	evaluator    *access.Evaluator
	auditService *AuditService
}

// NewOrganizationService constructs an OrganizationService instance.
func NewOrganizationService(db *gorm.DB, evaluator *access.Evaluator, auditService *AuditService) (*OrganizationService, error) {
	if db == nil {
		return nil, errors.New("organization service: db is required")
	}
	if evaluator == nil {
		return nil, errors.New("organization service: evaluator is required")
	}
	return &OrganizationService{
		db:           db,
		evaluator:    evaluator,
		auditService: auditService,
	}, nil
}

// Create registers a new organization with the actor as creator. The owner
// membership row is inserted eagerly in the same transaction, so the evaluator's
// creator bypass only matters for pre-existing inconsistent data.
func (s *OrganizationService) Create(ctx context.Context, actor access.Identity, input CreateOrganizationInput) (*models.Organization, error) {
	ctx = ensureContext(ctx)

	if actor.ID == "" {
		return nil, apperrors.ErrUnauthorized
	}

	name := trimmed(input.Name)
	if name == "" {
		return nil, apperrors.NewBadRequest("organization name is required")
	}

	org := &models.Organization{
		Name:        name,
		Description: trimmed(input.Description),
		CreatedByID: actor.ID,
		Public:      input.Public,
	}

	if input.Settings != nil {
		data, err := json.Marshal(input.Settings)
		if err != nil {
			return nil, fmt.Errorf("organization service: marshal settings: %w", err)
		}
		org.Settings = datatypes.JSON(data)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(org).Error; err != nil {
			return fmt.Errorf("organization service: create organization: %w", err)
		}

		membership := models.Membership{
			OrganizationID: org.ID,
			UserID:         actor.ID,
			Role:           access.RoleOwner,
		}
		if err := tx.Create(&membership).Error; err != nil {
			return fmt.Errorf("organization service: create owner membership: %w", err)
		}

		// The creation audit row commits with the organization or not at all.
		if s.auditService != nil {
			entry := auditEntryFor(ctx, actor.ID, AuditEntry{
				Action:         "org.create",
				OrganizationID: &org.ID,
				Result:         "success",
				Metadata: map[string]any{
					"name": name,
				},
			})
			if err := appendAudit(tx, entry); err != nil {
				return fmt.Errorf("organization service: audit creation: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return org, nil
}

// GetByID loads an organization when the actor has read access. Public
// organizations are readable by any authenticated user.
func (s *OrganizationService) GetByID(ctx context.Context, actor access.Identity, id string) (*models.Organization, *access.Decision, error) {
	ctx = ensureContext(ctx)

	decision, err := evaluateAccess(ctx, s.evaluator, actor, id)
	if err != nil {
		return nil, nil, err
	}

	var org models.Organization
	if err := s.db.WithContext(ctx).
		Preload("Memberships.User").
		First(&org, "id = ?", id).Error; err != nil {
		return nil, nil, fmt.Errorf("organization service: get organization: %w", err)
	}

	if !decision.HasAccess && !org.Public {
		return nil, nil, apperrors.ErrForbidden
	}

	return &org, &decision, nil
}

// ListForUser returns organizations visible to the actor: all for superusers,
// otherwise those created by or shared with the user through a membership.
func (s *OrganizationService) ListForUser(ctx context.Context, actor access.Identity) ([]models.Organization, error) {
	ctx = ensureContext(ctx)

	var orgs []models.Organization

	query := s.db.WithContext(ctx).Order("created_at ASC")
	if actor.SystemRole != access.SystemRoleSuperuser {
		query = query.Where(
			"created_by_id = ? OR id IN (?)",
			actor.ID,
			s.db.Model(&models.Membership{}).Select("organization_id").Where("user_id = ?", actor.ID),
		)
	}

	if err := query.Find(&orgs).Error; err != nil {
		return nil, fmt.Errorf("organization service: list organizations: %w", err)
	}
	return orgs, nil
}

// Update modifies organization metadata. Requires edit capability.
func (s *OrganizationService) Update(ctx context.Context, actor access.Identity, id string, input UpdateOrganizationInput) (*models.Organization, error) {
	ctx = ensureContext(ctx)

	decision, err := evaluateAccess(ctx, s.evaluator, actor, id)
	if err != nil {
		return nil, err
	}
	if !decision.HasAccess || !decision.CanEdit {
		return nil, apperrors.ErrForbidden
	}

	var org models.Organization
	if err := s.db.WithContext(ctx).First(&org, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("organization service: load organization: %w", err)
	}

	updates := map[string]any{}

	if input.Name != nil {
		if name := trimmed(*input.Name); name != "" && name != org.Name {
			updates["name"] = name
		}
	}
	if input.Description != nil {
		updates["description"] = trimmed(*input.Description)
	}
	if input.Public != nil && *input.Public != org.Public {
		// Visibility changes are owner/admin territory, not editor.
		if !decision.CanManageMembers {
			return nil, apperrors.ErrForbidden
		}
		updates["public"] = *input.Public
	}
	if input.Settings != nil {
		data, err := json.Marshal(input.Settings)
		if err != nil {
			return nil, fmt.Errorf("organization service: marshal settings: %w", err)
		}
		updates["settings"] = datatypes.JSON(data)
	}

	if len(updates) == 0 {
		return &org, nil
	}

	if err := s.db.WithContext(ctx).Model(&org).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("organization service: update organization: %w", err)
	}

	if err := s.db.WithContext(ctx).First(&org, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("organization service: reload organization: %w", err)
	}

	recordAudit(s.auditService, ctx, auditEntryFor(ctx, actor.ID, AuditEntry{
		Action:         "org.update",
		OrganizationID: &org.ID,
		Result:         "success",
		Metadata:       updates,
	}))

	return &org, nil
}

// RotateShareToken replaces the public share token. Requires member management rights.
func (s *OrganizationService) RotateShareToken(ctx context.Context, actor access.Identity, id string) (string, error) {
	ctx = ensureContext(ctx)

	decision, err := evaluateAccess(ctx, s.evaluator, actor, id)
	if err != nil {
		return "", err
	}
	if !decision.HasAccess || !decision.CanManageMembers {
		return "", apperrors.ErrForbidden
	}

	token, err := crypto.GenerateToken(shareTokenBytes)
	if err != nil {
		return "", fmt.Errorf("organization service: generate share token: %w", err)
	}

	if err := s.db.WithContext(ctx).
		Model(&models.Organization{}).
		Where("id = ?", id).
		Update("share_token", token).Error; err != nil {
		return "", fmt.Errorf("organization service: rotate share token: %w", err)
	}

	recordAudit(s.auditService, ctx, auditEntryFor(ctx, actor.ID, AuditEntry{
		Action:         "org.share_token.rotate",
		OrganizationID: &id,
		Result:         "success",
	}))

	return token, nil
}

// Delete removes an organization. Only the effective owner may delete.
func (s *OrganizationService) Delete(ctx context.Context, actor access.Identity, id string) error {
	ctx = ensureContext(ctx)

	decision, err := evaluateAccess(ctx, s.evaluator, actor, id)
	if err != nil {
		return err
	}
	if !decision.HasAccess || !decision.CanDelete {
		return apperrors.ErrForbidden
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []any{
			&models.Person{},
			&models.Department{},
			&models.OwnershipTransfer{},
			&models.Membership{},
		} {
			if err := tx.Where("organization_id = ?", id).Delete(model).Error; err != nil {
				return fmt.Errorf("organization service: delete dependents: %w", err)
			}
		}
		if err := tx.Delete(&models.Organization{}, "id = ?", id).Error; err != nil {
			return fmt.Errorf("organization service: delete organization: %w", err)
		}

		if s.auditService != nil {
			entry := auditEntryFor(ctx, actor.ID, AuditEntry{
				Action:         "org.delete",
				OrganizationID: &id,
				Result:         "success",
			})
			if err := appendAudit(tx, entry); err != nil {
				return fmt.Errorf("organization service: audit deletion: %w", err)
			}
		}
		return nil
	})
	return err
}

// auditEntryFor enriches an audit entry with actor metadata from the request context.
func auditEntryFor(ctx context.Context, userID string, entry AuditEntry) AuditEntry {
	if userID != "" {
		entry.UserID = &userID
	}
	if actor, ok := auditctx.FromContext(ctx); ok {
		if entry.Username == "" {
			entry.Username = actor.Username
		}
		if entry.IPAddress == "" {
			entry.IPAddress = actor.IPAddress
		}
		if entry.UserAgent == "" {
			entry.UserAgent = actor.UserAgent
		}
		if entry.OrganizationID == nil && actor.OrganizationID != "" {
			orgID := actor.OrganizationID
			entry.OrganizationID = &orgID
		}
	}
	return entry
}
