package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"gorm.io/gorm"

	"github.com/orgtreehq/orgtree/internal/access"
	"github.com/orgtreehq/orgtree/internal/models"
	apperrors "github.com/orgtreehq/orgtree/pkg/errors"
)

var (
	// ErrMemberAlreadyExists signals the user already holds a membership in the organization.
	ErrMemberAlreadyExists = apperrors.New("MEMBER_EXISTS", "User is already a member of the organization", http.StatusConflict)
	// ErrMemberNotFound indicates the requested membership does not exist.
	ErrMemberNotFound = apperrors.New("MEMBER_NOT_FOUND", "User is not a member of the organization", http.StatusNotFound)
	// ErrLastOwner blocks removing or demoting the only owner outside the transfer flow.
	ErrLastOwner = apperrors.New("LAST_OWNER", "Organization must retain an owner; use an ownership transfer instead", http.StatusConflict)
)

// MembershipService manages the (organization, user, role) relation. The owner
// role is excluded from direct assignment: ownership moves only through the
// transfer state machine so the single-owner invariant cannot be violated here.
type MembershipService struct {
	db           *gorm.DB
	evaluator    *access.Evaluator
	auditService *AuditService
}

// NewMembershipService constructs a MembershipService instance.
func NewMembershipService(db *gorm.DB, evaluator *access.Evaluator, auditService *AuditService) (*MembershipService, error) {
	if db == nil {
		return nil, errors.New("membership service: db is required")
	}
	if evaluator == nil {
		return nil, errors.New("membership service: evaluator is required")
	}
	return &MembershipService{
		db:           db,
		evaluator:    evaluator,
		auditService: auditService,
	}, nil
}

// List returns an organization's memberships with user details.
func (s *MembershipService) List(ctx context.Context, actor access.Identity, orgID string) ([]models.Membership, error) {
	ctx = ensureContext(ctx)

	decision, err := evaluateAccess(ctx, s.evaluator, actor, orgID)
	if err != nil {
		return nil, err
	}
	if !decision.HasAccess {
		return nil, apperrors.ErrForbidden
	}

	var memberships []models.Membership
	if err := s.db.WithContext(ctx).
		Preload("User").
		Where("organization_id = ?", orgID).
		Order("created_at ASC").
		Find(&memberships).Error; err != nil {
		return nil, fmt.Errorf("membership service: list members: %w", err)
	}
	return memberships, nil
}

// Add inserts a membership with the given role. Owner cannot be granted directly.
func (s *MembershipService) Add(ctx context.Context, actor access.Identity, orgID, userID string, role access.Role) (*models.Membership, error) {
	ctx = ensureContext(ctx)

	if err := s.requireManage(ctx, actor, orgID); err != nil {
		return nil, err
	}

	if role == access.RoleOwner {
		return nil, apperrors.NewBadRequest("owner role is assigned via ownership transfer")
	}
	if !role.Valid() {
		return nil, apperrors.NewBadRequest("unknown role")
	}

	userID = trimmed(userID)
	var user models.User
	err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("membership service: load user: %w", err)
	}

	membership := &models.Membership{
		OrganizationID: orgID,
		UserID:         userID,
		Role:           role,
	}
	if err := s.db.WithContext(ctx).Create(membership).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrMemberAlreadyExists
		}
		return nil, fmt.Errorf("membership service: create membership: %w", err)
	}

	recordAudit(s.auditService, ctx, auditEntryFor(ctx, actor.ID, AuditEntry{
		Action:         "member.add",
		OrganizationID: &orgID,
		Result:         "success",
		Metadata: map[string]any{
			"user_id": userID,
			"role":    string(role),
		},
	}))

	return membership, nil
}

// UpdateRole changes a member's role. Owner rows are immutable here; promote via
// transfer, and the only owner can never be demoted.
func (s *MembershipService) UpdateRole(ctx context.Context, actor access.Identity, orgID, userID string, role access.Role) (*models.Membership, error) {
	ctx = ensureContext(ctx)

	if err := s.requireManage(ctx, actor, orgID); err != nil {
		return nil, err
	}

	if role == access.RoleOwner {
		return nil, apperrors.NewBadRequest("owner role is assigned via ownership transfer")
	}
	if !role.Valid() {
		return nil, apperrors.NewBadRequest("unknown role")
	}

	var membership models.Membership
	err := s.db.WithContext(ctx).First(&membership, "organization_id = ? AND user_id = ?", orgID, trimmed(userID)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMemberNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("membership service: load membership: %w", err)
	}

	if membership.Role == access.RoleOwner {
		return nil, ErrLastOwner
	}

	if membership.Role != role {
		if err := s.db.WithContext(ctx).Model(&membership).Update("role", role).Error; err != nil {
			return nil, fmt.Errorf("membership service: update role: %w", err)
		}
	}

	recordAudit(s.auditService, ctx, auditEntryFor(ctx, actor.ID, AuditEntry{
		Action:         "member.update_role",
		OrganizationID: &orgID,
		Result:         "success",
		Metadata: map[string]any{
			"user_id": membership.UserID,
			"role":    string(role),
		},
	}))

	return &membership, nil
}

// Remove deletes a membership. Owner rows never leave through this path.
func (s *MembershipService) Remove(ctx context.Context, actor access.Identity, orgID, userID string) error {
	ctx = ensureContext(ctx)

	if err := s.requireManage(ctx, actor, orgID); err != nil {
		return err
	}

	var membership models.Membership
	err := s.db.WithContext(ctx).First(&membership, "organization_id = ? AND user_id = ?", orgID, trimmed(userID)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrMemberNotFound
	}
	if err != nil {
		return fmt.Errorf("membership service: load membership: %w", err)
	}

	if membership.Role == access.RoleOwner {
		return ErrLastOwner
	}

	if err := s.db.WithContext(ctx).Delete(&membership).Error; err != nil {
		return fmt.Errorf("membership service: delete membership: %w", err)
	}

	recordAudit(s.auditService, ctx, auditEntryFor(ctx, actor.ID, AuditEntry{
		Action:         "member.remove",
		OrganizationID: &orgID,
		Result:         "success",
		Metadata: map[string]any{
			"user_id": membership.UserID,
		},
	}))

	return nil
}

func (s *MembershipService) requireManage(ctx context.Context, actor access.Identity, orgID string) error {
	decision, err := evaluateAccess(ctx, s.evaluator, actor, orgID)
	if err != nil {
		return err
	}
	if !decision.HasAccess || !decision.CanManageMembers {
		return apperrors.ErrForbidden
	}
	return nil
}
