package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/orgtreehq/orgtree/internal/access"
	"github.com/orgtreehq/orgtree/internal/models"
	apperrors "github.com/orgtreehq/orgtree/pkg/errors"
	"github.com/orgtreehq/orgtree/pkg/metrics"
)

var (
	// ErrTransferNotFound indicates the requested transfer does not exist.
	ErrTransferNotFound = apperrors.New("TRANSFER_NOT_FOUND", "Ownership transfer not found", http.StatusNotFound)
	// ErrTransferNotPending signals the transfer already reached a terminal state.
	ErrTransferNotPending = apperrors.New("TRANSFER_NOT_PENDING", "Ownership transfer is no longer pending", http.StatusConflict)
	// ErrTransferPendingExists rejects a second concurrent transfer for one organization.
	ErrTransferPendingExists = apperrors.New("TRANSFER_PENDING_EXISTS", "A pending ownership transfer already exists for this organization", http.StatusConflict)
	// ErrTransferRecipientInvalid indicates the recipient account is missing or disabled.
	ErrTransferRecipientInvalid = apperrors.New("TRANSFER_RECIPIENT_INVALID", "Transfer recipient not found", http.StatusNotFound)
)

// TransferService drives the ownership transfer lifecycle:
// pending -> accepted | rejected | cancelled, with no transitions out of a
// terminal state. Ownership is single-writer (exactly one owner per organization);
// every transition is guarded, audited, and applied in one database transaction so
// racing requests resolve with exactly one winner.
type TransferService struct {
	db           *gorm.DB
	evaluator    *access.Evaluator
	auditService *AuditService
	now          func() time.Time
}

// NewTransferService constructs a TransferService instance.
func NewTransferService(db *gorm.DB, evaluator *access.Evaluator, auditService *AuditService) (*TransferService, error) {
	if db == nil {
		return nil, errors.New("transfer service: db is required")
	}
	if evaluator == nil {
		return nil, errors.New("transfer service: evaluator is required")
	}
	return &TransferService{
		db:           db,
		evaluator:    evaluator,
		auditService: auditService,
		now:          time.Now,
	}, nil
}

// WithClock overrides the clock, primarily for tests.
func (s *TransferService) WithClock(now func() time.Time) *TransferService {
	if now != nil {
		s.now = now
	}
	return s
}

// Create opens a pending transfer of the owner role to the recipient. The actor
// must currently resolve to owner for the organization and the recipient must be
// an existing active account (member or invitable). Only one pending transfer may
// exist per organization at a time.
func (s *TransferService) Create(ctx context.Context, actor access.Identity, orgID, toUserID string) (*models.OwnershipTransfer, error) {
	ctx = ensureContext(ctx)

	decision, err := evaluateAccess(ctx, s.evaluator, actor, orgID)
	if err != nil {
		return nil, err
	}
	if !decision.HasAccess || decision.Role == nil || *decision.Role != access.RoleOwner {
		return nil, apperrors.ErrForbidden
	}

	toUserID = trimmed(toUserID)
	if toUserID == "" || toUserID == actor.ID {
		return nil, apperrors.NewBadRequest("transfer recipient must be another user")
	}

	var recipient models.User
	err = s.db.WithContext(ctx).First(&recipient, "id = ?", toUserID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTransferRecipientInvalid
	}
	if err != nil {
		return nil, fmt.Errorf("transfer service: load recipient: %w", err)
	}
	if !recipient.IsActive {
		return nil, ErrTransferRecipientInvalid
	}

	transfer := &models.OwnershipTransfer{
		OrganizationID: orgID,
		FromUserID:     actor.ID,
		ToUserID:       toUserID,
		Status:         models.TransferPending,
		RequestedAt:    s.now(),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var pending int64
		if err := tx.Model(&models.OwnershipTransfer{}).
			Where("organization_id = ? AND status = ?", orgID, models.TransferPending).
			Count(&pending).Error; err != nil {
			return fmt.Errorf("transfer service: count pending: %w", err)
		}
		if pending > 0 {
			return ErrTransferPendingExists
		}

		if err := tx.Create(transfer).Error; err != nil {
			return fmt.Errorf("transfer service: create transfer: %w", err)
		}

		return appendAudit(tx, auditEntryFor(ctx, actor.ID, AuditEntry{
			Action:         "transfer.create",
			OrganizationID: &transfer.OrganizationID,
			TransferID:     &transfer.ID,
			Result:         "success",
			Metadata: map[string]any{
				"to_user_id": toUserID,
			},
		}))
	})
	if err != nil {
		return nil, err
	}

	return transfer, nil
}

// Accept resolves a pending transfer in the recipient's favour. Atomically: the
// transfer becomes accepted, the recipient's membership is upserted to owner,
// every other owner row (including the initiator, whose row is created if the
// creator bypass meant none existed) is demoted to admin, and an audit entry is
// appended. A racing resolution loses with ErrTransferNotPending.
func (s *TransferService) Accept(ctx context.Context, actorID, transferID, ip, userAgent string) (*models.OwnershipTransfer, error) {
	ctx = ensureContext(ctx)

	transfer, err := s.loadTransfer(ctx, transferID)
	if err != nil {
		return nil, err
	}

	if actorID == "" || actorID != transfer.ToUserID {
		return nil, apperrors.ErrForbidden
	}
	if transfer.Status.Terminal() {
		return nil, ErrTransferNotPending
	}

	resolvedAt := s.now()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.resolve(tx, transfer, models.TransferAccepted, "", ip, userAgent, resolvedAt); err != nil {
			return err
		}

		if err := upsertMembershipRole(tx, transfer.OrganizationID, transfer.ToUserID, access.RoleOwner); err != nil {
			return err
		}

		// Single-owner invariant: every other owner row drops to admin. The former
		// owner keeps organization access rather than being removed.
		if err := tx.Model(&models.Membership{}).
			Where("organization_id = ? AND role = ? AND user_id <> ?",
				transfer.OrganizationID, access.RoleOwner, transfer.ToUserID).
			Update("role", access.RoleAdmin).Error; err != nil {
			return fmt.Errorf("transfer service: demote owners: %w", err)
		}

		if transfer.FromUserID != transfer.ToUserID {
			if err := ensureMembershipAtLeast(tx, transfer.OrganizationID, transfer.FromUserID, access.RoleAdmin); err != nil {
				return err
			}
		}

		return appendAudit(tx, auditEntryFor(ctx, actorID, AuditEntry{
			Action:         "transfer.accept",
			OrganizationID: &transfer.OrganizationID,
			TransferID:     &transfer.ID,
			Result:         "success",
			IPAddress:      ip,
			UserAgent:      userAgent,
			Metadata: map[string]any{
				"from_user_id": transfer.FromUserID,
				"to_user_id":   transfer.ToUserID,
			},
		}))
	})
	if err != nil {
		return nil, err
	}

	metrics.TransferResolutions.WithLabelValues(string(models.TransferAccepted)).Inc()
	return transfer, nil
}

// Reject resolves a pending transfer against the initiator. Only the recipient may
// reject; the reason is optional context. No membership rows change.
func (s *TransferService) Reject(ctx context.Context, actorID, transferID, reason, ip, userAgent string) (*models.OwnershipTransfer, error) {
	ctx = ensureContext(ctx)

	transfer, err := s.loadTransfer(ctx, transferID)
	if err != nil {
		return nil, err
	}

	if actorID == "" || actorID != transfer.ToUserID {
		return nil, apperrors.ErrForbidden
	}
	if transfer.Status.Terminal() {
		return nil, ErrTransferNotPending
	}

	resolvedAt := s.now()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.resolve(tx, transfer, models.TransferRejected, trimmed(reason), ip, userAgent, resolvedAt); err != nil {
			return err
		}

		return appendAudit(tx, auditEntryFor(ctx, actorID, AuditEntry{
			Action:         "transfer.reject",
			OrganizationID: &transfer.OrganizationID,
			TransferID:     &transfer.ID,
			Result:         "success",
			IPAddress:      ip,
			UserAgent:      userAgent,
			Metadata: map[string]any{
				"reason": trimmed(reason),
			},
		}))
	})
	if err != nil {
		return nil, err
	}

	metrics.TransferResolutions.WithLabelValues(string(models.TransferRejected)).Inc()
	return transfer, nil
}

// Cancel withdraws a pending transfer. Only the initiator may cancel, and unlike
// reject the reason is mandatory.
func (s *TransferService) Cancel(ctx context.Context, actorID, transferID, reason, ip, userAgent string) (*models.OwnershipTransfer, error) {
	ctx = ensureContext(ctx)

	transfer, err := s.loadTransfer(ctx, transferID)
	if err != nil {
		return nil, err
	}

	if actorID == "" || actorID != transfer.FromUserID {
		return nil, apperrors.ErrForbidden
	}
	if transfer.Status.Terminal() {
		return nil, ErrTransferNotPending
	}
	if isBlank(reason) {
		return nil, apperrors.NewBadRequest("cancellation reason is required")
	}

	resolvedAt := s.now()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.resolve(tx, transfer, models.TransferCancelled, trimmed(reason), ip, userAgent, resolvedAt); err != nil {
			return err
		}

		return appendAudit(tx, auditEntryFor(ctx, actorID, AuditEntry{
			Action:         "transfer.cancel",
			OrganizationID: &transfer.OrganizationID,
			TransferID:     &transfer.ID,
			Result:         "success",
			IPAddress:      ip,
			UserAgent:      userAgent,
			Metadata: map[string]any{
				"reason": trimmed(reason),
			},
		}))
	})
	if err != nil {
		return nil, err
	}

	metrics.TransferResolutions.WithLabelValues(string(models.TransferCancelled)).Inc()
	return transfer, nil
}

// GetByID loads a transfer visible to the actor (initiator, recipient, or anyone
// holding organization access).
func (s *TransferService) GetByID(ctx context.Context, actor access.Identity, transferID string) (*models.OwnershipTransfer, error) {
	ctx = ensureContext(ctx)

	transfer, err := s.loadTransfer(ctx, transferID)
	if err != nil {
		return nil, err
	}

	if err := s.requireTransferVisibility(ctx, actor, transfer); err != nil {
		return nil, err
	}
	return transfer, nil
}

// PendingForUser returns pending transfers addressed to the user, newest first.
func (s *TransferService) PendingForUser(ctx context.Context, userID string) ([]models.OwnershipTransfer, error) {
	ctx = ensureContext(ctx)

	var transfers []models.OwnershipTransfer
	if err := s.db.WithContext(ctx).
		Preload("Organization").
		Preload("FromUser").
		Where("to_user_id = ? AND status = ?", userID, models.TransferPending).
		Order("requested_at DESC").
		Find(&transfers).Error; err != nil {
		return nil, fmt.Errorf("transfer service: list pending: %w", err)
	}
	return transfers, nil
}

// AuditLogFor returns the audit trail of a transfer, guarded the same way as GetByID.
func (s *TransferService) AuditLogFor(ctx context.Context, actor access.Identity, transferID string) ([]models.AuditLog, error) {
	ctx = ensureContext(ctx)

	transfer, err := s.loadTransfer(ctx, transferID)
	if err != nil {
		return nil, err
	}

	if err := s.requireTransferVisibility(ctx, actor, transfer); err != nil {
		return nil, err
	}

	if s.auditService == nil {
		return nil, nil
	}
	return s.auditService.ForTransfer(ctx, transfer.ID)
}

func (s *TransferService) loadTransfer(ctx context.Context, transferID string) (*models.OwnershipTransfer, error) {
	var transfer models.OwnershipTransfer
	err := s.db.WithContext(ctx).First(&transfer, "id = ?", trimmed(transferID)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTransferNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("transfer service: load transfer: %w", err)
	}
	return &transfer, nil
}

func (s *TransferService) requireTransferVisibility(ctx context.Context, actor access.Identity, transfer *models.OwnershipTransfer) error {
	if actor.ID != "" && (actor.ID == transfer.FromUserID || actor.ID == transfer.ToUserID) {
		return nil
	}

	decision, err := evaluateAccess(ctx, s.evaluator, actor, transfer.OrganizationID)
	if err != nil {
		return err
	}
	if !decision.HasAccess {
		return apperrors.ErrForbidden
	}
	return nil
}

// resolve performs the guarded status transition. The WHERE clause on the current
// pending status makes concurrent resolutions race safely: exactly one UPDATE
// matches, the loser observes ErrTransferNotPending.
func (s *TransferService) resolve(tx *gorm.DB, transfer *models.OwnershipTransfer, status models.TransferStatus, reason, ip, userAgent string, resolvedAt time.Time) error {
	result := tx.Model(&models.OwnershipTransfer{}).
		Where("id = ? AND status = ?", transfer.ID, models.TransferPending).
		Updates(map[string]any{
			"status":              status,
			"reason":              reason,
			"resolved_at":         resolvedAt,
			"resolver_ip":         trimmed(ip),
			"resolver_user_agent": trimmed(userAgent),
		})
	if result.Error != nil {
		return fmt.Errorf("transfer service: resolve transfer: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrTransferNotPending
	}

	transfer.Status = status
	transfer.Reason = reason
	transfer.ResolvedAt = &resolvedAt
	transfer.ResolverIP = trimmed(ip)
	transfer.ResolverUserAgent = trimmed(userAgent)
	return nil
}

func upsertMembershipRole(tx *gorm.DB, orgID, userID string, role access.Role) error {
	var membership models.Membership
	err := tx.First(&membership, "organization_id = ? AND user_id = ?", orgID, userID).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		membership = models.Membership{
			OrganizationID: orgID,
			UserID:         userID,
			Role:           role,
		}
		if err := tx.Create(&membership).Error; err != nil {
			return fmt.Errorf("transfer service: create membership: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("transfer service: load membership: %w", err)
	}

	if membership.Role == role {
		return nil
	}
	if err := tx.Model(&membership).Update("role", role).Error; err != nil {
		return fmt.Errorf("transfer service: update membership: %w", err)
	}
	return nil
}

// ensureMembershipAtLeast guarantees the user holds a membership row, creating an
// admin row when the creator bypass meant none was ever materialised.
func ensureMembershipAtLeast(tx *gorm.DB, orgID, userID string, role access.Role) error {
	var count int64
	if err := tx.Model(&models.Membership{}).
		Where("organization_id = ? AND user_id = ?", orgID, userID).
		Count(&count).Error; err != nil {
		return fmt.Errorf("transfer service: check membership: %w", err)
	}
	if count > 0 {
		return nil
	}

	membership := models.Membership{
		OrganizationID: orgID,
		UserID:         userID,
		Role:           role,
	}
	if err := tx.Create(&membership).Error; err != nil {
		return fmt.Errorf("transfer service: backfill membership: %w", err)
	}
	return nil
}
