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
	// ErrDepartmentNotFound indicates the requested department does not exist.
	ErrDepartmentNotFound = apperrors.New("DEPARTMENT_NOT_FOUND", "Department not found", http.StatusNotFound)
	// ErrDepartmentCycle rejects reparenting that would create a loop in the tree.
	ErrDepartmentCycle = apperrors.New("DEPARTMENT_CYCLE", "Department cannot be nested under its own subtree", http.StatusConflict)
)

// CreateDepartmentInput captures new department attributes.
type CreateDepartmentInput struct {
	Name        string
	Description string
	ParentID    *string
	SortOrder   int
}

// UpdateDepartmentInput describes mutable department fields.
type UpdateDepartmentInput struct {
	Name        *string
	Description *string
	ParentID    *string
	SortOrder   *int
}

// DepartmentService manages the department tree inside an organization.
type DepartmentService struct {
	db           *gorm.DB
	evaluator    *access.Evaluator
	auditService *AuditService
}

// NewDepartmentService constructs a DepartmentService instance.
func NewDepartmentService(db *gorm.DB, evaluator *access.Evaluator, auditService *AuditService) (*DepartmentService, error) {
	if db == nil {
		return nil, errors.New("department service: db is required")
	}
	if evaluator == nil {
		return nil, errors.New("department service: evaluator is required")
	}
	return &DepartmentService{db: db, evaluator: evaluator, auditService: auditService}, nil
}

// ListTree returns all departments of an organization ordered for tree assembly.
func (s *DepartmentService) ListTree(ctx context.Context, actor access.Identity, orgID string) ([]models.Department, error) {
	ctx = ensureContext(ctx)

	if err := s.requireRead(ctx, actor, orgID); err != nil {
		return nil, err
	}

	var departments []models.Department
	if err := s.db.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Order("sort_order ASC, name ASC").
		Find(&departments).Error; err != nil {
		return nil, fmt.Errorf("department service: list departments: %w", err)
	}
	return departments, nil
}

// Create adds a department, optionally under a parent in the same organization.
func (s *DepartmentService) Create(ctx context.Context, actor access.Identity, orgID string, input CreateDepartmentInput) (*models.Department, error) {
	ctx = ensureContext(ctx)

	if err := s.requireEdit(ctx, actor, orgID); err != nil {
		return nil, err
	}

	name := trimmed(input.Name)
	if name == "" {
		return nil, apperrors.NewBadRequest("department name is required")
	}

	if input.ParentID != nil {
		if _, err := s.loadInOrg(ctx, orgID, *input.ParentID); err != nil {
			return nil, err
		}
	}

	department := &models.Department{
		OrganizationID: orgID,
		ParentID:       input.ParentID,
		Name:           name,
		Description:    trimmed(input.Description),
		SortOrder:      input.SortOrder,
	}
	if err := s.db.WithContext(ctx).Create(department).Error; err != nil {
		return nil, fmt.Errorf("department service: create department: %w", err)
	}

	recordAudit(s.auditService, ctx, auditEntryFor(ctx, actor.ID, AuditEntry{
		Action:         "department.create",
		OrganizationID: &orgID,
		Result:         "success",
		Metadata:       map[string]any{"name": name},
	}))

	return department, nil
}

// Update modifies department fields, guarding against cycles when reparenting.
func (s *DepartmentService) Update(ctx context.Context, actor access.Identity, orgID, id string, input UpdateDepartmentInput) (*models.Department, error) {
	ctx = ensureContext(ctx)

	if err := s.requireEdit(ctx, actor, orgID); err != nil {
		return nil, err
	}

	department, err := s.loadInOrg(ctx, orgID, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}

	if input.Name != nil {
		if name := trimmed(*input.Name); name != "" && name != department.Name {
			updates["name"] = name
		}
	}
	if input.Description != nil {
		updates["description"] = trimmed(*input.Description)
	}
	if input.SortOrder != nil {
		updates["sort_order"] = *input.SortOrder
	}
	if input.ParentID != nil {
		if *input.ParentID != "" {
			if err := s.checkNoCycle(ctx, orgID, department.ID, *input.ParentID); err != nil {
				return nil, err
			}
			updates["parent_id"] = *input.ParentID
		} else {
			updates["parent_id"] = nil
		}
	}

	if len(updates) == 0 {
		return department, nil
	}

	if err := s.db.WithContext(ctx).Model(department).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("department service: update department: %w", err)
	}

	if err := s.db.WithContext(ctx).First(department, "id = ?", department.ID).Error; err != nil {
		return nil, fmt.Errorf("department service: reload department: %w", err)
	}

	recordAudit(s.auditService, ctx, auditEntryFor(ctx, actor.ID, AuditEntry{
		Action:         "department.update",
		OrganizationID: &orgID,
		Result:         "success",
		Metadata:       map[string]any{"department_id": department.ID},
	}))

	return department, nil
}

// Delete removes a department; children are reparented to the deleted node's parent
// so the rest of the subtree survives.
func (s *DepartmentService) Delete(ctx context.Context, actor access.Identity, orgID, id string) error {
	ctx = ensureContext(ctx)

	if err := s.requireEdit(ctx, actor, orgID); err != nil {
		return err
	}

	department, err := s.loadInOrg(ctx, orgID, id)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Department{}).
			Where("parent_id = ?", department.ID).
			Update("parent_id", department.ParentID).Error; err != nil {
			return fmt.Errorf("department service: reparent children: %w", err)
		}
		if err := tx.Model(&models.Person{}).
			Where("department_id = ?", department.ID).
			Update("department_id", department.ParentID).Error; err != nil {
			return fmt.Errorf("department service: reassign people: %w", err)
		}
		if err := tx.Delete(department).Error; err != nil {
			return fmt.Errorf("department service: delete department: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	recordAudit(s.auditService, ctx, auditEntryFor(ctx, actor.ID, AuditEntry{
		Action:         "department.delete",
		OrganizationID: &orgID,
		Result:         "success",
		Metadata:       map[string]any{"department_id": department.ID},
	}))

	return nil
}

func (s *DepartmentService) loadInOrg(ctx context.Context, orgID, id string) (*models.Department, error) {
	var department models.Department
	err := s.db.WithContext(ctx).First(&department, "id = ? AND organization_id = ?", trimmed(id), orgID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDepartmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("department service: load department: %w", err)
	}
	return &department, nil
}

// checkNoCycle walks up from the proposed parent; finding the node itself on the
// way to the root means the move would create a loop.
func (s *DepartmentService) checkNoCycle(ctx context.Context, orgID, nodeID, parentID string) error {
	current := parentID
	for current != "" {
		if current == nodeID {
			return ErrDepartmentCycle
		}
		parent, err := s.loadInOrg(ctx, orgID, current)
		if err != nil {
			return err
		}
		if parent.ParentID == nil {
			return nil
		}
		current = *parent.ParentID
	}
	return nil
}

func (s *DepartmentService) requireRead(ctx context.Context, actor access.Identity, orgID string) error {
	decision, err := evaluateAccess(ctx, s.evaluator, actor, orgID)
	if err != nil {
		return err
	}
	if !decision.HasAccess {
		return apperrors.ErrForbidden
	}
	return nil
}

func (s *DepartmentService) requireEdit(ctx context.Context, actor access.Identity, orgID string) error {
	decision, err := evaluateAccess(ctx, s.evaluator, actor, orgID)
	if err != nil {
		return err
	}
	if !decision.HasAccess || !decision.CanEdit {
		return apperrors.ErrForbidden
	}
	return nil
}
