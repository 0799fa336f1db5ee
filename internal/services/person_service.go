package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/orgtreehq/orgtree/internal/access"
	"github.com/orgtreehq/orgtree/internal/models"
	apperrors "github.com/orgtreehq/orgtree/pkg/errors"
)

var (
	// ErrPersonNotFound indicates the requested person does not exist.
	ErrPersonNotFound = apperrors.New("PERSON_NOT_FOUND", "Person not found", http.StatusNotFound)
)

// CreatePersonInput captures new person attributes.
type CreatePersonInput struct {
	Name         string
	Title        string
	Email        string
	DepartmentID *string
	ReportsToID  *string
}

// UpdatePersonInput describes mutable person fields.
type UpdatePersonInput struct {
	Name         *string
	Title        *string
	Email        *string
	DepartmentID *string
	ReportsToID  *string
}

// PersonService manages org chart person records.
type PersonService struct {
	db           *gorm.DB
	evaluator    *access.Evaluator
	auditService *AuditService
}

// NewPersonService constructs a PersonService instance.
func NewPersonService(db *gorm.DB, evaluator *access.Evaluator, auditService *AuditService) (*PersonService, error) {
	if db == nil {
		return nil, errors.New("person service: db is required")
	}
	if evaluator == nil {
		return nil, errors.New("person service: evaluator is required")
	}
	return &PersonService{db: db, evaluator: evaluator, auditService: auditService}, nil
}

// List returns an organization's people, optionally filtered by a search term.
func (s *PersonService) List(ctx context.Context, actor access.Identity, orgID, search string) ([]models.Person, error) {
	ctx = ensureContext(ctx)

	if err := s.requireRead(ctx, actor, orgID); err != nil {
		return nil, err
	}

	query := s.db.WithContext(ctx).Where("organization_id = ?", orgID)
	if term := trimmed(search); term != "" {
		pattern := "%" + strings.ToLower(term) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(title) LIKE ?", pattern, pattern, pattern)
	}

	var people []models.Person
	if err := query.Order("name ASC").Find(&people).Error; err != nil {
		return nil, fmt.Errorf("person service: list people: %w", err)
	}
	return people, nil
}

// Create adds a person to the organization chart.
func (s *PersonService) Create(ctx context.Context, actor access.Identity, orgID string, input CreatePersonInput) (*models.Person, error) {
	ctx = ensureContext(ctx)

	if err := s.requireEdit(ctx, actor, orgID); err != nil {
		return nil, err
	}

	name := trimmed(input.Name)
	if name == "" {
		return nil, apperrors.NewBadRequest("person name is required")
	}

	if input.DepartmentID != nil {
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.Department{}).
			Where("id = ? AND organization_id = ?", *input.DepartmentID, orgID).
			Count(&count).Error; err != nil {
			return nil, fmt.Errorf("person service: check department: %w", err)
		}
		if count == 0 {
			return nil, ErrDepartmentNotFound
		}
	}

	person := &models.Person{
		OrganizationID: orgID,
		DepartmentID:   input.DepartmentID,
		Name:           name,
		Title:          trimmed(input.Title),
		Email:          strings.ToLower(trimmed(input.Email)),
		ReportsToID:    input.ReportsToID,
	}
	if err := s.db.WithContext(ctx).Create(person).Error; err != nil {
		return nil, fmt.Errorf("person service: create person: %w", err)
	}

	recordAudit(s.auditService, ctx, auditEntryFor(ctx, actor.ID, AuditEntry{
		Action:         "person.create",
		OrganizationID: &orgID,
		Result:         "success",
		Metadata:       map[string]any{"name": name},
	}))

	return person, nil
}

// Update modifies person fields.
func (s *PersonService) Update(ctx context.Context, actor access.Identity, orgID, id string, input UpdatePersonInput) (*models.Person, error) {
	ctx = ensureContext(ctx)

	if err := s.requireEdit(ctx, actor, orgID); err != nil {
		return nil, err
	}

	person, err := s.loadInOrg(ctx, orgID, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}

	if input.Name != nil {
		if name := trimmed(*input.Name); name != "" {
			updates["name"] = name
		}
	}
	if input.Title != nil {
		updates["title"] = trimmed(*input.Title)
	}
	if input.Email != nil {
		updates["email"] = strings.ToLower(trimmed(*input.Email))
	}
	if input.DepartmentID != nil {
		if *input.DepartmentID == "" {
			updates["department_id"] = nil
		} else {
			updates["department_id"] = *input.DepartmentID
		}
	}
	if input.ReportsToID != nil {
		if *input.ReportsToID == "" {
			updates["reports_to_id"] = nil
		} else {
			updates["reports_to_id"] = *input.ReportsToID
		}
	}

	if len(updates) == 0 {
		return person, nil
	}

	if err := s.db.WithContext(ctx).Model(person).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("person service: update person: %w", err)
	}

	if err := s.db.WithContext(ctx).First(person, "id = ?", person.ID).Error; err != nil {
		return nil, fmt.Errorf("person service: reload person: %w", err)
	}

	recordAudit(s.auditService, ctx, auditEntryFor(ctx, actor.ID, AuditEntry{
		Action:         "person.update",
		OrganizationID: &orgID,
		Result:         "success",
		Metadata:       map[string]any{"person_id": person.ID},
	}))

	return person, nil
}

// Delete removes a person from the chart; direct reports keep their rows with the
// reports-to pointer cleared.
func (s *PersonService) Delete(ctx context.Context, actor access.Identity, orgID, id string) error {
	ctx = ensureContext(ctx)

	if err := s.requireEdit(ctx, actor, orgID); err != nil {
		return err
	}

	person, err := s.loadInOrg(ctx, orgID, id)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Person{}).
			Where("reports_to_id = ?", person.ID).
			Update("reports_to_id", nil).Error; err != nil {
			return fmt.Errorf("person service: detach reports: %w", err)
		}
		if err := tx.Delete(person).Error; err != nil {
			return fmt.Errorf("person service: delete person: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	recordAudit(s.auditService, ctx, auditEntryFor(ctx, actor.ID, AuditEntry{
		Action:         "person.delete",
		OrganizationID: &orgID,
		Result:         "success",
		Metadata:       map[string]any{"person_id": person.ID},
	}))

	return nil
}

func (s *PersonService) loadInOrg(ctx context.Context, orgID, id string) (*models.Person, error) {
	var person models.Person
	err := s.db.WithContext(ctx).First(&person, "id = ? AND organization_id = ?", trimmed(id), orgID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPersonNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("person service: load person: %w", err)
	}
	return &person, nil
}

func (s *PersonService) requireRead(ctx context.Context, actor access.Identity, orgID string) error {
	decision, err := evaluateAccess(ctx, s.evaluator, actor, orgID)
	if err != nil {
		return err
	}
	if !decision.HasAccess {
		return apperrors.ErrForbidden
	}
	return nil
}

func (s *PersonService) requireEdit(ctx context.Context, actor access.Identity, orgID string) error {
	decision, err := evaluateAccess(ctx, s.evaluator, actor, orgID)
	if err != nil {
		return err
	}
	if !decision.HasAccess || !decision.CanEdit {
		return apperrors.ErrForbidden
	}
	return nil
}
