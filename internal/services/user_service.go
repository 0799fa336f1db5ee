package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/orgtreehq/orgtree/internal/access"
	"github.com/orgtreehq/orgtree/internal/models"
	"github.com/orgtreehq/orgtree/pkg/crypto"
	apperrors "github.com/orgtreehq/orgtree/pkg/errors"
)

var (
	// ErrUserNotFound indicates the requested account does not exist.
	ErrUserNotFound = apperrors.New("USER_NOT_FOUND", "User not found", http.StatusNotFound)
	// ErrEmailTaken signals signup with an already registered email.
	ErrEmailTaken = apperrors.New("EMAIL_TAKEN", "Email address is already registered", http.StatusConflict)
)

// CreateUserInput captures signup attributes.
type CreateUserInput struct {
	Email    string
	Name     string
	Password string
}

// UserService manages account lifecycle and credential verification.
type UserService struct {
	db           *gorm.DB
	auditService *AuditService
}

// NewUserService constructs a UserService instance.
func NewUserService(db *gorm.DB, auditService *AuditService) (*UserService, error) {
	if db == nil {
		return nil, errors.New("user service: db is required")
	}
	return &UserService{db: db, auditService: auditService}, nil
}

// Create registers a local account with a bcrypt-hashed password.
func (s *UserService) Create(ctx context.Context, input CreateUserInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	email := strings.ToLower(trimmed(input.Email))
	if email == "" {
		return nil, apperrors.NewBadRequest("email is required")
	}
	if isBlank(input.Name) {
		return nil, apperrors.NewBadRequest("name is required")
	}
	if len(input.Password) < 8 {
		return nil, apperrors.NewBadRequest("password must be at least 8 characters")
	}

	hashed, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("user service: hash password: %w", err)
	}

	user := &models.User{
		Email:      email,
		Name:       trimmed(input.Name),
		Password:   hashed,
		SystemRole: access.SystemRoleUser,
		IsActive:   true,
	}

	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("user service: create user: %w", err)
	}

	recordAudit(s.auditService, ctx, auditEntryFor(ctx, user.ID, AuditEntry{
		Action:   "user.create",
		Result:   "success",
		Username: user.Email,
	}))

	return user, nil
}

// Authenticate verifies credentials and records the login on success.
func (s *UserService) Authenticate(ctx context.Context, email, password, ip string) (*models.User, error) {
	ctx = ensureContext(ctx)

	email = strings.ToLower(trimmed(email))

	var user models.User
	err := s.db.WithContext(ctx).First(&user, "email = ?", email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("user service: load user: %w", err)
	}

	if !user.IsActive || !crypto.VerifyPassword(user.Password, password) {
		return nil, apperrors.ErrInvalidCredentials
	}

	now := time.Now()
	updates := map[string]any{"last_login_at": now, "last_login_ip": trimmed(ip)}
	if err := s.db.WithContext(ctx).Model(&user).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("user service: record login: %w", err)
	}

	return &user, nil
}

// GetByID loads an account by identifier.
func (s *UserService) GetByID(ctx context.Context, id string) (*models.User, error) {
	ctx = ensureContext(ctx)

	var user models.User
	err := s.db.WithContext(ctx).First(&user, "id = ?", trimmed(id)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user service: load user: %w", err)
	}
	return &user, nil
}

// SetSystemRole changes an account's platform-wide role. Superuser only.
func (s *UserService) SetSystemRole(ctx context.Context, actor access.Identity, userID string, role access.SystemRole) (*models.User, error) {
	ctx = ensureContext(ctx)

	if actor.SystemRole != access.SystemRoleSuperuser {
		return nil, apperrors.ErrForbidden
	}

	if _, err := access.ParseSystemRole(string(role)); err != nil {
		return nil, apperrors.NewBadRequest("unknown system role")
	}

	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(user).Update("system_role", role).Error; err != nil {
		return nil, fmt.Errorf("user service: update system role: %w", err)
	}

	recordAudit(s.auditService, ctx, auditEntryFor(ctx, actor.ID, AuditEntry{
		Action:   "user.set_system_role",
		Result:   "success",
		Metadata: map[string]any{"user_id": user.ID, "system_role": string(role)},
	}))

	return user, nil
}
