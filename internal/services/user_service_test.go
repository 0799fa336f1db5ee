package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/orgtreehq/orgtree/internal/access"
	apperrors "github.com/orgtreehq/orgtree/pkg/errors"
)

func TestUserSignupAndAuthenticate(t *testing.T) {
	db := openServiceTestDB(t)
	auditSvc, err := NewAuditService(db)
	require.NoError(t, err)
	svc, err := NewUserService(db, auditSvc)
	require.NoError(t, err)

	ctx := context.Background()

	user, err := svc.Create(ctx, CreateUserInput{
		Email:    "Jamie@Example.com",
		Name:     "Jamie",
		Password: "correct-horse",
	})
	require.NoError(t, err)
	require.Equal(t, "jamie@example.com", user.Email)
	require.Equal(t, access.SystemRoleUser, user.SystemRole)
	require.NotEqual(t, "correct-horse", user.Password)

	_, err = svc.Create(ctx, CreateUserInput{Email: "jamie@example.com", Name: "Dup", Password: "correct-horse"})
	require.ErrorIs(t, err, ErrEmailTaken)

	authed, err := svc.Authenticate(ctx, "jamie@example.com", "correct-horse", "198.51.100.4")
	require.NoError(t, err)
	require.Equal(t, user.ID, authed.ID)

	reloaded, err := svc.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.LastLoginAt)
	require.Equal(t, "198.51.100.4", reloaded.LastLoginIP)

	_, err = svc.Authenticate(ctx, "jamie@example.com", "wrong", "")
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "nobody@example.com", "correct-horse", "")
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestUserSignupValidation(t *testing.T) {
	db := openServiceTestDB(t)
	svc, err := NewUserService(db, nil)
	require.NoError(t, err)

	ctx := context.Background()

	_, err = svc.Create(ctx, CreateUserInput{Email: "", Name: "X", Password: "longenough"})
	require.Error(t, err)

	_, err = svc.Create(ctx, CreateUserInput{Email: "x@example.com", Name: "", Password: "longenough"})
	require.Error(t, err)

	_, err = svc.Create(ctx, CreateUserInput{Email: "x@example.com", Name: "X", Password: "short"})
	require.Error(t, err)
}

func TestAuthenticateDisabledAccount(t *testing.T) {
	db := openServiceTestDB(t)
	svc, err := NewUserService(db, nil)
	require.NoError(t, err)

	ctx := context.Background()

	user, err := svc.Create(ctx, CreateUserInput{Email: "off@example.com", Name: "Off", Password: "correct-horse"})
	require.NoError(t, err)
	require.NoError(t, db.Model(user).Update("is_active", false).Error)

	_, err = svc.Authenticate(ctx, "off@example.com", "correct-horse", "")
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestSetSystemRoleRequiresSuperuser(t *testing.T) {
	db := openServiceTestDB(t)
	svc, err := NewUserService(db, nil)
	require.NoError(t, err)

	ctx := context.Background()

	user, err := svc.Create(ctx, CreateUserInput{Email: "u@example.com", Name: "U", Password: "correct-horse"})
	require.NoError(t, err)

	_, err = svc.SetSystemRole(ctx, user.Identity(), user.ID, access.SystemRoleAdmin)
	require.ErrorIs(t, err, apperrors.ErrForbidden)

	root := access.Identity{ID: "root", SystemRole: access.SystemRoleSuperuser}
	updated, err := svc.SetSystemRole(ctx, root, user.ID, access.SystemRoleAdmin)
	require.NoError(t, err)

	reloaded, err := svc.GetByID(ctx, updated.ID)
	require.NoError(t, err)
	require.Equal(t, access.SystemRoleAdmin, reloaded.SystemRole)

	_, err = svc.SetSystemRole(ctx, root, user.ID, access.SystemRole("emperor"))
	require.Error(t, err)
}
