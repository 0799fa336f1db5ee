package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/orgtreehq/orgtree/internal/access"
	apperrors "github.com/orgtreehq/orgtree/pkg/errors"
)

func newMembershipFixture(t *testing.T) (*gorm.DB, *MembershipService) {
	t.Helper()

	db := openServiceTestDB(t)
	evaluator := newTestEvaluator(t, db)
	auditSvc, err := NewAuditService(db)
	require.NoError(t, err)

	svc, err := NewMembershipService(db, evaluator, auditSvc)
	require.NoError(t, err)
	return db, svc
}

func TestMembershipLifecycle(t *testing.T) {
	db, svc := newMembershipFixture(t)

	owner := createTestUser(t, db, "owner@example.com")
	member := createTestUser(t, db, "member@example.com")
	org := createTestOrg(t, db, owner, true)

	added, err := svc.Add(context.Background(), owner.Identity(), org.ID, member.ID, access.RoleViewer)
	require.NoError(t, err)
	require.Equal(t, access.RoleViewer, added.Role)

	_, err = svc.Add(context.Background(), owner.Identity(), org.ID, member.ID, access.RoleEditor)
	require.ErrorIs(t, err, ErrMemberAlreadyExists)

	updated, err := svc.UpdateRole(context.Background(), owner.Identity(), org.ID, member.ID, access.RoleEditor)
	require.NoError(t, err)
	require.Equal(t, access.RoleEditor, updated.Role)

	members, err := svc.List(context.Background(), owner.Identity(), org.ID)
	require.NoError(t, err)
	require.Len(t, members, 2)

	require.NoError(t, svc.Remove(context.Background(), owner.Identity(), org.ID, member.ID))
	require.ErrorIs(t, svc.Remove(context.Background(), owner.Identity(), org.ID, member.ID), ErrMemberNotFound)
}

func TestMembershipManageGuard(t *testing.T) {
	db, svc := newMembershipFixture(t)

	owner := createTestUser(t, db, "owner@example.com")
	editor := createTestUser(t, db, "editor@example.com")
	target := createTestUser(t, db, "target@example.com")
	org := createTestOrg(t, db, owner, true)
	addTestMember(t, db, org, editor, access.RoleEditor)

	_, err := svc.Add(context.Background(), editor.Identity(), org.ID, target.ID, access.RoleViewer)
	require.ErrorIs(t, err, apperrors.ErrForbidden)

	// Editors may list members, they just cannot manage them.
	_, err = svc.List(context.Background(), editor.Identity(), org.ID)
	require.NoError(t, err)
}

func TestOwnerRoleIsUnreachableDirectly(t *testing.T) {
	db, svc := newMembershipFixture(t)

	owner := createTestUser(t, db, "owner@example.com")
	member := createTestUser(t, db, "member@example.com")
	org := createTestOrg(t, db, owner, true)
	addTestMember(t, db, org, member, access.RoleAdmin)

	_, err := svc.Add(context.Background(), owner.Identity(), org.ID, createTestUser(t, db, "x@example.com").ID, access.RoleOwner)
	require.Error(t, err)

	_, err = svc.UpdateRole(context.Background(), owner.Identity(), org.ID, member.ID, access.RoleOwner)
	require.Error(t, err)

	// The owner row itself cannot be demoted or removed outside a transfer.
	_, err = svc.UpdateRole(context.Background(), owner.Identity(), org.ID, owner.ID, access.RoleAdmin)
	require.ErrorIs(t, err, ErrLastOwner)
	require.ErrorIs(t, svc.Remove(context.Background(), owner.Identity(), org.ID, owner.ID), ErrLastOwner)
}

func TestMembershipAddUnknownUser(t *testing.T) {
	db, svc := newMembershipFixture(t)

	owner := createTestUser(t, db, "owner@example.com")
	org := createTestOrg(t, db, owner, true)

	_, err := svc.Add(context.Background(), owner.Identity(), org.ID, "missing", access.RoleViewer)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}
