package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/orgtreehq/orgtree/internal/access"
	"github.com/orgtreehq/orgtree/internal/models"
	apperrors "github.com/orgtreehq/orgtree/pkg/errors"
)

func newDepartmentFixture(t *testing.T) (*gorm.DB, *DepartmentService, *models.User, *models.Organization) {
	t.Helper()

	db := openServiceTestDB(t)
	evaluator := newTestEvaluator(t, db)
	auditSvc, err := NewAuditService(db)
	require.NoError(t, err)

	svc, err := NewDepartmentService(db, evaluator, auditSvc)
	require.NoError(t, err)

	owner := createTestUser(t, db, "owner@example.com")
	org := createTestOrg(t, db, owner, true)
	return db, svc, owner, org
}

func TestDepartmentTreeLifecycle(t *testing.T) {
	db, svc, owner, org := newDepartmentFixture(t)

	ctx := context.Background()

	root, err := svc.Create(ctx, owner.Identity(), org.ID, CreateDepartmentInput{Name: "Engineering"})
	require.NoError(t, err)

	child, err := svc.Create(ctx, owner.Identity(), org.ID, CreateDepartmentInput{Name: "Platform", ParentID: &root.ID})
	require.NoError(t, err)
	require.Equal(t, root.ID, *child.ParentID)

	grandchild, err := svc.Create(ctx, owner.Identity(), org.ID, CreateDepartmentInput{Name: "Infra", ParentID: &child.ID})
	require.NoError(t, err)

	tree, err := svc.ListTree(ctx, owner.Identity(), org.ID)
	require.NoError(t, err)
	require.Len(t, tree, 3)

	// Deleting the middle node reparents its subtree and people upward.
	require.NoError(t, svc.Delete(ctx, owner.Identity(), org.ID, child.ID))

	var reloaded models.Department
	require.NoError(t, db.First(&reloaded, "id = ?", grandchild.ID).Error)
	require.Equal(t, root.ID, *reloaded.ParentID)
}

func TestDepartmentCycleGuard(t *testing.T) {
	_, svc, owner, org := newDepartmentFixture(t)

	ctx := context.Background()

	a, err := svc.Create(ctx, owner.Identity(), org.ID, CreateDepartmentInput{Name: "A"})
	require.NoError(t, err)
	b, err := svc.Create(ctx, owner.Identity(), org.ID, CreateDepartmentInput{Name: "B", ParentID: &a.ID})
	require.NoError(t, err)

	// A cannot become a child of its own descendant.
	_, err = svc.Update(ctx, owner.Identity(), org.ID, a.ID, UpdateDepartmentInput{ParentID: &b.ID})
	require.ErrorIs(t, err, ErrDepartmentCycle)

	// Detaching to root is fine.
	empty := ""
	updated, err := svc.Update(ctx, owner.Identity(), org.ID, b.ID, UpdateDepartmentInput{ParentID: &empty})
	require.NoError(t, err)
	require.Nil(t, updated.ParentID)
}

func TestDepartmentEditGuard(t *testing.T) {
	db, svc, owner, org := newDepartmentFixture(t)

	viewer := createTestUser(t, db, "viewer@example.com")
	addTestMember(t, db, org, viewer, access.RoleViewer)

	ctx := context.Background()

	_, err := svc.Create(ctx, viewer.Identity(), org.ID, CreateDepartmentInput{Name: "Nope"})
	require.ErrorIs(t, err, apperrors.ErrForbidden)

	// Viewers can still read the tree.
	_, err = svc.ListTree(ctx, viewer.Identity(), org.ID)
	require.NoError(t, err)

	_ = owner
}

func TestDepartmentParentMustExistInOrg(t *testing.T) {
	db, svc, owner, org := newDepartmentFixture(t)

	other := createTestOrg(t, db, owner, true)
	foreign, err := svc.Create(context.Background(), owner.Identity(), other.ID, CreateDepartmentInput{Name: "Foreign"})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), owner.Identity(), org.ID, CreateDepartmentInput{Name: "X", ParentID: &foreign.ID})
	require.ErrorIs(t, err, ErrDepartmentNotFound)
}
