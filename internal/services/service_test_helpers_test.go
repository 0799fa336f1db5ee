package services

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/orgtreehq/orgtree/internal/access"
	"github.com/orgtreehq/orgtree/internal/models"
)

func openServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Organization{},
		&models.Membership{},
		&models.OwnershipTransfer{},
		&models.AuditLog{},
		&models.Department{},
		&models.Person{},
	))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return db
}

func createTestUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	user := &models.User{
		Email:    email,
		Name:     email,
		Password: "not-a-real-hash",
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func createTestOrg(t *testing.T, db *gorm.DB, creator *models.User, withOwnerRow bool) *models.Organization {
	t.Helper()

	org := &models.Organization{
		Name:        "Test Organization",
		CreatedByID: creator.ID,
	}
	require.NoError(t, db.Create(org).Error)

	if withOwnerRow {
		membership := &models.Membership{
			OrganizationID: org.ID,
			UserID:         creator.ID,
			Role:           access.RoleOwner,
		}
		require.NoError(t, db.Create(membership).Error)
	}

	return org
}

func addTestMember(t *testing.T, db *gorm.DB, org *models.Organization, user *models.User, role access.Role) *models.Membership {
	t.Helper()

	membership := &models.Membership{
		OrganizationID: org.ID,
		UserID:         user.ID,
		Role:           role,
	}
	require.NoError(t, db.Create(membership).Error)
	return membership
}

func membershipRoleOf(t *testing.T, db *gorm.DB, orgID, userID string) (access.Role, bool) {
	t.Helper()

	var membership models.Membership
	err := db.First(&membership, "organization_id = ? AND user_id = ?", orgID, userID).Error
	if err != nil {
		require.ErrorIs(t, err, gorm.ErrRecordNotFound)
		return "", false
	}
	return membership.Role, true
}

func newTestEvaluator(t *testing.T, db *gorm.DB) *access.Evaluator {
	t.Helper()

	evaluator, err := NewEvaluator(db)
	require.NoError(t, err)
	return evaluator
}
