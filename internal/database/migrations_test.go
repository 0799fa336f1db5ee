package database

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/orgtreehq/orgtree/internal/access"
	"github.com/orgtreehq/orgtree/internal/models"
)

func TestAutoMigrateCreatesCoreTables(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, AutoMigrate(db))

	migrator := db.Migrator()
	tables := []interface{}{
		&models.User{},
		&models.Organization{},
		&models.Membership{},
		&models.OwnershipTransfer{},
		&models.Department{},
		&models.Person{},
		&models.AuditLog{},
	}

	for _, table := range tables {
		require.True(t, migrator.HasTable(table), "expected table for %T to exist", table)
	}
}

func TestEnsureSuperuser(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, AutoMigrate(db))

	input := SuperuserInput{
		Email:    "Root@Example.com",
		Password: "bootstrap-secret",
	}
	require.NoError(t, EnsureSuperuser(db, input))

	var user models.User
	require.NoError(t, db.Where("email = ?", "root@example.com").First(&user).Error)
	require.Equal(t, access.SystemRoleSuperuser, user.SystemRole)
	require.Equal(t, "Administrator", user.Name)
	require.NotEqual(t, "bootstrap-secret", user.Password)

	// Re-running is idempotent.
	require.NoError(t, EnsureSuperuser(db, input))

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestEnsureSuperuserPromotesExistingAccount(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, AutoMigrate(db))

	require.NoError(t, db.Create(&models.User{
		Email:      "root@example.com",
		Name:       "Existing",
		Password:   "hash",
		SystemRole: access.SystemRoleUser,
		IsActive:   true,
	}).Error)

	require.NoError(t, EnsureSuperuser(db, SuperuserInput{
		Email:    "root@example.com",
		Password: "bootstrap-secret",
	}))

	var user models.User
	require.NoError(t, db.Where("email = ?", "root@example.com").First(&user).Error)
	require.Equal(t, access.SystemRoleSuperuser, user.SystemRole)
	require.Equal(t, "Existing", user.Name)
}

func TestEnsureSuperuserValidation(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, AutoMigrate(db))

	require.Error(t, EnsureSuperuser(db, SuperuserInput{Password: "bootstrap-secret"}))
	require.Error(t, EnsureSuperuser(db, SuperuserInput{Email: "root@example.com", Password: "short"}))
}
