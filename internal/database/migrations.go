package database

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/orgtreehq/orgtree/internal/access"
	"github.com/orgtreehq/orgtree/internal/models"
	"github.com/orgtreehq/orgtree/pkg/crypto"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Organization{},
		&models.Membership{},
		&models.OwnershipTransfer{},
		&models.Department{},
		&models.Person{},
		&models.AuditLog{},
	)
}

// SuperuserInput carries bootstrap credentials for the initial superuser account.
type SuperuserInput struct {
	Email    string
	Name     string
	Password string
}

// EnsureSuperuser creates the bootstrap superuser account when it does not exist
// yet. An account that already holds the email is promoted instead of duplicated.
func EnsureSuperuser(db *gorm.DB, input SuperuserInput) error {
	if db == nil {
		return errors.New("nil database handle")
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return errors.New("superuser email must be provided")
	}
	if len(input.Password) < 8 {
		return errors.New("superuser password must be at least 8 characters")
	}

	var existing models.User
	err := db.Where("email = ?", email).First(&existing).Error
	switch {
	case err == nil:
		if existing.SystemRole == access.SystemRoleSuperuser {
			return nil
		}
		return db.Model(&existing).Update("system_role", access.SystemRoleSuperuser).Error
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		return fmt.Errorf("lookup superuser: %w", err)
	}

	hash, err := crypto.HashPassword(input.Password)
	if err != nil {
		return fmt.Errorf("hash superuser password: %w", err)
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		name = "Administrator"
	}

	user := models.User{
		Email:      email,
		Name:       name,
		Password:   hash,
		SystemRole: access.SystemRoleSuperuser,
		IsActive:   true,
	}
	return db.Create(&user).Error
}
