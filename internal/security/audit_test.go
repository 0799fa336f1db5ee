package security

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/orgtreehq/orgtree/internal/access"
	"github.com/orgtreehq/orgtree/internal/app"
	iauth "github.com/orgtreehq/orgtree/internal/auth"
	testutil "github.com/orgtreehq/orgtree/internal/database/testutil"
	"github.com/orgtreehq/orgtree/internal/models"
)

func TestAuditServiceRun(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	admin := &models.User{
		Email:      "root@example.com",
		Name:       "Administrator",
		Password:   "hashed",
		SystemRole: access.SystemRoleSuperuser,
		IsActive:   true,
	}
	require.NoError(t, db.Create(admin).Error)

	secret := "0123456789abcdef0123456789abcdef0123456789abcdef"
	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret:         secret,
		Issuer:         "test-suite",
		AccessTokenTTL: time.Hour,
	})
	require.NoError(t, err)

	cfg := &app.Config{
		Security: app.SecurityConfig{
			CSRFSecret:   secret,
			CSRFTokenTTL: 24 * time.Hour,
		},
	}

	svc := NewAuditService(db, jwtSvc, cfg)
	fixed := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	svc.WithClock(func() time.Time { return fixed })

	result := svc.Run(context.Background())
	require.Equal(t, fixed.UTC(), result.CheckedAt)
	require.Len(t, result.Checks, 4)
	require.Equal(t, 4, result.Summary[string(StatusPass)])
}

func TestAuditServiceDetectsMissingSuperuser(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret:         "0123456789abcdef0123456789abcdef",
		Issuer:         "test-suite",
		AccessTokenTTL: time.Hour,
	})
	require.NoError(t, err)

	svc := NewAuditService(db, jwtSvc, &app.Config{})
	result := svc.Run(context.Background())

	byID := map[string]Check{}
	for _, check := range result.Checks {
		byID[check.ID] = check
	}

	require.Equal(t, StatusFail, byID["superuser_present"].Status)
	require.Equal(t, StatusFail, byID["csrf_secret_strength"].Status)
	require.Equal(t, StatusWarn, byID["jwt_secret_strength"].Status)
	require.Equal(t, StatusWarn, byID["csrf_token_ttl"].Status)
}

func TestAuditServiceFlagsLongTokenTTL(t *testing.T) {
	cfg := &app.Config{
		Security: app.SecurityConfig{
			CSRFSecret:   "0123456789abcdef0123456789abcdef",
			CSRFTokenTTL: 30 * 24 * time.Hour,
		},
	}

	svc := NewAuditService(nil, nil, cfg)
	result := svc.Run(context.Background())

	for _, check := range result.Checks {
		if check.ID == "csrf_token_ttl" {
			require.Equal(t, StatusWarn, check.Status)
			return
		}
	}
	t.Fatal("csrf_token_ttl check missing")
}
