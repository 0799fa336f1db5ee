package security

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/orgtreehq/orgtree/internal/access"
	"github.com/orgtreehq/orgtree/internal/app"
	iauth "github.com/orgtreehq/orgtree/internal/auth"
	"github.com/orgtreehq/orgtree/internal/models"
)

// CheckStatus captures the outcome of a security audit check.
type CheckStatus string

const (
	StatusPass CheckStatus = "pass"
	StatusWarn CheckStatus = "warn"
	StatusFail CheckStatus = "fail"
)

// Check contains the result of a single audit verification.
type Check struct {
	ID          string      `json:"id"`
	Status      CheckStatus `json:"status"`
	Message     string      `json:"message"`
	Remediation string      `json:"remediation,omitempty"`
	Details     any         `json:"details,omitempty"`
}

// Result aggregates all checks with a simple status summary.
type Result struct {
	CheckedAt time.Time      `json:"checked_at"`
	Checks    []Check        `json:"checks"`
	Summary   map[string]int `json:"summary"`
}

// AuditService evaluates core security controls and configuration.
type AuditService struct {
	db  *gorm.DB
	jwt *iauth.JWTService
	cfg *app.Config
	now func() time.Time
}

// NewAuditService constructs the audit service. All dependencies are optional; missing
// inputs degrade specific checks to warnings.
func NewAuditService(db *gorm.DB, jwt *iauth.JWTService, cfg *app.Config) *AuditService {
	return &AuditService{
		db:  db,
		jwt: jwt,
		cfg: cfg,
		now: time.Now,
	}
}

// WithClock overrides the clock used in results (primarily for testing).
func (s *AuditService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// Run executes all audit checks and returns their outcome.
func (s *AuditService) Run(ctx context.Context) Result {
	if ctx == nil {
		ctx = context.Background()
	}

	checks := []Check{
		s.checkSuperuser(ctx),
		s.checkJWTSecret(),
		s.checkCSRFSecret(),
		s.checkCSRFTokenTTL(),
	}

	summary := map[string]int{
		string(StatusPass): 0,
		string(StatusWarn): 0,
		string(StatusFail): 0,
	}

	for _, check := range checks {
		summary[string(check.Status)]++
	}

	return Result{
		CheckedAt: s.now().UTC(),
		Checks:    checks,
		Summary:   summary,
	}
}

func (s *AuditService) checkSuperuser(ctx context.Context) Check {
	if s.db == nil {
		return Check{
			ID:          "superuser_present",
			Status:      StatusWarn,
			Message:     "Database unavailable, unable to confirm superuser presence",
			Remediation: "Ensure database connectivity before running the audit.",
		}
	}

	var count int64
	if err := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("system_role = ? AND is_active = ?", access.SystemRoleSuperuser, true).
		Count(&count).Error; err != nil {
		return Check{
			ID:          "superuser_present",
			Status:      StatusWarn,
			Message:     fmt.Sprintf("Could not verify superusers: %v", err),
			Remediation: "Retry after resolving database errors.",
		}
	}

	if count == 0 {
		return Check{
			ID:          "superuser_present",
			Status:      StatusFail,
			Message:     "No active superuser found.",
			Remediation: "Configure auth.bootstrap to guarantee emergency administrative access.",
		}
	}

	return Check{
		ID:      "superuser_present",
		Status:  StatusPass,
		Message: "Active superuser present.",
		Details: map[string]any{"count": count},
	}
}

func (s *AuditService) checkJWTSecret() Check {
	if s.jwt == nil {
		return Check{
			ID:          "jwt_secret_strength",
			Status:      StatusWarn,
			Message:     "JWT service not initialised, unable to assess signing secret strength.",
			Remediation: "Initialise the JWT service with a strong secret.",
		}
	}

	length := s.jwt.SecretLength()

	switch {
	case length == 0:
		return Check{
			ID:          "jwt_secret_strength",
			Status:      StatusFail,
			Message:     "Missing JWT signing secret.",
			Remediation: "Provide a cryptographically secure signing secret (>= 32 bytes).",
		}
	case length < 32:
		return Check{
			ID:          "jwt_secret_strength",
			Status:      StatusFail,
			Message:     fmt.Sprintf("JWT signing secret is too short (%d bytes).", length),
			Remediation: "Use a randomly generated secret of at least 32 bytes.",
		}
	case length < 48:
		return Check{
			ID:          "jwt_secret_strength",
			Status:      StatusWarn,
			Message:     fmt.Sprintf("JWT signing secret is %d bytes. Consider increasing to 48+ bytes.", length),
			Remediation: "Increase the length of ORGTREE_AUTH_JWT_SECRET to at least 48 bytes.",
			Details:     map[string]any{"length": length},
		}
	default:
		return Check{
			ID:      "jwt_secret_strength",
			Status:  StatusPass,
			Message: fmt.Sprintf("JWT signing secret length is %d bytes.", length),
			Details: map[string]any{"length": length},
		}
	}
}

func (s *AuditService) checkCSRFSecret() Check {
	if s.cfg == nil {
		return Check{
			ID:          "csrf_secret_strength",
			Status:      StatusWarn,
			Message:     "Configuration not loaded, unable to verify CSRF signing secret.",
			Remediation: "Load configuration before running the security audit.",
		}
	}

	secret := strings.TrimSpace(s.cfg.Security.CSRFSecret)
	if secret == "" {
		return Check{
			ID:          "csrf_secret_strength",
			Status:      StatusFail,
			Message:     "CSRF signing secret is not configured.",
			Remediation: "Set ORGTREE_SECURITY_CSRF_SECRET to a 32+ byte random value.",
		}
	}

	length := len(secret)
	if length < 32 {
		return Check{
			ID:          "csrf_secret_strength",
			Status:      StatusFail,
			Message:     fmt.Sprintf("CSRF signing secret is too short (%d characters).", length),
			Remediation: "Use a CSRF secret of at least 32 characters for HMAC-SHA256.",
		}
	}

	return Check{
		ID:      "csrf_secret_strength",
		Status:  StatusPass,
		Message: "CSRF signing secret configured.",
		Details: map[string]any{"length": length},
	}
}

func (s *AuditService) checkCSRFTokenTTL() Check {
	if s.cfg == nil {
		return Check{
			ID:          "csrf_token_ttl",
			Status:      StatusWarn,
			Message:     "Configuration not loaded, unable to evaluate CSRF token lifetime.",
			Remediation: "Load configuration before running the security audit.",
		}
	}

	ttl := s.cfg.Security.CSRFTokenTTL
	if ttl <= 0 {
		return Check{
			ID:          "csrf_token_ttl",
			Status:      StatusWarn,
			Message:     "CSRF token TTL is not configured; using the default window.",
			Remediation: "Set ORGTREE_SECURITY_CSRF_TOKEN_TTL to control token lifetime.",
		}
	}

	const maxRecommended = 7 * 24 * time.Hour

	if ttl > maxRecommended {
		return Check{
			ID:          "csrf_token_ttl",
			Status:      StatusWarn,
			Message:     fmt.Sprintf("CSRF token TTL (%s) exceeds recommended maximum (%s).", ttl, maxRecommended),
			Remediation: "Reduce the CSRF token TTL to 7 days or lower to limit replay exposure.",
			Details:     map[string]any{"ttl": ttl.String()},
		}
	}

	return Check{
		ID:      "csrf_token_ttl",
		Status:  StatusPass,
		Message: fmt.Sprintf("CSRF token TTL is %s.", ttl),
		Details: map[string]any{"ttl": ttl.String()},
	}
}
