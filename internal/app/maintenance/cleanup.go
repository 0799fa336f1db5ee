package maintenance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/orgtreehq/orgtree/internal/models"
	"github.com/orgtreehq/orgtree/internal/services"
	"github.com/orgtreehq/orgtree/pkg/logger"
)

const (
	defaultAuditRetentionDays = 90
	defaultTransferMaxAge     = 30 * 24 * time.Hour
	defaultAuditSpec          = "@daily"
	defaultTransferSpec       = "@daily"

	expiredTransferReason = "expired: no response within the transfer window"
)

// Cleaner coordinates background maintenance tasks: pruning stale audit logs and
// expiring ownership transfers that were never answered.
type Cleaner struct {
	db    *gorm.DB
	audit *services.AuditService
	cron  *cron.Cron
	now   func() time.Time
	log   *zap.Logger

	enabled        bool
	retention      int
	transferMaxAge time.Duration

	auditSchedule    string
	transferSchedule string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithClock overrides the time source, primarily for testing.
func WithClock(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithAuditRetention overrides the audit retention window in days.
func WithAuditRetention(days int) Option {
	return func(cleaner *Cleaner) {
		if days > 0 {
			cleaner.retention = days
		}
	}
}

// WithAuditSchedule overrides the cron specification for audit cleanup.
func WithAuditSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.auditSchedule = spec
		}
	}
}

// WithTransferMaxAge overrides how long a pending transfer may wait before expiring.
func WithTransferMaxAge(age time.Duration) Option {
	return func(cleaner *Cleaner) {
		if age > 0 {
			cleaner.transferMaxAge = age
		}
	}
}

// WithTransferSchedule overrides the cron specification for transfer expiry.
func WithTransferSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.transferSchedule = spec
		}
	}
}

// NewCleaner constructs a Cleaner with sensible defaults. Any nil dependency results in
// the corresponding cleanup job being skipped.
func NewCleaner(db *gorm.DB, audit *services.AuditService, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		db:               db,
		audit:            audit,
		now:              time.Now,
		retention:        defaultAuditRetentionDays,
		transferMaxAge:   defaultTransferMaxAge,
		auditSchedule:    defaultAuditSpec,
		transferSchedule: defaultTransferSpec,
		log:              logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	cleaner.enabled = cleaner.audit != nil || cleaner.db != nil

	return cleaner
}

// Start registers cleanup jobs with the cron scheduler and launches it if at least one cleanup is enabled.
func (c *Cleaner) Start() error {
	if !c.enabled {
		return nil
	}

	if c.audit != nil && c.retention > 0 {
		if _, err := c.cron.AddFunc(c.auditSchedule, func() {
			ctx := context.Background()
			if _, err := c.audit.CleanupOlderThan(ctx, c.retention); err != nil {
				c.log.Warn("audit cleanup failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	if c.db != nil && c.transferMaxAge > 0 {
		if _, err := c.cron.AddFunc(c.transferSchedule, func() {
			ctx := context.Background()
			if _, err := ExpireStaleTransfers(ctx, c.db, c.now(), c.transferMaxAge); err != nil {
				c.log.Warn("transfer expiry failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes all configured cleanup routines sequentially. Primarily used in tests
// and during graceful shutdown.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error

	if c.audit != nil && c.retention > 0 {
		if _, err := c.audit.CleanupOlderThan(ctx, c.retention); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	if c.db != nil && c.transferMaxAge > 0 {
		if _, err := ExpireStaleTransfers(ctx, c.db, c.now(), c.transferMaxAge); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	return errs
}

// ExpireStaleTransfers cancels pending ownership transfers whose request is older
// than maxAge. The guarded update only touches rows still pending, so a transfer
// resolved concurrently is left alone.
func ExpireStaleTransfers(ctx context.Context, db *gorm.DB, now time.Time, maxAge time.Duration) (int64, error) {
	if db == nil {
		return 0, errors.New("expire transfers: db is required")
	}
	if maxAge <= 0 {
		return 0, errors.New("expire transfers: max age must be positive")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	cutoff := now.Add(-maxAge)

	result := db.WithContext(ctx).
		Model(&models.OwnershipTransfer{}).
		Where("status = ? AND requested_at < ?", models.TransferPending, cutoff).
		Updates(map[string]any{
			"status":      models.TransferCancelled,
			"reason":      expiredTransferReason,
			"resolved_at": now,
		})
	if result.Error != nil {
		return 0, fmt.Errorf("expire transfers: %w", result.Error)
	}

	return result.RowsAffected, nil
}
