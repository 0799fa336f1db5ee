package maintenance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	testutil "github.com/orgtreehq/orgtree/internal/database/testutil"
	"github.com/orgtreehq/orgtree/internal/models"
	"github.com/orgtreehq/orgtree/internal/services"
)

func TestExpireStaleTransfers(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	now := time.Date(2024, 2, 10, 15, 0, 0, 0, time.UTC)

	stale := models.OwnershipTransfer{
		OrganizationID: "org-1",
		FromUserID:     "u1",
		ToUserID:       "u2",
		Status:         models.TransferPending,
		RequestedAt:    now.Add(-40 * 24 * time.Hour),
	}
	fresh := models.OwnershipTransfer{
		OrganizationID: "org-2",
		FromUserID:     "u1",
		ToUserID:       "u2",
		Status:         models.TransferPending,
		RequestedAt:    now.Add(-time.Hour),
	}
	resolved := models.OwnershipTransfer{
		OrganizationID: "org-3",
		FromUserID:     "u1",
		ToUserID:       "u2",
		Status:         models.TransferAccepted,
		RequestedAt:    now.Add(-40 * 24 * time.Hour),
	}
	require.NoError(t, db.Create(&stale).Error)
	require.NoError(t, db.Create(&fresh).Error)
	require.NoError(t, db.Create(&resolved).Error)

	expired, err := ExpireStaleTransfers(context.Background(), db, now, 30*24*time.Hour)
	require.NoError(t, err)
	require.EqualValues(t, 1, expired)

	var reloaded models.OwnershipTransfer
	require.NoError(t, db.First(&reloaded, "id = ?", stale.ID).Error)
	require.Equal(t, models.TransferCancelled, reloaded.Status)
	require.NotNil(t, reloaded.ResolvedAt)
	require.NotEmpty(t, reloaded.Reason)

	require.NoError(t, db.First(&reloaded, "id = ?", fresh.ID).Error)
	require.Equal(t, models.TransferPending, reloaded.Status)

	require.NoError(t, db.First(&reloaded, "id = ?", resolved.ID).Error)
	require.Equal(t, models.TransferAccepted, reloaded.Status)
}

func TestExpireStaleTransfersValidation(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	_, err := ExpireStaleTransfers(context.Background(), nil, time.Now(), time.Hour)
	require.Error(t, err)

	_, err = ExpireStaleTransfers(context.Background(), db, time.Now(), 0)
	require.Error(t, err)
}

func TestCleanerRunOnce(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	now := time.Date(2024, 2, 10, 15, 0, 0, 0, time.UTC)

	audit, err := services.NewAuditService(db)
	require.NoError(t, err)

	old := models.AuditLog{Action: "old", Result: "success"}
	require.NoError(t, db.Create(&old).Error)
	require.NoError(t, db.Model(&old).Update("created_at", now.AddDate(0, 0, -120)).Error)
	fresh := models.AuditLog{Action: "fresh", Result: "success"}
	require.NoError(t, db.Create(&fresh).Error)

	stale := models.OwnershipTransfer{
		OrganizationID: "org-1",
		FromUserID:     "u1",
		ToUserID:       "u2",
		Status:         models.TransferPending,
		RequestedAt:    now.Add(-60 * 24 * time.Hour),
	}
	require.NoError(t, db.Create(&stale).Error)

	cleaner := NewCleaner(db, audit, WithClock(func() time.Time { return now }))
	require.NoError(t, cleaner.RunOnce(context.Background()))

	var auditCount int64
	require.NoError(t, db.Model(&models.AuditLog{}).Count(&auditCount).Error)
	require.EqualValues(t, 1, auditCount)

	var reloaded models.OwnershipTransfer
	require.NoError(t, db.First(&reloaded, "id = ?", stale.ID).Error)
	require.Equal(t, models.TransferCancelled, reloaded.Status)
}

func TestCleanerStartAndStop(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	audit, err := services.NewAuditService(db)
	require.NoError(t, err)

	cleaner := NewCleaner(db, audit,
		WithAuditSchedule("@every 1h"),
		WithTransferSchedule("@every 1h"),
		WithAuditRetention(30),
		WithTransferMaxAge(7*24*time.Hour),
	)
	require.NoError(t, cleaner.Start())

	done := cleaner.Stop()
	select {
	case <-done.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("cleaner did not stop in time")
	}
}
