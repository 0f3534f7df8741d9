package maintenance

import (
	"context"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	iauth "github.com/parohia/parohia/internal/auth"
	testutil "github.com/parohia/parohia/internal/database/testutil"
	"github.com/parohia/parohia/internal/models"
	"github.com/parohia/parohia/internal/services"
)

func newCleanerFixtures(t *testing.T, clock func() time.Time) (*gorm.DB, *iauth.SessionService, *services.AuditService) {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{Secret: "cleanup-test", Clock: clock})
	require.NoError(t, err)
	sessions, err := iauth.NewSessionService(db, jwtSvc, iauth.SessionConfig{
		SessionTTL: time.Hour,
		Clock:      clock,
	})
	require.NoError(t, err)

	audit, err := services.NewAuditService(db)
	require.NoError(t, err)

	return db, sessions, audit
}

func TestCleanerRunOnce(t *testing.T) {
	current := time.Now()
	clock := func() time.Time { return current }

	db, sessions, audit := newCleanerFixtures(t, clock)

	user := &models.User{Username: "cleanup", Email: "cleanup@example.com", Password: "x", IsActive: true}
	require.NoError(t, db.Create(user).Error)

	_, _, err := sessions.Create(context.Background(), user.ID, iauth.SessionMetadata{})
	require.NoError(t, err)

	// An audit row far outside the retention window.
	stale := models.AuditLog{Action: "authz.decide", Result: "allow"}
	require.NoError(t, db.Create(&stale).Error)
	require.NoError(t, db.Model(&models.AuditLog{}).
		Where("id = ?", stale.ID).
		Update("created_at", current.AddDate(0, 0, -30)).Error)

	current = current.Add(2 * time.Hour)

	cleaner := NewCleaner(sessions, audit, WithAuditRetentionDays(7))
	require.NoError(t, cleaner.RunOnce(context.Background()))

	var sessionCount int64
	require.NoError(t, db.Model(&models.Session{}).Count(&sessionCount).Error)
	require.Zero(t, sessionCount)

	var auditCount int64
	require.NoError(t, db.Model(&models.AuditLog{}).Count(&auditCount).Error)
	require.Zero(t, auditCount)
}

func TestCleanerStartRegistersJobs(t *testing.T) {
	_, sessions, audit := newCleanerFixtures(t, time.Now)

	scheduler := cron.New()
	cleaner := NewCleaner(sessions, audit, WithCron(scheduler),
		WithSessionSchedule("@every 1h"),
		WithAuditSchedule("@every 24h"))

	require.NoError(t, cleaner.Start())
	require.Len(t, scheduler.Entries(), 2)

	<-cleaner.Stop().Done()
}

func TestCleanerWithoutDependenciesIsInert(t *testing.T) {
	cleaner := NewCleaner(nil, nil)
	require.NoError(t, cleaner.Start())
	require.NoError(t, cleaner.RunOnce(context.Background()))
}
