package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ipsentry/ipsentry/internal/model"
	"github.com/ipsentry/ipsentry/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newDetectorDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, repository.Migrate(db))
	return db
}

func seedLogs(t *testing.T, db *gorm.DB, ip, path string, n int, ts time.Time) {
	t.Helper()
	entries := make([]*model.RequestLog, 0, n)
	for i := 0; i < n; i++ {
		entries = append(entries, &model.RequestLog{IPAddress: ip, Path: path, Timestamp: ts})
	}
	require.NoError(t, db.CreateInBatches(entries, 200).Error)
}

func flagRows(t *testing.T, db *gorm.DB) []model.SuspiciousIP {
	t.Helper()
	var rows []model.SuspiciousIP
	require.NoError(t, db.Order("id ASC").Find(&rows).Error)
	return rows
}

func TestDetectorVolumeHeuristicIsStrictlyGreaterThan(t *testing.T) {
	db := newDetectorDB(t)
	inWindow := time.Now().UTC().Add(-30 * time.Minute)
	seedLogs(t, db, "203.0.113.5", "/index", 101, inWindow)
	seedLogs(t, db, "198.51.100.7", "/index", 100, inWindow)

	detector := NewDetectorService(
		repository.NewRequestLogRepo(db),
		repository.NewSuspiciousIPRepo(db),
		nil,
		DetectorOptions{},
	)
	detector.Run(context.Background())

	rows := flagRows(t, db)
	require.Len(t, rows, 1, "only the address above the threshold is flagged")
	assert.Equal(t, "203.0.113.5", rows[0].IPAddress)
	assert.Equal(t, "101 requests in last hour", rows[0].Reason)
}

func TestDetectorRerunIsIdempotent(t *testing.T) {
	db := newDetectorDB(t)
	inWindow := time.Now().UTC().Add(-30 * time.Minute)
	seedLogs(t, db, "203.0.113.5", "/index", 150, inWindow)
	seedLogs(t, db, "198.51.100.7", "/admin", 3, inWindow)

	detector := NewDetectorService(
		repository.NewRequestLogRepo(db),
		repository.NewSuspiciousIPRepo(db),
		nil,
		DetectorOptions{},
	)

	detector.Run(context.Background())
	first := flagRows(t, db)
	require.Len(t, first, 2)

	detector.Run(context.Background())
	assert.Equal(t, first, flagRows(t, db), "re-running over unchanged data must not add rows")
}

func TestDetectorSensitivePathHeuristic(t *testing.T) {
	db := newDetectorDB(t)
	inWindow := time.Now().UTC().Add(-30 * time.Minute)
	seedLogs(t, db, "198.51.100.7", "/admin", 2, inWindow)
	seedLogs(t, db, "198.51.100.7", "/login", 1, inWindow)
	seedLogs(t, db, "192.0.2.9", "/home", 5, inWindow)

	// Entries outside the window are invisible to the scan.
	seedLogs(t, db, "192.0.2.9", "/admin", 4, time.Now().UTC().Add(-2*time.Hour))

	detector := NewDetectorService(
		repository.NewRequestLogRepo(db),
		repository.NewSuspiciousIPRepo(db),
		nil,
		DetectorOptions{},
	)
	detector.Run(context.Background())

	rows := flagRows(t, db)
	require.Len(t, rows, 1)
	assert.Equal(t, "198.51.100.7", rows[0].IPAddress)
	assert.Equal(t, "accessed sensitive path(s) (3 hits)", rows[0].Reason)
}

func TestDetectorAddressCanTriggerBothHeuristics(t *testing.T) {
	db := newDetectorDB(t)
	inWindow := time.Now().UTC().Add(-30 * time.Minute)
	seedLogs(t, db, "203.0.113.5", "/login", 120, inWindow)

	detector := NewDetectorService(
		repository.NewRequestLogRepo(db),
		repository.NewSuspiciousIPRepo(db),
		nil,
		DetectorOptions{},
	)
	detector.Run(context.Background())

	rows := flagRows(t, db)
	require.Len(t, rows, 2)
	assert.Equal(t, "120 requests in last hour", rows[0].Reason)
	assert.Equal(t, "accessed sensitive path(s) (120 hits)", rows[1].Reason)
}

type failingScanner struct {
	volumeErr error
	sensitive []model.AddressCount
}

func (f *failingScanner) CountByAddress(_ context.Context, _ time.Time, _ int64) ([]model.AddressCount, error) {
	return nil, f.volumeErr
}

func (f *failingScanner) CountByAddressOnPaths(_ context.Context, _ time.Time, _ []string) ([]model.AddressCount, error) {
	return f.sensitive, nil
}

type countingFlagRepo struct {
	calls   int
	reasons []string
	err     error
}

func (f *countingFlagRepo) GetOrCreate(_ context.Context, ip, reason string) (bool, error) {
	f.calls++
	if f.err != nil {
		return false, f.err
	}
	f.reasons = append(f.reasons, fmt.Sprintf("%s|%s", ip, reason))
	return true, nil
}

func TestDetectorHeuristicFailureIsIsolated(t *testing.T) {
	scanner := &failingScanner{
		volumeErr: errors.New("scan failed"),
		sensitive: []model.AddressCount{{IPAddress: "198.51.100.7", Hits: 3}},
	}
	flags := &countingFlagRepo{}

	detector := NewDetectorService(scanner, flags, nil, DetectorOptions{})
	detector.Run(context.Background())

	require.Equal(t, 1, flags.calls, "sensitive-path heuristic must run despite the volume failure")
	assert.Equal(t, "198.51.100.7|accessed sensitive path(s) (3 hits)", flags.reasons[0])
}

func TestDetectorFlagFailureDoesNotAbortRun(t *testing.T) {
	scanner := &failingScanner{
		sensitive: []model.AddressCount{
			{IPAddress: "198.51.100.7", Hits: 3},
			{IPAddress: "192.0.2.9", Hits: 2},
		},
	}
	flags := &countingFlagRepo{err: errors.New("insert failed")}

	detector := NewDetectorService(scanner, flags, nil, DetectorOptions{})
	detector.Run(context.Background())

	assert.Equal(t, 2, flags.calls, "every address is attempted even when inserts fail")
}

func TestRunScheduledClaimsWindowOnce(t *testing.T) {
	scanner := &failingScanner{
		sensitive: []model.AddressCount{{IPAddress: "198.51.100.7", Hits: 3}},
	}
	flags := &countingFlagRepo{}
	lock := repository.NewMemoryCache()

	detector := NewDetectorService(scanner, flags, lock, DetectorOptions{})

	detector.RunScheduled(context.Background())
	require.Equal(t, 1, flags.calls)

	detector.RunScheduled(context.Background())
	assert.Equal(t, 1, flags.calls, "second trigger inside the same window is skipped")
}
