package repository

import (
	"context"
	"testing"
	"time"

	"github.com/ipsentry/ipsentry/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedRequestLogs(t *testing.T, db *gorm.DB, ip, path string, n int, ts time.Time) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, db.Create(&model.RequestLog{
			IPAddress: ip,
			Path:      path,
			Timestamp: ts,
		}).Error)
	}
}

func TestCountByAddressIsStrictlyAboveThreshold(t *testing.T) {
	db := newTestDB(t)
	repo := NewRequestLogRepo(db)
	inWindow := time.Now().UTC().Add(-10 * time.Minute)
	outOfWindow := time.Now().UTC().Add(-2 * time.Hour)

	seedRequestLogs(t, db, "203.0.113.5", "/", 5, inWindow)
	seedRequestLogs(t, db, "198.51.100.7", "/", 3, inWindow)
	seedRequestLogs(t, db, "192.0.2.9", "/", 10, outOfWindow)

	rows, err := repo.CountByAddress(context.Background(), time.Now().UTC().Add(-time.Hour), 3)
	require.NoError(t, err)
	require.Len(t, rows, 1, "count == threshold and out-of-window entries are excluded")
	assert.Equal(t, "203.0.113.5", rows[0].IPAddress)
	assert.Equal(t, int64(5), rows[0].Hits)
}

func TestCountByAddressOnPaths(t *testing.T) {
	db := newTestDB(t)
	repo := NewRequestLogRepo(db)
	inWindow := time.Now().UTC().Add(-10 * time.Minute)

	seedRequestLogs(t, db, "198.51.100.7", "/admin", 2, inWindow)
	seedRequestLogs(t, db, "198.51.100.7", "/login", 1, inWindow)
	seedRequestLogs(t, db, "192.0.2.9", "/home", 4, inWindow)

	rows, err := repo.CountByAddressOnPaths(
		context.Background(),
		time.Now().UTC().Add(-time.Hour),
		[]string{"/admin", "/login"},
	)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "198.51.100.7", rows[0].IPAddress)
	assert.Equal(t, int64(3), rows[0].Hits)
}

func TestListRecentOrdersByTimestampDesc(t *testing.T) {
	db := newTestDB(t)
	repo := NewRequestLogRepo(db)
	now := time.Now().UTC()

	seedRequestLogs(t, db, "203.0.113.5", "/old", 1, now.Add(-2*time.Minute))
	seedRequestLogs(t, db, "203.0.113.5", "/new", 1, now)
	seedRequestLogs(t, db, "203.0.113.5", "/mid", 1, now.Add(-time.Minute))

	entries, err := repo.ListRecent(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "/new", entries[0].Path)
	assert.Equal(t, "/mid", entries[1].Path)
}
