package service

import (
	"context"
	"fmt"
	"time"

	"github.com/ipsentry/ipsentry/internal/model"
	"github.com/ipsentry/ipsentry/internal/pkg/logger"
	"github.com/ipsentry/ipsentry/internal/pkg/metrics"
)

const (
	DefaultVolumeThreshold = 100
	DefaultDetectorWindow  = time.Hour

	detectorLockPrefix = "detector:lock:"
)

func DefaultSensitivePaths() []string {
	return []string{"/admin", "/login"}
}

type LogScanner interface {
	CountByAddress(ctx context.Context, since time.Time, minHits int64) ([]model.AddressCount, error)
	CountByAddressOnPaths(ctx context.Context, since time.Time, paths []string) ([]model.AddressCount, error)
}

type FlagRepo interface {
	GetOrCreate(ctx context.Context, ip, reason string) (bool, error)
}

type DetectorOptions struct {
	Window          time.Duration
	VolumeThreshold int64
	SensitivePaths  []string
}

// DetectorService scans the trailing log window and flags addresses
// matching either heuristic. The reason string embeds the count and is
// the dedup key, so re-running over unchanged data inserts nothing.
type DetectorService struct {
	logs            LogScanner
	flags           FlagRepo
	lock            Cache
	window          time.Duration
	volumeThreshold int64
	sensitivePaths  []string
}

// NewDetectorService builds a detector. lock may be nil; when set it is
// used by RunScheduled to claim each window exactly once across
// replicas.
func NewDetectorService(logs LogScanner, flags FlagRepo, lock Cache, opts DetectorOptions) *DetectorService {
	if opts.Window <= 0 {
		opts.Window = DefaultDetectorWindow
	}
	if opts.VolumeThreshold <= 0 {
		opts.VolumeThreshold = DefaultVolumeThreshold
	}
	if len(opts.SensitivePaths) == 0 {
		opts.SensitivePaths = DefaultSensitivePaths()
	}
	return &DetectorService{
		logs:            logs,
		flags:           flags,
		lock:            lock,
		window:          opts.Window,
		volumeThreshold: opts.VolumeThreshold,
		sensitivePaths:  opts.SensitivePaths,
	}
}

// RunScheduled is the cron entry point. It claims a run-lock keyed by
// the window start so overlapping or duplicate triggers do a single
// scan, then delegates to Run.
func (d *DetectorService) RunScheduled(ctx context.Context) {
	if d.lock != nil {
		windowStart := time.Now().UTC().Truncate(d.window)
		key := detectorLockPrefix + windowStart.Format(time.RFC3339)
		ok, err := d.lock.SetNX(ctx, key, "1", d.window)
		if err != nil {
			logger.Warn("detector run-lock unavailable, running anyway", "error", err.Error())
		} else if !ok {
			logger.Info("detector window already claimed, skipping run", "window_start", windowStart.Format(time.RFC3339))
			return
		}
	}
	d.Run(ctx)
}

// Run executes both heuristics over the trailing window. A failure in
// one heuristic, or for one address, never aborts the rest of the run.
func (d *DetectorService) Run(ctx context.Context) {
	since := time.Now().UTC().Add(-d.window)
	d.detectVolume(ctx, since)
	d.detectSensitivePaths(ctx, since)
}

func (d *DetectorService) detectVolume(ctx context.Context, since time.Time) {
	rows, err := d.logs.CountByAddress(ctx, since, d.volumeThreshold)
	if err != nil {
		logger.Error("volume heuristic scan failed", "error", err.Error())
		return
	}
	for _, row := range rows {
		reason := fmt.Sprintf("%d requests in last hour", row.Hits)
		d.flag(ctx, row.IPAddress, reason, "volume")
	}
}

func (d *DetectorService) detectSensitivePaths(ctx context.Context, since time.Time) {
	rows, err := d.logs.CountByAddressOnPaths(ctx, since, d.sensitivePaths)
	if err != nil {
		logger.Error("sensitive path heuristic scan failed", "error", err.Error())
		return
	}
	for _, row := range rows {
		reason := fmt.Sprintf("accessed sensitive path(s) (%d hits)", row.Hits)
		d.flag(ctx, row.IPAddress, reason, "sensitive_path")
	}
}

func (d *DetectorService) flag(ctx context.Context, ip, reason, heuristic string) {
	created, err := d.flags.GetOrCreate(ctx, ip, reason)
	if err != nil {
		logger.Error("failed to record suspicious address", "ip", ip, "error", err.Error())
		return
	}
	if created {
		metrics.FlagsTotal.WithLabelValues(heuristic).Inc()
		logger.Info("flagged suspicious address", "ip", ip, "reason", reason)
	}
}
