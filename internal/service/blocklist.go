package service

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/ipsentry/ipsentry/internal/model"
	"github.com/ipsentry/ipsentry/internal/pkg/apperrors"
	"github.com/ipsentry/ipsentry/internal/pkg/logger"
	"github.com/ipsentry/ipsentry/internal/pkg/metrics"
)

const (
	blockedKeyPrefix    = "blocked:"
	DefaultBlocklistTTL = 5 * time.Minute
)

type BlockRepo interface {
	ExistsInEffect(ctx context.Context, ip string) (bool, error)
	Upsert(ctx context.Context, entry *model.BlockedIP) (bool, error)
}

// BlocklistService answers "is this address blocked" through a
// short-TTL cache memo over the store, and owns the administrative
// upsert.
type BlocklistService struct {
	cache Cache
	repo  BlockRepo
	ttl   time.Duration
}

func NewBlocklistService(cache Cache, repo BlockRepo, ttl time.Duration) *BlocklistService {
	if ttl <= 0 {
		ttl = DefaultBlocklistTTL
	}
	return &BlocklistService{cache: cache, repo: repo, ttl: ttl}
}

// IsBlocked returns the cached decision when present; otherwise it
// queries the store and memoizes the boolean for the cache TTL. A store
// failure fails open: the address is treated as not blocked.
func (s *BlocklistService) IsBlocked(ctx context.Context, ip string) bool {
	key := blockedKeyPrefix + ip
	if val, ok, err := s.cache.Get(ctx, key); err == nil && ok {
		metrics.BlocklistLookups.WithLabelValues("cache").Inc()
		return val == "1"
	}

	metrics.BlocklistLookups.WithLabelValues("store").Inc()
	blocked := false
	exists, err := s.repo.ExistsInEffect(ctx, ip)
	if err != nil {
		logger.Warn("blocklist store lookup failed, failing open", "ip", ip, "error", err.Error())
	} else {
		blocked = exists
	}

	val := "0"
	if blocked {
		val = "1"
	}
	if err := s.cache.Set(ctx, key, val, s.ttl); err != nil {
		logger.Debug("failed to cache blocklist decision", "ip", ip, "error", err.Error())
	}
	return blocked
}

// Block upserts the single BlockedIP row for ip. days > 0 sets an
// expiry that many days out; otherwise the block is permanent. The row
// is always reactivated. Reports whether it was newly created.
func (s *BlocklistService) Block(ctx context.Context, ip, reason string, days int) (*model.BlockedIP, bool, error) {
	if net.ParseIP(ip) == nil {
		return nil, false, apperrors.NewInvalidRequest(fmt.Sprintf("invalid IP address: %q", ip))
	}

	entry := &model.BlockedIP{
		IPAddress: ip,
		IsActive:  true,
	}
	if reason != "" {
		entry.Reason = &reason
	}
	if days > 0 {
		expires := time.Now().UTC().AddDate(0, 0, days)
		entry.ExpiresAt = &expires
	}

	created, err := s.repo.Upsert(ctx, entry)
	if err != nil {
		return nil, false, err
	}
	logger.Info("blocklist entry upserted", "ip", ip, "created", created, "days", days)
	return entry, created, nil
}
