package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ipsentry/ipsentry/internal/pkg/logger"
	"github.com/ipsentry/ipsentry/internal/pkg/metrics"
)

const (
	geoKeyPrefix  = "geo:"
	DefaultGeoTTL = 24 * time.Hour
)

// GeoInfo is the resolved location for an address. A nil *GeoInfo means
// "no data"; resolvers never surface errors beyond that.
type GeoInfo struct {
	Country string `json:"country"`
	City    string `json:"city"`
}

type GeoResolver interface {
	Resolve(ctx context.Context, ip string) *GeoInfo
}

// GeoService caches resolver results per address for the geo TTL.
// Negative results are cached too, so an unresolvable address costs at
// most one upstream call per TTL window.
type GeoService struct {
	cache    Cache
	resolver GeoResolver
	ttl      time.Duration
}

func NewGeoService(cache Cache, resolver GeoResolver, ttl time.Duration) *GeoService {
	if ttl <= 0 {
		ttl = DefaultGeoTTL
	}
	return &GeoService{cache: cache, resolver: resolver, ttl: ttl}
}

func (s *GeoService) Lookup(ctx context.Context, ip string) *GeoInfo {
	key := geoKeyPrefix + ip
	if raw, ok, err := s.cache.Get(ctx, key); err == nil && ok {
		metrics.GeoLookups.WithLabelValues("cache").Inc()
		if raw == "" {
			return nil
		}
		var info GeoInfo
		if err := json.Unmarshal([]byte(raw), &info); err == nil {
			return &info
		}
		return nil
	}

	info := s.resolver.Resolve(ctx, ip)

	raw := ""
	outcome := "no_data"
	if info != nil {
		if b, err := json.Marshal(info); err == nil {
			raw = string(b)
		}
		outcome = "resolved"
	}
	metrics.GeoLookups.WithLabelValues(outcome).Inc()

	if err := s.cache.Set(ctx, key, raw, s.ttl); err != nil {
		logger.Debug("failed to cache geo result", "ip", ip, "error", err.Error())
	}
	return info
}
