package service

import (
	"context"
	"time"
)

// Cache is the shared TTL key-value store consumed by the blocklist
// memo, the geolocation memo and the detector run-lock. Backed by redis
// in production and by an in-process map as fallback and in tests.
type Cache interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
}
