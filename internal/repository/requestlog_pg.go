package repository

import (
	"context"
	"time"

	"github.com/ipsentry/ipsentry/internal/model"
	"gorm.io/gorm"
)

type RequestLogRepo struct {
	db *gorm.DB
}

func NewRequestLogRepo(db *gorm.DB) *RequestLogRepo {
	return &RequestLogRepo{db: db}
}

func (r *RequestLogRepo) Insert(ctx context.Context, entry *model.RequestLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *RequestLogRepo) ListRecent(ctx context.Context, limit int) ([]*model.RequestLog, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	entries := make([]*model.RequestLog, 0, limit)
	err := r.db.WithContext(ctx).
		Order("timestamp DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

// CountByAddress groups entries newer than since by address and keeps
// only addresses with strictly more than minHits entries.
func (r *RequestLogRepo) CountByAddress(ctx context.Context, since time.Time, minHits int64) ([]model.AddressCount, error) {
	var rows []model.AddressCount
	err := r.db.WithContext(ctx).
		Model(&model.RequestLog{}).
		Select("ip_address, count(*) AS hits").
		Where("timestamp >= ?", since).
		Group("ip_address").
		Having("count(*) > ?", minHits).
		Scan(&rows).Error
	return rows, err
}

// CountByAddressOnPaths groups entries newer than since that hit one of
// the given paths by address.
func (r *RequestLogRepo) CountByAddressOnPaths(ctx context.Context, since time.Time, paths []string) ([]model.AddressCount, error) {
	var rows []model.AddressCount
	err := r.db.WithContext(ctx).
		Model(&model.RequestLog{}).
		Select("ip_address, count(*) AS hits").
		Where("timestamp >= ? AND path IN ?", since, paths).
		Group("ip_address").
		Scan(&rows).Error
	return rows, err
}
