package repository

import (
	"context"
	"time"

	"github.com/ipsentry/ipsentry/internal/model"
	"gorm.io/gorm"
)

type SuspiciousIPRepo struct {
	db *gorm.DB
}

func NewSuspiciousIPRepo(db *gorm.DB) *SuspiciousIPRepo {
	return &SuspiciousIPRepo{db: db}
}

// GetOrCreate inserts a flag row unless one already exists for the
// exact (address, reason) pair. Reports whether a row was created.
func (r *SuspiciousIPRepo) GetOrCreate(ctx context.Context, ip, reason string) (bool, error) {
	rec := model.SuspiciousIP{IPAddress: ip, Reason: reason}
	res := r.db.WithContext(ctx).
		Where("ip_address = ? AND reason = ?", ip, reason).
		Attrs(model.SuspiciousIP{FlaggedAt: time.Now().UTC()}).
		FirstOrCreate(&rec)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *SuspiciousIPRepo) ListRecent(ctx context.Context, limit int) ([]*model.SuspiciousIP, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	entries := make([]*model.SuspiciousIP, 0, limit)
	err := r.db.WithContext(ctx).
		Order("flagged_at DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}
