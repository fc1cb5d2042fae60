package repository

import (
	"context"
	"errors"
	"time"

	"github.com/ipsentry/ipsentry/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BlockedIPRepo struct {
	db *gorm.DB
}

func NewBlockedIPRepo(db *gorm.DB) *BlockedIPRepo {
	return &BlockedIPRepo{db: db}
}

// ExistsInEffect reports whether an active, unexpired block exists for
// the address.
func (r *BlockedIPRepo) ExistsInEffect(ctx context.Context, ip string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.BlockedIP{}).
		Where("ip_address = ? AND is_active = ?", ip, true).
		Where("expires_at IS NULL OR expires_at > ?", time.Now().UTC()).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Upsert creates or updates the single row for entry.IPAddress and
// reports whether the row was newly created. A concurrent create racing
// the lookup is absorbed by the ON CONFLICT clause.
func (r *BlockedIPRepo) Upsert(ctx context.Context, entry *model.BlockedIP) (bool, error) {
	var existing model.BlockedIP
	err := r.db.WithContext(ctx).
		Where("ip_address = ?", entry.IPAddress).
		First(&existing).Error

	switch {
	case err == nil:
		updates := map[string]any{
			"reason":     entry.Reason,
			"is_active":  entry.IsActive,
			"expires_at": entry.ExpiresAt,
		}
		if err := r.db.WithContext(ctx).
			Model(&model.BlockedIP{}).
			Where("ip_address = ?", entry.IPAddress).
			Updates(updates).Error; err != nil {
			return false, err
		}
		entry.ID = existing.ID
		entry.CreatedAt = existing.CreatedAt
		return false, nil

	case errors.Is(err, gorm.ErrRecordNotFound):
		if entry.CreatedAt.IsZero() {
			entry.CreatedAt = time.Now().UTC()
		}
		createErr := r.db.WithContext(ctx).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "ip_address"}},
				DoUpdates: clause.AssignmentColumns([]string{"reason", "is_active", "expires_at"}),
			}).
			Create(entry).Error
		if createErr != nil {
			return false, createErr
		}
		return true, nil

	default:
		return false, err
	}
}

func (r *BlockedIPRepo) ListRecent(ctx context.Context, limit int) ([]*model.BlockedIP, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	entries := make([]*model.BlockedIP, 0, limit)
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}
