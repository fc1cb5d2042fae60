package model

import (
	"time"
)

// SuspiciousIP is an append-only record produced by the anomaly
// detector. The reason string doubles as the dedup key within a run, so
// multiple rows per address are expected across runs.
type SuspiciousIP struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	IPAddress string    `gorm:"size:45;not null;index" json:"ip_address"`
	Reason    string    `gorm:"size:255;not null" json:"reason"`
	FlaggedAt time.Time `json:"flagged_at"`
}
