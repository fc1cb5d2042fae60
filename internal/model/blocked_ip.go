package model

import (
	"time"
)

// BlockedIP is a policy record keyed uniquely by address. A row is in
// effect iff IsActive is true and ExpiresAt is nil or in the future.
type BlockedIP struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	IPAddress string     `gorm:"size:45;not null;uniqueIndex" json:"ip_address"`
	CreatedAt time.Time  `json:"created_at"`
	Reason    *string    `gorm:"size:255" json:"reason,omitempty"`
	IsActive  bool       `gorm:"index;default:true" json:"is_active"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// InEffect reports whether the block currently applies.
func (b *BlockedIP) InEffect(now time.Time) bool {
	if !b.IsActive {
		return false
	}
	return b.ExpiresAt == nil || b.ExpiresAt.After(now)
}
