package model

import (
	"time"
)

// RequestLog is the immutable audit record written once per inbound
// request. Optional columns use pointers so a missing value is stored
// as NULL rather than an empty string.
type RequestLog struct {
	ID        uint64    `gorm:"primaryKey" json:"id"`
	IPAddress string    `gorm:"size:45;not null;index" json:"ip_address"`
	Timestamp time.Time `gorm:"not null;index" json:"timestamp"`
	Path      string    `gorm:"size:255;not null" json:"path"`
	Method    *string   `gorm:"size:10" json:"method,omitempty"`
	UserAgent *string   `gorm:"size:255" json:"user_agent,omitempty"`
	Country   *string   `gorm:"size:100" json:"country,omitempty"`
	City      *string   `gorm:"size:100" json:"city,omitempty"`
}
