package models

import (
	"time"

	"gorm.io/gorm"
)

// Role is the closed set of actors in the platform. Anything outside
// this set is rejected at the middleware layer.
type Role string

const (
	RoleAdmin     Role = "admin"
	RolePreparer  Role = "preparer"
	RoleAffiliate Role = "affiliate"
)

// ReferrerProfile is a user who can earn commission for attributed leads,
// either an affiliate sharing links or a preparer referring clients.
type ReferrerProfile struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	Username string `gorm:"uniqueIndex;not null" json:"username"`
	Email    string `gorm:"index;not null" json:"email"`
	Phone    string `gorm:"index" json:"phone,omitempty"`
	Role     Role   `gorm:"not null;default:'affiliate'" json:"role"`

	// TrackingCode is the code baked into the referrer's shareable link.
	// Unique across all referrers, vanity codes included.
	TrackingCode string  `gorm:"uniqueIndex;not null" json:"tracking_code"`
	VanityCode   *string `gorm:"uniqueIndex" json:"vanity_code,omitempty"`

	// CommissionRate is the referrer's *current* rate (e.g. 0.15).
	// Leads keep the rate they were locked at, not this one.
	CommissionRate float64 `gorm:"not null;default:0.10" json:"commission_rate"`

	PayoutMethod  string `json:"payout_method,omitempty"`  // e.g. "paypal", "check"
	PayoutDetails string `json:"payout_details,omitempty"` // destination for the method above

	ClickCount int64 `gorm:"default:0" json:"click_count"`
	IsActive   bool  `gorm:"default:true" json:"is_active"`

	Timestamps
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
