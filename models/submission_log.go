package models

import "time"

// SubmissionLog is one row per form submission attempt, blocked or not.
// Doubles as the velocity source for the fraud checker's IP window count.
type SubmissionLog struct {
	ID        string `gorm:"primaryKey;type:uuid" json:"id"`
	Email     string `gorm:"index" json:"email"`
	Phone     string `json:"phone,omitempty"`
	IP        string `gorm:"index;not null" json:"ip"`
	UserAgent string `json:"user_agent,omitempty"`

	RiskScore     int    `json:"risk_score"`
	Flags         string `json:"flags,omitempty"` // comma-joined
	Blocked       bool   `gorm:"index" json:"blocked"`
	BlockedReason string `json:"blocked_reason,omitempty"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime;index"`
}
