package models

import "time"

type CampaignStatus string

const (
	CampaignStatusDraft     CampaignStatus = "draft"
	CampaignStatusScheduled CampaignStatus = "scheduled"
	CampaignStatusSending   CampaignStatus = "sending"
	CampaignStatusSent      CampaignStatus = "sent"
	CampaignStatusFailed    CampaignStatus = "failed"
)

// EmailCampaign is a one-to-many email blast to a lead segment.
type EmailCampaign struct {
	ID      string `gorm:"primaryKey;type:uuid" json:"id"`
	Name    string `gorm:"not null" json:"name"`
	Subject string `gorm:"not null" json:"subject"`
	Body    string `gorm:"type:text;not null" json:"body"`

	// Segment filters; empty means all active leads.
	SegmentStatus string `json:"segment_status,omitempty"` // LeadStatus filter
	SegmentState  string `json:"segment_state,omitempty"`  // US state filter

	Status      CampaignStatus `gorm:"not null;default:'draft';index" json:"status"`
	ScheduledAt *time.Time     `gorm:"index" json:"scheduled_at,omitempty"`
	SentAt      *time.Time     `json:"sent_at,omitempty"`

	SentCount   int64 `json:"sent_count"`
	FailedCount int64 `json:"failed_count"`

	Timestamps
}

// CampaignRecipient is the per-lead delivery record for a campaign send.
type CampaignRecipient struct {
	ID         string `gorm:"primaryKey;type:uuid" json:"id"`
	CampaignID string `gorm:"index;not null" json:"campaign_id"`
	LeadID     string `gorm:"index;not null" json:"lead_id"`
	Email      string `gorm:"not null" json:"email"`

	Delivered bool       `json:"delivered"`
	Error     string     `json:"error,omitempty"`
	SentAt    *time.Time `json:"sent_at,omitempty"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}
