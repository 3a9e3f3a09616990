package models

import "time"

// AttributionMethod records how a lead was tied to its referrer.
type AttributionMethod string

const (
	AttributionCookie AttributionMethod = "cookie"
	AttributionEmail  AttributionMethod = "email"
	AttributionPhone  AttributionMethod = "phone"
	AttributionNone   AttributionMethod = "none"
)

// AttributionConfidence is categorical, not a probability.
type AttributionConfidence string

const (
	ConfidenceHigh   AttributionConfidence = "HIGH"
	ConfidenceMedium AttributionConfidence = "MEDIUM"
	ConfidenceNone   AttributionConfidence = "NONE"
)

// LeadStatus follows the lead through the funnel.
type LeadStatus string

const (
	LeadStatusNew       LeadStatus = "new"
	LeadStatusContacted LeadStatus = "contacted"
	LeadStatusScheduled LeadStatus = "scheduled"
	LeadStatusFiled     LeadStatus = "filed"
	LeadStatusLost      LeadStatus = "lost"
)

// Lead is a prospective customer captured from a marketing form.
// Never hard-deleted; CRM removal is the soft-delete flag only.
type Lead struct {
	ID        string `gorm:"primaryKey;type:uuid" json:"id"`
	FirstName string `gorm:"not null" json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `gorm:"index;not null" json:"email"`
	Phone     string `gorm:"index" json:"phone,omitempty"`
	City      string `json:"city,omitempty"`
	State     string `json:"state,omitempty"`

	Status             LeadStatus `gorm:"not null;default:'new';index" json:"status"`
	AssignedPreparerID *string    `gorm:"index" json:"assigned_preparer_id,omitempty"`

	// Attribution snapshot, written once at capture time.
	ReferrerUsername      *string               `gorm:"index" json:"referrer_username,omitempty"`
	ReferrerType          *Role                 `json:"referrer_type,omitempty"`
	AttributionMethod     AttributionMethod     `gorm:"not null;default:'none'" json:"attribution_method"`
	AttributionConfidence AttributionConfidence `gorm:"not null;default:'NONE'" json:"attribution_confidence"`

	// CommissionRate is frozen at CommissionRateLockedAt and must never be
	// rewritten, even if the referrer's live rate changes later.
	CommissionRate         float64    `json:"commission_rate"`
	CommissionRateLockedAt *time.Time `json:"commission_rate_locked_at,omitempty"`

	RiskScore  int    `json:"risk_score"`
	FraudFlags string `json:"fraud_flags,omitempty"` // comma-joined flag names from capture

	CRMSyncedAt *time.Time `json:"crm_synced_at,omitempty"`

	Timestamps
}
