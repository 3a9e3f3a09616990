package models

import "time"

// PayoutStatus state machine: PENDING → APPROVED → PAID, or PENDING → REJECTED.
// APPROVED/PAID and REJECTED are terminal for admin actions; a rejected
// payout's commissions go back to the pool.
type PayoutStatus string

const (
	PayoutStatusPending  PayoutStatus = "PENDING"
	PayoutStatusApproved PayoutStatus = "APPROVED"
	PayoutStatusPaid     PayoutStatus = "PAID"
	PayoutStatusRejected PayoutStatus = "REJECTED"
)

// PayoutRequest is a batch of commissions a referrer wants cashed out.
// The covered commissions point back here via Commission.PayoutRequestID.
type PayoutRequest struct {
	ID               string `gorm:"primaryKey;type:uuid" json:"id"`
	ReferrerID       string `gorm:"index;not null" json:"referrer_id"`
	ReferrerUsername string `gorm:"index;not null" json:"referrer_username"`

	Amount  float64      `gorm:"not null" json:"amount"`
	Method  string       `gorm:"not null" json:"method"`
	Details string       `gorm:"not null" json:"details"`
	Status  PayoutStatus `gorm:"not null;default:'PENDING';index" json:"status"`

	PaymentRef *string    `json:"payment_ref,omitempty"`
	AdminNotes string     `json:"admin_notes,omitempty"`
	DecidedAt  *time.Time `json:"decided_at,omitempty"`
	PaidAt     *time.Time `json:"paid_at,omitempty"`

	Commissions []Commission `gorm:"foreignKey:PayoutRequestID" json:"commissions,omitempty"`

	Timestamps
}
