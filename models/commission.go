package models

import "time"

// CommissionStatus: a commission is PENDING until a payout covering it is paid.
type CommissionStatus string

const (
	CommissionStatusPending CommissionStatus = "PENDING"
	CommissionStatusPaid    CommissionStatus = "PAID"
)

// Commission is one attributable completed transaction. One row per
// transaction ID, enforced by the unique index; reprocessing the same
// transaction must not double-create.
type Commission struct {
	ID               string `gorm:"primaryKey;type:uuid" json:"id"`
	ReferrerID       string `gorm:"index;not null" json:"referrer_id"`
	ReferrerUsername string `gorm:"index;not null" json:"referrer_username"`
	LeadID           string `gorm:"index;not null" json:"lead_id"`
	TransactionID    string `gorm:"uniqueIndex;not null" json:"transaction_id"`

	TransactionAmount float64 `gorm:"not null" json:"transaction_amount"`
	Rate              float64 `gorm:"not null" json:"rate"` // the lead's locked rate
	Amount            float64 `gorm:"not null" json:"amount"`

	Status CommissionStatus `gorm:"not null;default:'PENDING';index" json:"status"`

	// PayoutRequestID is set while the commission is attached to a payout.
	// Rejecting that payout clears it; paying it stamps PaymentRef and PaidAt.
	PayoutRequestID *string    `gorm:"index" json:"payout_request_id,omitempty"`
	PaymentRef      *string    `json:"payment_ref,omitempty"`
	PaidAt          *time.Time `json:"paid_at,omitempty"`

	Timestamps
}
