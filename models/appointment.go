package models

import "time"

type AppointmentStatus string

const (
	AppointmentStatusBooked    AppointmentStatus = "booked"
	AppointmentStatusCompleted AppointmentStatus = "completed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
)

// Appointment is a scheduled session between a lead and a preparer.
type Appointment struct {
	ID         string `gorm:"primaryKey;type:uuid" json:"id"`
	LeadID     string `gorm:"index;not null" json:"lead_id"`
	PreparerID string `gorm:"index;not null" json:"preparer_id"`

	StartsAt time.Time `gorm:"not null;index" json:"starts_at"`
	EndsAt   time.Time `gorm:"not null" json:"ends_at"`
	Location string    `json:"location,omitempty"` // office address or "virtual"
	Notes    string    `json:"notes,omitempty"`

	Status         AppointmentStatus `gorm:"not null;default:'booked';index" json:"status"`
	ReminderSentAt *time.Time        `json:"reminder_sent_at,omitempty"`

	Timestamps
}
