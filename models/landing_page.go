package models

import "time"

// LandingPageStatus is the generation pipeline state column. The content
// worker claims pending rows, marks them generating, and lands them in
// published or failed (after MaxGenerationAttempts).
type LandingPageStatus string

const (
	LandingPageStatusPending    LandingPageStatus = "pending"
	LandingPageStatusGenerating LandingPageStatus = "generating"
	LandingPageStatusPublished  LandingPageStatus = "published"
	LandingPageStatusFailed     LandingPageStatus = "failed"
)

// MaxGenerationAttempts caps retries per page before it parks in failed.
const MaxGenerationAttempts = 3

// LandingPage is a city-targeted SEO page whose copy is drafted by the
// AI content pipeline.
type LandingPage struct {
	ID    string `gorm:"primaryKey;type:uuid" json:"id"`
	City  string `gorm:"not null" json:"city"`
	State string `gorm:"not null" json:"state"`
	Slug  string `gorm:"uniqueIndex;not null" json:"slug"`

	Title           string `json:"title,omitempty"`
	MetaDescription string `json:"meta_description,omitempty"`
	Body            string `gorm:"type:text" json:"body,omitempty"`

	Status      LandingPageStatus `gorm:"not null;default:'pending';index" json:"status"`
	Attempts    int               `gorm:"default:0" json:"attempts"`
	LastError   string            `json:"last_error,omitempty"`
	PublishedAt *time.Time        `json:"published_at,omitempty"`

	Timestamps
}
