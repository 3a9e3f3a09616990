package services

import (
	"testing"

	"taxprep-referral-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveCookieMatch(t *testing.T) {
	db := newTestDB(t)
	seedReferrer(t, db, "ray123", 0.15)
	svc := NewAttributionService(db)

	attr, err := svc.Resolve("new@example.com", "", "ray123")
	require.NoError(t, err)

	assert.Equal(t, "ray123", attr.ReferrerUsername)
	require.NotNil(t, attr.ReferrerType)
	assert.Equal(t, models.RoleAffiliate, *attr.ReferrerType)
	assert.Equal(t, models.AttributionCookie, attr.Method)
	assert.Equal(t, models.ConfidenceHigh, attr.Confidence)
	assert.Equal(t, 0.15, attr.CommissionRate)
}

func TestResolveVanityCodeMatch(t *testing.T) {
	db := newTestDB(t)
	ref := seedReferrer(t, db, "ray123", 0.15)
	vanity := "rays-taxes"
	ref.VanityCode = &vanity
	require.NoError(t, db.Save(ref).Error)
	svc := NewAttributionService(db)

	attr, err := svc.Resolve("", "", "rays-taxes")
	require.NoError(t, err)
	assert.Equal(t, "ray123", attr.ReferrerUsername)
	assert.Equal(t, models.ConfidenceHigh, attr.Confidence)
}

func TestResolveEmailMatchCopiesLockedRate(t *testing.T) {
	db := newTestDB(t)
	ref := seedReferrer(t, db, "ray123", 0.15)
	seedAttributedLead(t, db, "repeat@example.com", "", "ray123", 0.15)

	// The referrer's live rate drops after the prior lead was locked.
	ref.CommissionRate = 0.05
	require.NoError(t, db.Save(ref).Error)

	svc := NewAttributionService(db)
	attr, err := svc.Resolve("repeat@example.com", "", "")
	require.NoError(t, err)

	assert.Equal(t, "ray123", attr.ReferrerUsername)
	assert.Equal(t, models.AttributionEmail, attr.Method)
	assert.Equal(t, models.ConfidenceMedium, attr.Confidence)
	assert.Equal(t, 0.15, attr.CommissionRate, "must copy the prior lead's locked rate, not the live rate")
}

func TestResolvePhoneMatch(t *testing.T) {
	db := newTestDB(t)
	seedReferrer(t, db, "ray123", 0.15)
	seedAttributedLead(t, db, "old@example.com", "+12025550177", "ray123", 0.15)
	svc := NewAttributionService(db)

	attr, err := svc.Resolve("different@example.com", "+12025550177", "")
	require.NoError(t, err)
	assert.Equal(t, models.AttributionPhone, attr.Method)
	assert.Equal(t, models.ConfidenceMedium, attr.Confidence)
}

func TestResolveCookieBeatsEmail(t *testing.T) {
	db := newTestDB(t)
	seedReferrer(t, db, "ray123", 0.15)
	seedReferrer(t, db, "other", 0.20)
	seedAttributedLead(t, db, "repeat@example.com", "", "other", 0.20)
	svc := NewAttributionService(db)

	attr, err := svc.Resolve("repeat@example.com", "", "ray123")
	require.NoError(t, err)
	assert.Equal(t, "ray123", attr.ReferrerUsername)
	assert.Equal(t, models.AttributionCookie, attr.Method)
}

func TestResolveNoMatch(t *testing.T) {
	db := newTestDB(t)
	svc := NewAttributionService(db)

	attr, err := svc.Resolve("nobody@example.com", "+12025550199", "")
	require.NoError(t, err)
	assert.Empty(t, attr.ReferrerUsername)
	assert.Nil(t, attr.ReferrerType)
	assert.Equal(t, models.AttributionNone, attr.Method)
	assert.Equal(t, models.ConfidenceNone, attr.Confidence)
}

func TestResolveStaleCookieFallsThrough(t *testing.T) {
	db := newTestDB(t)
	seedReferrer(t, db, "ray123", 0.15)
	seedAttributedLead(t, db, "repeat@example.com", "", "ray123", 0.15)
	svc := NewAttributionService(db)

	// Cookie points at a deleted/unknown code; email signal still works.
	attr, err := svc.Resolve("repeat@example.com", "", "gone-referrer")
	require.NoError(t, err)
	assert.Equal(t, models.AttributionEmail, attr.Method)
	assert.Equal(t, "ray123", attr.ReferrerUsername)
}

func TestResolveInactiveReferrerIgnored(t *testing.T) {
	db := newTestDB(t)
	ref := seedReferrer(t, db, "ray123", 0.15)
	ref.IsActive = false
	require.NoError(t, db.Save(ref).Error)
	svc := NewAttributionService(db)

	attr, err := svc.Resolve("", "", "ray123")
	require.NoError(t, err)
	assert.Equal(t, models.AttributionNone, attr.Method)
}
