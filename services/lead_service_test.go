package services

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"taxprep-referral-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newLeadTestApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	attribution := NewAttributionService(db)
	fraud := NewFraudService(db)
	leads := NewLeadService(db, attribution, fraud)

	app := fiber.New()
	app.Post("/leads", leads.CaptureLead)
	return app, db
}

func TestCaptureLeadLocksRateAtCapture(t *testing.T) {
	app, db := newLeadTestApp(t)
	ref := seedReferrer(t, db, "ray123", 0.15)

	payload, _ := json.Marshal(map[string]string{
		"first_name": "Dana",
		"email":      "dana@example.org",
		"phone":      "+1 202 555 0175",
		"city":       "Austin",
		"state":      "TX",
	})
	req := httptest.NewRequest("POST", "/leads", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Cookie", AttributionCookieName+"="+ref.TrackingCode)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var lead models.Lead
	require.NoError(t, db.First(&lead, "email = ?", "dana@example.org").Error)
	require.NotNil(t, lead.ReferrerUsername)
	assert.Equal(t, "ray123", *lead.ReferrerUsername)
	assert.Equal(t, models.AttributionCookie, lead.AttributionMethod)
	assert.Equal(t, models.ConfidenceHigh, lead.AttributionConfidence)
	assert.Equal(t, 0.15, lead.CommissionRate)
	assert.NotNil(t, lead.CommissionRateLockedAt)

	// Later rate changes must not touch the captured lead.
	require.NoError(t, db.Model(&models.ReferrerProfile{}).
		Where("id = ?", ref.ID).Update("commission_rate", 0.30).Error)
	require.NoError(t, db.First(&lead, "id = ?", lead.ID).Error)
	assert.Equal(t, 0.15, lead.CommissionRate)
}

func TestCaptureLeadUnattributed(t *testing.T) {
	app, db := newLeadTestApp(t)

	payload, _ := json.Marshal(map[string]string{
		"first_name": "Sam",
		"email":      "sam@example.org",
		"phone":      "+1 202 555 0131",
	})
	req := httptest.NewRequest("POST", "/leads", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var lead models.Lead
	require.NoError(t, db.First(&lead, "email = ?", "sam@example.org").Error)
	assert.Nil(t, lead.ReferrerUsername)
	assert.Nil(t, lead.CommissionRateLockedAt)
	assert.Equal(t, models.AttributionNone, lead.AttributionMethod)
	assert.Equal(t, models.ConfidenceNone, lead.AttributionConfidence)
}

func TestCaptureLeadRejectsMissingFields(t *testing.T) {
	app, _ := newLeadTestApp(t)

	payload, _ := json.Marshal(map[string]string{"email": "no-name@example.org"})
	req := httptest.NewRequest("POST", "/leads", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestCaptureLeadBlocksHighRisk(t *testing.T) {
	app, db := newLeadTestApp(t)
	ref := seedReferrer(t, db, "blocker", 0.15)

	// Disposable email plus self-referral (submitter email equals the
	// referrer's own) pushes the score past the block threshold.
	require.NoError(t, db.Model(&models.ReferrerProfile{}).
		Where("id = ?", ref.ID).Update("email", "cheat@mailinator.com").Error)

	payload, _ := json.Marshal(map[string]string{
		"first_name": "Cheat",
		"email":      "cheat@mailinator.com",
		"phone":      "+1 202 555 0160",
	})
	req := httptest.NewRequest("POST", "/leads", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Cookie", AttributionCookieName+"="+ref.TrackingCode)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)

	var count int64
	require.NoError(t, db.Model(&models.Lead{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}
