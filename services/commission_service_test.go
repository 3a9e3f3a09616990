package services

import (
	"testing"

	"taxprep-referral-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateRoundsToCents(t *testing.T) {
	assert.Equal(t, 15.0, Calculate(100, 0.15))
	assert.Equal(t, 22.5, Calculate(150, 0.15))
	assert.Equal(t, 0.33, Calculate(3.33, 0.10))
	assert.Equal(t, 14.48, Calculate(96.55, 0.15))  // 14.4825 rounds down
	assert.Equal(t, 14.5, Calculate(96.65, 0.15))   // 14.4975 rounds up
	assert.Equal(t, 0.01, Calculate(0.05, 0.10))    // 0.005 rounds half-up
}

func TestRecordConversionUsesLockedRate(t *testing.T) {
	db := newTestDB(t)
	ref := seedReferrer(t, db, "ray123", 0.15)
	lead := seedAttributedLead(t, db, "client@example.com", "", "ray123", 0.15)

	// Live rate changes after the lead locked.
	ref.CommissionRate = 0.02
	require.NoError(t, db.Save(ref).Error)

	svc := NewCommissionService(db)
	cm, err := svc.RecordConversion(lead.ID, "tx-100", 200)
	require.NoError(t, err)

	assert.Equal(t, 0.15, cm.Rate)
	assert.Equal(t, 30.0, cm.Amount)
	assert.Equal(t, models.CommissionStatusPending, cm.Status)
	assert.Equal(t, ref.ID, cm.ReferrerID)
}

func TestRecordConversionIdempotent(t *testing.T) {
	db := newTestDB(t)
	seedReferrer(t, db, "ray123", 0.15)
	lead := seedAttributedLead(t, db, "client@example.com", "", "ray123", 0.15)
	svc := NewCommissionService(db)

	first, err := svc.RecordConversion(lead.ID, "tx-100", 200)
	require.NoError(t, err)
	second, err := svc.RecordConversion(lead.ID, "tx-100", 200)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)

	var count int64
	db.Model(&models.Commission{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestRecordConversionValidation(t *testing.T) {
	db := newTestDB(t)
	svc := NewCommissionService(db)

	_, err := svc.RecordConversion("lead", "", 100)
	assert.ErrorAs(t, err, new(*ValidationError))

	_, err = svc.RecordConversion("lead", "tx-1", -5)
	assert.ErrorAs(t, err, new(*ValidationError))

	_, err = svc.RecordConversion("missing-lead", "tx-1", 100)
	assert.ErrorAs(t, err, new(*NotFoundError))
}

func TestRecordConversionUnattributedLead(t *testing.T) {
	db := newTestDB(t)
	svc := NewCommissionService(db)

	lead := models.Lead{ID: "lead-1", FirstName: "Org", Email: "organic@example.com"}
	require.NoError(t, db.Create(&lead).Error)

	_, err := svc.RecordConversion(lead.ID, "tx-1", 100)
	assert.ErrorAs(t, err, new(*ValidationError))
}
