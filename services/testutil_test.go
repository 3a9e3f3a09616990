package services

import (
	"testing"
	"time"

	"taxprep-referral-system/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// A second pooled connection to ":memory:" would open a separate empty
	// database, so concurrent tests must share the single connection.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.ReferrerProfile{},
		&models.Lead{},
		&models.SubmissionLog{},
		&models.Commission{},
		&models.PayoutRequest{},
		&models.DocumentFolder{},
		&models.Document{},
		&models.Appointment{},
		&models.EmailCampaign{},
		&models.CampaignRecipient{},
		&models.LandingPage{},
	))
	return db
}

func seedReferrer(t *testing.T, db *gorm.DB, username string, rate float64) *models.ReferrerProfile {
	t.Helper()
	ref := &models.ReferrerProfile{
		ID:             uuid.NewString(),
		Username:       username,
		Email:          username + "@example.com",
		Phone:          "+12025550143",
		Role:           models.RoleAffiliate,
		TrackingCode:   username,
		CommissionRate: rate,
		IsActive:       true,
	}
	require.NoError(t, db.Create(ref).Error)
	return ref
}

func seedAttributedLead(t *testing.T, db *gorm.DB, email, phone, referrer string, rate float64) *models.Lead {
	t.Helper()
	now := time.Now()
	role := models.RoleAffiliate
	lead := &models.Lead{
		ID:                     uuid.NewString(),
		FirstName:              "Test",
		Email:                  email,
		Phone:                  phone,
		Status:                 models.LeadStatusNew,
		ReferrerUsername:       &referrer,
		ReferrerType:           &role,
		AttributionMethod:      models.AttributionCookie,
		AttributionConfidence:  models.ConfidenceHigh,
		CommissionRate:         rate,
		CommissionRateLockedAt: &now,
	}
	require.NoError(t, db.Create(lead).Error)
	return lead
}

func seedCommission(t *testing.T, db *gorm.DB, ref *models.ReferrerProfile, amount float64) *models.Commission {
	t.Helper()
	cm := &models.Commission{
		ID:                uuid.NewString(),
		ReferrerID:        ref.ID,
		ReferrerUsername:  ref.Username,
		LeadID:            uuid.NewString(),
		TransactionID:     uuid.NewString(),
		TransactionAmount: amount / ref.CommissionRate,
		Rate:              ref.CommissionRate,
		Amount:            amount,
		Status:            models.CommissionStatusPending,
	}
	require.NoError(t, db.Create(cm).Error)
	return cm
}

// recordingNotifier captures notifications for assertions.
type recordingNotifier struct {
	sent []string
}

func (n *recordingNotifier) Send(to, subject, body string) error {
	n.sent = append(n.sent, to+": "+subject)
	return nil
}
