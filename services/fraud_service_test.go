package services

import (
	"fmt"
	"testing"

	"taxprep-referral-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckCleanSubmissionPasses(t *testing.T) {
	db := newTestDB(t)
	svc := NewFraudService(db)

	result := svc.Check("jane@gmail.com", "+12025550143", "203.0.113.7",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7)", "")

	assert.True(t, result.IsValid)
	assert.Zero(t, result.RiskScore)
	assert.Empty(t, result.Flags)
}

func TestCheckDisposableEmailFlagged(t *testing.T) {
	db := newTestDB(t)
	svc := NewFraudService(db)

	result := svc.Check("x@mailinator.com", "+12025550143", "203.0.113.7",
		"Mozilla/5.0", "")

	assert.True(t, result.IsValid, "disposable email alone stays under the threshold")
	assert.Contains(t, result.Flags, "disposable_email")
	assert.Equal(t, scoreDisposableEmail, result.RiskScore)
}

func TestCheckLookalikeDomainFlagged(t *testing.T) {
	db := newTestDB(t)
	svc := NewFraudService(db)

	result := svc.Check("x@mailinator.co", "+12025550143", "203.0.113.7",
		"Mozilla/5.0", "")
	assert.Contains(t, result.Flags, "lookalike_email")
}

func TestCheckInvalidPhoneFlagged(t *testing.T) {
	db := newTestDB(t)
	svc := NewFraudService(db)

	result := svc.Check("jane@gmail.com", "000", "203.0.113.7", "Mozilla/5.0", "")
	assert.Contains(t, result.Flags, "invalid_phone")
}

func TestCheckVelocityAccumulates(t *testing.T) {
	db := newTestDB(t)
	svc := NewFraudService(db)

	ip := "198.51.100.9"
	for i := 0; i < 5; i++ {
		svc.Check(fmt.Sprintf("user%d@gmail.com", i), "+12025550143", ip, "Mozilla/5.0", "")
	}

	// Sixth submission sees five prior rows in the window.
	result := svc.Check("user6@gmail.com", "+12025550143", ip, "Mozilla/5.0", "")
	assert.Contains(t, result.Flags, "velocity_high")
	assert.True(t, result.IsValid, "velocity alone stays under the threshold")

	count, err := svc.CountRecentSubmissions(ip, 3600)
	require.NoError(t, err)
	assert.Equal(t, 6, count)
}

func TestCheckSelfReferralBlocksWithDisposableEmail(t *testing.T) {
	db := newTestDB(t)
	seedReferrer(t, db, "ray123", 0.15) // ray123@example.com
	svc := NewFraudService(db)

	// Referrer submitting their own lead from a throwaway domain: the
	// combined score crosses the block threshold.
	ref := models.ReferrerProfile{}
	require.NoError(t, db.Where("username = ?", "ray123").First(&ref).Error)
	ref.Email = "ray@mailinator.com"
	require.NoError(t, db.Save(&ref).Error)

	result := svc.Check("ray@mailinator.com", "+12025550143", "203.0.113.7", "Mozilla/5.0", "ray123")

	assert.False(t, result.IsValid)
	assert.Contains(t, result.Flags, "self_referral")
	assert.Contains(t, result.Flags, "disposable_email")
	assert.NotEmpty(t, result.BlockedReason)
	assert.GreaterOrEqual(t, result.RiskScore, BlockThreshold)
}

func TestCheckSuspiciousAgentFlagged(t *testing.T) {
	db := newTestDB(t)
	svc := NewFraudService(db)

	result := svc.Check("jane@gmail.com", "+12025550143", "203.0.113.7", "curl/8.0", "")
	assert.Contains(t, result.Flags, "suspicious_agent")
}

func TestCheckWritesSubmissionLog(t *testing.T) {
	db := newTestDB(t)
	svc := NewFraudService(db)

	svc.Check("jane@gmail.com", "+12025550143", "203.0.113.7", "Mozilla/5.0", "")

	var logs []models.SubmissionLog
	require.NoError(t, db.Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, "203.0.113.7", logs[0].IP)
	assert.False(t, logs[0].Blocked)
}

func TestCheckFailsOpenOnStoreError(t *testing.T) {
	db := newTestDB(t)
	svc := NewFraudService(db)

	// Dropping the log table makes the velocity count and the log write
	// fail; the checker must still allow the submission.
	require.NoError(t, db.Migrator().DropTable(&models.SubmissionLog{}))

	result := svc.Check("jane@gmail.com", "+12025550143", "203.0.113.7", "Mozilla/5.0", "")
	assert.True(t, result.IsValid)
	assert.Contains(t, result.Flags, "check_error")
}

func TestPhoneHeuristics(t *testing.T) {
	assert.Equal(t, "invalid_phone", checkPhone("not-a-number"))
	assert.Equal(t, "invalid_phone", checkPhone("+1111111111"))
	assert.Empty(t, checkPhone("+12025550143"))

	assert.True(t, isSequential("1234567"))
	assert.True(t, isSequential("987654"))
	assert.False(t, isSequential("2025550143"))
	assert.True(t, isRepeated("7777777"))
	assert.False(t, isRepeated("7777717"))
}
