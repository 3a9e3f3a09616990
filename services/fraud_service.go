// services/fraud_service.go
package services

import (
	"errors"
	"log"
	"strings"
	"time"

	"taxprep-referral-system/models"

	"github.com/google/uuid"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/nyaruka/phonenumbers"
	"gorm.io/gorm"
)

// Risk signal weights. Scores are clamped to 0-100 and anything at or
// above BlockThreshold is rejected.
const (
	BlockThreshold = 70

	scoreDisposableEmail  = 40
	scoreLookalikeEmail   = 25
	scoreInvalidPhone     = 25
	scoreSequentialPhone  = 25
	scoreVelocityHigh     = 30
	scoreVelocityElevated = 15
	scoreSelfReferral     = 35
	scoreSuspiciousAgent  = 10
)

// velocityWindowSeconds is the IP submission window the velocity signals
// count over.
const velocityWindowSeconds = 3600

// disposableDomains is the block list for throwaway mail providers.
// Lookalikes within Levenshtein distance 1 are scored too.
var disposableDomains = []string{
	"mailinator.com", "guerrillamail.com", "10minutemail.com", "tempmail.com",
	"temp-mail.org", "throwawaymail.com", "yopmail.com", "sharklasers.com",
	"getnada.com", "trashmail.com", "fakeinbox.com", "dispostable.com",
	"maildrop.cc", "mintemail.com", "spamgourmet.com",
}

type FraudService struct {
	DB *gorm.DB
}

func NewFraudService(db *gorm.DB) *FraudService {
	return &FraudService{DB: db}
}

// FraudResult is consumed immediately by the lead-capture flow; the only
// persisted trace is the SubmissionLog row.
type FraudResult struct {
	IsValid       bool     `json:"is_valid"`
	RiskScore     int      `json:"risk_score"`
	Flags         []string `json:"flags,omitempty"`
	BlockedReason string   `json:"blocked_reason,omitempty"`
}

// Check scores a submission and decides pass/block. The checker fails
// open: any panic or store error inside it must not block a legitimate
// submission, so those paths return allow with a diagnostic flag.
func (s *FraudService) Check(email, phone, ip, userAgent, referrerUsername string) (result FraudResult) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[FRAUD] checker panicked, failing open: %v", r)
			result = FraudResult{IsValid: true, Flags: []string{"check_error"}}
		}
	}()

	score := 0
	var flags []string

	if flag := s.checkEmailDomain(email); flag != "" {
		flags = append(flags, flag)
		if flag == "disposable_email" {
			score += scoreDisposableEmail
		} else {
			score += scoreLookalikeEmail
		}
	}

	if phone != "" {
		if flag := checkPhone(phone); flag != "" {
			flags = append(flags, flag)
			if flag == "invalid_phone" {
				score += scoreInvalidPhone
			} else {
				score += scoreSequentialPhone
			}
		}
	}

	recent, err := s.CountRecentSubmissions(ip, velocityWindowSeconds)
	if err != nil {
		log.Printf("[FRAUD] velocity count failed for %s, failing open: %v", ip, err)
		flags = append(flags, "check_error")
	} else if recent >= 5 {
		flags = append(flags, "velocity_high")
		score += scoreVelocityHigh
	} else if recent >= 3 {
		flags = append(flags, "velocity_elevated")
		score += scoreVelocityElevated
	}

	if referrerUsername != "" {
		self, err := s.isSelfReferral(email, phone, referrerUsername)
		if err != nil {
			log.Printf("[FRAUD] self-referral lookup failed for %s, failing open: %v", referrerUsername, err)
			flags = append(flags, "check_error")
		} else if self {
			flags = append(flags, "self_referral")
			score += scoreSelfReferral
		}
	}

	ua := strings.ToLower(userAgent)
	if ua == "" || strings.Contains(ua, "curl") || strings.Contains(ua, "python") || strings.Contains(ua, "bot") {
		flags = append(flags, "suspicious_agent")
		score += scoreSuspiciousAgent
	}

	if score > 100 {
		score = 100
	}

	result = FraudResult{IsValid: score < BlockThreshold, RiskScore: score, Flags: flags}
	if !result.IsValid {
		result.BlockedReason = "submission flagged as high risk: " + strings.Join(flags, ", ")
	} else if score > 0 {
		log.Printf("[FRAUD] allowed with elevated score %d (%s) for ip=%s", score, strings.Join(flags, ","), ip)
	}

	s.logSubmission(email, phone, ip, userAgent, result)
	return result
}

// CountRecentSubmissions returns how many submissions the IP made inside
// the window.
func (s *FraudService) CountRecentSubmissions(ip string, windowSeconds int) (int, error) {
	since := time.Now().Add(-time.Duration(windowSeconds) * time.Second)
	var count int64
	err := s.DB.Model(&models.SubmissionLog{}).
		Where("ip = ? AND created_at >= ?", ip, since).
		Count(&count).Error
	return int(count), err
}

func (s *FraudService) checkEmailDomain(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return ""
	}
	domain := strings.ToLower(email[at+1:])
	for _, d := range disposableDomains {
		if domain == d {
			return "disposable_email"
		}
	}
	for _, d := range disposableDomains {
		if fuzzy.LevenshteinDistance(domain, d) == 1 {
			return "lookalike_email"
		}
	}
	return ""
}

func (s *FraudService) isSelfReferral(email, phone, referrerUsername string) (bool, error) {
	var ref models.ReferrerProfile
	err := s.DB.Where("username = ?", referrerUsername).First(&ref).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if email != "" && strings.EqualFold(ref.Email, email) {
		return true, nil
	}
	if phone != "" && ref.Phone != "" && digitsOnly(ref.Phone) == digitsOnly(phone) {
		return true, nil
	}
	return false, nil
}

func (s *FraudService) logSubmission(email, phone, ip, userAgent string, result FraudResult) {
	row := models.SubmissionLog{
		ID:            uuid.NewString(),
		Email:         strings.ToLower(email),
		Phone:         phone,
		IP:            ip,
		UserAgent:     userAgent,
		RiskScore:     result.RiskScore,
		Flags:         strings.Join(result.Flags, ","),
		Blocked:       !result.IsValid,
		BlockedReason: result.BlockedReason,
	}
	if err := s.DB.Create(&row).Error; err != nil {
		log.Printf("[FRAUD] failed to write submission log for ip=%s: %v", ip, err)
	}
}

// checkPhone flags numbers that cannot be real US numbers, and valid-shaped
// ones whose digits are a keyboard walk or a single repeated digit.
func checkPhone(phone string) string {
	num, err := phonenumbers.Parse(phone, "US")
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return "invalid_phone"
	}
	digits := digitsOnly(phone)
	if len(digits) >= 7 {
		if isRepeated(digits) || isSequential(digits) {
			return "sequential_phone"
		}
	}
	return ""
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isRepeated(digits string) bool {
	for i := 1; i < len(digits); i++ {
		if digits[i] != digits[0] {
			return false
		}
	}
	return true
}

func isSequential(digits string) bool {
	asc, desc := true, true
	for i := 1; i < len(digits); i++ {
		if digits[i] != digits[i-1]+1 {
			asc = false
		}
		if digits[i] != digits[i-1]-1 {
			desc = false
		}
	}
	return asc || desc
}
