// services/attribution_service.go
package services

import (
	"errors"
	"log"
	"strings"

	"taxprep-referral-system/models"

	"gorm.io/gorm"
)

type AttributionService struct {
	DB *gorm.DB
}

func NewAttributionService(db *gorm.DB) *AttributionService {
	return &AttributionService{DB: db}
}

// Attribution is the credit decision for a new lead.
type Attribution struct {
	ReferrerUsername string                       `json:"referrer_username,omitempty"`
	ReferrerType     *models.Role                 `json:"referrer_type,omitempty"`
	CommissionRate   float64                      `json:"commission_rate"`
	Method           models.AttributionMethod     `json:"method"`
	Confidence       models.AttributionConfidence `json:"confidence"`
}

// Resolve decides which referrer (if any) gets credit for a submission.
// Precedence, first match wins: cookie tracking code, prior lead by email,
// prior lead by phone, none. Cookie matches take the referrer's current
// rate (it will be locked on the lead right after); email/phone matches
// copy the *prior lead's locked rate* so a referrer's later rate changes
// never leak into old attribution chains.
func (s *AttributionService) Resolve(email, phone, cookieTrackingCode string) (Attribution, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	phone = strings.TrimSpace(phone)

	if code := strings.TrimSpace(cookieTrackingCode); code != "" {
		var ref models.ReferrerProfile
		err := s.DB.Where("(tracking_code = ? OR vanity_code = ?) AND is_active = true", code, code).
			First(&ref).Error
		switch {
		case err == nil:
			return Attribution{
				ReferrerUsername: ref.Username,
				ReferrerType:     &ref.Role,
				CommissionRate:   ref.CommissionRate,
				Method:           models.AttributionCookie,
				Confidence:       models.ConfidenceHigh,
			}, nil
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return Attribution{}, err
		default:
			// Stale or made-up cookie: fall through to the weaker signals.
			log.Printf("[ATTRIBUTION] cookie code %q matched no active referrer", code)
		}
	}

	if email != "" {
		attr, found, err := s.priorLeadMatch("LOWER(email) = ?", email, models.AttributionEmail)
		if err != nil || found {
			return attr, err
		}
	}

	if phone != "" {
		attr, found, err := s.priorLeadMatch("phone = ?", phone, models.AttributionPhone)
		if err != nil || found {
			return attr, err
		}
	}

	return Attribution{Method: models.AttributionNone, Confidence: models.ConfidenceNone}, nil
}

// priorLeadMatch looks for the most recent attributed lead matching the
// given column and copies its locked rate.
func (s *AttributionService) priorLeadMatch(cond, value string, method models.AttributionMethod) (Attribution, bool, error) {
	var prior models.Lead
	err := s.DB.Where(cond, value).
		Where("referrer_username IS NOT NULL").
		Order("created_at DESC").
		First(&prior).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Attribution{}, false, nil
	}
	if err != nil {
		return Attribution{}, false, err
	}
	return Attribution{
		ReferrerUsername: *prior.ReferrerUsername,
		ReferrerType:     prior.ReferrerType,
		CommissionRate:   prior.CommissionRate,
		Method:           method,
		Confidence:       models.ConfidenceMedium,
	}, true, nil
}
