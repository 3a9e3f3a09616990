// services/referrer_service.go
package services

import (
	"errors"
	"log"
	"os"
	"strings"
	"time"

	"taxprep-referral-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

type ReferrerService struct {
	DB *gorm.DB
}

func NewReferrerService(db *gorm.DB) *ReferrerService {
	return &ReferrerService{DB: db}
}

// newTrackingCode derives a shareable code from the username plus a short
// random suffix so similar usernames never collide.
func newTrackingCode(username string) string {
	return slug.Make(username) + "-" + uuid.NewString()[:6]
}

// CreateReferrer registers an affiliate or preparer profile.
func (s *ReferrerService) CreateReferrer(c *fiber.Ctx) error {
	var req struct {
		Username       string      `json:"username"`
		Email          string      `json:"email"`
		Phone          string      `json:"phone"`
		Role           models.Role `json:"role"`
		CommissionRate *float64    `json:"commission_rate"`
		PayoutMethod   string      `json:"payout_method"`
		PayoutDetails  string      `json:"payout_details"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.Username == "" || req.Email == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "username and email are required"})
	}
	if req.Role == "" {
		req.Role = models.RoleAffiliate
	}
	if req.Role != models.RoleAffiliate && req.Role != models.RolePreparer {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "role must be affiliate or preparer"})
	}

	ref := &models.ReferrerProfile{
		ID:            uuid.NewString(),
		Username:      strings.ToLower(req.Username),
		Email:         strings.ToLower(req.Email),
		Phone:         req.Phone,
		Role:          req.Role,
		TrackingCode:  newTrackingCode(req.Username),
		PayoutMethod:  req.PayoutMethod,
		PayoutDetails: req.PayoutDetails,
		IsActive:      true,
	}
	if req.CommissionRate != nil {
		if *req.CommissionRate <= 0 || *req.CommissionRate >= 1 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "commission_rate must be between 0 and 1"})
		}
		ref.CommissionRate = *req.CommissionRate
	} else {
		ref.CommissionRate = 0.10
	}

	if err := s.DB.Create(ref).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "username already taken"})
		}
		log.Printf("DB Error creating referrer: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create referrer"})
	}
	return c.Status(fiber.StatusCreated).JSON(ref)
}

// GetReferrers lists profiles for the admin dashboard.
func (s *ReferrerService) GetReferrers(c *fiber.Ctx) error {
	query := s.DB.Model(&models.ReferrerProfile{})
	if role := c.Query("role"); role != "" {
		query = query.Where("role = ?", role)
	}

	var refs []models.ReferrerProfile
	if err := query.Order("created_at DESC").Find(&refs).Error; err != nil {
		log.Printf("DB Error fetching referrers: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch referrers"})
	}
	return c.JSON(refs)
}

// GetReferrerByID returns one profile with commission totals.
func (s *ReferrerService) GetReferrerByID(c *fiber.Ctx) error {
	var ref models.ReferrerProfile
	if err := s.DB.First(&ref, "id = ?", c.Params("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Referrer not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	var pending, paid float64
	s.DB.Model(&models.Commission{}).
		Where("referrer_id = ? AND status = ?", ref.ID, models.CommissionStatusPending).
		Select("COALESCE(SUM(amount), 0)").Scan(&pending)
	s.DB.Model(&models.Commission{}).
		Where("referrer_id = ? AND status = ?", ref.ID, models.CommissionStatusPaid).
		Select("COALESCE(SUM(amount), 0)").Scan(&paid)

	return c.JSON(fiber.Map{"referrer": ref, "pending_amount": pending, "paid_amount": paid})
}

// UpdateReferrer edits profile fields. Changing CommissionRate here only
// affects *future* attributions; locked leads keep their rate.
func (s *ReferrerService) UpdateReferrer(c *fiber.Ctx) error {
	var ref models.ReferrerProfile
	if err := s.DB.First(&ref, "id = ?", c.Params("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Referrer not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	var req struct {
		Email          *string  `json:"email"`
		Phone          *string  `json:"phone"`
		CommissionRate *float64 `json:"commission_rate"`
		PayoutMethod   *string  `json:"payout_method"`
		PayoutDetails  *string  `json:"payout_details"`
		IsActive       *bool    `json:"is_active"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if req.Email != nil {
		ref.Email = strings.ToLower(*req.Email)
	}
	if req.Phone != nil {
		ref.Phone = *req.Phone
	}
	if req.CommissionRate != nil {
		if *req.CommissionRate <= 0 || *req.CommissionRate >= 1 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "commission_rate must be between 0 and 1"})
		}
		ref.CommissionRate = *req.CommissionRate
	}
	if req.PayoutMethod != nil {
		ref.PayoutMethod = *req.PayoutMethod
	}
	if req.PayoutDetails != nil {
		ref.PayoutDetails = *req.PayoutDetails
	}
	if req.IsActive != nil {
		ref.IsActive = *req.IsActive
	}

	if err := s.DB.Save(&ref).Error; err != nil {
		log.Printf("DB Error updating referrer %s: %v", ref.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update referrer"})
	}
	return c.JSON(ref)
}

// SetVanityCode claims a custom shareable code. Uniqueness is enforced
// against both vanity and generated tracking codes.
func (s *ReferrerService) SetVanityCode(c *fiber.Ctx) error {
	var req struct {
		Code string `json:"code"`
	}
	if err := c.BodyParser(&req); err != nil || req.Code == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "code is required"})
	}

	code := slug.Make(req.Code)
	if len(code) < 3 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "vanity code must be at least 3 characters"})
	}

	var ref models.ReferrerProfile
	if err := s.DB.First(&ref, "id = ?", c.Params("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Referrer not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	var count int64
	s.DB.Model(&models.ReferrerProfile{}).
		Where("(tracking_code = ? OR vanity_code = ?) AND id <> ?", code, code, ref.ID).
		Count(&count)
	if count > 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "code is already taken"})
	}

	ref.VanityCode = &code
	if err := s.DB.Save(&ref).Error; err != nil {
		log.Printf("DB Error setting vanity code for %s: %v", ref.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to set vanity code"})
	}
	return c.JSON(fiber.Map{"message": "Vanity code set", "code": code})
}

// TrackingRedirect handles GET /r/:code, the shareable referral link.
// Sets the attribution cookie and bounces to the marketing site.
func (s *ReferrerService) TrackingRedirect(c *fiber.Ctx) error {
	code := c.Params("code")

	var ref models.ReferrerProfile
	err := s.DB.Where("(tracking_code = ? OR vanity_code = ?) AND is_active = true", code, code).
		First(&ref).Error
	target := os.Getenv("LANDING_BASE_URL")
	if target == "" {
		target = "/"
	}
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("DB Error on tracking redirect %s: %v", code, err)
		}
		// Unknown code still lands on the site, just unattributed.
		return c.Redirect(target, fiber.StatusFound)
	}

	s.DB.Model(&ref).UpdateColumn("click_count", gorm.Expr("click_count + 1"))

	c.Cookie(&fiber.Cookie{
		Name:     AttributionCookieName,
		Value:    ref.TrackingCode,
		Expires:  time.Now().Add(30 * 24 * time.Hour),
		HTTPOnly: true,
		SameSite: "Lax",
	})
	return c.Redirect(target, fiber.StatusFound)
}
