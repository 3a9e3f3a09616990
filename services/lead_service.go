// services/lead_service.go
package services

import (
	"errors"
	"log"
	"strings"
	"time"

	"taxprep-referral-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AttributionCookieName carries the tracking code set by a referral-link
// visit. Read at capture time, precedence signal #1.
const AttributionCookieName = "tp_ref"

type LeadService struct {
	DB          *gorm.DB
	Attribution *AttributionService
	Fraud       *FraudService
}

func NewLeadService(db *gorm.DB, attribution *AttributionService, fraud *FraudService) *LeadService {
	return &LeadService{DB: db, Attribution: attribution, Fraud: fraud}
}

// CaptureLead is the public form endpoint: fraud check, attribution,
// then the lead row with its rate locked at this moment.
func (s *LeadService) CaptureLead(c *fiber.Ctx) error {
	var req struct {
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Email     string `json:"email"`
		Phone     string `json:"phone"`
		City      string `json:"city"`
		State     string `json:"state"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.FirstName == "" || req.Email == "" || !strings.Contains(req.Email, "@") {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "first_name and a valid email are required"})
	}

	cookieCode := c.Cookies(AttributionCookieName)

	// Attribution first so the fraud checker can see the referrer for the
	// self-referral signal.
	attr, err := s.Attribution.Resolve(req.Email, req.Phone, cookieCode)
	if err != nil {
		log.Printf("DB Error resolving attribution for %s: %v", req.Email, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process submission"})
	}

	fraud := s.Fraud.Check(req.Email, req.Phone, c.IP(), c.Get("User-Agent"), attr.ReferrerUsername)
	if !fraud.IsValid {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error":      fraud.BlockedReason,
			"risk_score": fraud.RiskScore,
		})
	}

	lead := &models.Lead{
		ID:                    uuid.NewString(),
		FirstName:             req.FirstName,
		LastName:              req.LastName,
		Email:                 strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:                 strings.TrimSpace(req.Phone),
		City:                  req.City,
		State:                 req.State,
		Status:                models.LeadStatusNew,
		AttributionMethod:     attr.Method,
		AttributionConfidence: attr.Confidence,
		RiskScore:             fraud.RiskScore,
		FraudFlags:            strings.Join(fraud.Flags, ","),
	}
	if attr.ReferrerUsername != "" {
		now := time.Now()
		lead.ReferrerUsername = &attr.ReferrerUsername
		lead.ReferrerType = attr.ReferrerType
		lead.CommissionRate = attr.CommissionRate
		lead.CommissionRateLockedAt = &now
	}

	if err := s.DB.Create(lead).Error; err != nil {
		log.Printf("DB Error creating lead: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create lead"})
	}

	return c.Status(fiber.StatusCreated).JSON(lead)
}

// GetLeads lists leads for the CRM view with optional filters.
func (s *LeadService) GetLeads(c *fiber.Ctx) error {
	query := s.DB.Model(&models.Lead{})
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if referrer := c.Query("referrer"); referrer != "" {
		query = query.Where("referrer_username = ?", referrer)
	}
	if state := c.Query("state"); state != "" {
		query = query.Where("state = ?", state)
	}
	if preparerID := c.Query("preparer_id"); preparerID != "" {
		query = query.Where("assigned_preparer_id = ?", preparerID)
	}

	var leads []models.Lead
	if err := query.Order("created_at DESC").Find(&leads).Error; err != nil {
		log.Printf("DB Error fetching leads: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch leads"})
	}
	return c.JSON(leads)
}

// GetLeadByID returns a single lead.
func (s *LeadService) GetLeadByID(c *fiber.Ctx) error {
	var lead models.Lead
	if err := s.DB.First(&lead, "id = ?", c.Params("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Lead not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}
	return c.JSON(lead)
}

// UpdateLead handles CRM edits. Attribution fields and the locked rate
// are deliberately not updatable here.
func (s *LeadService) UpdateLead(c *fiber.Ctx) error {
	var lead models.Lead
	if err := s.DB.First(&lead, "id = ?", c.Params("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Lead not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	var req struct {
		FirstName *string            `json:"first_name"`
		LastName  *string            `json:"last_name"`
		Phone     *string            `json:"phone"`
		City      *string            `json:"city"`
		State     *string            `json:"state"`
		Status    *models.LeadStatus `json:"status"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if req.FirstName != nil {
		lead.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		lead.LastName = *req.LastName
	}
	if req.Phone != nil {
		lead.Phone = *req.Phone
	}
	if req.City != nil {
		lead.City = *req.City
	}
	if req.State != nil {
		lead.State = *req.State
	}
	if req.Status != nil {
		switch *req.Status {
		case models.LeadStatusNew, models.LeadStatusContacted, models.LeadStatusScheduled,
			models.LeadStatusFiled, models.LeadStatusLost:
			lead.Status = *req.Status
		default:
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid lead status"})
		}
	}

	if err := s.DB.Save(&lead).Error; err != nil {
		log.Printf("DB Error updating lead %s: %v", lead.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update lead"})
	}
	return c.JSON(lead)
}

// AssignPreparer sets or changes the assigned preparer on a lead.
func (s *LeadService) AssignPreparer(c *fiber.Ctx) error {
	var req struct {
		PreparerID string `json:"preparer_id"`
	}
	if err := c.BodyParser(&req); err != nil || req.PreparerID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "preparer_id is required"})
	}

	var preparer models.ReferrerProfile
	if err := s.DB.Where("id = ? AND role = ?", req.PreparerID, models.RolePreparer).
		First(&preparer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Preparer not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	res := s.DB.Model(&models.Lead{}).
		Where("id = ?", c.Params("id")).
		Update("assigned_preparer_id", preparer.ID)
	if res.Error != nil {
		log.Printf("DB Error assigning preparer: %v", res.Error)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to assign preparer"})
	}
	if res.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Lead not found"})
	}
	return c.JSON(fiber.Map{"message": "Preparer assigned", "preparer_id": preparer.ID})
}

// DeleteLead soft-deletes; leads are never hard-deleted.
func (s *LeadService) DeleteLead(c *fiber.Ctx) error {
	var lead models.Lead
	if err := s.DB.First(&lead, "id = ?", c.Params("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Lead not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	if err := s.DB.Delete(&lead).Error; err != nil {
		log.Printf("DB Error deleting lead %s: %v", lead.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete lead"})
	}
	return c.JSON(fiber.Map{"message": "Lead deleted"})
}
