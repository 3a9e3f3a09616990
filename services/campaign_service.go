// services/campaign_service.go
package services

import (
	"errors"
	"log"
	"time"

	"taxprep-referral-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CampaignService struct {
	DB       *gorm.DB
	Notifier Notifier
}

func NewCampaignService(db *gorm.DB, notifier Notifier) *CampaignService {
	return &CampaignService{DB: db, Notifier: notifier}
}

// CreateCampaign saves a draft (or scheduled) email campaign.
func (s *CampaignService) CreateCampaign(c *fiber.Ctx) error {
	var req struct {
		Name          string     `json:"name"`
		Subject       string     `json:"subject"`
		Body          string     `json:"body"`
		SegmentStatus string     `json:"segment_status"`
		SegmentState  string     `json:"segment_state"`
		ScheduledAt   *time.Time `json:"scheduled_at"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.Name == "" || req.Subject == "" || req.Body == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "name, subject and body are required"})
	}

	campaign := &models.EmailCampaign{
		ID:            uuid.NewString(),
		Name:          req.Name,
		Subject:       req.Subject,
		Body:          req.Body,
		SegmentStatus: req.SegmentStatus,
		SegmentState:  req.SegmentState,
		Status:        models.CampaignStatusDraft,
		ScheduledAt:   req.ScheduledAt,
	}
	if req.ScheduledAt != nil {
		campaign.Status = models.CampaignStatusScheduled
	}

	if err := s.DB.Create(campaign).Error; err != nil {
		log.Printf("DB Error creating campaign: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create campaign"})
	}
	return c.Status(fiber.StatusCreated).JSON(campaign)
}

// GetCampaigns lists campaigns for the admin dashboard.
func (s *CampaignService) GetCampaigns(c *fiber.Ctx) error {
	var campaigns []models.EmailCampaign
	if err := s.DB.Order("created_at DESC").Find(&campaigns).Error; err != nil {
		log.Printf("DB Error fetching campaigns: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch campaigns"})
	}
	return c.JSON(campaigns)
}

// SendCampaignEndpoint triggers an immediate send of a draft or scheduled
// campaign.
func (s *CampaignService) SendCampaignEndpoint(c *fiber.Ctx) error {
	if err := s.SendCampaign(c.Params("id")); err != nil {
		return RespondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Campaign send started"})
}

// SendCampaign claims the campaign (draft/scheduled → sending, guarded so
// two triggers can't both send) and delivers to the segment. Per-recipient
// failures are recorded, never fatal.
func (s *CampaignService) SendCampaign(campaignID string) error {
	var campaign models.EmailCampaign
	if err := s.DB.First(&campaign, "id = ?", campaignID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &NotFoundError{Msg: "campaign not found"}
		}
		return err
	}

	res := s.DB.Model(&models.EmailCampaign{}).
		Where("id = ? AND status IN ?", campaignID,
			[]models.CampaignStatus{models.CampaignStatusDraft, models.CampaignStatusScheduled}).
		Update("status", models.CampaignStatusSending)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return &ConflictError{Msg: "campaign is not in a sendable state"}
	}

	leadQuery := s.DB.Model(&models.Lead{})
	if campaign.SegmentStatus != "" {
		leadQuery = leadQuery.Where("status = ?", campaign.SegmentStatus)
	}
	if campaign.SegmentState != "" {
		leadQuery = leadQuery.Where("state = ?", campaign.SegmentState)
	}

	var leads []models.Lead
	if err := leadQuery.Find(&leads).Error; err != nil {
		s.DB.Model(&models.EmailCampaign{}).Where("id = ?", campaignID).
			Update("status", models.CampaignStatusFailed)
		return err
	}

	var sent, failed int64
	for _, lead := range leads {
		recipient := models.CampaignRecipient{
			ID:         uuid.NewString(),
			CampaignID: campaignID,
			LeadID:     lead.ID,
			Email:      lead.Email,
		}
		if err := s.Notifier.Send(lead.Email, campaign.Subject, campaign.Body); err != nil {
			failed++
			recipient.Error = err.Error()
			log.Printf("[CAMPAIGN] send to %s failed: %v", lead.Email, err)
		} else {
			sent++
			recipient.Delivered = true
			now := time.Now()
			recipient.SentAt = &now
		}
		if err := s.DB.Create(&recipient).Error; err != nil {
			log.Printf("[CAMPAIGN] failed to record recipient %s: %v", lead.Email, err)
		}
	}

	now := time.Now()
	return s.DB.Model(&models.EmailCampaign{}).Where("id = ?", campaignID).
		Updates(map[string]interface{}{
			"status":       models.CampaignStatusSent,
			"sent_at":      now,
			"sent_count":   sent,
			"failed_count": failed,
		}).Error
}

// GetCampaignRecipients returns the delivery report for a campaign.
func (s *CampaignService) GetCampaignRecipients(c *fiber.Ctx) error {
	var recipients []models.CampaignRecipient
	if err := s.DB.Where("campaign_id = ?", c.Params("id")).
		Order("created_at ASC").Find(&recipients).Error; err != nil {
		log.Printf("DB Error fetching recipients: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch recipients"})
	}
	return c.JSON(recipients)
}
