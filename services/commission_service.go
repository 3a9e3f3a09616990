// services/commission_service.go
package services

import (
	"errors"
	"fmt"
	"log"

	"taxprep-referral-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CommissionService struct {
	DB *gorm.DB
}

func NewCommissionService(db *gorm.DB) *CommissionService {
	return &CommissionService{DB: db}
}

// Calculate applies the locked rate to a transaction amount, rounded
// half-up to cents. Money math goes through decimal so 0.1-style float
// artifacts never reach the ledger.
func Calculate(transactionAmount, lockedRate float64) float64 {
	amt := decimal.NewFromFloat(transactionAmount).
		Mul(decimal.NewFromFloat(lockedRate)).
		Round(2)
	f, _ := amt.Float64()
	return f
}

// RecordConversion creates a PENDING commission for a completed
// transaction on an attributed lead. Idempotent per transaction ID:
// replaying the same transaction returns the existing row untouched.
func (s *CommissionService) RecordConversion(leadID, transactionID string, transactionAmount float64) (*models.Commission, error) {
	if transactionID == "" {
		return nil, &ValidationError{Msg: "transaction_id is required"}
	}
	if transactionAmount <= 0 {
		return nil, &ValidationError{Msg: "transaction amount must be positive"}
	}

	var existing models.Commission
	err := s.DB.Where("transaction_id = ?", transactionID).First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var lead models.Lead
	if err := s.DB.First(&lead, "id = ?", leadID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Msg: "lead not found"}
		}
		return nil, err
	}
	if lead.ReferrerUsername == nil || lead.CommissionRateLockedAt == nil {
		return nil, &ValidationError{Msg: "lead has no attributed referrer"}
	}

	var ref models.ReferrerProfile
	if err := s.DB.Where("username = ?", *lead.ReferrerUsername).First(&ref).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Msg: fmt.Sprintf("referrer %s not found", *lead.ReferrerUsername)}
		}
		return nil, err
	}

	// The rate locked on the lead at attribution time, never ref.CommissionRate.
	commission := &models.Commission{
		ID:                uuid.NewString(),
		ReferrerID:        ref.ID,
		ReferrerUsername:  ref.Username,
		LeadID:            lead.ID,
		TransactionID:     transactionID,
		TransactionAmount: transactionAmount,
		Rate:              lead.CommissionRate,
		Amount:            Calculate(transactionAmount, lead.CommissionRate),
		Status:            models.CommissionStatusPending,
	}

	if err := s.DB.Create(commission).Error; err != nil {
		// Unique index on transaction_id catches the concurrent-replay race.
		var dup models.Commission
		if lookupErr := s.DB.Where("transaction_id = ?", transactionID).First(&dup).Error; lookupErr == nil {
			return &dup, nil
		}
		return nil, err
	}

	log.Printf("[COMMISSION] recorded %s: $%.2f at rate %.4f for referrer %s (tx %s)",
		commission.ID, commission.Amount, commission.Rate, ref.Username, transactionID)
	return commission, nil
}

// --- Handlers ---

// RecordConversionEndpoint is called when a transaction completes (admin or
// payment webhook relay through the gateway).
func (s *CommissionService) RecordConversionEndpoint(c *fiber.Ctx) error {
	var req struct {
		LeadID        string  `json:"lead_id"`
		TransactionID string  `json:"transaction_id"`
		Amount        float64 `json:"amount"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	commission, err := s.RecordConversion(req.LeadID, req.TransactionID, req.Amount)
	if err != nil {
		return RespondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(commission)
}

// GetReferrerCommissions lists a referrer's commissions, optionally by status.
func (s *CommissionService) GetReferrerCommissions(c *fiber.Ctx) error {
	referrerID := c.Params("referrer_id")

	query := s.DB.Where("referrer_id = ?", referrerID)
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var commissions []models.Commission
	if err := query.Order("created_at DESC").Find(&commissions).Error; err != nil {
		log.Printf("DB Error fetching commissions for %s: %v", referrerID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch commissions"})
	}

	// Unattached PENDING commissions are what the referrer can request next.
	var available float64
	for _, cm := range commissions {
		if cm.Status == models.CommissionStatusPending && cm.PayoutRequestID == nil {
			available += cm.Amount
		}
	}

	return c.JSON(fiber.Map{"commissions": commissions, "available_amount": available})
}
