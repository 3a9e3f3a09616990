// services/payout_service.go
package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"taxprep-referral-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type PayoutService struct {
	DB       *gorm.DB
	Notifier Notifier
}

func NewPayoutService(db *gorm.DB, notifier Notifier) *PayoutService {
	return &PayoutService{DB: db, Notifier: notifier}
}

// RequestPayout batches the given PENDING commissions into a new payout
// request. The claim happens inside one transaction: a commission already
// attached to another non-REJECTED payout makes the whole request fail
// with ConflictError and nothing is mutated. Under two concurrent
// overlapping requests the guarded update lets at most one win.
func (s *PayoutService) RequestPayout(referrerID string, commissionIDs []string, method, details string) (*models.PayoutRequest, error) {
	if len(commissionIDs) == 0 {
		return nil, &ValidationError{Msg: "at least one commission is required"}
	}
	if method == "" || details == "" {
		return nil, &ValidationError{Msg: "payout method and details are required"}
	}

	var ref models.ReferrerProfile
	if err := s.DB.First(&ref, "id = ?", referrerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Msg: "referrer not found"}
		}
		return nil, err
	}

	payout := &models.PayoutRequest{
		ID:               uuid.NewString(),
		ReferrerID:       ref.ID,
		ReferrerUsername: ref.Username,
		Method:           method,
		Details:          details,
		Status:           models.PayoutStatusPending,
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var commissions []models.Commission
		if err := tx.Where("id IN ? AND referrer_id = ?", commissionIDs, ref.ID).
			Find(&commissions).Error; err != nil {
			return err
		}
		if len(commissions) != len(commissionIDs) {
			return &NotFoundError{Msg: "one or more commissions not found for this referrer"}
		}

		amount := decimal.Zero
		for _, cm := range commissions {
			amount = amount.Add(decimal.NewFromFloat(cm.Amount))
		}
		if !amount.IsPositive() {
			return &ValidationError{Msg: "payout amount must be positive"}
		}
		payout.Amount, _ = amount.Round(2).Float64()

		if err := tx.Create(payout).Error; err != nil {
			return err
		}

		// Atomic claim: only unattached PENDING commissions are claimable.
		// A row already claimed by a concurrent request drops the count and
		// rolls the whole thing back.
		res := tx.Model(&models.Commission{}).
			Where("id IN ? AND referrer_id = ? AND status = ? AND payout_request_id IS NULL",
				commissionIDs, ref.ID, models.CommissionStatusPending).
			Update("payout_request_id", payout.ID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != int64(len(commissionIDs)) {
			return &ConflictError{Msg: "one or more commissions are already claimed by another payout"}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(ref.Email, "Payout request received",
		fmt.Sprintf("Your payout request for $%.2f is pending review.", payout.Amount))
	return payout, nil
}

// ApprovePayout finalizes a PENDING payout with the reference of the
// payment that was sent. The payout and every attached commission move to
// PAID in one transaction; a reader can never observe them split.
func (s *PayoutService) ApprovePayout(payoutID, paymentRef string) error {
	if paymentRef == "" {
		return &ValidationError{Msg: "payment reference is required"}
	}

	var ref models.ReferrerProfile
	var amount float64
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		payout, err := s.pendingPayout(tx, payoutID)
		if err != nil {
			return err
		}

		now := time.Now()
		res := tx.Model(&models.PayoutRequest{}).
			Where("id = ? AND status = ?", payoutID, models.PayoutStatusPending).
			Updates(map[string]interface{}{
				"status":      models.PayoutStatusPaid,
				"payment_ref": paymentRef,
				"decided_at":  now,
				"paid_at":     now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return &ConflictError{Msg: "payout is no longer pending"}
		}

		if err := tx.Model(&models.Commission{}).
			Where("payout_request_id = ?", payoutID).
			Updates(map[string]interface{}{
				"status":      models.CommissionStatusPaid,
				"payment_ref": paymentRef,
				"paid_at":     now,
			}).Error; err != nil {
			return err
		}

		amount = payout.Amount
		return tx.First(&ref, "id = ?", payout.ReferrerID).Error
	})
	if err != nil {
		return err
	}

	s.notify(ref.Email, "Payout sent",
		fmt.Sprintf("Your payout of $%.2f was sent. Payment reference: %s", amount, paymentRef))
	return nil
}

// RejectPayout returns every commission attached to the payout to the
// PENDING pool. Exactly the attached set reverts, atomically with the
// payout row.
func (s *PayoutService) RejectPayout(payoutID, notes string) error {
	var ref models.ReferrerProfile
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		payout, err := s.pendingPayout(tx, payoutID)
		if err != nil {
			return err
		}

		now := time.Now()
		res := tx.Model(&models.PayoutRequest{}).
			Where("id = ? AND status = ?", payoutID, models.PayoutStatusPending).
			Updates(map[string]interface{}{
				"status":      models.PayoutStatusRejected,
				"admin_notes": notes,
				"decided_at":  now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return &ConflictError{Msg: "payout is no longer pending"}
		}

		if err := tx.Model(&models.Commission{}).
			Where("payout_request_id = ?", payoutID).
			Update("payout_request_id", nil).Error; err != nil {
			return err
		}

		return tx.First(&ref, "id = ?", payout.ReferrerID).Error
	})
	if err != nil {
		return err
	}

	body := "Your payout request was rejected. The commissions are available for a new request."
	if notes != "" {
		body += " Notes: " + notes
	}
	s.notify(ref.Email, "Payout request rejected", body)
	return nil
}

// pendingPayout loads a payout and rejects wrong-state transitions before
// any write happens.
func (s *PayoutService) pendingPayout(tx *gorm.DB, payoutID string) (*models.PayoutRequest, error) {
	var payout models.PayoutRequest
	if err := tx.First(&payout, "id = ?", payoutID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Msg: "payout request not found"}
		}
		return nil, err
	}
	if payout.Status != models.PayoutStatusPending {
		return nil, &ConflictError{Msg: fmt.Sprintf("payout is %s, only pending payouts can transition", payout.Status)}
	}
	return &payout, nil
}

// notify is fire-and-forget relative to the state transition.
func (s *PayoutService) notify(to, subject, body string) {
	if to == "" {
		return
	}
	go func() {
		if err := s.Notifier.Send(to, subject, body); err != nil {
			log.Printf("[PAYOUT] notification to %s failed (non-fatal): %v", to, err)
		}
	}()
}

// --- Handlers ---

// RequestPayoutEndpoint lets an authenticated referrer request a payout.
func (s *PayoutService) RequestPayoutEndpoint(c *fiber.Ctx) error {
	var req struct {
		ReferrerID    string   `json:"referrer_id"`
		CommissionIDs []string `json:"commission_ids"`
		Method        string   `json:"method"`
		Details       string   `json:"details"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	payout, err := s.RequestPayout(req.ReferrerID, req.CommissionIDs, req.Method, req.Details)
	if err != nil {
		return RespondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"payout_id": payout.ID, "payout": payout})
}

// ApprovePayoutEndpoint is admin-only (enforced by route middleware).
func (s *PayoutService) ApprovePayoutEndpoint(c *fiber.Ctx) error {
	var req struct {
		PaymentRef string `json:"payment_ref"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if err := s.ApprovePayout(c.Params("id"), req.PaymentRef); err != nil {
		return RespondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Payout approved and paid"})
}

// RejectPayoutEndpoint is admin-only (enforced by route middleware).
func (s *PayoutService) RejectPayoutEndpoint(c *fiber.Ctx) error {
	var req struct {
		Notes string `json:"notes"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if err := s.RejectPayout(c.Params("id"), req.Notes); err != nil {
		return RespondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Payout rejected, commissions returned to pending"})
}

// GetPayouts lists payout requests, optionally filtered by status or referrer.
func (s *PayoutService) GetPayouts(c *fiber.Ctx) error {
	query := s.DB.Preload("Commissions")
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if referrerID := c.Query("referrer_id"); referrerID != "" {
		query = query.Where("referrer_id = ?", referrerID)
	}

	var payouts []models.PayoutRequest
	if err := query.Order("created_at DESC").Find(&payouts).Error; err != nil {
		log.Printf("DB Error fetching payouts: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch payouts"})
	}
	return c.JSON(payouts)
}
