// services/appointment_service.go
package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"taxprep-referral-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AppointmentService struct {
	DB       *gorm.DB
	Notifier Notifier
}

func NewAppointmentService(db *gorm.DB, notifier Notifier) *AppointmentService {
	return &AppointmentService{DB: db, Notifier: notifier}
}

// BookAppointment schedules a lead with a preparer. A preparer cannot be
// double-booked: the overlap check and the insert run in one transaction.
func (s *AppointmentService) BookAppointment(c *fiber.Ctx) error {
	var req struct {
		LeadID     string    `json:"lead_id"`
		PreparerID string    `json:"preparer_id"`
		StartsAt   time.Time `json:"starts_at"`
		EndsAt     time.Time `json:"ends_at"`
		Location   string    `json:"location"`
		Notes      string    `json:"notes"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.LeadID == "" || req.PreparerID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "lead_id and preparer_id are required"})
	}
	if !req.EndsAt.After(req.StartsAt) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "ends_at must be after starts_at"})
	}
	if req.StartsAt.Before(time.Now()) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "appointment must be in the future"})
	}

	var lead models.Lead
	if err := s.DB.First(&lead, "id = ?", req.LeadID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Lead not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	appt := &models.Appointment{
		ID:         uuid.NewString(),
		LeadID:     req.LeadID,
		PreparerID: req.PreparerID,
		StartsAt:   req.StartsAt,
		EndsAt:     req.EndsAt,
		Location:   req.Location,
		Notes:      req.Notes,
		Status:     models.AppointmentStatusBooked,
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var overlapping int64
		if err := tx.Model(&models.Appointment{}).
			Where("preparer_id = ? AND status = ? AND starts_at < ? AND ends_at > ?",
				req.PreparerID, models.AppointmentStatusBooked, req.EndsAt, req.StartsAt).
			Count(&overlapping).Error; err != nil {
			return err
		}
		if overlapping > 0 {
			return &ConflictError{Msg: "preparer already has an appointment in that window"}
		}
		return tx.Create(appt).Error
	})
	if err != nil {
		var ce *ConflictError
		if errors.As(err, &ce) {
			return RespondError(c, err)
		}
		log.Printf("DB Error booking appointment: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to book appointment"})
	}

	// Lead moves along the funnel; confirmation is best-effort.
	s.DB.Model(&models.Lead{}).Where("id = ?", lead.ID).Update("status", models.LeadStatusScheduled)
	go func() {
		body := fmt.Sprintf("Your tax appointment is booked for %s.", appt.StartsAt.Format(time.RFC1123))
		if err := s.Notifier.Send(lead.Email, "Appointment confirmed", body); err != nil {
			log.Printf("[APPT] confirmation to %s failed (non-fatal): %v", lead.Email, err)
		}
	}()

	return c.Status(fiber.StatusCreated).JSON(appt)
}

// GetAppointments lists appointments, filterable by preparer, lead or day.
func (s *AppointmentService) GetAppointments(c *fiber.Ctx) error {
	query := s.DB.Model(&models.Appointment{})
	if preparerID := c.Query("preparer_id"); preparerID != "" {
		query = query.Where("preparer_id = ?", preparerID)
	}
	if leadID := c.Query("lead_id"); leadID != "" {
		query = query.Where("lead_id = ?", leadID)
	}
	if day := c.Query("date"); day != "" {
		parsed, err := time.Parse("2006-01-02", day)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid date, expected YYYY-MM-DD"})
		}
		query = query.Where("starts_at >= ? AND starts_at < ?", parsed, parsed.Add(24*time.Hour))
	}

	var appts []models.Appointment
	if err := query.Order("starts_at ASC").Find(&appts).Error; err != nil {
		log.Printf("DB Error fetching appointments: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch appointments"})
	}
	return c.JSON(appts)
}

// CancelAppointment marks a booked appointment cancelled.
func (s *AppointmentService) CancelAppointment(c *fiber.Ctx) error {
	res := s.DB.Model(&models.Appointment{}).
		Where("id = ? AND status = ?", c.Params("id"), models.AppointmentStatusBooked).
		Update("status", models.AppointmentStatusCancelled)
	if res.Error != nil {
		log.Printf("DB Error cancelling appointment: %v", res.Error)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to cancel appointment"})
	}
	if res.RowsAffected == 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Appointment not found or not booked"})
	}
	return c.JSON(fiber.Map{"message": "Appointment cancelled"})
}

// CompleteAppointment marks a booked appointment completed.
func (s *AppointmentService) CompleteAppointment(c *fiber.Ctx) error {
	res := s.DB.Model(&models.Appointment{}).
		Where("id = ? AND status = ?", c.Params("id"), models.AppointmentStatusBooked).
		Update("status", models.AppointmentStatusCompleted)
	if res.Error != nil {
		log.Printf("DB Error completing appointment: %v", res.Error)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update appointment"})
	}
	if res.RowsAffected == 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Appointment not found or not booked"})
	}
	return c.JSON(fiber.Map{"message": "Appointment completed"})
}

// SendUpcomingReminders emails leads with appointments inside the next 24h
// that have not been reminded yet. Called from the scheduler.
func (s *AppointmentService) SendUpcomingReminders() {
	now := time.Now()
	var appts []models.Appointment
	err := s.DB.Where("status = ? AND reminder_sent_at IS NULL AND starts_at BETWEEN ? AND ?",
		models.AppointmentStatusBooked, now, now.Add(24*time.Hour)).
		Find(&appts).Error
	if err != nil {
		log.Printf("[Scheduler] reminder query failed: %v", err)
		return
	}

	for _, appt := range appts {
		var lead models.Lead
		if err := s.DB.First(&lead, "id = ?", appt.LeadID).Error; err != nil {
			continue
		}
		body := fmt.Sprintf("Reminder: your tax appointment is %s.", appt.StartsAt.Format(time.RFC1123))
		if err := s.Notifier.Send(lead.Email, "Appointment reminder", body); err != nil {
			log.Printf("[Scheduler] reminder to %s failed: %v", lead.Email, err)
			continue
		}
		s.DB.Model(&models.Appointment{}).
			Where("id = ?", appt.ID).
			Update("reminder_sent_at", time.Now())
	}
}
