// services/scheduler.go
package services

import (
	"log"
	"time"

	"taxprep-referral-system/models"

	"github.com/go-co-op/gocron/v2"
)

// StartScheduler wires the recurring jobs: scheduled campaign sends,
// appointment reminders, submission-log retention.
func StartScheduler(campaigns *CampaignService, appointments *AppointmentService) {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	// Every minute: send campaigns whose schedule time has arrived
	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			var due []models.EmailCampaign
			now := time.Now()
			err := campaigns.DB.Where("status = ? AND scheduled_at <= ?", models.CampaignStatusScheduled, now).
				Find(&due).Error
			if err != nil {
				log.Printf("[Scheduler] DB error: %v", err)
				return
			}

			for _, campaign := range due {
				if err := campaigns.SendCampaign(campaign.ID); err != nil {
					log.Printf("[Scheduler] Failed to send campaign %s: %v", campaign.ID, err)
				} else {
					log.Printf("[Scheduler] Sent scheduled campaign: %s", campaign.Name)
				}
			}
		}),
	)

	// Every 15 minutes: appointment reminders for the next 24h
	_, _ = sched.NewJob(
		gocron.DurationJob(15*time.Minute),
		gocron.NewTask(appointments.SendUpcomingReminders),
	)

	// Daily: drop submission logs older than 90 days; the fraud velocity
	// window only ever looks back an hour.
	_, _ = sched.NewJob(
		gocron.DurationJob(24*time.Hour),
		gocron.NewTask(func() {
			cutoff := time.Now().AddDate(0, 0, -90)
			res := campaigns.DB.Where("created_at < ?", cutoff).Delete(&models.SubmissionLog{})
			if res.Error != nil {
				log.Printf("[Scheduler] submission log cleanup failed: %v", res.Error)
			} else if res.RowsAffected > 0 {
				log.Printf("[Scheduler] pruned %d old submission logs", res.RowsAffected)
			}
		}),
	)
}
