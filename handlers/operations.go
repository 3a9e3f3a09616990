// handlers/operations.go
package handlers

import (
	"taxprep-referral-system/middleware"
	"taxprep-referral-system/services"

	"github.com/gofiber/fiber/v2"
)

// SetupOperationsRoutes covers the back-office surfaces: documents,
// appointments, campaigns and the landing-page content pipeline.
func SetupOperationsRoutes(app *fiber.App, documentService *services.DocumentService,
	appointmentService *services.AppointmentService, campaignService *services.CampaignService,
	contentService *services.ContentService) {

	// Public: published city pages are served without user context.
	app.Get("/pages/:slug", contentService.GetLandingPageBySlug)

	secured := app.Group("/", middleware.UserContextMiddleware())

	docs := secured.Group("/", middleware.RequireCapability(middleware.CapManageDocuments))
	docs.Post("/folders", documentService.CreateFolder)
	docs.Delete("/folders/:id", documentService.DeleteFolder)
	docs.Post("/documents", documentService.UploadDocument)
	docs.Post("/documents/bulk", documentService.BulkUploadDocuments)
	docs.Get("/leads/:lead_id/documents", documentService.GetLeadDocuments)
	docs.Delete("/documents/:id", documentService.DeleteDocument)

	appts := secured.Group("/", middleware.RequireCapability(middleware.CapBookAppointment))
	appts.Post("/appointments", appointmentService.BookAppointment)
	appts.Get("/appointments", appointmentService.GetAppointments)
	appts.Post("/appointments/:id/cancel", appointmentService.CancelAppointment)
	appts.Post("/appointments/:id/complete", appointmentService.CompleteAppointment)

	campaigns := secured.Group("/admin", middleware.RequireCapability(middleware.CapManageCampaigns))
	campaigns.Post("/campaigns", campaignService.CreateCampaign)
	campaigns.Get("/campaigns", campaignService.GetCampaigns)
	campaigns.Post("/campaigns/:id/send", campaignService.SendCampaignEndpoint)
	campaigns.Get("/campaigns/:id/recipients", campaignService.GetCampaignRecipients)

	content := secured.Group("/admin", middleware.RequireCapability(middleware.CapManageContent))
	content.Post("/pages/seed", contentService.SeedCities)
	content.Get("/pages", contentService.GetLandingPages)
	content.Post("/pages/retry-failed", contentService.RetryFailedPages)
}
