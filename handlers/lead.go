// handlers/lead.go
package handlers

import (
	"taxprep-referral-system/middleware"
	"taxprep-referral-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupLeadRoutes(app *fiber.App, leadService *services.LeadService) {
	// Public: the marketing form posts here, and referral links land here.
	app.Post("/leads", leadService.CaptureLead)

	// Secured: CRM surface for admins and preparers.
	secured := app.Group("/", middleware.UserContextMiddleware())
	crm := secured.Group("/", middleware.RequireCapability(middleware.CapManageLeads))

	crm.Get("/leads", leadService.GetLeads)
	crm.Get("/leads/:id", leadService.GetLeadByID)
	crm.Put("/leads/:id", leadService.UpdateLead)
	crm.Patch("/leads/:id/assign", leadService.AssignPreparer)
	crm.Delete("/leads/:id", leadService.DeleteLead)
}
