// handlers/referral.go
package handlers

import (
	"taxprep-referral-system/middleware"
	"taxprep-referral-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupReferralRoutes(app *fiber.App, referrerService *services.ReferrerService,
	commissionService *services.CommissionService, payoutService *services.PayoutService) {

	// Public: shareable referral links redirect through here.
	app.Get("/r/:code", referrerService.TrackingRedirect)

	secured := app.Group("/", middleware.UserContextMiddleware())

	// Referrer self-service
	payouts := secured.Group("/", middleware.RequireCapability(middleware.CapRequestPayout))
	payouts.Get("/referrers/:referrer_id/commissions", commissionService.GetReferrerCommissions)
	payouts.Post("/payouts", payoutService.RequestPayoutEndpoint)
	payouts.Get("/payouts", payoutService.GetPayouts)
	payouts.Patch("/referrers/:id/vanity-code", referrerService.SetVanityCode)

	// Admin: profile management and conversion recording
	admin := secured.Group("/admin", middleware.RequireCapability(middleware.CapManageReferrers))
	admin.Post("/referrers", referrerService.CreateReferrer)
	admin.Get("/referrers", referrerService.GetReferrers)
	admin.Get("/referrers/:id", referrerService.GetReferrerByID)
	admin.Put("/referrers/:id", referrerService.UpdateReferrer)
	admin.Post("/conversions", commissionService.RecordConversionEndpoint)

	// Admin: payout decisions
	decisions := secured.Group("/admin", middleware.RequireCapability(middleware.CapDecidePayouts))
	decisions.Post("/payouts/:id/approve", payoutService.ApprovePayoutEndpoint)
	decisions.Post("/payouts/:id/reject", payoutService.RejectPayoutEndpoint)
}
