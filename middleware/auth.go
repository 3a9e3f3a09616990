// middleware/auth.go
package middleware

import (
	"log"
	"strings"

	"taxprep-referral-system/models"

	"github.com/gofiber/fiber/v2"
)

// Capability names a single privileged action. The role → capability
// table below is the only place the authorization rule is defined;
// every entry point consults it through RequireCapability.
type Capability string

const (
	CapManageLeads     Capability = "manage_leads"
	CapManageReferrers Capability = "manage_referrers"
	CapRequestPayout   Capability = "request_payout"
	CapDecidePayouts   Capability = "decide_payouts"
	CapManageDocuments Capability = "manage_documents"
	CapBookAppointment Capability = "book_appointments"
	CapManageCampaigns Capability = "manage_campaigns"
	CapManageContent   Capability = "manage_content"
)

var roleCapabilities = map[models.Role]map[Capability]bool{
	models.RoleAdmin: {
		CapManageLeads:     true,
		CapManageReferrers: true,
		CapRequestPayout:   true,
		CapDecidePayouts:   true,
		CapManageDocuments: true,
		CapBookAppointment: true,
		CapManageCampaigns: true,
		CapManageContent:   true,
	},
	models.RolePreparer: {
		CapManageLeads:     true,
		CapRequestPayout:   true,
		CapManageDocuments: true,
		CapBookAppointment: true,
	},
	models.RoleAffiliate: {
		CapRequestPayout: true,
	},
}

// RoleAllowed is the single capability check consulted at every entry point.
func RoleAllowed(role models.Role, cap Capability) bool {
	return roleCapabilities[role][cap]
}

// UserContextMiddleware extracts user identity and roles set by the Gateway
// and attaches them to the request context. Secured routes require a user ID.
func UserContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Get("X-User-ID")
		rolesStr := c.Get("X-User-Roles")

		if userID == "" {
			log.Printf("[USER_CTX] X-User-ID required but missing on secured route: %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing X-User-ID: request must come through gateway with auth context",
			})
		}

		var roles []models.Role
		for _, r := range strings.Split(rolesStr, ",") {
			switch role := models.Role(strings.TrimSpace(r)); role {
			case models.RoleAdmin, models.RolePreparer, models.RoleAffiliate:
				roles = append(roles, role)
			case "":
				// skip empty segments
			default:
				// Unknown roles carry no capabilities; log and drop.
				log.Printf("[USER_CTX] ignoring unknown role %q for user %s", r, userID)
			}
		}

		c.Locals("user_id", userID)
		c.Locals("user_roles", roles)
		return c.Next()
	}
}

// RequireCapability gates a route on the capability table. Runs after
// UserContextMiddleware.
func RequireCapability(cap Capability) fiber.Handler {
	return func(c *fiber.Ctx) error {
		roles, _ := c.Locals("user_roles").([]models.Role)
		for _, role := range roles {
			if RoleAllowed(role, cap) {
				return c.Next()
			}
		}
		log.Printf("[AUTHZ] user %v denied capability %s on %s", c.Locals("user_id"), cap, c.Path())
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "insufficient permissions for " + string(cap),
		})
	}
}
