package middleware

import (
	"net/http/httptest"
	"testing"

	"taxprep-referral-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleAllowed(t *testing.T) {
	cases := []struct {
		role    models.Role
		cap     Capability
		allowed bool
	}{
		{models.RoleAdmin, CapDecidePayouts, true},
		{models.RoleAdmin, CapManageContent, true},
		{models.RolePreparer, CapManageLeads, true},
		{models.RolePreparer, CapBookAppointment, true},
		{models.RolePreparer, CapDecidePayouts, false},
		{models.RolePreparer, CapManageReferrers, false},
		{models.RoleAffiliate, CapRequestPayout, true},
		{models.RoleAffiliate, CapManageLeads, false},
		{models.Role("superuser"), CapDecidePayouts, false},
		{models.Role(""), CapRequestPayout, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.allowed, RoleAllowed(tc.role, tc.cap),
			"role=%s cap=%s", tc.role, tc.cap)
	}
}

func newAuthTestApp(cap Capability) *fiber.App {
	app := fiber.New()
	app.Get("/secured", UserContextMiddleware(), RequireCapability(cap), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func TestSecuredRouteRequiresUserID(t *testing.T) {
	app := newAuthTestApp(CapManageLeads)

	req := httptest.NewRequest("GET", "/secured", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestRequireCapabilityDeniesWrongRole(t *testing.T) {
	app := newAuthTestApp(CapDecidePayouts)

	req := httptest.NewRequest("GET", "/secured", nil)
	req.Header.Set("X-User-ID", "u1")
	req.Header.Set("X-User-Roles", "affiliate")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestRequireCapabilityAllowsMatchingRole(t *testing.T) {
	app := newAuthTestApp(CapDecidePayouts)

	req := httptest.NewRequest("GET", "/secured", nil)
	req.Header.Set("X-User-ID", "u1")
	req.Header.Set("X-User-Roles", "affiliate, admin")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestUnknownRolesCarryNoCapabilities(t *testing.T) {
	app := newAuthTestApp(CapManageLeads)

	req := httptest.NewRequest("GET", "/secured", nil)
	req.Header.Set("X-User-ID", "u1")
	req.Header.Set("X-User-Roles", "superuser,root")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}
