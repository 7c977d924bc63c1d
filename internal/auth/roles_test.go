package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bsg-enterprise/ticketing/internal/domain"
	apperrors "github.com/bsg-enterprise/ticketing/pkg/util/errorutil"
)

func TestEnforcer_Allowed(t *testing.T) {
	e, err := NewEnforcer(zap.NewNop())
	require.NoError(t, err)

	tests := []struct {
		role     domain.Role
		resource string
		action   string
		want     bool
	}{
		{domain.RoleAdmin, ResourceUsers, ActionManage, true},
		{domain.RoleAdmin, ResourceEscalations, ActionRun, true},
		{domain.RoleManager, ResourceApprovals, ActionDecide, true},
		{domain.RoleTechnician, ResourceApprovals, ActionDecide, false},
		{domain.RoleTechnician, ResourceTickets, ActionCommentInternal, true},
		{domain.RoleRequester, ResourceTickets, ActionCommentInternal, false},
		{domain.RoleRequester, ResourceTickets, ActionCreate, true},
		{domain.RoleRequester, ResourceCategorization, ActionUpdate, false},
		{domain.RoleRequester, ResourceKnowledge, ActionPublish, false},
		{domain.RoleManager, ResourceCatalog, ActionManage, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.role)+"/"+tt.resource+"/"+tt.action, func(t *testing.T) {
			assert.Equal(t, tt.want, e.Allowed(tt.role, tt.resource, tt.action))
		})
	}
}

func TestRequirePermission(t *testing.T) {
	e, err := NewEnforcer(zap.NewNop())
	require.NoError(t, err)

	newApp := func(role domain.Role) *fiber.App {
		app := fiber.New(fiber.Config{ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.SendStatus(apperrors.ToDomainError(err).HTTPStatus)
		}})
		app.Use(func(c *fiber.Ctx) error {
			WithPrincipal(c, &Principal{User: &domain.User{ID: "u1", Role: role, Status: domain.UserStatusActive}})
			return c.Next()
		})
		app.Get("/", e.RequirePermission(ResourceApprovals, ActionDecide), func(c *fiber.Ctx) error {
			return c.SendStatus(http.StatusNoContent)
		})
		return app
	}

	resp, err := newApp(domain.RoleManager).Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, err = newApp(domain.RoleRequester).Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
