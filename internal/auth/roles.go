package auth

import (
	"fmt"
	"sync"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/bsg-enterprise/ticketing/internal/domain"
	apperrors "github.com/bsg-enterprise/ticketing/pkg/util/errorutil"
)

// Resources guarded by the enforcer.
const (
	ResourceTickets        = "tickets"
	ResourceApprovals      = "approvals"
	ResourceCatalog        = "catalog"
	ResourceBSGTemplates   = "bsg_templates"
	ResourceCategorization = "categorization"
	ResourceKnowledge      = "knowledge"
	ResourceAssets         = "assets"
	ResourceUsers          = "users"
	ResourceDepartments    = "departments"
	ResourceEscalations    = "escalations"
)

// Actions checked against resources.
const (
	ActionRead            = "read"
	ActionCreate          = "create"
	ActionUpdate          = "update"
	ActionDelete          = "delete"
	ActionManage          = "manage"
	ActionAssign          = "assign"
	ActionComment         = "comment"
	ActionCommentInternal = "comment_internal"
	ActionDecide          = "decide"
	ActionPublish         = "publish"
	ActionRun             = "run"
)

const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && (p.obj == "*" || r.obj == p.obj) && (p.act == "*" || r.act == p.act)
`

var defaultPolicies = [][]string{
	{"admin", "*", "*"},

	{"manager", ResourceTickets, ActionCreate},
	{"manager", ResourceTickets, ActionRead},
	{"manager", ResourceTickets, ActionUpdate},
	{"manager", ResourceTickets, ActionAssign},
	{"manager", ResourceTickets, ActionComment},
	{"manager", ResourceTickets, ActionCommentInternal},
	{"manager", ResourceApprovals, ActionRead},
	{"manager", ResourceApprovals, ActionDecide},
	{"manager", ResourceCatalog, ActionRead},
	{"manager", ResourceBSGTemplates, ActionRead},
	{"manager", ResourceCategorization, ActionRead},
	{"manager", ResourceCategorization, ActionUpdate},
	{"manager", ResourceKnowledge, ActionRead},
	{"manager", ResourceKnowledge, ActionCreate},
	{"manager", ResourceKnowledge, ActionUpdate},
	{"manager", ResourceKnowledge, ActionPublish},
	{"manager", ResourceKnowledge, ActionDelete},
	{"manager", ResourceAssets, ActionRead},
	{"manager", ResourceAssets, ActionCreate},
	{"manager", ResourceAssets, ActionUpdate},
	{"manager", ResourceAssets, ActionDelete},
	{"manager", ResourceAssets, ActionAssign},
	{"manager", ResourceUsers, ActionRead},
	{"manager", ResourceDepartments, ActionRead},
	{"manager", ResourceEscalations, ActionRead},

	{"technician", ResourceTickets, ActionCreate},
	{"technician", ResourceTickets, ActionRead},
	{"technician", ResourceTickets, ActionUpdate},
	{"technician", ResourceTickets, ActionAssign},
	{"technician", ResourceTickets, ActionComment},
	{"technician", ResourceTickets, ActionCommentInternal},
	{"technician", ResourceCatalog, ActionRead},
	{"technician", ResourceBSGTemplates, ActionRead},
	{"technician", ResourceCategorization, ActionRead},
	{"technician", ResourceCategorization, ActionUpdate},
	{"technician", ResourceKnowledge, ActionRead},
	{"technician", ResourceKnowledge, ActionCreate},
	{"technician", ResourceKnowledge, ActionUpdate},
	{"technician", ResourceKnowledge, ActionPublish},
	{"technician", ResourceAssets, ActionRead},
	{"technician", ResourceAssets, ActionCreate},
	{"technician", ResourceAssets, ActionUpdate},
	{"technician", ResourceUsers, ActionRead},
	{"technician", ResourceDepartments, ActionRead},
	{"technician", ResourceEscalations, ActionRead},

	{"requester", ResourceTickets, ActionCreate},
	{"requester", ResourceTickets, ActionRead},
	{"requester", ResourceTickets, ActionUpdate},
	{"requester", ResourceTickets, ActionComment},
	{"requester", ResourceCatalog, ActionRead},
	{"requester", ResourceBSGTemplates, ActionRead},
	{"requester", ResourceKnowledge, ActionRead},
	{"requester", ResourceDepartments, ActionRead},
}

// Enforcer wraps a casbin enforcer loaded with the role policy table.
type Enforcer struct {
	enforcer *casbin.Enforcer
	mu       sync.RWMutex
	logger   *zap.Logger
}

// NewEnforcer builds an in-memory enforcer with the default role policies.
func NewEnforcer(logger *zap.Logger) (*Enforcer, error) {
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, fmt.Errorf("failed to parse rbac model: %w", err)
	}
	enforcer, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}
	if _, err := enforcer.AddPolicies(defaultPolicies); err != nil {
		return nil, fmt.Errorf("failed to load default policies: %w", err)
	}
	return &Enforcer{enforcer: enforcer, logger: logger}, nil
}

// Allowed reports whether role may perform action on resource.
func (e *Enforcer) Allowed(role domain.Role, resource, action string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	ok, err := e.enforcer.Enforce(string(role), resource, action)
	if err != nil {
		e.logger.Error("permission check failed", zap.Error(err),
			zap.String("role", string(role)), zap.String("resource", resource), zap.String("action", action))
		return false
	}
	return ok
}

// RequirePermission rejects callers whose role lacks the permission.
func (e *Enforcer) RequirePermission(resource, action string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if !e.Allowed(principal.Role(), resource, action) {
			return apperrors.NewForbidden("insufficient permissions")
		}
		return c.Next()
	}
}

// RequireRoles restricts a route to the listed roles.
func RequireRoles(allowed ...domain.Role) fiber.Handler {
	allowedSet := make(map[domain.Role]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if _, exists := allowedSet[principal.Role()]; !exists {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}
