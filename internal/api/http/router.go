package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/bsg-enterprise/ticketing/internal/api/http/handlers"
	"github.com/bsg-enterprise/ticketing/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Users          *handlers.UsersHandler
	Tickets        *handlers.TicketsHandler
	Catalog        *handlers.CatalogHandler
	Categorization *handlers.CategorizationHandler
	Knowledge      *handlers.KnowledgeHandler
	Assets         *handlers.AssetsHandler
	Escalations    *handlers.EscalationsHandler
	AuthMiddleware *auth.AuthMiddleware
	Enforcer       *auth.Enforcer
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health", cfg.Health.Live)
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	api := app.Group("/api")
	can := cfg.Enforcer.RequirePermission

	authGroup := api.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/password/reset/request", cfg.Auth.RequestPasswordReset)
	authGroup.Post("/password/reset/confirm", cfg.Auth.ConfirmPasswordReset)
	authGroup.Get("/me", cfg.AuthMiddleware.Handle, cfg.Auth.Me)
	authGroup.Post("/logout", cfg.AuthMiddleware.Handle, cfg.Auth.Logout)
	authGroup.Post("/password/change", cfg.AuthMiddleware.Handle, cfg.Auth.ChangePassword)

	protected := api.Group("", cfg.AuthMiddleware.Handle)

	users := protected.Group("/users")
	users.Get("/", can(auth.ResourceUsers, auth.ActionRead), cfg.Users.ListUsers)
	users.Get("/technicians", can(auth.ResourceUsers, auth.ActionRead), cfg.Users.ListTechnicians)
	users.Get("/:id", can(auth.ResourceUsers, auth.ActionRead), cfg.Users.GetUser)
	users.Post("/", can(auth.ResourceUsers, auth.ActionManage), cfg.Users.CreateUser)
	users.Put("/:id", can(auth.ResourceUsers, auth.ActionManage), cfg.Users.UpdateUser)
	users.Patch("/:id/status", can(auth.ResourceUsers, auth.ActionManage), cfg.Users.SetUserStatus)

	departments := protected.Group("/departments")
	departments.Get("/", can(auth.ResourceDepartments, auth.ActionRead), cfg.Users.ListDepartments)
	departments.Get("/:id", can(auth.ResourceDepartments, auth.ActionRead), cfg.Users.GetDepartment)
	departments.Post("/", can(auth.ResourceDepartments, auth.ActionManage), cfg.Users.CreateDepartment)
	departments.Put("/:id", can(auth.ResourceDepartments, auth.ActionManage), cfg.Users.UpdateDepartment)

	units := protected.Group("/units")
	units.Get("/", can(auth.ResourceDepartments, auth.ActionRead), cfg.Users.ListUnits)
	units.Post("/", can(auth.ResourceDepartments, auth.ActionManage), cfg.Users.CreateUnit)
	units.Put("/:id", can(auth.ResourceDepartments, auth.ActionManage), cfg.Users.UpdateUnit)

	tickets := protected.Group("/tickets")
	tickets.Post("/", can(auth.ResourceTickets, auth.ActionCreate), cfg.Tickets.CreateTicket)
	tickets.Get("/", can(auth.ResourceTickets, auth.ActionRead), cfg.Tickets.ListTickets)
	tickets.Get("/escalated", can(auth.ResourceEscalations, auth.ActionRead), cfg.Tickets.ListEscalated)
	tickets.Get("/:id", can(auth.ResourceTickets, auth.ActionRead), cfg.Tickets.GetTicket)
	tickets.Put("/:id", can(auth.ResourceTickets, auth.ActionUpdate), cfg.Tickets.UpdateTicket)
	tickets.Patch("/:id/status", can(auth.ResourceTickets, auth.ActionUpdate), cfg.Tickets.UpdateStatus)
	tickets.Post("/:id/assign", can(auth.ResourceTickets, auth.ActionAssign), cfg.Tickets.Assign)
	tickets.Post("/:id/self-assign", can(auth.ResourceTickets, auth.ActionAssign), cfg.Tickets.SelfAssign)
	tickets.Get("/:id/comments", can(auth.ResourceTickets, auth.ActionRead), cfg.Tickets.ListComments)
	tickets.Post("/:id/comments", can(auth.ResourceTickets, auth.ActionComment), cfg.Tickets.AddComment)
	tickets.Get("/:id/history", can(auth.ResourceTickets, auth.ActionRead), cfg.Tickets.ListHistory)
	tickets.Delete("/:id", can(auth.ResourceTickets, auth.ActionDelete), cfg.Tickets.DeleteTicket)
	tickets.Post("/:id/approvals/approve", can(auth.ResourceApprovals, auth.ActionDecide), cfg.Tickets.Approve)
	tickets.Post("/:id/approvals/reject", can(auth.ResourceApprovals, auth.ActionDecide), cfg.Tickets.Reject)

	v2 := protected.Group("/v2/tickets")
	v2.Post("/", can(auth.ResourceTickets, auth.ActionCreate), cfg.Tickets.CreateTicketV2)
	v2.Get("/", can(auth.ResourceTickets, auth.ActionRead), cfg.Tickets.ListTicketsV2)
	v2.Get("/:id", can(auth.ResourceTickets, auth.ActionRead), cfg.Tickets.GetTicket)

	protected.Get("/approvals/pending", can(auth.ResourceApprovals, auth.ActionRead), cfg.Tickets.ListPendingApprovals)

	catalog := protected.Group("/service-catalog")
	catalog.Get("/", can(auth.ResourceCatalog, auth.ActionRead), cfg.Catalog.ListCatalogs)
	catalog.Post("/", can(auth.ResourceCatalog, auth.ActionManage), cfg.Catalog.CreateCatalog)
	catalog.Get("/items/:id", can(auth.ResourceCatalog, auth.ActionRead), cfg.Catalog.GetItem)
	catalog.Put("/items/:id", can(auth.ResourceCatalog, auth.ActionManage), cfg.Catalog.UpdateItem)
	catalog.Delete("/items/:id", can(auth.ResourceCatalog, auth.ActionManage), cfg.Catalog.DeleteItem)
	catalog.Post("/templates", can(auth.ResourceCatalog, auth.ActionManage), cfg.Catalog.CreateTemplate)
	catalog.Get("/templates/:id", can(auth.ResourceCatalog, auth.ActionRead), cfg.Catalog.GetTemplate)
	catalog.Put("/templates/:id/fields", can(auth.ResourceCatalog, auth.ActionManage), cfg.Catalog.ReplaceTemplateFields)
	catalog.Delete("/templates/:id", can(auth.ResourceCatalog, auth.ActionManage), cfg.Catalog.DeleteTemplate)
	catalog.Get("/:id", can(auth.ResourceCatalog, auth.ActionRead), cfg.Catalog.GetCatalog)
	catalog.Put("/:id", can(auth.ResourceCatalog, auth.ActionManage), cfg.Catalog.UpdateCatalog)
	catalog.Delete("/:id", can(auth.ResourceCatalog, auth.ActionManage), cfg.Catalog.DeleteCatalog)
	catalog.Get("/:id/items", can(auth.ResourceCatalog, auth.ActionRead), cfg.Catalog.ListItems)
	catalog.Post("/:id/items", can(auth.ResourceCatalog, auth.ActionManage), cfg.Catalog.CreateItem)

	bsg := protected.Group("/bsg-templates")
	bsg.Get("/", can(auth.ResourceBSGTemplates, auth.ActionRead), cfg.Catalog.ListBSGTemplates)
	bsg.Post("/", can(auth.ResourceBSGTemplates, auth.ActionManage), cfg.Catalog.CreateBSGTemplate)
	bsg.Get("/categories", can(auth.ResourceBSGTemplates, auth.ActionRead), cfg.Catalog.ListBSGCategories)
	bsg.Post("/categories", can(auth.ResourceBSGTemplates, auth.ActionManage), cfg.Catalog.CreateBSGCategory)
	bsg.Get("/master-data/:type", can(auth.ResourceBSGTemplates, auth.ActionRead), cfg.Catalog.ListMasterData)
	bsg.Put("/master-data", can(auth.ResourceBSGTemplates, auth.ActionManage), cfg.Catalog.UpsertMasterData)
	bsg.Get("/:id", can(auth.ResourceBSGTemplates, auth.ActionRead), cfg.Catalog.GetBSGTemplate)
	bsg.Put("/:id", can(auth.ResourceBSGTemplates, auth.ActionManage), cfg.Catalog.UpdateBSGTemplate)
	bsg.Post("/:id/validate", can(auth.ResourceBSGTemplates, auth.ActionRead), cfg.Catalog.ValidateBSGValues)

	categorization := protected.Group("/categorization")
	categorization.Put("/tickets/:id", can(auth.ResourceCategorization, auth.ActionUpdate), cfg.Categorization.Categorize)
	categorization.Get("/uncategorized", can(auth.ResourceCategorization, auth.ActionRead), cfg.Categorization.ListUncategorized)
	categorization.Get("/analytics", can(auth.ResourceCategorization, auth.ActionRead), cfg.Categorization.Analytics)

	knowledge := protected.Group("/knowledge")
	knowledge.Get("/", can(auth.ResourceKnowledge, auth.ActionRead), cfg.Knowledge.Search)
	knowledge.Post("/", can(auth.ResourceKnowledge, auth.ActionCreate), cfg.Knowledge.Create)
	knowledge.Get("/popular", can(auth.ResourceKnowledge, auth.ActionRead), cfg.Knowledge.Popular)
	knowledge.Get("/categories", can(auth.ResourceKnowledge, auth.ActionRead), cfg.Knowledge.ListCategories)
	knowledge.Post("/categories", can(auth.ResourceKnowledge, auth.ActionCreate), cfg.Knowledge.CreateCategory)
	knowledge.Get("/:id", can(auth.ResourceKnowledge, auth.ActionRead), cfg.Knowledge.Get)
	knowledge.Put("/:id", can(auth.ResourceKnowledge, auth.ActionUpdate), cfg.Knowledge.Update)
	knowledge.Patch("/:id/status", can(auth.ResourceKnowledge, auth.ActionPublish), cfg.Knowledge.SetStatus)
	knowledge.Delete("/:id", can(auth.ResourceKnowledge, auth.ActionDelete), cfg.Knowledge.Delete)
	knowledge.Post("/:id/feedback", can(auth.ResourceKnowledge, auth.ActionRead), cfg.Knowledge.Feedback)

	assets := protected.Group("/assets")
	assets.Get("/", can(auth.ResourceAssets, auth.ActionRead), cfg.Assets.List)
	assets.Post("/", can(auth.ResourceAssets, auth.ActionCreate), cfg.Assets.Create)
	assets.Get("/summary", can(auth.ResourceAssets, auth.ActionRead), cfg.Assets.Summary)
	assets.Get("/:id", can(auth.ResourceAssets, auth.ActionRead), cfg.Assets.Get)
	assets.Put("/:id", can(auth.ResourceAssets, auth.ActionUpdate), cfg.Assets.Update)
	assets.Delete("/:id", can(auth.ResourceAssets, auth.ActionDelete), cfg.Assets.Delete)
	assets.Put("/:id/assign", can(auth.ResourceAssets, auth.ActionAssign), cfg.Assets.Assign)
	assets.Get("/:id/maintenance", can(auth.ResourceAssets, auth.ActionRead), cfg.Assets.ListMaintenance)
	assets.Post("/:id/maintenance", can(auth.ResourceAssets, auth.ActionUpdate), cfg.Assets.AddMaintenance)

	if cfg.Escalations != nil {
		protected.Post("/escalations/run", can(auth.ResourceEscalations, auth.ActionRun), cfg.Escalations.Run)
	}
}
