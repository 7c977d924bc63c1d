package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/bsg-enterprise/ticketing/internal/api/dto"
	"github.com/bsg-enterprise/ticketing/internal/service"
)

// CategorizationHandler classifies resolved work and reports on it.
type CategorizationHandler struct {
	categorization *service.CategorizationService
}

// NewCategorizationHandler constructs handler.
func NewCategorizationHandler(categorization *service.CategorizationService) *CategorizationHandler {
	return &CategorizationHandler{categorization: categorization}
}

// Categorize PUT /api/categorization/tickets/:id.
func (h *CategorizationHandler) Categorize(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.CategorizationRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ticket, err := h.categorization.Categorize(c.UserContext(), user, c.Params("id"), service.CategorizationInput{
		RootCause:     req.RootCause,
		IssueCategory: req.IssueCategory,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(&service.TicketDetail{Ticket: ticket})})
}

// ListUncategorized GET /api/categorization/uncategorized.
func (h *CategorizationHandler) ListUncategorized(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	page := parsePage(c)
	tickets, total, err := h.categorization.ListUncategorized(c.UserContext(), user, optionalQuery(c, "department_id"), service.Page{
		Limit:  page.PageSize,
		Offset: page.Offset(),
	})
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketSummary(&tickets[i]))
	}
	return c.JSON(fiber.Map{
		"data":       items,
		"pagination": dto.Pagination{Page: page.Page, PageSize: page.PageSize, Total: total},
	})
}

// Analytics GET /api/categorization/analytics.
func (h *CategorizationHandler) Analytics(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	from, err := parseTime(c.Query("from"))
	if err != nil {
		return err
	}
	to, err := parseTime(c.Query("to"))
	if err != nil {
		return err
	}
	result, err := h.categorization.Analytics(c.UserContext(), user, service.AnalyticsRange{
		DepartmentID: optionalQuery(c, "department_id"),
		From:         from,
		To:           to,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": result})
}
