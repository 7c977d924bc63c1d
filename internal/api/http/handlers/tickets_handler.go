package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/bsg-enterprise/ticketing/internal/api/dto"
	"github.com/bsg-enterprise/ticketing/internal/domain"
	"github.com/bsg-enterprise/ticketing/internal/service"
	apperrors "github.com/bsg-enterprise/ticketing/pkg/util/errorutil"
)

// TicketsHandler manages ticket endpoints for every role; visibility is enforced by the service.
type TicketsHandler struct {
	tickets    *service.TicketService
	assignment *service.AssignmentService
	approvals  *service.ApprovalService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService, assignment *service.AssignmentService, approvals *service.ApprovalService) *TicketsHandler {
	return &TicketsHandler{tickets: ticketService, assignment: assignment, approvals: approvals}
}

// CreateTicket POST /api/tickets. Template fields are ignored; use the v2 endpoint for those.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	return h.create(c, false)
}

// CreateTicketV2 POST /api/v2/tickets.
func (h *TicketsHandler) CreateTicketV2(c *fiber.Ctx) error {
	return h.create(c, true)
}

func (h *TicketsHandler) create(c *fiber.Ctx, withTemplates bool) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	input := service.TicketCreateInput{
		Title:        req.Title,
		Description:  req.Description,
		Priority:     req.Priority,
		DepartmentID: req.DepartmentID,
		UnitID:       req.UnitID,
		AssetID:      req.AssetID,
	}
	if withTemplates {
		input.ServiceItemID = req.ServiceItemID
		input.ServiceTemplateID = req.ServiceTemplateID
		input.BSGTemplateID = req.BSGTemplateID
		input.CustomFields = req.CustomFields
	}
	ticket, err := h.tickets.CreateTicket(c.UserContext(), user, input)
	if err != nil {
		return err
	}
	return created(c, ticketDetail(&service.TicketDetail{Ticket: ticket}))
}

// ListTickets GET /api/tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	items, _, _, err := h.list(c, nil)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": items})
}

// ListTicketsV2 GET /api/v2/tickets.
func (h *TicketsHandler) ListTicketsV2(c *fiber.Ctx) error {
	items, total, page, err := h.list(c, nil)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data":       items,
		"pagination": dto.Pagination{Page: page.Page, PageSize: page.PageSize, Total: total},
	})
}

// ListEscalated GET /api/tickets/escalated.
func (h *TicketsHandler) ListEscalated(c *fiber.Ctx) error {
	escalated := true
	items, total, page, err := h.list(c, &escalated)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data":       items,
		"pagination": dto.Pagination{Page: page.Page, PageSize: page.PageSize, Total: total},
	})
}

func (h *TicketsHandler) list(c *fiber.Ctx, escalated *bool) ([]dto.TicketSummary, int, pageParams, error) {
	user, err := currentUser(c)
	if err != nil {
		return nil, 0, pageParams{}, err
	}
	filter, page, err := parseTicketFilter(c)
	if err != nil {
		return nil, 0, pageParams{}, err
	}
	if escalated != nil {
		filter.Escalated = escalated
	}
	tickets, total, err := h.tickets.ListTickets(c.UserContext(), user, filter)
	if err != nil {
		return nil, 0, pageParams{}, err
	}
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketSummary(&tickets[i]))
	}
	return items, total, page, nil
}

// GetTicket GET /api/tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	detail, err := h.tickets.GetTicket(c.UserContext(), user, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(detail)})
}

// UpdateTicket PUT /api/tickets/:id.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.UpdateTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ticket, err := h.tickets.UpdateTicket(c.UserContext(), user, c.Params("id"), service.TicketUpdateInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// UpdateStatus PATCH /api/tickets/:id/status.
func (h *TicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.StatusUpdateRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ticket, err := h.tickets.UpdateStatus(c.UserContext(), user, c.Params("id"), req.Status, req.Comment)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// Assign POST /api/tickets/:id/assign. Without an assignee the least loaded technician is picked.
func (h *TicketsHandler) Assign(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.AssignRequest
	if len(c.Body()) > 0 {
		if err := parseBody(c, &req); err != nil {
			return err
		}
	}
	var ticket *domain.Ticket
	if req.AssigneeID == "" {
		ticket, err = h.assignment.AutoAssignTicket(c.UserContext(), user, c.Params("id"))
	} else {
		ticket, err = h.assignment.AssignTicket(c.UserContext(), user, c.Params("id"), req.AssigneeID)
	}
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// SelfAssign POST /api/tickets/:id/self-assign.
func (h *TicketsHandler) SelfAssign(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	ticket, err := h.assignment.SelfAssignTicket(c.UserContext(), user, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// AddComment POST /api/tickets/:id/comments.
func (h *TicketsHandler) AddComment(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.CreateCommentRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	attachments := make([]service.CommentAttachmentInput, 0, len(req.Attachments))
	for _, att := range req.Attachments {
		attachments = append(attachments, service.CommentAttachmentInput{
			StorageKey: att.StorageKey,
			FileName:   att.FileName,
			MimeType:   att.MimeType,
			SizeBytes:  att.SizeBytes,
		})
	}
	comment, err := h.tickets.AddComment(c.UserContext(), user, c.Params("id"), req.Body, req.IsInternal, attachments)
	if err != nil {
		return err
	}
	return created(c, commentResponse(comment))
}

// ListComments GET /api/tickets/:id/comments.
func (h *TicketsHandler) ListComments(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	comments, err := h.tickets.ListComments(c.UserContext(), user, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": commentResponses(comments)})
}

// ListHistory GET /api/tickets/:id/history.
func (h *TicketsHandler) ListHistory(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	history, err := h.tickets.ListHistory(c.UserContext(), user, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": historyResponses(history)})
}

// DeleteTicket DELETE /api/tickets/:id.
func (h *TicketsHandler) DeleteTicket(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	if err := h.tickets.DeleteTicket(c.UserContext(), user, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ListPendingApprovals GET /api/approvals/pending.
func (h *TicketsHandler) ListPendingApprovals(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	pending, err := h.approvals.ListPending(c.UserContext(), user)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": pending})
}

// Approve POST /api/tickets/:id/approvals/approve.
func (h *TicketsHandler) Approve(c *fiber.Ctx) error {
	return h.decide(c, domain.ApprovalApproved)
}

// Reject POST /api/tickets/:id/approvals/reject.
func (h *TicketsHandler) Reject(c *fiber.Ctx) error {
	return h.decide(c, domain.ApprovalRejected)
}

func (h *TicketsHandler) decide(c *fiber.Ctx, decision domain.ApprovalStatus) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.ApprovalDecisionRequest
	if len(c.Body()) > 0 {
		if err := parseBody(c, &req); err != nil {
			return err
		}
	}
	outcome, err := h.approvals.Decide(c.UserContext(), user, c.Params("id"), decision, req.Comment)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"approval": outcome.Approval,
		"ticket":   ticketSummary(outcome.Ticket),
	}})
}

func parseTicketFilter(c *fiber.Ctx) (service.TicketListFilter, pageParams, error) {
	page := parsePage(c)
	filter := service.TicketListFilter{
		DepartmentID: optionalQuery(c, "department_id"),
		AssigneeID:   optionalQuery(c, "assigned_to"),
		SearchTerm:   optionalQuery(c, "search"),
		Escalated:    parseBool(c.Query("escalated")),
		Limit:        page.PageSize,
		Offset:       page.Offset(),
	}
	for _, s := range splitCSV(c.Query("status")) {
		status := domain.TicketStatus(s)
		if !status.Valid() {
			return filter, page, apperrors.NewValidationError("invalid status filter", map[string]any{"status": s})
		}
		filter.Statuses = append(filter.Statuses, status)
	}
	for _, p := range splitCSV(c.Query("priority")) {
		priority := domain.TicketPriority(p)
		if !priority.Valid() {
			return filter, page, apperrors.NewValidationError("invalid priority filter", map[string]any{"priority": p})
		}
		filter.Priorities = append(filter.Priorities, priority)
	}
	from, err := parseTime(c.Query("created_from"))
	if err != nil {
		return filter, page, err
	}
	to, err := parseTime(c.Query("created_to"))
	if err != nil {
		return filter, page, err
	}
	filter.CreatedFrom = from
	filter.CreatedTo = to
	return filter, page, nil
}
