package handlers

import (
	"time"

	"github.com/bsg-enterprise/ticketing/internal/api/dto"
	"github.com/bsg-enterprise/ticketing/internal/domain"
	"github.com/bsg-enterprise/ticketing/internal/service"
)

func ticketSummary(ticket *domain.Ticket) dto.TicketSummary {
	return dto.TicketSummary{
		ID:            ticket.ID,
		TicketNumber:  ticket.TicketNumber,
		Title:         ticket.Title,
		Status:        ticket.Status,
		Priority:      ticket.Priority,
		RequesterID:   ticket.RequesterID,
		DepartmentID:  ticket.DepartmentID,
		UnitID:        ticket.UnitID,
		AssignedToID:  ticket.AssignedToID,
		ServiceItemID: ticket.ServiceItemID,
		BSGTemplateID: ticket.BSGTemplateID,
		SLADueDate:    ticket.SLADueDate,
		SLABreached:   ticket.SLABreached(time.Now()),
		IsEscalated:   ticket.IsEscalated,
		CreatedAt:     ticket.CreatedAt,
		UpdatedAt:     ticket.UpdatedAt,
	}
}

func ticketDetail(detail *service.TicketDetail) dto.TicketDetailResponse {
	ticket := detail.Ticket
	customFields := ticket.CustomFields
	if customFields == nil {
		customFields = map[string]any{}
	}
	return dto.TicketDetailResponse{
		TicketSummary:     ticketSummary(ticket),
		Description:       ticket.Description,
		ServiceTemplateID: ticket.ServiceTemplateID,
		AssetID:           ticket.AssetID,
		CustomFields:      customFields,
		EscalatedAt:       ticket.EscalatedAt,
		RootCause:         ticket.RootCause,
		IssueCategory:     ticket.IssueCategory,
		CategorizedByID:   ticket.CategorizedByID,
		CategorizedAt:     ticket.CategorizedAt,
		ResolvedAt:        ticket.ResolvedAt,
		ClosedAt:          ticket.ClosedAt,
		Comments:          commentResponses(detail.Comments),
		History:           historyResponses(detail.History),
		Approvals:         detail.Approvals,
	}
}

func commentResponse(comment *domain.TicketComment) dto.CommentResponse {
	attachments := make([]dto.AttachmentResponse, 0, len(comment.Attachments))
	for _, att := range comment.Attachments {
		attachments = append(attachments, dto.AttachmentResponse{
			ID:         att.ID,
			StorageKey: att.StorageKey,
			FileName:   att.FileName,
			MimeType:   att.MimeType,
			SizeBytes:  att.SizeBytes,
		})
	}
	return dto.CommentResponse{
		ID:          comment.ID,
		AuthorID:    comment.AuthorID,
		Body:        comment.Body,
		IsInternal:  comment.IsInternal,
		Attachments: attachments,
		CreatedAt:   comment.CreatedAt,
	}
}

func commentResponses(comments []domain.TicketComment) []dto.CommentResponse {
	resp := make([]dto.CommentResponse, 0, len(comments))
	for i := range comments {
		resp = append(resp, commentResponse(&comments[i]))
	}
	return resp
}

func historyResponses(entries []domain.TicketHistory) []dto.TicketHistoryResponse {
	resp := make([]dto.TicketHistoryResponse, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, dto.TicketHistoryResponse{
			ID:          entry.ID,
			ChangeType:  entry.ChangeType,
			ChangedByID: entry.ChangedByID,
			OldValue:    entry.OldValue,
			NewValue:    entry.NewValue,
			CreatedAt:   entry.CreatedAt,
		})
	}
	return resp
}
