package service

import (
	"github.com/bsg-enterprise/ticketing/internal/domain"
	"github.com/bsg-enterprise/ticketing/internal/repository"
)

var allowedTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusOpen:            {domain.TicketStatusPendingApproval, domain.TicketStatusAssigned, domain.TicketStatusCancelled},
	domain.TicketStatusPendingApproval: {domain.TicketStatusApproved, domain.TicketStatusRejected, domain.TicketStatusCancelled},
	domain.TicketStatusApproved:        {domain.TicketStatusAssigned, domain.TicketStatusCancelled},
	domain.TicketStatusAssigned:        {domain.TicketStatusInProgress, domain.TicketStatusCancelled},
	domain.TicketStatusInProgress:      {domain.TicketStatusPending, domain.TicketStatusResolved},
	domain.TicketStatusPending:         {domain.TicketStatusInProgress, domain.TicketStatusResolved},
	domain.TicketStatusResolved:        {domain.TicketStatusClosed, domain.TicketStatusInProgress},
}

func isValidTransition(current, next domain.TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// preWork reports whether nobody has started on the ticket yet.
func preWork(status domain.TicketStatus) bool {
	switch status {
	case domain.TicketStatusOpen, domain.TicketStatusPendingApproval, domain.TicketStatusApproved:
		return true
	}
	return false
}

// canAccessTicket mirrors the listing visibility rules in repository.TicketFilter.
func canAccessTicket(user *domain.User, ticket *domain.Ticket) bool {
	if user == nil || ticket == nil {
		return false
	}
	if ticket.RequesterID == user.ID {
		return true
	}
	switch user.Role {
	case domain.RoleAdmin:
		return true
	case domain.RoleManager:
		return sameDepartment(user.DepartmentID, ticket.DepartmentID)
	case domain.RoleTechnician:
		if sameID(ticket.AssignedToID, user.ID) {
			return true
		}
		return ticket.AssignedToID == nil && sameDepartment(user.DepartmentID, ticket.DepartmentID)
	}
	return false
}

func sameDepartment(a, b *string) bool {
	return a != nil && b != nil && *a == *b
}

func visibilityFor(user *domain.User) *repository.TicketVisibility {
	return &repository.TicketVisibility{
		Role:         user.Role,
		UserID:       user.ID,
		DepartmentID: user.DepartmentID,
	}
}

// requesterVisibleChanges are the history entries a requester may read.
var requesterVisibleChanges = map[domain.TicketChangeType]bool{
	domain.ChangeTypeCreated:  true,
	domain.ChangeTypeStatus:   true,
	domain.ChangeTypeAssignee: true,
	domain.ChangeTypeApproval: true,
}
