package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/bsg-enterprise/ticketing/internal/domain"
	"github.com/bsg-enterprise/ticketing/internal/events"
	"github.com/bsg-enterprise/ticketing/internal/repository"
	apperrors "github.com/bsg-enterprise/ticketing/pkg/util/errorutil"
)

// Page is a bounded slice of a larger result.
type Page struct {
	Limit  int
	Offset int
}

func isNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func requireActor(actor *domain.User) error {
	if actor == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	return nil
}

func requireAdmin(actor *domain.User) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if actor.Role != domain.RoleAdmin {
		return apperrors.NewForbidden("admin role required")
	}
	return nil
}

func actorOf(user *domain.User) events.Actor {
	if user == nil {
		return events.SystemActor
	}
	id := user.ID
	return events.Actor{UserID: &id, Role: user.Role}
}

func actorID(user *domain.User) *string {
	if user == nil {
		return nil
	}
	id := user.ID
	return &id
}

func publish(ctx context.Context, dispatcher events.Dispatcher, event events.Event) {
	if dispatcher == nil {
		return
	}
	_ = dispatcher.Publish(ctx, event)
}

// recordHistory writes an audit entry; failures are logged, not returned, once the change itself is stored.
func recordHistory(ctx context.Context, repo repository.TicketHistoryRepository, logger *zap.Logger, entry *domain.TicketHistory) {
	if repo == nil {
		return
	}
	if err := repo.Create(ctx, entry); err != nil && logger != nil {
		logger.Error("failed to record ticket history",
			zap.String("ticket_id", entry.TicketID),
			zap.String("change_type", string(entry.ChangeType)),
			zap.Error(err))
	}
}

// stringPreview shortens body to at most max characters, cutting on rune boundaries.
func stringPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	runes := []rune(body)
	if len(runes) <= max {
		return body
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

func sameID(a *string, b string) bool {
	return a != nil && *a == b
}

func strPtr(s string) *string {
	return &s
}

func trimmedPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
