package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bsg-enterprise/ticketing/internal/domain"
	"github.com/bsg-enterprise/ticketing/internal/observability"
	"github.com/bsg-enterprise/ticketing/internal/service"
	apperrors "github.com/bsg-enterprise/ticketing/pkg/util/errorutil"
)

func newApp() *fiber.App {
	return fiber.New(fiber.Config{ErrorHandler: func(c *fiber.Ctx, err error) error {
		domainErr := apperrors.ToDomainError(err)
		return c.Status(domainErr.HTTPStatus).JSON(fiber.Map{"error": fiber.Map{
			"code":    domainErr.Code,
			"details": domainErr.Details,
		}})
	}})
}

type errorBody struct {
	Error struct {
		Code    string         `json:"code"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func doJSON(t *testing.T, app *fiber.App, method, path, body string) (int, []byte) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var raw json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&raw))
	return resp.StatusCode, raw
}

func TestParsePage(t *testing.T) {
	app := newApp()
	app.Get("/", func(c *fiber.Ctx) error {
		p := parsePage(c)
		return c.JSON(fiber.Map{"page": p.Page, "size": p.PageSize, "offset": p.Offset()})
	})

	tests := []struct {
		query  string
		page   int
		size   int
		offset int
	}{
		{"", 1, defaultPageSize, 0},
		{"?page=3&page_size=10", 3, 10, 20},
		{"?page=2&limit=5", 2, 5, 5},
		{"?page_size=1000", 1, maxPageSize, 0},
		{"?page=-4&page_size=abc", 1, defaultPageSize, 0},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			status, raw := doJSON(t, app, fiber.MethodGet, "/"+tt.query, "")
			require.Equal(t, fiber.StatusOK, status)
			var got map[string]int
			require.NoError(t, json.Unmarshal(raw, &got))
			assert.Equal(t, tt.page, got["page"])
			assert.Equal(t, tt.size, got["size"])
			assert.Equal(t, tt.offset, got["offset"])
		})
	}
}

func TestParseTime(t *testing.T) {
	got, err := parseTime("2024-03-04")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), *got)

	got, err = parseTime("2024-03-04T10:30:00+07:00")
	require.NoError(t, err)
	assert.Equal(t, 3, got.UTC().Hour())

	got, err = parseTime("")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = parseTime("yesterday")
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)
}

func TestParseTicketFilter(t *testing.T) {
	app := newApp()
	app.Get("/", func(c *fiber.Ctx) error {
		filter, _, err := parseTicketFilter(c)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"statuses":   filter.Statuses,
			"priorities": filter.Priorities,
			"escalated":  filter.Escalated,
			"search":     filter.SearchTerm,
			"offset":     filter.Offset,
		})
	})

	status, raw := doJSON(t, app, fiber.MethodGet, "/?status=open,%20assigned&priority=high&escalated=true&search=vpn&page=2&page_size=10", "")
	require.Equal(t, fiber.StatusOK, status)
	var got struct {
		Statuses   []string `json:"statuses"`
		Priorities []string `json:"priorities"`
		Escalated  *bool    `json:"escalated"`
		Search     *string  `json:"search"`
		Offset     int      `json:"offset"`
	}
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, []string{"open", "assigned"}, got.Statuses)
	assert.Equal(t, []string{"high"}, got.Priorities)
	require.NotNil(t, got.Escalated)
	assert.True(t, *got.Escalated)
	assert.Equal(t, "vpn", *got.Search)
	assert.Equal(t, 10, got.Offset)

	for _, query := range []string{"?status=lost", "?priority=critical", "?created_from=soon"} {
		status, raw := doJSON(t, app, fiber.MethodGet, "/"+query, "")
		assert.Equal(t, fiber.StatusBadRequest, status, query)
		var body errorBody
		require.NoError(t, json.Unmarshal(raw, &body))
		assert.Equal(t, "VALIDATION_FAILED", body.Error.Code)
	}
}

func TestRegister_RejectsInvalidPayload(t *testing.T) {
	app := newApp()
	app.Post("/register", NewAuthHandler(nil).Register)

	status, raw := doJSON(t, app, fiber.MethodPost, "/register", `{"email":"not-an-email","password":"short"}`)
	require.Equal(t, fiber.StatusBadRequest, status)
	var body errorBody
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, "VALIDATION_FAILED", body.Error.Code)
	for _, field := range []string{"name", "username", "email", "password"} {
		assert.Contains(t, body.Error.Details, field)
	}

	status, _ = doJSON(t, app, fiber.MethodPost, "/register", `{"email":`)
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestLogin_RequiresIdentifier(t *testing.T) {
	app := newApp()
	app.Post("/login", NewAuthHandler(nil).Login)

	status, raw := doJSON(t, app, fiber.MethodPost, "/login", `{"password":"secret123"}`)
	require.Equal(t, fiber.StatusBadRequest, status)
	var body errorBody
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Contains(t, body.Error.Details, "email")
}

func TestProtectedHandlers_RequirePrincipal(t *testing.T) {
	app := newApp()
	tickets := NewTicketsHandler(nil, nil, nil)
	app.Get("/tickets", tickets.ListTickets)
	app.Get("/assets", NewAssetsHandler(nil).List)
	app.Get("/knowledge", NewKnowledgeHandler(nil).Search)

	for _, path := range []string{"/tickets", "/assets", "/knowledge"} {
		status, raw := doJSON(t, app, fiber.MethodGet, path, "")
		assert.Equal(t, fiber.StatusUnauthorized, status, path)
		var body errorBody
		require.NoError(t, json.Unmarshal(raw, &body))
		assert.Equal(t, "UNAUTHORIZED", body.Error.Code)
	}
}

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

func TestHealth(t *testing.T) {
	metrics := observability.NewMetrics()
	metrics.RecordJob("sla-escalation", 2, nil)

	healthy := NewHealthHandler("bsg-ticketing", "1.2.0", metrics, map[string]Pinger{
		"postgres": stubPinger{},
		"redis":    nil,
	})
	app := newApp()
	app.Get("/health", healthy.Live)
	app.Get("/health/ready", healthy.Ready)
	app.Get("/health/metrics", healthy.Metrics)

	status, raw := doJSON(t, app, fiber.MethodGet, "/health", "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, string(raw), `"service":"bsg-ticketing"`)
	assert.Contains(t, string(raw), `"version":"1.2.0"`)

	status, raw = doJSON(t, app, fiber.MethodGet, "/health/ready", "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, string(raw), `"postgres":"ok"`)
	assert.NotContains(t, string(raw), "redis")

	status, raw = doJSON(t, app, fiber.MethodGet, "/health/metrics", "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, string(raw), `"sla-escalation"`)

	failing := NewHealthHandler("bsg-ticketing", "1.2.0", nil, map[string]Pinger{
		"postgres": stubPinger{},
		"redis":    stubPinger{err: errors.New("connection refused")},
	})
	app = newApp()
	app.Get("/health/ready", failing.Ready)
	app.Get("/health/metrics", failing.Metrics)

	status, raw = doJSON(t, app, fiber.MethodGet, "/health/ready", "")
	require.Equal(t, fiber.StatusServiceUnavailable, status)
	assert.Contains(t, string(raw), "DEPENDENCY_UNAVAILABLE")
	assert.Contains(t, string(raw), "connection refused")

	status, _ = doJSON(t, app, fiber.MethodGet, "/health/metrics", "")
	assert.Equal(t, fiber.StatusOK, status)
}

type stubRunner struct{ calls int }

func (s *stubRunner) Run(context.Context) service.EscalationResult {
	s.calls++
	return service.EscalationResult{Scanned: 3, Escalated: 2, Failed: 1}
}

func TestEscalationsRun(t *testing.T) {
	runner := &stubRunner{}
	app := newApp()
	app.Post("/run", NewEscalationsHandler(runner).Run)

	status, raw := doJSON(t, app, fiber.MethodPost, "/run", "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, 1, runner.calls)
	assert.JSONEq(t, `{"data":{"scanned":3,"escalated":2,"failed":1}}`, string(raw))
}

func TestTicketMapping(t *testing.T) {
	author := "tech-1"
	due := time.Now().Add(-time.Hour)
	ticket := &domain.Ticket{
		ID:           "t-1",
		TicketNumber: "BSG-20240304-000001",
		Status:       domain.TicketStatusInProgress,
		Priority:     domain.TicketPriorityHigh,
		SLADueDate:   due,
	}
	detail := ticketDetail(&service.TicketDetail{
		Ticket: ticket,
		Comments: []domain.TicketComment{{
			ID:          "c-1",
			AuthorID:    &author,
			Body:        "checking",
			Attachments: []domain.AttachmentReference{{ID: "a-1", FileName: "log.txt", SizeBytes: 42}},
		}},
		History: []domain.TicketHistory{{ID: "h-1", ChangeType: domain.ChangeTypeCreated}},
	})

	assert.True(t, detail.SLABreached)
	assert.NotNil(t, detail.CustomFields)
	require.Len(t, detail.Comments, 1)
	require.Len(t, detail.Comments[0].Attachments, 1)
	assert.Equal(t, int64(42), detail.Comments[0].Attachments[0].SizeBytes)
	require.Len(t, detail.History, 1)
	assert.Equal(t, domain.ChangeTypeCreated, detail.History[0].ChangeType)

	ticket.Status = domain.TicketStatusResolved
	assert.False(t, ticketSummary(ticket).SLABreached)
}
