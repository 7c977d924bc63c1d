package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/bsg-enterprise/ticketing/internal/auth"
	"github.com/bsg-enterprise/ticketing/internal/domain"
	"github.com/bsg-enterprise/ticketing/internal/validation"
	apperrors "github.com/bsg-enterprise/ticketing/pkg/util/errorutil"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func currentUser(c *fiber.Ctx) (*domain.User, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return principal.User, nil
}

// parseBody decodes the JSON body into dst and runs its validate tags.
func parseBody(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return validation.Struct(dst)
}

type pageParams struct {
	Page     int
	PageSize int
}

func (p pageParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

func parsePage(c *fiber.Ctx) pageParams {
	page := parseInt(c.Query("page"), 1)
	size := parseInt(c.Query("page_size"), 0)
	if size == 0 {
		size = parseInt(c.Query("limit"), defaultPageSize)
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return pageParams{Page: page, PageSize: size}
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

// parseTime accepts RFC3339 timestamps and plain dates.
func parseTime(val string) (*time.Time, error) {
	if val == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, val); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", val)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid date", map[string]any{"value": val})
	}
	return &t, nil
}

func parseBool(val string) *bool {
	if val == "" {
		return nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return nil
	}
	return &b
}

func splitCSV(val string) []string {
	if val == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func optionalQuery(c *fiber.Ctx, key string) *string {
	val := strings.TrimSpace(c.Query(key))
	if val == "" {
		return nil
	}
	return &val
}

func created(c *fiber.Ctx, data any) error {
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": data})
}
