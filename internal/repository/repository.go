package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// rowScanner is satisfied by both pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// whereBuilder accumulates AND-ed clauses with positional arguments.
type whereBuilder struct {
	clauses []string
	args    []any
}

func newWhere(base ...string) *whereBuilder {
	return &whereBuilder{clauses: append([]string{}, base...)}
}

// add appends a clause; each %s in format is replaced with the next placeholder.
func (w *whereBuilder) add(format string, values ...any) {
	placeholders := make([]any, len(values))
	for i, v := range values {
		w.args = append(w.args, v)
		placeholders[i] = fmt.Sprintf("$%d", len(w.args))
	}
	w.clauses = append(w.clauses, fmt.Sprintf(format, placeholders...))
}

// addIn appends "column IN (...)" for a non-empty list.
func addIn[T any](w *whereBuilder, column string, values []T) {
	if len(values) == 0 {
		return
	}
	placeholders := make([]string, len(values))
	for i, v := range values {
		w.args = append(w.args, v)
		placeholders[i] = fmt.Sprintf("$%d", len(w.args))
	}
	w.clauses = append(w.clauses, fmt.Sprintf("%s IN (%s)", column, strings.Join(placeholders, ",")))
}

// addSearch matches a lower-cased term against any of the columns.
func (w *whereBuilder) addSearch(term *string, columns ...string) {
	if term == nil || strings.TrimSpace(*term) == "" {
		return
	}
	w.args = append(w.args, "%"+strings.ToLower(strings.TrimSpace(*term))+"%")
	placeholder := fmt.Sprintf("$%d", len(w.args))
	parts := make([]string, len(columns))
	for i, col := range columns {
		parts[i] = fmt.Sprintf("LOWER(%s) LIKE %s", col, placeholder)
	}
	w.clauses = append(w.clauses, "("+strings.Join(parts, " OR ")+")")
}

func (w *whereBuilder) sql() string {
	if len(w.clauses) == 0 {
		return "TRUE"
	}
	return strings.Join(w.clauses, " AND ")
}

func pageBounds(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 200 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// jsonParam marshals v for a jsonb column; nil values become SQL NULL.
func jsonParam(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if string(data) == "null" {
		return nil, nil
	}
	return data, nil
}

func jsonScan(data []byte, dest any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, dest)
}

// page binds bounded limit/offset arguments and returns the trailing clause.
func (w *whereBuilder) page(limit, offset int) string {
	limit, offset = pageBounds(limit, offset)
	w.args = append(w.args, limit, offset)
	return fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(w.args)-1, len(w.args))
}

func softDelete(ctx context.Context, pool *pgxpool.Pool, table, id string) error {
	cmd, err := pool.Exec(ctx, `UPDATE `+table+` SET deleted_at=NOW(), updated_at=NOW() WHERE id=$1 AND deleted_at IS NULL`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
