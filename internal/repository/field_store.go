package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/bsg-enterprise/ticketing/internal/forms"
)

// Field definition rows share one shape across service_template_fields and bsg_template_fields.
const fieldColumns = `id, template_id, name, label, field_type, is_required, options, default_value, placeholder,
               help_text, sort_order, validation, show_when, master_data_type`

// querier is the subset of pgxpool.Pool and pgx.Tx used by field helpers.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func insertFields(ctx context.Context, q querier, table, templateID string, fields []forms.Field) error {
	query := `INSERT INTO ` + table + ` (template_id, name, label, field_type, is_required, options, default_value,
            placeholder, help_text, sort_order, validation, show_when, master_data_type)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
        RETURNING id`
	for i := range fields {
		f := &fields[i]
		options, err := jsonParam(f.Options)
		if err != nil {
			return err
		}
		rules, err := jsonParam(f.Rules)
		if err != nil {
			return err
		}
		showWhen, err := jsonParam(f.ShowWhen)
		if err != nil {
			return err
		}
		if err := q.QueryRow(ctx, query,
			templateID,
			f.Name,
			f.Label,
			f.Type,
			f.Required,
			options,
			f.DefaultValue,
			f.Placeholder,
			f.HelpText,
			f.SortOrder,
			rules,
			showWhen,
			f.MasterDataType,
		).Scan(&f.ID); err != nil {
			return err
		}
	}
	return nil
}

// listFields loads field definitions for the given templates, keyed by template id and in sort order.
func listFields(ctx context.Context, q querier, table string, templateIDs []string) (map[string][]forms.Field, error) {
	result := make(map[string][]forms.Field)
	if len(templateIDs) == 0 {
		return result, nil
	}
	query := `SELECT ` + fieldColumns + ` FROM ` + table +
		` WHERE template_id = ANY($1::uuid[]) ORDER BY sort_order ASC, name ASC`
	rows, err := q.Query(ctx, query, templateIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			f          forms.Field
			templateID string
			options    []byte
			rules      []byte
			showWhen   []byte
		)
		if err := rows.Scan(
			&f.ID,
			&templateID,
			&f.Name,
			&f.Label,
			&f.Type,
			&f.Required,
			&options,
			&f.DefaultValue,
			&f.Placeholder,
			&f.HelpText,
			&f.SortOrder,
			&rules,
			&showWhen,
			&f.MasterDataType,
		); err != nil {
			return nil, err
		}
		if err := jsonScan(options, &f.Options); err != nil {
			return nil, err
		}
		if err := jsonScan(rules, &f.Rules); err != nil {
			return nil, err
		}
		if err := jsonScan(showWhen, &f.ShowWhen); err != nil {
			return nil, err
		}
		result[templateID] = append(result[templateID], f)
	}
	return result, rows.Err()
}

// replaceFields swaps a template's field set inside a transaction.
func replaceFields(ctx context.Context, tx pgx.Tx, table, templateID string, fields []forms.Field) error {
	if _, err := tx.Exec(ctx, `DELETE FROM `+table+` WHERE template_id=$1`, templateID); err != nil {
		return err
	}
	return insertFields(ctx, tx, table, templateID, fields)
}
