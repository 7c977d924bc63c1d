package service

import (
	"context"
	"errors"

	"github.com/bsg-enterprise/ticketing/internal/forms"
	"github.com/bsg-enterprise/ticketing/internal/repository"
	apperrors "github.com/bsg-enterprise/ticketing/pkg/util/errorutil"
)

// withMasterOptions returns a copy of fields whose dropdown_master entries carry the active master data as options.
func withMasterOptions(ctx context.Context, repo repository.BSGTemplateRepository, fields []forms.Field) ([]forms.Field, error) {
	out := make([]forms.Field, len(fields))
	copy(out, fields)
	loaded := map[string][]forms.Option{}
	for i := range out {
		if out[i].Type != forms.FieldMasterSelect || repo == nil {
			continue
		}
		dataType := out[i].MasterDataType
		options, ok := loaded[dataType]
		if !ok {
			entries, err := repo.ListMasterData(ctx, dataType, true)
			if err != nil {
				return nil, apperrors.MapError(err)
			}
			options = make([]forms.Option, 0, len(entries))
			for _, entry := range entries {
				options = append(options, forms.Option{Value: entry.Code, Label: entry.Name})
			}
			loaded[dataType] = options
		}
		out[i].Options = options
	}
	return out, nil
}

func validateFieldValues(fields []forms.Field, values map[string]any) (map[string]any, error) {
	normalized, err := forms.Validate(fields, values)
	if err != nil {
		var fieldErrs forms.FieldErrors
		if errors.As(err, &fieldErrs) {
			return nil, apperrors.NewValidationError("invalid custom fields", fieldErrs.Details())
		}
		return nil, apperrors.MapError(err)
	}
	return normalized, nil
}

func checkFieldDefinitions(fields []forms.Field) error {
	if errs := forms.CheckDefinitions(fields); errs != nil {
		return apperrors.NewValidationError("invalid field definitions", errs.Details())
	}
	return nil
}
