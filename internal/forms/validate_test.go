package forms

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func accountFields() []Field {
	return []Field{
		{Name: "request_type", Label: "Request type", Type: FieldDropdown, Required: true,
			Options: []Option{{Value: "reset", Label: "Reset"}, {Value: "new", Label: "New account"}}},
		{Name: "employee_email", Label: "Email", Type: FieldEmail, Required: true},
		{Name: "reason", Label: "Reason", Type: FieldTextarea, Required: true,
			Rules:    Rules{MinLength: intPtr(5)},
			ShowWhen: &Condition{Field: "request_type", Equals: "new"}},
		{Name: "amount", Label: "Limit", Type: FieldCurrency, Rules: Rules{Min: floatPtr(0), Max: floatPtr(1000)}},
		{Name: "agree", Label: "Agree", Type: FieldCheckbox, Required: true},
	}
}

func TestValidate_NormalizesVisibleFields(t *testing.T) {
	values := map[string]any{
		"request_type":   "reset",
		"employee_email": "  teller@bsg.co.id ",
		"reason":         "x",
		"amount":         "250",
		"agree":          true,
		"unknown":        "dropped",
	}

	out, err := Validate(accountFields(), values)
	require.NoError(t, err)

	assert.Equal(t, "teller@bsg.co.id", out["employee_email"])
	assert.Equal(t, 250.0, out["amount"])
	assert.Equal(t, true, out["agree"])
	assert.NotContains(t, out, "reason", "hidden field must not be stored")
	assert.NotContains(t, out, "unknown")
}

func TestValidate_ConditionalFieldBecomesRequired(t *testing.T) {
	values := map[string]any{
		"request_type":   "new",
		"employee_email": "teller@bsg.co.id",
		"agree":          true,
	}

	_, err := Validate(accountFields(), values)
	require.Error(t, err)

	fieldErrs, ok := err.(FieldErrors)
	require.True(t, ok)
	assert.Equal(t, "is required", fieldErrs["reason"])
}

func TestValidate_ReportsEveryInvalidField(t *testing.T) {
	values := map[string]any{
		"request_type":   "other",
		"employee_email": "not-an-email",
		"amount":         5000.0,
		"agree":          false,
	}

	_, err := Validate(accountFields(), values)
	require.Error(t, err)
	fieldErrs := err.(FieldErrors)

	assert.Contains(t, fieldErrs["request_type"], "invalid option")
	assert.Equal(t, "must be a valid email address", fieldErrs["employee_email"])
	assert.Equal(t, "must be at most 1000", fieldErrs["amount"])
	assert.Equal(t, "is required", fieldErrs["agree"])
}

func TestValidate_DefaultsAndTypes(t *testing.T) {
	fields := []Field{
		{Name: "branch", Label: "Branch", Type: FieldMasterSelect, MasterDataType: "branch", Required: true,
			DefaultValue: "001", Options: []Option{{Value: "001", Label: "Head office"}}},
		{Name: "modules", Label: "Modules", Type: FieldMultiSelect,
			Options: []Option{{Value: "teller"}, {Value: "cs"}}},
		{Name: "start", Label: "Start", Type: FieldDate},
		{Name: "phone", Label: "Phone", Type: FieldPhone},
	}

	out, err := Validate(fields, map[string]any{
		"modules": []any{"teller", "cs"},
		"start":   "2024-02-29",
		"phone":   "+62 812-3456-7890",
	})
	require.NoError(t, err)
	assert.Equal(t, "001", out["branch"])
	assert.Equal(t, []string{"teller", "cs"}, out["modules"])

	_, err = Validate(fields, map[string]any{"start": "29/02/2024"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "start: must be a date")

	amount := []Field{{Name: "amount", Label: "Amount", Type: FieldCurrency, Rules: Rules{Max: floatPtr(100)}}}
	for _, raw := range []any{"NaN", "nan", "Inf", "-Inf", "+Infinity"} {
		_, err = Validate(amount, map[string]any{"amount": raw})
		require.Error(t, err, raw)
		assert.Equal(t, "must be a number", err.(FieldErrors)["amount"], raw)
	}
	unbounded := []Field{{Name: "qty", Label: "Quantity", Type: FieldNumber}}
	_, err = Validate(unbounded, map[string]any{"qty": "Inf"})
	require.Error(t, err)
	assert.Equal(t, "must be a number", err.(FieldErrors)["qty"])
}

func TestValidate_RequiredCheckbox(t *testing.T) {
	required := []Field{{Name: "agree", Label: "Agree", Type: FieldCheckbox, Required: true}}
	for _, raw := range []any{false, "false", " FALSE ", "0"} {
		_, err := Validate(required, map[string]any{"agree": raw})
		require.Error(t, err, raw)
		assert.Equal(t, "is required", err.(FieldErrors)["agree"], raw)
	}

	out, err := Validate(required, map[string]any{"agree": "true"})
	require.NoError(t, err)
	assert.Equal(t, true, out["agree"])

	optional := []Field{{Name: "newsletter", Label: "Newsletter", Type: FieldCheckbox}}
	out, err = Validate(optional, map[string]any{"newsletter": false})
	require.NoError(t, err)
	assert.Equal(t, false, out["newsletter"])
}

func TestVisible_NestedAndCyclicConditions(t *testing.T) {
	fields := []Field{
		{Name: "a", Type: FieldText},
		{Name: "b", Type: FieldText, ShowWhen: &Condition{Field: "a", In: []string{"x", "y"}}},
		{Name: "c", Type: FieldText, ShowWhen: &Condition{Field: "b", Equals: "go"}},
		{Name: "d", Type: FieldText, ShowWhen: &Condition{Field: "e", Equals: "1"}},
		{Name: "e", Type: FieldText, ShowWhen: &Condition{Field: "d", Equals: "1"}},
	}

	vis := Visible(fields, map[string]any{"a": "y", "b": "go", "d": "1", "e": "1"})
	assert.True(t, vis["a"])
	assert.True(t, vis["b"])
	assert.True(t, vis["c"])
	assert.False(t, vis["d"])
	assert.False(t, vis["e"])

	vis = Visible(fields, map[string]any{"a": "z", "b": "go"})
	assert.False(t, vis["b"])
	assert.False(t, vis["c"], "child of a hidden field stays hidden")
}

func TestCheckDefinitions(t *testing.T) {
	assert.Nil(t, CheckDefinitions(accountFields()))

	errs := CheckDefinitions([]Field{
		{Name: "a", Type: "slider"},
		{Name: "b", Type: FieldDropdown},
		{Name: "c", Type: FieldText, Rules: Rules{Pattern: "("}},
		{Name: "c", Type: FieldText},
		{Name: "d", Type: FieldMasterSelect},
		{Name: "e", Type: FieldText, ShowWhen: &Condition{Field: "missing"}},
	})
	require.NotNil(t, errs)
	assert.Contains(t, errs["a"], "unknown field type")
	assert.Equal(t, "options required", errs["b"])
	assert.Equal(t, "duplicate field name", errs["c"])
	assert.Equal(t, "master_data_type required", errs["d"])
	assert.Equal(t, "show_when references unknown field", errs["e"])
}
