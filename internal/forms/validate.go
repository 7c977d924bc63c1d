package forms

import (
	"fmt"
	"math"
	"net/mail"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	dateLayout = "2006-01-02"
)

var phonePattern = regexp.MustCompile(`^\+?[0-9][0-9\s\-]{5,19}$`)

// FieldErrors maps field names to a human readable problem.
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	names := make([]string, 0, len(e))
	for name := range e {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+e[name])
	}
	return strings.Join(parts, "; ")
}

// Details converts the errors into a generic map for API error payloads.
func (e FieldErrors) Details() map[string]any {
	out := make(map[string]any, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// CheckDefinitions verifies that a field set is internally consistent.
func CheckDefinitions(fields []Field) FieldErrors {
	errs := FieldErrors{}
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		name := strings.TrimSpace(f.Name)
		if name == "" {
			errs["fields"] = "every field needs a name"
			continue
		}
		if _, dup := seen[name]; dup {
			errs[name] = "duplicate field name"
			continue
		}
		seen[name] = struct{}{}
		if !f.Type.Valid() {
			errs[name] = fmt.Sprintf("unknown field type %q", f.Type)
			continue
		}
		if f.Type == FieldMasterSelect && f.MasterDataType == "" {
			errs[name] = "master_data_type required"
			continue
		}
		if f.Type.HasOptions() && f.Type != FieldMasterSelect && len(f.Options) == 0 {
			errs[name] = "options required"
			continue
		}
		if f.Rules.Pattern != "" {
			if _, err := regexp.Compile(f.Rules.Pattern); err != nil {
				errs[name] = "invalid pattern"
				continue
			}
		}
		if f.Rules.Min != nil && f.Rules.Max != nil && *f.Rules.Min > *f.Rules.Max {
			errs[name] = "min greater than max"
		}
	}
	for _, f := range fields {
		if f.ShowWhen == nil {
			continue
		}
		if _, ok := seen[f.ShowWhen.Field]; !ok || f.ShowWhen.Field == f.Name {
			errs[f.Name] = "show_when references unknown field"
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Visible returns the names of fields that are shown for the given raw values.
func Visible(fields []Field, values map[string]any) map[string]bool {
	byName := make(map[string]Field, len(fields))
	for _, f := range fields {
		byName[f.Name] = f
	}
	result := make(map[string]bool, len(fields))
	visiting := make(map[string]bool)

	var visit func(name string) bool
	visit = func(name string) bool {
		if v, done := result[name]; done {
			return v
		}
		f, ok := byName[name]
		if !ok {
			return false
		}
		if f.ShowWhen == nil {
			result[name] = true
			return true
		}
		if visiting[name] {
			// cyclic conditions never resolve to visible
			return false
		}
		visiting[name] = true
		shown := visit(f.ShowWhen.Field) && f.ShowWhen.matches(valueOrDefault(byName[f.ShowWhen.Field], values))
		visiting[name] = false
		result[name] = shown
		return shown
	}

	for _, f := range fields {
		visit(f.Name)
	}
	return result
}

func (c Condition) matches(raw any) bool {
	candidates := stringsOf(raw)
	if len(c.In) > 0 {
		for _, want := range c.In {
			for _, got := range candidates {
				if got == want {
					return true
				}
			}
		}
		return false
	}
	for _, got := range candidates {
		if got == c.Equals {
			return true
		}
	}
	return false
}

// Validate checks submitted values against the field definitions. It returns the normalized values
// of visible fields only; unknown and hidden fields are dropped.
func Validate(fields []Field, values map[string]any) (map[string]any, error) {
	if values == nil {
		values = map[string]any{}
	}
	visible := Visible(fields, values)
	errs := FieldErrors{}
	out := make(map[string]any, len(fields))

	for _, f := range fields {
		if !visible[f.Name] {
			continue
		}
		raw := valueOrDefault(f, values)
		if isEmpty(raw) {
			if f.Required {
				errs[f.Name] = "is required"
			}
			continue
		}
		normalized, err := normalize(f, raw)
		if err != nil {
			errs[f.Name] = err.Error()
			continue
		}
		// a required checkbox must be ticked whatever form the value arrived in
		if f.Required && f.Type == FieldCheckbox && normalized == false {
			errs[f.Name] = "is required"
			continue
		}
		out[f.Name] = normalized
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return out, nil
}

func valueOrDefault(f Field, values map[string]any) any {
	if v, ok := values[f.Name]; ok && v != nil {
		return v
	}
	if f.DefaultValue != "" {
		return f.DefaultValue
	}
	return nil
}

func isEmpty(raw any) bool {
	switch v := raw.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []any:
		return len(v) == 0
	case []string:
		return len(v) == 0
	}
	return false
}

func normalize(f Field, raw any) (any, error) {
	switch f.Type {
	case FieldNumber, FieldCurrency:
		n, err := toFloat(raw)
		if err != nil {
			return nil, err
		}
		if f.Rules.Min != nil && n < *f.Rules.Min {
			return nil, fmt.Errorf("must be at least %v", *f.Rules.Min)
		}
		if f.Rules.Max != nil && n > *f.Rules.Max {
			return nil, fmt.Errorf("must be at most %v", *f.Rules.Max)
		}
		return n, nil
	case FieldCheckbox:
		switch v := raw.(type) {
		case bool:
			return v, nil
		case string:
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				return nil, fmt.Errorf("must be true or false")
			}
			return b, nil
		}
		return nil, fmt.Errorf("must be true or false")
	case FieldMultiSelect:
		selected := stringsOf(raw)
		if len(selected) == 0 {
			return nil, fmt.Errorf("must be a list of options")
		}
		for _, s := range selected {
			if !f.hasOption(s) {
				return nil, fmt.Errorf("invalid option %q", s)
			}
		}
		return selected, nil
	}

	s, ok := scalarString(raw)
	if !ok {
		return nil, fmt.Errorf("must be a single value")
	}
	s = strings.TrimSpace(s)

	if f.Rules.MinLength != nil && len([]rune(s)) < *f.Rules.MinLength {
		return nil, fmt.Errorf("must be at least %d characters", *f.Rules.MinLength)
	}
	if f.Rules.MaxLength != nil && len([]rune(s)) > *f.Rules.MaxLength {
		return nil, fmt.Errorf("must be at most %d characters", *f.Rules.MaxLength)
	}
	if f.Rules.Pattern != "" {
		re, err := regexp.Compile(f.Rules.Pattern)
		if err != nil || !re.MatchString(s) {
			return nil, fmt.Errorf("has an invalid format")
		}
	}

	switch f.Type {
	case FieldEmail:
		if _, err := mail.ParseAddress(s); err != nil {
			return nil, fmt.Errorf("must be a valid email address")
		}
	case FieldPhone:
		if !phonePattern.MatchString(s) {
			return nil, fmt.Errorf("must be a valid phone number")
		}
	case FieldDate:
		if _, err := time.Parse(dateLayout, s); err != nil {
			return nil, fmt.Errorf("must be a date (YYYY-MM-DD)")
		}
	case FieldDateTime:
		if _, err := time.Parse(time.RFC3339, s); err != nil {
			return nil, fmt.Errorf("must be an RFC3339 timestamp")
		}
	case FieldDropdown, FieldRadio, FieldMasterSelect:
		if !f.hasOption(s) {
			return nil, fmt.Errorf("invalid option %q", s)
		}
	}
	return s, nil
}

func toFloat(raw any) (float64, error) {
	n, err := rawFloat(raw)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, fmt.Errorf("must be a number")
	}
	return n, nil
}

func rawFloat(raw any) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		n, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(v), ",", ""), 64)
		if err != nil {
			return 0, fmt.Errorf("must be a number")
		}
		return n, nil
	}
	return 0, fmt.Errorf("must be a number")
}

func scalarString(raw any) (string, bool) {
	switch v := raw.(type) {
	case string:
		return v, true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case int:
		return strconv.Itoa(v), true
	case bool:
		return strconv.FormatBool(v), true
	}
	return "", false
}

func stringsOf(raw any) []string {
	switch v := raw.(type) {
	case nil:
		return nil
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := scalarString(item); ok {
				out = append(out, s)
			}
		}
		return out
	}
	if s, ok := scalarString(raw); ok {
		return []string{s}
	}
	return nil
}
