package forms

// FieldType enumerates the input kinds a dynamic form can render.
type FieldType string

const (
	FieldText         FieldType = "text"
	FieldTextarea     FieldType = "textarea"
	FieldNumber       FieldType = "number"
	FieldCurrency     FieldType = "currency"
	FieldEmail        FieldType = "email"
	FieldPhone        FieldType = "phone"
	FieldDate         FieldType = "date"
	FieldDateTime     FieldType = "datetime"
	FieldDropdown     FieldType = "dropdown"
	FieldRadio        FieldType = "radio"
	FieldCheckbox     FieldType = "checkbox"
	FieldMultiSelect  FieldType = "multiselect"
	FieldMasterSelect FieldType = "dropdown_master"
)

// Valid reports whether the type is one the engine understands.
func (t FieldType) Valid() bool {
	switch t {
	case FieldText, FieldTextarea, FieldNumber, FieldCurrency, FieldEmail, FieldPhone,
		FieldDate, FieldDateTime, FieldDropdown, FieldRadio, FieldCheckbox, FieldMultiSelect,
		FieldMasterSelect:
		return true
	}
	return false
}

// HasOptions reports whether values must come from the option list.
func (t FieldType) HasOptions() bool {
	switch t {
	case FieldDropdown, FieldRadio, FieldMultiSelect, FieldMasterSelect:
		return true
	}
	return false
}

// Option is a selectable choice.
type Option struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label" yaml:"label"`
}

// Rules holds optional value constraints.
type Rules struct {
	MinLength *int     `json:"min_length,omitempty" yaml:"min_length,omitempty"`
	MaxLength *int     `json:"max_length,omitempty" yaml:"max_length,omitempty"`
	Pattern   string   `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Min       *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max       *float64 `json:"max,omitempty" yaml:"max,omitempty"`
}

// Condition makes a field visible only when another field holds a given value.
type Condition struct {
	Field  string   `json:"field" yaml:"field"`
	Equals string   `json:"equals,omitempty" yaml:"equals,omitempty"`
	In     []string `json:"in,omitempty" yaml:"in,omitempty"`
}

// Field describes one input of a service or BSG template.
type Field struct {
	ID             string     `json:"id,omitempty" yaml:"-"`
	Name           string     `json:"name" yaml:"name" validate:"required,max=100"`
	Label          string     `json:"label" yaml:"label" validate:"required,max=200"`
	Type           FieldType  `json:"field_type" yaml:"field_type" validate:"required"`
	Required       bool       `json:"is_required" yaml:"is_required"`
	Options        []Option   `json:"options,omitempty" yaml:"options,omitempty"`
	DefaultValue   string     `json:"default_value,omitempty" yaml:"default_value,omitempty"`
	Placeholder    string     `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	HelpText       string     `json:"help_text,omitempty" yaml:"help_text,omitempty"`
	SortOrder      int        `json:"sort_order" yaml:"sort_order"`
	Rules          Rules      `json:"validation" yaml:"validation"`
	ShowWhen       *Condition `json:"show_when,omitempty" yaml:"show_when,omitempty"`
	MasterDataType string     `json:"master_data_type,omitempty" yaml:"master_data_type,omitempty"`
}

func (f Field) hasOption(value string) bool {
	for _, opt := range f.Options {
		if opt.Value == value {
			return true
		}
	}
	return false
}
