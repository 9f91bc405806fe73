package model

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FieldKind is the input type of a survey field.
type FieldKind string

const (
	FieldKindText     FieldKind = "text"
	FieldKindEmail    FieldKind = "email"
	FieldKindTextArea FieldKind = "textarea"
	FieldKindSelect   FieldKind = "select"
	FieldKindRadio    FieldKind = "radio"
	FieldKindCheckbox FieldKind = "checkbox"
)

// Valid reports whether k is one of the known kinds.
func (k FieldKind) Valid() bool {
	switch k {
	case FieldKindText, FieldKindEmail, FieldKindTextArea, FieldKindSelect, FieldKindRadio, FieldKindCheckbox:
		return true
	default:
		return false
	}
}

// Choice reports whether the kind picks from a fixed option list.
func (k FieldKind) Choice() bool {
	return k == FieldKindSelect || k == FieldKindRadio || k == FieldKindCheckbox
}

// Option is a selectable value of a choice field. Disabled options act as
// placeholders and never satisfy a required check.
type Option struct {
	Value    string `yaml:"value" json:"value"`
	Label    string `yaml:"label,omitempty" json:"label,omitempty"`
	Disabled bool   `yaml:"disabled,omitempty" json:"disabled,omitempty"`
}

// UnmarshalYAML accepts either a bare scalar (value and label) or a mapping.
func (o *Option) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		o.Value = node.Value
		o.Label = node.Value
		return nil
	}
	type plain Option
	var out plain
	if err := node.Decode(&out); err != nil {
		return err
	}
	*o = Option(out)
	if o.Label == "" {
		o.Label = o.Value
	}
	return nil
}

// Field models a named survey input. Checkbox groups share one Field across
// all of their options.
type Field struct {
	Name            string    `yaml:"name" json:"name"`
	Kind            FieldKind `yaml:"kind" json:"kind"`
	Label           string    `yaml:"label,omitempty" json:"label,omitempty"`
	Required        bool      `yaml:"required,omitempty" json:"required,omitempty"`
	RequiredMessage string    `yaml:"required_message,omitempty" json:"requiredMessage,omitempty"`
	Placeholder     string    `yaml:"placeholder,omitempty" json:"placeholder,omitempty"`
	Options         []Option  `yaml:"options,omitempty" json:"options,omitempty"`
	MaxSelections   int       `yaml:"max_selections,omitempty" json:"maxSelections,omitempty"`
	Internal        bool      `yaml:"internal,omitempty" json:"internal,omitempty"`
}

// DisplayLabel returns the label, falling back to a title-cased name.
func (f Field) DisplayLabel() string {
	if label := strings.TrimSpace(f.Label); label != "" {
		return label
	}
	words := strings.Fields(strings.ReplaceAll(f.Name, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// Capped reports whether the field is a checkbox group with a selection cap.
func (f Field) Capped() bool {
	return f.Kind == FieldKindCheckbox && f.MaxSelections > 0
}

// HasOption reports whether value is one of the field's option values.
func (f Field) HasOption(value string) bool {
	for _, opt := range f.Options {
		if opt.Value == value {
			return true
		}
	}
	return false
}

// Section groups fields under a heading.
type Section struct {
	ID     string  `yaml:"id" json:"id"`
	Title  string  `yaml:"title" json:"title"`
	Fields []Field `yaml:"fields" json:"fields"`
}

// Condition is one entry of the conditional-field table. When the When
// predicate holds, the Show fields are revealed and the Require subset is
// promoted to required. When it stops holding, the group is hidden, demoted
// and cleared.
type Condition struct {
	When    string   `yaml:"when" json:"when"`
	Show    []string `yaml:"show" json:"show"`
	Require []string `yaml:"require,omitempty" json:"require,omitempty"`
}

// Definition is the complete, immutable survey configuration.
type Definition struct {
	ID               string        `yaml:"id" json:"id"`
	Title            string        `yaml:"title" json:"title"`
	Version          string        `yaml:"version" json:"version"`
	Endpoint         string        `yaml:"endpoint" json:"endpoint"`
	StorageKey       string        `yaml:"storage_key" json:"storageKey"`
	AutosaveInterval time.Duration `yaml:"autosave_interval" json:"autosaveInterval"`
	SnapshotExpiry   time.Duration `yaml:"snapshot_expiry" json:"snapshotExpiry"`
	ServerRequired   []string      `yaml:"server_required" json:"serverRequired"`
	Sections         []Section     `yaml:"sections" json:"sections"`
	Conditions       []Condition   `yaml:"conditions,omitempty" json:"conditions,omitempty"`
}

// Field returns the named field definition.
func (d *Definition) Field(name string) (Field, bool) {
	if d == nil {
		return Field{}, false
	}
	for _, section := range d.Sections {
		for _, field := range section.Fields {
			if field.Name == name {
				return field, true
			}
		}
	}
	return Field{}, false
}

// IsServerRequired reports whether name is in the server-mandated list.
func (d *Definition) IsServerRequired(name string) bool {
	if d == nil {
		return false
	}
	for _, required := range d.ServerRequired {
		if required == name {
			return true
		}
	}
	return false
}

// Caps returns the selection cap of every capped group keyed by name.
func (d *Definition) Caps() map[string]int {
	out := make(map[string]int)
	if d == nil {
		return out
	}
	for _, section := range d.Sections {
		for _, field := range section.Fields {
			if field.Capped() {
				out[field.Name] = field.MaxSelections
			}
		}
	}
	return out
}

var placeholderValues = []string{"select...", "choose...", "--select--"}

// IsPlaceholder reports whether value would leave a required field
// unanswered: empty, one of the conventional placeholder labels, the field's
// own placeholder text, or a disabled option.
func IsPlaceholder(field Field, value string) bool {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return true
	}
	lower := strings.ToLower(trimmed)
	for _, p := range placeholderValues {
		if lower == p {
			return true
		}
	}
	if field.Placeholder != "" && trimmed == strings.TrimSpace(field.Placeholder) {
		return true
	}
	for _, opt := range field.Options {
		if opt.Disabled && opt.Value == trimmed {
			return true
		}
	}
	return false
}

func (k FieldKind) String() string {
	return string(k)
}

func (d *Definition) String() string {
	if d == nil {
		return "<nil definition>"
	}
	return fmt.Sprintf("%s@%s", d.ID, d.Version)
}
