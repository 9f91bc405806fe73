package model

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed survey.yaml
var defaultDefinitionYAML []byte

const (
	// DefaultAutosaveInterval applies when a definition omits autosave_interval.
	DefaultAutosaveInterval = 30 * time.Second
	// DefaultSnapshotExpiry applies when a definition omits snapshot_expiry.
	DefaultSnapshotExpiry = 24 * time.Hour
)

var (
	errDefinitionIDMissing  = errors.New("model: definition id is required")
	errStorageKeyMissing    = errors.New("model: storage key is required")
	errDefinitionNoSections = errors.New("model: definition has no sections")

	defaultOnce sync.Once
	defaultDef  *Definition
	defaultErr  error
)

// DefaultDefinition returns the embedded developer survey definition. The
// returned value is shared and must not be mutated.
func DefaultDefinition() (*Definition, error) {
	defaultOnce.Do(func() {
		defaultDef, defaultErr = ParseDefinition(defaultDefinitionYAML)
	})
	return defaultDef, defaultErr
}

// MustDefaultDefinition panics when the embedded definition is invalid.
func MustDefaultDefinition() *Definition {
	def, err := DefaultDefinition()
	if err != nil {
		panic(err)
	}
	return def
}

// LoadDefinition decodes and validates a YAML definition from r.
func LoadDefinition(r io.Reader) (*Definition, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("model: read definition: %w", err)
	}
	return ParseDefinition(raw)
}

// ParseDefinition decodes and validates a YAML definition.
func ParseDefinition(raw []byte) (*Definition, error) {
	var def Definition
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&def); err != nil {
		return nil, fmt.Errorf("model: decode definition: %w", err)
	}
	applyDefaults(&def)
	if err := Validate(&def); err != nil {
		return nil, err
	}
	return &def, nil
}

func applyDefaults(def *Definition) {
	if def.AutosaveInterval <= 0 {
		def.AutosaveInterval = DefaultAutosaveInterval
	}
	if def.SnapshotExpiry <= 0 {
		def.SnapshotExpiry = DefaultSnapshotExpiry
	}
	for si := range def.Sections {
		for fi := range def.Sections[si].Fields {
			field := &def.Sections[si].Fields[fi]
			field.Name = strings.TrimSpace(field.Name)
			if field.Kind == "" {
				field.Kind = FieldKindText
			}
		}
	}
}

// Validate checks the structural invariants of a definition.
func Validate(def *Definition) error {
	if def == nil {
		return errors.New("model: definition is nil")
	}
	if strings.TrimSpace(def.ID) == "" {
		return errDefinitionIDMissing
	}
	if strings.TrimSpace(def.StorageKey) == "" {
		return errStorageKeyMissing
	}
	if len(def.Sections) == 0 {
		return errDefinitionNoSections
	}

	seen := make(map[string]struct{})
	for _, section := range def.Sections {
		for _, field := range section.Fields {
			if err := validateField(field); err != nil {
				return fmt.Errorf("model: section %q: %w", section.ID, err)
			}
			if _, dup := seen[field.Name]; dup {
				return fmt.Errorf("model: duplicate field %q", field.Name)
			}
			seen[field.Name] = struct{}{}
		}
	}

	for _, name := range def.ServerRequired {
		if _, ok := seen[name]; !ok {
			return fmt.Errorf("model: server-required field %q is not defined", name)
		}
	}

	for i, cond := range def.Conditions {
		if strings.TrimSpace(cond.When) == "" {
			return fmt.Errorf("model: condition %d: predicate is required", i)
		}
		if len(cond.Show) == 0 {
			return fmt.Errorf("model: condition %d: show list is empty", i)
		}
		shown := make(map[string]struct{}, len(cond.Show))
		for _, name := range cond.Show {
			if _, ok := seen[name]; !ok {
				return fmt.Errorf("model: condition %d: unknown field %q", i, name)
			}
			shown[name] = struct{}{}
		}
		for _, name := range cond.Require {
			if _, ok := shown[name]; !ok {
				return fmt.Errorf("model: condition %d: required field %q is not in the show list", i, name)
			}
		}
	}
	return nil
}

func validateField(field Field) error {
	if field.Name == "" {
		return errors.New("field name is required")
	}
	if !field.Kind.Valid() {
		return fmt.Errorf("field %q: unknown kind %q", field.Name, field.Kind)
	}
	if field.Kind.Choice() && len(field.Options) == 0 {
		return fmt.Errorf("field %q: %s field requires options", field.Name, field.Kind)
	}
	if field.MaxSelections < 0 {
		return fmt.Errorf("field %q: max_selections must not be negative", field.Name)
	}
	if field.MaxSelections > 0 && field.Kind != FieldKindCheckbox {
		return fmt.Errorf("field %q: max_selections only applies to checkbox groups", field.Name)
	}
	values := make(map[string]struct{}, len(field.Options))
	for _, opt := range field.Options {
		if _, dup := values[opt.Value]; dup {
			return fmt.Errorf("field %q: duplicate option %q", field.Name, opt.Value)
		}
		values[opt.Value] = struct{}{}
	}
	return nil
}
