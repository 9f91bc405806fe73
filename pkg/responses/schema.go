// Package responses stores accepted survey submissions, one row per
// submission, in a fixed column set derived from the survey definition.
package responses

import (
	"fmt"
	"regexp"

	"github.com/goliatone/go-devsurvey/pkg/model"
)

// DefaultTable is the response table name.
const DefaultTable = "survey_responses"

// Metadata columns appended after the survey fields.
const (
	ColumnUserAgent    = "user_agent"
	ColumnSubmissionID = "submission_id"
)

var identPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Column is one response column. Multi columns hold lists of strings.
type Column struct {
	Name  string `json:"name"`
	Multi bool   `json:"multi,omitempty"`
}

// Schema is the table layout.
type Schema struct {
	Table   string   `json:"table"`
	Columns []Column `json:"columns"`
}

// SchemaFor derives the response schema from def: every collected field in
// document order, checkbox groups as multi columns, then the metadata
// columns.
func SchemaFor(def *model.Definition) Schema {
	s := Schema{Table: DefaultTable}
	if def == nil {
		return s
	}
	for _, section := range def.Sections {
		for _, field := range section.Fields {
			if field.Internal {
				continue
			}
			s.Columns = append(s.Columns, Column{Name: field.Name, Multi: field.Kind == model.FieldKindCheckbox})
		}
	}
	s.Columns = append(s.Columns, Column{Name: ColumnUserAgent}, Column{Name: ColumnSubmissionID})
	return s
}

// Validate checks that table and column names are safe SQL identifiers.
func (s Schema) Validate() error {
	if !identPattern.MatchString(s.Table) {
		return fmt.Errorf("responses: invalid table name %q", s.Table)
	}
	if len(s.Columns) == 0 {
		return fmt.Errorf("responses: schema %q has no columns", s.Table)
	}
	seen := make(map[string]struct{}, len(s.Columns))
	for _, col := range s.Columns {
		if !identPattern.MatchString(col.Name) {
			return fmt.Errorf("responses: invalid column name %q", col.Name)
		}
		if _, dup := seen[col.Name]; dup {
			return fmt.Errorf("responses: duplicate column %q", col.Name)
		}
		seen[col.Name] = struct{}{}
	}
	return nil
}

// Column returns the named column.
func (s Schema) Column(name string) (Column, bool) {
	for _, col := range s.Columns {
		if col.Name == name {
			return col, true
		}
	}
	return Column{}, false
}

// Multi lists the names of multi-valued columns.
func (s Schema) Multi() []string {
	var out []string
	for _, col := range s.Columns {
		if col.Multi {
			out = append(out, col.Name)
		}
	}
	return out
}

// Row is one response. Every schema column is present: multi columns hold a
// []string (never nil), other columns hold a string or nil.
type Row map[string]any

// NewRow returns a row with every column set to its empty representation.
func (s Schema) NewRow() Row {
	row := make(Row, len(s.Columns))
	for _, col := range s.Columns {
		if col.Multi {
			row[col.Name] = []string{}
		} else {
			row[col.Name] = nil
		}
	}
	return row
}

// Conform checks that row carries exactly the schema's columns with the
// right shapes.
func (s Schema) Conform(row Row) error {
	if len(row) != len(s.Columns) {
		return fmt.Errorf("responses: row has %d columns, schema %d", len(row), len(s.Columns))
	}
	for _, col := range s.Columns {
		v, ok := row[col.Name]
		if !ok {
			return fmt.Errorf("responses: row misses column %q", col.Name)
		}
		switch v.(type) {
		case []string:
			if !col.Multi {
				return fmt.Errorf("responses: column %q is not multi-valued", col.Name)
			}
		case string, nil:
			if col.Multi {
				return fmt.Errorf("responses: column %q must be a list", col.Name)
			}
		default:
			return fmt.Errorf("responses: column %q has unsupported type %T", col.Name, v)
		}
	}
	return nil
}

// String returns the text of a scalar cell or "" for nil.
func (r Row) String(name string) string {
	s, _ := r[name].(string)
	return s
}

// List returns the items of a multi cell.
func (r Row) List(name string) []string {
	items, _ := r[name].([]string)
	return items
}
