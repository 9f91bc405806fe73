package form

import (
	"time"

	"github.com/goliatone/go-devsurvey/pkg/model"
)

// Decoration is the validation mark shown next to a field.
type Decoration int

const (
	Untouched Decoration = iota
	Valid
	Invalid
)

func (d Decoration) String() string {
	switch d {
	case Valid:
		return "valid"
	case Invalid:
		return "invalid"
	default:
		return "untouched"
	}
}

// FieldState is the observable state of one field.
type FieldState struct {
	Value      model.Value
	Visible    bool
	Required   bool
	Decoration Decoration
	Message    string
}

// State tracks the answers and decorations of one form instance. It is
// owned by a Controller and only touched under the controller's lock.
type State struct {
	fields    map[string]*FieldState
	focus     string
	dirty     bool
	lastSaved time.Time
}

func newState(reg *model.Registry, dependents map[string]struct{}) *State {
	s := &State{fields: make(map[string]*FieldState, reg.Len())}
	for _, h := range reg.Fields() {
		_, conditional := dependents[h.Name()]
		s.fields[h.Name()] = &FieldState{
			Value:    emptyValue(h.Field),
			Visible:  !conditional,
			Required: h.Field.Required,
		}
	}
	return s
}

func emptyValue(field model.Field) model.Value {
	if field.Kind == model.FieldKindCheckbox {
		return model.List()
	}
	return model.Text("")
}

func (s *State) field(name string) *FieldState {
	return s.fields[name]
}

func (s *State) clearDecorations() {
	for _, fs := range s.fields {
		fs.Decoration = Untouched
		fs.Message = ""
	}
	s.focus = ""
}

func (s *State) values() map[string]model.Value {
	out := make(map[string]model.Value, len(s.fields))
	for name, fs := range s.fields {
		out[name] = fs.Value
	}
	return out
}

func (s *State) mark(name string, d Decoration, message string) {
	fs := s.fields[name]
	if fs == nil {
		return
	}
	fs.Decoration = d
	fs.Message = message
}
