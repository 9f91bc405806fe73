package model

import (
	"fmt"
	"sort"
)

// Handle is a typed reference to one field of a definition, resolved once
// when the registry is built.
type Handle struct {
	Field   Field
	Section *Section
	// Index is the field's position in document order.
	Index int
}

// Name returns the field name.
func (h *Handle) Name() string {
	if h == nil {
		return ""
	}
	return h.Field.Name
}

// Registry indexes every field of a definition by name. It is immutable
// after construction and safe for concurrent reads.
type Registry struct {
	def     *Definition
	handles []*Handle
	byName  map[string]*Handle
}

// NewRegistry builds the registry for def.
func NewRegistry(def *Definition) (*Registry, error) {
	if def == nil {
		return nil, fmt.Errorf("model: registry requires a definition")
	}
	reg := &Registry{
		def:    def,
		byName: make(map[string]*Handle),
	}
	for si := range def.Sections {
		section := &def.Sections[si]
		for _, field := range section.Fields {
			if _, dup := reg.byName[field.Name]; dup {
				return nil, fmt.Errorf("model: duplicate field %q", field.Name)
			}
			h := &Handle{Field: field, Section: section, Index: len(reg.handles)}
			reg.handles = append(reg.handles, h)
			reg.byName[field.Name] = h
		}
	}
	return reg, nil
}

// Definition returns the definition the registry was built from.
func (r *Registry) Definition() *Definition { return r.def }

// Lookup returns the handle for name.
func (r *Registry) Lookup(name string) (*Handle, bool) {
	if r == nil {
		return nil, false
	}
	h, ok := r.byName[name]
	return h, ok
}

// Fields returns every handle in document order.
func (r *Registry) Fields() []*Handle {
	if r == nil {
		return nil
	}
	out := make([]*Handle, len(r.handles))
	copy(out, r.handles)
	return out
}

// Section returns the handles of one section in document order.
func (r *Registry) Section(id string) []*Handle {
	var out []*Handle
	for _, h := range r.handles {
		if h.Section != nil && h.Section.ID == id {
			out = append(out, h)
		}
	}
	return out
}

// Capped returns the handles of capped checkbox groups sorted by name.
func (r *Registry) Capped() []*Handle {
	var out []*Handle
	for _, h := range r.handles {
		if h.Field.Capped() {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Field.Name < out[j].Field.Name })
	return out
}

// Collected returns the handles that contribute to submission payloads, in
// document order.
func (r *Registry) Collected() []*Handle {
	var out []*Handle
	for _, h := range r.handles {
		if !h.Field.Internal {
			out = append(out, h)
		}
	}
	return out
}

// Len returns the number of registered fields.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.handles)
}
