package form

import (
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/goliatone/go-devsurvey/pkg/model"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Inline messages.
const (
	msgRequired     = "This field is required"
	msgSelectOption = "Please select an option"
	msgSelectOne    = "Please select at least one option"
	msgEmail        = "Please enter a valid email address"
)

// ValidationError is one offending field of a validation run.
type ValidationError struct {
	Field   string
	Message string
	Handle  *model.Handle
}

// Result is the outcome of ValidateForm.
type Result struct {
	Valid  bool
	Errors []ValidationError
}

// Fields lists the offending field names in report order.
func (r Result) Fields() []string {
	out := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		out = append(out, e.Field)
	}
	return out
}

// Has reports whether name is among the offenders.
func (r Result) Has(name string) bool {
	for _, e := range r.Errors {
		if e.Field == name {
			return true
		}
	}
	return false
}

// ValidateField checks one field and updates its decoration. Unknown fields
// are invalid.
func (c *Controller) ValidateField(name string) bool {
	h, ok := c.reg.Lookup(name)
	if !ok {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	ok, _, _ = c.checkField(h)
	return ok
}

// checkField validates h, marks its decoration and returns the inline
// message plus whether the failure was a missing value.
func (c *Controller) checkField(h *model.Handle) (ok bool, message string, missing bool) {
	fs := c.state.field(h.Name())
	c.state.mark(h.Name(), Untouched, "")
	if fs == nil || !fs.Visible {
		return true, "", false
	}

	field := h.Field
	empty := isEmpty(field, fs.Value)
	required := fs.Required || c.def.IsServerRequired(field.Name)

	if required && empty {
		message = requiredMessage(field)
		c.state.mark(field.Name, Invalid, message)
		return false, message, true
	}
	if field.Kind == model.FieldKindEmail && !empty && !emailPattern.MatchString(strings.TrimSpace(fs.Value.Text())) {
		c.state.mark(field.Name, Invalid, msgEmail)
		return false, msgEmail, false
	}
	if field.Capped() && fs.Value.Len() > field.MaxSelections {
		message = capMessage(field.MaxSelections)
		c.state.mark(field.Name, Invalid, message)
		return false, message, false
	}
	if !empty || field.Kind.Choice() {
		c.state.mark(field.Name, Valid, "")
	}
	return true, "", false
}

func isEmpty(field model.Field, value model.Value) bool {
	if value.IsList() || field.Kind == model.FieldKindCheckbox {
		return value.Len() == 0
	}
	return model.IsPlaceholder(field, value.Text())
}

func requiredMessage(field model.Field) string {
	if field.RequiredMessage != "" {
		return field.RequiredMessage
	}
	switch field.Kind {
	case model.FieldKindCheckbox, model.FieldKindRadio:
		return msgSelectOne
	case model.FieldKindSelect:
		return msgSelectOption
	default:
		return msgRequired
	}
}

func capMessage(max int) string {
	return fmt.Sprintf("Maximum %d selections allowed", max)
}

// ValidateForm runs a full pass: server-mandated fields first, then every
// other required or filled field in document order, then the capped groups.
// Previous decorations are cleared first, the first offender receives focus
// and an error summary is shown when the form is invalid.
func (c *Controller) ValidateForm() Result {
	var out outbox
	c.mu.Lock()
	result := c.validateLocked(&out)
	c.mu.Unlock()
	out.flush(c.notifier)
	return result
}

func (c *Controller) validateLocked(out *outbox) Result {
	c.state.clearDecorations()
	var errs []ValidationError
	checked := make(map[string]struct{})

	for _, name := range c.def.ServerRequired {
		h, ok := c.reg.Lookup(name)
		if !ok {
			errs = append(errs, ValidationError{Field: name, Message: fmt.Sprintf("Field %q is missing from the form", name)})
			continue
		}
		checked[name] = struct{}{}
		fs := c.state.field(name)
		if fs != nil && !isEmpty(h.Field, fs.Value) {
			c.checkField(h)
			continue
		}
		label := h.Field.DisplayLabel()
		c.state.mark(name, Invalid, label+" is required")
		errs = append(errs, ValidationError{Field: name, Message: label + " is required by the server", Handle: h})
	}

	for _, h := range c.reg.Fields() {
		if _, done := checked[h.Name()]; done {
			continue
		}
		fs := c.state.field(h.Name())
		if fs == nil || !fs.Visible {
			continue
		}
		if !fs.Required && h.Field.Kind != model.FieldKindEmail {
			continue
		}
		ok, message, missing := c.checkField(h)
		if ok {
			continue
		}
		if missing {
			message = h.Field.RequiredMessage
			if message == "" {
				message = h.Field.DisplayLabel() + " is required"
			}
		}
		errs = append(errs, ValidationError{Field: h.Name(), Message: message, Handle: h})
	}

	reported := make(map[string]struct{}, len(errs))
	for _, e := range errs {
		reported[e.Field] = struct{}{}
	}
	for _, h := range c.reg.Capped() {
		if _, dup := reported[h.Name()]; dup {
			continue
		}
		fs := c.state.field(h.Name())
		if fs == nil || fs.Value.Len() <= h.Field.MaxSelections {
			continue
		}
		message := capMessage(h.Field.MaxSelections)
		c.state.mark(h.Name(), Invalid, message)
		errs = append(errs, ValidationError{Field: h.Name(), Message: message, Handle: h})
	}

	result := Result{Valid: len(errs) == 0, Errors: errs}
	if result.Valid {
		out.summary(Summary{})
		return result
	}

	for _, e := range errs {
		if e.Handle != nil {
			c.state.focus = e.Field
			out.focus(e.Field)
			break
		}
	}

	text, err := c.summary.Render(errs)
	if err != nil {
		c.logger.Warn("render error summary", zap.Error(err))
		text = fallbackSummary(errs)
	}
	out.summary(Summary{Errors: errs, Text: text})
	return result
}
