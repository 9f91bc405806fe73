package form

import (
	"strings"

	"github.com/goliatone/go-devsurvey/pkg/model"
)

// CollectData reads the answers that make up a submission. Checkbox groups
// always yield a list, possibly empty. Radio groups and free-text or select
// fields are omitted when unanswered (a placeholder choice is unanswered),
// except server-mandated fields, which are kept as empty strings so the
// endpoint rejects them explicitly.
// Internal fields are never collected. The form state is not modified.
func (c *Controller) CollectData() map[string]model.Value {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.collectLocked()
}

func (c *Controller) collectLocked() map[string]model.Value {
	out := make(map[string]model.Value)
	for _, h := range c.reg.Collected() {
		fs := c.state.field(h.Name())
		if fs == nil {
			continue
		}
		switch h.Field.Kind {
		case model.FieldKindCheckbox:
			out[h.Name()] = model.List(fs.Value.Items()...)
		case model.FieldKindRadio, model.FieldKindSelect:
			text := strings.TrimSpace(fs.Value.Text())
			if model.IsPlaceholder(h.Field, text) {
				text = ""
			}
			if text != "" || c.def.IsServerRequired(h.Name()) {
				out[h.Name()] = model.Text(text)
			}
		default:
			text := strings.TrimSpace(fs.Value.Text())
			if text != "" || c.def.IsServerRequired(h.Name()) {
				out[h.Name()] = model.Text(text)
			}
		}
	}
	return out
}

// hasData reports whether any collected value carries an answer.
func hasData(data map[string]model.Value) bool {
	for _, v := range data {
		if !v.Empty() {
			return true
		}
	}
	return false
}
