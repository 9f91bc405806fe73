package form

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/goliatone/go-devsurvey/pkg/model"
)

// SetValue assigns a field value, re-evaluates the conditional fields and
// re-validates the field. Choice fields only accept their option values (or
// the empty value); checkbox groups take a list and may not exceed their cap.
func (c *Controller) SetValue(name string, v model.Value) error {
	h, err := c.handle(name)
	if err != nil {
		return err
	}

	var out outbox
	c.mu.Lock()
	err = c.setLocked(h, v, &out)
	c.mu.Unlock()
	out.flush(c.notifier)
	return err
}

func (c *Controller) setLocked(h *model.Handle, v model.Value, out *outbox) error {
	field := h.Field
	fs := c.state.field(field.Name)
	if !fs.Visible {
		return fmt.Errorf("%w: %q", ErrHidden, field.Name)
	}

	var next model.Value
	switch field.Kind {
	case model.FieldKindCheckbox:
		items := v.Items()
		for _, item := range items {
			if !field.HasOption(item) {
				return fmt.Errorf("%w: %q for %q", ErrInvalidOption, item, field.Name)
			}
		}
		items = orderByOptions(field, items)
		if field.Capped() && len(items) > field.MaxSelections {
			out.notify(LevelWarning, capMessage(field.MaxSelections))
			return fmt.Errorf("%w: %q allows %d", ErrCapExceeded, field.Name, field.MaxSelections)
		}
		next = model.List(items...)
	case model.FieldKindSelect, model.FieldKindRadio:
		if v.IsList() {
			return fmt.Errorf("%w: %q takes a single value", ErrInvalidOption, field.Name)
		}
		text := strings.TrimSpace(v.Text())
		if text != "" && !field.HasOption(text) && !model.IsPlaceholder(field, text) {
			return fmt.Errorf("%w: %q for %q", ErrInvalidOption, text, field.Name)
		}
		next = model.Text(text)
	default:
		if v.IsList() {
			return fmt.Errorf("%w: %q takes a single value", ErrInvalidOption, field.Name)
		}
		next = model.Text(v.Text())
	}

	if fs.Value.Equal(next) {
		return nil
	}
	fs.Value = next
	c.state.dirty = true
	if err := c.applyConditions(); err != nil {
		return err
	}
	c.checkField(h)
	return nil
}

// Check ticks option v of a checkbox group. When the tick would exceed the
// group's cap it is reverted, a warning notice is shown and false is
// returned.
func (c *Controller) Check(name, v string) (bool, error) {
	h, err := c.handle(name)
	if err != nil {
		return false, err
	}
	if h.Field.Kind != model.FieldKindCheckbox {
		return false, fmt.Errorf("%w: %q", ErrNotCheckbox, name)
	}

	var out outbox
	c.mu.Lock()
	checked, err := c.checkLocked(h, v, &out)
	c.mu.Unlock()
	out.flush(c.notifier)
	return checked, err
}

func (c *Controller) checkLocked(h *model.Handle, v string, out *outbox) (bool, error) {
	field := h.Field
	if !field.HasOption(v) {
		return false, fmt.Errorf("%w: %q for %q", ErrInvalidOption, v, field.Name)
	}
	fs := c.state.field(field.Name)
	if !fs.Visible {
		return false, fmt.Errorf("%w: %q", ErrHidden, field.Name)
	}
	if fs.Value.Contains(v) {
		return true, nil
	}
	if field.Capped() && fs.Value.Len()+1 > field.MaxSelections {
		out.notify(LevelWarning, capMessage(field.MaxSelections))
		return false, nil
	}
	items := append(fs.Value.Items(), v)
	fs.Value = model.List(orderByOptions(field, items)...)
	c.state.dirty = true
	if err := c.applyConditions(); err != nil {
		return true, err
	}
	c.checkField(h)
	return true, nil
}

// Uncheck clears option v of a checkbox group.
func (c *Controller) Uncheck(name, v string) error {
	h, err := c.handle(name)
	if err != nil {
		return err
	}
	if h.Field.Kind != model.FieldKindCheckbox {
		return fmt.Errorf("%w: %q", ErrNotCheckbox, name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	fs := c.state.field(name)
	if !fs.Value.Contains(v) {
		return nil
	}
	items := make([]string, 0, fs.Value.Len())
	for _, item := range fs.Value.Items() {
		if item != v {
			items = append(items, item)
		}
	}
	fs.Value = model.List(items...)
	c.state.dirty = true
	if err := c.applyConditions(); err != nil {
		return err
	}
	c.checkField(h)
	return nil
}

// Counter returns the checked count and cap of a checkbox group. max is 0
// for uncapped groups.
func (c *Controller) Counter(name string) (checked, max int) {
	h, ok := c.reg.Lookup(name)
	if !ok {
		return 0, 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.field(name).Value.Len(), h.Field.MaxSelections
}

// Reset clears every answer and decoration and hides conditional groups.
func (c *Controller) Reset() {
	var out outbox
	c.mu.Lock()
	c.resetLocked(&out)
	c.mu.Unlock()
	out.flush(c.notifier)
}

func (c *Controller) resetLocked(out *outbox) {
	lastSaved := c.state.lastSaved
	c.state = newState(c.reg, dependents(c.conditions))
	c.state.lastSaved = lastSaved
	if err := c.applyConditions(); err != nil {
		c.logger.Error("apply conditions after reset", zap.Error(err))
	}
	out.summary(Summary{})
}

func orderByOptions(field model.Field, items []string) []string {
	wanted := make(map[string]struct{}, len(items))
	for _, item := range items {
		wanted[item] = struct{}{}
	}
	out := make([]string, 0, len(wanted))
	for _, opt := range field.Options {
		if _, ok := wanted[opt.Value]; ok {
			out = append(out, opt.Value)
		}
	}
	return out
}
