package form

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/goliatone/go-devsurvey/pkg/model"
)

// Progress returns the share of visible required fields that are answered,
// as a rounded percentage. A form without required fields reports 0.
func (c *Controller) Progress() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	total, filled := 0, 0
	for _, h := range c.reg.Fields() {
		fs := c.state.field(h.Name())
		if fs == nil || !fs.Visible {
			continue
		}
		if !fs.Required && !c.def.IsServerRequired(h.Name()) {
			continue
		}
		total++
		if !isEmpty(h.Field, fs.Value) {
			filled++
		}
	}
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(filled) / float64(total) * 100))
}

// Dirty reports whether answers changed since the last save, restore or
// reset.
func (c *Controller) Dirty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.dirty
}

// MissingServerFields lists the server-mandated fields that the current
// answers would leave empty.
func (c *Controller) MissingServerFields() []string {
	return missingServerFields(c.def.ServerRequired, c.CollectData())
}

func missingServerFields(required []string, data map[string]model.Value) []string {
	var missing []string
	for _, name := range required {
		v, ok := data[name]
		if !ok || v.Empty() {
			missing = append(missing, name)
		}
	}
	return missing
}

// Guard runs fn and converts a returned error or a panic into a logged
// failure. In debug mode the failure is also shown as an error notice.
func (c *Controller) Guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("form: panic: %v", r)
		}
		if err == nil {
			return
		}
		c.logger.Error("unhandled form error", zap.Error(err))
		if c.debug {
			c.notifier.Notify(Notice{Level: LevelError, Message: "Error: " + err.Error()})
		}
	}()
	return fn()
}
