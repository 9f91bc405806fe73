package form

import (
	"fmt"

	"github.com/goliatone/go-devsurvey/pkg/model"
	"github.com/goliatone/go-devsurvey/pkg/visibility"
	"github.com/goliatone/go-devsurvey/pkg/visibility/expr"
)

// condition is a definition condition whose rule parsed and reads only
// known fields.
type condition struct {
	model.Condition
}

func compileConditions(def *model.Definition, reg *model.Registry) ([]condition, error) {
	out := make([]condition, 0, len(def.Conditions))
	for i, cond := range def.Conditions {
		prog, err := expr.Compile(cond.When)
		if err != nil {
			return nil, fmt.Errorf("form: condition %d: %w", i, err)
		}
		for _, name := range prog.Fields() {
			if _, ok := reg.Lookup(name); !ok {
				return nil, fmt.Errorf("form: condition %d reads unknown field %q", i, name)
			}
		}
		out = append(out, condition{Condition: cond})
	}
	return out, nil
}

// CompileConditions checks that every condition of def parses and only reads
// defined fields.
func CompileConditions(def *model.Definition) error {
	reg, err := model.NewRegistry(def)
	if err != nil {
		return err
	}
	_, err = compileConditions(def, reg)
	return err
}

func dependents(conditions []condition) map[string]struct{} {
	out := make(map[string]struct{})
	for _, cond := range conditions {
		for _, name := range cond.Show {
			out[name] = struct{}{}
		}
	}
	return out
}

// applyConditions re-evaluates every condition until visibility settles.
// Hidden dependents lose their value and requiredness. Caller holds the lock
// or has exclusive access.
func (c *Controller) applyConditions() error {
	if len(c.conditions) == 0 {
		return nil
	}
	for pass := 0; pass <= len(c.conditions); pass++ {
		ctx := visibility.Context{Values: c.state.values(), Extras: c.extras}
		visible := make(map[string]bool)
		required := make(map[string]bool)
		for _, cond := range c.conditions {
			holds, err := c.evaluator.Eval(cond.When, ctx)
			if err != nil {
				return fmt.Errorf("form: evaluate %q: %w", cond.When, err)
			}
			for _, name := range cond.Show {
				visible[name] = visible[name] || holds
			}
			for _, name := range cond.Require {
				required[name] = required[name] || holds
			}
		}

		changed := false
		for name, show := range visible {
			h, _ := c.reg.Lookup(name)
			fs := c.state.field(name)
			if fs == nil || h == nil {
				continue
			}
			req := h.Field.Required || required[name]
			if !show {
				req = false
				if !fs.Value.Empty() {
					fs.Value = emptyValue(h.Field)
					changed = true
				}
				fs.Decoration = Untouched
				fs.Message = ""
			}
			if fs.Visible != show {
				fs.Visible = show
				changed = true
			}
			fs.Required = req
		}
		if !changed {
			return nil
		}
	}
	return nil
}
