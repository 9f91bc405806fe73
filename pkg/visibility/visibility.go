package visibility

import "github.com/goliatone/go-devsurvey/pkg/model"

// Evaluator decides whether a condition holds for the current answers.
type Evaluator interface {
	Eval(rule string, ctx Context) (bool, error)
}

// Context provides inputs to an Evaluator. Values holds the current field
// answers keyed by field name while Extras lets callers inject flags that are
// not part of the form, addressed in rules with the `extras.` prefix.
type Context struct {
	Values map[string]model.Value
	Extras map[string]string
}

// Value returns the answer stored for name, or an empty scalar.
func (c Context) Value(name string) (model.Value, bool) {
	if c.Values == nil {
		return model.Text(""), false
	}
	v, ok := c.Values[name]
	if !ok {
		return model.Text(""), false
	}
	return v, true
}

// EvaluatorFunc adapts a function into an Evaluator.
type EvaluatorFunc func(rule string, ctx Context) (bool, error)

// Eval delegates to the underlying function.
func (fn EvaluatorFunc) Eval(rule string, ctx Context) (bool, error) {
	return fn(rule, ctx)
}
