package form

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/goliatone/go-devsurvey/pkg/model"
	"github.com/goliatone/go-devsurvey/pkg/snapshot"
	"github.com/goliatone/go-devsurvey/pkg/transport"
	"github.com/goliatone/go-devsurvey/pkg/visibility"
	"github.com/goliatone/go-devsurvey/pkg/visibility/expr"
)

// Phase is the submit state machine position.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseSubmitting Phase = "submitting"
)

// DefaultUserAgent tags submissions when no user agent is configured.
const DefaultUserAgent = "devsurvey/1.0"

// Controller drives one form instance.
type Controller struct {
	def        *model.Definition
	reg        *model.Registry
	conditions []condition
	evaluator  visibility.Evaluator
	extras     map[string]string

	mu    sync.Mutex
	state *State

	inFlight atomic.Bool
	// saveMu orders snapshot writes against the post-submit delete.
	saveMu sync.Mutex

	snapshots snapshot.Store
	sender    transport.Sender
	notifier  Notifier
	summary   *SummaryRenderer
	logger    *zap.Logger
	now       func() time.Time
	newID     func() string
	userAgent string
	autosave  time.Duration
	debug     bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithSnapshots sets the store used for autosave and restore.
func WithSnapshots(store snapshot.Store) Option {
	return func(c *Controller) {
		c.snapshots = store
	}
}

// WithSender sets the transport used by Submit.
func WithSender(sender transport.Sender) Option {
	return func(c *Controller) {
		c.sender = sender
	}
}

// WithNotifier sets the screen adapter.
func WithNotifier(n Notifier) Option {
	return func(c *Controller) {
		if n != nil {
			c.notifier = n
		}
	}
}

// WithSummaryRenderer overrides the error summary templates.
func WithSummaryRenderer(r *SummaryRenderer) Option {
	return func(c *Controller) {
		if r != nil {
			c.summary = r
		}
	}
}

// WithEvaluator replaces the condition evaluator. Rules are still checked
// with the expr language when the controller is built.
func WithEvaluator(e visibility.Evaluator) Option {
	return func(c *Controller) {
		if e != nil {
			c.evaluator = e
		}
	}
}

// WithExtras exposes flags outside the form to condition rules as
// `extras.<key>`.
func WithExtras(extras map[string]string) Option {
	return func(c *Controller) {
		c.extras = make(map[string]string, len(extras))
		for k, v := range extras {
			c.extras[k] = v
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// WithIDGenerator overrides submission id generation.
func WithIDGenerator(fn func() string) Option {
	return func(c *Controller) {
		if fn != nil {
			c.newID = fn
		}
	}
}

// WithUserAgent sets the user agent attached to submissions.
func WithUserAgent(ua string) Option {
	return func(c *Controller) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithAutosaveInterval overrides the definition's autosave interval.
func WithAutosaveInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.autosave = d
		}
	}
}

// WithDebug enables debug notices from Guard.
func WithDebug(enabled bool) Option {
	return func(c *Controller) {
		c.debug = enabled
	}
}

// New builds a controller for def. Condition predicates are compiled here and
// a rule that does not parse is an error.
func New(def *model.Definition, opts ...Option) (*Controller, error) {
	if def == nil {
		return nil, fmt.Errorf("form: definition is required")
	}
	reg, err := model.NewRegistry(def)
	if err != nil {
		return nil, err
	}
	conditions, err := compileConditions(def, reg)
	if err != nil {
		return nil, err
	}

	c := &Controller{
		def:        def,
		reg:        reg,
		conditions: conditions,
		evaluator:  expr.New(),
		notifier:   nopNotifier{},
		logger:     zap.NewNop(),
		now:        time.Now,
		newID:      uuid.NewString,
		userAgent:  DefaultUserAgent,
		autosave:   def.AutosaveInterval,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.summary == nil {
		c.summary, err = NewSummaryRenderer()
		if err != nil {
			return nil, err
		}
	}

	c.state = newState(reg, dependents(conditions))
	if err := c.applyConditions(); err != nil {
		return nil, err
	}
	return c, nil
}

// Definition returns the immutable definition.
func (c *Controller) Definition() *model.Definition { return c.def }

// Registry returns the field registry.
func (c *Controller) Registry() *model.Registry { return c.reg }

// Phase reports whether a submission is in flight.
func (c *Controller) Phase() Phase {
	if c.inFlight.Load() {
		return PhaseSubmitting
	}
	return PhaseIdle
}

// Field returns a copy of the named field's state.
func (c *Controller) Field(name string) (FieldState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fs := c.state.field(name)
	if fs == nil {
		return FieldState{}, false
	}
	return *fs, true
}

// Value returns the current value of name.
func (c *Controller) Value(name string) model.Value {
	fs, ok := c.Field(name)
	if !ok {
		return model.Text("")
	}
	return fs.Value
}

// Focus returns the field that currently holds focus after validation.
func (c *Controller) Focus() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.focus
}

// LastSaved returns when the form was last persisted or restored.
func (c *Controller) LastSaved() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.lastSaved
}

func (c *Controller) handle(name string) (*model.Handle, error) {
	h, ok := c.reg.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	return h, nil
}
