package form

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/goliatone/go-devsurvey/pkg/model"
	"github.com/goliatone/go-devsurvey/pkg/snapshot"
	"github.com/goliatone/go-devsurvey/pkg/transport"
)

var cmpIgnoreHandle = cmpopts.IgnoreFields(ValidationError{}, "Handle")

var testNow = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

type recordingNotifier struct {
	mu        sync.Mutex
	notices   []Notice
	busy      []bool
	summaries []Summary
	focus     []string
}

func (r *recordingNotifier) Notify(n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *recordingNotifier) Busy(on bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.busy = append(r.busy, on)
}

func (r *recordingNotifier) ShowSummary(s Summary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summaries = append(r.summaries, s)
}

func (r *recordingNotifier) Focus(field string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.focus = append(r.focus, field)
}

func (r *recordingNotifier) last() Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notices) == 0 {
		return Notice{}
	}
	return r.notices[len(r.notices)-1]
}

func (r *recordingNotifier) has(level Level, message string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.notices {
		if n.Level == level && n.Message == message {
			return true
		}
	}
	return false
}

type stubSender struct {
	mu       sync.Mutex
	payloads []transport.Payload
	err      error
	block    chan struct{}
	entered  chan struct{}
}

func (s *stubSender) Send(ctx context.Context, payload transport.Payload) (*transport.Ack, error) {
	if s.entered != nil {
		close(s.entered)
	}
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payloads = append(s.payloads, payload)
	if s.err != nil {
		return nil, s.err
	}
	return &transport.Ack{Status: 200, Success: true}, nil
}

type fixture struct {
	ctrl     *Controller
	notifier *recordingNotifier
	sender   *stubSender
	store    *snapshot.MemoryStore
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		notifier: &recordingNotifier{},
		sender:   &stubSender{},
		store:    snapshot.NewMemoryStore(),
	}
	base := []Option{
		WithNotifier(f.notifier),
		WithSender(f.sender),
		WithSnapshots(f.store),
		WithClock(func() time.Time { return testNow }),
		WithIDGenerator(func() string { return "sub-1" }),
		WithUserAgent("form-test"),
	}
	ctrl, err := New(model.MustDefaultDefinition(), append(base, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	f.ctrl = ctrl
	return f
}

// answer picks a valid value for any field kind.
func answer(field model.Field) model.Value {
	switch field.Kind {
	case model.FieldKindCheckbox:
		return model.List(field.Options[0].Value)
	case model.FieldKindSelect, model.FieldKindRadio:
		for _, opt := range field.Options {
			if !opt.Disabled {
				return model.Text(opt.Value)
			}
		}
	case model.FieldKindEmail:
		return model.Text("dev@example.co.zw")
	}
	return model.Text("answer")
}

func fillRequired(t *testing.T, c *Controller) {
	t.Helper()
	for _, h := range c.Registry().Fields() {
		fs, _ := c.Field(h.Name())
		if !fs.Visible || !(fs.Required || c.Definition().IsServerRequired(h.Name())) {
			continue
		}
		if err := c.SetValue(h.Name(), answer(h.Field)); err != nil {
			t.Fatalf("set %s: %v", h.Name(), err)
		}
	}
}

func mustSet(t *testing.T, c *Controller, name string, v model.Value) {
	t.Helper()
	if err := c.SetValue(name, v); err != nil {
		t.Fatalf("set %s: %v", name, err)
	}
}
