package form

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-devsurvey/pkg/model"
	"github.com/goliatone/go-devsurvey/pkg/snapshot"
	"github.com/goliatone/go-devsurvey/pkg/transport"
)

func TestSubmitSuccessResetsFormAndClearsSnapshot(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	fillRequired(t, f.ctrl)
	mustSet(t, f.ctrl, "learned_coding", model.List("self-taught", "bootcamp"))
	if err := f.ctrl.SaveState(ctx); err != nil {
		t.Fatalf("SaveState: %v", err)
	}

	ack, err := f.ctrl.Submit(ctx)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !ack.Success {
		t.Fatalf("expected success ack")
	}

	if len(f.sender.payloads) != 1 {
		t.Fatalf("expected one payload, got %d", len(f.sender.payloads))
	}
	payload := f.sender.payloads[0]
	if payload.UserAgent != "form-test" || payload.SubmissionID != "sub-1" || !payload.SubmittedAt.Equal(testNow) {
		t.Fatalf("unexpected metadata %+v", payload)
	}
	if diff := cmp.Diff(model.List("self-taught", "bootcamp"), payload.Fields["learned_coding"]); diff != "" {
		t.Fatalf("learned_coding mismatch (-want +got):\n%s", diff)
	}
	if _, ok := payload.Fields["consent"]; ok {
		t.Fatalf("consent must not be sent")
	}

	if f.store.Has(f.ctrl.Definition().StorageKey) {
		t.Fatalf("snapshot must be cleared after success")
	}
	if !f.ctrl.Value("age").Empty() {
		t.Fatalf("form must be reset after success")
	}
	if diff := cmp.Diff([]bool{true, false}, f.notifier.busy); diff != "" {
		t.Fatalf("busy indicator mismatch (-want +got):\n%s", diff)
	}
	if f.notifier.last().Level != LevelSuccess {
		t.Fatalf("expected success notice, got %+v", f.notifier.last())
	}
	if f.ctrl.Phase() != PhaseIdle {
		t.Fatalf("expected idle phase")
	}
}

func TestSubmitBlockedByValidation(t *testing.T) {
	f := newFixture(t)
	mustSet(t, f.ctrl, "age", model.Text("25-34"))

	_, err := f.ctrl.Submit(context.Background())
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
	var invalid *InvalidError
	if !errors.As(err, &invalid) || !invalid.Result.Has("employment_status") {
		t.Fatalf("expected employment_status among errors, got %v", err)
	}
	if len(f.sender.payloads) != 0 {
		t.Fatalf("invalid form must not be sent")
	}
	if len(f.notifier.busy) != 0 {
		t.Fatalf("busy indicator must not show for invalid forms")
	}
	if !f.notifier.has(LevelError, "Please fix 4 error(s) before submitting") {
		t.Fatalf("expected fix notice, got %+v", f.notifier.notices)
	}
}

func TestSubmitFailureShapesKeepTheForm(t *testing.T) {
	cases := map[string]struct {
		err  error
		want string
	}{
		"client error verbatim": {
			err:  &transport.StatusError{Status: 400, Message: "Missing required fields: employment_status"},
			want: "Failed to submit: Missing required fields: employment_status",
		},
		"server error generic": {
			err:  &transport.StatusError{Status: 500, Message: "Database insert failed"},
			want: "Failed to submit: " + msgServerFailure,
		},
		"malformed": {
			err:  &transport.MalformedResponseError{Status: 502, Err: errors.New("invalid character")},
			want: "Failed to submit: " + msgMalformed,
		},
		"transport": {
			err:  &transport.TransportError{Err: errors.New("connection refused")},
			want: "Failed to submit: " + msgNetwork,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t)
			f.sender.err = tc.err
			fillRequired(t, f.ctrl)
			if err := f.ctrl.SaveState(ctx); err != nil {
				t.Fatalf("SaveState: %v", err)
			}

			_, err := f.ctrl.Submit(ctx)
			if !errors.Is(err, tc.err) {
				t.Fatalf("expected wrapped %v, got %v", tc.err, err)
			}
			if got := f.notifier.last(); got.Level != LevelError || got.Message != tc.want {
				t.Fatalf("unexpected notice %+v", got)
			}
			if f.ctrl.Value("age").Empty() {
				t.Fatalf("form must keep its answers after a failure")
			}
			if !f.store.Has(f.ctrl.Definition().StorageKey) {
				t.Fatalf("snapshot must survive a failure")
			}
			if f.ctrl.Phase() != PhaseIdle {
				t.Fatalf("in-flight flag must be cleared")
			}
		})
	}
}

func TestSubmitRejectsConcurrentAttempt(t *testing.T) {
	f := newFixture(t)
	f.sender.block = make(chan struct{})
	f.sender.entered = make(chan struct{})
	fillRequired(t, f.ctrl)

	done := make(chan error, 1)
	go func() {
		_, err := f.ctrl.Submit(context.Background())
		done <- err
	}()

	select {
	case <-f.sender.entered:
	case <-time.After(2 * time.Second):
		t.Fatalf("first submission never reached the sender")
	}
	if f.ctrl.Phase() != PhaseSubmitting {
		t.Fatalf("expected submitting phase")
	}

	_, err := f.ctrl.Submit(context.Background())
	if !errors.Is(err, ErrSubmissionInProgress) {
		t.Fatalf("expected ErrSubmissionInProgress, got %v", err)
	}
	if !f.notifier.has(LevelInfo, "Submission in progress...") {
		t.Fatalf("expected in-progress notice")
	}

	close(f.sender.block)
	if err := <-done; err != nil {
		t.Fatalf("first submission: %v", err)
	}
	if len(f.sender.payloads) != 1 {
		t.Fatalf("expected exactly one payload, got %d", len(f.sender.payloads))
	}
}

func TestSubmitWithoutSender(t *testing.T) {
	ctrl, err := New(model.MustDefaultDefinition(), WithSnapshots(snapshot.NewMemoryStore()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	fillRequired(t, ctrl)
	if _, err := ctrl.Submit(context.Background()); !errors.Is(err, ErrNoSender) {
		t.Fatalf("expected ErrNoSender, got %v", err)
	}
}

// gatedStore holds Put until release is closed.
type gatedStore struct {
	*snapshot.MemoryStore
	entered chan struct{}
	release chan struct{}
}

func (g *gatedStore) Put(ctx context.Context, key string, snap snapshot.Snapshot) error {
	close(g.entered)
	<-g.release
	return g.MemoryStore.Put(ctx, key, snap)
}

func TestSubmitWaitsForAutosaveBeforeClearingSnapshot(t *testing.T) {
	ctx := context.Background()
	store := &gatedStore{
		MemoryStore: snapshot.NewMemoryStore(),
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
	}
	sender := &stubSender{entered: make(chan struct{})}
	f := newFixture(t, WithSnapshots(store), WithSender(sender))
	fillRequired(t, f.ctrl)

	saved := make(chan error, 1)
	go func() { saved <- f.ctrl.SaveState(ctx) }()
	<-store.entered

	submitted := make(chan error, 1)
	go func() {
		_, err := f.ctrl.Submit(ctx)
		submitted <- err
	}()
	<-sender.entered
	close(store.release)

	if err := <-saved; err != nil {
		t.Fatalf("SaveState: %v", err)
	}
	if err := <-submitted; err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if store.Has(f.ctrl.Definition().StorageKey) {
		t.Fatalf("snapshot of submitted answers survived the submit")
	}
	n, err := f.ctrl.LoadState(ctx)
	if err != nil || n != 0 {
		t.Fatalf("expected nothing to restore, got n=%d err=%v", n, err)
	}
}

func TestSubmitClearsSnapshotAfterCallerCancels(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sender := transport.SenderFunc(func(ctx context.Context, payload transport.Payload) (*transport.Ack, error) {
		cancel()
		return &transport.Ack{Status: 200, Success: true}, nil
	})
	f := newFixture(t, WithSender(sender))
	fillRequired(t, f.ctrl)
	if err := f.ctrl.SaveState(ctx); err != nil {
		t.Fatalf("SaveState: %v", err)
	}

	if _, err := f.ctrl.Submit(ctx); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if f.store.Has(f.ctrl.Definition().StorageKey) {
		t.Fatalf("snapshot must be cleared once the send succeeded")
	}
}
