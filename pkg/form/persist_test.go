package form

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"github.com/goliatone/go-devsurvey/pkg/model"
	"github.com/goliatone/go-devsurvey/pkg/snapshot"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	mustSet(t, f.ctrl, "age", model.Text("25-34"))
	mustSet(t, f.ctrl, "university", model.Text("NUST"))
	mustSet(t, f.ctrl, "work_arrangement", model.Text("Hybrid"))
	mustSet(t, f.ctrl, "learned_coding", model.List("self-taught", "bootcamp"))
	mustSet(t, f.ctrl, "province", model.Text("Diaspora"))
	mustSet(t, f.ctrl, "diaspora_city", model.Text("London"))
	mustSet(t, f.ctrl, "receive_report", model.Text("Yes, send me the report"))
	mustSet(t, f.ctrl, "email", model.Text("dev@example.co.zw"))
	if !f.ctrl.Dirty() {
		t.Fatalf("expected dirty form")
	}

	if err := f.ctrl.SaveState(ctx); err != nil {
		t.Fatalf("SaveState: %v", err)
	}
	if f.ctrl.Dirty() || !f.ctrl.LastSaved().Equal(testNow) {
		t.Fatalf("expected clean form saved at %s", testNow)
	}
	saved := f.ctrl.CollectData()

	restoredNotifier := &recordingNotifier{}
	restored, err := New(model.MustDefaultDefinition(),
		WithSnapshots(f.store),
		WithNotifier(restoredNotifier),
		WithClock(func() time.Time { return testNow.Add(time.Hour) }),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	n, err := restored.LoadState(ctx)
	if err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if n != 9 {
		t.Fatalf("expected 9 restored values, got %d", n)
	}
	if diff := cmp.Diff(saved, restored.CollectData()); diff != "" {
		t.Fatalf("round trip mismatch (-saved +restored):\n%s", diff)
	}
	if fs, _ := restored.Field("diaspora_city"); !fs.Visible || !fs.Required {
		t.Fatalf("restored trigger must reveal its group: %+v", fs)
	}
	if !restoredNotifier.has(LevelSuccess, "Restored 9 fields") {
		t.Fatalf("expected restore notice, got %+v", restoredNotifier.notices)
	}
}

func TestSaveStateSkipsEmptyForm(t *testing.T) {
	f := newFixture(t)
	if err := f.ctrl.SaveState(context.Background()); err != nil {
		t.Fatalf("SaveState: %v", err)
	}
	if f.store.Has(f.ctrl.Definition().StorageKey) {
		t.Fatalf("empty form must not be persisted")
	}
}

func TestSaveStateSkipsWhileSubmitting(t *testing.T) {
	f := newFixture(t)
	mustSet(t, f.ctrl, "age", model.Text("25-34"))
	f.ctrl.inFlight.Store(true)
	defer f.ctrl.inFlight.Store(false)

	if err := f.ctrl.SaveState(context.Background()); err != nil {
		t.Fatalf("SaveState: %v", err)
	}
	if f.store.Has(f.ctrl.Definition().StorageKey) {
		t.Fatalf("autosave must skip while a submission is in flight")
	}
}

func TestLoadStateDiscardsExpiredSnapshot(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	key := f.ctrl.Definition().StorageKey
	err := f.store.Put(ctx, key, snapshot.Snapshot{
		Data:      map[string]model.Value{"age": model.Text("25-34"), "languages": model.List("Go")},
		Timestamp: testNow.Add(-25 * time.Hour),
		Version:   "2026.1.0",
	})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	n, err := f.ctrl.LoadState(ctx)
	if err != nil || n != 0 {
		t.Fatalf("expected silent discard, got n=%d err=%v", n, err)
	}
	if !f.ctrl.Value("age").Empty() || !f.ctrl.Value("languages").Empty() {
		t.Fatalf("expired snapshot populated fields")
	}
	if f.store.Has(key) {
		t.Fatalf("expired snapshot must be deleted")
	}
	if len(f.notifier.notices) != 0 {
		t.Fatalf("expected no notices, got %+v", f.notifier.notices)
	}
}

func TestLoadStateDropsCorruptSnapshot(t *testing.T) {
	f := newFixture(t)
	key := f.ctrl.Definition().StorageKey
	f.store.PutRaw(key, []byte("{broken"))

	if _, err := f.ctrl.LoadState(context.Background()); !errors.Is(err, snapshot.ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
	if f.store.Has(key) {
		t.Fatalf("corrupt snapshot must be deleted")
	}
}

func TestLoadStateSkipsUnknownValuesAndCapsGroups(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	err := f.store.Put(ctx, f.ctrl.Definition().StorageKey, snapshot.Snapshot{
		Data: map[string]model.Value{
			"age":             model.Text("not-an-option"),
			"ghost":           model.Text("boo"),
			"version_control": model.List("GitHub", "GitLab", "Bitbucket"),
		},
		Timestamp: testNow,
	})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	n, err := f.ctrl.LoadState(ctx)
	if err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 restored values, got %d", n)
	}
	if diff := cmp.Diff([]string{"GitHub", "GitLab"}, f.ctrl.Value("version_control").Items()); diff != "" {
		t.Fatalf("cap not applied on restore (-want +got):\n%s", diff)
	}
	if !f.ctrl.Value("age").Empty() {
		t.Fatalf("unknown option must not be restored")
	}
}

func TestPersistenceRequiresStore(t *testing.T) {
	ctrl, err := New(model.MustDefaultDefinition())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := ctrl.SaveState(context.Background()); !errors.Is(err, ErrNoSnapshotStore) {
		t.Fatalf("expected ErrNoSnapshotStore, got %v", err)
	}
	if _, err := ctrl.LoadState(context.Background()); !errors.Is(err, ErrNoSnapshotStore) {
		t.Fatalf("expected ErrNoSnapshotStore, got %v", err)
	}
}

func TestRunAutosaveStopsWithContext(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	f := newFixture(t, WithAutosaveInterval(5*time.Millisecond))
	mustSet(t, f.ctrl, "age", model.Text("25-34"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.ctrl.RunAutosave(ctx) }()

	deadline := time.After(2 * time.Second)
	for !f.store.Has(f.ctrl.Definition().StorageKey) {
		select {
		case <-deadline:
			t.Fatalf("autosave never wrote a snapshot")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("RunAutosave: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("autosave loop did not stop")
	}
}

// flakyStore fails reads with an I/O error and records deletes.
type flakyStore struct {
	*snapshot.MemoryStore
	deletes int
}

func (s *flakyStore) Get(ctx context.Context, key string) (snapshot.Snapshot, error) {
	return snapshot.Snapshot{}, errors.New("badger: read: input/output error")
}

func (s *flakyStore) Delete(ctx context.Context, key string) error {
	s.deletes++
	return s.MemoryStore.Delete(ctx, key)
}

func TestLoadStateKeepsSnapshotOnReadFailure(t *testing.T) {
	store := &flakyStore{MemoryStore: snapshot.NewMemoryStore()}
	f := newFixture(t, WithSnapshots(store))
	key := f.ctrl.Definition().StorageKey
	if err := store.MemoryStore.Put(context.Background(), key, snapshot.Snapshot{
		Data:      map[string]model.Value{"age": model.Text("25-34")},
		Timestamp: testNow,
	}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	if _, err := f.ctrl.LoadState(context.Background()); err == nil {
		t.Fatalf("expected read error")
	}
	if store.deletes != 0 || !store.Has(key) {
		t.Fatalf("read failure must not delete the snapshot (deletes=%d)", store.deletes)
	}
}
