package snapshot_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-devsurvey/pkg/model"
	"github.com/goliatone/go-devsurvey/pkg/snapshot"
)


func storesUnderTest(t *testing.T) map[string]snapshot.Store {
	t.Helper()
	badgerStore, err := snapshot.OpenBadger("", snapshot.InMemory())
	require.NoError(t, err)
	t.Cleanup(func() { _ = badgerStore.Close() })

	return map[string]snapshot.Store{
		"memory": snapshot.NewMemoryStore(),
		"badger": badgerStore,
	}
}

func TestStoresRoundTrip(t *testing.T) {
	ctx := context.Background()
	captured := time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)

	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Get(ctx, "zimDevSurvey2026")
			require.ErrorIs(t, err, snapshot.ErrNotFound)

			in := snapshot.Snapshot{
				Data: map[string]model.Value{
					"age":            model.Text("25-34"),
					"learned_coding": model.List("self-taught", "bootcamp"),
					"languages":      model.List(),
				},
				Timestamp: captured,
				Version:   "2026.1.0",
			}
			require.NoError(t, store.Put(ctx, "zimDevSurvey2026", in))

			out, err := store.Get(ctx, "zimDevSurvey2026")
			require.NoError(t, err)
			require.True(t, out.Timestamp.Equal(captured))
			require.Equal(t, "2026.1.0", out.Version)
			if diff := cmp.Diff(in.Data, out.Data); diff != "" {
				t.Fatalf("data mismatch (-want +got):\n%s", diff)
			}

			in.Data = map[string]model.Value{"age": model.Text("35-44")}
			require.NoError(t, store.Put(ctx, "zimDevSurvey2026", in))
			out, err = store.Get(ctx, "zimDevSurvey2026")
			require.NoError(t, err)
			require.Len(t, out.Data, 1)

			require.NoError(t, store.Delete(ctx, "zimDevSurvey2026"))
			_, err = store.Get(ctx, "zimDevSurvey2026")
			require.ErrorIs(t, err, snapshot.ErrNotFound)
		})
	}
}

func TestEncodeUsesStorageShape(t *testing.T) {
	raw, err := snapshot.Encode(snapshot.Snapshot{
		Data:      map[string]model.Value{"languages": model.List()},
		Timestamp: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Version:   "1",
	})
	require.NoError(t, err)
	require.JSONEq(t, `{"data":{"languages":[]},"timestamp":"2026-01-02T03:04:05Z","version":"1"}`, string(raw))
}

func TestDecodeRejectsCorruptInput(t *testing.T) {
	_, err := snapshot.Decode([]byte("{not json"))
	require.ErrorIs(t, err, snapshot.ErrCorrupt)

	_, err = snapshot.Decode([]byte(`{"data":{}}`))
	require.ErrorIs(t, err, snapshot.ErrCorrupt)
}

func TestExpired(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	fresh := snapshot.Snapshot{Timestamp: now.Add(-23 * time.Hour)}
	stale := snapshot.Snapshot{Timestamp: now.Add(-25 * time.Hour)}

	require.False(t, fresh.Expired(now, 24*time.Hour))
	require.True(t, stale.Expired(now, 24*time.Hour))
	require.False(t, stale.Expired(now, 0))
}

func TestDefaultDir(t *testing.T) {
	require.Contains(t, snapshot.DefaultDir(""), "devsurvey")
	require.Contains(t, snapshot.DefaultDir("custom"), "custom")
}
