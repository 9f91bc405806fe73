// Package snapshot persists in-progress form answers so a crashed or reloaded
// session can resume where it stopped.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"

	"github.com/goliatone/go-devsurvey/pkg/model"
)

// ErrNotFound is returned when no snapshot is stored under a key.
var ErrNotFound = errors.New("snapshot: not found")

// ErrCorrupt is wrapped by decode failures. Stores report other read
// failures unwrapped so callers can tell a bad record from a bad disk.
var ErrCorrupt = errors.New("snapshot: corrupt record")

// Snapshot is one captured copy of the form's answers.
type Snapshot struct {
	Data      map[string]model.Value `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
}

// Expired reports whether the snapshot is older than window at now. A
// non-positive window never expires.
func (s Snapshot) Expired(now time.Time, window time.Duration) bool {
	if window <= 0 {
		return false
	}
	return now.Sub(s.Timestamp) > window
}

// Store persists snapshots under a string key. Put replaces any previous
// snapshot wholesale.
type Store interface {
	Get(ctx context.Context, key string) (Snapshot, error)
	Put(ctx context.Context, key string, snap Snapshot) error
	Delete(ctx context.Context, key string) error
}

// Encode renders a snapshot in its storage form.
func Encode(snap Snapshot) ([]byte, error) {
	if snap.Data == nil {
		snap.Data = map[string]model.Value{}
	}
	snap.Timestamp = snap.Timestamp.UTC()
	raw, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("snapshot: encode: %w", err)
	}
	return raw, nil
}

// Decode parses the storage form of a snapshot.
func Decode(raw []byte) (Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if snap.Timestamp.IsZero() {
		return Snapshot{}, fmt.Errorf("%w: missing timestamp", ErrCorrupt)
	}
	if snap.Data == nil {
		snap.Data = map[string]model.Value{}
	}
	return snap, nil
}

// DefaultDir returns the per-user data directory used for snapshot
// databases.
func DefaultDir(app string) string {
	if app == "" {
		app = "devsurvey"
	}
	return filepath.Join(xdg.DataHome, app, "snapshots")
}
