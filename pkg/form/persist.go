package form

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/goliatone/go-devsurvey/pkg/model"
	"github.com/goliatone/go-devsurvey/pkg/snapshot"
)

// SaveState persists a snapshot of the collected answers. It does nothing
// while a submission is in flight or when no field carries an answer. A save
// and the post-submit cleanup never interleave.
func (c *Controller) SaveState(ctx context.Context) error {
	if c.snapshots == nil {
		return ErrNoSnapshotStore
	}
	c.saveMu.Lock()
	defer c.saveMu.Unlock()
	if c.inFlight.Load() {
		c.logger.Debug("autosave skipped: submission in flight")
		return nil
	}

	c.mu.Lock()
	data := c.collectLocked()
	c.mu.Unlock()
	if !hasData(data) {
		return nil
	}

	now := c.now()
	snap := snapshot.Snapshot{Data: data, Timestamp: now, Version: c.def.Version}
	if err := c.snapshots.Put(ctx, c.def.StorageKey, snap); err != nil {
		return fmt.Errorf("form: save state: %w", err)
	}

	c.mu.Lock()
	c.state.lastSaved = now
	c.state.dirty = false
	c.mu.Unlock()
	c.logger.Debug("form state saved", zap.String("key", c.def.StorageKey), zap.Int("fields", len(data)))
	return nil
}

// LoadState restores the persisted snapshot, if any, and reports how many
// values were applied. Checkbox items count individually. A snapshot older
// than the expiry window is deleted and ignored. A corrupt snapshot is
// deleted and its error returned; other read failures leave it in place.
func (c *Controller) LoadState(ctx context.Context) (int, error) {
	if c.snapshots == nil {
		return 0, ErrNoSnapshotStore
	}
	key := c.def.StorageKey
	snap, err := c.snapshots.Get(ctx, key)
	if errors.Is(err, snapshot.ErrNotFound) {
		return 0, nil
	}
	if errors.Is(err, snapshot.ErrCorrupt) {
		if delErr := c.snapshots.Delete(ctx, key); delErr != nil {
			c.logger.Warn("delete corrupt snapshot", zap.Error(delErr))
		}
	}
	if err != nil {
		return 0, fmt.Errorf("form: load state: %w", err)
	}

	if snap.Expired(c.now(), c.def.SnapshotExpiry) {
		c.logger.Debug("discarding expired snapshot", zap.Time("timestamp", snap.Timestamp))
		if err := c.snapshots.Delete(ctx, key); err != nil {
			return 0, fmt.Errorf("form: discard expired state: %w", err)
		}
		return 0, nil
	}

	var out outbox
	c.mu.Lock()
	restored, err := c.restoreLocked(snap)
	if err == nil && restored > 0 {
		c.state.lastSaved = snap.Timestamp
		out.notify(LevelSuccess, fmt.Sprintf("Restored %d fields", restored))
	}
	c.mu.Unlock()
	out.flush(c.notifier)
	if err != nil {
		return 0, err
	}
	c.logger.Debug("form state restored", zap.Int("restored", restored))
	return restored, nil
}

// restoreLocked writes every known value first and evaluates the conditions
// once afterwards, so dependents restored before their trigger survive.
func (c *Controller) restoreLocked(snap snapshot.Snapshot) (int, error) {
	names := make([]string, 0, len(snap.Data))
	for name := range snap.Data {
		names = append(names, name)
	}
	sort.Strings(names)

	var applied []string
	for _, name := range names {
		h, ok := c.reg.Lookup(name)
		if !ok || h.Field.Internal {
			continue
		}
		next, ok := restoreValue(h.Field, snap.Data[name])
		if !ok {
			continue
		}
		fs := c.state.field(name)
		fs.Value = next
		fs.Visible = true
		applied = append(applied, name)
	}

	if err := c.applyConditions(); err != nil {
		return 0, err
	}

	restored := 0
	for _, name := range applied {
		fs := c.state.field(name)
		if !fs.Visible {
			continue
		}
		restored += fs.Value.Len()
	}
	c.state.dirty = false
	return restored, nil
}

func restoreValue(field model.Field, v model.Value) (model.Value, bool) {
	switch field.Kind {
	case model.FieldKindCheckbox:
		var items []string
		for _, item := range v.Items() {
			if field.HasOption(item) {
				items = append(items, item)
			}
		}
		items = orderByOptions(field, items)
		if field.Capped() && len(items) > field.MaxSelections {
			items = items[:field.MaxSelections]
		}
		if len(items) == 0 {
			return model.Value{}, false
		}
		return model.List(items...), true
	case model.FieldKindSelect, model.FieldKindRadio:
		if v.IsList() || !field.HasOption(v.Text()) {
			return model.Value{}, false
		}
		return model.Text(v.Text()), true
	default:
		if v.IsList() || v.Empty() {
			return model.Value{}, false
		}
		return model.Text(v.Text()), true
	}
}

// RunAutosave saves the form on every autosave tick until ctx is done.
// Save failures are logged and do not stop the loop.
func (c *Controller) RunAutosave(ctx context.Context) error {
	if c.snapshots == nil {
		return ErrNoSnapshotStore
	}
	interval := c.autosave
	if interval <= 0 {
		interval = model.DefaultAutosaveInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := c.SaveState(ctx); err != nil && ctx.Err() == nil {
				c.logger.Warn("autosave failed", zap.Error(err))
			}
		}
	}
}
