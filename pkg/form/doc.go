// Package form owns one survey form instance: its answers, field decoration,
// conditional visibility, validation, autosave and submission.
//
// A Controller is built from an immutable model.Definition. All mutable state
// lives in the Controller and is guarded by its mutex, so several forms can
// run side by side in one process. Screen feedback is delegated to a
// Notifier; nothing in this package prints or renders directly.
package form
