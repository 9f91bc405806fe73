package terminal

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-devsurvey/pkg/form"
	"github.com/goliatone/go-devsurvey/pkg/model"
	"github.com/goliatone/go-devsurvey/pkg/transport"
)

// SkipLabel is the extra choice offered on optional select and radio
// fields.
const SkipLabel = "(skip)"

// Runner walks a form.Controller section by section through a
// PromptDriver, then submits.
type Runner struct {
	ctrl     *form.Controller
	driver   PromptDriver
	logger   *zap.Logger
	autosave bool
	pageSize int
}

// Option configures a Runner.
type Option func(*Runner)

// WithPromptDriver overrides the prompt driver.
func WithPromptDriver(driver PromptDriver) Option {
	return func(r *Runner) {
		if driver != nil {
			r.driver = driver
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithAutosave toggles the background autosave loop while prompting.
func WithAutosave(enabled bool) Option {
	return func(r *Runner) {
		r.autosave = enabled
	}
}

// WithPageSize sets the visible rows of select prompts.
func WithPageSize(n int) Option {
	return func(r *Runner) {
		r.pageSize = n
	}
}

// NewRunner builds a runner for ctrl. The survey driver is used unless
// overridden.
func NewRunner(ctrl *form.Controller, opts ...Option) (*Runner, error) {
	if ctrl == nil {
		return nil, ErrNoController
	}
	r := &Runner{
		ctrl:     ctrl,
		logger:   zap.NewNop(),
		autosave: true,
		pageSize: 12,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	if r.driver == nil {
		r.driver = NewSurveyDriver()
	}
	return r, nil
}

// Run restores any saved answers, prompts every visible field and submits.
// Invalid fields are prompted again until the submission is accepted or the
// user declines to retry a failed send.
func (r *Runner) Run(ctx context.Context) (*transport.Ack, error) {
	g, gctx := errgroup.WithContext(ctx)
	autosaveCtx, stopAutosave := context.WithCancel(gctx)
	defer stopAutosave()

	if r.autosave {
		g.Go(func() error {
			err := r.ctrl.RunAutosave(autosaveCtx)
			if errors.Is(err, form.ErrNoSnapshotStore) {
				return nil
			}
			return err
		})
	}

	var ack *transport.Ack
	g.Go(func() error {
		defer stopAutosave()
		var err error
		ack, err = r.session(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		r.keepUnsaved(ctx, err)
		return nil, err
	}
	return ack, nil
}

// Messages shown when a session is interrupted with unsaved answers.
const (
	msgUnsavedKept = "Your unsaved answers were kept for next time."
	msgUnsavedLost = "Warning: your unsaved answers will be lost."
)

// keepUnsaved saves answers changed since the last save when the session
// was interrupted, and warns when they cannot be kept.
func (r *Runner) keepUnsaved(ctx context.Context, cause error) {
	if !errors.Is(cause, ErrAborted) && !errors.Is(cause, context.Canceled) {
		return
	}
	if !r.ctrl.Dirty() {
		return
	}
	ctx = context.WithoutCancel(ctx)
	msg := msgUnsavedKept
	if err := r.ctrl.SaveState(ctx); err != nil {
		if !errors.Is(err, form.ErrNoSnapshotStore) {
			r.logger.Warn("save interrupted session", zap.Error(err))
		}
		msg = msgUnsavedLost
	}
	if err := r.driver.Info(ctx, msg); err != nil {
		r.logger.Debug("unsaved answers notice", zap.Error(err))
	}
}

func (r *Runner) session(ctx context.Context) (*transport.Ack, error) {
	if err := r.restore(ctx); err != nil {
		return nil, err
	}

	def := r.ctrl.Definition()
	if def.Title != "" {
		if err := r.driver.Info(ctx, def.Title); err != nil {
			return nil, err
		}
	}
	for _, section := range def.Sections {
		header := fmt.Sprintf("\n== %s == (%d%% complete)", section.Title, r.ctrl.Progress())
		if err := r.driver.Info(ctx, header); err != nil {
			return nil, err
		}
		for _, h := range r.ctrl.Registry().Section(section.ID) {
			if err := r.promptField(ctx, h); err != nil {
				return nil, err
			}
		}
	}
	if err := r.ctrl.SaveState(ctx); err != nil && !errors.Is(err, form.ErrNoSnapshotStore) {
		r.logger.Warn("save before submit", zap.Error(err))
	}
	return r.submit(ctx)
}

func (r *Runner) restore(ctx context.Context) error {
	restored, err := r.ctrl.LoadState(ctx)
	switch {
	case errors.Is(err, form.ErrNoSnapshotStore):
		return nil
	case err != nil:
		r.logger.Warn("restore snapshot", zap.Error(err))
		return r.driver.Info(ctx, "Saved answers could not be restored; starting fresh.")
	case restored == 0:
		return nil
	}

	resume, err := r.driver.Confirm(ctx, ConfirmConfig{
		Message: fmt.Sprintf("Resume your saved answers (%d fields)?", restored),
		Default: true,
	})
	if err != nil {
		return err
	}
	if !resume {
		r.ctrl.Reset()
	}
	return nil
}

func (r *Runner) submit(ctx context.Context) (*transport.Ack, error) {
	for {
		ack, err := r.ctrl.Submit(ctx)
		if err == nil {
			return ack, nil
		}

		var invalid *form.InvalidError
		switch {
		case errors.As(err, &invalid):
			if err := r.reprompt(ctx, invalid.Result.Fields()); err != nil {
				return nil, err
			}
			continue
		case errors.Is(err, form.ErrMissingServerFields):
			if err := r.reprompt(ctx, r.ctrl.MissingServerFields()); err != nil {
				return nil, err
			}
			continue
		case errors.Is(err, form.ErrNoSender), errors.Is(err, form.ErrSubmissionInProgress):
			return nil, err
		}

		retry, cerr := r.driver.Confirm(ctx, ConfirmConfig{Message: "Retry submission?", Default: true})
		if cerr != nil {
			return nil, cerr
		}
		if !retry {
			return nil, fmt.Errorf("%w: %v", ErrGaveUp, err)
		}
	}
}

func (r *Runner) reprompt(ctx context.Context, names []string) error {
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		h, ok := r.ctrl.Registry().Lookup(name)
		if !ok {
			continue
		}
		if err := r.promptField(ctx, h); err != nil {
			return err
		}
	}
	return nil
}

// promptField asks for one field until the controller accepts the value and
// the inline check passes. Hidden fields are skipped.
func (r *Runner) promptField(ctx context.Context, h *model.Handle) error {
	name := h.Name()
	for {
		fs, ok := r.ctrl.Field(name)
		if !ok || !fs.Visible {
			return nil
		}
		v, ok, err := r.ask(ctx, h.Field, fs)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if err := r.ctrl.SetValue(name, v); err != nil {
			if errors.Is(err, form.ErrCapExceeded) || errors.Is(err, form.ErrInvalidOption) {
				r.logger.Debug("value rejected", zap.String("field", name), zap.Error(err))
				continue
			}
			return err
		}
		if r.ctrl.ValidateField(name) {
			return nil
		}
		fs, _ = r.ctrl.Field(name)
		if err := r.driver.Info(ctx, fmt.Sprintf("%s: %s", h.Field.DisplayLabel(), fs.Message)); err != nil {
			return err
		}
	}
}

// ask prompts for a value. ok is false when the answer should be asked
// again without being applied.
func (r *Runner) ask(ctx context.Context, field model.Field, fs form.FieldState) (model.Value, bool, error) {
	required := fs.Required || r.ctrl.Definition().IsServerRequired(field.Name)
	message := field.DisplayLabel()
	if required {
		message += " *"
	}

	switch field.Kind {
	case model.FieldKindCheckbox:
		return r.askCheckbox(ctx, field, fs, message)
	case model.FieldKindSelect, model.FieldKindRadio:
		return r.askChoice(ctx, field, fs, message, required)
	case model.FieldKindTextArea:
		text, err := r.driver.TextArea(ctx, TextAreaConfig{Message: message, Default: fs.Value.Text()})
		return model.Text(text), true, err
	default:
		help := field.Placeholder
		if field.Kind == model.FieldKindEmail && help == "" {
			help = "name@example.com"
		}
		text, err := r.driver.Input(ctx, InputConfig{Message: message, Default: fs.Value.Text(), Help: help})
		return model.Text(text), true, err
	}
}

func (r *Runner) askChoice(ctx context.Context, field model.Field, fs form.FieldState, message string, required bool) (model.Value, bool, error) {
	values, labels := enabledOptions(field)
	offset := 0
	if !required {
		labels = append([]string{SkipLabel}, labels...)
		offset = 1
	}
	current := -1
	if text := fs.Value.Text(); text != "" {
		if idx := indexOf(values, text); idx >= 0 {
			current = idx + offset
		}
	}

	idx, err := r.driver.Select(ctx, SelectConfig{
		Message:      message,
		Options:      labels,
		DefaultIndex: current,
		PageSize:     r.pageSize,
	})
	if err != nil {
		return model.Value{}, false, err
	}
	switch {
	case idx < 0 || idx >= len(labels):
		return model.Value{}, false, r.driver.Info(ctx, fmt.Sprintf("Invalid %s selection", field.Name))
	case idx < offset:
		return model.Text(""), true, nil
	default:
		return model.Text(values[idx-offset]), true, nil
	}
}

func (r *Runner) askCheckbox(ctx context.Context, field model.Field, fs form.FieldState, message string) (model.Value, bool, error) {
	values, labels := enabledOptions(field)
	help := ""
	if field.Capped() {
		checked, max := r.ctrl.Counter(field.Name)
		message = fmt.Sprintf("%s (%d/%d)", message, checked, max)
		help = fmt.Sprintf("Select up to %d", max)
	}
	indices, err := r.driver.MultiSelect(ctx, SelectConfig{
		Message:  message,
		Options:  labels,
		Defaults: indicesOf(values, fs.Value.Items()),
		Help:     help,
		PageSize: r.pageSize,
	})
	if err != nil {
		return model.Value{}, false, err
	}
	return model.List(defaultsFromIndices(values, indices)...), true, nil
}

func enabledOptions(field model.Field) (values, labels []string) {
	for _, opt := range field.Options {
		if opt.Disabled {
			continue
		}
		label := opt.Label
		if label == "" {
			label = opt.Value
		}
		values = append(values, opt.Value)
		labels = append(labels, label)
	}
	return values, labels
}
