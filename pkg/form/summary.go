package form

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/flosch/pongo2/v6"
)

//go:embed templates/*.tpl
var templatesFS embed.FS

// Summary template names.
const (
	SummaryText = "summary.tpl"
	SummaryHTML = "summary.html.tpl"
)

// SummaryRenderer renders the aggregate error summary with pongo2.
type SummaryRenderer struct {
	set  *pongo2.TemplateSet
	name string
}

// SummaryOption configures a SummaryRenderer.
type SummaryOption func(*summaryConfig)

type summaryConfig struct {
	files fs.FS
	name  string
}

// WithSummaryFS loads templates from files instead of the embedded set.
func WithSummaryFS(files fs.FS) SummaryOption {
	return func(cfg *summaryConfig) {
		if files != nil {
			cfg.files = files
		}
	}
}

// WithSummaryTemplate selects the template used by Render.
func WithSummaryTemplate(name string) SummaryOption {
	return func(cfg *summaryConfig) {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			cfg.name = trimmed
		}
	}
}

// NewSummaryRenderer builds a renderer over the embedded templates.
func NewSummaryRenderer(opts ...SummaryOption) (*SummaryRenderer, error) {
	sub, err := fs.Sub(templatesFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("form: summary templates: %w", err)
	}
	cfg := &summaryConfig{files: sub, name: SummaryText}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	r := &SummaryRenderer{
		set:  pongo2.NewSet("devsurvey-form", pongo2.NewFSLoader(cfg.files)),
		name: cfg.name,
	}
	if _, err := r.set.FromCache(r.name); err != nil {
		return nil, fmt.Errorf("form: load summary template %q: %w", r.name, err)
	}
	return r, nil
}

// Render renders errs with the configured template.
func (r *SummaryRenderer) Render(errs []ValidationError) (string, error) {
	return r.RenderTemplate(r.name, errs)
}

// RenderTemplate renders errs with the named template.
func (r *SummaryRenderer) RenderTemplate(name string, errs []ValidationError) (string, error) {
	if r == nil || r.set == nil {
		return "", errors.New("form: summary renderer is nil")
	}
	tpl, err := r.set.FromCache(name)
	if err != nil {
		return "", fmt.Errorf("form: load summary template %q: %w", name, err)
	}
	items := make([]map[string]any, 0, len(errs))
	for _, e := range errs {
		items = append(items, map[string]any{"Field": e.Field, "Message": e.Message})
	}
	var buf bytes.Buffer
	if err := tpl.ExecuteWriter(pongo2.Context{"count": len(errs), "errors": items}, &buf); err != nil {
		return "", fmt.Errorf("form: render summary: %w", err)
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

// RenderSummary renders errs with the controller's summary renderer.
func (c *Controller) RenderSummary(errs []ValidationError) (string, error) {
	return c.summary.Render(errs)
}

func fallbackSummary(errs []ValidationError) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Please fix %d error(s):", len(errs))
	for _, e := range errs {
		b.WriteString("\n  - ")
		b.WriteString(e.Message)
	}
	return b.String()
}
