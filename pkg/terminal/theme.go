package terminal

import (
	"fmt"

	theme "github.com/goliatone/go-theme"
)

// Manifest tokens holding the notice prefixes.
const (
	TokenInfo    = "notice.info"
	TokenSuccess = "notice.success"
	TokenWarning = "notice.warning"
	TokenError   = "notice.error"
)

// Built-in theme and variant names.
const (
	ThemeName      = "devsurvey"
	VariantUnicode = "unicode"
)

// DefaultManifest is the built-in terminal theme. The base tokens match
// DefaultTheme; the unicode variant swaps in symbols.
func DefaultManifest() *theme.Manifest {
	return &theme.Manifest{
		Name:    ThemeName,
		Version: "1.0.0",
		Tokens: map[string]string{
			TokenInfo:    DefaultTheme.InfoPrefix,
			TokenSuccess: DefaultTheme.SuccessPrefix,
			TokenWarning: DefaultTheme.WarningPrefix,
			TokenError:   DefaultTheme.ErrorPrefix,
		},
		Variants: map[string]theme.Variant{
			VariantUnicode: {
				Tokens: map[string]string{
					TokenInfo:    "ℹ ",
					TokenSuccess: "✔ ",
					TokenWarning: "⚠ ",
					TokenError:   "✖ ",
				},
			},
		},
	}
}

// Selector resolves a theme selection from a fixed set of manifests. An
// empty name selects the first manifest.
type Selector struct {
	manifests map[string]*theme.Manifest
	fallback  string
}

var _ theme.ThemeSelector = (*Selector)(nil)

// NewSelector indexes manifests by name.
func NewSelector(manifests ...*theme.Manifest) *Selector {
	s := &Selector{manifests: make(map[string]*theme.Manifest, len(manifests))}
	for _, m := range manifests {
		if m == nil {
			continue
		}
		if s.fallback == "" {
			s.fallback = m.Name
		}
		s.manifests[m.Name] = m
	}
	return s
}

func (s *Selector) Select(name, variant string, _ ...theme.QueryOption) (*theme.Selection, error) {
	if name == "" {
		name = s.fallback
	}
	m, ok := s.manifests[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTheme, name)
	}
	if variant != "" {
		if _, ok := m.Variants[variant]; !ok {
			return nil, fmt.Errorf("%w: %q has no variant %q", ErrUnknownTheme, name, variant)
		}
	}
	return &theme.Selection{Theme: m.Name, Variant: variant, Manifest: m}, nil
}

// SelectTheme resolves name and variant through selector into notice
// prefixes.
func SelectTheme(selector theme.ThemeSelector, name, variant string) (Theme, error) {
	sel, err := selector.Select(name, variant)
	if err != nil {
		return Theme{}, err
	}
	return ThemeFromSelection(sel), nil
}

// ThemeFromSelection reads the notice tokens of sel, variant tokens first.
// Missing tokens keep the DefaultTheme prefix.
func ThemeFromSelection(sel *theme.Selection) Theme {
	out := DefaultTheme
	if sel == nil || sel.Manifest == nil {
		return out
	}
	tokens := make(map[string]string, len(sel.Manifest.Tokens))
	for k, v := range sel.Manifest.Tokens {
		tokens[k] = v
	}
	if v, ok := sel.Manifest.Variants[sel.Variant]; ok {
		for k, t := range v.Tokens {
			tokens[k] = t
		}
	}
	for token, dst := range map[string]*string{
		TokenInfo:    &out.InfoPrefix,
		TokenSuccess: &out.SuccessPrefix,
		TokenWarning: &out.WarningPrefix,
		TokenError:   &out.ErrorPrefix,
	} {
		if v, ok := tokens[token]; ok {
			*dst = v
		}
	}
	return out
}
