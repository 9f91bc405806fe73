package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-devsurvey/pkg/responses"
)

// DecodeBody parses a request body. The body is either a JSON object or a
// JSON string holding a serialized object.
func DecodeBody(raw []byte) (map[string]any, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, ErrEmptyBody
	}
	var decoded any
	if err := decodeJSON(raw, &decoded); err != nil {
		return nil, err
	}
	if s, ok := decoded.(string); ok {
		decoded = nil
		if err := decodeJSON([]byte(s), &decoded); err != nil {
			return nil, err
		}
	}
	body, ok := decoded.(map[string]any)
	if !ok {
		return nil, ErrNotObject
	}
	return body, nil
}

func decodeJSON(raw []byte, dst any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("ingest: unexpected data after JSON value")
	}
	return nil
}

// Missing returns the names in required whose body values are absent or
// empty, in the given order.
func Missing(body map[string]any, required []string) []string {
	var out []string
	for _, name := range required {
		if !present(body[name]) {
			out = append(out, name)
		}
	}
	return out
}

func present(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(t) != ""
	case bool:
		return t
	case json.Number:
		f, err := t.Float64()
		return err != nil || f != 0
	default:
		return true
	}
}

// Normalizer turns decoded bodies into response rows. Answers are stored
// as sent unless a text policy is configured.
type Normalizer struct {
	schema     responses.Schema
	agent      *bluemonday.Policy
	textPolicy *bluemonday.Policy
}

// NormalizerOption configures a Normalizer.
type NormalizerOption func(*Normalizer)

// WithTextPolicy sanitizes every free-text answer with policy.
func WithTextPolicy(policy *bluemonday.Policy) NormalizerOption {
	return func(n *Normalizer) {
		n.textPolicy = policy
	}
}

// NewNormalizer builds a normalizer for schema. The User-Agent header is
// not part of the answers and is always stripped of markup.
func NewNormalizer(schema responses.Schema, opts ...NormalizerOption) *Normalizer {
	n := &Normalizer{schema: schema, agent: bluemonday.StrictPolicy()}
	for _, opt := range opts {
		if opt != nil {
			opt(n)
		}
	}
	return n
}

// Row maps body onto every schema column. Multi-valued columns always hold
// a list; scalar columns hold a string or nil. userAgent tags the row and
// falls back to the body's own user_agent key when empty.
func (n *Normalizer) Row(body map[string]any, userAgent string) responses.Row {
	row := n.schema.NewRow()
	for _, col := range n.schema.Columns {
		v := body[col.Name]
		if col.Multi {
			row[col.Name] = n.list(v)
			continue
		}
		row[col.Name] = n.scalar(v)
	}
	if _, ok := row[responses.ColumnUserAgent]; ok {
		if ua := strings.TrimSpace(userAgent); ua != "" {
			row[responses.ColumnUserAgent] = sanitize(n.agent, ua)
		}
	}
	return row
}

// list coerces v to a list: missing or empty becomes [], a scalar becomes
// [v] and a list passes through.
func (n *Normalizer) list(v any) []string {
	switch t := v.(type) {
	case nil:
		return []string{}
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := n.text(item); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		if !present(v) {
			return []string{}
		}
		if s, ok := n.text(v); ok {
			return []string{s}
		}
		return []string{}
	}
}

func (n *Normalizer) scalar(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		items := n.list(t)
		if len(items) == 0 {
			return nil
		}
		return strings.Join(items, ", ")
	default:
		if s, ok := n.text(v); ok {
			return s
		}
		return nil
	}
}

func (n *Normalizer) text(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return sanitize(n.textPolicy, t), true
	case json.Number:
		return t.String(), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		raw, err := json.Marshal(t)
		if err != nil {
			return "", false
		}
		return sanitize(n.textPolicy, string(raw)), true
	}
}

// sanitize removes markup with policy; a nil policy keeps s verbatim. The
// policies escape entities in the text they keep, so those are unescaped
// again before storage.
func sanitize(policy *bluemonday.Policy, s string) string {
	if policy == nil || !strings.ContainsAny(s, "<>&") {
		return s
	}
	return html.UnescapeString(policy.Sanitize(s))
}
