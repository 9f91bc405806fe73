package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Value is a field value: a scalar string or an ordered list of strings.
// List values always encode as JSON arrays, including the empty list, so a
// checkbox group that was asked but left unanswered stays distinguishable
// from one that was never asked.
type Value struct {
	text  string
	list  []string
	multi bool
}

// Text constructs a scalar value.
func Text(s string) Value {
	return Value{text: s}
}

// List constructs a list value. A nil or empty input yields an empty list.
func List(items ...string) Value {
	out := make([]string, len(items))
	copy(out, items)
	return Value{list: out, multi: true}
}

// IsList reports whether v holds a list.
func (v Value) IsList() bool { return v.multi }

// Text returns the scalar string. Lists are joined with ", ".
func (v Value) Text() string {
	if v.multi {
		return strings.Join(v.list, ", ")
	}
	return v.text
}

// Items returns a copy of the list. A non-empty scalar is returned as a
// single-element list.
func (v Value) Items() []string {
	if v.multi {
		out := make([]string, len(v.list))
		copy(out, v.list)
		return out
	}
	if v.text == "" {
		return []string{}
	}
	return []string{v.text}
}

// Len returns the number of list items, or 1 for a non-empty scalar.
func (v Value) Len() int {
	if v.multi {
		return len(v.list)
	}
	if strings.TrimSpace(v.text) == "" {
		return 0
	}
	return 1
}

// Empty reports whether the value carries no answer.
func (v Value) Empty() bool { return v.Len() == 0 }

// Contains reports whether s is one of the list items or equals the scalar.
func (v Value) Contains(s string) bool {
	if !v.multi {
		return v.text == s
	}
	for _, item := range v.list {
		if item == s {
			return true
		}
	}
	return false
}

// Equal compares two values, including their list-ness.
func (v Value) Equal(other Value) bool {
	if v.multi != other.multi {
		return false
	}
	if !v.multi {
		return v.text == other.text
	}
	if len(v.list) != len(other.list) {
		return false
	}
	for i := range v.list {
		if v.list[i] != other.list[i] {
			return false
		}
	}
	return true
}

func (v Value) String() string {
	if v.multi {
		return fmt.Sprintf("%q", v.list)
	}
	return fmt.Sprintf("%q", v.text)
}

// MarshalJSON encodes lists as arrays and scalars as strings.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.multi {
		list := v.list
		if list == nil {
			list = []string{}
		}
		return json.Marshal(list)
	}
	return json.Marshal(v.text)
}

// UnmarshalJSON accepts a string, an array, null, or another scalar which is
// kept in its textual form.
func (v *Value) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*v = Text("")
		return nil
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*v = Text(s)
	case '[':
		var raw []any
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return err
		}
		items := make([]string, 0, len(raw))
		for _, item := range raw {
			if item == nil {
				continue
			}
			items = append(items, Stringify(item))
		}
		*v = List(items...)
	case '{':
		return fmt.Errorf("model: value cannot be an object")
	default:
		*v = Text(string(trimmed))
	}
	return nil
}

// Stringify renders an arbitrary decoded JSON scalar as text.
func Stringify(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	case json.Number:
		return typed.String()
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case bool:
		if typed {
			return "true"
		}
		return "false"
	default:
		encoded, err := json.Marshal(typed)
		if err != nil {
			return fmt.Sprint(typed)
		}
		return string(encoded)
	}
}
