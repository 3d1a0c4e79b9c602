// Package normalize pulls displayable text out of response payloads whose shape
// is not stable across protocol modes or service versions.
//
// A payload is run through an ordered Chain of matchers. Each matcher recognizes
// one shape and either returns text or declines; the first match wins. A payload
// no matcher recognizes yields "", never an error.
package normalize

import (
	"encoding/json"

	"github.com/tidwall/gjson"
)

// TextValuer is implemented by typed content parts that keep their text behind
// an accessor instead of a map field.
type TextValuer interface {
	TextValue() string
}

type rawJSONer interface {
	RawJSON() string
}

// Input is handed to every matcher: the payload as received and its decoded tree
// (map[string]any, []any, string, float64, bool, nil or TextValuer leaves).
type Input struct {
	Original any
	Tree     any
}

// Matcher recognizes a single payload shape.
type Matcher struct {
	Name  string
	Match func(in Input) (string, bool)
}

// Chain applies matchers in priority order.
type Chain []Matcher

// Apply returns the text of the first matching matcher and its name.
// ok is false when no matcher recognized the payload.
func (c Chain) Apply(payload any) (text, matcher string, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			text, matcher, ok = "", "", false
		}
	}()
	in := Input{Original: payload, Tree: Decode(payload)}
	for _, m := range c {
		if s, hit := m.Match(in); hit {
			return s, m.Name, true
		}
	}
	return "", "", false
}

// Answer resolves a complete response: flattened text, then a designated
// assistant message, then a list of typed text parts.
var Answer = Chain{
	{Name: "flattened_text", Match: flattenedText},
	{Name: "designated_message", Match: designatedMessage},
	{Name: "text_parts", Match: textParts},
}

// Text extracts the answer from payload, or "" when the shape is unknown.
func Text(payload any) string {
	s, _, _ := Answer.Apply(payload)
	return s
}

// Decode turns a payload into a plain tree. SDK values exposing RawJSON and raw
// JSON bytes are parsed with gjson; other structs go through encoding/json.
func Decode(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case string:
		return x
	case bool, float64, int, int64:
		return x
	case TextValuer:
		return x
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = Decode(e)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = Decode(e)
		}
		return out
	case []map[string]any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = Decode(e)
		}
		return out
	case json.RawMessage:
		return parseJSON(string(x), true)
	case []byte:
		return parseJSON(string(x), true)
	case gjson.Result:
		return x.Value()
	case rawJSONer:
		if raw := x.RawJSON(); raw != "" {
			return parseJSON(raw, false)
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return parseJSON(string(b), false)
}

func parseJSON(s string, keepText bool) any {
	if !gjson.Valid(s) {
		if keepText {
			return s
		}
		return nil
	}
	return gjson.Parse(s).Value()
}

// ---- tree helpers ----

func field(v any, key string) (any, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	x, ok := m[key]
	return x, ok
}

func str(v any, key string) (string, bool) {
	x, ok := field(v, key)
	if !ok {
		return "", false
	}
	s, ok := x.(string)
	return s, ok
}

func list(v any, key string) ([]any, bool) {
	x, ok := field(v, key)
	if !ok {
		return nil, false
	}
	l, ok := x.([]any)
	return l, ok
}

func first(l []any) any {
	if len(l) == 0 {
		return nil
	}
	return l[0]
}
