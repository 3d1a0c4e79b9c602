package normalize

import "strings"

type outputTexter interface{ OutputText() string }

type texter interface{ Text() string }

// flattenedText matches payloads that already carry the answer as one string:
// a plain string, an OutputText/Text accessor, or an output_text/text field.
func flattenedText(in Input) (string, bool) {
	if x, ok := in.Original.(outputTexter); ok {
		if s := x.OutputText(); s != "" {
			return s, true
		}
	}
	if x, ok := in.Original.(texter); ok {
		if s := x.Text(); s != "" {
			return s, true
		}
	}
	if x, ok := in.Original.(TextValuer); ok {
		if s := x.TextValue(); s != "" {
			return s, true
		}
	}
	if s, ok := in.Tree.(string); ok && s != "" {
		return s, true
	}
	if s, ok := str(in.Tree, "output_text"); ok && s != "" {
		return s, true
	}
	if s, ok := str(in.Tree, "text"); ok && s != "" {
		return s, true
	}
	return "", false
}

// designatedMessage picks the single entry that holds the answer: the first
// assistant turn of a message list (lists arrive newest first), the first
// message item of an output list, the first choice or the first candidate.
func designatedMessage(in Input) (string, bool) {
	var entry any
	switch {
	case isTurnList(in.Tree):
		entry = firstAssistant(in.Tree.([]any))
	case hasList(in.Tree, "data"):
		l, _ := list(in.Tree, "data")
		entry = firstAssistant(l)
	case hasList(in.Tree, "messages"):
		l, _ := list(in.Tree, "messages")
		entry = firstAssistant(l)
	case hasList(in.Tree, "output"):
		l, _ := list(in.Tree, "output")
		entry = firstOutputMessage(l)
	case hasList(in.Tree, "choices"):
		l, _ := list(in.Tree, "choices")
		entry, _ = field(first(l), "message")
	case hasList(in.Tree, "candidates"):
		l, _ := list(in.Tree, "candidates")
		entry, _ = field(first(l), "content")
	}
	if entry == nil {
		return "", false
	}
	s := messageText(entry)
	return s, s != ""
}

// textParts matches a bare list of parts (or a map holding one under content)
// and joins every part typed as text, in order, with no separator.
func textParts(in Input) (string, bool) {
	parts, ok := in.Tree.([]any)
	if !ok {
		parts, ok = list(in.Tree, "content")
	}
	if !ok {
		return "", false
	}
	var b strings.Builder
	matched := false
	for _, p := range parts {
		typ, _ := str(p, "type")
		if typ != "text" && typ != "output_text" {
			continue
		}
		if s, ok := partText(p); ok {
			b.WriteString(s)
			matched = true
		}
	}
	return b.String(), matched
}

func isTurnList(v any) bool {
	l, ok := v.([]any)
	if !ok {
		return false
	}
	for _, e := range l {
		if _, ok := str(e, "role"); ok {
			return true
		}
	}
	return false
}

func hasList(v any, key string) bool {
	_, ok := list(v, key)
	return ok
}

// firstAssistant returns the newest assistant entry even when it carries no
// text; older entries answer earlier turns.
func firstAssistant(l []any) any {
	for _, e := range l {
		role, _ := str(e, "role")
		if role == "assistant" || role == "model" {
			return e
		}
	}
	return nil
}

func firstOutputMessage(l []any) any {
	for _, e := range l {
		typ, _ := str(e, "type")
		role, _ := str(e, "role")
		if typ == "message" || (typ == "" && role == "assistant") {
			return e
		}
	}
	return nil
}

// messageText reads the content of one message entry. Content may be a string,
// a list of parts, or a nested {parts: [...]} object.
func messageText(entry any) string {
	if tv, ok := entry.(TextValuer); ok {
		return tv.TextValue()
	}
	content, ok := field(entry, "content")
	if !ok {
		content, ok = field(entry, "parts")
	}
	if !ok {
		return ""
	}
	switch c := content.(type) {
	case string:
		return c
	case []any:
		return joinParts(c)
	case map[string]any:
		return messageText(c)
	}
	return ""
}

func joinParts(parts []any) string {
	var b strings.Builder
	for _, p := range parts {
		if s, ok := partText(p); ok {
			b.WriteString(s)
		}
	}
	return b.String()
}

// partText tries, in order: a TextValuer, a plain string, a string "text"
// field, a {"text": {"value": ...}} wrapper, a direct "value" field.
func partText(p any) (string, bool) {
	switch x := p.(type) {
	case TextValuer:
		return x.TextValue(), true
	case string:
		return x, true
	}
	if t, ok := field(p, "text"); ok {
		switch tt := t.(type) {
		case string:
			return tt, true
		case map[string]any:
			if v, ok := str(tt, "value"); ok {
				return v, true
			}
		}
	}
	if v, ok := str(p, "value"); ok {
		return v, true
	}
	return "", false
}
