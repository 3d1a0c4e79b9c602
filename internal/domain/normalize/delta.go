package normalize

import "strings"

// Deltas resolves one streamed chunk. A recognized chunk may carry no text
// (role preambles, lifecycle events); it still counts as matched.
var Deltas = Chain{
	{Name: "plain_string", Match: plainString},
	{Name: "choice_delta", Match: choiceDelta},
	{Name: "event_delta", Match: eventDelta},
	{Name: "delta_text", Match: deltaText},
	{Name: "data_delta", Match: dataDelta},
	{Name: "candidate_parts", Match: candidateParts},
	{Name: "typed_event", Match: typedEvent},
}

// Delta returns the text carried by chunk. ok is false when the chunk shape
// is not recognized; callers skip such chunks.
func Delta(chunk any) (string, bool) {
	s, _, ok := Deltas.Apply(chunk)
	return s, ok
}

func plainString(in Input) (string, bool) {
	s, ok := in.Tree.(string)
	return s, ok
}

// choiceDelta: {"choices":[{"delta":{"content":"..."}}]}, or a message snapshot
// in place of the delta.
func choiceDelta(in Input) (string, bool) {
	l, ok := list(in.Tree, "choices")
	if !ok {
		return "", false
	}
	if len(l) == 0 {
		return "", true
	}
	c := first(l)
	for _, key := range []string{"delta", "message"} {
		d, ok := field(c, key)
		if !ok {
			continue
		}
		if s, ok := d.(string); ok {
			return s, true
		}
		if s, ok := str(d, "content"); ok {
			return s, true
		}
		if _, isMap := d.(map[string]any); isMap {
			return "", true
		}
	}
	return "", false
}

// eventDelta: {"type":"response.output_text.delta","delta":"..."} or an
// untyped {"delta":"..."}.
func eventDelta(in Input) (string, bool) {
	s, ok := str(in.Tree, "delta")
	if !ok {
		return "", false
	}
	typ, _ := str(in.Tree, "type")
	if typ == "" || strings.HasSuffix(typ, "output_text.delta") {
		return s, true
	}
	return "", false
}

// deltaText: {"delta":{"text":"..."}}.
func deltaText(in Input) (string, bool) {
	d, ok := field(in.Tree, "delta")
	if !ok {
		return "", false
	}
	s, ok := str(d, "text")
	return s, ok
}

// dataDelta: {"data":{"delta":"..."}}, {"data":{"delta":{"text":"..."}}} or
// {"data":{"text":"..."}}.
func dataDelta(in Input) (string, bool) {
	data, ok := field(in.Tree, "data")
	if !ok {
		return "", false
	}
	if d, ok := field(data, "delta"); ok {
		if s, ok := d.(string); ok {
			return s, true
		}
		if s, ok := str(d, "text"); ok {
			return s, true
		}
	}
	if s, ok := str(data, "text"); ok {
		return s, true
	}
	return "", false
}

// candidateParts: a streamed Gemini response chunk.
func candidateParts(in Input) (string, bool) {
	l, ok := list(in.Tree, "candidates")
	if !ok {
		return "", false
	}
	content, ok := field(first(l), "content")
	if !ok {
		return "", true
	}
	return messageText(content), true
}

// typedEvent recognizes remaining lifecycle events ("response.created",
// "response.output_text.done", reasoning deltas, ...). They carry no visible text.
func typedEvent(in Input) (string, bool) {
	typ, ok := str(in.Tree, "type")
	if !ok || typ == "" {
		return "", false
	}
	return "", true
}
