package normalize_test

import (
	"encoding/json"
	"testing"

	"github.com/tidwall/sjson"

	"agentchat/internal/domain/normalize"
)

type wrapped struct{ v string }

func (w wrapped) TextValue() string { return w.v }

type sdkLike struct{ raw string }

func (s sdkLike) RawJSON() string { return s.raw }

type outputTextResp struct{ text string }

func (o *outputTextResp) OutputText() string { return o.text }

func mustSet(t *testing.T, doc, path string, v any) string {
	t.Helper()
	out, err := sjson.Set(doc, path, v)
	if err != nil {
		t.Fatalf("sjson.Set(%q): %v", path, err)
	}
	return out
}

func TestText_ShapeCoverage(t *testing.T) {
	t.Parallel()

	msgList := `[]`
	msgList = mustSet(t, msgList, "0.role", "user")
	msgList = mustSet(t, msgList, "0.content.0.text.value", "ping")
	msgList = mustSet(t, msgList, "1.role", "assistant")
	msgList = mustSet(t, msgList, "1.content.0.text.value", "42")

	cases := []struct {
		name    string
		payload any
		want    string
	}{
		{"flat text field", map[string]any{"text": "hello"}, "hello"},
		{"plain string", "just text", "just text"},
		{"text parts", []any{
			map[string]any{"type": "text", "text": "a"},
			map[string]any{"type": "text", "text": "b"},
		}, "ab"},
		{"message list newest first", json.RawMessage(msgList), "42"},
		{"empty map", map[string]any{}, ""},
		{"nil", nil, ""},
		{"role-less list", []any{map[string]any{"content": "x"}}, ""},
		{"no assistant entry", []any{map[string]any{"role": "user", "content": "hi"}}, ""},
		{"output_text field", map[string]any{"output_text": "done"}, "done"},
		{"accessor", &outputTextResp{text: "from accessor"}, "from accessor"},
		{"typed part value", []any{
			map[string]any{"role": "assistant", "content": []any{wrapped{"typed"}}},
		}, "typed"},
		{"direct value part", []any{
			map[string]any{"role": "assistant", "content": []any{map[string]any{"value": "v"}}},
		}, "v"},
		{"non-json bytes", []byte("not json"), "not json"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := normalize.Text(tc.payload); got != tc.want {
				t.Fatalf("Text() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestText_SDKRawJSONShapes(t *testing.T) {
	t.Parallel()

	chat := `{"id":"cmpl_1","choices":[{"index":0,"message":{"role":"assistant","content":"chat answer"}}]}`
	if got := normalize.Text(sdkLike{raw: chat}); got != "chat answer" {
		t.Fatalf("chat completion: got %q", got)
	}

	resp := `{"id":"resp_1","output":[{"type":"reasoning","summary":[]},` +
		`{"type":"message","role":"assistant","content":[{"type":"output_text","text":"resp "},{"type":"output_text","text":"answer"}]}]}`
	if got := normalize.Text(sdkLike{raw: resp}); got != "resp answer" {
		t.Fatalf("responses output: got %q", got)
	}

	page := `{"object":"list","data":[` +
		`{"id":"msg_2","role":"assistant","content":[{"type":"text","text":{"value":"pong","annotations":[]}}]},` +
		`{"id":"msg_1","role":"user","content":[{"type":"text","text":{"value":"ping","annotations":[]}}]}]}`
	if got := normalize.Text(sdkLike{raw: page}); got != "pong" {
		t.Fatalf("thread messages page: got %q", got)
	}

	gem := `{"candidates":[{"content":{"role":"model","parts":[{"text":"gem"},{"text":"ini"}]}}]}`
	if got := normalize.Text(json.RawMessage(gem)); got != "gemini" {
		t.Fatalf("gemini candidates: got %q", got)
	}

	if got := normalize.Text(sdkLike{raw: ""}); got != "" {
		t.Fatalf("empty raw json: got %q", got)
	}
}

func TestText_Idempotent(t *testing.T) {
	t.Parallel()
	payload := []any{
		map[string]any{"role": "assistant", "content": []any{map[string]any{"type": "text", "text": "same"}}},
	}
	a := normalize.Text(payload)
	b := normalize.Text(payload)
	if a != b || a != "same" {
		t.Fatalf("expected stable result, got %q then %q", a, b)
	}
}

func TestChain_ReportsMatcher(t *testing.T) {
	t.Parallel()
	_, name, ok := normalize.Answer.Apply([]any{map[string]any{"type": "text", "text": "x"}})
	if !ok || name != "text_parts" {
		t.Fatalf("expected text_parts, got %q ok=%v", name, ok)
	}
	_, _, ok = normalize.Answer.Apply(map[string]any{"unknown": 1.0})
	if ok {
		t.Fatal("unknown shape should not match")
	}
}

type emptyOutputText struct{}

func (emptyOutputText) OutputText() string { return "" }
func (emptyOutputText) Text() string       { return "from Text" }

func TestText_EachAccessorGetsATurn(t *testing.T) {
	t.Parallel()
	if got := normalize.Text(emptyOutputText{}); got != "from Text" {
		t.Fatalf("Text() = %q, want %q", got, "from Text")
	}
}

func TestText_NewestAssistantEntryWinsEvenWhenEmpty(t *testing.T) {
	t.Parallel()
	page := `{"object":"list","data":[` +
		`{"id":"msg_3","role":"assistant","content":[{"type":"image_file","image_file":{"file_id":"f1"}}]},` +
		`{"id":"msg_2","role":"user","content":[{"type":"text","text":{"value":"draw it","annotations":[]}}]},` +
		`{"id":"msg_1","role":"assistant","content":[{"type":"text","text":{"value":"older answer","annotations":[]}}]}]}`
	if got := normalize.Text(sdkLike{raw: page}); got != "" {
		t.Fatalf("an older turn's answer must not be shown, got %q", got)
	}
}

type panicky struct{}

func (panicky) TextValue() string { panic("boom") }

func TestText_NeverPanics(t *testing.T) {
	t.Parallel()
	if got := normalize.Text(panicky{}); got != "" {
		t.Fatalf("expected empty text, got %q", got)
	}
}

func TestDelta(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		chunk  any
		want   string
		wantOK bool
	}{
		{"chat delta", json.RawMessage(`{"choices":[{"index":0,"delta":{"content":"Hel"}}]}`), "Hel", true},
		{"chat role preamble", json.RawMessage(`{"choices":[{"index":0,"delta":{"role":"assistant"}}]}`), "", true},
		{"chat usage tail", json.RawMessage(`{"choices":[],"usage":{"total_tokens":3}}`), "", true},
		{"responses text delta", json.RawMessage(`{"type":"response.output_text.delta","delta":"lo"}`), "lo", true},
		{"responses lifecycle", json.RawMessage(`{"type":"response.created","response":{}}`), "", true},
		{"reasoning delta hidden", json.RawMessage(`{"type":"response.reasoning_summary_text.delta","delta":"thinking"}`), "", true},
		{"delta text object", map[string]any{"delta": map[string]any{"text": "dt"}}, "dt", true},
		{"data delta", map[string]any{"data": map[string]any{"delta": "dd"}}, "dd", true},
		{"data delta text", map[string]any{"data": map[string]any{"delta": map[string]any{"text": "ddt"}}}, "ddt", true},
		{"data text", map[string]any{"data": map[string]any{"text": "dx"}}, "dx", true},
		{"gemini chunk", json.RawMessage(`{"candidates":[{"content":{"parts":[{"text":"g"}]}}]}`), "g", true},
		{"unknown", map[string]any{"weird": true}, "", false},
		{"nil", nil, "", false},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, ok := normalize.Delta(tc.chunk)
			if got != tc.want || ok != tc.wantOK {
				t.Fatalf("Delta() = (%q, %v), want (%q, %v)", got, ok, tc.want, tc.wantOK)
			}
		})
	}
}
