package ai_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"agentchat/internal/domain/model"
	"agentchat/internal/domain/normalize"
	"agentchat/internal/domain/ports/adapter"
	ai "agentchat/internal/infra/adapters/ai"
	"agentchat/internal/usecase"
)

// fakeOpenAI serves the handful of endpoints the adapters call.
type fakeOpenAI struct {
	t *testing.T

	mu         sync.Mutex
	runStates  []string
	runQueries int
	bodies     map[string]string // last request body per path
	listQuery  string
	failChat   bool
}

func newFakeOpenAI(t *testing.T) (*fakeOpenAI, *httptest.Server) {
	f := &fakeOpenAI{t: t, bodies: map[string]string{}, runStates: []string{"queued", "in_progress", "completed"}}
	srv := httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeOpenAI) body(path string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bodies[path]
}

func (f *fakeOpenAI) lastListQuery() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listQuery
}

func (f *fakeOpenAI) serve(w http.ResponseWriter, r *http.Request) {
	b, _ := io.ReadAll(r.Body)
	path := strings.TrimPrefix(r.URL.Path, "/v1")

	f.mu.Lock()
	f.bodies[path] = string(b)
	f.mu.Unlock()

	switch {
	case r.Method == http.MethodPost && path == "/assistants":
		writeJSON(w, `{"id":"asst_1","object":"assistant","created_at":1,"model":"gpt-4o-mini","tools":[]}`)
	case r.Method == http.MethodPost && path == "/threads":
		writeJSON(w, `{"id":"thread_1","object":"thread","created_at":1}`)
	case r.Method == http.MethodPost && path == "/threads/thread_1/messages":
		writeJSON(w, `{"id":"msg_1","object":"thread.message","role":"user","thread_id":"thread_1","content":[]}`)
	case r.Method == http.MethodPost && path == "/threads/thread_1/runs":
		writeJSON(w, `{"id":"run_1","object":"thread.run","thread_id":"thread_1","assistant_id":"asst_1","status":"queued"}`)
	case r.Method == http.MethodGet && path == "/threads/thread_1/runs/run_1":
		f.mu.Lock()
		i := f.runQueries
		if i >= len(f.runStates) {
			i = len(f.runStates) - 1
		}
		f.runQueries++
		status := f.runStates[i]
		f.mu.Unlock()
		run, _ := sjson.Set(`{"id":"run_1","object":"thread.run","thread_id":"thread_1"}`, "status", status)
		writeJSON(w, run)
	case r.Method == http.MethodGet && path == "/threads/thread_1/messages":
		f.mu.Lock()
		f.listQuery = r.URL.RawQuery
		f.mu.Unlock()
		writeJSON(w, `{"object":"list","has_more":false,"data":[`+
			`{"id":"msg_2","object":"thread.message","role":"assistant","content":[{"type":"text","text":{"value":"pong","annotations":[]}}]},`+
			`{"id":"msg_1","object":"thread.message","role":"user","content":[{"type":"text","text":{"value":"ping","annotations":[]}}]}]}`)
	case r.Method == http.MethodPost && path == "/chat/completions":
		if f.failChat {
			http.Error(w, `{"error":{"message":"overloaded"}}`, http.StatusInternalServerError)
			return
		}
		if gjson.GetBytes(b, "stream").Bool() {
			writeSSE(w, []string{
				`{"id":"c1","object":"chat.completion.chunk","choices":[{"index":0,"delta":{"role":"assistant"}}]}`,
				`{"id":"c1","object":"chat.completion.chunk","choices":[{"index":0,"delta":{"content":"po"}}]}`,
				`{"id":"c1","object":"chat.completion.chunk","choices":[{"index":0,"delta":{"content":"ng"}}]}`,
				`[DONE]`,
			}, nil)
			return
		}
		writeJSON(w, `{"id":"c1","object":"chat.completion","created":1,"model":"gpt-4o-mini",`+
			`"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"pong"}}]}`)
	case r.Method == http.MethodPost && path == "/responses":
		if gjson.GetBytes(b, "stream").Bool() {
			writeSSE(w, []string{
				`{"type":"response.created","sequence_number":0,"response":{"id":"resp_1","status":"in_progress","output":[]}}`,
				`{"type":"response.output_text.delta","sequence_number":1,"item_id":"m1","output_index":0,"content_index":0,"delta":"po"}`,
				`{"type":"response.output_text.delta","sequence_number":2,"item_id":"m1","output_index":0,"content_index":0,"delta":"ng"}`,
				`{"type":"response.output_text.done","sequence_number":3,"item_id":"m1","output_index":0,"content_index":0,"text":"pong"}`,
			}, []string{"response.created", "response.output_text.delta", "response.output_text.delta", "response.output_text.done"})
			return
		}
		writeJSON(w, `{"id":"resp_1","object":"response","status":"completed","model":"gpt-4o-mini","output":[`+
			`{"type":"message","id":"m1","role":"assistant","status":"completed","content":[{"type":"output_text","text":"pong","annotations":[]}]}]}`)
	default:
		f.t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		http.NotFound(w, r)
	}
}

func writeJSON(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, body)
}

func writeSSE(w http.ResponseWriter, data, events []string) {
	w.Header().Set("Content-Type", "text/event-stream")
	for i, d := range data {
		if events != nil {
			fmt.Fprintf(w, "event: %s\n", events[i])
		}
		fmt.Fprintf(w, "data: %s\n\n", d)
	}
}

func openAIOpts(srv *httptest.Server) ai.OpenAIOptions {
	return ai.OpenAIOptions{
		APIKey:         "sk-test",
		BaseURL:        srv.URL + "/v1",
		DefaultModel:   "gpt-4o-mini",
		MaxRetries:     0,
		RequestTimeout: 5 * time.Second,
	}
}

var transcript = []model.Message{
	{Role: model.RoleSystem, Content: "be brief"},
	{Role: model.RoleUser, Content: "ping"},
}

func TestAssistantsAdapter_PingPongThroughPoller(t *testing.T) {
	f, srv := newFakeOpenAI(t)
	a, err := ai.NewOpenAIAssistantsAdapter(openAIOpts(srv), adapter.AssistantSpec{Name: "Generic AI Agent", Instructions: "help"}, nil)
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}
	poller := usecase.NewJobPoller(a, usecase.PollOptions{Interval: time.Millisecond, Timeout: 5 * time.Second}, nil)
	uc := usecase.NewChatUseCase(usecase.NewAssistantsStrategy(a, poller, 10, nil), nil, usecase.ChatOptions{}, nil)

	ctx := context.Background()
	if err := uc.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if uc.SessionID() != "thread_1" {
		t.Fatalf("thread = %q", uc.SessionID())
	}
	if got := gjson.Get(f.body("/assistants"), "name").String(); got != "Generic AI Agent" {
		t.Fatalf("assistant name sent = %q", got)
	}

	res, err := uc.SendMessage(ctx, "ping", nil)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if res.Text != "pong" {
		t.Fatalf("text = %q", res.Text)
	}
	if res.Job.Queries != 3 || res.Job.Last.Remote != "completed" {
		t.Fatalf("job = %+v", res.Job)
	}
	if got := gjson.Get(f.body("/threads/thread_1/messages"), "content").String(); got != "ping" {
		t.Fatalf("message content sent = %q", got)
	}
	if got := gjson.Get(f.body("/threads/thread_1/runs"), "assistant_id").String(); got != "asst_1" {
		t.Fatalf("run assistant_id = %q", got)
	}
	if q := f.lastListQuery(); !strings.Contains(q, "order=desc") || !strings.Contains(q, "limit=10") {
		t.Fatalf("list query = %q", q)
	}
}

func TestAssistantsAdapter_ReusesConfiguredAssistant(t *testing.T) {
	f, srv := newFakeOpenAI(t)
	a, err := ai.NewOpenAIAssistantsAdapter(openAIOpts(srv), adapter.AssistantSpec{ID: "asst_existing"}, nil)
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}
	if _, err := a.CreateSession(context.Background()); err != nil {
		t.Fatalf("create session: %v", err)
	}
	if f.body("/assistants") != "" {
		t.Fatal("assistant must not be created when an id is configured")
	}
	if id, err := a.EnsureAssistant(context.Background()); err != nil || id != "asst_existing" {
		t.Fatalf("assistant id = %q, err = %v", id, err)
	}
}

func TestAssistantsAdapter_QueryJobMapsStatus(t *testing.T) {
	f, srv := newFakeOpenAI(t)
	f.runStates = []string{"requires_action", "incomplete"}
	a, _ := ai.NewOpenAIAssistantsAdapter(openAIOpts(srv), adapter.AssistantSpec{ID: "asst_1"}, nil)
	h := model.JobHandle{SessionID: "thread_1", JobID: "run_1"}

	st, err := a.QueryJob(context.Background(), h)
	if err != nil || st.State != model.JobStateRunning || st.Remote != "requires_action" {
		t.Fatalf("first: %+v %v", st, err)
	}
	st, err = a.QueryJob(context.Background(), h)
	if err != nil || st.State != model.JobStateFailed {
		t.Fatalf("second: %+v %v", st, err)
	}
	if st.Raw == nil {
		t.Fatal("raw run missing")
	}
}

func TestChatAdapter_CompleteAndStream(t *testing.T) {
	f, srv := newFakeOpenAI(t)
	c, err := ai.NewOpenAIChatAdapter(openAIOpts(srv))
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}

	payload, err := c.Complete(context.Background(), "", transcript)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if got := normalize.Text(payload); got != "pong" {
		t.Fatalf("text = %q", got)
	}
	req := f.body("/chat/completions")
	if gjson.Get(req, "model").String() != "gpt-4o-mini" ||
		gjson.Get(req, "messages.0.role").String() != "system" ||
		gjson.Get(req, "messages.1.content").String() != "ping" {
		t.Fatalf("request body = %s", req)
	}

	st, err := c.CompleteStream(context.Background(), "", transcript)
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	defer st.Close()
	var b strings.Builder
	for st.Next() {
		d, ok := normalize.Delta(st.Current())
		if !ok {
			t.Fatalf("unrecognized chunk %#v", st.Current())
		}
		b.WriteString(d)
	}
	if err := st.Err(); err != nil {
		t.Fatalf("stream err: %v", err)
	}
	if b.String() != "pong" {
		t.Fatalf("streamed = %q", b.String())
	}
}

func TestChatAdapter_ServerErrorSurfaces(t *testing.T) {
	f, srv := newFakeOpenAI(t)
	f.failChat = true
	c, _ := ai.NewOpenAIChatAdapter(openAIOpts(srv))

	if _, err := c.Complete(context.Background(), "gpt-4o-mini", transcript); err == nil {
		t.Fatal("expected error from 500 response")
	}
	if _, err := c.CompleteStream(context.Background(), "gpt-4o-mini", transcript); err == nil {
		t.Fatal("expected stream open error from 500 response")
	}
}

func TestResponsesAdapter_CompleteAndStream(t *testing.T) {
	f, srv := newFakeOpenAI(t)
	r, err := ai.NewOpenAIResponsesAdapter(openAIOpts(srv))
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}

	payload, err := r.Complete(context.Background(), "", transcript)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if got := normalize.Text(payload); got != "pong" {
		t.Fatalf("text = %q", got)
	}
	req := f.body("/responses")
	if gjson.Get(req, "instructions").String() != "be brief" ||
		gjson.Get(req, "input.0.role").String() != "user" ||
		gjson.Get(req, "input.0.content").String() != "ping" {
		t.Fatalf("request body = %s", req)
	}

	st, err := r.CompleteStream(context.Background(), "", transcript)
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	defer st.Close()
	var b strings.Builder
	for st.Next() {
		d, _ := normalize.Delta(st.Current())
		b.WriteString(d)
	}
	if err := st.Err(); err != nil {
		t.Fatalf("stream err: %v", err)
	}
	if b.String() != "pong" {
		t.Fatalf("streamed = %q", b.String())
	}
}

func TestNewOpenAIAdapters_RequireKey(t *testing.T) {
	if _, err := ai.NewOpenAIChatAdapter(ai.OpenAIOptions{}); err == nil {
		t.Fatal("expected error for empty key")
	}
	if _, err := ai.NewOpenAIAssistantsAdapter(ai.OpenAIOptions{}, adapter.AssistantSpec{}, nil); err == nil {
		t.Fatal("expected error for empty key")
	}
}
