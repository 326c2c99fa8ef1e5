package playground_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/petasbytes/concept-tutor/internal/agent"
	"github.com/petasbytes/concept-tutor/internal/logging"
	"github.com/petasbytes/concept-tutor/internal/playground"
	"github.com/petasbytes/concept-tutor/internal/provider"
	"github.com/petasbytes/concept-tutor/internal/runner"
	"github.com/petasbytes/concept-tutor/internal/testutil"
	"github.com/petasbytes/concept-tutor/memory"
)

func newPlayground(t *testing.T, fake *testutil.FakeTransport) (*playground.Server, *memory.Store) {
	t.Helper()
	r := runner.New(testutil.NewClient(fake), 10000)
	agents := []*agent.Agent{
		{Name: "Web Agent", Role: "Search the web for information about programming concepts", Model: provider.DefaultModel, Runner: r},
		{Name: "Giphy Agent", Role: "Find relevant GIFs", Model: provider.DefaultModel, Runner: r},
	}
	store := memory.NewStore(t.TempDir())
	return playground.New(agents, store, nil), store
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var m map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &m)
	return rec, m
}

func TestStatusAndAgents(t *testing.T) {
	s, _ := newPlayground(t, &testutil.FakeTransport{})

	rec, m := do(t, s, http.MethodGet, "/v1/playground/status", "")
	if rec.Code != http.StatusOK || m["status"] != "ok" {
		t.Fatalf("status: %d %v", rec.Code, m)
	}

	rec, _ = do(t, s, http.MethodGet, "/v1/playground/agents", "")
	var infos []playground.AgentInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &infos); err != nil {
		t.Fatal(err)
	}
	if len(infos) != 2 || infos[0].AgentID != "web-agent" || infos[1].AgentID != "giphy-agent" {
		t.Fatalf("agents: %+v", infos)
	}
	if infos[0].Model != string(provider.DefaultModel) {
		t.Errorf("model = %q", infos[0].Model)
	}
}

func TestRun_NewSessionThenContinue(t *testing.T) {
	fake := &testutil.FakeTransport{Responses: []string{testutil.TextReply("closures capture scope"), testutil.TextReply("more detail")}}
	s, store := newPlayground(t, fake)

	rec, m := do(t, s, http.MethodPost, "/v1/playground/agents/web-agent/runs", `{"message":"what is a closure"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("run: %d %s", rec.Code, rec.Body)
	}
	sessionID, _ := m["session_id"].(string)
	if sessionID == "" || m["run_id"] == "" || m["agent_id"] != "web-agent" || m["content"] != "closures capture scope" {
		t.Fatalf("run response: %v", m)
	}

	body, _ := json.Marshal(playground.RunRequest{Message: "tell me more", SessionID: sessionID})
	rec, m = do(t, s, http.MethodPost, "/v1/playground/agents/web-agent/runs", string(body))
	if rec.Code != http.StatusOK || m["session_id"] != sessionID {
		t.Fatalf("continue: %d %v", rec.Code, m)
	}
	if n := len(fake.Requests()[1].Messages); n != 3 {
		t.Fatalf("second run should replay history, got %d messages", n)
	}

	sess, err := store.Load("web-agent", sessionID)
	if err != nil || len(sess.Messages) != 4 {
		t.Fatalf("stored session: %+v %v", sess, err)
	}
}

func TestRun_Errors(t *testing.T) {
	fake := &testutil.FakeTransport{Status: 500, Responses: []string{testutil.ErrorReply("api_error", "down")}}
	s, _ := newPlayground(t, fake)

	tests := []struct {
		name, path, body string
		status           int
	}{
		{"unknown agent", "/v1/playground/agents/nope/runs", `{"message":"hi"}`, http.StatusNotFound},
		{"empty message", "/v1/playground/agents/web-agent/runs", `{"message":"  "}`, http.StatusBadRequest},
		{"bad json", "/v1/playground/agents/web-agent/runs", `{`, http.StatusBadRequest},
		{"bad session id", "/v1/playground/agents/web-agent/runs", `{"message":"hi","session_id":"../x"}`, http.StatusBadRequest},
		{"agent failure", "/v1/playground/agents/web-agent/runs", `{"message":"hi"}`, http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, m := do(t, s, http.MethodPost, tt.path, tt.body)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.status, rec.Body)
			}
			if _, ok := m["error"]; !ok {
				t.Fatalf("missing error body: %s", rec.Body)
			}
		})
	}
}

func TestSessions_ListGetDelete(t *testing.T) {
	s, store := newPlayground(t, &testutil.FakeTransport{})
	if _, err := store.Append("giphy-agent", "s1", memory.Message{Role: "user", Text: "gif for loops"}); err != nil {
		t.Fatal(err)
	}

	rec, _ := do(t, s, http.MethodGet, "/v1/playground/agents/giphy-agent/sessions", "")
	var list []memory.Summary
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil || len(list) != 1 || list[0].SessionID != "s1" {
		t.Fatalf("list: %s %v", rec.Body, err)
	}

	rec, m := do(t, s, http.MethodGet, "/v1/playground/agents/giphy-agent/sessions/s1", "")
	if rec.Code != http.StatusOK || m["session_id"] != "s1" {
		t.Fatalf("get: %d %v", rec.Code, m)
	}

	rec, _ = do(t, s, http.MethodDelete, "/v1/playground/agents/giphy-agent/sessions/s1", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: %d", rec.Code)
	}
	rec, _ = do(t, s, http.MethodGet, "/v1/playground/agents/giphy-agent/sessions/s1", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete: %d", rec.Code)
	}
	rec, _ = do(t, s, http.MethodDelete, "/v1/playground/agents/giphy-agent/sessions/s1", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second delete: %d", rec.Code)
	}
	rec, _ = do(t, s, http.MethodGet, "/v1/playground/agents/nope/sessions", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown agent sessions: %d", rec.Code)
	}
}

func TestRun_ToolCallsReturned(t *testing.T) {
	fake := &testutil.FakeTransport{Responses: []string{
		testutil.ToolUseReply("t1", "missing_tool", `{"q":"x"}`),
		testutil.TextReply("done"),
	}}
	s, _ := newPlayground(t, fake)
	rec, _ := do(t, s, http.MethodPost, "/v1/playground/agents/web-agent/runs", `{"message":"go"}`)
	var resp playground.RunResponse
	if err := json.NewDecoder(bytes.NewReader(rec.Body.Bytes())).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.ToolCalls) != 1 || resp.ToolCalls[0].Name != "missing_tool" || !resp.ToolCalls[0].IsError {
		t.Fatalf("tool calls: %+v", resp.ToolCalls)
	}
}

func TestRun_LogsCarryAgentAndRunID(t *testing.T) {
	fake := &testutil.FakeTransport{Responses: []string{testutil.TextReply("ok")}}
	r := runner.New(testutil.NewClient(fake), 10000)
	agents := []*agent.Agent{{Name: "Web Agent", Model: provider.DefaultModel, Runner: r}}
	var buf bytes.Buffer
	s := playground.New(agents, memory.NewStore(t.TempDir()), logging.New(&buf, "INFO"))

	resp, err := s.Run(context.Background(), "web-agent", "s1", "hi")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	var entry map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var m map[string]any
		if json.Unmarshal([]byte(line), &m) == nil && m["msg"] == "run finished" {
			entry = m
		}
	}
	if entry == nil {
		t.Fatalf("no run finished entry in %q", buf.String())
	}
	if entry["agent_id"] != "web-agent" || entry["request_id"] != resp.RunID || entry["session_id"] != "s1" {
		t.Fatalf("log entry = %v", entry)
	}
}
