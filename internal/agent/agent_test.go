package agent_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/petasbytes/concept-tutor/internal/agent"
	"github.com/petasbytes/concept-tutor/internal/provider"
	"github.com/petasbytes/concept-tutor/internal/runner"
	"github.com/petasbytes/concept-tutor/internal/testutil"
	"github.com/petasbytes/concept-tutor/memory"
	"github.com/petasbytes/concept-tutor/tools"
)

func searchTool(t *testing.T, got *[]string) tools.ToolDefinition {
	t.Helper()
	type in struct {
		Query string `json:"query"`
	}
	return tools.ToolDefinition{
		Name:        "duckduckgo_search",
		InputSchema: tools.GenerateSchema[in](),
		Function: func(ctx context.Context, input json.RawMessage) (string, error) {
			var v in
			_ = json.Unmarshal(input, &v)
			*got = append(*got, v.Query)
			return `[{"title":"Closures","href":"https://example.com"}]`, nil
		},
	}
}

func newAgent(fake *testutil.FakeTransport, tl ...tools.ToolDefinition) *agent.Agent {
	return &agent.Agent{
		Name:          "Web Agent",
		Role:          "Search the web for information about programming concepts",
		Model:         provider.DefaultModel,
		Tools:         tl,
		Instructions:  []string{"Find relevant information on the web.", "Always include sources."},
		ShowToolCalls: true,
		Markdown:      true,
		MaxSteps:      4,
		Runner:        runner.New(testutil.NewClient(fake), 10000),
	}
}

func TestAgent_ID(t *testing.T) {
	tests := map[string]string{
		"Web Agent":         "web-agent",
		"GitHub Code Agent": "github-code-agent",
		"Giphy Agent":       "giphy-agent",
		"  Team -- Lead! ":  "team-lead",
	}
	for name, want := range tests {
		if got := (&agent.Agent{Name: name}).ID(); got != want {
			t.Errorf("ID(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestAgent_Run_EmptyPrompt_NoCall(t *testing.T) {
	fake := &testutil.FakeTransport{}
	a := newAgent(fake)
	for _, p := range []string{"", "   ", "\n\t"} {
		if _, err := a.Run(context.Background(), p); !errors.Is(err, agent.ErrEmptyPrompt) {
			t.Fatalf("Run(%q) err = %v, want ErrEmptyPrompt", p, err)
		}
	}
	if n := len(fake.Requests()); n != 0 {
		t.Fatalf("expected no model calls, got %d", n)
	}
}

func TestAgent_SystemPrompt(t *testing.T) {
	a := newAgent(&testutil.FakeTransport{})
	sp := a.SystemPrompt()
	for _, want := range []string{
		"Search the web for information about programming concepts",
		"- Find relevant information on the web.",
		"- Always include sources.",
		"Use markdown to format your answers.",
	} {
		if !strings.Contains(sp, want) {
			t.Errorf("system prompt missing %q:\n%s", want, sp)
		}
	}
	a.Markdown = false
	if strings.Contains(a.SystemPrompt(), "markdown") {
		t.Error("markdown directive present with Markdown=false")
	}
}

func TestAgent_Run_ShowToolCalls(t *testing.T) {
	var queries []string
	fake := &testutil.FakeTransport{Responses: []string{
		testutil.ToolUseReply("t1", "duckduckgo_search", `{"query":"python closures","max_results":3}`),
		testutil.TextReply("A closure captures variables. Source: https://example.com"),
	}}
	a := newAgent(fake, searchTool(t, &queries))

	resp, err := a.Run(context.Background(), "Explain closures concept clearly with examples")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(queries) != 1 || queries[0] != "python closures" {
		t.Fatalf("tool not called as expected: %v", queries)
	}
	wantPrefix := "Running:\n - duckduckgo_search(max_results=3, query=python closures)\n\n"
	if !strings.HasPrefix(resp.Content, wantPrefix) {
		t.Fatalf("content prefix:\n%q\nwant prefix\n%q", resp.Content, wantPrefix)
	}
	if !strings.HasSuffix(resp.Content, "Source: https://example.com") {
		t.Fatalf("agent text missing: %q", resp.Content)
	}
	if resp.Usage.Steps != 2 || resp.Usage.ToolCalls != 1 {
		t.Fatalf("usage: %+v", resp.Usage)
	}

	req := fake.Requests()[0]
	if !strings.Contains(req.SystemText(), "Always include sources.") {
		t.Errorf("system prompt not sent: %q", req.SystemText())
	}
	if req.LastUserText() != "Explain closures concept clearly with examples" {
		t.Errorf("prompt not sent verbatim: %q", req.LastUserText())
	}
}

func TestAgent_Run_HideToolCalls(t *testing.T) {
	var queries []string
	fake := &testutil.FakeTransport{Responses: []string{
		testutil.ToolUseReply("t1", "duckduckgo_search", `{"query":"x"}`),
		testutil.TextReply("plain"),
	}}
	a := newAgent(fake, searchTool(t, &queries))
	a.ShowToolCalls = false
	resp, err := a.Run(context.Background(), "x")
	if err != nil {
		t.Fatal(err)
	}
	if resp.Content != "plain" || len(resp.ToolCalls) != 1 {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestAgent_Run_MaxStepsWrapped(t *testing.T) {
	var queries []string
	fake := &testutil.FakeTransport{Responses: []string{testutil.ToolUseReply("t", "duckduckgo_search", `{"query":"loop"}`)}}
	a := newAgent(fake, searchTool(t, &queries))
	a.MaxSteps = 2
	_, err := a.Run(context.Background(), "loop forever")
	if !errors.Is(err, runner.ErrMaxSteps) {
		t.Fatalf("expected ErrMaxSteps, got %v", err)
	}
	if !strings.HasPrefix(err.Error(), "web-agent: run:") {
		t.Errorf("error not wrapped with agent context: %v", err)
	}
}

func TestAgent_RunSession_PersistsAndReplays(t *testing.T) {
	fake := &testutil.FakeTransport{Responses: []string{testutil.TextReply("first answer"), testutil.TextReply("second answer")}}
	a := newAgent(fake)
	store := memory.NewStore(t.TempDir())

	if _, err := a.RunSession(context.Background(), store, "s1", "first question"); err != nil {
		t.Fatalf("RunSession: %v", err)
	}
	if _, err := a.RunSession(context.Background(), store, "s1", "second question"); err != nil {
		t.Fatalf("RunSession: %v", err)
	}

	// The second call replays the stored transcript before the new prompt.
	msgs := fake.Requests()[1].Messages
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages on replay, got %d", len(msgs))
	}
	if msgs[0].Content[0].Text != "first question" || msgs[1].Content[0].Text != "first answer" || msgs[2].Content[0].Text != "second question" {
		t.Fatalf("unexpected replay: %+v", msgs)
	}

	sess, err := store.Load("web-agent", "s1")
	if err != nil {
		t.Fatal(err)
	}
	if len(sess.Messages) != 4 || sess.Messages[3].Text != "second answer" {
		t.Fatalf("stored transcript: %+v", sess.Messages)
	}
}

func TestAgent_RunSession_StoresAnswerWithoutToolListing(t *testing.T) {
	var queries []string
	fake := &testutil.FakeTransport{Responses: []string{
		testutil.ToolUseReply("t1", "duckduckgo_search", `{"query":"closures"}`),
		testutil.TextReply("closures capture scope"),
		testutil.TextReply("yes"),
	}}
	a := newAgent(fake, searchTool(t, &queries))
	store := memory.NewStore(t.TempDir())

	resp, err := a.RunSession(context.Background(), store, "s1", "what is a closure")
	if err != nil {
		t.Fatalf("RunSession: %v", err)
	}
	if !strings.HasPrefix(resp.Content, "Running:") {
		t.Fatalf("client content lost the tool listing: %q", resp.Content)
	}
	sess, err := store.Load("web-agent", "s1")
	if err != nil {
		t.Fatal(err)
	}
	if got := sess.Messages[1].Text; got != "closures capture scope" {
		t.Fatalf("stored assistant text = %q", got)
	}

	if _, err := a.RunSession(context.Background(), store, "s1", "really?"); err != nil {
		t.Fatalf("RunSession: %v", err)
	}
	replayed := fake.Requests()[2].Messages[1].Content[0].Text
	if strings.Contains(replayed, "Running:") {
		t.Fatalf("tool listing replayed to the model: %q", replayed)
	}
}

func TestAgent_RunSession_FailureNotStored(t *testing.T) {
	fake := &testutil.FakeTransport{Status: 500, Responses: []string{testutil.ErrorReply("api_error", "overloaded")}}
	a := newAgent(fake)
	store := memory.NewStore(t.TempDir())
	if _, err := a.RunSession(context.Background(), store, "s1", "q"); err == nil {
		t.Fatal("expected error")
	}
	if _, err := store.Load("web-agent", "s1"); !errors.Is(err, memory.ErrSessionNotFound) {
		t.Fatalf("failed run must not create a session: %v", err)
	}
}

func TestFormatToolCalls(t *testing.T) {
	got := agent.FormatToolCalls([]runner.ToolCall{
		{Name: "search_gifs", Input: json.RawMessage(`{"query":"recursion"}`)},
		{Name: "search_repositories", Input: json.RawMessage(`{"per_page":3,"query":"decorators"}`)},
		{Name: "noargs", Input: json.RawMessage(`{}`)},
	})
	want := "Running:\n - search_gifs(query=recursion)\n - search_repositories(per_page=3, query=decorators)\n - noargs()"
	if got != want {
		t.Fatalf("got\n%s\nwant\n%s", got, want)
	}
}
