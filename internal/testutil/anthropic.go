// Package testutil provides a scripted Anthropic Messages API for tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/petasbytes/concept-tutor/internal/provider"
)

// Request is a captured Messages API call, decoded just enough for assertions.
type Request struct {
	Raw    []byte
	Model  string `json:"model"`
	System []struct {
		Text string `json:"text"`
	} `json:"system"`
	Messages []struct {
		Role    string `json:"role"`
		Content []struct {
			Type      string `json:"type"`
			Text      string `json:"text,omitempty"`
			ID        string `json:"id,omitempty"`
			ToolUseID string `json:"tool_use_id,omitempty"`
			IsError   bool   `json:"is_error,omitempty"`
		} `json:"content"`
	} `json:"messages"`
	Tools []struct {
		Name string `json:"name"`
	} `json:"tools"`
}

// SystemText joins the system blocks of the request.
func (r Request) SystemText() string {
	var b bytes.Buffer
	for _, s := range r.System {
		b.WriteString(s.Text)
	}
	return b.String()
}

// LastUserText returns the text blocks of the newest user message.
func (r Request) LastUserText() string {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Role != "user" {
			continue
		}
		var b bytes.Buffer
		for _, c := range r.Messages[i].Content {
			b.WriteString(c.Text)
		}
		return b.String()
	}
	return ""
}

// Responder picks the reply for a decoded request.
type Responder func(req Request) (status int, body string)

// FakeTransport is an http.RoundTripper standing in for api.anthropic.com.
// With Responder unset it serves Responses in order and repeats the last one.
type FakeTransport struct {
	Responses []string
	Status    int
	Responder Responder

	mu       sync.Mutex
	requests []Request
	served   int
}

func (f *FakeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	b, _ := io.ReadAll(req.Body)
	_ = req.Body.Close()

	var decoded Request
	_ = json.Unmarshal(b, &decoded)
	decoded.Raw = b

	f.mu.Lock()
	f.requests = append(f.requests, decoded)
	status, body := f.next(decoded)
	f.mu.Unlock()

	resp := &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewReader([]byte(body))),
		Header:     make(http.Header),
		Request:    req,
	}
	resp.Header.Set("Content-Type", "application/json")
	return resp, nil
}

func (f *FakeTransport) next(req Request) (int, string) {
	if f.Responder != nil {
		return f.Responder(req)
	}
	status := f.Status
	if status == 0 {
		status = http.StatusOK
	}
	if len(f.Responses) == 0 {
		return status, TextReply("")
	}
	i := f.served
	if i >= len(f.Responses) {
		i = len(f.Responses) - 1
	}
	f.served++
	return status, f.Responses[i]
}

// Requests returns a copy of the captured calls.
func (f *FakeTransport) Requests() []Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Request(nil), f.requests...)
}

// NewClient returns an SDK client wired to rt with retries disabled.
func NewClient(rt http.RoundTripper) *anthropic.Client {
	return provider.NewAnthropicClient(provider.Config{
		APIKey:     "test-key",
		MaxRetries: 0,
		HTTPClient: &http.Client{Transport: rt},
	})
}

// TextReply is an assistant message with one text block.
func TextReply(text string) string {
	b, _ := json.Marshal(text)
	return fmt.Sprintf(`{"id":"msg_text","type":"message","role":"assistant","model":"test","stop_reason":"end_turn","content":[{"type":"text","text":%s}],"usage":{"input_tokens":10,"output_tokens":5}}`, b)
}

// ToolUseReply is an assistant message asking for one tool call.
func ToolUseReply(id, name, inputJSON string) string {
	return fmt.Sprintf(`{"id":"msg_tool","type":"message","role":"assistant","model":"test","stop_reason":"tool_use","content":[{"type":"tool_use","id":%q,"name":%q,"input":%s}],"usage":{"input_tokens":20,"output_tokens":8}}`, id, name, inputJSON)
}

// ErrorReply is an API error body, e.g. for a 401.
func ErrorReply(kind, message string) string {
	return fmt.Sprintf(`{"type":"error","error":{"type":%q,"message":%q}}`, kind, message)
}
