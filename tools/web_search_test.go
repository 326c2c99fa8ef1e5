package tools_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/petasbytes/concept-tutor/tools"
)

const ddgPage = `<html><body>
<div class="result results_links web-result">
  <h2 class="result__title">
    <a rel="nofollow" class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Frealpython.com%2Fprimer-on-python-decorators%2F&amp;rut=abc">Primer on Python <b>Decorators</b></a>
  </h2>
  <a class="result__snippet" href="#">In this tutorial you'll look at what <b>decorators</b> are.</a>
</div>
<div class="result results_links web-result">
  <h2 class="result__title">
    <a rel="nofollow" class="result__a" href="https://docs.python.org/3/glossary.html">Glossary</a>
  </h2>
  <a class="result__snippet" href="#">decorator: a function returning another function</a>
</div>
<div class="result results_links web-result">
  <h2 class="result__title"><a class="result__a" href="https://example.com/third">Third</a></h2>
</div>
</body></html>`

func TestParseDuckDuckGoHTML(t *testing.T) {
	got, err := tools.ParseDuckDuckGoHTML([]byte(ddgPage), 5)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("want 3 results, got %d: %+v", len(got), got)
	}
	if got[0].Title != "Primer on Python Decorators" {
		t.Errorf("title: %q", got[0].Title)
	}
	if got[0].Href != "https://realpython.com/primer-on-python-decorators/" {
		t.Errorf("redirect not unwrapped: %q", got[0].Href)
	}
	if got[0].Body != "In this tutorial you'll look at what decorators are." {
		t.Errorf("body: %q", got[0].Body)
	}
	if got[1].Href != "https://docs.python.org/3/glossary.html" {
		t.Errorf("href: %q", got[1].Href)
	}
	if got[2].Body != "" {
		t.Errorf("expected empty body for result without snippet, got %q", got[2].Body)
	}
}

func TestParseDuckDuckGoHTML_Limit(t *testing.T) {
	got, err := tools.ParseDuckDuckGoHTML([]byte(ddgPage), 2)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("want 2 results, got %d", len(got))
	}
	if got[1].Body == "" {
		t.Fatal("snippet of the last kept result should still be captured")
	}
}

func TestWebSearch_QueriesEndpoint(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(ddgPage))
	}))
	defer srv.Close()

	def := tools.NewWebSearch(tools.WebSearchConfig{BaseURL: srv.URL + "/html/", MaxResults: 1})
	out, err := def.Function(context.Background(), json.RawMessage(`{"query":"python decorators"}`))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if gotQuery != "python decorators" {
		t.Errorf("query not forwarded: %q", gotQuery)
	}
	var results []tools.WebResult
	if err := json.Unmarshal([]byte(out), &results); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if len(results) != 1 {
		t.Fatalf("configured MaxResults not applied: %d", len(results))
	}
}

func TestWebSearch_NoResults_EmptyArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body>No results.</body></html>`))
	}))
	defer srv.Close()

	def := tools.NewWebSearch(tools.WebSearchConfig{BaseURL: srv.URL})
	out, err := def.Function(context.Background(), json.RawMessage(`{"query":"zzzz"}`))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if out != "[]" {
		t.Fatalf("want [], got %s", out)
	}
}

func TestWebSearch_EmptyQuery(t *testing.T) {
	def := tools.NewWebSearch(tools.WebSearchConfig{BaseURL: "http://127.0.0.1:0"})
	_, err := def.Function(context.Background(), json.RawMessage(`{"query":"  "}`))
	if err == nil || !strings.Contains(err.Error(), "ERR_INVALID_INPUT") {
		t.Fatalf("expected ERR_INVALID_INPUT, got %v", err)
	}
}

func TestWebSearch_UpstreamStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	def := tools.NewWebSearch(tools.WebSearchConfig{BaseURL: srv.URL})
	_, err := def.Function(context.Background(), json.RawMessage(`{"query":"x"}`))
	if err == nil || !strings.Contains(err.Error(), "ERR_UPSTREAM_STATUS") || !strings.Contains(err.Error(), "429") {
		t.Fatalf("expected upstream status error, got %v", err)
	}
}
