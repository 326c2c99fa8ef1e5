package tools_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/petasbytes/concept-tutor/tools"
)

func TestGiphySearch_RequiresKey(t *testing.T) {
	_, err := tools.NewGiphySearch(tools.GiphySearchConfig{APIKey: " "})
	if !errors.Is(err, tools.ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
}

func TestGiphySearch_LimitAndMapping(t *testing.T) {
	var q map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/gifs/search" {
			http.NotFound(w, r)
			return
		}
		q = r.URL.Query()
		_, _ = w.Write([]byte(`{"data":[
			{"title":"Mind Blown","url":"https://giphy.com/gifs/1","images":{"original":{"url":"https://media.giphy.com/1.gif"}}},
			{"title":"Other","url":"https://giphy.com/gifs/2","images":{"original":{"url":"https://media.giphy.com/2.gif"}}}
		]}`))
	}))
	defer srv.Close()

	def, err := tools.NewGiphySearch(tools.GiphySearchConfig{APIKey: "secret", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("construct: %v", err)
	}
	out, err := def.Function(context.Background(), json.RawMessage(`{"query":"recursion"}`))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if q["api_key"][0] != "secret" || q["q"][0] != "recursion" || q["limit"][0] != "1" {
		t.Errorf("unexpected query: %v", q)
	}

	var gifs []tools.GIF
	if err := json.Unmarshal([]byte(out), &gifs); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if len(gifs) != 1 {
		t.Fatalf("limit 1 not applied: %d", len(gifs))
	}
	if gifs[0] != (tools.GIF{Title: "Mind Blown", URL: "https://giphy.com/gifs/1", GIFURL: "https://media.giphy.com/1.gif"}) {
		t.Errorf("mapping mismatch: %+v", gifs[0])
	}
}

func TestGiphySearch_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Invalid authentication credentials"}`))
	}))
	defer srv.Close()

	def, _ := tools.NewGiphySearch(tools.GiphySearchConfig{APIKey: "bad", BaseURL: srv.URL})
	_, err := def.Function(context.Background(), json.RawMessage(`{"query":"x"}`))
	var te tools.ToolError
	if !errors.As(err, &te) || te.Code != "ERR_UPSTREAM_STATUS" {
		t.Fatalf("expected ToolError ERR_UPSTREAM_STATUS, got %v", err)
	}
}
