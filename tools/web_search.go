package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

type WebSearchInput struct {
	Query      string `json:"query" jsonschema_description:"The query to search the web for."`
	MaxResults int    `json:"max_results,omitempty" jsonschema_description:"Maximum number of results to return (default 5)."`
}

// WebResult is one organic DuckDuckGo hit.
type WebResult struct {
	Title string `json:"title"`
	Href  string `json:"href"`
	Body  string `json:"body,omitempty"`
}

type WebSearchConfig struct {
	// BaseURL of the DuckDuckGo HTML endpoint; defaults to https://html.duckduckgo.com/html/.
	BaseURL    string
	MaxResults int
	HTTPClient *http.Client
}

const (
	defaultDuckDuckGoURL = "https://html.duckduckgo.com/html/"
	defaultWebResults    = 5
	maxWebResults        = 20
)

var WebSearchInputSchema = GenerateSchema[WebSearchInput]()

// NewWebSearch returns the duckduckgo_search tool.
func NewWebSearch(cfg WebSearchConfig) ToolDefinition {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultDuckDuckGoURL
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = defaultWebResults
	}
	client := httpClientOrDefault(cfg.HTTPClient)

	return ToolDefinition{
		Name:        "duckduckgo_search",
		Description: "Search the web with DuckDuckGo. Returns a JSON array of results with title, href and body snippet.",
		InputSchema: WebSearchInputSchema,
		Function: func(ctx context.Context, input json.RawMessage) (string, error) {
			var in WebSearchInput
			if err := json.Unmarshal(input, &in); err != nil {
				return "", err
			}
			if strings.TrimSpace(in.Query) == "" {
				return "", ToolError{Code: "ERR_INVALID_INPUT", Message: "query must not be empty"}
			}
			limit := clampLimit(in.MaxResults, cfg.MaxResults, maxWebResults)

			u, err := url.Parse(cfg.BaseURL)
			if err != nil {
				return "", err
			}
			q := u.Query()
			q.Set("q", in.Query)
			u.RawQuery = q.Encode()

			req, err := http.NewRequest(http.MethodGet, u.String(), nil)
			if err != nil {
				return "", err
			}
			req.Header.Set("Accept", "text/html")
			req.Header.Set("Accept-Language", "en-US,en;q=0.9")

			body, err := do(ctx, client, req, "duckduckgo")
			if err != nil {
				return "", err
			}
			results, err := ParseDuckDuckGoHTML(body, limit)
			if err != nil {
				return "", err
			}
			if results == nil {
				results = []WebResult{}
			}
			return marshalResult(results)
		},
	}
}

// ParseDuckDuckGoHTML extracts up to limit results from the html.duckduckgo.com
// results page. Titles come from a.result__a, snippets from the following
// .result__snippet element; redirect links are unwrapped to their target.
func ParseDuckDuckGoHTML(page []byte, limit int) ([]WebResult, error) {
	doc, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return nil, err
	}

	var results []WebResult
	var walk func(n *html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.ElementNode {
			switch {
			case hasClass(n, "result__a"):
				if len(results) == limit {
					return false
				}
				results = append(results, WebResult{
					Title: collapseSpace(textContent(n)),
					Href:  unwrapRedirect(attr(n, "href")),
				})
				return true
			case hasClass(n, "result__snippet"):
				if len(results) > 0 && results[len(results)-1].Body == "" {
					results[len(results)-1].Body = collapseSpace(textContent(n))
				}
				return true
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if !walk(c) {
				return false
			}
		}
		return true
	}
	walk(doc)
	return results, nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var rec func(*html.Node)
	rec = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			rec(c)
		}
	}
	rec(n)
	return sb.String()
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// unwrapRedirect turns //duckduckgo.com/l/?uddg=<target> into <target>.
func unwrapRedirect(href string) string {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}
