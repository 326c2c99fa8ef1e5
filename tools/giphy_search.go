package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

type GiphySearchInput struct {
	Query string `json:"query" jsonschema_description:"Text to find GIFs for."`
}

// GIF is one Giphy search hit.
type GIF struct {
	Title  string `json:"title,omitempty"`
	URL    string `json:"url"`
	GIFURL string `json:"gif_url"`
}

type GiphySearchConfig struct {
	APIKey string
	// Limit is the number of GIFs returned per call (default 1).
	Limit int
	// BaseURL of the Giphy API; defaults to https://api.giphy.com.
	BaseURL    string
	HTTPClient *http.Client
}

const defaultGiphyURL = "https://api.giphy.com"

var GiphySearchInputSchema = GenerateSchema[GiphySearchInput]()

type giphySearchResponse struct {
	Data []struct {
		Title  string `json:"title"`
		URL    string `json:"url"`
		Images struct {
			Original struct {
				URL string `json:"url"`
			} `json:"original"`
		} `json:"images"`
	} `json:"data"`
}

// NewGiphySearch returns the search_gifs tool. It fails with ErrMissingAPIKey
// when no key is configured.
func NewGiphySearch(cfg GiphySearchConfig) (ToolDefinition, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return ToolDefinition{}, fmt.Errorf("giphy: %w", ErrMissingAPIKey)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultGiphyURL
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 1
	}
	client := httpClientOrDefault(cfg.HTTPClient)

	return ToolDefinition{
		Name:        "search_gifs",
		Description: "Find GIFs on Giphy. Returns a JSON array with title, page url and direct gif_url.",
		InputSchema: GiphySearchInputSchema,
		Function: func(ctx context.Context, input json.RawMessage) (string, error) {
			var in GiphySearchInput
			if err := json.Unmarshal(input, &in); err != nil {
				return "", err
			}
			if strings.TrimSpace(in.Query) == "" {
				return "", ToolError{Code: "ERR_INVALID_INPUT", Message: "query must not be empty"}
			}

			q := url.Values{}
			q.Set("api_key", cfg.APIKey)
			q.Set("q", in.Query)
			q.Set("limit", strconv.Itoa(cfg.Limit))
			q.Set("rating", "g")
			endpoint := strings.TrimRight(cfg.BaseURL, "/") + "/v1/gifs/search?" + q.Encode()

			req, err := http.NewRequest(http.MethodGet, endpoint, nil)
			if err != nil {
				return "", err
			}
			req.Header.Set("Accept", "application/json")

			body, err := do(ctx, client, req, "giphy")
			if err != nil {
				return "", err
			}
			var resp giphySearchResponse
			if err := json.Unmarshal(body, &resp); err != nil {
				return "", fmt.Errorf("giphy: decode search response: %w", err)
			}

			gifs := make([]GIF, 0, len(resp.Data))
			for _, d := range resp.Data {
				if len(gifs) == cfg.Limit {
					break
				}
				gifs = append(gifs, GIF{Title: d.Title, URL: d.URL, GIFURL: d.Images.Original.URL})
			}
			return marshalResult(gifs)
		},
	}, nil
}
