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

type GitHubSearchInput struct {
	Query   string `json:"query" jsonschema_description:"Repository search query, GitHub search qualifiers allowed (e.g. 'decorators language:python')."`
	Sort    string `json:"sort,omitempty" jsonschema:"enum=stars,enum=forks,enum=updated" jsonschema_description:"Sort field (default stars)."`
	Order   string `json:"order,omitempty" jsonschema:"enum=asc,enum=desc" jsonschema_description:"Sort order (default desc)."`
	PerPage int    `json:"per_page,omitempty" jsonschema_description:"Number of repositories to return."`
}

// Repository is the subset of a GitHub search item returned to the model.
type Repository struct {
	FullName    string `json:"full_name"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url"`
	Stars       int    `json:"stars"`
	Forks       int    `json:"forks"`
	Language    string `json:"language,omitempty"`
}

type GitHubSearchConfig struct {
	// BaseURL of the GitHub REST API; defaults to https://api.github.com.
	BaseURL string
	// Token is optional; unauthenticated search is rate limited harder.
	Token      string
	MaxResults int
	HTTPClient *http.Client
}

const (
	defaultGitHubURL     = "https://api.github.com"
	defaultGitHubResults = 3
	maxGitHubResults     = 30
)

var GitHubSearchInputSchema = GenerateSchema[GitHubSearchInput]()

type githubSearchResponse struct {
	TotalCount int `json:"total_count"`
	Items      []struct {
		FullName        string `json:"full_name"`
		Description     string `json:"description"`
		HTMLURL         string `json:"html_url"`
		StargazersCount int    `json:"stargazers_count"`
		ForksCount      int    `json:"forks_count"`
		Language        string `json:"language"`
	} `json:"items"`
}

// NewGitHubSearch returns the search_repositories tool.
func NewGitHubSearch(cfg GitHubSearchConfig) ToolDefinition {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultGitHubURL
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = defaultGitHubResults
	}
	client := httpClientOrDefault(cfg.HTTPClient)

	return ToolDefinition{
		Name:        "search_repositories",
		Description: "Search GitHub repositories. Returns a JSON array with full_name, description, url, stars, forks and language.",
		InputSchema: GitHubSearchInputSchema,
		Function: func(ctx context.Context, input json.RawMessage) (string, error) {
			var in GitHubSearchInput
			if err := json.Unmarshal(input, &in); err != nil {
				return "", err
			}
			if strings.TrimSpace(in.Query) == "" {
				return "", ToolError{Code: "ERR_INVALID_INPUT", Message: "query must not be empty"}
			}
			sort := in.Sort
			if sort == "" {
				sort = "stars"
			}
			order := in.Order
			if order == "" {
				order = "desc"
			}
			perPage := clampLimit(in.PerPage, cfg.MaxResults, maxGitHubResults)

			q := url.Values{}
			q.Set("q", in.Query)
			q.Set("sort", sort)
			q.Set("order", order)
			q.Set("per_page", strconv.Itoa(perPage))
			endpoint := strings.TrimRight(cfg.BaseURL, "/") + "/search/repositories?" + q.Encode()

			req, err := http.NewRequest(http.MethodGet, endpoint, nil)
			if err != nil {
				return "", err
			}
			req.Header.Set("Accept", "application/vnd.github+json")
			req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
			if cfg.Token != "" {
				req.Header.Set("Authorization", "Bearer "+cfg.Token)
			}

			body, err := do(ctx, client, req, "github")
			if err != nil {
				return "", err
			}
			var resp githubSearchResponse
			if err := json.Unmarshal(body, &resp); err != nil {
				return "", fmt.Errorf("github: decode search response: %w", err)
			}

			repos := make([]Repository, 0, len(resp.Items))
			for _, it := range resp.Items {
				if len(repos) == perPage {
					break
				}
				repos = append(repos, Repository{
					FullName:    it.FullName,
					Description: it.Description,
					URL:         it.HTMLURL,
					Stars:       it.StargazersCount,
					Forks:       it.ForksCount,
					Language:    it.Language,
				})
			}
			return marshalResult(repos)
		},
	}
}
