// Package catalog is the single factory for the tutor's agents. Both the
// interactive UI and the playground build their agents here.
package catalog

import (
	"fmt"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/petasbytes/concept-tutor/internal/agent"
	"github.com/petasbytes/concept-tutor/internal/config"
	"github.com/petasbytes/concept-tutor/internal/logging"
	"github.com/petasbytes/concept-tutor/internal/provider"
	"github.com/petasbytes/concept-tutor/internal/runner"
	"github.com/petasbytes/concept-tutor/internal/telemetry"
	"github.com/petasbytes/concept-tutor/tools"
)

const (
	WebAgentName    = "Web Agent"
	GitHubAgentName = "GitHub Code Agent"
	GiphyAgentName  = "Giphy Agent"
	TeamName        = "Concept Learning Team"
)

var (
	WebAgentRole    = "Search the web for information about programming concepts"
	GitHubAgentRole = "Find code examples on GitHub"
	GiphyAgentRole  = "Find relevant GIFs"

	WebAgentInstructions = []string{
		"Find relevant information on the web.",
		"Always include sources.",
	}
	GitHubAgentInstructions = []string{
		"Find code examples on GitHub related to the user's query.",
		"Explain what the code does.",
		"Limit to 3 GitHub repos in English.",
	}
	GiphyAgentInstructions = []string{
		"Find relevant and appropriate GIFs related to the query.",
	}
	TeamInstructions = []string{
		"Combine the information from the Web Agent, GitHub Code Agent, and Giphy Agent",
		"Present the information in a clear and organized way",
		"Include relevant GIFs where appropriate to illustrate concepts",
		"Always include sources",
	}
)

// Deps overrides collaborators, mostly for tests. The zero value builds
// everything from the Config.
type Deps struct {
	Client *anthropic.Client
	// HTTPClient is used by the search tools.
	HTTPClient *http.Client

	WebBaseURL    string
	GitHubBaseURL string
	GiphyBaseURL  string

	Telemetry *telemetry.Sink
	Logger    *logging.Logger
}

// Set is the built agent catalog. All agents share Runner.
type Set struct {
	Web    *agent.Agent
	GitHub *agent.Agent
	Giphy  *agent.Agent
	Team   *agent.Agent
	Runner *runner.Runner
}

// Build assembles the three workers and the team from cfg. It fails with
// tools.ErrMissingAPIKey when no Giphy key is configured.
func Build(cfg *config.Config, deps Deps) (*Set, error) {
	httpClient := deps.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Tools.HTTPTimeout}
	}
	toolset, err := tools.Registry(tools.Config{
		Web: tools.WebSearchConfig{
			BaseURL:    deps.WebBaseURL,
			MaxResults: cfg.Tools.WebMaxResults,
			HTTPClient: httpClient,
		},
		GitHub: tools.GitHubSearchConfig{
			BaseURL:    deps.GitHubBaseURL,
			Token:      cfg.GitHubToken,
			MaxResults: cfg.Tools.GitHubMaxResults,
			HTTPClient: httpClient,
		},
		Giphy: tools.GiphySearchConfig{
			APIKey:     cfg.GiphyAPIKey,
			Limit:      cfg.Tools.GiphyLimit,
			BaseURL:    deps.GiphyBaseURL,
			HTTPClient: httpClient,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}

	client := deps.Client
	if client == nil {
		client = provider.NewAnthropicClient(provider.Config{APIKey: cfg.AnthropicAPIKey, MaxRetries: 2})
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.Nop()
	}

	r := runner.New(client, cfg.TokenBudget)
	r.MaxTokens = cfg.MaxTokens
	r.Telemetry = deps.Telemetry
	r.Logger = logger.Slog()
	r.Window.Logger = logger.Slog()

	model := anthropic.Model(cfg.Model)
	worker := func(name, role string, instructions []string, def tools.ToolDefinition) *agent.Agent {
		a := &agent.Agent{
			Name:          name,
			Role:          role,
			Model:         model,
			Tools:         []tools.ToolDefinition{def},
			Instructions:  instructions,
			ShowToolCalls: true,
			Markdown:      true,
			MaxSteps:      cfg.MaxSteps,
			Runner:        r,
		}
		a.Logger = logger.WithAgent(a.ID()).Slog()
		return a
	}

	set := &Set{
		Web:    worker(WebAgentName, WebAgentRole, WebAgentInstructions, toolset.Web),
		GitHub: worker(GitHubAgentName, GitHubAgentRole, GitHubAgentInstructions, toolset.GitHub),
		Giphy:  worker(GiphyAgentName, GiphyAgentRole, GiphyAgentInstructions, toolset.Giphy),
		Runner: r,
	}
	set.Team = agent.NewTeam(TeamName, model, set.Workers(), TeamInstructions)
	set.Team.MaxSteps = cfg.MaxSteps
	set.Team.Logger = logger.WithAgent(set.Team.ID()).Slog()
	return set, nil
}

// Workers returns web, GitHub and Giphy agents in that order.
func (s *Set) Workers() []*agent.Agent {
	return []*agent.Agent{s.Web, s.GitHub, s.Giphy}
}

// Served returns the agents the playground exposes.
func (s *Set) Served(includeTeam bool) []*agent.Agent {
	out := s.Workers()
	if includeTeam {
		out = append(out, s.Team)
	}
	return out
}
