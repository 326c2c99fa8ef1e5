package tools

// Config groups the settings of every search tool.
type Config struct {
	Web    WebSearchConfig
	GitHub GitHubSearchConfig
	Giphy  GiphySearchConfig
}

// Set holds one definition per search integration.
type Set struct {
	Web    ToolDefinition
	GitHub ToolDefinition
	Giphy  ToolDefinition
}

// Registry builds every search tool from cfg. It fails when a tool that
// needs credentials has none.
func Registry(cfg Config) (Set, error) {
	giphy, err := NewGiphySearch(cfg.Giphy)
	if err != nil {
		return Set{}, err
	}
	return Set{
		Web:    NewWebSearch(cfg.Web),
		GitHub: NewGitHubSearch(cfg.GitHub),
		Giphy:  giphy,
	}, nil
}
