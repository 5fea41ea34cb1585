package config

import (
	"time"

	"golang.org/x/oauth2/github"
)

const (
	// DefaultAPIBaseURL is the GitHub REST API root.
	DefaultAPIBaseURL = "https://api.github.com"

	// DefaultPagesDir is the repository directory holding the pages.
	DefaultPagesDir = "pages"

	// DefaultScope grants read/write access to repository contents.
	DefaultScope = "repo"

	// DefaultTimeout bounds every API request.
	DefaultTimeout = 30 * time.Second

	// DefaultCommitMessage is the commit message template for saves.
	DefaultCommitMessage = "Add/Update {{ .Page }}.md"
)

// GetDefaultConfig returns the default configuration. The repository is
// left empty; it must come from the config file or the environment.
func GetDefaultConfig() Config {
	return Config{
		Repository: RepositoryConfig{
			PagesDir: DefaultPagesDir,
		},
		OAuth: OAuthConfig{
			Scope:         DefaultScope,
			DeviceCodeURL: github.Endpoint.DeviceAuthURL,
			TokenURL:      github.Endpoint.TokenURL,
		},
		API: APIConfig{
			BaseURL: DefaultAPIBaseURL,
			Timeout: DefaultTimeout,
		},
		Commit: CommitConfig{
			MessageTemplate: DefaultCommitMessage,
		},
	}
}
