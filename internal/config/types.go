package config

import "time"

// Config is the top-level configuration structure for pagecms.
type Config struct {
	Repository  RepositoryConfig  `yaml:"repository"`
	OAuth       OAuthConfig       `yaml:"oauth"`
	API         APIConfig         `yaml:"api"`
	Credentials CredentialsConfig `yaml:"credentials"`
	Commit      CommitConfig      `yaml:"commit"`
}

// RepositoryConfig identifies where pages are stored.
type RepositoryConfig struct {
	Owner    string `yaml:"owner"`              // Repository owner (user or organization)
	Repo     string `yaml:"repo"`               // Repository name
	Branch   string `yaml:"branch,omitempty"`   // Branch to read and commit to (default: repository default branch)
	PagesDir string `yaml:"pagesDir,omitempty"` // Directory of the Markdown files (default: pages)
}

// OAuthConfig configures the device authorization flow.
type OAuthConfig struct {
	ClientID      string `yaml:"clientId,omitempty"`      // OAuth App client ID; required for login
	Scope         string `yaml:"scope,omitempty"`         // Requested scope (default: repo)
	DeviceCodeURL string `yaml:"deviceCodeUrl,omitempty"` // Device authorization endpoint (default: GitHub)
	TokenURL      string `yaml:"tokenUrl,omitempty"`      // Token endpoint (default: GitHub)
}

// APIConfig configures access to the GitHub REST API.
type APIConfig struct {
	BaseURL string        `yaml:"baseUrl,omitempty"` // API root (default: https://api.github.com)
	Timeout time.Duration `yaml:"timeout,omitempty"` // Per-request timeout (default: 30s)
}

// CredentialsConfig configures where the credential is persisted.
type CredentialsConfig struct {
	Dir string `yaml:"dir,omitempty"` // Directory of github_token.json (default: the config directory)
}

// CommitConfig configures the commits created by saves.
type CommitConfig struct {
	// MessageTemplate is a Go template with sprig functions. Available
	// fields: .Page, .Path, .Branch and .Create.
	MessageTemplate string `yaml:"messageTemplate,omitempty"`
}
