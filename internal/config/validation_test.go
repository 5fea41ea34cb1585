package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	cfg := GetDefaultConfig()
	cfg.Repository.Owner = "octo"
	cfg.Repository.Repo = "wiki"
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing client id is fine", mutate: func(c *Config) { c.OAuth.ClientID = "" }},
		{name: "missing owner", mutate: func(c *Config) { c.Repository.Owner = "" }, wantField: "repository.owner"},
		{name: "missing repo", mutate: func(c *Config) { c.Repository.Repo = " " }, wantField: "repository.repo"},
		{name: "pages dir escapes", mutate: func(c *Config) { c.Repository.PagesDir = "../x" }, wantField: "repository.pagesDir"},
		{name: "relative base url", mutate: func(c *Config) { c.API.BaseURL = "api.github.com" }, wantField: "api.baseUrl"},
		{name: "negative timeout", mutate: func(c *Config) { c.API.Timeout = -1 }, wantField: "api.timeout"},
		{name: "broken template", mutate: func(c *Config) { c.Commit.MessageTemplate = "{{ .Page" }, wantField: "commit.messageTemplate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}

			var ce ConfigurationError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, ErrorTypeValidation, ce.ErrorType)
			assert.Equal(t, tt.wantField, ce.Field)
		})
	}
}

func TestValidateReportsAllMissingFields(t *testing.T) {
	err := GetDefaultConfig().Validate()
	require.Error(t, err)

	var ce ConfigurationError
	require.True(t, errors.As(err, &ce))
	assert.Contains(t, ce.Message, "repository.owner")
	assert.Contains(t, ce.Message, "repository.repo")
	assert.Len(t, ce.Suggestions, 2)
	assert.Contains(t, ce.DetailedError(), EnvOwner)
}

func TestValidationErrors(t *testing.T) {
	var errs ValidationErrors
	assert.False(t, errs.HasErrors())
	assert.Equal(t, "no validation errors", errs.Error())

	errs.Add("a", "is bad", 1)
	assert.Equal(t, "field 'a': is bad", errs.Error())

	errs.Add("", "general problem")
	assert.Equal(t, "validation failed: field 'a': is bad; general problem", errs.Error())
}
