package config

import (
	"fmt"
	"net/url"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

// ValidationError represents a validation error with context
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("field '%s': %s", ve.Field, ve.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for multiple validation errors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	if len(ve) == 1 {
		return ve[0].Error()
	}

	var messages []string
	for _, err := range ve {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

// HasErrors returns true if there are any validation errors
func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}

// Add adds a new validation error
func (ve *ValidationErrors) Add(field, message string, value ...interface{}) {
	var val interface{}
	if len(value) > 0 {
		val = value[0]
	}
	*ve = append(*ve, ValidationError{
		Field:   field,
		Value:   val,
		Message: message,
	})
}

// Validate checks that the configuration can be used to read and write
// pages. A missing OAuth client ID is not reported here; it only matters
// when a login is started.
func (c Config) Validate() error {
	var errs ValidationErrors
	var suggestions []string

	if strings.TrimSpace(c.Repository.Owner) == "" {
		errs.Add("repository.owner", "is required")
		suggestions = append(suggestions, fmt.Sprintf("set repository.owner in %s or export %s", configFileName, EnvOwner))
	}
	if strings.TrimSpace(c.Repository.Repo) == "" {
		errs.Add("repository.repo", "is required")
		suggestions = append(suggestions, fmt.Sprintf("set repository.repo in %s or export %s", configFileName, EnvRepo))
	}
	if strings.Contains(c.Repository.PagesDir, "..") {
		errs.Add("repository.pagesDir", "must not contain '..'", c.Repository.PagesDir)
	}
	if u, err := url.Parse(c.API.BaseURL); c.API.BaseURL != "" && (err != nil || u.Scheme == "" || u.Host == "") {
		errs.Add("api.baseUrl", "must be an absolute URL", c.API.BaseURL)
	}
	if c.API.Timeout < 0 {
		errs.Add("api.timeout", "must not be negative", c.API.Timeout)
	}
	if _, err := template.New("commit").Funcs(sprig.TxtFuncMap()).Parse(c.Commit.MessageTemplate); err != nil {
		errs.Add("commit.messageTemplate", err.Error(), c.Commit.MessageTemplate)
	}

	if !errs.HasErrors() {
		return nil
	}

	ce := NewConfigurationError("", errs[0].Field, ErrorTypeValidation, errs.Error())
	ce.Suggestions = suggestions
	return ce
}
