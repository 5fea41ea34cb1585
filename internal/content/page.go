package content

import (
	"fmt"
	"strings"
)

// DefaultPage is the page opened when no name is given.
const DefaultPage = "index"

// Page is a named Markdown document and the version token it was read at.
type Page struct {
	// Name is the page name without directory or extension, e.g. "about".
	Name string
	// Content is the raw Markdown text.
	Content string
	// Version is the blob sha the store reported. It is only valid for the
	// write that immediately follows the read that produced it.
	Version string
}

// NormalizeName maps user or link input to a page name. Leading slashes,
// a "#/" route prefix and a ".md" suffix are removed; an empty name selects
// DefaultPage. Names may contain "/" for nested pages but no empty, "." or
// ".." segments.
func NormalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	name = strings.TrimPrefix(name, "#")
	name = strings.TrimLeft(name, "/")
	name = strings.TrimSuffix(name, ".md")

	if name == "" {
		return DefaultPage, nil
	}

	for _, segment := range strings.Split(name, "/") {
		if segment == "" || segment == "." || segment == ".." {
			return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
		}
	}
	return name, nil
}
