package content

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/google/go-github/v74/github"

	"pagecms/internal/credential"
	"pagecms/internal/gateway"
	"pagecms/pkg/logging"
)

const (
	// DefaultBaseURL is the GitHub REST API root.
	DefaultBaseURL = "https://api.github.com"

	// DefaultPagesDir is the repository directory holding the pages.
	DefaultPagesDir = "pages"

	// DefaultCommitMessage is the commit message template for writes.
	DefaultCommitMessage = "Add/Update {{ .Page }}.md"
)

// Config describes the repository the store reads from and writes to.
type Config struct {
	// BaseURL is the API root. Defaults to DefaultBaseURL.
	BaseURL string
	// Owner and Repo identify the repository.
	Owner string
	Repo  string
	// Branch is the branch to read and commit to. Empty means the
	// repository's default branch.
	Branch string
	// PagesDir is the directory of the Markdown files. Defaults to "pages".
	PagesDir string
	// CommitMessage is a text/template with sprig functions rendered for
	// every write. Defaults to DefaultCommitMessage.
	CommitMessage string
}

// SaveRequest is the input of Save.
type SaveRequest struct {
	// Name is the page to write.
	Name string
	// Content is the new full text of the page.
	Content string
	// BaseVersion is the version the edit was made against; empty when the
	// page is being created.
	BaseVersion string
}

// commitMessageData is the data passed to the commit message template.
type commitMessageData struct {
	Page   string
	Path   string
	Branch string
	Create bool
}

// putFileBody is the contents API write payload. Content shadows the
// embedded []byte field so the page goes out in the codec's transport form.
type putFileBody struct {
	*github.RepositoryContentFileOptions
	Content string `json:"content"`
}

// Store maps page names to files in a GitHub repository.
type Store struct {
	cfg     Config
	gateway gateway.Gateway
	creds   credential.Store
	message *template.Template
}

// New creates a Store. creds supplies the credential for reads; writes
// take an explicit credential.
func New(cfg Config, gw gateway.Gateway, creds credential.Store) (*Store, error) {
	if cfg.Owner == "" || cfg.Repo == "" {
		return nil, fmt.Errorf("content store requires a repository owner and name")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	if cfg.PagesDir == "" {
		cfg.PagesDir = DefaultPagesDir
	}
	cfg.PagesDir = strings.Trim(cfg.PagesDir, "/")
	if cfg.CommitMessage == "" {
		cfg.CommitMessage = DefaultCommitMessage
	}

	tmpl, err := template.New("commit").Funcs(sprig.TxtFuncMap()).Parse(cfg.CommitMessage)
	if err != nil {
		return nil, fmt.Errorf("invalid commit message template: %w", err)
	}

	return &Store{cfg: cfg, gateway: gw, creds: creds, message: tmpl}, nil
}

// Load fetches a page and its current version.
//
// It returns ErrNotFound when the page does not exist, ErrAuthRequired on
// 401/403, and *TransientError for anything else that is not a readable 200.
func (s *Store) Load(ctx context.Context, name string) (*Page, error) {
	name, err := NormalizeName(name)
	if err != nil {
		return nil, err
	}

	cred, _ := s.creds.Get()
	rc, err := s.fetch(ctx, "load", name, cred)
	if err != nil {
		return nil, err
	}

	text, err := decodeFile(rc)
	if err != nil {
		return nil, &TransientError{Op: "load", Page: name, Err: fmt.Errorf("failed to decode content: %w", err)}
	}

	logging.Debug("ContentStore", "Loaded page %s at version %s", name, rc.GetSHA())
	return &Page{Name: name, Content: text, Version: rc.GetSHA()}, nil
}

// Save writes a page using optimistic concurrency.
//
// The current version is looked up first. If it differs from
// req.BaseVersion the write is not attempted and ErrConflict is returned;
// a page that does not exist yet counts as "no version". The write carries
// the looked-up version, so a write that races another one is rejected by
// GitHub and also reported as ErrConflict. On success the returned page
// carries the new version assigned by GitHub.
func (s *Store) Save(ctx context.Context, req SaveRequest, cred credential.Credential) (*Page, error) {
	name, err := NormalizeName(req.Name)
	if err != nil {
		return nil, err
	}
	if cred.IsEmpty() {
		return nil, ErrAuthRequired
	}

	current, err := s.lookupVersion(ctx, name, cred)
	if err != nil {
		return nil, err
	}
	if current != req.BaseVersion {
		logging.Info("ContentStore", "Refusing to write page %s: remote version %q does not match base %q", name, current, req.BaseVersion)
		return nil, ErrConflict
	}

	message, err := s.commitMessage(name, current == "")
	if err != nil {
		return nil, err
	}

	opts := &github.RepositoryContentFileOptions{
		Message: github.Ptr(message),
	}
	if s.cfg.Branch != "" {
		opts.Branch = github.Ptr(s.cfg.Branch)
	}
	if current != "" {
		opts.SHA = github.Ptr(current)
	}

	body := putFileBody{RepositoryContentFileOptions: opts, Content: Encode(req.Content)}
	httpReq, err := gateway.NewJSONRequest(http.MethodPut, s.fileURL(name, false), body)
	if err != nil {
		return nil, &TransientError{Op: "save", Page: name, Err: err}
	}
	s.authorize(httpReq, cred)

	resp, err := s.gateway.Do(ctx, httpReq)
	if err != nil {
		return nil, &TransientError{Op: "save", Page: name, Err: err}
	}

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
	case http.StatusConflict, http.StatusUnprocessableEntity:
		logging.Info("ContentStore", "GitHub rejected write of page %s with stale version %q", name, current)
		return nil, ErrConflict
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, ErrAuthRequired
	default:
		return nil, &TransientError{Op: "save", Page: name, StatusCode: resp.StatusCode}
	}

	var result github.RepositoryContentResponse
	if err := resp.DecodeJSON(&result); err != nil {
		return nil, &TransientError{Op: "save", Page: name, StatusCode: resp.StatusCode, Err: err}
	}
	if result.Content == nil || result.Content.GetSHA() == "" {
		return nil, &TransientError{Op: "save", Page: name, StatusCode: resp.StatusCode, Err: fmt.Errorf("response carries no content sha")}
	}

	logging.Info("ContentStore", "Saved page %s, version %s -> %s", name, current, result.Content.GetSHA())
	return &Page{Name: name, Content: req.Content, Version: result.Content.GetSHA()}, nil
}

// lookupVersion returns the current sha of a page, or "" if it does not exist.
// Authorization and transient failures propagate; they never degrade into
// "does not exist".
func (s *Store) lookupVersion(ctx context.Context, name string, cred credential.Credential) (string, error) {
	rc, err := s.fetch(ctx, "lookup", name, cred)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return rc.GetSHA(), nil
}

func (s *Store) fetch(ctx context.Context, op, name string, cred credential.Credential) (*github.RepositoryContent, error) {
	req := &gateway.Request{
		Method: http.MethodGet,
		URL:    s.fileURL(name, true),
		Header: http.Header{},
	}
	s.authorize(req, cred)

	resp, err := s.gateway.Do(ctx, req)
	if err != nil {
		return nil, &TransientError{Op: op, Page: name, Err: err}
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, ErrNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, ErrAuthRequired
	default:
		return nil, &TransientError{Op: op, Page: name, StatusCode: resp.StatusCode}
	}

	var rc github.RepositoryContent
	if err := resp.DecodeJSON(&rc); err != nil {
		return nil, &TransientError{Op: op, Page: name, StatusCode: resp.StatusCode, Err: err}
	}
	if rc.GetType() != "" && rc.GetType() != "file" {
		return nil, &TransientError{Op: op, Page: name, StatusCode: resp.StatusCode, Err: fmt.Errorf("path is a %s, not a file", rc.GetType())}
	}
	return &rc, nil
}

// decodeFile returns the text of a file response.
func decodeFile(rc *github.RepositoryContent) (string, error) {
	if rc.GetEncoding() == "base64" && rc.Content != nil {
		return Decode(*rc.Content)
	}
	return rc.GetContent()
}

func (s *Store) authorize(req *gateway.Request, cred credential.Credential) {
	if req.Header == nil {
		req.Header = http.Header{}
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if !cred.IsEmpty() {
		req.Header.Set("Authorization", "token "+cred.Value())
	}
}

// Path returns the repository path of a page, e.g. "pages/about.md".
func (s *Store) Path(name string) string {
	return s.cfg.PagesDir + "/" + name + ".md"
}

func (s *Store) fileURL(name string, withRef bool) string {
	segments := strings.Split(s.Path(name), "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}

	u := fmt.Sprintf("%s/repos/%s/%s/contents/%s",
		s.cfg.BaseURL, url.PathEscape(s.cfg.Owner), url.PathEscape(s.cfg.Repo), strings.Join(segments, "/"))
	if withRef && s.cfg.Branch != "" {
		u += "?ref=" + url.QueryEscape(s.cfg.Branch)
	}
	return u
}

func (s *Store) commitMessage(name string, create bool) (string, error) {
	var buf bytes.Buffer
	err := s.message.Execute(&buf, commitMessageData{
		Page:   name,
		Path:   s.Path(name),
		Branch: s.cfg.Branch,
		Create: create,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render commit message: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}
