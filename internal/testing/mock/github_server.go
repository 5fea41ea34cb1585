package mock

import (
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

// GitHubServerConfig configures the mock GitHub server.
type GitHubServerConfig struct {
	// Owner and Repo form the only repository the server knows.
	Owner string
	Repo  string

	// ClientID is the expected OAuth client ID for the device flow.
	ClientID string

	// Tokens lists the access tokens accepted by the API. A request with
	// any other token is answered with 401.
	Tokens []string

	// PrivateReads rejects unauthenticated reads with 401, as GitHub does
	// for private repositories.
	PrivateReads bool

	// DeviceInterval and DeviceExpiresIn are returned by the device code endpoint.
	DeviceInterval  int
	DeviceExpiresIn int

	// PollResponses scripts the token endpoint; each poll consumes one
	// entry and the last entry repeats. An entry with an "access_token" key
	// also registers that token as valid.
	PollResponses []map[string]interface{}
}

// GitHubServer is a mock of the GitHub contents API and the OAuth device
// flow endpoints. Writes are checked against the current blob sha the way
// GitHub checks them.
type GitHubServer struct {
	config GitHubServerConfig
	server *httptest.Server

	mu       sync.Mutex
	files    map[string]*mockFile
	tokens   map[string]bool
	polls    int
	requests []RecordedRequest
	commits  []string
	failNext []int
}

type mockFile struct {
	content string
	sha     string
}

// RecordedRequest is one request seen by the server.
type RecordedRequest struct {
	Method        string
	Path          string
	Authorization string
	Body          []byte
}

// NewGitHubServer creates and starts a mock GitHub server.
func NewGitHubServer(config GitHubServerConfig) *GitHubServer {
	if config.Owner == "" {
		config.Owner = "octo"
	}
	if config.Repo == "" {
		config.Repo = "wiki"
	}
	if config.ClientID == "" {
		config.ClientID = "test-client"
	}
	if config.DeviceInterval == 0 {
		config.DeviceInterval = 5
	}
	if config.DeviceExpiresIn == 0 {
		config.DeviceExpiresIn = 900
	}

	s := &GitHubServer{
		config: config,
		files:  make(map[string]*mockFile),
		tokens: make(map[string]bool),
	}
	for _, token := range config.Tokens {
		s.tokens[token] = true
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/login/device/code", s.handleDeviceCode)
	mux.HandleFunc("/login/oauth/access_token", s.handleAccessToken)
	mux.HandleFunc(s.contentsPrefix(), s.handleContents)
	s.server = httptest.NewServer(mux)
	return s
}

// Close shuts the server down.
func (s *GitHubServer) Close() {
	s.server.Close()
}

// URL returns the server root, used as the API base URL.
func (s *GitHubServer) URL() string {
	return s.server.URL
}

// Client returns an HTTP client configured for the server.
func (s *GitHubServer) Client() *http.Client {
	return s.server.Client()
}

// DeviceCodeURL returns the device authorization endpoint.
func (s *GitHubServer) DeviceCodeURL() string {
	return s.server.URL + "/login/device/code"
}

// TokenURL returns the token endpoint.
func (s *GitHubServer) TokenURL() string {
	return s.server.URL + "/login/oauth/access_token"
}

// PutFile creates or replaces a file directly, as another writer would.
// It returns the new blob sha.
func (s *GitHubServer) PutFile(path, content string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	sha := blobSHA(content)
	s.files[path] = &mockFile{content: content, sha: sha}
	return sha
}

// File returns the content and sha of a file.
func (s *GitHubServer) File(path string) (content, sha string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[path]
	if !ok {
		return "", "", false
	}
	return f.content, f.sha, true
}

// AddToken registers an accepted access token.
func (s *GitHubServer) AddToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = true
}

// RevokeToken makes a token invalid.
func (s *GitHubServer) RevokeToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
}

// FailNext makes the next contents API request answer with status.
func (s *GitHubServer) FailNext(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = append(s.failNext, status)
}

// Requests returns a copy of every request received.
func (s *GitHubServer) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]RecordedRequest(nil), s.requests...)
}

// CountRequests returns how many requests matched method and path prefix.
func (s *GitHubServer) CountRequests(method, pathPrefix string) int {
	n := 0
	for _, r := range s.Requests() {
		if r.Method == method && strings.HasPrefix(r.Path, pathPrefix) {
			n++
		}
	}
	return n
}

// Commits returns the commit messages of accepted writes.
func (s *GitHubServer) Commits() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.commits...)
}

// Polls returns how many times the token endpoint was polled.
func (s *GitHubServer) Polls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.polls
}

func (s *GitHubServer) contentsPrefix() string {
	return fmt.Sprintf("/repos/%s/%s/contents/", s.config.Owner, s.config.Repo)
}

func (s *GitHubServer) record(r *http.Request) []byte {
	var body []byte
	if r.Body != nil {
		body, _ = io.ReadAll(r.Body)
	}

	s.mu.Lock()
	s.requests = append(s.requests, RecordedRequest{
		Method:        r.Method,
		Path:          r.URL.Path,
		Authorization: r.Header.Get("Authorization"),
		Body:          body,
	})
	s.mu.Unlock()
	return body
}

func (s *GitHubServer) handleDeviceCode(w http.ResponseWriter, r *http.Request) {
	body := s.record(r)
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		ClientID string `json:"client_id"`
		Scope    string `json:"scope"`
	}
	if err := json.Unmarshal(body, &req); err != nil || req.ClientID != s.config.ClientID {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "incorrect_client_credentials"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"device_code":      "mock-device-code",
		"user_code":        "WDJB-MJHT",
		"verification_uri": s.server.URL + "/login/device",
		"expires_in":       s.config.DeviceExpiresIn,
		"interval":         s.config.DeviceInterval,
	})
}

func (s *GitHubServer) handleAccessToken(w http.ResponseWriter, r *http.Request) {
	body := s.record(r)

	var req struct {
		ClientID   string `json:"client_id"`
		DeviceCode string `json:"device_code"`
		GrantType  string `json:"grant_type"`
	}
	if err := json.Unmarshal(body, &req); err != nil || req.DeviceCode != "mock-device-code" {
		writeJSON(w, http.StatusOK, map[string]string{"error": "incorrect_device_code"})
		return
	}

	s.mu.Lock()
	s.polls++
	var resp map[string]interface{}
	if len(s.config.PollResponses) == 0 {
		resp = map[string]interface{}{"error": "authorization_pending"}
	} else {
		idx := s.polls - 1
		if idx >= len(s.config.PollResponses) {
			idx = len(s.config.PollResponses) - 1
		}
		resp = s.config.PollResponses[idx]
	}
	if token, ok := resp["access_token"].(string); ok {
		s.tokens[token] = true
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

func (s *GitHubServer) handleContents(w http.ResponseWriter, r *http.Request) {
	body := s.record(r)
	path := strings.TrimPrefix(r.URL.Path, s.contentsPrefix())

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.failNext) > 0 {
		status := s.failNext[0]
		s.failNext = s.failNext[1:]
		writeJSON(w, status, map[string]string{"message": http.StatusText(status)})
		return
	}

	authorized := s.authorizedLocked(r.Header.Get("Authorization"))
	if r.Header.Get("Authorization") != "" && !authorized {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Bad credentials"})
		return
	}

	switch r.Method {
	case http.MethodGet:
		if s.config.PrivateReads && !authorized {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Requires authentication"})
			return
		}
		f, ok := s.files[path]
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"type":     "file",
			"encoding": "base64",
			"path":     path,
			"name":     path[strings.LastIndex(path, "/")+1:],
			"sha":      f.sha,
			"content":  wrapBase64(base64.StdEncoding.EncodeToString([]byte(f.content))),
		})

	case http.MethodPut:
		if !authorized {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Requires authentication"})
			return
		}
		var req struct {
			Message string `json:"message"`
			Content string `json:"content"`
			Branch  string `json:"branch"`
			SHA     string `json:"sha"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Problems parsing JSON"})
			return
		}
		decoded, err := base64.StdEncoding.DecodeString(req.Content)
		if err != nil {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": "content is not valid Base64"})
			return
		}

		existing, exists := s.files[path]
		switch {
		case exists && req.SHA == "":
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": `Invalid request. "sha" wasn't supplied.`})
			return
		case exists && req.SHA != existing.sha:
			writeJSON(w, http.StatusConflict, map[string]string{"message": fmt.Sprintf("%s does not match %s", path, req.SHA)})
			return
		case !exists && req.SHA != "":
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": "sha does not match any file"})
			return
		}

		sha := blobSHA(string(decoded))
		s.files[path] = &mockFile{content: string(decoded), sha: sha}
		s.commits = append(s.commits, req.Message)

		status := http.StatusOK
		if !exists {
			status = http.StatusCreated
		}
		writeJSON(w, status, map[string]interface{}{
			"content": map[string]interface{}{"type": "file", "path": path, "sha": sha},
			"commit":  map[string]interface{}{"message": req.Message},
		})

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *GitHubServer) authorizedLocked(header string) bool {
	token := strings.TrimPrefix(header, "token ")
	if token == header || token == "" {
		return false
	}
	return s.tokens[token]
}

// blobSHA computes the git blob id of content, as GitHub reports it.
func blobSHA(content string) string {
	h := sha1.New()
	fmt.Fprintf(h, "blob %d\x00", len(content))
	h.Write([]byte(content))
	return hex.EncodeToString(h.Sum(nil))
}

// wrapBase64 inserts a newline every 60 characters the way GitHub does.
func wrapBase64(s string) string {
	var b strings.Builder
	for len(s) > 60 {
		b.WriteString(s[:60])
		b.WriteByte('\n')
		s = s[60:]
	}
	b.WriteString(s)
	b.WriteByte('\n')
	return b.String()
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
