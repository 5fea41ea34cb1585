package content_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagecms/internal/content"
	"pagecms/internal/credential"
	"pagecms/internal/gateway"
	"pagecms/internal/testing/mock"
)

const validToken = "gho_valid"

type storeHarness struct {
	srv   *mock.GitHubServer
	creds *credential.MemoryStore
	store *content.Store
}

func newStoreHarness(t *testing.T, cfg mock.GitHubServerConfig, storeCfg content.Config) *storeHarness {
	t.Helper()

	if cfg.Tokens == nil {
		cfg.Tokens = []string{validToken}
	}
	srv := mock.NewGitHubServer(cfg)
	t.Cleanup(srv.Close)

	storeCfg.BaseURL = srv.URL()
	if storeCfg.Owner == "" {
		storeCfg.Owner = "octo"
	}
	if storeCfg.Repo == "" {
		storeCfg.Repo = "wiki"
	}

	creds := credential.NewMemoryStore()
	store, err := content.New(storeCfg, gateway.New(gateway.WithHTTPClient(srv.Client())), creds)
	require.NoError(t, err)

	return &storeHarness{srv: srv, creds: creds, store: store}
}

func TestNewRequiresRepository(t *testing.T) {
	_, err := content.New(content.Config{Owner: "octo"}, gateway.New(), credential.NewMemoryStore())
	assert.Error(t, err)
}

func TestNewRejectsInvalidCommitTemplate(t *testing.T) {
	_, err := content.New(content.Config{Owner: "octo", Repo: "wiki", CommitMessage: "{{ .Page "}, gateway.New(), credential.NewMemoryStore())
	assert.Error(t, err)
}

func TestStorePath(t *testing.T) {
	h := newStoreHarness(t, mock.GitHubServerConfig{}, content.Config{PagesDir: "/docs/"})
	assert.Equal(t, "docs/about.md", h.store.Path("about"))
}

func TestLoad(t *testing.T) {
	h := newStoreHarness(t, mock.GitHubServerConfig{}, content.Config{})
	sha := h.srv.PutFile("pages/about.md", "# About\n\nÜber uns 🚀")

	page, err := h.store.Load(context.Background(), "about.md")
	require.NoError(t, err)
	assert.Equal(t, "about", page.Name)
	assert.Equal(t, "# About\n\nÜber uns 🚀", page.Content)
	assert.Equal(t, sha, page.Version)
}

func TestLoadDefaultPage(t *testing.T) {
	h := newStoreHarness(t, mock.GitHubServerConfig{}, content.Config{})
	h.srv.PutFile("pages/index.md", "home")

	page, err := h.store.Load(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "index", page.Name)
	assert.Equal(t, "home", page.Content)
}

func TestLoadOutcomes(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, h *storeHarness)
		cfg   mock.GitHubServerConfig
		want  content.Outcome
	}{
		{
			name: "missing page",
			want: content.OutcomeNotFound,
		},
		{
			name: "private repository without credential",
			cfg:  mock.GitHubServerConfig{PrivateReads: true},
			setup: func(t *testing.T, h *storeHarness) {
				h.srv.PutFile("pages/about.md", "secret")
			},
			want: content.OutcomeAuthRequired,
		},
		{
			name: "revoked credential",
			setup: func(t *testing.T, h *storeHarness) {
				h.srv.PutFile("pages/about.md", "x")
				require.NoError(t, h.creds.Set(credential.New("gho_revoked")))
			},
			want: content.OutcomeAuthRequired,
		},
		{
			name: "server error",
			setup: func(t *testing.T, h *storeHarness) {
				h.srv.FailNext(http.StatusInternalServerError)
			},
			want: content.OutcomeTransient,
		},
		{
			name: "rate limited",
			setup: func(t *testing.T, h *storeHarness) {
				h.srv.FailNext(http.StatusTooManyRequests)
			},
			want: content.OutcomeTransient,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newStoreHarness(t, tt.cfg, content.Config{})
			if tt.setup != nil {
				tt.setup(t, h)
			}

			page, err := h.store.Load(context.Background(), "about")
			assert.Nil(t, page)
			assert.Equal(t, tt.want, content.OutcomeOf(err))
		})
	}
}

func TestLoadPrivateRepositoryWithCredential(t *testing.T) {
	h := newStoreHarness(t, mock.GitHubServerConfig{PrivateReads: true}, content.Config{})
	h.srv.PutFile("pages/about.md", "secret")
	require.NoError(t, h.creds.Set(credential.New(validToken)))

	page, err := h.store.Load(context.Background(), "about")
	require.NoError(t, err)
	assert.Equal(t, "secret", page.Content)

	requests := h.srv.Requests()
	require.Len(t, requests, 1)
	assert.Equal(t, "token "+validToken, requests[0].Authorization)
}

func TestLoadNetworkError(t *testing.T) {
	h := newStoreHarness(t, mock.GitHubServerConfig{}, content.Config{})
	h.srv.Close()

	_, err := h.store.Load(context.Background(), "about")
	require.Error(t, err)

	var transient *content.TransientError
	require.True(t, errors.As(err, &transient))
	assert.Equal(t, 0, transient.StatusCode)

	var netErr *gateway.NetworkError
	assert.True(t, errors.As(err, &netErr))
}

func TestSaveRequiresCredential(t *testing.T) {
	h := newStoreHarness(t, mock.GitHubServerConfig{}, content.Config{})

	_, err := h.store.Save(context.Background(), content.SaveRequest{Name: "about", Content: "x"}, credential.Credential{})
	assert.ErrorIs(t, err, content.ErrAuthRequired)
	assert.Empty(t, h.srv.Requests())
}

func TestSaveCreatesMissingPage(t *testing.T) {
	h := newStoreHarness(t, mock.GitHubServerConfig{}, content.Config{})

	page, err := h.store.Save(context.Background(), content.SaveRequest{Name: "new", Content: "# New"}, credential.New(validToken))
	require.NoError(t, err)

	text, sha, ok := h.srv.File("pages/new.md")
	require.True(t, ok)
	assert.Equal(t, "# New", text)
	assert.Equal(t, sha, page.Version)
	assert.Equal(t, []string{"Add/Update new.md"}, h.srv.Commits())
}

func TestSaveLoadSaveSequence(t *testing.T) {
	h := newStoreHarness(t, mock.GitHubServerConfig{}, content.Config{})
	h.srv.PutFile("pages/about.md", "v1")
	cred := credential.New(validToken)
	ctx := context.Background()

	first, err := h.store.Load(ctx, "about")
	require.NoError(t, err)

	saved, err := h.store.Save(ctx, content.SaveRequest{Name: "about", Content: "v2", BaseVersion: first.Version}, cred)
	require.NoError(t, err)
	assert.NotEqual(t, first.Version, saved.Version)

	second, err := h.store.Load(ctx, "about")
	require.NoError(t, err)
	assert.Equal(t, "v2", second.Content)
	assert.Equal(t, saved.Version, second.Version)

	_, err = h.store.Save(ctx, content.SaveRequest{Name: "about", Content: "v3", BaseVersion: second.Version}, cred)
	require.NoError(t, err)

	text, _, _ := h.srv.File("pages/about.md")
	assert.Equal(t, "v3", text)
	assert.Len(t, h.srv.Commits(), 2)
}

func TestSaveLoadRoundTripsMultiByteContent(t *testing.T) {
	h := newStoreHarness(t, mock.GitHubServerConfig{}, content.Config{})
	ctx := context.Background()
	text := "Grüße, 世界 🙂\n\x00bin"

	saved, err := h.store.Save(ctx, content.SaveRequest{Name: "intl", Content: text}, credential.New(validToken))
	require.NoError(t, err)

	var put []byte
	for _, r := range h.srv.Requests() {
		if r.Method == http.MethodPut {
			put = r.Body
		}
	}
	require.NotNil(t, put)
	var body struct {
		Content string `json:"content"`
	}
	require.NoError(t, json.Unmarshal(put, &body))
	assert.Equal(t, content.Encode(text), body.Content)

	page, err := h.store.Load(ctx, "intl")
	require.NoError(t, err)
	assert.Equal(t, text, page.Content)
	assert.Equal(t, saved.Version, page.Version)
}

func TestSaveStaleVersionConflicts(t *testing.T) {
	h := newStoreHarness(t, mock.GitHubServerConfig{}, content.Config{})
	h.srv.PutFile("pages/about.md", "original")
	ctx := context.Background()

	page, err := h.store.Load(ctx, "about")
	require.NoError(t, err)

	h.srv.PutFile("pages/about.md", "edited elsewhere")

	_, err = h.store.Save(ctx, content.SaveRequest{Name: "about", Content: "mine", BaseVersion: page.Version}, credential.New(validToken))
	assert.ErrorIs(t, err, content.ErrConflict)

	text, _, _ := h.srv.File("pages/about.md")
	assert.Equal(t, "edited elsewhere", text)
	assert.Zero(t, h.srv.CountRequests(http.MethodPut, "/repos/"))
}

func TestSaveConflictsWhenPageCreatedMeanwhile(t *testing.T) {
	h := newStoreHarness(t, mock.GitHubServerConfig{}, content.Config{})
	ctx := context.Background()

	_, err := h.store.Load(ctx, "new")
	require.ErrorIs(t, err, content.ErrNotFound)

	h.srv.PutFile("pages/new.md", "someone else")

	_, err = h.store.Save(ctx, content.SaveRequest{Name: "new", Content: "mine"}, credential.New(validToken))
	assert.ErrorIs(t, err, content.ErrConflict)

	text, _, _ := h.srv.File("pages/new.md")
	assert.Equal(t, "someone else", text)
}

func TestSaveConflictsWhenPageVanished(t *testing.T) {
	h := newStoreHarness(t, mock.GitHubServerConfig{}, content.Config{})

	_, err := h.store.Save(context.Background(), content.SaveRequest{Name: "gone", Content: "x", BaseVersion: "deadbeef"}, credential.New(validToken))
	assert.ErrorIs(t, err, content.ErrConflict)
	_, _, ok := h.srv.File("pages/gone.md")
	assert.False(t, ok)
}

// racingGateway lets another writer update the file between the version
// lookup and the write.
type racingGateway struct {
	gateway.Gateway
	beforePut func()
}

func (g *racingGateway) Do(ctx context.Context, req *gateway.Request) (*gateway.Response, error) {
	if req.Method == http.MethodPut && g.beforePut != nil {
		g.beforePut()
	}
	return g.Gateway.Do(ctx, req)
}

func TestSaveRacingWriteIsRejectedByRemote(t *testing.T) {
	srv := mock.NewGitHubServer(mock.GitHubServerConfig{Tokens: []string{validToken}})
	defer srv.Close()
	base := srv.PutFile("pages/about.md", "original")

	gw := &racingGateway{
		Gateway: gateway.New(gateway.WithHTTPClient(srv.Client())),
		beforePut: func() {
			srv.PutFile("pages/about.md", "raced")
		},
	}
	store, err := content.New(content.Config{BaseURL: srv.URL(), Owner: "octo", Repo: "wiki"}, gw, credential.NewMemoryStore())
	require.NoError(t, err)

	_, err = store.Save(context.Background(), content.SaveRequest{Name: "about", Content: "mine", BaseVersion: base}, credential.New(validToken))
	assert.ErrorIs(t, err, content.ErrConflict)

	text, _, _ := srv.File("pages/about.md")
	assert.Equal(t, "raced", text)
}

func TestSaveLookupFailuresPropagate(t *testing.T) {
	t.Run("rejected credential", func(t *testing.T) {
		h := newStoreHarness(t, mock.GitHubServerConfig{}, content.Config{})

		_, err := h.store.Save(context.Background(), content.SaveRequest{Name: "about", Content: "x"}, credential.New("gho_revoked"))
		assert.ErrorIs(t, err, content.ErrAuthRequired)
		assert.Zero(t, h.srv.CountRequests(http.MethodPut, "/repos/"))
	})

	t.Run("server error", func(t *testing.T) {
		h := newStoreHarness(t, mock.GitHubServerConfig{}, content.Config{})
		h.srv.FailNext(http.StatusBadGateway)

		_, err := h.store.Save(context.Background(), content.SaveRequest{Name: "about", Content: "x"}, credential.New(validToken))
		assert.Equal(t, content.OutcomeTransient, content.OutcomeOf(err))
		_, _, ok := h.srv.File("pages/about.md")
		assert.False(t, ok)
	})
}

func TestSaveCustomCommitMessageAndBranch(t *testing.T) {
	h := newStoreHarness(t, mock.GitHubServerConfig{}, content.Config{
		Branch:        "drafts",
		CommitMessage: `docs: {{ .Page | upper }}{{ if .Create }} (new){{ end }} on {{ .Branch }}`,
	})

	_, err := h.store.Save(context.Background(), content.SaveRequest{Name: "guide", Content: "x"}, credential.New(validToken))
	require.NoError(t, err)
	assert.Equal(t, []string{"docs: GUIDE (new) on drafts"}, h.srv.Commits())
}
