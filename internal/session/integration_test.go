package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"pagecms/internal/content"
	"pagecms/internal/credential"
	"pagecms/internal/deviceflow"
	"pagecms/internal/gateway"
	"pagecms/internal/session"
	"pagecms/internal/testing/mock"
)

// runClock advances clk by every timer duration the code under test asks
// for, until the test ends.
func runClock(t *testing.T, clk *mock.MockClock) {
	t.Helper()
	done := make(chan struct{})
	t.Cleanup(func() { close(done) })

	go func() {
		for {
			select {
			case d := <-clk.Timers():
				clk.Advance(d)
			case <-done:
				return
			}
		}
	}()
}

func TestPrivatePageThroughDeviceFlowAndEdit(t *testing.T) {
	srv := mock.NewGitHubServer(mock.GitHubServerConfig{
		PrivateReads: true,
		PollResponses: []map[string]interface{}{
			{"error": "authorization_pending"},
			{"error": "authorization_pending"},
			{"access_token": "gho_fresh", "token_type": "bearer", "scope": "repo"},
		},
	})
	defer srv.Close()
	srv.PutFile("pages/index.md", "# Home")

	clk := mock.NewMockClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	runClock(t, clk)

	gw := gateway.New(gateway.WithHTTPClient(srv.Client()))
	creds := credential.NewMemoryStore()

	store, err := content.New(content.Config{BaseURL: srv.URL(), Owner: "octo", Repo: "wiki"}, gw, creds)
	require.NoError(t, err)

	auth := deviceflow.New(deviceflow.Config{
		ClientID: "test-client",
		Endpoint: oauth2.Endpoint{DeviceAuthURL: srv.DeviceCodeURL(), TokenURL: srv.TokenURL()},
	}, gw, creds, deviceflow.WithClock(clk))

	var prompts []session.View
	ctrl := session.New(store, auth, creds, session.WithViewObserver(func(v session.View) {
		if v.Mode == session.ModeAuthPrompt {
			prompts = append(prompts, v)
		}
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	view, err := ctrl.OpenPage(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, session.ModeViewing, view.Mode)
	assert.Equal(t, "# Home", view.Content)
	assert.Equal(t, 3, srv.Polls())
	require.Len(t, prompts, 1)
	assert.Equal(t, "WDJB-MJHT", prompts[0].UserCode)

	stored, ok := creds.Get()
	require.True(t, ok)
	assert.Equal(t, "gho_fresh", stored.Value())
	assert.Equal(t, session.Authenticated, ctrl.AuthState())

	view, err = ctrl.CommitEdit(ctx, "# Home\n\nEdited")
	require.NoError(t, err)
	text, sha, _ := srv.File("pages/index.md")
	assert.Equal(t, "# Home\n\nEdited", text)
	assert.Equal(t, sha, view.Version)

	// Another writer changes the page; the next save must not overwrite it.
	srv.PutFile("pages/index.md", "# Home\n\nTheirs")
	_, err = ctrl.CommitEdit(ctx, "# Home\n\nMine")
	assert.ErrorIs(t, err, content.ErrConflict)
	text, _, _ = srv.File("pages/index.md")
	assert.Equal(t, "# Home\n\nTheirs", text)

	require.NoError(t, ctrl.Logout())
	assert.Equal(t, session.Unauthenticated, ctrl.AuthState())
}
