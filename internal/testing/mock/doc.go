// Package mock provides test doubles for pagecms components.
//
// GitHubServer is an httptest-based fake of the two GitHub surfaces the
// editor talks to: the repository contents API (GET and PUT on
// /repos/{owner}/{repo}/contents/{path}) and the OAuth device flow
// endpoints. Writes are checked against the git blob sha of the current
// file, so stale writes get the same 409/422 answers GitHub gives.
//
//	srv := mock.NewGitHubServer(mock.GitHubServerConfig{
//		Tokens: []string{"gho_valid"},
//		PollResponses: []map[string]interface{}{
//			{"error": "authorization_pending"},
//			{"access_token": "gho_new", "token_type": "bearer", "scope": "repo"},
//		},
//	})
//	defer srv.Close()
//
// MockClock replaces the wall clock in the device flow poll loop. Timers
// only fire when the test advances the clock, and every created timer
// reports its duration on Timers() so tests can synchronize with the loop.
package mock
