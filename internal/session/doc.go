// Package session coordinates page loads, saves and authentication for a
// presentation layer.
//
// The Controller holds the current page and the version it was read at.
// Operations that the content store rejects with ErrAuthRequired run the
// device flow and are repeated exactly once; conflicts and transient
// failures are reported and never retried. Saves are serialized per page.
//
// Every state change is published as a View:
//
//	ctrl := session.New(store, auth, creds, session.WithViewObserver(func(v session.View) {
//		if v.Mode == session.ModeAuthPrompt {
//			fmt.Printf("Open %s and enter %s\n", v.VerificationURI, v.UserCode)
//		}
//	}))
//	view, err := ctrl.OpenPage(ctx, "about")
package session
