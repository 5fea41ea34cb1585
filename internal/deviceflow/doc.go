// Package deviceflow obtains a GitHub bearer credential through the OAuth
// device authorization grant (RFC 8628) without any server-side secret.
//
// # State machine
//
//	Idle ──Start──▶ AwaitingUserAction ──token──▶ Authenticated
//	                  │   ▲
//	                  │   └── authorization_pending / slow_down
//	                  ├── access_denied / expired_token / other ──▶ Failed
//	                  ├── clock passes expires_at ──▶ Failed(expired)
//	                  └── Cancel ──▶ Idle
//
// Each tick waits exactly the current interval on a timer from the injected
// clock, checks expiry, and only then polls the token endpoint. A slow_down
// response at least doubles the interval; the interval never decreases.
//
// Cancel releases the pending timer immediately. A poll already in flight
// is allowed to finish but its result is discarded. Every terminal path
// (success, failure, expiry, cancel) releases the timer and the loop
// goroutine.
//
// # Usage
//
//	auth := deviceflow.New(deviceflow.Config{ClientID: id}, gw, store)
//	session, err := auth.Start(ctx)
//	if err != nil {
//	    return err
//	}
//	fmt.Printf("Open %s and enter %s\n", session.VerificationURI, session.UserCode)
//	cred, err := auth.Wait(ctx)
package deviceflow
