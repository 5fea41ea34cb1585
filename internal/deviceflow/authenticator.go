package deviceflow

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"pagecms/internal/clock"
	"pagecms/internal/credential"
	"pagecms/internal/gateway"
	"pagecms/pkg/logging"
)

// Authenticator drives the OAuth device authorization grant.
//
// Start requests a device code and launches a poll loop; Wait blocks until
// the flow ends; Cancel abandons it. A successful flow stores the
// credential in the credential store before Wait returns.
type Authenticator struct {
	cfg      Config
	gateway  gateway.Gateway
	store    credential.Store
	clock    clock.Clock
	observer func(Snapshot)

	mu    sync.Mutex
	phase Phase
	// starting is set while Start waits for the device code;
	// startCancelled records a Cancel that arrived in that window.
	starting       bool
	startCancelled bool
	current        *flow
	lastErr        error
}

// flow is the private state of one Start call.
type flow struct {
	session    Session
	deviceCode string
	cancel     context.CancelFunc
	timer      clock.Timer
	done       chan struct{}
	finished   bool
	cred       credential.Credential
	err        error
}

// Option configures an Authenticator.
type Option func(*Authenticator)

// WithClock sets the clock used for poll timers and expiry.
func WithClock(c clock.Clock) Option {
	return func(a *Authenticator) {
		a.clock = c
	}
}

// WithStateObserver registers a callback invoked after every state change.
// The callback runs on the goroutine that caused the change and must not
// call back into the Authenticator.
func WithStateObserver(fn func(Snapshot)) Option {
	return func(a *Authenticator) {
		a.observer = fn
	}
}

// New creates an Authenticator.
func New(cfg Config, gw gateway.Gateway, store credential.Store, opts ...Option) *Authenticator {
	a := &Authenticator{
		cfg:     cfg.withDefaults(),
		gateway: gw,
		store:   store,
		clock:   clock.Real{},
		phase:   PhaseIdle,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Start requests a device code and begins polling for the token.
// It returns a copy of the new session for display to the user.
func (a *Authenticator) Start(ctx context.Context) (*Session, error) {
	if a.cfg.ClientID == "" {
		return nil, &ConfigurationError{Field: "client_id", Message: "an OAuth client ID is required to start the device flow"}
	}

	a.mu.Lock()
	if a.starting || a.phase == PhaseAwaitingUserAction {
		a.mu.Unlock()
		return nil, ErrFlowInProgress
	}
	a.starting = true
	a.startCancelled = false
	a.mu.Unlock()

	resp, err := a.requestDeviceCode(ctx)

	a.mu.Lock()
	a.starting = false
	if a.startCancelled {
		a.startCancelled = false
		a.phase = PhaseIdle
		a.lastErr = nil
		a.mu.Unlock()
		logging.Info("DeviceFlow", "Device flow cancelled before the device code arrived")
		return nil, ErrCancelled
	}
	if err != nil {
		a.phase = PhaseFailed
		a.lastErr = err
		snap := a.snapshotLocked()
		a.mu.Unlock()
		a.notify(snap)
		return nil, err
	}

	interval := time.Duration(resp.Interval) * time.Second
	if interval <= 0 {
		interval = DefaultInterval
	}
	expiresIn := time.Duration(resp.ExpiresIn) * time.Second
	if expiresIn <= 0 {
		expiresIn = DefaultExpiresIn
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	f := &flow{
		session: Session{
			ID:              uuid.NewString(),
			UserCode:        resp.UserCode,
			VerificationURI: resp.VerificationURI,
			Interval:        interval,
			ExpiresAt:       a.clock.Now().Add(expiresIn),
		},
		deviceCode: resp.DeviceCode,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	a.current = f
	a.phase = PhaseAwaitingUserAction
	a.lastErr = nil
	session := f.session
	snap := a.snapshotLocked()
	a.mu.Unlock()

	logging.Info("DeviceFlow", "Device flow %s started, expires at %s",
		logging.TruncateSessionID(session.ID), session.ExpiresAt.Format(time.RFC3339))
	a.notify(snap)

	go a.pollLoop(loopCtx, f)

	return &session, nil
}

// Wait blocks until the current flow reaches a terminal state or ctx ends.
func (a *Authenticator) Wait(ctx context.Context) (credential.Credential, error) {
	a.mu.Lock()
	f := a.current
	a.mu.Unlock()

	if f == nil {
		return credential.Credential{}, ErrNoFlow
	}

	select {
	case <-f.done:
		return f.cred, f.err
	case <-ctx.Done():
		return credential.Credential{}, ctx.Err()
	}
}

// Cancel stops polling, releases the poll timer and discards the session.
// The stored credential is not touched.
func (a *Authenticator) Cancel() {
	a.mu.Lock()
	if a.starting {
		a.startCancelled = true
	}
	f := a.current
	wasPending := f != nil && !f.finished
	if wasPending {
		a.finishLocked(f, credential.Credential{}, ErrCancelled)
	}
	a.phase = PhaseIdle
	a.lastErr = nil
	snap := a.snapshotLocked()
	a.mu.Unlock()

	if wasPending {
		logging.Info("DeviceFlow", "Device flow %s cancelled", logging.TruncateSessionID(f.session.ID))
		logging.Audit(logging.AuditEvent{
			Action:    "device_flow",
			Outcome:   "cancelled",
			SessionID: logging.TruncateSessionID(f.session.ID),
		})
	}
	a.notify(snap)
	if wasPending {
		close(f.done)
	}
}

// State returns a snapshot of the current state.
func (a *Authenticator) State() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshotLocked()
}

func (a *Authenticator) snapshotLocked() Snapshot {
	snap := Snapshot{Phase: a.phase, Err: a.lastErr}
	if a.phase == PhaseAwaitingUserAction && a.current != nil {
		session := a.current.session
		snap.Session = &session
	}
	return snap
}

func (a *Authenticator) notify(snap Snapshot) {
	if a.observer != nil {
		a.observer(snap)
	}
}

// pollLoop waits one interval per tick, checks expiry, then polls the token
// endpoint. It exits as soon as the flow is finished by any path.
func (a *Authenticator) pollLoop(ctx context.Context, f *flow) {
	for {
		a.mu.Lock()
		if f.finished {
			a.mu.Unlock()
			return
		}
		interval := f.session.Interval
		timer := a.clock.NewTimer(interval)
		f.timer = timer
		a.mu.Unlock()

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C():
		}

		a.mu.Lock()
		f.timer = nil
		if f.finished {
			a.mu.Unlock()
			return
		}
		if !a.clock.Now().Before(f.session.ExpiresAt) {
			a.failLocked(f, &FlowError{Reason: ReasonExpired})
			return
		}
		deviceCode := f.deviceCode
		a.mu.Unlock()

		// The poll itself is not interrupted by Cancel; its result is
		// discarded below if the flow finished meanwhile.
		resp, err := a.pollToken(context.WithoutCancel(ctx), deviceCode)

		a.mu.Lock()
		if f.finished {
			a.mu.Unlock()
			return
		}
		if err != nil {
			a.failLocked(f, err)
			return
		}

		switch {
		case resp.AccessToken != "":
			a.succeedLocked(f, resp)
			return
		case resp.Error == errAuthorizationPending:
			f.session.LastError = resp.Error
		case resp.Error == errSlowDown:
			f.session.LastError = resp.Error
			f.session.Interval = slowDownInterval(f.session.Interval, time.Duration(resp.Interval)*time.Second)
			logging.Debug("DeviceFlow", "Server asked to slow down, interval now %s", f.session.Interval)
		case resp.Error == errExpiredToken:
			a.failLocked(f, &FlowError{Reason: ReasonExpired, Description: resp.ErrorDescription})
			return
		case resp.Error == errAccessDenied:
			a.failLocked(f, &FlowError{Reason: ReasonAccessDenied, Description: resp.ErrorDescription})
			return
		default:
			a.failLocked(f, &FlowError{Reason: resp.Error, Description: resp.ErrorDescription})
			return
		}
		snap := a.snapshotLocked()
		a.mu.Unlock()
		a.notify(snap)
	}
}

// slowDownInterval returns the interval after a slow_down response: at
// least double the current one, or the server's value if that is larger.
func slowDownInterval(current, fromServer time.Duration) time.Duration {
	next := current * 2
	if fromServer > next {
		next = fromServer
	}
	return next
}

// succeedLocked stores the credential and ends the flow. It releases a.mu.
func (a *Authenticator) succeedLocked(f *flow, resp *tokenResponse) {
	cred := credential.FromToken(resp.token())
	if err := a.store.Set(cred); err != nil {
		a.failLocked(f, &FlowError{Reason: "credential_store_failed", Err: err})
		return
	}

	a.finishLocked(f, cred, nil)
	a.phase = PhaseAuthenticated
	a.lastErr = nil
	snap := a.snapshotLocked()
	a.mu.Unlock()

	logging.Info("DeviceFlow", "Device flow %s completed", logging.TruncateSessionID(f.session.ID))
	logging.Audit(logging.AuditEvent{
		Action:    "device_flow",
		Outcome:   "success",
		SessionID: logging.TruncateSessionID(f.session.ID),
	})
	a.notify(snap)
	close(f.done)
}

// failLocked ends the flow with err. It releases a.mu.
func (a *Authenticator) failLocked(f *flow, err error) {
	a.finishLocked(f, credential.Credential{}, err)
	a.phase = PhaseFailed
	a.lastErr = err
	snap := a.snapshotLocked()
	a.mu.Unlock()

	logging.Warn("DeviceFlow", "Device flow %s failed: %v", logging.TruncateSessionID(f.session.ID), err)
	logging.Audit(logging.AuditEvent{
		Action:    "device_flow",
		Outcome:   "failure",
		SessionID: logging.TruncateSessionID(f.session.ID),
		Error:     err.Error(),
	})
	a.notify(snap)
	close(f.done)
}

// finishLocked marks f terminal and releases its timer and loop context.
// Caller holds a.mu and closes f.done once observers have been notified.
func (a *Authenticator) finishLocked(f *flow, cred credential.Credential, err error) {
	if f.finished {
		return
	}
	f.finished = true
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
	f.cancel()
	f.deviceCode = ""
	f.cred = cred
	f.err = err
}

func (a *Authenticator) requestDeviceCode(ctx context.Context) (*deviceCodeResponse, error) {
	req, err := gateway.NewJSONRequest(http.MethodPost, a.cfg.Endpoint.DeviceAuthURL, map[string]string{
		"client_id": a.cfg.ClientID,
		"scope":     a.cfg.Scope,
	})
	if err != nil {
		return nil, &FlowError{Reason: ReasonDeviceCodeError, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.gateway.Do(ctx, req)
	if err != nil {
		return nil, &FlowError{Reason: ReasonNetwork, Err: err}
	}
	if !resp.IsSuccess() {
		return nil, &FlowError{Reason: ReasonDeviceCodeError, Err: fmt.Errorf("device code request failed with status %d", resp.StatusCode)}
	}

	var dc deviceCodeResponse
	if err := resp.DecodeJSON(&dc); err != nil {
		return nil, &FlowError{Reason: ReasonProtocol, Err: err}
	}
	if dc.DeviceCode == "" || dc.UserCode == "" || dc.VerificationURI == "" {
		return nil, &FlowError{Reason: ReasonProtocol, Err: fmt.Errorf("device code response is missing required fields")}
	}
	return &dc, nil
}

func (a *Authenticator) pollToken(ctx context.Context, deviceCode string) (*tokenResponse, error) {
	req, err := gateway.NewJSONRequest(http.MethodPost, a.cfg.Endpoint.TokenURL, map[string]string{
		"client_id":   a.cfg.ClientID,
		"device_code": deviceCode,
		"grant_type":  GrantType,
	})
	if err != nil {
		return nil, &FlowError{Reason: ReasonProtocol, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.gateway.Do(ctx, req)
	if err != nil {
		return nil, &FlowError{Reason: ReasonNetwork, Err: err}
	}

	// RFC 8628 servers answer pending polls with 400 and an error body;
	// GitHub answers with 200. Both carry the same JSON shape.
	var tr tokenResponse
	if err := resp.DecodeJSON(&tr); err != nil {
		return nil, &FlowError{Reason: ReasonProtocol, Err: fmt.Errorf("status %d: %w", resp.StatusCode, err)}
	}
	if tr.AccessToken == "" && tr.Error == "" {
		return nil, &FlowError{Reason: ReasonProtocol, Err: fmt.Errorf("token response with status %d has neither access_token nor error", resp.StatusCode)}
	}
	return &tr, nil
}
