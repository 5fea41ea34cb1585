package deviceflow

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

const (
	// DefaultScope grants read/write access to repository contents.
	DefaultScope = "repo"

	// DefaultInterval is used when the authorization server omits one.
	DefaultInterval = 5 * time.Second

	// DefaultExpiresIn is used when the authorization server omits expires_in.
	DefaultExpiresIn = 15 * time.Minute

	// GrantType is the device code grant identifier sent when polling.
	GrantType = "urn:ietf:params:oauth:grant-type:device_code"
)

// Failure reasons carried by FlowError.
const (
	ReasonExpired         = "expired"
	ReasonAccessDenied    = "access_denied"
	ReasonNetwork         = "network_error"
	ReasonProtocol        = "protocol_error"
	ReasonDeviceCodeError = "device_code_request_failed"
)

// Token endpoint error codes.
const (
	errAuthorizationPending = "authorization_pending"
	errSlowDown             = "slow_down"
	errExpiredToken         = "expired_token"
	errAccessDenied         = "access_denied"
)

var (
	// ErrCancelled is returned by Wait when the flow was cancelled, and by
	// Start when Cancel arrives before the device code.
	ErrCancelled = errors.New("device flow cancelled")

	// ErrFlowInProgress is returned by Start while another session is pending.
	ErrFlowInProgress = errors.New("device flow already in progress")

	// ErrNoFlow is returned by Wait when no flow has been started.
	ErrNoFlow = errors.New("no device flow started")
)

// Phase is the state of the authenticator.
type Phase int

const (
	// PhaseIdle means no flow is running.
	PhaseIdle Phase = iota

	// PhaseAwaitingUserAction means the user must enter the code at the
	// verification URI while the authenticator polls.
	PhaseAwaitingUserAction

	// PhaseAuthenticated means the last flow produced a credential.
	PhaseAuthenticated

	// PhaseFailed means the last flow ended without a credential.
	PhaseFailed
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseAwaitingUserAction:
		return "awaiting_user_action"
	case PhaseAuthenticated:
		return "authenticated"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Session is the user-facing part of one authentication attempt.
// The device code itself never leaves the authenticator.
type Session struct {
	// ID correlates log lines of one attempt.
	ID string
	// UserCode is the code the user types at VerificationURI.
	UserCode string
	// VerificationURI is where the user completes authorization.
	VerificationURI string
	// Interval is the current poll cadence. It never decreases.
	Interval time.Duration
	// ExpiresAt is when the device code stops being valid.
	ExpiresAt time.Time
	// LastError is the most recent non-terminal error code, e.g. "slow_down".
	LastError string
}

// Snapshot is a consistent view of the authenticator state.
type Snapshot struct {
	Phase   Phase
	Session *Session
	Err     error
}

// Config configures the authenticator.
type Config struct {
	// ClientID is the OAuth App client identifier. Required.
	ClientID string
	// Scope is the requested scope. Defaults to DefaultScope.
	Scope string
	// Endpoint holds DeviceAuthURL and TokenURL. Defaults to GitHub.
	Endpoint oauth2.Endpoint
}

func (c Config) withDefaults() Config {
	if c.Scope == "" {
		c.Scope = DefaultScope
	}
	if c.Endpoint.DeviceAuthURL == "" {
		// GitHub documents the device code endpoint as
		// https://github.com/login/device/code, without the /oauth segment
		// its token endpoint has. Override Endpoint for other hosts.
		c.Endpoint.DeviceAuthURL = github.Endpoint.DeviceAuthURL
	}
	if c.Endpoint.TokenURL == "" {
		c.Endpoint.TokenURL = github.Endpoint.TokenURL
	}
	return c
}

// ConfigurationError reports that the authenticator cannot start because of
// missing configuration. No network call is made in that case.
type ConfigurationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("device flow configuration error: %s: %s", e.Field, e.Message)
}

// FlowError is a terminal device flow failure.
type FlowError struct {
	// Reason is one of the Reason* constants or a raw error code from the server.
	Reason string
	// Description is the server's error_description, if any.
	Description string
	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface.
func (e *FlowError) Error() string {
	msg := "device flow failed: " + e.Reason
	if e.Description != "" {
		msg += ": " + e.Description
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *FlowError) Unwrap() error {
	return e.Err
}

// IsExpired reports whether err is a device flow expiry.
func IsExpired(err error) bool {
	var flowErr *FlowError
	return errors.As(err, &flowErr) && flowErr.Reason == ReasonExpired
}

// IsAccessDenied reports whether the user declined the authorization.
func IsAccessDenied(err error) bool {
	var flowErr *FlowError
	return errors.As(err, &flowErr) && flowErr.Reason == ReasonAccessDenied
}

// deviceCodeResponse is the device authorization endpoint response.
type deviceCodeResponse struct {
	DeviceCode      string `json:"device_code"`
	UserCode        string `json:"user_code"`
	VerificationURI string `json:"verification_uri"`
	ExpiresIn       int64  `json:"expires_in"`
	Interval        int64  `json:"interval"`
}

// tokenResponse is the token endpoint response for a device code poll.
type tokenResponse struct {
	AccessToken      string `json:"access_token"`
	TokenType        string `json:"token_type"`
	Scope            string `json:"scope"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Interval         int64  `json:"interval"`
}

// token converts a successful response into an oauth2.Token.
func (r *tokenResponse) token() *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken: r.AccessToken,
		TokenType:   r.TokenType,
	}
	return tok.WithExtra(map[string]interface{}{"scope": r.Scope})
}
