package session

import (
	"context"
	"errors"

	"pagecms/internal/content"
	"pagecms/internal/credential"
	"pagecms/internal/deviceflow"
)

var (
	// ErrSaveInProgress is returned by CommitEdit while another save of the
	// same page has not finished.
	ErrSaveInProgress = errors.New("a save of this page is already in progress")

	// ErrNoPage is returned by CommitEdit before any page was opened.
	ErrNoPage = errors.New("no page is open")
)

// maxAuthRetries is how many times an operation is repeated after a
// successful authentication.
const maxAuthRetries = 1

// Mode is what the presentation layer should currently show.
type Mode int

const (
	// ModeLoading means a page is being fetched.
	ModeLoading Mode = iota
	// ModeViewing shows an existing page.
	ModeViewing
	// ModeNewPage offers to create a page that does not exist yet.
	ModeNewPage
	// ModeAuthPrompt asks the user to enter the user code at the
	// verification URL.
	ModeAuthPrompt
	// ModeError shows the error of the last operation.
	ModeError
)

// String returns the string representation of the mode.
func (m Mode) String() string {
	switch m {
	case ModeLoading:
		return "loading"
	case ModeViewing:
		return "viewing"
	case ModeNewPage:
		return "new_page"
	case ModeAuthPrompt:
		return "auth_prompt"
	case ModeError:
		return "error"
	default:
		return "unknown"
	}
}

// AuthState is the user-facing authentication state.
type AuthState int

const (
	Unauthenticated AuthState = iota
	DeviceFlowPending
	Authenticated
)

// String returns the string representation of the auth state.
func (s AuthState) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case DeviceFlowPending:
		return "device_flow_pending"
	case Authenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// View is a snapshot of what the presentation layer renders.
type View struct {
	Mode Mode
	// Page is the current page name.
	Page string
	// Content is the page text; empty in ModeNewPage.
	Content string
	// Version is the version token of the last successful read or write.
	Version string

	// UserCode and VerificationURI are set in ModeAuthPrompt.
	UserCode        string
	VerificationURI string

	// Err is set in ModeError.
	Err error
}

// PageStore loads and saves pages. It is implemented by *content.Store.
type PageStore interface {
	Load(ctx context.Context, name string) (*content.Page, error)
	Save(ctx context.Context, req content.SaveRequest, cred credential.Credential) (*content.Page, error)
}

// Authenticator runs the device flow. It is implemented by
// *deviceflow.Authenticator.
type Authenticator interface {
	Start(ctx context.Context) (*deviceflow.Session, error)
	Wait(ctx context.Context) (credential.Credential, error)
	Cancel()
	State() deviceflow.Snapshot
}
