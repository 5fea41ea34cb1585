package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"pagecms/internal/config"
	"pagecms/internal/content"
	"pagecms/internal/credential"
	"pagecms/internal/deviceflow"
	"pagecms/internal/gateway"
	"pagecms/internal/session"

	"github.com/briandowns/spinner"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"
	"golang.org/x/term"
)

// app holds the components a command works with.
type app struct {
	cfg   config.Config
	creds *credential.FileStore
	auth  *deviceflow.Authenticator
	store *content.Store
	ctrl  *session.Controller
	ui    *presenter
}

// newApp loads the configuration and wires the components. The content
// store is only created when requireRepository is set, since the auth
// commands work without a configured repository.
func newApp(cmd *cobra.Command, requireRepository bool) (*app, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if requireRepository {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	creds, err := credential.NewFileStore(cfg.Credentials.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open credential store: %w", err)
	}

	gw := gateway.New(
		gateway.WithTimeout(cfg.API.Timeout),
		gateway.WithUserAgent("pagecms/"+GetVersion()),
	)

	ui := newPresenter(cmd.ErrOrStderr(), quietMode)

	auth := deviceflow.New(deviceflow.Config{
		ClientID: cfg.OAuth.ClientID,
		Scope:    cfg.OAuth.Scope,
		Endpoint: oauth2.Endpoint{
			DeviceAuthURL: cfg.OAuth.DeviceCodeURL,
			TokenURL:      cfg.OAuth.TokenURL,
		},
	}, gw, creds)

	a := &app{cfg: cfg, creds: creds, auth: auth, ui: ui}

	var pages session.PageStore
	if requireRepository {
		a.store, err = content.New(content.Config{
			BaseURL:       cfg.API.BaseURL,
			Owner:         cfg.Repository.Owner,
			Repo:          cfg.Repository.Repo,
			Branch:        cfg.Repository.Branch,
			PagesDir:      cfg.Repository.PagesDir,
			CommitMessage: cfg.Commit.MessageTemplate,
		}, gw, creds)
		if err != nil {
			return nil, err
		}
		pages = a.store
	}

	a.ctrl = session.New(pages, auth, creds, session.WithViewObserver(ui.render))
	return a, nil
}

// presenter renders session views on the terminal. Progress goes to a
// spinner on interactive terminals; the device flow prompt is always shown.
type presenter struct {
	out     io.Writer
	quiet   bool
	spinner *spinner.Spinner
}

func newPresenter(out io.Writer, quiet bool) *presenter {
	p := &presenter{out: out, quiet: quiet}
	if f, ok := out.(*os.File); ok && !quiet && term.IsTerminal(int(f.Fd())) {
		p.spinner = spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(out))
	}
	return p
}

func (p *presenter) render(v session.View) {
	switch v.Mode {
	case session.ModeLoading:
		p.progress(fmt.Sprintf(" Loading page %s...", v.Page))
	case session.ModeAuthPrompt:
		p.stop()
		fmt.Fprintf(p.out, "%s First copy your one-time code: %s\n", text.FgYellow.Sprint("!"), text.Bold.Sprint(v.UserCode))
		fmt.Fprintf(p.out, "  Then open %s in your browser and enter it.\n", text.FgCyan.Sprint(v.VerificationURI))
		p.progress(" Waiting for authorization...")
	default:
		p.stop()
	}
}

// progress starts or relabels the spinner.
func (p *presenter) progress(suffix string) {
	if p.spinner == nil {
		return
	}
	p.spinner.Suffix = suffix
	if !p.spinner.Active() {
		p.spinner.Start()
	}
}

func (p *presenter) stop() {
	if p.spinner != nil && p.spinner.Active() {
		p.spinner.Stop()
	}
}

// printf prints non-essential output unless --quiet is set.
func (p *presenter) printf(format string, args ...interface{}) {
	if !p.quiet {
		fmt.Fprintf(p.out, format, args...)
	}
}

// shortVersion abbreviates a blob sha for display.
func shortVersion(version string) string {
	if len(version) > 7 {
		return version[:7]
	}
	return version
}
