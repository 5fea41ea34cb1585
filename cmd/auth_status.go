package cmd

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

// authStatusCmd represents the auth status command
var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the configured repository and credential",
	Long: `Show the configured repository, the OAuth settings and whether a
credential is stored. The token value itself is never printed.`,
	Args: cobra.NoArgs,
	RunE: runAuthStatus,
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, false)
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{text.FgHiCyan.Sprint("SETTING"), text.FgHiCyan.Sprint("VALUE")})

	t.AppendRow(table.Row{"Repository", repositoryLabel(a.cfg.Repository.Owner, a.cfg.Repository.Repo, a.cfg.Repository.Branch)})
	t.AppendRow(table.Row{"Pages directory", a.cfg.Repository.PagesDir})
	t.AppendRow(table.Row{"API", a.cfg.API.BaseURL})

	clientID := text.FgYellow.Sprint("not configured")
	if a.cfg.OAuth.ClientID != "" {
		clientID = a.cfg.OAuth.ClientID
	}
	t.AppendRow(table.Row{"OAuth client ID", clientID})
	t.AppendSeparator()

	t.AppendRow(table.Row{"Status", authStateLabel(a.ctrl.AuthState().String())})
	if cred, ok := a.creds.Get(); ok {
		if cred.Scope() != "" {
			t.AppendRow(table.Row{"Scope", cred.Scope()})
		}
		if !cred.CreatedAt().IsZero() {
			t.AppendRow(table.Row{"Stored", cred.CreatedAt().Local().Format(time.RFC1123)})
		}
		t.AppendRow(table.Row{"Credential file", a.creds.Path()})
	}

	t.Render()
	return nil
}

func repositoryLabel(owner, repo, branch string) string {
	if owner == "" || repo == "" {
		return text.FgYellow.Sprint("not configured")
	}
	label := fmt.Sprintf("%s/%s", owner, repo)
	if branch != "" {
		label += "@" + branch
	}
	return label
}

func authStateLabel(state string) string {
	switch state {
	case "authenticated":
		return text.FgGreen.Sprint("Authenticated")
	case "device_flow_pending":
		return text.FgYellow.Sprint("Authorization pending")
	default:
		return text.FgRed.Sprint("Not authenticated")
	}
}
