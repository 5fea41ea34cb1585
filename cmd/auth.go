package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"pagecms/internal/credential"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// authCmd represents the auth command group
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the GitHub credential",
	Long: `Manage the GitHub credential used to read private pages and to save.

Examples:
  pagecms auth login                   # Authorize via the GitHub device flow
  pagecms auth status                  # Show the configured repository and credential
  pagecms auth set-token               # Store a personal access token instead
  pagecms auth logout                  # Forget the stored credential`,
}

// authLogoutCmd represents the auth logout command
var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored credential",
	Long: `Remove the stored credential. Pages in the repository are not touched;
the next save will ask for authorization again.`,
	Args: cobra.NoArgs,
	RunE: runAuthLogout,
}

// authSetTokenCmd represents the auth set-token command
var authSetTokenCmd = &cobra.Command{
	Use:   "set-token",
	Short: "Store a personal access token",
	Long: `Store a GitHub personal access token with the repo scope as the credential.

The token is read from the terminal without echo, or from stdin when
stdin is not a terminal:

  echo "$GITHUB_TOKEN" | pagecms auth set-token`,
	Args: cobra.NoArgs,
	RunE: runAuthSetToken,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authLogoutCmd)
	authCmd.AddCommand(authStatusCmd)
	authCmd.AddCommand(authSetTokenCmd)
}

func runAuthLogout(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, false)
	if err != nil {
		return err
	}

	if _, ok := a.creds.Get(); !ok {
		a.ui.printf("No stored credential to clear.\n")
		return nil
	}
	if err := a.ctrl.Logout(); err != nil {
		return err
	}
	a.ui.printf("Logged out.\n")
	return nil
}

func runAuthSetToken(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, false)
	if err != nil {
		return err
	}

	token, err := readToken(cmd.InOrStdin(), a.ui)
	if err != nil {
		return err
	}
	if token == "" {
		return fmt.Errorf("no token entered")
	}

	if err := a.creds.Set(credential.New(token)); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}
	a.ui.printf("Token stored in %s\n", a.creds.Path())
	return nil
}

// readToken reads a token without echo from an interactive terminal, or the
// first line of in otherwise.
func readToken(in io.Reader, ui *presenter) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(ui.out, "Paste token: ")
		data, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(ui.out)
		if err != nil {
			return "", fmt.Errorf("failed to read token: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read token: %w", err)
	}
	return strings.TrimSpace(line), nil
}
