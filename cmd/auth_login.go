package cmd

import (
	"github.com/spf13/cobra"
)

// authLoginCmd represents the auth login command
var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authorize pagecms via the GitHub device flow",
	Long: `Authorize pagecms to access the repository using the GitHub device flow.

A one-time code is printed together with a verification URL. Open the URL
in any browser, enter the code and approve the request; the credential is
stored once GitHub confirms the authorization.

An OAuth App client ID is required, either as oauth.clientId in the config
file or in the PAGECMS_CLIENT_ID environment variable.`,
	Args: cobra.NoArgs,
	RunE: runAuthLogin,
}

func runAuthLogin(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, false)
	if err != nil {
		return err
	}

	if err := a.ctrl.Login(cmd.Context()); err != nil {
		return err
	}
	a.ui.printf("Authenticated. Credential stored in %s\n", a.creds.Path())
	return nil
}
