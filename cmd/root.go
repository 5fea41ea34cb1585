package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"pagecms/internal/config"
	"pagecms/internal/content"
	"pagecms/internal/deviceflow"
	"pagecms/pkg/logging"

	"github.com/spf13/cobra"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeAuthRequired indicates authentication is required but not available.
	ExitCodeAuthRequired = 2
	// ExitCodeAuthFailed indicates the device flow failed.
	ExitCodeAuthFailed = 3
	// ExitCodeConflict indicates the page changed remotely and nothing was written.
	ExitCodeConflict = 4
	// ExitCodeNotFound indicates the page does not exist.
	ExitCodeNotFound = 5
)

// Persistent flags shared by all commands.
var (
	configPath string
	debugMode  bool
	quietMode  bool
)

// rootCmd represents the base command for the pagecms application.
// It is the entry point when the application is called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "pagecms",
	Short: "Read and edit Markdown pages stored in a GitHub repository",
	Long: `pagecms reads and writes the Markdown pages of a GitHub repository
through the GitHub contents API. Writes are only applied when the page has
not changed since it was read, and authentication uses the GitHub device
flow so no server-side component is needed.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors that are handled by the application.
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := logging.LevelWarn
		if debugMode {
			level = logging.LevelDebug
		}
		logging.InitForCLI(level, cmd.ErrOrStderr())
	},
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
// This function is called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "pagecms version %s\n" .Version}}`)

	// Interrupting cancels a pending device flow instead of leaving it polling.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode determines the appropriate exit code based on the error type.
// This provides semantic exit codes for scripting and automation.
func getExitCode(err error) int {
	if err == nil {
		return ExitCodeSuccess
	}

	var flowErr *deviceflow.FlowError
	switch {
	case errors.Is(err, content.ErrConflict):
		return ExitCodeConflict
	case errors.Is(err, content.ErrNotFound):
		return ExitCodeNotFound
	case errors.As(err, &flowErr), errors.Is(err, deviceflow.ErrCancelled):
		return ExitCodeAuthFailed
	case errors.Is(err, content.ErrAuthRequired):
		return ExitCodeAuthRequired
	}

	// Default to general error
	return ExitCodeError
}

func defaultConfigPath() string {
	path, err := config.GetDefaultConfigPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		return ""
	}
	return path
}

func init() {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newSelfUpdateCmd())

	rootCmd.PersistentFlags().StringVar(&configPath, "config-path", defaultConfigPath(), "Configuration directory")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&quietMode, "quiet", "q", false, "Suppress non-essential output")
}
