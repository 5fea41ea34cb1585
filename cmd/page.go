package cmd

import (
	"fmt"
	"io"
	"os"

	"pagecms/internal/content"
	"pagecms/internal/session"

	"github.com/spf13/cobra"
)

var editFile string

// pageCmd represents the page command group
var pageCmd = &cobra.Command{
	Use:   "page",
	Short: "Read and edit pages",
	Long: `Read and edit the Markdown pages of the configured repository.

A page named "about" is stored as <pagesDir>/about.md. Without a name the
"index" page is used.

Examples:
  pagecms page get                     # Print the index page
  pagecms page get about               # Print pages/about.md
  pagecms page edit about -f about.md  # Replace the page with a local file
  cat notes.md | pagecms page edit notes -f -`,
}

// pageGetCmd represents the page get command
var pageGetCmd = &cobra.Command{
	Use:   "get [name]",
	Short: "Print the raw Markdown of a page",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runPageGet,
}

// pageEditCmd represents the page edit command
var pageEditCmd = &cobra.Command{
	Use:   "edit [name]",
	Short: "Replace the content of a page",
	Long: `Replace the content of a page with the content of a file.

The page is read first and the write is only applied if nobody changed it
in the meantime. A page that does not exist yet is created. If the
repository requires authentication, the device flow is started and the
write is retried once.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPageEdit,
}

func init() {
	rootCmd.AddCommand(pageCmd)
	pageCmd.AddCommand(pageGetCmd)
	pageCmd.AddCommand(pageEditCmd)

	pageEditCmd.Flags().StringVarP(&editFile, "file", "f", "", "File with the new page content, or - for stdin")
	_ = pageEditCmd.MarkFlagRequired("file")
}

func pageName(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func runPageGet(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, true)
	if err != nil {
		return err
	}

	view, err := a.ctrl.OpenPage(cmd.Context(), pageName(args))
	if err != nil {
		return err
	}
	if view.Mode == session.ModeNewPage {
		return fmt.Errorf("page %q: %w", view.Page, content.ErrNotFound)
	}

	_, err = io.WriteString(cmd.OutOrStdout(), view.Content)
	return err
}

func runPageEdit(cmd *cobra.Command, args []string) error {
	text, err := readEditInput(cmd, editFile)
	if err != nil {
		return err
	}

	a, err := newApp(cmd, true)
	if err != nil {
		return err
	}

	view, err := a.ctrl.OpenPage(cmd.Context(), pageName(args))
	if err != nil {
		return err
	}
	created := view.Mode == session.ModeNewPage

	view, err = a.ctrl.CommitEdit(cmd.Context(), text)
	if err != nil {
		if content.OutcomeOf(err) == content.OutcomeConflict {
			return fmt.Errorf("page %q was changed by someone else while saving, reload and try again: %w", view.Page, err)
		}
		return err
	}

	verb := "Updated"
	if created {
		verb = "Created"
	}
	a.ui.printf("%s %s (version %s)\n", verb, a.store.Path(view.Page), shortVersion(view.Version))
	return nil
}

func readEditInput(cmd *cobra.Command, path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read page content: %w", err)
	}
	return string(data), nil
}
