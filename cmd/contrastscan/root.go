package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	clog "github.com/nao1215/contrastscan/internal/log"
)

// Exit codes.
const (
	exitError     = 1
	exitThreshold = 2
)

// NewRootCmd creates the root command for contrastscan.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contrastscan",
		Short: "Audit web pages for WCAG color contrast",
		Long: `contrastscan renders web pages and checks the color contrast of every
visible text element against WCAG 2.x success criteria 1.4.3 (AA) and
1.4.6 (AAA).

Pages are rendered in headless Chrome by default. Use --renderer static to
compute styles from the page's HTML and CSS without a browser.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON lines")

	cmd.AddCommand(NewScanCmd())
	cmd.AddCommand(NewCompareCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewMCPCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command and exits non-zero on error.
// Findings at the --fail-on level exit with status 2, other errors with 1.
func Execute() {
	err := NewRootCmd().Execute()
	if err == nil {
		return
	}
	fmt.Fprintln(os.Stderr, err)
	if errors.Is(err, ErrThresholdExceeded) {
		os.Exit(exitThreshold)
	}
	os.Exit(exitError)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// newLogger creates the logger for a command. Logs go to the command's
// error stream so reports on stdout stay machine-readable.
func newLogger(cmd *cobra.Command) *slog.Logger {
	return setupLogger(cmd.ErrOrStderr(), getVerboseFlag(cmd), getBoolFlag(cmd, "log-json"))
}

func setupLogger(w io.Writer, verbose, jsonFormat bool) *slog.Logger {
	if jsonFormat {
		return clog.NewSecureJSONLogger(w, verbose)
	}
	return clog.NewSecureLogger(w, verbose)
}

func getBoolFlag(cmd *cobra.Command, name string) bool {
	v, err := cmd.Flags().GetBool(name)
	if err != nil {
		return false
	}
	return v
}
