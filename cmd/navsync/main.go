package main

import (
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/navsync/internal/config"
	"github.com/vango-dev/navsync/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Exit codes.
const (
	exitError  = 1
	exitConfig = 2
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		printError(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// printError writes err for the terminal, with the code's explanation
// when it is a NavsyncError.
func printError(w io.Writer, err error) {
	var ne *errors.NavsyncError
	if stderrors.As(err, &ne) {
		fmt.Fprintln(w, ne.Format())
		return
	}
	fmt.Fprintf(w, "Error: %s\n", err)
}

// exitCode separates configuration problems from other failures.
func exitCode(err error) int {
	if errors.HasCode(err, errors.CodeInvalidConfig) {
		return exitConfig
	}
	return exitError
}

func newRootCmd() *cobra.Command {
	var noColor bool

	rootCmd := &cobra.Command{
		Use:   "navsync",
		Short: "Keep a page's location in sync with Go code",
		Long: `navsync watches browser history, performs programmatic navigation,
and reports every location change to a server over a WebSocket.

  • serve     run the report server
  • simulate  drive an in-memory browser and print what it reports
  • init      write a navsync.json
  • explain   describe an error code`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor || os.Getenv("NO_COLOR") != "" {
				errors.DisableColors()
			} else {
				errors.EnableColors()
			}
		},
	}
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored error output")

	rootCmd.AddCommand(
		serveCmd(),
		simulateCmd(),
		initCmd(),
		explainCmd(),
		versionCmd(),
	)
	return rootCmd
}

// newLogger builds the process logger from the log section of cfg.
func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel()}
	var handler slog.Handler
	if cfg.Log.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}
