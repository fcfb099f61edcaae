// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// NewRootCommand builds the command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	st := newStyles(lipgloss.NewRenderer(app.Stdout))

	rootCmd := &cobra.Command{
		Use:   "envrun",
		Short: "Run commands in Python project environments",
		Long: st.title.Render("envrun") + st.subtitle.Render(" - run commands in Python project environments") + `

envrun reads environments from the [tool.envrun] table of pyproject.toml,
expands their matrices, creates virtual environments on demand, keeps their
dependencies in sync and runs scripts or literal commands inside them.

` + st.subtitle.Render("Examples:") + `
  envrun run test                 Run the 'test' script in the default environment
  envrun run test:cov             Run 'cov' in every instance of the 'test' matrix
  envrun run +py=3.12 test:cov    Only the instances whose python is 3.12
  envrun run :python -V           Run in the system environment
  envrun env show                 List the declared environments`,
		TraverseChildren: true,
		SilenceUsage:     true,
	}

	rootCmd.PersistentFlags().StringVar(&app.flags.configPath, "config", "", "config file (default is <config dir>/envrun/config.cue)")
	rootCmd.PersistentFlags().CountVarP(&app.flags.verbose, "verbose", "v", "increase verbosity (repeatable)")
	rootCmd.PersistentFlags().CountVarP(&app.flags.quiet, "quiet", "q", "decrease verbosity (repeatable)")

	rootCmd.AddCommand(newRunCommand(app))
	rootCmd.AddCommand(newEnvCommand(app))
	rootCmd.AddCommand(newConfigCommand(app))

	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the command tree with os.Args and returns the exit code.
func Execute() int {
	app := NewApp(Dependencies{})
	rootCmd := NewRootCommand(app)

	// fang prints errors that reach it; command failures are rendered by
	// App.handle and only usage errors get this far.
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		return 1
	}
	return app.exitCode
}

// Main is the process entry point.
func Main() {
	os.Exit(Execute())
}
