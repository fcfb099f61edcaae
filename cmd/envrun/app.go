// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/envrun/envrun/internal/app/run"
	"github.com/envrun/envrun/internal/compat"
	"github.com/envrun/envrun/internal/config"
	"github.com/envrun/envrun/internal/environment"
	"github.com/envrun/envrun/internal/issue"
	"github.com/envrun/envrun/internal/python"
	"github.com/envrun/envrun/internal/report"
	"github.com/envrun/envrun/internal/shell"
	"github.com/envrun/envrun/pkg/platform"
	"github.com/envrun/envrun/pkg/project"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

type (
	// App wires CLI services and shared dependencies. It is the composition
	// root for the CLI layer: every command handler receives the App and
	// builds its session through it.
	App struct {
		Config  config.Provider
		Stdin   io.Reader
		Stdout  io.Writer
		Stderr  io.Writer
		Getenv  func(string) string
		Environ func() []string
		Getwd   func() (string, error)

		flags    globalFlags
		exitCode int
		// verbosity is the effective level once configuration is loaded.
		verbosity       int
		verbosityLoaded bool
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config config.Provider
		Stdin  io.Reader
		Stdout io.Writer
		Stderr io.Writer
	}

	globalFlags struct {
		configPath string
		verbose    int
		quiet      int
	}

	// session is the per-invocation state shared by the commands.
	session struct {
		cfg          *config.Config
		project      *project.Project
		factory      *environment.Factory
		reporter     *report.Reporter
		orchestrator *run.Orchestrator
		verbosity    int
		activeEnv    string
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) *App {
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.Stdin == nil {
		deps.Stdin = os.Stdin
	}
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	return &App{
		Config:  deps.Config,
		Stdin:   deps.Stdin,
		Stdout:  deps.Stdout,
		Stderr:  deps.Stderr,
		Getenv:  os.Getenv,
		Environ: os.Environ,
		Getwd:   os.Getwd,
	}
}

// loadOptions returns the config load options implied by the global flags.
func (a *App) loadOptions() config.LoadOptions {
	return config.LoadOptions{ConfigFilePath: a.flags.configPath}
}

// loadConfig loads the configuration and installs the logger for the
// resulting verbosity.
func (a *App) loadConfig(ctx context.Context) (*config.Config, int, error) {
	cfg, err := a.Config.Load(ctx, a.loadOptions())
	if err != nil {
		var ae *issue.ActionableError
		if errors.As(err, &ae) && ae.Issue == 0 {
			ae.Issue = issue.ConfigLoadFailedId
		}
		return nil, 0, err
	}

	verbosity := min(max(int(cfg.UI.Verbosity)+a.flags.verbose-a.flags.quiet, int(config.MinVerbosity)), int(config.MaxVerbosity))
	configureLogging(a.Stderr, verbosity)
	a.verbosity, a.verbosityLoaded = verbosity, true
	return cfg, verbosity, nil
}

// newSession loads configuration and the project, and builds the
// environment factory and orchestrator of one invocation.
func (a *App) newSession(ctx context.Context) (*session, error) {
	cfg, verbosity, err := a.loadConfig(ctx)
	if err != nil {
		return nil, err
	}

	wd, err := a.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}
	p, err := loadProject(wd)
	if err != nil {
		return nil, err
	}

	runner, err := shell.New(cfg.Shell)
	if err != nil {
		return nil, err
	}

	reporter := report.New(a.Stdout)
	resolver := python.NewResolver(python.NewManager(string(cfg.Python.InstallDir), cfg.Python.SourceURL))
	storage := environment.Storage{DataDir: string(cfg.DataDir)}
	factory := environment.NewFactory(storage, p, environment.Options{
		Python:    resolver,
		Compat:    &compat.Checker{Platform: platform.Current(), Python: resolver},
		Shell:     runner,
		Status:    reporter.Status,
		Stdin:     a.Stdin,
		Stdout:    a.Stdout,
		Stderr:    a.Stderr,
		Environ:   a.Environ(),
		Verbosity: verbosity,
	})

	activeEnv := a.Getenv(environment.ActiveEnvVar)
	if activeEnv == "" {
		activeEnv = string(cfg.DefaultEnv)
	}

	slog.Debug("session ready", "project", p.Name, "root", p.Root, "data_dir", cfg.DataDir, "active_env", activeEnv)
	return &session{
		cfg:      cfg,
		project:  p,
		factory:  factory,
		reporter: reporter,
		orchestrator: &run.Orchestrator{
			Project:   p,
			Envs:      factory,
			Storage:   storage,
			Python:    resolver,
			Reporter:  reporter,
			Verbosity: verbosity,
			WorkDir:   wd,
		},
		verbosity: verbosity,
		activeEnv: activeEnv,
	}, nil
}

// loadProject loads the nearest pyproject.toml. Outside of a project the
// working directory acts as an empty project with only the default
// environment.
func loadProject(wd string) (*project.Project, error) {
	root, err := project.Find(wd)
	if errors.Is(err, project.ErrNotFound) {
		slog.Debug("no project found, using the working directory", "dir", wd)
		return project.Parse(wd, filepath.Join(wd, project.FileName), nil)
	}
	if err != nil {
		return nil, err
	}
	return project.Load(root)
}

// handle adapts a command body to the App's error rendering. Errors are
// printed here and turned into an exit code so that fang does not print
// them a second time.
func (a *App) handle(fn func(cmd *cobra.Command, args []string) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := fn(cmd, args)
		if err == nil {
			return nil
		}

		var exitErr *ExitError
		if !errors.As(err, &exitErr) {
			exitErr = &ExitError{Code: 1, Err: err}
		}
		if exitErr.Err != nil {
			a.renderError(exitErr.Err)
		}
		a.exitCode = int(exitErr.Code)
		return nil
	}
}

// renderError prints err to stderr. Verbose runs add the error chain and
// the matching issue catalog entry.
func (a *App) renderError(err error) {
	st := newStyles(lipgloss.NewRenderer(a.Stderr))
	verbose := a.flags.verbose > 0
	if a.verbosityLoaded {
		verbose = a.verbosity > 0
	}
	fmt.Fprintln(a.Stderr, st.err.Render(formatErrorForDisplay(err, verbose)))

	if !verbose {
		return
	}
	var ae *issue.ActionableError
	if errors.As(err, &ae) && ae.Issue != 0 {
		// Format already rendered the linked entry.
		return
	}
	if entry := issue.Get(classifyError(err)); entry != nil {
		rendered, renderErr := entry.Render("dark")
		if renderErr != nil {
			slog.Warn("failed to render issue catalog entry", "issueID", entry.Id(), "error", renderErr)
			return
		}
		fmt.Fprint(a.Stderr, rendered)
	}
}
