// SPDX-License-Identifier: MPL-2.0

package environment

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"os/exec"
	"slices"
	"strings"
	"sync"

	"github.com/envrun/envrun/internal/compat"
	"github.com/envrun/envrun/internal/depsync"
	"github.com/envrun/envrun/internal/formatter"
	"github.com/envrun/envrun/internal/matrix"
	"github.com/envrun/envrun/internal/python"
	"github.com/envrun/envrun/internal/shell"
	"github.com/envrun/envrun/pkg/project"
)

// ActiveEnvVar names the environment a nested envrun invocation defaults to.
const ActiveEnvVar = "ENVRUN_ENV_ACTIVE"

type (
	// Environment is an execution environment commands run in.
	Environment interface {
		Name() string
		Type() string
		Exists() bool
		Create(ctx context.Context) error
		Remove(ctx context.Context) error
		CheckCompatibility(ctx context.Context) error
		SkipDependencyCheck() bool
		Dependencies() ([]string, error)
		DependencyHash() (string, error)
		DependenciesInSync(ctx context.Context) (bool, error)
		SyncDependencies(ctx context.Context) error
		// Enter runs an expanded command line inside the activated environment.
		Enter(ctx context.Context, line string) (shell.ExitCode, error)
		// FormatContext returns the formatter context of the environment.
		FormatContext() (formatter.Context, error)
		// Path is the environment directory, empty when it has none.
		Path() string
		// Metadata is where the dependency hash of the environment is kept.
		Metadata() depsync.Store
	}

	// Spec identifies one environment and its resolved options.
	Spec struct {
		Name     string
		Settings matrix.Settings
		// Matrix is the matrix variable assignment, keyed by variable name.
		Matrix map[string]string
		// Root is the working directory of commands and the {root} field.
		Root string
		// Project is nil for inline-metadata scripts.
		Project *project.Project
		// Dir is the environment directory of virtual environments.
		Dir string
		// RequiresPython constrains the interpreter when Settings.Python is empty.
		RequiresPython string
		Store          depsync.Store
	}

	// Options are the collaborators shared by every environment of a run.
	Options struct {
		Python    *python.Resolver
		Compat    *compat.Checker
		Shell     shell.Runner
		Status    func(msg string)
		Stdin     io.Reader
		Stdout    io.Writer
		Stderr    io.Writer
		Environ   []string
		Verbosity int
	}

	// base implements the behavior shared by all environment types.
	base struct {
		spec Spec
		opts Options
		// activate adds the variables that activate the environment.
		activate func(env map[string]string)

		envOnce sync.Once
		env     map[string]string
		envErr  error
	}
)

func (b *base) Name() string              { return b.spec.Name }
func (b *base) Path() string              { return b.spec.Dir }
func (b *base) Metadata() depsync.Store   { return b.spec.Store }
func (b *base) SkipDependencyCheck() bool { return b.spec.Settings.SkipDependencyCheck }

// CheckCompatibility reports a *compat.ReasonError when the environment
// cannot run on this host.
func (b *base) CheckCompatibility(ctx context.Context) error {
	if b.opts.Compat == nil {
		return nil
	}
	return b.opts.Compat.Check(ctx, b.spec.Settings).Err()
}

// Dependencies returns the requirements the environment must satisfy: its
// own dependencies, plus the project's and those of the selected features
// when the project is installed.
func (b *base) Dependencies() ([]string, error) {
	deps := b.spec.Settings.AllDependencies()
	if p := b.spec.Project; p != nil && !b.spec.Settings.SkipInstall {
		features, err := p.Features(b.spec.Settings.Features)
		if err != nil {
			return nil, err
		}
		deps = slices.Concat(deps, p.Dependencies, features)
	}
	return deps, nil
}

// DependencyHash hashes the dependency set.
func (b *base) DependencyHash() (string, error) {
	deps, err := b.Dependencies()
	if err != nil {
		return "", err
	}
	return HashDependencies(deps), nil
}

func (b *base) status(msg string) {
	if b.opts.Status != nil {
		b.opts.Status(msg)
	}
}

// FormatContext builds the context used to expand commands. Its Environ is
// the final process environment, so declared env-vars are already expanded.
func (b *base) FormatContext() (formatter.Context, error) {
	env, err := b.environ()
	if err != nil {
		return formatter.Context{}, err
	}
	home, _ := os.UserHomeDir()
	return formatter.Context{
		Environ: env,
		Fields: map[string]string{
			"root":     b.spec.Root,
			"home":     home,
			"env_name": b.spec.Name,
			"env_type": b.spec.Settings.Type,
		},
		Matrix:    maps.Clone(b.spec.Matrix),
		Verbosity: b.opts.Verbosity,
	}, nil
}

// environ builds the process environment with this precedence (later wins):
// host environment, declared env-vars, then the activation variables.
// The result is computed once per environment.
func (b *base) environ() (map[string]string, error) {
	b.envOnce.Do(func() {
		host := formatter.EnvironFromList(b.opts.Environ)
		env := maps.Clone(host)

		home, _ := os.UserHomeDir()
		fctx := formatter.Context{
			Environ: host,
			EnvVars: b.spec.Settings.EnvVars,
			Fields: map[string]string{
				"root":     b.spec.Root,
				"home":     home,
				"env_name": b.spec.Name,
				"env_type": b.spec.Settings.Type,
			},
			Matrix:    b.spec.Matrix,
			Verbosity: b.opts.Verbosity,
		}
		for _, name := range slices.Sorted(maps.Keys(b.spec.Settings.EnvVars)) {
			value, err := formatter.FormatEnvVar(name, fctx)
			if err != nil {
				b.envErr = &EnvVarError{Name: name, Err: err}
				return
			}
			env[name] = value
		}

		env[ActiveEnvVar] = b.spec.Name
		if b.activate != nil {
			b.activate(env)
		}
		b.env = env
	})
	return maps.Clone(b.env), b.envErr
}

// enter runs line through the configured shell with env.
func (b *base) enter(ctx context.Context, line string, env map[string]string) (shell.ExitCode, error) {
	return b.opts.Shell.Run(ctx, shell.Command{
		Line:   line,
		Dir:    b.spec.Root,
		Env:    envList(env),
		Stdin:  b.opts.Stdin,
		Stdout: b.opts.Stdout,
		Stderr: b.opts.Stderr,
	})
}

// runCommands expands and runs setup commands such as pre-install-commands,
// failing on the first non-zero exit.
func (b *base) runCommands(ctx context.Context, kind string, commands []string) error {
	if len(commands) == 0 {
		return nil
	}
	fctx, err := b.FormatContext()
	if err != nil {
		return err
	}
	fctx.Fields["args"] = ""
	for _, tmpl := range commands {
		line, err := formatter.Format(tmpl, fctx)
		if err != nil {
			return err
		}
		code, err := b.enter(ctx, line, fctx.Environ)
		if err != nil {
			return err
		}
		if !code.IsSuccess() {
			return &CommandError{Kind: kind, Command: line, ExitCode: code}
		}
	}
	return nil
}

// pip runs `python -m pip` with the interpreter at pythonPath. Output is
// only shown when verbose.
func (b *base) pip(ctx context.Context, pythonPath string, env map[string]string, args ...string) error {
	full := append([]string{"-m", "pip"}, args...)
	full = append(full, "--disable-pip-version-check")
	if b.opts.Verbosity <= 0 {
		full = append(full, "-q")
	}
	return b.exec(ctx, env, pythonPath, full...)
}

func (b *base) exec(ctx context.Context, env map[string]string, name string, args ...string) error {
	slog.Debug("running", "command", name, "args", args)
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = b.spec.Root
	cmd.Env = b.processEnv(env)
	if b.opts.Verbosity > 0 {
		cmd.Stdout = b.opts.Stdout
	}
	cmd.Stderr = b.opts.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}
	return nil
}

func (b *base) output(ctx context.Context, env map[string]string, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = b.spec.Root
	cmd.Env = b.processEnv(env)
	cmd.Stderr = b.opts.Stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}
	return out, nil
}

// processEnv returns env as a process environment; nil means the host
// environment without activation.
func (b *base) processEnv(env map[string]string) []string {
	if env == nil {
		return b.opts.Environ
	}
	return envList(env)
}

// envList converts env into sorted KEY=VALUE entries.
func envList(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for _, k := range slices.Sorted(maps.Keys(env)) {
		out = append(out, k+"="+env[k])
	}
	return out
}
