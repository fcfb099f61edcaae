// SPDX-License-Identifier: MPL-2.0

package run

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/envrun/envrun/internal/compat"
	"github.com/envrun/envrun/internal/depsync"
	"github.com/envrun/envrun/internal/environment"
	"github.com/envrun/envrun/internal/inline"
	"github.com/envrun/envrun/internal/issue"
	"github.com/envrun/envrun/internal/matrix"
	"github.com/envrun/envrun/internal/python"
	"github.com/envrun/envrun/internal/report"
	"github.com/envrun/envrun/internal/script"
	"github.com/envrun/envrun/internal/selection"
	"github.com/envrun/envrun/internal/shell"
	"github.com/envrun/envrun/pkg/project"
)

// targetArgument names the positional argument of `run` in usage errors.
const targetArgument = "MATRIX:ARGS..."

const (
	statusSyncing       = "Syncing dependencies"
	statusPluginSyncing = "Syncing environment plugin requirements"
)

type (
	// Environments builds the environments an invocation may touch.
	// *environment.Factory is the production implementation.
	Environments interface {
		Instance(inst matrix.Instance) environment.Environment
		System(scripts map[string][]string) environment.Environment
		Plugins(requires []string) environment.Environment
		Script(spec environment.Spec) environment.Environment
	}

	// Orchestrator drives a run invocation from argument parsing to the
	// aggregated exit code.
	Orchestrator struct {
		Project  *project.Project
		Envs     Environments
		Storage  environment.Storage
		Python   inline.PythonResolver
		Reporter *report.Reporter
		// Verbosity above zero prints instance headers for single runs.
		Verbosity int
		// WorkDir resolves relative inline script paths; empty means the
		// process working directory.
		WorkDir string
	}

	// Invocation is one `run` call.
	Invocation struct {
		// Args are the raw arguments: selection tokens, the target, then
		// the command arguments.
		Args []string
		// ActiveEnv is used when the target has no ENV: prefix.
		ActiveEnv string
	}

	// Member is an environment selected by an invocation, together with the
	// matrix instance it was built from.
	Member struct {
		environment.Environment
		Instance matrix.Instance
	}

	// InstanceResult is the outcome of one executed environment.
	InstanceResult struct {
		Name     string
		Sync     depsync.Outcome
		ExitCode shell.ExitCode
	}

	// Result aggregates an invocation.
	Result struct {
		// ExitCode is the first non-zero instance code, otherwise 0.
		ExitCode  shell.ExitCode
		Instances []InstanceResult
		Skipped   []compat.Skip
	}

	// planned is a runnable member with its resolved pipeline.
	planned struct {
		member   Member
		pipeline script.Pipeline
	}
)

// Run executes inv. Errors returned are fatal to the whole invocation and
// exit with 1; failing commands are reported through Result.ExitCode.
func (o *Orchestrator) Run(ctx context.Context, inv Invocation) (Result, error) {
	sel, rest, err := selection.Parse(inv.Args)
	if err != nil {
		return Result{}, err
	}
	if len(rest) == 0 {
		return Result{}, &MissingArgumentError{Name: targetArgument}
	}

	if err := o.SyncPlugins(ctx); err != nil {
		return Result{}, err
	}

	target := ParseTarget(rest[0], inv.ActiveEnv)
	args := rest[1:]
	if target.Command == "" {
		return Result{}, &MissingArgumentError{Name: targetArgument}
	}

	if target.System {
		if !sel.IsEmpty() {
			return Result{}, &selection.UnsupportedSelectionError{Env: environment.SystemName}
		}
		return o.runSystem(ctx, target.Command, args)
	}

	if !target.Explicit && sel.IsEmpty() {
		res, handled, err := o.runInline(ctx, target, args)
		if handled || err != nil {
			return res, err
		}
	}

	return o.runMatrix(ctx, target, sel, args)
}

// SyncPlugins installs the project's environment plugin requirements into
// their tooling environment. It does nothing when none are declared.
func (o *Orchestrator) SyncPlugins(ctx context.Context) error {
	requires := o.Project.EnvRequires()
	if len(requires) == 0 {
		return nil
	}

	env := o.Envs.Plugins(requires)
	if err := o.create(ctx, env); err != nil {
		return err
	}

	sync := depsync.Synchronizer{
		Store: env.Metadata(),
		Status: func(msg string) {
			if msg == statusSyncing {
				o.Reporter.Status(statusPluginSyncing)
			}
		},
	}
	if _, err := sync.EnsureSynced(ctx, env); err != nil {
		return syncError(env.Name(), err)
	}
	return nil
}

// Members expands envName, applies sel and builds the environment of every
// remaining instance, in expansion order.
func (o *Orchestrator) Members(envName string, sel selection.Selection) ([]Member, matrix.Config, error) {
	catalog, err := matrix.NewCatalog(o.Project.Tool)
	if err != nil {
		return nil, matrix.Config{}, err
	}
	cfg, err := catalog.Get(envName)
	if err != nil {
		return nil, matrix.Config{}, err
	}
	instances, err := matrix.NewExpander().Expand(envName, cfg)
	if err != nil {
		return nil, matrix.Config{}, err
	}
	instances, err = selection.Apply(envName, cfg.HasMatrix, instances, sel)
	if err != nil {
		return nil, matrix.Config{}, err
	}

	members := make([]Member, len(instances))
	for i, inst := range instances {
		members[i] = Member{Environment: o.Envs.Instance(inst), Instance: inst}
	}
	return members, cfg, nil
}

// Prepare creates env when it does not exist yet and brings its
// dependencies in sync. A created environment starts without a recorded
// dependency hash.
func (o *Orchestrator) Prepare(ctx context.Context, env environment.Environment) (depsync.Outcome, error) {
	if err := o.create(ctx, env); err != nil {
		return 0, err
	}

	sync := depsync.Synchronizer{Store: env.Metadata(), Status: o.Reporter.Status}
	outcome, err := sync.EnsureSynced(ctx, env)
	if err != nil {
		return 0, syncError(env.Name(), err)
	}
	return outcome, nil
}

// create builds env when it is missing. The stored hash belongs to the
// previous incarnation of the environment and is dropped first.
func (o *Orchestrator) create(ctx context.Context, env environment.Environment) error {
	if env.Exists() {
		return nil
	}
	if err := env.Metadata().Forget(env.Name()); err != nil {
		return syncError(env.Name(), fmt.Errorf("reset dependency hash: %w", err))
	}
	if err := env.Create(ctx); err != nil {
		return createError(env.Name(), err)
	}
	return nil
}

func (o *Orchestrator) runMatrix(ctx context.Context, target Target, sel selection.Selection, args []string) (Result, error) {
	members, cfg, err := o.Members(target.Env, sel)
	if err != nil {
		return Result{}, err
	}

	runnable, skipped, err := compat.Partition(ctx, members)
	if err != nil {
		return Result{}, err
	}

	// Every pipeline is resolved up front so a cyclic script fails before
	// any environment is created.
	plan := make([]planned, len(runnable))
	for i, m := range runnable {
		p, err := script.Resolve(m.Instance.Settings.Scripts, target.Command, args)
		if err != nil {
			return Result{}, err
		}
		plan[i] = planned{member: m, pipeline: p}
	}

	res := Result{Skipped: skipped}
	for _, step := range plan {
		if cfg.HasMatrix || o.Verbosity > 0 {
			o.Reporter.Header(step.member.Name())
		}
		ir, err := o.execute(ctx, step.member, step.pipeline)
		if err != nil {
			return res, err
		}
		res.record(ir)
	}

	if len(skipped) > 0 {
		if len(plan) > 0 {
			o.Reporter.Blank()
		}
		o.Reporter.Skipped(skipped)
	}
	return res, nil
}

func (o *Orchestrator) runSystem(ctx context.Context, command string, args []string) (Result, error) {
	scripts, err := o.globalScripts()
	if err != nil {
		return Result{}, err
	}
	env := o.Envs.System(scripts)

	p, err := script.Resolve(scripts, command, args)
	if err != nil {
		return Result{}, err
	}
	ir, err := o.execute(ctx, env, p)
	if err != nil {
		return Result{}, err
	}

	var res Result
	res.record(ir)
	return res, nil
}

// runInline runs command as an inline-metadata script. It reports false
// when command is a script of the active environment or not such a file.
func (o *Orchestrator) runInline(ctx context.Context, target Target, args []string) (Result, bool, error) {
	if o.declaresScript(target.Env, target.Command) {
		return Result{}, false, nil
	}

	path := target.Command
	if !filepath.IsAbs(path) && o.WorkDir != "" {
		path = filepath.Join(o.WorkDir, path)
	}
	s, ok, err := inline.Load(path)
	if err != nil {
		return Result{}, true, fmt.Errorf("load script %s: %w", target.Command, err)
	}
	if !ok {
		return Result{}, false, nil
	}

	root := o.WorkDir
	if root == "" {
		root = filepath.Dir(s.Path)
	}
	spec, err := s.Spec(ctx, o.Storage, root, o.Python)
	if err != nil {
		return Result{}, true, err
	}
	command, err := s.Command()
	if err != nil {
		return Result{}, true, err
	}
	p, err := script.Resolve(nil, command, args)
	if err != nil {
		return Result{}, true, err
	}

	slog.Debug("running inline script", "path", s.Path, "env", spec.Name)
	ir, err := o.execute(ctx, o.Envs.Script(spec), p)
	if err != nil {
		return Result{}, true, err
	}

	var res Result
	res.record(ir)
	return res, true, nil
}

// execute prepares env and runs p in it. Expansion failures are reported
// and turn into exit code 1 for this environment only.
func (o *Orchestrator) execute(ctx context.Context, env environment.Environment, p script.Pipeline) (InstanceResult, error) {
	ir := InstanceResult{Name: env.Name()}

	outcome, err := o.Prepare(ctx, env)
	if err != nil {
		return o.envVarFailure(ir, err)
	}
	ir.Sync = outcome

	fctx, err := env.FormatContext()
	if err != nil {
		return o.envVarFailure(ir, fmt.Errorf("environment %s: %w", env.Name(), err))
	}

	runner := script.Runner{Env: env, Echo: o.Reporter.Command}
	res, err := runner.Run(ctx, script.Request{Pipeline: p, Context: fctx})
	ir.ExitCode = res.ExitCode
	if err != nil {
		if errors.Is(err, script.ErrExpansion) {
			o.Reporter.Error(err.Error())
			return ir, nil
		}
		return ir, err
	}
	return ir, nil
}

// envVarFailure reports a declared env-var that cannot be expanded as a
// failing instance; any other error is returned unchanged.
func (o *Orchestrator) envVarFailure(ir InstanceResult, err error) (InstanceResult, error) {
	var envErr *environment.EnvVarError
	if !errors.As(err, &envErr) {
		return ir, err
	}
	o.Reporter.Error(envErr.Error())
	ir.ExitCode = 1
	return ir, nil
}

func (o *Orchestrator) declaresScript(envName, command string) bool {
	catalog, err := matrix.NewCatalog(o.Project.Tool)
	if err != nil {
		return false
	}
	cfg, err := catalog.Get(envName)
	if err != nil {
		return false
	}
	settings, err := matrix.DecodeSettings(envName, cfg.Options.Map())
	if err != nil {
		return false
	}
	_, ok := settings.Scripts[command]
	return ok
}

// globalScripts decodes [tool.envrun.scripts].
func (o *Orchestrator) globalScripts() (map[string][]string, error) {
	scripts := o.Project.Tool.Table("scripts")
	if scripts.Len() == 0 {
		return nil, nil
	}
	settings, err := matrix.DecodeSettings(environment.SystemName, map[string]any{"scripts": scripts.Map()})
	if err != nil {
		return nil, err
	}
	return settings.Scripts, nil
}

func (r *Result) record(ir InstanceResult) {
	r.Instances = append(r.Instances, ir)
	if r.ExitCode.IsSuccess() && !ir.ExitCode.IsSuccess() {
		r.ExitCode = ir.ExitCode
	}
}

func createError(env string, err error) error {
	ctx := issue.NewErrorContext().
		WithOperation("create environment").
		WithResource(env).
		WithIssue(issue.EnvironmentCreateFailedId).
		Wrap(err)
	var nf *python.NotFoundError
	if errors.As(err, &nf) {
		ctx.WithIssue(issue.PythonNotFoundId)
	}
	return ctx.BuildError()
}

func syncError(env string, err error) error {
	return issue.NewErrorContext().
		WithOperation("sync dependencies").
		WithResource(env).
		WithIssue(issue.DependencySyncFailedId).
		Wrap(err).
		BuildError()
}
