// SPDX-License-Identifier: MPL-2.0

package script

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"testing"

	"github.com/envrun/envrun/internal/formatter"
	"github.com/envrun/envrun/internal/shell"
)

// fakeEnv records entered commands and returns scripted exit codes.
type fakeEnv struct {
	codes   map[string]shell.ExitCode
	entered []string
}

func (f *fakeEnv) Enter(_ context.Context, line string) (shell.ExitCode, error) {
	f.entered = append(f.entered, line)
	return f.codes[line], nil
}

func runPipeline(t *testing.T, env *fakeEnv, p Pipeline, fctx formatter.Context) (Result, []string, error) {
	t.Helper()

	var echoed []string
	r := &Runner{Env: env, Echo: func(i int, text string) {
		echoed = append(echoed, fmt.Sprintf("cmd [%d] | %s", i, text))
	}}
	res, err := r.Run(t.Context(), Request{Pipeline: p, Context: fctx})
	return res, echoed, err
}

func TestRun_AbortsOnFailure(t *testing.T) {
	t.Parallel()

	p, _ := Resolve(map[string][]string{"error": {"exit 3", "touch test.txt"}}, "error", nil)
	env := &fakeEnv{codes: map[string]shell.ExitCode{"exit 3": 3}}

	res, echoed, err := runPipeline(t, env, p, formatter.Context{})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if res.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", res.ExitCode)
	}
	if !slices.Equal(env.entered, []string{"exit 3"}) {
		t.Errorf("entered = %q", env.entered)
	}
	if !slices.Equal(echoed, []string{"cmd [1] | exit 3"}) {
		t.Errorf("echoed = %q", echoed)
	}
}

func TestRun_IgnoreError(t *testing.T) {
	t.Parallel()

	p, _ := Resolve(map[string][]string{"error": {"- exit 3", "touch test.txt"}}, "error", nil)
	env := &fakeEnv{codes: map[string]shell.ExitCode{"exit 3": 3}}

	res, echoed, err := runPipeline(t, env, p, formatter.Context{})
	if err != nil || res.ExitCode != 0 {
		t.Fatalf("Run() = %d, %v", res.ExitCode, err)
	}
	want := []string{"cmd [1] | - exit 3", "cmd [2] | touch test.txt"}
	if !slices.Equal(echoed, want) {
		t.Errorf("echoed = %q, want %q", echoed, want)
	}
	if len(res.Entries) != 2 || res.Entries[0].ExitCode != 3 {
		t.Errorf("Entries = %+v", res.Entries)
	}
}

func TestRun_EchoRule(t *testing.T) {
	t.Parallel()

	p, _ := Resolve(nil, "echo", []string{"hi"})

	_, echoed, _ := runPipeline(t, &fakeEnv{}, p, formatter.Context{})
	if len(echoed) != 0 {
		t.Errorf("single entry without verbosity should not echo: %q", echoed)
	}

	_, echoed, _ = runPipeline(t, &fakeEnv{}, p, formatter.Context{Verbosity: 1})
	if !slices.Equal(echoed, []string{"cmd [1] | echo hi"}) {
		t.Errorf("echoed = %q", echoed)
	}
}

func TestRun_ExpandsLazily(t *testing.T) {
	t.Parallel()

	scripts := map[string][]string{
		"write": {"python -c \"open('{args}1.txt', 'w')\"", "echo {env:FOOBAR}"},
	}
	p, _ := Resolve(scripts, "write", []string{"test"})
	env := &fakeEnv{}

	res, _, err := runPipeline(t, env, p, formatter.Context{Environ: map[string]string{}})
	if !errors.Is(err, ErrExpansion) || !errors.Is(err, formatter.ErrMissingEnvVar) {
		t.Fatalf("expected expansion error, got %v", err)
	}
	if err.Error() != "Nonexistent environment variable must set a default: FOOBAR" {
		t.Errorf("Error() = %q", err.Error())
	}
	if res.ExitCode != 1 {
		t.Errorf("ExitCode = %d, want 1", res.ExitCode)
	}
	if want := []string{"python -c \"open('test1.txt', 'w')\""}; !slices.Equal(env.entered, want) {
		t.Errorf("entered = %q, want %q", env.entered, want)
	}
}

func TestRun_ContextFields(t *testing.T) {
	t.Parallel()

	p, _ := Resolve(map[string][]string{"show": {"echo {env_name} {matrix:python} {env:FOO}"}}, "show", nil)
	env := &fakeEnv{}
	fctx := formatter.Context{
		Fields:  map[string]string{"env_name": "test.py3.12"},
		Matrix:  map[string]string{"python": "3.12"},
		EnvVars: map[string]string{"FOO": "{env_name}-x"},
	}

	if _, _, err := runPipeline(t, env, p, fctx); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if want := []string{"echo test.py3.12 3.12 test.py3.12-x"}; !slices.Equal(env.entered, want) {
		t.Errorf("entered = %q, want %q", env.entered, want)
	}
	if _, ok := fctx.Fields["args"]; ok {
		t.Error("Run must not mutate the caller's fields")
	}
}

func TestRun_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	p, _ := Resolve(nil, "echo", nil)
	env := &fakeEnv{}
	r := &Runner{Env: env}
	if _, err := r.Run(ctx, Request{Pipeline: p}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if len(env.entered) != 0 {
		t.Error("no entry should run after cancellation")
	}
}
