// SPDX-License-Identifier: MPL-2.0

package script

import (
	"context"
	"log/slog"
	"maps"
	"strings"

	"github.com/envrun/envrun/internal/formatter"
	"github.com/envrun/envrun/internal/shell"
)

type (
	// Environment runs an expanded command line in its activated environment.
	Environment interface {
		Enter(ctx context.Context, line string) (shell.ExitCode, error)
	}

	// Runner executes pipelines sequentially.
	Runner struct {
		Env Environment
		// Echo, when set, receives the "cmd [i] | text" lines.
		Echo func(index int, text string)
	}

	// Request describes one pipeline execution.
	Request struct {
		Pipeline Pipeline
		// Context is the formatter context; its args field is set from the
		// pipeline and its verbosity decides whether entries are echoed.
		Context formatter.Context
	}

	// EntryResult records the outcome of a single entry.
	EntryResult struct {
		Entry    Entry
		Command  string
		ExitCode shell.ExitCode
	}

	// Result is the outcome of a pipeline.
	Result struct {
		// ExitCode is the code of the first failing entry that was not
		// ignored, 1 for an expansion failure, otherwise 0.
		ExitCode shell.ExitCode
		Entries  []EntryResult
	}
)

// Run expands and executes each entry in order. A failing entry without the
// ignore marker stops the pipeline. An expansion failure stops it before the
// entry is spawned and is returned as an *ExpansionError.
func (r *Runner) Run(ctx context.Context, req Request) (Result, error) {
	fctx := req.Context
	fctx.Fields = maps.Clone(req.Context.Fields)
	if fctx.Fields == nil {
		fctx.Fields = make(map[string]string)
	}
	fctx.Fields["args"] = req.Pipeline.Args

	echo := fctx.Verbosity > 0 || len(req.Pipeline.Entries) > 1

	var res Result
	for _, entry := range req.Pipeline.Entries {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		expanded, err := formatter.Format(entry.Template, fctx)
		if err != nil {
			res.ExitCode = 1
			return res, &ExpansionError{Entry: entry, Err: err}
		}
		expanded = strings.TrimSpace(expanded)

		if echo && r.Echo != nil {
			r.Echo(entry.Index, entry.Display(expanded))
		}

		slog.Debug("running pipeline entry", "index", entry.Index, "command", expanded)
		code, err := r.Env.Enter(ctx, expanded)
		res.Entries = append(res.Entries, EntryResult{Entry: entry, Command: expanded, ExitCode: code})
		if err != nil {
			res.ExitCode = 1
			return res, err
		}
		if !code.IsSuccess() && !entry.IgnoreError {
			res.ExitCode = code
			return res, nil
		}
	}
	return res, nil
}
