// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"io"
	"log/slog"

	"github.com/charmbracelet/log"
)

// configureLogging installs a charmbracelet/log handler as the slog default.
// Library packages only log at debug level, which -vv turns on; otherwise
// only warnings reach the terminal.
func configureLogging(w io.Writer, verbosity int) {
	level := log.WarnLevel
	switch {
	case verbosity >= 2:
		level = log.DebugLevel
	case verbosity < 0:
		level = log.ErrorLevel
	}

	logger := log.NewWithOptions(w, log.Options{
		Prefix: "envrun",
		Level:  level,
	})
	slog.SetDefault(slog.New(logger))
}
