// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"github.com/envrun/envrun/internal/app/run"

	"github.com/spf13/cobra"
)

func newRunCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "run [+NAME=VALUE[,VALUE]...] [-NAME[=VALUE]...] [ENV:]COMMAND [ARGS...]",
		Short: "Run a script or command within environments",
		Long: `Run a script or command within environments.

The target names a script of the environment or any literal command. Without
an ENV: prefix the active environment is used (ENVRUN_ENV_ACTIVE, then
default_env from the configuration). An empty prefix such as ':python -V'
runs in the system environment.

Matrix environments run the command in every instance. Leading selection
tokens narrow the instances: +NAME=VALUE keeps, -NAME=VALUE drops, and -NAME
drops every instance carrying the variable. Pass an existing .py file with
an inline '# /// script' block to run it in its own environment.`,
		// Selection tokens look like flags and everything after the target
		// belongs to the command.
		DisableFlagParsing: true,
		RunE: app.handle(func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 && (args[0] == "-h" || args[0] == "--help") {
				return cmd.Help()
			}

			s, err := app.newSession(cmd.Context())
			if err != nil {
				return err
			}
			res, err := s.orchestrator.Run(cmd.Context(), run.Invocation{Args: args, ActiveEnv: s.activeEnv})
			if err != nil {
				return err
			}
			if !res.ExitCode.IsSuccess() {
				return &ExitError{Code: res.ExitCode}
			}
			return nil
		}),
	}
}
