// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"slices"
	"strings"

	"github.com/envrun/envrun/internal/app/run"
	"github.com/envrun/envrun/internal/compat"
	"github.com/envrun/envrun/internal/matrix"
	"github.com/envrun/envrun/internal/selection"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

// newEnvCommand creates the `envrun env` command tree.
func newEnvCommand(app *App) *cobra.Command {
	envCmd := &cobra.Command{
		Use:   "env",
		Short: "Manage project environments",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	envCmd.AddCommand(&cobra.Command{
		Use:   "create [ENV_NAME]",
		Short: "Create an environment and sync its dependencies",
		Args:  cobra.MaximumNArgs(1),
		RunE: app.handle(func(cmd *cobra.Command, args []string) error {
			s, err := app.newSession(cmd.Context())
			if err != nil {
				return err
			}
			return createEnv(cmd, s, envArg(s, args))
		}),
	})

	envCmd.AddCommand(&cobra.Command{
		Use:   "remove [ENV_NAME]",
		Short: "Remove an environment",
		Args:  cobra.MaximumNArgs(1),
		RunE: app.handle(func(cmd *cobra.Command, args []string) error {
			s, err := app.newSession(cmd.Context())
			if err != nil {
				return err
			}
			return removeEnv(cmd, s, envArg(s, args))
		}),
	})

	envCmd.AddCommand(&cobra.Command{
		Use:   "find [ENV_NAME]",
		Short: "Print the location of an environment",
		Args:  cobra.MaximumNArgs(1),
		RunE: app.handle(func(cmd *cobra.Command, args []string) error {
			s, err := app.newSession(cmd.Context())
			if err != nil {
				return err
			}
			members, _, err := s.orchestrator.Members(envArg(s, args), selection.Selection{})
			if err != nil {
				return err
			}
			for _, m := range members {
				if path := m.Path(); path != "" {
					fmt.Fprintln(app.Stdout, path)
				}
			}
			return nil
		}),
	})

	envCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "List the declared environments",
		Args:  cobra.NoArgs,
		RunE: app.handle(func(cmd *cobra.Command, args []string) error {
			s, err := app.newSession(cmd.Context())
			if err != nil {
				return err
			}
			return showEnvs(app, s)
		}),
	})

	return envCmd
}

func envArg(s *session, args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return s.activeEnv
}

// createEnv creates every compatible instance of name that does not exist
// yet and syncs its dependencies.
func createEnv(cmd *cobra.Command, s *session, name string) error {
	ctx := cmd.Context()
	if err := s.orchestrator.SyncPlugins(ctx); err != nil {
		return err
	}

	members, _, err := s.orchestrator.Members(name, selection.Selection{})
	if err != nil {
		return err
	}
	runnable, skipped, err := compat.Partition(ctx, members)
	if err != nil {
		return err
	}

	for _, m := range runnable {
		if m.Exists() && m.Type() != matrix.TypeSystem {
			s.reporter.Status(fmt.Sprintf("Environment `%s` already exists", m.Name()))
			continue
		}
		if _, err := s.orchestrator.Prepare(ctx, m); err != nil {
			return err
		}
	}

	if len(skipped) > 0 {
		if len(runnable) > 0 {
			s.reporter.Blank()
		}
		s.reporter.Skipped(skipped)
	}
	return nil
}

// removeEnv removes every existing virtual instance of name.
func removeEnv(cmd *cobra.Command, s *session, name string) error {
	members, _, err := s.orchestrator.Members(name, selection.Selection{})
	if err != nil {
		return err
	}
	for _, m := range members {
		if m.Type() != matrix.TypeVirtual || !m.Exists() {
			continue
		}
		s.reporter.Status("Removing environment: " + m.Name())
		if err := m.Remove(cmd.Context()); err != nil {
			return fmt.Errorf("remove environment %s: %w", m.Name(), err)
		}
	}
	return nil
}

// showEnvs renders the environment catalog as a table.
func showEnvs(app *App, s *session) error {
	catalog, err := matrix.NewCatalog(s.project.Tool)
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(catalog.Names()))
	for _, name := range catalog.Names() {
		members, cfg, err := s.orchestrator.Members(name, selection.Selection{})
		if err != nil {
			return err
		}
		rows = append(rows, envRow(name, cfg, members))
	}

	st := newStyles(lipgloss.NewRenderer(app.Stdout))
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(st.subtitle).
		Headers("Name", "Type", "Envs", "Dependencies", "Scripts").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return st.title.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
	fmt.Fprintln(app.Stdout, t.Render())
	return nil
}

func envRow(name string, cfg matrix.Config, members []run.Member) []string {
	var (
		typ     string
		deps    []string
		scripts []string
		names   []string
	)
	for i, m := range members {
		if i == 0 {
			typ = m.Type()
			deps = m.Instance.Settings.Dependencies
			for script := range m.Instance.Settings.Scripts {
				scripts = append(scripts, script)
			}
		}
		if cfg.HasMatrix {
			names = append(names, m.Name())
		}
	}
	slices.Sort(scripts)
	return []string{
		name,
		typ,
		strings.Join(names, "\n"),
		strings.Join(deps, "\n"),
		strings.Join(scripts, "\n"),
	}
}
