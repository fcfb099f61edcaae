// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/envrun/envrun/internal/config"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

// newConfigCommand creates the `envrun config` command tree.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage envrun configuration",
		Long: `Manage envrun configuration.

Configuration is stored in:
  - Linux: ~/.config/envrun/config.cue
  - macOS: ~/Library/Application Support/envrun/config.cue
  - Windows: %APPDATA%\envrun\config.cue

Every key can be overridden with an ENVRUN_ environment variable, for
example ENVRUN_DATA_DIR or ENVRUN_UI_VERBOSITY.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: app.handle(func(cmd *cobra.Command, args []string) error {
			cfg, _, err := app.loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			path, err := app.Config.Path(app.loadOptions())
			if err != nil {
				return err
			}
			showConfig(app, cfg, path)
			return nil
		}),
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show the configuration file path",
		Args:  cobra.NoArgs,
		RunE: app.handle(func(cmd *cobra.Command, args []string) error {
			path, err := app.Config.Path(app.loadOptions())
			if err != nil {
				return err
			}
			if path == "" {
				dir, err := config.ConfigDir()
				if err != nil {
					return err
				}
				path = filepath.Join(dir, config.ConfigFileName+"."+config.ConfigFileExt)
			}
			fmt.Fprintln(app.Stdout, path)
			return nil
		}),
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create the default configuration file",
		Args:  cobra.NoArgs,
		RunE: app.handle(func(cmd *cobra.Command, args []string) error {
			path, err := config.CreateDefaultConfig()
			if err != nil {
				return err
			}
			st := newStyles(lipgloss.NewRenderer(app.Stdout))
			fmt.Fprintf(app.Stdout, "%s Configuration at %s\n", st.success.Render("✓"), path)
			return nil
		}),
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output the effective configuration as CUE",
		Args:  cobra.NoArgs,
		RunE: app.handle(func(cmd *cobra.Command, args []string) error {
			cfg, _, err := app.loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprint(app.Stdout, config.GenerateCUE(cfg))
			return nil
		}),
	})

	return cfgCmd
}

func showConfig(app *App, cfg *config.Config, path string) {
	st := newStyles(lipgloss.NewRenderer(app.Stdout))
	w := app.Stdout

	fmt.Fprintln(w, st.title.Render("Current Configuration"))
	fmt.Fprintln(w)
	if path != "" {
		fmt.Fprintf(w, "%s: %s\n", st.key.Render("Config file"), path)
	} else {
		fmt.Fprintf(w, "%s: %s\n", st.key.Render("Config file"), st.subtitle.Render("(using defaults)"))
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "%s: %s\n", st.key.Render("data_dir"), st.success.Render(cfg.DataDir.String()))
	fmt.Fprintf(w, "%s: %s\n", st.key.Render("default_env"), st.success.Render(cfg.DefaultEnv.String()))
	fmt.Fprintf(w, "%s: %s\n", st.key.Render("shell"), st.success.Render(cfg.Shell.String()))

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", st.key.Render("python"))
	fmt.Fprintf(w, "  install_dir: %s\n", st.success.Render(cfg.Python.InstallDir.String()))
	sourceURL := cfg.Python.SourceURL
	if sourceURL == "" {
		sourceURL = st.subtitle.Render("(built-in)")
	}
	fmt.Fprintf(w, "  source_url: %s\n", sourceURL)

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", st.key.Render("ui"))
	fmt.Fprintf(w, "  verbosity: %s\n", st.success.Render(fmt.Sprintf("%d", cfg.UI.Verbosity)))
	fmt.Fprintf(w, "  color_scheme: %s\n", st.success.Render(cfg.UI.ColorScheme.String()))
}
