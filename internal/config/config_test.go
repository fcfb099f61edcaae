// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/envrun/envrun/internal/issue"
	"github.com/envrun/envrun/internal/shell"
	"github.com/envrun/envrun/internal/testutil"
)

// isolate points every lookup at temporary directories and clears ENVRUN_*
// overrides. Tests using it cannot run in parallel.
func isolate(t *testing.T) (cfgDir, dataDir string) {
	t.Helper()
	cfgDir = t.TempDir()
	dataDir = t.TempDir()
	SetConfigDirOverride(cfgDir)
	SetDataDirOverride(dataDir)
	t.Cleanup(Reset)
	for _, key := range []string{
		"ENVRUN_DATA_DIR", "ENVRUN_DEFAULT_ENV", "ENVRUN_SHELL",
		"ENVRUN_PYTHON_INSTALL_DIR", "ENVRUN_PYTHON_SOURCE_URL",
		"ENVRUN_UI_VERBOSITY", "ENVRUN_UI_COLOR_SCHEME",
	} {
		t.Setenv(key, "")
	}
	return cfgDir, dataDir
}

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, ConfigFileName+"."+ConfigFileExt)
	testutil.MustWriteFile(t, path, content)
	return path
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if cfg.DefaultEnv != "default" {
		t.Errorf("DefaultEnv = %q, want default", cfg.DefaultEnv)
	}
	if cfg.Shell != shell.KindNative {
		t.Errorf("Shell = %q, want native", cfg.Shell)
	}
	if cfg.UI.ColorScheme != ColorSchemeAuto {
		t.Errorf("ColorScheme = %q, want auto", cfg.UI.ColorScheme)
	}
	if valid, errs := cfg.IsValid(); !valid {
		t.Errorf("DefaultConfig().IsValid() = false: %v", errs)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfgDir, dataDir := isolate(t)

	cfg, path, err := loadWithOptions(context.Background(), LoadOptions{ConfigDirPath: cfgDir})
	if err != nil {
		t.Fatalf("loadWithOptions() error = %v", err)
	}
	if path != "" {
		t.Errorf("resolved path = %q, want none", path)
	}
	if string(cfg.DataDir) != dataDir {
		t.Errorf("DataDir = %q, want %q", cfg.DataDir, dataDir)
	}
	if want := filepath.Join(dataDir, "pythons"); string(cfg.Python.InstallDir) != want {
		t.Errorf("Python.InstallDir = %q, want %q", cfg.Python.InstallDir, want)
	}
	if cfg.DefaultEnv != "default" {
		t.Errorf("DefaultEnv = %q, want default", cfg.DefaultEnv)
	}
}

func TestLoad_File(t *testing.T) {
	cfgDir, _ := isolate(t)
	data := filepath.Join(t.TempDir(), "data")
	path := writeConfig(t, cfgDir, `
data_dir: "`+filepath.ToSlash(data)+`"
default_env: "test"
shell: "virtual"
python: install_dir: "/opt/pythons"
ui: {
	verbosity: 2
	color_scheme: "dark"
}
`)

	cfg, resolved, err := loadWithOptions(context.Background(), LoadOptions{ConfigDirPath: cfgDir})
	if err != nil {
		t.Fatalf("loadWithOptions() error = %v", err)
	}
	if resolved != path {
		t.Errorf("resolved path = %q, want %q", resolved, path)
	}
	if string(cfg.DataDir) != filepath.ToSlash(data) {
		t.Errorf("DataDir = %q", cfg.DataDir)
	}
	if cfg.DefaultEnv != "test" || cfg.Shell != shell.KindVirtual {
		t.Errorf("DefaultEnv/Shell = %q/%q", cfg.DefaultEnv, cfg.Shell)
	}
	if cfg.Python.InstallDir != "/opt/pythons" {
		t.Errorf("Python.InstallDir = %q", cfg.Python.InstallDir)
	}
	if cfg.UI.Verbosity != 2 || cfg.UI.ColorScheme != ColorSchemeDark {
		t.Errorf("UI = %+v", cfg.UI)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	cfgDir, _ := isolate(t)
	writeConfig(t, cfgDir, `default_env: "file"`+"\n")
	t.Setenv("ENVRUN_DEFAULT_ENV", "fromenv")
	t.Setenv("ENVRUN_PYTHON_SOURCE_URL", "https://mirror.example/python")

	cfg, _, err := loadWithOptions(context.Background(), LoadOptions{ConfigDirPath: cfgDir})
	if err != nil {
		t.Fatalf("loadWithOptions() error = %v", err)
	}
	if cfg.DefaultEnv != "fromenv" {
		t.Errorf("DefaultEnv = %q, want fromenv", cfg.DefaultEnv)
	}
	if cfg.Python.SourceURL != "https://mirror.example/python" {
		t.Errorf("Python.SourceURL = %q", cfg.Python.SourceURL)
	}
}

func TestLoad_InvalidEnvOverride(t *testing.T) {
	cfgDir, _ := isolate(t)
	t.Setenv("ENVRUN_SHELL", "fish")

	_, _, err := loadWithOptions(context.Background(), LoadOptions{ConfigDirPath: cfgDir})
	if err == nil {
		t.Fatal("expected error for invalid shell override")
	}
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("error = %v, want ErrInvalidConfig", err)
	}
	if !strings.Contains(err.Error(), `"fish"`) {
		t.Errorf("error %q does not name the value", err)
	}
}

func TestLoad_SchemaViolation(t *testing.T) {
	cfgDir, _ := isolate(t)

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"unknown field", "container_engine: \"podman\"\n", "container_engine"},
		{"bad shell", "shell: \"fish\"\n", "fish"},
		{"verbosity range", "ui: verbosity: 9\n", "verbosity"},
		{"syntax", "data_dir: [\n", "config.cue"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			writeConfig(t, cfgDir, tt.content)
			_, _, err := loadWithOptions(context.Background(), LoadOptions{ConfigDirPath: cfgDir})
			if err == nil {
				t.Fatal("expected error")
			}
			var ae *issue.ActionableError
			if !errors.As(err, &ae) {
				t.Fatalf("error type = %T, want *issue.ActionableError", err)
			}
			if ae.Operation != "load configuration" {
				t.Errorf("Operation = %q", ae.Operation)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err.Error(), tt.want)
			}
		})
	}
}

func TestLoad_ExplicitFileMissing(t *testing.T) {
	isolate(t)

	_, _, err := loadWithOptions(context.Background(), LoadOptions{
		ConfigFilePath: filepath.Join(t.TempDir(), "missing.cue"),
	})
	if err == nil || !strings.Contains(err.Error(), "config file not found") {
		t.Fatalf("error = %v, want config file not found", err)
	}
}

func TestLoad_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := loadWithOptions(ctx, LoadOptions{}); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestProvider_Path(t *testing.T) {
	cfgDir, _ := isolate(t)
	p := NewProvider()

	path, err := p.Path(LoadOptions{ConfigDirPath: cfgDir})
	if err != nil || path != "" {
		t.Fatalf("Path() = %q, %v; want empty", path, err)
	}

	want := writeConfig(t, cfgDir, "shell: \"native\"\n")
	path, err = p.Path(LoadOptions{ConfigDirPath: cfgDir})
	if err != nil || path != want {
		t.Fatalf("Path() = %q, %v; want %q", path, err, want)
	}
}

func TestGenerateCUE_RoundTrip(t *testing.T) {
	cfgDir, _ := isolate(t)

	cfg := DefaultConfig()
	cfg.DataDir = "/srv/envrun"
	cfg.Shell = shell.KindVirtual
	cfg.Python.SourceURL = "https://mirror.example/python"
	cfg.UI.Verbosity = -1
	writeConfig(t, cfgDir, GenerateCUE(cfg))

	got, _, err := loadWithOptions(context.Background(), LoadOptions{ConfigDirPath: cfgDir})
	if err != nil {
		t.Fatalf("generated config does not load: %v", err)
	}
	if got.DataDir != cfg.DataDir || got.Shell != cfg.Shell || got.UI.Verbosity != -1 {
		t.Errorf("loaded %+v, want %+v", got, cfg)
	}
	if got.Python.SourceURL != cfg.Python.SourceURL {
		t.Errorf("SourceURL = %q", got.Python.SourceURL)
	}
}

func TestCreateDefaultConfig(t *testing.T) {
	cfgDir, _ := isolate(t)

	path, err := CreateDefaultConfig()
	if err != nil {
		t.Fatalf("CreateDefaultConfig() error = %v", err)
	}
	if want := filepath.Join(cfgDir, "config.cue"); path != want {
		t.Errorf("path = %q, want %q", path, want)
	}
	if err := os.WriteFile(path, []byte("shell: \"virtual\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	// A second call keeps the existing file.
	if _, err := CreateDefaultConfig(); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "virtual") {
		t.Errorf("existing config was overwritten: %s", data)
	}
}

func TestTypes_IsValid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		valid   func() (bool, []error)
		want    bool
		wantErr error
	}{
		{"color scheme", ColorSchemeLight.IsValid, true, nil},
		{"bad color scheme", ColorScheme("pink").IsValid, false, ErrInvalidColorScheme},
		{"verbosity", Verbosity(3).IsValid, true, nil},
		{"bad verbosity", Verbosity(-4).IsValid, false, ErrInvalidVerbosity},
		{"empty dir", DirPath("").IsValid, true, nil},
		{"blank dir", DirPath("  ").IsValid, false, ErrInvalidDirPath},
		{"env name", EnvName("py3.12").IsValid, true, nil},
		{"env name with colon", EnvName("a:b").IsValid, false, ErrInvalidEnvName},
		{"empty env name", EnvName("").IsValid, false, ErrInvalidEnvName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, errs := tt.valid()
			if got != tt.want {
				t.Fatalf("IsValid() = %v, want %v", got, tt.want)
			}
			if tt.wantErr != nil && (len(errs) != 1 || !errors.Is(errs[0], tt.wantErr)) {
				t.Errorf("errors = %v, want %v", errs, tt.wantErr)
			}
		})
	}
}

func TestConfig_IsValidCollects(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Shell = "fish"
	cfg.UI.ColorScheme = "pink"

	valid, errs := cfg.IsValid()
	if valid || len(errs) != 1 {
		t.Fatalf("IsValid() = %v, %v", valid, errs)
	}
	var cfgErr *InvalidConfigError
	if !errors.As(errs[0], &cfgErr) {
		t.Fatalf("error type = %T", errs[0])
	}
	if len(cfgErr.FieldErrors) != 2 {
		t.Errorf("FieldErrors = %v, want 2 entries", cfgErr.FieldErrors)
	}
	if !errors.Is(errs[0], ErrInvalidConfig) {
		t.Error("errors.Is(ErrInvalidConfig) = false")
	}
}
