// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/envrun/envrun/internal/shell"
)

const (
	// ColorSchemeAuto detects the terminal color scheme automatically.
	ColorSchemeAuto ColorScheme = "auto"
	// ColorSchemeDark forces dark color scheme.
	ColorSchemeDark ColorScheme = "dark"
	// ColorSchemeLight forces light color scheme.
	ColorSchemeLight ColorScheme = "light"

	// MinVerbosity and MaxVerbosity bound the verbosity level.
	MinVerbosity Verbosity = -3
	MaxVerbosity Verbosity = 3
)

var (
	// ErrInvalidColorScheme is returned when a ColorScheme value is not recognized.
	ErrInvalidColorScheme = errors.New("invalid color scheme")
	// ErrInvalidVerbosity is returned when a Verbosity is out of range.
	ErrInvalidVerbosity = errors.New("invalid verbosity")
	// ErrInvalidDirPath is returned when a DirPath value is whitespace-only.
	ErrInvalidDirPath = errors.New("invalid directory path")
	// ErrInvalidEnvName is returned when the default environment name is malformed.
	ErrInvalidEnvName = errors.New("invalid environment name")
	// ErrInvalidPythonConfig is the sentinel error wrapped by InvalidPythonConfigError.
	ErrInvalidPythonConfig = errors.New("invalid python config")
	// ErrInvalidUIConfig is the sentinel error wrapped by InvalidUIConfigError.
	ErrInvalidUIConfig = errors.New("invalid UI config")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// ColorScheme specifies the terminal color scheme preference.
	ColorScheme string

	// InvalidColorSchemeError is returned when a ColorScheme value is not recognized.
	InvalidColorSchemeError struct {
		Value ColorScheme
	}

	// Verbosity is the default output level; negative values are quieter.
	Verbosity int

	// InvalidVerbosityError is returned when a Verbosity is out of range.
	InvalidVerbosityError struct {
		Value Verbosity
	}

	// DirPath is a filesystem directory. The zero value means "use the default".
	DirPath string

	// InvalidDirPathError is returned when a DirPath value is non-empty but
	// whitespace-only.
	InvalidDirPathError struct {
		Value DirPath
	}

	// EnvName names an environment declared by the project.
	EnvName string

	// InvalidEnvNameError is returned when an EnvName is empty or contains a
	// character that cannot appear in a target prefix.
	InvalidEnvNameError struct {
		Value EnvName
	}

	// InvalidPythonConfigError collects PythonConfig field errors.
	InvalidPythonConfigError struct {
		FieldErrors []error
	}

	// InvalidUIConfigError collects UIConfig field errors.
	InvalidUIConfigError struct {
		FieldErrors []error
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	// It wraps ErrInvalidConfig for errors.Is() compatibility and collects
	// field-level validation errors from all sub-components.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the application configuration.
	Config struct {
		// DataDir is the root of environments, metadata and managed Pythons.
		DataDir DirPath `json:"data_dir" mapstructure:"data_dir"`
		// DefaultEnv is the environment used when a target has no ENV: prefix.
		DefaultEnv EnvName `json:"default_env" mapstructure:"default_env"`
		// Shell selects the shell that runs pipeline entries.
		Shell shell.Kind `json:"shell" mapstructure:"shell"`
		// Python configures managed Python distributions.
		Python PythonConfig `json:"python" mapstructure:"python"`
		// UI configures the user interface.
		UI UIConfig `json:"ui" mapstructure:"ui"`
	}

	// PythonConfig configures managed Python distributions.
	PythonConfig struct {
		// InstallDir holds installed distributions; empty means <data_dir>/pythons.
		InstallDir DirPath `json:"install_dir" mapstructure:"install_dir"`
		// SourceURL is the download base URL; empty means the built-in source.
		SourceURL string `json:"source_url" mapstructure:"source_url"`
	}

	// UIConfig configures the user interface.
	UIConfig struct {
		Verbosity   Verbosity   `json:"verbosity" mapstructure:"verbosity"`
		ColorScheme ColorScheme `json:"color_scheme" mapstructure:"color_scheme"`
	}
)

// String returns the string representation of the ColorScheme.
func (cs ColorScheme) String() string { return string(cs) }

// IsValid returns whether the ColorScheme is one of the defined color schemes,
// and a list of validation errors if it is not.
func (cs ColorScheme) IsValid() (bool, []error) {
	switch cs {
	case ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight:
		return true, nil
	default:
		return false, []error{&InvalidColorSchemeError{Value: cs}}
	}
}

// Error implements the error interface for InvalidColorSchemeError.
func (e *InvalidColorSchemeError) Error() string {
	return fmt.Sprintf("invalid color scheme %q (valid: auto, dark, light)", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidColorSchemeError) Unwrap() error { return ErrInvalidColorScheme }

// IsValid reports whether the verbosity lies within [MinVerbosity, MaxVerbosity].
func (v Verbosity) IsValid() (bool, []error) {
	if v < MinVerbosity || v > MaxVerbosity {
		return false, []error{&InvalidVerbosityError{Value: v}}
	}
	return true, nil
}

// Error implements the error interface for InvalidVerbosityError.
func (e *InvalidVerbosityError) Error() string {
	return fmt.Sprintf("invalid verbosity %d (valid: %d to %d)", e.Value, MinVerbosity, MaxVerbosity)
}

// Unwrap returns ErrInvalidVerbosity for errors.Is() compatibility.
func (e *InvalidVerbosityError) Unwrap() error { return ErrInvalidVerbosity }

// String returns the string representation of the DirPath.
func (p DirPath) String() string { return string(p) }

// IsValid returns whether the DirPath is valid.
// The zero value ("") is valid; non-zero values must not be whitespace-only.
func (p DirPath) IsValid() (bool, []error) {
	if p != "" && strings.TrimSpace(string(p)) == "" {
		return false, []error{&InvalidDirPathError{Value: p}}
	}
	return true, nil
}

// Error implements the error interface for InvalidDirPathError.
func (e *InvalidDirPathError) Error() string {
	return fmt.Sprintf("invalid directory path %q: non-empty value must not be whitespace-only", e.Value)
}

// Unwrap returns ErrInvalidDirPath for errors.Is() compatibility.
func (e *InvalidDirPathError) Unwrap() error { return ErrInvalidDirPath }

// String returns the string representation of the EnvName.
func (n EnvName) String() string { return string(n) }

// IsValid reports whether the name can be used as an ENV: target prefix.
func (n EnvName) IsValid() (bool, []error) {
	if n == "" || strings.ContainsAny(string(n), ": \t\n") {
		return false, []error{&InvalidEnvNameError{Value: n}}
	}
	return true, nil
}

// Error implements the error interface for InvalidEnvNameError.
func (e *InvalidEnvNameError) Error() string {
	return fmt.Sprintf("invalid environment name %q", e.Value)
}

// Unwrap returns ErrInvalidEnvName for errors.Is() compatibility.
func (e *InvalidEnvNameError) Unwrap() error { return ErrInvalidEnvName }

// IsValid returns whether the PythonConfig has valid fields.
func (c PythonConfig) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.InstallDir.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidPythonConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidPythonConfigError.
func (e *InvalidPythonConfigError) Error() string {
	return fmt.Sprintf("invalid python config: %d field error(s)", len(e.FieldErrors))
}

// Unwrap returns ErrInvalidPythonConfig for errors.Is() compatibility.
func (e *InvalidPythonConfigError) Unwrap() error { return ErrInvalidPythonConfig }

// IsValid returns whether the UIConfig has valid fields.
func (c UIConfig) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.Verbosity.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.ColorScheme.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidUIConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidUIConfigError.
func (e *InvalidUIConfigError) Error() string {
	return fmt.Sprintf("invalid UI config: %d field error(s)", len(e.FieldErrors))
}

// Unwrap returns ErrInvalidUIConfig for errors.Is() compatibility.
func (e *InvalidUIConfigError) Unwrap() error { return ErrInvalidUIConfig }

// IsValid returns whether the Config has valid fields.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.DataDir.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.DefaultEnv.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.Shell.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.Python.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.UI.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	msgs := make([]string, len(e.FieldErrors))
	for i, err := range e.FieldErrors {
		msgs[i] = err.Error()
	}
	return "invalid config: " + strings.Join(msgs, "; ")
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		DefaultEnv: "default",
		Shell:      shell.KindNative,
		UI: UIConfig{
			ColorScheme: ColorSchemeAuto,
		},
	}
}
