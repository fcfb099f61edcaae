// SPDX-License-Identifier: MPL-2.0

// Package config handles application configuration using Viper with CUE as the file format.
//
// Configuration is loaded from ~/.config/envrun/config.cue (or XDG equivalent on Linux,
// ~/Library/Application Support/envrun/config.cue on macOS, %APPDATA%\envrun\config.cue
// on Windows). Every key can be overridden with an ENVRUN_-prefixed environment
// variable, e.g. ENVRUN_DATA_DIR or ENVRUN_PYTHON_INSTALL_DIR.
//
// Configuration files are validated against the embedded CUE schema (config_schema.cue).
package config
