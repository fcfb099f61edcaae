// SPDX-License-Identifier: MPL-2.0

package matrix

import (
	"fmt"
	"reflect"
	"slices"

	"github.com/envrun/envrun/pkg/project"

	"github.com/go-viper/mapstructure/v2"
)

const (
	// TypeVirtual environments live in their own virtual environment directory.
	TypeVirtual = "virtual"
	// TypeSystem environments run against the current interpreter and PATH.
	TypeSystem = "system"
)

var (
	listOptions = []string{
		"dependencies",
		"extra-dependencies",
		"features",
		"platforms",
		"pre-install-commands",
		"post-install-commands",
	}
	mapOptions = []string{"env-vars", "scripts"}
)

// Settings are the fully resolved options of an environment instance.
type Settings struct {
	Type                string              `mapstructure:"type"`
	Description         string              `mapstructure:"description"`
	Dependencies        []string            `mapstructure:"dependencies"`
	ExtraDependencies   []string            `mapstructure:"extra-dependencies"`
	Features            []string            `mapstructure:"features"`
	Platforms           []string            `mapstructure:"platforms"`
	Python              string              `mapstructure:"python"`
	Scripts             map[string][]string `mapstructure:"scripts"`
	EnvVars             map[string]string   `mapstructure:"env-vars"`
	SkipInstall         bool                `mapstructure:"skip-install"`
	DevMode             bool                `mapstructure:"dev-mode"`
	SkipDependencyCheck bool                `mapstructure:"skip-dependency-check"`
	PreInstallCommands  []string            `mapstructure:"pre-install-commands"`
	PostInstallCommands []string            `mapstructure:"post-install-commands"`
}

// DefaultSettings returns the settings of an environment that declares nothing.
func DefaultSettings() Settings {
	return Settings{Type: TypeVirtual, DevMode: true}
}

// AllDependencies returns the declared dependencies followed by the extra ones.
func (s Settings) AllDependencies() []string {
	return slices.Concat(s.Dependencies, s.ExtraDependencies)
}

// DecodeSettings decodes a plain option map into Settings, starting from
// DefaultSettings. Unknown options are ignored so plugins can declare their own.
func DecodeSettings(env string, options map[string]any) (Settings, error) {
	settings := DefaultSettings()
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			stringToSliceHook,
			scalarToStringHook,
		),
		Result:  &settings,
		TagName: "mapstructure",
	})
	if err != nil {
		return Settings{}, fmt.Errorf("create settings decoder: %w", err)
	}
	if err := dec.Decode(options); err != nil {
		return Settings{}, &ConfigError{Env: env, Err: err}
	}

	switch settings.Type {
	case TypeVirtual, TypeSystem:
	default:
		return Settings{}, &ConfigError{Env: env, Field: "type", Err: fmt.Errorf("must be one of: %s, %s (got %q)", TypeVirtual, TypeSystem, settings.Type)}
	}
	return settings, nil
}

// stringToSliceHook lets list options be written as a single string.
func stringToSliceHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() == reflect.String && to.Kind() == reflect.Slice && to.Elem().Kind() == reflect.String {
		return []string{data.(string)}, nil
	}
	return data, nil
}

// scalarToStringHook formats numbers and booleans written where a string is
// expected, e.g. python = 3.12 or env-vars values.
func scalarToStringHook(from, to reflect.Type, data any) (any, error) {
	if to.Kind() != reflect.String {
		return data, nil
	}
	switch from.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64, reflect.Bool:
		return project.Scalar(data), nil
	}
	return data, nil
}

func optionKind(option string) string {
	switch {
	case slices.Contains(listOptions, option):
		return "list"
	case slices.Contains(mapOptions, option):
		return "map"
	default:
		return "scalar"
	}
}
