// SPDX-License-Identifier: MPL-2.0

package matrix

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoVariables is the sentinel error wrapped by NoVariablesError.
	ErrNoVariables = errors.New("no matrix variables")
	// ErrInvalidConfig is the sentinel error wrapped by ConfigError.
	ErrInvalidConfig = errors.New("invalid environment config")
	// ErrUnknownEnvironment is the sentinel error wrapped by UnknownEnvironmentError.
	ErrUnknownEnvironment = errors.New("unknown environment")
	// ErrTemplateCycle is the sentinel error wrapped by TemplateCycleError.
	ErrTemplateCycle = errors.New("template inheritance cycle")
	// ErrDuplicateInstance is the sentinel error wrapped by DuplicateInstanceError.
	ErrDuplicateInstance = errors.New("duplicate environment instance")
)

type (
	// NoVariablesError reports a matrix that is declared but defines no variables.
	NoVariablesError struct {
		Env string
	}

	// ConfigError reports a malformed option of a declared environment.
	ConfigError struct {
		Env   string
		Field string
		Err   error
	}

	// UnknownEnvironmentError reports a reference to an environment that is
	// not declared.
	UnknownEnvironmentError struct {
		Env string
	}

	// TemplateCycleError reports environments whose templates inherit from
	// each other.
	TemplateCycleError struct {
		Chain []string
	}

	// DuplicateInstanceError reports two matrix assignments producing the
	// same instance name.
	DuplicateInstanceError struct {
		Name string
	}
)

// Error implements the error interface.
func (e *NoVariablesError) Error() string {
	return "No variables defined for matrix: " + e.Env
}

// Unwrap returns ErrNoVariables for errors.Is() compatibility.
func (e *NoVariablesError) Unwrap() error { return ErrNoVariables }

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Env == "" {
		return e.Err.Error()
	}
	if e.Field == "" {
		return fmt.Sprintf("Environment `%s`: %v", e.Env, e.Err)
	}
	return fmt.Sprintf("Field `tool.envrun.envs.%s.%s` %v", e.Env, e.Field, e.Err)
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *ConfigError) Unwrap() error { return ErrInvalidConfig }

// Error implements the error interface.
func (e *UnknownEnvironmentError) Error() string {
	return fmt.Sprintf("Environment `%s` is not defined", e.Env)
}

// Unwrap returns ErrUnknownEnvironment for errors.Is() compatibility.
func (e *UnknownEnvironmentError) Unwrap() error { return ErrUnknownEnvironment }

// Error implements the error interface.
func (e *TemplateCycleError) Error() string {
	return "Circular inheritance detected for field `template`: " + strings.Join(e.Chain, " -> ")
}

// Unwrap returns ErrTemplateCycle for errors.Is() compatibility.
func (e *TemplateCycleError) Unwrap() error { return ErrTemplateCycle }

// Error implements the error interface.
func (e *DuplicateInstanceError) Error() string {
	return "Duplicate environment name in matrix: " + e.Name
}

// Unwrap returns ErrDuplicateInstance for errors.Is() compatibility.
func (e *DuplicateInstanceError) Unwrap() error { return ErrDuplicateInstance }
