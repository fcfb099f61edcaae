// SPDX-License-Identifier: MPL-2.0

package matrix

import (
	"errors"
	"fmt"
	"slices"

	"github.com/envrun/envrun/pkg/project"
)

// DefaultEnv is the environment every project has, declared or not.
const DefaultEnv = "default"

const (
	optionMatrix    = "matrix"
	optionOverrides = "overrides"
	optionTemplate  = "template"
	optionScripts   = "scripts"
)

type (
	// Variable is one matrix variable and its values in declaration order.
	Variable struct {
		Name   string
		Values []string
	}

	// Block is one matrix block: variables in declaration order.
	Block []Variable

	// Config is the declared configuration of a named environment, after
	// template inheritance.
	Config struct {
		Name     string
		Template string
		// Options holds every option except matrix, overrides and template.
		Options *project.Table
		// HasMatrix is true when a matrix key was declared, even if empty.
		HasMatrix bool
		Matrix    []Block
		Overrides []Rule
	}

	// Catalog holds the resolved configurations of all declared environments.
	Catalog struct {
		names   []string
		configs map[string]Config
	}
)

// ParseConfig reads the raw table of one environment without resolving its
// template.
func ParseConfig(name string, raw *project.Table) (Config, error) {
	cfg := Config{
		Name:    name,
		Options: raw.Without(optionMatrix, optionOverrides, optionTemplate),
	}

	if v, ok := raw.Get(optionTemplate); ok {
		tmpl, isString := v.(string)
		if !isString {
			return Config{}, &ConfigError{Env: name, Field: optionTemplate, Err: errors.New("must be a string")}
		}
		cfg.Template = tmpl
	} else if name != DefaultEnv {
		cfg.Template = DefaultEnv
	}

	if v, ok := raw.Get(optionMatrix); ok {
		blocks, err := parseMatrix(name, v)
		if err != nil {
			return Config{}, err
		}
		cfg.HasMatrix = true
		cfg.Matrix = blocks
	}

	if overrides := raw.Table(optionOverrides); overrides != nil {
		rules, err := parseOverrides(name, overrides)
		if err != nil {
			return Config{}, err
		}
		cfg.Overrides = rules
	} else if raw.Has(optionOverrides) {
		return Config{}, &ConfigError{Env: name, Field: optionOverrides, Err: errors.New("must be a table")}
	}

	return cfg, nil
}

func parseMatrix(env string, v any) ([]Block, error) {
	items, ok := v.([]any)
	if !ok {
		return nil, &ConfigError{Env: env, Field: optionMatrix, Err: errors.New("must be an array of tables")}
	}
	blocks := make([]Block, 0, len(items))
	for i, item := range items {
		tbl, isTable := item.(*project.Table)
		if !isTable {
			return nil, &ConfigError{Env: env, Field: fmt.Sprintf("matrix[%d]", i), Err: errors.New("must be a table")}
		}
		block := make(Block, 0, tbl.Len())
		for _, name := range tbl.Keys() {
			raw, _ := tbl.Get(name)
			values := project.Strings(raw)
			if len(values) == 0 {
				return nil, &ConfigError{Env: env, Field: fmt.Sprintf("matrix[%d].%s", i, name), Err: errors.New("must be a non-empty array")}
			}
			block = append(block, Variable{Name: name, Values: values})
		}
		blocks = append(blocks, block)
	}
	return blocks, nil
}

// NewCatalog resolves every environment declared in the [tool.envrun] table.
// The default environment is always present and listed first. Global scripts
// from [tool.envrun.scripts] sit beneath each environment's own scripts.
func NewCatalog(tool *project.Table) (*Catalog, error) {
	envs := tool.Table("envs")
	if envs == nil && tool.Has("envs") {
		return nil, &ConfigError{Err: errors.New("Field `tool.envrun.envs` must be a table")}
	}

	raw := map[string]*project.Table{DefaultEnv: project.NewTable(nil)}
	names := []string{DefaultEnv}
	for _, name := range envs.Keys() {
		tbl := envs.Table(name)
		if tbl == nil {
			return nil, &ConfigError{Env: name, Err: errors.New("must be a table")}
		}
		raw[name] = tbl
		if name != DefaultEnv {
			names = append(names, name)
		}
	}

	parsed := make(map[string]Config, len(raw))
	for _, name := range names {
		cfg, err := ParseConfig(name, raw[name])
		if err != nil {
			return nil, err
		}
		parsed[name] = cfg
	}

	c := &Catalog{names: names, configs: make(map[string]Config, len(parsed))}
	for _, name := range names {
		if _, err := c.resolve(name, parsed, nil); err != nil {
			return nil, err
		}
	}

	if global := tool.Table(optionScripts); global != nil {
		for _, name := range names {
			cfg := c.configs[name]
			cfg.Options = withGlobalScripts(cfg.Options, global)
			c.configs[name] = cfg
		}
	}
	return c, nil
}

// resolve merges the options of name over those of its template chain.
func (c *Catalog) resolve(name string, parsed map[string]Config, chain []string) (Config, error) {
	if cfg, ok := c.configs[name]; ok {
		return cfg, nil
	}
	if slices.Contains(chain, name) {
		return Config{}, &TemplateCycleError{Chain: append(slices.Clone(chain), name)}
	}

	cfg := parsed[name]
	if cfg.Template == "" || cfg.Template == name {
		c.configs[name] = cfg
		return cfg, nil
	}
	if _, ok := parsed[cfg.Template]; !ok {
		return Config{}, &ConfigError{Env: name, Field: optionTemplate, Err: fmt.Errorf("refers to an unknown environment `%s`", cfg.Template)}
	}

	parent, err := c.resolve(cfg.Template, parsed, append(chain, name))
	if err != nil {
		return Config{}, err
	}
	merged := parent.Options.Without()
	for _, key := range cfg.Options.Keys() {
		v, _ := cfg.Options.Get(key)
		merged.Set(key, v)
	}
	cfg.Options = merged
	c.configs[name] = cfg
	return cfg, nil
}

func withGlobalScripts(options, global *project.Table) *project.Table {
	scripts := global.Without()
	for _, key := range options.Table(optionScripts).Keys() {
		v, _ := options.Table(optionScripts).Get(key)
		scripts.Set(key, v)
	}
	out := options.Without()
	out.Set(optionScripts, scripts)
	return out
}

// Names returns the environment names, default first, then in declaration order.
func (c *Catalog) Names() []string {
	return slices.Clone(c.names)
}

// Get returns the resolved configuration of name.
func (c *Catalog) Get(name string) (Config, error) {
	cfg, ok := c.configs[name]
	if !ok {
		return Config{}, &UnknownEnvironmentError{Env: name}
	}
	return cfg, nil
}
