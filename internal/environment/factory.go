// SPDX-License-Identifier: MPL-2.0

package environment

import (
	"github.com/envrun/envrun/internal/depsync"
	"github.com/envrun/envrun/internal/matrix"
	"github.com/envrun/envrun/pkg/project"
)

const (
	// SystemName is the name of the environment selected by an empty target.
	SystemName = "system"
	// PluginsName keys the tooling environment of plugin requirements.
	PluginsName = ".plugins"
)

// Factory builds the environments of one project.
type Factory struct {
	Storage Storage
	Project *project.Project
	Options Options

	store *MetadataStore
}

// NewFactory returns a Factory storing environments of p under storage.
func NewFactory(storage Storage, p *project.Project, opts Options) *Factory {
	return &Factory{
		Storage: storage,
		Project: p,
		Options: opts,
		store:   NewMetadataStore(storage.MetadataPath(p.NormalizedName(), p.Root)),
	}
}

// Store is the metadata store shared by the project's environments.
func (f *Factory) Store() *MetadataStore { return f.store }

// Dir returns the directory a virtual environment named name would use.
func (f *Factory) Dir(name string) string {
	return f.Storage.EnvDir(f.Project.NormalizedName(), f.Project.Root, name)
}

// Instance returns the environment of a matrix instance.
func (f *Factory) Instance(inst matrix.Instance) Environment {
	spec := Spec{
		Name:           inst.Name,
		Settings:       inst.Settings,
		Matrix:         inst.Variables(),
		Root:           f.Project.Root,
		Project:        f.Project,
		RequiresPython: f.Project.RequiresPython,
		Store:          f.store,
	}
	if inst.Settings.Type == matrix.TypeSystem {
		return NewSystem(spec, f.Options)
	}
	spec.Dir = f.Dir(inst.Name)
	return NewVirtual(spec, f.Options)
}

// System returns the environment of an empty target: the PATH interpreter,
// no project installation and a dependency hash kept in memory only.
func (f *Factory) System(scripts map[string][]string) Environment {
	settings := matrix.DefaultSettings()
	settings.Type = matrix.TypeSystem
	settings.SkipInstall = true
	settings.Scripts = scripts
	return NewSystem(Spec{
		Name:     SystemName,
		Settings: settings,
		Root:     f.Project.Root,
		Store:    depsync.NewMemoryStore(),
	}, f.Options)
}

// Plugins returns the tooling environment that holds the project's plugin
// requirements. It reports no status of its own.
func (f *Factory) Plugins(requires []string) Environment {
	settings := matrix.DefaultSettings()
	settings.SkipInstall = true
	settings.Dependencies = requires
	opts := f.Options
	opts.Status = nil
	return NewVirtual(Spec{
		Name:     PluginsName,
		Settings: settings,
		Root:     f.Project.Root,
		Dir:      f.Storage.PluginDir(f.Project.NormalizedName(), f.Project.Root),
		Store:    f.store,
	}, opts)
}

// Script returns the environment of an inline-metadata script.
func (f *Factory) Script(spec Spec) Environment {
	return NewVirtual(spec, f.Options)
}
