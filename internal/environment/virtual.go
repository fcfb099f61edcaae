// SPDX-License-Identifier: MPL-2.0

package environment

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/envrun/envrun/internal/matrix"
	"github.com/envrun/envrun/internal/python"
	"github.com/envrun/envrun/internal/shell"
)

const venvConfig = "pyvenv.cfg"

// Virtual is an environment backed by a Python venv.
type Virtual struct {
	base
}

// NewVirtual returns the virtual environment described by spec.
func NewVirtual(spec Spec, opts Options) *Virtual {
	v := &Virtual{base: base{spec: spec, opts: opts}}
	v.activate = v.activation
	return v
}

// Type returns matrix.TypeVirtual.
func (v *Virtual) Type() string { return matrix.TypeVirtual }

// Exists reports whether the venv has been created.
func (v *Virtual) Exists() bool {
	info, err := os.Stat(filepath.Join(v.spec.Dir, venvConfig))
	return err == nil && !info.IsDir()
}

// Create resolves an interpreter, creates the venv and installs the project
// unless skip-install is set.
func (v *Virtual) Create(ctx context.Context) error {
	v.status("Creating environment: " + v.spec.Name)

	constraint, err := v.constraint()
	if err != nil {
		return err
	}
	interp, err := v.opts.Python.Ensure(ctx, v.spec.Settings.Python, constraint, v.status)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(v.spec.Dir), 0o755); err != nil {
		return fmt.Errorf("create environment storage: %w", err)
	}
	if err := v.exec(ctx, nil, interp.Path, "-m", "venv", v.spec.Dir); err != nil {
		_ = os.RemoveAll(v.spec.Dir)
		return fmt.Errorf("create environment %s: %w", v.spec.Name, err)
	}

	return v.installProject(ctx)
}

func (v *Virtual) installProject(ctx context.Context) error {
	if v.spec.Project == nil || v.spec.Settings.SkipInstall {
		return nil
	}
	if err := v.runCommands(ctx, "pre-install command", v.spec.Settings.PreInstallCommands); err != nil {
		return err
	}

	env, err := v.environ()
	if err != nil {
		return err
	}
	args := []string{"install", "--no-deps"}
	if v.spec.Settings.DevMode {
		v.status("Installing project in development mode")
		args = append(args, "--editable")
	} else {
		v.status("Installing project")
	}
	if err := v.pip(ctx, v.PythonPath(), env, append(args, v.spec.Project.Root)...); err != nil {
		return err
	}

	return v.runCommands(ctx, "post-install command", v.spec.Settings.PostInstallCommands)
}

// Remove deletes the venv and any storage directories left empty, then
// forgets the persisted metadata.
func (v *Virtual) Remove(_ context.Context) error {
	if err := os.RemoveAll(v.spec.Dir); err != nil {
		return fmt.Errorf("remove environment %s: %w", v.spec.Name, err)
	}
	for dir := filepath.Dir(v.spec.Dir); ; dir = filepath.Dir(dir) {
		if filepath.Base(dir) == "virtual" || os.Remove(dir) != nil {
			break
		}
	}
	if v.spec.Store == nil {
		return nil
	}
	return v.spec.Store.Forget(v.spec.Name)
}

// DependenciesInSync compares installed distributions with the requirements.
func (v *Virtual) DependenciesInSync(ctx context.Context) (bool, error) {
	deps, err := v.Dependencies()
	if err != nil || len(deps) == 0 {
		return err == nil, err
	}
	env, err := v.environ()
	if err != nil {
		return false, err
	}
	return inSync(ctx, &v.base, v.PythonPath(), v.pythonVersion(ctx), deps, env)
}

// SyncDependencies installs the requirements into the venv.
func (v *Virtual) SyncDependencies(ctx context.Context) error {
	deps, err := v.Dependencies()
	if err != nil || len(deps) == 0 {
		return err
	}
	env, err := v.environ()
	if err != nil {
		return err
	}
	return v.pip(ctx, v.PythonPath(), env, append([]string{"install"}, deps...)...)
}

// Enter runs line with the venv activated.
func (v *Virtual) Enter(ctx context.Context, line string) (shell.ExitCode, error) {
	env, err := v.environ()
	if err != nil {
		return 1, err
	}
	return v.enter(ctx, line, env)
}

// PythonPath is the interpreter inside the venv.
func (v *Virtual) PythonPath() string {
	if runtime.GOOS == "windows" {
		return filepath.Join(v.binDir(), "python.exe")
	}
	return filepath.Join(v.binDir(), "python")
}

func (v *Virtual) binDir() string {
	if runtime.GOOS == "windows" {
		return filepath.Join(v.spec.Dir, "Scripts")
	}
	return filepath.Join(v.spec.Dir, "bin")
}

func (v *Virtual) activation(env map[string]string) {
	env["VIRTUAL_ENV"] = v.spec.Dir
	delete(env, "PYTHONHOME")
	if path := env["PATH"]; path != "" {
		env["PATH"] = v.binDir() + string(os.PathListSeparator) + path
	} else {
		env["PATH"] = v.binDir()
	}
}

func (v *Virtual) constraint() (python.SpecifierSet, error) {
	if v.spec.Settings.Python != "" || v.spec.RequiresPython == "" {
		return nil, nil
	}
	return python.ParseSpecifierSet(v.spec.RequiresPython)
}

// pythonVersion reads the interpreter version recorded in pyvenv.cfg,
// falling back to probing the interpreter.
func (v *Virtual) pythonVersion(ctx context.Context) python.Version {
	if ver, err := readVenvVersion(filepath.Join(v.spec.Dir, venvConfig)); err == nil {
		return ver
	}
	if v.opts.Python != nil && v.opts.Python.Probe != nil {
		if interp, err := v.opts.Python.Probe(ctx, v.PythonPath()); err == nil {
			return interp.Version
		}
	}
	return python.Version{}
}

func readVenvVersion(path string) (python.Version, error) {
	f, err := os.Open(path)
	if err != nil {
		return python.Version{}, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		key, value, ok := strings.Cut(sc.Text(), "=")
		if !ok {
			continue
		}
		switch strings.TrimSpace(key) {
		case "version", "version_info":
			fields := strings.SplitN(strings.TrimSpace(value), ".", 4)
			if len(fields) > 3 {
				fields = fields[:3]
			}
			return python.ParseVersion(strings.Join(fields, "."))
		}
	}
	if err := sc.Err(); err != nil {
		return python.Version{}, err
	}
	return python.Version{}, fs.ErrNotExist
}

// inSync lists the packages installed for pythonPath and reports whether
// every applicable requirement is met.
func inSync(ctx context.Context, b *base, pythonPath string, version python.Version, deps []string, env map[string]string) (bool, error) {
	out, err := b.output(ctx, env, pythonPath, "-m", "pip", "list", "--format=json", "--disable-pip-version-check")
	if err != nil {
		return false, err
	}
	installed, err := ParseInstalled(out)
	if err != nil {
		return false, err
	}
	missing, err := Unsatisfied(deps, installed, python.DefaultMarkerEnv(version))
	if err != nil {
		return false, err
	}
	return len(missing) == 0, nil
}
