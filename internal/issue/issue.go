// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/slices"
)

type Id int

const (
	ConfigLoadFailedId Id = iota + 1
	ProjectNotFoundId
	EnvironmentNotFoundId
	InvalidSelectionId
	IncompatibleEnvironmentId
	PythonNotFoundId
	ScriptCycleId
	ContextExpansionFailedId
	DependencySyncFailedId
	EnvironmentCreateFailedId
	PermissionDeniedId
)

type MarkdownMsg string

type HttpLink string

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink
	extLinks []HttpLink // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Render renders the issue as terminal markdown with the given glamour style.
func (i *Issue) Render(stylePath string) (string, error) {
	var md strings.Builder
	md.WriteString(string(i.mdMsg))
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		md.WriteString("\n\n## See also\n")
		for _, link := range append(i.DocLinks(), i.ExtLinks()...) {
			md.WriteString("- <" + string(link) + ">\n")
		}
	}
	return render(md.String(), stylePath)
}

var (
	render = glamour.Render

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

The configuration file could not be read or does not match the schema.

## Things you can try:
- Print the file that is being used:
~~~
$ envrun config path
~~~

- Check for unknown keys; only these are accepted:
~~~cue
data_dir: "/path/to/data"
default_env: "default"
shell: "native" // or "virtual"
python: {
	install_dir: "/path/to/pythons"
	source_url: "https://..."
}
ui: {
	verbosity: 0
	color_scheme: "auto"
}
~~~

- Check ENVRUN_* environment variables for invalid values`,
	}

	projectNotFoundIssue = &Issue{
		id: ProjectNotFoundId,
		mdMsg: `
# No project found!

envrun looks for a ` + "`pyproject.toml`" + ` in the current directory and its parents.

## Things you can try:
- Run envrun from inside your project
- Create a minimal project file:
~~~toml
[project]
name = "my-app"
version = "0.1.0"
~~~`,
		extLinks: []HttpLink{"https://packaging.python.org/en/latest/specifications/pyproject-toml/"},
	}

	environmentNotFoundIssue = &Issue{
		id: EnvironmentNotFoundId,
		mdMsg: `
# Environment not found!

The requested environment is not declared by the project.

## Things you can try:
- List the declared environments:
~~~
$ envrun env show
~~~

- Declare it in pyproject.toml:
~~~toml
[tool.envrun.envs.test]
dependencies = ["pytest"]
~~~`,
	}

	invalidSelectionIssue = &Issue{
		id: InvalidSelectionId,
		mdMsg: `
# Invalid variable selection!

Selection tokens narrow a matrix environment before the command runs.

## Syntax:
- ` + "`+NAME=VALUE[,VALUE]`" + ` keeps instances whose variable matches
- ` + "`-NAME=VALUE[,VALUE]`" + ` drops instances whose variable matches
- ` + "`-NAME`" + ` drops every instance carrying the variable

## Common mistakes:
- Naming the same variable twice in one direction
- Selecting variables of an environment that has no matrix
- Forgetting the command after the selection:
~~~
$ envrun run +py=3.12 test:pytest
~~~`,
	}

	incompatibleEnvironmentIssue = &Issue{
		id: IncompatibleEnvironmentId,
		mdMsg: `
# Environment is incompatible!

The environment cannot run on this machine.

## Things you can try:
- Check its ` + "`platforms`" + ` list against your operating system
- Install the requested Python or remove the ` + "`python`" + ` option
- For matrix environments, incompatible instances are skipped as long as one remains`,
	}

	pythonNotFoundIssue = &Issue{
		id: PythonNotFoundId,
		mdMsg: `
# Python not found!

No interpreter satisfying the request was found on PATH or among the
managed distributions, and none can be downloaded for this platform.

## Things you can try:
- Install the version with your system package manager
- Point envrun at a mirror:
~~~cue
python: source_url: "https://mirror.example/python"
~~~`,
	}

	scriptCycleIssue = &Issue{
		id: ScriptCycleId,
		mdMsg: `
# Cyclic script reference!

A script refers back to itself through other scripts, so it can never finish.

## Things you can try:
- Follow the path printed above and break the loop
- Move the shared commands into a third script both can call`,
	}

	contextExpansionFailedIssue = &Issue{
		id: ContextExpansionFailedId,
		mdMsg: `
# Context expansion failed!

A command uses a field that cannot be expanded.

## Supported fields:
- ` + "`{args}`" + `, ` + "`{root}`" + `, ` + "`{home}`" + `, ` + "`{env_name}`" + `, ` + "`{env_type}`" + `, ` + "`{verbosity}`" + `
- ` + "`{matrix:NAME}`" + ` and ` + "`{matrix:NAME:default}`" + `
- ` + "`{env:NAME}`" + ` requires the variable to be set; use ` + "`{env:NAME:default}`" + ` otherwise
- Literal braces are written ` + "`{{`" + ` and ` + "`}}`",
	}

	dependencySyncFailedIssue = &Issue{
		id: DependencySyncFailedId,
		mdMsg: `
# Dependency synchronization failed!

Installing the environment's dependencies returned an error.

## Things you can try:
- Re-run with ` + "`-v`" + ` to see the installer output
- Recreate the environment:
~~~
$ envrun env remove ENV && envrun env create ENV
~~~`,
	}

	environmentCreateFailedIssue = &Issue{
		id: EnvironmentCreateFailedId,
		mdMsg: `
# Environment creation failed!

## Things you can try:
- Check that the data directory is writable
- Check the ` + "`pre-install-commands`" + ` and ` + "`post-install-commands`" + ` of the environment
- Re-run with ` + "`-v`" + ` to see every command`,
	}

	permissionDeniedIssue = &Issue{
		id: PermissionDeniedId,
		mdMsg: `
# Permission denied!

You don't have permission to perform this operation.

## Things you can try:
- Check file/directory permissions of the data directory
- Move the data directory somewhere you own:
~~~
$ export ENVRUN_DATA_DIR=$HOME/.envrun
~~~`,
	}

	issues = map[Id]*Issue{
		configLoadFailedIssue.Id():        configLoadFailedIssue,
		projectNotFoundIssue.Id():         projectNotFoundIssue,
		environmentNotFoundIssue.Id():     environmentNotFoundIssue,
		invalidSelectionIssue.Id():        invalidSelectionIssue,
		incompatibleEnvironmentIssue.Id(): incompatibleEnvironmentIssue,
		pythonNotFoundIssue.Id():          pythonNotFoundIssue,
		scriptCycleIssue.Id():             scriptCycleIssue,
		contextExpansionFailedIssue.Id():  contextExpansionFailedIssue,
		dependencySyncFailedIssue.Id():    dependencySyncFailedIssue,
		environmentCreateFailedIssue.Id(): environmentCreateFailedIssue,
		permissionDeniedIssue.Id():        permissionDeniedIssue,
	}
)

// Values returns every issue ordered by id.
func Values() []*Issue {
	out := make([]*Issue, 0, len(issues))
	for _, i := range issues {
		out = append(out, i)
	}
	slices.SortFunc(out, func(a, b *Issue) int { return int(a.id) - int(b.id) })
	return out
}

func Get(id Id) *Issue {
	return issues[id]
}
