// SPDX-License-Identifier: MPL-2.0

// Package environment implements the isolated environments commands run in.
//
// Virtual environments are Python venvs stored under the data directory at
// env/virtual/<project>/<id>/<env>, where <id> is derived from the project
// path. The system environment runs against the interpreter found on PATH
// and stores nothing on disk. Dependency hashes are persisted per project in
// a JSON metadata file guarded by an advisory file lock.
package environment
