// SPDX-License-Identifier: MPL-2.0

// Package project loads Python project metadata from pyproject.toml.
//
// Besides the standard [project] table, the loader keeps the [tool.envrun]
// table as an ordered Table: TOML tables decode into Go maps, which lose the
// declaration order that environment listings and matrix naming depend on.
// Key order is recovered from the document with the go-toml unstable parser.
package project
