// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the envrun command tree.
//
// Commands resolve their collaborators through an App: configuration is
// loaded per invocation, the project is discovered from the working
// directory, and environments are built by an environment.Factory. Errors are
// rendered here, never in the packages doing the work.
package cmd
