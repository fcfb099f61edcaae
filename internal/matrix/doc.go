// SPDX-License-Identifier: MPL-2.0

// Package matrix turns declared environment configurations into concrete,
// named environment instances.
//
// An environment may declare a matrix: an ordered list of blocks, each block
// an ordered mapping of variable names to value lists. Every block expands to
// the Cartesian product of its variables (first variable outermost) and the
// blocks are concatenated in declaration order. Override rules keyed by
// matrix variable, platform or environment variable then patch the options
// of each instance before they are decoded into Settings.
package matrix
