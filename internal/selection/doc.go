// SPDX-License-Identifier: MPL-2.0

// Package selection parses matrix variable selection tokens
// (+name=value, -name=value, -name) and prunes expanded environment
// instances with them.
package selection
