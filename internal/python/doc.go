// SPDX-License-Identifier: MPL-2.0

// Package python locates Python interpreters, manages downloaded Python
// distributions and implements the subset of PEP 440 versions and PEP 508
// requirements needed to compare installed packages with declared ones.
package python
