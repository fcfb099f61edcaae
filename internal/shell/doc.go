// SPDX-License-Identifier: MPL-2.0

// Package shell runs command lines either through the host shell (native)
// or through the embedded mvdan.cc/sh interpreter (virtual).
package shell
