// SPDX-License-Identifier: MPL-2.0

// Package inline reads the inline metadata block of standalone Python
// scripts and turns it into a dedicated environment.
//
// The block is a TOML document embedded in comments:
//
//	# /// script
//	# requires-python = ">=3.11"
//	# dependencies = ["requests"]
//	# [tool.envrun]
//	# python = "3.12"
//	# ///
package inline
