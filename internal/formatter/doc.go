// SPDX-License-Identifier: MPL-2.0

// Package formatter expands context templates used by environment scripts.
//
// A template contains replacement fields delimited by braces:
//
//	{args}                 extra command-line arguments
//	{args:--help}          ... or a default when none were given
//	{env:HOME}             an environment variable
//	{env:PORT:{env:ALT}}   ... with a default, itself a template
//	{matrix:python}        a matrix variable of the current instance
//	{verbosity:flag}       -v/-q flags mirroring the invocation verbosity
//
// Doubled braces ("{{" and "}}") produce literal braces. Declared environment
// variables may themselves contain templates; they are expanded on lookup and
// a variable that reaches itself again fails with a RecursionError instead of
// looping.
package formatter
