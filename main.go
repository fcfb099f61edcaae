// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/envrun/envrun/cmd/envrun"

func main() {
	cmd.Main()
}
