// SPDX-License-Identifier: Apache-2.0

// Command haze runs quantum walks from the command line or serves them to
// MCP clients over stdio.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
