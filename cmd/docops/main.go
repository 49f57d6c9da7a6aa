// Command docops serves project documentation search over MCP and HTTP.
package main

import (
	"os"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
