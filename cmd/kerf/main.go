// Command kerf evaluates modeling scripts and operates on exchanged solids.
package main

import (
	"os"

	"github.com/chazu/kerf/pkg/observability"
)

func main() {
	err := newRootCmd().Execute()
	observability.Sync()
	if err != nil {
		os.Exit(1)
	}
}
