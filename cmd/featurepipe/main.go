package main

import (
	"os"

	"github.com/quantward/featurepipe/cmd/featurepipe/commands"
)

// main is the entry point for the featurepipe CLI
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
