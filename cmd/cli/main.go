// Package main is the entry point for the isokalk CLI.
package main

import (
	"os"

	"github.com/CMDAEW/isokalk/cmd/cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
