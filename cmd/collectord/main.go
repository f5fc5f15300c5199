// Package main provides the entry point for the collectord CLI.
package main

import (
	"os"

	"github.com/relaymesh/collector/cmd/collectord/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
