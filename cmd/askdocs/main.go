// Package main provides the entry point for the askdocs CLI.
package main

import (
	"os"

	"github.com/raphaelgruber/askdocs-go/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
