// Package main is the entry point of the mydat CLI.
package main

import (
	"os"

	"github.com/leapstack-labs/mydat/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
