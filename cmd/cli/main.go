// Package main is the entry point for the contract-billing CLI.
package main

import (
	"os"

	"contract-billing/cmd/cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
