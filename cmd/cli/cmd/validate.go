// Package cmd - validate command
package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"contract-billing/core/line"
	"contract-billing/core/validate"
)

// validateCmd represents the validate command
var validateCmd = &cobra.Command{
	Use:   "validate [line.json]",
	Short: "Validate a contract line configuration",
	Long: `Run type-specific validation on a contract line configuration and
report every finding.

Examples:
  contract-billing validate line.json
  cat line.json | contract-billing validate -`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func runValidate(_ *cobra.Command, args []string) error {
	var data []byte
	var err error
	if args[0] == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return fmt.Errorf("reading configuration: %w", err)
	}

	var cfg line.Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("decoding configuration: %w", err)
	}

	res := validate.Validate(cfg)
	if res.OK() {
		fmt.Printf("OK: %s line with %d service(s)\n", cfg.LineType, len(cfg.Services))
		return nil
	}

	for _, fe := range res.Errors {
		fmt.Fprintf(os.Stderr, "  %s\n", fe.Error())
	}
	return res.Err()
}
