// Package cmd - compose command
package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"contract-billing/adapters/presetfile"
	"contract-billing/api"
	"contract-billing/core/compose"
	"contract-billing/core/preset"
	"contract-billing/core/validate"
	"contract-billing/internal/config"
	"contract-billing/internal/logging"
)

var (
	composeOverridesFile string
	composeContractID    string
	composePresetDir     string
	composeSkipValidate  bool
)

// composeCmd represents the compose command
var composeCmd = &cobra.Command{
	Use:   "compose [preset-id]",
	Short: "Compose a contract line from a preset and overrides",
	Long: `Compose a preset with a sparse override set into a concrete
contract line configuration and print it as JSON.

The overrides file uses the API wire shape:

  {
    "base": {"minimum_billable_minutes": 30},
    "services": {
      "svc-remote": {"quantity": 2, "bucket": {"clear": true}}
    }
  }

Examples:
  contract-billing compose silver-hourly
  contract-billing compose silver-hourly --overrides overrides.json
  contract-billing compose gold-fixed --contract c-1042`,
	Args: cobra.ExactArgs(1),
	RunE: runCompose,
}

func init() {
	composeCmd.Flags().StringVarP(&composeOverridesFile, "overrides", "o", "", "overrides file (JSON)")
	composeCmd.Flags().StringVarP(&composeContractID, "contract", "c", "", "target contract id")
	composeCmd.Flags().StringVarP(&composePresetDir, "presets", "p", "", "preset definition directory (default from config)")
	composeCmd.Flags().BoolVar(&composeSkipValidate, "no-validate", false, "print the composed line even if validation fails")
}

func runCompose(_ *cobra.Command, args []string) error {
	presetID := args[0]

	def, err := findPreset(presetID)
	if err != nil {
		return err
	}

	var wire api.OverridesWire
	if composeOverridesFile != "" {
		data, err := os.ReadFile(composeOverridesFile)
		if err != nil {
			return fmt.Errorf("reading overrides: %w", err)
		}
		if err := json.Unmarshal(data, &wire); err != nil {
			return fmt.Errorf("decoding overrides: %w", err)
		}
	}

	set, err := api.DecodeOverrides(def.LineType, wire)
	if err != nil {
		return err
	}

	cfg, err := compose.Compose(def, set, composeContractID)
	if err != nil {
		return err
	}

	if res := validate.Validate(cfg); !res.OK() {
		for _, fe := range res.Errors {
			fmt.Fprintf(os.Stderr, "  %s\n", fe.Error())
		}
		if !composeSkipValidate {
			return res.Err()
		}
		logging.Warn("composed line failed validation, printing anyway")
	}

	return printJSON(cfg)
}

func findPreset(presetID string) (preset.Definition, error) {
	dir := composePresetDir
	if dir == "" {
		dir = config.Get().Presets.Directory
	}

	defs, err := presetfile.LoadDir(dir)
	if err != nil {
		return preset.Definition{}, err
	}
	for _, def := range defs {
		if def.PresetID == presetID {
			return def, nil
		}
	}
	return preset.Definition{}, fmt.Errorf("preset not found in %s: %s", dir, presetID)
}
