// Package cmd - presets commands
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"contract-billing/adapters/presetfile"
	"contract-billing/core/line"
	"contract-billing/core/preset"
	"contract-billing/core/validate"
	"contract-billing/internal/config"
)

var presetsDir string

// presetsCmd groups preset subcommands
var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "Inspect preset definition files",
}

var presetsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List presets in the preset directory",
	RunE:  runPresetsList,
}

var presetsShowCmd = &cobra.Command{
	Use:   "show [preset-id]",
	Short: "Print one preset as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runPresetsShow,
}

var presetsLintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Check every preset for validation problems",
	Long: `Parse every preset file and run each preset through the same
type-specific validation applied to composed contract lines, with the
preset acting as its own baseline.`,
	RunE: runPresetsLint,
}

func init() {
	presetsCmd.PersistentFlags().StringVarP(&presetsDir, "dir", "d", "", "preset definition directory (default from config)")
	presetsCmd.AddCommand(presetsListCmd)
	presetsCmd.AddCommand(presetsShowCmd)
	presetsCmd.AddCommand(presetsLintCmd)
}

func loadPresets() ([]preset.Definition, error) {
	dir := presetsDir
	if dir == "" {
		dir = config.Get().Presets.Directory
	}
	return presetfile.LoadDir(dir)
}

func runPresetsList(_ *cobra.Command, _ []string) error {
	defs, err := loadPresets()
	if err != nil {
		return err
	}
	for _, def := range defs {
		fmt.Printf("%-24s %-8s %-8s %d service(s)  %s\n",
			def.PresetID, def.LineType, def.BillingPeriod, len(def.Services), def.PresetName)
	}
	return nil
}

func runPresetsShow(_ *cobra.Command, args []string) error {
	defs, err := loadPresets()
	if err != nil {
		return err
	}
	for _, def := range defs {
		if def.PresetID == args[0] {
			return printJSON(def)
		}
	}
	return fmt.Errorf("preset not found: %s", args[0])
}

func runPresetsLint(_ *cobra.Command, _ []string) error {
	defs, err := loadPresets()
	if err != nil {
		return err
	}

	failed := 0
	for _, def := range defs {
		res := validate.Validate(asLine(def))
		if res.OK() {
			continue
		}
		failed++
		fmt.Fprintf(os.Stderr, "%s:\n", def.PresetID)
		for _, fe := range res.Errors {
			fmt.Fprintf(os.Stderr, "  %s\n", fe.Error())
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d preset(s) failed validation", failed, len(defs))
	}
	fmt.Printf("%d preset(s) OK\n", len(defs))
	return nil
}

// asLine views a preset as a line configuration so the lint shares the
// composition validator
func asLine(def preset.Definition) line.Config {
	return line.Config{
		LineID:                 def.PresetID,
		LineType:               def.LineType,
		BillingPeriod:          def.BillingPeriod,
		BaseRate:               def.BaseRate,
		EnableProration:        def.EnableProration,
		MinimumBillableMinutes: def.MinimumBillableMinutes,
		RoundUpToMinutes:       def.RoundUpToMinutes,
		Services:               def.Services,
	}
}
