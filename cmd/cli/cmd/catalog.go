// Package cmd - catalog commands
package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"contract-billing/core/catalog"
	"contract-billing/core/line"
	"contract-billing/db"
	"contract-billing/internal/config"
)

var (
	catalogMethod     string
	catalogActiveOnly bool
)

// catalogCmd groups catalog subcommands
var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect the service catalog",
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog services",
	RunE:  runCatalogList,
}

func init() {
	catalogListCmd.Flags().StringVarP(&catalogMethod, "method", "m", "", "filter by billing method (fixed, hourly, usage)")
	catalogListCmd.Flags().BoolVarP(&catalogActiveOnly, "active", "a", false, "active services only")
	catalogCmd.AddCommand(catalogListCmd)
}

func runCatalogList(_ *cobra.Command, _ []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	filter := catalog.Filter{ActiveOnly: catalogActiveOnly}
	if catalogMethod != "" {
		t, err := line.ParseLineType(catalogMethod)
		if err != nil {
			return err
		}
		filter.BillingMethod = t
	}

	entries, err := store.ListServices(context.Background(), filter)
	if err != nil {
		return err
	}

	for _, e := range entries {
		status := "active"
		if !e.Active {
			status = "retired"
		}
		fmt.Printf("%-20s %-8s %10s %-10s %-8s %s\n",
			e.ServiceID, e.BillingMethod, line.MinorUnitsToDisplay(e.DefaultRate),
			e.UnitOfMeasure, status, e.Name)
	}
	return nil
}

func openStore() (*db.Store, error) {
	storageCfg := config.Get().Storage
	cfg := db.DefaultConfig(storageCfg.DatabasePath)
	cfg.WALMode = storageCfg.WALMode
	if storageCfg.BusyTimeoutMs > 0 {
		cfg.BusyTimeout = time.Duration(storageCfg.BusyTimeoutMs) * time.Millisecond
	}
	return db.Open(cfg)
}
