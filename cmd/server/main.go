// Package main - Standalone API server for contract-billing
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"

	"go.uber.org/zap"

	"contract-billing/adapters/presetfile"
	"contract-billing/api"
	"contract-billing/db"
	"contract-billing/internal/config"
	"contract-billing/internal/logging"
)

const version = "1.0.0"

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	dbPath := flag.String("db", "", "database path (default from config)")
	presetDir := flag.String("presets", "", "preset definition directory to load at startup")
	flag.Parse()

	cfg := config.Get()
	path := *dbPath
	if path == "" {
		path = cfg.Storage.DatabasePath
	}

	store, err := db.Open(db.DefaultConfig(path))
	if err != nil {
		fmt.Fprintf(os.Stderr, "opening store: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	if *presetDir != "" {
		defs, err := presetfile.LoadDir(*presetDir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "loading presets: %v\n", err)
			os.Exit(1)
		}
		for _, def := range defs {
			if err := store.SavePreset(context.Background(), def); err != nil {
				fmt.Fprintf(os.Stderr, "saving preset %s: %v\n", def.PresetID, err)
				os.Exit(1)
			}
		}
	}

	server := api.NewServer(version, store)
	logging.Info("contract-billing server listening", zap.String("addr", *addr))
	if err := http.ListenAndServe(*addr, server); err != nil {
		logging.Fatal("server stopped", zap.Error(err))
	}
}
