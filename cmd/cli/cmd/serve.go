// Package cmd - serve command
package cmd

import (
	"context"
	"net/http"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"contract-billing/adapters/presetfile"
	"contract-billing/api"
	"contract-billing/internal/config"
	"contract-billing/internal/logging"
)

var serveAddr string

// serveCmd runs the HTTP API
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg := config.Get()

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	// Sync administrator-authored preset files into the store so the API
	// serves the same presets the CLI sees.
	if cfg.Presets.LoadOnStart {
		defs, err := presetfile.LoadDir(cfg.Presets.Directory)
		if err != nil {
			logging.Warn("could not load preset directory", zap.Error(err))
		} else {
			for _, def := range defs {
				if err := store.SavePreset(context.Background(), def); err != nil {
					return err
				}
			}
			logging.Info("presets loaded", zap.Int("count", len(defs)))
		}
	}

	addr := serveAddr
	if addr == "" {
		addr = cfg.Server.ListenAddr
	}

	server := api.NewServer(Version, store)
	logging.Info("listening", zap.String("addr", addr))
	return http.ListenAndServe(addr, server)
}
