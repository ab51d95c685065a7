// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/johndoehack/mobile-locator/locator"
	"github.com/johndoehack/mobile-locator/providers"
	"github.com/johndoehack/mobile-locator/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveOptions = struct {
	addr string
}{}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the locate API over HTTP",
	Long: `Starts an HTTP server with:

  GET /api/providers
  GET /api/locate/:provider?mcc=&mnc=&lac=&cid=[&signal=&radio=&system=&timeout=]
  GET /metrics
  GET /healthz

Credentials come from the config file, the environment and --google-adc.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		options := make(map[string]*locator.Options)

		if err := providers.Each(func(p providers.Provider) error {
			o, err := rootOptions.options(cmd.Context(), p.Name, nil)
			if err != nil {
				return fmt.Errorf("configuring %s: %w", p.Name, err)
			}

			options[p.Name] = o

			return nil
		}); err != nil {
			return err
		}

		logger := rootOptions.logger
		if !rootOptions.Verbose {
			gin.SetMode(gin.ReleaseMode)

			var err error
			if logger, err = zap.NewProduction(); err != nil {
				return fmt.Errorf("building logger: %w", err)
			}
			defer func() { _ = logger.Sync() }()
		}

		fmt.Printf("📍 Serving %d providers on http://%s\n", len(options), serveOptions.addr)

		return server.NewServer(options, logger).Run(serveOptions.addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveOptions.addr, "addr", "localhost:8080", "listen address")
}
