// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type logWriter struct {
	writer io.Writer
}

func (w *logWriter) Write(bytes []byte) (int, error) {
	return fmt.Fprintf(w.writer, "%s %s", time.Now().Format("2006-01-02 15:04:05"), string(bytes))
}

func init() {
	log.SetFlags(0)
	log.SetOutput(&logWriter{writer: os.Stderr})
}

var rootCmd = &cobra.Command{
	Use:   "mlocate",
	Short: "cell tower geolocation through third-party providers",
	Long: `
mlocate resolves mobile cell identifiers (MCC, MNC, LAC, CID) into a
latitude, longitude and accuracy radius using one of several public
geolocation services, optionally converting the result to the GCJ02 or
BD09 reference frames used by Chinese maps.
`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return rootOptions.load(cmd.Context())
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		if rootOptions.logger != nil {
			_ = rootOptions.logger.Sync()
		}
	},
}

// globalOptions holds the persistent flags and what load derives from them.
type globalOptions struct {
	ConfigPath string
	EnvFile    string
	Verbose    bool
	HTTPTrace  bool
	GoogleADC  bool
	GCPProject string

	config *Config
	logger *zap.Logger
	client *http.Client
	adcKey string
}

var rootOptions = &globalOptions{}

var Version = "dev"

func Execute(version string) {
	Version = version

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&rootOptions.ConfigPath,
		"config",
		"",
		"YAML file with per-provider credentials and defaults",
	)
	rootCmd.PersistentFlags().StringVar(
		&rootOptions.EnvFile,
		"env-file",
		".env",
		"dotenv file loaded into the environment when present",
	)
	rootCmd.PersistentFlags().BoolVarP(
		&rootOptions.Verbose,
		"verbose",
		"v",
		false,
		"log engine and provider activity to stderr",
	)
	rootCmd.PersistentFlags().BoolVar(
		&rootOptions.HTTPTrace,
		"http-trace",
		false,
		"dump provider HTTP traffic to stderr, credentials redacted",
	)
	rootCmd.PersistentFlags().BoolVar(
		&rootOptions.GoogleADC,
		"google-adc",
		false,
		"when no google key is configured, look it up with Application Default Credentials",
	)
	rootCmd.PersistentFlags().StringVar(
		&rootOptions.GCPProject,
		"gcp-project",
		"",
		"project holding the google key, defaults to the ADC project",
	)
}
