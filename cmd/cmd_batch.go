// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bufio"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"

	_ "github.com/duckdb/duckdb-go/v2" // register duckdb driver
	"github.com/johndoehack/mobile-locator/batch"
	"github.com/johndoehack/mobile-locator/providers"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
)

var batchOptions = struct {
	engineFlags
	run    batch.Options
	output string
	lang   string
	quiet  bool
}{}

var batchCmd = &cobra.Command{
	Use:   "batch <provider> <cells-file>",
	Short: "Resolve every cell in a CSV, Parquet or JSON file",
	Long: `Reads cells (columns mcc, mnc, lac, cid and optionally signal, radio, lat,
lng) from a file, resolves them through the provider and prints one JSON line
per cell. When the file carries lat/lng ground truth each line includes the
distance in meters between it and the estimate, and a summary is printed to
stderr at the end.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(2)(cmd, args); err != nil {
			return err
		}

		return providerArg(1)(cmd, args[:1])
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		name, path := args[0], args[1]

		tag, err := language.Parse(batchOptions.lang)
		if err != nil {
			return fmt.Errorf("parsing --lang: %w", err)
		}

		flags, err := batchOptions.resolve()
		if err != nil {
			return err
		}

		opts, err := rootOptions.options(cmd.Context(), name, flags)
		if err != nil {
			return err
		}

		engine, err := providers.CreateEngine(name, opts)
		if err != nil {
			return err
		}

		db, err := sql.Open("duckdb", "")
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer db.Close()

		records, err := batch.ReadCells(cmd.Context(), db, path)
		if err != nil {
			return err
		}

		log.Printf("Locating %d cells via %s", len(records), name)

		run := batchOptions.run
		run.Progress = !batchOptions.quiet
		run.Logger = rootOptions.logger

		results, err := batch.Run(cmd.Context(), engine, records, run)
		if err != nil {
			return err
		}

		w := bufio.NewWriter(os.Stdout)
		enc := json.NewEncoder(w)

		for _, r := range results {
			if err := enc.Encode(r); err != nil {
				return fmt.Errorf("writing results: %w", err)
			}
		}

		if err := w.Flush(); err != nil {
			return fmt.Errorf("writing results: %w", err)
		}

		if batchOptions.output != "" {
			if err := batch.Export(cmd.Context(), db, results, batchOptions.output); err != nil {
				return err
			}

			log.Printf("Results written to %s", batchOptions.output)
		}

		batch.Summarize(results).Print(os.Stderr, tag)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchOptions.register(batchCmd)
	batchCmd.Flags().IntVarP(&batchOptions.run.Concurrency, "concurrency", "c", batch.DefaultConcurrency, "cells resolved in parallel")
	batchCmd.Flags().Float64Var(&batchOptions.run.Rate, "rate", 0, "maximum requests per second, 0 for unlimited")
	batchCmd.Flags().IntVar(&batchOptions.run.H3Resolution, "h3-res", 0, "H3 resolution of the reported cell index, negative disables")
	batchCmd.Flags().StringVarP(&batchOptions.output, "output", "o", "", "also write the results to a csv, parquet or json file")
	batchCmd.Flags().StringVar(&batchOptions.lang, "lang", "en", "language tag for the summary number format")
	batchCmd.Flags().BoolVarP(&batchOptions.quiet, "quiet", "q", false, "no progress bar")
}
