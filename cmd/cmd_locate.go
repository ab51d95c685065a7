// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/johndoehack/mobile-locator/locator"
	"github.com/johndoehack/mobile-locator/providers"
	"github.com/johndoehack/mobile-locator/server"
	"github.com/johndoehack/mobile-locator/spatial"
	"github.com/spf13/cobra"
)

// engineFlags are the locator.Options settable from the command line.
type engineFlags struct {
	options locator.Options
	system  string
}

func (f *engineFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.options.Key, "key", "", "provider API key")
	cmd.Flags().StringVar(&f.options.Token, "token", "", "provider token (unwiredlabs)")
	cmd.Flags().StringVar(&f.options.OID, "oid", "", "provider account id (gpsspg)")
	cmd.Flags().StringVar(&f.options.Data, "data", "", "provider data set, e.g. open (mylnikov)")
	cmd.Flags().StringVar(&f.options.Endpoint, "endpoint", "", "override the provider URL")
	cmd.Flags().DurationVar(&f.options.Timeout, "timeout", 0, "give up after this long, defaults per provider")
	cmd.Flags().StringVar(&f.system, "system", "", "coordinate system of the result: wgs84, gcj02 or bd09")
}

// resolve returns the flag options with the system parsed.
func (f *engineFlags) resolve() (*locator.Options, error) {
	o := f.options.Clone()

	if f.system != "" {
		system, err := spatial.ParseSystem(f.system)
		if err != nil {
			return nil, err
		}

		o.System = system
	}

	return o, nil
}

var locateOptions = struct {
	engineFlags
	cell   locator.Cell
	signal int
	h3Res  int
}{}

var locateCmd = &cobra.Command{
	Use:   "locate <provider>",
	Short: "Resolve one cell into a location",
	Example: `  mlocate locate cellocation --mcc 460 --mnc 0 --lac 4219 --cid 20925
  mlocate locate opencellid --mcc 262 --mnc 2 --lac 5313 --cid 131948771 --system gcj02`,
	Args: providerArg(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		flags, err := locateOptions.resolve()
		if err != nil {
			return err
		}

		opts, err := rootOptions.options(cmd.Context(), name, flags)
		if err != nil {
			return err
		}

		cell := locateOptions.cell
		if cmd.Flags().Changed("signal") {
			signal := locateOptions.signal
			cell.Signal = &signal
		}

		engine, err := providers.CreateEngine(name, opts)
		if err != nil {
			return err
		}

		loc, err := engine.Locate(cmd.Context(), cell)
		if err != nil {
			return err
		}

		system := engine.Options().System
		out := server.LocateResponse{
			Provider: name,
			Cell:     cell.String(),
			System:   system,
			Location: *loc,
		}

		if locateOptions.h3Res >= 0 {
			out.H3, err = spatial.H3Cell(spatial.ToWGS84(loc.Point(), system), locateOptions.h3Res)
			if err != nil {
				return err
			}
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		if err := enc.Encode(out); err != nil {
			return fmt.Errorf("writing result: %w", err)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(locateCmd)

	locateOptions.register(locateCmd)
	locateCmd.Flags().IntVar(&locateOptions.cell.MCC, "mcc", 0, "mobile country code")
	locateCmd.Flags().IntVar(&locateOptions.cell.MNC, "mnc", 0, "mobile network code")
	locateCmd.Flags().IntVar(&locateOptions.cell.LAC, "lac", 0, "location area code (TAC on LTE)")
	locateCmd.Flags().IntVar(&locateOptions.cell.CID, "cid", 0, "cell id")
	locateCmd.Flags().IntVar(&locateOptions.signal, "signal", 0, "signal strength in dBm")
	locateCmd.Flags().StringVar(&locateOptions.cell.Radio, "radio", "", "radio type: gsm, wcdma, lte or cdma")
	locateCmd.Flags().IntVar(&locateOptions.h3Res, "h3-res", spatial.DefaultH3Resolution, "H3 resolution of the reported cell index, negative disables")

	for _, f := range []string{"mcc", "mnc", "lac", "cid"} {
		_ = locateCmd.MarkFlagRequired(f)
	}
}
