// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"strings"

	"github.com/johndoehack/mobile-locator/providers"
	"github.com/spf13/cobra"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List the supported geolocation providers",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		a, b, c, d := strings.Repeat("─", 12), strings.Repeat("─", 10), strings.Repeat("─", 7), strings.Repeat("─", 54)
		fmt.Println("Available providers:")
		fmt.Printf("╭─%-12s─┬─%-10s─┬─%-7s─┬─%-54s╮\n", a, b, c, d)
		fmt.Printf("│ %-12s │ %-10s │ %-7s │ %-54s│\n", "Name", "Needs", "Timeout", "Homepage")
		fmt.Printf("├─%-12s─┼─%-10s─┼─%-7s─┼─%-54s┤\n", a, b, c, d)
		err := providers.Each(func(p providers.Provider) error {
			needs := strings.Join(p.Credentials, ",")
			if needs == "" {
				needs = "-"
			}

			fmt.Printf("│ %-12s │ %-10s │ %7s │ %-54s│\n", p.Name, needs, p.DefaultTimeout, p.Homepage)

			return nil
		})
		fmt.Printf("╰─%-12s─┴─%-10s─┴─%-7s─┴─%-54s╯\n", a, b, c, d)

		return err
	},
}

// providerArg validates the provider positional argument.
func providerArg(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return err
		}

		if _, err := providers.Find(args[0]); err != nil {
			return fmt.Errorf("%w (see '%s providers')", err, rootCmd.Name())
		}

		return nil
	}
}

func init() {
	rootCmd.AddCommand(providersCmd)
}
