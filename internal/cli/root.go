// Package cli wires the command-line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "tolld",
	Short: "tolld - programmable fungible-asset ledger daemon",
	Long: `tolld runs a single-node fungible-asset ledger whose transfers pass
through a programmable hook: launch gating, blocklisting, size limits,
a basis-point fee schedule and automatic fee conversion to settlement
currency through a built-in liquidity pool.`,
	Version: "0.1.0",
}

// Execute runs the root command. Called once from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "conf", "", "configuration file path")
}
