package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tollhouse/tolld/internal/config"
	"github.com/tollhouse/tolld/internal/node"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the ledger daemon",
	Long: `Start the tolld daemon: restore the latest snapshot (or mint genesis
state on first boot), then serve the JSON-RPC API and the websocket
event stream until interrupted.`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(serverCmd)
	rootCmd.RunE = runServer
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	n, err := node.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("build node: %w", err)
	}

	fmt.Printf("%s starting (backend %s)\n", cfg.NodeName, cfg.Storage.Backend)
	return n.Run(ctx)
}
