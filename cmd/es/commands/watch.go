package commands

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hirefrank/edgestack/internal/printer"
	"github.com/hirefrank/edgestack/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream issue events live",
	Long: `Stream the project's issue events as they happen: creates, updates,
closes, and lock activity. One line per event.

Press Ctrl+C to stop.

Examples:
  es watch`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	client, cfg, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	printer.Info("Watching issue events for project '%s' (Ctrl+C to stop)\n", cfg.Project)

	err = watch.Stream(ctx, client, cmd.OutOrStdout())
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
