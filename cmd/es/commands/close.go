package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hirefrank/edgestack/internal/deps"
	"github.com/hirefrank/edgestack/internal/printer"
)

var closeCmd = &cobra.Command{
	Use:   "close ISSUE_ID",
	Short: "Close an issue and unblock its dependents",
	Long: `Close an issue. Every issue blocked by it has the dependency edge
removed, and issues whose last open blocker this was flip from blocked
back to open.

Examples:
  # Close by full id
  es close es-a1b2c3

  # Close by prefix
  es close a1b`,
	Args: cobra.ExactArgs(1),
	RunE: runClose,
}

func init() {
	rootCmd.AddCommand(closeCmd)
}

func runClose(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	client, _, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	id, err := resolveID(ctx, client, args[0])
	if err != nil {
		return err
	}

	closed, err := client.CloseIssue(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to close issue: %w", err)
	}

	printer.Success("Closed %s %s\n", closed.ID, closed.Title)

	result, err := deps.CascadeClose(ctx, client, id, time.Now())
	if err != nil {
		return err
	}

	for _, ready := range result.NowReady {
		printer.Info("Now ready: %s [%s] %s\n", ready.ID, ready.Priority, ready.Title)
	}

	return nil
}
