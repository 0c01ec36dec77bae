package commands

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/hirefrank/edgestack/internal/deps"
	"github.com/hirefrank/edgestack/internal/report"
)

var (
	readyOutput string
)

var readyCmd = &cobra.Command{
	Use:   "ready",
	Short: "List issues ready to work",
	Long: `List issues that are ready to work right now: active status, no open
blockers, and no live lock lease. Sorted by priority then age, so the
first row is always the best next pick.

Examples:
  # Table of ready work
  es ready

  # First ready id, for scripting
  es ready --output jsonl | head -1 | jq -r '.id'`,
	RunE: runReady,
}

func init() {
	readyCmd.Flags().StringVarP(&readyOutput, "output", "o", "default", "Output format: default or jsonl")
	rootCmd.AddCommand(readyCmd)
}

func runReady(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	client, _, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	issues, err := client.ListIssues(ctx)
	if err != nil {
		return err
	}

	ready := deps.Build(issues).ReadySet(time.Now())

	switch readyOutput {
	case "jsonl":
		return report.FormatJSONL(cmd.OutOrStdout(), ready)
	default:
		return report.FormatTable(cmd.OutOrStdout(), ready, client.Project())
	}
}
