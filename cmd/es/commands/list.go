package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hirefrank/edgestack/internal/printer"
	"github.com/hirefrank/edgestack/internal/report"
	"github.com/hirefrank/edgestack/internal/timespec"
	"github.com/hirefrank/edgestack/pkg/tracker"
)

var (
	listStatus string
	listType   string
	listTag    string
	listAgent  string
	listSince  string
	listUntil  string
	listReady  bool
	listOutput string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List issues",
	Long: `List issues in the project's store as a table or JSONL.

Filters combine with AND. Malformed records are skipped with a warning
on stderr so one bad write never hides the rest of the store.

Output Formats:
  default - Human-readable table
  jsonl   - One JSON object per line, for scripting

Examples:
  # All issues
  es list

  # Open bugs tagged auth
  es list --status open --type bug --tag auth

  # Unblocked, unlocked work
  es list --ready

  # Issues created in the last week, as JSONL
  es list --since 7d --output jsonl | jq -r '.id'`,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVar(&listStatus, "status", "", "Filter by status: open, in_progress, blocked, closed")
	listCmd.Flags().StringVar(&listType, "type", "", "Filter by type: task, bug, feature, epic, chore")
	listCmd.Flags().StringVar(&listTag, "tag", "", "Filter by tag")
	listCmd.Flags().StringVar(&listAgent, "agent", "", "Filter by assigned agent")
	listCmd.Flags().StringVar(&listSince, "since", "", "Only issues created after (duration, 7d, RFC3339, today, yesterday)")
	listCmd.Flags().StringVar(&listUntil, "until", "", "Only issues created before")
	listCmd.Flags().BoolVar(&listReady, "ready", false, "Only issues that are ready to work")
	listCmd.Flags().StringVarP(&listOutput, "output", "o", "default", "Output format: default or jsonl")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	var format report.OutputFormat
	switch listOutput {
	case "default":
		format = report.OutputFormatDefault
	case "jsonl":
		format = report.OutputFormatJSONL
	default:
		return printer.Error(
			"invalid output format",
			fmt.Sprintf("Unknown format: %s", listOutput),
			"Valid formats: default, jsonl",
		)
	}

	sinceMs, untilMs, err := timespec.ParseRange(listSince, listUntil)
	if err != nil {
		return printer.Error(
			"invalid time filter",
			err.Error(),
			"Accepted forms: durations (2h), day counts (7d), RFC3339 timestamps, today, yesterday",
		)
	}

	if listStatus != "" {
		if err := tracker.Status(listStatus).Validate(); err != nil {
			return printer.Error(
				"invalid status filter",
				err.Error(),
				"Valid statuses: open, in_progress, blocked, closed",
			)
		}
	}
	if listType != "" {
		if err := tracker.Type(listType).Validate(); err != nil {
			return printer.Error(
				"invalid type filter",
				err.Error(),
				"Valid types: task, bug, feature, epic, chore",
			)
		}
	}

	client, _, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	filters := &report.FilterCriteria{
		Status:           tracker.Status(listStatus),
		Type:             tracker.Type(listType),
		Tag:              listTag,
		Agent:            listAgent,
		SinceTimestampMs: sinceMs,
		UntilTimestampMs: untilMs,
		ReadyOnly:        listReady,
	}

	return report.ListIssues(ctx, client, format, filters, cmd.OutOrStdout())
}
