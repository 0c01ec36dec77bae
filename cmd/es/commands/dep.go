package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hirefrank/edgestack/internal/deps"
	"github.com/hirefrank/edgestack/internal/printer"
	"github.com/hirefrank/edgestack/pkg/tracker"
)

var depCmd = &cobra.Command{
	Use:   "dep",
	Short: "Manage blocking dependencies between issues",
	Long: `Manage the blocked_by edges between issues.

Edges are validated before writing: self-blocks, duplicates, unknown
issues and cycles are all rejected.`,
}

var depAddCmd = &cobra.Command{
	Use:   "add ISSUE_ID BLOCKER_ID",
	Short: "Block an issue on another",
	Long: `Add a blocking dependency: ISSUE_ID cannot start until BLOCKER_ID
closes. The issue flips to blocked when the blocker is still open.

Examples:
  es dep add es-a1b2c3 es-d4e5f6
  es dep add a1b d4e`,
	Args: cobra.ExactArgs(2),
	RunE: runDepAdd,
}

var depRemoveCmd = &cobra.Command{
	Use:   "remove ISSUE_ID BLOCKER_ID",
	Short: "Remove a blocking dependency",
	Long: `Remove a blocking dependency edge. When the last open blocker goes,
a blocked issue flips back to open.

Examples:
  es dep remove es-a1b2c3 es-d4e5f6`,
	Args: cobra.ExactArgs(2),
	RunE: runDepRemove,
}

func init() {
	depCmd.AddCommand(depAddCmd)
	depCmd.AddCommand(depRemoveCmd)
	rootCmd.AddCommand(depCmd)
}

func runDepAdd(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	client, _, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	issueID, err := resolveID(ctx, client, args[0])
	if err != nil {
		return err
	}
	blockerID, err := resolveID(ctx, client, args[1])
	if err != nil {
		return err
	}

	issues, err := client.ListIssues(ctx)
	if err != nil {
		return err
	}
	graph := deps.Build(issues)

	if err := graph.ValidateEdge(issueID, blockerID); err != nil {
		return printer.Error(
			"invalid dependency",
			err.Error(),
			fmt.Sprintf("Inspect both issues:\n  es show %s\n  es show %s", issueID, blockerID),
		)
	}

	issue := graph.Get(issueID)
	issue.BlockedBy = append(issue.BlockedBy, blockerID)

	blocker := graph.Get(blockerID)
	if blocker.Status != tracker.StatusClosed && issue.Status == tracker.StatusOpen {
		issue.Status = tracker.StatusBlocked
	}

	if err := client.UpdateIssue(ctx, issue); err != nil {
		return fmt.Errorf("failed to update issue: %w", err)
	}

	printer.Success("%s is now blocked by %s\n", issueID, blockerID)
	return nil
}

func runDepRemove(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	client, _, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	issueID, err := resolveID(ctx, client, args[0])
	if err != nil {
		return err
	}
	blockerID, err := resolveID(ctx, client, args[1])
	if err != nil {
		return err
	}

	issue, err := client.GetIssue(ctx, issueID)
	if err != nil {
		return err
	}

	found := false
	for i, existing := range issue.BlockedBy {
		if existing == blockerID {
			issue.BlockedBy = append(issue.BlockedBy[:i], issue.BlockedBy[i+1:]...)
			found = true
			break
		}
	}
	if !found {
		return printer.Error(
			"dependency not found",
			fmt.Sprintf("%s is not blocked by %s.", issueID, blockerID),
			fmt.Sprintf("Inspect the issue:\n  es show %s", issueID),
		)
	}

	// Flip back to open when the last open blocker is gone
	if issue.Status == tracker.StatusBlocked {
		issues, err := client.ListIssues(ctx)
		if err != nil {
			return err
		}
		graph := deps.Build(issues)
		if g := graph.Get(issueID); g != nil {
			g.BlockedBy = issue.BlockedBy
		}
		if len(graph.OpenBlockers(issueID)) == 0 {
			issue.Status = tracker.StatusOpen
		}
	}

	if err := client.UpdateIssue(ctx, issue); err != nil {
		return fmt.Errorf("failed to update issue: %w", err)
	}

	printer.Success("%s is no longer blocked by %s\n", issueID, blockerID)
	if issue.Status == tracker.StatusOpen {
		printer.Info("%s is open again\n", issueID)
	}
	return nil
}
