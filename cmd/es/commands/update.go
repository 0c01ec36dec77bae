package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hirefrank/edgestack/internal/printer"
	"github.com/hirefrank/edgestack/pkg/tracker"
)

var (
	updateTitle       string
	updateDescription string
	updateStatus      string
	updatePriority    string
	updateType        string
	updateAgent       string
	updateAddTags     []string
	updateRemoveTags  []string
)

var updateCmd = &cobra.Command{
	Use:   "update ISSUE_ID",
	Short: "Update fields of an issue",
	Long: `Update one or more fields of an existing issue.

Only the flags you pass are changed. Status transitions to closed must go
through 'es close' so dependents get unblocked.

Examples:
  # Reprioritize
  es update es-a1b2c3 --priority p0

  # Hand work to an agent
  es update a1b --agent reviewer-2 --status in_progress

  # Retag
  es update a1b --add-tag backend --remove-tag triage`,
	Args: cobra.ExactArgs(1),
	RunE: runUpdate,
}

func init() {
	updateCmd.Flags().StringVar(&updateTitle, "title", "", "New title")
	updateCmd.Flags().StringVarP(&updateDescription, "description", "d", "", "New description")
	updateCmd.Flags().StringVar(&updateStatus, "status", "", "New status: open, in_progress or blocked")
	updateCmd.Flags().StringVarP(&updatePriority, "priority", "p", "", "New priority: p0, p1, p2 or p3")
	updateCmd.Flags().StringVarP(&updateType, "type", "t", "", "New type: task, bug, feature, epic or chore")
	updateCmd.Flags().StringVar(&updateAgent, "agent", "", "Assigned agent")
	updateCmd.Flags().StringSliceVar(&updateAddTags, "add-tag", nil, "Tag to add (repeatable)")
	updateCmd.Flags().StringSliceVar(&updateRemoveTags, "remove-tag", nil, "Tag to remove (repeatable)")
	rootCmd.AddCommand(updateCmd)
}

func runUpdate(cmd *cobra.Command, args []string) error {
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

	issue, err := client.GetIssue(ctx, id)
	if err != nil {
		return err
	}

	// Closed issues stay closed; reopening happens through sync
	if issue.Status == tracker.StatusClosed {
		return printer.Error(
			fmt.Sprintf("issue %s is closed", id),
			"Closed issues cannot be edited.",
			"Reopen it on GitHub and run 'es sync' to pull the change",
		)
	}

	if issue.Locked(time.Now()) && updateAgent != "" && updateAgent != issue.LockedBy {
		return printer.Error(
			fmt.Sprintf("issue %s is locked by %s", id, issue.LockedBy),
			"Reassigning a locked issue would strand the current holder.",
			fmt.Sprintf("Break the lock first:\n  es unlock %s --force", id),
		)
	}

	changed := false

	if updateTitle != "" {
		issue.Title = updateTitle
		changed = true
	}
	if cmd.Flags().Changed("description") {
		issue.Description = updateDescription
		changed = true
	}
	if updateStatus != "" {
		status := tracker.Status(updateStatus)
		if err := status.Validate(); err != nil {
			return printer.Error("invalid status", err.Error(), "Valid statuses: open, in_progress, blocked")
		}
		if status == tracker.StatusClosed {
			return printer.Error(
				"cannot close via update",
				"Closing must cascade to dependent issues.",
				fmt.Sprintf("Use:\n  es close %s", id),
			)
		}
		issue.Status = status
		changed = true
	}
	if updatePriority != "" {
		priority, err := tracker.ParsePriority(updatePriority)
		if err != nil {
			return printer.Error("invalid priority", err.Error(), "Valid priorities: p0, p1, p2, p3")
		}
		issue.Priority = priority
		changed = true
	}
	if updateType != "" {
		issueType := tracker.Type(updateType)
		if err := issueType.Validate(); err != nil {
			return printer.Error("invalid issue type", err.Error(), "Valid types: task, bug, feature, epic, chore")
		}
		issue.Type = issueType
		changed = true
	}
	if cmd.Flags().Changed("agent") {
		issue.AssignedAgent = updateAgent
		changed = true
	}
	for _, tag := range updateAddTags {
		if !issue.HasTag(tag) {
			issue.Tags = append(issue.Tags, tag)
			changed = true
		}
	}
	for _, tag := range updateRemoveTags {
		for i, existing := range issue.Tags {
			if existing == tag {
				issue.Tags = append(issue.Tags[:i], issue.Tags[i+1:]...)
				changed = true
				break
			}
		}
	}

	if !changed {
		printer.Info("Nothing to update for %s\n", id)
		return nil
	}

	if err := client.UpdateIssue(ctx, issue); err != nil {
		return fmt.Errorf("failed to update issue: %w", err)
	}

	printer.Success("Updated %s\n", id)
	return nil
}
