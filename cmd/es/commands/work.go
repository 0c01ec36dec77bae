package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hirefrank/edgestack/internal/deps"
	"github.com/hirefrank/edgestack/internal/printer"
	"github.com/hirefrank/edgestack/pkg/tracker"
)

var (
	workAgent string
	workTTL   time.Duration
)

var workCmd = &cobra.Command{
	Use:   "work [ISSUE_ID]",
	Short: "Pick up an issue: lock, assign and mark in progress",
	Long: `Start working an issue as an agent. In one step:
  1. Acquires a lock lease for the agent
  2. Assigns the issue to the agent
  3. Moves it to in_progress

Without ISSUE_ID, picks the highest-priority ready issue.

Examples:
  # Work a specific issue
  es work es-a1b2c3 --agent worker-1

  # Work whatever is next
  es work --agent worker-1`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWork,
}

func init() {
	workCmd.Flags().StringVar(&workAgent, "agent", "", "Agent picking up the work (required)")
	workCmd.Flags().DurationVar(&workTTL, "ttl", 0, "Lease duration (default from es.yml, 30m)")
	workCmd.MarkFlagRequired("agent")
	rootCmd.AddCommand(workCmd)
}

func runWork(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	client, cfg, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	issues, err := client.ListIssues(ctx)
	if err != nil {
		return err
	}
	graph := deps.Build(issues)
	now := time.Now()

	var id string
	if len(args) == 1 {
		id, err = resolveID(ctx, client, args[0])
		if err != nil {
			return err
		}

		issue := graph.Get(id)
		if issue == nil {
			issue, err = client.GetIssue(ctx, id)
			if err != nil {
				return err
			}
		}
		if !graph.IsReady(issue, now) {
			if blockers := graph.OpenBlockers(id); len(blockers) > 0 {
				return printer.Error(
					fmt.Sprintf("issue %s is not ready", id),
					fmt.Sprintf("Open blockers: %v", blockers),
					"Close the blockers first, or pick ready work:\n  es ready",
				)
			}
			if issue.Locked(now) {
				return printer.Error(
					fmt.Sprintf("issue %s is locked by %s", id, issue.LockedBy),
					"Another agent already holds this issue.",
					"Pick something else:\n  es ready",
				)
			}
			return printer.Error(
				fmt.Sprintf("issue %s is not ready", id),
				fmt.Sprintf("Status is %s.", issue.Status),
				"Only open or in_progress issues can be worked.",
			)
		}
	} else {
		ready := graph.ReadySet(now)
		if len(ready) == 0 {
			printer.Info("No ready work. Run 'es list' to see what is blocked.\n")
			return nil
		}
		id = ready[0].ID
	}

	ttl := workTTL
	if ttl == 0 {
		ttl = cfg.LockTTL()
	}

	token, err := client.AcquireLock(ctx, id, workAgent, ttl)
	if err != nil {
		return fmt.Errorf("failed to lock %s: %w", id, err)
	}

	issue, err := client.GetIssue(ctx, id)
	if err != nil {
		return err
	}
	issue.AssignedAgent = workAgent
	issue.Status = tracker.StatusInProgress
	if err := client.UpdateIssue(ctx, issue); err != nil {
		// Leave no half-claimed issue behind
		_ = client.ReleaseLock(ctx, id, token)
		return fmt.Errorf("failed to assign issue: %w", err)
	}

	printer.Success("Working %s [%s] %s\n", issue.ID, issue.Priority, issue.Title)
	printer.Info("Agent: %s, lease %s\n", workAgent, ttl)
	printer.Info("Token: %s\n", token)
	printer.Info("When done: es close %s && es unlock %s --token %s\n", id, id, token)

	return nil
}
