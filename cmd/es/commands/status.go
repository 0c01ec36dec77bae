package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hirefrank/edgestack/internal/deps"
)

var (
	statusJSON bool
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show project issue counts",
	Long: `Show a summary of the project's issues: counts by status, how many
are ready to work, and how many hold live locks.

Examples:
  # Human-readable summary
  es status

  # Machine-readable
  es status --json`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output in JSON format")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
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

	stats := deps.Build(issues).ComputeStats(time.Now())

	if statusJSON {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(stats)
	}

	state, err := client.GetSyncState(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Project: %s\n\n", cfg.Project)
	fmt.Printf("  Open:         %d\n", stats.Open)
	fmt.Printf("  In progress:  %d\n", stats.InProgress)
	fmt.Printf("  Blocked:      %d\n", stats.Blocked)
	fmt.Printf("  Closed:       %d\n", stats.Closed)
	fmt.Printf("\n")
	fmt.Printf("  Ready:        %d\n", stats.Ready)
	fmt.Printf("  Locked:       %d\n", stats.Locked)

	if state.LastSyncMs > 0 {
		fmt.Printf("\nLast GitHub sync: %s\n", time.UnixMilli(state.LastSyncMs).Format(time.RFC3339))
	} else if cfg.GitHub != nil && cfg.GitHub.Repo != "" {
		fmt.Printf("\nNever synced with GitHub. Run: es sync\n")
	}

	return nil
}
