package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hirefrank/edgestack/internal/config"
	"github.com/hirefrank/edgestack/internal/github"
	"github.com/hirefrank/edgestack/internal/printer"
	syncpkg "github.com/hirefrank/edgestack/internal/sync"
)

var (
	syncDryRun bool
	syncOurs   bool
	syncTheirs bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile the store with GitHub Issues",
	Long: `Two-way sync between the project's store and GitHub Issues via the
'gh' CLI.

Unlinked open local issues are pushed; unlinked open GitHub issues are
pulled. For linked pairs, status disagreements resolve newest-wins, and
text both sides edited since the last sync is reported as a conflict.
Conflicts are never applied unless --ours or --theirs picks a side.

Requires the 'gh' CLI, authenticated, and github.repo set in es.yml.

Examples:
  # Show the plan without touching anything
  es sync --dry-run

  # Reconcile, leaving conflicts for later
  es sync

  # Reconcile, local side wins conflicts
  es sync --ours`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "Print the plan without applying it")
	syncCmd.Flags().BoolVar(&syncOurs, "ours", false, "Resolve conflicts with the local side")
	syncCmd.Flags().BoolVar(&syncTheirs, "theirs", false, "Resolve conflicts with the GitHub side")
	syncCmd.MarkFlagsMutuallyExclusive("ours", "theirs")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	client, cfg, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	if cfg.GitHub == nil || cfg.GitHub.Repo == "" {
		return printer.Error(
			"no GitHub repository configured",
			"es.yml has no github.repo entry.",
			"Add it:\n  github:\n    repo: owner/repo",
			"Then retry: es sync",
		)
	}

	gh := github.NewManager(cfg.GitHub.Repo)
	if err := gh.CheckAvailable(); err != nil {
		return err
	}

	engine := syncpkg.NewEngine(client, gh)

	plan, err := engine.BuildPlan(ctx)
	if err != nil {
		return fmt.Errorf("failed to build sync plan: %w", err)
	}

	if plan.Empty() {
		printer.Success("Already in sync with %s\n", cfg.GitHub.Repo)
		return nil
	}

	for _, action := range plan.Actions {
		printer.Step("%s: %s\n", action.Kind, describeAction(action))
	}
	for _, conflict := range plan.Conflicts {
		printer.Warning("conflict: %s\n", conflict)
	}

	if syncDryRun {
		printer.Info("Dry run: %d action(s), %d conflict(s). Nothing applied.\n",
			len(plan.Actions), len(plan.Conflicts))
		return nil
	}

	resolution := resolutionFromConfig(cfg.Sync)
	if syncOurs {
		resolution = syncpkg.ResolveOurs
	}
	if syncTheirs {
		resolution = syncpkg.ResolveTheirs
	}

	opts := syncpkg.Options{Resolution: resolution, Labels: cfg.GitHub.Labels}
	if cfg.Sync != nil {
		opts.CloseComment = cfg.Sync.CloseComment
	}

	result, err := engine.Apply(ctx, plan, opts)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	printer.Success("Synced with %s\n", cfg.GitHub.Repo)
	printer.Printf("  Pushed:   %d\n", result.Pushed)
	printer.Printf("  Pulled:   %d\n", result.Pulled)
	printer.Printf("  Closed:   %d\n", result.Closed)
	printer.Printf("  Reopened: %d\n", result.Reopened)
	printer.Printf("  Edited:   %d\n", result.Edited)

	if len(result.Unresolved) > 0 {
		printer.Warning("%d unresolved conflict(s):\n", len(result.Unresolved))
		for _, conflict := range result.Unresolved {
			printer.Printf("  %s\n", conflict)
		}
		printer.Info("Resolve with: es sync --ours  (or --theirs)\n")
	}

	return nil
}

// resolutionFromConfig maps the es.yml sync.conflicts policy onto a
// Resolution. "ask" keeps conflicts unresolved for the operator.
func resolutionFromConfig(sc *config.SyncConfig) syncpkg.Resolution {
	if sc == nil {
		return syncpkg.ResolveNone
	}
	switch sc.Conflicts {
	case "ours":
		return syncpkg.ResolveOurs
	case "theirs":
		return syncpkg.ResolveTheirs
	default:
		return syncpkg.ResolveNone
	}
}

func describeAction(action syncpkg.Action) string {
	switch {
	case action.Local != nil && action.Remote != nil:
		return fmt.Sprintf("%s <-> #%d (%s)", action.Local.ID, action.Remote.Number, action.Reason)
	case action.Local != nil:
		return fmt.Sprintf("%s (%s)", action.Local.ID, action.Reason)
	case action.Remote != nil:
		return fmt.Sprintf("#%d %s (%s)", action.Remote.Number, action.Remote.Title, action.Reason)
	default:
		return action.Reason
	}
}
