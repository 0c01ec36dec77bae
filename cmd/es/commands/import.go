package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hirefrank/edgestack/internal/github"
	"github.com/hirefrank/edgestack/internal/importer"
	"github.com/hirefrank/edgestack/internal/printer"
	"github.com/hirefrank/edgestack/pkg/tracker"
)

var importCmd = &cobra.Command{
	Use:   "import ISSUE_ID GITHUB_NUMBER",
	Short: "Break a GitHub issue body into child issues",
	Long: `Fetch a GitHub issue and break its markdown body into child issues
of a local parent.

The breakdown prefers checkbox lists, then numbered lists, then section
headers; code fences are ignored. Checked boxes become closed children,
open children block the parent, and children inherit the parent's
priority and tags.

Requires the 'gh' CLI, authenticated, and github.repo set in es.yml.

Examples:
  # Break GitHub issue #42 into children of es-a1b2c3
  es import es-a1b2c3 42`,
	Args: cobra.ExactArgs(2),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
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
		)
	}

	var number int
	if _, err := fmt.Sscanf(args[1], "%d", &number); err != nil || number <= 0 {
		return printer.Error(
			"invalid GitHub issue number",
			fmt.Sprintf("%q is not a positive integer.", args[1]),
			"Example: es import es-a1b2c3 42",
		)
	}

	gh := github.NewManager(cfg.GitHub.Repo)
	if err := gh.CheckAvailable(); err != nil {
		return err
	}

	remote, err := gh.GetIssue(number)
	if err != nil {
		return fmt.Errorf("failed to fetch GitHub issue #%d: %w", number, err)
	}

	parentID, err := resolveID(ctx, client, args[0])
	if err != nil {
		return err
	}
	parent, err := client.GetIssue(ctx, parentID)
	if err != nil {
		return err
	}

	result, err := importer.New(client).Import(ctx, parent, remote.Body)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	if len(result.Created) == 0 && result.Skipped == 0 {
		printer.Info("No tasks found in #%d's body\n", number)
		return nil
	}

	// Persist the blockers Import added to the parent
	if err := client.UpdateIssue(ctx, parent); err != nil {
		return fmt.Errorf("failed to update parent issue: %w", err)
	}

	printer.Success("Imported %d task(s) from #%d under %s\n", len(result.Created), number, parent.ID)
	for _, child := range result.Created {
		marker := " "
		if child.Status == tracker.StatusClosed {
			marker = "✓"
		}
		printer.Printf("  %s %s %s\n", marker, child.ID, child.Title)
	}
	if result.Skipped > 0 {
		printer.Info("Skipped %d already-imported task(s)\n", result.Skipped)
	}

	return nil
}
