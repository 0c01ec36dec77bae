package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hirefrank/edgestack/internal/deps"
	"github.com/hirefrank/edgestack/internal/printer"
	"github.com/hirefrank/edgestack/pkg/tracker"
)

var (
	createDescription string
	createPriority    string
	createType        string
	createTags        []string
	createBlockedBy   []string
	createParent      string
)

var createCmd = &cobra.Command{
	Use:   "create TITLE",
	Short: "Create a new issue",
	Long: `Create a new issue in the project's store.

The issue gets a fresh es-xxxxxx id. Issues created with open blockers
start in the blocked status; everything else starts open.

Examples:
  # Minimal issue
  es create "Fix login redirect"

  # Bug with priority and tags
  es create "Sessions expire early" --type bug --priority p1 --tag auth

  # Issue blocked by existing work
  es create "Ship dark mode" --blocked-by es-a1b2c3`,
	Args: cobra.ExactArgs(1),
	RunE: runCreate,
}

func init() {
	createCmd.Flags().StringVarP(&createDescription, "description", "d", "", "Free-form markdown body")
	createCmd.Flags().StringVarP(&createPriority, "priority", "p", "p2", "Priority: p0, p1, p2 or p3")
	createCmd.Flags().StringVarP(&createType, "type", "t", "task", "Type: task, bug, feature, epic or chore")
	createCmd.Flags().StringSliceVar(&createTags, "tag", nil, "Tag (repeatable)")
	createCmd.Flags().StringSliceVar(&createBlockedBy, "blocked-by", nil, "Blocking issue id (repeatable)")
	createCmd.Flags().StringVar(&createParent, "parent", "", "Parent issue id")
	rootCmd.AddCommand(createCmd)
}

func runCreate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	client, _, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	priority, err := tracker.ParsePriority(createPriority)
	if err != nil {
		return printer.Error(
			"invalid priority",
			err.Error(),
			"Valid priorities: p0 (urgent), p1 (high), p2 (normal), p3 (someday)",
		)
	}

	issueType := tracker.Type(createType)
	if err := issueType.Validate(); err != nil {
		return printer.Error(
			"invalid issue type",
			err.Error(),
			"Valid types: task, bug, feature, epic, chore",
		)
	}

	// Resolve blocker fragments and validate the edges before writing
	issues, err := client.ListIssues(ctx)
	if err != nil {
		return err
	}
	graph := deps.Build(issues)

	var blockedBy []string
	for _, fragment := range createBlockedBy {
		blockerID, err := resolveID(ctx, client, fragment)
		if err != nil {
			return err
		}
		blockedBy = append(blockedBy, blockerID)
	}

	var parent string
	if createParent != "" {
		parent, err = resolveID(ctx, client, createParent)
		if err != nil {
			return err
		}
	}

	id, err := newUniqueID(ctx, client)
	if err != nil {
		return err
	}

	status := tracker.StatusOpen
	for _, blockerID := range blockedBy {
		if blocker := graph.Get(blockerID); blocker != nil && blocker.Status != tracker.StatusClosed {
			status = tracker.StatusBlocked
			break
		}
	}

	issue := &tracker.Issue{
		ID:          id,
		Title:       args[0],
		Description: createDescription,
		Status:      status,
		Priority:    priority,
		Type:        issueType,
		Tags:        createTags,
		BlockedBy:   blockedBy,
		Parent:      parent,
	}

	if err := client.CreateIssue(ctx, issue); err != nil {
		return fmt.Errorf("failed to create issue: %w", err)
	}

	printer.Success("Created %s [%s] %s\n", issue.ID, issue.Priority, issue.Title)
	if status == tracker.StatusBlocked {
		printer.Info("Blocked by: %v\n", blockedBy)
	}

	return nil
}

// newUniqueID generates an issue id, retrying on the rare collision.
func newUniqueID(ctx context.Context, client *tracker.Client) (string, error) {
	for attempt := 0; attempt < 5; attempt++ {
		id, err := tracker.NewID()
		if err != nil {
			return "", err
		}
		exists, err := client.IssueExists(ctx, id)
		if err != nil {
			return "", err
		}
		if !exists {
			return id, nil
		}
	}
	return "", fmt.Errorf("failed to generate a unique issue id after 5 attempts")
}
