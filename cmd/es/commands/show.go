package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/hirefrank/edgestack/internal/report"
)

var showCmd = &cobra.Command{
	Use:   "show ISSUE_ID",
	Short: "Show full details of a single issue",
	Long: `Display complete details of a single issue as pretty-printed JSON.

ISSUE_ID may be a full es-xxxxxx id or any unambiguous prefix of one.

Examples:
  # Full id
  es show es-a1b2c3

  # Short prefix
  es show a1b`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
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

	return report.FormatSingleJSON(cmd.OutOrStdout(), issue)
}
