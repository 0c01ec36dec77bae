package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/hirefrank/edgestack/pkg/tracker"
)

// FormatTable writes issues as a formatted table to the provided writer.
// Columns: ID, STATUS, PRI, TYPE, AGE, BLOCKED BY, LOCK, GH, TITLE.
func FormatTable(w io.Writer, issues []*tracker.Issue, project string) error {
	if len(issues) == 0 {
		fmt.Fprintf(w, "No issues found for project '%s'\n", project)
		return nil
	}

	table := tablewriter.NewTable(w)
	table.Header("ID", "STATUS", "PRI", "TYPE", "AGE", "BLOCKED BY", "LOCK", "GH", "TITLE")

	now := time.Now()
	for _, issue := range issues {
		if err := table.Append([]string{
			issue.ID,
			string(issue.Status),
			issue.Priority.String(),
			string(issue.Type),
			formatAge(issue.CreatedAtMs, now),
			formatBlockedBy(issue.BlockedBy),
			formatLock(issue, now),
			formatGitHub(issue.GitHubNumber),
			truncate(issue.Title, 60),
		}); err != nil {
			return fmt.Errorf("failed to build table: %w", err)
		}
	}

	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	countMsg := "issue"
	if len(issues) != 1 {
		countMsg = "issues"
	}
	fmt.Fprintf(w, "\n%d %s found\n", len(issues), countMsg)
	return nil
}

// FormatJSONL writes issues as line-delimited JSON to the provided writer.
// Each issue is a single compact JSON object on its own line.
func FormatJSONL(w io.Writer, issues []*tracker.Issue) error {
	for _, issue := range issues {
		data, err := json.Marshal(issue)
		if err != nil {
			return fmt.Errorf("failed to marshal issue to JSON: %w", err)
		}
		if _, err := fmt.Fprintf(w, "%s\n", string(data)); err != nil {
			return fmt.Errorf("failed to write JSONL output: %w", err)
		}
	}
	return nil
}

// FormatSingleJSON writes one issue as pretty-printed JSON. Used by
// `es show` to display complete issue details.
func FormatSingleJSON(w io.Writer, issue *tracker.Issue) error {
	data, err := json.MarshalIndent(issue, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal issue to JSON: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write JSON output: %w", err)
	}
	fmt.Fprintln(w)
	return nil
}

// formatAge renders the time since creation in the largest sensible unit.
func formatAge(createdAtMs int64, now time.Time) string {
	if createdAtMs == 0 {
		return "-"
	}
	age := now.Sub(time.UnixMilli(createdAtMs))
	switch {
	case age < time.Minute:
		return fmt.Sprintf("%ds", int(age.Seconds()))
	case age < time.Hour:
		return fmt.Sprintf("%dm", int(age.Minutes()))
	case age < 24*time.Hour:
		return fmt.Sprintf("%dh", int(age.Hours()))
	default:
		return fmt.Sprintf("%dd", int(age.Hours()/24))
	}
}

func formatBlockedBy(blockedBy []string) string {
	if len(blockedBy) == 0 {
		return "-"
	}
	if len(blockedBy) <= 2 {
		return strings.Join(blockedBy, ",")
	}
	return fmt.Sprintf("%s,+%d", blockedBy[0], len(blockedBy)-1)
}

func formatLock(issue *tracker.Issue, now time.Time) string {
	if !issue.Locked(now) {
		return "-"
	}
	remaining := time.UnixMilli(issue.LockExpiresMs).Sub(now).Round(time.Second)
	return fmt.Sprintf("%s (%s)", issue.LockedBy, remaining)
}

func formatGitHub(number int) string {
	if number == 0 {
		return "-"
	}
	return fmt.Sprintf("#%d", number)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
