package report

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/hirefrank/edgestack/internal/deps"
	"github.com/hirefrank/edgestack/pkg/tracker"
)

// OutputFormat specifies how to format the issue list output.
type OutputFormat string

const (
	// OutputFormatDefault uses a table format.
	OutputFormatDefault OutputFormat = "default"

	// OutputFormatJSONL outputs complete issues as line-delimited JSON,
	// for piping into jq.
	OutputFormatJSONL OutputFormat = "jsonl"
)

// FilterCriteria defines filtering options for issue listing.
// All filters are ANDed together.
type FilterCriteria struct {
	Status           tracker.Status // empty = no filter
	Type             tracker.Type   // empty = no filter
	Tag              string         // exact match against tags, empty = no filter
	Agent            string         // exact match on assigned_agent, empty = no filter
	SinceTimestampMs int64          // created at or after, 0 = no filter
	UntilTimestampMs int64          // created at or before, 0 = no filter
	ReadyOnly        bool           // only actionable issues
}

// matchesFilter returns true if the issue matches all non-ready criteria.
// Readiness is a whole-graph property and is applied by the caller.
func (fc *FilterCriteria) matchesFilter(issue *tracker.Issue) bool {
	if fc.Status != "" && issue.Status != fc.Status {
		return false
	}
	if fc.Type != "" && issue.Type != fc.Type {
		return false
	}
	if fc.Tag != "" && !issue.HasTag(fc.Tag) {
		return false
	}
	if fc.Agent != "" && issue.AssignedAgent != fc.Agent {
		return false
	}
	if fc.SinceTimestampMs > 0 && issue.CreatedAtMs < fc.SinceTimestampMs {
		return false
	}
	if fc.UntilTimestampMs > 0 && issue.CreatedAtMs > fc.UntilTimestampMs {
		return false
	}
	return true
}

// ListIssues retrieves the project's issues, filters them, and writes them to
// the provided writer. Uses Redis SCAN to iterate without blocking the server.
// Malformed records are skipped with a warning to stderr; readiness filters
// are evaluated over the complete graph before other filters narrow the set.
// Sorted by priority (urgent first) then by creation time for stable output.
func ListIssues(ctx context.Context, client *tracker.Client, format OutputFormat, filters *FilterCriteria, w io.Writer) error {
	prefix := tracker.IssueKeyPrefix(client.Project())
	iter := client.RedisClient().Scan(ctx, 0, prefix+"*", 0).Iterator()

	var all []*tracker.Issue
	for iter.Next(ctx) {
		key := iter.Val()
		issueID := key[len(prefix):]

		issue, err := client.GetIssue(ctx, issueID)
		if err != nil {
			if tracker.IsNotFound(err) {
				continue
			}
			fmt.Fprintf(os.Stderr, "⚠️  Skipping malformed issue: key=%s (error: %v)\n", key, err)
			continue
		}
		all = append(all, issue)
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan issues: %w", err)
	}

	graph := deps.Build(all)
	now := time.Now()

	var issues []*tracker.Issue
	for _, issue := range all {
		if filters != nil {
			if !filters.matchesFilter(issue) {
				continue
			}
			if filters.ReadyOnly && !graph.IsReady(issue, now) {
				continue
			}
		}
		issues = append(issues, issue)
	}

	sort.Slice(issues, func(i, j int) bool {
		if issues[i].Priority != issues[j].Priority {
			return issues[i].Priority < issues[j].Priority
		}
		return issues[i].CreatedAtMs < issues[j].CreatedAtMs
	})

	switch format {
	case OutputFormatDefault:
		return FormatTable(w, issues, client.Project())
	case OutputFormatJSONL:
		if err := FormatJSONL(w, issues); err != nil {
			return fmt.Errorf("failed to format JSONL output: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
}
