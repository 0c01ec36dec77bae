package watch

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/hirefrank/edgestack/pkg/tracker"
)

// FormatEvent renders a single issue event as a human-readable line.
// Returns "" for events that should not be displayed.
func FormatEvent(event *tracker.Event) string {
	if event == nil || event.Issue == nil {
		return ""
	}

	issue := event.Issue

	switch event.Kind {
	case tracker.EventCreated:
		return fmt.Sprintf("🆕 Created: %s [%s] %s", issue.ID, issue.Priority, issue.Title)

	case tracker.EventUpdated:
		return fmt.Sprintf("✏️  Updated: %s status=%s %s", issue.ID, issue.Status, issue.Title)

	case tracker.EventClosed:
		return fmt.Sprintf("✅ Closed: %s %s", issue.ID, issue.Title)

	case tracker.EventLocked:
		return fmt.Sprintf("🔒 Locked: %s by=%s", issue.ID, issue.LockedBy)

	case tracker.EventUnlocked:
		return fmt.Sprintf("🔓 Unlocked: %s", issue.ID)

	default:
		return ""
	}
}

// Stream subscribes to the project's issue events and writes one formatted
// line per event to w until the context is cancelled. Unmarshal errors are
// reported inline and streaming continues.
func Stream(ctx context.Context, client *tracker.Client, w io.Writer) error {
	sub, err := client.SubscribeEvents(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe to issue events: %w", err)
	}
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-sub.Events():
			if !ok {
				return nil
			}
			if line := FormatEvent(event); line != "" {
				fmt.Fprintln(w, line)
			}

		case err, ok := <-sub.Errors():
			if !ok {
				return nil
			}
			fmt.Fprintf(w, "⚠️  Skipping malformed event: %v\n", err)
		}
	}
}

// PollForUnlock polls until the issue's lock is free or the timeout elapses.
// Returns the issue in its unlocked state. Polls every 200ms.
func PollForUnlock(ctx context.Context, client *tracker.Client, issueID string, timeout time.Duration) (*tracker.Issue, error) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	timeoutCh := time.After(timeout)

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()

		case <-timeoutCh:
			return nil, fmt.Errorf("timeout waiting for lock on %s to clear after %v", issueID, timeout)

		case <-ticker.C:
			issue, err := client.GetIssue(ctx, issueID)
			if err != nil {
				return nil, fmt.Errorf("failed to query issue: %w", err)
			}

			if !issue.Locked(time.Now()) {
				return issue, nil
			}
		}
	}
}
