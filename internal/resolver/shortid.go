package resolver

import (
	"context"
	"fmt"
	"strings"

	"github.com/hirefrank/edgestack/pkg/tracker"
)

// MinPrefixLength is the minimum hex-prefix length accepted for issue
// lookup. Three characters keeps typing short while staying unambiguous
// in projects with a few hundred issues.
const MinPrefixLength = 3

// ResolveIssueID resolves a short ID fragment to a full issue ID.
// Returns the full ID if exactly one match is found.
// Returns error if zero or multiple matches are found.
//
// The function handles three cases:
// 1. Input is already a full ID matching the es-<hex> pattern - validates existence
// 2. Input is too short (< 3 hex chars) - returns validation error
// 3. Input is a prefix (with or without the es- marker) - scans for matches
func ResolveIssueID(ctx context.Context, client *tracker.Client, shortID string) (string, error) {
	if tracker.IDPattern.MatchString(shortID) {
		exists, err := client.IssueExists(ctx, shortID)
		if err != nil {
			return "", fmt.Errorf("failed to verify issue existence: %w", err)
		}
		if exists {
			return shortID, nil
		}
		// Fall through: a full-looking ID can still be a prefix of a
		// longer one after a collision extended it.
	}

	fragment := strings.TrimPrefix(shortID, "es-")
	if len(fragment) < MinPrefixLength {
		return "", fmt.Errorf("short ID must be at least %d characters (got %d)", MinPrefixLength, len(fragment))
	}

	matches, err := client.ScanIssueIDs(ctx, "es-"+fragment)
	if err != nil {
		return "", fmt.Errorf("failed to search for issue: %w", err)
	}

	switch len(matches) {
	case 0:
		return "", &NotFoundError{ShortID: shortID}
	case 1:
		return matches[0], nil
	default:
		return "", &AmbiguousError{ShortID: shortID, Matches: matches}
	}
}

// NotFoundError indicates no issues matched the short ID.
type NotFoundError struct {
	ShortID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no issues found matching '%s'", e.ShortID)
}

// AmbiguousError indicates multiple issues matched the short ID.
type AmbiguousError struct {
	ShortID string
	Matches []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("ambiguous short ID '%s' matches %d issues", e.ShortID, len(e.Matches))
}

// FormatAmbiguousError creates a user-friendly error message for ambiguous
// short IDs. Lists all matching IDs (up to 10, then "...and N more").
func FormatAmbiguousError(err *AmbiguousError) string {
	msg := fmt.Sprintf("Error: ambiguous short ID '%s' matches %d issues:\n", err.ShortID, len(err.Matches))

	displayCount := len(err.Matches)
	if displayCount > 10 {
		displayCount = 10
	}

	for i := 0; i < displayCount; i++ {
		msg += fmt.Sprintf("  %s\n", err.Matches[i])
	}

	if len(err.Matches) > 10 {
		msg += fmt.Sprintf("  ...and %d more\n", len(err.Matches)-10)
	}

	msg += "\nUse a longer prefix to uniquely identify the issue."
	return msg
}

// IsNotFoundError checks if an error is a NotFoundError.
func IsNotFoundError(err error) bool {
	_, ok := err.(*NotFoundError)
	return ok
}

// IsAmbiguousError checks if an error is an AmbiguousError.
func IsAmbiguousError(err error) bool {
	_, ok := err.(*AmbiguousError)
	return ok
}
