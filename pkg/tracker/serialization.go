package tracker

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Serialization helpers for converting between Go structs and Redis hashes
//
// Redis stores data as string-to-string maps (hashes). Slice fields (tags,
// blocked_by) are JSON-encoded into single hash fields. This keeps scalar
// fields individually queryable while complex structures stay flexible.

// IssueToHash converts an Issue struct to a Redis hash format.
// Slice fields (tags, blocked_by) are JSON-encoded.
func IssueToHash(i *Issue) (map[string]interface{}, error) {
	tagsJSON, err := json.Marshal(i.Tags)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tags: %w", err)
	}

	blockedByJSON, err := json.Marshal(i.BlockedBy)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal blocked_by: %w", err)
	}

	hash := map[string]interface{}{
		"id":             i.ID,
		"title":          i.Title,
		"description":    i.Description,
		"status":         string(i.Status),
		"priority":       int(i.Priority),
		"issue_type":     string(i.Type),
		"tags":           string(tagsJSON),
		"blocked_by":     string(blockedByJSON),
		"parent":         i.Parent,
		"assigned_agent": i.AssignedAgent,
		"locked_by":      i.LockedBy,
		"locked_at":      i.LockedAtMs,
		"lock_expires":   i.LockExpiresMs,
		"github_issue":   i.GitHubIssue,
		"github_number":  i.GitHubNumber,
		"created_at_ms":  i.CreatedAtMs,
		"updated_at_ms":  i.UpdatedAtMs,
		"closed_at_ms":   i.ClosedAtMs,
	}

	return hash, nil
}

// HashToIssue converts a Redis hash to an Issue struct.
// JSON fields are decoded back to Go types.
func HashToIssue(hash map[string]string) (*Issue, error) {
	priority, err := strconv.Atoi(hash["priority"])
	if err != nil {
		return nil, fmt.Errorf("invalid priority field: %w", err)
	}

	var tags []string
	if tagsJSON := hash["tags"]; tagsJSON != "" {
		if err := json.Unmarshal([]byte(tagsJSON), &tags); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tags: %w", err)
		}
	}

	var blockedBy []string
	if blockedByJSON := hash["blocked_by"]; blockedByJSON != "" {
		if err := json.Unmarshal([]byte(blockedByJSON), &blockedBy); err != nil {
			return nil, fmt.Errorf("failed to unmarshal blocked_by: %w", err)
		}
	}

	// Empty slices instead of nil for consistent JSON output downstream
	if tags == nil {
		tags = []string{}
	}
	if blockedBy == nil {
		blockedBy = []string{}
	}

	githubNumber, _ := strconv.Atoi(hash["github_number"])
	lockedAtMs, _ := strconv.ParseInt(hash["locked_at"], 10, 64)
	lockExpiresMs, _ := strconv.ParseInt(hash["lock_expires"], 10, 64)
	createdAtMs, _ := strconv.ParseInt(hash["created_at_ms"], 10, 64)
	updatedAtMs, _ := strconv.ParseInt(hash["updated_at_ms"], 10, 64)
	closedAtMs, _ := strconv.ParseInt(hash["closed_at_ms"], 10, 64)

	issue := &Issue{
		ID:            hash["id"],
		Title:         hash["title"],
		Description:   hash["description"],
		Status:        Status(hash["status"]),
		Priority:      Priority(priority),
		Type:          Type(hash["issue_type"]),
		Tags:          tags,
		BlockedBy:     blockedBy,
		Parent:        hash["parent"],
		AssignedAgent: hash["assigned_agent"],
		LockedBy:      hash["locked_by"],
		LockedAtMs:    lockedAtMs,
		LockExpiresMs: lockExpiresMs,
		GitHubIssue:   hash["github_issue"],
		GitHubNumber:  githubNumber,
		CreatedAtMs:   createdAtMs,
		UpdatedAtMs:   updatedAtMs,
		ClosedAtMs:    closedAtMs,
	}

	return issue, nil
}
