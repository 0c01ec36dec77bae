package tracker

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"regexp"
	"time"
)

// IDPattern matches valid issue IDs: the "es-" prefix followed by 6-12 lowercase
// hex characters. New IDs are 6 characters; the longer forms leave room for
// collision retries on large stores.
var IDPattern = regexp.MustCompile(`^es-[0-9a-f]{6,12}$`)

// Issue represents a single unit of work in the store.
// Dependency, lock, and GitHub linkage metadata live directly on the record,
// matching the shape consumed by downstream tooling (jq pipelines, sync).
type Issue struct {
	ID            string   `json:"id"`                       // es-xxxxxx identifier
	Title         string   `json:"title"`                    // One-line summary (required)
	Description   string   `json:"description,omitempty"`    // Free-form markdown body
	Status        Status   `json:"status"`                   // Lifecycle state
	Priority      Priority `json:"priority"`                 // 0 (urgent) .. 3 (someday)
	Type          Type     `json:"issue_type"`               // Work classification
	Tags          []string `json:"tags"`                     // Free-form labels
	BlockedBy     []string `json:"blocked_by"`               // Issue IDs that must close first
	Parent        string   `json:"parent,omitempty"`         // Parent issue ID (epics, imports)
	AssignedAgent string   `json:"assigned_agent,omitempty"` // Agent currently responsible

	// Lock lease mirror. The es:{project}:lock:{id} key is authoritative;
	// these fields exist so listings can show holders without extra reads.
	LockedBy      string `json:"locked_by,omitempty"`
	LockedAtMs    int64  `json:"locked_at,omitempty"`
	LockExpiresMs int64  `json:"lock_expires,omitempty"`

	// GitHub linkage, populated by the sync engine.
	GitHubIssue  string `json:"github_issue,omitempty"`  // html_url of the linked issue
	GitHubNumber int    `json:"github_number,omitempty"` // issue number, 0 = unlinked

	CreatedAtMs int64 `json:"created_at_ms"`
	UpdatedAtMs int64 `json:"updated_at_ms"`
	ClosedAtMs  int64 `json:"closed_at_ms,omitempty"`
}

// Status defines the lifecycle state of an issue.
type Status string

const (
	// StatusOpen indicates unstarted work
	StatusOpen Status = "open"

	// StatusInProgress indicates work an agent has started
	StatusInProgress Status = "in_progress"

	// StatusBlocked indicates work waiting on open blockers
	StatusBlocked Status = "blocked"

	// StatusClosed indicates completed or abandoned work
	StatusClosed Status = "closed"
)

// Priority ranks issue urgency, 0 (drop everything) through 3 (someday).
type Priority int

const (
	PriorityUrgent  Priority = 0
	PriorityHigh    Priority = 1
	PriorityNormal  Priority = 2
	PrioritySomeday Priority = 3
)

// Type classifies the kind of work an issue represents.
type Type string

const (
	TypeTask    Type = "task"
	TypeBug     Type = "bug"
	TypeFeature Type = "feature"
	TypeEpic    Type = "epic"
	TypeChore   Type = "chore"
)

// NewID generates a fresh issue ID (es- plus 6 hex chars).
// Callers should check for collisions against the store and retry.
func NewID() (string, error) {
	buf := make([]byte, 3)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate issue ID: %w", err)
	}
	return fmt.Sprintf("es-%s", hex.EncodeToString(buf)), nil
}

// Validate checks if the Issue has valid field values.
// Returns an error if any validation fails.
func (i *Issue) Validate() error {
	if !IDPattern.MatchString(i.ID) {
		return fmt.Errorf("invalid issue ID %q: must match %s", i.ID, IDPattern.String())
	}

	if i.Title == "" {
		return fmt.Errorf("issue title cannot be empty")
	}

	if err := i.Status.Validate(); err != nil {
		return fmt.Errorf("invalid status: %w", err)
	}

	if err := i.Priority.Validate(); err != nil {
		return fmt.Errorf("invalid priority: %w", err)
	}

	if err := i.Type.Validate(); err != nil {
		return fmt.Errorf("invalid issue type: %w", err)
	}

	for idx, blockerID := range i.BlockedBy {
		if !IDPattern.MatchString(blockerID) {
			return fmt.Errorf("invalid blocker at index %d: %q is not an issue ID", idx, blockerID)
		}
		if blockerID == i.ID {
			return fmt.Errorf("issue %s cannot block itself", i.ID)
		}
	}

	if i.Parent != "" && !IDPattern.MatchString(i.Parent) {
		return fmt.Errorf("invalid parent %q: not an issue ID", i.Parent)
	}
	if i.Parent == i.ID {
		return fmt.Errorf("issue %s cannot be its own parent", i.ID)
	}

	if i.GitHubNumber < 0 {
		return fmt.Errorf("invalid github_number: must be >= 0, got %d", i.GitHubNumber)
	}

	return nil
}

// Locked reports whether the issue carries a live lock lease at the given time.
// An expired lease is treated as unlocked even before the reaper clears it.
func (i *Issue) Locked(now time.Time) bool {
	return i.LockedBy != "" && i.LockExpiresMs > now.UnixMilli()
}

// HasTag reports whether the issue carries the given tag.
func (i *Issue) HasTag(tag string) bool {
	for _, t := range i.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Validate checks if the Status is a valid enum value.
func (s Status) Validate() error {
	switch s {
	case StatusOpen, StatusInProgress, StatusBlocked, StatusClosed:
		return nil
	default:
		return fmt.Errorf("unknown status: %q", s)
	}
}

// Active reports whether the status counts as open work (open or in_progress).
func (s Status) Active() bool {
	return s == StatusOpen || s == StatusInProgress
}

// Validate checks if the Priority is within the supported range.
func (p Priority) Validate() error {
	if p < PriorityUrgent || p > PrioritySomeday {
		return fmt.Errorf("priority out of range: %d (must be 0-3)", p)
	}
	return nil
}

// String renders the priority in the conventional p0-p3 form.
func (p Priority) String() string {
	return fmt.Sprintf("p%d", int(p))
}

// ParsePriority accepts "p0".."p3" or bare digits "0".."3".
func ParsePriority(s string) (Priority, error) {
	switch s {
	case "p0", "0":
		return PriorityUrgent, nil
	case "p1", "1":
		return PriorityHigh, nil
	case "p2", "2":
		return PriorityNormal, nil
	case "p3", "3":
		return PrioritySomeday, nil
	default:
		return 0, fmt.Errorf("invalid priority %q (use p0-p3)", s)
	}
}

// Validate checks if the Type is a valid enum value.
func (t Type) Validate() error {
	switch t {
	case TypeTask, TypeBug, TypeFeature, TypeEpic, TypeChore:
		return nil
	default:
		return fmt.Errorf("unknown issue type: %q", t)
	}
}

// EventKind identifies what mutation an Event describes.
type EventKind string

const (
	// EventCreated is published when an issue is first written
	EventCreated EventKind = "created"

	// EventUpdated is published on any field change short of closing
	EventUpdated EventKind = "updated"

	// EventClosed is published when an issue transitions to closed
	EventClosed EventKind = "closed"

	// EventLocked is published when a lock lease is acquired
	EventLocked EventKind = "locked"

	// EventUnlocked is published when a lock lease is released or broken
	EventUnlocked EventKind = "unlocked"
)

// Validate checks if the EventKind is a valid enum value.
func (k EventKind) Validate() error {
	switch k {
	case EventCreated, EventUpdated, EventClosed, EventLocked, EventUnlocked:
		return nil
	default:
		return fmt.Errorf("unknown event kind: %q", k)
	}
}

// Event is the payload published to the issue events channel.
// It carries a full snapshot of the issue after the mutation.
type Event struct {
	Kind  EventKind `json:"kind"`
	Issue *Issue    `json:"issue"`
	AtMs  int64     `json:"at_ms"`
}
