// Package deps computes dependency relationships over the issue store:
// cycle-safe blocker edges, the ready-work set, and the unblock cascade
// that follows an issue closing.
package deps

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/hirefrank/edgestack/pkg/tracker"
)

// Graph is an in-memory view of a project's issues and their blocker edges.
// Build one from a full listing; it does not track store mutations.
type Graph struct {
	issues map[string]*tracker.Issue
}

// Build constructs a Graph from an issue listing.
func Build(issues []*tracker.Issue) *Graph {
	m := make(map[string]*tracker.Issue, len(issues))
	for _, issue := range issues {
		m[issue.ID] = issue
	}
	return &Graph{issues: m}
}

// Get returns the issue with the given ID, or nil.
func (g *Graph) Get(id string) *tracker.Issue {
	return g.issues[id]
}

// Len returns the number of issues in the graph.
func (g *Graph) Len() int {
	return len(g.issues)
}

// ValidateEdge checks whether adding blockerID to issueID's blocked_by set is
// legal: both issues must exist, an issue cannot block itself, the edge must
// not already exist, and the edge must not create a cycle.
func (g *Graph) ValidateEdge(issueID, blockerID string) error {
	if issueID == blockerID {
		return fmt.Errorf("issue %s cannot block itself", issueID)
	}

	issue, ok := g.issues[issueID]
	if !ok {
		return fmt.Errorf("issue %s not found", issueID)
	}
	if _, ok := g.issues[blockerID]; !ok {
		return fmt.Errorf("blocker %s not found", blockerID)
	}

	for _, existing := range issue.BlockedBy {
		if existing == blockerID {
			return fmt.Errorf("issue %s is already blocked by %s", issueID, blockerID)
		}
	}

	// A cycle exists if the proposed blocker is itself (transitively)
	// blocked by the issue.
	if g.dependsOn(blockerID, issueID, map[string]bool{}) {
		return fmt.Errorf("adding %s as a blocker of %s would create a dependency cycle", blockerID, issueID)
	}

	return nil
}

// dependsOn reports whether fromID transitively lists targetID in blocked_by.
func (g *Graph) dependsOn(fromID, targetID string, visited map[string]bool) bool {
	if visited[fromID] {
		return false
	}
	visited[fromID] = true

	issue, ok := g.issues[fromID]
	if !ok {
		return false
	}

	for _, blockerID := range issue.BlockedBy {
		if blockerID == targetID {
			return true
		}
		if g.dependsOn(blockerID, targetID, visited) {
			return true
		}
	}
	return false
}

// OpenBlockers returns the blocker IDs of an issue that are still open.
// Blockers missing from the graph count as open: an unknown dependency is
// not evidence it was resolved.
func (g *Graph) OpenBlockers(issueID string) []string {
	issue, ok := g.issues[issueID]
	if !ok {
		return nil
	}

	var open []string
	for _, blockerID := range issue.BlockedBy {
		blocker, ok := g.issues[blockerID]
		if !ok || blocker.Status != tracker.StatusClosed {
			open = append(open, blockerID)
		}
	}
	return open
}

// IsReady reports whether an issue is actionable at the given time:
// active status (open or in_progress), no open blockers, and no live lock.
func (g *Graph) IsReady(issue *tracker.Issue, now time.Time) bool {
	if !issue.Status.Active() {
		return false
	}
	if len(g.OpenBlockers(issue.ID)) > 0 {
		return false
	}
	if issue.Locked(now) {
		return false
	}
	return true
}

// ReadySet returns all actionable issues, sorted by priority (urgent first)
// then by creation time (oldest first).
func (g *Graph) ReadySet(now time.Time) []*tracker.Issue {
	var ready []*tracker.Issue
	for _, issue := range g.issues {
		if g.IsReady(issue, now) {
			ready = append(ready, issue)
		}
	}

	sort.Slice(ready, func(i, j int) bool {
		if ready[i].Priority != ready[j].Priority {
			return ready[i].Priority < ready[j].Priority
		}
		return ready[i].CreatedAtMs < ready[j].CreatedAtMs
	})

	return ready
}

// Dependents returns the issues that list the given ID in blocked_by,
// sorted by ID for stable output.
func (g *Graph) Dependents(issueID string) []*tracker.Issue {
	var dependents []*tracker.Issue
	for _, issue := range g.issues {
		for _, blockerID := range issue.BlockedBy {
			if blockerID == issueID {
				dependents = append(dependents, issue)
				break
			}
		}
	}

	sort.Slice(dependents, func(i, j int) bool {
		return dependents[i].ID < dependents[j].ID
	})

	return dependents
}

// UnblockResult describes the cascade caused by closing an issue.
type UnblockResult struct {
	// Updated are dependents whose blocked_by set changed and must be
	// written back to the store.
	Updated []*tracker.Issue

	// NowReady is the subset of Updated that became actionable.
	NowReady []*tracker.Issue
}

// Unblock removes closedID from every dependent's blocked_by set and
// reports which dependents became ready as a result. Dependents whose
// status is "blocked" and whose last open blocker was removed are flipped
// back to "open". The graph's own view is updated in place so repeated
// closes cascade correctly.
func (g *Graph) Unblock(closedID string, now time.Time) UnblockResult {
	result := UnblockResult{}

	for _, dependent := range g.Dependents(closedID) {
		kept := dependent.BlockedBy[:0]
		for _, blockerID := range dependent.BlockedBy {
			if blockerID != closedID {
				kept = append(kept, blockerID)
			}
		}
		dependent.BlockedBy = kept

		if dependent.Status == tracker.StatusBlocked && len(g.OpenBlockers(dependent.ID)) == 0 {
			dependent.Status = tracker.StatusOpen
		}

		result.Updated = append(result.Updated, dependent)
		if g.IsReady(dependent, now) {
			result.NowReady = append(result.NowReady, dependent)
		}
	}

	return result
}

// Store is the slice of the tracker client the close cascade needs.
type Store interface {
	ListIssues(ctx context.Context) ([]*tracker.Issue, error)
	UpdateIssue(ctx context.Context, issue *tracker.Issue) error
}

// CascadeClose removes closedID from every dependent's blocked_by set in
// the store and persists the changes. Every path that closes an issue
// (es close, the sync engine pulling a GitHub close) must run this, or
// blocked dependents stay blocked forever.
func CascadeClose(ctx context.Context, store Store, closedID string, now time.Time) (UnblockResult, error) {
	issues, err := store.ListIssues(ctx)
	if err != nil {
		return UnblockResult{}, err
	}

	result := Build(issues).Unblock(closedID, now)
	for _, dependent := range result.Updated {
		if err := store.UpdateIssue(ctx, dependent); err != nil {
			return result, fmt.Errorf("failed to update dependent %s: %w", dependent.ID, err)
		}
	}
	return result, nil
}

// Stats aggregates issue counts by status, for `es status` summaries.
type Stats struct {
	Open       int `json:"open"`
	InProgress int `json:"in_progress"`
	Blocked    int `json:"blocked"`
	Closed     int `json:"closed"`
	Ready      int `json:"ready"`
	Locked     int `json:"locked"`
}

// ComputeStats tallies the graph's issues by status, readiness, and lock state.
func (g *Graph) ComputeStats(now time.Time) Stats {
	stats := Stats{}
	for _, issue := range g.issues {
		switch issue.Status {
		case tracker.StatusOpen:
			stats.Open++
		case tracker.StatusInProgress:
			stats.InProgress++
		case tracker.StatusBlocked:
			stats.Blocked++
		case tracker.StatusClosed:
			stats.Closed++
		}
		if g.IsReady(issue, now) {
			stats.Ready++
		}
		if issue.Locked(now) {
			stats.Locked++
		}
	}
	return stats
}
