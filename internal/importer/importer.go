// Package importer turns free-form GitHub issue bodies into child issues.
//
// Issue bodies are unstructured markdown, so extraction is heuristic:
// checkbox lines are the strongest signal, numbered list items next, and
// section headers are a last resort when a body has neither.
package importer

import (
	"bufio"
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/hirefrank/edgestack/pkg/tracker"
)

// Task is one extracted work item.
type Task struct {
	Title string
	// Done marks a checked checkbox; imported as an already-closed issue.
	Done bool
}

var (
	checkboxRe = regexp.MustCompile(`^\s*[-*]\s+\[([ xX])\]\s+(.+)$`)
	numberedRe = regexp.MustCompile(`^\s*\d+[.)]\s+(.+)$`)
	headerRe   = regexp.MustCompile(`^#{2,3}\s+(.+)$`)
)

// maxTitleLen truncates pathological one-line-paragraph "titles".
const maxTitleLen = 120

// Breakdown extracts tasks from a markdown body. Checkboxes win over
// numbered items, which win over headers; the tiers never mix, so a body
// with three checkboxes and ten headers yields three tasks. Fenced code
// blocks are ignored. Duplicate titles (case-insensitive) are dropped.
func Breakdown(body string) []Task {
	var checkboxes, numbered, headers []Task

	inFence := false
	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		line := scanner.Text()

		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}

		if m := checkboxRe.FindStringSubmatch(line); m != nil {
			checkboxes = append(checkboxes, Task{
				Title: cleanTitle(m[2]),
				Done:  m[1] != " ",
			})
			continue
		}
		if m := numberedRe.FindStringSubmatch(line); m != nil {
			numbered = append(numbered, Task{Title: cleanTitle(m[1])})
			continue
		}
		if m := headerRe.FindStringSubmatch(line); m != nil {
			headers = append(headers, Task{Title: cleanTitle(m[1])})
		}
	}

	tasks := checkboxes
	if len(tasks) == 0 {
		tasks = numbered
	}
	if len(tasks) == 0 {
		tasks = headers
	}
	return dedupe(tasks)
}

// cleanTitle strips markdown emphasis and trailing link syntax from a
// candidate title and truncates it to a sane length.
func cleanTitle(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "*_`")
	s = strings.TrimSpace(s)
	if len(s) > maxTitleLen {
		// Back the cut up to a rune boundary.
		cut := maxTitleLen
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = strings.TrimSpace(s[:cut])
	}
	return s
}

func dedupe(tasks []Task) []Task {
	seen := make(map[string]bool, len(tasks))
	out := tasks[:0]
	for _, task := range tasks {
		if task.Title == "" {
			continue
		}
		key := strings.ToLower(task.Title)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, task)
	}
	return out
}

// Store is the slice of the tracker client the importer needs.
type Store interface {
	ListIssues(ctx context.Context) ([]*tracker.Issue, error)
	CreateIssue(ctx context.Context, issue *tracker.Issue) error
	CloseIssue(ctx context.Context, issueID string) (*tracker.Issue, error)
}

// Result summarizes an import run.
type Result struct {
	Created []*tracker.Issue
	// Skipped counts tasks that already exist as issues with the same title.
	Skipped int
	// Closed counts created issues that were immediately closed because
	// their checkbox was already ticked.
	Closed int
}

// Importer creates child issues from extracted tasks.
type Importer struct {
	store Store
}

// New creates an Importer over a store.
func New(store Store) *Importer {
	return &Importer{store: store}
}

// Import extracts tasks from body and creates one child issue per task.
// Children inherit the parent's priority and tags and are linked back via
// the parent field and a blocked_by edge on the parent, so the parent is
// not ready until its breakdown completes; an open parent that gains open
// children flips to blocked. The caller persists the updated parent. Tasks whose title matches an existing issue (case-insensitive)
// are skipped. Parent may be nil for imports of standalone bodies.
func (imp *Importer) Import(ctx context.Context, parent *tracker.Issue, body string) (*Result, error) {
	tasks := Breakdown(body)
	result := &Result{}
	if len(tasks) == 0 {
		return result, nil
	}

	existing, err := imp.store.ListIssues(ctx)
	if err != nil {
		return nil, err
	}
	existingTitles := make(map[string]bool, len(existing))
	for _, issue := range existing {
		existingTitles[strings.ToLower(issue.Title)] = true
	}

	priority := tracker.PriorityNormal
	var tags []string
	parentID := ""
	if parent != nil {
		priority = parent.Priority
		tags = parent.Tags
		parentID = parent.ID
	}

	for _, task := range tasks {
		if existingTitles[strings.ToLower(task.Title)] {
			result.Skipped++
			continue
		}

		id, err := tracker.NewID()
		if err != nil {
			return result, err
		}

		child := &tracker.Issue{
			ID:       id,
			Title:    task.Title,
			Status:   tracker.StatusOpen,
			Priority: priority,
			Type:     tracker.TypeTask,
			Tags:     tags,
			Parent:   parentID,
		}
		if err := imp.store.CreateIssue(ctx, child); err != nil {
			return result, err
		}
		existingTitles[strings.ToLower(task.Title)] = true

		if task.Done {
			closed, err := imp.store.CloseIssue(ctx, child.ID)
			if err != nil {
				return result, err
			}
			child = closed
			result.Closed++
		} else if parent != nil {
			parent.BlockedBy = append(parent.BlockedBy, child.ID)
		}

		result.Created = append(result.Created, child)
	}

	// Open children are blockers, so an open parent flips to blocked.
	if parent != nil && parent.Status == tracker.StatusOpen && len(result.Created) > result.Closed {
		parent.Status = tracker.StatusBlocked
	}

	return result, nil
}
