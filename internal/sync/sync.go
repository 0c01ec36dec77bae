// Package sync reconciles the local issue store with GitHub Issues.
//
// The engine is split into Plan and Apply so a dry run can print exactly
// what would happen without mutating either side. Status disagreements
// resolve newest-wins; title/body disagreements where both sides changed
// since the last sync are surfaced as conflicts and never merged silently.
package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/hirefrank/edgestack/internal/deps"
	"github.com/hirefrank/edgestack/internal/github"
	"github.com/hirefrank/edgestack/pkg/tracker"
)

// GitHub is the slice of the gh wrapper the engine needs.
// *github.Manager satisfies it.
type GitHub interface {
	ListIssues(state string) ([]github.RemoteIssue, error)
	CreateIssue(title, body string, labels []string) (string, int, error)
	CloseIssue(number int, comment string) error
	ReopenIssue(number int) error
	EditIssue(number int, title, body string) error
}

// Store is the slice of the tracker client the engine needs.
// *tracker.Client satisfies it.
type Store interface {
	ListIssues(ctx context.Context) ([]*tracker.Issue, error)
	CreateIssue(ctx context.Context, issue *tracker.Issue) error
	UpdateIssue(ctx context.Context, issue *tracker.Issue) error
	CloseIssue(ctx context.Context, issueID string) (*tracker.Issue, error)
	GetSyncState(ctx context.Context) (*tracker.SyncState, error)
	SetSyncState(ctx context.Context, state *tracker.SyncState) error
}

// ActionKind identifies a reconciliation step.
type ActionKind string

const (
	// ActionPushCreate creates a GitHub issue for an unlinked local issue.
	ActionPushCreate ActionKind = "push-create"
	// ActionPullCreate creates a local issue for an unlinked GitHub issue.
	ActionPullCreate ActionKind = "pull-create"
	// ActionCloseRemote closes the linked GitHub issue.
	ActionCloseRemote ActionKind = "close-remote"
	// ActionCloseLocal closes the local issue.
	ActionCloseLocal ActionKind = "close-local"
	// ActionReopenRemote reopens the linked GitHub issue.
	ActionReopenRemote ActionKind = "reopen-remote"
	// ActionReopenLocal reopens the local issue.
	ActionReopenLocal ActionKind = "reopen-local"
	// ActionPushEdit pushes the local title/body to GitHub.
	ActionPushEdit ActionKind = "push-edit"
	// ActionPullEdit pulls the GitHub title/body into the local issue.
	ActionPullEdit ActionKind = "pull-edit"
)

// Action is a single planned reconciliation step.
type Action struct {
	Kind   ActionKind
	Local  *tracker.Issue
	Remote *github.RemoteIssue
	Reason string
}

// Conflict records a disagreement both sides touched since the last sync.
// Conflicts are never applied automatically.
type Conflict struct {
	Local  *tracker.Issue
	Remote *github.RemoteIssue
	Field  string
}

func (c Conflict) String() string {
	return fmt.Sprintf("%s <-> #%d: both sides changed %s since last sync", c.Local.ID, c.Remote.Number, c.Field)
}

// Plan is the full set of steps a sync run would take.
type Plan struct {
	Actions   []Action
	Conflicts []Conflict
}

// Empty reports whether the plan has nothing to do.
func (p *Plan) Empty() bool {
	return len(p.Actions) == 0 && len(p.Conflicts) == 0
}

// Resolution selects how conflicts are applied.
type Resolution string

const (
	// ResolveNone leaves conflicts untouched; Apply reports them back.
	ResolveNone Resolution = ""
	// ResolveOurs pushes the local side of each conflict to GitHub.
	ResolveOurs Resolution = "ours"
	// ResolveTheirs pulls the GitHub side of each conflict locally.
	ResolveTheirs Resolution = "theirs"
)

// Options controls an Apply run.
type Options struct {
	Resolution Resolution
	// CloseComment is attached when the engine closes a GitHub issue.
	CloseComment string
	// Labels are added to every GitHub issue the engine creates, on top of
	// the local issue's tags.
	Labels []string
}

// Result summarizes what Apply actually did.
type Result struct {
	Pushed     int
	Pulled     int
	Closed     int
	Reopened   int
	Edited     int
	Unresolved []Conflict
}

// Engine reconciles one project's store with one GitHub repo.
type Engine struct {
	store Store
	gh    GitHub
	now   func() time.Time
}

// NewEngine creates a sync engine.
func NewEngine(store Store, gh GitHub) *Engine {
	return &Engine{store: store, gh: gh, now: time.Now}
}

// BuildPlan compares both sides and produces the reconciliation plan.
func (e *Engine) BuildPlan(ctx context.Context) (*Plan, error) {
	local, err := e.store.ListIssues(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list local issues: %w", err)
	}

	remote, err := e.gh.ListIssues("all")
	if err != nil {
		return nil, err
	}

	state, err := e.store.GetSyncState(ctx)
	if err != nil {
		return nil, err
	}

	plan := &Plan{}
	byNumber := make(map[int]*github.RemoteIssue, len(remote))
	for i := range remote {
		byNumber[remote[i].Number] = &remote[i]
	}

	linked := make(map[int]bool)
	for _, issue := range local {
		if issue.GitHubNumber == 0 {
			// Closed unlinked issues are history, not work to export.
			if issue.Status != tracker.StatusClosed {
				plan.Actions = append(plan.Actions, Action{
					Kind:   ActionPushCreate,
					Local:  issue,
					Reason: "no linked GitHub issue",
				})
			}
			continue
		}

		linked[issue.GitHubNumber] = true
		rem, ok := byNumber[issue.GitHubNumber]
		if !ok {
			// Linked remote vanished (deleted or transferred). Leave the
			// local record alone and let the operator decide.
			continue
		}

		e.planPair(plan, issue, rem, state.LastSyncMs)
	}

	for i := range remote {
		rem := &remote[i]
		if linked[rem.Number] || rem.Closed() {
			continue
		}
		plan.Actions = append(plan.Actions, Action{
			Kind:   ActionPullCreate,
			Remote: rem,
			Reason: "no linked local issue",
		})
	}

	return plan, nil
}

// planPair reconciles one linked local/remote pair.
func (e *Engine) planPair(plan *Plan, local *tracker.Issue, remote *github.RemoteIssue, lastSyncMs int64) {
	localClosed := local.Status == tracker.StatusClosed
	remoteMs := remote.UpdatedAt.UnixMilli()

	if localClosed != remote.Closed() {
		// Newest write wins for status.
		if local.UpdatedAtMs >= remoteMs {
			kind := ActionCloseRemote
			if !localClosed {
				kind = ActionReopenRemote
			}
			plan.Actions = append(plan.Actions, Action{
				Kind: kind, Local: local, Remote: remote,
				Reason: "local status is newer",
			})
		} else {
			kind := ActionCloseLocal
			if !remote.Closed() {
				kind = ActionReopenLocal
			}
			plan.Actions = append(plan.Actions, Action{
				Kind: kind, Local: local, Remote: remote,
				Reason: "GitHub status is newer",
			})
		}
	}

	if local.Title == remote.Title && local.Description == remote.Body {
		return
	}

	localChanged := local.UpdatedAtMs > lastSyncMs
	remoteChanged := remoteMs > lastSyncMs

	switch {
	case localChanged && remoteChanged:
		plan.Conflicts = append(plan.Conflicts, Conflict{
			Local: local, Remote: remote, Field: "title/body",
		})
	case localChanged:
		plan.Actions = append(plan.Actions, Action{
			Kind: ActionPushEdit, Local: local, Remote: remote,
			Reason: "local edit since last sync",
		})
	case remoteChanged:
		plan.Actions = append(plan.Actions, Action{
			Kind: ActionPullEdit, Local: local, Remote: remote,
			Reason: "GitHub edit since last sync",
		})
	default:
		// Text differs but neither side changed since the last sync.
		// Provenance is unknowable, so treat it like a conflict.
		plan.Conflicts = append(plan.Conflicts, Conflict{
			Local: local, Remote: remote, Field: "title/body",
		})
	}
}

// Apply executes a plan. Conflicts are applied only when opts.Resolution
// picks a side; otherwise they come back in Result.Unresolved.
func (e *Engine) Apply(ctx context.Context, plan *Plan, opts Options) (*Result, error) {
	result := &Result{}

	for _, action := range plan.Actions {
		if err := e.applyAction(ctx, action, opts); err != nil {
			return result, err
		}
		switch action.Kind {
		case ActionPushCreate:
			result.Pushed++
		case ActionPullCreate:
			result.Pulled++
		case ActionCloseRemote, ActionCloseLocal:
			result.Closed++
		case ActionReopenRemote, ActionReopenLocal:
			result.Reopened++
		case ActionPushEdit, ActionPullEdit:
			result.Edited++
		}
	}

	for _, conflict := range plan.Conflicts {
		switch opts.Resolution {
		case ResolveOurs:
			if err := e.gh.EditIssue(conflict.Remote.Number, conflict.Local.Title, conflict.Local.Description); err != nil {
				return result, err
			}
			result.Edited++
		case ResolveTheirs:
			conflict.Local.Title = conflict.Remote.Title
			conflict.Local.Description = conflict.Remote.Body
			if err := e.store.UpdateIssue(ctx, conflict.Local); err != nil {
				return result, err
			}
			result.Edited++
		default:
			result.Unresolved = append(result.Unresolved, conflict)
		}
	}

	if err := e.store.SetSyncState(ctx, &tracker.SyncState{LastSyncMs: e.now().UnixMilli()}); err != nil {
		return result, err
	}
	return result, nil
}

func (e *Engine) applyAction(ctx context.Context, action Action, opts Options) error {
	switch action.Kind {
	case ActionPushCreate:
		labels := append(append([]string{}, action.Local.Tags...), opts.Labels...)
		url, number, err := e.gh.CreateIssue(action.Local.Title, action.Local.Description, labels)
		if err != nil {
			return err
		}
		action.Local.GitHubIssue = url
		action.Local.GitHubNumber = number
		return e.store.UpdateIssue(ctx, action.Local)

	case ActionPullCreate:
		id, err := tracker.NewID()
		if err != nil {
			return err
		}
		issue := &tracker.Issue{
			ID:           id,
			Title:        action.Remote.Title,
			Description:  action.Remote.Body,
			Status:       tracker.StatusOpen,
			Priority:     tracker.PriorityNormal,
			Type:         tracker.TypeTask,
			Tags:         action.Remote.LabelNames(),
			GitHubIssue:  action.Remote.URL,
			GitHubNumber: action.Remote.Number,
		}
		return e.store.CreateIssue(ctx, issue)

	case ActionCloseRemote:
		return e.gh.CloseIssue(action.Remote.Number, opts.CloseComment)

	case ActionCloseLocal:
		if _, err := e.store.CloseIssue(ctx, action.Local.ID); err != nil {
			return err
		}
		// Pulled closes unblock dependents just like es close does.
		_, err := deps.CascadeClose(ctx, e.store, action.Local.ID, e.now())
		return err

	case ActionReopenRemote:
		return e.gh.ReopenIssue(action.Remote.Number)

	case ActionReopenLocal:
		action.Local.Status = tracker.StatusOpen
		action.Local.ClosedAtMs = 0
		issues, err := e.store.ListIssues(ctx)
		if err != nil {
			return err
		}
		// A reopened issue with open blockers comes back as blocked, not open.
		if len(deps.Build(issues).OpenBlockers(action.Local.ID)) > 0 {
			action.Local.Status = tracker.StatusBlocked
		}
		return e.store.UpdateIssue(ctx, action.Local)

	case ActionPushEdit:
		return e.gh.EditIssue(action.Remote.Number, action.Local.Title, action.Local.Description)

	case ActionPullEdit:
		action.Local.Title = action.Remote.Title
		action.Local.Description = action.Remote.Body
		return e.store.UpdateIssue(ctx, action.Local)

	default:
		return fmt.Errorf("unknown sync action %q", action.Kind)
	}
}
