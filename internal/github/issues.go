// Package github wraps the gh CLI for issue operations. All network calls
// go through `gh`, so authentication and proxying are gh's problem, not ours.
package github

import (
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// runnerFunc executes a gh invocation and returns its stdout. gh writes
// progress chatter to stderr, which must not leak into captured URLs or
// JSON; on failure the returned bytes carry stderr so errors stay readable.
// Injectable so tests can intercept calls without a gh binary.
type runnerFunc func(args ...string) ([]byte, error)

// Manager handles GitHub issue operations using the gh CLI.
type Manager struct {
	repo string
	run  runnerFunc
}

// RemoteIssue holds the fields we request from `gh issue list/view --json`.
type RemoteIssue struct {
	Number    int       `json:"number"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	State     string    `json:"state"`
	URL       string    `json:"url"`
	UpdatedAt time.Time `json:"updatedAt"`
	Labels    []Label   `json:"labels"`
}

// Label is a GitHub issue label.
type Label struct {
	Name string `json:"name"`
}

// LabelNames returns the issue's label names.
func (r *RemoteIssue) LabelNames() []string {
	names := make([]string, 0, len(r.Labels))
	for _, l := range r.Labels {
		names = append(names, l.Name)
	}
	return names
}

// Closed reports whether the remote issue is closed. gh reports state in
// upper case (OPEN, CLOSED).
func (r *RemoteIssue) Closed() bool {
	return strings.EqualFold(r.State, "closed")
}

// NewManager creates a GitHub manager scoped to a repo slug (owner/name).
func NewManager(repo string) *Manager {
	return &Manager{
		repo: repo,
		run: func(args ...string) ([]byte, error) {
			out, err := exec.Command("gh", args...).Output()
			if err != nil {
				var exitErr *exec.ExitError
				if errors.As(err, &exitErr) {
					return exitErr.Stderr, err
				}
				return out, err
			}
			return out, nil
		},
	}
}

// Repo returns the repo slug the manager operates on.
func (m *Manager) Repo() string {
	return m.repo
}

// IsInstalled checks if the gh CLI is installed.
func (m *Manager) IsInstalled() bool {
	_, err := m.run("--version")
	return err == nil
}

// IsAuthenticated checks if the user is authenticated with gh.
func (m *Manager) IsAuthenticated() (bool, error) {
	output, err := m.run("auth", "status")
	if err != nil {
		if strings.Contains(string(output), "not logged into") {
			return false, nil
		}
		return false, fmt.Errorf("failed to check auth status: %s", string(output))
	}
	return true, nil
}

// CheckAvailable verifies gh is installed and authenticated.
func (m *Manager) CheckAvailable() error {
	if !m.IsInstalled() {
		return fmt.Errorf("gh CLI is not installed. Install it from https://cli.github.com")
	}
	authenticated, err := m.IsAuthenticated()
	if err != nil {
		return err
	}
	if !authenticated {
		return fmt.Errorf("not authenticated with GitHub. Run 'gh auth login' to authenticate")
	}
	return nil
}

const issueFields = "number,title,body,state,url,updatedAt,labels"

// ListIssues lists issues in the repo. state is "open", "closed", or "all".
func (m *Manager) ListIssues(state string) ([]RemoteIssue, error) {
	output, err := m.run("issue", "list",
		"--repo", m.repo,
		"--state", state,
		"--json", issueFields,
		"--limit", "500")
	if err != nil {
		return nil, fmt.Errorf("failed to list issues: %s", string(output))
	}

	var issues []RemoteIssue
	if err := json.Unmarshal(output, &issues); err != nil {
		return nil, fmt.Errorf("failed to parse issue list: %w", err)
	}
	return issues, nil
}

// GetIssue fetches a single issue by number.
func (m *Manager) GetIssue(number int) (*RemoteIssue, error) {
	output, err := m.run("issue", "view", strconv.Itoa(number),
		"--repo", m.repo,
		"--json", issueFields)
	if err != nil {
		return nil, fmt.Errorf("failed to view issue #%d: %s", number, string(output))
	}

	var issue RemoteIssue
	if err := json.Unmarshal(output, &issue); err != nil {
		return nil, fmt.Errorf("failed to parse issue #%d: %w", number, err)
	}
	return &issue, nil
}

// CreateIssue opens a new issue and returns its URL and number.
// gh prints the created issue's URL on success.
func (m *Manager) CreateIssue(title, body string, labels []string) (string, int, error) {
	args := []string{"issue", "create",
		"--repo", m.repo,
		"--title", title,
		"--body", body,
	}
	for _, label := range labels {
		args = append(args, "--label", label)
	}

	output, err := m.run(args...)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create issue: %s", string(output))
	}

	url := strings.TrimSpace(string(output))
	number, err := numberFromURL(url)
	if err != nil {
		return url, 0, err
	}
	return url, number, nil
}

// CloseIssue closes an issue, optionally leaving a comment.
func (m *Manager) CloseIssue(number int, comment string) error {
	args := []string{"issue", "close", strconv.Itoa(number), "--repo", m.repo}
	if comment != "" {
		args = append(args, "--comment", comment)
	}
	output, err := m.run(args...)
	if err != nil {
		return fmt.Errorf("failed to close issue #%d: %s", number, string(output))
	}
	return nil
}

// ReopenIssue reopens a closed issue.
func (m *Manager) ReopenIssue(number int) error {
	output, err := m.run("issue", "reopen", strconv.Itoa(number), "--repo", m.repo)
	if err != nil {
		return fmt.Errorf("failed to reopen issue #%d: %s", number, string(output))
	}
	return nil
}

// CommentIssue adds a comment to an issue.
func (m *Manager) CommentIssue(number int, comment string) error {
	output, err := m.run("issue", "comment", strconv.Itoa(number),
		"--repo", m.repo,
		"--body", comment)
	if err != nil {
		return fmt.Errorf("failed to comment on issue #%d: %s", number, string(output))
	}
	return nil
}

// EditIssue updates an issue's title and/or body. Empty fields are left as-is.
func (m *Manager) EditIssue(number int, title, body string) error {
	args := []string{"issue", "edit", strconv.Itoa(number), "--repo", m.repo}
	if title != "" {
		args = append(args, "--title", title)
	}
	if body != "" {
		args = append(args, "--body", body)
	}
	output, err := m.run(args...)
	if err != nil {
		return fmt.Errorf("failed to edit issue #%d: %s", number, string(output))
	}
	return nil
}

// numberFromURL extracts the issue number from a GitHub issue URL like
// https://github.com/owner/repo/issues/42.
func numberFromURL(url string) (int, error) {
	idx := strings.LastIndex(url, "/")
	if idx < 0 || idx == len(url)-1 {
		return 0, fmt.Errorf("unexpected issue URL %q", url)
	}
	number, err := strconv.Atoi(url[idx+1:])
	if err != nil {
		return 0, fmt.Errorf("unexpected issue URL %q", url)
	}
	return number, nil
}
