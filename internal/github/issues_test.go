package github

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRunner records gh invocations and replays canned responses.
type fakeRunner struct {
	calls  [][]string
	output []byte
	err    error
}

func (f *fakeRunner) run(args ...string) ([]byte, error) {
	f.calls = append(f.calls, args)
	return f.output, f.err
}

func newTestManager(output []byte, err error) (*Manager, *fakeRunner) {
	runner := &fakeRunner{output: output, err: err}
	m := NewManager("hirefrank/edgestack")
	m.run = runner.run
	return m, runner
}

func TestListIssues(t *testing.T) {
	m, runner := newTestManager([]byte(`[
		{"number": 7, "title": "Fix KV binding", "body": "details", "state": "OPEN",
		 "url": "https://github.com/hirefrank/edgestack/issues/7",
		 "updatedAt": "2026-08-01T10:00:00Z",
		 "labels": [{"name": "bug"}, {"name": "workers"}]},
		{"number": 8, "title": "Done thing", "body": "", "state": "CLOSED",
		 "url": "https://github.com/hirefrank/edgestack/issues/8",
		 "updatedAt": "2026-08-02T10:00:00Z", "labels": []}
	]`), nil)

	issues, err := m.ListIssues("all")
	require.NoError(t, err)
	require.Len(t, issues, 2)

	assert.Equal(t, 7, issues[0].Number)
	assert.Equal(t, "Fix KV binding", issues[0].Title)
	assert.False(t, issues[0].Closed())
	assert.Equal(t, []string{"bug", "workers"}, issues[0].LabelNames())
	assert.Equal(t, time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC), issues[0].UpdatedAt)

	assert.True(t, issues[1].Closed())
	assert.Empty(t, issues[1].LabelNames())

	require.Len(t, runner.calls, 1)
	assert.Equal(t, []string{"issue", "list",
		"--repo", "hirefrank/edgestack",
		"--state", "all",
		"--json", issueFields,
		"--limit", "500"}, runner.calls[0])
}

func TestListIssues_Error(t *testing.T) {
	m, _ := newTestManager([]byte("GraphQL: rate limited"), fmt.Errorf("exit status 1"))

	_, err := m.ListIssues("open")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}

func TestGetIssue(t *testing.T) {
	m, runner := newTestManager([]byte(`{"number": 12, "title": "Cron trigger drift",
		"state": "OPEN", "url": "https://github.com/hirefrank/edgestack/issues/12",
		"updatedAt": "2026-08-10T09:30:00Z", "labels": []}`), nil)

	issue, err := m.GetIssue(12)
	require.NoError(t, err)
	assert.Equal(t, 12, issue.Number)
	assert.Equal(t, "Cron trigger drift", issue.Title)

	require.Len(t, runner.calls, 1)
	assert.Equal(t, []string{"issue", "view", "12",
		"--repo", "hirefrank/edgestack",
		"--json", issueFields}, runner.calls[0])
}

func TestCreateIssue(t *testing.T) {
	m, runner := newTestManager([]byte("https://github.com/hirefrank/edgestack/issues/42\n"), nil)

	url, number, err := m.CreateIssue("Add D1 migration", "body text", []string{"es", "database"})
	require.NoError(t, err)
	assert.Equal(t, "https://github.com/hirefrank/edgestack/issues/42", url)
	assert.Equal(t, 42, number)

	require.Len(t, runner.calls, 1)
	assert.Equal(t, []string{"issue", "create",
		"--repo", "hirefrank/edgestack",
		"--title", "Add D1 migration",
		"--body", "body text",
		"--label", "es",
		"--label", "database"}, runner.calls[0])
}

func TestCreateIssue_Error(t *testing.T) {
	// On failure the runner hands back gh's stderr, which must surface in
	// the error instead of being parsed as a URL.
	m, _ := newTestManager([]byte("GraphQL: Validation Failed (createIssue)"), fmt.Errorf("exit status 1"))

	_, _, err := m.CreateIssue("t", "b", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Validation Failed")
}

func TestCreateIssue_BadURL(t *testing.T) {
	m, _ := newTestManager([]byte("something unexpected"), nil)

	_, _, err := m.CreateIssue("t", "b", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected issue URL")
}

func TestCloseIssue(t *testing.T) {
	m, runner := newTestManager(nil, nil)

	require.NoError(t, m.CloseIssue(9, "done in es-a1b2c3"))
	require.Len(t, runner.calls, 1)
	assert.Equal(t, []string{"issue", "close", "9",
		"--repo", "hirefrank/edgestack",
		"--comment", "done in es-a1b2c3"}, runner.calls[0])

	require.NoError(t, m.CloseIssue(10, ""))
	assert.Equal(t, []string{"issue", "close", "10",
		"--repo", "hirefrank/edgestack"}, runner.calls[1])
}

func TestReopenIssue(t *testing.T) {
	m, runner := newTestManager(nil, nil)

	require.NoError(t, m.ReopenIssue(3))
	assert.Equal(t, []string{"issue", "reopen", "3",
		"--repo", "hirefrank/edgestack"}, runner.calls[0])
}

func TestEditIssue(t *testing.T) {
	m, runner := newTestManager(nil, nil)

	require.NoError(t, m.EditIssue(5, "new title", ""))
	assert.Equal(t, []string{"issue", "edit", "5",
		"--repo", "hirefrank/edgestack",
		"--title", "new title"}, runner.calls[0])
}

func TestIsAuthenticated(t *testing.T) {
	t.Run("authenticated", func(t *testing.T) {
		m, _ := newTestManager([]byte("Logged in to github.com"), nil)
		ok, err := m.IsAuthenticated()
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("not logged in", func(t *testing.T) {
		m, _ := newTestManager([]byte("You are not logged into any GitHub hosts"), fmt.Errorf("exit status 1"))
		ok, err := m.IsAuthenticated()
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("other failure", func(t *testing.T) {
		m, _ := newTestManager([]byte("network unreachable"), fmt.Errorf("exit status 1"))
		_, err := m.IsAuthenticated()
		require.Error(t, err)
	})
}

func TestNumberFromURL(t *testing.T) {
	n, err := numberFromURL("https://github.com/o/r/issues/123")
	require.NoError(t, err)
	assert.Equal(t, 123, n)

	_, err = numberFromURL("https://github.com/o/r/issues/")
	assert.Error(t, err)

	_, err = numberFromURL("no-slashes")
	assert.Error(t, err)
}
