package report

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hirefrank/edgestack/pkg/tracker"
)

func setupStore(t *testing.T) (*tracker.Client, *miniredis.Miniredis) {
	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	t.Cleanup(mr.Close)

	client, err := tracker.NewClient(&redis.Options{Addr: mr.Addr()}, "test-project")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client, mr
}

func testIssue(id, title string) *tracker.Issue {
	return &tracker.Issue{
		ID:       id,
		Title:    title,
		Status:   tracker.StatusOpen,
		Priority: tracker.PriorityNormal,
		Type:     tracker.TypeTask,
	}
}

func TestMatchesFilter(t *testing.T) {
	issue := testIssue("es-aaa001", "filter target")
	issue.Tags = []string{"cache", "workers"}
	issue.AssignedAgent = "agent-1"
	issue.CreatedAtMs = time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC).UnixMilli()

	tests := []struct {
		name    string
		filters FilterCriteria
		want    bool
	}{
		{"no filters", FilterCriteria{}, true},
		{"status match", FilterCriteria{Status: tracker.StatusOpen}, true},
		{"status mismatch", FilterCriteria{Status: tracker.StatusClosed}, false},
		{"type match", FilterCriteria{Type: tracker.TypeTask}, true},
		{"type mismatch", FilterCriteria{Type: tracker.TypeBug}, false},
		{"tag match", FilterCriteria{Tag: "workers"}, true},
		{"tag mismatch", FilterCriteria{Tag: "database"}, false},
		{"agent match", FilterCriteria{Agent: "agent-1"}, true},
		{"agent mismatch", FilterCriteria{Agent: "agent-2"}, false},
		{"since before creation", FilterCriteria{SinceTimestampMs: issue.CreatedAtMs - 1000}, true},
		{"since after creation", FilterCriteria{SinceTimestampMs: issue.CreatedAtMs + 1000}, false},
		{"until after creation", FilterCriteria{UntilTimestampMs: issue.CreatedAtMs + 1000}, true},
		{"until before creation", FilterCriteria{UntilTimestampMs: issue.CreatedAtMs - 1000}, false},
		{"combined", FilterCriteria{Status: tracker.StatusOpen, Tag: "cache", Agent: "agent-1"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filters.matchesFilter(issue))
		})
	}
}

func TestListIssues_Table(t *testing.T) {
	client, _ := setupStore(t)
	ctx := context.Background()

	urgent := testIssue("es-bbb001", "urgent issue")
	urgent.Priority = tracker.PriorityUrgent
	require.NoError(t, client.CreateIssue(ctx, urgent))
	require.NoError(t, client.CreateIssue(ctx, testIssue("es-bbb002", "normal issue")))

	var buf bytes.Buffer
	require.NoError(t, ListIssues(ctx, client, OutputFormatDefault, nil, &buf))

	out := buf.String()
	assert.Contains(t, out, "es-bbb001")
	assert.Contains(t, out, "es-bbb002")
	assert.Contains(t, out, "urgent issue")
	assert.Contains(t, out, "2 issues found")

	// Urgent sorts before normal.
	assert.Less(t, strings.Index(out, "es-bbb001"), strings.Index(out, "es-bbb002"))
}

func TestListIssues_JSONL(t *testing.T) {
	client, _ := setupStore(t)
	ctx := context.Background()

	issue := testIssue("es-ccc001", "jsonl issue")
	issue.Tags = []string{"edge"}
	require.NoError(t, client.CreateIssue(ctx, issue))

	var buf bytes.Buffer
	require.NoError(t, ListIssues(ctx, client, OutputFormatJSONL, nil, &buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var decoded tracker.Issue
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &decoded))
	assert.Equal(t, "es-ccc001", decoded.ID)
	assert.Equal(t, []string{"edge"}, decoded.Tags)
}

func TestListIssues_ReadyFilter(t *testing.T) {
	client, _ := setupStore(t)
	ctx := context.Background()

	blocker := testIssue("es-ddd001", "blocker")
	require.NoError(t, client.CreateIssue(ctx, blocker))

	blocked := testIssue("es-ddd002", "blocked")
	blocked.BlockedBy = []string{"es-ddd001"}
	require.NoError(t, client.CreateIssue(ctx, blocked))

	var buf bytes.Buffer
	require.NoError(t, ListIssues(ctx, client, OutputFormatJSONL, &FilterCriteria{ReadyOnly: true}, &buf))

	out := buf.String()
	assert.Contains(t, out, "es-ddd001")
	assert.NotContains(t, out, "es-ddd002")
}

func TestListIssues_SkipsMalformed(t *testing.T) {
	client, mr := setupStore(t)
	ctx := context.Background()

	require.NoError(t, client.CreateIssue(ctx, testIssue("es-eee001", "good issue")))

	// Plant a hash that will not parse as an issue.
	mr.HSet(tracker.IssueKey("test-project", "es-eee999"), "priority", "not-a-number")

	var buf bytes.Buffer
	require.NoError(t, ListIssues(ctx, client, OutputFormatJSONL, nil, &buf))

	out := buf.String()
	assert.Contains(t, out, "es-eee001")
	assert.NotContains(t, out, "es-eee999")
}

func TestListIssues_UnknownFormat(t *testing.T) {
	client, _ := setupStore(t)
	var buf bytes.Buffer
	err := ListIssues(context.Background(), client, OutputFormat("xml"), nil, &buf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output format")
}

func TestFormatTable_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, FormatTable(&buf, nil, "test-project"))
	assert.Contains(t, buf.String(), "No issues found for project 'test-project'")
}

func TestFormatTable_LockAndGitHub(t *testing.T) {
	now := time.Now()

	issue := testIssue("es-fff001", "locked linked issue")
	issue.LockedBy = "agent-7"
	issue.LockExpiresMs = now.Add(time.Minute).UnixMilli()
	issue.GitHubNumber = 42
	issue.BlockedBy = []string{"es-fff002", "es-fff003", "es-fff004"}

	var buf bytes.Buffer
	require.NoError(t, FormatTable(&buf, []*tracker.Issue{issue}, "test-project"))

	out := buf.String()
	assert.Contains(t, out, "agent-7")
	assert.Contains(t, out, "#42")
	assert.Contains(t, out, "es-fff002,+2")
	assert.Contains(t, out, "1 issue found")
}

func TestFormatSingleJSON(t *testing.T) {
	issue := testIssue("es-abc001", "detail view")

	var buf bytes.Buffer
	require.NoError(t, FormatSingleJSON(&buf, issue))

	var decoded tracker.Issue
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "es-abc001", decoded.ID)
}

func TestFormatAge(t *testing.T) {
	now := time.Now()
	assert.Equal(t, "-", formatAge(0, now))
	assert.Equal(t, "30s", formatAge(now.Add(-30*time.Second).UnixMilli(), now))
	assert.Equal(t, "5m", formatAge(now.Add(-5*time.Minute).UnixMilli(), now))
	assert.Equal(t, "3h", formatAge(now.Add(-3*time.Hour).UnixMilli(), now))
	assert.Equal(t, "2d", formatAge(now.Add(-49*time.Hour).UnixMilli(), now))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "exactly10!", truncate("exactly10!", 10))
	assert.Equal(t, "toolon...", truncate("toolongstring", 9))
}
