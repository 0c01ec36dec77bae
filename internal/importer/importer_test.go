package importer

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hirefrank/edgestack/pkg/tracker"
)

func TestBreakdown_Checkboxes(t *testing.T) {
	body := `## Plan

- [ ] Wire up the KV namespace
- [x] Scaffold the worker
* [ ] Add the cron trigger
- just a bullet, not a task
`

	tasks := Breakdown(body)
	require.Len(t, tasks, 3)
	assert.Equal(t, Task{Title: "Wire up the KV namespace"}, tasks[0])
	assert.Equal(t, Task{Title: "Scaffold the worker", Done: true}, tasks[1])
	assert.Equal(t, Task{Title: "Add the cron trigger"}, tasks[2])
}

func TestBreakdown_NumberedFallback(t *testing.T) {
	body := `Steps:

1. Create the D1 database
2) Run the migration
3. Deploy

## This header is ignored because numbered items exist
`

	tasks := Breakdown(body)
	require.Len(t, tasks, 3)
	assert.Equal(t, "Create the D1 database", tasks[0].Title)
	assert.Equal(t, "Run the migration", tasks[1].Title)
	assert.Equal(t, "Deploy", tasks[2].Title)
}

func TestBreakdown_HeaderFallback(t *testing.T) {
	body := `# Top level title is not a task

## Set up bindings
### Configure secrets

Some prose.
`

	tasks := Breakdown(body)
	require.Len(t, tasks, 2)
	assert.Equal(t, "Set up bindings", tasks[0].Title)
	assert.Equal(t, "Configure secrets", tasks[1].Title)
}

func TestBreakdown_CheckboxesWinOverNumbered(t *testing.T) {
	body := `1. Old numbered plan
- [ ] The real task
`

	tasks := Breakdown(body)
	require.Len(t, tasks, 1)
	assert.Equal(t, "The real task", tasks[0].Title)
}

func TestBreakdown_SkipsCodeFences(t *testing.T) {
	body := "- [ ] Real task\n```\n- [ ] inside a fence\n1. also inside\n```\n"

	tasks := Breakdown(body)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Real task", tasks[0].Title)
}

func TestBreakdown_Dedupe(t *testing.T) {
	body := `- [ ] Deploy the worker
- [ ] deploy the worker
- [ ] Deploy the worker again
`

	tasks := Breakdown(body)
	require.Len(t, tasks, 2)
}

func TestBreakdown_Empty(t *testing.T) {
	assert.Empty(t, Breakdown(""))
	assert.Empty(t, Breakdown("just prose\nwith no structure"))
}

func TestCleanTitle(t *testing.T) {
	assert.Equal(t, "Bold task", cleanTitle("**Bold task**"))
	assert.Equal(t, "Code task", cleanTitle("`Code task`"))

	long := ""
	for i := 0; i < 40; i++ {
		long += "word "
	}
	assert.LessOrEqual(t, len(cleanTitle(long)), maxTitleLen)

	// Truncation lands on a rune boundary, never mid-character.
	multibyte := strings.Repeat("Łódź ", 40)
	got := cleanTitle(multibyte)
	assert.True(t, utf8.ValidString(got))
	assert.LessOrEqual(t, len(got), maxTitleLen)
}

func setupStore(t *testing.T) *tracker.Client {
	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	t.Cleanup(mr.Close)

	client, err := tracker.NewClient(&redis.Options{Addr: mr.Addr()}, "test-project")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestImport(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	parent := &tracker.Issue{
		ID:       "es-abc123",
		Title:    "Epic: edge cache",
		Status:   tracker.StatusOpen,
		Priority: tracker.PriorityHigh,
		Type:     tracker.TypeEpic,
		Tags:     []string{"cache"},
	}
	require.NoError(t, store.CreateIssue(ctx, parent))

	body := `- [ ] Add cache read path
- [x] Spike cache key format
- [ ] Add cache write path
`

	result, err := New(store).Import(ctx, parent, body)
	require.NoError(t, err)
	require.Len(t, result.Created, 3)
	assert.Equal(t, 1, result.Closed)
	assert.Equal(t, 0, result.Skipped)

	for _, child := range result.Created {
		assert.Equal(t, "es-abc123", child.Parent)
		assert.Equal(t, tracker.PriorityHigh, child.Priority)
		assert.Equal(t, []string{"cache"}, child.Tags)
	}

	// The done checkbox imported closed.
	assert.Equal(t, tracker.StatusClosed, result.Created[1].Status)

	// Parent is blocked by the two open children only, and its status
	// reflects that.
	require.Len(t, parent.BlockedBy, 2)
	assert.Equal(t, result.Created[0].ID, parent.BlockedBy[0])
	assert.Equal(t, result.Created[2].ID, parent.BlockedBy[1])
	assert.Equal(t, tracker.StatusBlocked, parent.Status)
}

func TestImport_AllDoneLeavesParentOpen(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	parent := &tracker.Issue{
		ID:       "es-fab123",
		Title:    "Epic: finished elsewhere",
		Status:   tracker.StatusOpen,
		Priority: tracker.PriorityNormal,
		Type:     tracker.TypeEpic,
	}
	require.NoError(t, store.CreateIssue(ctx, parent))

	result, err := New(store).Import(ctx, parent, "- [x] Already shipped\n- [x] Also shipped\n")
	require.NoError(t, err)
	assert.Equal(t, 2, result.Closed)

	// Closed children never block, so the parent keeps its status.
	assert.Empty(t, parent.BlockedBy)
	assert.Equal(t, tracker.StatusOpen, parent.Status)
}

func TestImport_SkipsExistingTitles(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	existing := &tracker.Issue{
		ID:       "es-def456",
		Title:    "Add cache read path",
		Status:   tracker.StatusOpen,
		Priority: tracker.PriorityNormal,
		Type:     tracker.TypeTask,
	}
	require.NoError(t, store.CreateIssue(ctx, existing))

	result, err := New(store).Import(ctx, nil, "- [ ] add cache read path\n- [ ] Something new\n")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Skipped)
	require.Len(t, result.Created, 1)
	assert.Equal(t, "Something new", result.Created[0].Title)
	assert.Empty(t, result.Created[0].Parent)
}

func TestImport_EmptyBody(t *testing.T) {
	store := setupStore(t)

	result, err := New(store).Import(context.Background(), nil, "no structure here")
	require.NoError(t, err)
	assert.Empty(t, result.Created)
}
