package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Client provides project-scoped Redis operations for the issue store.
// All keys and channels are automatically namespaced with the project name.
// The client is thread-safe and can be used concurrently from multiple goroutines.
type Client struct {
	rdb     *redis.Client
	project string
}

// NewClient creates a new store client for the specified project.
// The client automatically namespaces all keys and channels with the project name.
//
// Parameters:
//   - redisOpts: Redis connection options (address, password, DB, etc.)
//   - project: edgestack project identifier (must not be empty)
//
// Returns an error if project is empty.
func NewClient(redisOpts *redis.Options, project string) (*Client, error) {
	if project == "" {
		return nil, fmt.Errorf("project name cannot be empty")
	}

	return &Client{
		rdb:     redis.NewClient(redisOpts),
		project: project,
	}, nil
}

// Close closes the Redis connection. Implements io.Closer.
// After calling Close(), the client should not be used.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping verifies Redis connectivity. Useful for health checks.
// Returns an error if Redis is not reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Project returns the project name this client is scoped to.
func (c *Client) Project() string {
	return c.project
}

// RedisClient exposes the underlying Redis client for operations that need
// raw access, such as SCAN-based listings in the report package.
func (c *Client) RedisClient() *redis.Client {
	return c.rdb
}

// CreateIssue writes an issue to Redis and publishes a created event.
// Validates the issue before writing. CreatedAtMs and UpdatedAtMs are
// stamped with the current time when unset.
// Returns an error if an issue with the same ID already exists.
func (c *Client) CreateIssue(ctx context.Context, issue *Issue) error {
	now := time.Now().UnixMilli()
	if issue.CreatedAtMs == 0 {
		issue.CreatedAtMs = now
	}
	if issue.UpdatedAtMs == 0 {
		issue.UpdatedAtMs = now
	}

	if err := issue.Validate(); err != nil {
		return fmt.Errorf("invalid issue: %w", err)
	}

	exists, err := c.IssueExists(ctx, issue.ID)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("issue %s already exists", issue.ID)
	}

	if err := c.writeIssue(ctx, issue); err != nil {
		return err
	}

	return c.publishEvent(ctx, EventCreated, issue)
}

// UpdateIssue replaces an existing issue with new data (full hash replacement)
// and publishes an updated event. UpdatedAtMs is bumped to the current time.
func (c *Client) UpdateIssue(ctx context.Context, issue *Issue) error {
	issue.UpdatedAtMs = time.Now().UnixMilli()

	if err := issue.Validate(); err != nil {
		return fmt.Errorf("invalid issue: %w", err)
	}

	if err := c.writeIssue(ctx, issue); err != nil {
		return err
	}

	return c.publishEvent(ctx, EventUpdated, issue)
}

// CloseIssue transitions an issue to closed, stamps ClosedAtMs, and publishes
// a closed event. Returns the updated issue.
// Returns (nil, redis.Nil) if the issue doesn't exist.
func (c *Client) CloseIssue(ctx context.Context, issueID string) (*Issue, error) {
	issue, err := c.GetIssue(ctx, issueID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UnixMilli()
	issue.Status = StatusClosed
	issue.ClosedAtMs = now
	issue.UpdatedAtMs = now

	// Closing clears any lock lease; a closed issue is no longer claimable.
	if issue.LockedBy != "" {
		if err := c.rdb.Del(ctx, LockKey(c.project, issueID)).Err(); err != nil {
			return nil, fmt.Errorf("failed to clear lock on close: %w", err)
		}
		issue.LockedBy = ""
		issue.LockedAtMs = 0
		issue.LockExpiresMs = 0
	}

	if err := c.writeIssue(ctx, issue); err != nil {
		return nil, err
	}

	if err := c.publishEvent(ctx, EventClosed, issue); err != nil {
		return nil, err
	}

	return issue, nil
}

// GetIssue retrieves an issue by ID.
// Returns (nil, redis.Nil) if the issue doesn't exist.
// Use IsNotFound() to check for not-found errors.
func (c *Client) GetIssue(ctx context.Context, issueID string) (*Issue, error) {
	key := IssueKey(c.project, issueID)

	hashData, err := c.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read issue from Redis: %w", err)
	}

	// HGetAll returns an empty map for non-existent keys
	if len(hashData) == 0 {
		return nil, redis.Nil
	}

	issue, err := HashToIssue(hashData)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize issue: %w", err)
	}

	return issue, nil
}

// IssueExists checks if an issue exists without fetching it.
// More efficient than GetIssue when you only need to check existence.
func (c *Client) IssueExists(ctx context.Context, issueID string) (bool, error) {
	key := IssueKey(c.project, issueID)
	exists, err := c.rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check issue existence: %w", err)
	}
	return exists > 0, nil
}

// ListIssues retrieves every issue in the project via SCAN.
// Malformed records fail the listing; callers that prefer to skip them
// should scan with RedisClient() directly (see the report package).
func (c *Client) ListIssues(ctx context.Context) ([]*Issue, error) {
	prefix := IssueKeyPrefix(c.project)
	iter := c.rdb.Scan(ctx, 0, prefix+"*", 0).Iterator()

	var issues []*Issue
	for iter.Next(ctx) {
		issueID := iter.Val()[len(prefix):]
		issue, err := c.GetIssue(ctx, issueID)
		if err != nil {
			if IsNotFound(err) {
				// Deleted between SCAN and fetch
				continue
			}
			return nil, fmt.Errorf("failed to load issue %s: %w", issueID, err)
		}
		issues = append(issues, issue)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan issues: %w", err)
	}

	return issues, nil
}

// ScanIssueIDs returns all issue IDs in the project that start with the given
// prefix. Used for short-ID resolution. An empty prefix returns every ID.
func (c *Client) ScanIssueIDs(ctx context.Context, idPrefix string) ([]string, error) {
	keyPrefix := IssueKeyPrefix(c.project)
	iter := c.rdb.Scan(ctx, 0, keyPrefix+idPrefix+"*", 0).Iterator()

	var ids []string
	for iter.Next(ctx) {
		ids = append(ids, iter.Val()[len(keyPrefix):])
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan issue IDs: %w", err)
	}

	return ids, nil
}

// writeIssue serializes and HSETs the issue hash.
func (c *Client) writeIssue(ctx context.Context, issue *Issue) error {
	hash, err := IssueToHash(issue)
	if err != nil {
		return fmt.Errorf("failed to serialize issue: %w", err)
	}

	key := IssueKey(c.project, issue.ID)
	if err := c.rdb.HSet(ctx, key, hash).Err(); err != nil {
		return fmt.Errorf("failed to write issue to Redis: %w", err)
	}

	return nil
}

// publishEvent publishes a full-snapshot event to the issue events channel.
func (c *Client) publishEvent(ctx context.Context, kind EventKind, issue *Issue) error {
	event := Event{
		Kind:  kind,
		Issue: issue,
		AtMs:  time.Now().UnixMilli(),
	}

	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", kind, err)
	}

	channel := IssueEventsChannel(c.project)
	if err := c.rdb.Publish(ctx, channel, eventJSON).Err(); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", kind, err)
	}

	return nil
}

// Lock lease operations
//
// Leases are stored as a token value at es:{project}:lock:{id} written with
// SET NX PX, so Redis enforces expiry. Release and refresh use compare-and-
// delete / compare-and-expire scripts so only the token holder can act on
// the lease. The issue hash carries a display mirror of the lease.

// releaseScript deletes the lock key only if it still holds the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// refreshScript extends the lease TTL only if it still holds the caller's token.
var refreshScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// LockHeldError indicates a lock lease is already held by another agent.
type LockHeldError struct {
	IssueID     string
	Holder      string
	ExpiresAtMs int64
}

func (e *LockHeldError) Error() string {
	return fmt.Sprintf("issue %s is locked by %s (expires %s)",
		e.IssueID, e.Holder, time.UnixMilli(e.ExpiresAtMs).Format(time.RFC3339))
}

// IsLockHeld returns true if the error indicates a held lock lease.
func IsLockHeld(err error) bool {
	var lhe *LockHeldError
	return errors.As(err, &lhe)
}

// AcquireLock acquires a lock lease on an issue for the given holder.
// Returns an opaque token required to refresh or release the lease.
// Returns a *LockHeldError if another holder has a live lease.
// The lease is mirrored onto the issue hash and a locked event is published.
func (c *Client) AcquireLock(ctx context.Context, issueID, holder string, ttl time.Duration) (string, error) {
	if holder == "" {
		return "", fmt.Errorf("lock holder cannot be empty")
	}
	if ttl <= 0 {
		return "", fmt.Errorf("lock TTL must be positive, got %v", ttl)
	}

	issue, err := c.GetIssue(ctx, issueID)
	if err != nil {
		return "", err
	}

	token := uuid.New().String()
	key := LockKey(c.project, issueID)

	ok, err := c.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !ok {
		return "", &LockHeldError{
			IssueID:     issueID,
			Holder:      issue.LockedBy,
			ExpiresAtMs: issue.LockExpiresMs,
		}
	}

	now := time.Now()
	issue.LockedBy = holder
	issue.LockedAtMs = now.UnixMilli()
	issue.LockExpiresMs = now.Add(ttl).UnixMilli()
	issue.UpdatedAtMs = now.UnixMilli()

	if err := c.writeIssue(ctx, issue); err != nil {
		return "", err
	}

	if err := c.publishEvent(ctx, EventLocked, issue); err != nil {
		return "", err
	}

	return token, nil
}

// RefreshLock extends a held lease by ttl. Returns an error if the lease is
// gone or the token no longer matches (expired and re-acquired elsewhere).
func (c *Client) RefreshLock(ctx context.Context, issueID, token string, ttl time.Duration) error {
	key := LockKey(c.project, issueID)

	n, err := refreshScript.Run(ctx, c.rdb, []string{key}, token, ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("failed to refresh lock: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("lock on %s is no longer held by this token", issueID)
	}

	issue, err := c.GetIssue(ctx, issueID)
	if err != nil {
		return err
	}
	issue.LockExpiresMs = time.Now().Add(ttl).UnixMilli()
	return c.writeIssue(ctx, issue)
}

// ReleaseLock releases a lease using the token returned by AcquireLock.
// Returns an error if the token no longer matches.
// Clears the lease mirror and publishes an unlocked event.
func (c *Client) ReleaseLock(ctx context.Context, issueID, token string) error {
	key := LockKey(c.project, issueID)

	n, err := releaseScript.Run(ctx, c.rdb, []string{key}, token).Int()
	if err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("lock on %s is no longer held by this token", issueID)
	}

	return c.clearLockMirror(ctx, issueID)
}

// BreakLock force-releases a lease regardless of holder. This is the
// operator escape hatch behind `es unlock --force`.
// Succeeds even when no lease exists.
func (c *Client) BreakLock(ctx context.Context, issueID string) error {
	key := LockKey(c.project, issueID)
	if err := c.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to break lock: %w", err)
	}
	return c.clearLockMirror(ctx, issueID)
}

// LockHolder returns the current lease holder and expiry for an issue, or
// ("", 0, nil) when no live lease exists. The issue mirror is authoritative
// for the holder name; the lock key is authoritative for liveness.
func (c *Client) LockHolder(ctx context.Context, issueID string) (string, int64, error) {
	key := LockKey(c.project, issueID)
	exists, err := c.rdb.Exists(ctx, key).Result()
	if err != nil {
		return "", 0, fmt.Errorf("failed to check lock existence: %w", err)
	}
	if exists == 0 {
		return "", 0, nil
	}

	issue, err := c.GetIssue(ctx, issueID)
	if err != nil {
		return "", 0, err
	}
	return issue.LockedBy, issue.LockExpiresMs, nil
}

func (c *Client) clearLockMirror(ctx context.Context, issueID string) error {
	issue, err := c.GetIssue(ctx, issueID)
	if err != nil {
		if IsNotFound(err) {
			return nil
		}
		return err
	}

	issue.LockedBy = ""
	issue.LockedAtMs = 0
	issue.LockExpiresMs = 0
	issue.UpdatedAtMs = time.Now().UnixMilli()

	if err := c.writeIssue(ctx, issue); err != nil {
		return err
	}

	return c.publishEvent(ctx, EventUnlocked, issue)
}

// Sync bookkeeping

// SyncState records when the project last reconciled with GitHub.
type SyncState struct {
	LastSyncMs int64 `json:"last_sync_ms"`
}

// GetSyncState retrieves the project's sync bookkeeping.
// Returns a zero SyncState (never an error) when no sync has run yet.
func (c *Client) GetSyncState(ctx context.Context) (*SyncState, error) {
	key := SyncStateKey(c.project)
	hash, err := c.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read sync state: %w", err)
	}

	state := &SyncState{}
	if v, ok := hash["last_sync_ms"]; ok {
		fmt.Sscanf(v, "%d", &state.LastSyncMs)
	}
	return state, nil
}

// SetSyncState persists the project's sync bookkeeping.
func (c *Client) SetSyncState(ctx context.Context, state *SyncState) error {
	key := SyncStateKey(c.project)
	if err := c.rdb.HSet(ctx, key, "last_sync_ms", state.LastSyncMs).Err(); err != nil {
		return fmt.Errorf("failed to write sync state: %w", err)
	}
	return nil
}

// Subscription represents an active Pub/Sub subscription to issue events.
// Caller must call Close() when done to clean up resources.
// Subscriptions deliver full event objects via the Events() channel.
type Subscription struct {
	events <-chan *Event
	errors <-chan error
	cancel func()
	once   sync.Once
}

// Events returns the channel of issue events.
// The channel will be closed when the subscription is closed or the context is cancelled.
func (s *Subscription) Events() <-chan *Event {
	return s.events
}

// Errors returns the channel of subscription errors.
// Errors include JSON unmarshaling failures and other non-fatal issues.
// The subscription continues after errors - messages are skipped.
func (s *Subscription) Errors() <-chan error {
	return s.errors
}

// Close stops the subscription and cleans up resources. Implements io.Closer.
// Safe to call multiple times - subsequent calls are no-ops.
func (s *Subscription) Close() error {
	s.once.Do(s.cancel)
	return nil
}

// SubscribeEvents subscribes to issue events for this project.
// Returns a Subscription that delivers full event objects.
// Caller must call subscription.Close() when done.
// Context cancellation also stops the subscription.
//
// Events are delivered on a buffered channel (size 10) to prevent blocking.
// If the subscriber is too slow, events may be dropped by Redis Pub/Sub
// (at-most-once delivery).
func (c *Client) SubscribeEvents(ctx context.Context) (*Subscription, error) {
	channel := IssueEventsChannel(c.project)
	pubsub := c.rdb.Subscribe(ctx, channel)

	eventsChan := make(chan *Event, 10)
	errorsChan := make(chan error, 10)

	subCtx, cancelFunc := context.WithCancel(ctx)

	go func() {
		defer close(eventsChan)
		defer close(errorsChan)
		defer pubsub.Close()

		ch := pubsub.Channel()

		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				var event Event
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					select {
					case errorsChan <- fmt.Errorf("failed to unmarshal issue event: %w", err):
					case <-subCtx.Done():
						return
					}
					continue
				}

				select {
				case eventsChan <- &event:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return &Subscription{
		events: eventsChan,
		errors: errorsChan,
		cancel: cancelFunc,
	}, nil
}

// IsNotFound returns true if the error is a Redis "key not found" error (redis.Nil).
// Use this to check if GetIssue or CloseIssue returned "not found".
func IsNotFound(err error) bool {
	return errors.Is(err, redis.Nil)
}
