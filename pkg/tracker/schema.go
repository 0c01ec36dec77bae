package tracker

import "fmt"

// Redis key pattern helpers
//
// All Redis keys and Pub/Sub channels are namespaced by project name so that
// multiple projects can safely coexist on a single Redis server.
//
// Key pattern: es:{project}:{entity}:{id}
// Channel pattern: es:{project}:{event_type}_events

// IssueKey returns the Redis key for an issue hash.
// Pattern: es:{project}:issue:{issue_id}
func IssueKey(project, issueID string) string {
	return fmt.Sprintf("es:%s:issue:%s", project, issueID)
}

// IssueKeyPrefix returns the key prefix shared by all issue hashes in a project.
// Used with SCAN to enumerate the store.
func IssueKeyPrefix(project string) string {
	return fmt.Sprintf("es:%s:issue:", project)
}

// LockKey returns the Redis key holding an issue's lock lease.
// Pattern: es:{project}:lock:{issue_id}
func LockKey(project, issueID string) string {
	return fmt.Sprintf("es:%s:lock:%s", project, issueID)
}

// IssueEventsChannel returns the Pub/Sub channel name for issue events.
// Pattern: es:{project}:issue_events
func IssueEventsChannel(project string) string {
	return fmt.Sprintf("es:%s:issue_events", project)
}

// SyncStateKey returns the Redis key for the project's sync bookkeeping hash
// (last sync timestamp, last synced GitHub cursor).
// Pattern: es:{project}:sync_state
func SyncStateKey(project string) string {
	return fmt.Sprintf("es:%s:sync_state", project)
}
