// Package tracker provides type-safe Go definitions and Redis schema patterns
// for the edgestack issue store. The store is the shared state that all
// edgestack components (CLI commands, the sync engine, watch streams) interact
// with via well-defined data structures held in Redis.
//
// All Redis keys and channels are namespaced by project name so that multiple
// projects can safely share a single Redis server.
//
// # Issues
//
// The Issue is the unit of work. Every issue carries its dependency edges
// (BlockedBy), its lock lease metadata (LockedBy, LockedAtMs, LockExpiresMs),
// and its GitHub linkage (GitHubNumber, GitHubIssue) directly on the record.
// Issues are stored as Redis hashes at es:{project}:issue:{id}; slice fields
// are JSON-encoded into single hash fields.
//
// # Events
//
// Every mutation publishes an Event to es:{project}:issue_events. Subscribers
// receive full issue snapshots, so a consumer never needs a follow-up read to
// learn what changed. Delivery is Redis Pub/Sub, i.e. at-most-once: the event
// stream is for watching, not for replication.
//
// # Locks
//
// Lock leases are real keys (es:{project}:lock:{id}) written with SET NX PX,
// so expiry is enforced by Redis rather than by convention. The lease fields
// mirrored onto the issue hash are advisory display metadata only; the lock
// key is the source of truth.
package tracker
