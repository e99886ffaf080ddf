// Package store persists voting sessions and everything recorded in them.
//
// Two implementations satisfy Store:
//
//   - MemoryStore keeps sessions in maps guarded by a RWMutex. With a
//     SnapshotPersistence attached (FilePersistence writes one JSON file per
//     access code) every write is mirrored to disk, and sessions missing
//     from memory are loaded on first lookup.
//   - SQLStore runs on database/sql and works with the sqlite
//     (modernc.org/sqlite), postgres (lib/pq) and pgx (pgx/v5/stdlib)
//     drivers. OpenSQL pings the database and creates the schema.
//
// Both report the same sentinel errors, so callers match with errors.Is:
//
//	if errors.Is(err, store.ErrDuplicateVote) { ... }
//
// A user votes at most once per card; the SQL schema enforces this with a
// UNIQUE (card_id, user_id, session_id) constraint.
package store
