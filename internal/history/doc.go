// Package history persists download jobs and the episodes each one stored.
//
// The store is a single SQLite file (history.db) in the state directory,
// opened in WAL mode with a busy timeout so the CLI can read history while a
// download is writing it. The schema is versioned; a mismatch is reported
// rather than migrated, and `episodic history clear` starts over.
package history
