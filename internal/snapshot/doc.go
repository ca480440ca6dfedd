package snapshot

// Package snapshot persists rolling captures of the editor graph.
//
// It currently supports:
//   - SQLite database file (default)
//   - Dependency-free single-file JSON backend
//
// Retention is bounded: after every successful save the store holds at
// most Config.MaxSnapshots entries, oldest evicted first.
