package snapshot

import (
	"context"
	"errors"
	"strconv"
	"time"

	"flowvault/internal/flow"
)

// DefaultMaxSnapshots is the rolling window size when the config leaves
// retention unset.
const DefaultMaxSnapshots = 3

// DateFormat renders a snapshot's creation time for humans. It is
// computed once at save time and stored verbatim, never recomputed.
const DateFormat = "Jan 2, 2006 3:04:05 PM"

var (
	// ErrStorageUnavailable means the store could not be opened.
	ErrStorageUnavailable = errors.New("snapshot storage unavailable")
	// ErrWriteRejected means an insert or delete failed mid-operation.
	ErrWriteRejected = errors.New("snapshot write rejected")
	// ErrReadFailure means enumeration or a full read failed.
	ErrReadFailure = errors.New("snapshot read failed")
)

// Config configures the snapshot store.
//
// Driver values:
//   - "sqlite": SQLite database file (default)
//   - "file": dependency-free JSON file backend
type Config struct {
	Driver       string
	Path         string
	MaxSnapshots int
	BusyTimeout  time.Duration // sqlite only; 0 means default
}

func (c Config) maxSnapshots() int {
	if c.MaxSnapshots > 0 {
		return c.MaxSnapshots
	}
	return DefaultMaxSnapshots
}

// Snapshot is one immutable capture of the graph.
//
// ID is the stringified millisecond timestamp. Ordering always uses the
// numeric Timestamp field; comparing ID strings would break the moment
// digit counts differ.
type Snapshot struct {
	ID        string    `json:"id"`
	Timestamp int64     `json:"timestamp"`
	DateStr   string    `json:"dateStr"`
	Flow      flow.Flow `json:"flow"`
}

// New builds a snapshot of f stamped at now. Nodes are stored as given;
// sanitize before calling if they may carry live values.
func New(now time.Time, f flow.Flow) Snapshot {
	ms := now.UnixMilli()
	return Snapshot{
		ID:        strconv.FormatInt(ms, 10),
		Timestamp: ms,
		DateStr:   now.Format(DateFormat),
		Flow:      f,
	}
}

// restamp moves a snapshot to a later millisecond, keeping ID and
// Timestamp in lockstep. Used when the clock collides with (or runs
// behind) the newest stored entry.
func (s Snapshot) restamp(ms int64) Snapshot {
	s.Timestamp = ms
	s.ID = strconv.FormatInt(ms, 10)
	return s
}

// Store is the persistence API for the rolling snapshot window.
//
// Save returns the snapshot as stored, which may carry an adjusted
// ID/Timestamp after a clock collision. List returns entries newest
// first. All failures are reported; swallowing is the caller's policy
// (see the autosave package).
type Store interface {
	Save(ctx context.Context, snap Snapshot) (Snapshot, error)
	List(ctx context.Context) ([]Snapshot, error)
	Count(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
	Close() error
}
