package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	logx "flowvault/pkg/logx"
)

// fileStore is a dependency-free persistence backend: one JSON document
// holding the whole window, replaced atomically via temp-file + rename.
// A process-local mutex serializes the read-modify-write cycles the
// sqlite driver gets from its transactions.
type fileStore struct {
	log  logx.Logger
	path string
	max  int

	mu sync.Mutex
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, fmt.Errorf("%w: path is required for file driver", ErrStorageUnavailable)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	st := &fileStore{log: log, path: path, max: cfg.maxSnapshots()}

	// Fail open-time if the file exists but is unreadable garbage;
	// a missing file is a valid empty store.
	if _, err := st.read(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	return st, nil
}

func (s *fileStore) Close() error { return nil }

func (s *fileStore) Save(ctx context.Context, snap Snapshot) (Snapshot, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	snaps, err := s.read()
	if err != nil {
		return snap, fmt.Errorf("%w: %w", ErrReadFailure, err)
	}

	if newest := newestTimestamp(snaps); snap.Timestamp <= newest {
		snap = snap.restamp(newest + 1)
	}
	snaps = append(snaps, snap)

	sortNewestFirst(snaps)
	if len(snaps) > s.max {
		evicted := len(snaps) - s.max
		snaps = snaps[:s.max]
		s.log.Debug("evicted oldest snapshots", logx.Int("evicted", evicted), logx.Int("kept", s.max))
	}

	if err := s.write(snaps); err != nil {
		return snap, fmt.Errorf("%w: %w", ErrWriteRejected, err)
	}
	return snap, nil
}

func (s *fileStore) List(ctx context.Context) ([]Snapshot, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	snaps, err := s.read()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadFailure, err)
	}
	sortNewestFirst(snaps)
	return snaps, nil
}

func (s *fileStore) Count(ctx context.Context) (int, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	snaps, err := s.read()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrReadFailure, err)
	}
	return len(snaps), nil
}

func (s *fileStore) Clear(ctx context.Context) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.write(nil); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteRejected, err)
	}
	return nil
}

func (s *fileStore) read() ([]Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	var snaps []Snapshot
	if err := json.Unmarshal(data, &snaps); err != nil {
		return nil, err
	}
	return snaps, nil
}

func (s *fileStore) write(snaps []Snapshot) error {
	if snaps == nil {
		snaps = []Snapshot{}
	}
	data, err := json.Marshal(snaps)
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func newestTimestamp(snaps []Snapshot) int64 {
	var newest int64
	for _, sn := range snaps {
		if sn.Timestamp > newest {
			newest = sn.Timestamp
		}
	}
	return newest
}

func sortNewestFirst(snaps []Snapshot) {
	sort.Slice(snaps, func(i, j int) bool {
		return snaps[i].Timestamp > snaps[j].Timestamp
	})
}
