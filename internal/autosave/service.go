// Package autosave is the public face of snapshot persistence: a
// best-effort layer that never surfaces storage failures to the editor.
// Every operation degrades gracefully and leaves a logged diagnostic
// instead of an error.
package autosave

import (
	"context"
	"time"

	"flowvault/internal/flow"
	"flowvault/internal/snapshot"
	logx "flowvault/pkg/logx"
)

// Service wraps a snapshot.Store with the swallow-and-log contract.
type Service struct {
	store snapshot.Store
	log   logx.Logger
	now   func() time.Time
}

// New builds the facade. A nil clock defaults to time.Now.
func New(store snapshot.Store, log logx.Logger, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{store: store, log: log, now: now}
}

// SaveAutoSnapshot sanitizes the nodes, stamps a snapshot with the
// current clock, and saves it. Fire-and-forget: failures are logged,
// never returned.
func (s *Service) SaveAutoSnapshot(ctx context.Context, nodes []flow.Node, edges []flow.Edge) {
	if s == nil || s.store == nil {
		return
	}
	f := flow.Flow{Nodes: flow.SanitizeNodes(nodes), Edges: edges}
	stored, err := s.store.Save(ctx, snapshot.New(s.now(), f))
	if err != nil {
		s.log.Warn("auto snapshot failed", logx.Err(err))
		return
	}
	s.log.Debug("auto snapshot saved",
		logx.String("id", stored.ID),
		logx.Int("nodes", len(f.Nodes)),
		logx.Int("edges", len(f.Edges)),
	)
}

// Snapshots returns all stored snapshots newest first. On any failure it
// logs and returns an empty slice; callers cannot tell an empty store
// from a broken one.
func (s *Service) Snapshots(ctx context.Context) []snapshot.Snapshot {
	if s == nil || s.store == nil {
		return []snapshot.Snapshot{}
	}
	snaps, err := s.store.List(ctx)
	if err != nil {
		s.log.Warn("listing snapshots failed", logx.Err(err))
		return []snapshot.Snapshot{}
	}
	if snaps == nil {
		snaps = []snapshot.Snapshot{}
	}
	return snaps
}

// ClearSnapshots removes every snapshot. Idempotent; failures are
// logged, not returned.
func (s *Service) ClearSnapshots(ctx context.Context) {
	if s == nil || s.store == nil {
		return
	}
	if err := s.store.Clear(ctx); err != nil {
		s.log.Warn("clearing snapshots failed", logx.Err(err))
		return
	}
	s.log.Debug("snapshots cleared")
}
