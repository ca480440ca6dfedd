package autosave

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"flowvault/internal/flow"
	"flowvault/internal/snapshot"
	logx "flowvault/pkg/logx"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	st, err := snapshot.Open(snapshot.Config{
		Driver: "file",
		Path:   filepath.Join(t.TempDir(), "snapshots.json"),
	}, logx.Nop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return New(st, logx.Nop(), nil)
}

func TestSaveAutoSnapshotSanitizes(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	nodes := []flow.Node{{
		ID:   "n1",
		Data: map[string]any{"label": "A", "onClick": func() {}},
	}}
	edges := []flow.Edge{{ID: "e1", Source: "n1", Target: "n1"}}

	svc.SaveAutoSnapshot(ctx, nodes, edges)

	snaps := svc.Snapshots(ctx)
	if len(snaps) != 1 {
		t.Fatalf("expected 1 snapshot, got %d", len(snaps))
	}
	data := snaps[0].Flow.Nodes[0].Data
	if data["label"] != "A" {
		t.Fatalf("label lost: %v", data)
	}
	if _, ok := data["onClick"]; ok {
		t.Fatalf("callable attribute persisted")
	}
	if len(snaps[0].Flow.Edges) != 1 {
		t.Fatalf("edges lost: %+v", snaps[0].Flow)
	}
}

func TestSnapshotsNewestFirstWithInjectedClock(t *testing.T) {
	ctx := context.Background()
	st, err := snapshot.Open(snapshot.Config{
		Driver: "file",
		Path:   filepath.Join(t.TempDir(), "snapshots.json"),
	}, logx.Nop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer st.Close()

	clock := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	svc := New(st, logx.Nop(), func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	})

	for i := 0; i < 5; i++ {
		svc.SaveAutoSnapshot(ctx, nil, nil)
	}

	snaps := svc.Snapshots(ctx)
	if len(snaps) != snapshot.DefaultMaxSnapshots {
		t.Fatalf("expected %d snapshots, got %d", snapshot.DefaultMaxSnapshots, len(snaps))
	}
	for i := 1; i < len(snaps); i++ {
		if snaps[i-1].Timestamp <= snaps[i].Timestamp {
			t.Fatalf("not newest-first: %d <= %d", snaps[i-1].Timestamp, snaps[i].Timestamp)
		}
	}
}

// brokenStore fails every operation, standing in for an unreachable
// storage engine.
type brokenStore struct{}

func (brokenStore) Save(context.Context, snapshot.Snapshot) (snapshot.Snapshot, error) {
	return snapshot.Snapshot{}, snapshot.ErrWriteRejected
}
func (brokenStore) List(context.Context) ([]snapshot.Snapshot, error) {
	return nil, snapshot.ErrReadFailure
}
func (brokenStore) Count(context.Context) (int, error) { return 0, snapshot.ErrReadFailure }
func (brokenStore) Clear(context.Context) error        { return snapshot.ErrWriteRejected }
func (brokenStore) Close() error                       { return nil }

func TestFailuresAreSwallowed(t *testing.T) {
	ctx := context.Background()
	svc := New(brokenStore{}, logx.Nop(), nil)

	// None of these may panic or surface an error.
	svc.SaveAutoSnapshot(ctx, []flow.Node{{ID: "n"}}, nil)
	svc.ClearSnapshots(ctx)

	snaps := svc.Snapshots(ctx)
	if snaps == nil {
		t.Fatalf("expected empty slice, got nil")
	}
	if len(snaps) != 0 {
		t.Fatalf("expected no snapshots, got %d", len(snaps))
	}
}

func TestIdempotentClear(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	svc.SaveAutoSnapshot(ctx, nil, nil)
	svc.ClearSnapshots(ctx)
	svc.ClearSnapshots(ctx)

	if n := len(svc.Snapshots(ctx)); n != 0 {
		t.Fatalf("expected empty store after double clear, got %d", n)
	}
}
