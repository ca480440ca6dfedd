package snapshot

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"flowvault/internal/flow"
	logx "flowvault/pkg/logx"
)

func openTestStore(t *testing.T, driver string, max int) Store {
	t.Helper()
	name := "snapshots.db"
	if driver == "file" {
		name = "snapshots.json"
	}
	st, err := Open(Config{
		Driver:       driver,
		Path:         filepath.Join(t.TempDir(), name),
		MaxSnapshots: max,
	}, logx.Nop())
	if err != nil {
		t.Fatalf("Open(%s): %v", driver, err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func testFlow(label string) flow.Flow {
	return flow.Flow{
		Nodes: []flow.Node{{ID: "n1", Position: flow.Position{X: 1, Y: 2}, Data: map[string]any{"label": label}}},
		Edges: []flow.Edge{{ID: "e1", Source: "n1", Target: "n1"}},
	}
}

func forEachDriver(t *testing.T, fn func(t *testing.T, driver string)) {
	for _, driver := range []string{"sqlite", "file"} {
		t.Run(driver, func(t *testing.T) { fn(t, driver) })
	}
}

func TestRetentionBound(t *testing.T) {
	forEachDriver(t, func(t *testing.T, driver string) {
		ctx := context.Background()
		st := openTestStore(t, driver, 3)

		base := time.Now()
		for i := 0; i < 6; i++ {
			if _, err := st.Save(ctx, New(base.Add(time.Duration(i)*time.Second), testFlow("f"))); err != nil {
				t.Fatalf("save %d: %v", i, err)
			}
			n, err := st.Count(ctx)
			if err != nil {
				t.Fatalf("count: %v", err)
			}
			want := i + 1
			if want > 3 {
				want = 3
			}
			if n != want {
				t.Fatalf("after save %d: expected %d snapshots, got %d", i+1, want, n)
			}
		}
	})
}

func TestOldestEvictedFirst(t *testing.T) {
	forEachDriver(t, func(t *testing.T, driver string) {
		ctx := context.Background()
		st := openTestStore(t, driver, 3)

		base := time.Now()
		var ids []string
		for i := 0; i < 4; i++ {
			stored, err := st.Save(ctx, New(base.Add(time.Duration(i)*time.Second), testFlow("f")))
			if err != nil {
				t.Fatalf("save %d: %v", i, err)
			}
			ids = append(ids, stored.ID)
		}

		snaps, err := st.List(ctx)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(snaps) != 3 {
			t.Fatalf("expected 3 snapshots, got %d", len(snaps))
		}
		// Newest first: t4, t3, t2. t1 evicted.
		for i, want := range []string{ids[3], ids[2], ids[1]} {
			if snaps[i].ID != want {
				t.Fatalf("position %d: expected id %s, got %s", i, want, snaps[i].ID)
			}
		}
		for _, sn := range snaps {
			if sn.ID == ids[0] {
				t.Fatalf("oldest snapshot survived eviction")
			}
		}
	})
}

func TestNewestSurvivesOwnSave(t *testing.T) {
	forEachDriver(t, func(t *testing.T, driver string) {
		ctx := context.Background()
		st := openTestStore(t, driver, 1)

		stored, err := st.Save(ctx, New(time.Now(), testFlow("only")))
		if err != nil {
			t.Fatalf("save: %v", err)
		}
		stored2, err := st.Save(ctx, New(time.Now().Add(time.Second), testFlow("next")))
		if err != nil {
			t.Fatalf("save: %v", err)
		}

		snaps, err := st.List(ctx)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(snaps) != 1 || snaps[0].ID != stored2.ID {
			t.Fatalf("expected only the latest snapshot %s, got %+v", stored2.ID, snaps)
		}
		if stored.ID == stored2.ID {
			t.Fatalf("ids must be unique")
		}
	})
}

func TestClockCollisionProducesIncreasingIDs(t *testing.T) {
	forEachDriver(t, func(t *testing.T, driver string) {
		ctx := context.Background()
		st := openTestStore(t, driver, 5)

		now := time.Now()
		first, err := st.Save(ctx, New(now, testFlow("a")))
		if err != nil {
			t.Fatalf("save: %v", err)
		}
		// Same clock reading, and one running behind.
		second, err := st.Save(ctx, New(now, testFlow("b")))
		if err != nil {
			t.Fatalf("save: %v", err)
		}
		third, err := st.Save(ctx, New(now.Add(-time.Minute), testFlow("c")))
		if err != nil {
			t.Fatalf("save: %v", err)
		}

		if second.Timestamp != first.Timestamp+1 {
			t.Fatalf("expected collision bump to %d, got %d", first.Timestamp+1, second.Timestamp)
		}
		if third.Timestamp != second.Timestamp+1 {
			t.Fatalf("expected backwards clock bump to %d, got %d", second.Timestamp+1, third.Timestamp)
		}
		if first.ID == second.ID || second.ID == third.ID {
			t.Fatalf("ids must stay unique: %s %s %s", first.ID, second.ID, third.ID)
		}
	})
}

func TestListOrderingAndRoundTrip(t *testing.T) {
	forEachDriver(t, func(t *testing.T, driver string) {
		ctx := context.Background()
		st := openTestStore(t, driver, 10)

		base := time.Now()
		in := testFlow("round-trip")
		if _, err := st.Save(ctx, New(base, in)); err != nil {
			t.Fatalf("save: %v", err)
		}
		if _, err := st.Save(ctx, New(base.Add(2*time.Second), testFlow("later"))); err != nil {
			t.Fatalf("save: %v", err)
		}
		if _, err := st.Save(ctx, New(base.Add(time.Second), testFlow("middle"))); err != nil {
			t.Fatalf("save: %v", err)
		}

		snaps, err := st.List(ctx)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(snaps) != 3 {
			t.Fatalf("expected 3 snapshots, got %d", len(snaps))
		}
		for i := 1; i < len(snaps); i++ {
			if snaps[i-1].Timestamp <= snaps[i].Timestamp {
				t.Fatalf("not newest-first at %d: %d <= %d", i, snaps[i-1].Timestamp, snaps[i].Timestamp)
			}
		}

		oldest := snaps[len(snaps)-1]
		if len(oldest.Flow.Nodes) != 1 || len(oldest.Flow.Edges) != 1 {
			t.Fatalf("flow shape lost: %+v", oldest.Flow)
		}
		n := oldest.Flow.Nodes[0]
		if n.ID != "n1" || n.Position.X != 1 || n.Position.Y != 2 {
			t.Fatalf("node fields lost: %+v", n)
		}
		if n.Data["label"] != "round-trip" {
			t.Fatalf("node data lost: %v", n.Data)
		}
		e := oldest.Flow.Edges[0]
		if e.ID != "e1" || e.Source != "n1" || e.Target != "n1" {
			t.Fatalf("edge fields lost: %+v", e)
		}
		if oldest.DateStr == "" {
			t.Fatalf("dateStr should be stored")
		}
	})
}

func TestEmptyStoreReadAndIdempotentClear(t *testing.T) {
	forEachDriver(t, func(t *testing.T, driver string) {
		ctx := context.Background()
		st := openTestStore(t, driver, 3)

		snaps, err := st.List(ctx)
		if err != nil {
			t.Fatalf("list on empty store: %v", err)
		}
		if len(snaps) != 0 {
			t.Fatalf("expected empty list, got %d", len(snaps))
		}

		if _, err := st.Save(ctx, New(time.Now(), testFlow("f"))); err != nil {
			t.Fatalf("save: %v", err)
		}
		for i := 0; i < 2; i++ {
			if err := st.Clear(ctx); err != nil {
				t.Fatalf("clear #%d: %v", i+1, err)
			}
			n, err := st.Count(ctx)
			if err != nil {
				t.Fatalf("count: %v", err)
			}
			if n != 0 {
				t.Fatalf("store not empty after clear #%d: %d", i+1, n)
			}
		}
	})
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "redis", Path: "x"}, logx.Nop())
	if err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}

func TestOpenRequiresPath(t *testing.T) {
	for _, driver := range []string{"sqlite", "file"} {
		if _, err := Open(Config{Driver: driver}, logx.Nop()); err == nil {
			t.Fatalf("%s: expected error for empty path", driver)
		}
	}
}
