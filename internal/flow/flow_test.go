package flow

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDecodeRejectsUnknownFields(t *testing.T) {
	_, err := Decode(strings.NewReader(`{"nodes":[],"edges":[],"zoom":1.5}`))
	if err == nil {
		t.Fatalf("expected error for unknown field")
	}
}

func TestDecodeRejectsTrailingData(t *testing.T) {
	_, err := Decode(strings.NewReader(`{"nodes":[],"edges":[]}{}`))
	if err == nil || !strings.Contains(err.Error(), "trailing") {
		t.Fatalf("expected trailing data error, got %v", err)
	}
}

func TestLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "flow.json")
	doc := `{
		"nodes": [
			{"id": "n1", "type": "input", "position": {"x": 0, "y": 0}, "data": {"label": "start"}},
			{"id": "n2", "position": {"x": 100, "y": 50}}
		],
		"edges": [
			{"id": "e1", "source": "n1", "target": "n2"}
		]
	}`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(f.Nodes) != 2 || len(f.Edges) != 1 {
		t.Fatalf("unexpected shape: %d nodes, %d edges", len(f.Nodes), len(f.Edges))
	}
	if f.Nodes[0].Data["label"] != "start" {
		t.Fatalf("node data lost: %v", f.Nodes[0].Data)
	}
	if f.Edges[0].Source != "n1" || f.Edges[0].Target != "n2" {
		t.Fatalf("edge endpoints lost: %+v", f.Edges[0])
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
