// Package flow holds the serializable shape of an editor graph: nodes,
// edges, and the node attribute maps the editor hangs off them.
package flow

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Position is a node's location on the editor canvas.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is one vertex of the graph.
//
// Data carries arbitrary named attributes. The editor may attach live
// callbacks in there; those never reach storage (see SanitizeNodes).
type Node struct {
	ID       string         `json:"id"`
	Type     string         `json:"type,omitempty"`
	Position Position       `json:"position"`
	Data     map[string]any `json:"data,omitempty"`
}

// Edge connects two nodes by ID.
type Edge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
}

// Flow is the full graph: ordered nodes and edges.
type Flow struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Decode reads a flow document from r, rejecting unknown fields and
// trailing data.
func Decode(r io.Reader) (*Flow, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	var f Flow
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode flow: %w", err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return nil, fmt.Errorf("decode flow: trailing data")
		}
		return nil, fmt.Errorf("decode flow: %w", err)
	}
	return &f, nil
}

// Load reads a flow document from a file on disk.
func Load(path string) (*Flow, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read flow file: %w", err)
	}
	return Decode(bytes.NewReader(b))
}
