package flow

import "reflect"

// SanitizeNodes returns a copy of nodes whose Data maps contain only
// values that can survive serialization. Callbacks and other live values
// (funcs, channels, unsafe pointers) are dropped; everything else passes
// through unchanged. Node order is preserved and the input is never
// mutated.
func SanitizeNodes(nodes []Node) []Node {
	if nodes == nil {
		return nil
	}
	out := make([]Node, len(nodes))
	for i, n := range nodes {
		out[i] = n
		out[i].Data = sanitizeData(n.Data)
	}
	return out
}

func sanitizeData(data map[string]any) map[string]any {
	if data == nil {
		return nil
	}
	clean := make(map[string]any, len(data))
	for k, v := range data {
		if !storable(v) {
			continue
		}
		clean[k] = v
	}
	return clean
}

// storable reports whether a node attribute value can be persisted.
func storable(v any) bool {
	if v == nil {
		return true
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return false
	default:
		return true
	}
}
