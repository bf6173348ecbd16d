package cypher

import (
	"fmt"
	"math"
)

// ---------------------------------------------------------------------------
// Value — the closed tagged union of kinds that flow through the engine.
// See spec §3.1. A Value is copied by value; the heavier kinds (List, Map,
// Node, Rel, Path) hold a pointer/slice to their payload so copies stay
// cheap while still being semantically independent rows (callers never
// mutate a Value's payload after construction).
// ---------------------------------------------------------------------------

// Kind identifies which variant of the value union a Value holds.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindList
	KindMap
	KindNode
	KindRel
	KindPath
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "Null"
	case KindBool:
		return "Bool"
	case KindInt:
		return "Int"
	case KindFloat:
		return "Float"
	case KindString:
		return "String"
	case KindList:
		return "List"
	case KindMap:
		return "Map"
	case KindNode:
		return "Node"
	case KindRel:
		return "Relationship"
	case KindPath:
		return "Path"
	default:
		return "Unknown"
	}
}

// Value is the single type every expression, row slot, and property holds.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	list []Value
	m    *OrderedMap
	node *NodeValue
	rel  *RelValue
	path *PathValue
}

// Null is the zero Value and is distinct from any falsy/empty value.
func Null() Value { return Value{kind: KindNull} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int wraps a 64-bit signed integer.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float wraps a 64-bit IEEE-754 float.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// Str wraps a unicode string.
func Str(s string) Value { return Value{kind: KindString, s: s} }

// List wraps an ordered, heterogeneous sequence of values.
func List(vs []Value) Value { return Value{kind: KindList, list: vs} }

// Map wraps an insertion-ordered map with unique keys.
func Map(m *OrderedMap) Value {
	if m == nil {
		m = NewOrderedMap()
	}
	return Value{kind: KindMap, m: m}
}

// NodeVal wraps a graph node.
func NodeVal(n *NodeValue) Value { return Value{kind: KindNode, node: n} }

// RelVal wraps a graph relationship.
func RelVal(r *RelValue) Value { return Value{kind: KindRel, rel: r} }

// PathVal wraps an alternating node/relationship path.
func PathVal(p *PathValue) Value { return Value{kind: KindPath, path: p} }

// Kind reports which variant this Value holds.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether this is the Null value.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsBool returns the boolean payload. Only valid when Kind() == KindBool.
func (v Value) AsBool() bool { return v.b }

// AsInt returns the integer payload. Only valid when Kind() == KindInt.
func (v Value) AsInt() int64 { return v.i }

// AsFloat returns the float payload. Only valid when Kind() == KindFloat.
func (v Value) AsFloat() float64 { return v.f }

// AsString returns the string payload. Only valid when Kind() == KindString.
func (v Value) AsString() string { return v.s }

// AsList returns the list payload. Only valid when Kind() == KindList.
func (v Value) AsList() []Value { return v.list }

// AsMap returns the map payload. Only valid when Kind() == KindMap.
func (v Value) AsMap() *OrderedMap { return v.m }

// AsNode returns the node payload. Only valid when Kind() == KindNode.
func (v Value) AsNode() *NodeValue { return v.node }

// AsRel returns the relationship payload. Only valid when Kind() == KindRel.
func (v Value) AsRel() *RelValue { return v.rel }

// AsPath returns the path payload. Only valid when Kind() == KindPath.
func (v Value) AsPath() *PathValue { return v.path }

// isNumeric reports whether the value is Int or Float.
func (v Value) isNumeric() bool { return v.kind == KindInt || v.kind == KindFloat }

// numeric returns the value as a float64 regardless of Int/Float kind.
// Only valid when isNumeric() is true.
func (v Value) numeric() float64 {
	if v.kind == KindInt {
		return float64(v.i)
	}
	return v.f
}

// String renders a Value for debugging and EXPLAIN output. It is not the
// Cypher literal syntax (strings are not re-quoted).
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		return fmt.Sprintf("%v", v.b)
	case KindInt:
		return fmt.Sprintf("%d", v.i)
	case KindFloat:
		if math.IsNaN(v.f) {
			return "NaN"
		}
		return fmt.Sprintf("%g", v.f)
	case KindString:
		return v.s
	case KindList:
		s := "["
		for i, e := range v.list {
			if i > 0 {
				s += ", "
			}
			s += e.String()
		}
		return s + "]"
	case KindMap:
		s := "{"
		for i, k := range v.m.Keys() {
			if i > 0 {
				s += ", "
			}
			val, _ := v.m.Get(k)
			s += k + ": " + val.String()
		}
		return s + "}"
	case KindNode:
		return fmt.Sprintf("(id=%d labels=%v)", v.node.ID, v.node.Labels)
	case KindRel:
		return fmt.Sprintf("[id=%d type=%s]", v.rel.ID, v.rel.Type)
	case KindPath:
		return fmt.Sprintf("<path len=%d>", len(v.path.Rels))
	default:
		return "?"
	}
}

// ---------------------------------------------------------------------------
// Graph entities — backend-owned identity, cached into Values by the engine.
// ---------------------------------------------------------------------------

// NodeID uniquely identifies a node within a backend.
type NodeID uint64

// RelID uniquely identifies a relationship within a backend.
type RelID uint64

// NodeValue is the cached representation of a graph node carried by a Value.
type NodeValue struct {
	ID     NodeID
	Labels []string
	Props  *OrderedMap
}

// HasLabel reports whether the node carries the given label.
func (n *NodeValue) HasLabel(label string) bool {
	for _, l := range n.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// RelValue is the cached representation of a graph relationship carried by a Value.
type RelValue struct {
	ID    RelID
	Type  string
	Start NodeID
	End   NodeID
	Props *OrderedMap
}

// OtherEnd returns the endpoint of the relationship that is not `from`.
// Used when a pattern traverses a relationship without direction constraint.
func (r *RelValue) OtherEnd(from NodeID) NodeID {
	if r.Start == from {
		return r.End
	}
	return r.Start
}

// PathValue is an immutable alternating node/relationship sequence,
// beginning and ending with a node. len(Rels) == len(Nodes)-1.
type PathValue struct {
	Nodes []*NodeValue
	Rels  []*RelValue
}
