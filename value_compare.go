package cypher

import (
	"math"
	"strings"
)

// ---------------------------------------------------------------------------
// Value equality, ordering, and three-valued logic (spec §4.5, §8).
//
// Three distinct notions of "compare" exist here, deliberately kept separate
// rather than folded into one compareValues helper the way the teacher's
// cypher_exec.go does (its compareValues mixes equality, ordering, and a
// string-fallback all in one -1/0/1 function, which cannot express "cross-type
// comparison yields Null" or "NaN never equals itself"):
//
//   - valuesEqual    — used by =, <>, DISTINCT, and map/list key comparisons.
//   - valuesOrder    — used by <, >, <=, >= ; returns ok=false when the spec
//                       says the comparison is undefined (cross-type numbers
//                       vs strings, non-ordered kinds).
//   - sortCompare     — used by ORDER BY and Sort; always total, Null sorts
//                       greater than any non-Null value in ascending order.
// ---------------------------------------------------------------------------

// valuesEqual implements Cypher value equality: Node/Rel by id, Path by
// element identity, List/Map structurally, NaN never equal to itself.
// Null is not handled here — callers check IsNull() first per the
// three-valued rule (Null = anything -> Null, not a boolean).
func valuesEqual(a, b Value) bool {
	if a.kind != b.kind {
		// Int and Float may still be numerically equal.
		if a.isNumeric() && b.isNumeric() {
			return a.numeric() == b.numeric() && !mathIsNaN(a) && !mathIsNaN(b)
		}
		return false
	}
	switch a.kind {
	case KindBool:
		return a.b == b.b
	case KindInt:
		return a.i == b.i
	case KindFloat:
		if math.IsNaN(a.f) || math.IsNaN(b.f) {
			return false
		}
		return a.f == b.f
	case KindString:
		return a.s == b.s
	case KindList:
		if len(a.list) != len(b.list) {
			return false
		}
		for i := range a.list {
			if a.list[i].IsNull() || b.list[i].IsNull() {
				if !(a.list[i].IsNull() && b.list[i].IsNull()) {
					return false
				}
				continue
			}
			if !valuesEqual(a.list[i], b.list[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if a.m.Len() != b.m.Len() {
			return false
		}
		for _, k := range a.m.Keys() {
			av, _ := a.m.Get(k)
			bv, ok := b.m.Get(k)
			if !ok {
				return false
			}
			if av.IsNull() || bv.IsNull() {
				if !(av.IsNull() && bv.IsNull()) {
					return false
				}
				continue
			}
			if !valuesEqual(av, bv) {
				return false
			}
		}
		return true
	case KindNode:
		return a.node.ID == b.node.ID
	case KindRel:
		return a.rel.ID == b.rel.ID
	case KindPath:
		if len(a.path.Nodes) != len(b.path.Nodes) || len(a.path.Rels) != len(b.path.Rels) {
			return false
		}
		for i := range a.path.Nodes {
			if a.path.Nodes[i].ID != b.path.Nodes[i].ID {
				return false
			}
		}
		for i := range a.path.Rels {
			if a.path.Rels[i].ID != b.path.Rels[i].ID {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func mathIsNaN(v Value) bool {
	return v.kind == KindFloat && math.IsNaN(v.f)
}

// valuesOrder implements <,>,<=,>= ordering. Defined on numbers (Int/Float,
// mixed freely) and on strings (lexicographic by code point). Any other
// combination, including cross Numeric/String, is undefined — ok is false
// and the caller (evalComparison) must yield Null per spec §4.5.
func valuesOrder(a, b Value) (cmp int, ok bool) {
	if a.isNumeric() && b.isNumeric() {
		af, bf := a.numeric(), b.numeric()
		if math.IsNaN(af) || math.IsNaN(bf) {
			return 0, false
		}
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		default:
			return 0, true
		}
	}
	if a.kind == KindString && b.kind == KindString {
		return strings.Compare(a.s, b.s), true
	}
	return 0, false
}

// sortCompare implements the total ORDER BY / Sort comparator of spec §4.5:
// Null sorts greater than any non-Null in ASC order (smaller in DESC — Sort
// negates the result itself rather than this function special-casing DESC);
// numbers compare numerically; strings by code point; mixed non-null types
// order by kind tag, then within-kind by the rules above.
func sortCompare(a, b Value) int {
	if a.IsNull() && b.IsNull() {
		return 0
	}
	if a.IsNull() {
		return 1
	}
	if b.IsNull() {
		return -1
	}
	if a.isNumeric() && b.isNumeric() {
		af, bf := a.numeric(), b.numeric()
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	if a.kind != b.kind {
		return int(a.kind) - int(b.kind)
	}
	switch a.kind {
	case KindBool:
		if a.b == b.b {
			return 0
		}
		if !a.b {
			return -1
		}
		return 1
	case KindString:
		return strings.Compare(a.s, b.s)
	case KindList:
		n := len(a.list)
		if len(b.list) < n {
			n = len(b.list)
		}
		for i := 0; i < n; i++ {
			if c := sortCompare(a.list[i], b.list[i]); c != 0 {
				return c
			}
		}
		return len(a.list) - len(b.list)
	case KindNode:
		if a.node.ID == b.node.ID {
			return 0
		}
		if a.node.ID < b.node.ID {
			return -1
		}
		return 1
	case KindRel:
		if a.rel.ID == b.rel.ID {
			return 0
		}
		if a.rel.ID < b.rel.ID {
			return -1
		}
		return 1
	default:
		if valuesEqual(a, b) {
			return 0
		}
		return 0
	}
}

// ---------------------------------------------------------------------------
// Three-valued boolean logic — centralized here per spec §9 so operators
// never hand-roll null propagation themselves.
// ---------------------------------------------------------------------------

// triAnd implements Cypher's three-valued AND truth table:
// true AND null = null, false AND null = false, null AND null = null.
func triAnd(a, b Value) Value {
	if a.Kind() == KindBool && !a.b {
		return Bool(false)
	}
	if b.Kind() == KindBool && !b.b {
		return Bool(false)
	}
	if a.IsNull() || b.IsNull() {
		return Null()
	}
	return Bool(a.b && b.b)
}

// triOr implements Cypher's three-valued OR truth table:
// true OR null = true, false OR null = null, null OR null = null.
func triOr(a, b Value) Value {
	if a.Kind() == KindBool && a.b {
		return Bool(true)
	}
	if b.Kind() == KindBool && b.b {
		return Bool(true)
	}
	if a.IsNull() || b.IsNull() {
		return Null()
	}
	return Bool(a.b || b.b)
}

// triNot implements NOT null = null.
func triNot(a Value) Value {
	if a.IsNull() {
		return Null()
	}
	return Bool(!a.b)
}

// isTruthy implements the three-valued "drop on false or null" rule used by
// Filter (spec §4.4): only a literal Bool(true) passes.
func isTruthy(v Value) bool {
	return v.Kind() == KindBool && v.b
}
