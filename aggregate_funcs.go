package cypher

import "strings"

// ---------------------------------------------------------------------------
// Aggregate accumulators backing the Aggregate operator (spec §4.4, §4.5).
//
// The teacher has no aggregation at all (its executor only ever projects
// and sorts rows one at a time); this is grounded on the *shape* of the
// teacher's topKHeap in cypher_exec.go — a small stateful accumulator type
// driven by repeated calls, one per row, with a single finishing step at the
// end — generalized from "keep the top K rows" to "fold every row of a
// group into one value per spec.md's six aggregate kinds.
// ---------------------------------------------------------------------------

// aggregator accumulates one aggregate function's state across the rows of
// a single group.
type aggregator interface {
	add(v Value)
	finish() Value
}

// newAggregator builds the accumulator for funcName, wrapping it for
// DISTINCT if requested. star is true only for count(*), which counts rows
// rather than non-null values.
func newAggregator(funcName string, distinct, star bool) (aggregator, error) {
	var base aggregator
	switch strings.ToLower(funcName) {
	case "count":
		base = &countAggregator{star: star}
	case "sum":
		base = &sumAggregator{allInt: true}
	case "avg":
		base = &avgAggregator{}
	case "min":
		base = &minmaxAggregator{wantMin: true}
	case "max":
		base = &minmaxAggregator{wantMin: false}
	case "collect":
		base = &collectAggregator{}
	default:
		return nil, newSemanticError("unknown aggregate function %q", funcName)
	}
	if distinct {
		return &distinctAggregator{inner: base}, nil
	}
	return base, nil
}

// countAggregator implements count(expr) and count(*).
type countAggregator struct {
	star bool
	n    int64
}

func (a *countAggregator) add(v Value) {
	if a.star || !v.IsNull() {
		a.n++
	}
}
func (a *countAggregator) finish() Value { return Int(a.n) }

// sumAggregator implements sum(expr): stays Int while every input was Int,
// promotes to Float on the first Float input, per spec §4.5's arithmetic
// coercion rule.
type sumAggregator struct {
	any    bool
	allInt bool
	sumI   int64
	sumF   float64
}

func (a *sumAggregator) add(v Value) {
	if v.IsNull() {
		return
	}
	a.any = true
	if v.Kind() == KindInt {
		a.sumI += v.AsInt()
		a.sumF += float64(v.AsInt())
		return
	}
	a.allInt = false
	a.sumF += v.numeric()
}

func (a *sumAggregator) finish() Value {
	if !a.any {
		return Int(0)
	}
	if a.allInt {
		return Int(a.sumI)
	}
	return Float(a.sumF)
}

// avgAggregator implements avg(expr): Null over an empty group, per
// spec §4.4's "others produce null" rule.
type avgAggregator struct {
	sum   float64
	count int64
}

func (a *avgAggregator) add(v Value) {
	if v.IsNull() {
		return
	}
	a.sum += v.numeric()
	a.count++
}

func (a *avgAggregator) finish() Value {
	if a.count == 0 {
		return Null()
	}
	return Float(a.sum / float64(a.count))
}

// minmaxAggregator implements both min(expr) and max(expr) via the total
// sortCompare ordering, since spec §4.5 defines the sort comparator as the
// canonical cross-type ordering.
type minmaxAggregator struct {
	wantMin bool
	has     bool
	best    Value
}

func (a *minmaxAggregator) add(v Value) {
	if v.IsNull() {
		return
	}
	if !a.has {
		a.best = v
		a.has = true
		return
	}
	c := sortCompare(v, a.best)
	if (a.wantMin && c < 0) || (!a.wantMin && c > 0) {
		a.best = v
	}
}

func (a *minmaxAggregator) finish() Value {
	if !a.has {
		return Null()
	}
	return a.best
}

// collectAggregator implements collect(expr): [] over an empty group.
type collectAggregator struct {
	items []Value
}

func (a *collectAggregator) add(v Value) {
	if !v.IsNull() {
		a.items = append(a.items, v)
	}
}

func (a *collectAggregator) finish() Value { return List(a.items) }

// distinctAggregator filters duplicate values (by value equality, spec
// §4.5) before forwarding to the wrapped aggregator, implementing the
// DISTINCT form required for every aggregate kind.
type distinctAggregator struct {
	inner aggregator
	seen  []Value
}

func (a *distinctAggregator) add(v Value) {
	if v.IsNull() {
		a.inner.add(v)
		return
	}
	for _, s := range a.seen {
		if valuesEqual(s, v) {
			return
		}
	}
	a.seen = append(a.seen, v)
	a.inner.add(v)
}

func (a *distinctAggregator) finish() Value { return a.inner.finish() }
