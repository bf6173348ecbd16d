package cypher

import "context"

// expandOp implements PlanExpand: single-hop relationship traversal. A
// Null value in FromSlot (e.g. an unmatched OPTIONAL MATCH branch feeding a
// later clause) yields zero rows for that input row rather than an error —
// no relationship can be incident to a null node.
type expandOp struct {
	node  *PlanNode
	ectx  *execContext
	child operator

	outerRow Row
	fromID   NodeID
	iter     RelIterator
}

func (e *expandOp) open(ctx context.Context) error {
	e.iter = nil
	return e.child.open(ctx)
}

func (e *expandOp) next(ctx context.Context) (Row, bool, error) {
	for {
		if e.iter == nil {
			row, ok, err := e.child.next(ctx)
			if err != nil {
				return nil, false, err
			}
			if !ok {
				return nil, false, nil
			}
			e.outerRow = row
			fromVal := row[e.node.FromSlot]
			if fromVal.IsNull() {
				continue
			}
			e.fromID = fromVal.AsNode().ID
			iter, err2 := e.ectx.backend.RelsOf(ctx, e.fromID, e.node.Dir, e.node.RelType)
			if err2 != nil {
				return nil, false, err2
			}
			e.iter = iter
		}

		relID, ok, err := e.iter.Next(ctx)
		if err != nil {
			e.iter.Close()
			e.iter = nil
			return nil, false, err
		}
		if !ok {
			e.iter.Close()
			e.iter = nil
			continue
		}

		rel, err := e.ectx.backend.GetRel(ctx, relID)
		if err != nil {
			return nil, false, err
		}
		other, err := e.ectx.backend.GetNode(ctx, rel.OtherEnd(e.fromID))
		if err != nil {
			return nil, false, err
		}
		out := e.outerRow.Extend(2)
		out[e.node.RelSlot] = RelVal(rel)
		out[e.node.ToSlot] = NodeVal(other)
		return out, true, nil
	}
}

func (e *expandOp) close() error {
	if e.iter != nil {
		e.iter.Close()
		e.iter = nil
	}
	return e.child.close()
}

// defaultMaxVarLenHops bounds an unbounded `*min..` expansion per spec.md
// §4.3's "backend may impose a configured ceiling" allowance.
const defaultMaxVarLenHops = 32

// pathHit is one materialised variable-length path: the relationships
// traversed, in order, and the node reached.
type pathHit struct {
	rels []*RelValue
	end  *NodeValue
}

// expandVarLenOp implements PlanExpandVarLen: a bounded breadth-first walk
// per input row, grounded on the teacher's BFS (traversal.go) but carrying
// a per-path visited-relationship set instead of one traversal-wide set,
// per spec.md §4.3's relationship-uniqueness-per-path rule, and emitting
// one row per path whose length falls in [MinHops, MaxHops] rather than
// calling a visitor once per discovered node.
type expandVarLenOp struct {
	node  *PlanNode
	ectx  *execContext
	child operator

	outerRow Row
	hits     []pathHit
	idx      int
}

func (op *expandVarLenOp) open(ctx context.Context) error {
	op.hits = nil
	op.idx = 0
	return op.child.open(ctx)
}

func (op *expandVarLenOp) next(ctx context.Context) (Row, bool, error) {
	for {
		if op.idx < len(op.hits) {
			hit := op.hits[op.idx]
			op.idx++
			out := op.outerRow.Extend(2)
			relVals := make([]Value, len(hit.rels))
			for i, r := range hit.rels {
				relVals[i] = RelVal(r)
			}
			out[op.node.RelSlot] = List(relVals)
			out[op.node.ToSlot] = NodeVal(hit.end)
			return out, true, nil
		}

		row, ok, err := op.child.next(ctx)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return nil, false, nil
		}
		op.outerRow = row
		op.hits = nil
		op.idx = 0

		fromVal := row[op.node.FromSlot]
		if fromVal.IsNull() {
			continue
		}
		hits, err := op.computeHits(ctx, fromVal.AsNode().ID)
		if err != nil {
			return nil, false, err
		}
		op.hits = hits
	}
}

func (op *expandVarLenOp) close() error { return op.child.close() }

type varLenFrontierEntry struct {
	id      NodeID
	rels    []*RelValue
	visited map[RelID]bool
}

func (op *expandVarLenOp) computeHits(ctx context.Context, fromID NodeID) ([]pathHit, error) {
	maxHops := op.node.MaxHops
	if maxHops < 0 {
		maxHops = defaultMaxVarLenHops
	}

	var hits []pathHit
	queue := []varLenFrontierEntry{{id: fromID, visited: map[RelID]bool{}}}

	for depth := 0; len(queue) > 0 && depth <= maxHops; depth++ {
		var next []varLenFrontierEntry
		for _, entry := range queue {
			if depth >= op.node.MinHops {
				end, err := op.ectx.backend.GetNode(ctx, entry.id)
				if err != nil {
					return nil, err
				}
				hits = append(hits, pathHit{rels: append([]*RelValue(nil), entry.rels...), end: end})
			}
			if depth >= maxHops {
				continue
			}

			iter, err := op.ectx.backend.RelsOf(ctx, entry.id, op.node.Dir, op.node.RelType)
			if err != nil {
				return nil, err
			}
			for {
				relID, ok, err := iter.Next(ctx)
				if err != nil {
					iter.Close()
					return nil, err
				}
				if !ok {
					break
				}
				if entry.visited[relID] {
					continue
				}
				rel, err := op.ectx.backend.GetRel(ctx, relID)
				if err != nil {
					iter.Close()
					return nil, err
				}
				visited := make(map[RelID]bool, len(entry.visited)+1)
				for k := range entry.visited {
					visited[k] = true
				}
				visited[relID] = true
				next = append(next, varLenFrontierEntry{
					id:      rel.OtherEnd(entry.id),
					rels:    append(append([]*RelValue(nil), entry.rels...), rel),
					visited: visited,
				})
			}
			iter.Close()
		}
		queue = next
	}
	return hits, nil
}
