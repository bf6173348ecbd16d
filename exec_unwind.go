package cypher

import "context"

// unwindOp implements PlanUnwind: one output row per element of the
// evaluated list expression, per input row. A non-list value unwinds as a
// single-element sequence containing itself; Null unwinds to zero rows
// (spec §4.1's UNWIND semantics).
type unwindOp struct {
	node  *PlanNode
	ectx  *execContext
	child operator

	outerRow Row
	items    []Value
	idx      int
}

func (u *unwindOp) open(ctx context.Context) error {
	u.items, u.idx = nil, 0
	return u.child.open(ctx)
}

func (u *unwindOp) next(ctx context.Context) (Row, bool, error) {
	for {
		if u.idx < len(u.items) {
			out := u.outerRow.Extend(1)
			out[u.node.UnwindSlot] = u.items[u.idx]
			u.idx++
			return out, true, nil
		}

		row, ok, err := u.child.next(ctx)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return nil, false, nil
		}
		u.outerRow = row

		v, err := evalExpr(u.node.UnwindExpr, u.ectx.evalCtx(u.node.Children[0].Schema, row))
		if err != nil {
			return nil, false, err
		}
		switch {
		case v.IsNull():
			u.items, u.idx = nil, 0
		case v.Kind() == KindList:
			u.items, u.idx = v.AsList(), 0
		default:
			u.items, u.idx = []Value{v}, 0
		}
	}
}

func (u *unwindOp) close() error { return u.child.close() }
