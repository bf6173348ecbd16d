package cypher

import "context"

// optionalOp implements PlanOptional: for every outer row, attempt the
// inner subplan (rooted at an Argument seeded with that row); if it
// produces nothing, emit one row with every inner-only slot Null rather
// than dropping the outer row. Grounded on the teacher's
// execWithOptionalMatch/attemptOptionalMatch/nullifyOptionalBindings
// (cypher_optional.go), generalized from the teacher's two fixed pattern
// shapes to an arbitrary inner subplan.
type optionalOp struct {
	outer      operator
	arg        *argumentOp
	inner      operator
	innerWidth int

	curOuter    Row
	innerOpen   bool
	gotAnyInner bool
}

func newOptionalOp(node *PlanNode, ectx *execContext) *optionalOp {
	outer := buildOperator(node.Children[0], ectx)
	arg := &argumentOp{}
	ectx.pendingArg = arg
	inner := buildOperator(node.Children[1], ectx)
	return &optionalOp{outer: outer, arg: arg, inner: inner, innerWidth: node.Schema.Width()}
}

func (o *optionalOp) open(ctx context.Context) error {
	o.innerOpen, o.gotAnyInner = false, false
	return o.outer.open(ctx)
}

func (o *optionalOp) next(ctx context.Context) (Row, bool, error) {
	for {
		if o.innerOpen {
			row, ok, err := o.inner.next(ctx)
			if err != nil {
				return nil, false, err
			}
			if ok {
				o.gotAnyInner = true
				return row, true, nil
			}
			o.inner.close()
			o.innerOpen = false
			if !o.gotAnyInner {
				return o.curOuter.Extend(o.innerWidth - len(o.curOuter)), true, nil
			}
			continue
		}

		outerRow, ok, err := o.outer.next(ctx)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return nil, false, nil
		}

		o.curOuter = outerRow
		o.arg.seed = outerRow
		if err := o.inner.open(ctx); err != nil {
			return nil, false, err
		}
		o.innerOpen, o.gotAnyInner = true, false
	}
}

func (o *optionalOp) close() error {
	if o.innerOpen {
		o.inner.close()
	}
	return o.outer.close()
}
