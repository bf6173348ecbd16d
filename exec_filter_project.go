package cypher

import "context"

// filterOp implements PlanFilter: keeps rows where Pred evaluates truthy
// under spec §4.5's three-valued logic (Null and False are both dropped).
type filterOp struct {
	node  *PlanNode
	ectx  *execContext
	child operator
}

func (f *filterOp) open(ctx context.Context) error { return f.child.open(ctx) }

func (f *filterOp) next(ctx context.Context) (Row, bool, error) {
	for {
		row, ok, err := f.child.next(ctx)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return nil, false, nil
		}
		v, err := evalExpr(f.node.Pred, f.ectx.evalCtx(f.node.Schema, row))
		if err != nil {
			return nil, false, err
		}
		if isTruthy(v) {
			return row, true, nil
		}
	}
}

func (f *filterOp) close() error { return f.child.close() }

// projectOp implements PlanProject: evaluates each ProjectCol against the
// input row to build the narrower output row.
type projectOp struct {
	node  *PlanNode
	ectx  *execContext
	child operator
}

func (p *projectOp) open(ctx context.Context) error { return p.child.open(ctx) }

func (p *projectOp) next(ctx context.Context) (Row, bool, error) {
	row, ok, err := p.child.next(ctx)
	if err != nil || !ok {
		return nil, ok, err
	}
	out := NewRow(len(p.node.ProjectCols))
	inCtx := p.ectx.evalCtx(p.node.Children[0].Schema, row)
	for i, col := range p.node.ProjectCols {
		v, err := evalExpr(col.Expr, inCtx)
		if err != nil {
			return nil, false, err
		}
		out[i] = v
	}
	return out, true, nil
}

func (p *projectOp) close() error { return p.child.close() }

// distinctOp implements PlanDistinct / WITH DISTINCT without aggregation:
// an Aggregate with no accumulators, deduplicating whole rows by value
// equality per spec §4.4.
type distinctOp struct {
	node  *PlanNode
	child operator
	seen  []Row
}

func (d *distinctOp) open(ctx context.Context) error {
	d.seen = nil
	return d.child.open(ctx)
}

func (d *distinctOp) next(ctx context.Context) (Row, bool, error) {
	for {
		row, ok, err := d.child.next(ctx)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return nil, false, nil
		}
		if d.isDuplicate(row) {
			continue
		}
		d.seen = append(d.seen, row)
		return row, true, nil
	}
}

func (d *distinctOp) isDuplicate(row Row) bool {
	for _, s := range d.seen {
		if rowsEqual(s, row) {
			return true
		}
	}
	return false
}

func rowsEqual(a, b Row) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].IsNull() || b[i].IsNull() {
			if !(a[i].IsNull() && b[i].IsNull()) {
				return false
			}
			continue
		}
		if !valuesEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

func (d *distinctOp) close() error { return d.child.close() }
