package cypher

import "context"

// aggregateOp implements PlanAggregate: groups input rows by GroupCols and
// folds AggCols per group via aggregate_funcs.go's accumulators. Grouping
// keys are compared by value equality (spec §4.5); with no GroupCols every
// row belongs to the single implicit group, matching spec §4.4's "a bare
// RETURN count(n) over zero rows still returns one row".
type aggregateOp struct {
	node  *PlanNode
	ectx  *execContext
	child operator

	rows    []Row // output rows, computed eagerly on first next()
	idx     int
	started bool
}

func (a *aggregateOp) open(ctx context.Context) error {
	a.rows = nil
	a.idx = 0
	a.started = false
	return a.child.open(ctx)
}

func (a *aggregateOp) next(ctx context.Context) (Row, bool, error) {
	if !a.started {
		if err := a.compute(ctx); err != nil {
			return nil, false, err
		}
		a.started = true
	}
	if a.idx >= len(a.rows) {
		return nil, false, nil
	}
	row := a.rows[a.idx]
	a.idx++
	return row, true, nil
}

func (a *aggregateOp) close() error { return a.child.close() }

type aggGroup struct {
	key  Row
	aggs []aggregator
}

func (a *aggregateOp) compute(ctx context.Context) error {
	inSchema := a.node.Children[0].Schema

	var groups []*aggGroup
	findGroup := func(key Row) *aggGroup {
		for _, g := range groups {
			if rowsEqual(g.key, key) {
				return g
			}
		}
		return nil
	}

	for {
		row, ok, err := a.child.next(ctx)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		inCtx := a.ectx.evalCtx(inSchema, row)

		key := NewRow(len(a.node.GroupCols))
		for i, col := range a.node.GroupCols {
			v, err := evalExpr(col.Expr, inCtx)
			if err != nil {
				return err
			}
			key[i] = v
		}

		g := findGroup(key)
		if g == nil {
			g = &aggGroup{key: key, aggs: make([]aggregator, len(a.node.AggCols))}
			for i, ac := range a.node.AggCols {
				agg, err := newAggregator(ac.FuncName, ac.Distinct, ac.Star)
				if err != nil {
					return err
				}
				g.aggs[i] = agg
			}
			groups = append(groups, g)
		}

		for i, ac := range a.node.AggCols {
			if ac.Star {
				g.aggs[i].add(Bool(true)) // count(*): any non-null sentinel counts the row
				continue
			}
			v, err := evalExpr(ac.Arg, inCtx)
			if err != nil {
				return err
			}
			g.aggs[i].add(v)
		}
	}

	// Spec §4.4: with no GROUP BY keys, a zero-row input still yields one
	// group (every aggregate's empty-input result), unless there are no
	// aggregate columns either (bare DISTINCT-only case has nothing to
	// produce over zero rows).
	if len(groups) == 0 && len(a.node.GroupCols) == 0 && len(a.node.AggCols) > 0 {
		g := &aggGroup{key: Row{}, aggs: make([]aggregator, len(a.node.AggCols))}
		for i, ac := range a.node.AggCols {
			agg, err := newAggregator(ac.FuncName, ac.Distinct, ac.Star)
			if err != nil {
				return err
			}
			g.aggs[i] = agg
		}
		groups = append(groups, g)
	}

	a.rows = make([]Row, len(groups))
	for gi, g := range groups {
		out := NewRow(len(a.node.GroupCols) + len(a.node.AggCols))
		copy(out, g.key)
		for i, agg := range g.aggs {
			out[len(a.node.GroupCols)+i] = agg.finish()
		}
		a.rows[gi] = out
	}
	return nil
}
