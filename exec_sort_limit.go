package cypher

import (
	"context"
	"sort"
)

// sortOp implements PlanSort, grounded directly on the teacher's
// evalSortKey + sort.SliceStable pairing in cypher_exec.go: every ORDER BY
// key is evaluated once per row up front, then the rows are stably sorted
// by the pre-evaluated keys using spec §4.5's total ordering (sortCompare).
type sortOp struct {
	node  *PlanNode
	ectx  *execContext
	child operator

	rows    []Row
	idx     int
	started bool
}

type sortRow struct {
	row Row
	key []Value
}

func (s *sortOp) open(ctx context.Context) error {
	s.rows, s.idx, s.started = nil, 0, false
	return s.child.open(ctx)
}

func (s *sortOp) next(ctx context.Context) (Row, bool, error) {
	if !s.started {
		if err := s.compute(ctx); err != nil {
			return nil, false, err
		}
		s.started = true
	}
	if s.idx >= len(s.rows) {
		return nil, false, nil
	}
	row := s.rows[s.idx]
	s.idx++
	return row, true, nil
}

func (s *sortOp) compute(ctx context.Context) error {
	var rows []sortRow
	for {
		row, ok, err := s.child.next(ctx)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		ectx := s.ectx.evalCtx(s.node.Schema, row)
		key := make([]Value, len(s.node.SortKeys))
		for j, sk := range s.node.SortKeys {
			v, err := evalExpr(sk.Expr, ectx)
			if err != nil {
				return err
			}
			key[j] = v
		}
		rows = append(rows, sortRow{row: row, key: key})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return sortRowLess(rows[i].key, rows[j].key, s.node.SortKeys)
	})
	out := make([]Row, len(rows))
	for i, r := range rows {
		out[i] = r.row
	}
	s.rows = out
	return nil
}

func sortRowLess(a, b []Value, keys []SortKey) bool {
	for i, k := range keys {
		c := sortCompare(a[i], b[i])
		if c == 0 {
			continue
		}
		if k.Desc {
			return c > 0
		}
		return c < 0
	}
	return false
}

func (s *sortOp) close() error { return s.child.close() }

// evalCountExpr resolves a SKIP/LIMIT expression, which per spec §4.1 is
// always a literal or parameter and so needs no row context.
func evalCountExpr(e Expression, ectx *execContext) (int64, error) {
	v, err := evalExpr(e, ectx.evalCtx(NewRowSchema(nil), Row{}))
	if err != nil {
		return 0, err
	}
	if v.Kind() != KindInt {
		return 0, newTypeError("SKIP/LIMIT requires an integer, got %s", v.Kind())
	}
	n := v.AsInt()
	if n < 0 {
		return 0, newSemanticError("SKIP/LIMIT cannot be negative")
	}
	return n, nil
}

type skipOp struct {
	node  *PlanNode
	ectx  *execContext
	child operator

	n       int64
	counted bool
	seen    int64
}

func (s *skipOp) open(ctx context.Context) error {
	s.counted, s.seen = false, 0
	return s.child.open(ctx)
}

func (s *skipOp) next(ctx context.Context) (Row, bool, error) {
	if !s.counted {
		n, err := evalCountExpr(s.node.CountExpr, s.ectx)
		if err != nil {
			return nil, false, err
		}
		s.n = n
		s.counted = true
	}
	for s.seen < s.n {
		_, ok, err := s.child.next(ctx)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return nil, false, nil
		}
		s.seen++
	}
	return s.child.next(ctx)
}

func (s *skipOp) close() error { return s.child.close() }

type limitOp struct {
	node  *PlanNode
	ectx  *execContext
	child operator

	n       int64
	counted bool
	emitted int64
}

func (l *limitOp) open(ctx context.Context) error {
	l.counted, l.emitted = false, 0
	return l.child.open(ctx)
}

func (l *limitOp) next(ctx context.Context) (Row, bool, error) {
	if !l.counted {
		n, err := evalCountExpr(l.node.CountExpr, l.ectx)
		if err != nil {
			return nil, false, err
		}
		l.n = n
		l.counted = true
	}
	if l.emitted >= l.n {
		return nil, false, nil
	}
	row, ok, err := l.child.next(ctx)
	if err != nil || !ok {
		return nil, false, err
	}
	l.emitted++
	return row, true, nil
}

func (l *limitOp) close() error { return l.child.close() }
