package cypher

import "context"

// scanOp implements PlanScanAll/PlanScanLabel: for every row pulled from
// its child, it streams every matching node from the backend and appends
// one new slot holding that node. With a PlanUnit or PlanArgument child
// (exactly one outer row) this degenerates to an ordinary scan; with any
// other child it behaves as a nested-loop join against the outer rows,
// which is how a pattern whose root is not already bound, but that is not
// the first clause of the query, gets its cross-product with prior
// bindings (spec §4.3) without a dedicated Join operator.
type scanOp struct {
	node  *PlanNode
	ectx  *execContext
	child operator

	haveOuter bool
	outerRow  Row
	iter      NodeIterator
}

func (s *scanOp) open(ctx context.Context) error {
	s.iter = nil
	return s.child.open(ctx)
}

func (s *scanOp) next(ctx context.Context) (Row, bool, error) {
	for {
		if s.iter == nil {
			row, ok, err := s.child.next(ctx)
			if err != nil {
				return nil, false, err
			}
			if !ok {
				return nil, false, nil
			}
			s.outerRow = row

			var iter NodeIterator
			var err2 error
			if s.node.Op == PlanScanLabel {
				iter, err2 = s.ectx.backend.NodesByLabel(ctx, s.node.ScanLabel)
			} else {
				iter, err2 = s.ectx.backend.AllNodes(ctx)
			}
			if err2 != nil {
				return nil, false, err2
			}
			s.iter = iter
		}

		id, ok, err := s.iter.Next(ctx)
		if err != nil {
			s.iter.Close()
			s.iter = nil
			return nil, false, err
		}
		if !ok {
			s.iter.Close()
			s.iter = nil
			continue
		}

		node, err := s.ectx.backend.GetNode(ctx, id)
		if err != nil {
			return nil, false, err
		}
		out := s.outerRow.Extend(1)
		out[len(out)-1] = NodeVal(node)
		return out, true, nil
	}
}

func (s *scanOp) close() error {
	if s.iter != nil {
		s.iter.Close()
		s.iter = nil
	}
	return s.child.close()
}
