package cypher

import "context"

// createGraphOp implements PlanCreateGraph: one-to-one row transform that
// creates the nodes and relationships of CreatePattern, reusing any
// pattern variable already present in the input row's schema rather than
// creating a second entity for it (spec §4.1 CREATE semantics). Grounded
// on the teacher's executeCreatePattern (cypher_write.go): resolve-or-
// create each node left to right, then create one relationship per
// consecutive pair, swapping endpoints for `<-[...]-` per the teacher's
// direction-reversal rule.
type createGraphOp struct {
	node  *PlanNode
	ectx  *execContext
	child operator
}

func (c *createGraphOp) open(ctx context.Context) error { return c.child.open(ctx) }

func (c *createGraphOp) next(ctx context.Context) (Row, bool, error) {
	row, ok, err := c.child.next(ctx)
	if err != nil || !ok {
		return nil, ok, err
	}

	out := row.Extend(c.node.Schema.Width() - len(row))
	pat := c.node.CreatePattern

	nodeIDs := make([]NodeID, len(pat.Nodes))
	for i, np := range pat.Nodes {
		sym, _ := c.node.Schema.Lookup(np.Variable)
		if sym.Slot < len(row) {
			nodeIDs[i] = out[sym.Slot].AsNode().ID
			continue
		}
		props, err := c.evalPropMap(np.Props, out)
		if err != nil {
			return nil, false, err
		}
		id, err := c.ectx.backend.CreateNode(ctx, np.Labels, props)
		if err != nil {
			return nil, false, err
		}
		node, err := c.ectx.backend.GetNode(ctx, id)
		if err != nil {
			return nil, false, err
		}
		out[sym.Slot] = NodeVal(node)
		nodeIDs[i] = id
	}

	for i, rp := range pat.Rels {
		sym, _ := c.node.Schema.Lookup(rp.Variable)
		if sym.Slot < len(row) {
			continue
		}
		fromID, toID := nodeIDs[i], nodeIDs[i+1]
		if rp.Dir == DirIn {
			fromID, toID = toID, fromID
		}
		props, err := c.evalPropMap(rp.Props, out)
		if err != nil {
			return nil, false, err
		}
		relID, err := c.ectx.backend.CreateRel(ctx, fromID, toID, rp.Type, props)
		if err != nil {
			return nil, false, err
		}
		rel, err := c.ectx.backend.GetRel(ctx, relID)
		if err != nil {
			return nil, false, err
		}
		out[sym.Slot] = RelVal(rel)
	}

	return out, true, nil
}

func (c *createGraphOp) evalPropMap(props map[string]Expression, row Row) (*OrderedMap, error) {
	m := NewOrderedMap()
	ectx := c.ectx.evalCtx(c.node.Schema, row)
	for _, k := range sortedKeys(props) {
		v, err := evalExpr(props[k], ectx)
		if err != nil {
			return nil, err
		}
		m.Set(k, v)
	}
	return m, nil
}

func (c *createGraphOp) close() error { return c.child.close() }
