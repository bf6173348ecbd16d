package cypher

import "context"

// ---------------------------------------------------------------------------
// Execution Engine (spec §4.4) — a pull-based (open/next/close) operator
// tree, one operator per PlanNode. The teacher's executor (cypher_exec.go)
// instead dispatches each whole query to one of a handful of hand-written
// strategy functions (execNodeMatch, execSingleHopMatch, execVarLengthMatch)
// that each run start-to-finish and materialise a full []*Node slice before
// projecting; that collapses as soon as a query chains more than one
// pattern or clause, which spec §4.1's statement sequence requires. This
// keeps the teacher's per-row evaluation (evalExpr/evalBool), but drives it
// through Volcano-style iterators over the PlanNode tree planner.go builds, so an arbitrary
// chain of MATCH/CREATE/UNWIND/WITH/RETURN clauses composes for free.
// ---------------------------------------------------------------------------

// operator is one physical execution step. Implementations must tolerate a
// full open→next*→close cycle being repeated (Optional re-opens its inner
// subplan once per outer row).
type operator interface {
	open(ctx context.Context) error
	next(ctx context.Context) (Row, bool, error)
	close() error
}

// execContext is the environment threaded through every operator in one
// query's tree.
type execContext struct {
	backend Backend
	params  map[string]Value

	// pendingArg is consumed by the next PlanArgument leaf buildOperator
	// builds, letting an Optional operator hold on to the exact argumentOp
	// instance inside its freshly-built inner subplan so it can reseed and
	// reopen that subplan once per outer row. See exec_optional.go.
	pendingArg *argumentOp
}

func (e *execContext) evalCtx(schema *RowSchema, row Row) *evalContext {
	return &evalContext{row: row, schema: schema, params: e.params}
}

// buildOperator lowers one PlanNode into its operator, recursing into
// Children first (every operator but Argument pulls from exactly the
// children the planner gave it).
func buildOperator(node *PlanNode, ectx *execContext) operator {
	switch node.Op {
	case PlanUnit:
		return &unitOp{}
	case PlanArgument:
		if ectx.pendingArg != nil {
			a := ectx.pendingArg
			ectx.pendingArg = nil
			return a
		}
		return &argumentOp{}
	case PlanScanAll, PlanScanLabel:
		return &scanOp{node: node, ectx: ectx, child: buildOperator(node.Children[0], ectx)}
	case PlanExpand:
		return &expandOp{node: node, ectx: ectx, child: buildOperator(node.Children[0], ectx)}
	case PlanExpandVarLen:
		return &expandVarLenOp{node: node, ectx: ectx, child: buildOperator(node.Children[0], ectx)}
	case PlanFilter:
		return &filterOp{node: node, ectx: ectx, child: buildOperator(node.Children[0], ectx)}
	case PlanProject:
		return &projectOp{node: node, ectx: ectx, child: buildOperator(node.Children[0], ectx)}
	case PlanDistinct:
		return &distinctOp{node: node, child: buildOperator(node.Children[0], ectx)}
	case PlanAggregate:
		return &aggregateOp{node: node, ectx: ectx, child: buildOperator(node.Children[0], ectx)}
	case PlanSort:
		return &sortOp{node: node, ectx: ectx, child: buildOperator(node.Children[0], ectx)}
	case PlanSkip:
		return &skipOp{node: node, ectx: ectx, child: buildOperator(node.Children[0], ectx)}
	case PlanLimit:
		return &limitOp{node: node, ectx: ectx, child: buildOperator(node.Children[0], ectx)}
	case PlanUnwind:
		return &unwindOp{node: node, ectx: ectx, child: buildOperator(node.Children[0], ectx)}
	case PlanOptional:
		return newOptionalOp(node, ectx)
	case PlanCreateGraph:
		return &createGraphOp{node: node, ectx: ectx, child: buildOperator(node.Children[0], ectx)}
	default:
		return &errOp{err: newSemanticError("unsupported plan operator %v", node.Op)}
	}
}

// runPlan drains a plan into a slice of rows conforming to plan.Schema.
func runPlan(ctx context.Context, plan *PlanNode, backend Backend, params map[string]Value) ([]Row, error) {
	ectx := &execContext{backend: backend, params: params}
	op := buildOperator(plan, ectx)
	if err := op.open(ctx); err != nil {
		return nil, err
	}
	defer op.close()

	var rows []Row
	for {
		if err := ctx.Err(); err != nil {
			return nil, ErrCancelled
		}
		row, ok, err := op.next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			return rows, nil
		}
		rows = append(rows, row)
	}
}

// unitOp yields exactly one zero-width row, the leaf of an otherwise empty
// plan (the first clause of a query, or the outer side of a leading
// OPTIONAL MATCH).
type unitOp struct{ done bool }

func (u *unitOp) open(ctx context.Context) error { u.done = false; return nil }
func (u *unitOp) next(ctx context.Context) (Row, bool, error) {
	if u.done {
		return nil, false, nil
	}
	u.done = true
	return Row{}, true, nil
}
func (u *unitOp) close() error { return nil }

// argumentOp yields the single row captured by its enclosing Optional at
// the moment the inner subplan was (re-)opened. See exec_optional.go.
type argumentOp struct {
	seed    Row
	yielded bool
}

func (a *argumentOp) open(ctx context.Context) error { a.yielded = false; return nil }
func (a *argumentOp) next(ctx context.Context) (Row, bool, error) {
	if a.yielded {
		return nil, false, nil
	}
	a.yielded = true
	return a.seed, true, nil
}
func (a *argumentOp) close() error { return nil }

// errOp surfaces a planning-time error through the operator interface.
type errOp struct{ err error }

func (e *errOp) open(ctx context.Context) error                    { return e.err }
func (e *errOp) next(ctx context.Context) (Row, bool, error)       { return nil, false, e.err }
func (e *errOp) close() error                                      { return nil }
