package cypher

import (
	"fmt"
	"sort"
)

// ---------------------------------------------------------------------------
// Logical Planner (spec §4.3). Lowers a validated Query into a PlanNode
// tree, replacing the teacher's execNodeMatch/execSingleHopMatch/
// execVarLengthMatch strategy dispatch (cypher_exec.go) with an explicit
// operator DAG, but keeping the teacher's planning moves: prefer a node
// already bound in the input as the scan root (teacher: the label-index
// fast path in execNodeMatch), and push inline label/property constraints
// into a Filter immediately above the scan/expand that introduced the
// variable (teacher: matchLabels/matchProps fused into the scan loop).
//
// Every pattern in this grammar is a single chain (node-rel-node-...), so
// "connected component" reduces to "the chain"; an unconnected MATCH/CREATE
// against rows already flowing from an earlier clause is planned as a
// nested-loop Scan over those rows rather than a dedicated join operator —
// Scan always carries exactly one child (the outer driver), which for the
// very first clause in a query is the synthetic single-row PlanUnit leaf.
// ---------------------------------------------------------------------------

type planner struct {
	anonCounter  int
	aliasCounter map[string]int
}

// planQuery lowers a validated Query into its logical plan. Callers must
// run analyzeQuery first; planQuery does not re-validate scoping.
func planQuery(q *Query) (*PlanNode, error) {
	pl := &planner{aliasCounter: make(map[string]int)}
	plan := unitPlan()
	var err error
	for _, stmt := range q.Statements {
		switch st := stmt.(type) {
		case *MatchStatement:
			plan, err = pl.lowerMatchStatement(plan, st)
		case *CreateStatement:
			plan, err = pl.lowerCreateStatement(plan, st)
		case *UnwindStatement:
			plan, err = pl.lowerUnwindStatement(plan, st)
		case *WithStatement:
			plan, err = pl.lowerWithStatement(plan, st)
		case *ReturnStatement:
			plan, err = pl.lowerReturnStatement(plan, st)
		default:
			return nil, newSemanticError("unrecognised statement type %T", st)
		}
		if err != nil {
			return nil, err
		}
	}
	return plan, nil
}

func unitPlan() *PlanNode {
	return &PlanNode{Op: PlanUnit, Schema: NewRowSchema(nil)}
}

func argumentPlan(base *PlanNode) *PlanNode {
	return &PlanNode{Op: PlanArgument, Schema: base.Schema, Children: []*PlanNode{base}}
}

func (pl *planner) anon(prefix string) string {
	pl.anonCounter++
	return fmt.Sprintf("~%s%d", prefix, pl.anonCounter)
}

// aliasName mints an internal-only alternate name for a pattern variable
// that re-occurs within the same pattern or against an outer binding (e.g.
// the self-loop `(a)-[r]-(a)`): the second occurrence gets its own schema
// slot under this alias, joined back to the original via an identity
// Filter, so the original name keeps resolving to its original slot for
// every later reference.
func (pl *planner) aliasName(name string) string {
	pl.aliasCounter[name]++
	return fmt.Sprintf("%s~%d", name, pl.aliasCounter[name]+1)
}

func reverseDir(d Direction) Direction {
	switch d {
	case DirOut:
		return DirIn
	case DirIn:
		return DirOut
	default:
		return DirBoth
	}
}

// ---------------------------------------------------------------------------
// MATCH / OPTIONAL MATCH
// ---------------------------------------------------------------------------

func (pl *planner) lowerMatchStatement(base *PlanNode, st *MatchStatement) (*PlanNode, error) {
	if !st.Optional {
		plan, err := pl.lowerPattern(base, st.Pattern, base.Schema)
		if err != nil {
			return nil, err
		}
		if st.Where != nil {
			plan = &PlanNode{Op: PlanFilter, Pred: *st.Where, Schema: plan.Schema, Children: []*PlanNode{plan}}
		}
		return plan, nil
	}

	arg := argumentPlan(base)
	inner, err := pl.lowerPattern(arg, st.Pattern, base.Schema)
	if err != nil {
		return nil, err
	}
	if st.Where != nil {
		// spec §4.4 OPTIONAL MATCH corner cases: a WHERE on an OPTIONAL
		// MATCH is lowered inside the Optional subtree.
		inner = &PlanNode{Op: PlanFilter, Pred: *st.Where, Schema: inner.Schema, Children: []*PlanNode{inner}}
	}
	return &PlanNode{Op: PlanOptional, Schema: inner.Schema, Children: []*PlanNode{base, inner}}, nil
}

// lowerPattern lowers one pattern chain onto base, choosing a root per
// spec §4.3 and then expanding outward in both directions from it.
func (pl *planner) lowerPattern(base *PlanNode, pat Pattern, existingSchema *RowSchema) (*PlanNode, error) {
	n := len(pat.Nodes)

	rootIdx := -1
	for i, np := range pat.Nodes {
		if np.Variable != "" && existingSchema.Has(np.Variable) {
			rootIdx = i
			break
		}
	}
	boundRoot := rootIdx != -1
	if !boundRoot {
		rootIdx = 0
		for i, np := range pat.Nodes {
			if len(np.Labels) > 0 {
				rootIdx = i
				break
			}
		}
	}

	slots := make([]int, n)
	for i := range slots {
		slots[i] = -1
	}
	relSlots := make([]int, len(pat.Rels))
	relNames := make([]string, len(pat.Rels))

	plan, slot, err := pl.emitNodeBinding(base, pat.Nodes[rootIdx], boundRoot)
	if err != nil {
		return nil, err
	}
	slots[rootIdx] = slot

	for i := rootIdx; i < n-1; i++ {
		plan, err = pl.emitExpandStep(plan, pat, i, i+1, slots, relSlots, relNames, existingSchema)
		if err != nil {
			return nil, err
		}
	}
	for i := rootIdx; i > 0; i-- {
		plan, err = pl.emitExpandStep(plan, pat, i, i-1, slots, relSlots, relNames, existingSchema)
		if err != nil {
			return nil, err
		}
	}

	plan = pl.emitRelUniquenessFilters(plan, relNames)
	return plan, nil
}

func (pl *planner) emitNodeBinding(base *PlanNode, np NodePattern, alreadyBound bool) (*PlanNode, int, error) {
	if alreadyBound {
		sym, _ := base.Schema.Lookup(np.Variable)
		plan := pl.emitNodeConstraintFilter(base, np.Variable, np.Labels, np.Props)
		return plan, sym.Slot, nil
	}

	label := ""
	remaining := np.Labels
	if len(np.Labels) > 0 {
		label = np.Labels[0]
		remaining = np.Labels[1:]
	}
	varName := np.Variable
	if varName == "" {
		varName = pl.anon("node")
	}
	newSchema := base.Schema.Extend(Symbol{Name: varName, Kind: SymNode})
	op := PlanScanAll
	if label != "" {
		op = PlanScanLabel
	}
	scanSlot := newSchema.Width() - 1
	scan := &PlanNode{Op: op, ScanLabel: label, Schema: newSchema, Children: []*PlanNode{base}, ScanSlot: scanSlot}
	plan := pl.emitNodeConstraintFilter(scan, varName, remaining, np.Props)
	return plan, scanSlot, nil
}

func (pl *planner) emitExpandStep(
	plan *PlanNode, pat Pattern, fromIdx, toIdx int, slots, relSlots []int, relNames []string, existingSchema *RowSchema,
) (*PlanNode, error) {
	relIdx := fromIdx
	reversed := toIdx < fromIdx
	if reversed {
		relIdx = toIdx
	}
	rp := pat.Rels[relIdx]
	dir := rp.Dir
	if reversed {
		dir = reverseDir(dir)
	}

	fromSlot := slots[fromIdx]
	toNP := pat.Nodes[toIdx]

	repeatSlot := -1
	if toNP.Variable != "" {
		if sym, ok := existingSchema.Lookup(toNP.Variable); ok {
			repeatSlot = sym.Slot
		} else {
			for j := range slots {
				if j != toIdx && slots[j] != -1 && pat.Nodes[j].Variable == toNP.Variable {
					repeatSlot = slots[j]
					break
				}
			}
		}
	}

	toVarName := toNP.Variable
	switch {
	case toVarName == "":
		toVarName = pl.anon("node")
	case repeatSlot != -1:
		toVarName = pl.aliasName(toVarName)
	}

	relVarName := rp.Variable
	if relVarName == "" {
		relVarName = pl.anon("rel")
	}

	var relSlot, toSlot int
	if rp.VarLength {
		newSchema := plan.Schema.Extend(Symbol{Name: relVarName, Kind: SymScalar}, Symbol{Name: toVarName, Kind: SymNode})
		relSlot, toSlot = newSchema.Width()-2, newSchema.Width()-1
		plan = &PlanNode{
			Op: PlanExpandVarLen, FromSlot: fromSlot, ToSlot: toSlot, RelSlot: relSlot, PathSlot: -1,
			Dir: dir, RelType: rp.Type, MinHops: rp.MinHops, MaxHops: rp.MaxHops,
			Schema: newSchema, Children: []*PlanNode{plan},
		}
	} else {
		newSchema := plan.Schema.Extend(Symbol{Name: relVarName, Kind: SymRel}, Symbol{Name: toVarName, Kind: SymNode})
		relSlot, toSlot = newSchema.Width()-2, newSchema.Width()-1
		plan = &PlanNode{
			Op: PlanExpand, FromSlot: fromSlot, ToSlot: toSlot, RelSlot: relSlot,
			Dir: dir, RelType: rp.Type, Schema: newSchema, Children: []*PlanNode{plan},
		}
	}
	slots[toIdx] = toSlot
	relSlots[relIdx] = relSlot
	relNames[relIdx] = relVarName

	plan = pl.emitNodeConstraintFilter(plan, toVarName, toNP.Labels, toNP.Props)
	if repeatSlot != -1 {
		plan = pl.emitIdentityFilter(plan, toVarName, toNP.Variable)
	}
	plan = pl.emitRelConstraintFilter(plan, relVarName, rp.Props)
	return plan, nil
}

// emitRelUniquenessFilters enforces spec §4.3/§8's relationship-uniqueness
// invariant: no two pattern-edge slots within one chain may bind the same
// physical relationship.
func (pl *planner) emitRelUniquenessFilters(plan *PlanNode, relNames []string) *PlanNode {
	for i := 0; i < len(relNames); i++ {
		for j := i + 1; j < len(relNames); j++ {
			pred := notExpr(compExpr(varRefExpr(relNames[i]), OpEq, varRefExpr(relNames[j])))
			plan = &PlanNode{Op: PlanFilter, Pred: pred, Schema: plan.Schema, Children: []*PlanNode{plan}}
		}
	}
	return plan
}

func (pl *planner) emitNodeConstraintFilter(plan *PlanNode, varName string, labels []string, props map[string]Expression) *PlanNode {
	var conds []Expression
	for _, l := range labels {
		conds = append(conds, Expression{Kind: ExprLabelCheck, LabelVar: varName, LabelName: l})
	}
	for _, k := range sortedKeys(props) {
		conds = append(conds, compExpr(propExpr(varName, []string{k}), OpEq, props[k]))
	}
	return wrapFilter(plan, conds)
}

func (pl *planner) emitRelConstraintFilter(plan *PlanNode, varName string, props map[string]Expression) *PlanNode {
	var conds []Expression
	for _, k := range sortedKeys(props) {
		conds = append(conds, compExpr(propExpr(varName, []string{k}), OpEq, props[k]))
	}
	return wrapFilter(plan, conds)
}

func (pl *planner) emitIdentityFilter(plan *PlanNode, aliasVar, originalVar string) *PlanNode {
	pred := compExpr(varRefExpr(aliasVar), OpEq, varRefExpr(originalVar))
	return &PlanNode{Op: PlanFilter, Pred: pred, Schema: plan.Schema, Children: []*PlanNode{plan}}
}

func wrapFilter(plan *PlanNode, conds []Expression) *PlanNode {
	if len(conds) == 0 {
		return plan
	}
	pred := conds[0]
	if len(conds) > 1 {
		pred = andExpr(conds...)
	}
	return &PlanNode{Op: PlanFilter, Pred: pred, Schema: plan.Schema, Children: []*PlanNode{plan}}
}

func sortedKeys(m map[string]Expression) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ---------------------------------------------------------------------------
// CREATE
// ---------------------------------------------------------------------------

func (pl *planner) lowerCreateStatement(base *PlanNode, st *CreateStatement) (*PlanNode, error) {
	plan := base
	for _, pat := range st.Patterns {
		newSchema := plan.Schema
		resolved := Pattern{}
		for _, np := range pat.Nodes {
			if np.Variable == "" {
				np.Variable = pl.anon("node")
			}
			if !newSchema.Has(np.Variable) {
				newSchema = newSchema.Extend(Symbol{Name: np.Variable, Kind: SymNode})
			}
			resolved.Nodes = append(resolved.Nodes, np)
		}
		for _, rp := range pat.Rels {
			if rp.Variable == "" {
				rp.Variable = pl.anon("rel")
			}
			if !newSchema.Has(rp.Variable) {
				newSchema = newSchema.Extend(Symbol{Name: rp.Variable, Kind: SymRel})
			}
			resolved.Rels = append(resolved.Rels, rp)
		}
		plan = &PlanNode{Op: PlanCreateGraph, CreatePattern: resolved, Schema: newSchema, Children: []*PlanNode{plan}}
	}
	return plan, nil
}

// ---------------------------------------------------------------------------
// UNWIND
// ---------------------------------------------------------------------------

func (pl *planner) lowerUnwindStatement(base *PlanNode, st *UnwindStatement) (*PlanNode, error) {
	newSchema := base.Schema.Extend(Symbol{Name: st.As, Kind: SymScalar})
	return &PlanNode{
		Op: PlanUnwind, UnwindExpr: st.Expr, UnwindSlot: newSchema.Width() - 1,
		Schema: newSchema, Children: []*PlanNode{base},
	}, nil
}

// ---------------------------------------------------------------------------
// WITH / RETURN
// ---------------------------------------------------------------------------

func (pl *planner) lowerWithStatement(base *PlanNode, st *WithStatement) (*PlanNode, error) {
	return pl.lowerProjection(base, st.Items, st.Distinct, st.Where, st.OrderBy, st.Skip, st.Limit)
}

func (pl *planner) lowerReturnStatement(base *PlanNode, st *ReturnStatement) (*PlanNode, error) {
	return pl.lowerProjection(base, st.Items, st.Distinct, nil, st.OrderBy, st.Skip, st.Limit)
}

// lowerProjection implements spec §4.3's shared WITH/RETURN lowering: an
// Aggregate when any projection item is an aggregate call, else a Project;
// then, in fixed order, Distinct, Filter, Sort, Skip, Limit.
//
// Scope decision (see DESIGN.md): a projection item must be either a bare
// aggregate call (`count(n)`, `collect(DISTINCT x.y)`, `count(*)`) or
// entirely aggregate-free; an expression mixing the two (`count(n) + 1`)
// is rejected at planning time rather than requiring the planner to split
// an arbitrary expression tree around an embedded accumulator. None of
// spec.md's end-to-end scenarios need the mixed form.
func (pl *planner) lowerProjection(
	base *PlanNode, items []ProjectItem, distinct bool, where *Expression,
	orderBy []OrderItem, skip, limit *Expression,
) (*PlanNode, error) {
	hasAgg := false
	for _, item := range items {
		if !item.Star && exprIsAggregate(item.Expr) {
			hasAgg = true
		}
	}

	var plan *PlanNode
	if hasAgg {
		var err error
		plan, err = pl.lowerAggregateProjection(base, items)
		if err != nil {
			return nil, err
		}
	} else {
		plan = pl.lowerPlainProjection(base, items)
	}

	if distinct {
		plan = &PlanNode{Op: PlanDistinct, Schema: plan.Schema, Children: []*PlanNode{plan}}
	}
	if where != nil {
		plan = &PlanNode{Op: PlanFilter, Pred: *where, Schema: plan.Schema, Children: []*PlanNode{plan}}
	}
	if len(orderBy) > 0 {
		keys := make([]SortKey, len(orderBy))
		for i, oi := range orderBy {
			keys[i] = SortKey{Expr: oi.Expr, Desc: oi.Desc}
		}
		plan = &PlanNode{Op: PlanSort, SortKeys: keys, Schema: plan.Schema, Children: []*PlanNode{plan}}
	}
	if skip != nil {
		plan = &PlanNode{Op: PlanSkip, CountExpr: *skip, Schema: plan.Schema, Children: []*PlanNode{plan}}
	}
	if limit != nil {
		plan = &PlanNode{Op: PlanLimit, CountExpr: *limit, Schema: plan.Schema, Children: []*PlanNode{plan}}
	}
	return plan, nil
}

func (pl *planner) lowerPlainProjection(base *PlanNode, items []ProjectItem) *PlanNode {
	var cols []ProjectCol
	var symbols []Symbol
	for _, item := range items {
		if item.Star {
			for _, sym := range base.Schema.Symbols {
				cols = append(cols, ProjectCol{Expr: varRefExpr(sym.Name), Name: sym.Name})
				symbols = append(symbols, Symbol{Name: sym.Name, Kind: sym.Kind, Slot: len(symbols)})
			}
			continue
		}
		name := item.Alias
		if name == "" {
			name = exprText(item.Expr)
		}
		kind := SymScalar
		if item.Expr.Kind == ExprVarRef {
			if sym, ok := base.Schema.Lookup(item.Expr.Variable); ok {
				kind = sym.Kind
			}
		}
		cols = append(cols, ProjectCol{Expr: item.Expr, Name: name})
		symbols = append(symbols, Symbol{Name: name, Kind: kind, Slot: len(symbols)})
	}
	newSchema := NewRowSchema(symbols)
	return &PlanNode{Op: PlanProject, ProjectCols: cols, Schema: newSchema, Children: []*PlanNode{base}}
}

func (pl *planner) lowerAggregateProjection(base *PlanNode, items []ProjectItem) (*PlanNode, error) {
	var groupCols []ProjectCol
	var aggCols []AggCol
	var symbols []Symbol

	for _, item := range items {
		if item.Star {
			return nil, newSemanticError("'*' cannot be combined with an aggregate projection")
		}
		name := item.Alias
		if name == "" {
			name = exprText(item.Expr)
		}
		if exprIsAggregate(item.Expr) {
			funcName, arg, star, err := asAggregateCall(item.Expr)
			if err != nil {
				return nil, err
			}
			aggCols = append(aggCols, AggCol{FuncName: funcName, Distinct: item.Expr.Distinct, Star: star, Arg: arg, Name: name})
		} else {
			groupCols = append(groupCols, ProjectCol{Expr: item.Expr, Name: name})
		}
		symbols = append(symbols, Symbol{Name: name, Kind: SymScalar, Slot: len(symbols)})
	}

	newSchema := NewRowSchema(symbols)
	return &PlanNode{Op: PlanAggregate, GroupCols: groupCols, AggCols: aggCols, Schema: newSchema, Children: []*PlanNode{base}}, nil
}

// asAggregateCall extracts the (function name, single argument, is-count-star)
// triple from a top-level aggregate projection expression, enforcing the
// "bare aggregate call" scope decision above.
func asAggregateCall(e Expression) (funcName string, arg Expression, star bool, err error) {
	if e.Kind == ExprCountStar {
		return "count", Expression{}, true, nil
	}
	if e.Kind != ExprFuncCall || !isAggregateFuncName(e.FuncName) {
		return "", Expression{}, false, newSemanticError("projection item mixes an aggregate with other terms: %s", exprText(e))
	}
	if len(e.Args) != 1 {
		return "", Expression{}, false, newSemanticError("aggregate function %q requires exactly one argument", e.FuncName)
	}
	return e.FuncName, e.Args[0], false, nil
}
