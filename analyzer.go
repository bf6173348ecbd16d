package cypher

import (
	"fmt"
	"strconv"
)

// ---------------------------------------------------------------------------
// Semantic Analyser (spec §4.2).
//
// The teacher's cypher_exec.go never separates analysis from execution: it
// resolves `n.prop`-style references against a map[string]any scope built
// lazily during the strategy dispatch. This pass instead walks the AST in
// clause order up front, maintaining an explicit scope, exactly the
// small-state-threaded-through-a-sequence-of-steps idiom the teacher already
// uses for its cluster role transitions in replication/election.go —
// generalized here into a stack of named bindings rather than a handful of
// named fields.
//
// analyzeQuery is a pure validation pass: it does not itself assign row
// slots (the planner does that while lowering, since only the planner knows
// the true physical schema of each operator), but it rejects every query
// the planner must never be asked to lower.
// ---------------------------------------------------------------------------

// scope tracks the bindings visible at one point in clause order together
// with their role (node / relationship / scalar), so a later reference to
// the same name in an incompatible role can be rejected.
type scope struct {
	kinds map[string]SymbolKind
	order []string
}

func newScope() *scope { return &scope{kinds: make(map[string]SymbolKind)} }

func (s *scope) has(name string) bool {
	_, ok := s.kinds[name]
	return ok
}

func (s *scope) kindOf(name string) SymbolKind { return s.kinds[name] }

// bind introduces name with the given kind, or confirms a prior binding has
// the same kind. Role conflicts (e.g. a node variable reused as a
// relationship variable) are rejected.
func (s *scope) bind(name string, kind SymbolKind) error {
	if name == "" {
		return nil
	}
	if existing, ok := s.kinds[name]; ok {
		if existing != kind {
			return newSemanticError("variable %q already bound with an incompatible role", name)
		}
		return nil
	}
	s.kinds[name] = kind
	s.order = append(s.order, name)
	return nil
}

// shadow introduces or overwrites name's role unconditionally, used by
// UNWIND/WITH/RETURN aliasing where spec §4.2 explicitly allows a later
// clause to shadow an earlier binding of the same name.
func (s *scope) shadow(name string, kind SymbolKind) {
	if name == "" {
		return
	}
	if !s.has(name) {
		s.order = append(s.order, name)
	}
	s.kinds[name] = kind
}

func (s *scope) clone() *scope {
	c := &scope{kinds: make(map[string]SymbolKind, len(s.kinds)), order: append([]string(nil), s.order...)}
	for k, v := range s.kinds {
		c.kinds[k] = v
	}
	return c
}

// analyzeQuery validates a parsed Query against the rules of spec §4.2 and
// returns the first violation found.
func analyzeQuery(q *Query) error {
	sc := newScope()
	for i, stmt := range q.Statements {
		isLast := i == len(q.Statements)-1
		var err error
		switch st := stmt.(type) {
		case *MatchStatement:
			err = analyzeMatch(st, sc)
		case *CreateStatement:
			err = analyzeCreate(st, sc)
		case *UnwindStatement:
			err = analyzeUnwind(st, sc)
		case *WithStatement:
			sc, err = analyzeProjectionStmt(st.Items, st.Distinct, st.Where, st.OrderBy, st.Skip, st.Limit, sc, false)
		case *ReturnStatement:
			if !isLast {
				return newSemanticError("RETURN must be the final clause of a query")
			}
			_, err = analyzeProjectionStmt(st.Items, st.Distinct, nil, st.OrderBy, st.Skip, st.Limit, sc, true)
		default:
			return newSemanticError("unrecognised statement type %T", st)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func analyzeMatch(st *MatchStatement, sc *scope) error {
	for _, np := range st.Pattern.Nodes {
		if err := sc.bind(np.Variable, SymNode); err != nil {
			return err
		}
		for _, expr := range np.Props {
			if err := checkExpr(expr, sc, false); err != nil {
				return err
			}
		}
	}
	for _, rp := range st.Pattern.Rels {
		kind := SymRel
		if err := sc.bind(rp.Variable, kind); err != nil {
			return err
		}
		for _, expr := range rp.Props {
			if err := checkExpr(expr, sc, false); err != nil {
				return err
			}
		}
	}
	if st.Where != nil {
		if err := checkExpr(*st.Where, sc, false); err != nil {
			return err
		}
	}
	return nil
}

func analyzeCreate(st *CreateStatement, sc *scope) error {
	for _, pat := range st.Patterns {
		for _, np := range pat.Nodes {
			if err := sc.bind(np.Variable, SymNode); err != nil {
				return err
			}
			for _, expr := range np.Props {
				if err := checkExpr(expr, sc, false); err != nil {
					return err
				}
			}
		}
		for _, rp := range pat.Rels {
			if err := sc.bind(rp.Variable, SymRel); err != nil {
				return err
			}
			for _, expr := range rp.Props {
				if err := checkExpr(expr, sc, false); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func analyzeUnwind(st *UnwindStatement, sc *scope) error {
	if err := checkExpr(st.Expr, sc, false); err != nil {
		return err
	}
	sc.shadow(st.As, SymScalar)
	return nil
}

// analyzeProjectionStmt implements the shared WITH/RETURN validation: each
// projection item is checked against the incoming scope (aggregates allowed
// at the top level only, never nested), aliases within one list must be
// unique, and the result is a brand-new scope containing exactly the
// projected names — spec §4.2's "prior symbols become invisible" rule.
func analyzeProjectionStmt(
	items []ProjectItem, distinct bool, where *Expression, orderBy []OrderItem,
	skip, limit *Expression, sc *scope, isReturn bool,
) (*scope, error) {
	seenAlias := make(map[string]bool)
	next := newScope()

	for _, item := range items {
		if item.Star {
			if isReturn && len(items) == 1 {
				for _, name := range sc.order {
					next.shadow(name, sc.kindOf(name))
				}
				continue
			}
			for _, name := range sc.order {
				next.shadow(name, sc.kindOf(name))
			}
			continue
		}
		if err := checkExpr(item.Expr, sc, true); err != nil {
			return nil, err
		}
		name := item.Alias
		if name == "" {
			name = exprText(item.Expr)
		}
		if seenAlias[name] {
			return nil, newSemanticError("duplicate projection alias %q", name)
		}
		seenAlias[name] = true

		kind := SymScalar
		if item.Expr.Kind == ExprVarRef && sc.has(item.Expr.Variable) {
			kind = sc.kindOf(item.Expr.Variable)
		}
		next.shadow(name, kind)
	}

	// WHERE/ORDER BY on a WITH clause evaluate against the *new* scope
	// (spec §4.2: "WHERE evaluates in the scope of its owning clause").
	if where != nil {
		if err := checkExpr(*where, next, false); err != nil {
			return nil, err
		}
	}
	for _, oi := range orderBy {
		if err := checkExpr(oi.Expr, next, false); err != nil {
			return nil, err
		}
	}
	if skip != nil {
		if err := checkExpr(*skip, next, false); err != nil {
			return nil, err
		}
	}
	if limit != nil {
		if err := checkExpr(*limit, next, false); err != nil {
			return nil, err
		}
	}
	return next, nil
}

// checkExpr validates variable references, function names, and aggregate
// placement throughout an expression tree. allowAggregate is true only at
// the top of a WITH/RETURN projection item; it is forced false while
// descending into any aggregate call's own arguments (rejecting aggregates
// nested in aggregates) and throughout WHERE/ORDER BY/SKIP/LIMIT.
func checkExpr(e Expression, sc *scope, allowAggregate bool) error {
	switch e.Kind {
	case ExprLiteral, ExprParam:
		return nil

	case ExprVarRef:
		if !sc.has(e.Variable) {
			return newSemanticError("undefined variable %q", e.Variable)
		}
		return nil

	case ExprPropAccess:
		if !sc.has(e.Object) {
			return newSemanticError("undefined variable %q", e.Object)
		}
		return nil

	case ExprFuncCall:
		isAgg := isAggregateFuncName(e.FuncName)
		if !isAgg && !isKnownScalarFuncName(e.FuncName) {
			return newSemanticError("unknown function %q", e.FuncName)
		}
		if isAgg && !allowAggregate {
			return newSemanticError("aggregate function %q is not allowed here", e.FuncName)
		}
		innerAllow := false
		if isAgg {
			innerAllow = false
		} else {
			innerAllow = allowAggregate
		}
		for _, arg := range e.Args {
			if err := checkExpr(arg, sc, innerAllow); err != nil {
				return err
			}
		}
		return nil

	case ExprCountStar:
		if !allowAggregate {
			return newSemanticError("aggregate function %q is not allowed here", "count")
		}
		return nil

	case ExprList:
		for _, el := range e.List {
			if err := checkExpr(el, sc, allowAggregate); err != nil {
				return err
			}
		}
		return nil

	case ExprMap:
		for _, v := range e.MapVals {
			if err := checkExpr(v, sc, allowAggregate); err != nil {
				return err
			}
		}
		return nil

	case ExprAnd, ExprOr:
		for _, op := range e.Operands {
			if err := checkExpr(op, sc, allowAggregate); err != nil {
				return err
			}
		}
		return nil

	case ExprNot:
		return checkExpr(*e.Inner, sc, allowAggregate)

	case ExprComparison:
		if err := checkExpr(*e.Left, sc, allowAggregate); err != nil {
			return err
		}
		return checkExpr(*e.Right, sc, allowAggregate)

	case ExprArith:
		if isStaticNonNumericLiteral(*e.ArithLeft) || isStaticNonNumericLiteral(*e.ArithRight) {
			return newSemanticError("arithmetic operator %v cannot be applied to a non-numeric literal", e.ArithOp)
		}
		if err := checkExpr(*e.ArithLeft, sc, allowAggregate); err != nil {
			return err
		}
		return checkExpr(*e.ArithRight, sc, allowAggregate)

	case ExprLabelCheck:
		if !sc.has(e.LabelVar) {
			return newSemanticError("undefined variable %q", e.LabelVar)
		}
		return nil

	default:
		return newSemanticError("unrecognised expression kind %v", e.Kind)
	}
}

// isStaticNonNumericLiteral detects the subset of type mismatches spec §4.2
// requires catching "without data": a non-null literal operand to +,-,*,/
// that is neither a number nor a string (e.g. `true + 1`). String literals
// are not flagged here; evaluation rejects them.
func isStaticNonNumericLiteral(e Expression) bool {
	return e.Kind == ExprLiteral && !e.Literal.IsNull() && !e.Literal.isNumeric() && e.Literal.Kind() != KindString
}

// exprIsAggregate reports whether an expression tree contains an aggregate
// call anywhere (used by the planner to decide Aggregate vs. Project).
func exprIsAggregate(e Expression) bool {
	switch e.Kind {
	case ExprCountStar:
		return true
	case ExprFuncCall:
		if isAggregateFuncName(e.FuncName) {
			return true
		}
		for _, a := range e.Args {
			if exprIsAggregate(a) {
				return true
			}
		}
		return false
	case ExprList:
		for _, el := range e.List {
			if exprIsAggregate(el) {
				return true
			}
		}
		return false
	case ExprMap:
		for _, v := range e.MapVals {
			if exprIsAggregate(v) {
				return true
			}
		}
		return false
	case ExprAnd, ExprOr:
		for _, op := range e.Operands {
			if exprIsAggregate(op) {
				return true
			}
		}
		return false
	case ExprNot:
		return exprIsAggregate(*e.Inner)
	case ExprComparison:
		return exprIsAggregate(*e.Left) || exprIsAggregate(*e.Right)
	case ExprArith:
		return exprIsAggregate(*e.ArithLeft) || exprIsAggregate(*e.ArithRight)
	default:
		return false
	}
}

// exprText renders an expression as Cypher-like source text, used for
// auto-naming unaliased projections per spec §6.2 (`m.num` -> "m.num",
// `count(*)` -> "count(*)") and for duplicate-alias diagnostics.
func exprText(e Expression) string {
	switch e.Kind {
	case ExprLiteral:
		switch e.Literal.Kind() {
		case KindString:
			return strconv.Quote(e.Literal.AsString())
		case KindFloat:
			s := strconv.FormatFloat(e.Literal.AsFloat(), 'g', -1, 64)
			for _, c := range s {
				if c == '.' || c == 'e' || c == 'n' || c == 'N' {
					return s
				}
			}
			return s + ".0"
		}
		return e.Literal.String()
	case ExprParam:
		return "$" + e.ParamName
	case ExprVarRef:
		return e.Variable
	case ExprPropAccess:
		s := e.Object
		for _, k := range e.Keys {
			s += "." + k
		}
		return s
	case ExprCountStar:
		return "count(*)"
	case ExprFuncCall:
		s := e.FuncName + "("
		if e.Distinct {
			s += "DISTINCT "
		}
		for i, a := range e.Args {
			if i > 0 {
				s += ", "
			}
			s += exprText(a)
		}
		return s + ")"
	case ExprList:
		s := "["
		for i, el := range e.List {
			if i > 0 {
				s += ", "
			}
			s += exprText(el)
		}
		return s + "]"
	case ExprMap:
		s := "{"
		for i, k := range e.MapKeys {
			if i > 0 {
				s += ", "
			}
			s += k + ": " + exprText(e.MapVals[i])
		}
		return s + "}"
	case ExprAnd:
		return joinExprText(e.Operands, " AND ")
	case ExprOr:
		return joinExprText(e.Operands, " OR ")
	case ExprNot:
		return "NOT " + exprText(*e.Inner)
	case ExprComparison:
		return exprText(*e.Left) + " " + compOpText(e.Op) + " " + exprText(*e.Right)
	case ExprArith:
		return exprText(*e.ArithLeft) + " " + arithOpText(e.ArithOp) + " " + exprText(*e.ArithRight)
	case ExprLabelCheck:
		return fmt.Sprintf("%s:%s", e.LabelVar, e.LabelName)
	default:
		return "?"
	}
}

func joinExprText(exprs []Expression, sep string) string {
	s := ""
	for i, e := range exprs {
		if i > 0 {
			s += sep
		}
		s += exprText(e)
	}
	return s
}

func compOpText(op CompOp) string {
	switch op {
	case OpEq:
		return "="
	case OpNeq:
		return "<>"
	case OpLt:
		return "<"
	case OpGt:
		return ">"
	case OpLte:
		return "<="
	case OpGte:
		return ">="
	default:
		return "?"
	}
}

func arithOpText(op ArithOp) string {
	switch op {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	default:
		return "?"
	}
}
