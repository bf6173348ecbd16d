package cypher

// ---------------------------------------------------------------------------
// Logical plan (spec §3.3, §4.3). A tagged-variant tree, grounded directly
// on the teacher's query_plan.go PlanNode (Operator tag + Children + a grab
// bag of operator-specific fields), but used here as the actual thing the
// executor runs rather than just an EXPLAIN/PROFILE display artifact — the
// teacher builds its PlanNode tree only after the fact, from the strategy it
// already chose; this one is what the planner produces and the executor
// consumes, with plan_print.go rendering it for EXPLAIN/PROFILE the same way
// query_plan.go's formatter renders the teacher's.
// ---------------------------------------------------------------------------

// PlanOp identifies the operator variant of a PlanNode.
type PlanOp int

const (
	PlanUnit         PlanOp = iota // yields exactly one empty row; the root of an empty plan
	PlanScanAll                    // AllNodes scan
	PlanScanLabel                  // NodeByLabel(L) scan
	PlanArgument                   // yields the captured outer row once
	PlanExpand                     // single-hop relationship expansion
	PlanExpandVarLen               // bounded BFS expansion
	PlanFilter
	PlanProject
	PlanAggregate
	PlanSort
	PlanSkip
	PlanLimit
	PlanUnwind
	PlanOptional
	PlanDistinct
	PlanCreateGraph
)

func (op PlanOp) String() string {
	switch op {
	case PlanUnit:
		return "Unit"
	case PlanScanAll:
		return "AllNodesScan"
	case PlanScanLabel:
		return "NodeByLabelScan"
	case PlanArgument:
		return "Argument"
	case PlanExpand:
		return "Expand"
	case PlanExpandVarLen:
		return "ExpandVarLen"
	case PlanFilter:
		return "Filter"
	case PlanProject:
		return "Project"
	case PlanAggregate:
		return "Aggregate"
	case PlanSort:
		return "Sort"
	case PlanSkip:
		return "Skip"
	case PlanLimit:
		return "Limit"
	case PlanUnwind:
		return "Unwind"
	case PlanOptional:
		return "Optional"
	case PlanDistinct:
		return "Distinct"
	case PlanCreateGraph:
		return "CreateGraph"
	default:
		return "Unknown"
	}
}

// ProjectCol is one output column of a Project, Aggregate group-by list, or
// Distinct operator.
type ProjectCol struct {
	Expr Expression
	Name string
}

// AggCol is one aggregate accumulator column of an Aggregate operator.
type AggCol struct {
	FuncName string
	Distinct bool
	Star     bool       // true for count(*)
	Arg      Expression // zero value when Star
	Name     string
}

// SortKey is one ORDER BY term.
type SortKey struct {
	Expr Expression
	Desc bool
}

// PlanNode is one operator in the logical plan tree. Only the fields
// relevant to Op are populated, mirroring Expression's discriminated shape.
type PlanNode struct {
	Op       PlanOp
	Schema   *RowSchema
	Children []*PlanNode

	// PlanScanAll / PlanScanLabel
	ScanLabel string
	ScanSlot  int

	// PlanArgument: the schema it captures is Schema itself; no extra fields.

	// PlanExpand / PlanExpandVarLen
	FromSlot int
	ToSlot   int
	RelSlot  int
	PathSlot int // -1 if the path is not materialised
	Dir      Direction
	RelType  string // "" = any type
	MinHops  int
	MaxHops  int // -1 = unbounded

	// PlanFilter
	Pred Expression

	// PlanProject / PlanDistinct
	ProjectCols []ProjectCol

	// PlanAggregate
	GroupCols []ProjectCol
	AggCols   []AggCol

	// PlanSort
	SortKeys []SortKey

	// PlanSkip / PlanLimit
	CountExpr Expression

	// PlanUnwind
	UnwindExpr Expression
	UnwindSlot int

	// PlanOptional: Children[0] is the outer input, Children[1] is the
	// inner subplan rooted at a PlanArgument.

	// PlanCreateGraph: resolved against Schema at execution time — a
	// pattern variable already present in Schema reuses that entity, any
	// other variable creates a new one.
	CreatePattern Pattern
}
