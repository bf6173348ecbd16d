package cypher

import (
	"fmt"
	"strings"
	"time"
)

// ---------------------------------------------------------------------------
// EXPLAIN/PROFILE plan introspection. Grounded on the teacher's
// query_plan.go tree printer (box-drawing connectors, "[est. rows=N]" /
// "[rows=N, time=T]" annotations), adapted to render this engine's logical
// operator DAG (plan.go's PlanNode) instead of the teacher's fixed strategy
// names.
// ---------------------------------------------------------------------------

// PlanStats holds PROFILE-only per-operator counters, keyed by the same
// *PlanNode pointer the plan tree is built from.
type PlanStats struct {
	ActualRows map[*PlanNode]int
	Elapsed    map[*PlanNode]time.Duration
}

// ExplainPlan renders plan as a human-readable tree, without execution
// statistics.
func ExplainPlan(plan *PlanNode) string {
	var sb strings.Builder
	sb.WriteString("EXPLAIN:\n")
	formatPlanNode(&sb, plan, nil, "", true, true)
	return sb.String()
}

// ProfilePlan renders plan annotated with the row counts and elapsed time
// recorded in stats (Engine.Profile fills them in).
func ProfilePlan(plan *PlanNode, stats *PlanStats) string {
	var sb strings.Builder
	sb.WriteString("PROFILE:\n")
	formatPlanNode(&sb, plan, stats, "", true, true)
	return sb.String()
}

func formatPlanNode(sb *strings.Builder, n *PlanNode, stats *PlanStats, prefix string, isLast, isRoot bool) {
	connector := "├── "
	if isLast {
		connector = "└── "
	}
	if isRoot {
		connector = ""
	}

	sb.WriteString(prefix)
	sb.WriteString(connector)
	sb.WriteString(n.Op.String())

	if details := planNodeDetails(n); details != "" {
		sb.WriteString(" (")
		sb.WriteString(details)
		sb.WriteString(")")
	}

	if stats != nil {
		rows := stats.ActualRows[n]
		elapsed := stats.Elapsed[n]
		sb.WriteString(fmt.Sprintf(" [rows=%d, time=%s]", rows, elapsed.Round(time.Microsecond)))
	}
	sb.WriteString("\n")

	childPrefix := prefix
	if !isRoot {
		if isLast {
			childPrefix += "    "
		} else {
			childPrefix += "│   "
		}
	}
	for i, child := range n.Children {
		formatPlanNode(sb, child, stats, childPrefix, i == len(n.Children)-1, false)
	}
}

// planNodeDetails renders the operator-specific fields relevant to each
// PlanOp, in the same spirit as the teacher's per-strategy Details string.
func planNodeDetails(n *PlanNode) string {
	switch n.Op {
	case PlanScanLabel:
		return n.ScanLabel
	case PlanExpand, PlanExpandVarLen:
		detail := relDetail(n.RelType, n.Dir)
		if n.Op == PlanExpandVarLen {
			detail += fmt.Sprintf(" *%d..%s", n.MinHops, hopsText(n.MaxHops))
		}
		return detail
	case PlanFilter:
		return exprText(n.Pred)
	case PlanProject, PlanDistinct:
		return joinProjectCols(n.ProjectCols)
	case PlanAggregate:
		parts := joinProjectCols(n.GroupCols)
		for _, a := range n.AggCols {
			if parts != "" {
				parts += ", "
			}
			parts += a.FuncName + "(...) AS " + a.Name
		}
		return parts
	case PlanSort:
		parts := ""
		for i, k := range n.SortKeys {
			if i > 0 {
				parts += ", "
			}
			parts += exprText(k.Expr)
			if k.Desc {
				parts += " DESC"
			}
		}
		return parts
	case PlanSkip, PlanLimit:
		return exprText(n.CountExpr)
	case PlanUnwind:
		return exprText(n.UnwindExpr) + " AS " + symbolNameAt(n.Schema, n.UnwindSlot)
	default:
		return ""
	}
}

func relDetail(relType string, dir Direction) string {
	s := ":" + relType
	if relType == "" {
		s = ""
	}
	switch dir {
	case DirOut:
		return "-[" + s + "]->"
	case DirIn:
		return "<-[" + s + "]-"
	default:
		return "-[" + s + "]-"
	}
}

func hopsText(maxHops int) string {
	if maxHops < 0 {
		return ""
	}
	return fmt.Sprintf("%d", maxHops)
}

func joinProjectCols(cols []ProjectCol) string {
	parts := ""
	for i, c := range cols {
		if i > 0 {
			parts += ", "
		}
		parts += exprText(c.Expr) + " AS " + c.Name
	}
	return parts
}

func symbolNameAt(schema *RowSchema, slot int) string {
	for _, sym := range schema.Symbols {
		if sym.Slot == slot {
			return sym.Name
		}
	}
	return "?"
}
