package cypher

import "strconv"

// ---------------------------------------------------------------------------
// AST pretty-printer, the counterpart to the parser needed for the
// parser-round-trip property (spec §8): render a Query back to Cypher-like
// source text using exprText (analyzer.go) for expressions, and reparsing
// the result must yield a structurally equal AST.
// ---------------------------------------------------------------------------

// QueryText renders q as Cypher source text.
func QueryText(q *Query) string {
	s := ""
	for i, stmt := range q.Statements {
		if i > 0 {
			s += " "
		}
		s += statementText(stmt)
	}
	return s
}

func statementText(stmt Statement) string {
	switch st := stmt.(type) {
	case *MatchStatement:
		s := ""
		if st.Optional {
			s += "OPTIONAL "
		}
		s += "MATCH " + patternText(st.Pattern)
		if st.Where != nil {
			s += " WHERE " + exprText(*st.Where)
		}
		return s
	case *CreateStatement:
		s := "CREATE "
		for i, pat := range st.Patterns {
			if i > 0 {
				s += ", "
			}
			s += patternText(pat)
		}
		return s
	case *UnwindStatement:
		return "UNWIND " + exprText(st.Expr) + " AS " + st.As
	case *WithStatement:
		s := "WITH " + projectItemsText(st.Items, st.Distinct)
		if st.Where != nil {
			s += " WHERE " + exprText(*st.Where)
		}
		return s + orderSkipLimitText(st.OrderBy, st.Skip, st.Limit)
	case *ReturnStatement:
		return "RETURN " + projectItemsText(st.Items, st.Distinct) + orderSkipLimitText(st.OrderBy, st.Skip, st.Limit)
	default:
		return ""
	}
}

func projectItemsText(items []ProjectItem, distinct bool) string {
	s := ""
	if distinct {
		s += "DISTINCT "
	}
	for i, item := range items {
		if i > 0 {
			s += ", "
		}
		if item.Star {
			s += "*"
			continue
		}
		s += exprText(item.Expr)
		if item.Alias != "" {
			s += " AS " + item.Alias
		}
	}
	return s
}

func orderSkipLimitText(orderBy []OrderItem, skip, limit *Expression) string {
	s := ""
	if len(orderBy) > 0 {
		s += " ORDER BY "
		for i, item := range orderBy {
			if i > 0 {
				s += ", "
			}
			s += exprText(item.Expr)
			if item.Desc {
				s += " DESC"
			}
		}
	}
	if skip != nil {
		s += " SKIP " + exprText(*skip)
	}
	if limit != nil {
		s += " LIMIT " + exprText(*limit)
	}
	return s
}

func patternText(pat Pattern) string {
	s := ""
	for i, np := range pat.Nodes {
		s += nodePatternText(np)
		if i < len(pat.Rels) {
			s += relPatternText(pat.Rels[i])
		}
	}
	return s
}

func nodePatternText(np NodePattern) string {
	s := "(" + np.Variable
	for _, l := range np.Labels {
		s += ":" + l
	}
	if len(np.Props) > 0 {
		s += " " + propMapText(np.Props)
	}
	return s + ")"
}

func relPatternText(rp RelPattern) string {
	body := rp.Variable
	if rp.Type != "" {
		body += ":" + rp.Type
	}
	if rp.VarLength {
		switch {
		case rp.MaxHops == rp.MinHops:
			body += "*" + strconv.Itoa(rp.MinHops)
		case rp.MaxHops < 0:
			body += "*" + strconv.Itoa(rp.MinHops) + ".."
		default:
			body += "*" + strconv.Itoa(rp.MinHops) + ".." + strconv.Itoa(rp.MaxHops)
		}
	}
	if len(rp.Props) > 0 {
		body += " " + propMapText(rp.Props)
	}

	switch rp.Dir {
	case DirOut:
		return "-[" + body + "]->"
	case DirIn:
		return "<-[" + body + "]-"
	default:
		return "-[" + body + "]-"
	}
}

func propMapText(props map[string]Expression) string {
	s := "{"
	for i, k := range sortedKeys(props) {
		if i > 0 {
			s += ", "
		}
		s += k + ": " + exprText(props[k])
	}
	return s + "}"
}
