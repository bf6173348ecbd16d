package cypher

// Row is a fixed-width tuple of Values, indexed by RowSchema slot. Rows are
// the unit the execution engine pulls one at a time through the operator
// tree (spec §4.4), analogous to the teacher's map[string]any binding sets
// in cypher_exec.go but flat-indexed rather than name-keyed.
type Row []Value

// NewRow allocates a Row of the given width, all slots Null.
func NewRow(width int) Row {
	r := make(Row, width)
	for i := range r {
		r[i] = Null()
	}
	return r
}

// Clone returns an independent copy of the row.
func (r Row) Clone() Row {
	c := make(Row, len(r))
	copy(c, r)
	return c
}

// Extend returns a new Row with n additional Null slots appended, used when
// an operator's output schema is wider than its input's.
func (r Row) Extend(n int) Row {
	out := make(Row, len(r)+n)
	copy(out, r)
	for i := len(r); i < len(out); i++ {
		out[i] = Null()
	}
	return out
}
