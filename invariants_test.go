package cypher

import (
	"context"
	"testing"

	"github.com/arborgraph/cyphercore/backend/memory"
)

// These tests exercise the testable properties: schema width, OPTIONAL
// fallback cardinality, relationship uniqueness, three-valued logic,
// DISTINCT idempotence, projection purity, and SKIP/LIMIT commutation.
// Parser round-trip is covered separately in parser_test.go.

func TestInvariant_SchemaWidth(t *testing.T) {
	e := setupSocialGraph(t)
	plan, err := planQueryFromText(t, `MATCH (a)-[r:FOLLOWS]->(b) RETURN a, r, b`)
	if err != nil {
		t.Fatal(err)
	}
	width := plan.Schema.Width()

	stream, err := e.Query(context.Background(), `MATCH (a)-[r:FOLLOWS]->(b) RETURN a, r, b`, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer stream.Close()

	n := 0
	for {
		row, ok, err := stream.Next()
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			break
		}
		if len(row) != width {
			t.Fatalf("row %d: expected width %d, got %d", n, width, len(row))
		}
		n++
	}
	if n == 0 {
		t.Fatal("expected at least one row")
	}
}

func planQueryFromText(t *testing.T, text string) (*PlanNode, error) {
	t.Helper()
	query, err := parseCypher(text)
	if err != nil {
		return nil, err
	}
	if err := analyzeQuery(query); err != nil {
		return nil, err
	}
	return planQuery(query)
}

func TestInvariant_OptionalFallback(t *testing.T) {
	backend := memory.New()
	ctx := context.Background()
	single := mustNodeT(t, backend.CreateNode(ctx, []string{"Single"}, nil))
	e := NewEngine(backend, EngineOptions{})

	result := runQuery(t, e, `MATCH (n:Single) OPTIONAL MATCH (n)-[r]-(m:NonExistent) RETURN r`)
	if len(result.Rows) != 1 {
		t.Fatalf("expected exactly one fallback row, got %d", len(result.Rows))
	}
	if !result.Rows[0][0].IsNull() {
		t.Fatalf("expected null r, got %v", result.Rows[0][0])
	}
	_ = single
}

func TestInvariant_RelationshipUniqueness(t *testing.T) {
	backend := memory.New()
	ctx := context.Background()
	a := mustNodeT(t, backend.CreateNode(ctx, nil, nil))
	b := mustNodeT(t, backend.CreateNode(ctx, nil, nil))
	mustRelT(t, backend.CreateRel(ctx, a, b, "EDGE", nil))
	e := NewEngine(backend, EngineOptions{})

	// The single undirected edge between a and b cannot satisfy r1 != r2.
	result := runQuery(t, e, `MATCH (x)-[r1]-(y)-[r2]-(x) RETURN r1, r2`)
	for _, row := range result.Rows {
		if row[0].AsRel() != nil && row[1].AsRel() != nil && row[0].AsRel().ID == row[1].AsRel().ID {
			t.Fatalf("relationship %d bound to two pattern-edge slots in one row", row[0].AsRel().ID)
		}
	}
}

func TestInvariant_ThreeValuedLogic(t *testing.T) {
	backend := memory.New()
	ctx := context.Background()
	mustNodeT(t, backend.CreateNode(ctx, nil, propsT("flag", "yes")))
	mustNodeT(t, backend.CreateNode(ctx, nil, nil)) // no "flag" property -> null
	e := NewEngine(backend, EngineOptions{})

	// p AND NOT p: false when p non-null, null when p is null.
	result := runQuery(t, e, `MATCH (n) RETURN (n.flag = "yes") AND NOT (n.flag = "yes") AS r`)
	if len(result.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(result.Rows))
	}
	sawFalse, sawNull := false, false
	for _, row := range result.Rows {
		v := row[0]
		switch {
		case v.IsNull():
			sawNull = true
		case v.Kind() == KindBool && v.AsBool() == false:
			sawFalse = true
		default:
			t.Fatalf("p AND NOT p produced %v, expected false or null", v)
		}
	}
	if !sawFalse || !sawNull {
		t.Fatalf("expected both a false and a null outcome, got false=%v null=%v", sawFalse, sawNull)
	}
}

func TestInvariant_DistinctIdempotence(t *testing.T) {
	backend := memory.New()
	ctx := context.Background()
	mustNodeT(t, backend.CreateNode(ctx, nil, propsT("city", "Ankara")))
	mustNodeT(t, backend.CreateNode(ctx, nil, propsT("city", "Ankara")))
	mustNodeT(t, backend.CreateNode(ctx, nil, propsT("city", "Izmir")))
	e := NewEngine(backend, EngineOptions{})

	once := runQuery(t, e, `MATCH (n) RETURN DISTINCT n.city AS city`)
	if len(once.Rows) != 2 {
		t.Fatalf("expected 2 distinct cities, got %d", len(once.Rows))
	}

	twice := runQuery(t, e, `MATCH (n) WITH DISTINCT n.city AS city RETURN DISTINCT city`)
	if len(twice.Rows) != len(once.Rows) {
		t.Fatalf("expected DISTINCT of DISTINCT to keep %d rows, got %d", len(once.Rows), len(twice.Rows))
	}
	for i := range once.Rows {
		if twice.Rows[i][0].AsString() != once.Rows[i][0].AsString() {
			t.Fatalf("row %d: DISTINCT of DISTINCT gave %v, DISTINCT gave %v", i, twice.Rows[i][0], once.Rows[i][0])
		}
	}
}

func TestInvariant_ProjectionPurity(t *testing.T) {
	e := setupSocialGraph(t)
	composed := runQuery(t, e, `MATCH (n) RETURN n.name AS name`)
	if len(composed.Rows) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(composed.Rows))
	}
	for _, row := range composed.Rows {
		if row[0].Kind() != KindString {
			t.Fatalf("expected scalar projection to remain scalar, got %v", row[0])
		}
	}

	stepwise := runQuery(t, e, `MATCH (n) WITH n AS m RETURN m.name AS name`)
	if len(stepwise.Rows) != len(composed.Rows) {
		t.Fatalf("expected %d rows from the two-step projection, got %d", len(composed.Rows), len(stepwise.Rows))
	}
	for i := range composed.Rows {
		if stepwise.Rows[i][0].AsString() != composed.Rows[i][0].AsString() {
			t.Fatalf("row %d: two-step projection gave %v, composed gave %v", i, stepwise.Rows[i][0], composed.Rows[i][0])
		}
	}
}

func TestInvariant_SkipLimitCommutation(t *testing.T) {
	e := setupSocialGraph(t)
	all := runQuery(t, e, `MATCH (n) RETURN n.name AS name ORDER BY n.name`)
	if len(all.Rows) != 4 {
		t.Fatalf("expected 4 rows in the baseline, got %d", len(all.Rows))
	}

	windowed := runQuery(t, e, `MATCH (n) RETURN n.name AS name ORDER BY n.name SKIP 1 LIMIT 2`)
	if len(windowed.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(windowed.Rows))
	}
	if windowed.Rows[0][0].AsString() != all.Rows[1][0].AsString() ||
		windowed.Rows[1][0].AsString() != all.Rows[2][0].AsString() {
		t.Fatalf("expected rows [1,3), got %v", windowed.Rows)
	}

	zero := runQuery(t, e, `MATCH (n) RETURN n.name AS name LIMIT 0`)
	if len(zero.Rows) != 0 {
		t.Fatalf("expected zero rows for LIMIT 0, got %d", len(zero.Rows))
	}
}
