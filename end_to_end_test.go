package cypher

import (
	"context"
	"testing"

	"github.com/arborgraph/cyphercore/backend/memory"
)

// setupScenarioGraph builds the graph G shared by the end-to-end scenarios:
//
//	CREATE (s:Single), (a:A {num:42}), (b:B {num:46}), (c:C),
//	       (s)-[:REL]->(a), (s)-[:REL]->(b), (a)-[:REL]->(c), (b)-[:LOOP]->(b)
func setupScenarioGraph(t *testing.T) *Engine {
	t.Helper()
	backend := memory.New()
	e := NewEngine(backend, EngineOptions{})
	runQuery(t, e, `CREATE (s:Single), (a:A {num: 42}), (b:B {num: 46}), (c:C), `+
		`(s)-[:REL]->(a), (s)-[:REL]->(b), (a)-[:REL]->(c), (b)-[:LOOP]->(b)`)
	return e
}

func TestEndToEnd_OptionalMatchNoMatch(t *testing.T) {
	e := setupScenarioGraph(t)
	result := runQuery(t, e, `MATCH (n:Single) OPTIONAL MATCH (n)-[r]-(m:NonExistent) RETURN r`)

	if len(result.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(result.Rows))
	}
	if !result.Rows[0][0].IsNull() {
		t.Fatalf("expected r = null, got %v", result.Rows[0][0])
	}
}

func TestEndToEnd_OptionalMatchWithWhere(t *testing.T) {
	e := setupScenarioGraph(t)
	result := runQuery(t, e, `MATCH (n:Single) OPTIONAL MATCH (n)-[r]-(m) WHERE m.num = 42 RETURN m`)

	if len(result.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(result.Rows))
	}
	m := result.Rows[0][0].AsNode()
	if m == nil {
		t.Fatalf("expected a bound node, got %v", result.Rows[0][0])
	}
	num, _ := m.Props.Get("num")
	if num.AsInt() != 42 {
		t.Fatalf("expected m.num = 42, got %v", num)
	}
}

func TestEndToEnd_OptionalMatchSelfLoop(t *testing.T) {
	e := setupScenarioGraph(t)
	result := runQuery(t, e, `MATCH (a:B) OPTIONAL MATCH (a)-[r]-(a) RETURN r`)

	if len(result.Rows) != 1 {
		t.Fatalf("expected the self-loop matched exactly once, got %d rows", len(result.Rows))
	}
	r := result.Rows[0][0].AsRel()
	if r == nil || r.Type != "LOOP" {
		t.Fatalf("expected the LOOP relationship, got %v", result.Rows[0][0])
	}
}

func TestEndToEnd_OptionalMatchExcludingLabel(t *testing.T) {
	e := setupScenarioGraph(t)
	result := runQuery(t, e, `MATCH (a) WHERE NOT (a:B) OPTIONAL MATCH (a)-[r]->(a) RETURN r`)

	// s, a, c each yield one null row (none of them has a self-loop).
	if len(result.Rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(result.Rows))
	}
	for _, row := range result.Rows {
		if !row[0].IsNull() {
			t.Fatalf("expected every row's r to be null, got %v", row[0])
		}
	}
}

func TestEndToEnd_OptionalMatchCollectDistinct(t *testing.T) {
	backend := memory.New()
	ctx := context.Background()
	for _, num := range []int64{42, 43, 44} {
		mustNodeT(t, backend.CreateNode(ctx, []string{"DoesExist"}, propsT("num", num)))
	}
	e := NewEngine(backend, EngineOptions{})

	result := runQuery(t, e, `OPTIONAL MATCH (f:DoesExist) OPTIONAL MATCH (n:DoesNotExist) `+
		`RETURN collect(DISTINCT n.num) AS a, collect(DISTINCT f.num) AS b`)

	if len(result.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(result.Rows))
	}
	a := result.Rows[0][0].AsList()
	if len(a) != 0 {
		t.Fatalf("expected a = [], got %v", a)
	}
	b := result.Rows[0][1].AsList()
	if len(b) != 3 {
		t.Fatalf("expected b to have 3 elements, got %v", b)
	}
	seen := map[int64]bool{}
	for _, v := range b {
		seen[v.AsInt()] = true
	}
	for _, want := range []int64{42, 43, 44} {
		if !seen[want] {
			t.Fatalf("expected b to contain %d, got %v", want, b)
		}
	}
}

func TestEndToEnd_OptionalMatchCorrelatedWhere(t *testing.T) {
	backend := memory.New()
	ctx := context.Background()
	x1 := mustNodeT(t, backend.CreateNode(ctx, []string{"X"}, propsT("val", int64(1))))
	x2 := mustNodeT(t, backend.CreateNode(ctx, []string{"X"}, propsT("val", int64(4))))
	x3 := mustNodeT(t, backend.CreateNode(ctx, []string{"X"}, propsT("val", int64(6))))
	y2 := mustNodeT(t, backend.CreateNode(ctx, []string{"Y"}, propsT("val", int64(2))))
	y5 := mustNodeT(t, backend.CreateNode(ctx, []string{"Y"}, propsT("val", int64(5))))

	mustRelT(t, backend.CreateRel(ctx, x1, y2, "E1", nil))
	mustRelT(t, backend.CreateRel(ctx, x2, y5, "E1", nil))
	_ = x3

	e := NewEngine(backend, EngineOptions{})
	result := runQuery(t, e, `MATCH (x:X) OPTIONAL MATCH (x)-[:E1]->(y:Y) WHERE x.val < y.val RETURN x, y`)

	if len(result.Rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(result.Rows))
	}
	got := map[int64]*int64{}
	for _, row := range result.Rows {
		xv, _ := row[0].AsNode().Props.Get("val")
		if row[1].IsNull() {
			got[xv.AsInt()] = nil
		} else {
			yv, _ := row[1].AsNode().Props.Get("val")
			v := yv.AsInt()
			got[xv.AsInt()] = &v
		}
	}
	if got[1] == nil || *got[1] != 2 {
		t.Fatalf("expected x=1 paired with y=2, got %v", got[1])
	}
	if got[4] == nil || *got[4] != 5 {
		t.Fatalf("expected x=4 paired with y=5, got %v", got[4])
	}
	if got[6] != nil {
		t.Fatalf("expected x=6 paired with null, got %v", *got[6])
	}
}
