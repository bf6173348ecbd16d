package cypher

import (
	"context"
	"testing"

	"github.com/arborgraph/cyphercore/backend/memory"
)

// setupSocialGraph builds:
//
//	Alice --FOLLOWS--> Bob --FOLLOWS--> Charlie --FOLLOWS--> Diana
//	Alice --LIKES----> Charlie
//
// mirroring the teacher's setupCypherTestDB fixture (cypher_test.go).
func setupSocialGraph(t *testing.T) *Engine {
	t.Helper()
	backend := memory.New()
	ctx := context.Background()

	alice := mustNodeT(t, backend.CreateNode(ctx, nil, propsT("name", "Alice", "age", int64(30))))
	bob := mustNodeT(t, backend.CreateNode(ctx, nil, propsT("name", "Bob", "age", int64(25))))
	charlie := mustNodeT(t, backend.CreateNode(ctx, nil, propsT("name", "Charlie", "age", int64(35))))
	diana := mustNodeT(t, backend.CreateNode(ctx, nil, propsT("name", "Diana", "age", int64(28))))

	mustRelT(t, backend.CreateRel(ctx, alice, bob, "FOLLOWS", nil))
	mustRelT(t, backend.CreateRel(ctx, bob, charlie, "FOLLOWS", nil))
	mustRelT(t, backend.CreateRel(ctx, charlie, diana, "FOLLOWS", nil))
	mustRelT(t, backend.CreateRel(ctx, alice, charlie, "LIKES", nil))

	return NewEngine(backend, EngineOptions{})
}

func propsT(pairs ...any) *OrderedMap {
	m := NewOrderedMap()
	for i := 0; i < len(pairs); i += 2 {
		k := pairs[i].(string)
		switch v := pairs[i+1].(type) {
		case string:
			m.Set(k, Str(v))
		case int64:
			m.Set(k, Int(v))
		case int:
			m.Set(k, Int(int64(v)))
		}
	}
	return m
}

func mustNodeT(t *testing.T, id NodeID, err error) NodeID {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func mustRelT(t *testing.T, id RelID, err error) RelID {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func runQuery(t *testing.T, e *Engine, query string) *CypherResult {
	t.Helper()
	res, err := e.Run(context.Background(), query, nil)
	if err != nil {
		t.Fatalf("query %q: %v", query, err)
	}
	return res
}

func TestEngine_MatchAllNodes(t *testing.T) {
	e := setupSocialGraph(t)
	result := runQuery(t, e, `MATCH (n) RETURN n`)

	if len(result.Columns) != 1 || result.Columns[0] != "n" {
		t.Fatalf("expected columns [n], got %v", result.Columns)
	}
	if len(result.Rows) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(result.Rows))
	}
	for _, row := range result.Rows {
		n := row[0].AsNode()
		if n == nil {
			t.Fatalf("expected node value, got %v", row[0])
		}
		if _, ok := n.Props.Get("name"); !ok {
			t.Fatal("node missing 'name' property")
		}
	}
}

func TestEngine_MatchByProperty(t *testing.T) {
	e := setupSocialGraph(t)
	result := runQuery(t, e, `MATCH (n {name: "Alice"}) RETURN n`)

	if len(result.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(result.Rows))
	}
	name, _ := result.Rows[0][0].AsNode().Props.Get("name")
	if name.AsString() != "Alice" {
		t.Fatalf("expected Alice, got %v", name)
	}
}

func TestEngine_WhereClause(t *testing.T) {
	e := setupSocialGraph(t)
	result := runQuery(t, e, `MATCH (n) WHERE n.age > 25 RETURN n`)

	// Alice (30), Charlie (35), Diana (28) have age > 25. Bob (25) does not.
	if len(result.Rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(result.Rows))
	}
}

func TestEngine_WhereClauseAnd(t *testing.T) {
	e := setupSocialGraph(t)
	result := runQuery(t, e, `MATCH (n) WHERE n.age > 25 AND n.age < 32 RETURN n`)

	// Alice (30), Diana (28).
	if len(result.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(result.Rows))
	}
}

func TestEngine_SingleHopPattern(t *testing.T) {
	e := setupSocialGraph(t)
	result := runQuery(t, e, `MATCH (a)-[:FOLLOWS]->(b) RETURN a, b`)

	if len(result.Rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(result.Rows))
	}
	if len(result.Columns) != 2 {
		t.Fatalf("expected 2 columns, got %v", result.Columns)
	}
	for _, row := range result.Rows {
		if row[0].AsNode() == nil || row[1].AsNode() == nil {
			t.Fatalf("expected node values in both slots, got %v", row)
		}
	}
}

func TestEngine_FilteredTraversal(t *testing.T) {
	e := setupSocialGraph(t)
	result := runQuery(t, e, `MATCH (a {name: "Alice"})-[:FOLLOWS]->(b) RETURN b.name AS name`)

	if len(result.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(result.Rows))
	}
	if result.Rows[0][0].AsString() != "Bob" {
		t.Fatalf("expected Bob, got %v", result.Rows[0][0])
	}
}

func TestEngine_VariableLengthPath(t *testing.T) {
	e := setupSocialGraph(t)
	result := runQuery(t, e, `MATCH (a {name: "Alice"})-[:FOLLOWS*1..3]->(b) RETURN b`)

	// Alice -> Bob (1), Charlie (2), Diana (3).
	if len(result.Rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(result.Rows))
	}
}

func TestEngine_VariableLengthPathMinMax(t *testing.T) {
	e := setupSocialGraph(t)
	result := runQuery(t, e, `MATCH (a {name: "Alice"})-[:FOLLOWS*2..3]->(b) RETURN b`)

	if len(result.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(result.Rows))
	}
}

func TestEngine_AnyEdgeType(t *testing.T) {
	e := setupSocialGraph(t)
	result := runQuery(t, e, `MATCH (a {name: "Alice"})-[r]->(b) RETURN type(r) AS t`)

	if len(result.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(result.Rows))
	}
	seen := map[string]bool{}
	for _, row := range result.Rows {
		seen[row[0].AsString()] = true
	}
	if !seen["FOLLOWS"] || !seen["LIKES"] {
		t.Fatalf("expected FOLLOWS and LIKES, got %v", seen)
	}
}

func TestEngine_OrderByLimit(t *testing.T) {
	e := setupSocialGraph(t)
	result := runQuery(t, e, `MATCH (n) RETURN n.name AS name ORDER BY n.age DESC LIMIT 2`)

	if len(result.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(result.Rows))
	}
	if result.Rows[0][0].AsString() != "Charlie" || result.Rows[1][0].AsString() != "Alice" {
		t.Fatalf("expected [Charlie, Alice] by descending age, got %v, %v", result.Rows[0][0], result.Rows[1][0])
	}
}

func TestEngine_Aggregation(t *testing.T) {
	e := setupSocialGraph(t)
	result := runQuery(t, e, `MATCH (n) RETURN count(n) AS total`)

	if len(result.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(result.Rows))
	}
	if result.Rows[0][0].AsInt() != 4 {
		t.Fatalf("expected count 4, got %v", result.Rows[0][0])
	}
}

func TestEngine_Create(t *testing.T) {
	e := setupSocialGraph(t)
	runQuery(t, e, `CREATE (:Person {name: "Eve"})-[:FOLLOWS]->(:Person {name: "Alice"})`)

	verify := runQuery(t, e, `MATCH (n:Person {name: "Eve"}) RETURN n`)
	if len(verify.Rows) != 1 {
		t.Fatalf("expected the created node to be visible, got %d rows", len(verify.Rows))
	}
}

func TestEngine_Explain(t *testing.T) {
	e := setupSocialGraph(t)
	plan, err := e.Explain(`MATCH (n) WHERE n.age > 25 RETURN n.name AS name`)
	if err != nil {
		t.Fatal(err)
	}
	if plan == "" {
		t.Fatal("expected non-empty plan text")
	}
}

func TestEngine_Profile(t *testing.T) {
	e := setupSocialGraph(t)
	result, plan, err := e.Profile(context.Background(), `MATCH (n) RETURN n`, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Rows) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(result.Rows))
	}
	if plan == "" {
		t.Fatal("expected non-empty profile text")
	}
}

func TestEngine_PlanCacheHit(t *testing.T) {
	e := setupSocialGraph(t)
	text := `MATCH (n) RETURN n`
	if _, err := e.Run(context.Background(), text, nil); err != nil {
		t.Fatal(err)
	}
	stats := e.cache.stats()
	if stats.Misses != 1 {
		t.Fatalf("expected 1 miss on first run, got %d", stats.Misses)
	}
	if _, err := e.Run(context.Background(), text, nil); err != nil {
		t.Fatal(err)
	}
	stats = e.cache.stats()
	if stats.Hits != 1 {
		t.Fatalf("expected 1 hit on second run, got %d", stats.Hits)
	}
}

func TestEngine_Params(t *testing.T) {
	e := setupSocialGraph(t)
	res, err := e.Run(context.Background(), `MATCH (n {name: $name}) RETURN n.age AS age`, map[string]any{"name": "Bob"})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Rows) != 1 || res.Rows[0][0].AsInt() != 25 {
		t.Fatalf("expected Bob's age 25, got %v", res.Rows)
	}
}
