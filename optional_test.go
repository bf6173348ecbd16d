package cypher

import (
	"context"
	"testing"

	"github.com/arborgraph/cyphercore/backend/memory"
)

// setupAuthorGraph mirrors the teacher's OPTIONAL MATCH example fixture:
// Alice and Bob wrote articles, Charlie and Diana wrote none.
func setupAuthorGraph(t *testing.T) *Engine {
	t.Helper()
	backend := memory.New()
	ctx := context.Background()

	alice := mustNodeT(t, backend.CreateNode(ctx, []string{"Person"}, propsT("name", "Alice")))
	bob := mustNodeT(t, backend.CreateNode(ctx, []string{"Person"}, propsT("name", "Bob")))
	mustNodeT(t, backend.CreateNode(ctx, []string{"Person"}, propsT("name", "Charlie")))
	mustNodeT(t, backend.CreateNode(ctx, []string{"Person"}, propsT("name", "Diana")))

	art1 := mustNodeT(t, backend.CreateNode(ctx, []string{"Article"}, propsT("title", "Graph Databases 101")))
	art2 := mustNodeT(t, backend.CreateNode(ctx, []string{"Article"}, propsT("title", "Go Concurrency Patterns")))
	art3 := mustNodeT(t, backend.CreateNode(ctx, []string{"Article"}, propsT("title", "BFS vs DFS")))

	mustRelT(t, backend.CreateRel(ctx, alice, art1, "WROTE", propsT("year", int64(2024))))
	mustRelT(t, backend.CreateRel(ctx, alice, art2, "WROTE", propsT("year", int64(2023))))
	mustRelT(t, backend.CreateRel(ctx, bob, art3, "WROTE", propsT("year", int64(2024))))

	mustRelT(t, backend.CreateRel(ctx, alice, bob, "KNOWS", nil))
	mustRelT(t, backend.CreateRel(ctx, bob, alice, "KNOWS", nil))

	return NewEngine(backend, EngineOptions{})
}

func TestOptional_LeftOuterJoinIncludesUnmatchedPeople(t *testing.T) {
	e := setupAuthorGraph(t)
	result := runQuery(t, e, `MATCH (p:Person) OPTIONAL MATCH (p)-[:WROTE]->(a) RETURN p.name AS person, a.title AS article`)

	// 4 people, 2 articles each for Alice, 1 for Bob, none for Charlie/Diana:
	// 2 + 1 + 1 + 1 = 5 rows.
	if len(result.Rows) != 5 {
		t.Fatalf("expected 5 rows, got %d", len(result.Rows))
	}

	nullArticlesFor := map[string]bool{}
	for _, row := range result.Rows {
		if row[1].IsNull() {
			nullArticlesFor[row[0].AsString()] = true
		}
	}
	if !nullArticlesFor["Charlie"] || !nullArticlesFor["Diana"] {
		t.Fatalf("expected Charlie and Diana to have a null article row, got %v", nullArticlesFor)
	}
	if nullArticlesFor["Alice"] || nullArticlesFor["Bob"] {
		t.Fatalf("expected Alice and Bob to have only matched rows")
	}
}

func TestOptional_WithoutOptionalOnlyAuthorsAppear(t *testing.T) {
	e := setupAuthorGraph(t)
	result := runQuery(t, e, `MATCH (p:Person)-[:WROTE]->(a) RETURN p.name AS person, a.title AS article`)

	if len(result.Rows) != 3 {
		t.Fatalf("expected 3 rows (Alice x2, Bob x1), got %d", len(result.Rows))
	}
	for _, row := range result.Rows {
		name := row[0].AsString()
		if name == "Charlie" || name == "Diana" {
			t.Fatalf("expected only authors, got %s", name)
		}
	}
}

func TestOptional_RelationshipVariableNullWhenUnmatched(t *testing.T) {
	e := setupAuthorGraph(t)
	result := runQuery(t, e, `MATCH (p:Person) OPTIONAL MATCH (p)-[r:WROTE]->(a) RETURN p.name AS person, r.year AS year`)

	for _, row := range result.Rows {
		name := row[0].AsString()
		if (name == "Charlie" || name == "Diana") && !row[1].IsNull() {
			t.Fatalf("expected null year for %s, got %v", name, row[1])
		}
	}
}

func TestOptional_OverDifferentRelationshipType(t *testing.T) {
	e := setupAuthorGraph(t)
	result := runQuery(t, e, `MATCH (p:Person) OPTIONAL MATCH (p)-[:KNOWS]->(f) RETURN p.name AS person, f.name AS friend`)

	friendsOf := map[string][]string{}
	for _, row := range result.Rows {
		name := row[0].AsString()
		if row[1].IsNull() {
			friendsOf[name] = append(friendsOf[name], "")
			continue
		}
		friendsOf[name] = append(friendsOf[name], row[1].AsString())
	}
	if len(friendsOf["Alice"]) != 1 || friendsOf["Alice"][0] != "Bob" {
		t.Fatalf("expected Alice to know only Bob, got %v", friendsOf["Alice"])
	}
	if len(friendsOf["Charlie"]) != 1 || friendsOf["Charlie"][0] != "" {
		t.Fatalf("expected Charlie to know nobody, got %v", friendsOf["Charlie"])
	}
}
