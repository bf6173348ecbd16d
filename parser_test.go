package cypher

import (
	"reflect"
	"testing"
)

// TestInvariant_ParserRoundTrip exercises spec §8's round-trip property:
// pretty-printing the AST and re-parsing it yields a structurally equal AST.
func TestInvariant_ParserRoundTrip(t *testing.T) {
	queries := []string{
		`MATCH (n) RETURN n`,
		`MATCH (n:Person {name: "Alice"}) RETURN n.name AS name`,
		`MATCH (a)-[r:FOLLOWS]->(b) WHERE a.age > 25 AND NOT b.age < 10 RETURN a, r, b`,
		`MATCH (a)-[:FOLLOWS*1..3]->(b) RETURN b`,
		`MATCH (a)-[:FOLLOWS*2]->(b) RETURN b`,
		`MATCH (n:Single) OPTIONAL MATCH (n)-[r]-(m) WHERE m.num = 42 RETURN m`,
		`MATCH (n) RETURN DISTINCT n.city AS city ORDER BY n.city SKIP 1 LIMIT 2`,
		`MATCH (n) RETURN count(n) AS total, avg(n.age) AS avgAge`,
		`UNWIND [1, 2, 3] AS x RETURN x`,
		`CREATE (s:Single), (a:A {num: 42}), (s)-[:REL]->(a)`,
		`MATCH (a) WHERE NOT (a:B) RETURN a`,
	}

	for _, text := range queries {
		t.Run(text, func(t *testing.T) {
			q1, err := parseCypher(text)
			if err != nil {
				t.Fatalf("initial parse: %v", err)
			}

			printed := QueryText(q1)
			q2, err := parseCypher(printed)
			if err != nil {
				t.Fatalf("re-parse of %q: %v", printed, err)
			}

			if !reflect.DeepEqual(q1, q2) {
				t.Fatalf("round trip mismatch:\n  original: %s\n  printed:  %s\n  q1: %#v\n  q2: %#v", text, printed, q1, q2)
			}
		})
	}
}
