package bolt

import (
	"context"
	"path/filepath"
	"testing"

	cypher "github.com/arborgraph/cyphercore"
)

func openTestBackend(t *testing.T) *Backend {
	t.Helper()
	path := filepath.Join(t.TempDir(), "graph.db")
	b, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { b.Close() })
	return b
}

func drainNodes(t *testing.T, it cypher.NodeIterator) []cypher.NodeID {
	t.Helper()
	defer it.Close()
	var ids []cypher.NodeID
	ctx := context.Background()
	for {
		id, ok, err := it.Next(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			break
		}
		ids = append(ids, id)
	}
	return ids
}

func TestBackend_CreateAndGetNode(t *testing.T) {
	b := openTestBackend(t)
	ctx := context.Background()

	props := cypher.NewOrderedMap()
	props.Set("name", cypher.Str("Alice"))
	props.Set("age", cypher.Int(30))

	id, err := b.CreateNode(ctx, []string{"Person"}, props)
	if err != nil {
		t.Fatal(err)
	}

	node, err := b.GetNode(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if !node.HasLabel("Person") {
		t.Fatalf("expected Person label, got %v", node.Labels)
	}
	name, ok := node.Props.Get("name")
	if !ok || name.AsString() != "Alice" {
		t.Fatalf("expected name=Alice, got %v", name)
	}
	age, ok := node.Props.Get("age")
	if !ok || age.AsInt() != 30 {
		t.Fatalf("expected age=30, got %v", age)
	}
}

func TestBackend_GetNodeNotFound(t *testing.T) {
	b := openTestBackend(t)
	_, err := b.GetNode(context.Background(), 999)
	if err == nil {
		t.Fatal("expected an error for a missing node")
	}
	be, ok := err.(*cypher.BackendError)
	if !ok {
		t.Fatalf("expected *cypher.BackendError, got %T", err)
	}
	if be.Transient() {
		t.Fatal("a not-found error should not be transient")
	}
}

func TestBackend_NodesByLabel(t *testing.T) {
	b := openTestBackend(t)
	ctx := context.Background()
	a, _ := b.CreateNode(ctx, []string{"Person"}, nil)
	_, _ = b.CreateNode(ctx, []string{"Article"}, nil)
	c, _ := b.CreateNode(ctx, []string{"Person"}, nil)

	it, err := b.NodesByLabel(ctx, "Person")
	if err != nil {
		t.Fatal(err)
	}
	ids := drainNodes(t, it)
	if len(ids) != 2 {
		t.Fatalf("expected 2 Person nodes, got %d", len(ids))
	}
	seen := map[cypher.NodeID]bool{ids[0]: true, ids[1]: true}
	if !seen[a] || !seen[c] {
		t.Fatalf("expected %v and %v, got %v", a, c, ids)
	}
}

func TestBackend_RelsOfDirectionAndType(t *testing.T) {
	b := openTestBackend(t)
	ctx := context.Background()
	a, _ := b.CreateNode(ctx, nil, nil)
	x, _ := b.CreateNode(ctx, nil, nil)

	out1, err := b.CreateRel(ctx, a, x, "FOLLOWS", nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.CreateRel(ctx, x, a, "FOLLOWS", nil); err != nil {
		t.Fatal(err)
	}
	if _, err := b.CreateRel(ctx, a, x, "LIKES", nil); err != nil {
		t.Fatal(err)
	}

	it, err := b.RelsOf(ctx, a, cypher.DirOut, "")
	if err != nil {
		t.Fatal(err)
	}
	var all []cypher.RelID
	for {
		id, ok, err := it.Next(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			break
		}
		all = append(all, id)
	}
	it.Close()
	if len(all) != 2 {
		t.Fatalf("expected 2 outgoing relationships, got %d", len(all))
	}

	it2, err := b.RelsOf(ctx, a, cypher.DirOut, "FOLLOWS")
	if err != nil {
		t.Fatal(err)
	}
	defer it2.Close()
	id, ok, err := it2.Next(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !ok || id != out1 {
		t.Fatalf("expected only %v, got %v", out1, id)
	}
	if _, ok, _ := it2.Next(ctx); ok {
		t.Fatal("expected exactly one FOLLOWS relationship")
	}
}

func TestBackend_CreateRelRejectsMissingEndpoint(t *testing.T) {
	b := openTestBackend(t)
	ctx := context.Background()
	n, err := b.CreateNode(ctx, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.CreateRel(ctx, n, 9999, "FOLLOWS", nil); err == nil {
		t.Fatal("expected an error creating a relationship to a missing node")
	}
}

func TestBackend_PropertyRoundTripNestedValues(t *testing.T) {
	b := openTestBackend(t)
	ctx := context.Background()

	inner := cypher.NewOrderedMap()
	inner.Set("city", cypher.Str("Ankara"))
	props := cypher.NewOrderedMap()
	props.Set("tags", cypher.List([]cypher.Value{cypher.Str("a"), cypher.Str("b")}))
	props.Set("address", cypher.Map(inner))

	id, err := b.CreateNode(ctx, nil, props)
	if err != nil {
		t.Fatal(err)
	}
	node, err := b.GetNode(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	tags, _ := node.Props.Get("tags")
	if len(tags.AsList()) != 2 || tags.AsList()[0].AsString() != "a" {
		t.Fatalf("expected tags round trip, got %v", tags)
	}
	address, _ := node.Props.Get("address")
	city, _ := address.AsMap().Get("city")
	if city.AsString() != "Ankara" {
		t.Fatalf("expected nested map round trip, got %v", city)
	}
}

// TestBackend_WriteDuringOpenReadTx exercises the fix for a deadlock where
// Begin previously opened a writable transaction: a write issued while a
// query's read-only Tx is still open must not block.
func TestBackend_WriteDuringOpenReadTx(t *testing.T) {
	b := openTestBackend(t)
	ctx := context.Background()

	tx, err := b.Begin(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer tx.Rollback()

	if _, err := b.CreateNode(ctx, nil, nil); err != nil {
		t.Fatalf("write while a read Tx is open should not block or fail: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}
}
