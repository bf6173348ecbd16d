package cypher

import "context"

// ---------------------------------------------------------------------------
// Graph Backend contract (spec §6.1) — the external collaborator the whole
// query pipeline is built against. The teacher's DB struct (graphdb.go)
// implements a superset of this by hand, wired directly to bbolt shards;
// here the same capabilities are pulled out into an interface so the
// pipeline never depends on a concrete storage engine, and `backend/bolt`
// and `backend/memory` each provide one conforming implementation.
// ---------------------------------------------------------------------------

// NodeIterator is a single-pass stream of node ids, e.g. from a label scan.
type NodeIterator interface {
	// Next advances the iterator. It returns false once exhausted.
	Next(ctx context.Context) (NodeID, bool, error)
	Close() error
}

// RelIterator is a single-pass stream of relationship ids, e.g. from
// Backend.RelsOf.
type RelIterator interface {
	Next(ctx context.Context) (RelID, bool, error)
	Close() error
}

// Tx brackets the backend operations of a single query per spec §5: writes
// are flushed synchronously and, if the backend supports transactions, the
// whole query runs inside one.
type Tx interface {
	Commit() error
	Rollback() error
}

// Backend is the storage contract the engine consumes. Implementations must
// provide snapshot isolation for the duration of one query; the core never
// mutates state it did not request through CreateNode/CreateRel.
type Backend interface {
	// AllNodes streams every node id in backend iteration order.
	AllNodes(ctx context.Context) (NodeIterator, error)
	// NodesByLabel streams node ids carrying the given label.
	NodesByLabel(ctx context.Context, label string) (NodeIterator, error)

	// GetNode resolves a node id to its labels and properties.
	GetNode(ctx context.Context, id NodeID) (*NodeValue, error)
	// GetRel resolves a relationship id to its type, endpoints, and properties.
	GetRel(ctx context.Context, id RelID) (*RelValue, error)

	// RelsOf streams the relationship ids incident to node in the given
	// direction, optionally filtered to one type ("" means any type).
	RelsOf(ctx context.Context, node NodeID, dir Direction, relType string) (RelIterator, error)

	// CreateNode persists a new node and returns its assigned id.
	CreateNode(ctx context.Context, labels []string, props *OrderedMap) (NodeID, error)
	// CreateRel persists a new relationship and returns its assigned id.
	CreateRel(ctx context.Context, start, end NodeID, relType string, props *OrderedMap) (RelID, error)

	// Begin starts the transaction bracketing one query's backend calls.
	Begin(ctx context.Context) (Tx, error)
}
