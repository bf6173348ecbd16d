// Package memory is a sync.Mutex-guarded, in-memory Backend implementation.
// Grounded on the shape of the teacher's node/edge structs (node.go, edge.go
// in mstrYoda-goraphdb) — an ID, a label/type, and a property bag, plus
// separate outgoing/incoming adjacency indexes — but with plain Go maps
// standing in for the teacher's bbolt buckets, since this implementation
// exists for tests and small in-process graphs rather than durability.
package memory

import (
	"context"
	"sort"
	"sync"

	cypher "github.com/arborgraph/cyphercore"
)

type nodeRecord struct {
	id     cypher.NodeID
	labels []string
	props  *cypher.OrderedMap
}

type relRecord struct {
	id      cypher.RelID
	relType string
	start   cypher.NodeID
	end     cypher.NodeID
	props   *cypher.OrderedMap
}

// Backend is an in-memory Backend implementation, safe for concurrent use.
type Backend struct {
	mu sync.Mutex

	nodes map[cypher.NodeID]*nodeRecord
	rels  map[cypher.RelID]*relRecord

	outAdj map[cypher.NodeID][]cypher.RelID
	inAdj  map[cypher.NodeID][]cypher.RelID

	labelIdx map[string]map[cypher.NodeID]struct{}

	nextNodeID uint64
	nextRelID  uint64
}

// New returns an empty in-memory backend.
func New() *Backend {
	return &Backend{
		nodes:    make(map[cypher.NodeID]*nodeRecord),
		rels:     make(map[cypher.RelID]*relRecord),
		outAdj:   make(map[cypher.NodeID][]cypher.RelID),
		inAdj:    make(map[cypher.NodeID][]cypher.RelID),
		labelIdx: make(map[string]map[cypher.NodeID]struct{}),
	}
}

func nodeToValue(n *nodeRecord) *cypher.NodeValue {
	return &cypher.NodeValue{ID: n.id, Labels: append([]string(nil), n.labels...), Props: n.props.Clone()}
}

func relToValue(r *relRecord) *cypher.RelValue {
	return &cypher.RelValue{ID: r.id, Type: r.relType, Start: r.start, End: r.end, Props: r.props.Clone()}
}

// nodeIDIterator is a single-pass snapshot iterator shared by AllNodes and
// NodesByLabel; the id slice is captured under the lock at call time so
// concurrent writers never invalidate an in-flight scan.
type nodeIDIterator struct {
	ids []cypher.NodeID
	pos int
}

func (it *nodeIDIterator) Next(ctx context.Context) (cypher.NodeID, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}
	if it.pos >= len(it.ids) {
		return 0, false, nil
	}
	id := it.ids[it.pos]
	it.pos++
	return id, true, nil
}

func (it *nodeIDIterator) Close() error { return nil }

type relIDIterator struct {
	ids []cypher.RelID
	pos int
}

func (it *relIDIterator) Next(ctx context.Context) (cypher.RelID, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}
	if it.pos >= len(it.ids) {
		return 0, false, nil
	}
	id := it.ids[it.pos]
	it.pos++
	return id, true, nil
}

func (it *relIDIterator) Close() error { return nil }

// AllNodes streams every node id, sorted for reproducible test output.
func (b *Backend) AllNodes(ctx context.Context) (cypher.NodeIterator, error) {
	b.mu.Lock()
	ids := make([]cypher.NodeID, 0, len(b.nodes))
	for id := range b.nodes {
		ids = append(ids, id)
	}
	b.mu.Unlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return &nodeIDIterator{ids: ids}, nil
}

// NodesByLabel streams node ids carrying label, sorted.
func (b *Backend) NodesByLabel(ctx context.Context, label string) (cypher.NodeIterator, error) {
	b.mu.Lock()
	set := b.labelIdx[label]
	ids := make([]cypher.NodeID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	b.mu.Unlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return &nodeIDIterator{ids: ids}, nil
}

// GetNode resolves id to its labels and properties.
func (b *Backend) GetNode(ctx context.Context, id cypher.NodeID) (*cypher.NodeValue, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n, ok := b.nodes[id]
	if !ok {
		return nil, cypher.NewBackendNotFound("GetNode", "node not found")
	}
	return nodeToValue(n), nil
}

// GetRel resolves id to its type, endpoints, and properties.
func (b *Backend) GetRel(ctx context.Context, id cypher.RelID) (*cypher.RelValue, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	r, ok := b.rels[id]
	if !ok {
		return nil, cypher.NewBackendNotFound("GetRel", "relationship not found")
	}
	return relToValue(r), nil
}

// RelsOf streams the relationship ids incident to node in the given
// direction, optionally filtered to one type.
func (b *Backend) RelsOf(ctx context.Context, node cypher.NodeID, dir cypher.Direction, relType string) (cypher.RelIterator, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var candidate []cypher.RelID
	switch dir {
	case cypher.DirOut:
		candidate = b.outAdj[node]
	case cypher.DirIn:
		candidate = b.inAdj[node]
	default:
		seen := make(map[cypher.RelID]struct{}, len(b.outAdj[node])+len(b.inAdj[node]))
		for _, id := range b.outAdj[node] {
			seen[id] = struct{}{}
		}
		for _, id := range b.inAdj[node] {
			seen[id] = struct{}{}
		}
		candidate = make([]cypher.RelID, 0, len(seen))
		for id := range seen {
			candidate = append(candidate, id)
		}
		sort.Slice(candidate, func(i, j int) bool { return candidate[i] < candidate[j] })
	}

	ids := make([]cypher.RelID, 0, len(candidate))
	for _, id := range candidate {
		if relType != "" && b.rels[id].relType != relType {
			continue
		}
		ids = append(ids, id)
	}
	return &relIDIterator{ids: ids}, nil
}

// CreateNode persists a new node and returns its assigned id.
func (b *Backend) CreateNode(ctx context.Context, labels []string, props *cypher.OrderedMap) (cypher.NodeID, error) {
	if props == nil {
		props = cypher.NewOrderedMap()
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextNodeID++
	id := cypher.NodeID(b.nextNodeID)
	b.nodes[id] = &nodeRecord{id: id, labels: append([]string(nil), labels...), props: props.Clone()}
	for _, label := range labels {
		set, ok := b.labelIdx[label]
		if !ok {
			set = make(map[cypher.NodeID]struct{})
			b.labelIdx[label] = set
		}
		set[id] = struct{}{}
	}
	return id, nil
}

// CreateRel persists a new relationship and returns its assigned id.
func (b *Backend) CreateRel(ctx context.Context, start, end cypher.NodeID, relType string, props *cypher.OrderedMap) (cypher.RelID, error) {
	if props == nil {
		props = cypher.NewOrderedMap()
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.nodes[start]; !ok {
		return 0, cypher.NewBackendNotFound("CreateRel", "start node not found")
	}
	if _, ok := b.nodes[end]; !ok {
		return 0, cypher.NewBackendNotFound("CreateRel", "end node not found")
	}

	b.nextRelID++
	id := cypher.RelID(b.nextRelID)
	b.rels[id] = &relRecord{id: id, relType: relType, start: start, end: end, props: props.Clone()}
	b.outAdj[start] = append(b.outAdj[start], id)
	b.inAdj[end] = append(b.inAdj[end], id)
	return id, nil
}

// memTx is a no-op transaction: the memory backend applies mutations
// immediately and has no rollback log, so Commit/Rollback are both no-ops.
type memTx struct{}

func (memTx) Commit() error   { return nil }
func (memTx) Rollback() error { return nil }

// Begin returns a no-op Tx bracketing one query's calls.
func (b *Backend) Begin(ctx context.Context) (cypher.Tx, error) {
	return memTx{}, nil
}
