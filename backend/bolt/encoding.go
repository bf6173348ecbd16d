package bolt

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"

	"github.com/vmihailenco/msgpack/v5"

	cypher "github.com/arborgraph/cyphercore"
)

// ---------------------------------------------------------------------------
// Key/value encoding for the bbolt-backed store. Grounded on the teacher's
// encoding.go: big-endian fixed-width integer keys for B+tree ordering, a
// magic-byte + msgpack + trailing CRC32 envelope for arbitrary payloads
// (encodeProps/decodeProps), and a "prefix + 0x00 + id" composite key for
// the label index (encodeLabelIndexKey / bucketIdxNodeLabel).
// ---------------------------------------------------------------------------

var crc32Table = crc32.MakeTable(crc32.Castagnoli)

const envelopeMagic byte = 0x01

func encodeUint64(v uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return buf
}

func decodeUint64(b []byte) uint64 { return binary.BigEndian.Uint64(b) }

func encodeNodeID(id cypher.NodeID) []byte { return encodeUint64(uint64(id)) }
func decodeNodeID(b []byte) cypher.NodeID  { return cypher.NodeID(decodeUint64(b)) }

func encodeRelID(id cypher.RelID) []byte { return encodeUint64(uint64(id)) }
func decodeRelID(b []byte) cypher.RelID  { return cypher.RelID(decodeUint64(b)) }

// encodeIndexKey builds "prefix\x00id(8)" composite keys, shared by the node
// label index and the relationship type index.
func encodeIndexKey(prefix string, id uint64) []byte {
	p := []byte(prefix)
	key := make([]byte, len(p)+1+8)
	copy(key, p)
	key[len(p)] = 0x00
	binary.BigEndian.PutUint64(key[len(p)+1:], id)
	return key
}

func encodeIndexPrefix(prefix string) []byte {
	p := []byte(prefix)
	key := make([]byte, len(p)+1)
	copy(key, p)
	key[len(p)] = 0x00
	return key
}

// encodeAdjKey builds a "node(8) + rel(8)" composite key for the adjacency
// buckets, allowing an efficient prefix scan of every relationship id
// touching one node.
func encodeAdjKey(node cypher.NodeID, rel cypher.RelID) []byte {
	buf := make([]byte, 16)
	binary.BigEndian.PutUint64(buf[:8], uint64(node))
	binary.BigEndian.PutUint64(buf[8:], uint64(rel))
	return buf
}

func encodeAdjPrefix(node cypher.NodeID) []byte {
	return encodeUint64(uint64(node))
}

// envelope wraps arbitrary msgpack payloads with a magic byte and a trailing
// CRC32 checksum over everything preceding it, per the teacher's
// encodeProps/decodeProps.
func envelope(raw []byte) []byte {
	buf := make([]byte, 1+len(raw)+4)
	buf[0] = envelopeMagic
	copy(buf[1:], raw)
	checksum := crc32.Checksum(buf[:1+len(raw)], crc32Table)
	binary.BigEndian.PutUint32(buf[1+len(raw):], checksum)
	return buf
}

func unenvelope(data []byte) ([]byte, error) {
	if len(data) < 5 || data[0] != envelopeMagic {
		return nil, fmt.Errorf("bolt: unrecognized record envelope")
	}
	payload := data[:len(data)-4]
	stored := binary.BigEndian.Uint32(data[len(data)-4:])
	actual := crc32.Checksum(payload, crc32Table)
	if stored != actual {
		return nil, fmt.Errorf("bolt: record checksum mismatch (stored=%08x actual=%08x)", stored, actual)
	}
	return payload[1:], nil
}

// wireValue is the msgpack-serializable mirror of cypher.Value, restricted
// to the kinds that can legally appear in a persisted property (Node/Rel/
// Path values are never written — they are re-derived from ids on read).
type wireValue struct {
	Kind  uint8
	Bool  bool        `msgpack:",omitempty"`
	Int   int64       `msgpack:",omitempty"`
	Float float64     `msgpack:",omitempty"`
	Str   string      `msgpack:",omitempty"`
	List  []wireValue `msgpack:",omitempty"`
	Keys  []string    `msgpack:",omitempty"`
	Vals  []wireValue `msgpack:",omitempty"`
}

func valueToWire(v cypher.Value) (wireValue, error) {
	switch v.Kind() {
	case cypher.KindNull:
		return wireValue{Kind: uint8(cypher.KindNull)}, nil
	case cypher.KindBool:
		return wireValue{Kind: uint8(cypher.KindBool), Bool: v.AsBool()}, nil
	case cypher.KindInt:
		return wireValue{Kind: uint8(cypher.KindInt), Int: v.AsInt()}, nil
	case cypher.KindFloat:
		return wireValue{Kind: uint8(cypher.KindFloat), Float: v.AsFloat()}, nil
	case cypher.KindString:
		return wireValue{Kind: uint8(cypher.KindString), Str: v.AsString()}, nil
	case cypher.KindList:
		items := v.AsList()
		list := make([]wireValue, len(items))
		for i, item := range items {
			w, err := valueToWire(item)
			if err != nil {
				return wireValue{}, err
			}
			list[i] = w
		}
		return wireValue{Kind: uint8(cypher.KindList), List: list}, nil
	case cypher.KindMap:
		m := v.AsMap()
		keys := m.Keys()
		vals := make([]wireValue, len(keys))
		for i, k := range keys {
			val, _ := m.Get(k)
			w, err := valueToWire(val)
			if err != nil {
				return wireValue{}, err
			}
			vals[i] = w
		}
		return wireValue{Kind: uint8(cypher.KindMap), Keys: keys, Vals: vals}, nil
	default:
		return wireValue{}, fmt.Errorf("bolt: property values of kind %s cannot be persisted", v.Kind())
	}
}

func wireToValue(w wireValue) (cypher.Value, error) {
	switch cypher.Kind(w.Kind) {
	case cypher.KindNull:
		return cypher.Null(), nil
	case cypher.KindBool:
		return cypher.Bool(w.Bool), nil
	case cypher.KindInt:
		return cypher.Int(w.Int), nil
	case cypher.KindFloat:
		return cypher.Float(w.Float), nil
	case cypher.KindString:
		return cypher.Str(w.Str), nil
	case cypher.KindList:
		list := make([]cypher.Value, len(w.List))
		for i, item := range w.List {
			v, err := wireToValue(item)
			if err != nil {
				return cypher.Value{}, err
			}
			list[i] = v
		}
		return cypher.List(list), nil
	case cypher.KindMap:
		m := cypher.NewOrderedMap()
		for i, k := range w.Keys {
			v, err := wireToValue(w.Vals[i])
			if err != nil {
				return cypher.Value{}, err
			}
			m.Set(k, v)
		}
		return cypher.Map(m), nil
	default:
		return cypher.Value{}, fmt.Errorf("bolt: unrecognized stored value kind %d", w.Kind)
	}
}

func encodeProps(props *cypher.OrderedMap) ([]byte, error) {
	if props == nil {
		props = cypher.NewOrderedMap()
	}
	keys := props.Keys()
	vals := make([]wireValue, len(keys))
	for i, k := range keys {
		v, _ := props.Get(k)
		w, err := valueToWire(v)
		if err != nil {
			return nil, err
		}
		vals[i] = w
	}
	raw, err := msgpack.Marshal(wireValue{Kind: uint8(cypher.KindMap), Keys: keys, Vals: vals})
	if err != nil {
		return nil, err
	}
	return envelope(raw), nil
}

func decodeProps(data []byte) (*cypher.OrderedMap, error) {
	raw, err := unenvelope(data)
	if err != nil {
		return nil, err
	}
	var w wireValue
	if err := msgpack.Unmarshal(raw, &w); err != nil {
		return nil, err
	}
	v, err := wireToValue(w)
	if err != nil {
		return nil, err
	}
	return v.AsMap(), nil
}

type wireNode struct {
	Labels []string
}

func encodeLabels(labels []string) []byte {
	raw, _ := msgpack.Marshal(wireNode{Labels: labels})
	return envelope(raw)
}

func decodeLabels(data []byte) ([]string, error) {
	raw, err := unenvelope(data)
	if err != nil {
		return nil, err
	}
	var w wireNode
	if err := msgpack.Unmarshal(raw, &w); err != nil {
		return nil, err
	}
	return w.Labels, nil
}

type wireRel struct {
	Type  string
	Start uint64
	End   uint64
	Props wireValue
}

func encodeRel(relType string, start, end cypher.NodeID, props *cypher.OrderedMap) ([]byte, error) {
	if props == nil {
		props = cypher.NewOrderedMap()
	}
	keys := props.Keys()
	vals := make([]wireValue, len(keys))
	for i, k := range keys {
		v, _ := props.Get(k)
		w, err := valueToWire(v)
		if err != nil {
			return nil, err
		}
		vals[i] = w
	}
	raw, err := msgpack.Marshal(wireRel{
		Type: relType, Start: uint64(start), End: uint64(end),
		Props: wireValue{Kind: uint8(cypher.KindMap), Keys: keys, Vals: vals},
	})
	if err != nil {
		return nil, err
	}
	return envelope(raw), nil
}

func decodeRel(data []byte) (relType string, start, end cypher.NodeID, props *cypher.OrderedMap, err error) {
	raw, err := unenvelope(data)
	if err != nil {
		return "", 0, 0, nil, err
	}
	var w wireRel
	if err := msgpack.Unmarshal(raw, &w); err != nil {
		return "", 0, 0, nil, err
	}
	v, err := wireToValue(w.Props)
	if err != nil {
		return "", 0, 0, nil, err
	}
	return w.Type, cypher.NodeID(w.Start), cypher.NodeID(w.End), v.AsMap(), nil
}
