package protomsg

import (
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/anirudhraja/protomsg/schema"
	"github.com/anirudhraja/protomsg/wire"
)

// Unmarshal parses protobuf wire bytes into the message, merging with any
// state it already holds: singular fields take the last value seen,
// repeated fields append, map entries insert with duplicate keys resolved
// last-one-wins. Fields whose numbers the descriptor does not know are
// preserved verbatim and re-emitted by Marshal. The message counts as
// having been on the wire even when data is empty.
func Unmarshal(data []byte, m *Message) error {
	if m == nil {
		return ErrNilMessage
	}
	m.wireSeen = true

	dec := wire.NewDecoder(data)
	for !dec.EOF() {
		fld, err := dec.ReadField()
		if err != nil {
			return err
		}
		f := m.desc.FieldByNumber(int32(fld.Number))
		if f == nil {
			m.unknown = append(m.unknown, fld.Raw...)
			continue
		}
		if err := decodeField(m, f, fld); err != nil {
			return wrapWithField(err, f.Name)
		}
	}
	return nil
}

func decodeField(m *Message, f *schema.Field, fld *wire.Field) error {
	switch {
	case f.Kind == schema.KindMap:
		return decodeMapEntry(m, f, fld)
	case f.Repeated && f.Kind.Packable():
		return decodePackable(m, f, fld)
	case f.Repeated:
		item, err := decodeSingular(f, fld)
		if err != nil {
			return err
		}
		appendItem(m, f, item)
		return nil
	default:
		value, err := decodeSingular(f, fld)
		if err != nil {
			return err
		}
		storeDecoded(m, f, value)
		return nil
	}
}

// storeDecoded records a decoded singular value, keeping oneof selection
// bookkeeping in step with what arrived on the wire.
func storeDecoded(m *Message, f *schema.Field, value interface{}) {
	m.values[f.Name] = value
	m.state[f.Name] = hasValue
	m.selectOneof(f)
}

func appendItem(m *Message, f *schema.Field, item interface{}) {
	items, _ := m.values[f.Name].([]interface{})
	m.values[f.Name] = append(items, item)
	m.state[f.Name] = hasValue
}

// decodePackable handles fields that may arrive packed, unpacked, or as a
// mix of both: each length-delimited chunk is unpacked element by element
// and appended, and plain occurrences append one element.
func decodePackable(m *Message, f *schema.Field, fld *wire.Field) error {
	if fld.WireType == wire.WireBytes {
		sub := wire.NewDecoder(fld.Data)
		for !sub.EOF() {
			item, err := decodeBareScalar(sub, f.Kind)
			if err != nil {
				return err
			}
			appendItem(m, f, item)
		}
		return nil
	}
	item, err := decodeSingular(f, fld)
	if err != nil {
		return err
	}
	appendItem(m, f, item)
	return nil
}

// decodeSingular converts one wire token into the field's in-memory
// representation, checking that the wire type matches the declared kind.
func decodeSingular(f *schema.Field, fld *wire.Field) (interface{}, error) {
	if f.Kind == schema.KindMessage {
		if fld.WireType != wire.WireBytes {
			return nil, wireTypeMismatch(f.Kind, fld.WireType)
		}
		if f.Wraps != "" {
			return decodeWrapper(f, fld.Data)
		}
		child := New(f.Message)
		if err := Unmarshal(fld.Data, child); err != nil {
			return nil, err
		}
		return child, nil
	}
	return decodeScalar(f.Kind, fld)
}

func decodeScalar(kind schema.Kind, fld *wire.Field) (interface{}, error) {
	want := scalarWireType(kind)
	if kind == schema.KindString || kind == schema.KindBytes {
		want = wire.WireBytes
	}
	if fld.WireType != want {
		return nil, wireTypeMismatch(kind, fld.WireType)
	}

	switch kind {
	case schema.KindInt32:
		return int32(fld.Value), nil
	case schema.KindInt64:
		return int64(fld.Value), nil
	case schema.KindUint32:
		return uint32(fld.Value), nil
	case schema.KindUint64:
		return fld.Value, nil
	case schema.KindSint32:
		return wire.DecodeZigZag32(fld.Value), nil
	case schema.KindSint64:
		return wire.DecodeZigZag64(fld.Value), nil
	case schema.KindBool:
		return fld.Value != 0, nil
	case schema.KindEnum:
		// Open enums: unrecognized numbers are stored as-is.
		return int32(fld.Value), nil
	case schema.KindFixed32:
		return uint32(fld.Value), nil
	case schema.KindSfixed32:
		return int32(fld.Value), nil
	case schema.KindFloat:
		return math.Float32frombits(uint32(fld.Value)), nil
	case schema.KindFixed64:
		return fld.Value, nil
	case schema.KindSfixed64:
		return int64(fld.Value), nil
	case schema.KindDouble:
		return math.Float64frombits(fld.Value), nil
	case schema.KindString:
		if !utf8.Valid(fld.Data) {
			return nil, ErrInvalidUTF8
		}
		return string(fld.Data), nil
	case schema.KindBytes:
		return append([]byte(nil), fld.Data...), nil
	}
	return nil, fmt.Errorf("cannot decode kind %s", kind)
}

// decodeBareScalar reads one untagged element of a packed chunk.
func decodeBareScalar(dec *wire.Decoder, kind schema.Kind) (interface{}, error) {
	switch scalarWireType(kind) {
	case wire.WireVarint:
		v, err := dec.DecodeVarint()
		if err != nil {
			return nil, err
		}
		return decodeScalar(kind, &wire.Field{WireType: wire.WireVarint, Value: v})
	case wire.WireFixed32:
		v, err := wire.NewFixedDecoder(dec).DecodeFixed32()
		if err != nil {
			return nil, err
		}
		return decodeScalar(kind, &wire.Field{WireType: wire.WireFixed32, Value: uint64(v)})
	default:
		v, err := wire.NewFixedDecoder(dec).DecodeFixed64()
		if err != nil {
			return nil, err
		}
		return decodeScalar(kind, &wire.Field{WireType: wire.WireFixed64, Value: v})
	}
}

// decodeWrapper unwraps a google wrapper submessage into its bare scalar.
// A wrapper with no value field yields the scalar's zero.
func decodeWrapper(f *schema.Field, data []byte) (interface{}, error) {
	value := zeroValue(f)

	dec := wire.NewDecoder(data)
	for !dec.EOF() {
		fld, err := dec.ReadField()
		if err != nil {
			return nil, err
		}
		if fld.Number != 1 {
			continue
		}
		v, err := decodeScalar(f.Wraps, fld)
		if err != nil {
			return nil, err
		}
		value = v
	}
	return value, nil
}

// decodeMapEntry parses one map entry submessage (key = 1, value = 2) and
// inserts it, overwriting any previous entry for the same key. Missing
// components default to zero values, and an absent message value becomes
// an empty child.
func decodeMapEntry(m *Message, f *schema.Field, fld *wire.Field) error {
	if fld.WireType != wire.WireBytes {
		return wireTypeMismatch(f.Kind, fld.WireType)
	}

	keyField := schema.Field{Name: f.Name, Kind: f.MapKey}
	val := mapValueField(f)

	key := zeroValue(&keyField)
	var value interface{}
	if val.Kind == schema.KindMessage && val.Wraps == "" {
		value = New(val.Message)
	} else {
		// zeroValue unwraps wrapper-typed values to their scalar zero.
		value = zeroValue(val)
	}

	dec := wire.NewDecoder(fld.Data)
	for !dec.EOF() {
		entry, err := dec.ReadField()
		if err != nil {
			return err
		}
		switch entry.Number {
		case 1:
			k, err := decodeScalar(f.MapKey, entry)
			if err != nil {
				return err
			}
			key = k
		case 2:
			v, err := decodeSingular(val, entry)
			if err != nil {
				return err
			}
			value = v
		}
	}

	entries, _ := m.values[f.Name].(map[interface{}]interface{})
	if entries == nil {
		entries = make(map[interface{}]interface{})
	}
	entries[key] = value
	m.values[f.Name] = entries
	m.state[f.Name] = hasValue
	return nil
}

func wireTypeMismatch(kind schema.Kind, got wire.WireType) error {
	return fmt.Errorf("wire type %s does not match kind %s", got, kind)
}
