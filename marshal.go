package protomsg

import (
	"fmt"
	"sort"

	"github.com/anirudhraja/protomsg/schema"
	"github.com/anirudhraja/protomsg/wire"
)

// Marshal serializes a message into protobuf wire bytes: fields in
// declaration order, default values omitted, preserved unknown fields
// appended last. A message with every field at its default encodes to an
// empty buffer.
func Marshal(m *Message) ([]byte, error) {
	if m == nil {
		return nil, ErrNilMessage
	}
	enc := wire.NewEncoder()
	if err := encodeMessage(enc, m); err != nil {
		return nil, err
	}
	return enc.Bytes(), nil
}

// Size returns the number of bytes Marshal would produce, computed without
// building the buffer.
func Size(m *Message) int {
	if m == nil {
		return 0
	}
	return sizeMessage(m)
}

// ENCODER

func encodeMessage(enc *wire.Encoder, m *Message) error {
	for _, f := range m.desc.Fields {
		if err := encodeField(enc, m, f); err != nil {
			return wrapWithField(err, f.Name)
		}
	}
	if len(m.unknown) > 0 {
		enc.AppendRaw(m.unknown)
	}
	return nil
}

// emittable decides whether a field contributes bytes, applying the
// omission rule: defaults are skipped unless presence semantics force them
// out. Oneof members and optional fields always emit once set; a
// submessage that was explicitly assigned or decoded emits even when all
// its fields are default; wrapper fields emit whenever they hold a value.
func emittable(m *Message, f *schema.Field) (interface{}, bool) {
	value, stored := m.values[f.Name]
	st := m.state[f.Name]
	if st == explicitNull {
		return nil, false
	}
	if !stored {
		return nil, false
	}

	force := f.Oneof != "" || f.Optional || f.Wraps != ""
	if child, ok := value.(*Message); ok && child.wireSeen {
		force = true
	}
	if !force && isDefault(f, value) {
		return nil, false
	}
	return value, true
}

func encodeField(enc *wire.Encoder, m *Message, f *schema.Field) error {
	value, ok := emittable(m, f)
	if !ok {
		return nil
	}

	switch {
	case f.Kind == schema.KindMap:
		return encodeMapField(enc, f, value.(map[interface{}]interface{}))
	case f.Repeated && f.Kind.Packable():
		return encodePackedField(enc, f, value.([]interface{}))
	case f.Repeated:
		return encodeRepeatedField(enc, f, value.([]interface{}))
	default:
		return encodeSingularField(enc, f, value)
	}
}

func encodeSingularField(enc *wire.Encoder, f *schema.Field, value interface{}) error {
	if f.Wraps != "" {
		return encodeWrapperField(enc, f, value)
	}
	if f.Kind == schema.KindMessage {
		child, ok := value.(*Message)
		if !ok {
			return fmt.Errorf("expected *Message for field %s, got %T", f.Name, value)
		}
		return encodeChildMessage(enc, wire.FieldNumber(f.Number), child)
	}
	return encodeScalarField(enc, wire.FieldNumber(f.Number), f.Kind, value)
}

// encodeChildMessage emits a nested message as a length-delimited field.
func encodeChildMessage(enc *wire.Encoder, num wire.FieldNumber, child *Message) error {
	sub := wire.NewEncoder()
	if err := encodeMessage(sub, child); err != nil {
		return err
	}
	enc.EncodeTag(num, wire.WireBytes)
	wire.NewBytesEncoder(enc).EncodeBytes(sub.Bytes())
	return nil
}

// encodeWrapperField emits a google wrapper: the scalar becomes the value
// field of a one-field message, and a zero scalar still produces a
// zero-length submessage so the wrapper stays present on the wire.
func encodeWrapperField(enc *wire.Encoder, f *schema.Field, value interface{}) error {
	sub := wire.NewEncoder()
	wrapped := schema.Field{Name: f.Name, Kind: f.Wraps}
	if !isDefault(&wrapped, value) {
		if err := encodeScalarField(sub, 1, f.Wraps, value); err != nil {
			return err
		}
	}
	enc.EncodeTag(wire.FieldNumber(f.Number), wire.WireBytes)
	wire.NewBytesEncoder(enc).EncodeBytes(sub.Bytes())
	return nil
}

// encodePackedField concatenates the bare encodings of every element into
// one length-delimited field.
func encodePackedField(enc *wire.Encoder, f *schema.Field, items []interface{}) error {
	sub := wire.NewEncoder()
	for _, item := range items {
		if err := encodeBareScalar(sub, f.Kind, item); err != nil {
			return err
		}
	}
	enc.EncodeTag(wire.FieldNumber(f.Number), wire.WireBytes)
	wire.NewBytesEncoder(enc).EncodeBytes(sub.Bytes())
	return nil
}

// encodeRepeatedField emits one tag+value pair per element. Empty strings,
// bytes, and all-default submessages still produce a zero-length value so
// the element count survives a round trip.
func encodeRepeatedField(enc *wire.Encoder, f *schema.Field, items []interface{}) error {
	num := wire.FieldNumber(f.Number)
	for _, item := range items {
		if f.Wraps != "" {
			if err := encodeWrapperField(enc, f, item); err != nil {
				return err
			}
			continue
		}
		switch f.Kind {
		case schema.KindString:
			s, ok := item.(string)
			if !ok {
				return fmt.Errorf("expected string element for field %s, got %T", f.Name, item)
			}
			enc.EncodeTag(num, wire.WireBytes)
			wire.NewBytesEncoder(enc).EncodeString(s)
		case schema.KindBytes:
			b, ok := item.([]byte)
			if !ok {
				return fmt.Errorf("expected []byte element for field %s, got %T", f.Name, item)
			}
			enc.EncodeTag(num, wire.WireBytes)
			wire.NewBytesEncoder(enc).EncodeBytes(b)
		case schema.KindMessage:
			child, ok := item.(*Message)
			if !ok {
				return fmt.Errorf("expected *Message element for field %s, got %T", f.Name, item)
			}
			if err := encodeChildMessage(enc, num, child); err != nil {
				return err
			}
		default:
			return fmt.Errorf("field %s: %s is not a valid unpacked element kind", f.Name, f.Kind)
		}
	}
	return nil
}

// encodeMapField emits one entry submessage per key in sorted key order,
// keeping output deterministic across runs. Within an entry, numeric
// components are always written while zero-length strings, bytes, and
// empty message values are dropped; the decoder fills those back in as
// defaults.
func encodeMapField(enc *wire.Encoder, f *schema.Field, entries map[interface{}]interface{}) error {
	num := wire.FieldNumber(f.Number)
	val := mapValueField(f)
	for _, key := range sortedMapKeys(entries, f.MapKey) {
		sub := wire.NewEncoder()
		if err := encodeMapComponent(sub, 1, f.MapKey, nil, key); err != nil {
			return err
		}
		if err := encodeMapComponent(sub, 2, val.Kind, val, entries[key]); err != nil {
			return err
		}
		enc.EncodeTag(num, wire.WireBytes)
		wire.NewBytesEncoder(enc).EncodeBytes(sub.Bytes())
	}
	return nil
}

// encodeMapComponent writes one half of a map entry. val is nil for keys.
func encodeMapComponent(enc *wire.Encoder, num wire.FieldNumber, kind schema.Kind, val *schema.Field, value interface{}) error {
	switch kind {
	case schema.KindString:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("expected string map component, got %T", value)
		}
		if s == "" {
			return nil
		}
		enc.EncodeTag(num, wire.WireBytes)
		wire.NewBytesEncoder(enc).EncodeString(s)
		return nil
	case schema.KindBytes:
		b, ok := value.([]byte)
		if !ok {
			return fmt.Errorf("expected []byte map component, got %T", value)
		}
		if len(b) == 0 {
			return nil
		}
		enc.EncodeTag(num, wire.WireBytes)
		wire.NewBytesEncoder(enc).EncodeBytes(b)
		return nil
	case schema.KindMessage:
		if val != nil && val.Wraps != "" {
			wrapped := schema.Field{Name: val.Name, Kind: val.Wraps}
			if isDefault(&wrapped, value) {
				return nil
			}
			sub := wire.NewEncoder()
			if err := encodeScalarField(sub, 1, val.Wraps, value); err != nil {
				return err
			}
			enc.EncodeTag(num, wire.WireBytes)
			wire.NewBytesEncoder(enc).EncodeBytes(sub.Bytes())
			return nil
		}
		child, ok := value.(*Message)
		if !ok {
			return fmt.Errorf("expected *Message map value, got %T", value)
		}
		sub := wire.NewEncoder()
		if err := encodeMessage(sub, child); err != nil {
			return err
		}
		if sub.Len() == 0 {
			return nil
		}
		enc.EncodeTag(num, wire.WireBytes)
		wire.NewBytesEncoder(enc).EncodeBytes(sub.Bytes())
		return nil
	default:
		return encodeScalarField(enc, num, kind, value)
	}
}

// encodeScalarField writes tag plus value for one non-length-delimited
// scalar, or the delimited forms for strings and bytes.
func encodeScalarField(enc *wire.Encoder, num wire.FieldNumber, kind schema.Kind, value interface{}) error {
	switch kind {
	case schema.KindString:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("expected string, got %T", value)
		}
		enc.EncodeTag(num, wire.WireBytes)
		wire.NewBytesEncoder(enc).EncodeString(s)
		return nil
	case schema.KindBytes:
		b, ok := value.([]byte)
		if !ok {
			return fmt.Errorf("expected []byte, got %T", value)
		}
		enc.EncodeTag(num, wire.WireBytes)
		wire.NewBytesEncoder(enc).EncodeBytes(b)
		return nil
	}
	enc.EncodeTag(num, scalarWireType(kind))
	return encodeBareScalar(enc, kind, value)
}

// encodeBareScalar writes a scalar value with no tag, the form packed
// elements use.
func encodeBareScalar(enc *wire.Encoder, kind schema.Kind, value interface{}) error {
	ve := wire.NewVarintEncoder(enc)
	fe := wire.NewFixedEncoder(enc)

	switch kind {
	case schema.KindInt32:
		v, ok := value.(int32)
		if !ok {
			return fmt.Errorf("expected int32, got %T", value)
		}
		ve.EncodeInt32(v)
	case schema.KindInt64:
		v, ok := value.(int64)
		if !ok {
			return fmt.Errorf("expected int64, got %T", value)
		}
		ve.EncodeInt64(v)
	case schema.KindUint32:
		v, ok := value.(uint32)
		if !ok {
			return fmt.Errorf("expected uint32, got %T", value)
		}
		ve.EncodeUint32(v)
	case schema.KindUint64:
		v, ok := value.(uint64)
		if !ok {
			return fmt.Errorf("expected uint64, got %T", value)
		}
		ve.EncodeUint64(v)
	case schema.KindSint32:
		v, ok := value.(int32)
		if !ok {
			return fmt.Errorf("expected int32, got %T", value)
		}
		ve.EncodeSint32(v)
	case schema.KindSint64:
		v, ok := value.(int64)
		if !ok {
			return fmt.Errorf("expected int64, got %T", value)
		}
		ve.EncodeSint64(v)
	case schema.KindBool:
		v, ok := value.(bool)
		if !ok {
			return fmt.Errorf("expected bool, got %T", value)
		}
		ve.EncodeBool(v)
	case schema.KindEnum:
		v, ok := value.(int32)
		if !ok {
			return fmt.Errorf("expected int32 enum, got %T", value)
		}
		ve.EncodeEnum(v)
	case schema.KindFixed32:
		v, ok := value.(uint32)
		if !ok {
			return fmt.Errorf("expected uint32, got %T", value)
		}
		fe.EncodeFixed32(v)
	case schema.KindFixed64:
		v, ok := value.(uint64)
		if !ok {
			return fmt.Errorf("expected uint64, got %T", value)
		}
		fe.EncodeFixed64(v)
	case schema.KindSfixed32:
		v, ok := value.(int32)
		if !ok {
			return fmt.Errorf("expected int32, got %T", value)
		}
		fe.EncodeSfixed32(v)
	case schema.KindSfixed64:
		v, ok := value.(int64)
		if !ok {
			return fmt.Errorf("expected int64, got %T", value)
		}
		fe.EncodeSfixed64(v)
	case schema.KindFloat:
		v, ok := value.(float32)
		if !ok {
			return fmt.Errorf("expected float32, got %T", value)
		}
		fe.EncodeFloat32(v)
	case schema.KindDouble:
		v, ok := value.(float64)
		if !ok {
			return fmt.Errorf("expected float64, got %T", value)
		}
		fe.EncodeFloat64(v)
	default:
		return fmt.Errorf("%s is not a scalar kind", kind)
	}
	return nil
}

// scalarWireType maps a non-delimited scalar kind to its wire type.
func scalarWireType(kind schema.Kind) wire.WireType {
	switch kind {
	case schema.KindFixed32, schema.KindSfixed32, schema.KindFloat:
		return wire.WireFixed32
	case schema.KindFixed64, schema.KindSfixed64, schema.KindDouble:
		return wire.WireFixed64
	default:
		return wire.WireVarint
	}
}

// sortedMapKeys returns the map's keys ordered by their natural value
// order, giving the encoder deterministic output.
func sortedMapKeys(entries map[interface{}]interface{}, kind schema.Kind) []interface{} {
	keys := make([]interface{}, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		switch kind {
		case schema.KindString:
			return keys[i].(string) < keys[j].(string)
		case schema.KindBool:
			return !keys[i].(bool) && keys[j].(bool)
		case schema.KindInt32, schema.KindSint32, schema.KindSfixed32:
			return keys[i].(int32) < keys[j].(int32)
		case schema.KindInt64, schema.KindSint64, schema.KindSfixed64:
			return keys[i].(int64) < keys[j].(int64)
		case schema.KindUint32, schema.KindFixed32:
			return keys[i].(uint32) < keys[j].(uint32)
		default:
			return keys[i].(uint64) < keys[j].(uint64)
		}
	})
	return keys
}

// SIZE COMPUTATION

func sizeMessage(m *Message) int {
	total := 0
	for _, f := range m.desc.Fields {
		total += sizeField(m, f)
	}
	return total + len(m.unknown)
}

func sizeField(m *Message, f *schema.Field) int {
	value, ok := emittable(m, f)
	if !ok {
		return 0
	}

	switch {
	case f.Kind == schema.KindMap:
		return sizeMapField(f, value.(map[interface{}]interface{}))
	case f.Repeated && f.Kind.Packable():
		items := value.([]interface{})
		body := 0
		for _, item := range items {
			body += sizeBareScalar(f.Kind, item)
		}
		return wire.TagSize(wire.FieldNumber(f.Number)) + wire.BytesSize(body)
	case f.Repeated:
		items := value.([]interface{})
		total := 0
		for _, item := range items {
			total += sizeSingular(f, item)
		}
		return total
	default:
		return sizeSingular(f, value)
	}
}

func sizeSingular(f *schema.Field, value interface{}) int {
	tag := wire.TagSize(wire.FieldNumber(f.Number))
	if f.Wraps != "" {
		wrapped := schema.Field{Name: f.Name, Kind: f.Wraps}
		body := 0
		if !isDefault(&wrapped, value) {
			body = sizeScalarComponent(1, f.Wraps, value)
		}
		return tag + wire.VarintSize(uint64(body)) + body
	}
	if f.Kind == schema.KindMessage {
		body := sizeMessage(value.(*Message))
		return tag + wire.VarintSize(uint64(body)) + body
	}
	return sizeScalarComponent(wire.FieldNumber(f.Number), f.Kind, value)
}

func sizeMapField(f *schema.Field, entries map[interface{}]interface{}) int {
	tag := wire.TagSize(wire.FieldNumber(f.Number))
	val := mapValueField(f)
	total := 0
	for key, value := range entries {
		entry := sizeMapComponent(1, f.MapKey, nil, key) + sizeMapComponent(2, val.Kind, val, value)
		total += tag + wire.VarintSize(uint64(entry)) + entry
	}
	return total
}

func sizeMapComponent(num wire.FieldNumber, kind schema.Kind, val *schema.Field, value interface{}) int {
	switch kind {
	case schema.KindString:
		s, _ := value.(string)
		if s == "" {
			return 0
		}
	case schema.KindBytes:
		b, _ := value.([]byte)
		if len(b) == 0 {
			return 0
		}
	case schema.KindMessage:
		if val != nil && val.Wraps != "" {
			wrapped := schema.Field{Name: val.Name, Kind: val.Wraps}
			if isDefault(&wrapped, value) {
				return 0
			}
			body := sizeScalarComponent(1, val.Wraps, value)
			return wire.TagSize(num) + wire.VarintSize(uint64(body)) + body
		}
		child, _ := value.(*Message)
		body := sizeMessage(child)
		if body == 0 {
			return 0
		}
		return wire.TagSize(num) + wire.VarintSize(uint64(body)) + body
	}
	return sizeScalarComponent(num, kind, value)
}

// sizeScalarComponent sizes one tagged scalar, including delimited forms.
func sizeScalarComponent(num wire.FieldNumber, kind schema.Kind, value interface{}) int {
	tag := wire.TagSize(num)
	switch kind {
	case schema.KindString:
		s, _ := value.(string)
		return tag + wire.BytesSize(len(s))
	case schema.KindBytes:
		b, _ := value.([]byte)
		return tag + wire.BytesSize(len(b))
	case schema.KindMessage:
		child, _ := value.(*Message)
		body := sizeMessage(child)
		return tag + wire.VarintSize(uint64(body)) + body
	}
	return tag + sizeBareScalar(kind, value)
}

// sizeBareScalar sizes a scalar with no tag, mirroring encodeBareScalar.
func sizeBareScalar(kind schema.Kind, value interface{}) int {
	switch kind {
	case schema.KindInt32:
		v, _ := value.(int32)
		return wire.VarintSize(uint64(int64(v)))
	case schema.KindInt64:
		v, _ := value.(int64)
		return wire.VarintSize(uint64(v))
	case schema.KindUint32:
		v, _ := value.(uint32)
		return wire.VarintSize(uint64(v))
	case schema.KindUint64:
		v, _ := value.(uint64)
		return wire.VarintSize(v)
	case schema.KindSint32:
		v, _ := value.(int32)
		return wire.VarintSize(wire.EncodeZigZag32(v))
	case schema.KindSint64:
		v, _ := value.(int64)
		return wire.VarintSize(wire.EncodeZigZag64(v))
	case schema.KindBool:
		return 1
	case schema.KindEnum:
		v, _ := value.(int32)
		return wire.VarintSize(uint64(int64(v)))
	case schema.KindFixed32, schema.KindSfixed32, schema.KindFloat:
		return 4
	case schema.KindFixed64, schema.KindSfixed64, schema.KindDouble:
		return 8
	}
	return 0
}
