package protomsg

import (
	"bytes"
	"fmt"
	"math"
	"reflect"
	"strings"
	"time"

	"github.com/anirudhraja/protomsg/schema"
)

// presence is the tri-state condition of a field slot. Fields start unset;
// assigning a value moves them to hasValue; assigning nil to a field that
// tracks presence records an explicit null, which still counts as absent on
// the wire but, for oneof members, selects the group.
type presence int

const (
	notSet presence = iota
	hasValue
	explicitNull
)

// Message is a dynamic protobuf message: a descriptor plus one value slot
// per field. Values use native Go representations (int32, uint64, string,
// []byte, *Message, []interface{} for repeated fields,
// map[interface{}]interface{} for map fields). Unrecognized fields seen
// during Unmarshal are preserved verbatim and re-emitted by Marshal.
//
// A Message is not safe for concurrent mutation.
type Message struct {
	desc     *schema.MessageDescriptor
	values   map[string]interface{}
	state    map[string]presence
	groups   map[string]string // oneof name -> selected member name
	unknown  []byte            // raw tag+payload spans, decode order
	wireSeen bool              // deserialized from the wire, or explicitly assigned to a parent
}

// New creates an empty message for the given descriptor. It panics if the
// descriptor fails validation; descriptors are program structure, not input.
func New(desc *schema.MessageDescriptor) *Message {
	if desc == nil {
		panic("protomsg: New called with nil descriptor")
	}
	if err := desc.Validate(); err != nil {
		panic("protomsg: " + err.Error())
	}
	return &Message{
		desc:   desc,
		values: make(map[string]interface{}),
		state:  make(map[string]presence),
		groups: make(map[string]string),
	}
}

// Descriptor returns the descriptor this message was built from.
func (m *Message) Descriptor() *schema.MessageDescriptor {
	return m.desc
}

// mustField resolves a field name or panics. Field names come from code,
// not from input, so a miss is a programmer error.
func (m *Message) mustField(name string) *schema.Field {
	f := m.desc.FieldByName(name)
	if f == nil {
		panic(fmt.Sprintf("protomsg: message %s has no field %q", m.desc.Name, name))
	}
	return f
}

// ACCESSORS

// Get returns the current value of the named field, or its zero value when
// the field is unset. Unset plain singular message fields materialize an
// empty child message and keep it, so chained access like
// m.Get("outer").(*Message).Set("inner", v) works; the child stays absent
// from the wire until one of its fields is set or it is assigned via Set.
// Optional and oneof message fields return nil instead of materializing,
// since reading them must not affect presence. Get panics on an unknown
// field name.
func (m *Message) Get(name string) interface{} {
	f := m.mustField(name)
	if m.state[f.Name] == hasValue {
		return m.values[f.Name]
	}

	switch {
	case f.Kind == schema.KindMap:
		return map[interface{}]interface{}{}
	case f.Repeated:
		return []interface{}{}
	case f.Kind == schema.KindMessage && f.Wraps == "":
		if child, ok := m.values[f.Name].(*Message); ok && child != nil {
			return child
		}
		if f.Optional || f.Oneof != "" {
			return nil
		}
		// Get-or-create for plain submessages.
		child := New(f.Message)
		m.values[f.Name] = child
		return child
	default:
		return zeroValue(f)
	}
}

// Set assigns a value to the named field. Assigning to a oneof member
// clears every other member of the group and marks this one selected.
// Assigning a child message marks that child as present, so an empty
// submessage still serializes as a zero-length field. Assigning nil to a
// message, optional, or oneof field records an explicit null; nil on any
// other field panics, as does an unknown field name or a value that cannot
// be coerced to the field's kind.
func (m *Message) Set(name string, value interface{}) {
	f := m.mustField(name)

	m.wireSeen = true

	if value == nil {
		if f.Kind != schema.KindMessage && !f.Optional && f.Oneof == "" {
			panic(fmt.Sprintf("protomsg: cannot assign nil to field %s.%s", m.desc.Name, f.Name))
		}
		delete(m.values, f.Name)
		m.state[f.Name] = explicitNull
		m.selectOneof(f)
		return
	}

	v := m.coerce(f, value)
	if child, ok := v.(*Message); ok {
		child.wireSeen = true
	}
	m.values[f.Name] = v
	m.state[f.Name] = hasValue
	m.selectOneof(f)
}

// selectOneof marks f as its group's selected member and evicts siblings.
func (m *Message) selectOneof(f *schema.Field) {
	if f.Oneof == "" {
		return
	}
	for _, member := range m.desc.OneofFields(f.Oneof) {
		if member.Name == f.Name {
			continue
		}
		delete(m.values, member.Name)
		delete(m.state, member.Name)
	}
	m.groups[f.Oneof] = f.Name
}

// Clear resets the named field to unset. Clearing the selected member of a
// oneof deselects the group.
func (m *Message) Clear(name string) {
	f := m.mustField(name)
	delete(m.values, f.Name)
	delete(m.state, f.Name)
	if f.Oneof != "" && m.groups[f.Oneof] == f.Name {
		delete(m.groups, f.Oneof)
	}
}

// Has reports whether the named field holds an explicitly assigned or
// decoded value. Explicit nulls and lazily materialized children report
// false.
func (m *Message) Has(name string) bool {
	f := m.mustField(name)
	return m.state[f.Name] == hasValue
}

// WhichOneof returns the name and value of the selected member of the named
// oneof group, or ("", nil) when no member is set or the group does not
// exist.
func (m *Message) WhichOneof(group string) (string, interface{}) {
	name, ok := m.groups[group]
	if !ok || name == "" {
		return "", nil
	}
	return name, m.Get(name)
}

// VALUE COERCION

// coerce normalizes an assigned value into the field's canonical in-memory
// representation, panicking when the value cannot represent the kind.
func (m *Message) coerce(f *schema.Field, value interface{}) interface{} {
	switch {
	case f.Kind == schema.KindMap:
		return m.coerceMap(f, value)
	case f.Repeated:
		return m.coerceRepeated(f, value)
	default:
		return m.coerceSingular(f, value)
	}
}

func (m *Message) coerceSingular(f *schema.Field, value interface{}) interface{} {
	if f.Kind == schema.KindMessage {
		if f.Wraps != "" {
			return m.coerceScalar(f, f.Wraps, value)
		}
		switch v := value.(type) {
		case *Message:
			if v.desc != f.Message {
				panic(fmt.Sprintf("protomsg: field %s.%s expects message %s, got %s",
					m.desc.Name, f.Name, f.Message.Name, v.desc.Name))
			}
			return v
		case time.Time:
			if f.Message.Name == schema.WKTTimestamp {
				return NewTimestamp(v)
			}
		case time.Duration:
			if f.Message.Name == schema.WKTDuration {
				return NewDuration(v)
			}
		}
		panic(fmt.Sprintf("protomsg: cannot assign %T to message field %s.%s", value, m.desc.Name, f.Name))
	}
	return m.coerceScalar(f, f.Kind, value)
}

// coerceScalar converts common Go numeric spellings into the canonical
// representation for a scalar kind. Out-of-range values panic rather than
// silently truncate.
func (m *Message) coerceScalar(f *schema.Field, kind schema.Kind, value interface{}) interface{} {
	fail := func() interface{} {
		panic(fmt.Sprintf("protomsg: cannot assign %T to field %s.%s (%s)", value, m.desc.Name, f.Name, kind))
	}

	switch kind {
	case schema.KindDouble:
		switch v := value.(type) {
		case float64:
			return v
		case float32:
			return float64(v)
		case int:
			return float64(v)
		}
	case schema.KindFloat:
		switch v := value.(type) {
		case float32:
			return v
		case float64:
			return float32(v)
		case int:
			return float32(v)
		}
	case schema.KindInt32, schema.KindSint32, schema.KindSfixed32, schema.KindEnum:
		if n, ok := asInt64(value); ok {
			if n < math.MinInt32 || n > math.MaxInt32 {
				panic(fmt.Sprintf("protomsg: value %d overflows 32-bit field %s.%s", n, m.desc.Name, f.Name))
			}
			return int32(n)
		}
	case schema.KindInt64, schema.KindSint64, schema.KindSfixed64:
		if n, ok := asInt64(value); ok {
			return n
		}
	case schema.KindUint32, schema.KindFixed32:
		if n, ok := asUint64(value); ok {
			if n > math.MaxUint32 {
				panic(fmt.Sprintf("protomsg: value %d overflows 32-bit field %s.%s", n, m.desc.Name, f.Name))
			}
			return uint32(n)
		}
	case schema.KindUint64, schema.KindFixed64:
		if n, ok := asUint64(value); ok {
			return n
		}
	case schema.KindBool:
		if v, ok := value.(bool); ok {
			return v
		}
	case schema.KindString:
		if v, ok := value.(string); ok {
			return v
		}
	case schema.KindBytes:
		if v, ok := value.([]byte); ok {
			return v
		}
	}
	return fail()
}

func asInt64(value interface{}) (int64, bool) {
	switch v := value.(type) {
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case int:
		return int64(v), true
	case int16:
		return int64(v), true
	case int8:
		return int64(v), true
	}
	return 0, false
}

func asUint64(value interface{}) (uint64, bool) {
	switch v := value.(type) {
	case uint32:
		return uint64(v), true
	case uint64:
		return v, true
	case uint:
		return uint64(v), true
	case uint16:
		return uint64(v), true
	case uint8:
		return uint64(v), true
	case int:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	case int64:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	}
	return 0, false
}

// coerceRepeated accepts []interface{} or any typed slice and normalizes it
// into []interface{} with each element coerced.
func (m *Message) coerceRepeated(f *schema.Field, value interface{}) interface{} {
	elem := *f
	elem.Repeated = false

	if items, ok := value.([]interface{}); ok {
		out := make([]interface{}, len(items))
		for i, it := range items {
			out[i] = m.coerceSingular(&elem, it)
		}
		return out
	}

	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice {
		panic(fmt.Sprintf("protomsg: cannot assign %T to repeated field %s.%s", value, m.desc.Name, f.Name))
	}
	out := make([]interface{}, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out[i] = m.coerceSingular(&elem, rv.Index(i).Interface())
	}
	return out
}

// coerceMap accepts map[interface{}]interface{} or any typed map and
// normalizes keys and values into their canonical representations.
// Wrapper-typed values coerce to their bare scalars, same as singular
// wrapper fields.
func (m *Message) coerceMap(f *schema.Field, value interface{}) interface{} {
	key := schema.Field{Name: f.Name, Kind: f.MapKey}
	val := mapValueField(f)

	out := make(map[interface{}]interface{})
	if entries, ok := value.(map[interface{}]interface{}); ok {
		for k, v := range entries {
			out[m.coerceScalar(&key, f.MapKey, k)] = m.coerceSingular(val, v)
		}
		return out
	}

	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Map {
		panic(fmt.Sprintf("protomsg: cannot assign %T to map field %s.%s", value, m.desc.Name, f.Name))
	}
	iter := rv.MapRange()
	for iter.Next() {
		out[m.coerceScalar(&key, f.MapKey, iter.Key().Interface())] = m.coerceSingular(val, iter.Value().Interface())
	}
	return out
}

// DEFAULTS AND EQUALITY

// zeroValue returns the proto3 default for a singular field.
func zeroValue(f *schema.Field) interface{} {
	kind := f.Kind
	if f.Wraps != "" {
		kind = f.Wraps
	}
	switch kind {
	case schema.KindDouble:
		return float64(0)
	case schema.KindFloat:
		return float32(0)
	case schema.KindInt32, schema.KindSint32, schema.KindSfixed32, schema.KindEnum:
		return int32(0)
	case schema.KindInt64, schema.KindSint64, schema.KindSfixed64:
		return int64(0)
	case schema.KindUint32, schema.KindFixed32:
		return uint32(0)
	case schema.KindUint64, schema.KindFixed64:
		return uint64(0)
	case schema.KindBool:
		return false
	case schema.KindString:
		return ""
	case schema.KindBytes:
		return []byte(nil)
	}
	return nil
}

// isDefault reports whether a stored value equals the field's proto3
// default, the condition under which the encoder omits it.
func isDefault(f *schema.Field, value interface{}) bool {
	switch {
	case f.Kind == schema.KindMap:
		v, ok := value.(map[interface{}]interface{})
		return ok && len(v) == 0
	case f.Repeated:
		v, ok := value.([]interface{})
		return ok && len(v) == 0
	case f.Kind == schema.KindMessage && f.Wraps == "":
		child, ok := value.(*Message)
		return ok && child.isZero()
	}

	switch v := value.(type) {
	case float64:
		return v == 0
	case float32:
		return v == 0
	case int32:
		return v == 0
	case int64:
		return v == 0
	case uint32:
		return v == 0
	case uint64:
		return v == 0
	case bool:
		return !v
	case string:
		return v == ""
	case []byte:
		return len(v) == 0
	}
	return false
}

// isZero reports whether the message would contribute nothing to the wire:
// every field unset or default, and no submessage carrying presence. A
// child reached through Get counts once it has been marked seen or holds a
// non-default value. Unknown fields are ignored, matching Equal.
func (m *Message) isZero() bool {
	if m == nil {
		return true
	}
	for _, f := range m.desc.Fields {
		st := m.state[f.Name]
		if f.Kind == schema.KindMessage && !f.Repeated && f.Wraps == "" {
			if st == explicitNull {
				continue
			}
			child, ok := m.values[f.Name].(*Message)
			if !ok {
				continue
			}
			if child.wireSeen || !child.isZero() {
				return false
			}
			continue
		}
		if st != hasValue {
			continue
		}
		if f.HasPresence() {
			return false
		}
		if !isDefault(f, m.values[f.Name]) {
			return false
		}
	}
	return true
}

// Equal reports whether two messages of the same descriptor hold equal
// values field by field. Unset fields compare as their defaults, two NaN
// floats compare equal, and unknown fields are ignored.
func Equal(a, b *Message) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.desc != b.desc {
		return false
	}
	for _, f := range a.desc.Fields {
		if !fieldEqual(f, a, b) {
			return false
		}
	}
	return true
}

func fieldEqual(f *schema.Field, a, b *Message) bool {
	// Plain submessages compare by wire presence and value, so a child
	// filled in through Get equals the same child assigned with Set.
	if f.Kind == schema.KindMessage && !f.Repeated && f.Wraps == "" && !f.Optional && f.Oneof == "" {
		ac, _ := a.values[f.Name].(*Message)
		bc, _ := b.values[f.Name].(*Message)
		aPresent := ac != nil && (ac.wireSeen || !ac.isZero())
		bPresent := bc != nil && (bc.wireSeen || !bc.isZero())
		if aPresent != bPresent {
			return false
		}
		if !aPresent {
			return true
		}
		return Equal(ac, bc)
	}

	aHas := a.state[f.Name] == hasValue
	bHas := b.state[f.Name] == hasValue

	if f.HasPresence() {
		if aHas != bHas {
			return false
		}
		if !aHas {
			return true
		}
		return valueEqual(f, a.values[f.Name], b.values[f.Name])
	}

	av := a.values[f.Name]
	bv := b.values[f.Name]
	if !aHas {
		av = emptyOrZero(f)
	}
	if !bHas {
		bv = emptyOrZero(f)
	}
	return valueEqual(f, av, bv)
}

func emptyOrZero(f *schema.Field) interface{} {
	switch {
	case f.Kind == schema.KindMap:
		return map[interface{}]interface{}{}
	case f.Repeated:
		return []interface{}{}
	default:
		return zeroValue(f)
	}
}

// valueEqual compares two canonical values of the same field.
func valueEqual(f *schema.Field, a, b interface{}) bool {
	switch {
	case f.Kind == schema.KindMap:
		am, _ := a.(map[interface{}]interface{})
		bm, _ := b.(map[interface{}]interface{})
		if len(am) != len(bm) {
			return false
		}
		val := mapValueField(f)
		for k, av := range am {
			bv, ok := bm[k]
			if !ok || !scalarOrMessageEqual(val, av, bv) {
				return false
			}
		}
		return true
	case f.Repeated:
		as, _ := a.([]interface{})
		bs, _ := b.([]interface{})
		if len(as) != len(bs) {
			return false
		}
		elem := *f
		elem.Repeated = false
		for i := range as {
			if !scalarOrMessageEqual(&elem, as[i], bs[i]) {
				return false
			}
		}
		return true
	default:
		return scalarOrMessageEqual(f, a, b)
	}
}

func scalarOrMessageEqual(f *schema.Field, a, b interface{}) bool {
	if f.Kind == schema.KindMessage && f.Wraps == "" {
		am, _ := a.(*Message)
		bm, _ := b.(*Message)
		return Equal(am, bm)
	}
	switch av := a.(type) {
	case float64:
		bv, ok := b.(float64)
		if !ok {
			return false
		}
		if math.IsNaN(av) && math.IsNaN(bv) {
			return true
		}
		return av == bv
	case float32:
		bv, ok := b.(float32)
		if !ok {
			return false
		}
		if math.IsNaN(float64(av)) && math.IsNaN(float64(bv)) {
			return true
		}
		return av == bv
	case []byte:
		bv, ok := b.([]byte)
		return ok && bytes.Equal(av, bv)
	default:
		return a == b
	}
}

// mapValueField builds a synthetic singular field describing a map's value
// slot, reused by comparison, cloning, and the encoders.
func mapValueField(f *schema.Field) *schema.Field {
	fv := &schema.Field{
		Name:    f.Name,
		Kind:    f.MapValue,
		Message: f.MapValueMessage,
		Enum:    f.MapValueEnum,
	}
	if fv.Message != nil {
		if k, ok := schema.WrapperKind(fv.Message.Name); ok {
			fv.Wraps = k
		}
	}
	return fv
}

// CLONING AND DEBUG

// Clone returns a deep copy sharing no mutable state with the original,
// including its unknown fields and presence bookkeeping.
func Clone(m *Message) *Message {
	if m == nil {
		return nil
	}
	out := New(m.desc)
	for _, f := range m.desc.Fields {
		if st, ok := m.state[f.Name]; ok {
			out.state[f.Name] = st
		}
		if _, ok := m.values[f.Name]; !ok {
			continue
		}
		out.values[f.Name] = cloneValue(f, m.values[f.Name])
	}
	for group, name := range m.groups {
		out.groups[group] = name
	}
	if len(m.unknown) > 0 {
		out.unknown = append([]byte(nil), m.unknown...)
	}
	out.wireSeen = m.wireSeen
	return out
}

func cloneValue(f *schema.Field, value interface{}) interface{} {
	switch {
	case f.Kind == schema.KindMap:
		src, _ := value.(map[interface{}]interface{})
		val := mapValueField(f)
		out := make(map[interface{}]interface{}, len(src))
		for k, v := range src {
			out[k] = cloneSingular(val, v)
		}
		return out
	case f.Repeated:
		src, _ := value.([]interface{})
		elem := *f
		elem.Repeated = false
		out := make([]interface{}, len(src))
		for i, v := range src {
			out[i] = cloneSingular(&elem, v)
		}
		return out
	default:
		return cloneSingular(f, value)
	}
}

func cloneSingular(f *schema.Field, value interface{}) interface{} {
	if f.Kind == schema.KindMessage && f.Wraps == "" {
		child, _ := value.(*Message)
		return Clone(child)
	}
	if b, ok := value.([]byte); ok {
		return append([]byte(nil), b...)
	}
	return value
}

// String renders the message for debugging: the type name and every set
// field in declaration order.
func (m *Message) String() string {
	if m == nil {
		return "<nil>"
	}
	var parts []string
	for _, f := range m.desc.Fields {
		switch m.state[f.Name] {
		case hasValue:
			parts = append(parts, fmt.Sprintf("%s=%v", f.Name, m.values[f.Name]))
		case explicitNull:
			parts = append(parts, f.Name+"=null")
		}
	}
	return fmt.Sprintf("%s(%s)", m.desc.Name, strings.Join(parts, ", "))
}
