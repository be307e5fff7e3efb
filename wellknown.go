package protomsg

import (
	"fmt"
	"strings"
	"time"

	"github.com/anirudhraja/protomsg/casing"
	"github.com/anirudhraja/protomsg/schema"
)

// Helpers for the google.protobuf types that get native Go representations
// and dedicated JSON forms. Fields typed as Timestamp or Duration accept
// time.Time and time.Duration directly in Set; the functions here cover
// explicit construction and extraction.

// NewTimestamp builds a google.protobuf.Timestamp message from t.
func NewTimestamp(t time.Time) *Message {
	m := New(schema.TimestampDescriptor)
	m.Set("seconds", t.Unix())
	m.Set("nanos", int32(t.Nanosecond()))
	return m
}

// AsTime converts a Timestamp message to a UTC time.Time. A nil or empty
// message yields the Unix epoch.
func AsTime(m *Message) time.Time {
	var sec int64
	var nanos int32
	if m != nil {
		sec, _ = m.Get("seconds").(int64)
		nanos, _ = m.Get("nanos").(int32)
	}
	return time.Unix(sec, int64(nanos)).UTC()
}

// NewDuration builds a google.protobuf.Duration message from d.
func NewDuration(d time.Duration) *Message {
	m := New(schema.DurationDescriptor)
	m.Set("seconds", int64(d/time.Second))
	m.Set("nanos", int32(d%time.Second))
	return m
}

// AsDuration converts a Duration message to a time.Duration. Values beyond
// the int64 nanosecond range saturate.
func AsDuration(m *Message) time.Duration {
	var sec int64
	var nanos int32
	if m != nil {
		sec, _ = m.Get("seconds").(int64)
		nanos, _ = m.Get("nanos").(int32)
	}
	d := time.Duration(sec) * time.Second
	if overflow := d/time.Second != time.Duration(sec); overflow {
		if sec < 0 {
			return time.Duration(minInt64)
		}
		return time.Duration(maxInt64)
	}
	return d + time.Duration(nanos)
}

const (
	minInt64 = -1 << 63
	maxInt64 = 1<<63 - 1
)

// JSON FORMS

// timestampToJSON renders a Timestamp as RFC3339 UTC with 0, 3, 6, or 9
// fractional digits, whichever is the shortest exact form.
func timestampToJSON(m *Message) string {
	t := AsTime(m)
	base := t.Format("2006-01-02T15:04:05")
	n := t.Nanosecond()
	switch {
	case n == 0:
		return base + "Z"
	case n%1e6 == 0:
		return fmt.Sprintf("%s.%03dZ", base, n/1e6)
	case n%1e3 == 0:
		return fmt.Sprintf("%s.%06dZ", base, n/1e3)
	default:
		return fmt.Sprintf("%s.%09dZ", base, n)
	}
}

// timestampFromJSON parses an RFC3339 string, accepting offsets, and
// normalizes to UTC.
func timestampFromJSON(s string) (*Message, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil, fmt.Errorf("invalid timestamp %q: %v", s, err)
	}
	return NewTimestamp(t), nil
}

// durationToJSON renders a Duration as seconds with a fraction padded to
// 3, 6, or 9 digits.
func durationToJSON(m *Message) string {
	var sec int64
	var nanos int32
	if m != nil {
		sec, _ = m.Get("seconds").(int64)
		nanos, _ = m.Get("nanos").(int32)
	}
	sign := ""
	if sec < 0 || nanos < 0 {
		sign = "-"
	}
	if sec < 0 {
		sec = -sec
	}
	n := int64(nanos)
	if n < 0 {
		n = -n
	}
	switch {
	case n%1e6 == 0:
		return fmt.Sprintf("%s%d.%03ds", sign, sec, n/1e6)
	case n%1e3 == 0:
		return fmt.Sprintf("%s%d.%06ds", sign, sec, n/1e3)
	default:
		return fmt.Sprintf("%s%d.%09ds", sign, sec, n)
	}
}

// durationFromJSON parses the "1.500s" form. time.ParseDuration covers the
// canonical grammar and bounds the result to the int64 nanosecond range.
func durationFromJSON(s string) (*Message, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return nil, fmt.Errorf("invalid duration %q: %v", s, err)
	}
	return NewDuration(d), nil
}

// STRUCT / VALUE / LISTVALUE

// valueToNative converts a google.protobuf.Value message to the native
// JSON shape it represents.
func valueToNative(m *Message) interface{} {
	if m == nil {
		return nil
	}
	name, v := m.WhichOneof("kind")
	switch name {
	case "number_value":
		return v
	case "string_value":
		return v
	case "bool_value":
		return v
	case "struct_value":
		child, _ := v.(*Message)
		return structToNative(child)
	case "list_value":
		child, _ := v.(*Message)
		return listValueToNative(child)
	default:
		// null_value or nothing selected
		return nil
	}
}

// structToNative converts a Struct message to map[string]interface{}.
func structToNative(m *Message) map[string]interface{} {
	out := make(map[string]interface{})
	if m == nil {
		return out
	}
	fields, _ := m.Get("fields").(map[interface{}]interface{})
	for k, v := range fields {
		key, _ := k.(string)
		child, _ := v.(*Message)
		out[key] = valueToNative(child)
	}
	return out
}

// listValueToNative converts a ListValue message to []interface{}.
func listValueToNative(m *Message) []interface{} {
	out := []interface{}{}
	if m == nil {
		return out
	}
	items, _ := m.Get("values").([]interface{})
	for _, it := range items {
		child, _ := it.(*Message)
		out = append(out, valueToNative(child))
	}
	return out
}

// valueFromNative wraps a native JSON value in a google.protobuf.Value
// message. Numbers of any Go integer or float spelling become
// number_value.
func valueFromNative(v interface{}) (*Message, error) {
	m := New(schema.ValueDescriptor)
	switch x := v.(type) {
	case nil:
		m.Set("null_value", int32(0))
	case bool:
		m.Set("bool_value", x)
	case string:
		m.Set("string_value", x)
	case float64:
		m.Set("number_value", x)
	case float32:
		m.Set("number_value", float64(x))
	case int:
		m.Set("number_value", float64(x))
	case int32:
		m.Set("number_value", float64(x))
	case int64:
		m.Set("number_value", float64(x))
	case map[string]interface{}:
		child, err := structFromNative(x)
		if err != nil {
			return nil, err
		}
		m.Set("struct_value", child)
	case []interface{}:
		child, err := listValueFromNative(x)
		if err != nil {
			return nil, err
		}
		m.Set("list_value", child)
	default:
		if n, ok := numberFromJSON(v); ok {
			m.Set("number_value", n)
			return m, nil
		}
		return nil, fmt.Errorf("cannot represent %T as a Struct value", v)
	}
	return m, nil
}

// structFromNative builds a Struct message from a plain string-keyed map.
func structFromNative(fields map[string]interface{}) (*Message, error) {
	m := New(schema.StructDescriptor)
	entries := make(map[interface{}]interface{}, len(fields))
	for k, v := range fields {
		child, err := valueFromNative(v)
		if err != nil {
			return nil, wrapWithField(err, k)
		}
		entries[k] = child
	}
	m.Set("fields", entries)
	return m, nil
}

// listValueFromNative builds a ListValue message from a plain slice.
func listValueFromNative(items []interface{}) (*Message, error) {
	m := New(schema.ListValueDescriptor)
	values := make([]interface{}, len(items))
	for i, it := range items {
		child, err := valueFromNative(it)
		if err != nil {
			return nil, err
		}
		values[i] = child
	}
	m.Set("values", values)
	return m, nil
}

// FIELDMASK

// fieldMaskToJSON renders a FieldMask as its canonical comma-joined
// camelCase path list.
func fieldMaskToJSON(m *Message) string {
	if m == nil {
		return ""
	}
	paths, _ := m.Get("paths").([]interface{})
	parts := make([]string, 0, len(paths))
	for _, p := range paths {
		s, _ := p.(string)
		parts = append(parts, caseEachSegment(s, casing.CamelCase))
	}
	return strings.Join(parts, ",")
}

// caseEachSegment applies a casing function to every dot-separated segment
// of a field path, leaving the dots in place.
func caseEachSegment(path string, fn func(string) string) string {
	segs := strings.Split(path, ".")
	for i, seg := range segs {
		segs[i] = fn(seg)
	}
	return strings.Join(segs, ".")
}

// fieldMaskFromJSON parses a comma-joined path list back into a FieldMask,
// snake_casing each path segment.
func fieldMaskFromJSON(s string) *Message {
	m := New(schema.FieldMaskDescriptor)
	if s == "" {
		m.Set("paths", []interface{}{})
		return m
	}
	var paths []interface{}
	for _, part := range strings.Split(s, ",") {
		paths = append(paths, caseEachSegment(strings.TrimSpace(part), casing.SnakeCase))
	}
	m.Set("paths", paths)
	return m
}
