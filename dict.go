package protomsg

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/anirudhraja/protomsg/casing"
	"github.com/anirudhraja/protomsg/schema"
)

// Casing selects the key style ToDict produces.
type Casing int

const (
	// CasingCamel keys dicts by json_name when declared, camelCase of the
	// field name otherwise. This is the canonical protobuf JSON style.
	CasingCamel Casing = iota
	// CasingSnake keys dicts by the declared field names.
	CasingSnake
)

type dictOptions struct {
	casing          Casing
	includeDefaults bool
}

// DictOption adjusts how ToDict renders a message.
type DictOption func(*dictOptions)

// WithCasing selects the output key style.
func WithCasing(c Casing) DictOption {
	return func(o *dictOptions) { o.casing = c }
}

// WithDefaults includes fields holding their default values, rendering
// unset optional, wrapper, and oneof fields as null.
func WithDefaults() DictOption {
	return func(o *dictOptions) { o.includeDefaults = true }
}

// ToDict converts a message to a plain map following protobuf's JSON
// mapping: 64-bit integers as decimal strings, bytes as standard base64,
// enums by name, non-finite floats as "Infinity"/"-Infinity"/"NaN"
// strings, and well-known types in their dedicated forms. Fields at their
// defaults are omitted unless WithDefaults is given.
func ToDict(m *Message, opts ...DictOption) (map[string]interface{}, error) {
	if m == nil {
		return nil, ErrNilMessage
	}
	var o dictOptions
	for _, opt := range opts {
		opt(&o)
	}
	return messageToDict(m, &o)
}

func messageToDict(m *Message, o *dictOptions) (map[string]interface{}, error) {
	out := make(map[string]interface{})
	for _, f := range m.desc.Fields {
		value, emit, err := dictField(m, f, o)
		if err != nil {
			return nil, wrapWithField(err, f.Name)
		}
		if !emit {
			continue
		}
		key := f.Name
		if o.casing == CasingCamel {
			key = schema.JSONKey(f)
		}
		out[key] = value
	}
	return out, nil
}

// dictField renders one field, reporting whether it should appear at all.
func dictField(m *Message, f *schema.Field, o *dictOptions) (interface{}, bool, error) {
	st := m.state[f.Name]
	value := m.values[f.Name]

	switch {
	case f.Kind == schema.KindMap:
		entries, _ := value.(map[interface{}]interface{})
		if len(entries) == 0 && !o.includeDefaults {
			return nil, false, nil
		}
		val := mapValueField(f)
		out := make(map[string]interface{}, len(entries))
		for k, v := range entries {
			dv, err := dictSingular(val, v, o)
			if err != nil {
				return nil, false, err
			}
			out[mapKeyToString(f.MapKey, k)] = dv
		}
		return out, true, nil

	case f.Repeated:
		items, _ := value.([]interface{})
		if len(items) == 0 && !o.includeDefaults {
			return nil, false, nil
		}
		elem := *f
		elem.Repeated = false
		out := make([]interface{}, len(items))
		for i, item := range items {
			dv, err := dictSingular(&elem, item, o)
			if err != nil {
				return nil, false, err
			}
			out[i] = dv
		}
		return out, true, nil

	case f.Kind == schema.KindMessage && f.Wraps == "":
		child, ok := value.(*Message)
		if ok && (child.wireSeen || !child.isZero()) {
			dv, err := dictSingular(f, child, o)
			return dv, true, err
		}
		if !o.includeDefaults {
			return nil, false, nil
		}
		if f.Optional || f.Oneof != "" {
			return nil, true, nil
		}
		return defaultMessageDict(f, o)

	default:
		selected := f.Oneof != "" && m.groups[f.Oneof] == f.Name
		if st == hasValue {
			if !o.includeDefaults && !selected && !f.Optional && f.Wraps == "" && isDefault(f, value) {
				return nil, false, nil
			}
			dv, err := dictSingular(f, value, o)
			return dv, true, err
		}
		if !o.includeDefaults {
			return nil, false, nil
		}
		if f.Optional || f.Oneof != "" || f.Wraps != "" || st == explicitNull {
			return nil, true, nil
		}
		dv, err := dictSingular(f, zeroValue(f), o)
		return dv, true, err
	}
}

// defaultMessageDict renders the include-defaults form of an unset plain
// message field.
func defaultMessageDict(f *schema.Field, o *dictOptions) (interface{}, bool, error) {
	switch f.Message.Name {
	case schema.WKTTimestamp:
		return "1970-01-01T00:00:00Z", true, nil
	case schema.WKTDuration:
		return "0.000s", true, nil
	case schema.WKTStruct:
		return map[string]interface{}{}, true, nil
	case schema.WKTValue:
		return nil, true, nil
	case schema.WKTListValue:
		return []interface{}{}, true, nil
	case schema.WKTFieldMask:
		return "", true, nil
	}
	dv, err := messageToDict(New(f.Message), o)
	return dv, true, err
}

// dictSingular renders one singular value: submessages become nested
// dicts or their well-known forms, wrappers unwrap, scalars follow the
// JSON scalar rules.
func dictSingular(f *schema.Field, value interface{}, o *dictOptions) (interface{}, error) {
	if f.Kind != schema.KindMessage {
		return dictScalar(f.Kind, f.Enum, value), nil
	}
	if f.Wraps != "" {
		return dictScalar(f.Wraps, nil, value), nil
	}
	child, ok := value.(*Message)
	if !ok {
		return nil, fmt.Errorf("expected *Message, got %T", value)
	}
	switch f.Message.Name {
	case schema.WKTTimestamp:
		return timestampToJSON(child), nil
	case schema.WKTDuration:
		return durationToJSON(child), nil
	case schema.WKTStruct:
		return structToNative(child), nil
	case schema.WKTValue:
		return valueToNative(child), nil
	case schema.WKTListValue:
		return listValueToNative(child), nil
	case schema.WKTFieldMask:
		return fieldMaskToJSON(child), nil
	}
	return messageToDict(child, o)
}

// dictScalar renders a scalar following the JSON mapping. 32-bit integers,
// bools, and strings pass through with their native types.
func dictScalar(kind schema.Kind, enum *schema.EnumDescriptor, value interface{}) interface{} {
	switch kind {
	case schema.KindInt64, schema.KindSint64, schema.KindSfixed64:
		v, _ := value.(int64)
		return strconv.FormatInt(v, 10)
	case schema.KindUint64, schema.KindFixed64:
		v, _ := value.(uint64)
		return strconv.FormatUint(v, 10)
	case schema.KindBytes:
		v, _ := value.([]byte)
		return base64.StdEncoding.EncodeToString(v)
	case schema.KindEnum:
		v, _ := value.(int32)
		if enum != nil {
			if name, ok := enum.NameByNumber(v); ok {
				return name
			}
		}
		// Open enums: numbers with no declared name stay numeric.
		return v
	case schema.KindDouble:
		v, _ := value.(float64)
		return renderFloat(v)
	case schema.KindFloat:
		v, _ := value.(float32)
		r := renderFloat(float64(v))
		if _, isString := r.(string); isString {
			return r
		}
		return v
	default:
		return value
	}
}

// renderFloat maps non-finite values to their JSON string spellings.
func renderFloat(v float64) interface{} {
	switch {
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	case math.IsNaN(v):
		return "NaN"
	}
	return v
}

func mapKeyToString(kind schema.Kind, key interface{}) string {
	switch kind {
	case schema.KindBool:
		v, _ := key.(bool)
		return strconv.FormatBool(v)
	case schema.KindString:
		v, _ := key.(string)
		return v
	case schema.KindInt32, schema.KindSint32, schema.KindSfixed32:
		v, _ := key.(int32)
		return strconv.FormatInt(int64(v), 10)
	case schema.KindInt64, schema.KindSint64, schema.KindSfixed64:
		v, _ := key.(int64)
		return strconv.FormatInt(v, 10)
	case schema.KindUint32, schema.KindFixed32:
		v, _ := key.(uint32)
		return strconv.FormatUint(uint64(v), 10)
	default:
		v, _ := key.(uint64)
		return strconv.FormatUint(v, 10)
	}
}

// FROM DICT

// FromDict builds a message of the given descriptor from a plain map.
// Keys are matched against json_name, the declared field name, and the
// snake_case of the key, in that order; unmatched keys are ignored so
// forward-compatible payloads load cleanly. Explicit nulls are skipped.
// Unknown enum names are an error, unknown enum numbers are kept.
func FromDict(desc *schema.MessageDescriptor, data map[string]interface{}) (*Message, error) {
	m := New(desc)
	if err := mergeDict(m, data); err != nil {
		return nil, err
	}
	return m, nil
}

func mergeDict(m *Message, data map[string]interface{}) error {
	for key, raw := range data {
		f := resolveDictKey(m.desc, key)
		if f == nil || raw == nil {
			continue
		}
		value, err := dictValueForField(f, raw)
		if err != nil {
			return wrapWithField(err, f.Name)
		}
		m.Set(f.Name, value)
	}
	return nil
}

func resolveDictKey(desc *schema.MessageDescriptor, key string) *schema.Field {
	if f := desc.FieldByJSONKey(key); f != nil {
		return f
	}
	if f := desc.FieldByName(key); f != nil {
		return f
	}
	return desc.FieldByName(casing.SnakeCase(key))
}

func dictValueForField(f *schema.Field, raw interface{}) (interface{}, error) {
	switch {
	case f.Kind == schema.KindMap:
		entries, ok := raw.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("expected JSON object for map field, got %T", raw)
		}
		val := mapValueField(f)
		out := make(map[interface{}]interface{}, len(entries))
		for k, v := range entries {
			key, err := parseMapKey(f.MapKey, k)
			if err != nil {
				return nil, err
			}
			value, err := fromDictSingular(val, v)
			if err != nil {
				return nil, err
			}
			out[key] = value
		}
		return out, nil

	case f.Repeated:
		items, ok := raw.([]interface{})
		if !ok {
			return nil, fmt.Errorf("expected JSON array for repeated field, got %T", raw)
		}
		elem := *f
		elem.Repeated = false
		out := make([]interface{}, len(items))
		for i, item := range items {
			v, err := fromDictSingular(&elem, item)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil

	default:
		return fromDictSingular(f, raw)
	}
}

func fromDictSingular(f *schema.Field, raw interface{}) (interface{}, error) {
	if f.Kind != schema.KindMessage {
		return fromDictScalar(f.Kind, f.Enum, raw)
	}
	if f.Wraps != "" {
		return fromDictScalar(f.Wraps, nil, raw)
	}

	switch f.Message.Name {
	case schema.WKTTimestamp:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("expected RFC3339 string, got %T", raw)
		}
		return timestampFromJSON(s)
	case schema.WKTDuration:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("expected duration string, got %T", raw)
		}
		return durationFromJSON(s)
	case schema.WKTStruct:
		fields, ok := raw.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("expected JSON object for Struct, got %T", raw)
		}
		return structFromNative(fields)
	case schema.WKTValue:
		return valueFromNative(raw)
	case schema.WKTListValue:
		items, ok := raw.([]interface{})
		if !ok {
			return nil, fmt.Errorf("expected JSON array for ListValue, got %T", raw)
		}
		return listValueFromNative(items)
	case schema.WKTFieldMask:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("expected path string for FieldMask, got %T", raw)
		}
		return fieldMaskFromJSON(s), nil
	}

	child, ok := raw.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("expected JSON object, got %T", raw)
	}
	return FromDict(f.Message, child)
}

func fromDictScalar(kind schema.Kind, enum *schema.EnumDescriptor, raw interface{}) (interface{}, error) {
	switch kind {
	case schema.KindDouble:
		return floatFromJSON(raw)
	case schema.KindFloat:
		v, err := floatFromJSON(raw)
		if err != nil {
			return nil, err
		}
		return float32(v), nil
	case schema.KindInt32, schema.KindSint32, schema.KindSfixed32:
		n, err := intFromJSON(raw)
		if err != nil {
			return nil, err
		}
		if n < math.MinInt32 || n > math.MaxInt32 {
			return nil, fmt.Errorf("value %d out of range for 32-bit integer", n)
		}
		return int32(n), nil
	case schema.KindInt64, schema.KindSint64, schema.KindSfixed64:
		return intFromJSON(raw)
	case schema.KindUint32, schema.KindFixed32:
		n, err := uintFromJSON(raw)
		if err != nil {
			return nil, err
		}
		if n > math.MaxUint32 {
			return nil, fmt.Errorf("value %d out of range for 32-bit unsigned integer", n)
		}
		return uint32(n), nil
	case schema.KindUint64, schema.KindFixed64:
		return uintFromJSON(raw)
	case schema.KindBool:
		v, ok := raw.(bool)
		if !ok {
			return nil, fmt.Errorf("expected bool, got %T", raw)
		}
		return v, nil
	case schema.KindString:
		v, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", raw)
		}
		return v, nil
	case schema.KindBytes:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("expected base64 string, got %T", raw)
		}
		b, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("invalid base64: %v", err)
		}
		return b, nil
	case schema.KindEnum:
		if name, ok := raw.(string); ok {
			if enum == nil {
				return nil, fmt.Errorf("enum name %q given for untyped enum", name)
			}
			n, ok := enum.NumberByName(name)
			if !ok {
				return nil, fmt.Errorf("unknown value %q for enum %s", name, enum.Name)
			}
			return n, nil
		}
		n, err := intFromJSON(raw)
		if err != nil {
			return nil, err
		}
		if n < math.MinInt32 || n > math.MaxInt32 {
			return nil, fmt.Errorf("enum number %d out of range", n)
		}
		return int32(n), nil
	}
	return nil, fmt.Errorf("cannot convert %T to kind %s", raw, kind)
}

// JSON NUMBER PLUMBING

// numberFromJSON widens any numeric spelling a decoded JSON value can
// take into a float64.
func numberFromJSON(raw interface{}) (float64, bool) {
	switch v := raw.(type) {
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	}
	return 0, false
}

func floatFromJSON(raw interface{}) (float64, error) {
	if s, ok := raw.(string); ok {
		switch s {
		case "Infinity":
			return math.Inf(1), nil
		case "-Infinity":
			return math.Inf(-1), nil
		case "NaN":
			return math.NaN(), nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid float %q", s)
		}
		return f, nil
	}
	if f, ok := numberFromJSON(raw); ok {
		return f, nil
	}
	return 0, fmt.Errorf("expected number, got %T", raw)
}

func intFromJSON(raw interface{}) (int64, error) {
	switch v := raw.(type) {
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n, nil
		}
		f, err := v.Float64()
		if err != nil {
			return 0, fmt.Errorf("invalid integer %q", v.String())
		}
		return int64(f), nil
	case float64:
		return int64(v), nil
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid integer %q", v)
		}
		return n, nil
	}
	return 0, fmt.Errorf("expected integer, got %T", raw)
}

func uintFromJSON(raw interface{}) (uint64, error) {
	switch v := raw.(type) {
	case json.Number:
		if n, err := strconv.ParseUint(v.String(), 10, 64); err == nil {
			return n, nil
		}
		f, err := v.Float64()
		if err != nil || f < 0 {
			return 0, fmt.Errorf("invalid unsigned integer %q", v.String())
		}
		return uint64(f), nil
	case float64:
		if v < 0 {
			return 0, fmt.Errorf("negative value %v for unsigned integer", v)
		}
		return uint64(v), nil
	case int:
		if v < 0 {
			return 0, fmt.Errorf("negative value %d for unsigned integer", v)
		}
		return uint64(v), nil
	case uint32:
		return uint64(v), nil
	case uint64:
		return v, nil
	case int64:
		if v < 0 {
			return 0, fmt.Errorf("negative value %d for unsigned integer", v)
		}
		return uint64(v), nil
	case string:
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid unsigned integer %q", v)
		}
		return n, nil
	}
	return 0, fmt.Errorf("expected unsigned integer, got %T", raw)
}

func parseMapKey(kind schema.Kind, key string) (interface{}, error) {
	switch kind {
	case schema.KindString:
		return key, nil
	case schema.KindBool:
		v, err := strconv.ParseBool(key)
		if err != nil {
			return nil, fmt.Errorf("invalid bool map key %q", key)
		}
		return v, nil
	case schema.KindInt32, schema.KindSint32, schema.KindSfixed32:
		n, err := strconv.ParseInt(key, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid map key %q", key)
		}
		return int32(n), nil
	case schema.KindInt64, schema.KindSint64, schema.KindSfixed64:
		n, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid map key %q", key)
		}
		return n, nil
	case schema.KindUint32, schema.KindFixed32:
		n, err := strconv.ParseUint(key, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid map key %q", key)
		}
		return uint32(n), nil
	default:
		n, err := strconv.ParseUint(key, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid map key %q", key)
		}
		return n, nil
	}
}
