package schema

import (
	"fmt"
	"sync"

	"github.com/anirudhraja/protomsg/casing"
)

// MaxFieldNumber is the largest valid field number (2^29 - 1)
const MaxFieldNumber = 536870911

// Field numbers 19000-19999 are reserved by the protobuf implementation
const (
	reservedRangeStart = 19000
	reservedRangeEnd   = 19999
)

// DefinitionError reports an invalid message or enum definition. It is
// raised at definition time, when a descriptor's lookup tables are first
// built, never during encoding.
type DefinitionError struct {
	Name   string // fully qualified message or enum name
	Reason string
}

func (e *DefinitionError) Error() string {
	return fmt.Sprintf("invalid definition %s: %s", e.Name, e.Reason)
}

// MessageDescriptor describes a message type: its fully qualified name
// and its fields in declaration order. Lookup tables are derived lazily
// on first use and memoized; a descriptor must not be mutated after it
// has been handed to a Message or a Registry.
type MessageDescriptor struct {
	Name   string
	Fields []*Field

	once sync.Once
	meta *messageMeta
	err  error
}

// messageMeta holds the derived lookup tables for one message
type messageMeta struct {
	byNumber   map[int32]*Field
	byName     map[string]*Field
	byJSON     map[string]*Field
	oneofs     map[string][]*Field
	oneofNames []string // first-appearance order
}

// JSONKey returns the key a field uses in dict and JSON output: the
// explicit json_name when declared, the camelCase of the field name
// otherwise.
func JSONKey(f *Field) string {
	if f.JSONName != "" {
		return f.JSONName
	}
	return casing.CamelCase(f.Name)
}

// metadata returns the memoized lookup tables, building and validating
// them on first call.
func (d *MessageDescriptor) metadata() (*messageMeta, error) {
	d.once.Do(func() {
		d.meta, d.err = buildMeta(d)
	})
	return d.meta, d.err
}

// Validate checks the definition and returns a DefinitionError when the
// field table is unusable: duplicate numbers or names, out-of-range
// numbers, repeated oneof members, invalid map declarations, or missing
// type references.
func (d *MessageDescriptor) Validate() error {
	_, err := d.metadata()
	return err
}

// FieldByName returns the field with the given declaration name, or nil
func (d *MessageDescriptor) FieldByName(name string) *Field {
	meta, err := d.metadata()
	if err != nil {
		return nil
	}
	return meta.byName[name]
}

// FieldByNumber returns the field with the given number, or nil
func (d *MessageDescriptor) FieldByNumber(number int32) *Field {
	meta, err := d.metadata()
	if err != nil {
		return nil
	}
	return meta.byNumber[number]
}

// FieldByJSONKey returns the field whose dict/JSON key matches, or nil
func (d *MessageDescriptor) FieldByJSONKey(key string) *Field {
	meta, err := d.metadata()
	if err != nil {
		return nil
	}
	return meta.byJSON[key]
}

// Oneofs returns the declared oneof group names in first-appearance order
func (d *MessageDescriptor) Oneofs() []string {
	meta, err := d.metadata()
	if err != nil {
		return nil
	}
	return meta.oneofNames
}

// OneofFields returns the member fields of a oneof group in declaration
// order, or nil for an unknown group.
func (d *MessageDescriptor) OneofFields(group string) []*Field {
	meta, err := d.metadata()
	if err != nil {
		return nil
	}
	return meta.oneofs[group]
}

func buildMeta(d *MessageDescriptor) (*messageMeta, error) {
	meta := &messageMeta{
		byNumber: make(map[int32]*Field, len(d.Fields)),
		byName:   make(map[string]*Field, len(d.Fields)),
		byJSON:   make(map[string]*Field, len(d.Fields)),
		oneofs:   make(map[string][]*Field),
	}

	fail := func(format string, args ...interface{}) (*messageMeta, error) {
		return nil, &DefinitionError{Name: d.Name, Reason: fmt.Sprintf(format, args...)}
	}

	for _, f := range d.Fields {
		if f.Name == "" {
			return fail("field %d has no name", f.Number)
		}
		if !f.Kind.Valid() {
			return fail("field %s has unknown kind %q", f.Name, f.Kind)
		}
		if f.Number < 1 || f.Number > MaxFieldNumber {
			return fail("field %s has number %d outside [1, %d]", f.Name, f.Number, MaxFieldNumber)
		}
		if f.Number >= reservedRangeStart && f.Number <= reservedRangeEnd {
			return fail("field %s uses reserved number %d", f.Name, f.Number)
		}
		if prev, ok := meta.byNumber[f.Number]; ok {
			return fail("fields %s and %s share number %d", prev.Name, f.Name, f.Number)
		}
		if _, ok := meta.byName[f.Name]; ok {
			return fail("duplicate field name %s", f.Name)
		}

		switch f.Kind {
		case KindMessage:
			if f.Message == nil {
				return fail("message field %s has no message descriptor", f.Name)
			}
			if f.Wraps != "" && !f.Wraps.Valid() {
				return fail("field %s wraps unknown kind %q", f.Name, f.Wraps)
			}
		case KindEnum:
			if f.Enum == nil {
				return fail("enum field %s has no enum descriptor", f.Name)
			}
		case KindMap:
			if f.Repeated {
				return fail("map field %s cannot be repeated", f.Name)
			}
			if f.Oneof != "" {
				return fail("map field %s cannot be a oneof member", f.Name)
			}
			if f.Optional {
				return fail("map field %s cannot be optional", f.Name)
			}
			if !f.MapKey.ValidMapKey() {
				return fail("map field %s has invalid key kind %q", f.Name, f.MapKey)
			}
			if !f.MapValue.Valid() || f.MapValue == KindMap {
				return fail("map field %s has invalid value kind %q", f.Name, f.MapValue)
			}
			if f.MapValue == KindMessage && f.MapValueMessage == nil {
				return fail("map field %s has message values but no message descriptor", f.Name)
			}
			if f.MapValue == KindEnum && f.MapValueEnum == nil {
				return fail("map field %s has enum values but no enum descriptor", f.Name)
			}
		}

		if f.Oneof != "" {
			if f.Repeated {
				return fail("oneof member %s cannot be repeated", f.Name)
			}
			if f.Optional {
				return fail("oneof member %s cannot also be optional", f.Name)
			}
			if _, seen := meta.oneofs[f.Oneof]; !seen {
				meta.oneofNames = append(meta.oneofNames, f.Oneof)
			}
			meta.oneofs[f.Oneof] = append(meta.oneofs[f.Oneof], f)
		}

		if f.Optional && f.Repeated {
			return fail("field %s cannot be both optional and repeated", f.Name)
		}

		meta.byNumber[f.Number] = f
		meta.byName[f.Name] = f
		meta.byJSON[JSONKey(f)] = f
	}

	return meta, nil
}
