// Package protomsg implements a descriptor-driven Protocol Buffers
// runtime: low-level wire codecs, field-metadata descriptors, a dynamic
// Message container with full proto3 semantics, and a dict/JSON bridge,
// all without generated code.
package protomsg

import (
	"fmt"
	"reflect"

	"github.com/anirudhraja/protomsg/casing"
	"github.com/anirudhraja/protomsg/registry"
	"github.com/anirudhraja/protomsg/wire"
)

// ===== SCHEMA-AWARE API =====

// Runtime bundles a type registry with the message engine so callers can
// encode and decode by message name without handling descriptors
// directly.
type Runtime struct {
	registry *registry.Registry
}

// NewRuntime creates a runtime with an empty registry.
func NewRuntime() *Runtime {
	return &Runtime{
		registry: registry.NewRegistry(),
	}
}

// LoadProtoSource parses .proto source text and registers every message
// and enum it declares.
func (r *Runtime) LoadProtoSource(source string) error {
	return r.registry.LoadSource(source)
}

// LoadProtoFile parses a .proto file from disk and registers its types.
func (r *Runtime) LoadProtoFile(path string) error {
	return r.registry.LoadFile(path)
}

// LoadProtoDir parses every .proto file under dir and registers their
// types.
func (r *Runtime) LoadProtoDir(dir string) error {
	return r.registry.LoadDir(dir)
}

// NewMessage creates an empty message of the named registered type.
func (r *Runtime) NewMessage(messageType string) (*Message, error) {
	desc, err := r.registry.Message(messageType)
	if err != nil {
		return nil, err
	}
	return New(desc), nil
}

// Parse decodes protobuf bytes into a dynamic message of the named type.
func (r *Runtime) Parse(data []byte, messageType string) (*Message, error) {
	m, err := r.NewMessage(messageType)
	if err != nil {
		return nil, err
	}
	if err := Unmarshal(data, m); err != nil {
		return nil, err
	}
	return m, nil
}

// ParseToDict decodes protobuf bytes straight to the dict form.
func (r *Runtime) ParseToDict(data []byte, messageType string) (map[string]interface{}, error) {
	m, err := r.Parse(data, messageType)
	if err != nil {
		return nil, err
	}
	return ToDict(m)
}

// EncodeDict builds a message of the named type from its dict form and
// serializes it.
func (r *Runtime) EncodeDict(data map[string]interface{}, messageType string) ([]byte, error) {
	desc, err := r.registry.Message(messageType)
	if err != nil {
		return nil, err
	}
	m, err := FromDict(desc, data)
	if err != nil {
		return nil, err
	}
	return Marshal(m)
}

// ParseJSON builds a message of the named type from JSON text.
func (r *Runtime) ParseJSON(data []byte, messageType string) (*Message, error) {
	desc, err := r.registry.Message(messageType)
	if err != nil {
		return nil, err
	}
	return FromJSON(desc, data)
}

// Scan decodes protobuf bytes into a Go struct using reflection. The
// struct's type name selects the registered message type, and each
// exported struct field maps to the proto field with the snake_case of
// its name.
func (r *Runtime) Scan(data []byte, v interface{}) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("scan target must be a pointer to struct")
	}

	m, err := r.Parse(data, rv.Elem().Type().Name())
	if err != nil {
		return err
	}
	return r.scanStruct(m, rv.Elem())
}

// scanStruct copies message values onto struct fields.
func (r *Runtime) scanStruct(m *Message, rv reflect.Value) error {
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		target := rv.Field(i)

		if !target.CanSet() {
			continue
		}
		name := casing.SnakeCase(field.Name)
		if m.Descriptor().FieldByName(name) == nil {
			continue
		}

		value := m.Get(name)
		if child, ok := value.(*Message); ok && target.Kind() == reflect.Struct {
			if err := r.scanStruct(child, target); err != nil {
				return err
			}
			continue
		}
		if err := setScanField(target, value); err != nil {
			return fmt.Errorf("failed to set field %s: %v", field.Name, err)
		}
	}
	return nil
}

// setScanField sets a struct field with type conversion
func setScanField(target reflect.Value, value interface{}) error {
	if value == nil {
		return nil
	}

	sourceValue := reflect.ValueOf(value)
	if sourceValue.Type().AssignableTo(target.Type()) {
		target.Set(sourceValue)
		return nil
	}

	if sourceValue.Type().ConvertibleTo(target.Type()) {
		target.Set(sourceValue.Convert(target.Type()))
		return nil
	}

	return fmt.Errorf("cannot convert %T to %s", value, target.Type())
}

// ===== SCHEMA-LESS INSPECTION =====

// Inspect tokenizes protobuf bytes without any schema. Each field
// becomes a "field_N" entry holding the wire type name and the raw
// payload: varint and fixed-width fields as uint64 bits, length-delimited
// fields as bytes. A field number that occurs more than once collects
// into a list in wire order.
func Inspect(data []byte) (map[string]interface{}, error) {
	result := make(map[string]interface{})
	dec := wire.NewDecoder(data)
	for !dec.EOF() {
		fld, err := dec.ReadField()
		if err != nil {
			return nil, err
		}

		entry := map[string]interface{}{
			"type": fld.WireType.String(),
		}
		if fld.WireType == wire.WireBytes {
			entry["value"] = append([]byte(nil), fld.Data...)
		} else {
			entry["value"] = fld.Value
		}

		key := fmt.Sprintf("field_%d", fld.Number)
		switch prev := result[key].(type) {
		case nil:
			result[key] = entry
		case []interface{}:
			result[key] = append(prev, entry)
		default:
			result[key] = []interface{}{prev, entry}
		}
	}
	return result, nil
}

// ===== REGISTRY ACCESS =====

func (r *Runtime) Registry() *registry.Registry { return r.registry }
func (r *Runtime) ListMessages() []string       { return r.registry.ListMessages() }
func (r *Runtime) ListEnums() []string          { return r.registry.ListEnums() }
