package registry

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	protoparser "github.com/yoheimuta/go-protoparser/v4"
	"github.com/yoheimuta/go-protoparser/v4/parser"

	"github.com/anirudhraja/protomsg/schema"
)

// scalarKinds maps proto scalar type names to their kinds
var scalarKinds = map[string]schema.Kind{
	"double":   schema.KindDouble,
	"float":    schema.KindFloat,
	"int32":    schema.KindInt32,
	"int64":    schema.KindInt64,
	"uint32":   schema.KindUint32,
	"uint64":   schema.KindUint64,
	"sint32":   schema.KindSint32,
	"sint64":   schema.KindSint64,
	"fixed32":  schema.KindFixed32,
	"fixed64":  schema.KindFixed64,
	"sfixed32": schema.KindSfixed32,
	"sfixed64": schema.KindSfixed64,
	"bool":     schema.KindBool,
	"string":   schema.KindString,
	"bytes":    schema.KindBytes,
}

// LoadSource parses one .proto source string and registers every message
// and enum it declares. Imports are not followed: google/protobuf types
// resolve to the built-in descriptors, and anything else must already be
// registered, so callers load dependencies first.
func (r *Registry) LoadSource(src string) error {
	return r.Load(strings.NewReader(src))
}

// Load parses .proto source from a reader and registers its definitions,
// with the same import rules as LoadSource.
func (r *Registry) Load(rd io.Reader) error {
	proto, err := protoparser.Parse(rd)
	if err != nil {
		return fmt.Errorf("failed to parse proto source: %w", err)
	}
	return r.load(proto)
}

// LoadFile loads a .proto file and, depth-first, every file it imports,
// resolving import paths relative to the importing file's directory.
// Imports of google/protobuf definitions are satisfied by the built-in
// descriptors and never read from disk.
func (r *Registry) LoadFile(path string) error {
	visited := make(map[string]struct{}) // to make sure we don't end up in a loop
	return r.loadFile(path, visited)
}

// LoadDir loads every .proto file under dir, in lexical walk order. The
// visited set spans the whole walk, so a file reached both directly and
// through an import loads once.
func (r *Registry) LoadDir(dir string) error {
	visited := make(map[string]struct{})
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".proto") {
			return nil
		}
		return r.loadFile(path, visited)
	})
}

func (r *Registry) loadFile(path string, visited map[string]struct{}) error {
	path = filepath.Clean(path)
	if _, ok := visited[path]; ok {
		return nil
	}
	visited[path] = struct{}{}

	if !strings.HasSuffix(path, ".proto") {
		return fmt.Errorf("%s is not a .proto file", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	proto, err := protoparser.Parse(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}

	// Load imports first so this file's references resolve.
	for _, body := range proto.ProtoBody {
		imp, ok := body.(*parser.Import)
		if !ok {
			continue
		}
		location := strings.Trim(imp.Location, `"`)
		if strings.Contains(location, "google/protobuf") {
			continue
		}
		if err := r.loadFile(filepath.Join(filepath.Dir(path), location), visited); err != nil {
			return err
		}
	}

	if err := r.load(proto); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// pendingMessage is a registered message shell whose fields still need
// building. Shells go in first so that recursive and mutually referencing
// messages resolve to stable descriptor pointers.
type pendingMessage struct {
	desc *schema.MessageDescriptor
	body []parser.Visitee
}

// load registers everything one parsed file declares. It works in three
// passes: register name shells, build fields, then validate. Validation
// must wait until every field table is complete, because descriptors
// memoize their first validation result. On any error the registry is
// restored to its previous state.
func (r *Registry) load(proto *parser.Proto) error {
	var pkg string
	for _, body := range proto.ProtoBody {
		if p, ok := body.(*parser.Package); ok {
			pkg = p.Name
		}
	}

	var (
		pending       []*pendingMessage
		addedMessages []string
		addedEnums    []string
	)
	rollback := func() {
		for _, name := range addedMessages {
			delete(r.messages, name)
		}
		for _, name := range addedEnums {
			delete(r.enums, name)
		}
	}

	// Pass 1: register all message and enum names.
	var collect func(prefix string, body []parser.Visitee) error
	collect = func(prefix string, body []parser.Visitee) error {
		for _, v := range body {
			switch b := v.(type) {
			case *parser.Message:
				full := fullName(prefix, b.MessageName)
				if _, exists := r.messages[full]; exists {
					return fmt.Errorf("message already registered: %s", full)
				}
				shell := &schema.MessageDescriptor{Name: full}
				r.messages[full] = shell
				addedMessages = append(addedMessages, full)
				pending = append(pending, &pendingMessage{desc: shell, body: b.MessageBody})
				if err := collect(full, b.MessageBody); err != nil {
					return err
				}
			case *parser.Enum:
				full := fullName(prefix, b.EnumName)
				if _, exists := r.enums[full]; exists {
					return fmt.Errorf("enum already registered: %s", full)
				}
				desc, err := buildEnum(full, b)
				if err != nil {
					return err
				}
				r.enums[full] = desc
				addedEnums = append(addedEnums, full)
			}
		}
		return nil
	}
	if err := collect(pkg, proto.ProtoBody); err != nil {
		rollback()
		return err
	}

	// Pass 2: build all message fields.
	for _, p := range pending {
		fields, err := r.buildFields(p.desc.Name, p.body)
		if err != nil {
			rollback()
			return fmt.Errorf("message %s: %w", p.desc.Name, err)
		}
		p.desc.Fields = fields
	}

	// Pass 3: validate with every reference in place.
	for _, p := range pending {
		if err := p.desc.Validate(); err != nil {
			rollback()
			return err
		}
	}
	return nil
}

// buildFields converts one message body into fields in declaration
// order. Oneof members take the oneof's position. Nested message and
// enum declarations were already collected and are skipped here.
func (r *Registry) buildFields(scope string, body []parser.Visitee) ([]*schema.Field, error) {
	var fields []*schema.Field
	for _, v := range body {
		switch b := v.(type) {
		case *parser.Field:
			if b.IsRequired {
				return nil, fmt.Errorf("field %s: proto2 required fields are not supported", b.FieldName)
			}
			f, err := r.newField(b.FieldName, b.Type, b.FieldNumber, b.FieldOptions, scope)
			if err != nil {
				return nil, err
			}
			f.Repeated = b.IsRepeated
			f.Optional = b.IsOptional
			fields = append(fields, f)
		case *parser.MapField:
			f, err := r.newMapField(b, scope)
			if err != nil {
				return nil, err
			}
			fields = append(fields, f)
		case *parser.Oneof:
			for _, of := range b.OneofFields {
				f, err := r.newField(of.FieldName, of.Type, of.FieldNumber, of.FieldOptions, scope)
				if err != nil {
					return nil, err
				}
				f.Oneof = b.OneofName
				fields = append(fields, f)
			}
		}
	}
	return fields, nil
}

// newField builds a scalar, enum or message field from its declaration
func (r *Registry) newField(name, typeName, number string, opts []*parser.FieldOption, scope string) (*schema.Field, error) {
	num, err := parseFieldNumber(number)
	if err != nil {
		return nil, fmt.Errorf("field %s: %w", name, err)
	}
	f := &schema.Field{
		Name:     name,
		JSONName: jsonNameOption(opts),
		Number:   num,
	}
	if kind, ok := scalarKinds[typeName]; ok {
		f.Kind = kind
		return f, nil
	}

	msg, enum, err := r.resolveType(typeName, scope)
	if err != nil {
		return nil, fmt.Errorf("field %s: %w", name, err)
	}
	if msg != nil {
		f.Kind = schema.KindMessage
		f.Message = msg
		if k, ok := schema.WrapperKind(msg.Name); ok {
			f.Wraps = k
		}
	} else {
		f.Kind = schema.KindEnum
		f.Enum = enum
	}
	return f, nil
}

// newMapField builds a map field. Keys must be an integral, bool or
// string kind; values may be any non-map type.
func (r *Registry) newMapField(mf *parser.MapField, scope string) (*schema.Field, error) {
	num, err := parseFieldNumber(mf.FieldNumber)
	if err != nil {
		return nil, fmt.Errorf("map field %s: %w", mf.MapName, err)
	}
	keyKind, ok := scalarKinds[mf.KeyType]
	if !ok || !keyKind.ValidMapKey() {
		return nil, fmt.Errorf("map field %s has invalid key type %s", mf.MapName, mf.KeyType)
	}
	f := &schema.Field{
		Name:     mf.MapName,
		JSONName: jsonNameOption(mf.FieldOptions),
		Number:   num,
		Kind:     schema.KindMap,
		MapKey:   keyKind,
	}
	if valueKind, ok := scalarKinds[mf.Type]; ok {
		f.MapValue = valueKind
		return f, nil
	}

	msg, enum, err := r.resolveType(mf.Type, scope)
	if err != nil {
		return nil, fmt.Errorf("map field %s: %w", mf.MapName, err)
	}
	if msg != nil {
		f.MapValue = schema.KindMessage
		f.MapValueMessage = msg
	} else {
		f.MapValue = schema.KindEnum
		f.MapValueEnum = enum
	}
	return f, nil
}

// buildEnum converts an enum declaration. Values keep their declared
// order; descriptor validation rejects duplicate names and a nonzero
// first value.
func buildEnum(name string, e *parser.Enum) (*schema.EnumDescriptor, error) {
	var values []schema.EnumValue
	for _, v := range e.EnumBody {
		ef, ok := v.(*parser.EnumField)
		if !ok {
			continue
		}
		num, err := strconv.ParseInt(ef.Number, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("enum %s: value %s has invalid number %q", name, ef.Ident, ef.Number)
		}
		values = append(values, schema.EnumValue{Name: ef.Ident, Number: int32(num)})
	}
	desc := schema.NewEnum(name, values...)
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	return desc, nil
}

/*
resolveType resolves a field's type reference to a message or enum
descriptor. A leading dot means fully qualified; otherwise the name is
tried against each enclosing scope from innermost outward, then bare.
Ref - https://github.com/protocolbuffers/protobuf/blob/b7a5772caf08d62a20fd1bca258f501fa4db022c/src/google/protobuf/descriptor.proto#L186-L191
*/
func (r *Registry) resolveType(typeName, scope string) (*schema.MessageDescriptor, *schema.EnumDescriptor, error) {
	if strings.HasPrefix(typeName, ".") {
		if msg, enum, ok := r.lookupType(strings.TrimPrefix(typeName, ".")); ok {
			return msg, enum, nil
		}
		return nil, nil, fmt.Errorf("unable to resolve fully qualified type name: %s", typeName)
	}

	parts := strings.Split(scope, ".")
	for len(parts) > 0 && parts[0] != "" {
		candidate := strings.Join(parts, ".") + "." + typeName
		if msg, enum, ok := r.lookupType(candidate); ok {
			return msg, enum, nil
		}
		// Omit the last element in each iteration as we go a level up
		parts = parts[:len(parts)-1]
	}
	if msg, enum, ok := r.lookupType(typeName); ok {
		return msg, enum, nil
	}
	return nil, nil, fmt.Errorf("unable to resolve type name: %s", typeName)
}

// lookupType checks registered messages, registered enums, then the
// built-in google.protobuf descriptors.
func (r *Registry) lookupType(name string) (*schema.MessageDescriptor, *schema.EnumDescriptor, bool) {
	if msg, ok := r.messages[name]; ok {
		return msg, nil, true
	}
	if enum, ok := r.enums[name]; ok {
		return nil, enum, true
	}
	if msg, ok := schema.WellKnownMessage(name); ok {
		return msg, nil, true
	}
	if enum, ok := schema.WellKnownEnum(name); ok {
		return nil, enum, true
	}
	return nil, nil, false
}

// jsonNameOption extracts a json_name declaration, if present
func jsonNameOption(opts []*parser.FieldOption) string {
	for _, o := range opts {
		if o.OptionName == "json_name" {
			return strings.Trim(o.Constant, `"`)
		}
	}
	return ""
}

func parseFieldNumber(number string) (int32, error) {
	n, err := strconv.ParseInt(number, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid field number %q", number)
	}
	return int32(n), nil
}

func fullName(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}
