// Package schema defines the descriptor types that drive encoding and
// decoding: message descriptors, field metadata, and enum descriptors.
// Descriptors are plain data handed over at definition time, either built
// by hand or loaded from .proto sources by the registry package.
package schema

// Kind identifies the declared proto type of a field. It determines the
// wire representation, the Go value representation, and the JSON mapping.
type Kind string

const (
	KindDouble   Kind = "double"
	KindFloat    Kind = "float"
	KindInt32    Kind = "int32"
	KindInt64    Kind = "int64"
	KindUint32   Kind = "uint32"
	KindUint64   Kind = "uint64"
	KindSint32   Kind = "sint32"
	KindSint64   Kind = "sint64"
	KindFixed32  Kind = "fixed32"
	KindFixed64  Kind = "fixed64"
	KindSfixed32 Kind = "sfixed32"
	KindSfixed64 Kind = "sfixed64"
	KindBool     Kind = "bool"
	KindString   Kind = "string"
	KindBytes    Kind = "bytes"
	KindEnum     Kind = "enum"
	KindMessage  Kind = "message"
	KindMap      Kind = "map"
)

// validKinds is the complete kind set
var validKinds = map[Kind]bool{
	KindDouble: true, KindFloat: true,
	KindInt32: true, KindInt64: true,
	KindUint32: true, KindUint64: true,
	KindSint32: true, KindSint64: true,
	KindFixed32: true, KindFixed64: true,
	KindSfixed32: true, KindSfixed64: true,
	KindBool: true, KindString: true, KindBytes: true,
	KindEnum: true, KindMessage: true, KindMap: true,
}

// packedEligible lists the kinds that use packed encoding when repeated.
// Everything numeric packs; strings, bytes, messages and maps never do.
var packedEligible = map[Kind]bool{
	KindDouble: true, KindFloat: true,
	KindInt32: true, KindInt64: true,
	KindUint32: true, KindUint64: true,
	KindSint32: true, KindSint64: true,
	KindFixed32: true, KindFixed64: true,
	KindSfixed32: true, KindSfixed64: true,
	KindBool: true, KindEnum: true,
}

// mapKeyEligible lists the kinds allowed as map keys: integral types,
// strings and bool. Floats, bytes, enums and messages are excluded.
var mapKeyEligible = map[Kind]bool{
	KindInt32: true, KindInt64: true,
	KindUint32: true, KindUint64: true,
	KindSint32: true, KindSint64: true,
	KindFixed32: true, KindFixed64: true,
	KindSfixed32: true, KindSfixed64: true,
	KindBool: true, KindString: true,
}

// Valid reports whether k is a known kind
func (k Kind) Valid() bool {
	return validKinds[k]
}

// Packable reports whether a repeated field of this kind uses packed
// encoding
func (k Kind) Packable() bool {
	return packedEligible[k]
}

// ValidMapKey reports whether this kind may serve as a map key
func (k Kind) ValidMapKey() bool {
	return mapKeyEligible[k]
}

// Field describes one declared field of a message. A Field is inert
// metadata: all encoding behavior derives from it but lives elsewhere.
type Field struct {
	Name     string // declaration name, snake_case
	JSONName string // explicit json_name override; empty means derive from Name
	Number   int32
	Kind     Kind
	Repeated bool
	Optional bool   // proto3 explicit presence
	Oneof    string // declared oneof group, empty when none

	// Kind-specific references.
	Message *MessageDescriptor // KindMessage: the nested message type
	Enum    *EnumDescriptor    // KindEnum: the enum type
	Wraps   Kind               // KindMessage: set when Message is a google wrapper

	// Map entry types, set when Kind is KindMap.
	MapKey          Kind
	MapValue        Kind
	MapValueMessage *MessageDescriptor // MapValue == KindMessage
	MapValueEnum    *EnumDescriptor    // MapValue == KindEnum
}

// HasPresence reports whether the field tracks explicit presence: proto3
// optional fields, oneof members, and wrapper-typed fields all distinguish
// "unset" from "set to the zero value".
func (f *Field) HasPresence() bool {
	return f.Optional || f.Oneof != "" || (f.Kind == KindMessage && !f.Repeated)
}
