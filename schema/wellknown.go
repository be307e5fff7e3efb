package schema

// Fully qualified names of the google.protobuf types this runtime treats
// specially. Fields of these types get native value representations and
// dedicated JSON forms instead of the generic message handling.
const (
	WKTTimestamp = "google.protobuf.Timestamp"
	WKTDuration  = "google.protobuf.Duration"
	WKTEmpty     = "google.protobuf.Empty"
	WKTFieldMask = "google.protobuf.FieldMask"
	WKTStruct    = "google.protobuf.Struct"
	WKTValue     = "google.protobuf.Value"
	WKTListValue = "google.protobuf.ListValue"
	WKTNullValue = "google.protobuf.NullValue"

	WKTDoubleValue = "google.protobuf.DoubleValue"
	WKTFloatValue  = "google.protobuf.FloatValue"
	WKTInt64Value  = "google.protobuf.Int64Value"
	WKTUInt64Value = "google.protobuf.UInt64Value"
	WKTInt32Value  = "google.protobuf.Int32Value"
	WKTUInt32Value = "google.protobuf.UInt32Value"
	WKTBoolValue   = "google.protobuf.BoolValue"
	WKTStringValue = "google.protobuf.StringValue"
	WKTBytesValue  = "google.protobuf.BytesValue"
)

// wrapperKinds maps each google wrapper type to the scalar kind it wraps
var wrapperKinds = map[string]Kind{
	WKTDoubleValue: KindDouble,
	WKTFloatValue:  KindFloat,
	WKTInt64Value:  KindInt64,
	WKTUInt64Value: KindUint64,
	WKTInt32Value:  KindInt32,
	WKTUInt32Value: KindUint32,
	WKTBoolValue:   KindBool,
	WKTStringValue: KindString,
	WKTBytesValue:  KindBytes,
}

// WrapperKind returns the scalar kind wrapped by the named google
// wrapper type, if name is one.
func WrapperKind(name string) (Kind, bool) {
	k, ok := wrapperKinds[name]
	return k, ok
}

// IsWrapper reports whether name is one of the google wrapper types
func IsWrapper(name string) bool {
	_, ok := wrapperKinds[name]
	return ok
}

// NullValueEnum is the google.protobuf.NullValue enum
var NullValueEnum = NewEnum(WKTNullValue, EnumValue{Name: "NULL_VALUE", Number: 0})

// Prebuilt descriptors for the well-known types. These are ordinary
// descriptors: the wire layer knows nothing about them, and a registry
// resolves google/protobuf imports to them without parsing files.
var (
	TimestampDescriptor = &MessageDescriptor{
		Name: WKTTimestamp,
		Fields: []*Field{
			{Name: "seconds", Number: 1, Kind: KindInt64},
			{Name: "nanos", Number: 2, Kind: KindInt32},
		},
	}

	DurationDescriptor = &MessageDescriptor{
		Name: WKTDuration,
		Fields: []*Field{
			{Name: "seconds", Number: 1, Kind: KindInt64},
			{Name: "nanos", Number: 2, Kind: KindInt32},
		},
	}

	EmptyDescriptor = &MessageDescriptor{Name: WKTEmpty}

	FieldMaskDescriptor = &MessageDescriptor{
		Name: WKTFieldMask,
		Fields: []*Field{
			{Name: "paths", Number: 1, Kind: KindString, Repeated: true},
		},
	}

	// Struct, Value and ListValue are mutually recursive; their fields
	// are wired in init below.
	StructDescriptor    = &MessageDescriptor{Name: WKTStruct}
	ValueDescriptor     = &MessageDescriptor{Name: WKTValue}
	ListValueDescriptor = &MessageDescriptor{Name: WKTListValue}

	DoubleValueDescriptor = wrapperDescriptor(WKTDoubleValue, KindDouble)
	FloatValueDescriptor  = wrapperDescriptor(WKTFloatValue, KindFloat)
	Int64ValueDescriptor  = wrapperDescriptor(WKTInt64Value, KindInt64)
	UInt64ValueDescriptor = wrapperDescriptor(WKTUInt64Value, KindUint64)
	Int32ValueDescriptor  = wrapperDescriptor(WKTInt32Value, KindInt32)
	UInt32ValueDescriptor = wrapperDescriptor(WKTUInt32Value, KindUint32)
	BoolValueDescriptor   = wrapperDescriptor(WKTBoolValue, KindBool)
	StringValueDescriptor = wrapperDescriptor(WKTStringValue, KindString)
	BytesValueDescriptor  = wrapperDescriptor(WKTBytesValue, KindBytes)
)

func wrapperDescriptor(name string, kind Kind) *MessageDescriptor {
	return &MessageDescriptor{
		Name: name,
		Fields: []*Field{
			{Name: "value", Number: 1, Kind: kind},
		},
	}
}

var wellKnownMessages map[string]*MessageDescriptor

func init() {
	StructDescriptor.Fields = []*Field{
		{Name: "fields", Number: 1, Kind: KindMap, MapKey: KindString, MapValue: KindMessage, MapValueMessage: ValueDescriptor},
	}
	ValueDescriptor.Fields = []*Field{
		{Name: "null_value", Number: 1, Kind: KindEnum, Enum: NullValueEnum, Oneof: "kind"},
		{Name: "number_value", Number: 2, Kind: KindDouble, Oneof: "kind"},
		{Name: "string_value", Number: 3, Kind: KindString, Oneof: "kind"},
		{Name: "bool_value", Number: 4, Kind: KindBool, Oneof: "kind"},
		{Name: "struct_value", Number: 5, Kind: KindMessage, Message: StructDescriptor, Oneof: "kind"},
		{Name: "list_value", Number: 6, Kind: KindMessage, Message: ListValueDescriptor, Oneof: "kind"},
	}
	ListValueDescriptor.Fields = []*Field{
		{Name: "values", Number: 1, Kind: KindMessage, Message: ValueDescriptor, Repeated: true},
	}

	wellKnownMessages = map[string]*MessageDescriptor{
		WKTTimestamp:   TimestampDescriptor,
		WKTDuration:    DurationDescriptor,
		WKTEmpty:       EmptyDescriptor,
		WKTFieldMask:   FieldMaskDescriptor,
		WKTStruct:      StructDescriptor,
		WKTValue:       ValueDescriptor,
		WKTListValue:   ListValueDescriptor,
		WKTDoubleValue: DoubleValueDescriptor,
		WKTFloatValue:  FloatValueDescriptor,
		WKTInt64Value:  Int64ValueDescriptor,
		WKTUInt64Value: UInt64ValueDescriptor,
		WKTInt32Value:  Int32ValueDescriptor,
		WKTUInt32Value: UInt32ValueDescriptor,
		WKTBoolValue:   BoolValueDescriptor,
		WKTStringValue: StringValueDescriptor,
		WKTBytesValue:  BytesValueDescriptor,
	}
}

// WellKnownMessage returns the prebuilt descriptor for a well-known
// message type name.
func WellKnownMessage(name string) (*MessageDescriptor, bool) {
	d, ok := wellKnownMessages[name]
	return d, ok
}

// WellKnownEnum returns the prebuilt descriptor for a well-known enum
// type name.
func WellKnownEnum(name string) (*EnumDescriptor, bool) {
	if name == WKTNullValue {
		return NullValueEnum, true
	}
	return nil, false
}
