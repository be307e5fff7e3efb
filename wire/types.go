package wire

// ===== PROTOBUF WIRE FORMAT TYPES =====

// WireType represents protobuf wire format types
type WireType int32

const (
	WireVarint  WireType = 0 // int32, int64, uint32, uint64, sint32, sint64, bool, enum
	WireFixed64 WireType = 1 // fixed64, sfixed64, double
	WireBytes   WireType = 2 // string, bytes, embedded messages, packed repeated fields
	WireFixed32 WireType = 5 // fixed32, sfixed32, float
)

// Valid reports whether the wire type is one the decoder understands.
// Wire types 3 and 4 are the deprecated proto2 group delimiters and 6
// and 7 are reserved; none of them can be skipped safely.
func (wt WireType) Valid() bool {
	switch wt {
	case WireVarint, WireFixed64, WireBytes, WireFixed32:
		return true
	default:
		return false
	}
}

// String returns a human-readable name for the wire type
func (wt WireType) String() string {
	switch wt {
	case WireVarint:
		return "varint"
	case WireFixed64:
		return "fixed64"
	case WireBytes:
		return "bytes"
	case WireFixed32:
		return "fixed32"
	default:
		return "unknown"
	}
}

// FieldNumber represents a protobuf field number
type FieldNumber int32

// Tag represents a protobuf field tag (field number + wire type)
type Tag uint64

// MakeTag creates a tag from field number and wire type
func MakeTag(fieldNumber FieldNumber, wireType WireType) Tag {
	return Tag(uint64(fieldNumber)<<3 | uint64(wireType))
}

// ParseTag parses a tag into field number and wire type
func ParseTag(tag Tag) (FieldNumber, WireType) {
	return FieldNumber(tag >> 3), WireType(tag & 0x7)
}

// TagSize returns the encoded size of a field tag. The wire type occupies
// the low three bits, so the size depends only on the field number.
func TagSize(fieldNumber FieldNumber) int {
	return VarintSize(uint64(fieldNumber) << 3)
}

// Field is a single field token scanned off the wire. Exactly one of
// Value and Data carries the payload: varint and fixed-width fields fill
// Value with the raw bits, length-delimited fields fill Data. Raw spans
// the complete field including the tag bytes, so an unrecognized field
// can be carried around and re-emitted byte for byte.
//
// Data and Raw alias the decoder's input buffer; callers that outlive
// the buffer must copy.
type Field struct {
	Number   FieldNumber
	WireType WireType
	Value    uint64 // varint, fixed32, fixed64 payload
	Data     []byte // length-delimited payload
	Raw      []byte // the entire field: tag + payload
}
