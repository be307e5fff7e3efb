package wire

// Encoder builds protobuf wire format output in an append-only buffer
type Encoder struct {
	buf []byte
}

// NewEncoder creates a new wire format encoder
func NewEncoder() *Encoder {
	return &Encoder{buf: make([]byte, 0, 64)}
}

// NewEncoderBuffer creates an encoder that appends to an existing buffer
func NewEncoderBuffer(buf []byte) *Encoder {
	return &Encoder{buf: buf}
}

// Bytes returns the encoded bytes accumulated so far
func (e *Encoder) Bytes() []byte {
	return e.buf
}

// Len returns the number of bytes encoded so far
func (e *Encoder) Len() int {
	return len(e.buf)
}

// Reset clears the buffer for reuse
func (e *Encoder) Reset() {
	e.buf = e.buf[:0]
}

// EncodeTag encodes a field tag (field number + wire type)
func (e *Encoder) EncodeTag(fieldNumber FieldNumber, wireType WireType) {
	e.EncodeVarint(uint64(MakeTag(fieldNumber, wireType)))
}

// AppendRaw appends pre-encoded bytes verbatim. Used for unknown fields
// carried over from a previous decode and for nested message bodies that
// were encoded separately.
func (e *Encoder) AppendRaw(data []byte) {
	e.buf = append(e.buf, data...)
}
