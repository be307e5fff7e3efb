package wire

// Decoder is a cursor over a protobuf wire format buffer. It holds no
// schema knowledge: it tokenizes tags and payloads and leaves meaning to
// the caller. The message layer drives one Decoder per message body and
// fresh Decoders for nested bodies and packed payloads.
type Decoder struct {
	buf []byte
	pos int
}

// NewDecoder creates a new wire format decoder over data
func NewDecoder(data []byte) *Decoder {
	return &Decoder{buf: data, pos: 0}
}

// EOF reports whether the decoder has consumed the entire buffer
func (d *Decoder) EOF() bool {
	return d.pos >= len(d.buf)
}

// Pos returns the current byte offset
func (d *Decoder) Pos() int {
	return d.pos
}

// Remaining returns the number of unread bytes
func (d *Decoder) Remaining() int {
	return len(d.buf) - d.pos
}

// ReadField scans the next complete field from the buffer: the tag, then
// the payload as dictated by the wire type. The returned Field's Data and
// Raw slices alias the decoder's buffer.
func (d *Decoder) ReadField() (*Field, error) {
	start := d.pos

	tag, err := d.DecodeVarint()
	if err != nil {
		return nil, err
	}

	fieldNumber, wireType := ParseTag(Tag(tag))
	f := &Field{
		Number:   fieldNumber,
		WireType: wireType,
	}

	switch wireType {
	case WireVarint:
		v, err := d.DecodeVarint()
		if err != nil {
			return nil, err
		}
		f.Value = v
	case WireFixed64:
		fd := NewFixedDecoder(d)
		v, err := fd.DecodeFixed64()
		if err != nil {
			return nil, err
		}
		f.Value = v
	case WireFixed32:
		fd := NewFixedDecoder(d)
		v, err := fd.DecodeFixed32()
		if err != nil {
			return nil, err
		}
		f.Value = uint64(v)
	case WireBytes:
		bd := NewBytesDecoder(d)
		data, err := bd.DecodeRawBytes()
		if err != nil {
			return nil, err
		}
		f.Data = data
	default:
		return nil, ErrUnknownWireType
	}

	f.Raw = d.buf[start:d.pos]
	return f, nil
}

// SkipField advances past a field's payload without interpreting it. The
// tag must already have been consumed.
func (d *Decoder) SkipField(wireType WireType) error {
	switch wireType {
	case WireVarint:
		vd := NewVarintDecoder(d)
		return vd.SkipVarint()
	case WireFixed64:
		if d.Remaining() < 8 {
			return ErrTruncated
		}
		d.pos += 8
		return nil
	case WireBytes:
		bd := NewBytesDecoder(d)
		return bd.SkipBytes()
	case WireFixed32:
		if d.Remaining() < 4 {
			return ErrTruncated
		}
		d.pos += 4
		return nil
	default:
		return ErrUnknownWireType
	}
}
