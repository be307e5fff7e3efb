package wire

// BytesDecoder handles length-delimited decoding operations
type BytesDecoder struct {
	decoder *Decoder
}

// BytesEncoder handles length-delimited encoding operations
type BytesEncoder struct {
	encoder *Encoder
}

// NewBytesDecoder creates a new length-delimited decoder
func NewBytesDecoder(d *Decoder) *BytesDecoder {
	return &BytesDecoder{decoder: d}
}

// NewBytesEncoder creates a new length-delimited encoder
func NewBytesEncoder(e *Encoder) *BytesEncoder {
	return &BytesEncoder{encoder: e}
}

// DECODER METHODS

// DecodeBytes decodes a length-prefixed byte string, copying the payload
// so the result stays valid after the input buffer is reused.
func (bd *BytesDecoder) DecodeBytes() ([]byte, error) {
	raw, err := bd.DecodeRawBytes()
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(raw))
	copy(out, raw)
	return out, nil
}

// DecodeRawBytes decodes a length-prefixed byte string without copying.
// The returned slice aliases the decoder's buffer.
func (bd *BytesDecoder) DecodeRawBytes() ([]byte, error) {
	d := bd.decoder

	length, err := d.DecodeVarint()
	if err != nil {
		return nil, err
	}

	if length > uint64(d.Remaining()) {
		return nil, ErrTruncated
	}

	data := d.buf[d.pos : d.pos+int(length)]
	d.pos += int(length)
	return data, nil
}

// DecodeString decodes a length-prefixed byte string as a string
func (bd *BytesDecoder) DecodeString() (string, error) {
	raw, err := bd.DecodeRawBytes()
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// SkipBytes skips over a length-prefixed byte string
func (bd *BytesDecoder) SkipBytes() error {
	d := bd.decoder

	length, err := d.DecodeVarint()
	if err != nil {
		return err
	}

	if length > uint64(d.Remaining()) {
		return ErrTruncated
	}

	d.pos += int(length)
	return nil
}

// ENCODER METHODS

// EncodeBytes encodes a byte string with a varint length prefix
func (be *BytesEncoder) EncodeBytes(data []byte) {
	e := be.encoder
	e.EncodeVarint(uint64(len(data)))
	e.buf = append(e.buf, data...)
}

// EncodeString encodes a string with a varint length prefix
func (be *BytesEncoder) EncodeString(s string) {
	e := be.encoder
	e.EncodeVarint(uint64(len(s)))
	e.buf = append(e.buf, s...)
}

// UTILITY FUNCTIONS

// BytesSize returns the encoded size of a length-delimited payload of n
// bytes: the length prefix plus the payload itself.
func BytesSize(n int) int {
	return VarintSize(uint64(n)) + n
}
