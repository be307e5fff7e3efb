package wire

import (
	"encoding/binary"
	"math"
)

// FixedDecoder handles fixed-width decoding operations
type FixedDecoder struct {
	decoder *Decoder
}

// FixedEncoder handles fixed-width encoding operations
type FixedEncoder struct {
	encoder *Encoder
}

// NewFixedDecoder creates a new fixed-width decoder
func NewFixedDecoder(d *Decoder) *FixedDecoder {
	return &FixedDecoder{decoder: d}
}

// NewFixedEncoder creates a new fixed-width encoder
func NewFixedEncoder(e *Encoder) *FixedEncoder {
	return &FixedEncoder{encoder: e}
}

// DECODER METHODS

// DecodeFixed32 decodes 4 bytes as a little-endian uint32
func (fd *FixedDecoder) DecodeFixed32() (uint32, error) {
	d := fd.decoder
	if d.Remaining() < 4 {
		return 0, ErrTruncated
	}

	v := binary.LittleEndian.Uint32(d.buf[d.pos:])
	d.pos += 4
	return v, nil
}

// DecodeFixed64 decodes 8 bytes as a little-endian uint64
func (fd *FixedDecoder) DecodeFixed64() (uint64, error) {
	d := fd.decoder
	if d.Remaining() < 8 {
		return 0, ErrTruncated
	}

	v := binary.LittleEndian.Uint64(d.buf[d.pos:])
	d.pos += 8
	return v, nil
}

// DecodeSfixed32 decodes 4 bytes as a signed little-endian int32
func (fd *FixedDecoder) DecodeSfixed32() (int32, error) {
	v, err := fd.DecodeFixed32()
	if err != nil {
		return 0, err
	}
	return int32(v), nil
}

// DecodeSfixed64 decodes 8 bytes as a signed little-endian int64
func (fd *FixedDecoder) DecodeSfixed64() (int64, error) {
	v, err := fd.DecodeFixed64()
	if err != nil {
		return 0, err
	}
	return int64(v), nil
}

// DecodeFloat32 decodes 4 bytes as an IEEE 754 single-precision float
func (fd *FixedDecoder) DecodeFloat32() (float32, error) {
	v, err := fd.DecodeFixed32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

// DecodeFloat64 decodes 8 bytes as an IEEE 754 double-precision float
func (fd *FixedDecoder) DecodeFloat64() (float64, error) {
	v, err := fd.DecodeFixed64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(v), nil
}

// ENCODER METHODS

// EncodeFixed32 encodes a uint32 as 4 little-endian bytes
func (fe *FixedEncoder) EncodeFixed32(v uint32) {
	e := fe.encoder
	e.buf = binary.LittleEndian.AppendUint32(e.buf, v)
}

// EncodeFixed64 encodes a uint64 as 8 little-endian bytes
func (fe *FixedEncoder) EncodeFixed64(v uint64) {
	e := fe.encoder
	e.buf = binary.LittleEndian.AppendUint64(e.buf, v)
}

// EncodeSfixed32 encodes an int32 as 4 little-endian bytes
func (fe *FixedEncoder) EncodeSfixed32(v int32) {
	fe.EncodeFixed32(uint32(v))
}

// EncodeSfixed64 encodes an int64 as 8 little-endian bytes
func (fe *FixedEncoder) EncodeSfixed64(v int64) {
	fe.EncodeFixed64(uint64(v))
}

// EncodeFloat32 encodes an IEEE 754 single-precision float
func (fe *FixedEncoder) EncodeFloat32(v float32) {
	fe.EncodeFixed32(math.Float32bits(v))
}

// EncodeFloat64 encodes an IEEE 754 double-precision float
func (fe *FixedEncoder) EncodeFloat64(v float64) {
	fe.EncodeFixed64(math.Float64bits(v))
}
