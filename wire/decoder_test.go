package wire

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"google.golang.org/protobuf/encoding/protowire"
)

func TestTag_RoundTrip(t *testing.T) {
	tests := []struct {
		number   FieldNumber
		wireType WireType
	}{
		{1, WireVarint},
		{2, WireBytes},
		{8, WireFixed64},
		{15, WireFixed32},  // last 1-byte tag
		{16, WireVarint},   // first 2-byte tag
		{2047, WireBytes},  // last 2-byte tag
		{536870911, WireVarint}, // max field number
	}

	for _, tt := range tests {
		tag := MakeTag(tt.number, tt.wireType)
		if want := protowire.EncodeTag(protowire.Number(tt.number), protowire.Type(tt.wireType)); uint64(tag) != want {
			t.Errorf("MakeTag(%d, %v) = %d, want %d", tt.number, tt.wireType, tag, want)
		}

		num, wt := ParseTag(tag)
		if num != tt.number || wt != tt.wireType {
			t.Errorf("ParseTag(%d) = (%d, %v), want (%d, %v)", tag, num, wt, tt.number, tt.wireType)
		}

		if got, want := TagSize(tt.number), protowire.SizeTag(protowire.Number(tt.number)); got != want {
			t.Errorf("TagSize(%d) = %d, want %d", tt.number, got, want)
		}
	}
}

func TestWireType_Valid(t *testing.T) {
	valid := []WireType{WireVarint, WireFixed64, WireBytes, WireFixed32}
	for _, wt := range valid {
		if !wt.Valid() {
			t.Errorf("WireType(%d) should be valid", wt)
		}
	}
	for _, wt := range []WireType{3, 4, 6, 7} {
		if wt.Valid() {
			t.Errorf("WireType(%d) should be invalid", wt)
		}
	}
}

func TestReadField_AllWireTypes(t *testing.T) {
	// One field of each wire type, built with the reference encoder.
	var buf []byte
	buf = protowire.AppendTag(buf, 1, protowire.VarintType)
	buf = protowire.AppendVarint(buf, 150)
	buf = protowire.AppendTag(buf, 2, protowire.Fixed64Type)
	buf = protowire.AppendFixed64(buf, math.Float64bits(3.14))
	buf = protowire.AppendTag(buf, 3, protowire.BytesType)
	buf = protowire.AppendString(buf, "hello")
	buf = protowire.AppendTag(buf, 4, protowire.Fixed32Type)
	buf = protowire.AppendFixed32(buf, 0xDEADBEEF)

	d := NewDecoder(buf)

	f, err := d.ReadField()
	if err != nil {
		t.Fatalf("field 1: %v", err)
	}
	if f.Number != 1 || f.WireType != WireVarint || f.Value != 150 {
		t.Errorf("field 1 = %+v", f)
	}

	f, err = d.ReadField()
	if err != nil {
		t.Fatalf("field 2: %v", err)
	}
	if f.Number != 2 || f.WireType != WireFixed64 || math.Float64frombits(f.Value) != 3.14 {
		t.Errorf("field 2 = %+v", f)
	}

	f, err = d.ReadField()
	if err != nil {
		t.Fatalf("field 3: %v", err)
	}
	if f.Number != 3 || f.WireType != WireBytes || string(f.Data) != "hello" {
		t.Errorf("field 3 = %+v", f)
	}

	f, err = d.ReadField()
	if err != nil {
		t.Fatalf("field 4: %v", err)
	}
	if f.Number != 4 || f.WireType != WireFixed32 || f.Value != 0xDEADBEEF {
		t.Errorf("field 4 = %+v", f)
	}

	if !d.EOF() {
		t.Errorf("decoder not at EOF, pos=%d len=%d", d.Pos(), len(buf))
	}
}

func TestReadField_RawSpansWholeField(t *testing.T) {
	var buf []byte
	buf = protowire.AppendTag(buf, 7, protowire.BytesType)
	buf = protowire.AppendString(buf, "payload")
	buf = protowire.AppendTag(buf, 1000, protowire.VarintType)
	buf = protowire.AppendVarint(buf, 1)

	d := NewDecoder(buf)
	var rejoined []byte
	for !d.EOF() {
		f, err := d.ReadField()
		if err != nil {
			t.Fatalf("ReadField: %v", err)
		}

		// Raw must be exactly what the reference scanner consumes.
		num, typ, n := protowire.ConsumeField(buf[len(rejoined):])
		if n < 0 {
			t.Fatalf("reference ConsumeField failed: %v", protowire.ParseError(n))
		}
		if int(f.Number) != int(num) || int(f.WireType) != int(typ) || len(f.Raw) != n {
			t.Errorf("field token (%d, %v, %d bytes) disagrees with reference (%d, %d, %d bytes)",
				f.Number, f.WireType, len(f.Raw), num, typ, n)
		}
		rejoined = append(rejoined, f.Raw...)
	}

	if !bytes.Equal(rejoined, buf) {
		t.Errorf("rejoined raw fields differ from input\n got % x\nwant % x", rejoined, buf)
	}
}

func TestReadField_UnknownWireTypes(t *testing.T) {
	for _, wt := range []WireType{3, 4, 6, 7} {
		e := NewEncoder()
		e.EncodeTag(1, wt)

		d := NewDecoder(e.Bytes())
		if _, err := d.ReadField(); !errors.Is(err, ErrUnknownWireType) {
			t.Errorf("wire type %d: expected ErrUnknownWireType, got %v", wt, err)
		}

		d = NewDecoder(e.Bytes())
		if _, err := d.DecodeVarint(); err != nil {
			t.Fatalf("tag read: %v", err)
		}
		if err := d.SkipField(wt); !errors.Is(err, ErrUnknownWireType) {
			t.Errorf("skip wire type %d: expected ErrUnknownWireType, got %v", wt, err)
		}
	}
}

func TestReadField_Truncated(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
	}{
		{"varint payload missing", []byte{0x08}},
		{"fixed64 payload short", []byte{0x09, 0x01, 0x02}},
		{"fixed32 payload short", []byte{0x0D, 0x01}},
		{"bytes payload short", []byte{0x0A, 0x05, 0x01}},
		{"bytes length missing", []byte{0x0A}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDecoder(tt.input)
			if _, err := d.ReadField(); !errors.Is(err, ErrTruncated) {
				t.Errorf("expected ErrTruncated, got %v", err)
			}
		})
	}
}

func TestSkipField_AllWireTypes(t *testing.T) {
	var buf []byte
	buf = protowire.AppendTag(buf, 1, protowire.VarintType)
	buf = protowire.AppendVarint(buf, 1<<40)
	buf = protowire.AppendTag(buf, 2, protowire.Fixed64Type)
	buf = protowire.AppendFixed64(buf, 7)
	buf = protowire.AppendTag(buf, 3, protowire.BytesType)
	buf = protowire.AppendBytes(buf, []byte{1, 2, 3})
	buf = protowire.AppendTag(buf, 4, protowire.Fixed32Type)
	buf = protowire.AppendFixed32(buf, 7)

	d := NewDecoder(buf)
	for !d.EOF() {
		tag, err := d.DecodeVarint()
		if err != nil {
			t.Fatalf("tag: %v", err)
		}
		_, wt := ParseTag(Tag(tag))
		if err := d.SkipField(wt); err != nil {
			t.Fatalf("SkipField(%v): %v", wt, err)
		}
	}

	if d.Remaining() != 0 {
		t.Errorf("remaining = %d after skipping all fields", d.Remaining())
	}
}

func TestDecoder_Empty(t *testing.T) {
	d := NewDecoder(nil)
	if !d.EOF() {
		t.Error("empty decoder should be at EOF")
	}
	if d.Remaining() != 0 {
		t.Errorf("Remaining = %d, want 0", d.Remaining())
	}
}
