package protomsg

import (
	"bytes"
	"errors"
	"testing"

	"github.com/anirudhraja/protomsg/schema"
)

func TestMarshal_Goldens(t *testing.T) {
	tests := []struct {
		name  string
		build func() *Message
		want  []byte
	}{
		{
			name:  "empty message",
			build: func() *Message { return New(testSale) },
			want:  nil,
		},
		{
			name: "varint scalar",
			build: func() *Message {
				m := New(testScalars)
				m.Set("f_int32", int32(150))
				return m
			},
			want: []byte{0x08, 0x96, 0x01},
		},
		{
			name: "negative int32 sign extends",
			build: func() *Message {
				m := New(testScalars)
				m.Set("f_int32", int32(-1))
				return m
			},
			want: []byte{0x08, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x01},
		},
		{
			name: "zigzag sint32",
			build: func() *Message {
				m := New(testScalars)
				m.Set("f_sint32", int32(-1))
				return m
			},
			want: []byte{0x28, 0x01},
		},
		{
			name: "zigzag sint64",
			build: func() *Message {
				m := New(testScalars)
				m.Set("f_sint64", int64(-2))
				return m
			},
			want: []byte{0x30, 0x03},
		},
		{
			name: "fixed32",
			build: func() *Message {
				m := New(testScalars)
				m.Set("f_fixed32", uint32(1))
				return m
			},
			want: []byte{0x3D, 0x01, 0x00, 0x00, 0x00},
		},
		{
			name: "double",
			build: func() *Message {
				m := New(testScalars)
				m.Set("f_double", 1.0)
				return m
			},
			want: []byte{0x61, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0xF0, 0x3F},
		},
		{
			name: "string",
			build: func() *Message {
				m := New(testScalars)
				m.Set("f_string", "hi")
				return m
			},
			want: []byte{0x72, 0x02, 0x68, 0x69},
		},
		{
			name: "bool",
			build: func() *Message {
				m := New(testScalars)
				m.Set("f_bool", true)
				return m
			},
			want: []byte{0x68, 0x01},
		},
		{
			name: "defaults omitted",
			build: func() *Message {
				m := New(testSale)
				m.Set("serial", int64(0))
				m.Set("note", "")
				m.Set("flags", []int32{})
				m.Set("status", int32(0))
				return m
			},
			want: nil,
		},
		{
			name: "packed repeated",
			build: func() *Message {
				m := New(testSale)
				m.Set("flags", []int32{1, 2, 3})
				return m
			},
			want: []byte{0x1A, 0x03, 0x01, 0x02, 0x03},
		},
		{
			name: "unpacked strings keep empty elements",
			build: func() *Message {
				m := New(testSale)
				m.Set("labels", []string{"a", ""})
				return m
			},
			want: []byte{0x22, 0x01, 0x61, 0x22, 0x00},
		},
		{
			name: "repeated empty messages",
			build: func() *Message {
				m := New(testSale)
				m.Set("extras", []interface{}{New(testItem), New(testItem)})
				return m
			},
			want: []byte{0x92, 0x01, 0x00, 0x92, 0x01, 0x00},
		},
		{
			name: "oneof zero member emits",
			build: func() *Message {
				m := New(testSale)
				m.Set("email", "")
				return m
			},
			want: []byte{0x4A, 0x00},
		},
		{
			name: "optional zero emits",
			build: func() *Message {
				m := New(testSale)
				m.Set("priority", int32(0))
				return m
			},
			want: []byte{0x40, 0x00},
		},
		{
			name: "wrapper zero emits empty submessage",
			build: func() *Message {
				m := New(testSale)
				m.Set("total", int64(0))
				return m
			},
			want: []byte{0x62, 0x00},
		},
		{
			name: "wrapper value",
			build: func() *Message {
				m := New(testSale)
				m.Set("total", int64(5))
				return m
			},
			want: []byte{0x62, 0x02, 0x08, 0x05},
		},
		{
			name: "child message",
			build: func() *Message {
				m := New(testSale)
				item := New(testItem)
				item.Set("sku", "X")
				m.Set("item", item)
				return m
			},
			want: []byte{0x2A, 0x03, 0x0A, 0x01, 0x58},
		},
		{
			name: "map entries sorted by string key",
			build: func() *Message {
				m := New(testSale)
				m.Set("counts", map[string]int32{"b": 2, "a": 1})
				return m
			},
			want: []byte{
				0x32, 0x05, 0x0A, 0x01, 0x61, 0x10, 0x01,
				0x32, 0x05, 0x0A, 0x01, 0x62, 0x10, 0x02,
			},
		},
		{
			name: "map entry drops empty string key keeps zero value",
			build: func() *Message {
				m := New(testSale)
				m.Set("counts", map[string]int32{"": 0})
				return m
			},
			want: []byte{0x32, 0x02, 0x10, 0x00},
		},
		{
			name: "map entry keeps zero varint key drops empty message value",
			build: func() *Message {
				m := New(testSale)
				m.Set("items", map[interface{}]interface{}{int32(0): New(testItem)})
				return m
			},
			want: []byte{0x3A, 0x02, 0x08, 0x00},
		},
		{
			name: "wrapper-valued map entry",
			build: func() *Message {
				m := New(testSale)
				m.Set("bonus", map[string]int64{"x": 7})
				return m
			},
			want: []byte{0x9A, 0x01, 0x07, 0x0A, 0x01, 0x78, 0x12, 0x02, 0x08, 0x07},
		},
		{
			name: "wrapper-valued map entry drops zero",
			build: func() *Message {
				m := New(testSale)
				m.Set("bonus", map[string]int64{"z": 0})
				return m
			},
			want: []byte{0x9A, 0x01, 0x03, 0x0A, 0x01, 0x7A},
		},
		{
			name: "declaration order regardless of set order",
			build: func() *Message {
				m := New(testSale)
				m.Set("status", int32(2))
				m.Set("serial", int64(1))
				return m
			},
			want: []byte{0x08, 0x01, 0x58, 0x02},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := tt.build()
			got, err := Marshal(m)
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("Marshal = %x, want %x", got, tt.want)
			}
			if n := Size(m); n != len(tt.want) {
				t.Errorf("Size = %d, want %d", n, len(tt.want))
			}
		})
	}
}

func TestMarshal_IntKeyMapSorted(t *testing.T) {
	m := New(testSale)
	full := New(testItem)
	full.Set("count", int32(1))
	m.Set("items", map[interface{}]interface{}{
		int32(2): full,
		int32(1): New(testItem),
	})

	got, err := Marshal(m)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := []byte{
		0x3A, 0x02, 0x08, 0x01, // key 1, empty value omitted
		0x3A, 0x06, 0x08, 0x02, 0x12, 0x02, 0x10, 0x01, // key 2, count=1
	}
	if !bytes.Equal(got, want) {
		t.Errorf("Marshal = %x, want %x", got, want)
	}
}

func TestMarshal_BoolKeyMapSorted(t *testing.T) {
	desc := &schema.MessageDescriptor{
		Name: "test.Toggles",
		Fields: []*schema.Field{
			{Name: "by_state", Number: 1, Kind: schema.KindMap, MapKey: schema.KindBool, MapValue: schema.KindString},
		},
	}
	m := New(desc)
	m.Set("by_state", map[interface{}]interface{}{true: "t", false: "f"})

	got, err := Marshal(m)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := []byte{
		0x0A, 0x05, 0x08, 0x00, 0x12, 0x01, 0x66, // false first
		0x0A, 0x05, 0x08, 0x01, 0x12, 0x01, 0x74,
	}
	if !bytes.Equal(got, want) {
		t.Errorf("Marshal = %x, want %x", got, want)
	}
}

func TestMarshal_RepeatedWrapper(t *testing.T) {
	desc := &schema.MessageDescriptor{
		Name: "test.Readings",
		Fields: []*schema.Field{
			{Name: "values", Number: 1, Kind: schema.KindMessage, Message: schema.Int64ValueDescriptor, Wraps: schema.KindInt64, Repeated: true},
		},
	}
	m := New(desc)
	m.Set("values", []int64{5, 0})

	got, err := Marshal(m)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := []byte{
		0x0A, 0x02, 0x08, 0x05,
		0x0A, 0x00, // zero element keeps its empty submessage
	}
	if !bytes.Equal(got, want) {
		t.Errorf("Marshal = %x, want %x", got, want)
	}
	if n := Size(m); n != len(want) {
		t.Errorf("Size = %d, want %d", n, len(want))
	}

	back := New(desc)
	if err := Unmarshal(got, back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	items := back.Get("values").([]interface{})
	if len(items) != 2 || items[0] != int64(5) || items[1] != int64(0) {
		t.Errorf("round trip = %v", items)
	}
}

func TestMarshal_UnknownFieldsLast(t *testing.T) {
	// Unknown field 99 (varint 5) arrives before a known field; the known
	// field re-emits first, the unknown span byte for byte at the end.
	input := []byte{0x98, 0x06, 0x05, 0x08, 0x07}
	m := New(testSale)
	if err := Unmarshal(input, m); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	got, err := Marshal(m)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := []byte{0x08, 0x07, 0x98, 0x06, 0x05}
	if !bytes.Equal(got, want) {
		t.Errorf("Marshal = %x, want %x", got, want)
	}
	if n := Size(m); n != len(want) {
		t.Errorf("Size = %d, want %d", n, len(want))
	}
}

func TestMarshal_NilMessage(t *testing.T) {
	if _, err := Marshal(nil); !errors.Is(err, ErrNilMessage) {
		t.Errorf("Marshal(nil) = %v, want ErrNilMessage", err)
	}
	if n := Size(nil); n != 0 {
		t.Errorf("Size(nil) = %d", n)
	}
}

func TestMarshal_FieldError(t *testing.T) {
	// Corrupting a stored value from inside the package surfaces as a
	// FieldError naming the field.
	m := New(testSale)
	m.values["serial"] = "bad"
	m.state["serial"] = hasValue

	_, err := Marshal(m)
	if err == nil {
		t.Fatal("expected error for corrupted value")
	}
	var fe *FieldError
	if !errors.As(err, &fe) {
		t.Fatalf("error type = %T, want *FieldError", err)
	}
	if len(fe.FieldPath) != 1 || fe.FieldPath[0] != "serial" {
		t.Errorf("FieldPath = %v", fe.FieldPath)
	}
}

func TestSize_MatchesMarshal(t *testing.T) {
	// A fully loaded message: every field shape at once.
	m := New(testSale)
	m.Set("serial", int64(1234567))
	m.Set("note", "weekly batch")
	m.Set("flags", []int32{0, -5, 300})
	m.Set("labels", []string{"x", "", "yz"})
	item := New(testItem)
	item.Set("sku", "A-77")
	item.Set("count", int32(12))
	m.Set("item", item)
	m.Set("counts", map[string]int32{"a": 1, "": 0, "long-key": -9})
	m.Set("items", map[interface{}]interface{}{int32(4): Clone(item)})
	m.Set("priority", int32(0))
	m.Set("phone", "555")
	m.Set("status", int32(2))
	m.Set("total", int64(100000))
	m.Set("payload", []byte{1, 2, 3})
	m.Set("ratio", 2.25)
	m.Set("extras", []interface{}{Clone(item), New(testItem)})
	m.Set("bonus", map[string]int64{"a": 0, "b": 12345})

	data, err := Marshal(m)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if n := Size(m); n != len(data) {
		t.Errorf("Size = %d, Marshal produced %d bytes", n, len(data))
	}

	s := New(testScalars)
	s.Set("f_int32", int32(-200))
	s.Set("f_int64", int64(1)<<40)
	s.Set("f_uint32", uint32(7))
	s.Set("f_uint64", uint64(1)<<60)
	s.Set("f_sint32", int32(-150))
	s.Set("f_sint64", int64(-1)<<35)
	s.Set("f_fixed32", uint32(9))
	s.Set("f_fixed64", uint64(9))
	s.Set("f_sfixed32", int32(-9))
	s.Set("f_sfixed64", int64(-9))
	s.Set("f_float", float32(3.5))
	s.Set("f_double", -0.125)
	s.Set("f_bool", true)
	s.Set("f_string", "sizes")
	s.Set("f_bytes", []byte{0xFF})

	data, err = Marshal(s)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if n := Size(s); n != len(data) {
		t.Errorf("Size = %d, Marshal produced %d bytes", n, len(data))
	}
}
