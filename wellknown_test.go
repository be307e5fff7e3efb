package protomsg

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/anirudhraja/protomsg/schema"
)

var testEvent = &schema.MessageDescriptor{
	Name: "test.Event",
	Fields: []*schema.Field{
		{Name: "at", Number: 1, Kind: schema.KindMessage, Message: schema.TimestampDescriptor},
		{Name: "took", Number: 2, Kind: schema.KindMessage, Message: schema.DurationDescriptor},
		{Name: "meta", Number: 3, Kind: schema.KindMessage, Message: schema.StructDescriptor},
		{Name: "mask", Number: 4, Kind: schema.KindMessage, Message: schema.FieldMaskDescriptor},
		{Name: "extra", Number: 5, Kind: schema.KindMessage, Message: schema.ValueDescriptor},
		{Name: "tags", Number: 6, Kind: schema.KindMessage, Message: schema.ListValueDescriptor},
	},
}

func TestTimestamp_Conversions(t *testing.T) {
	at := time.Date(2024, 3, 4, 5, 6, 7, 123456789, time.UTC)
	m := NewTimestamp(at)
	if got := m.Get("seconds").(int64); got != at.Unix() {
		t.Errorf("seconds = %d, want %d", got, at.Unix())
	}
	if got := m.Get("nanos").(int32); got != 123456789 {
		t.Errorf("nanos = %d", got)
	}
	if back := AsTime(m); !back.Equal(at) {
		t.Errorf("AsTime = %v, want %v", back, at)
	}
	if got := AsTime(nil); !got.Equal(time.Unix(0, 0)) {
		t.Errorf("AsTime(nil) = %v", got)
	}
}

func TestTimestamp_JSONFractions(t *testing.T) {
	tests := []struct {
		nanos int
		want  string
	}{
		{0, "2024-03-04T05:06:07Z"},
		{120000000, "2024-03-04T05:06:07.120Z"},
		{120500000, "2024-03-04T05:06:07.120500Z"},
		{7, "2024-03-04T05:06:07.000000007Z"},
	}
	for _, tt := range tests {
		at := time.Date(2024, 3, 4, 5, 6, 7, tt.nanos, time.UTC)
		if got := timestampToJSON(NewTimestamp(at)); got != tt.want {
			t.Errorf("timestampToJSON(nanos=%d) = %q, want %q", tt.nanos, got, tt.want)
		}
	}
}

func TestTimestamp_FromJSON(t *testing.T) {
	// Offsets are accepted and normalized to UTC.
	m, err := timestampFromJSON("2024-03-04T06:06:07.5+01:00")
	if err != nil {
		t.Fatalf("timestampFromJSON: %v", err)
	}
	if got := timestampToJSON(m); got != "2024-03-04T05:06:07.500Z" {
		t.Errorf("normalized = %q", got)
	}

	if _, err := timestampFromJSON("not-a-time"); err == nil || !strings.Contains(err.Error(), "invalid timestamp") {
		t.Errorf("error = %v", err)
	}
}

func TestDuration_Conversions(t *testing.T) {
	m := NewDuration(1500 * time.Millisecond)
	if got := m.Get("seconds").(int64); got != 1 {
		t.Errorf("seconds = %d", got)
	}
	if got := m.Get("nanos").(int32); got != 500000000 {
		t.Errorf("nanos = %d", got)
	}
	if got := AsDuration(m); got != 1500*time.Millisecond {
		t.Errorf("AsDuration = %v", got)
	}

	neg := NewDuration(-1500 * time.Millisecond)
	if got := neg.Get("seconds").(int64); got != -1 {
		t.Errorf("negative seconds = %d", got)
	}
	if got := neg.Get("nanos").(int32); got != -500000000 {
		t.Errorf("negative nanos = %d", got)
	}
	if got := AsDuration(neg); got != -1500*time.Millisecond {
		t.Errorf("negative AsDuration = %v", got)
	}
}

func TestDuration_Saturation(t *testing.T) {
	m := New(schema.DurationDescriptor)
	m.Set("seconds", int64(1)<<62)
	if got := AsDuration(m); got != time.Duration(maxInt64) {
		t.Errorf("positive overflow = %v", got)
	}
	m.Set("seconds", -(int64(1) << 62))
	if got := AsDuration(m); got != time.Duration(minInt64) {
		t.Errorf("negative overflow = %v", got)
	}
}

func TestDuration_JSON(t *testing.T) {
	tests := []struct {
		seconds int64
		nanos   int32
		want    string
	}{
		{0, 0, "0.000s"},
		{1, 500000000, "1.500s"},
		{3, 1500, "3.000001s"},
		{0, 7, "0.000000007s"},
		{-1, -500000000, "-1.500s"},
		{0, -500000000, "-0.500s"},
	}
	for _, tt := range tests {
		m := New(schema.DurationDescriptor)
		m.Set("seconds", tt.seconds)
		m.Set("nanos", tt.nanos)
		if got := durationToJSON(m); got != tt.want {
			t.Errorf("durationToJSON(%d, %d) = %q, want %q", tt.seconds, tt.nanos, got, tt.want)
		}
	}

	m, err := durationFromJSON("1.500s")
	if err != nil {
		t.Fatalf("durationFromJSON: %v", err)
	}
	if got := AsDuration(m); got != 1500*time.Millisecond {
		t.Errorf("parsed = %v", got)
	}
	if _, err := durationFromJSON("abc"); err == nil || !strings.Contains(err.Error(), "invalid duration") {
		t.Errorf("error = %v", err)
	}
}

func TestFieldMask_JSON(t *testing.T) {
	m := New(schema.FieldMaskDescriptor)
	m.Set("paths", []string{"user_id", "display_name.first_name"})
	if got := fieldMaskToJSON(m); got != "userId,displayName.firstName" {
		t.Errorf("fieldMaskToJSON = %q", got)
	}

	back := fieldMaskFromJSON("userId, displayName.firstName")
	paths := back.Get("paths").([]interface{})
	want := []interface{}{"user_id", "display_name.first_name"}
	if !reflect.DeepEqual(paths, want) {
		t.Errorf("paths = %v, want %v", paths, want)
	}

	empty := fieldMaskFromJSON("")
	if got := empty.Get("paths").([]interface{}); len(got) != 0 {
		t.Errorf("empty mask paths = %v", got)
	}
}

func TestStructValue_Natives(t *testing.T) {
	src := map[string]interface{}{
		"s": "x",
		"n": 3.5,
		"b": true,
		"z": nil,
		"l": []interface{}{"a", float64(2)},
		"o": map[string]interface{}{"k": "v"},
	}
	m, err := structFromNative(src)
	if err != nil {
		t.Fatalf("structFromNative: %v", err)
	}
	if got := structToNative(m); !reflect.DeepEqual(got, src) {
		t.Errorf("round trip = %v, want %v", got, src)
	}

	// Integers of any Go spelling widen to number_value.
	v, err := valueFromNative(int32(9))
	if err != nil {
		t.Fatalf("valueFromNative: %v", err)
	}
	if name, val := v.WhichOneof("kind"); name != "number_value" || val != float64(9) {
		t.Errorf("WhichOneof = %q, %v", name, val)
	}

	// Null round-trips through the null_value kind.
	nv, err := valueFromNative(nil)
	if err != nil {
		t.Fatalf("valueFromNative(nil): %v", err)
	}
	if name, _ := nv.WhichOneof("kind"); name != "null_value" {
		t.Errorf("nil kind = %q", name)
	}
	if got := valueToNative(nv); got != nil {
		t.Errorf("valueToNative(null) = %v", got)
	}

	if _, err := structFromNative(map[string]interface{}{"bad": make(chan int)}); err == nil || !strings.Contains(err.Error(), "cannot represent") {
		t.Errorf("error = %v", err)
	}
}

func TestWKT_SetCoercion(t *testing.T) {
	at := time.Date(2023, 7, 1, 12, 0, 0, 0, time.UTC)
	m := New(testEvent)
	m.Set("at", at)
	m.Set("took", 90*time.Second)

	if got := AsTime(m.Get("at").(*Message)); !got.Equal(at) {
		t.Errorf("at = %v", got)
	}
	if got := AsDuration(m.Get("took").(*Message)); got != 90*time.Second {
		t.Errorf("took = %v", got)
	}
}

func TestWKT_DictForms(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	m := New(testEvent)
	m.Set("at", at)
	m.Set("took", 1500*time.Millisecond)
	meta, err := structFromNative(map[string]interface{}{"k": "v"})
	if err != nil {
		t.Fatalf("structFromNative: %v", err)
	}
	m.Set("meta", meta)
	mask := New(schema.FieldMaskDescriptor)
	mask.Set("paths", []string{"user_id"})
	m.Set("mask", mask)
	extra, err := valueFromNative("hi")
	if err != nil {
		t.Fatalf("valueFromNative: %v", err)
	}
	m.Set("extra", extra)
	tags, err := listValueFromNative([]interface{}{"a", float64(1)})
	if err != nil {
		t.Fatalf("listValueFromNative: %v", err)
	}
	m.Set("tags", tags)

	dict, err := ToDict(m)
	if err != nil {
		t.Fatalf("ToDict: %v", err)
	}
	want := map[string]interface{}{
		"at":    "2024-01-02T03:04:05Z",
		"took":  "1.500s",
		"meta":  map[string]interface{}{"k": "v"},
		"mask":  "userId",
		"extra": "hi",
		"tags":  []interface{}{"a", float64(1)},
	}
	if !reflect.DeepEqual(dict, want) {
		t.Errorf("ToDict = %v, want %v", dict, want)
	}

	back, err := FromDict(testEvent, dict)
	if err != nil {
		t.Fatalf("FromDict: %v", err)
	}
	if got := AsTime(back.Get("at").(*Message)); !got.Equal(at) {
		t.Errorf("at = %v", got)
	}
	if got := AsDuration(back.Get("took").(*Message)); got != 1500*time.Millisecond {
		t.Errorf("took = %v", got)
	}
	if got := structToNative(back.Get("meta").(*Message)); !reflect.DeepEqual(got, map[string]interface{}{"k": "v"}) {
		t.Errorf("meta = %v", got)
	}
}

func TestWKT_DefaultForms(t *testing.T) {
	dict, err := ToDict(New(testEvent), WithDefaults())
	if err != nil {
		t.Fatalf("ToDict: %v", err)
	}
	want := map[string]interface{}{
		"at":    "1970-01-01T00:00:00Z",
		"took":  "0.000s",
		"meta":  map[string]interface{}{},
		"mask":  "",
		"extra": nil,
		"tags":  []interface{}{},
	}
	if !reflect.DeepEqual(dict, want) {
		t.Errorf("ToDict(WithDefaults) = %v, want %v", dict, want)
	}
}
