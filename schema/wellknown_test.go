package schema

import "testing"

func TestWellKnown_AllDescriptorsValidate(t *testing.T) {
	for name, d := range wellKnownMessages {
		if err := d.Validate(); err != nil {
			t.Errorf("%s: %v", name, err)
		}
		if d.Name != name {
			t.Errorf("descriptor for %s names itself %s", name, d.Name)
		}
	}
	if err := NullValueEnum.Validate(); err != nil {
		t.Errorf("NullValue: %v", err)
	}
}

func TestWellKnown_StructValueCycle(t *testing.T) {
	fields := StructDescriptor.FieldByName("fields")
	if fields == nil || fields.Kind != KindMap || fields.MapValueMessage != ValueDescriptor {
		t.Fatalf("Struct.fields = %+v", fields)
	}

	structValue := ValueDescriptor.FieldByName("struct_value")
	if structValue == nil || structValue.Message != StructDescriptor {
		t.Fatalf("Value.struct_value = %+v", structValue)
	}

	values := ListValueDescriptor.FieldByName("values")
	if values == nil || !values.Repeated || values.Message != ValueDescriptor {
		t.Fatalf("ListValue.values = %+v", values)
	}

	// Every Value field sits in the "kind" oneof.
	members := ValueDescriptor.OneofFields("kind")
	if len(members) != 6 {
		t.Errorf("Value oneof has %d members, want 6", len(members))
	}
}

func TestWellKnown_WrapperKinds(t *testing.T) {
	tests := []struct {
		name string
		kind Kind
	}{
		{WKTDoubleValue, KindDouble},
		{WKTFloatValue, KindFloat},
		{WKTInt64Value, KindInt64},
		{WKTUInt64Value, KindUint64},
		{WKTInt32Value, KindInt32},
		{WKTUInt32Value, KindUint32},
		{WKTBoolValue, KindBool},
		{WKTStringValue, KindString},
		{WKTBytesValue, KindBytes},
	}

	for _, tt := range tests {
		k, ok := WrapperKind(tt.name)
		if !ok || k != tt.kind {
			t.Errorf("WrapperKind(%s) = %s, %v", tt.name, k, ok)
		}
		if !IsWrapper(tt.name) {
			t.Errorf("IsWrapper(%s) = false", tt.name)
		}

		d, ok := WellKnownMessage(tt.name)
		if !ok {
			t.Fatalf("WellKnownMessage(%s) missing", tt.name)
		}
		value := d.FieldByName("value")
		if value == nil || value.Number != 1 || value.Kind != tt.kind {
			t.Errorf("%s value field = %+v", tt.name, value)
		}
	}

	if IsWrapper(WKTTimestamp) {
		t.Error("Timestamp is not a wrapper")
	}
	if _, ok := WrapperKind("test.Message"); ok {
		t.Error("WrapperKind should miss ordinary messages")
	}
}

func TestWellKnown_EnumLookup(t *testing.T) {
	e, ok := WellKnownEnum(WKTNullValue)
	if !ok || e != NullValueEnum {
		t.Fatalf("WellKnownEnum(NullValue) = %v, %v", e, ok)
	}
	if n, ok := e.NumberByName("NULL_VALUE"); !ok || n != 0 {
		t.Errorf("NULL_VALUE = %d, %v", n, ok)
	}
	if _, ok := WellKnownEnum("test.Color"); ok {
		t.Error("WellKnownEnum should miss ordinary enums")
	}
}
