package protomsg

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/anirudhraja/protomsg/schema"
)

// ToJSON renders a message as JSON text via its dict form. Object keys
// come out in encoding/json's sorted-key order, so output is
// deterministic.
func ToJSON(m *Message, opts ...DictOption) ([]byte, error) {
	dict, err := ToDict(m, opts...)
	if err != nil {
		return nil, err
	}
	return json.Marshal(dict)
}

// FromJSON parses JSON text into a new message of the given descriptor.
// Numbers are decoded with full precision via json.Number, so 64-bit
// values survive whether quoted or bare.
func FromJSON(desc *schema.MessageDescriptor, data []byte) (*Message, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var dict map[string]interface{}
	if err := dec.Decode(&dict); err != nil {
		return nil, fmt.Errorf("invalid JSON: %v", err)
	}
	return FromDict(desc, dict)
}
