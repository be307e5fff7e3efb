// Package registry stores message and enum descriptors under their fully
// qualified names and builds them from .proto source via go-protoparser.
package registry

import (
	"fmt"
	"sort"
	"strings"

	"github.com/anirudhraja/protomsg/schema"
)

// Registry maps fully qualified type names to descriptors. We look these
// up when we need to parse or marshal a message by name. Registration is
// expected to happen at startup; the registry is not synchronized.
type Registry struct {
	messages map[string]*schema.MessageDescriptor // fully qualified name -> message
	enums    map[string]*schema.EnumDescriptor    // fully qualified name -> enum
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		messages: make(map[string]*schema.MessageDescriptor),
		enums:    make(map[string]*schema.EnumDescriptor),
	}
}

// RegisterMessage validates a descriptor and stores it under its name.
func (r *Registry) RegisterMessage(desc *schema.MessageDescriptor) error {
	if desc == nil || desc.Name == "" {
		return fmt.Errorf("message descriptor must have a name")
	}
	if err := desc.Validate(); err != nil {
		return err
	}
	if _, exists := r.messages[desc.Name]; exists {
		return fmt.Errorf("message already registered: %s", desc.Name)
	}
	r.messages[desc.Name] = desc
	return nil
}

// RegisterEnum validates an enum descriptor and stores it under its name.
func (r *Registry) RegisterEnum(desc *schema.EnumDescriptor) error {
	if desc == nil || desc.Name == "" {
		return fmt.Errorf("enum descriptor must have a name")
	}
	if err := desc.Validate(); err != nil {
		return err
	}
	if _, exists := r.enums[desc.Name]; exists {
		return fmt.Errorf("enum already registered: %s", desc.Name)
	}
	r.enums[desc.Name] = desc
	return nil
}

// Message retrieves a message descriptor by name. An exact match wins;
// otherwise a name matching a unique suffix resolves, so "User" finds
// "shop.v1.User" as long as only one package declares it. The well-known
// google.protobuf types resolve without registration.
func (r *Registry) Message(name string) (*schema.MessageDescriptor, error) {
	if desc, exists := r.messages[name]; exists {
		return desc, nil
	}
	if desc, ok := schema.WellKnownMessage(name); ok {
		return desc, nil
	}

	var matches []*schema.MessageDescriptor
	for fullName, desc := range r.messages {
		if strings.HasSuffix(fullName, "."+name) {
			matches = append(matches, desc)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return nil, fmt.Errorf("message not found: %s", name)
	default:
		return nil, fmt.Errorf("message name %s is ambiguous across packages", name)
	}
}

// Enum retrieves an enum descriptor by name, with the same suffix
// matching as Message.
func (r *Registry) Enum(name string) (*schema.EnumDescriptor, error) {
	if desc, exists := r.enums[name]; exists {
		return desc, nil
	}
	if desc, ok := schema.WellKnownEnum(name); ok {
		return desc, nil
	}

	var matches []*schema.EnumDescriptor
	for fullName, desc := range r.enums {
		if strings.HasSuffix(fullName, "."+name) {
			matches = append(matches, desc)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return nil, fmt.Errorf("enum not found: %s", name)
	default:
		return nil, fmt.Errorf("enum name %s is ambiguous across packages", name)
	}
}

// ListMessages returns all registered message names, sorted.
func (r *Registry) ListMessages() []string {
	names := make([]string, 0, len(r.messages))
	for name := range r.messages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ListEnums returns all registered enum names, sorted.
func (r *Registry) ListEnums() []string {
	names := make([]string, 0, len(r.enums))
	for name := range r.enums {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
