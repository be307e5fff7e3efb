package schema

import "sync"

// EnumValue is a single declared enum constant
type EnumValue struct {
	Name   string
	Number int32
}

// EnumDescriptor describes an enum type. Enums are open: a field may
// carry a number with no declared name, and such values survive decode,
// re-encode and dict output untouched.
type EnumDescriptor struct {
	Name   string
	Values []EnumValue

	once     sync.Once
	byName   map[string]int32
	byNumber map[int32]string
	err      error
}

// NewEnum builds an enum descriptor from declared values
func NewEnum(name string, values ...EnumValue) *EnumDescriptor {
	return &EnumDescriptor{Name: name, Values: values}
}

func (e *EnumDescriptor) tables() error {
	e.once.Do(func() {
		byName := make(map[string]int32, len(e.Values))
		byNumber := make(map[int32]string, len(e.Values))
		for _, v := range e.Values {
			if v.Name == "" {
				e.err = &DefinitionError{Name: e.Name, Reason: "enum value has no name"}
				return
			}
			if _, ok := byName[v.Name]; ok {
				e.err = &DefinitionError{Name: e.Name, Reason: "duplicate enum value name " + v.Name}
				return
			}
			byName[v.Name] = v.Number
			// Aliased numbers keep the first declared name.
			if _, ok := byNumber[v.Number]; !ok {
				byNumber[v.Number] = v.Name
			}
		}
		if len(e.Values) > 0 && e.Values[0].Number != 0 {
			e.err = &DefinitionError{Name: e.Name, Reason: "first enum value must be zero"}
			return
		}
		e.byName = byName
		e.byNumber = byNumber
	})
	return e.err
}

// Validate checks the definition and returns a DefinitionError for
// duplicate names or a nonzero first value.
func (e *EnumDescriptor) Validate() error {
	return e.tables()
}

// NumberByName returns the number for a declared value name
func (e *EnumDescriptor) NumberByName(name string) (int32, bool) {
	if e.tables() != nil {
		return 0, false
	}
	n, ok := e.byName[name]
	return n, ok
}

// NameByNumber returns the first declared name for a number
func (e *EnumDescriptor) NameByNumber(number int32) (string, bool) {
	if e.tables() != nil {
		return "", false
	}
	name, ok := e.byNumber[number]
	return name, ok
}
