package protomsg

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors reported while encoding or decoding messages. Wire-level
// sentinels (truncation, malformed varints, unknown wire types) live in the
// wire package and pass through wrapped in a *FieldError.
var (
	ErrInvalidUTF8 = errors.New("invalid UTF-8 in string field")
	ErrNilMessage  = errors.New("nil message")
)

// FieldError reports an encoding or decoding failure together with the path
// of field names from the root message down to the field that failed.
type FieldError struct {
	FieldPath []string // e.g., ["order", "items", "price"]
	Err       error    // underlying error
}

// Error implements the error interface.
func (e *FieldError) Error() string {
	if len(e.FieldPath) == 0 {
		return e.Err.Error()
	}

	return fmt.Sprintf("error at proto path %s: %v", strings.Join(e.FieldPath, "."), e.Err)
}

// Unwrap returns the underlying error.
func (e *FieldError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is for compatibility.
func (e *FieldError) Is(target error) bool {
	_, ok := target.(*FieldError)
	return ok
}

// wrapWithField wraps an error with a field name, prepending it to the path
// so the outermost message contributes the first segment.
func wrapWithField(err error, fieldName string) error {
	if err == nil {
		return nil
	}

	if fe, ok := err.(*FieldError); ok {
		return &FieldError{
			FieldPath: append([]string{fieldName}, fe.FieldPath...),
			Err:       fe.Err,
		}
	}

	return &FieldError{
		FieldPath: []string{fieldName},
		Err:       err,
	}
}
