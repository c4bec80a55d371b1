package normalize

import (
	"errors"
	"fmt"
)

// ErrNoData is returned when an envelope carries an error indicator or no data
// container. It is an expected outcome, not a failure.
var ErrNoData = errors.New("document has no data")

// FieldError reports a field that is missing or cannot be decoded where the
// schema requires it.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("malformed field %q: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

var errMissing = errors.New("missing")

func missing(field string) error {
	return &FieldError{Field: field, Err: errMissing}
}
