package pipeline

import (
	"errors"
	"fmt"
)

// Failure classes the pipeline can surface. Callers match with errors.Is.
var (
	ErrTransport = errors.New("transport failure")
	ErrStatus    = errors.New("non-success status")
	ErrPayload   = errors.New("empty or malformed payload")
	ErrSchema    = errors.New("missing expected column")
	ErrDateParse = errors.New("unparsable date value")
	ErrWrite     = errors.New("write failure")
)

// StatusError reports a page request that came back with a non-2xx status.
type StatusError struct {
	Code   int
	Offset int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("page request at offset %d returned status %d", e.Offset, e.Code)
}

func (e *StatusError) Unwrap() error { return ErrStatus }

// SchemaError reports a record missing one of the projected columns.
type SchemaError struct {
	Column string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("record missing expected column %q", e.Column)
}

func (e *SchemaError) Unwrap() error { return ErrSchema }

// DateParseError reports a date field value no known layout accepts.
type DateParseError struct {
	Value string
}

func (e *DateParseError) Error() string {
	return fmt.Sprintf("cannot parse date value %q", e.Value)
}

func (e *DateParseError) Unwrap() error { return ErrDateParse }
