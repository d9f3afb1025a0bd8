package model

import "fmt"

// ParseErrorKind enumerates the ways document parsing can fail.
type ParseErrorKind string

const (
	ParseErrEncoding           ParseErrorKind = "encoding"
	ParseErrUnrecognizedLayout ParseErrorKind = "unrecognized_layout"
	ParseErrInvalidDate        ParseErrorKind = "invalid_date"
	ParseErrInvalidAmount      ParseErrorKind = "invalid_amount"
	ParseErrMissingField       ParseErrorKind = "missing_field"
)

// ParseError represents a document parsing failure. Parsing never
// surfaces anything else: callers can rely on the kind to decide how to
// report the failure and keep processing sibling documents.
type ParseError struct {
	Kind    ParseErrorKind
	Field   string
	Message string
	Cause   error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s (%v)", e.Kind, e.Field, e.Message, e.Cause)
	}
	if e.Field != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Kind, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// NewParseError creates a new parse error
func NewParseError(kind ParseErrorKind, field, message string, cause error) *ParseError {
	return &ParseError{
		Kind:    kind,
		Field:   field,
		Message: message,
		Cause:   cause,
	}
}
