package settlement

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyInput is returned when a batch has no records.
var ErrEmptyInput = errors.New("input batch is empty")

// ValidationError is a fatal input problem detected before processing.
type ValidationError struct {
	Missing []string // logical field names that could not be resolved
}

func (e *ValidationError) Error() string {
	return "missing required fields: " + strings.Join(e.Missing, ", ")
}

// ParseError reports a timestamp that could not be normalized.
type ParseError struct {
	Field string
	Value string
}

func (e *ParseError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("cannot parse timestamp %q", e.Value)
	}
	return fmt.Sprintf("cannot parse %s timestamp %q", e.Field, e.Value)
}
