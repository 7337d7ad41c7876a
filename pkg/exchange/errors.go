package exchange

import (
	"errors"
	"fmt"
)

var (
	// ErrParseFailure reports input that is not a well-formed document.
	ErrParseFailure = errors.New("parse failure")
	// ErrUnsupportedEntity reports a record of an unknown type.
	ErrUnsupportedEntity = errors.New("unsupported entity")
)

// ImportError names the record that could not be imported.
type ImportError struct {
	Record string
	Index  int
	Err    error
}

func (e *ImportError) Error() string {
	if e.Record == "" {
		return fmt.Sprintf("exchange: import: %v", e.Err)
	}
	return fmt.Sprintf("exchange: import: %s %d: %v", e.Record, e.Index, e.Err)
}

func (e *ImportError) Unwrap() error { return e.Err }
