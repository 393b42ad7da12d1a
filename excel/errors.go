package excel

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedFormat = errors.New("excel: unsupported file format")
	ErrSheetNotFound     = errors.New("excel: sheet not found")
	ErrDuplicateField    = errors.New("excel: duplicate field")
	ErrRepeatedColumn    = errors.New("excel: repeated column")
	ErrUnknownChoice     = errors.New("excel: unknown choice")
	ErrInvalidValue      = errors.New("excel: invalid value")
	ErrLookupNotFound    = errors.New("excel: lookup value not found")
	// ErrReadOnly is returned by write operations on a handler opened for reading.
	ErrReadOnly = errors.New("excel: handler is read only")
	// ErrWriteOnly is returned by read operations on a handler created for writing.
	ErrWriteOnly = errors.New("excel: handler is write only")
)

// FieldError describes a failure to convert a single cell.
type FieldError struct {
	Field string
	Label string
	Value any
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("column %s: value %q: %v", e.Label, fmt.Sprint(e.Value), e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// RowError is collected for every row that could not be read.
// Row is the 1-based sheet row and Record holds the fields cast before the failure.
type RowError struct {
	Row    int
	Record Record
	Field  string
	Err    error
}

func (e RowError) Error() string {
	return fmt.Sprintf("cannot read row %d: %v", e.Row, e.Err)
}

func (e RowError) Unwrap() error {
	return e.Err
}

func newFieldError(f *Field, value any, err error) *FieldError {
	return &FieldError{
		Field: f.Name,
		Label: f.Label,
		Value: value,
		Err:   err,
	}
}
