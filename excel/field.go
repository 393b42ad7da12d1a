// Package excel maps spreadsheet rows to records and back.
//
// A Schema is an ordered set of fields, each bound to a column and a kind.
// A Handler binds a schema to one sheet of an open workbook and reads the
// rows into records (one map per row, keyed by field name) or writes records
// out, deriving column widths and number formats from the fields.
package excel

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Kind selects how a field casts cell values.
type Kind string

const (
	KindString   Kind = "string"
	KindInt      Kind = "int"
	KindFloat    Kind = "float"
	KindBool     Kind = "bool"
	KindDate     Kind = "date"
	KindDateTime Kind = "datetime"
	KindTime     Kind = "time"
	KindLookup   Kind = "lookup"
	KindFunc     Kind = "func"
)

// Record is one row, keyed by field name.
type Record map[string]any

// Choice pairs a stored value with the label written in the sheet.
type Choice struct {
	Value any
	Label string
}

// CastFunc converts the raw text of a cell. row holds the fields of the
// current row that were already cast, in column order.
type CastFunc func(raw string, row Record) (any, error)

// EncodeFunc converts a record value into the value written to a cell.
type EncodeFunc func(value any) (any, error)

// Field is a declarative binding of a column to a kind.
type Field struct {
	Name string
	// Col is the 0-based column. A negative value counts back from the
	// number of fields in the schema.
	Col   int
	Kind  Kind
	Label string
	// Width is the column width in characters, 0 leaves the sheet default.
	Width float64
	// Location is attached to values read by datetime fields.
	Location *time.Location
	Choices  []Choice

	def        any
	hasDefault bool
	// offset of a column declared from the end, kept so extended schemas
	// resolve it against their own size
	fromEnd int

	castFunc   CastFunc
	encodeFunc EncodeFunc

	lookup *lookupConfig
}

// FieldOption configures a Field.
type FieldOption func(f *Field)

// WithDefault sets the value used for empty cells. A value of type
// func() any is called every time a default is needed.
func WithDefault(v any) FieldOption {
	return func(f *Field) {
		f.def = v
		f.hasDefault = true
	}
}

// WithChoices declares the value/label pairs of a choice field.
func WithChoices(choices ...Choice) FieldOption {
	return func(f *Field) {
		f.Choices = append([]Choice(nil), choices...)
	}
}

// WithWidth sets the column width in characters.
func WithWidth(width float64) FieldOption {
	return func(f *Field) {
		f.Width = width
	}
}

// WithLabel sets the header text. It defaults to the field name.
func WithLabel(label string) FieldOption {
	return func(f *Field) {
		f.Label = label
	}
}

// WithLocation attaches loc to the values of a datetime field.
func WithLocation(loc *time.Location) FieldOption {
	return func(f *Field) {
		f.Location = loc
	}
}

func newField(name string, col int, kind Kind, opts []FieldOption) *Field {
	f := &Field{Name: name, Col: col, Kind: kind}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CharField reads the cell text as is.
func CharField(name string, col int, opts ...FieldOption) *Field {
	return newField(name, col, KindString, opts)
}

// IntegerField reads whole numbers, "3.0" included.
func IntegerField(name string, col int, opts ...FieldOption) *Field {
	return newField(name, col, KindInt, opts)
}

// FloatField reads decimal numbers.
func FloatField(name string, col int, opts ...FieldOption) *Field {
	return newField(name, col, KindFloat, opts)
}

// BooleanField reads TRUE and FALSE cells, 1 and 0 included.
func BooleanField(name string, col int, opts ...FieldOption) *Field {
	return newField(name, col, KindBool, opts)
}

// DateField reads dates without a clock.
func DateField(name string, col int, opts ...FieldOption) *Field {
	return newField(name, col, KindDate, opts)
}

// DateTimeField reads date serials and timestamp text.
func DateTimeField(name string, col int, opts ...FieldOption) *Field {
	return newField(name, col, KindDateTime, opts)
}

// TimeField reads the time-of-day part of a cell as a TimeOfDay.
func TimeField(name string, col int, opts ...FieldOption) *Field {
	return newField(name, col, KindTime, opts)
}

// FuncField delegates casting to cast and, when encode is not nil, writing
// to encode.
func FuncField(name string, col int, cast CastFunc, encode EncodeFunc, opts ...FieldOption) *Field {
	f := newField(name, col, KindFunc, opts)
	f.castFunc = cast
	f.encodeFunc = encode
	return f
}

// HasDefault reports whether the field declares a default value.
func (f *Field) HasDefault() bool {
	return f.hasDefault
}

// Default returns the default value, calling it when it is a func() any.
func (f *Field) Default() any {
	if fn, ok := f.def.(func() any); ok {
		return fn()
	}
	return f.def
}

// Cast converts the raw text of a cell using the 1900 date system.
func (f *Field) Cast(raw string, row Record) (any, error) {
	return f.cast(raw, row, false)
}

func (f *Field) cast(raw string, row Record, date1904 bool) (any, error) {
	if raw == "" {
		if f.hasDefault {
			return f.Default(), nil
		}
		return nil, nil
	}
	if strings.TrimSpace(raw) == "" && f.hasDefault {
		return f.Default(), nil
	}

	if len(f.Choices) > 0 {
		return f.decodeChoice(raw)
	}

	var (
		v   any
		err error
	)
	switch f.Kind {
	case KindString:
		v = raw
	case KindInt:
		v, err = parseInt64(raw)
	case KindFloat:
		v, err = parseFloat64(raw)
	case KindBool:
		v, err = parseBool(raw)
	case KindDate:
		var t time.Time
		t, err = parseTime(raw, date1904)
		v = dateOnly(t)
	case KindDateTime:
		var t time.Time
		t, err = parseTime(raw, date1904)
		v = inLocation(t, f.Location)
	case KindTime:
		v, err = parseTimeOfDay(raw)
	case KindLookup:
		v, err = f.lookupKey(raw, row)
	case KindFunc:
		if f.castFunc == nil {
			return raw, nil
		}
		v, err = f.castFunc(raw, row)
	default:
		err = fmt.Errorf("%w: kind %q", ErrInvalidValue, f.Kind)
	}
	if err != nil {
		return nil, newFieldError(f, raw, err)
	}
	return v, nil
}

// the label in the sheet is decoded to its value, normalized to the field kind
func (f *Field) decodeChoice(raw string) (any, error) {
	label := strings.TrimSpace(raw)
	for _, c := range f.Choices {
		if c.Label == raw || c.Label == label {
			if v, err := normalize(f.Kind, c.Value); err == nil {
				return v, nil
			}
			return c.Value, nil
		}
	}
	return nil, newFieldError(f, raw, ErrUnknownChoice)
}

// Encode converts a record value into the value written to the cell.
// A nil result leaves the cell blank.
func (f *Field) Encode(value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	if len(f.Choices) > 0 {
		key := keyOf(value)
		for _, c := range f.Choices {
			if keyOf(c.Value) == key {
				return c.Label, nil
			}
		}
		return nil, newFieldError(f, value, ErrUnknownChoice)
	}

	switch f.Kind {
	case KindDate:
		t, err := coerceTime(value)
		if err != nil {
			return nil, newFieldError(f, value, err)
		}
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
	case KindDateTime:
		t, err := coerceTime(value)
		if err != nil {
			return nil, newFieldError(f, value, err)
		}
		// cells carry no zone, the wall clock is written
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC), nil
	case KindTime:
		tod, err := coerceTimeOfDay(value)
		if err != nil {
			return nil, newFieldError(f, value, err)
		}
		return tod.Serial(), nil
	case KindLookup:
		v, err := f.lookupValue(value)
		if err != nil {
			return nil, newFieldError(f, value, err)
		}
		return v, nil
	case KindFunc:
		if f.encodeFunc == nil {
			return value, nil
		}
		v, err := f.encodeFunc(value)
		if err != nil {
			return nil, newFieldError(f, value, err)
		}
		return v, nil
	}
	return value, nil
}

// NumFmt returns the custom number format of the column, if any.
func (f *Field) NumFmt() string {
	switch f.Kind {
	case KindDate:
		return "yyyy-mm-dd"
	case KindDateTime:
		return "yyyy-mm-dd hh:mm:ss"
	case KindTime:
		return "hh:mm:ss"
	}
	return ""
}

// columnWidth is the width applied to the column when writing.
func (f *Field) columnWidth() float64 {
	if f.Width > 0 {
		return f.Width
	}
	switch f.Kind {
	case KindDate, KindDateTime, KindTime:
		return 18
	}
	return 0
}

func (f *Field) prepareRead() error {
	if f.Kind == KindLookup {
		return f.loadLookup()
	}
	return nil
}

func (f *Field) prepareWrite() error {
	return f.prepareRead()
}

func (f *Field) String() string {
	return fmt.Sprintf("%s: %s", f.Kind, f.Label)
}

func (f *Field) clone() *Field {
	cp := *f
	cp.Choices = append([]Choice(nil), f.Choices...)
	if f.lookup != nil {
		lc := *f.lookup
		cp.lookup = &lc
	}
	return &cp
}

// TimeOfDay is a clock reading without a date.
type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

// Serial returns the fraction of a day used by spreadsheets for times.
func (t TimeOfDay) Serial() float64 {
	return float64(t.Hour*3600+t.Minute*60+t.Second) / 86400
}

func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *TimeOfDay) UnmarshalText(text []byte) error {
	v, err := parseTimeOfDay(string(text))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

func timeOfDayFromSerial(serial float64) TimeOfDay {
	frac := serial - math.Floor(serial)
	secs := int(math.Round(frac * 86400))
	if secs >= 86400 {
		secs = 0
	}
	return TimeOfDay{Hour: secs / 3600, Minute: secs % 3600 / 60, Second: secs % 60}
}
