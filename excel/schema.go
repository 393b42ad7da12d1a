package excel

import (
	"fmt"
	"sort"
)

// Schema is the ordered field set of a handler. Fields are sorted by column
// and column indices are unique.
type Schema struct {
	fields []*Field
	byName map[string]*Field
}

// NewSchema collects fields into a schema. Negative columns are resolved
// against the number of fields. The fields are copied, so one field value
// may be shared by several schemas.
func NewSchema(fields ...*Field) (*Schema, error) {
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if f == nil {
			continue
		}
		if f.Name == "" {
			return nil, fmt.Errorf("%w: field without a name on column %d", ErrDuplicateField, f.Col)
		}
		if seen[f.Name] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateField, f.Name)
		}
		seen[f.Name] = true
	}
	return buildSchema(fields)
}

// MustSchema is like NewSchema but panics on error. It is meant for
// package level schema declarations.
func MustSchema(fields ...*Field) *Schema {
	s, err := NewSchema(fields...)
	if err != nil {
		panic(err)
	}
	return s
}

func buildSchema(fields []*Field) (*Schema, error) {
	s := &Schema{byName: make(map[string]*Field, len(fields))}
	for _, f := range fields {
		if f == nil {
			continue
		}
		cp := f.clone()
		if cp.Col < 0 {
			cp.fromEnd = cp.Col
		}
		if cp.Label == "" {
			cp.Label = cp.Name
		}
		s.fields = append(s.fields, cp)
		s.byName[cp.Name] = cp
	}

	count := len(s.fields)
	cols := make(map[int]*Field, count)
	for _, f := range s.fields {
		if f.fromEnd < 0 {
			f.Col = count + f.fromEnd
			if f.Col < 0 {
				return nil, fmt.Errorf("%w: field %s resolves to column %d", ErrInvalidValue, f.Name, f.Col)
			}
		}
		if other, ok := cols[f.Col]; ok {
			return nil, fmt.Errorf("%w: %s collides with field %s on column %d", ErrRepeatedColumn, f.Name, other.Name, f.Col)
		}
		cols[f.Col] = f
	}
	sort.SliceStable(s.fields, func(i, j int) bool {
		return s.fields[i].Col < s.fields[j].Col
	})
	return s, nil
}

// Extend returns a schema holding the fields of s followed by fields.
// A field named like one of s replaces it.
func (s *Schema) Extend(fields ...*Field) (*Schema, error) {
	merged := make([]*Field, 0, len(s.fields)+len(fields))
	override := make(map[string]*Field, len(fields))
	for _, f := range fields {
		if f != nil {
			override[f.Name] = f
		}
	}
	for _, f := range s.fields {
		if _, ok := override[f.Name]; ok {
			continue
		}
		merged = append(merged, f)
	}
	merged = append(merged, fields...)
	return NewSchema(merged...)
}

// Fields returns the fields ordered by column.
func (s *Schema) Fields() []*Field {
	return append([]*Field(nil), s.fields...)
}

func (s *Schema) Field(name string) (*Field, bool) {
	f, ok := s.byName[name]
	return f, ok
}

func (s *Schema) Len() int {
	return len(s.fields)
}

// Labels returns the header texts ordered by column.
func (s *Schema) Labels() []string {
	labels := make([]string, len(s.fields))
	for i, f := range s.fields {
		labels[i] = f.Label
	}
	return labels
}

// MaxCol returns the highest column of the schema, -1 when empty.
func (s *Schema) MaxCol() int {
	if len(s.fields) == 0 {
		return -1
	}
	return s.fields[len(s.fields)-1].Col
}

func (s *Schema) prepareRead() error {
	for _, f := range s.fields {
		if err := f.prepareRead(); err != nil {
			return err
		}
	}
	return nil
}

func (s *Schema) prepareWrite() error {
	for _, f := range s.fields {
		if err := f.prepareWrite(); err != nil {
			return err
		}
	}
	return nil
}
