package excel

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// struct tags understood by the struct helpers
const (
	readTag    = "x-read"    // header names, comma separated
	colTag     = "x-col"     // 0-based column, bypasses the header
	defaultTag = "x-default" // default written as cell text
	widthTag   = "x-width"
	choicesTag = "x-choices" // value=label pairs separated by ';'
	sheetTag   = "x-sheet"   // sheet of a slice field in ReadBook
)

var (
	timeType      = reflect.TypeOf(time.Time{})
	timeOfDayType = reflect.TypeOf(TimeOfDay{})
)

type FieldMappingItem struct {
	// the fieldName of the struct represent the row.
	FieldName string
	// the column name of the sheet, in the other word, is the header row of the sheet.
	ColName string
	// the index of columns in the header row, -1 until bound.
	ColIndex int
	// the fieldType
	FieldType reflect.Type
	// the header names the field answers to.
	Alias []string

	fixedCol bool
	index    int
	tag      reflect.StructTag
}

type structMapping struct {
	typ   reflect.Type
	items []*FieldMappingItem
}

// build a mapping between fields of customer struct and columns of a sheet
func mappingOf(t reflect.Type) (*structMapping, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: nil type", ErrInvalidValue)
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: the type should be a struct, the current type is %s", ErrInvalidValue, t.String())
	}
	m := &structMapping{typ: t}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		tag := f.Tag.Get(readTag)
		if tag == "-" {
			continue
		}
		item := &FieldMappingItem{
			FieldName: f.Name,
			ColIndex:  -1,
			FieldType: f.Type,
			index:     i,
			tag:       f.Tag,
		}
		for _, alias := range strings.Split(tag, ",") {
			if alias = strings.TrimSpace(alias); alias != "" {
				item.Alias = append(item.Alias, alias)
			}
		}
		if len(item.Alias) == 0 {
			item.Alias = []string{f.Name}
		}
		item.ColName = item.Alias[0]
		if colStr, ok := f.Tag.Lookup(colTag); ok {
			col, err := strconv.Atoi(strings.TrimSpace(colStr))
			if err != nil {
				return nil, fmt.Errorf("%w: field=%s has a bad %s tag %q", ErrInvalidValue, f.Name, colTag, colStr)
			}
			item.ColIndex = col
			item.fixedCol = true
		}
		m.items = append(m.items, item)
	}
	return m, nil
}

// update ColIndex of every item that is not fixed by x-col from the header row.
func (m *structMapping) bindHeader(header []string) error {
	colNameMappingIndex, err := initColNameMappingIndex(header)
	if err != nil {
		return err
	}
	for _, item := range m.items {
		if item.fixedCol {
			continue
		}
		found := false
		for idx, key := range header {
			key = strings.TrimSpace(key)
			if _, free := colNameMappingIndex[key]; !free || !containsInArray(key, item.Alias) {
				continue
			}
			item.ColIndex = idx
			item.ColName = key
			delete(colNameMappingIndex, key)
			found = true
			break
		}
		if !found {
			return fmt.Errorf("%w: the field=%s not found in sheet header", ErrInvalidValue, item.FieldName)
		}
	}
	return nil
}

// bind unfixed items to their position among the mapped fields
func (m *structMapping) bindPositions() {
	for pos, item := range m.items {
		if !item.fixedCol {
			item.ColIndex = pos
		}
	}
}

func (m *structMapping) schema() (*Schema, error) {
	fields := make([]*Field, 0, len(m.items))
	for _, item := range m.items {
		f, err := item.field()
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	return NewSchema(fields...)
}

func (item *FieldMappingItem) field() (*Field, error) {
	kind, err := kindOf(item.FieldType)
	if err != nil {
		return nil, fmt.Errorf("field=%s: %w", item.FieldName, err)
	}
	f := newField(item.FieldName, item.ColIndex, kind, nil)
	f.Label = item.ColName

	if w, ok := item.tag.Lookup(widthTag); ok {
		width, err := strconv.ParseFloat(strings.TrimSpace(w), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: field=%s has a bad %s tag %q", ErrInvalidValue, item.FieldName, widthTag, w)
		}
		f.Width = width
	}
	if c, ok := item.tag.Lookup(choicesTag); ok {
		for _, pair := range strings.Split(c, ";") {
			value, label, found := strings.Cut(pair, "=")
			if !found {
				return nil, fmt.Errorf("%w: field=%s has a bad %s tag %q", ErrInvalidValue, item.FieldName, choicesTag, c)
			}
			v, err := normalize(kind, strings.TrimSpace(value))
			if err != nil {
				return nil, fmt.Errorf("field=%s: %w", item.FieldName, err)
			}
			f.Choices = append(f.Choices, Choice{Value: v, Label: strings.TrimSpace(label)})
		}
	}
	if d, ok := item.tag.Lookup(defaultTag); ok {
		// the default is written as it would appear in a cell
		v, err := (&Field{Name: f.Name, Label: f.Label, Kind: kind, Choices: f.Choices}).Cast(d, nil)
		if err != nil {
			return nil, fmt.Errorf("field=%s default: %w", item.FieldName, err)
		}
		WithDefault(v)(f)
	}
	return f, nil
}

func kindOf(t reflect.Type) (Kind, error) {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch {
	case t == timeType:
		return KindDateTime, nil
	case t == timeOfDayType:
		return KindTime, nil
	}
	switch t.Kind() {
	case reflect.String:
		return KindString, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return KindInt, nil
	case reflect.Float32, reflect.Float64:
		return KindFloat, nil
	case reflect.Bool:
		return KindBool, nil
	}
	return "", fmt.Errorf("%w: unsupported field type %s", ErrInvalidValue, t.String())
}

// SchemaOf derives a schema from the struct type T. Columns come from the
// x-col tag, or else from the declaration order of the mapped fields.
func SchemaOf[T any]() (*Schema, error) {
	var zero T
	m, err := mappingOf(reflect.TypeOf(zero))
	if err != nil {
		return nil, err
	}
	m.bindPositions()
	return m.schema()
}

// Initialize the mapping between the header column name and the index of the column where the column name must be unique
func initColNameMappingIndex(cells []string) (map[string]int, error) {
	colNameMappingIndex := make(map[string]int, len(cells))
	for colIndex, cell := range cells {
		cell = strings.TrimSpace(cell)
		if cell == "" {
			continue
		}
		if _, ok := colNameMappingIndex[cell]; ok {
			return nil, fmt.Errorf("%w: the same column name %q exists in the sheet", ErrRepeatedColumn, cell)
		}
		colNameMappingIndex[cell] = colIndex
	}
	return colNameMappingIndex, nil
}

// Determines whether the tag in the field matches the header column name
func containsInArray(key string, tags []string) bool {
	key = strings.TrimSpace(key)
	for _, s := range tags {
		if strings.TrimSpace(s) == key {
			return true
		}
	}
	return false
}
