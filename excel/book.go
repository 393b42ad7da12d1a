package excel

import (
	"fmt"
	"reflect"
)

// ReadBook reads several sheets of one workbook at once. T is a struct whose
// fields are slices of row structs, each tagged with the sheet it reads:
//
//	type Book struct {
//		Cities []City  `x-sheet:"Cities"`
//		Codes  []Code  `x-sheet:"[1]"`
//	}
//
// "[n]" selects a sheet by index and "[]" the first one. String cells are
// trimmed. Rows failing to cast are skipped and returned per sheet.
func ReadBook[T any](path string) (*T, map[string][]RowError, error) {
	h, err := Open(path, nil)
	if err != nil {
		return nil, nil, err
	}
	defer func() {
		log.Tracef("the defer function fired, the xlsx file will be closed")
		if err := h.Close(); err != nil {
			log.Warnf("there is a mistake when file close: %v", err)
		}
	}()

	result := new(T)
	v := reflect.ValueOf(result).Elem()
	t := v.Type()
	if t.Kind() != reflect.Struct {
		return nil, nil, fmt.Errorf("%w: the type should be a struct, the current type is %s", ErrInvalidValue, t.String())
	}
	errLogs := make(map[string][]RowError)
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i) // is slice as []excel.Sheet1, []excel.Sheet2 ...
		tag, ok := field.Tag.Lookup(sheetTag)
		if !ok || !field.IsExported() {
			continue
		}
		if field.Type.Kind() != reflect.Slice {
			return nil, nil, fmt.Errorf("%w: the type should be a slice, the current type is %s", ErrInvalidValue, field.Type.String())
		}
		if err := h.SetSheetByName(tag); err != nil {
			return nil, nil, err
		}
		sheetData, rowErrs, err := h.readSheetInto(field.Type, TrimStrings())
		if err != nil {
			return nil, nil, fmt.Errorf("sheet %s: %w", h.sheet, err)
		}
		errLogs[h.sheet] = rowErrs
		v.Field(i).Set(sheetData)
	}
	return result, errLogs, nil
}

// read the active sheet into a new slice of sliceType, header in the first non-blank row
func (h *Handler) readSheetInto(sliceType reflect.Type, opts ...ReadOption) (reflect.Value, []RowError, error) {
	elemType := sliceType.Elem()
	mapping, err := mappingOf(elemType)
	if err != nil {
		return reflect.Value{}, nil, err
	}
	rows, err := h.src.Rows(h.sheet)
	if err != nil {
		return reflect.Value{}, nil, err
	}
	sheetData := reflect.MakeSlice(sliceType, 0, len(rows))
	headerIdx := -1
	for idx, row := range rows {
		if !isBlankRow(row) {
			headerIdx = idx
			break
		}
	}
	if headerIdx < 0 {
		return sheetData, nil, nil
	}
	if err := mapping.bindHeader(rows[headerIdx]); err != nil {
		return reflect.Value{}, nil, err
	}
	schema, err := mapping.schema()
	if err != nil {
		return reflect.Value{}, nil, err
	}
	h.schema = schema
	records, rowErrs, err := h.Read(append([]ReadOption{StartRow(headerIdx + 2)}, opts...)...)
	if err != nil {
		return reflect.Value{}, nil, err
	}
	for i, record := range records {
		item := reflect.New(elemType)
		target := item.Elem()
		if elemType.Kind() == reflect.Pointer {
			target.Set(reflect.New(elemType.Elem()))
			target = target.Elem()
		}
		if err := setDataForObject(target, record, mapping); err != nil {
			return reflect.Value{}, nil, fmt.Errorf("record %d: %w", i, err)
		}
		sheetData = reflect.Append(sheetData, item.Elem())
	}
	return sheetData, rowErrs, nil
}
