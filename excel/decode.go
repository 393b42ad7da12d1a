package excel

import (
	"fmt"
	"math"
	"reflect"
)

// Decode converts records into values of the struct type T, matching record
// keys with struct field names.
func Decode[T any](records []Record) ([]T, error) {
	var zero T
	m, err := mappingOf(reflect.TypeOf(zero))
	if err != nil {
		return nil, err
	}
	return decodeInto[T](m, records)
}

func decodeInto[T any](m *structMapping, records []Record) ([]T, error) {
	results := make([]T, 0, len(records))
	for i, record := range records {
		item := new(T)
		v := reflect.ValueOf(item).Elem()
		if v.Kind() == reflect.Pointer {
			v.Set(reflect.New(v.Type().Elem()))
			v = v.Elem()
		}
		if err := setDataForObject(v, record, m); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		results = append(results, *item)
	}
	return results, nil
}

// Set the object value for each record
func setDataForObject(item reflect.Value, record Record, m *structMapping) error {
	for _, mi := range m.items {
		value, ok := record[mi.FieldName]
		if !ok || value == nil {
			continue
		}
		field := item.Field(mi.index)
		if err := assign(field, value); err != nil {
			return fmt.Errorf("col=%s, %w", mi.ColName, err)
		}
	}
	return nil
}

// assign stores a record value into a struct field, converting numbers
// between widths and allocating pointers.
func assign(field reflect.Value, value any) error {
	if field.Kind() == reflect.Pointer {
		elem := reflect.New(field.Type().Elem())
		if err := assign(elem.Elem(), value); err != nil {
			return err
		}
		field.Set(elem)
		return nil
	}

	rv := reflect.ValueOf(value)
	switch field.Kind() {
	case reflect.String:
		field.SetString(fmt.Sprint(value))
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := normalize(KindInt, value)
		if err != nil {
			return err
		}
		i := n.(int64)
		if field.OverflowInt(i) {
			return fmt.Errorf("%w: value=%d overflows %s", ErrInvalidValue, i, field.Type())
		}
		field.SetInt(i)
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := normalize(KindInt, value)
		if err != nil {
			return err
		}
		i := n.(int64)
		if i < 0 || field.OverflowUint(uint64(i)) {
			return fmt.Errorf("%w: value=%d overflows %s", ErrInvalidValue, i, field.Type())
		}
		field.SetUint(uint64(i))
		return nil
	case reflect.Float32, reflect.Float64:
		n, err := normalize(KindFloat, value)
		if err != nil {
			return err
		}
		f := n.(float64)
		if field.Kind() == reflect.Float32 && math.Abs(f) > math.MaxFloat32 {
			return fmt.Errorf("%w: value=%v overflows float32", ErrInvalidValue, f)
		}
		field.SetFloat(f)
		return nil
	case reflect.Bool:
		b, err := normalize(KindBool, value)
		if err != nil {
			return err
		}
		field.SetBool(b.(bool))
		return nil
	}
	if rv.Type().AssignableTo(field.Type()) {
		field.Set(rv)
		return nil
	}
	if rv.Type().ConvertibleTo(field.Type()) {
		field.Set(rv.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("%w: cannot assign %T to %s", ErrInvalidValue, value, field.Type())
}

// EncodeStructs converts struct values into records keyed by field name.
func EncodeStructs[T any](items []T) ([]Record, error) {
	var zero T
	m, err := mappingOf(reflect.TypeOf(zero))
	if err != nil {
		return nil, err
	}
	records := make([]Record, 0, len(items))
	for _, it := range items {
		v := reflect.ValueOf(it)
		if v.Kind() == reflect.Pointer {
			if v.IsNil() {
				continue
			}
			v = v.Elem()
		}
		record := make(Record, len(m.items))
		for _, mi := range m.items {
			fv := v.Field(mi.index)
			if fv.Kind() == reflect.Pointer {
				if fv.IsNil() {
					record[mi.FieldName] = nil
					continue
				}
				fv = fv.Elem()
			}
			record[mi.FieldName] = fv.Interface()
		}
		records = append(records, record)
	}
	return records, nil
}
