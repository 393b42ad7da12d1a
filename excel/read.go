package excel

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/sirupsen/logrus"
)

// RowIndexKey holds the 1-based sheet row of a record read with IncludeRowIndex.
const RowIndexKey = "rowx"

type readConfig struct {
	skipTitles      bool
	failFast        bool
	keepBlank       bool
	includeRowIndex bool
	trimStrings     bool
	startRow        int
	maxRows         int
}

// ReadOption configures Handler.Read.
type ReadOption func(c *readConfig)

// SkipTitles starts reading at the second row.
func SkipTitles() ReadOption {
	return func(c *readConfig) { c.skipTitles = true }
}

// FailFast stops at the first row that cannot be read and returns its error.
func FailFast() ReadOption {
	return func(c *readConfig) { c.failFast = true }
}

// KeepBlankRows returns rows whose cells are all empty, with defaults applied.
func KeepBlankRows() ReadOption {
	return func(c *readConfig) { c.keepBlank = true }
}

// IncludeRowIndex stores the sheet row of every record under RowIndexKey.
func IncludeRowIndex() ReadOption {
	return func(c *readConfig) { c.includeRowIndex = true }
}

// TrimStrings strips surrounding spaces from the text read by string fields.
func TrimStrings() ReadOption {
	return func(c *readConfig) { c.trimStrings = true }
}

// StartRow sets the first 1-based row to read. It takes precedence over SkipTitles.
func StartRow(row int) ReadOption {
	return func(c *readConfig) { c.startRow = row }
}

// MaxRows limits the number of sheet rows examined.
func MaxRows(n int) ReadOption {
	return func(c *readConfig) { c.maxRows = n }
}

// Read casts the rows of the active sheet into records.
//
// A row whose cell fails to cast is left out and reported as a RowError;
// with FailFast the first such error is also returned as err. Blank rows are
// skipped unless KeepBlankRows is given.
func (h *Handler) Read(opts ...ReadOption) ([]Record, []RowError, error) {
	if h.src == nil {
		return nil, nil, ErrWriteOnly
	}
	if h.schema == nil {
		return nil, nil, errors.New("excel: handler has no schema")
	}
	cfg := readConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	rows, err := h.src.Rows(h.sheet)
	if err != nil {
		return nil, nil, fmt.Errorf("can't read the sheet with the sheetName = %s: %w", h.sheet, err)
	}
	if err := h.schema.prepareRead(); err != nil {
		return nil, nil, err
	}

	first := 1
	if cfg.skipTitles {
		first = 2
	}
	if cfg.startRow > 0 {
		first = cfg.startRow
	}
	date1904 := h.src.Date1904()

	records := make([]Record, 0, len(rows))
	var rowErrs []RowError
	examined := 0
	for idx := first - 1; idx < len(rows); idx++ {
		if cfg.maxRows > 0 && examined >= cfg.maxRows {
			break
		}
		examined++

		record, blank, rowErr := h.readRow(idx+1, rows[idx], date1904, cfg.trimStrings)
		if rowErr != nil {
			if cfg.failFast {
				return records, append(rowErrs, *rowErr), *rowErr
			}
			log.WithFields(logrus.Fields{
				"sheet": h.sheet,
				"row":   rowErr.Row,
				"field": rowErr.Field,
			}).Warn(rowErr.Error())
			rowErrs = append(rowErrs, *rowErr)
			continue
		}
		if blank && !cfg.keepBlank {
			continue
		}
		if cfg.includeRowIndex {
			record[RowIndexKey] = idx + 1
		}
		records = append(records, record)
	}
	log.Debugf("sheet = %v, %d records, %d row errors", h.sheet, len(records), len(rowErrs))
	return records, rowErrs, nil
}

// isBlankRow reports whether every cell is empty or whitespace, the same
// rule readRow applies to the cells of a schema.
func isBlankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// read a row of the sheet into a record, fields in column order
func (h *Handler) readRow(rowNum int, cells []string, date1904, trim bool) (Record, bool, *RowError) {
	record := make(Record, h.schema.Len()+1)
	blank := true
	for _, f := range h.schema.fields {
		raw := ""
		if f.Col < len(cells) {
			raw = cells[f.Col]
		}
		if strings.TrimSpace(raw) != "" {
			blank = false
		}
		if trim && f.Kind == KindString {
			raw = strings.TrimSpace(raw)
		}
		v, err := f.cast(raw, record, date1904)
		if err != nil {
			return record, false, &RowError{Row: rowNum, Record: record, Field: f.Name, Err: err}
		}
		record[f.Name] = v
	}
	return record, blank, nil
}

// ReadColumns reads raw cell text without casting. structure maps a key to a
// 0-based column; startRow is 0-based and maxRows < 0 reads every row.
func (h *Handler) ReadColumns(structure map[string]int, startRow, maxRows int) ([]Record, error) {
	if h.src == nil {
		return nil, ErrWriteOnly
	}
	rows, err := h.src.Rows(h.sheet)
	if err != nil {
		return nil, fmt.Errorf("can't read the sheet with the sheetName = %s: %w", h.sheet, err)
	}
	if startRow < 0 {
		startRow = 0
	}
	data := make([]Record, 0)
	for idx := startRow; idx < len(rows) && maxRows != 0; idx++ {
		record := make(Record, len(structure))
		for name, col := range structure {
			value := ""
			if col >= 0 && col < len(rows[idx]) {
				value = rows[idx][col]
			}
			record[name] = value
		}
		data = append(data, record)
		maxRows--
	}
	return data, nil
}

// ReadFromSheet reads the sheet into a slice of T. The first non-blank row is
// the header; struct fields are bound to columns through their x-read tag
// aliases, or x-col when given. The first row that fails to cast is returned
// as the error. String cells are trimmed.
func ReadFromSheet[T any](filepath string, sheetName string) ([]T, error) {
	h, err := Open(filepath, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		log.Tracef("the defer function fired, the xlsx file will be closed")
		if err := h.Close(); err != nil {
			log.Warnf("there is a mistake when file close: %v", err)
		}
	}()
	if err := h.SetSheetByName(sheetName); err != nil {
		return nil, fmt.Errorf("No sheet with the specified name exists: %w", err)
	}
	var zero []T
	data, _, err := h.readSheetInto(reflect.TypeOf(zero), FailFast(), TrimStrings())
	if err != nil {
		return nil, err
	}
	return data.Interface().([]T), nil
}
