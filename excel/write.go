package excel

import (
	"errors"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
)

// SetTitleStyle replaces the style of title cells. The default is a bold font.
func (h *Handler) SetTitleStyle(style *excelize.Style) {
	h.titleStyle = style
	delete(h.styles, "title")
}

// AutoFit widens columns to the longest value written through the handler.
func (h *Handler) AutoFit(enabled bool) {
	if !enabled {
		h.fitter = nil
		return
	}
	if h.fitter == nil {
		h.fitter = newColumnFitter()
	}
}

// Write writes records to the active sheet, one row each, starting at the
// first row, or the second when setTitles writes the field labels first.
// Keys without a field are ignored.
func (h *Handler) Write(records []Record, setTitles bool) error {
	if h.file == nil {
		return ErrReadOnly
	}
	if h.schema == nil {
		return errors.New("excel: handler has no schema")
	}
	if err := h.schema.prepareWrite(); err != nil {
		return err
	}
	if err := h.setColumnFormats(); err != nil {
		return err
	}

	row := 1
	if setTitles {
		style, err := h.titleStyleID()
		if err != nil {
			return err
		}
		for _, f := range h.schema.fields {
			if err := h.setCell(f.Col, row, f.Label, style); err != nil {
				return err
			}
		}
		row++
	}

	for _, record := range records {
		for _, f := range h.schema.fields {
			value, ok := record[f.Name]
			if !ok {
				continue
			}
			v, err := f.Encode(value)
			if err != nil {
				return fmt.Errorf("write row %d: %w", row, err)
			}
			if v == nil {
				continue
			}
			if err := h.setCell(f.Col, row, v, 0); err != nil {
				return fmt.Errorf("write row %d: %w", row, err)
			}
		}
		row++
	}
	log.Debugf("sheet = %v, %d records written", h.sheet, len(records))
	return nil
}

// WriteRows writes rows of plain values starting at the 0-based offsets.
// With setTitles the first row gets the title style.
func (h *Handler) WriteRows(rows [][]any, rowOffset, colOffset int, setTitles bool) error {
	if h.file == nil {
		return ErrReadOnly
	}
	title := 0
	if setTitles {
		var err error
		if title, err = h.titleStyleID(); err != nil {
			return err
		}
	}
	for y, values := range rows {
		style := 0
		if y == 0 {
			style = title
		}
		for x, value := range values {
			if value == nil {
				continue
			}
			if err := h.setCell(colOffset+x, rowOffset+y+1, value, style); err != nil {
				return err
			}
		}
	}
	return nil
}

// WriteColumns writes columns of plain values starting at the 0-based
// offsets. With setTitles the first column gets the title style.
func (h *Handler) WriteColumns(columns [][]any, rowOffset, colOffset int, setTitles bool) error {
	if h.file == nil {
		return ErrReadOnly
	}
	title := 0
	if setTitles {
		var err error
		if title, err = h.titleStyleID(); err != nil {
			return err
		}
	}
	for x, values := range columns {
		style := 0
		if x == 0 {
			style = title
		}
		for y, value := range values {
			if value == nil {
				continue
			}
			if err := h.setCell(colOffset+x, rowOffset+y+1, value, style); err != nil {
				return err
			}
		}
	}
	return nil
}

// SetColumnFormatsFromExample applies date and time formats to the columns
// whose example value is a time.Time or a TimeOfDay.
func (h *Handler) SetColumnFormatsFromExample(row []any) error {
	if h.file == nil {
		return ErrReadOnly
	}
	for i, cell := range row {
		var numFmt string
		switch v := cell.(type) {
		case time.Time:
			numFmt = (&Field{Kind: KindDate}).NumFmt()
			if v.Hour() != 0 || v.Minute() != 0 || v.Second() != 0 {
				numFmt = (&Field{Kind: KindDateTime}).NumFmt()
			}
		case TimeOfDay:
			numFmt = (&Field{Kind: KindTime}).NumFmt()
		default:
			continue
		}
		if err := h.formatColumn(i, numFmt, 18); err != nil {
			return err
		}
	}
	return nil
}

// widths and number formats of the schema columns
func (h *Handler) setColumnFormats() error {
	for _, f := range h.schema.fields {
		if err := h.formatColumn(f.Col, f.NumFmt(), f.columnWidth()); err != nil {
			return fmt.Errorf("format column of field %s: %w", f.Name, err)
		}
	}
	return nil
}

func (h *Handler) formatColumn(col int, numFmt string, width float64) error {
	name, err := excelize.ColumnNumberToName(col + 1)
	if err != nil {
		return err
	}
	if numFmt != "" {
		style, err := h.numFmtStyleID(numFmt)
		if err != nil {
			return err
		}
		if err := h.file.SetColStyle(h.sheet, name, style); err != nil {
			return err
		}
	}
	if width > 0 {
		if err := h.file.SetColWidth(h.sheet, name, name, width); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) setCell(col, row int, value any, style int) error {
	cell, err := excelize.CoordinatesToCellName(col+1, row)
	if err != nil {
		return err
	}
	if err := h.file.SetCellValue(h.sheet, cell, value); err != nil {
		return err
	}
	// the default sheet is kept once it holds data
	h.fresh = false
	if style != 0 {
		if err := h.file.SetCellStyle(h.sheet, cell, cell, style); err != nil {
			return err
		}
	}
	if h.fitter != nil {
		return h.fitter.observe(h.file, h.sheet, col, value)
	}
	return nil
}

func (h *Handler) titleStyleID() (int, error) {
	if id, ok := h.styles["title"]; ok {
		return id, nil
	}
	style := h.titleStyle
	if style == nil {
		style = &excelize.Style{Font: &excelize.Font{Bold: true}}
	}
	id, err := h.file.NewStyle(style)
	if err != nil {
		return 0, err
	}
	h.styles["title"] = id
	return id, nil
}

func (h *Handler) numFmtStyleID(numFmt string) (int, error) {
	if id, ok := h.styles[numFmt]; ok {
		return id, nil
	}
	id, err := h.file.NewStyle(&excelize.Style{CustomNumFmt: &numFmt})
	if err != nil {
		return 0, err
	}
	h.styles[numFmt] = id
	return id, nil
}

// WriteToSheet writes items to a new workbook at path, titles in the first
// row. The schema is derived with SchemaOf.
func WriteToSheet[T any](path string, sheetName string, items []T) error {
	schema, err := SchemaOf[T]()
	if err != nil {
		return err
	}
	records, err := EncodeStructs(items)
	if err != nil {
		return err
	}
	h := Create(path, schema)
	defer func() {
		if err := h.Close(); err != nil {
			log.Warnf("there is a mistake when file close: %v", err)
		}
	}()
	if err := h.AddSheet(sheetName); err != nil {
		return err
	}
	if err := h.Write(records, true); err != nil {
		return err
	}
	return h.Save()
}
