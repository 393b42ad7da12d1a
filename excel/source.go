package excel

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// Format is the container format of a workbook.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatXLS  Format = "xls"
)

// FormatFromPath picks the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".xlsx", ".xlsm", ".xltx", ".xltm":
		return FormatXLSX, nil
	case ".xls":
		return FormatXLS, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
}

// source is the read side of a workbook. Rows returns the raw cell text of
// every row of the sheet, empty rows included.
type source interface {
	SheetList() []string
	Rows(sheet string) ([][]string, error)
	Date1904() bool
	Close() error
}

type xlsxSource struct {
	f *excelize.File
}

func (s *xlsxSource) SheetList() []string {
	return s.f.GetSheetList()
}

func (s *xlsxSource) Rows(sheet string) ([][]string, error) {
	// raw values keep numbers and date serials unformatted
	return s.f.GetRows(sheet, excelize.Options{RawCellValue: true})
}

func (s *xlsxSource) Date1904() bool {
	props, err := s.f.GetWorkbookProps()
	if err != nil || props.Date1904 == nil {
		return false
	}
	return *props.Date1904
}

func (s *xlsxSource) Close() error {
	return s.f.Close()
}

// xlsSource reads legacy BIFF workbooks. The library formats dates of custom
// number formats itself, they come back as RFC3339 text. Other numbers come
// back as plain decimal text, date serials included.
type xlsSource struct {
	wb     *xls.WorkBook
	closer io.Closer
}

func openXLS(r io.ReadSeeker, closer io.Closer) (*xlsSource, error) {
	wb, err := xls.OpenReader(r, "utf-8")
	if err != nil {
		return nil, err
	}
	if wb == nil {
		return nil, fmt.Errorf("%w: empty xls workbook", ErrUnsupportedFormat)
	}
	return &xlsSource{wb: wb, closer: closer}, nil
}

func (s *xlsSource) SheetList() []string {
	names := make([]string, 0, s.wb.NumSheets())
	for i := 0; i < s.wb.NumSheets(); i++ {
		if ws := s.wb.GetSheet(i); ws != nil {
			names = append(names, ws.Name)
		}
	}
	return names
}

func (s *xlsSource) Rows(sheet string) ([][]string, error) {
	for i := 0; i < s.wb.NumSheets(); i++ {
		ws := s.wb.GetSheet(i)
		if ws == nil || ws.Name != sheet {
			continue
		}
		rows := make([][]string, 0, int(ws.MaxRow)+1)
		for r := 0; r <= int(ws.MaxRow); r++ {
			row := sheetRow(ws, r)
			if row == nil {
				rows = append(rows, nil)
				continue
			}
			cells := make([]string, 0, row.LastCol()+1)
			for c := 0; c <= row.LastCol(); c++ {
				cells = append(cells, row.Col(c))
			}
			rows = append(rows, trimTrailing(cells))
		}
		return trimTrailingRows(rows), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrSheetNotFound, sheet)
}

// sheetRow returns nil for a row the sheet keeps no record of. Excel writes
// none for empty rows and the library dereferences the missing entry.
func sheetRow(ws *xls.WorkSheet, r int) (row *xls.Row) {
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return ws.Row(r)
}

func (s *xlsSource) Date1904() bool {
	return false
}

func (s *xlsSource) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

func openSource(r io.Reader, format Format, closer io.Closer) (source, error) {
	switch format {
	case FormatXLSX:
		f, err := excelize.OpenReader(r)
		if err != nil {
			return nil, err
		}
		if closer != nil {
			// excelize holds the content in memory
			_ = closer.Close()
		}
		return &xlsxSource{f: f}, nil
	case FormatXLS:
		rs, ok := r.(io.ReadSeeker)
		if !ok {
			data, err := io.ReadAll(r)
			if err != nil {
				return nil, err
			}
			rs = bytes.NewReader(data)
		}
		return openXLS(rs, closer)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}

func trimTrailing(cells []string) []string {
	n := len(cells)
	for n > 0 && cells[n-1] == "" {
		n--
	}
	return cells[:n]
}

func trimTrailingRows(rows [][]string) [][]string {
	n := len(rows)
	for n > 0 && len(rows[n-1]) == 0 {
		n--
	}
	return rows[:n]
}
