package excel

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Handler binds a schema to the active sheet of a workbook. A handler is
// either opened for reading or created for writing, and is not safe for
// concurrent use.
type Handler struct {
	schema *Schema
	sheet  string

	// read mode
	src source

	// write mode
	file       *excelize.File
	path       string
	fresh      bool
	styles     map[string]int
	titleStyle *excelize.Style
	fitter     *columnFitter
}

// Open opens the workbook at path for reading. The format follows the file
// extension. schema may be nil when only raw reads are needed.
func Open(path string, schema *Schema) (*Handler, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("file opening failed. %s: %w", path, err)
	}
	h, err := openHandler(file, format, file, schema)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("file opening failed. %s: %w", path, err)
	}
	log.Tracef("workbook %s opened, active sheet %q", path, h.sheet)
	return h, nil
}

// OpenReader reads a workbook of the given format from r.
func OpenReader(r io.Reader, format Format, schema *Schema) (*Handler, error) {
	return openHandler(r, format, nil, schema)
}

func openHandler(r io.Reader, format Format, closer io.Closer, schema *Schema) (*Handler, error) {
	src, err := openSource(r, format, closer)
	if err != nil {
		return nil, err
	}
	h := &Handler{schema: schema, src: src}
	sheets := src.SheetList()
	if len(sheets) == 0 {
		src.Close()
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrSheetNotFound)
	}
	h.sheet = sheets[0]
	return h, nil
}

// Create starts a new OOXML workbook saved to path by Save.
func Create(path string, schema *Schema) *Handler {
	f := excelize.NewFile()
	return &Handler{
		schema: schema,
		file:   f,
		path:   path,
		sheet:  f.GetSheetName(0),
		fresh:  true,
		styles: make(map[string]int),
	}
}

func (h *Handler) Schema() *Schema {
	return h.schema
}

// SetSchema rebinds the handler to another schema.
func (h *Handler) SetSchema(schema *Schema) {
	h.schema = schema
}

// SheetName returns the active sheet.
func (h *Handler) SheetName() string {
	return h.sheet
}

func (h *Handler) SheetNames() []string {
	if h.src != nil {
		return h.src.SheetList()
	}
	return h.file.GetSheetList()
}

// SetSheet activates the sheet at the 0-based index.
func (h *Handler) SetSheet(index int) error {
	names := h.SheetNames()
	if index < 0 || index >= len(names) {
		return fmt.Errorf("%w: index %d out of %d sheets", ErrSheetNotFound, index, len(names))
	}
	h.sheet = names[index]
	return nil
}

// SetSheetByName activates a sheet by name. A name written as "[n]" selects
// the sheet by index and "[]" the first sheet.
func (h *Handler) SetSheetByName(name string) error {
	resolved, err := h.resolveSheetName(name)
	if err != nil {
		return err
	}
	for _, s := range h.SheetNames() {
		if s == resolved {
			h.sheet = s
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrSheetNotFound, name)
}

// use to convert a sheet reference such as "[1]" to a right sheet name
func (h *Handler) resolveSheetName(sheetName string) (string, error) {
	if len(sheetName) < 2 || sheetName[0] != '[' || sheetName[len(sheetName)-1] != ']' {
		return sheetName, nil
	}
	names := h.SheetNames()
	indexStr := strings.TrimSpace(sheetName[1 : len(sheetName)-1])
	if indexStr == "" {
		// '[]' is the first sheet
		if len(names) == 0 {
			return "", fmt.Errorf("%w: workbook has no sheets", ErrSheetNotFound)
		}
		return names[0], nil
	}
	index, err := strconv.Atoi(indexStr)
	if err != nil {
		return "", fmt.Errorf("%w: the sheet tag declared in '[]' is not a number: %s", ErrSheetNotFound, sheetName)
	}
	if index < 0 || index >= len(names) {
		return "", fmt.Errorf("%w: the sheet tag declared in '[n]' is out of the sheet count: %s", ErrSheetNotFound, sheetName)
	}
	return names[index], nil
}

// AddSheet appends a sheet to a workbook being written and activates it.
// The first call renames the default sheet of a new file that holds no data yet.
func (h *Handler) AddSheet(name string) error {
	if h.file == nil {
		return ErrReadOnly
	}
	if h.fresh {
		if err := h.file.SetSheetName(h.sheet, name); err != nil {
			return err
		}
		h.fresh = false
	} else {
		if _, err := h.file.NewSheet(name); err != nil {
			return err
		}
	}
	idx, err := h.file.GetSheetIndex(name)
	if err != nil {
		return err
	}
	h.file.SetActiveSheet(idx)
	h.sheet = name
	return nil
}

// Save writes the workbook to the path given to Create.
func (h *Handler) Save() error {
	if h.file == nil {
		return ErrReadOnly
	}
	if h.path == "" {
		return errors.New("excel: no path to save to")
	}
	if err := h.file.SaveAs(h.path); err != nil {
		return fmt.Errorf("save %s: %w", h.path, err)
	}
	log.Tracef("workbook %s saved", h.path)
	return nil
}

// SaveTo writes the workbook to w.
func (h *Handler) SaveTo(w io.Writer) error {
	if h.file == nil {
		return ErrReadOnly
	}
	_, err := h.file.WriteTo(w)
	return err
}

func (h *Handler) Close() error {
	if h.src != nil {
		return h.src.Close()
	}
	if h.file != nil {
		return h.file.Close()
	}
	return nil
}

// File exposes the underlying excelize file of a handler in write mode, or
// of an xlsx workbook opened for reading. It is nil for xls workbooks.
func (h *Handler) File() *excelize.File {
	if h.file != nil {
		return h.file
	}
	if s, ok := h.src.(*xlsxSource); ok {
		return s.f
	}
	return nil
}
