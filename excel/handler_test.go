package excel

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// writeBook saves a workbook with the given sheets, rows starting at A1.
func writeBook(t *testing.T, sheets []string, rows map[string][][]any) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, name := range sheets {
		if i == 0 {
			if name != "Sheet1" {
				require.NoError(t, f.SetSheetName("Sheet1", name))
			}
			continue
		}
		_, err := f.NewSheet(name)
		require.NoError(t, err)
	}
	for sheet, data := range rows {
		for i, row := range data {
			if len(row) == 0 {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			require.NoError(t, err)
			values := row
			require.NoError(t, f.SetSheetRow(sheet, cell, &values))
		}
	}
	path := filepath.Join(t.TempDir(), "book.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func peopleSchema() *Schema {
	return MustSchema(
		CharField("name", 0, WithLabel("Name")),
		IntegerField("level", 1, WithDefault(int64(1)), WithChoices(
			Choice{Value: 1, Label: "low"},
			Choice{Value: 2, Label: "high"},
		)),
		FloatField("score", 2),
		BooleanField("active", 3),
		DateField("joined", 4),
		TimeField("start", 5),
	)
}

func TestWriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "people.xlsx")
	joined := time.Date(2023, 3, 15, 0, 0, 0, 0, time.UTC)
	records := []Record{
		{"name": "ann", "level": int64(2), "score": 9.5, "active": true, "joined": joined, "start": TimeOfDay{Hour: 9, Minute: 30}},
		{"name": "bob", "score": 7.0, "active": false, "joined": joined.AddDate(0, 1, 0), "start": TimeOfDay{Hour: 17}, "unknown": "ignored"},
	}

	w := Create(path, peopleSchema())
	require.NoError(t, w.AddSheet("People"))
	require.NoError(t, w.Write(records, true))
	require.NoError(t, w.Save())
	require.NoError(t, w.Close())

	h, err := Open(path, peopleSchema())
	require.NoError(t, err)
	defer h.Close()
	assert.Equal(t, "People", h.SheetName())
	assert.Equal(t, []string{"People"}, h.SheetNames())

	got, rowErrs, err := h.Read(SkipTitles())
	require.NoError(t, err)
	assert.Empty(t, rowErrs)
	require.Len(t, got, 2)

	want := []Record{
		{"name": "ann", "level": int64(2), "score": 9.5, "active": true, "joined": joined, "start": TimeOfDay{Hour: 9, Minute: 30}},
		{"name": "bob", "level": int64(1), "score": 7.0, "active": false, "joined": joined.AddDate(0, 1, 0), "start": TimeOfDay{Hour: 17}},
	}
	assert.Equal(t, want, got)

	f := h.File()
	require.NotNil(t, f)
	title, err := f.GetCellValue("People", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Name", title)
	label, err := f.GetCellValue("People", "B2")
	require.NoError(t, err)
	assert.Equal(t, "high", label)
	blank, err := f.GetCellValue("People", "B3")
	require.NoError(t, err)
	assert.Empty(t, blank)
	width, err := f.GetColWidth("People", "E")
	require.NoError(t, err)
	assert.Equal(t, 18.0, width)
}

func TestReadOptions(t *testing.T) {
	path := writeBook(t, []string{"Data"}, map[string][][]any{
		"Data": {
			{"name", "n"},
			{"ann", 1},
			{},
			{"bob", 2},
			{" cid ", 3},
		},
	})
	schema := MustSchema(CharField("name", 0), IntegerField("n", 1))
	h, err := Open(path, schema)
	require.NoError(t, err)
	defer h.Close()

	t.Run("blank rows skipped", func(t *testing.T) {
		got, _, err := h.Read(SkipTitles())
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, Record{"name": "bob", "n": int64(2)}, got[1])
	})

	t.Run("blank rows kept", func(t *testing.T) {
		got, _, err := h.Read(SkipTitles(), KeepBlankRows())
		require.NoError(t, err)
		require.Len(t, got, 4)
		assert.Equal(t, Record{"name": nil, "n": nil}, got[1])
	})

	t.Run("titles read as data", func(t *testing.T) {
		got, rowErrs, err := h.Read()
		require.NoError(t, err)
		require.Len(t, rowErrs, 1)
		assert.Equal(t, 1, rowErrs[0].Row)
		assert.Len(t, got, 3)
	})

	t.Run("row index", func(t *testing.T) {
		got, _, err := h.Read(SkipTitles(), IncludeRowIndex())
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, 2, got[0][RowIndexKey])
		assert.Equal(t, 4, got[1][RowIndexKey])
		assert.Equal(t, 5, got[2][RowIndexKey])
	})

	t.Run("trim strings", func(t *testing.T) {
		got, _, err := h.Read(StartRow(5), TrimStrings())
		require.NoError(t, err)
		assert.Equal(t, []Record{{"name": "cid", "n": int64(3)}}, got)

		got, _, err = h.Read(StartRow(5))
		require.NoError(t, err)
		assert.Equal(t, []Record{{"name": " cid ", "n": int64(3)}}, got)
	})

	t.Run("start and max rows", func(t *testing.T) {
		got, _, err := h.Read(StartRow(4), MaxRows(1))
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "bob", got[0]["name"])
	})
}

func TestReadRowErrors(t *testing.T) {
	path := writeBook(t, []string{"Sheet1"}, map[string][][]any{
		"Sheet1": {
			{"name", "n"},
			{"ann", "x"},
			{"bob", 2},
			{"cid", "y"},
		},
	})
	schema := MustSchema(CharField("name", 0), IntegerField("n", 1))
	h, err := Open(path, schema)
	require.NoError(t, err)
	defer h.Close()

	got, rowErrs, err := h.Read(SkipTitles())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "bob", got[0]["name"])

	require.Len(t, rowErrs, 2)
	assert.Equal(t, 2, rowErrs[0].Row)
	assert.Equal(t, "n", rowErrs[0].Field)
	assert.Equal(t, "ann", rowErrs[0].Record["name"])
	assert.ErrorIs(t, rowErrs[0], ErrInvalidValue)
	assert.Equal(t, 4, rowErrs[1].Row)

	got, rowErrs, err = h.Read(SkipTitles(), FailFast())
	require.Error(t, err)
	var rowErr RowError
	require.True(t, errors.As(err, &rowErr))
	assert.Equal(t, 2, rowErr.Row)
	assert.Empty(t, got)
	assert.Len(t, rowErrs, 1)
	assert.Contains(t, err.Error(), "cannot read row 2")
}

func TestSheetSelection(t *testing.T) {
	path := writeBook(t, []string{"First", "Second"}, map[string][][]any{
		"First":  {{"one"}},
		"Second": {{"two"}},
	})
	schema := MustSchema(CharField("v", 0))
	h, err := Open(path, schema)
	require.NoError(t, err)
	defer h.Close()

	assert.Equal(t, "First", h.SheetName())

	require.NoError(t, h.SetSheet(1))
	assert.Equal(t, "Second", h.SheetName())
	got, _, err := h.Read()
	require.NoError(t, err)
	assert.Equal(t, []Record{{"v": "two"}}, got)

	require.NoError(t, h.SetSheetByName("[]"))
	assert.Equal(t, "First", h.SheetName())
	require.NoError(t, h.SetSheetByName("[1]"))
	assert.Equal(t, "Second", h.SheetName())
	require.NoError(t, h.SetSheetByName("First"))
	assert.Equal(t, "First", h.SheetName())

	assert.ErrorIs(t, h.SetSheet(2), ErrSheetNotFound)
	assert.ErrorIs(t, h.SetSheetByName("[5]"), ErrSheetNotFound)
	assert.ErrorIs(t, h.SetSheetByName("[x]"), ErrSheetNotFound)
	assert.ErrorIs(t, h.SetSheetByName("Missing"), ErrSheetNotFound)
	assert.Equal(t, "First", h.SheetName())
}

func TestReadColumns(t *testing.T) {
	path := writeBook(t, []string{"Sheet1"}, map[string][][]any{
		"Sheet1": {
			{"a", "b", "c"},
			{1, 2, 3},
			{"x", "", "z"},
			{"p", "q"},
		},
	})
	h, err := Open(path, nil)
	require.NoError(t, err)
	defer h.Close()

	got, err := h.ReadColumns(map[string]int{"first": 0, "third": 2}, 1, -1)
	require.NoError(t, err)
	assert.Equal(t, []Record{
		{"first": "1", "third": "3"},
		{"first": "x", "third": "z"},
		{"first": "p", "third": ""},
	}, got)

	got, err = h.ReadColumns(map[string]int{"b": 1}, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, []Record{{"b": "b"}, {"b": "2"}}, got)

	_, _, err = h.Read()
	assert.Error(t, err)
}

func TestWriteRowsAndColumns(t *testing.T) {
	h := Create("", nil)
	defer h.Close()

	require.NoError(t, h.WriteRows([][]any{{"a", "b"}, {1, nil, 3}}, 1, 1, true))
	require.NoError(t, h.AddSheet("Cols"))
	require.NoError(t, h.WriteColumns([][]any{{"x", "y"}, {10, 20}}, 0, 0, false))

	f := h.File()
	cell := func(sheet, axis string) string {
		v, err := f.GetCellValue(sheet, axis)
		require.NoError(t, err)
		return v
	}
	assert.Equal(t, "a", cell("Sheet1", "B2"))
	assert.Equal(t, "b", cell("Sheet1", "C2"))
	assert.Equal(t, "1", cell("Sheet1", "B3"))
	assert.Empty(t, cell("Sheet1", "C3"))
	assert.Equal(t, "3", cell("Sheet1", "D3"))

	assert.Equal(t, "x", cell("Cols", "A1"))
	assert.Equal(t, "y", cell("Cols", "A2"))
	assert.Equal(t, "20", cell("Cols", "B2"))

	styleID, err := f.GetCellStyle("Sheet1", "B2")
	require.NoError(t, err)
	assert.NotZero(t, styleID)
	styleID, err = f.GetCellStyle("Sheet1", "B3")
	require.NoError(t, err)
	assert.Zero(t, styleID)

	assert.EqualError(t, h.Save(), "excel: no path to save to")
}

func TestHandlerModes(t *testing.T) {
	path := writeBook(t, []string{"Sheet1"}, map[string][][]any{"Sheet1": {{"a"}}})
	r, err := Open(path, MustSchema(CharField("a", 0)))
	require.NoError(t, err)
	defer r.Close()
	assert.ErrorIs(t, r.Write(nil, true), ErrReadOnly)
	assert.ErrorIs(t, r.WriteRows(nil, 0, 0, false), ErrReadOnly)
	assert.ErrorIs(t, r.AddSheet("x"), ErrReadOnly)
	assert.ErrorIs(t, r.Save(), ErrReadOnly)

	w := Create(filepath.Join(t.TempDir(), "out.xlsx"), MustSchema(CharField("a", 0)))
	defer w.Close()
	_, _, err = w.Read()
	assert.ErrorIs(t, err, ErrWriteOnly)
	_, err = w.ReadColumns(map[string]int{"a": 0}, 0, -1)
	assert.ErrorIs(t, err, ErrWriteOnly)

	_, err = Open(filepath.Join(t.TempDir(), "data.csv"), nil)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	_, err = Open(filepath.Join(t.TempDir(), "missing.xlsx"), nil)
	assert.Error(t, err)
}

func TestSaveToAndOpenReader(t *testing.T) {
	schema := MustSchema(CharField("name", 0), DateTimeField("at", 1))
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	w := Create("", schema)
	require.NoError(t, w.Write([]Record{{"name": "ann", "at": at}}, false))
	var buf bytes.Buffer
	require.NoError(t, w.SaveTo(&buf))
	require.NoError(t, w.Close())

	r, err := OpenReader(&buf, FormatXLSX, schema)
	require.NoError(t, err)
	defer r.Close()
	got, _, err := r.Read()
	require.NoError(t, err)
	assert.Equal(t, []Record{{"name": "ann", "at": at}}, got)
}

func TestDate1904Workbook(t *testing.T) {
	f := excelize.NewFile()
	date1904 := true
	require.NoError(t, f.SetWorkbookProps(&excelize.WorkbookPropsOptions{Date1904: &date1904}))
	require.NoError(t, f.SetCellValue("Sheet1", "A1", 1))
	path := filepath.Join(t.TempDir(), "1904.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	h, err := Open(path, MustSchema(DateField("d", 0)))
	require.NoError(t, err)
	defer h.Close()
	got, _, err := h.Read()
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, time.Date(1904, 1, 2, 0, 0, 0, 0, time.UTC), got[0]["d"])
}

func TestForeignKeyField(t *testing.T) {
	countries := StaticLookup{
		{Key: 1, Lookup: "France"},
		{Key: 2, Lookup: "Japan"},
		{Key: 3, Lookup: nil},
	}
	path := writeBook(t, []string{"Sheet1"}, map[string][][]any{
		"Sheet1": {
			{"ann", "japan"},
			{"bob", "Peru"},
			{"cid", "FRANCE"},
		},
	})

	t.Run("case insensitive", func(t *testing.T) {
		h, err := Open(path, MustSchema(
			CharField("name", 0),
			ForeignKeyField("country", 1, countries, CaseInsensitive()),
		))
		require.NoError(t, err)
		defer h.Close()
		got, rowErrs, err := h.Read()
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, 2, got[0]["country"])
		assert.Equal(t, 1, got[1]["country"])
		require.Len(t, rowErrs, 1)
		assert.ErrorIs(t, rowErrs[0], ErrLookupNotFound)
	})

	t.Run("case sensitive", func(t *testing.T) {
		h, err := Open(path, MustSchema(
			CharField("name", 0),
			ForeignKeyField("country", 1, countries),
		))
		require.NoError(t, err)
		defer h.Close()
		got, rowErrs, err := h.Read()
		require.NoError(t, err)
		assert.Empty(t, got)
		assert.Len(t, rowErrs, 3)
	})

	t.Run("default on fail", func(t *testing.T) {
		h, err := Open(path, MustSchema(
			CharField("name", 0),
			ForeignKeyField("country", 1, countries, CaseInsensitive(), DefaultOnLookupFail(), WithDefault(0)),
		))
		require.NoError(t, err)
		defer h.Close()
		got, rowErrs, err := h.Read()
		require.NoError(t, err)
		assert.Empty(t, rowErrs)
		require.Len(t, got, 3)
		assert.Equal(t, 0, got[1]["country"])
	})

	t.Run("on fail callback", func(t *testing.T) {
		h, err := Open(path, MustSchema(
			CharField("name", 0),
			ForeignKeyField("country", 1, countries, OnLookupFail(func(row Record, value string) (any, error) {
				return strings.ToUpper(row["name"].(string)) + ":" + value, nil
			})),
		))
		require.NoError(t, err)
		defer h.Close()
		got, _, err := h.Read()
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, "BOB:Peru", got[1]["country"])
	})

	t.Run("write keys as lookups", func(t *testing.T) {
		loads := 0
		source := LookupFunc(func() ([]LookupPair, error) {
			loads++
			return countries, nil
		})
		w := Create("", MustSchema(ForeignKeyField("country", 0, source)))
		defer w.Close()
		require.NoError(t, w.Write([]Record{{"country": 2}, {"country": int64(1)}}, false))
		v, err := w.File().GetCellValue("Sheet1", "A1")
		require.NoError(t, err)
		assert.Equal(t, "Japan", v)
		v, err = w.File().GetCellValue("Sheet1", "A2")
		require.NoError(t, err)
		assert.Equal(t, "France", v)
		assert.Equal(t, 1, loads)

		assert.ErrorIs(t, w.Write([]Record{{"country": 9}}, false), ErrLookupNotFound)
	})

	t.Run("json number keys", func(t *testing.T) {
		owners := StaticLookup{{Key: 1000000, Lookup: "alice"}, {Key: 5, Lookup: "bob"}}
		var records []Record
		require.NoError(t, json.Unmarshal([]byte(`[{"owner":1000000},{"owner":5}]`), &records))
		w := Create("", MustSchema(ForeignKeyField("owner", 0, owners)))
		defer w.Close()
		require.NoError(t, w.Write(records, false))
		for cell, want := range map[string]string{"A1": "alice", "A2": "bob"} {
			v, err := w.File().GetCellValue("Sheet1", cell)
			require.NoError(t, err)
			assert.Equal(t, want, v, cell)
		}
	})

	t.Run("source failure", func(t *testing.T) {
		boom := errors.New("boom")
		h, err := Open(path, MustSchema(ForeignKeyField("country", 1, LookupFunc(func() ([]LookupPair, error) {
			return nil, boom
		}))))
		require.NoError(t, err)
		defer h.Close()
		_, _, err = h.Read()
		assert.ErrorIs(t, err, boom)
	})
}

func TestAutoFitAndExampleFormats(t *testing.T) {
	h := Create("", MustSchema(CharField("text", 0), CharField("short", 1)))
	defer h.Close()
	h.AutoFit(true)
	require.NoError(t, h.Write([]Record{
		{"text": "a fairly long piece of text", "short": "x"},
		{"text": "tiny"},
	}, true))

	f := h.File()
	wide, err := f.GetColWidth("Sheet1", "A")
	require.NoError(t, err)
	assert.Equal(t, fitWidth("a fairly long piece of text"), wide)
	narrow, err := f.GetColWidth("Sheet1", "B")
	require.NoError(t, err)
	assert.Equal(t, fitWidth("short"), narrow)

	require.NoError(t, h.SetColumnFormatsFromExample([]any{
		"text",
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC),
		TimeOfDay{Hour: 8},
	}))
	for _, col := range []string{"B", "C", "D"} {
		w, err := f.GetColWidth("Sheet1", col)
		require.NoError(t, err)
		assert.Equal(t, 18.0, w, col)
	}
}
