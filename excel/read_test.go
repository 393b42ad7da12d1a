package excel

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type city struct {
	Name       string    `x-read:"name,city"`
	Population int       `x-read:"population"`
	Area       *float64  `x-read:"area"`
	Capital    bool      `x-read:"capital" x-default:"FALSE"`
	Founded    time.Time `x-read:"founded"`
	Note       string    `x-read:"-"`
}

func ptr[T any](v T) *T {
	return &v
}

func TestReadFromSheet(t *testing.T) {
	founded := time.Date(1950, 5, 1, 0, 0, 0, 0, time.UTC)
	path := writeBook(t, []string{"Cities"}, map[string][][]any{
		"Cities": {
			{},
			{"city", "population", "area", "capital", "founded", "unused"},
			{"Paris", 2100000, 105.4, true, founded},
			{" Lyon ", 520000, nil, nil, founded.AddDate(10, 0, 0)},
		},
	})

	cities, err := ReadFromSheet[city](path, "Cities")
	require.NoError(t, err)
	assert.Equal(t, []city{
		{Name: "Paris", Population: 2100000, Area: ptr(105.4), Capital: true, Founded: founded},
		{Name: "Lyon", Population: 520000, Capital: false, Founded: founded.AddDate(10, 0, 0)},
	}, cities)

	_, err = ReadFromSheet[city](path, "Towns")
	assert.ErrorIs(t, err, ErrSheetNotFound)

	byIndex, err := ReadFromSheet[*city](path, "[0]")
	require.NoError(t, err)
	require.Len(t, byIndex, 2)
	assert.Equal(t, "Lyon", byIndex[1].Name)
}

func TestReadFromSheetSkipsWhitespaceRowsBeforeHeader(t *testing.T) {
	type town struct {
		Name       string `x-read:"city"`
		Population int    `x-read:"population"`
	}
	path := writeBook(t, []string{"Cities"}, map[string][][]any{
		"Cities": {
			{" ", "  "},
			{"\t"},
			{"city", "population"},
			{"Nice", 340000},
		},
	})

	towns, err := ReadFromSheet[town](path, "Cities")
	require.NoError(t, err)
	assert.Equal(t, []town{{Name: "Nice", Population: 340000}}, towns)
}

func TestIsBlankRow(t *testing.T) {
	assert.True(t, isBlankRow(nil))
	assert.True(t, isBlankRow([]string{"", " ", "\t\n"}))
	assert.False(t, isBlankRow([]string{" ", "x"}))
}

func TestReadFromSheetHeaderErrors(t *testing.T) {
	type mayor struct {
		Mayor string `x-read:"mayor"`
	}
	path := writeBook(t, []string{"Sheet1", "Twice", "Empty"}, map[string][][]any{
		"Sheet1": {{"city"}, {"Paris"}},
		"Twice":  {{"mayor", "mayor"}, {"a", "b"}},
	})

	_, err := ReadFromSheet[mayor](path, "Sheet1")
	assert.ErrorIs(t, err, ErrInvalidValue)

	_, err = ReadFromSheet[mayor](path, "Twice")
	assert.ErrorIs(t, err, ErrRepeatedColumn)

	empty, err := ReadFromSheet[mayor](path, "Empty")
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = ReadFromSheet[string](path, "Sheet1")
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestReadFromSheetFixedColumnsAndFailures(t *testing.T) {
	type pair struct {
		Key   string `x-col:"2"`
		Value int    `x-read:"value"`
	}
	path := writeBook(t, []string{"Sheet1"}, map[string][][]any{
		"Sheet1": {
			{"value", "", "ignored header"},
			{1, nil, "a"},
			{"two", nil, "b"},
		},
	})
	_, err := ReadFromSheet[pair](path, "Sheet1")
	require.Error(t, err)
	var rowErr RowError
	require.ErrorAs(t, err, &rowErr)
	assert.Equal(t, 3, rowErr.Row)
	assert.Equal(t, "Value", rowErr.Field)
}

func TestWriteToSheetRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cities.xlsx")
	items := []city{
		{Name: "Paris", Population: 2100000, Area: ptr(105.4), Capital: true, Founded: time.Date(1950, 5, 1, 8, 30, 0, 0, time.UTC), Note: "dropped"},
		{Name: "Lyon", Population: 520000, Founded: time.Date(1960, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	require.NoError(t, WriteToSheet(path, "Cities", items))

	got, err := ReadFromSheet[city](path, "Cities")
	require.NoError(t, err)
	items[0].Note = ""
	assert.Equal(t, items, got)
}

func TestSchemaOf(t *testing.T) {
	type row struct {
		Name  string    `x-read:"Full Name" x-width:"25"`
		Level int       `x-read:"level" x-choices:"1=low; 2=high" x-default:"low"`
		Start TimeOfDay `x-col:"5"`
		Score float32
		Tags  []string `x-read:"-"`
	}
	s, err := SchemaOf[row]()
	require.NoError(t, err)
	// x-col fields keep their declared slot among the positional ones
	assert.Equal(t, []string{"Full Name", "level", "Score", "Start"}, s.Labels())

	name, _ := s.Field("Name")
	assert.Equal(t, 25.0, name.Width)
	assert.Equal(t, KindString, name.Kind)

	level, _ := s.Field("Level")
	assert.Equal(t, []Choice{{Value: int64(1), Label: "low"}, {Value: int64(2), Label: "high"}}, level.Choices)
	assert.Equal(t, int64(1), level.Default())

	start, _ := s.Field("Start")
	assert.Equal(t, 5, start.Col)
	assert.Equal(t, KindTime, start.Kind)

	score, _ := s.Field("Score")
	assert.Equal(t, 3, score.Col)
	assert.Equal(t, KindFloat, score.Kind)

	type bad struct {
		Tags []string
	}
	_, err = SchemaOf[bad]()
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestDecode(t *testing.T) {
	type item struct {
		Name  string
		Count int8
		Ratio float32
		Seen  *bool
		At    time.Time
	}
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	got, err := Decode[item]([]Record{
		{"Name": "a", "Count": int64(3), "Ratio": 0.5, "Seen": true, "At": at},
		{"Name": "b", "Count": nil, "extra": 1},
	})
	require.NoError(t, err)
	assert.Equal(t, []item{
		{Name: "a", Count: 3, Ratio: 0.5, Seen: ptr(true), At: at},
		{Name: "b"},
	}, got)

	_, err = Decode[item]([]Record{{"Count": int64(300)}})
	assert.ErrorIs(t, err, ErrInvalidValue)

	_, err = Decode[item]([]Record{{"At": "soon"}})
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestEncodeStructs(t *testing.T) {
	type item struct {
		Name string
		Size *int
		skip int
	}
	records, err := EncodeStructs([]*item{{Name: "a", Size: ptr(2)}, nil, {Name: "b"}})
	require.NoError(t, err)
	assert.Equal(t, []Record{
		{"Name": "a", "Size": 2},
		{"Name": "b", "Size": nil},
	}, records)
}
