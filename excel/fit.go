package excel

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/width"
)

// excel refuses wider columns
const maxColumnWidth = 255

// columnFitter tracks the widest value written to every column.
type columnFitter struct {
	widths map[string]map[int]float64
}

func newColumnFitter() *columnFitter {
	return &columnFitter{widths: make(map[string]map[int]float64)}
}

func (c *columnFitter) observe(f *excelize.File, sheet string, col int, value any) error {
	w := fitWidth(displayText(value))
	cols, ok := c.widths[sheet]
	if !ok {
		cols = make(map[int]float64)
		c.widths[sheet] = cols
	}
	if w <= cols[col] {
		return nil
	}
	cols[col] = w
	name, err := excelize.ColumnNumberToName(col + 1)
	if err != nil {
		return err
	}
	return f.SetColWidth(sheet, name, name, w)
}

func displayText(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case time.Time:
		if v.Hour() == 0 && v.Minute() == 0 && v.Second() == 0 {
			return v.Format("2006-01-02")
		}
		return v.Format("2006-01-02 15:04:05")
	case float64:
		return fmt.Sprintf("%g", v)
	}
	return fmt.Sprint(value)
}

// fitWidth estimates the column width needed by text, in characters of the
// default font. Wide east asian runes count twice.
func fitWidth(text string) float64 {
	longest := 0.0
	for _, line := range strings.Split(text, "\n") {
		w := 0.0
		for _, r := range line {
			w += runeWidth(r)
		}
		longest = math.Max(longest, w)
	}
	if longest == 0 {
		return 0
	}
	return math.Min(math.Ceil(longest+1), maxColumnWidth)
}

func runeWidth(r rune) float64 {
	switch width.LookupRune(r).Kind() {
	case width.EastAsianWide, width.EastAsianFullwidth:
		return 2
	}
	switch {
	case strings.ContainsRune("il.,;:'|!`", r):
		return 0.5
	case strings.ContainsRune("mwMW@", r):
		return 1.4
	case r >= 'A' && r <= 'Z':
		return 1.2
	}
	return 1
}
