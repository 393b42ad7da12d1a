package excel

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// text layouts tried after the serial number form
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"01/02/2006",
	"2006/01/02",
}

// convert the cell value, usually is string, to an integer
func parseInt64(str string) (int64, error) {
	s := strings.TrimSpace(str)
	intValue, err := strconv.ParseInt(s, 10, 64)
	if err == nil {
		return intValue, nil
	}
	// numeric cells often come back as "3.0" or "3"
	floatValue, ferr := strconv.ParseFloat(s, 64)
	if ferr != nil || floatValue != math.Trunc(floatValue) || math.IsInf(floatValue, 0) {
		return 0, fmt.Errorf("%w: failed to convert value=%s to a int", ErrInvalidValue, str)
	}
	// 2^63 itself is not an int64
	if floatValue < math.MinInt64 || floatValue >= math.MaxInt64 {
		return 0, fmt.Errorf("%w: value=%s is out of the int range", ErrInvalidValue, str)
	}
	return int64(floatValue), nil
}

// keyOf renders v as a map key. Integral floats take the int form, so a
// JSON number 1000000 finds the key declared as int 1000000.
func keyOf(v any) string {
	switch n := v.(type) {
	case float64:
		return floatKey(n)
	case float32:
		return floatKey(float64(n))
	}
	return fmt.Sprint(v)
}

func floatKey(f float64) string {
	if f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// convert the cell value, usually is string, to a float
func parseFloat64(str string) (float64, error) {
	floatValue, err := strconv.ParseFloat(strings.TrimSpace(str), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to convert value=%s to a float", ErrInvalidValue, str)
	}
	return floatValue, nil
}

// convert the cell value to a bool, formulas such as =TRUE() included
func parseBool(str string) (bool, error) {
	switch strings.ToUpper(strings.TrimSpace(str)) {
	case "TRUE", "1", "=TRUE()":
		return true, nil
	case "FALSE", "0", "=FALSE()":
		return false, nil
	}
	return false, fmt.Errorf("%w: failed to convert value=%s to a bool", ErrInvalidValue, str)
}

// convert the cell value, a date serial or a formatted text, to a time.Time
func parseTime(str string, date1904 bool) (time.Time, error) {
	s := strings.TrimSpace(str)
	if floatValue, err := strconv.ParseFloat(s, 64); err == nil {
		toTime, err := excelize.ExcelDateToTime(floatValue, date1904)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: failed to convert value=%s to a time", ErrInvalidValue, str)
		}
		return toTime.Round(time.Millisecond), nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: failed to convert value=%s to a time", ErrInvalidValue, str)
}

// convert the cell value, a day fraction or a clock text, to a TimeOfDay
func parseTimeOfDay(str string) (TimeOfDay, error) {
	s := strings.TrimSpace(str)
	if floatValue, err := strconv.ParseFloat(s, 64); err == nil {
		if floatValue < 0 {
			return TimeOfDay{}, fmt.Errorf("%w: failed to convert value=%s to a time", ErrInvalidValue, str)
		}
		return timeOfDayFromSerial(floatValue), nil
	}
	for _, layout := range []string{"15:04:05", "15:04", time.RFC3339Nano, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return TimeOfDay{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second()}, nil
		}
	}
	return TimeOfDay{}, fmt.Errorf("%w: failed to convert value=%s to a time", ErrInvalidValue, str)
}

func dateOnly(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// keep the wall clock, swap the zone
func inLocation(t time.Time, loc *time.Location) time.Time {
	if loc == nil || t.IsZero() {
		return t
	}
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc)
}

// normalize converts a Go value to the canonical type of kind.
func normalize(kind Kind, v any) (any, error) {
	switch kind {
	case KindString:
		if s, ok := v.(string); ok {
			return s, nil
		}
		return fmt.Sprint(v), nil
	case KindInt:
		switch n := v.(type) {
		case int:
			return int64(n), nil
		case int8:
			return int64(n), nil
		case int16:
			return int64(n), nil
		case int32:
			return int64(n), nil
		case int64:
			return n, nil
		case uint:
			return int64(n), nil
		case uint8:
			return int64(n), nil
		case uint16:
			return int64(n), nil
		case uint32:
			return int64(n), nil
		case float32, float64:
			return parseInt64(fmt.Sprint(n))
		case string:
			return parseInt64(n)
		}
	case KindFloat:
		switch n := v.(type) {
		case float64:
			return n, nil
		case float32:
			return float64(n), nil
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32:
			return parseFloat64(fmt.Sprint(n))
		case string:
			return parseFloat64(n)
		}
	case KindBool:
		switch b := v.(type) {
		case bool:
			return b, nil
		case string:
			return parseBool(b)
		}
	case KindDate:
		t, err := coerceTime(v)
		if err != nil {
			return nil, err
		}
		return dateOnly(t), nil
	case KindDateTime:
		return coerceTime(v)
	case KindTime:
		return coerceTimeOfDay(v)
	default:
		return v, nil
	}
	return nil, fmt.Errorf("%w: %T is not a %s", ErrInvalidValue, v, kind)
}

func coerceTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case *time.Time:
		if t != nil {
			return *t, nil
		}
	case string:
		return parseTime(t, false)
	case float64:
		return parseTime(strconv.FormatFloat(t, 'f', -1, 64), false)
	}
	return time.Time{}, fmt.Errorf("%w: %T is not a time", ErrInvalidValue, v)
}

func coerceTimeOfDay(v any) (TimeOfDay, error) {
	switch t := v.(type) {
	case TimeOfDay:
		return t, nil
	case *TimeOfDay:
		if t != nil {
			return *t, nil
		}
	case time.Time:
		return TimeOfDay{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second()}, nil
	case time.Duration:
		return timeOfDayFromSerial(t.Seconds() / 86400), nil
	case string:
		return parseTimeOfDay(t)
	case float64:
		return timeOfDayFromSerial(t), nil
	}
	return TimeOfDay{}, fmt.Errorf("%w: %T is not a time of day", ErrInvalidValue, v)
}
