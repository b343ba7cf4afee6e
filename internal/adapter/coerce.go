package adapter

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Spreadsheet serial dates count days from 1899-12-30, so serial 1 maps to
// 1899-12-31 and serial 60 to 1900-02-28 (the 1900 leap-year bug preserved
// by every spreadsheet implementation since Lotus 1-2-3).
var serialEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

const maxDateStringLen = 50

// Corrupted numeric-as-text values: a signed run of 6+ digits is never a
// date the exports produce.
var longNumericPrefix = regexp.MustCompile(`^[-+]?\d{6,}`)

var errEmptyDate = errors.New("value is empty")

// coerceDate accepts a native date, a spreadsheet serial, an ISO-like string
// or a free-form date string, and normalizes to YYYY-MM-DD. Results outside
// calendar years 1900-2100 are rejected.
func coerceDate(v any) (string, error) {
	switch value := v.(type) {
	case nil:
		return "", errEmptyDate
	case time.Time:
		return checkBounds(value)
	case float64:
		return dateFromSerial(value)
	case float32:
		return dateFromSerial(float64(value))
	case int:
		return dateFromSerial(float64(value))
	case int64:
		return dateFromSerial(float64(value))
	case string:
		return dateFromString(value)
	default:
		return "", fmt.Errorf("unsupported date value %T", v)
	}
}

func dateFromSerial(serial float64) (string, error) {
	if serial <= 0 {
		return "", fmt.Errorf("serial date %v out of range", serial)
	}
	// Serial 1 lands on 1899-12-31, one day before the calendar floor that
	// applies to string dates, so only the upper bound is checked here.
	t := serialEpoch.AddDate(0, 0, int(serial))
	if t.Year() > 2100 {
		return "", fmt.Errorf("date %s outside supported range", t.Format(dateLayout))
	}
	return t.Format(dateLayout), nil
}

func dateFromString(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", errEmptyDate
	}
	if len(s) > maxDateStringLen {
		return "", fmt.Errorf("date string too long (%d chars)", len(s))
	}
	if longNumericPrefix.MatchString(s) {
		return "", fmt.Errorf("numeric value %q is not a date", s)
	}

	// Pure numbers are spreadsheet serials that reached us as text.
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		return dateFromSerial(serial)
	}

	// ISO-like forms: optional T separator, optional fractional seconds.
	normalized := strings.Replace(s, "T", " ", 1)
	normalized = strings.TrimSuffix(normalized, "Z")
	if idx := strings.LastIndex(normalized, "."); idx > 0 {
		if _, err := strconv.Atoi(normalized[idx+1:]); err == nil {
			normalized = normalized[:idx]
		}
	}

	layouts := []string{
		dateLayout,
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
		"2006/01/02",
		"01/02/2006",
		"1/2/2006",
		"01/02/2006 15:04:05",
		"02-Jan-2006",
		"2-Jan-2006",
		"Jan 2, 2006",
		"January 2, 2006",
		"02 Jan 2006",
	}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, normalized); err == nil {
			return checkBounds(parsed)
		}
	}

	return "", fmt.Errorf("unparseable date %q", raw)
}

func checkBounds(t time.Time) (string, error) {
	if t.Year() < 1900 || t.Year() > 2100 {
		return "", fmt.Errorf("date %s outside supported range", t.Format(dateLayout))
	}
	return t.Format(dateLayout), nil
}

// coerceNumber parses a float from the cell. Absent or non-numeric values
// become nil, never errors.
func coerceNumber(v any) *float64 {
	switch value := v.(type) {
	case nil:
		return nil
	case float64:
		return &value
	case float32:
		f := float64(value)
		return &f
	case int:
		f := float64(value)
		return &f
	case int64:
		f := float64(value)
		return &f
	case string:
		s := strings.TrimSpace(value)
		if s == "" {
			return nil
		}
		parsed, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
		if err != nil {
			return nil
		}
		return &parsed
	default:
		return nil
	}
}

func stringify(v any) string {
	switch value := v.(type) {
	case string:
		return value
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(value), 'f', -1, 32)
	case int:
		return strconv.Itoa(value)
	case int64:
		return strconv.FormatInt(value, 10)
	case time.Time:
		return value.Format(dateLayout)
	default:
		return fmt.Sprintf("%v", value)
	}
}
