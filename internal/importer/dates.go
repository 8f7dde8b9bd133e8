package importer

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DateFormat tags which parsing rule produced a result.
type DateFormat string

const (
	FormatEmpty        DateFormat = "EMPTY"
	FormatExcelSerial  DateFormat = "EXCEL_SERIAL"
	FormatISO          DateFormat = "YYYY-MM-DD"
	FormatDayFirst     DateFormat = "DD/MM/YYYY"
	FormatMonthYear    DateFormat = "MM/YYYY"
	FormatCompact8     DateFormat = "YYYYMMDD"
	FormatCompact6     DateFormat = "DDMMYY"
	FormatGeneric      DateFormat = "GENERIC"
	FormatUnrecognized DateFormat = "UNRECOGNIZED"
	FormatError        DateFormat = "ERROR"
)

// DateResult is the outcome of normalizing one raw expiry cell.
// Normalized is an ISO YYYY-MM-DD date, or empty when the input was
// absent or unparseable; Raw always keeps the original text so callers
// can surface unparseable values for manual review instead of dropping
// them. Trace records which rules were attempted, for diagnostics only.
type DateResult struct {
	Normalized  string     `json:"normalized,omitempty"`
	Raw         string     `json:"raw"`
	IsExcelDate bool       `json:"is_excel_date"`
	Format      DateFormat `json:"parsed_format"`
	Trace       []string   `json:"trace,omitempty"`
}

var (
	serialRe    = regexp.MustCompile(`^\d+(\.\d+)?$`)
	isoRe       = regexp.MustCompile(`^(\d{4})[-/](\d{1,2})[-/](\d{1,2})$`)
	dayFirstRe  = regexp.MustCompile(`^(\d{1,2})[-/](\d{1,2})[-/](\d{2,4})$`)
	monthYearRe = regexp.MustCompile(`^(\d{1,2})[-/](\d{4})$`)
	compact8Re  = regexp.MustCompile(`^\d{8}$`)
	compact6Re  = regexp.MustCompile(`^\d{6}$`)
)

// Serial values map to calendar days counted from the day before the
// spreadsheet epoch's day 1 (1900-01-01). Values above 59 are shifted
// down one day to compensate for the format's phantom 1900-02-29.
const (
	serialMin = 1
	serialMax = 50000
)

var serialEpoch = time.Date(1899, time.December, 31, 0, 0, 0, 0, time.UTC)

// ParseExcelSerial converts a spreadsheet serial day number to an ISO
// date. Returns false when the value is outside [1, 50000].
func ParseExcelSerial(value float64) (string, bool) {
	if value < serialMin || value > serialMax {
		return "", false
	}
	adjusted := value
	if value > 59 {
		adjusted--
	}
	whole, frac := math.Modf(adjusted)
	d := serialEpoch.AddDate(0, 0, int(whole)).Add(time.Duration(frac * float64(24*time.Hour)))
	return d.Format("2006-01-02"), true
}

// Fallback layouts for strings none of the positional rules match. The
// set is fixed: RFC 3339 timestamps and a short list of named-month
// forms. Named month-year forms resolve to the last day of the month,
// the same convention as the numeric MM/YYYY rule.
var genericLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2 Jan 2006",
	"02 Jan 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 January 2006",
}

var genericMonthYearLayouts = []string{
	"Jan 2006",
	"Jan-2006",
	"January 2006",
}

// parseDateString tries the string rules in fixed order against a
// trimmed value; the first match wins.
func parseDateString(raw string) (string, DateFormat) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", FormatEmpty
	}
	cleaned := stripWrappers(trimmed)

	if m := isoRe.FindStringSubmatch(cleaned); m != nil {
		y, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		d, _ := strconv.Atoi(m[3])
		if mo >= 1 && mo <= 12 && d >= 1 && d <= 31 {
			return fmt.Sprintf("%04d-%02d-%02d", y, mo, d), FormatISO
		}
	}

	if m := dayFirstRe.FindStringSubmatch(cleaned); m != nil {
		d, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		y, _ := strconv.Atoi(m[3])
		if len(m[3]) == 2 {
			y += 2000
		}
		if mo >= 1 && mo <= 12 && d >= 1 && d <= 31 && y >= 1900 && y <= 2100 {
			return fmt.Sprintf("%04d-%02d-%02d", y, mo, d), FormatDayFirst
		}
	}

	if m := monthYearRe.FindStringSubmatch(cleaned); m != nil {
		mo, _ := strconv.Atoi(m[1])
		y, _ := strconv.Atoi(m[2])
		if mo >= 1 && mo <= 12 && y >= 1900 && y <= 2100 {
			return lastDayOfMonth(y, mo), FormatMonthYear
		}
	}

	if compact8Re.MatchString(cleaned) {
		mo, _ := strconv.Atoi(cleaned[4:6])
		d, _ := strconv.Atoi(cleaned[6:8])
		if mo >= 1 && mo <= 12 && d >= 1 && d <= 31 {
			return cleaned[0:4] + "-" + cleaned[4:6] + "-" + cleaned[6:8], FormatCompact8
		}
	}

	if compact6Re.MatchString(cleaned) {
		d, _ := strconv.Atoi(cleaned[0:2])
		mo, _ := strconv.Atoi(cleaned[2:4])
		if mo >= 1 && mo <= 12 && d >= 1 && d <= 31 {
			return "20" + cleaned[4:6] + "-" + cleaned[2:4] + "-" + cleaned[0:2], FormatCompact6
		}
	}

	for _, layout := range genericLayouts {
		t, err := time.Parse(layout, cleaned)
		if err != nil {
			continue
		}
		if y := t.Year(); y >= 1900 && y <= 2100 {
			return t.Format("2006-01-02"), FormatGeneric
		}
	}
	for _, layout := range genericMonthYearLayouts {
		t, err := time.Parse(layout, cleaned)
		if err != nil {
			continue
		}
		if y := t.Year(); y >= 1900 && y <= 2100 {
			return lastDayOfMonth(y, int(t.Month())), FormatGeneric
		}
	}

	return "", FormatUnrecognized
}

// NormalizeExpiryDate converts a raw expiry cell (number, string or nil)
// into an ISO date. It never panics: any internal failure is reported as
// an ERROR result, so callers can treat it as a total function.
func NormalizeExpiryDate(raw any) (res DateResult) {
	trace := []string{fmt.Sprintf("input %T %q", raw, fmt.Sprint(raw))}
	defer func() {
		if r := recover(); r != nil {
			res = DateResult{
				Raw:    fmt.Sprint(raw),
				Format: FormatError,
				Trace:  append(trace, fmt.Sprintf("recovered: %v", r)),
			}
		}
	}()

	if raw == nil {
		return DateResult{Format: FormatEmpty, Trace: append(trace, "empty value")}
	}

	str := strings.TrimSpace(stringify(raw))
	if str == "" {
		// Whitespace-only counts as empty, but the raw text is still
		// carried like every other result.
		return DateResult{Raw: stringify(raw), Format: FormatEmpty, Trace: append(trace, "empty value")}
	}

	if num, ok := numericValue(raw, str); ok {
		trace = append(trace, fmt.Sprintf("numeric value %v", num))
		if iso, ok := ParseExcelSerial(num); ok {
			return DateResult{
				Normalized:  iso,
				Raw:         str,
				IsExcelDate: true,
				Format:      FormatExcelSerial,
				Trace:       append(trace, "serial date "+iso),
			}
		}
		trace = append(trace, "outside serial range, trying string rules")
	}

	normalized, format := parseDateString(str)
	if normalized != "" {
		return DateResult{
			Normalized: normalized,
			Raw:        str,
			Format:     format,
			Trace:      append(trace, fmt.Sprintf("matched %s: %s", format, normalized)),
		}
	}

	// Unparseable: keep the raw text so nothing is silently discarded.
	return DateResult{
		Raw:    str,
		Format: FormatUnrecognized,
		Trace:  append(trace, "no rule matched, raw text preserved"),
	}
}

func numericValue(raw any, str string) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	if serialRe.MatchString(str) {
		if f, err := strconv.ParseFloat(str, 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

func stringify(raw any) string {
	switch v := raw.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	default:
		return fmt.Sprint(raw)
	}
}

// stripWrappers removes a single layer of wrapping quotes or parentheses.
func stripWrappers(s string) string {
	if len(s) > 0 && strings.ContainsRune("'\"`(", rune(s[0])) {
		s = s[1:]
	}
	if len(s) > 0 && strings.ContainsRune("'\"`)", rune(s[len(s)-1])) {
		s = s[:len(s)-1]
	}
	return s
}

func lastDayOfMonth(year, month int) string {
	// Day 0 of the next month normalizes to the last day of this one.
	t := time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC)
	return t.Format("2006-01-02")
}
