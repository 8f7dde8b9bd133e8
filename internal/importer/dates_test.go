package importer

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeExpiryDate(t *testing.T) {
	tests := []struct {
		name       string
		input      any
		normalized string
		format     DateFormat
		excel      bool
	}{
		{name: "excel serial number", input: float64(45000), normalized: "2023-03-15", format: FormatExcelSerial, excel: true},
		{name: "excel serial as digit string", input: "45000", normalized: "2023-03-15", format: FormatExcelSerial, excel: true},
		{name: "excel serial as int", input: 45000, normalized: "2023-03-15", format: FormatExcelSerial, excel: true},
		{name: "serial day one", input: float64(1), normalized: "1900-01-01", format: FormatExcelSerial, excel: true},
		{name: "serial before leap quirk", input: float64(59), normalized: "1900-02-28", format: FormatExcelSerial, excel: true},
		{name: "serial after leap quirk", input: float64(61), normalized: "1900-03-01", format: FormatExcelSerial, excel: true},
		{name: "day first slashes", input: "15/01/2025", normalized: "2025-01-15", format: FormatDayFirst},
		{name: "day first dashes", input: "15-01-2025", normalized: "2025-01-15", format: FormatDayFirst},
		{name: "day first two digit year", input: "15/01/25", normalized: "2025-01-15", format: FormatDayFirst},
		{name: "iso already", input: "2025-01-15", normalized: "2025-01-15", format: FormatISO},
		{name: "iso unpadded", input: "2025-1-5", normalized: "2025-01-05", format: FormatISO},
		{name: "iso with slashes", input: "2025/01/15", normalized: "2025-01-15", format: FormatISO},
		{name: "month year uses last day", input: "09-2026", normalized: "2026-09-30", format: FormatMonthYear},
		{name: "month year february", input: "02/2024", normalized: "2024-02-29", format: FormatMonthYear},
		{name: "compact eight digits", input: "20250115", normalized: "2025-01-15", format: FormatCompact8},
		{name: "compact six digits", input: "150125", normalized: "2025-01-15", format: FormatCompact6},
		{name: "wrapped in quotes", input: `"15/01/2025"`, normalized: "2025-01-15", format: FormatDayFirst},
		{name: "wrapped in parens", input: "(15/01/2025)", normalized: "2025-01-15", format: FormatDayFirst},
		{name: "named month day", input: "15 Jan 2026", normalized: "2026-01-15", format: FormatGeneric},
		{name: "named month year uses last day", input: "Jan 2026", normalized: "2026-01-31", format: FormatGeneric},
		{name: "rfc3339", input: "2026-04-01T00:00:00Z", normalized: "2026-04-01", format: FormatGeneric},
		{name: "unrecognized text", input: "not-a-date", normalized: "", format: FormatUnrecognized},
		{name: "month out of range", input: "13/13/2025", normalized: "", format: FormatUnrecognized},
		{name: "serial above range falls to string rules", input: float64(60000), normalized: "", format: FormatUnrecognized},
		{name: "fractional below range", input: "0.5", normalized: "", format: FormatUnrecognized},
		{name: "huge digit string", input: "99999999999", normalized: "", format: FormatUnrecognized},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := NormalizeExpiryDate(tc.input)
			assert.Equal(t, tc.normalized, res.Normalized)
			assert.Equal(t, tc.format, res.Format)
			assert.Equal(t, tc.excel, res.IsExcelDate)
		})
	}
}

func TestNormalizeExpiryDate_EmptyInputs(t *testing.T) {
	cases := []struct {
		input any
		raw   string
	}{
		{nil, ""},
		{"", ""},
		{"   ", "   "},
		{"\t\n", "\t\n"},
	}
	for _, tc := range cases {
		res := NormalizeExpiryDate(tc.input)
		assert.Equal(t, "", res.Normalized, "input %q", tc.input)
		assert.Equal(t, FormatEmpty, res.Format, "input %q", tc.input)
		assert.Equal(t, tc.raw, res.Raw, "input %q", tc.input)
		assert.False(t, res.IsExcelDate, "input %q", tc.input)
	}
}

func TestNormalizeExpiryDate_PreservesRawText(t *testing.T) {
	res := NormalizeExpiryDate("not-a-date")
	require.Equal(t, FormatUnrecognized, res.Format)
	assert.Equal(t, "not-a-date", res.Raw)
	assert.Empty(t, res.Normalized)
	assert.NotEmpty(t, res.Trace)
}

// The normalizer must be total: no input may panic inside it.
func TestNormalizeExpiryDate_NeverPanics(t *testing.T) {
	inputs := []any{
		"--//", "////", "''", ")", "(", "💊💊💊",
		"99999999999", "-45000", "1e309", "NaN",
		strings.Repeat("9", 10000),
		"0000-00-00", "31/02/2025", "00/00/0000",
		float64(-1), float64(0), 3.14159,
		struct{ X int }{42},
	}
	for _, input := range inputs {
		assert.NotPanics(t, func() { NormalizeExpiryDate(input) }, "input %v", input)
	}
}

func TestParseExcelSerial_Range(t *testing.T) {
	for _, v := range []float64{0, 0.99, 50001, -1} {
		_, ok := ParseExcelSerial(v)
		assert.False(t, ok, "serial %v should be out of range", v)
	}
}

// Round trip: re-deriving the serial from the parsed date recovers the
// input for every serial except 60, the phantom 1900-02-29.
func TestParseExcelSerial_RoundTrip(t *testing.T) {
	epoch := time.Date(1899, time.December, 31, 0, 0, 0, 0, time.UTC)
	for serial := 1; serial <= 50000; serial++ {
		if serial == 60 {
			continue
		}
		iso, ok := ParseExcelSerial(float64(serial))
		require.True(t, ok, "serial %d", serial)

		parsed, err := time.Parse("2006-01-02", iso)
		require.NoError(t, err, "serial %d produced %q", serial, iso)

		days := int(parsed.Sub(epoch).Hours() / 24)
		recovered := days
		if days > 59 {
			recovered = days + 1
		}
		require.Equal(t, serial, recovered, "serial %d -> %s", serial, iso)
	}
}

func TestParseExcelSerial_KnownDates(t *testing.T) {
	tests := []struct {
		serial float64
		iso    string
	}{
		{1, "1900-01-01"},
		{59, "1900-02-28"},
		{60, "1900-02-28"}, // phantom leap day collapses
		{61, "1900-03-01"},
		{44927, "2023-01-01"},
		{45000, "2023-03-15"},
		{45000.5, "2023-03-15"}, // time-of-day fraction ignored
	}
	for _, tc := range tests {
		iso, ok := ParseExcelSerial(tc.serial)
		require.True(t, ok, "serial %v", tc.serial)
		assert.Equal(t, tc.iso, iso, "serial %v", tc.serial)
	}
}

func TestParseDateString_RuleOrder(t *testing.T) {
	// A 4-digit leading group must parse as ISO, never day-first.
	normalized, format := parseDateString("2025-03-04")
	assert.Equal(t, FormatISO, format)
	assert.Equal(t, "2025-03-04", normalized)

	// Six digits that could be a month-year string still hit DDMMYY first
	// only when they match it; an invalid month falls through.
	_, format = parseDateString("991399")
	assert.Equal(t, FormatUnrecognized, format)
}

func ExampleNormalizeExpiryDate() {
	res := NormalizeExpiryDate("09-2026")
	fmt.Println(res.Normalized, res.Format)
	// Output: 2026-09-30 MM/YYYY
}
