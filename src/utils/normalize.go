package utils

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// DisplaySentinel is what display-context consumers render for a value that
// is empty or unparsable. It is deliberately different from the numeric
// default of 0; callers must pick the policy that matches their context.
const DisplaySentinel = "-"

// excelEpoch is 1899-12-30, not 1900-01-01: Excel serials carry the
// historical 1900 leap-year bug, and this epoch absorbs it.
var excelEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// ParseNumeric converts a spreadsheet cell to a float64 for arithmetic use.
// Commas, dollar signs and surrounding whitespace are stripped. Empty, "-"
// and unparsable input all default to 0.
func ParseNumeric(v string) float64 {
	cleaned := cleanNumeric(v)
	if cleaned == "" || cleaned == "-" {
		return 0
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return f
}

// DisplayValue converts a spreadsheet cell to a display string. Empty input
// becomes the "-" sentinel rather than 0; templates render the sentinel as
// "no value", which is not the same thing as zero.
func DisplayValue(v string) string {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return DisplaySentinel
	}
	return trimmed
}

// FormatCurrency renders an amount with two decimals and thousands
// separators. Negative amounts render as -(1,234.56); the statement templates
// never show a leading minus sign.
func FormatCurrency(v float64) string {
	negative := v < 0
	formatted := addThousandsSeparators(strconv.FormatFloat(math.Abs(v), 'f', 2, 64))
	if negative {
		return "-(" + formatted + ")"
	}
	return formatted
}

// FormatCurrencyString formats a raw spreadsheet cell as currency, or returns
// the "-" sentinel when the cell is empty or unparsable.
func FormatCurrencyString(v string) string {
	cleaned := cleanNumeric(v)
	if cleaned == "" || cleaned == "-" {
		return DisplaySentinel
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return DisplaySentinel
	}
	return FormatCurrency(f)
}

// ExcelSerialToDate converts an Excel date serial to DD/MM/YYYY. The time
// fraction is discarded.
func ExcelSerialToDate(serial float64) string {
	return excelEpoch.AddDate(0, 0, int(math.Floor(serial))).Format("02/01/2006")
}

// NormalizeDate canonicalizes a spreadsheet date cell. Cells that are plain
// numbers are treated as Excel serials; anything else (including values
// already in DD/MM/YYYY form) passes through unchanged.
func NormalizeDate(v string) string {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return ""
	}
	if serial, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return ExcelSerialToDate(serial)
	}
	return trimmed
}

// NormalizeTime canonicalizes a time-of-day cell. HH:MM strings (with or
// without an AM/PM suffix) pass through; Excel fractional-day serials are
// converted to zero-padded HH:MM.
func NormalizeTime(v string) string {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return ""
	}
	if strings.Contains(trimmed, ":") {
		return trimmed
	}
	serial, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return trimmed
	}
	frac := serial - math.Floor(serial)
	minutes := int(math.Round(frac * 1440))
	return fmt.Sprintf("%02d:%02d", (minutes/60)%24, minutes%60)
}

// ParseDDMMYYYY parses a canonical DD/MM/YYYY string, returning zero time on
// failure. Used for sorting daily transactions.
func ParseDDMMYYYY(dateStr string) time.Time {
	t, err := time.Parse("02/01/2006", dateStr)
	if err != nil {
		return time.Time{}
	}
	return t
}

// ParseBoolFlag interprets spreadsheet truthiness: TRUE/YES/Y/1 (any case).
func ParseBoolFlag(v string) bool {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case "TRUE", "YES", "Y", "1":
		return true
	}
	return false
}

func cleanNumeric(v string) string {
	cleaned := strings.TrimSpace(v)
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.ReplaceAll(cleaned, "$", "")
	return strings.TrimSpace(cleaned)
}

func addThousandsSeparators(formatted string) string {
	intPart, decPart, _ := strings.Cut(formatted, ".")
	if len(intPart) <= 3 {
		return formatted
	}
	var b strings.Builder
	lead := len(intPart) % 3
	if lead > 0 {
		b.WriteString(intPart[:lead])
	}
	for i := lead; i < len(intPart); i += 3 {
		if b.Len() > 0 {
			b.WriteString(",")
		}
		b.WriteString(intPart[i : i+3])
	}
	return b.String() + "." + decPart
}
