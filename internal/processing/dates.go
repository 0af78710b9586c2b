package processing

import (
	"regexp"
	"strings"
	"time"
	"unicode"
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC1123Z,
	time.RFC1123,
}

var dateOnlyLayouts = []string{
	"2006-01-02",
	"January 2, 2006",
	"Jan 2, 2006",
	"Jan. 2, 2006",
	"2 January 2006",
	"2 Jan 2006",
	"2006/01/02",
	"02/01/2006",
	"01/02/2006",
}

var dateInText = regexp.MustCompile(
	`\d{4}-\d{2}-\d{2}(?:[T ]\d{2}:\d{2}(?::\d{2}(?:\.\d+)?)?(?:Z|[+-]\d{2}:\d{2})?)?` +
		`|(?i:(?:jan|feb|mar|apr|may|jun|jul|aug|sep|sept|oct|nov|dec)[a-z]*\.? \d{1,2}, \d{4})` +
		`|\d{1,2} (?i:(?:jan|feb|mar|apr|may|jun|jul|aug|sep|sept|oct|nov|dec)[a-z]*) \d{4}` +
		`|\d{4}/\d{2}/\d{2}` +
		`|\d{2}/\d{2}/\d{4}`,
)

// ParseDate reads a publish date in one of the accepted layouts. dateOnly
// reports that the value carried no time of day. Results are UTC.
func ParseDate(raw string) (ts time.Time, dateOnly bool, ok bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false, false
	}

	for _, f := range timestampLayouts {
		if t, err := time.Parse(f, raw); err == nil {
			return t.UTC(), false, true
		}
	}
	for _, f := range dateOnlyLayouts {
		if t, err := time.Parse(f, raw); err == nil {
			return t.UTC(), true, true
		}
	}
	return time.Time{}, false, false
}

// FindDate returns the first parseable date mentioned anywhere in text.
func FindDate(text string) (ts time.Time, dateOnly bool, ok bool) {
	for _, m := range dateInText.FindAllString(text, -1) {
		if t, d, found := ParseDate(normalizeMonth(m)); found {
			return t, d, true
		}
	}
	return time.Time{}, false, false
}

// normalizeMonth title-cases month names so "OCTOBER 10, 2025" matches the layouts.
func normalizeMonth(s string) string {
	fields := strings.Fields(s)
	for i, f := range fields {
		if unicode.IsLetter(rune(f[0])) {
			fields[i] = strings.ToUpper(f[:1]) + strings.ToLower(f[1:])
		}
	}
	return strings.Join(fields, " ")
}
