package profile

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// PKT is the fixed timezone offset all dates are rendered in
var PKT = time.FixedZone("PKT", 5*60*60)

// Date and timestamp formats used across the sheet
const (
	DateFormat      = "02-Jan-06"
	TimestampFormat = "02-Jan-06 03:04 PM"
)

// Now returns the current instant in the fixed sheet timezone
func Now() time.Time {
	return time.Now().In(PKT)
}

// blankSentinels are scraped placeholder phrases that mean "no value".
// Matched case-insensitively against the full trimmed value.
var blankSentinels = map[string]struct{}{
	"no city":       {},
	"not set":       {},
	"no set":        {},
	"[no posts]":    {},
	"[no post url]": {},
	"[error]":       {},
	"n/a":           {},
	"none":          {},
	"null":          {},
	"no age":        {},
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// CleanText collapses whitespace and control characters into single spaces
func CleanText(text string) string {
	if text == "" {
		return ""
	}
	text = strings.ReplaceAll(text, " ", " ")
	text = strings.ReplaceAll(text, "\n", " ")
	text = strings.ReplaceAll(text, "\r", " ")
	text = strings.ReplaceAll(text, "\t", " ")
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))
}

// CleanValue cleans a field value and maps blank sentinels to empty string
func CleanValue(value string) string {
	value = CleanText(value)
	if value == "" {
		return ""
	}
	if _, blank := blankSentinels[strings.ToLower(value)]; blank {
		return ""
	}
	return value
}

var (
	abbrevPatterns = []struct {
		re   *regexp.Regexp
		repl string
	}{
		{regexp.MustCompile(`\bsecs?\b`), "seconds"},
		{regexp.MustCompile(`\bmins?\b`), "minutes"},
		{regexp.MustCompile(`\bhrs?\b`), "hours"},
		{regexp.MustCompile(`\bwks?\b`), "weeks"},
		{regexp.MustCompile(`\byrs?\b`), "years"},
		{regexp.MustCompile(`\bmons?\b`), "months"},
	}

	articleAgo = regexp.MustCompile(`\b(a|an)\s+(second|minute|hour|day|week|month|year)s?\s*ago\b`)
	numberAgo  = regexp.MustCompile(`(\d+)\s*(second|minute|hour|day|week|month|year)s?\s*ago`)
)

// ResolveRelativeDate converts a relative time expression ("3 days ago",
// "a week ago", "yesterday", "just now") to an absolute DD-MMM-YY date in
// the fixed timezone, computed against the given reference instant.
// Unrecognized text passes through unchanged.
func ResolveRelativeDate(text string, ref time.Time) string {
	if text == "" {
		return ""
	}

	ref = ref.In(PKT)
	lowered := strings.ToLower(strings.TrimSpace(text))

	for _, p := range abbrevPatterns {
		lowered = p.re.ReplaceAllString(lowered, p.repl)
	}

	switch lowered {
	case "just now", "now", "today":
		return ref.Format(DateFormat)
	case "yesterday":
		return ref.Add(-24 * time.Hour).Format(DateFormat)
	}

	var amount int
	var unit string
	if m := articleAgo.FindStringSubmatch(lowered); m != nil {
		amount = 1
		unit = m[2]
	} else if m := numberAgo.FindStringSubmatch(lowered); m != nil {
		amount, _ = strconv.Atoi(m[1])
		unit = m[2]
	} else {
		return text
	}

	var delta time.Duration
	switch unit {
	case "second":
		delta = time.Duration(amount) * time.Second
	case "minute":
		delta = time.Duration(amount) * time.Minute
	case "hour":
		delta = time.Duration(amount) * time.Hour
	case "day":
		delta = time.Duration(amount) * 24 * time.Hour
	case "week":
		delta = time.Duration(amount) * 7 * 24 * time.Hour
	case "month":
		// Months and years are approximated the way the sheet always has
		delta = time.Duration(amount) * 30 * 24 * time.Hour
	case "year":
		delta = time.Duration(amount) * 365 * 24 * time.Hour
	default:
		return text
	}

	return ref.Add(-delta).Format(DateFormat)
}

// AbsoluteURL resolves a scraped href against the site base URL
func AbsoluteURL(baseURL, href string) string {
	if href == "" {
		return ""
	}
	href = strings.TrimSpace(href)
	base := strings.TrimRight(baseURL, "/")
	switch {
	case strings.HasPrefix(href, "http"):
		return href
	case strings.HasPrefix(href, "/"):
		return base + href
	default:
		return base + "/" + href
	}
}

// GenderGlyph maps a scraped gender value to its sheet presentation
func GenderGlyph(value string) string {
	switch strings.ToLower(value) {
	case "female":
		return "\U0001F483"
	case "male":
		return "\U0001F57A"
	default:
		return value
	}
}

// MarriedGlyph maps a scraped marital status to its sheet presentation
func MarriedGlyph(value string) string {
	switch strings.ToLower(value) {
	case "yes", "married":
		return "\U0001F48D"
	case "no", "single", "unmarried":
		return "❎"
	default:
		return value
	}
}
