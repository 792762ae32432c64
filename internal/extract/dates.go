package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/araddon/dateparse"
)

const monthNames = `(?:jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)`

// datePhraseRegex finds date-like substrings: year-first dates, numeric
// dates, dates with a spelled-out month in either order and month-year
// phrases. Earlier alternatives win at the same position.
var datePhraseRegex = regexp.MustCompile(`(?i)` +
	`\b\d{4}[-/.]\d{1,2}[-/.]\d{1,2}\b` +
	`|\b\d{1,2}[/.-]\d{1,2}[/.-](?:\d{4}|\d{2})\b` +
	`|\b` + monthNames + `\.?\s+\d{1,2}(?:st|nd|rd|th)?,?\s+\d{4}\b` +
	`|\b\d{1,2}(?:st|nd|rd|th)?\s+` + monthNames + `\.?,?\s+\d{4}\b` +
	`|\b` + monthNames + `\.?,?\s+\d{4}\b`)

var (
	ordinalSuffix = regexp.MustCompile(`(?i)(\d)(st|nd|rd|th)\b`)
	yearFirst     = regexp.MustCompile(`^(\d{4})[-/.](\d{1,2})[-/.](\d{1,2})$`)
	monthDayYear  = regexp.MustCompile(`(?i)^(` + monthNames + `) (\d{1,2}) (\d{4})$`)
	dayMonthYear  = regexp.MustCompile(`(?i)^(\d{1,2}) (` + monthNames + `) (\d{4})$`)
	monthYear     = regexp.MustCompile(`(?i)^(` + monthNames + `) (\d{4})$`)
)

// FirstDate returns the earliest date phrase in text that parses to a date.
// A month-year phrase resolves to the first of the month. Phrases that look
// like dates but do not parse are skipped.
func FirstDate(text string) *time.Time {
	for _, loc := range datePhraseRegex.FindAllStringIndex(text, -1) {
		candidate := normalizeDatePhrase(text[loc[0]:loc[1]])
		t, err := dateparse.ParseIn(candidate, time.UTC, dateparse.RetryAmbiguousDateWithSwap(true))
		if err != nil {
			continue
		}
		return &t
	}
	return nil
}

// normalizeDatePhrase rewrites spelled-out month phrases to "Jan 2, 2006"
// and year-first dates to "2006-01-02".
func normalizeDatePhrase(s string) string {
	s = strings.TrimSpace(ordinalSuffix.ReplaceAllString(s, "$1"))
	if m := yearFirst.FindStringSubmatch(s); m != nil {
		return fmt.Sprintf("%s-%02d-%02d", m[1], atoi(m[2]), atoi(m[3]))
	}
	if !strings.ContainsFunc(s, unicode.IsLetter) {
		return s
	}

	s = strings.Join(strings.Fields(strings.NewReplacer(".", " ", ",", " ").Replace(s)), " ")
	if m := monthDayYear.FindStringSubmatch(s); m != nil {
		return fmt.Sprintf("%s %d, %s", shortMonth(m[1]), atoi(m[2]), m[3])
	}
	if m := dayMonthYear.FindStringSubmatch(s); m != nil {
		return fmt.Sprintf("%s %d, %s", shortMonth(m[2]), atoi(m[1]), m[3])
	}
	if m := monthYear.FindStringSubmatch(s); m != nil {
		return fmt.Sprintf("%s 1, %s", shortMonth(m[1]), m[2])
	}
	return s
}

// shortMonth maps any accepted month spelling ("Sept", "SEPTEMBER") to its
// three-letter form ("Sep").
func shortMonth(name string) string {
	name = strings.ToLower(name)
	return strings.ToUpper(name[:1]) + name[1:3]
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
