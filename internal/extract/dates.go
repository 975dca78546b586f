package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// metaDateAttrs lists the meta tag name/property values, checked in order,
// that commonly carry a page's publication date.
var metaDateAttrs = []string{
	"article:published_time",
	"article:modified_time",
	"og:published_time",
	"datePublished",
	"date",
	"publish-date",
	"publication_date",
	"sailthru.date",
	"parsely-pub-date",
}

var isoDatePattern = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})(?:T(\d{2}):(\d{2}):(\d{2}))?`)

var longMonthPattern = regexp.MustCompile(`(?i)\b(January|February|March|April|May|June|July|August|September|October|November|December)\s+(\d{1,2}),?\s+(\d{4})\b`)

var relativeHintPattern = regexp.MustCompile(`(?i)\b(\d+)\s+(hour|day|week|month|year)s?\s+ago\b`)

// FindMetaPublishedDate scans a parsed document's raw HTML for a <meta>
// tag whose name or property matches a known publish-date attribute and
// returns its content attribute, or "" if none is found.
func FindMetaPublishedDate(html string) string {
	lower := strings.ToLower(html)
	for _, attr := range metaDateAttrs {
		needle := strings.ToLower(attr)
		idx := strings.Index(lower, needle)
		if idx < 0 {
			continue
		}
		tagEnd := strings.Index(lower[idx:], ">")
		if tagEnd < 0 {
			continue
		}
		tag := html[idx : idx+tagEnd]
		if v := extractContentAttr(tag); v != "" {
			return v
		}
	}
	return ""
}

func extractContentAttr(tag string) string {
	idx := strings.Index(strings.ToLower(tag), "content=")
	if idx < 0 {
		return ""
	}
	rest := tag[idx+len("content="):]
	if len(rest) == 0 {
		return ""
	}
	quote := rest[0]
	if quote != '"' && quote != '\'' {
		return ""
	}
	end := strings.IndexByte(rest[1:], quote)
	if end < 0 {
		return ""
	}
	return rest[1 : 1+end]
}

// ParsePublishedDate resolves a best-guess publication time from, in order
// of preference: an explicit ISO-8601 date, a long-form "Month D, YYYY"
// date (rendered in English regardless of document locale, since the
// extractor does not receive a reliable language hint), and a relative
// "N units ago" hint taken as relative to now. It returns nil when nothing
// recognizable is present.
func ParsePublishedDate(hint string, now time.Time) *time.Time {
	hint = strings.TrimSpace(hint)
	if hint == "" {
		return nil
	}

	if m := isoDatePattern.FindStringSubmatch(hint); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		hour, min, sec := 0, 0, 0
		if m[4] != "" {
			hour, _ = strconv.Atoi(m[4])
			min, _ = strconv.Atoi(m[5])
			sec, _ = strconv.Atoi(m[6])
		}
		t := time.Date(year, time.Month(month), day, hour, min, sec, 0, time.UTC)
		return &t
	}

	if m := longMonthPattern.FindStringSubmatch(hint); m != nil {
		monthName := strings.ToLower(m[1])
		day, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if month, ok := englishMonths[monthName]; ok {
			t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
			return &t
		}
	}

	if m := relativeHintPattern.FindStringSubmatch(hint); m != nil {
		n, _ := strconv.Atoi(m[1])
		unit := strings.ToLower(m[2])
		t := now
		switch unit {
		case "hour":
			t = now.Add(-time.Duration(n) * time.Hour)
		case "day":
			t = now.AddDate(0, 0, -n)
		case "week":
			t = now.AddDate(0, 0, -7*n)
		case "month":
			t = now.AddDate(0, -n, 0)
		case "year":
			t = now.AddDate(-n, 0, 0)
		}
		return &t
	}

	return nil
}

var englishMonths = map[string]time.Month{
	"january": time.January, "february": time.February, "march": time.March,
	"april": time.April, "may": time.May, "june": time.June,
	"july": time.July, "august": time.August, "september": time.September,
	"october": time.October, "november": time.November, "december": time.December,
}

// FormatPublishedDate renders a date as "Month day, year" using an x/text
// message printer, so the day and year follow the locale's number
// formatting; the month name is always English (the extractor itself
// always stores dates normalized to UTC).
func FormatPublishedDate(t time.Time, tag language.Tag) string {
	p := message.NewPrinter(tag)
	return p.Sprintf("%s %d, %d", t.Month().String(), t.Day(), t.Year())
}
