// Package imelog reads the Intune Management Extension log family: CMTrace
// formatted, append-only files that the agent keeps open and rotates by
// renaming with a date suffix.
package imelog

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Entry is one decoded log line.
type Entry struct {
	Timestamp time.Time // zero when the line carried no parseable time/date
	Message   string
	Component string
}

// CMTrace line layout:
//
//	<![LOG[message]LOG]!><time="HH:MM:SS.fffffff" date="M-D-YYYY" component="..." context="" type="1" thread="7" file="...">
//
// The message body may itself contain ']' and '<', so the envelope is
// matched non-greedily up to the closing "]LOG]!>".
var lineRe = regexp.MustCompile(`^<!\[LOG\[(?s)(.*?)\]LOG\]!><(.*)>\s*$`)

var attrRe = regexp.MustCompile(`(\w+)="([^"]*)"`)

// ParseLine decodes a single CMTrace line. ok is false when the line does
// not carry the LOG envelope at all (continuation lines, plain text);
// callers should then treat the raw line as the message. A matched envelope
// with a malformed or missing time/date yields a zero Timestamp, not an
// error.
func ParseLine(raw string) (Entry, bool) {
	m := lineRe.FindStringSubmatch(raw)
	if m == nil {
		return Entry{}, false
	}

	e := Entry{Message: m[1]}

	var timeStr, dateStr string
	for _, kv := range attrRe.FindAllStringSubmatch(m[2], -1) {
		switch kv[1] {
		case "time":
			timeStr = kv[2]
		case "date":
			dateStr = kv[2]
		case "component":
			e.Component = kv[2]
		}
	}

	if ts, ok := parseTimestamp(timeStr, dateStr); ok {
		e.Timestamp = ts
	}
	return e, true
}

// parseTimestamp combines CMTrace time ("14:03:07.1234567", optionally with
// a "+480" style UTC offset suffix) and date ("3-28-2024") attributes.
func parseTimestamp(timeStr, dateStr string) (time.Time, bool) {
	if timeStr == "" || dateStr == "" {
		return time.Time{}, false
	}

	// Strip the minutes-offset suffix some agent versions append.
	if i := strings.IndexAny(timeStr, "+-"); i > 0 {
		timeStr = timeStr[:i]
	}

	clock, frac, _ := strings.Cut(timeStr, ".")
	hms := strings.Split(clock, ":")
	mdy := strings.Split(dateStr, "-")
	if len(hms) != 3 || len(mdy) != 3 {
		return time.Time{}, false
	}

	nums := make([]int, 0, 6)
	for _, s := range append(mdy, hms...) {
		n, err := strconv.Atoi(s)
		if err != nil {
			return time.Time{}, false
		}
		nums = append(nums, n)
	}

	nsec := 0
	if frac != "" {
		// CMTrace writes 7 fractional digits; normalize to nanoseconds.
		if len(frac) > 9 {
			frac = frac[:9]
		}
		n, err := strconv.Atoi(frac)
		if err != nil {
			return time.Time{}, false
		}
		for i := len(frac); i < 9; i++ {
			n *= 10
		}
		nsec = n
	}

	month, day, year := nums[0], nums[1], nums[2]
	hour, min, sec := nums[3], nums[4], nums[5]
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	return time.Date(year, time.Month(month), day, hour, min, sec, nsec, time.Local), true
}
