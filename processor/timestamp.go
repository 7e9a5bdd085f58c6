package processor

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// LastUpdated holds the pieces of a source page's free-text "last updated"
// field. The military time is derived along the way but dropped from the
// normalized table; only date, local time, and zone survive.
type LastUpdated struct {
	Date         string `json:"date"`          // ISO-ish YYYY-MM-DD
	MilitaryTime string `json:"military_time"` // HH:MM:SS
	LocalTime    string `json:"local_time"`    // 12-hour, e.g. "02:15 PM"
	TimeZone     string `json:"time_zone"`     // abbreviation as printed, e.g. "EST"
}

// lastUpdatedSentinel is what an unparseable "last updated" string
// decomposes to. Downstream stages treat these placeholders as missing;
// a bad timestamp never aborts a run.
var lastUpdatedSentinel = LastUpdated{Date: "_", MilitaryTime: "-", LocalTime: "-", TimeZone: "-"}

var isoDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// DecomposeLastUpdated parses strings of the shape
//
//	"14:15:00 EST Tuesday 15 Dec 2020"
//
// where the first token is a military time, the second a time-zone
// abbreviation, and the date appears either as the last three
// whitespace-separated tokens in day/month-abbrev/year order or as a single
// pre-formatted YYYY-MM-DD token. Any parse failure returns the sentinel
// record instead of an error.
func DecomposeLastUpdated(months MonthIndex, raw string) LastUpdated {
	fields := strings.Fields(raw)
	if len(fields) < 3 {
		return lastUpdatedSentinel
	}

	parsed, err := time.Parse("15:04:05", fields[0])
	if err != nil {
		return lastUpdatedSentinel
	}

	out := LastUpdated{
		MilitaryTime: fields[0],
		LocalTime:    parsed.Format("03:04 PM"),
		TimeZone:     fields[1],
	}

	last := fields[len(fields)-1]
	if isoDatePattern.MatchString(last) {
		out.Date = last
		return out
	}

	if len(fields) < 5 {
		return lastUpdatedSentinel
	}
	day := fields[len(fields)-3]
	monthAbbrev := fields[len(fields)-2]
	year := fields[len(fields)-1]

	monthIdx, ok := months.Lookup(monthAbbrev)
	if !ok {
		return lastUpdatedSentinel
	}
	if _, err := strconv.Atoi(day); err != nil {
		return lastUpdatedSentinel
	}
	if _, err := strconv.Atoi(year); err != nil {
		return lastUpdatedSentinel
	}
	if len(day) == 1 {
		day = "0" + day
	}

	out.Date = year + "-" + monthIdx + "-" + day
	return out
}
