package processor

import (
	"fmt"
	"strings"
	"time"
)

// MonthIndex maps a canonical three-letter month abbreviation (upper case)
// to its two-digit calendar index, "JAN" -> "01" through "DEC" -> "12". It
// is built once at startup and passed explicitly into the timestamp
// decomposer and the contract-month ranker; nothing mutates it afterwards.
type MonthIndex map[string]string

// NewMonthIndex builds the index from the twelve standard month names.
func NewMonthIndex() MonthIndex {
	idx := make(MonthIndex, 12)
	for m := time.January; m <= time.December; m++ {
		abbrev := strings.ToUpper(m.String()[:3])
		idx[abbrev] = fmt.Sprintf("%02d", int(m))
	}
	return idx
}

// Lookup resolves a month abbreviation case-insensitively, returning the
// two-digit index and whether the abbreviation is known.
func (m MonthIndex) Lookup(abbrev string) (string, bool) {
	v, ok := m[strings.ToUpper(strings.TrimSpace(abbrev))]
	return v, ok
}
