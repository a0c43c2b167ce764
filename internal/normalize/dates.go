package normalize

import (
	"strings"
	"time"
)

// Date layouts seen in the last_updated_on field of hospital price files.
var dateFormats = []string{
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
	"2006/01/02",
	"January 2, 2006",
	"Jan 2, 2006",
	time.RFC3339,
	"2006-01-02T15:04:05",
}

// ParseDate tries each known layout in turn.
// Returns nil if the input is empty or matches none of them.
func ParseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
