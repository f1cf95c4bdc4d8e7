package model

import (
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// dateLayouts are the accepted date layouts, tried in order.
// The first layout matches "October 29, 2021", the second "Feb 2, 2019".
var dateLayouts = []string{
	"January 2, 2006",
	"Jan 2, 2006",
}

// SentinelDate substitutes a date that the source markup does not provide.
// Some historical records carry no structured filing or issuance date.
var SentinelDate = time.Date(1997, time.January, 1, 0, 0, 0, 0, time.UTC)

// ParseDate parses a free-text date as printed by the listing service.
//
// The input is NFKC-normalized first so that non-breaking spaces copied from
// the HTML compare equal to plain spaces, then runs of whitespace are
// collapsed. Each layout in dateLayouts is tried in order and the first match
// wins. When none matches a *DateError carrying the cleaned input is returned.
func ParseDate(s string) (time.Time, error) {
	cleaned := strings.Join(strings.Fields(norm.NFKC.String(s)), " ")
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, cleaned); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &DateError{Input: cleaned}
}
