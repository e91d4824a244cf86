// Package format holds template helpers for dates and numbers.
package format

import (
	"strconv"
	"strings"
	"time"
)

// FmtDate formats t as a short date for lang. English uses the British
// day/month/year order.
func FmtDate(t time.Time, lang string) string {
	switch strings.ToLower(lang) {
	case "ja":
		return t.Format("2006/01/02")
	case "en-us":
		return t.Format("01/02/2006")
	default:
		return t.Format("02/01/2006")
	}
}

// FmtLongDate formats t as "16 October 2026".
func FmtLongDate(t time.Time) string {
	return t.Format("2 January 2006")
}

// FmtPercent renders an integer percentage.
func FmtPercent(p int) string {
	return strconv.Itoa(p) + "%"
}

// FmtScore renders a score out of ten; unset shows as 0.
func FmtScore(v int, set bool) string {
	if !set {
		v = 0
	}
	return strconv.Itoa(v) + "/10"
}
