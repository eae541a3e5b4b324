// Package shootdate converts the loosely formatted shoot dates found in the
// booking ledger into the compact yymmdd form used by customer folder names.
package shootdate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Location is the studio's wall clock zone (UTC+9, no DST).
var Location = time.FixedZone("KST", 9*60*60)

var (
	separators = regexp.MustCompile(`[./\-\s]+`)
	nonDigits  = regexp.MustCompile(`\D`)
)

// Normalize converts "2026. 2. 13", "2026-02-13", "26/2/13" or "2.13" into
// "260213". Two-part dates take the current KST year from now. Anything else
// yields "".
func Normalize(raw string, now time.Time) string {
	parts := make([]string, 0, 3)
	for _, part := range separators.Split(strings.TrimSpace(raw), -1) {
		if part != "" {
			parts = append(parts, part)
		}
	}

	switch len(parts) {
	case 3:
		year := parts[0]
		if len(year) > 2 {
			year = year[len(year)-2:]
		}
		month, okM := pad(parts[1])
		day, okD := pad(parts[2])
		if !okM || !okD || !allDigits(year) {
			return ""
		}
		if len(year) == 1 {
			year = "0" + year
		}
		return year + month + day
	case 2:
		month, okM := pad(parts[0])
		day, okD := pad(parts[1])
		if !okM || !okD {
			return ""
		}
		return now.In(Location).Format("06") + month + day
	default:
		return ""
	}
}

// ISO expands a yymmdd string to 20YY-MM-DD. Inputs that are not six digits yield "".
func ISO(yymmdd string) string {
	if len(yymmdd) != 6 || !allDigits(yymmdd) {
		return ""
	}
	return "20" + yymmdd[:2] + "-" + yymmdd[2:4] + "-" + yymmdd[4:]
}

// PublishDate converts a ledger shoot date into the YYYY-MM-DD form the
// download page API expects. Separated dates go through Normalize; bare
// digits are read as yymmdd (six) or yyyymmdd (eight); anything else has
// spaces removed and dots or slashes replaced by dashes.
func PublishDate(raw string, now time.Time) string {
	if normalized := Normalize(raw, now); normalized != "" {
		return ISO(normalized)
	}
	digits := nonDigits.ReplaceAllString(raw, "")
	switch len(digits) {
	case 6:
		return ISO(digits)
	case 8:
		return digits[:4] + "-" + digits[4:6] + "-" + digits[6:]
	}
	out := strings.ReplaceAll(raw, " ", "")
	out = strings.ReplaceAll(out, ".", "-")
	return strings.ReplaceAll(out, "/", "-")
}

// SheetLabel renders t the way the ledger's date column is typed by hand.
func SheetLabel(t time.Time) string {
	return t.In(Location).Format("2006. 1. 2")
}

// Compact renders t as yymmdd in KST.
func Compact(t time.Time) string {
	return t.In(Location).Format("060102")
}

func pad(value string) (string, bool) {
	if value == "" || len(value) > 2 || !allDigits(value) {
		return "", false
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return "", false
	}
	return fmt.Sprintf("%02d", n), true
}

func allDigits(value string) bool {
	if value == "" {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
