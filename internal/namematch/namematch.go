// Package namematch decides whether a ledger customer name and a folder name
// refer to the same person. Ledger names are often masked ("김*수") or
// shortened, so matching is deliberately loose.
package namematch

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

const wildcard = '*'

var datePrefix = regexp.MustCompile(`^\d{6}_`)

// Match reports whether a and b name the same customer. Rules, first hit wins:
// exact equality; containment when both have at least two runes; a '*'
// wildcard standing for exactly one rune (either side may carry it); equal
// first and last runes when both have at least two runes.
func Match(a, b string) bool {
	ra := []rune(clean(a))
	rb := []rune(clean(b))
	if len(ra) == 0 || len(rb) == 0 {
		return false
	}
	if string(ra) == string(rb) {
		return true
	}
	if len(ra) >= 2 && len(rb) >= 2 {
		if strings.Contains(string(ra), string(rb)) || strings.Contains(string(rb), string(ra)) {
			return true
		}
	}
	if wildcardMatch(ra, rb) || wildcardMatch(rb, ra) {
		return true
	}
	if len(ra) >= 2 && len(rb) >= 2 {
		return ra[0] == rb[0] && ra[len(ra)-1] == rb[len(rb)-1]
	}
	return false
}

// FolderCustomer extracts the customer token from a folder name such as
// "260213_김민수_프리미엄".
func FolderCustomer(folderName string) string {
	rest := datePrefix.ReplaceAllString(norm.NFC.String(strings.TrimSpace(folderName)), "")
	fields := strings.FieldsFunc(rest, func(r rune) bool {
		return r == '_' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func clean(value string) string {
	return norm.NFC.String(strings.TrimSpace(value))
}

func wildcardMatch(pattern, target []rune) bool {
	if len(pattern) != len(target) {
		return false
	}
	hasWildcard := false
	for i, r := range pattern {
		if r == wildcard {
			hasWildcard = true
			continue
		}
		if r != target[i] {
			return false
		}
	}
	return hasWildcard
}
