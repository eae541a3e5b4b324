package calendar

import (
	"regexp"
	"strconv"
	"strings"

	"photodesk/internal/shootdate"
)

// Tier is the booked package.
type Tier string

const (
	Basic   Tier = "basic"
	Premium Tier = "premium"
)

// Label returns the tier's name as used in sheet and folder names.
func (t Tier) Label() string {
	if t == Premium {
		return "프리미엄"
	}
	return "베이직"
}

// Booking is the information the ledger needs from an event.
type Booking struct {
	CustomerName string
	People       int
	Tier         Tier
	// ShootDate is the ledger's date spelling ("2026. 2. 13").
	ShootDate string
	// Time is the start time as HH:MM in KST.
	Time string
}

var (
	leadingName  = regexp.MustCompile(`^([^(]+)`)
	titlePeople  = regexp.MustCompile(`\((\d+)명\)`)
	detailPeople = regexp.MustCompile(`총\s*인원\s*[:：]?\s*(\d+)명`)
	detailGrade  = regexp.MustCompile(`등급[^:：]*[:：]?\s*\(?(프리미엄|베이직)\)?`)
)

// TierFromTitle returns Premium when the title names the premium package.
func TierFromTitle(title string) Tier {
	if strings.Contains(title, "프리미엄") || strings.Contains(strings.ToLower(title), "premium") {
		return Premium
	}
	return Basic
}

// ParseBooking reads titles such as "사공*지 (2명) (프리미엄)". The
// description's "총 인원: N명" line fills in a missing headcount and its
// "등급 및 옵션: (프리미엄)" line overrides the tier.
func ParseBooking(ev Event) Booking {
	summary := strings.TrimSpace(ev.Summary)
	b := Booking{People: 1, Tier: TierFromTitle(summary)}

	if m := leadingName.FindStringSubmatch(summary); m != nil {
		b.CustomerName = strings.TrimSpace(m[1])
	} else {
		b.CustomerName = summary
	}

	peopleFromTitle := false
	if m := titlePeople.FindStringSubmatch(summary); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			b.People = n
			peopleFromTitle = true
		}
	}
	if ev.Description != "" {
		if !peopleFromTitle {
			if m := detailPeople.FindStringSubmatch(ev.Description); m != nil {
				if n, err := strconv.Atoi(m[1]); err == nil {
					b.People = n
				}
			}
		}
		if m := detailGrade.FindStringSubmatch(ev.Description); m != nil {
			b.Tier = Basic
			if m[1] == "프리미엄" {
				b.Tier = Premium
			}
		}
	}

	if !ev.Start.IsZero() {
		b.ShootDate = shootdate.SheetLabel(ev.Start)
		b.Time = ev.Start.In(shootdate.Location).Format("15:04")
	}
	return b
}
