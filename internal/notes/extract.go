// Package notes scans free-text lead notes for date expressions so follow-up
// appointments can be booked without anyone touching a calendar.
package notes

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DefaultFollowUpTime is the time slot every auto-scheduled follow-up gets,
// regardless of which pattern matched.
const DefaultFollowUpTime = "10:00"

// Candidate is one follow-up suggestion pulled out of a note.
type Candidate struct {
	Date   time.Time // calendar day; only Y/M/D are meaningful
	Time   string    // always DefaultFollowUpTime
	Phrase string    // the text that produced this candidate
}

// DateString renders the candidate's calendar date the way the appointments
// table stores it.
func (c Candidate) DateString() string {
	return c.Date.Format("2006-01-02")
}

// A matcher inspects the whole text against one pattern family and yields at
// most one candidate. Matchers are pure and independent of each other.
type matcher func(text string, now time.Time) *Candidate

// Extract runs every pattern family against text in declared order and
// concatenates whatever fired. A note mentioning several dates deliberately
// produces several candidates. Text with no recognized pattern yields nil;
// Extract never fails.
func Extract(text string, now time.Time) []Candidate {
	var out []Candidate

	for _, m := range []matcher{
		matchRelativeDays,
		matchRelativeWeeks,
		matchRelativeMonths,
	} {
		if c := m(text, now); c != nil {
			out = append(out, *c)
		}
	}

	// "on March 10th" wins over "on 10th March"; running both against the
	// same phrase would double-count it.
	if c := matchMonthDay(text, now); c != nil {
		out = append(out, *c)
	} else if c := matchDayMonth(text, now); c != nil {
		out = append(out, *c)
	}

	if c := matchNextWeekday(text, now); c != nil {
		out = append(out, *c)
	}
	if c := matchTomorrow(text, now); c != nil {
		out = append(out, *c)
	}

	return out
}

var (
	relDaysRe   = regexp.MustCompile(`(?i)\b(?:in|after)\s+(\d+)\s+days?\b`)
	relWeeksRe  = regexp.MustCompile(`(?i)\b(?:in|after)\s+(\d+)\s+weeks?\b`)
	relMonthsRe = regexp.MustCompile(`(?i)\b(?:in|after)\s+(\d+)\s+months?\b`)

	monthPat   = `jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|jun(?:e)?|jul(?:y)?|aug(?:ust)?|sep(?:tember)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?`
	monthDayRe = regexp.MustCompile(`(?i)\bon\s+(` + monthPat + `)\s+(\d{1,2})(?:st|nd|rd|th)?\b`)
	dayMonthRe = regexp.MustCompile(`(?i)\bon\s+(\d{1,2})(?:st|nd|rd|th)?\s+(?:of\s+)?(` + monthPat + `)\b`)

	nextWeekdayRe = regexp.MustCompile(`(?i)\bnext\s+(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`)
	tomorrowRe    = regexp.MustCompile(`(?i)\btomorrow\b`)
)

var months = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

var weekdays = map[string]time.Weekday{
	"monday": time.Monday, "tuesday": time.Tuesday, "wednesday": time.Wednesday,
	"thursday": time.Thursday, "friday": time.Friday,
	"saturday": time.Saturday, "sunday": time.Sunday,
}

func candidate(date time.Time, phrase string) *Candidate {
	return &Candidate{Date: date, Time: DefaultFollowUpTime, Phrase: phrase}
}

func matchRelativeDays(text string, now time.Time) *Candidate {
	m := relDaysRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	n, _ := strconv.Atoi(m[1])
	return candidate(now.AddDate(0, 0, n), m[0])
}

func matchRelativeWeeks(text string, now time.Time) *Candidate {
	m := relWeeksRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	n, _ := strconv.Atoi(m[1])
	return candidate(now.AddDate(0, 0, 7*n), m[0])
}

func matchRelativeMonths(text string, now time.Time) *Candidate {
	m := relMonthsRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	n, _ := strconv.Atoi(m[1])
	return candidate(now.AddDate(0, n, 0), m[0])
}

// matchMonthDay handles "on March 10th". The date is built in now's year at
// 00:00 and rolled forward a year when strictly before the now instant; so
// "on January 1st" said at any point past midnight on Jan 1 already lands on
// next year's Jan 1. Out-of-range days (Feb 30) normalize forward per
// time.Date, they never fail.
func matchMonthDay(text string, now time.Time) *Candidate {
	m := monthDayRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	month := months[strings.ToLower(m[1])[:3]]
	day, _ := strconv.Atoi(m[2])
	return candidate(rollForward(month, day, now), m[0])
}

func matchDayMonth(text string, now time.Time) *Candidate {
	m := dayMonthRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	day, _ := strconv.Atoi(m[1])
	month := months[strings.ToLower(m[2])[:3]]
	return candidate(rollForward(month, day, now), m[0])
}

func rollForward(month time.Month, day int, now time.Time) time.Time {
	d := time.Date(now.Year(), month, day, 0, 0, 0, 0, now.Location())
	if d.Before(now) {
		d = d.AddDate(1, 0, 0)
	}
	return d
}

func matchNextWeekday(text string, now time.Time) *Candidate {
	m := nextWeekdayRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	target := weekdays[strings.ToLower(m[1])]
	delta := (int(target) - int(now.Weekday()) + 7) % 7
	if delta == 0 {
		delta = 7 // strictly after now
	}
	return candidate(now.AddDate(0, 0, delta), m[0])
}

func matchTomorrow(text string, now time.Time) *Candidate {
	m := tomorrowRe.FindString(text)
	if m == "" {
		return nil
	}
	return candidate(now.AddDate(0, 0, 1), m)
}
