package services

import (
	"strconv"
	"strings"
	"time"
)

const rangeDelimiter = "~"

// DateNormalizer parses the loosely formatted date text published on the
// offering schedule ("02.20~02.21", "2026.02.20", "02/20" ...) into calendar
// dates and provides the business-day arithmetic milestones are built from.
//
// The clock is injectable because year inference depends on "now".
type DateNormalizer struct {
	now func() time.Time
}

func NewDateNormalizer() *DateNormalizer {
	return &DateNormalizer{now: time.Now}
}

// NewDateNormalizerWithClock returns a normalizer with a fixed clock, used by
// tests to pin year-rollover behavior.
func NewDateNormalizerWithClock(now func() time.Time) *DateNormalizer {
	return &DateNormalizer{now: now}
}

// normalizeSeparators keeps digits, the range delimiter and separator
// characters, and folds '-' and '/' into '.' so a single split works for
// every format the source uses.
func normalizeSeparators(text string) string {
	var b strings.Builder
	for _, r := range text {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '/':
			b.WriteByte('.')
		case r == '~':
			b.WriteByte('~')
		}
	}
	return b.String()
}

// SplitDateRange splits raw schedule text on the range delimiter and returns
// the normalized start and end tokens. Single dates return the same token
// twice. ok is false when no digits survive normalization.
func (d *DateNormalizer) SplitDateRange(text string) (start, end string, ok bool) {
	cleaned := normalizeSeparators(text)
	if cleaned == "" {
		return "", "", false
	}

	parts := strings.SplitN(cleaned, rangeDelimiter, 2)
	start = strings.Trim(parts[0], ".")
	end = start
	if len(parts) > 1 {
		if e := strings.Trim(parts[1], "."); e != "" {
			end = e
		}
	}
	if start == "" {
		return "", "", false
	}
	return start, end, true
}

// ParseOfferingDate parses the start date out of schedule text. It returns
// nil for anything it cannot understand; callers treat nil as "unscheduled",
// never as an error.
//
// When the year is omitted and the month is strictly less than the current
// month, the date is assumed to be next year. This handles year-end rollover
// for near-term offerings but misreads offerings more than ~11 months out;
// kept as-is deliberately.
func (d *DateNormalizer) ParseOfferingDate(text string) *time.Time {
	start, _, ok := d.SplitDateRange(text)
	if !ok {
		return nil
	}
	return d.parseToken(start, nil)
}

// ParseOfferingDateRange parses both ends of a date range. An end token
// without a year inherits the start's year, rolling forward by one when the
// end month precedes the start month (range crossing year-end). end is nil
// when only the start parses.
func (d *DateNormalizer) ParseOfferingDateRange(text string) (start, end *time.Time) {
	startTok, endTok, ok := d.SplitDateRange(text)
	if !ok {
		return nil, nil
	}
	start = d.parseToken(startTok, nil)
	if start == nil {
		return nil, nil
	}
	if endTok == startTok {
		return start, start
	}
	end = d.parseToken(endTok, start)
	return start, end
}

// parseToken parses a single normalized token. anchor, when non-nil, supplies
// the year for year-less tokens instead of the clock heuristic.
func (d *DateNormalizer) parseToken(token string, anchor *time.Time) *time.Time {
	parts := strings.Split(token, ".")

	var year, month, day int
	var err error

	switch len(parts) {
	case 3:
		if year, err = strconv.Atoi(parts[0]); err != nil {
			return nil
		}
		if month, err = strconv.Atoi(parts[1]); err != nil {
			return nil
		}
		if day, err = strconv.Atoi(parts[2]); err != nil {
			return nil
		}
		if year < 100 {
			year += 2000 // two-digit years ("26.02.20") are always 20xx here
		}
	case 2:
		if month, err = strconv.Atoi(parts[0]); err != nil {
			return nil
		}
		if day, err = strconv.Atoi(parts[1]); err != nil {
			return nil
		}
		if anchor != nil {
			year = anchor.Year()
			if month < int(anchor.Month()) {
				year++
			}
		} else {
			now := d.now()
			year = now.Year()
			if month < int(now.Month()) {
				year++
			}
		}
	default:
		return nil
	}

	if month < 1 || month > 12 || day < 1 || day > 31 {
		return nil
	}

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.Local)
	// time.Date normalizes out-of-range days (Feb 30 -> Mar 2); reject those.
	if int(t.Month()) != month || t.Day() != day {
		return nil
	}
	return &t
}

// AddBusinessDays advances date day by day, skipping Saturdays and Sundays,
// until n business days have been added. Public holidays are not consulted;
// refund dates landing on one will be a day early.
func (d *DateNormalizer) AddBusinessDays(date time.Time, n int) time.Time {
	added := 0
	for added < n {
		date = date.AddDate(0, 0, 1)
		wd := date.Weekday()
		if wd != time.Saturday && wd != time.Sunday {
			added++
		}
	}
	return date
}
