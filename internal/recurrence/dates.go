package recurrence

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"
)

// MaxOccurrences caps the number of dates a single expansion may produce.
const MaxOccurrences = 730

// Dates returns every occurrence date of r from start through end inclusive.
// Only the calendar dates of start and end are used; results are midnight UTC.
func (r Rule) Dates(start, end time.Time) ([]time.Time, error) {
	start = civil(start)
	end = civil(end)

	if end.Before(start) {
		return nil, ErrEndBeforeStart
	}

	var dates []time.Time
	switch r.freq {
	case freqDaily, freqWeekly:
		var err error
		if dates, err = r.step(start, end); err != nil {
			return nil, err
		}
	case freqMonthly:
		dates = r.months(start, end)
	default:
		return nil, ErrInvalidRule
	}

	if len(dates) > MaxOccurrences {
		return nil, ErrTooManyOccurrences
	}
	return dates, nil
}

func (r Rule) step(start, end time.Time) ([]time.Time, error) {
	opt := rrule.ROption{
		Freq:     rrule.DAILY,
		Interval: r.interval,
		Dtstart:  start,
		Until:    end,
		Count:    MaxOccurrences + 1,
	}
	if r.freq == freqWeekly {
		opt.Freq = rrule.WEEKLY
	}

	rr, err := rrule.NewRRule(opt)
	if err != nil {
		return nil, fmt.Errorf("build rrule: %w", err)
	}
	return rr.All(), nil
}

// months steps by calendar month anchored on start's day. RFC 5545 skips
// months that lack the day (no Feb 31), so this is done by hand: the day is
// clamped to the end of short months and restored afterwards.
func (r Rule) months(start, end time.Time) []time.Time {
	var dates []time.Time
	anchor := start.Day()

	for i := 0; len(dates) <= MaxOccurrences; i += r.interval {
		first := time.Date(start.Year(), start.Month()+time.Month(i), 1, 0, 0, 0, 0, time.UTC)
		day := min(anchor, daysInMonth(first.Year(), first.Month()))
		d := time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, time.UTC)
		if d.After(end) {
			break
		}
		dates = append(dates, d)
	}
	return dates
}

func civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
