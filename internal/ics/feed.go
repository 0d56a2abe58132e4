// Package ics renders an owner's appointments as an iCalendar feed.
package ics

import (
	"fmt"
	"io"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/ten99/ten99/internal/model"
	"github.com/ten99/ten99/internal/recurrence"
)

// Feed window relative to today.
const (
	PastDays   = 30
	FutureDays = 365
)

type appointmentLister interface {
	ListByDateRange(userID int64, start, end string) ([]model.Appointment, error)
}

type Feed struct {
	appointments appointmentLister
	loc          *time.Location
	now          func() time.Time
}

func NewFeed(appointments appointmentLister, loc *time.Location) *Feed {
	if loc == nil {
		loc = time.UTC
	}
	return &Feed{appointments: appointments, loc: loc, now: time.Now}
}

// Write renders ownerID's appointments from PastDays ago through FutureDays
// ahead to w.
func (f *Feed) Write(w io.Writer, ownerID int64, calName string) error {
	today := f.now().In(f.loc)
	start := today.AddDate(0, 0, -PastDays).Format(model.DateLayout)
	end := today.AddDate(0, 0, FutureDays).Format(model.DateLayout)

	appts, err := f.appointments.ListByDateRange(ownerID, start, end)
	if err != nil {
		return fmt.Errorf("list appointments: %w", err)
	}

	cal, err := Calendar(appts, calName, f.loc, today)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, cal.Serialize())
	return err
}

// Calendar builds a VCALENDAR with one VEVENT per appointment. Wall-clock
// times are interpreted in loc and emitted in UTC.
func Calendar(appts []model.Appointment, calName string, loc *time.Location, stamp time.Time) (*ical.Calendar, error) {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//Ten99//Appointments//EN")
	if calName != "" {
		cal.SetXWRCalName(calName)
	}

	for _, a := range appts {
		start, err := a.Start(loc)
		if err != nil {
			return nil, fmt.Errorf("appointment %d start: %w", a.ID, err)
		}
		end, err := a.End(loc)
		if err != nil {
			return nil, fmt.Errorf("appointment %d end: %w", a.ID, err)
		}

		ev := cal.AddEvent(UID(a.ID))
		ev.SetDtStampTime(stamp.UTC())
		if !a.UpdatedAt.IsZero() {
			ev.SetModifiedAt(a.UpdatedAt.UTC())
		}
		ev.SetStartAt(start.UTC())
		ev.SetEndAt(end.UTC())
		ev.SetSummary(a.Subject)
		if a.Location != "" {
			ev.SetLocation(a.Location)
		}
		if desc := description(a); desc != "" {
			ev.SetDescription(desc)
		}
		ev.SetStatus(status(a.Status))
	}
	return cal, nil
}

// UID is the stable iCalendar identifier of an appointment.
func UID(id int64) string {
	return fmt.Sprintf("appointment-%d@ten99", id)
}

func status(s string) ical.ObjectStatus {
	switch {
	case model.IsCanceledStatus(s):
		return ical.ObjectStatusCancelled
	case s == model.StatusPending || s == model.StatusPendingConfirmation:
		return ical.ObjectStatusTentative
	}
	return ical.ObjectStatusConfirmed
}

func description(a model.Appointment) string {
	var parts []string
	if a.Kind != "" && a.Kind != model.KindJob {
		parts = append(parts, "Kind: "+a.Kind)
	}
	if a.Status != "" {
		parts = append(parts, "Status: "+a.Status)
	}
	if rule, err := recurrence.Parse(a.Recurrence); a.Recurrence != "" && err == nil {
		parts = append(parts, rule.Describe())
	}
	if a.Notes != "" {
		parts = append(parts, a.Notes)
	}
	return strings.Join(parts, "\n")
}
