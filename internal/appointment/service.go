// Package appointment schedules appointments, expanding recurring requests
// into a series of individually stored occurrences.
package appointment

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ten99/ten99/internal/model"
	"github.com/ten99/ten99/internal/recurrence"
)

// ErrInvalid wraps every template validation failure.
var ErrInvalid = errors.New("invalid appointment")

type appointmentStore interface {
	Create(a model.Appointment) (*model.Appointment, error)
	CreateBatch(appts []model.Appointment) ([]model.Appointment, error)
	GetByID(userID, id int64) (*model.Appointment, error)
	ListByDateRange(userID int64, start, end string) ([]model.Appointment, error)
	ListBySeries(userID int64, seriesID string) ([]model.Appointment, error)
	Update(a model.Appointment) (*model.Appointment, error)
	SetStatus(userID, id int64, status string) (*model.Appointment, error)
	Delete(userID, id int64) error
	DeleteSeries(userID int64, seriesID string) (int64, error)
}

type Service struct {
	store appointmentStore
	newID func() string
}

func NewService(store appointmentStore) *Service {
	return &Service{store: store, newID: uuid.NewString}
}

// Schedule stores tmpl for ownerID. With the zero rule exactly one
// appointment is created and it carries no series id. Otherwise one
// appointment is created per occurrence date from tmpl.Date through endDate
// inclusive, all sharing a fresh series id, in a single all-or-nothing write.
func (s *Service) Schedule(ownerID int64, tmpl model.Appointment, rule recurrence.Rule, endDate string) ([]model.Appointment, error) {
	tmpl.UserID = ownerID
	tmpl.Recurrence = ""
	tmpl.SeriesID = ""
	if err := normalize(&tmpl); err != nil {
		return nil, err
	}

	if rule.IsZero() {
		a, err := s.store.Create(tmpl)
		if err != nil {
			return nil, fmt.Errorf("schedule appointment: %w", err)
		}
		return []model.Appointment{*a}, nil
	}

	if endDate == "" {
		return nil, fmt.Errorf("%w: end date is required for recurring appointments", ErrInvalid)
	}
	start, _ := time.Parse(model.DateLayout, tmpl.Date)
	end, err := time.Parse(model.DateLayout, endDate)
	if err != nil {
		return nil, fmt.Errorf("%w: end date must be YYYY-MM-DD", ErrInvalid)
	}

	dates, err := rule.Dates(start, end)
	if err != nil {
		return nil, err
	}

	seriesID := s.newID()
	batch := make([]model.Appointment, len(dates))
	for i, d := range dates {
		occ := tmpl
		occ.Date = d.Format(model.DateLayout)
		occ.Recurrence = rule.String()
		occ.SeriesID = seriesID
		batch[i] = occ
	}

	created, err := s.store.CreateBatch(batch)
	if err != nil {
		return nil, fmt.Errorf("schedule %s series: %w", rule, err)
	}
	return created, nil
}

func normalize(a *model.Appointment) error {
	a.Subject = strings.TrimSpace(a.Subject)
	if a.Subject == "" {
		return fmt.Errorf("%w: subject is required", ErrInvalid)
	}
	if a.Kind == "" {
		a.Kind = model.KindJob
	}
	if !model.ValidKind(a.Kind) {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalid, a.Kind)
	}
	if a.Status == "" {
		a.Status = model.StatusScheduled
	}
	if !model.ValidStatus(a.Status) {
		return fmt.Errorf("%w: unknown status %q", ErrInvalid, a.Status)
	}
	if _, err := time.Parse(model.DateLayout, a.Date); err != nil {
		return fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalid)
	}
	start, err := time.Parse(model.TimeLayout, a.StartTime)
	if err != nil {
		return fmt.Errorf("%w: start time must be HH:MM", ErrInvalid)
	}
	if a.EndTime != "" {
		end, err := time.Parse(model.TimeLayout, a.EndTime)
		if err != nil {
			return fmt.Errorf("%w: end time must be HH:MM", ErrInvalid)
		}
		if !end.After(start) {
			return fmt.Errorf("%w: end time must be after start time", ErrInvalid)
		}
	}
	return nil
}

func (s *Service) Get(ownerID, id int64) (*model.Appointment, error) {
	return s.store.GetByID(ownerID, id)
}

func (s *Service) List(ownerID int64, start, end string) ([]model.Appointment, error) {
	return s.store.ListByDateRange(ownerID, start, end)
}

func (s *Service) ListSeries(ownerID int64, seriesID string) ([]model.Appointment, error) {
	return s.store.ListBySeries(ownerID, seriesID)
}

// Update replaces the editable fields of one appointment. Recurrence and
// series membership are fixed at creation and are left untouched. It returns
// nil when the appointment does not exist.
func (s *Service) Update(ownerID int64, a model.Appointment) (*model.Appointment, error) {
	existing, err := s.store.GetByID(ownerID, a.ID)
	if err != nil || existing == nil {
		return nil, err
	}
	a.UserID = ownerID
	a.Recurrence = existing.Recurrence
	a.SeriesID = existing.SeriesID
	if err := normalize(&a); err != nil {
		return nil, err
	}
	return s.store.Update(a)
}

func (s *Service) SetStatus(ownerID, id int64, status string) (*model.Appointment, error) {
	if !model.ValidStatus(status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalid, status)
	}
	return s.store.SetStatus(ownerID, id, status)
}

// Delete removes a single appointment. Other members of its series are kept.
func (s *Service) Delete(ownerID, id int64) error {
	return s.store.Delete(ownerID, id)
}

func (s *Service) DeleteSeries(ownerID int64, seriesID string) (int64, error) {
	return s.store.DeleteSeries(ownerID, seriesID)
}
