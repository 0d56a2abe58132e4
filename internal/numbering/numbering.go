// Package numbering issues human-readable, per-owner sequential document
// numbers of the form "2025-001". Sequences restart at 1 every calendar year.
package numbering

import (
	"fmt"
	"time"
)

// DomainInvoice is the counter domain for invoice numbers.
const DomainInvoice = "invoice"

type counterStore interface {
	Increment(userID int64, domain string, year int) (int, error)
	Set(userID int64, domain string, lastNumber, year int) error
}

type Service struct {
	counters counterStore
	domain   string
	now      func() time.Time
}

type Option func(*Service)

// WithLocation sets the time zone that decides which year a number belongs to.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		s.now = func() time.Time { return time.Now().In(loc) }
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// New returns a Service issuing numbers from the domain counter. Years are
// taken from the current UTC time unless an option says otherwise.
func New(counters counterStore, domain string, opts ...Option) *Service {
	s := &Service{
		counters: counters,
		domain:   domain,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Next reserves the owner's next number. Concurrent callers for the same
// owner always receive distinct numbers. Numbers are never reused, even if
// the document they were issued for is discarded.
func (s *Service) Next(ownerID int64) (string, error) {
	year := s.now().Year()
	n, err := s.counters.Increment(ownerID, s.domain, year)
	if err != nil {
		return "", fmt.Errorf("next %s number: %w", s.domain, err)
	}
	return Format(year, n), nil
}

// Seed positions the owner's sequence for the current year so the next
// number issued is lastNumber+1. It is used when an owner moves over from
// another invoicing tool mid-year.
func (s *Service) Seed(ownerID int64, lastNumber int) error {
	if lastNumber < 0 {
		return fmt.Errorf("seed %s counter: last number %d is negative", s.domain, lastNumber)
	}
	if err := s.counters.Set(ownerID, s.domain, lastNumber, s.now().Year()); err != nil {
		return fmt.Errorf("seed %s counter: %w", s.domain, err)
	}
	return nil
}

// Format renders a document number, zero-padding the sequence to three
// digits. Sequences beyond 999 widen naturally.
func Format(year, n int) string {
	return fmt.Sprintf("%d-%03d", year, n)
}
