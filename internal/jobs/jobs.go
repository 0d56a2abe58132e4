// Package jobs runs background maintenance on a cron schedule: expired
// session cleanup and next-day appointment reminders.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ten99/ten99/internal/model"
)

const (
	DefaultReminderSpec = "0 7 * * *"
	sessionCleanupSpec  = "@hourly"
)

type sessionCleaner interface {
	DeleteExpired() (int64, error)
}

type appointmentLister interface {
	ListOnDate(date string, statuses ...string) ([]model.Appointment, error)
}

type userGetter interface {
	GetByID(id int64) (*model.User, error)
}

type reminderSender interface {
	Configured() bool
	SendReminder(toEmail string, a model.Appointment) error
}

type Config struct {
	ReminderSpec     string
	RemindersEnabled bool
	Location         *time.Location
}

type Scheduler struct {
	cron         *cron.Cron
	sessions     sessionCleaner
	appointments appointmentLister
	users        userGetter
	mailer       reminderSender
	loc          *time.Location
	logger       *slog.Logger
	now          func() time.Time
}

// NewScheduler registers the jobs without starting them.
func NewScheduler(cfg Config, sessions sessionCleaner, appointments appointmentLister, users userGetter, mailer reminderSender, logger *slog.Logger) (*Scheduler, error) {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	s := &Scheduler{
		cron:         cron.New(cron.WithLocation(loc)),
		sessions:     sessions,
		appointments: appointments,
		users:        users,
		mailer:       mailer,
		loc:          loc,
		logger:       logger.With("component", "jobs"),
		now:          time.Now,
	}

	if _, err := s.cron.AddFunc(sessionCleanupSpec, s.runSessionCleanup); err != nil {
		return nil, fmt.Errorf("schedule session cleanup: %w", err)
	}

	if cfg.RemindersEnabled {
		spec := cfg.ReminderSpec
		if spec == "" {
			spec = DefaultReminderSpec
		}
		if _, err := s.cron.AddFunc(spec, s.runReminders); err != nil {
			return nil, fmt.Errorf("schedule reminders %q: %w", spec, err)
		}
	}
	return s, nil
}

// AddFunc registers an extra job on the scheduler's cron.
func (s *Scheduler) AddFunc(spec string, fn func()) error {
	if _, err := s.cron.AddFunc(spec, fn); err != nil {
		return fmt.Errorf("schedule %q: %w", spec, err)
	}
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop waits for running jobs to finish or for ctx to end.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

func (s *Scheduler) runSessionCleanup() {
	n, err := s.CleanupSessions()
	if err != nil {
		s.logger.Error("session cleanup failed", "error", err)
		return
	}
	if n > 0 {
		s.logger.Info("expired sessions removed", "count", n)
	}
}

func (s *Scheduler) runReminders() {
	sent, err := s.SendReminders()
	if err != nil {
		s.logger.Error("reminders failed", "error", err, "sent", sent)
		return
	}
	s.logger.Info("reminders sent", "count", sent)
}

func (s *Scheduler) CleanupSessions() (int64, error) {
	return s.sessions.DeleteExpired()
}

// SendReminders emails each owner about their scheduled or pending
// appointments dated tomorrow. A failed send is logged and skipped.
func (s *Scheduler) SendReminders() (int, error) {
	if !s.mailer.Configured() {
		return 0, nil
	}

	tomorrow := s.now().In(s.loc).AddDate(0, 0, 1).Format(model.DateLayout)
	appts, err := s.appointments.ListOnDate(tomorrow, model.StatusScheduled, model.StatusPending)
	if err != nil {
		return 0, fmt.Errorf("list appointments for %s: %w", tomorrow, err)
	}

	owners := make(map[int64]*model.User)
	sent := 0
	for _, a := range appts {
		owner, ok := owners[a.UserID]
		if !ok {
			owner, err = s.users.GetByID(a.UserID)
			if err != nil {
				return sent, fmt.Errorf("get owner %d: %w", a.UserID, err)
			}
			owners[a.UserID] = owner
		}
		if owner == nil || owner.Email == "" {
			continue
		}
		if err := s.mailer.SendReminder(owner.Email, a); err != nil {
			s.logger.Warn("reminder not sent", "appointment_id", a.ID, "error", err)
			continue
		}
		sent++
	}
	return sent, nil
}
