// Package dashboard folds an owner's appointments, invoices, expenses and
// mileage into the summary shown on the home screen.
package dashboard

import (
	"fmt"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/ten99/ten99/internal/finance"
	"github.com/ten99/ten99/internal/model"
)

// UpcomingDays is how far past today the upcoming list reaches.
const UpcomingDays = 7

type appointmentLister interface {
	ListByDateRange(userID int64, start, end string) ([]model.Appointment, error)
}

type invoiceLister interface {
	List(userID int64, status string) ([]model.Invoice, error)
}

type expenseLister interface {
	ListByDateRange(userID int64, start, end string) ([]model.Expense, error)
}

type mileageLister interface {
	ListByDateRange(userID int64, start, end string) ([]model.MileageEntry, error)
}

type Summary struct {
	Date                string              `json:"date"`
	Today               []model.Appointment `json:"today"`
	Upcoming            []model.Appointment `json:"upcoming"`
	PendingConfirmation int                 `json:"pending_confirmation"`
	Outstanding         decimal.Decimal     `json:"outstanding"`
	OverdueCount        int                 `json:"overdue_count"`
	PaidYTD             decimal.Decimal     `json:"paid_ytd"`
	ExpensesYTD         decimal.Decimal     `json:"expenses_ytd"`
	MilesYTD            decimal.Decimal     `json:"miles_ytd"`
	Estimate            finance.Estimate    `json:"estimate"`
}

type Builder struct {
	appointments appointmentLister
	invoices     invoiceLister
	expenses     expenseLister
	mileage      mileageLister
	rates        finance.Rates
	loc          *time.Location
}

func NewBuilder(appointments appointmentLister, invoices invoiceLister, expenses expenseLister, mileage mileageLister, rates finance.Rates, loc *time.Location) *Builder {
	if loc == nil {
		loc = time.UTC
	}
	return &Builder{
		appointments: appointments,
		invoices:     invoices,
		expenses:     expenses,
		mileage:      mileage,
		rates:        rates,
		loc:          loc,
	}
}

// Build summarizes ownerID's business as of now. Year-to-date figures run
// from January 1 of now's year in the builder's time zone.
func (b *Builder) Build(ownerID int64, now time.Time) (*Summary, error) {
	now = now.In(b.loc)
	today := now.Format(model.DateLayout)
	weekEnd := now.AddDate(0, 0, UpcomingDays).Format(model.DateLayout)
	yearStart := fmt.Sprintf("%04d-01-01", now.Year())
	yearEnd := fmt.Sprintf("%04d-12-31", now.Year())

	appts, err := b.appointments.ListByDateRange(ownerID, today, weekEnd)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	invoices, err := b.invoices.List(ownerID, "")
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	expenses, err := b.expenses.ListByDateRange(ownerID, yearStart, yearEnd)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	trips, err := b.mileage.ListByDateRange(ownerID, yearStart, yearEnd)
	if err != nil {
		return nil, fmt.Errorf("list mileage: %w", err)
	}

	active := lo.Filter(appts, func(a model.Appointment, _ int) bool {
		return !model.IsCanceledStatus(a.Status)
	})
	todays := lo.Filter(active, func(a model.Appointment, _ int) bool {
		return a.Date == today
	})
	upcoming := lo.Filter(active, func(a model.Appointment, _ int) bool {
		return a.Date > today
	})

	sent := lo.Filter(invoices, func(inv model.Invoice, _ int) bool {
		return inv.Status == model.InvoiceSent
	})
	paidThisYear := lo.Filter(invoices, func(inv model.Invoice, _ int) bool {
		return inv.Status == model.InvoicePaid && inv.PaidAt != nil && inv.PaidAt.In(b.loc).Year() == now.Year()
	})

	s := &Summary{
		Date:     today,
		Today:    todays,
		Upcoming: upcoming,
		PendingConfirmation: lo.CountBy(active, func(a model.Appointment) bool {
			return a.Status == model.StatusPendingConfirmation
		}),
		Outstanding: sumInvoices(sent),
		OverdueCount: lo.CountBy(sent, func(inv model.Invoice) bool {
			return inv.Overdue(today)
		}),
		PaidYTD: sumInvoices(paidThisYear),
		ExpensesYTD: lo.Reduce(expenses, func(sum decimal.Decimal, e model.Expense, _ int) decimal.Decimal {
			return sum.Add(e.Amount)
		}, decimal.Zero),
		MilesYTD: lo.Reduce(trips, func(sum decimal.Decimal, m model.MileageEntry, _ int) decimal.Decimal {
			return sum.Add(m.Miles)
		}, decimal.Zero),
	}
	s.Estimate = b.rates.Estimate(s.PaidYTD, s.ExpensesYTD, s.MilesYTD)
	return s, nil
}

func sumInvoices(invoices []model.Invoice) decimal.Decimal {
	return lo.Reduce(invoices, func(sum decimal.Decimal, inv model.Invoice, _ int) decimal.Decimal {
		return sum.Add(inv.Total())
	}, decimal.Zero)
}
