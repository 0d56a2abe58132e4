// Package invoice creates numbered invoices and moves them through their
// draft, sent, paid and void states.
package invoice

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ten99/ten99/internal/model"
)

var (
	ErrInvalid           = errors.New("invalid invoice")
	ErrInvalidTransition = errors.New("invalid invoice status change")
)

// DefaultTerms is the gap between issue and due date when no due date is given.
const DefaultTerms = 30 * 24 * time.Hour

type invoiceStore interface {
	Create(inv model.Invoice) (*model.Invoice, error)
	GetByID(userID, id int64) (*model.Invoice, error)
	List(userID int64, status string) ([]model.Invoice, error)
	SetStatus(userID, id int64, status string, paidAt time.Time) (*model.Invoice, error)
	DeleteDraft(userID, id int64) (bool, error)
}

type clientStore interface {
	GetByID(userID, id int64) (*model.Client, error)
}

type userStore interface {
	GetByID(id int64) (*model.User, error)
}

type numberer interface {
	Next(ownerID int64) (string, error)
}

type mailer interface {
	Configured() bool
	SendInvoice(toEmail, fromName, clientName string, inv model.Invoice) error
}

type Service struct {
	invoices invoiceStore
	clients  clientStore
	users    userStore
	numbers  numberer
	mailer   mailer
	loc      *time.Location
	now      func() time.Time
}

func NewService(invoices invoiceStore, clients clientStore, users userStore, numbers numberer, mailer mailer, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		invoices: invoices,
		clients:  clients,
		users:    users,
		numbers:  numbers,
		mailer:   mailer,
		loc:      loc,
		now:      time.Now,
	}
}

// Create validates inv, assigns the owner's next invoice number and stores
// it as a draft together with its line items.
func (s *Service) Create(ownerID int64, inv model.Invoice) (*model.Invoice, error) {
	client, err := s.clients.GetByID(ownerID, inv.ClientID)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, fmt.Errorf("%w: unknown client %d", ErrInvalid, inv.ClientID)
	}

	today := s.now().In(s.loc)
	if inv.IssueDate == "" {
		inv.IssueDate = today.Format(model.DateLayout)
	}
	issued, err := time.Parse(model.DateLayout, inv.IssueDate)
	if err != nil {
		return nil, fmt.Errorf("%w: issue date must be YYYY-MM-DD", ErrInvalid)
	}
	if inv.DueDate == "" {
		inv.DueDate = issued.Add(DefaultTerms).Format(model.DateLayout)
	} else if due, err := time.Parse(model.DateLayout, inv.DueDate); err != nil {
		return nil, fmt.Errorf("%w: due date must be YYYY-MM-DD", ErrInvalid)
	} else if due.Before(issued) {
		return nil, fmt.Errorf("%w: due date is before issue date", ErrInvalid)
	}

	for i := range inv.Items {
		li := &inv.Items[i]
		li.Description = strings.TrimSpace(li.Description)
		if li.Description == "" {
			return nil, fmt.Errorf("%w: item %d needs a description", ErrInvalid, i+1)
		}
		if !li.Quantity.IsPositive() {
			return nil, fmt.Errorf("%w: item %d quantity must be positive", ErrInvalid, i+1)
		}
		if li.UnitPrice.IsNegative() {
			return nil, fmt.Errorf("%w: item %d unit price is negative", ErrInvalid, i+1)
		}
	}

	number, err := s.numbers.Next(ownerID)
	if err != nil {
		return nil, err
	}

	inv.UserID = ownerID
	inv.Number = number
	inv.Status = model.InvoiceDraft
	inv.PaidAt = nil

	created, err := s.invoices.Create(inv)
	if err != nil {
		return nil, fmt.Errorf("create invoice %s: %w", number, err)
	}
	return created, nil
}

func (s *Service) Get(ownerID, id int64) (*model.Invoice, error) {
	return s.invoices.GetByID(ownerID, id)
}

func (s *Service) List(ownerID int64, status string) ([]model.Invoice, error) {
	return s.invoices.List(ownerID, status)
}

// MarkSent moves a draft to sent. When the client has an email address and
// the mailer is configured, the invoice is emailed first; a failed send
// leaves the status unchanged. Sending an already sent invoice resends it.
func (s *Service) MarkSent(ownerID, id int64) (*model.Invoice, bool, error) {
	inv, err := s.invoices.GetByID(ownerID, id)
	if err != nil || inv == nil {
		return nil, false, err
	}
	if inv.Status != model.InvoiceDraft && inv.Status != model.InvoiceSent {
		return nil, false, fmt.Errorf("%w: cannot send a %s invoice", ErrInvalidTransition, inv.Status)
	}

	emailed := false
	client, err := s.clients.GetByID(ownerID, inv.ClientID)
	if err != nil {
		return nil, false, err
	}
	if client != nil && client.Email != "" && s.mailer != nil && s.mailer.Configured() {
		owner, err := s.users.GetByID(ownerID)
		if err != nil {
			return nil, false, err
		}
		fromName := "Ten99"
		if owner != nil && owner.Name != "" {
			fromName = owner.Name
		}
		if err := s.mailer.SendInvoice(client.Email, fromName, client.Name, *inv); err != nil {
			return nil, false, fmt.Errorf("email invoice %s: %w", inv.Number, err)
		}
		emailed = true
	}

	if inv.Status == model.InvoiceSent {
		return inv, emailed, nil
	}
	updated, err := s.invoices.SetStatus(ownerID, id, model.InvoiceSent, time.Time{})
	return updated, emailed, err
}

// MarkPaid records payment of a draft or sent invoice.
func (s *Service) MarkPaid(ownerID, id int64) (*model.Invoice, error) {
	return s.transition(ownerID, id, model.InvoicePaid, model.InvoiceDraft, model.InvoiceSent)
}

// Void cancels an unpaid invoice. Its number stays used.
func (s *Service) Void(ownerID, id int64) (*model.Invoice, error) {
	return s.transition(ownerID, id, model.InvoiceVoid, model.InvoiceDraft, model.InvoiceSent)
}

func (s *Service) transition(ownerID, id int64, to string, from ...string) (*model.Invoice, error) {
	inv, err := s.invoices.GetByID(ownerID, id)
	if err != nil || inv == nil {
		return nil, err
	}
	allowed := false
	for _, f := range from {
		if inv.Status == f {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, inv.Status, to)
	}
	return s.invoices.SetStatus(ownerID, id, to, s.now().UTC())
}

// Delete removes a draft invoice. It reports false when no invoice exists;
// deleting a non-draft is an ErrInvalidTransition.
func (s *Service) Delete(ownerID, id int64) (bool, error) {
	inv, err := s.invoices.GetByID(ownerID, id)
	if err != nil || inv == nil {
		return false, err
	}
	if inv.Status != model.InvoiceDraft {
		return false, fmt.Errorf("%w: only drafts can be deleted", ErrInvalidTransition)
	}
	return s.invoices.DeleteDraft(ownerID, id)
}
