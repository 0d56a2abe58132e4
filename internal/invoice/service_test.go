package invoice

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/ten99/ten99/internal/database"
	"github.com/ten99/ten99/internal/model"
	"github.com/ten99/ten99/internal/numbering"
	"github.com/ten99/ten99/internal/store"
)

type fakeMailer struct {
	configured bool
	err        error
	sent       []string
}

func (m *fakeMailer) Configured() bool { return m.configured }

func (m *fakeMailer) SendInvoice(to, fromName, clientName string, inv model.Invoice) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, to+" "+inv.Number)
	return nil
}

type fixture struct {
	svc    *Service
	mailer *fakeMailer
	owner  int64
	client *model.Client
}

func setup(t *testing.T) fixture {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	users := store.NewUserStore(db)
	u, err := users.Create("pat@example.com", "Pat's Tiling", "password123")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	clients := store.NewClientStore(db)
	c, err := clients.Create(model.Client{UserID: u.ID, Name: "Acme", Email: "ap@acme.example"})
	if err != nil {
		t.Fatalf("create client: %v", err)
	}

	mailer := &fakeMailer{configured: true}
	clock := func() time.Time { return time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC) }
	numbers := numbering.New(store.NewCounterStore(db), numbering.DomainInvoice, numbering.WithClock(clock))
	svc := NewService(store.NewInvoiceStore(db), clients, users, numbers, mailer, nil)
	svc.now = clock
	return fixture{svc: svc, mailer: mailer, owner: u.ID, client: c}
}

func item(desc, qty, price string) model.LineItem {
	return model.LineItem{Description: desc, Quantity: decimal.RequireFromString(qty), UnitPrice: decimal.RequireFromString(price)}
}

func TestCreateAssignsSequentialNumbers(t *testing.T) {
	f := setup(t)

	first, err := f.svc.Create(f.owner, model.Invoice{ClientID: f.client.ID, Items: []model.LineItem{item("Labor", "2", "75")}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	second, err := f.svc.Create(f.owner, model.Invoice{ClientID: f.client.ID})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if first.Number != "2025-001" || second.Number != "2025-002" {
		t.Errorf("numbers = %s, %s", first.Number, second.Number)
	}
	if first.IssueDate != "2025-03-01" || first.DueDate != "2025-03-31" {
		t.Errorf("dates = %s / %s", first.IssueDate, first.DueDate)
	}
	if first.Status != model.InvoiceDraft {
		t.Errorf("status = %q", first.Status)
	}
	if !first.Total().Equal(decimal.NewFromInt(150)) {
		t.Errorf("total = %s, want 150", first.Total())
	}
}

func TestCreateValidation(t *testing.T) {
	f := setup(t)

	tests := []struct {
		name string
		inv  model.Invoice
	}{
		{"unknown client", model.Invoice{ClientID: 999}},
		{"bad issue date", model.Invoice{ClientID: f.client.ID, IssueDate: "March 1"}},
		{"due before issue", model.Invoice{ClientID: f.client.ID, IssueDate: "2025-03-10", DueDate: "2025-03-01"}},
		{"blank description", model.Invoice{ClientID: f.client.ID, Items: []model.LineItem{item(" ", "1", "10")}}},
		{"zero quantity", model.Invoice{ClientID: f.client.ID, Items: []model.LineItem{item("Labor", "0", "10")}}},
		{"negative price", model.Invoice{ClientID: f.client.ID, Items: []model.LineItem{item("Labor", "1", "-10")}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.svc.Create(f.owner, tt.inv); !errors.Is(err, ErrInvalid) {
				t.Errorf("err = %v, want ErrInvalid", err)
			}
		})
	}

	// Rejected invoices do not consume numbers.
	inv, err := f.svc.Create(f.owner, model.Invoice{ClientID: f.client.ID})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if inv.Number != "2025-001" {
		t.Errorf("number = %s, want 2025-001", inv.Number)
	}
}

func TestMarkSentEmailsClient(t *testing.T) {
	f := setup(t)
	inv, _ := f.svc.Create(f.owner, model.Invoice{ClientID: f.client.ID})

	sent, emailed, err := f.svc.MarkSent(f.owner, inv.ID)
	if err != nil {
		t.Fatalf("mark sent: %v", err)
	}
	if !emailed || len(f.mailer.sent) != 1 || f.mailer.sent[0] != "ap@acme.example 2025-001" {
		t.Errorf("emailed = %v, sent = %v", emailed, f.mailer.sent)
	}
	if sent.Status != model.InvoiceSent {
		t.Errorf("status = %q", sent.Status)
	}
}

func TestMarkSentEmailFailureKeepsDraft(t *testing.T) {
	f := setup(t)
	f.mailer.err = errors.New("postmark down")
	inv, _ := f.svc.Create(f.owner, model.Invoice{ClientID: f.client.ID})

	if _, _, err := f.svc.MarkSent(f.owner, inv.ID); err == nil {
		t.Fatal("expected send error")
	}
	got, _ := f.svc.Get(f.owner, inv.ID)
	if got.Status != model.InvoiceDraft {
		t.Errorf("status = %q, want draft", got.Status)
	}
}

func TestMarkSentWithoutMailer(t *testing.T) {
	f := setup(t)
	f.mailer.configured = false
	inv, _ := f.svc.Create(f.owner, model.Invoice{ClientID: f.client.ID})

	sent, emailed, err := f.svc.MarkSent(f.owner, inv.ID)
	if err != nil {
		t.Fatalf("mark sent: %v", err)
	}
	if emailed {
		t.Error("expected no email when mailer is unconfigured")
	}
	if sent.Status != model.InvoiceSent {
		t.Errorf("status = %q", sent.Status)
	}
}

func TestPaidAndVoidTransitions(t *testing.T) {
	f := setup(t)
	inv, _ := f.svc.Create(f.owner, model.Invoice{ClientID: f.client.ID})

	paid, err := f.svc.MarkPaid(f.owner, inv.ID)
	if err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	if paid.Status != model.InvoicePaid || paid.PaidAt == nil {
		t.Errorf("paid = %+v", paid)
	}

	if _, err := f.svc.Void(f.owner, inv.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("void paid: err = %v, want ErrInvalidTransition", err)
	}
	if _, _, err := f.svc.MarkSent(f.owner, inv.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("send paid: err = %v, want ErrInvalidTransition", err)
	}

	other, _ := f.svc.Create(f.owner, model.Invoice{ClientID: f.client.ID})
	voided, err := f.svc.Void(f.owner, other.ID)
	if err != nil {
		t.Fatalf("void: %v", err)
	}
	if voided.Status != model.InvoiceVoid {
		t.Errorf("status = %q", voided.Status)
	}
}

func TestDeleteDraftDoesNotReuseNumber(t *testing.T) {
	f := setup(t)
	inv, _ := f.svc.Create(f.owner, model.Invoice{ClientID: f.client.ID})

	ok, err := f.svc.Delete(f.owner, inv.ID)
	if err != nil || !ok {
		t.Fatalf("delete = %v, %v", ok, err)
	}

	next, _ := f.svc.Create(f.owner, model.Invoice{ClientID: f.client.ID})
	if next.Number != "2025-002" {
		t.Errorf("number = %s, want 2025-002", next.Number)
	}

	f.svc.MarkSent(f.owner, next.ID)
	if _, err := f.svc.Delete(f.owner, next.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("err = %v, want ErrInvalidTransition", err)
	}
}

func TestFailedInsertLeavesNumberGap(t *testing.T) {
	f := setup(t)
	missing := int64(9999)

	if _, err := f.svc.Create(f.owner, model.Invoice{ClientID: f.client.ID, JobFileID: &missing}); err == nil {
		t.Fatal("expected insert to fail for unknown job file")
	}

	inv, err := f.svc.Create(f.owner, model.Invoice{ClientID: f.client.ID})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if inv.Number != "2025-002" {
		t.Errorf("number = %s, want 2025-002 after failed insert consumed 2025-001", inv.Number)
	}
}
