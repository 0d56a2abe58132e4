package store

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/ten99/ten99/internal/model"
)

func TestInvoiceCreateWithItems(t *testing.T) {
	db := setupDB(t)
	is := NewInvoiceStore(db)
	u := createTestUser(t, db, "alice@example.com")
	c, _ := NewClientStore(db).Create(model.Client{UserID: u.ID, Name: "Acme"})

	inv, err := is.Create(model.Invoice{
		UserID:    u.ID,
		Number:    "2025-001",
		ClientID:  c.ID,
		IssueDate: "2025-03-01",
		DueDate:   "2025-03-31",
		Items: []model.LineItem{
			{Description: "Labor", Quantity: decimal.RequireFromString("3.5"), UnitPrice: decimal.RequireFromString("80")},
			{Description: "Materials", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.RequireFromString("124.99")},
		},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if inv.Status != model.InvoiceDraft {
		t.Errorf("status = %q, want draft", inv.Status)
	}
	if len(inv.Items) != 2 || inv.Items[0].Description != "Labor" {
		t.Fatalf("items = %+v", inv.Items)
	}
	if want := decimal.RequireFromString("404.99"); !inv.Total().Equal(want) {
		t.Errorf("total = %s, want %s", inv.Total(), want)
	}
}

func TestInvoiceNumberUniquePerOwner(t *testing.T) {
	db := setupDB(t)
	is := NewInvoiceStore(db)
	u := createTestUser(t, db, "alice@example.com")
	c, _ := NewClientStore(db).Create(model.Client{UserID: u.ID, Name: "Acme"})

	inv := model.Invoice{UserID: u.ID, Number: "2025-001", ClientID: c.ID, IssueDate: "2025-03-01"}
	if _, err := is.Create(inv); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := is.Create(inv); err == nil {
		t.Fatal("expected duplicate number to be rejected")
	}
}

func TestInvoiceStatusAndList(t *testing.T) {
	db := setupDB(t)
	is := NewInvoiceStore(db)
	u := createTestUser(t, db, "alice@example.com")
	c, _ := NewClientStore(db).Create(model.Client{UserID: u.ID, Name: "Acme"})

	first, _ := is.Create(model.Invoice{UserID: u.ID, Number: "2025-001", ClientID: c.ID, IssueDate: "2025-03-01",
		Items: []model.LineItem{{Description: "Labor", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(50)}}})
	second, _ := is.Create(model.Invoice{UserID: u.ID, Number: "2025-002", ClientID: c.ID, IssueDate: "2025-03-02"})

	paidAt := time.Date(2025, 3, 20, 15, 0, 0, 0, time.UTC)
	paid, err := is.SetStatus(u.ID, first.ID, model.InvoicePaid, paidAt)
	if err != nil {
		t.Fatalf("set status: %v", err)
	}
	if paid.Status != model.InvoicePaid || paid.PaidAt == nil || !paid.PaidAt.Equal(paidAt) {
		t.Errorf("paid = %+v", paid)
	}

	all, err := is.List(u.ID, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 || all[0].ID != second.ID {
		t.Fatalf("list = %+v", all)
	}
	if len(all[1].Items) != 1 {
		t.Errorf("items on listed invoice = %d, want 1", len(all[1].Items))
	}

	drafts, _ := is.List(u.ID, model.InvoiceDraft)
	if len(drafts) != 1 || drafts[0].ID != second.ID {
		t.Errorf("drafts = %+v", drafts)
	}
}

func TestInvoiceDeleteDraftOnly(t *testing.T) {
	db := setupDB(t)
	is := NewInvoiceStore(db)
	u := createTestUser(t, db, "alice@example.com")
	c, _ := NewClientStore(db).Create(model.Client{UserID: u.ID, Name: "Acme"})

	draft, _ := is.Create(model.Invoice{UserID: u.ID, Number: "2025-001", ClientID: c.ID, IssueDate: "2025-03-01"})
	sent, _ := is.Create(model.Invoice{UserID: u.ID, Number: "2025-002", ClientID: c.ID, IssueDate: "2025-03-01", Status: model.InvoiceSent})

	ok, err := is.DeleteDraft(u.ID, sent.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if ok {
		t.Error("expected sent invoice to be kept")
	}

	ok, err = is.DeleteDraft(u.ID, draft.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !ok {
		t.Error("expected draft to be deleted")
	}
}

func TestExpenseAndMileage(t *testing.T) {
	db := setupDB(t)
	es := NewExpenseStore(db)
	ms := NewMileageStore(db)
	u := createTestUser(t, db, "alice@example.com")

	for _, d := range []string{"2024-12-31", "2025-01-15", "2025-02-01"} {
		if _, err := es.Create(model.Expense{UserID: u.ID, Date: d, Category: "supplies", Amount: decimal.RequireFromString("19.99")}); err != nil {
			t.Fatalf("create expense: %v", err)
		}
	}
	expenses, err := es.ListByDateRange(u.ID, "2025-01-01", "2025-12-31")
	if err != nil {
		t.Fatalf("list expenses: %v", err)
	}
	if len(expenses) != 2 {
		t.Fatalf("expenses = %d, want 2", len(expenses))
	}
	if !expenses[0].Amount.Equal(decimal.RequireFromString("19.99")) {
		t.Errorf("amount = %s", expenses[0].Amount)
	}

	e := expenses[0]
	e.Vendor = "Hardware Hut"
	updated, err := es.Update(e)
	if err != nil {
		t.Fatalf("update expense: %v", err)
	}
	if updated.Vendor != "Hardware Hut" {
		t.Errorf("vendor = %q", updated.Vendor)
	}

	m, err := ms.Create(model.MileageEntry{UserID: u.ID, Date: "2025-01-10", Miles: decimal.RequireFromString("42.3"), Purpose: "Site visit"})
	if err != nil {
		t.Fatalf("create mileage: %v", err)
	}
	if !m.Miles.Equal(decimal.RequireFromString("42.3")) {
		t.Errorf("miles = %s", m.Miles)
	}
	if err := ms.Delete(u.ID, m.ID); err != nil {
		t.Fatalf("delete mileage: %v", err)
	}
	entries, _ := ms.ListByDateRange(u.ID, "2025-01-01", "2025-12-31")
	if len(entries) != 0 {
		t.Errorf("entries = %d, want 0", len(entries))
	}
}
