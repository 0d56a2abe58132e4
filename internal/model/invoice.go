package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	InvoiceDraft = "draft"
	InvoiceSent  = "sent"
	InvoicePaid  = "paid"
	InvoiceVoid  = "void"
)

type Invoice struct {
	ID        int64      `json:"id"`
	UserID    int64      `json:"user_id"`
	Number    string     `json:"number"`
	ClientID  int64      `json:"client_id"`
	JobFileID *int64     `json:"job_file_id"`
	IssueDate string     `json:"issue_date"`
	DueDate   string     `json:"due_date"`
	Status    string     `json:"status"`
	Notes     string     `json:"notes"`
	Items     []LineItem `json:"items"`
	PaidAt    *time.Time `json:"paid_at"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

type LineItem struct {
	ID          int64           `json:"id"`
	InvoiceID   int64           `json:"invoice_id"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	SortOrder   int             `json:"sort_order"`
}

// Amount is quantity times unit price, rounded to cents.
func (li LineItem) Amount() decimal.Decimal {
	return li.Quantity.Mul(li.UnitPrice).Round(2)
}

// Total sums the line item amounts.
func (inv Invoice) Total() decimal.Decimal {
	total := decimal.Zero
	for _, li := range inv.Items {
		total = total.Add(li.Amount())
	}
	return total
}

// Overdue reports whether an unpaid, sent invoice is past its due date on day.
func (inv Invoice) Overdue(day string) bool {
	return inv.Status == InvoiceSent && inv.DueDate != "" && inv.DueDate < day
}
