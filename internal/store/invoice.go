package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ten99/ten99/internal/model"
)

type InvoiceStore struct {
	db *sql.DB
}

func NewInvoiceStore(db *sql.DB) *InvoiceStore {
	return &InvoiceStore{db: db}
}

const invoiceCols = `id, user_id, number, client_id, job_file_id, issue_date, due_date, status, notes, paid_at, created_at, updated_at`

func scanInvoice(row scanner) (*model.Invoice, error) {
	var inv model.Invoice
	var jobFileID sql.NullInt64
	var paidAt sql.NullTime
	err := row.Scan(
		&inv.ID, &inv.UserID, &inv.Number, &inv.ClientID, &jobFileID, &inv.IssueDate, &inv.DueDate,
		&inv.Status, &inv.Notes, &paidAt, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	inv.JobFileID = int64Ptr(jobFileID)
	if paidAt.Valid {
		inv.PaidAt = &paidAt.Time
	}
	return &inv, nil
}

// Create inserts the invoice and its line items in one transaction. The
// invoice number must already be assigned.
func (s *InvoiceStore) Create(inv model.Invoice) (*model.Invoice, error) {
	if inv.Status == "" {
		inv.Status = model.InvoiceDraft
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`INSERT INTO invoices (user_id, number, client_id, job_file_id, issue_date, due_date, status, notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.UserID, inv.Number, inv.ClientID, nullInt64(inv.JobFileID), inv.IssueDate, inv.DueDate, inv.Status, inv.Notes,
	)
	if err != nil {
		return nil, fmt.Errorf("insert invoice: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	for i, li := range inv.Items {
		if _, err := tx.Exec(
			`INSERT INTO invoice_items (invoice_id, description, quantity, unit_price, sort_order) VALUES (?, ?, ?, ?, ?)`,
			id, li.Description, li.Quantity, li.UnitPrice, i,
		); err != nil {
			return nil, fmt.Errorf("insert invoice item %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit invoice: %w", err)
	}
	return s.GetByID(inv.UserID, id)
}

func (s *InvoiceStore) GetByID(userID, id int64) (*model.Invoice, error) {
	row := s.db.QueryRow(`SELECT `+invoiceCols+` FROM invoices WHERE id = ? AND user_id = ?`, id, userID)
	inv, err := scanInvoice(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get invoice: %w", err)
	}

	items, err := s.items(inv.ID)
	if err != nil {
		return nil, err
	}
	inv.Items = items
	return inv, nil
}

// List returns the owner's invoices, newest first. An empty status lists all.
func (s *InvoiceStore) List(userID int64, status string) ([]model.Invoice, error) {
	query := `SELECT ` + invoiceCols + ` FROM invoices WHERE user_id = ?`
	args := []any{userID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY issue_date DESC, id DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query invoices: %w", err)
	}

	var invoices []model.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		invoices = append(invoices, *inv)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate invoices: %w", err)
	}
	rows.Close()

	// Items are loaded after the invoice rows are closed; the pool has a
	// single connection.
	for i := range invoices {
		items, err := s.items(invoices[i].ID)
		if err != nil {
			return nil, err
		}
		invoices[i].Items = items
	}
	return invoices, nil
}

func (s *InvoiceStore) items(invoiceID int64) ([]model.LineItem, error) {
	rows, err := s.db.Query(
		`SELECT id, invoice_id, description, quantity, unit_price, sort_order
		 FROM invoice_items WHERE invoice_id = ? ORDER BY sort_order, id`,
		invoiceID,
	)
	if err != nil {
		return nil, fmt.Errorf("query invoice items: %w", err)
	}
	defer rows.Close()

	items := []model.LineItem{}
	for rows.Next() {
		var li model.LineItem
		if err := rows.Scan(&li.ID, &li.InvoiceID, &li.Description, &li.Quantity, &li.UnitPrice, &li.SortOrder); err != nil {
			return nil, fmt.Errorf("scan invoice item: %w", err)
		}
		items = append(items, li)
	}
	return items, rows.Err()
}

// SetStatus moves an invoice to status. Marking an invoice paid records
// paidAt; any other status clears it.
func (s *InvoiceStore) SetStatus(userID, id int64, status string, paidAt time.Time) (*model.Invoice, error) {
	var paid sql.NullString
	if status == model.InvoicePaid {
		paid = sql.NullString{String: paidAt.UTC().Format(sqliteTimeLayout), Valid: true}
	}
	_, err := s.db.Exec(
		`UPDATE invoices SET status = ?, paid_at = ? WHERE id = ? AND user_id = ?`,
		status, paid, id, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("set invoice status: %w", err)
	}
	return s.GetByID(userID, id)
}

// DeleteDraft removes a draft invoice. It reports false when the invoice is
// missing or no longer a draft.
func (s *InvoiceStore) DeleteDraft(userID, id int64) (bool, error) {
	result, err := s.db.Exec(`DELETE FROM invoices WHERE id = ? AND user_id = ? AND status = 'draft'`, id, userID)
	if err != nil {
		return false, fmt.Errorf("delete invoice: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}
