package store

import (
	"database/sql"
	"fmt"

	"github.com/ten99/ten99/internal/model"
)

type ExpenseStore struct {
	db *sql.DB
}

func NewExpenseStore(db *sql.DB) *ExpenseStore {
	return &ExpenseStore{db: db}
}

const expenseCols = `id, user_id, date, category, vendor, amount, notes, job_file_id, created_at, updated_at`

func scanExpense(row scanner) (*model.Expense, error) {
	var e model.Expense
	var jobFileID sql.NullInt64
	err := row.Scan(&e.ID, &e.UserID, &e.Date, &e.Category, &e.Vendor, &e.Amount, &e.Notes, &jobFileID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	e.JobFileID = int64Ptr(jobFileID)
	return &e, nil
}

func (s *ExpenseStore) Create(e model.Expense) (*model.Expense, error) {
	result, err := s.db.Exec(
		`INSERT INTO expenses (user_id, date, category, vendor, amount, notes, job_file_id) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.UserID, e.Date, e.Category, e.Vendor, e.Amount, e.Notes, nullInt64(e.JobFileID),
	)
	if err != nil {
		return nil, fmt.Errorf("insert expense: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(e.UserID, id)
}

func (s *ExpenseStore) GetByID(userID, id int64) (*model.Expense, error) {
	row := s.db.QueryRow(`SELECT `+expenseCols+` FROM expenses WHERE id = ? AND user_id = ?`, id, userID)
	e, err := scanExpense(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get expense: %w", err)
	}
	return e, nil
}

// ListByDateRange returns expenses dated within [start, end] inclusive.
func (s *ExpenseStore) ListByDateRange(userID int64, start, end string) ([]model.Expense, error) {
	rows, err := s.db.Query(
		`SELECT `+expenseCols+` FROM expenses WHERE user_id = ? AND date >= ? AND date <= ? ORDER BY date DESC, id DESC`,
		userID, start, end,
	)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()

	var expenses []model.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		expenses = append(expenses, *e)
	}
	return expenses, rows.Err()
}

func (s *ExpenseStore) Update(e model.Expense) (*model.Expense, error) {
	_, err := s.db.Exec(
		`UPDATE expenses SET date = ?, category = ?, vendor = ?, amount = ?, notes = ?, job_file_id = ? WHERE id = ? AND user_id = ?`,
		e.Date, e.Category, e.Vendor, e.Amount, e.Notes, nullInt64(e.JobFileID), e.ID, e.UserID,
	)
	if err != nil {
		return nil, fmt.Errorf("update expense: %w", err)
	}
	return s.GetByID(e.UserID, e.ID)
}

func (s *ExpenseStore) Delete(userID, id int64) error {
	if _, err := s.db.Exec(`DELETE FROM expenses WHERE id = ? AND user_id = ?`, id, userID); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	return nil
}

type MileageStore struct {
	db *sql.DB
}

func NewMileageStore(db *sql.DB) *MileageStore {
	return &MileageStore{db: db}
}

const mileageCols = `id, user_id, date, miles, purpose, appointment_id, created_at, updated_at`

func scanMileage(row scanner) (*model.MileageEntry, error) {
	var m model.MileageEntry
	var apptID sql.NullInt64
	err := row.Scan(&m.ID, &m.UserID, &m.Date, &m.Miles, &m.Purpose, &apptID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	m.AppointmentID = int64Ptr(apptID)
	return &m, nil
}

func (s *MileageStore) Create(m model.MileageEntry) (*model.MileageEntry, error) {
	result, err := s.db.Exec(
		`INSERT INTO mileage_entries (user_id, date, miles, purpose, appointment_id) VALUES (?, ?, ?, ?, ?)`,
		m.UserID, m.Date, m.Miles, m.Purpose, nullInt64(m.AppointmentID),
	)
	if err != nil {
		return nil, fmt.Errorf("insert mileage entry: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(m.UserID, id)
}

func (s *MileageStore) GetByID(userID, id int64) (*model.MileageEntry, error) {
	row := s.db.QueryRow(`SELECT `+mileageCols+` FROM mileage_entries WHERE id = ? AND user_id = ?`, id, userID)
	m, err := scanMileage(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get mileage entry: %w", err)
	}
	return m, nil
}

func (s *MileageStore) ListByDateRange(userID int64, start, end string) ([]model.MileageEntry, error) {
	rows, err := s.db.Query(
		`SELECT `+mileageCols+` FROM mileage_entries WHERE user_id = ? AND date >= ? AND date <= ? ORDER BY date DESC, id DESC`,
		userID, start, end,
	)
	if err != nil {
		return nil, fmt.Errorf("query mileage entries: %w", err)
	}
	defer rows.Close()

	var entries []model.MileageEntry
	for rows.Next() {
		m, err := scanMileage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan mileage entry: %w", err)
		}
		entries = append(entries, *m)
	}
	return entries, rows.Err()
}

func (s *MileageStore) Update(m model.MileageEntry) (*model.MileageEntry, error) {
	_, err := s.db.Exec(
		`UPDATE mileage_entries SET date = ?, miles = ?, purpose = ?, appointment_id = ? WHERE id = ? AND user_id = ?`,
		m.Date, m.Miles, m.Purpose, nullInt64(m.AppointmentID), m.ID, m.UserID,
	)
	if err != nil {
		return nil, fmt.Errorf("update mileage entry: %w", err)
	}
	return s.GetByID(m.UserID, m.ID)
}

func (s *MileageStore) Delete(userID, id int64) error {
	if _, err := s.db.Exec(`DELETE FROM mileage_entries WHERE id = ? AND user_id = ?`, id, userID); err != nil {
		return fmt.Errorf("delete mileage entry: %w", err)
	}
	return nil
}
