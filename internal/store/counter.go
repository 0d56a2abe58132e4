package store

import (
	"database/sql"
	"fmt"

	"github.com/ten99/ten99/internal/model"
)

// CounterStore holds per-owner, year-scoped sequence counters.
type CounterStore struct {
	db *sql.DB
}

func NewCounterStore(db *sql.DB) *CounterStore {
	return &CounterStore{db: db}
}

func (s *CounterStore) Get(userID int64, domain string) (*model.Counter, error) {
	var c model.Counter
	err := s.db.QueryRow(
		`SELECT user_id, domain, last_number, year, updated_at FROM counters WHERE user_id = ? AND domain = ?`,
		userID, domain,
	).Scan(&c.UserID, &c.Domain, &c.LastNumber, &c.Year, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get counter: %w", err)
	}
	return &c, nil
}

// Increment advances the counter for (userID, domain) in year and returns the
// new value. A missing counter is created at 1. A counter holding a different
// year restarts at 1 and takes the new year. The read and write happen in one
// statement, so concurrent callers never observe the same value.
func (s *CounterStore) Increment(userID int64, domain string, year int) (int, error) {
	var n int
	err := s.db.QueryRow(
		`INSERT INTO counters (user_id, domain, last_number, year) VALUES (?, ?, 1, ?)
		 ON CONFLICT (user_id, domain) DO UPDATE SET
		     last_number = CASE WHEN counters.year = excluded.year THEN counters.last_number + 1 ELSE 1 END,
		     year = excluded.year,
		     updated_at = CURRENT_TIMESTAMP
		 RETURNING last_number`,
		userID, domain, year,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("increment counter: %w", err)
	}
	return n, nil
}

// Set overwrites a counter with lastNumber for year. numbering.Service.Seed
// uses it to continue an owner's sequence from another tool.
func (s *CounterStore) Set(userID int64, domain string, lastNumber, year int) error {
	_, err := s.db.Exec(
		`INSERT INTO counters (user_id, domain, last_number, year) VALUES (?, ?, ?, ?)
		 ON CONFLICT (user_id, domain) DO UPDATE SET
		     last_number = excluded.last_number,
		     year = excluded.year,
		     updated_at = CURRENT_TIMESTAMP`,
		userID, domain, lastNumber, year,
	)
	if err != nil {
		return fmt.Errorf("set counter: %w", err)
	}
	return nil
}
