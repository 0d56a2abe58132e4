package model

import "time"

// Counter backs a per-owner, year-scoped numbering domain such as invoice
// numbers.
type Counter struct {
	UserID     int64     `json:"user_id"`
	Domain     string    `json:"domain"`
	LastNumber int       `json:"last_number"`
	Year       int       `json:"year"`
	UpdatedAt  time.Time `json:"updated_at"`
}
