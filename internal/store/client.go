package store

import (
	"database/sql"
	"fmt"

	"github.com/ten99/ten99/internal/model"
)

type ClientStore struct {
	db *sql.DB
}

func NewClientStore(db *sql.DB) *ClientStore {
	return &ClientStore{db: db}
}

const clientCols = `id, user_id, name, email, phone, address, notes, created_at, updated_at`

func scanClient(row scanner) (*model.Client, error) {
	var c model.Client
	err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.Notes, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *ClientStore) Create(c model.Client) (*model.Client, error) {
	result, err := s.db.Exec(
		`INSERT INTO clients (user_id, name, email, phone, address, notes) VALUES (?, ?, ?, ?, ?, ?)`,
		c.UserID, c.Name, c.Email, c.Phone, c.Address, c.Notes,
	)
	if err != nil {
		return nil, fmt.Errorf("insert client: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(c.UserID, id)
}

func (s *ClientStore) GetByID(userID, id int64) (*model.Client, error) {
	row := s.db.QueryRow(`SELECT `+clientCols+` FROM clients WHERE id = ? AND user_id = ?`, id, userID)
	c, err := scanClient(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get client: %w", err)
	}
	return c, nil
}

func (s *ClientStore) List(userID int64) ([]model.Client, error) {
	rows, err := s.db.Query(`SELECT `+clientCols+` FROM clients WHERE user_id = ? ORDER BY name COLLATE NOCASE`, userID)
	if err != nil {
		return nil, fmt.Errorf("query clients: %w", err)
	}
	defer rows.Close()

	var clients []model.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		clients = append(clients, *c)
	}
	return clients, rows.Err()
}

func (s *ClientStore) Update(c model.Client) (*model.Client, error) {
	_, err := s.db.Exec(
		`UPDATE clients SET name = ?, email = ?, phone = ?, address = ?, notes = ? WHERE id = ? AND user_id = ?`,
		c.Name, c.Email, c.Phone, c.Address, c.Notes, c.ID, c.UserID,
	)
	if err != nil {
		return nil, fmt.Errorf("update client: %w", err)
	}
	return s.GetByID(c.UserID, c.ID)
}

func (s *ClientStore) Delete(userID, id int64) error {
	if _, err := s.db.Exec(`DELETE FROM clients WHERE id = ? AND user_id = ?`, id, userID); err != nil {
		return fmt.Errorf("delete client: %w", err)
	}
	return nil
}
