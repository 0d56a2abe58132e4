package store

import (
	"database/sql"
	"fmt"

	"github.com/ten99/ten99/internal/model"
)

type ContactStore struct {
	db *sql.DB
}

func NewContactStore(db *sql.DB) *ContactStore {
	return &ContactStore{db: db}
}

const contactCols = `id, user_id, client_id, name, email, phone, role, created_at, updated_at`

func scanContact(row scanner) (*model.Contact, error) {
	var c model.Contact
	var clientID sql.NullInt64
	err := row.Scan(&c.ID, &c.UserID, &clientID, &c.Name, &c.Email, &c.Phone, &c.Role, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.ClientID = int64Ptr(clientID)
	return &c, nil
}

func (s *ContactStore) Create(c model.Contact) (*model.Contact, error) {
	result, err := s.db.Exec(
		`INSERT INTO contacts (user_id, client_id, name, email, phone, role) VALUES (?, ?, ?, ?, ?, ?)`,
		c.UserID, nullInt64(c.ClientID), c.Name, c.Email, c.Phone, c.Role,
	)
	if err != nil {
		return nil, fmt.Errorf("insert contact: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(c.UserID, id)
}

func (s *ContactStore) GetByID(userID, id int64) (*model.Contact, error) {
	row := s.db.QueryRow(`SELECT `+contactCols+` FROM contacts WHERE id = ? AND user_id = ?`, id, userID)
	c, err := scanContact(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get contact: %w", err)
	}
	return c, nil
}

// List returns the owner's contacts, optionally only those of one client.
func (s *ContactStore) List(userID int64, clientID *int64) ([]model.Contact, error) {
	query := `SELECT ` + contactCols + ` FROM contacts WHERE user_id = ?`
	args := []any{userID}
	if clientID != nil {
		query += ` AND client_id = ?`
		args = append(args, *clientID)
	}
	query += ` ORDER BY name COLLATE NOCASE`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query contacts: %w", err)
	}
	defer rows.Close()

	var contacts []model.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		contacts = append(contacts, *c)
	}
	return contacts, rows.Err()
}

func (s *ContactStore) Update(c model.Contact) (*model.Contact, error) {
	_, err := s.db.Exec(
		`UPDATE contacts SET client_id = ?, name = ?, email = ?, phone = ?, role = ? WHERE id = ? AND user_id = ?`,
		nullInt64(c.ClientID), c.Name, c.Email, c.Phone, c.Role, c.ID, c.UserID,
	)
	if err != nil {
		return nil, fmt.Errorf("update contact: %w", err)
	}
	return s.GetByID(c.UserID, c.ID)
}

func (s *ContactStore) Delete(userID, id int64) error {
	if _, err := s.db.Exec(`DELETE FROM contacts WHERE id = ? AND user_id = ?`, id, userID); err != nil {
		return fmt.Errorf("delete contact: %w", err)
	}
	return nil
}
