package db

import (
	"database/sql"

	"github.com/google/uuid"
	"github.com/tgienger/worksphere/internal/models"
)

// CreateUser creates a new user. An empty ID gets a generated one.
func (db *DB) CreateUser(u models.User) (*models.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = models.RoleEmployee
	}
	if _, err := db.Exec(`
		INSERT INTO users (id, full_name, role) VALUES (?, ?, ?)
	`, u.ID, u.FullName, u.Role); err != nil {
		return nil, err
	}
	return db.GetUser(u.ID)
}

// GetUser retrieves a user by ID
func (db *DB) GetUser(id string) (*models.User, error) {
	u := &models.User{}
	err := db.QueryRow("SELECT id, full_name, role FROM users WHERE id = ?", id).
		Scan(&u.ID, &u.FullName, &u.Role)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// ListUsers returns all users ordered by name
func (db *DB) ListUsers() ([]models.User, error) {
	rows, err := db.Query("SELECT id, full_name, role FROM users ORDER BY full_name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.FullName, &u.Role); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
