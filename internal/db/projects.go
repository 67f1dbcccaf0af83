package db

import (
	"database/sql"

	"github.com/google/uuid"
	"github.com/tgienger/worksphere/internal/models"
)

// CreateProject creates a new project
func (db *DB) CreateProject(name, code string) (*models.Project, error) {
	id := uuid.NewString()
	if _, err := db.Exec(`
		INSERT INTO projects (id, name, code) VALUES (?, ?, ?)
	`, id, name, code); err != nil {
		return nil, err
	}
	return db.GetProject(id)
}

// GetProject retrieves a project by ID
func (db *DB) GetProject(id string) (*models.Project, error) {
	p := &models.Project{}
	err := db.QueryRow(`
		SELECT id, name, code, created_at FROM projects WHERE id = ?
	`, id).Scan(&p.ID, &p.Name, &p.Code, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ListProjects returns all projects
func (db *DB) ListProjects() ([]models.Project, error) {
	rows, err := db.Query(`
		SELECT id, name, code, created_at FROM projects ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	projects := []models.Project{}
	for rows.Next() {
		var p models.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.Code, &p.CreatedAt); err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// ProjectCount returns the number of projects
func (db *DB) ProjectCount() (int, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM projects").Scan(&count)
	return count, err
}
