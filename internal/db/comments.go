package db

import (
	"database/sql"
	"strings"

	"github.com/google/uuid"
	"github.com/tgienger/worksphere/internal/models"
)

// CreateComment adds a comment to a task. Comments are allowed on locked
// tasks; they do not change the task itself.
func (db *DB) CreateComment(taskID string, actor models.User, content string) (*models.Comment, error) {
	if strings.TrimSpace(content) == "" {
		return nil, &FieldError{Field: "content", Err: ErrInvalidField}
	}
	id := uuid.NewString()
	err := db.withTx(func(tx *sql.Tx) error {
		s, err := loadTaskState(tx, taskID)
		if err != nil {
			return err
		}
		if visible, err := canSee(tx, taskID, s.CreatedBy, actor); err != nil {
			return err
		} else if !visible {
			return ErrNotFound
		}
		if _, err := tx.Exec(`
			INSERT INTO comments (id, task_id, content, created_by) VALUES (?, ?, ?, ?)
		`, id, taskID, content, actor.ID); err != nil {
			return err
		}
		if err := bumpVersion(tx, taskID); err != nil {
			return err
		}
		return recordHistory(tx, taskID, actor.ID, "commented", "")
	})
	if err != nil {
		return nil, err
	}

	c := &models.Comment{}
	err = db.QueryRow(`
		SELECT c.id, c.content, c.created_at, c.created_by, COALESCE(u.full_name, '')
		FROM comments c LEFT JOIN users u ON u.id = c.created_by
		WHERE c.id = ?
	`, id).Scan(&c.ID, &c.Content, &c.CreatedAt, &c.CreatedBy, &c.CreatorName)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// taskComments returns a task's comments, oldest first
func taskComments(q querier, taskID string) ([]models.Comment, error) {
	rows, err := q.Query(`
		SELECT c.id, c.content, c.created_at, c.created_by, COALESCE(u.full_name, '')
		FROM comments c
		LEFT JOIN users u ON u.id = c.created_by
		WHERE c.task_id = ?
		ORDER BY c.created_at ASC, c.rowid ASC
	`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	comments := []models.Comment{}
	for rows.Next() {
		var c models.Comment
		if err := rows.Scan(&c.ID, &c.Content, &c.CreatedAt, &c.CreatedBy, &c.CreatorName); err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}
