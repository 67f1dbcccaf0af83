package db

import (
	"database/sql"

	"github.com/google/uuid"
	"github.com/tgienger/worksphere/internal/models"
)

func recordHistory(q querier, taskID, userID, action, details string) error {
	_, err := q.Exec(`
		INSERT INTO task_history (id, task_id, user_id, action_text, details)
		VALUES (?, ?, ?, ?, ?)
	`, uuid.NewString(), taskID, userID, action, nullString(details))
	return err
}

// ListHistory returns the audit trail of a task as seen by viewer, newest first
func (db *DB) ListHistory(taskID string, viewer models.User) ([]models.HistoryItem, error) {
	var createdBy string
	err := db.QueryRow("SELECT created_by FROM tasks WHERE id = ?", taskID).Scan(&createdBy)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if visible, err := canSee(db, taskID, createdBy, viewer); err != nil {
		return nil, err
	} else if !visible {
		return nil, ErrNotFound
	}

	rows, err := db.Query(`
		SELECT h.id, COALESCE(u.full_name, h.user_id), h.action_text, COALESCE(h.details, ''), h.created_at
		FROM task_history h
		LEFT JOIN users u ON u.id = h.user_id
		WHERE h.task_id = ?
		ORDER BY h.created_at DESC, h.rowid DESC
	`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.HistoryItem{}
	for rows.Next() {
		var h models.HistoryItem
		if err := rows.Scan(&h.ID, &h.UserName, &h.ActionText, &h.Details, &h.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, h)
	}
	return items, rows.Err()
}
