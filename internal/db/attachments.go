package db

import (
	"database/sql"
	"strings"

	"github.com/google/uuid"
	"github.com/tgienger/worksphere/internal/models"
)

// AddAttachment links a file to a task
func (db *DB) AddAttachment(taskID string, actor models.User, name, mimeType, url string) (*models.Attachment, error) {
	if strings.TrimSpace(name) == "" || strings.TrimSpace(url) == "" {
		return nil, &FieldError{Field: "url", Err: ErrInvalidField}
	}
	a := &models.Attachment{ID: uuid.NewString(), Name: name, MimeType: mimeType, URL: url, CreatorName: actor.FullName}
	err := db.withTx(func(tx *sql.Tx) error {
		if _, err := requireUpdate(tx, taskID, actor); err != nil {
			return err
		}
		if _, err := tx.Exec(`
			INSERT INTO attachments (id, task_id, name, mime_type, url, created_by)
			VALUES (?, ?, ?, ?, ?, ?)
		`, a.ID, taskID, name, mimeType, url, actor.ID); err != nil {
			return err
		}
		if err := bumpVersion(tx, taskID); err != nil {
			return err
		}
		return recordHistory(tx, taskID, actor.ID, "attached file", name)
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

func taskAttachments(q querier, taskID string) ([]models.Attachment, error) {
	rows, err := q.Query(`
		SELECT a.id, a.name, a.mime_type, a.url, a.created_at, COALESCE(u.full_name, '')
		FROM attachments a
		LEFT JOIN users u ON u.id = a.created_by
		WHERE a.task_id = ?
		ORDER BY a.created_at, a.rowid
	`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Attachment{}
	for rows.Next() {
		var a models.Attachment
		if err := rows.Scan(&a.ID, &a.Name, &a.MimeType, &a.URL, &a.CreatedAt, &a.CreatorName); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
