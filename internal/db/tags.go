package db

import (
	"github.com/google/uuid"
	"github.com/tgienger/worksphere/internal/models"
)

// CreateTag creates a new tag
func (db *DB) CreateTag(name, color string) (*models.Tag, error) {
	t := &models.Tag{ID: uuid.NewString(), Name: name, Color: color}
	if _, err := db.Exec("INSERT INTO tags (id, name, color) VALUES (?, ?, ?)", t.ID, t.Name, t.Color); err != nil {
		return nil, err
	}
	return t, nil
}

// ListTags returns all tags
func (db *DB) ListTags() ([]models.Tag, error) {
	rows, err := db.Query("SELECT id, name, color FROM tags ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tags := []models.Tag{}
	for rows.Next() {
		var t models.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Color); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// taskTags returns the tags applied to a task
func taskTags(q querier, taskID string) ([]models.Tag, error) {
	rows, err := q.Query(`
		SELECT t.id, t.name, t.color
		FROM tags t
		JOIN task_tags tt ON t.id = tt.tag_id
		WHERE tt.task_id = ?
		ORDER BY t.name
	`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tags := []models.Tag{}
	for rows.Next() {
		var t models.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Color); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// setTaskTags replaces all tags on a task
func setTaskTags(q querier, taskID string, tagIDs []string) error {
	if _, err := q.Exec("DELETE FROM task_tags WHERE task_id = ?", taskID); err != nil {
		return err
	}
	for _, tagID := range tagIDs {
		if _, err := q.Exec("INSERT OR IGNORE INTO task_tags (task_id, tag_id) VALUES (?, ?)", taskID, tagID); err != nil {
			return err
		}
	}
	return nil
}
