package db

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tgienger/worksphere/internal/models"
)

func taskSubtasks(q querier, taskID string) ([]models.Subtask, error) {
	rows, err := q.Query(`
		SELECT s.id, s.title, s.status_code, COALESCE(s.end_date, ''), s.created_by,
			COALESCE(u.full_name, ''), s.order_index,
			(SELECT COUNT(*) FROM time_logs l WHERE l.subtask_id = s.id),
			(SELECT COALESCE(SUM(l.minutes), 0) FROM time_logs l WHERE l.subtask_id = s.id)
		FROM subtasks s
		LEFT JOIN users u ON u.id = s.created_by
		WHERE s.task_id = ?
		ORDER BY s.order_index, s.created_at, s.id
	`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	subtasks := []models.Subtask{}
	for rows.Next() {
		var s models.Subtask
		var logs int
		if err := rows.Scan(&s.ID, &s.Title, &s.StatusCode, &s.EndDate, &s.CreatedBy,
			&s.CreatorName, &s.OrderIndex, &logs, &s.LoggedMinutes); err != nil {
			return nil, err
		}
		s.HasLogs = logs > 0
		subtasks = append(subtasks, s)
	}
	return subtasks, rows.Err()
}

// subtaskParent returns the live task owning a subtask
func subtaskParent(q querier, subID string) (string, error) {
	var taskID string
	err := q.QueryRow(`
		SELECT s.task_id FROM subtasks s
		JOIN tasks t ON t.id = s.task_id
		WHERE s.id = ? AND t.deleted_at IS NULL
	`, subID).Scan(&taskID)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	return taskID, err
}

// CreateSubtask appends a subtask to a task
func (db *DB) CreateSubtask(taskID string, actor models.User, in models.NewSubtask) (*models.Subtask, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, &FieldError{Field: FieldTitle, Err: ErrInvalidField}
	}
	if in.EndDate != "" {
		if _, err := time.Parse(dateLayout, in.EndDate); err != nil {
			return nil, &FieldError{Field: "end_date", Err: ErrInvalidField}
		}
	}

	sub := &models.Subtask{
		ID:          uuid.NewString(),
		Title:       in.Title,
		StatusCode:  models.StatusTodo,
		EndDate:     in.EndDate,
		CreatedBy:   actor.ID,
		CreatorName: actor.FullName,
	}
	err := db.withTx(func(tx *sql.Tx) error {
		if _, err := requireUpdate(tx, taskID, actor); err != nil {
			return err
		}
		if err := tx.QueryRow(`
			SELECT COALESCE(MAX(order_index) + 1, 0) FROM subtasks WHERE task_id = ?
		`, taskID).Scan(&sub.OrderIndex); err != nil {
			return err
		}
		if _, err := tx.Exec(`
			INSERT INTO subtasks (id, task_id, title, status_code, end_date, created_by, order_index)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, sub.ID, taskID, sub.Title, sub.StatusCode, nullString(sub.EndDate), sub.CreatedBy, sub.OrderIndex); err != nil {
			return err
		}
		if err := bumpVersion(tx, taskID); err != nil {
			return err
		}
		return recordHistory(tx, taskID, actor.ID, "added subtask", sub.Title)
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// UpdateSubtask applies a partial update to title, status_code or end_date
func (db *DB) UpdateSubtask(subID string, actor models.User, fields map[string]any) error {
	if len(fields) == 0 {
		return &FieldError{Err: ErrInvalidField}
	}
	sets := []string{}
	args := []any{}
	names := make([]string, 0, len(fields))
	for field, value := range fields {
		var v any
		var err error
		switch field {
		case FieldTitle, FieldStatusCode:
			v, err = columnValue(field, value)
		case "end_date":
			v, err = columnValue(FieldDueDate, value)
			if err != nil {
				err = &FieldError{Field: field, Err: ErrInvalidField}
			}
		default:
			err = &FieldError{Field: field, Err: ErrInvalidField}
		}
		if err != nil {
			return err
		}
		names = append(names, field)
		sets = append(sets, field+" = ?")
		args = append(args, v)
	}
	sort.Strings(names)

	return db.withTx(func(tx *sql.Tx) error {
		taskID, err := subtaskParent(tx, subID)
		if err != nil {
			return err
		}
		if _, err := requireUpdate(tx, taskID, actor); err != nil {
			return err
		}
		query := fmt.Sprintf("UPDATE subtasks SET %s WHERE id = ?", strings.Join(sets, ", "))
		if _, err := tx.Exec(query, append(args, subID)...); err != nil {
			return err
		}
		if err := bumpVersion(tx, taskID); err != nil {
			return err
		}
		return recordHistory(tx, taskID, actor.ID, "updated subtask", strings.Join(names, ", "))
	})
}

// DeleteSubtask removes a subtask. Time logged against it stays on the task.
func (db *DB) DeleteSubtask(subID string, actor models.User) error {
	return db.withTx(func(tx *sql.Tx) error {
		taskID, err := subtaskParent(tx, subID)
		if err != nil {
			return err
		}
		if _, err := requireUpdate(tx, taskID, actor); err != nil {
			return err
		}
		var title string
		if err := tx.QueryRow("SELECT title FROM subtasks WHERE id = ?", subID).Scan(&title); err != nil {
			return err
		}
		if _, err := tx.Exec("DELETE FROM subtasks WHERE id = ?", subID); err != nil {
			return err
		}
		if err := bumpVersion(tx, taskID); err != nil {
			return err
		}
		return recordHistory(tx, taskID, actor.ID, "deleted subtask", title)
	})
}

// ReorderSubtask swaps a subtask with its neighbour within the parent task
func (db *DB) ReorderSubtask(subID string, actor models.User, dir models.Direction) error {
	if !dir.Valid() {
		return &FieldError{Field: "direction", Err: ErrInvalidField}
	}
	return db.withTx(func(tx *sql.Tx) error {
		taskID, err := subtaskParent(tx, subID)
		if err != nil {
			return err
		}
		if _, err := requireUpdate(tx, taskID, actor); err != nil {
			return err
		}
		ids, err := orderedIDs(tx, `
			SELECT id FROM subtasks WHERE task_id = ? ORDER BY order_index, created_at, id
		`, taskID)
		if err != nil {
			return err
		}
		if _, ok := move(ids, subID, dir); !ok {
			return nil
		}
		if err := renumber(tx, "subtasks", ids); err != nil {
			return err
		}
		if err := bumpVersion(tx, taskID); err != nil {
			return err
		}
		return recordHistory(tx, taskID, actor.ID, "moved subtask", string(dir))
	})
}
