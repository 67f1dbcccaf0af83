package db

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/tgienger/worksphere/internal/models"
)

// CreateTimeLog records time spent on a task, optionally against one of its subtasks
func (db *DB) CreateTimeLog(taskID string, actor models.User, in models.NewTimeLog) (*models.TimeLog, error) {
	if in.Hours < 0 || in.Minutes < 0 || in.TotalMinutes() <= 0 {
		return nil, &FieldError{Field: "minutes", Err: ErrInvalidField}
	}
	if in.LogDate == "" {
		in.LogDate = time.Now().Format(dateLayout)
	}
	if _, err := time.Parse(dateLayout, in.LogDate); err != nil {
		return nil, &FieldError{Field: "log_date", Err: ErrInvalidField}
	}

	total := in.TotalMinutes()
	log := &models.TimeLog{
		ID:        uuid.NewString(),
		TaskID:    taskID,
		SubtaskID: in.SubtaskID,
		Hours:     total / 60,
		Minutes:   total % 60,
		LogDate:   in.LogDate,
		Note:      in.Note,
		CreatedBy: actor.ID,
	}
	err := db.withTx(func(tx *sql.Tx) error {
		s, err := loadTaskState(tx, taskID)
		if err != nil {
			return err
		}
		if s.Locked {
			return ErrLocked
		}
		caps, err := capabilitiesFor(tx, taskID, s, actor)
		if err != nil {
			return err
		}
		if !caps.CanLogTime {
			return ErrForbidden
		}
		if in.SubtaskID != "" {
			parent, err := subtaskParent(tx, in.SubtaskID)
			if err != nil {
				return err
			}
			if parent != taskID {
				return &FieldError{Field: "subtask_id", Err: ErrInvalidField}
			}
		}
		if _, err := tx.Exec(`
			INSERT INTO time_logs (id, task_id, subtask_id, minutes, log_date, note, created_by)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, log.ID, taskID, nullString(in.SubtaskID), total, log.LogDate, log.Note, actor.ID); err != nil {
			return err
		}
		if err := bumpVersion(tx, taskID); err != nil {
			return err
		}
		return recordHistory(tx, taskID, actor.ID, "logged time", log.LogDate)
	})
	if err != nil {
		return nil, err
	}
	log.CreatedAt = time.Now()
	return log, nil
}
