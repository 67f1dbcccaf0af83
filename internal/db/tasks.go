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

// SystemUserID is recorded as the actor of scheduled mutations
const SystemUserID = "system"

const dateLayout = "2006-01-02"

// taskState is the slice of a task row that gates writes
type taskState struct {
	ProjectID  string
	CreatedBy  string
	RowVersion int64
	Locked     bool
}

func loadTaskState(q querier, id string) (*taskState, error) {
	s := &taskState{}
	err := q.QueryRow(`
		SELECT project_id, created_by, row_version, is_locked
		FROM tasks WHERE id = ? AND deleted_at IS NULL
	`, id).Scan(&s.ProjectID, &s.CreatedBy, &s.RowVersion, &s.Locked)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func isAssigned(q querier, taskID, userID string) (bool, error) {
	var n int
	err := q.QueryRow(`
		SELECT COUNT(*) FROM task_assignees WHERE task_id = ? AND user_id = ?
	`, taskID, userID).Scan(&n)
	return n > 0, err
}

// employeeVisible restricts a query over tasks t to what an employee may see.
// It takes the employee's id twice.
const employeeVisible = ` AND (t.created_by = ? OR EXISTS (
	SELECT 1 FROM task_assignees a WHERE a.task_id = t.id AND a.user_id = ?))`

// canSee reports whether viewer may see the task at all. Employees see only
// tasks they created or are assigned to.
func canSee(q querier, taskID, createdBy string, viewer models.User) (bool, error) {
	if viewer.Role != models.RoleEmployee || createdBy == viewer.ID {
		return true, nil
	}
	return isAssigned(q, taskID, viewer.ID)
}

// capabilitiesFor resolves the actor's capabilities on a loaded task
func capabilitiesFor(q querier, taskID string, s *taskState, actor models.User) (models.Capabilities, error) {
	assigned, err := isAssigned(q, taskID, actor.ID)
	if err != nil {
		return models.Capabilities{}, err
	}
	return Capabilities(actor, s.CreatedBy, assigned, s.Locked), nil
}

// requireUpdate fails with ErrLocked or ErrForbidden when actor may not edit the task
func requireUpdate(q querier, taskID string, actor models.User) (*taskState, error) {
	s, err := loadTaskState(q, taskID)
	if err != nil {
		return nil, err
	}
	if s.Locked {
		return nil, ErrLocked
	}
	caps, err := capabilitiesFor(q, taskID, s, actor)
	if err != nil {
		return nil, err
	}
	if !caps.CanUpdate {
		return nil, ErrForbidden
	}
	return s, nil
}

func bumpVersion(q querier, taskID string) error {
	_, err := q.Exec(`
		UPDATE tasks SET row_version = row_version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, taskID)
	return err
}

// CreateTask creates a new task at the end of its project's ordering
func (db *DB) CreateTask(in models.NewTask, actor models.User) (*models.Task, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, &FieldError{Field: FieldTitle, Err: ErrInvalidField}
	}
	for field, value := range map[string]string{FieldStartDate: in.StartDate, FieldDueDate: in.DueDate} {
		if value == "" {
			continue
		}
		if _, err := time.Parse(dateLayout, value); err != nil {
			return nil, &FieldError{Field: field, Err: ErrInvalidField}
		}
	}
	if in.PriorityCode == "" {
		in.PriorityCode = "MEDIUM"
	}
	if in.TypeCode == "" {
		in.TypeCode = "TASK"
	}

	id := uuid.NewString()
	err := db.withTx(func(tx *sql.Tx) error {
		var projects int
		if err := tx.QueryRow("SELECT COUNT(*) FROM projects WHERE id = ?", in.ProjectID).Scan(&projects); err != nil {
			return err
		}
		if projects == 0 {
			return ErrNotFound
		}
		var next int
		if err := tx.QueryRow(`
			SELECT COALESCE(MAX(order_index) + 1, 0) FROM tasks
			WHERE project_id = ? AND deleted_at IS NULL
		`, in.ProjectID).Scan(&next); err != nil {
			return err
		}
		if _, err := tx.Exec(`
			INSERT INTO tasks (id, project_id, title, description, priority_code, type_code,
				start_date, due_date, order_index, created_by)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, id, in.ProjectID, in.Title, nullString(in.Description), in.PriorityCode, in.TypeCode,
			nullString(in.StartDate), nullString(in.DueDate), next, actor.ID); err != nil {
			return err
		}
		if err := setTaskAssignees(tx, id, in.AssigneeIDs); err != nil {
			return err
		}
		return recordHistory(tx, id, actor.ID, "created task", in.Title)
	})
	if err != nil {
		return nil, err
	}
	return db.GetTask(id, actor)
}

const taskColumnsSelect = `
	t.id, t.title, COALESCE(t.description, ''), t.status_code, t.priority_code, t.type_code,
	COALESCE(t.start_date, ''), COALESCE(t.due_date, ''), t.order_index, t.row_version,
	t.is_locked, t.created_by, p.id, p.name, p.code`

func scanTask(row interface{ Scan(...any) error }, t *models.Task, createdBy *string, extra ...any) error {
	t.Project = &models.ProjectRef{}
	dest := []any{
		&t.ID, &t.Title, &t.Description, &t.StatusCode, &t.PriorityCode, &t.TypeCode,
		&t.StartDate, &t.DueDate, &t.OrderIndex, &t.RowVersion,
		&t.IsLocked, createdBy, &t.Project.ID, &t.Project.Name, &t.Project.Code,
	}
	return row.Scan(append(dest, extra...)...)
}

// GetTask retrieves the full detail of a task as seen by viewer
func (db *DB) GetTask(id string, viewer models.User) (*models.Task, error) {
	t := &models.Task{}
	var createdBy string
	err := scanTask(db.QueryRow(`
		SELECT `+taskColumnsSelect+`
		FROM tasks t JOIN projects p ON p.id = t.project_id
		WHERE t.id = ? AND t.deleted_at IS NULL
	`, id), t, &createdBy)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if visible, err := canSee(db, id, createdBy, viewer); err != nil {
		return nil, err
	} else if !visible {
		return nil, ErrNotFound
	}

	if t.Assignees, err = taskAssignees(db, id); err != nil {
		return nil, err
	}
	if t.Subtasks, err = taskSubtasks(db, id); err != nil {
		return nil, err
	}
	if t.Comments, err = taskComments(db, id); err != nil {
		return nil, err
	}
	if t.Attachments, err = taskAttachments(db, id); err != nil {
		return nil, err
	}
	if t.Tags, err = taskTags(db, id); err != nil {
		return nil, err
	}
	if err := db.QueryRow(`
		SELECT COALESCE(SUM(minutes), 0) FROM time_logs WHERE task_id = ?
	`, id).Scan(&t.TotalLoggedMinutes); err != nil {
		return nil, err
	}

	assigned := false
	for _, a := range t.Assignees {
		if a.User.ID == viewer.ID {
			assigned = true
			break
		}
	}
	caps := Capabilities(viewer, createdBy, assigned, t.IsLocked)
	t.Capabilities = &caps
	return t, nil
}

// ListProjectTasks returns the live tasks of a project in display order.
// Employees only see tasks they created or are assigned to.
func (db *DB) ListProjectTasks(projectID string, viewer models.User) ([]models.Task, error) {
	query := `
		SELECT ` + taskColumnsSelect + `,
			(SELECT COUNT(*) FROM subtasks s WHERE s.task_id = t.id),
			(SELECT COUNT(*) FROM subtasks s WHERE s.task_id = t.id AND s.status_code = 'DONE'),
			(SELECT COALESCE(SUM(l.minutes), 0) FROM time_logs l WHERE l.task_id = t.id)
		FROM tasks t JOIN projects p ON p.id = t.project_id
		WHERE t.project_id = ? AND t.deleted_at IS NULL`
	args := []any{projectID}
	if viewer.Role == models.RoleEmployee {
		query += employeeVisible
		args = append(args, viewer.ID, viewer.ID)
	}
	query += ` ORDER BY t.order_index, t.created_at, t.id`

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []models.Task{}
	creators := []string{}
	for rows.Next() {
		var t models.Task
		var createdBy string
		if err := scanTask(rows, &t, &createdBy, &t.SubtasksCount, &t.SubtasksDone, &t.TotalLoggedMinutes); err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
		creators = append(creators, createdBy)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range tasks {
		if tasks[i].Assignees, err = taskAssignees(db, tasks[i].ID); err != nil {
			return nil, err
		}
		assigned := false
		for _, a := range tasks[i].Assignees {
			assigned = assigned || a.User.ID == viewer.ID
		}
		caps := Capabilities(viewer, creators[i], assigned, tasks[i].IsLocked)
		tasks[i].Capabilities = &caps
	}
	return tasks, nil
}

// ListDeletedTasks returns the recycle bin of a project, most recently deleted first
func (db *DB) ListDeletedTasks(projectID string) ([]models.Task, error) {
	rows, err := db.Query(`
		SELECT `+taskColumnsSelect+`
		FROM tasks t JOIN projects p ON p.id = t.project_id
		WHERE t.project_id = ? AND t.deleted_at IS NOT NULL
		ORDER BY t.deleted_at DESC
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		var t models.Task
		var createdBy string
		if err := scanTask(rows, &t, &createdBy); err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// UpdateTask applies a partial update. When expected is non-nil the write only
// succeeds if the stored row_version still equals it; otherwise it is
// unconditional. Either way a successful write increments row_version, and
// the new version is returned.
func (db *DB) UpdateTask(id string, actor models.User, fields map[string]any, expected *int64) (int64, error) {
	if len(fields) == 0 {
		return 0, &FieldError{Field: "", Err: ErrInvalidField}
	}

	sets := []string{}
	args := []any{}
	var assigneeIDs, tagIDs []string
	hasAssignees, hasTags := false, false
	names := make([]string, 0, len(fields))

	for field, value := range fields {
		names = append(names, field)
		switch field {
		case FieldAssigneeIDs, FieldTagIDs:
			ids, ok := stringList(value)
			if !ok {
				return 0, &FieldError{Field: field, Err: ErrInvalidField}
			}
			if field == FieldAssigneeIDs {
				assigneeIDs, hasAssignees = ids, true
			} else {
				tagIDs, hasTags = ids, true
			}
		default:
			column, ok := taskColumns[field]
			if !ok {
				return 0, &FieldError{Field: field, Err: ErrInvalidField}
			}
			v, err := columnValue(field, value)
			if err != nil {
				return 0, err
			}
			sets = append(sets, column+" = ?")
			args = append(args, v)
		}
	}
	sort.Strings(names)

	var version int64
	err := db.withTx(func(tx *sql.Tx) error {
		s, err := loadTaskState(tx, id)
		if err != nil {
			return err
		}
		if s.Locked {
			return ErrLocked
		}
		caps, err := capabilitiesFor(tx, id, s, actor)
		if err != nil {
			return err
		}
		if !caps.CanUpdate {
			return ErrForbidden
		}
		for _, field := range names {
			if !caps.Allows(field) {
				return &FieldError{Field: field, Err: ErrForbidden}
			}
		}

		current := s.RowVersion
		if expected != nil {
			if *expected != current {
				return ErrVersionConflict
			}
		}

		sets = append(sets, "row_version = row_version + 1", "updated_at = CURRENT_TIMESTAMP")
		query := fmt.Sprintf("UPDATE tasks SET %s WHERE id = ? AND row_version = ?", strings.Join(sets, ", "))
		res, err := tx.Exec(query, append(args, id, current)...)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return ErrVersionConflict
		}

		if hasAssignees {
			if err := setTaskAssignees(tx, id, assigneeIDs); err != nil {
				return err
			}
		}
		if hasTags {
			if err := setTaskTags(tx, id, tagIDs); err != nil {
				return err
			}
		}
		version = current + 1
		return recordHistory(tx, id, actor.ID, "updated task", strings.Join(names, ", "))
	})
	if err != nil {
		return 0, err
	}
	return version, nil
}

// columnValue validates a scalar field value and converts it for storage
func columnValue(field string, value any) (any, error) {
	invalid := &FieldError{Field: field, Err: ErrInvalidField}
	if value == nil {
		switch field {
		case FieldDescription, FieldStartDate, FieldDueDate:
			return nil, nil
		}
		return nil, invalid
	}
	s, ok := value.(string)
	if !ok {
		return nil, invalid
	}
	switch field {
	case FieldTitle, FieldPriorityCode, FieldTypeCode:
		if strings.TrimSpace(s) == "" {
			return nil, invalid
		}
	case FieldStatusCode:
		if !validStatus(s) {
			return nil, invalid
		}
	case FieldStartDate, FieldDueDate:
		if s == "" {
			return nil, nil
		}
		if _, err := time.Parse(dateLayout, s); err != nil {
			return nil, invalid
		}
	case FieldDescription:
		return nullString(s), nil
	}
	return s, nil
}

func validStatus(s string) bool {
	switch s {
	case models.StatusTodo, models.StatusInProgress, models.StatusDone:
		return true
	}
	return false
}

// stringList accepts []string or a decoded JSON array of strings
func stringList(value any) ([]string, bool) {
	switch v := value.(type) {
	case []string:
		return v, true
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	case nil:
		return []string{}, true
	}
	return nil, false
}

// DeleteTask moves a task to the recycle bin
func (db *DB) DeleteTask(id string, actor models.User) error {
	return db.withTx(func(tx *sql.Tx) error {
		s, err := loadTaskState(tx, id)
		if err != nil {
			return err
		}
		caps, err := capabilitiesFor(tx, id, s, actor)
		if err != nil {
			return err
		}
		if !caps.CanDelete {
			return ErrForbidden
		}
		if _, err := tx.Exec(`
			UPDATE tasks SET deleted_at = CURRENT_TIMESTAMP, row_version = row_version + 1,
				updated_at = CURRENT_TIMESTAMP
			WHERE id = ?
		`, id); err != nil {
			return err
		}
		return recordHistory(tx, id, actor.ID, "deleted task", "")
	})
}

// RestoreTask brings a task back from the recycle bin, appending it to the
// end of its project's ordering
func (db *DB) RestoreTask(id string, actor models.User) error {
	return db.withTx(func(tx *sql.Tx) error {
		var projectID, createdBy string
		err := tx.QueryRow(`
			SELECT project_id, created_by FROM tasks WHERE id = ? AND deleted_at IS NOT NULL
		`, id).Scan(&projectID, &createdBy)
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if !Capabilities(actor, createdBy, false, false).CanDelete {
			return ErrForbidden
		}
		if _, err := tx.Exec(`
			UPDATE tasks SET deleted_at = NULL, row_version = row_version + 1,
				updated_at = CURRENT_TIMESTAMP,
				order_index = (SELECT COALESCE(MAX(order_index) + 1, 0) FROM tasks
					WHERE project_id = ? AND deleted_at IS NULL)
			WHERE id = ?
		`, projectID, id); err != nil {
			return err
		}
		return recordHistory(tx, id, actor.ID, "restored task", "")
	})
}

// ReorderTask swaps the task with its neighbour in the given direction.
// Moving past either end is a no-op.
func (db *DB) ReorderTask(id string, actor models.User, dir models.Direction) error {
	if !dir.Valid() {
		return &FieldError{Field: "direction", Err: ErrInvalidField}
	}
	return db.withTx(func(tx *sql.Tx) error {
		s, err := requireUpdate(tx, id, actor)
		if err != nil {
			return err
		}
		const order = ` ORDER BY t.order_index, t.created_at, t.id`
		query := `SELECT t.id FROM tasks t WHERE t.project_id = ? AND t.deleted_at IS NULL`
		ids, err := orderedIDs(tx, query+order, s.ProjectID)
		if err != nil {
			return err
		}
		// the neighbour is the next task the actor can see; hidden tasks keep their slots
		visible := ids
		if actor.Role == models.RoleEmployee {
			visible, err = orderedIDs(tx, query+employeeVisible+order, s.ProjectID, actor.ID, actor.ID)
			if err != nil {
				return err
			}
		}
		neighbour, ok := neighbourOf(visible, id, dir)
		if !ok {
			return nil
		}
		swapIDs(ids, id, neighbour)
		if err := renumber(tx, "tasks", ids); err != nil {
			return err
		}
		for _, changed := range []string{id, neighbour} {
			if err := bumpVersion(tx, changed); err != nil {
				return err
			}
		}
		return recordHistory(tx, id, actor.ID, "moved task", string(dir))
	})
}

// SetTaskLock locks or unlocks a task. Only managers may do this.
func (db *DB) SetTaskLock(id string, actor models.User, locked bool) error {
	if actor.Role != models.RoleAdmin && actor.Role != models.RolePM {
		return ErrForbidden
	}
	return db.withTx(func(tx *sql.Tx) error {
		if _, err := loadTaskState(tx, id); err != nil {
			return err
		}
		if _, err := tx.Exec(`
			UPDATE tasks SET is_locked = ?, row_version = row_version + 1, updated_at = CURRENT_TIMESTAMP
			WHERE id = ?
		`, locked, id); err != nil {
			return err
		}
		action := "unlocked task"
		if locked {
			action = "locked task"
		}
		return recordHistory(tx, id, actor.ID, action, "")
	})
}

// LockCompletedTasks locks every live DONE task that is not locked yet and
// returns how many were locked
func (db *DB) LockCompletedTasks() (int, error) {
	count := 0
	err := db.withTx(func(tx *sql.Tx) error {
		ids, err := orderedIDs(tx, `
			SELECT id FROM tasks
			WHERE status_code = ? AND is_locked = 0 AND deleted_at IS NULL
			ORDER BY id
		`, models.StatusDone)
		if err != nil {
			return err
		}
		for _, id := range ids {
			if _, err := tx.Exec(`
				UPDATE tasks SET is_locked = 1, row_version = row_version + 1, updated_at = CURRENT_TIMESTAMP
				WHERE id = ?
			`, id); err != nil {
				return err
			}
			if err := recordHistory(tx, id, SystemUserID, "locked task", "auto-lock"); err != nil {
				return err
			}
		}
		count = len(ids)
		return nil
	})
	return count, err
}

func taskAssignees(q querier, taskID string) ([]models.Assignee, error) {
	rows, err := q.Query(`
		SELECT u.id, u.full_name
		FROM users u
		JOIN task_assignees a ON a.user_id = u.id
		WHERE a.task_id = ?
		ORDER BY u.full_name
	`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Assignee{}
	for rows.Next() {
		var a models.Assignee
		if err := rows.Scan(&a.User.ID, &a.User.FullName); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func setTaskAssignees(q querier, taskID string, userIDs []string) error {
	if _, err := q.Exec("DELETE FROM task_assignees WHERE task_id = ?", taskID); err != nil {
		return err
	}
	for _, userID := range userIDs {
		var exists int
		if err := q.QueryRow("SELECT COUNT(*) FROM users WHERE id = ?", userID).Scan(&exists); err != nil {
			return err
		}
		if exists == 0 {
			return &FieldError{Field: FieldAssigneeIDs, Err: ErrInvalidField}
		}
		if _, err := q.Exec("INSERT OR IGNORE INTO task_assignees (task_id, user_id) VALUES (?, ?)", taskID, userID); err != nil {
			return err
		}
	}
	return nil
}
