package models

import "time"

// Status codes shared by tasks and subtasks
const (
	StatusTodo       = "TODO"
	StatusInProgress = "IN_PROGRESS"
	StatusDone       = "DONE"
)

// Direction moves an item one position among its ordered siblings
type Direction string

const (
	DirectionUp   Direction = "UP"
	DirectionDown Direction = "DOWN"
)

// Valid reports whether d is UP or DOWN
func (d Direction) Valid() bool {
	return d == DirectionUp || d == DirectionDown
}

// Role of a user within the workspace
const (
	RoleAdmin    = "ADMIN"
	RolePM       = "PM"
	RoleEmployee = "EMPLOYEE"
)

// User is a workspace member
type User struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
	Role     string `json:"role,omitempty"`
}

// ProjectRef is the short project descriptor embedded in tasks
type ProjectRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Code string `json:"code"`
}

// Project groups tasks
type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"created_at"`
}

// Assignee wraps the assigned user the way the API nests it
type Assignee struct {
	User User `json:"user"`
}

// Capabilities describes what the current viewer may do with a task
type Capabilities struct {
	CanUpdate     bool     `json:"can_update"`
	CanDelete     bool     `json:"can_delete"`
	CanLogTime    bool     `json:"can_log_time"`
	AllowedFields []string `json:"allowed_fields"`
}

// Allows reports whether field is in the allowed field list
func (c Capabilities) Allows(field string) bool {
	for _, f := range c.AllowedFields {
		if f == field {
			return true
		}
	}
	return false
}

// Subtask is owned by a task and never exists on its own
type Subtask struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	StatusCode    string `json:"status_code"`
	EndDate       string `json:"end_date"`
	CreatedBy     string `json:"created_by"`
	CreatorName   string `json:"creator_name,omitempty"`
	OrderIndex    int    `json:"order_index"`
	HasLogs       bool   `json:"has_logs"`
	LoggedMinutes int    `json:"logged_minutes"`
}

// NewSubtask is the payload for creating a subtask
type NewSubtask struct {
	Title   string `json:"title"`
	EndDate string `json:"end_date,omitempty"`
}

// Comment is an append-only note on a task
type Comment struct {
	ID          string    `json:"id"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created_at"`
	CreatedBy   string    `json:"created_by"`
	CreatorName string    `json:"creator_name,omitempty"`
}

// Attachment is a file linked to a task
type Attachment struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	MimeType    string    `json:"mime_type"`
	URL         string    `json:"url"`
	CreatedAt   time.Time `json:"created_at"`
	CreatorName string    `json:"creator_name,omitempty"`
}

// Tag is a label that can be applied to tasks
type Tag struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// Task is the unit of work. RowVersion is the optimistic-concurrency token:
// writes must present the version they last observed.
type Task struct {
	ID                 string        `json:"id"`
	Title              string        `json:"title"`
	Description        string        `json:"description"`
	StatusCode         string        `json:"status_code"`
	PriorityCode       string        `json:"priority_code"`
	TypeCode           string        `json:"type_code"`
	StartDate          string        `json:"start_date"`
	DueDate            string        `json:"due_date"`
	Project            *ProjectRef   `json:"project,omitempty"`
	Assignees          []Assignee    `json:"assignees,omitempty"`
	Subtasks           []Subtask     `json:"subtasks,omitempty"`
	Comments           []Comment     `json:"comments,omitempty"`
	Attachments        []Attachment  `json:"attachments,omitempty"`
	Tags               []Tag         `json:"tags,omitempty"`
	TotalLoggedMinutes int           `json:"total_logged_minutes"`
	OrderIndex         int           `json:"order_index"`
	SubtasksCount      int           `json:"subtasks_count,omitempty"`
	SubtasksDone       int           `json:"subtasks_done,omitempty"`
	IsLocked           bool          `json:"is_locked"`
	RowVersion         int64         `json:"row_version"`
	Capabilities       *Capabilities `json:"capabilities,omitempty"`
}

// NewTask is the payload for creating a task
type NewTask struct {
	ProjectID    string   `json:"project_id"`
	Title        string   `json:"title"`
	Description  string   `json:"description,omitempty"`
	PriorityCode string   `json:"priority_code,omitempty"`
	TypeCode     string   `json:"type_code,omitempty"`
	StartDate    string   `json:"start_date,omitempty"`
	DueDate      string   `json:"due_date,omitempty"`
	AssigneeIDs  []string `json:"assignee_ids,omitempty"`
}

// TimeLog records time spent on a task or one of its subtasks
type TimeLog struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"task_id"`
	SubtaskID string    `json:"subtask_id,omitempty"`
	Hours     int       `json:"hours"`
	Minutes   int       `json:"minutes"`
	LogDate   string    `json:"log_date"`
	Note      string    `json:"note,omitempty"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

// NewTimeLog is the payload for logging time
type NewTimeLog struct {
	Hours     int    `json:"hours"`
	Minutes   int    `json:"minutes"`
	LogDate   string `json:"log_date"`
	Note      string `json:"note,omitempty"`
	SubtaskID string `json:"subtask_id,omitempty"`
}

// TotalMinutes returns the logged duration in minutes
func (l NewTimeLog) TotalMinutes() int {
	return l.Hours*60 + l.Minutes
}

// HistoryItem is one entry of a task's audit trail
type HistoryItem struct {
	ID         string    `json:"id"`
	UserName   string    `json:"user_name"`
	ActionText string    `json:"action_text"`
	Details    string    `json:"details"`
	CreatedAt  time.Time `json:"created_at"`
}
