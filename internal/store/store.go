// Package store holds the client-side task state and mediates every read
// and write against the task API.
//
// Writes to a task follow an optimistic-concurrency contract: the store
// attaches the row_version it last observed for the loaded task, and a
// stale version is rejected by the server with 409. On conflict the store
// records a message in State.Error and returns false. It never retries or
// merges; the caller must reload the task before editing again.
//
// Store methods never return errors. Every failure ends in State.Error and,
// for mutations, a false return value.
package store

import (
	"context"
	"errors"
	"maps"
	"sync"

	"golang.org/x/text/message"

	"github.com/tgienger/worksphere/internal/api"
	"github.com/tgienger/worksphere/internal/i18n"
	"github.com/tgienger/worksphere/internal/logging"
	"github.com/tgienger/worksphere/internal/models"
)

// Remote is the task API as seen by the store. *api.Client implements it.
type Remote interface {
	ListProjectTasks(ctx context.Context, projectID, callerID string) ([]models.Task, error)
	GetTask(ctx context.Context, taskID, callerID string) (*models.Task, error)
	UpdateTask(ctx context.Context, taskID, callerID string, fields map[string]any) error
	DeleteTask(ctx context.Context, taskID, callerID string) error
	ReorderTask(ctx context.Context, taskID, callerID string, dir models.Direction) error
	CreateSubtask(ctx context.Context, taskID, callerID string, in models.NewSubtask) error
	UpdateSubtask(ctx context.Context, subID, callerID string, fields map[string]any) error
	DeleteSubtask(ctx context.Context, subID, callerID string) error
	ReorderSubtask(ctx context.Context, subID, callerID string, dir models.Direction) error
	CreateComment(ctx context.Context, taskID, callerID, content string) error
	CreateTimeLog(ctx context.Context, taskID, callerID string, in models.NewTimeLog) error
	TaskHistory(ctx context.Context, taskID, callerID string) ([]models.HistoryItem, error)
}

var _ Remote = (*api.Client)(nil)

// RowVersionField is the body field carrying the optimistic-concurrency token
const RowVersionField = "row_version"

// State is a snapshot of the store. Slices and CurrentTask are replaced
// wholesale on every update and must be treated as read-only.
type State struct {
	Tasks          []models.Task
	CurrentTask    *models.Task
	History        []models.HistoryItem
	Loading        bool
	LoadingHistory bool
	// Error is the last user-facing failure message; "" when none.
	Error string
}

// Store is the single source of truth for task UI state. Create one per
// session with New and pass it to whatever needs it.
type Store struct {
	remote  Remote
	printer *message.Printer
	logger  *logging.Logger

	mu    sync.Mutex
	state State

	subMu     sync.Mutex
	nextSubID int
	subs      map[int]func(State)
}

// Option configures a Store
type Option func(*Store)

// WithLogger sets the store's logger
func WithLogger(l *logging.Logger) Option {
	return func(s *Store) { s.logger = l.WithComponent("store") }
}

// WithLanguage selects the language of State.Error messages ("vi" or "en")
func WithLanguage(lang string) Option {
	return func(s *Store) { s.printer = i18n.NewPrinter(lang) }
}

// New creates a Store backed by remote
func New(remote Remote, opts ...Option) *Store {
	s := &Store{
		remote:  remote,
		printer: i18n.NewPrinter("vi"),
		logger:  logging.NopLogger(),
		state: State{
			Tasks:   []models.Task{},
			History: []models.HistoryItem{},
		},
		subs: make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns the current state
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers fn to be called with the new state after every change.
// The returned function removes the subscription.
func (s *Store) Subscribe(fn func(State)) func() {
	s.subMu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

// update applies fn to the state under the lock, then notifies subscribers.
func (s *Store) update(fn func(*State)) {
	s.mu.Lock()
	fn(&s.state)
	snap := s.state
	s.mu.Unlock()

	s.subMu.Lock()
	subs := make([]func(State), 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.subMu.Unlock()

	for _, sub := range subs {
		sub(snap)
	}
}

func (s *Store) SetTasks(tasks []models.Task) {
	s.update(func(st *State) { st.Tasks = tasks })
}

func (s *Store) SetCurrentTask(task *models.Task) {
	s.update(func(st *State) { st.CurrentTask = task })
}

func (s *Store) SetLoading(loading bool) {
	s.update(func(st *State) { st.Loading = loading })
}

func (s *Store) SetError(msg string) {
	s.update(func(st *State) { st.Error = msg })
}

// Reset clears all state, as when the user navigates away
func (s *Store) Reset() {
	s.update(func(st *State) {
		*st = State{Tasks: []models.Task{}, History: []models.HistoryItem{}}
	})
}

func (s *Store) msg(key string, args ...any) string {
	return s.printer.Sprintf(key, args...)
}

// fail records a failure message and logs the cause.
func (s *Store) fail(op string, key string, err error) {
	s.logger.Warn("operation failed", "op", op, "error", err)
	s.SetError(s.msg(key))
}

// FetchProjectTasks replaces the task list with the project's tasks. On
// failure the previous list is kept and State.Error is set.
func (s *Store) FetchProjectTasks(ctx context.Context, projectID, callerID string) {
	s.update(func(st *State) {
		st.Loading = true
		st.Error = ""
	})

	tasks, err := s.remote.ListProjectTasks(ctx, projectID, callerID)
	if err != nil {
		s.logger.Warn("fetch project tasks failed", "project_id", projectID, "error", err)
		s.update(func(st *State) {
			st.Error = s.msg(i18n.MsgLoadTasksFailed)
			st.Loading = false
		})
		return
	}

	s.update(func(st *State) {
		st.Tasks = tasks
		st.Loading = false
	})
}

// FetchTaskDetail replaces CurrentTask with the task's full detail. On
// failure the previous task is kept and State.Error is set.
func (s *Store) FetchTaskDetail(ctx context.Context, taskID, callerID string) {
	s.update(func(st *State) {
		st.Loading = true
		st.Error = ""
	})

	task, err := s.remote.GetTask(ctx, taskID, callerID)
	if err != nil {
		s.logger.Warn("fetch task detail failed", "task_id", taskID, "error", err)
		s.update(func(st *State) {
			st.Error = s.msg(i18n.MsgLoadTaskFailed)
			st.Loading = false
		})
		return
	}

	s.update(func(st *State) {
		st.CurrentTask = task
		st.Loading = false
	})
}

// versionedPayload copies fields and attaches the loaded task's row_version
// when taskID is the loaded task.
func (s *Store) versionedPayload(taskID string, fields map[string]any) map[string]any {
	payload := make(map[string]any, len(fields)+1)
	maps.Copy(payload, fields)

	s.mu.Lock()
	current := s.state.CurrentTask
	s.mu.Unlock()

	if current != nil && current.ID == taskID {
		payload[RowVersionField] = current.RowVersion
	}
	return payload
}

// conflictMessage prefers the server's message over the generic one.
func (s *Store) conflictMessage(ce *api.ConflictError) string {
	if ce.Message != "" {
		return ce.Message
	}
	return s.msg(i18n.MsgConflict)
}

// UpdateTask writes a partial field set. It returns true after a successful
// write followed by a detail refetch. On a version conflict it sets
// State.Error, leaves CurrentTask alone and returns false without retrying.
func (s *Store) UpdateTask(ctx context.Context, taskID, callerID string, fields map[string]any) bool {
	payload := s.versionedPayload(taskID, fields)
	log := s.logger.WithTask(taskID).WithCaller(callerID)

	err := s.remote.UpdateTask(ctx, taskID, callerID, payload)
	if ce, ok := api.IsConflict(err); ok {
		log.Warn("version conflict", "row_version", payload[RowVersionField], "message", ce.Message)
		s.SetError(s.conflictMessage(ce))
		return false
	}
	if err != nil {
		log.Warn("update task failed", "error", err)
		s.SetError(s.msg(i18n.MsgUpdateTaskFailed))
		return false
	}

	log.Debug("task updated")
	s.FetchTaskDetail(ctx, taskID, callerID)
	return true
}

// UpdateTaskField writes a single field with the same version handling as
// UpdateTask. Unlike UpdateTask it refetches the detail after any completed
// exchange except a conflict, so a rejected non-conflict write still shows
// the server's current values.
func (s *Store) UpdateTaskField(ctx context.Context, taskID, callerID, field string, value any) bool {
	payload := s.versionedPayload(taskID, map[string]any{field: value})
	log := s.logger.WithTask(taskID).WithCaller(callerID)

	err := s.remote.UpdateTask(ctx, taskID, callerID, payload)
	if ce, ok := api.IsConflict(err); ok {
		log.Warn("version conflict", "field", field, "row_version", payload[RowVersionField])
		s.SetError(s.conflictMessage(ce))
		return false
	}
	if err != nil && errors.Is(err, api.ErrTransport) {
		log.Warn("update task field failed", "field", field, "error", err)
		s.SetError(s.msg(i18n.MsgUpdateTaskFailed))
		return false
	}

	s.FetchTaskDetail(ctx, taskID, callerID)
	if err != nil {
		log.Warn("update task field rejected", "field", field, "error", err)
		s.SetError(s.msg(i18n.MsgUpdateTaskFailed))
		return false
	}
	return true
}

// DeleteTask deletes the task. The task list is not touched; refetch it.
func (s *Store) DeleteTask(ctx context.Context, taskID, callerID string) bool {
	if err := s.remote.DeleteTask(ctx, taskID, callerID); err != nil {
		s.fail("delete_task", i18n.MsgDeleteTaskFailed, err)
		return false
	}
	return true
}

// ReorderTask asks the server to move the task up or down. The local list
// order is not changed; refetch the list to observe it.
func (s *Store) ReorderTask(ctx context.Context, taskID, callerID string, dir models.Direction) bool {
	if err := s.remote.ReorderTask(ctx, taskID, callerID, dir); err != nil {
		s.fail("reorder_task", i18n.MsgReorderFailed, err)
		return false
	}
	return true
}

// currentTaskID returns the loaded task's id, or "".
func (s *Store) currentTaskID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.CurrentTask == nil {
		return ""
	}
	return s.state.CurrentTask.ID
}

// afterChildMutation refetches the parent task once the server answered.
// Transport failures skip the refetch. HTTP failures refetch first so the
// error message survives the refetch clearing State.Error.
func (s *Store) afterChildMutation(ctx context.Context, op, parentID, callerID, failKey string, err error) bool {
	if err != nil && errors.Is(err, api.ErrTransport) {
		s.fail(op, failKey, err)
		return false
	}
	if parentID != "" {
		s.FetchTaskDetail(ctx, parentID, callerID)
	}
	if err != nil {
		s.fail(op, failKey, err)
		return false
	}
	return true
}

// AddSubtask creates a subtask under taskID and refetches that task
func (s *Store) AddSubtask(ctx context.Context, taskID, callerID string, in models.NewSubtask) bool {
	err := s.remote.CreateSubtask(ctx, taskID, callerID, in)
	return s.afterChildMutation(ctx, "add_subtask", taskID, callerID, i18n.MsgSubtaskFailed, err)
}

// UpdateSubtask writes subtask fields and refetches the loaded task
func (s *Store) UpdateSubtask(ctx context.Context, subID, callerID string, fields map[string]any) bool {
	err := s.remote.UpdateSubtask(ctx, subID, callerID, fields)
	return s.afterChildMutation(ctx, "update_subtask", s.currentTaskID(), callerID, i18n.MsgSubtaskFailed, err)
}

// DeleteSubtask removes a subtask and refetches the loaded task
func (s *Store) DeleteSubtask(ctx context.Context, subID, callerID string) bool {
	err := s.remote.DeleteSubtask(ctx, subID, callerID)
	return s.afterChildMutation(ctx, "delete_subtask", s.currentTaskID(), callerID, i18n.MsgSubtaskFailed, err)
}

// ReorderSubtask moves a subtask and refetches the loaded task
func (s *Store) ReorderSubtask(ctx context.Context, subID, callerID string, dir models.Direction) bool {
	err := s.remote.ReorderSubtask(ctx, subID, callerID, dir)
	return s.afterChildMutation(ctx, "reorder_subtask", s.currentTaskID(), callerID, i18n.MsgSubtaskFailed, err)
}

// ToggleStatus returns the status a toggle moves to: DONE becomes TODO,
// anything else becomes DONE.
func ToggleStatus(current string) string {
	if current == models.StatusDone {
		return models.StatusTodo
	}
	return models.StatusDone
}

// ToggleSubtask flips a subtask between DONE and TODO
func (s *Store) ToggleSubtask(ctx context.Context, subID, callerID, currentStatus string) bool {
	return s.UpdateSubtask(ctx, subID, callerID, map[string]any{"status_code": ToggleStatus(currentStatus)})
}

// AddComment appends a comment and refetches the task
func (s *Store) AddComment(ctx context.Context, taskID, callerID, content string) bool {
	err := s.remote.CreateComment(ctx, taskID, callerID, content)
	return s.afterChildMutation(ctx, "add_comment", taskID, callerID, i18n.MsgCommentFailed, err)
}

// AddTimeLog logs time and refetches the task
func (s *Store) AddTimeLog(ctx context.Context, taskID, callerID string, in models.NewTimeLog) bool {
	err := s.remote.CreateTimeLog(ctx, taskID, callerID, in)
	return s.afterChildMutation(ctx, "add_time_log", taskID, callerID, i18n.MsgTimeLogFailed, err)
}

// FetchHistory replaces History with the task's audit trail. It drives
// LoadingHistory only and leaves Loading alone.
func (s *Store) FetchHistory(ctx context.Context, taskID, callerID string) {
	s.update(func(st *State) { st.LoadingHistory = true })

	items, err := s.remote.TaskHistory(ctx, taskID, callerID)
	if err != nil {
		s.logger.Warn("fetch history failed", "task_id", taskID, "error", err)
		s.update(func(st *State) {
			st.Error = s.msg(i18n.MsgLoadHistoryFailed)
			st.LoadingHistory = false
		})
		return
	}

	s.update(func(st *State) {
		st.History = items
		st.LoadingHistory = false
	})
}
