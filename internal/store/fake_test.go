package store

import (
	"context"
	"errors"
	"sync"

	"github.com/tgienger/worksphere/internal/api"
	"github.com/tgienger/worksphere/internal/models"
)

var errNetwork = errors.Join(api.ErrTransport, errors.New("connection refused"))

type recordedCall struct {
	Method   string
	ID       string
	CallerID string
	Fields   map[string]any
}

// fakeRemote implements Remote with overridable funcs and records every call
type fakeRemote struct {
	mu    sync.Mutex
	calls []recordedCall

	ListFunc          func(projectID string) ([]models.Task, error)
	GetFunc           func(taskID string) (*models.Task, error)
	UpdateFunc        func(taskID string, fields map[string]any) error
	DeleteFunc        func(taskID string) error
	ReorderFunc       func(taskID string, dir models.Direction) error
	CreateSubtaskFunc func(taskID string, in models.NewSubtask) error
	UpdateSubtaskFunc func(subID string, fields map[string]any) error
	DeleteSubtaskFunc func(subID string) error
	ReorderSubFunc    func(subID string, dir models.Direction) error
	CommentFunc       func(taskID, content string) error
	TimeLogFunc       func(taskID string, in models.NewTimeLog) error
	HistoryFunc       func(taskID string) ([]models.HistoryItem, error)
}

func (f *fakeRemote) record(method, id, callerID string, fields map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, recordedCall{Method: method, ID: id, CallerID: callerID, Fields: fields})
}

func (f *fakeRemote) callsTo(method string) []recordedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []recordedCall
	for _, c := range f.calls {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeRemote) ListProjectTasks(_ context.Context, projectID, callerID string) ([]models.Task, error) {
	f.record("ListProjectTasks", projectID, callerID, nil)
	if f.ListFunc != nil {
		return f.ListFunc(projectID)
	}
	return []models.Task{}, nil
}

func (f *fakeRemote) GetTask(_ context.Context, taskID, callerID string) (*models.Task, error) {
	f.record("GetTask", taskID, callerID, nil)
	if f.GetFunc != nil {
		return f.GetFunc(taskID)
	}
	return &models.Task{ID: taskID}, nil
}

func (f *fakeRemote) UpdateTask(_ context.Context, taskID, callerID string, fields map[string]any) error {
	f.record("UpdateTask", taskID, callerID, fields)
	if f.UpdateFunc != nil {
		return f.UpdateFunc(taskID, fields)
	}
	return nil
}

func (f *fakeRemote) DeleteTask(_ context.Context, taskID, callerID string) error {
	f.record("DeleteTask", taskID, callerID, nil)
	if f.DeleteFunc != nil {
		return f.DeleteFunc(taskID)
	}
	return nil
}

func (f *fakeRemote) ReorderTask(_ context.Context, taskID, callerID string, dir models.Direction) error {
	f.record("ReorderTask", taskID, callerID, map[string]any{"direction": dir})
	if f.ReorderFunc != nil {
		return f.ReorderFunc(taskID, dir)
	}
	return nil
}

func (f *fakeRemote) CreateSubtask(_ context.Context, taskID, callerID string, in models.NewSubtask) error {
	f.record("CreateSubtask", taskID, callerID, map[string]any{"title": in.Title, "end_date": in.EndDate})
	if f.CreateSubtaskFunc != nil {
		return f.CreateSubtaskFunc(taskID, in)
	}
	return nil
}

func (f *fakeRemote) UpdateSubtask(_ context.Context, subID, callerID string, fields map[string]any) error {
	f.record("UpdateSubtask", subID, callerID, fields)
	if f.UpdateSubtaskFunc != nil {
		return f.UpdateSubtaskFunc(subID, fields)
	}
	return nil
}

func (f *fakeRemote) DeleteSubtask(_ context.Context, subID, callerID string) error {
	f.record("DeleteSubtask", subID, callerID, nil)
	if f.DeleteSubtaskFunc != nil {
		return f.DeleteSubtaskFunc(subID)
	}
	return nil
}

func (f *fakeRemote) ReorderSubtask(_ context.Context, subID, callerID string, dir models.Direction) error {
	f.record("ReorderSubtask", subID, callerID, map[string]any{"direction": dir})
	if f.ReorderSubFunc != nil {
		return f.ReorderSubFunc(subID, dir)
	}
	return nil
}

func (f *fakeRemote) CreateComment(_ context.Context, taskID, callerID, content string) error {
	f.record("CreateComment", taskID, callerID, map[string]any{"content": content})
	if f.CommentFunc != nil {
		return f.CommentFunc(taskID, content)
	}
	return nil
}

func (f *fakeRemote) CreateTimeLog(_ context.Context, taskID, callerID string, in models.NewTimeLog) error {
	f.record("CreateTimeLog", taskID, callerID, map[string]any{"minutes": in.TotalMinutes()})
	if f.TimeLogFunc != nil {
		return f.TimeLogFunc(taskID, in)
	}
	return nil
}

func (f *fakeRemote) TaskHistory(_ context.Context, taskID, callerID string) ([]models.HistoryItem, error) {
	f.record("TaskHistory", taskID, callerID, nil)
	if f.HistoryFunc != nil {
		return f.HistoryFunc(taskID)
	}
	return []models.HistoryItem{}, nil
}
