package store

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tgienger/worksphere/internal/api"
	"github.com/tgienger/worksphere/internal/i18n"
	"github.com/tgienger/worksphere/internal/models"
)

func loadedStore(t *testing.T, remote *fakeRemote, task models.Task) *Store {
	t.Helper()
	s := New(remote, WithLanguage("en"))
	s.SetCurrentTask(&task)
	return s
}

func TestUpdateTaskAttachesRowVersionForLoadedTask(t *testing.T) {
	remote := &fakeRemote{}
	s := loadedStore(t, remote, models.Task{ID: "T1", RowVersion: 5})

	ok := s.UpdateTask(context.Background(), "T1", "u1", map[string]any{"title": "X"})
	require.True(t, ok)

	updates := remote.callsTo("UpdateTask")
	require.Len(t, updates, 1)
	assert.Equal(t, map[string]any{"title": "X", "row_version": int64(5)}, updates[0].Fields)
}

func TestUpdateTaskOmitsRowVersionForOtherTask(t *testing.T) {
	remote := &fakeRemote{}
	s := loadedStore(t, remote, models.Task{ID: "T1", RowVersion: 5})

	require.True(t, s.UpdateTask(context.Background(), "T2", "u1", map[string]any{"title": "X"}))

	updates := remote.callsTo("UpdateTask")
	require.Len(t, updates, 1)
	assert.NotContains(t, updates[0].Fields, RowVersionField)
}

func TestUpdateTaskDoesNotMutateCallerFields(t *testing.T) {
	remote := &fakeRemote{}
	s := loadedStore(t, remote, models.Task{ID: "T1", RowVersion: 2})
	fields := map[string]any{"title": "X"}

	s.UpdateTask(context.Background(), "T1", "u1", fields)

	assert.Equal(t, map[string]any{"title": "X"}, fields)
}

func TestUpdateTaskConflict(t *testing.T) {
	remote := &fakeRemote{
		UpdateFunc: func(string, map[string]any) error { return &api.ConflictError{Message: "X"} },
	}
	task := models.Task{ID: "T1", Title: "before", RowVersion: 3}
	s := loadedStore(t, remote, task)

	ok := s.UpdateTask(context.Background(), "T1", "u1", map[string]any{"title": "after"})

	assert.False(t, ok)
	st := s.Snapshot()
	assert.Equal(t, "X", st.Error)
	require.NotNil(t, st.CurrentTask)
	assert.Equal(t, task, *st.CurrentTask)
	assert.Empty(t, remote.callsTo("GetTask"))
	assert.Len(t, remote.callsTo("UpdateTask"), 1, "conflicts are never retried")
}

func TestUpdateTaskConflictWithoutMessageUsesLocalizedText(t *testing.T) {
	remote := &fakeRemote{
		UpdateFunc: func(string, map[string]any) error { return &api.ConflictError{} },
	}
	s := New(remote, WithLanguage("vi"))

	assert.False(t, s.UpdateTask(context.Background(), "T1", "u1", map[string]any{"title": "X"}))
	assert.Equal(t, "Xung đột dữ liệu. Vui lòng tải lại trang.", s.Snapshot().Error)
}

func TestUpdateTaskSuccessRefetchesOnce(t *testing.T) {
	remote := &fakeRemote{
		GetFunc: func(id string) (*models.Task, error) { return &models.Task{ID: id, RowVersion: 4}, nil },
	}
	s := loadedStore(t, remote, models.Task{ID: "T1", RowVersion: 3})

	ok := s.UpdateTask(context.Background(), "T1", "u1", map[string]any{"title": "X"})

	assert.True(t, ok)
	gets := remote.callsTo("GetTask")
	require.Len(t, gets, 1)
	assert.Equal(t, "T1", gets[0].ID)
	assert.Equal(t, "u1", gets[0].CallerID)
	assert.Equal(t, int64(4), s.Snapshot().CurrentTask.RowVersion)
}

func TestUpdateTaskGenericFailure(t *testing.T) {
	remote := &fakeRemote{
		UpdateFunc: func(string, map[string]any) error { return &api.StatusError{StatusCode: 500} },
	}
	s := loadedStore(t, remote, models.Task{ID: "T1", RowVersion: 3})

	assert.False(t, s.UpdateTask(context.Background(), "T1", "u1", map[string]any{"title": "X"}))
	assert.Equal(t, i18n.MsgUpdateTaskFailed, s.Snapshot().Error)
	assert.Empty(t, remote.callsTo("GetTask"))
}

func TestToggleSubtask(t *testing.T) {
	cases := map[string]string{
		models.StatusDone:       models.StatusTodo,
		models.StatusTodo:       models.StatusDone,
		models.StatusInProgress: models.StatusDone,
		"":                      models.StatusDone,
	}
	for current, want := range cases {
		remote := &fakeRemote{}
		s := New(remote)

		require.True(t, s.ToggleSubtask(context.Background(), "s1", "u1", current))

		calls := remote.callsTo("UpdateSubtask")
		require.Len(t, calls, 1, current)
		assert.Equal(t, map[string]any{"status_code": want}, calls[0].Fields, current)
	}
}

func TestFetchProjectTasksKeepsListOnFailure(t *testing.T) {
	first := []models.Task{{ID: "T2"}, {ID: "T1"}}
	fail := false
	remote := &fakeRemote{
		ListFunc: func(string) ([]models.Task, error) {
			if fail {
				return nil, errNetwork
			}
			return first, nil
		},
	}
	s := New(remote, WithLanguage("en"))

	s.FetchProjectTasks(context.Background(), "prj-1", "u1")
	assert.Equal(t, first, s.Snapshot().Tasks)

	fail = true
	s.FetchProjectTasks(context.Background(), "prj-1", "u1")

	st := s.Snapshot()
	assert.Equal(t, first, st.Tasks)
	assert.Equal(t, i18n.MsgLoadTasksFailed, st.Error)
	assert.False(t, st.Loading)
}

func TestFetchTaskDetailKeepsTaskOnFailure(t *testing.T) {
	remote := &fakeRemote{
		GetFunc: func(string) (*models.Task, error) { return nil, &api.StatusError{StatusCode: 404} },
	}
	s := loadedStore(t, remote, models.Task{ID: "T1", RowVersion: 9})

	s.FetchTaskDetail(context.Background(), "T1", "u1")

	st := s.Snapshot()
	assert.Equal(t, int64(9), st.CurrentTask.RowVersion)
	assert.Equal(t, i18n.MsgLoadTaskFailed, st.Error)
	assert.False(t, st.Loading)
}

func TestLoadingFlagsAreIndependent(t *testing.T) {
	var s *Store
	var duringHistory, duringList, duringDetail State
	remote := &fakeRemote{
		HistoryFunc: func(string) ([]models.HistoryItem, error) {
			duringHistory = s.Snapshot()
			return []models.HistoryItem{{ID: "h1"}}, nil
		},
		ListFunc: func(string) ([]models.Task, error) {
			duringList = s.Snapshot()
			return []models.Task{}, nil
		},
		GetFunc: func(id string) (*models.Task, error) {
			duringDetail = s.Snapshot()
			return &models.Task{ID: id}, nil
		},
	}
	s = New(remote)

	s.FetchHistory(context.Background(), "T1", "u1")
	assert.True(t, duringHistory.LoadingHistory)
	assert.False(t, duringHistory.Loading)

	s.FetchProjectTasks(context.Background(), "prj-1", "u1")
	assert.True(t, duringList.Loading)
	assert.False(t, duringList.LoadingHistory)

	s.FetchTaskDetail(context.Background(), "T1", "u1")
	assert.True(t, duringDetail.Loading)
	assert.False(t, duringDetail.LoadingHistory)

	st := s.Snapshot()
	assert.False(t, st.Loading)
	assert.False(t, st.LoadingHistory)
	assert.Len(t, st.History, 1)
}

func TestFetchHistoryFailureKeepsHistory(t *testing.T) {
	calls := 0
	remote := &fakeRemote{
		HistoryFunc: func(string) ([]models.HistoryItem, error) {
			calls++
			if calls > 1 {
				return nil, errNetwork
			}
			return []models.HistoryItem{{ID: "h1"}}, nil
		},
	}
	s := New(remote, WithLanguage("en"))

	s.FetchHistory(context.Background(), "T1", "u1")
	s.FetchHistory(context.Background(), "T1", "u1")

	st := s.Snapshot()
	assert.Len(t, st.History, 1)
	assert.Equal(t, i18n.MsgLoadHistoryFailed, st.Error)
	assert.False(t, st.LoadingHistory)
}

func TestDeleteAndReorderDoNotTouchList(t *testing.T) {
	remote := &fakeRemote{}
	s := New(remote)
	list := []models.Task{{ID: "T1"}, {ID: "T2"}}
	s.SetTasks(list)

	assert.True(t, s.DeleteTask(context.Background(), "T1", "u1"))
	assert.True(t, s.ReorderTask(context.Background(), "T2", "u1", models.DirectionUp))

	assert.Equal(t, list, s.Snapshot().Tasks)
	assert.Empty(t, remote.callsTo("ListProjectTasks"))
	assert.Equal(t, models.DirectionUp, remote.callsTo("ReorderTask")[0].Fields["direction"])
}

func TestDeleteTaskFailure(t *testing.T) {
	remote := &fakeRemote{
		DeleteFunc: func(string) error { return &api.StatusError{StatusCode: 403} },
	}
	s := New(remote, WithLanguage("en"))

	assert.False(t, s.DeleteTask(context.Background(), "T1", "u1"))
	assert.Equal(t, i18n.MsgDeleteTaskFailed, s.Snapshot().Error)
}

func TestSubtaskMutationsRefetchLoadedTask(t *testing.T) {
	remote := &fakeRemote{}
	s := loadedStore(t, remote, models.Task{ID: "T1"})
	ctx := context.Background()

	require.True(t, s.UpdateSubtask(ctx, "s1", "u1", map[string]any{"title": "x"}))
	require.True(t, s.DeleteSubtask(ctx, "s1", "u1"))
	require.True(t, s.ReorderSubtask(ctx, "s2", "u1", models.DirectionDown))

	gets := remote.callsTo("GetTask")
	require.Len(t, gets, 3)
	for _, g := range gets {
		assert.Equal(t, "T1", g.ID)
	}
}

func TestSubtaskMutationWithoutLoadedTaskSkipsRefetch(t *testing.T) {
	remote := &fakeRemote{}
	s := New(remote)

	require.True(t, s.UpdateSubtask(context.Background(), "s1", "u1", map[string]any{"title": "x"}))
	assert.Empty(t, remote.callsTo("GetTask"))
}

func TestAddSubtaskCommentAndTimeLogRefetchGivenTask(t *testing.T) {
	remote := &fakeRemote{}
	s := New(remote)
	ctx := context.Background()

	require.True(t, s.AddSubtask(ctx, "T7", "u1", models.NewSubtask{Title: "a"}))
	require.True(t, s.AddComment(ctx, "T7", "u1", "hi"))
	require.True(t, s.AddTimeLog(ctx, "T7", "u1", models.NewTimeLog{Hours: 1, Minutes: 15, LogDate: "2025-01-20"}))

	gets := remote.callsTo("GetTask")
	require.Len(t, gets, 3)
	for _, g := range gets {
		assert.Equal(t, "T7", g.ID)
	}
	assert.Equal(t, 75, remote.callsTo("CreateTimeLog")[0].Fields["minutes"])
}

func TestChildMutationTransportFailure(t *testing.T) {
	remote := &fakeRemote{
		CommentFunc: func(string, string) error { return errNetwork },
	}
	s := loadedStore(t, remote, models.Task{ID: "T1"})

	assert.False(t, s.AddComment(context.Background(), "T1", "u1", "hi"))
	assert.Equal(t, i18n.MsgCommentFailed, s.Snapshot().Error)
	assert.Empty(t, remote.callsTo("GetTask"))
}

func TestChildMutationHTTPFailureRefetchesAndKeepsError(t *testing.T) {
	remote := &fakeRemote{
		TimeLogFunc: func(string, models.NewTimeLog) error { return &api.StatusError{StatusCode: 423} },
	}
	s := loadedStore(t, remote, models.Task{ID: "T1"})

	assert.False(t, s.AddTimeLog(context.Background(), "T1", "u1", models.NewTimeLog{Minutes: 5}))
	assert.Len(t, remote.callsTo("GetTask"), 1)
	assert.Equal(t, i18n.MsgTimeLogFailed, s.Snapshot().Error)
}

func TestUpdateTaskFieldStatusErrorStillRefetches(t *testing.T) {
	remote := &fakeRemote{
		UpdateFunc: func(string, map[string]any) error { return &api.StatusError{StatusCode: 403} },
	}
	s := loadedStore(t, remote, models.Task{ID: "T1", RowVersion: 1})

	assert.False(t, s.UpdateTaskField(context.Background(), "T1", "u1", "title", "X"))
	assert.Len(t, remote.callsTo("GetTask"), 1)
	assert.Equal(t, i18n.MsgUpdateTaskFailed, s.Snapshot().Error)
}

func TestUpdateTaskFieldConflictDoesNotRefetch(t *testing.T) {
	remote := &fakeRemote{
		UpdateFunc: func(string, map[string]any) error { return &api.ConflictError{Message: "stale"} },
	}
	s := loadedStore(t, remote, models.Task{ID: "T1", RowVersion: 1})

	assert.False(t, s.UpdateTaskField(context.Background(), "T1", "u1", "status_code", "DONE"))
	assert.Empty(t, remote.callsTo("GetTask"))
	assert.Equal(t, "stale", s.Snapshot().Error)
	assert.Equal(t, map[string]any{"status_code": "DONE", "row_version": int64(1)}, remote.callsTo("UpdateTask")[0].Fields)
}

func TestSubscribeAndReset(t *testing.T) {
	s := New(&fakeRemote{})
	var mu sync.Mutex
	var seen []State
	unsubscribe := s.Subscribe(func(st State) {
		mu.Lock()
		seen = append(seen, st)
		mu.Unlock()
	})

	s.SetError("boom")
	s.Reset()
	unsubscribe()
	s.SetError("ignored")

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 2)
	assert.Equal(t, "boom", seen[0].Error)
	assert.Equal(t, "", seen[1].Error)
	assert.Nil(t, seen[1].CurrentTask)
	assert.NotNil(t, seen[1].Tasks)
}

// taskServer is a minimal HTTP task API holding one task.
type taskServer struct {
	mu          sync.Mutex
	task        models.Task
	putStatus   int
	putBody     string
	detailGets  atomic.Int32
	lastPutBody map[string]any
}

func (ts *taskServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if r.Header.Get(api.HeaderCallerID) == "" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	switch r.Method {
	case http.MethodGet:
		ts.detailGets.Add(1)
		_ = json.NewEncoder(w).Encode(ts.task)
	case http.MethodPut:
		ts.lastPutBody = map[string]any{}
		_ = json.NewDecoder(r.Body).Decode(&ts.lastPutBody)
		if ts.putStatus != http.StatusOK {
			w.WriteHeader(ts.putStatus)
			_, _ = w.Write([]byte(ts.putBody))
			return
		}
		for k, v := range ts.lastPutBody {
			if k == "status_code" {
				ts.task.StatusCode = v.(string)
			}
			if k == "title" {
				ts.task.Title = v.(string)
			}
		}
		ts.task.RowVersion++
		_, _ = w.Write([]byte(`{"success":true}`))
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newScenario(t *testing.T, ts *taskServer) *Store {
	t.Helper()
	srv := httptest.NewServer(ts)
	t.Cleanup(srv.Close)
	return New(api.NewClient(srv.URL), WithLanguage("en"))
}

func TestScenarioFieldUpdateAdvancesRowVersion(t *testing.T) {
	ts := &taskServer{task: models.Task{ID: "T1", StatusCode: "TODO", RowVersion: 3}, putStatus: http.StatusOK}
	s := newScenario(t, ts)
	ctx := context.Background()

	s.FetchTaskDetail(ctx, "T1", "u1")
	require.Equal(t, int64(3), s.Snapshot().CurrentTask.RowVersion)

	ok := s.UpdateTaskField(ctx, "T1", "u1", "status_code", "DONE")

	require.True(t, ok)
	st := s.Snapshot()
	assert.Equal(t, int64(4), st.CurrentTask.RowVersion)
	assert.Equal(t, "DONE", st.CurrentTask.StatusCode)
	assert.Equal(t, "", st.Error)
	assert.EqualValues(t, 3, ts.lastPutBody["row_version"])
	assert.EqualValues(t, 2, ts.detailGets.Load())
}

func TestScenarioConflictKeepsRowVersion(t *testing.T) {
	ts := &taskServer{
		task:      models.Task{ID: "T1", Title: "old", RowVersion: 3},
		putStatus: http.StatusConflict,
		putBody:   `{"message":"Conflict"}`,
	}
	s := newScenario(t, ts)
	ctx := context.Background()

	s.FetchTaskDetail(ctx, "T1", "u1")
	ok := s.UpdateTask(ctx, "T1", "u1", map[string]any{"title": "X"})

	assert.False(t, ok)
	st := s.Snapshot()
	assert.Equal(t, int64(3), st.CurrentTask.RowVersion)
	assert.Equal(t, "old", st.CurrentTask.Title)
	assert.Equal(t, "Conflict", st.Error)
	assert.EqualValues(t, 1, ts.detailGets.Load())
}
