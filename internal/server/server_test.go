package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/tgienger/worksphere/internal/api"
	"github.com/tgienger/worksphere/internal/db"
	"github.com/tgienger/worksphere/internal/i18n"
	"github.com/tgienger/worksphere/internal/logging"
	"github.com/tgienger/worksphere/internal/models"
	"github.com/tgienger/worksphere/internal/store"
)

type testEnv struct {
	db  *db.DB
	srv *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	database, err := db.New(filepath.Join(t.TempDir(), "worksphere.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	require.NoError(t, database.Seed())

	srv := httptest.NewServer(New(database, WithLogger(logging.NopLogger())).Handler())
	t.Cleanup(srv.Close)
	return &testEnv{db: database, srv: srv}
}

func (e *testEnv) firstTaskID(t *testing.T) string {
	t.Helper()
	tasks, err := e.db.ListProjectTasks(db.SeedProjectID, models.User{ID: db.SeedAdminID, Role: models.RoleAdmin})
	require.NoError(t, err)
	require.NotEmpty(t, tasks)
	return tasks[0].ID
}

func (e *testEnv) request(t *testing.T, method, path, callerID string, body any, headers ...string) (int, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, e.srv.URL+path, reader)
	require.NoError(t, err)
	if callerID != "" {
		req.Header.Set(api.HeaderCallerID, callerID)
	}
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	status, body := env.request(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}

func TestIdentityRequired(t *testing.T) {
	env := newTestEnv(t)
	path := "/api/projects/" + db.SeedProjectID + "/tasks"

	status, body := env.request(t, http.MethodGet, path, "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, i18n.MsgMissingIdentity, body["message"])

	status, body = env.request(t, http.MethodGet, path, "ghost", nil, "Accept-Language", "vi-VN,vi;q=0.9")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Người dùng không tồn tại", body["message"])

	status, body = env.request(t, http.MethodGet, path, db.SeedPMID, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Len(t, body["data"], 3)
}

func TestUpdateTaskStatusMapping(t *testing.T) {
	env := newTestEnv(t)
	id := env.firstTaskID(t)

	tests := []struct {
		name    string
		caller  string
		path    string
		body    map[string]any
		status  int
		message string
	}{
		{"unknown field", db.SeedPMID, "/api/tasks/" + id, map[string]any{"bogus": 1}, http.StatusBadRequest, i18n.MsgInvalidRequest},
		{"fractional version", db.SeedPMID, "/api/tasks/" + id, map[string]any{"title": "x", "row_version": 1.5}, http.StatusBadRequest, i18n.MsgInvalidRequest},
		{"forbidden field", db.SeedEmployeeID, "/api/tasks/" + id, map[string]any{"title": "x"}, http.StatusForbidden, "You may not edit field title"},
		{"stale version", db.SeedPMID, "/api/tasks/" + id, map[string]any{"title": "x", "row_version": 0}, http.StatusConflict, i18n.MsgConflict},
		{"missing task", db.SeedPMID, "/api/tasks/missing", map[string]any{"title": "x"}, http.StatusNotFound, i18n.MsgTaskNotFound},
		{"missing subtask", db.SeedPMID, "/api/subtasks/missing", map[string]any{"title": "x"}, http.StatusNotFound, i18n.MsgSubtaskNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := env.request(t, http.MethodPut, tt.path, tt.caller, tt.body)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.message, body["message"])
		})
	}
}

func TestEmployeeHiddenTaskIs404(t *testing.T) {
	env := newTestEnv(t)
	tasks, err := env.db.ListProjectTasks(db.SeedProjectID, models.User{ID: db.SeedAdminID, Role: models.RoleAdmin})
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	hidden := "/api/tasks/" + tasks[2].ID

	tests := []struct {
		name   string
		method string
		path   string
		body   any
	}{
		{"get", http.MethodGet, hidden, nil},
		{"history", http.MethodGet, hidden + "/history", nil},
		{"comment", http.MethodPost, hidden + "/comments", map[string]any{"content": "hi"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := env.request(t, tt.method, tt.path, db.SeedEmployeeID, tt.body)
			assert.Equal(t, http.StatusNotFound, status)
			assert.Equal(t, i18n.MsgTaskNotFound, body["message"])
		})
	}

	status, _ := env.request(t, http.MethodGet, hidden, db.SeedPMID, nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = env.request(t, http.MethodGet, hidden+"/history", db.SeedPMID, nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestEmployeeReorderKeepsHiddenTask(t *testing.T) {
	env := newTestEnv(t)
	admin := models.User{ID: db.SeedAdminID, Role: models.RoleAdmin}
	tasks, err := env.db.ListProjectTasks(db.SeedProjectID, admin)
	require.NoError(t, err)
	hidden, err := env.db.GetTask(tasks[2].ID, admin)
	require.NoError(t, err)

	status, _ := env.request(t, http.MethodPatch, "/api/tasks/"+tasks[1].ID+"/reorder", db.SeedEmployeeID,
		map[string]any{"direction": models.DirectionDown})
	require.Equal(t, http.StatusNoContent, status)

	after, err := env.db.GetTask(tasks[2].ID, admin)
	require.NoError(t, err)
	assert.Equal(t, hidden.RowVersion, after.RowVersion)
	assert.Equal(t, hidden.OrderIndex, after.OrderIndex)
}

func TestUnknownProjectIs404(t *testing.T) {
	env := newTestEnv(t)
	for _, path := range []string{"/api/projects/missing/tasks", "/api/projects/missing/recycle-bin"} {
		status, body := env.request(t, http.MethodGet, path, db.SeedPMID, nil)
		assert.Equal(t, http.StatusNotFound, status, path)
		assert.Equal(t, i18n.MsgProjectNotFound, body["message"], path)
	}

	status, body := env.request(t, http.MethodGet, "/api/projects/missing/tasks", db.SeedPMID, nil, "Accept-Language", "vi")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Không tìm thấy dự án", body["message"])
}

func TestUpdateTaskVersioning(t *testing.T) {
	env := newTestEnv(t)
	id := env.firstTaskID(t)

	status, task := env.request(t, http.MethodGet, "/api/tasks/"+id, db.SeedPMID, nil)
	require.Equal(t, http.StatusOK, status)
	v := task["row_version"].(float64)

	status, body := env.request(t, http.MethodPut, "/api/tasks/"+id, db.SeedPMID, map[string]any{"title": "A", "row_version": v})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, v+1, body["row_version"])

	status, _ = env.request(t, http.MethodPut, "/api/tasks/"+id, db.SeedPMID, map[string]any{"title": "B", "row_version": v})
	assert.Equal(t, http.StatusConflict, status)

	// without a version the write is unconditional
	status, body = env.request(t, http.MethodPut, "/api/tasks/"+id, db.SeedPMID, map[string]any{"title": "C"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, v+2, body["row_version"])
}

func TestLockedTaskReturns423(t *testing.T) {
	env := newTestEnv(t)
	id := env.firstTaskID(t)

	status, _ := env.request(t, http.MethodPut, "/api/tasks/"+id+"/lock", db.SeedEmployeeID, map[string]any{"locked": true})
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = env.request(t, http.MethodPut, "/api/tasks/"+id+"/lock", db.SeedPMID, map[string]any{"locked": true})
	require.Equal(t, http.StatusNoContent, status)

	status, body := env.request(t, http.MethodPut, "/api/tasks/"+id, db.SeedPMID, map[string]any{"title": "x"})
	assert.Equal(t, http.StatusLocked, status)
	assert.Equal(t, i18n.MsgTaskLocked, body["message"])
}

func TestDeleteRestoreAndRecycleBin(t *testing.T) {
	env := newTestEnv(t)
	id := env.firstTaskID(t)

	status, _ := env.request(t, http.MethodDelete, "/api/tasks/"+id, db.SeedPMID, nil)
	require.Equal(t, http.StatusNoContent, status)

	status, _ = env.request(t, http.MethodGet, "/api/tasks/"+id, db.SeedPMID, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, body := env.request(t, http.MethodGet, "/api/projects/"+db.SeedProjectID+"/recycle-bin", db.SeedPMID, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["data"], 1)

	status, _ = env.request(t, http.MethodPost, "/api/tasks/"+id+"/restore", db.SeedPMID, nil)
	require.Equal(t, http.StatusNoContent, status)
	status, _ = env.request(t, http.MethodGet, "/api/tasks/"+id, db.SeedPMID, nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestCreateTask(t *testing.T) {
	env := newTestEnv(t)
	client := api.NewClient(env.srv.URL + "/api")

	task, err := client.CreateTask(context.Background(), db.SeedPMID, models.NewTask{
		ProjectID: db.SeedProjectID, Title: "Chuẩn bị demo", DueDate: "2026-04-01",
	})
	require.NoError(t, err)
	assert.Equal(t, "Chuẩn bị demo", task.Title)
	assert.Equal(t, int64(1), task.RowVersion)

	_, err = client.CreateTask(context.Background(), db.SeedPMID, models.NewTask{ProjectID: db.SeedProjectID})
	se, ok := api.IsStatus(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, se.StatusCode)
}

// Two clients load the same task; the second write carries a stale version.
func TestStoresConflictEndToEnd(t *testing.T) {
	env := newTestEnv(t)
	id := env.firstTaskID(t)
	ctx := context.Background()

	newStore := func() *store.Store {
		client := api.NewClient(env.srv.URL+"/api", api.WithAcceptLanguage("vi"))
		return store.New(client, store.WithLanguage("vi"))
	}
	a, b := newStore(), newStore()
	a.FetchTaskDetail(ctx, id, db.SeedPMID)
	b.FetchTaskDetail(ctx, id, db.SeedPMID)
	loaded := a.Snapshot().CurrentTask.RowVersion
	require.Equal(t, loaded, b.Snapshot().CurrentTask.RowVersion)

	require.True(t, a.UpdateTask(ctx, id, db.SeedPMID, map[string]any{"title": "From A"}))
	assert.Equal(t, loaded+1, a.Snapshot().CurrentTask.RowVersion)
	assert.Empty(t, a.Snapshot().Error)

	assert.False(t, b.UpdateTask(ctx, id, db.SeedPMID, map[string]any{"title": "From B"}))
	st := b.Snapshot()
	assert.Equal(t, "Xung đột dữ liệu. Vui lòng tải lại trang.", st.Error)
	assert.Equal(t, loaded, st.CurrentTask.RowVersion, "no refetch after a conflict")

	// reloading picks up A's write and the next edit succeeds
	b.FetchTaskDetail(ctx, id, db.SeedPMID)
	assert.Equal(t, "From A", b.Snapshot().CurrentTask.Title)
	require.True(t, b.UpdateTask(ctx, id, db.SeedPMID, map[string]any{"title": "From B"}))
	assert.Equal(t, loaded+2, b.Snapshot().CurrentTask.RowVersion)
}

func TestStoreChildMutationsEndToEnd(t *testing.T) {
	env := newTestEnv(t)
	id := env.firstTaskID(t)
	ctx := context.Background()

	s := store.New(api.NewClient(env.srv.URL + "/api"))
	s.FetchTaskDetail(ctx, id, db.SeedEmployeeID)
	before := s.Snapshot().CurrentTask
	require.NotNil(t, before)

	require.True(t, s.AddSubtask(ctx, id, db.SeedEmployeeID, models.NewSubtask{Title: "Kiểm thử"}))
	after := s.Snapshot().CurrentTask
	assert.Len(t, after.Subtasks, len(before.Subtasks)+1)
	assert.Greater(t, after.RowVersion, before.RowVersion)

	sub := after.Subtasks[0]
	require.True(t, s.ToggleSubtask(ctx, sub.ID, db.SeedEmployeeID, sub.StatusCode))
	assert.Equal(t, models.StatusDone, s.Snapshot().CurrentTask.Subtasks[0].StatusCode)

	require.True(t, s.AddComment(ctx, id, db.SeedEmployeeID, "Xong phần wireframe"))
	require.True(t, s.AddTimeLog(ctx, id, db.SeedEmployeeID, models.NewTimeLog{Hours: 2, LogDate: "2026-01-07"}))
	assert.Equal(t, 120, s.Snapshot().CurrentTask.TotalLoggedMinutes)

	s.FetchHistory(ctx, id, db.SeedEmployeeID)
	history := s.Snapshot().History
	require.NotEmpty(t, history)
	assert.Equal(t, "logged time", history[0].ActionText)

	// employees may not delete tasks they did not create
	assert.False(t, s.DeleteTask(ctx, id, db.SeedEmployeeID))
	assert.NotEmpty(t, s.Snapshot().Error)
}

func TestAutolockerRunOnce(t *testing.T) {
	env := newTestEnv(t)
	id := env.firstTaskID(t)

	status, _ := env.request(t, http.MethodPut, "/api/tasks/"+id, db.SeedPMID, map[string]any{"status_code": models.StatusDone})
	require.Equal(t, http.StatusOK, status)

	a, err := NewAutolocker(env.db, "59 23 * * 0", logging.NopLogger())
	require.NoError(t, err)
	fixed := time.Date(2026, 3, 1, 23, 59, 0, 0, time.UTC)
	a.now = func() time.Time { return fixed }

	n, err := a.RunOnce()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	last, err := env.db.GetSetting(SettingAutolockLastRun)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-01T23:59:00Z", last)

	status, _ = env.request(t, http.MethodPut, "/api/tasks/"+id, db.SeedPMID, map[string]any{"title": "late"})
	assert.Equal(t, http.StatusLocked, status)
}

func TestNewAutolockerRejectsBadSchedule(t *testing.T) {
	env := newTestEnv(t)
	_, err := NewAutolocker(env.db, "every tuesday", logging.NopLogger())
	assert.Error(t, err)
}

func TestDefaultLanguageOption(t *testing.T) {
	database, err := db.New(filepath.Join(t.TempDir(), "worksphere.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	srv := httptest.NewServer(New(database, WithLanguage(language.Vietnamese)).Handler())
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/api/tasks/x")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Thiếu thông tin người dùng", body["message"])
}
