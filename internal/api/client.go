// Package api is the HTTP client for the worksphere task API.
//
// Every call carries the caller identity in the x-user-id header. The client
// never inspects that value; it is supplied by whoever authenticated the user.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/tgienger/worksphere/internal/logging"
	"github.com/tgienger/worksphere/internal/models"
)

// HeaderCallerID carries the acting user's identity
const HeaderCallerID = "x-user-id"

// maxErrorBody caps how much of an error response is read
const maxErrorBody = 64 << 10

// Client talks to the task API rooted at baseURL
type Client struct {
	baseURL        string
	http           *http.Client
	logger         *logging.Logger
	acceptLanguage string
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger used for request tracing
func WithLogger(l *logging.Logger) Option {
	return func(c *Client) { c.logger = l.WithComponent("api") }
}

// WithAcceptLanguage asks the server for messages in lang
func WithAcceptLanguage(lang string) Option {
	return func(c *Client) { c.acceptLanguage = lang }
}

// NewClient creates a client for the API rooted at baseURL
// (for example http://localhost:8080/api).
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		logger:  logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type listEnvelope[T any] struct {
	Data []T `json:"data"`
}

type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

type reorderBody struct {
	Direction models.Direction `json:"direction"`
}

type commentBody struct {
	Content string `json:"content"`
}

// ListProjects returns every project visible to the caller
func (c *Client) ListProjects(ctx context.Context, callerID string) ([]models.Project, error) {
	var env listEnvelope[models.Project]
	if err := c.do(ctx, http.MethodGet, "/projects", callerID, nil, &env); err != nil {
		return nil, err
	}
	if env.Data == nil {
		return []models.Project{}, nil
	}
	return env.Data, nil
}

// ListProjectTasks returns the project's tasks in server order
func (c *Client) ListProjectTasks(ctx context.Context, projectID, callerID string) ([]models.Task, error) {
	var env listEnvelope[models.Task]
	if err := c.do(ctx, http.MethodGet, "/projects/"+url.PathEscape(projectID)+"/tasks", callerID, nil, &env); err != nil {
		return nil, err
	}
	if env.Data == nil {
		return []models.Task{}, nil
	}
	return env.Data, nil
}

// GetTask returns one task with subtasks, comments, attachments, tags and capabilities
func (c *Client) GetTask(ctx context.Context, taskID, callerID string) (*models.Task, error) {
	var task models.Task
	if err := c.do(ctx, http.MethodGet, taskPath(taskID), callerID, nil, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// CreateTask creates a task and returns it
func (c *Client) CreateTask(ctx context.Context, callerID string, in models.NewTask) (*models.Task, error) {
	var env struct {
		Data models.Task `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, "/tasks", callerID, in, &env); err != nil {
		return nil, err
	}
	return &env.Data, nil
}

// UpdateTask PUTs a partial field set. Include "row_version" in fields to
// make the write conditional; a stale version yields *ConflictError.
func (c *Client) UpdateTask(ctx context.Context, taskID, callerID string, fields map[string]any) error {
	return c.do(ctx, http.MethodPut, taskPath(taskID), callerID, fields, nil)
}

// DeleteTask moves the task to the recycle bin
func (c *Client) DeleteTask(ctx context.Context, taskID, callerID string) error {
	return c.do(ctx, http.MethodDelete, taskPath(taskID), callerID, nil, nil)
}

// ReorderTask moves the task one position among its siblings
func (c *Client) ReorderTask(ctx context.Context, taskID, callerID string, dir models.Direction) error {
	return c.do(ctx, http.MethodPatch, taskPath(taskID)+"/reorder", callerID, reorderBody{Direction: dir}, nil)
}

// CreateSubtask adds a subtask under taskID
func (c *Client) CreateSubtask(ctx context.Context, taskID, callerID string, in models.NewSubtask) error {
	return c.do(ctx, http.MethodPost, taskPath(taskID)+"/subtasks", callerID, in, nil)
}

// UpdateSubtask PUTs a partial field set on a subtask
func (c *Client) UpdateSubtask(ctx context.Context, subID, callerID string, fields map[string]any) error {
	return c.do(ctx, http.MethodPut, subtaskPath(subID), callerID, fields, nil)
}

// DeleteSubtask removes a subtask
func (c *Client) DeleteSubtask(ctx context.Context, subID, callerID string) error {
	return c.do(ctx, http.MethodDelete, subtaskPath(subID), callerID, nil, nil)
}

// ReorderSubtask moves the subtask one position among its siblings
func (c *Client) ReorderSubtask(ctx context.Context, subID, callerID string, dir models.Direction) error {
	return c.do(ctx, http.MethodPatch, subtaskPath(subID)+"/reorder", callerID, reorderBody{Direction: dir}, nil)
}

// CreateComment appends a comment to the task
func (c *Client) CreateComment(ctx context.Context, taskID, callerID, content string) error {
	return c.do(ctx, http.MethodPost, taskPath(taskID)+"/comments", callerID, commentBody{Content: content}, nil)
}

// CreateTimeLog logs time against the task or one of its subtasks
func (c *Client) CreateTimeLog(ctx context.Context, taskID, callerID string, in models.NewTimeLog) error {
	return c.do(ctx, http.MethodPost, taskPath(taskID)+"/time-logs", callerID, in, nil)
}

// TaskHistory returns the task's audit trail
func (c *Client) TaskHistory(ctx context.Context, taskID, callerID string) ([]models.HistoryItem, error) {
	var env listEnvelope[models.HistoryItem]
	if err := c.do(ctx, http.MethodGet, taskPath(taskID)+"/history", callerID, nil, &env); err != nil {
		return nil, err
	}
	if env.Data == nil {
		return []models.HistoryItem{}, nil
	}
	return env.Data, nil
}

func taskPath(id string) string    { return "/tasks/" + url.PathEscape(id) }
func subtaskPath(id string) string { return "/subtasks/" + url.PathEscape(id) }

// do performs one request/response exchange. out may be nil.
func (c *Client) do(ctx context.Context, method, path, callerID string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set(HeaderCallerID, callerID)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.acceptLanguage != "" {
		req.Header.Set("Accept-Language", c.acceptLanguage)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("request failed", "method", method, "path", path, "error", err)
		return fmt.Errorf("%w: %s %s: %v", ErrTransport, method, path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("request completed", "method", method, "path", path, "status", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := readErrorMessage(resp.Body)
		if resp.StatusCode == http.StatusConflict {
			return &ConflictError{Message: msg}
		}
		return &StatusError{StatusCode: resp.StatusCode, Message: msg}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s %s: %v", ErrTransport, method, path, err)
	}
	return nil
}

func readErrorMessage(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil || len(data) == 0 {
		return ""
	}
	var eb errorBody
	if err := json.Unmarshal(data, &eb); err != nil {
		return ""
	}
	if eb.Message != "" {
		return eb.Message
	}
	return eb.Error
}
