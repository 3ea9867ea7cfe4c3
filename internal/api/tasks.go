package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/mistakeknot/taskdeck/internal/task"
)

// TaskService is the typed gateway to the backend's task endpoints.
type TaskService struct {
	c *Client
}

// TaskDraft carries the fields of a new task.
type TaskDraft struct {
	Title       string
	Description string
	Priority    task.Priority
	DueDate     string
}

// TaskUpdate carries the full field set sent on update. Mutations
// always send the complete current state so the backend never sees a
// partial row.
type TaskUpdate struct {
	Title       string
	Description string
	Completed   bool
	Priority    task.Priority
	DueDate     string
	Version     int
}

// flexID decodes an identifier that the backend may transport as
// either a JSON number or a string.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

// taskPayload is the wire shape of a task.
type taskPayload struct {
	ID          flexID          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Status      bool            `json:"status"`
	Priority    int             `json:"priority"`
	DueDate     string          `json:"due_date"`
	CreatedAt   string          `json:"created_at"`
	UpdatedAt   string          `json:"updated_at"`
	Version     int             `json:"version"`
	MetaData    json.RawMessage `json:"meta_data"`
}

func (p taskPayload) toTask() task.Task {
	return task.Task{
		ID:          string(p.ID),
		Title:       p.Title,
		Description: p.Description,
		Completed:   p.Status,
		Priority:    task.PriorityFromWire(p.Priority),
		DueDate:     p.DueDate,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
		Version:     p.Version,
		Meta:        p.MetaData,
	}
}

// List fetches all tasks for the current user. The backend may return
// a bare array or an object with a "tasks" property; both are
// accepted.
func (s *TaskService) List(ctx context.Context) ([]task.Task, error) {
	var raw json.RawMessage
	if err := s.c.do(ctx, http.MethodGet, "/api/tasks/", nil, &raw); err != nil {
		return nil, err
	}

	var payloads []taskPayload
	if err := json.Unmarshal(raw, &payloads); err != nil {
		// Any JSON object decodes into the wrapper, so require the
		// "tasks" key to actually be present before trusting it.
		var wrapper struct {
			Tasks json.RawMessage `json:"tasks"`
		}
		if err := json.Unmarshal(raw, &wrapper); err != nil || wrapper.Tasks == nil || string(wrapper.Tasks) == "null" {
			return nil, fmt.Errorf("list tasks: %w", ErrBadShape)
		}
		if err := json.Unmarshal(wrapper.Tasks, &payloads); err != nil {
			return nil, fmt.Errorf("list tasks: %w", ErrBadShape)
		}
	}

	tasks := make([]task.Task, len(payloads))
	for i, p := range payloads {
		tasks[i] = p.toTask()
	}
	return tasks, nil
}

// Create creates a task from a validated draft.
func (s *TaskService) Create(ctx context.Context, draft TaskDraft) (task.Task, error) {
	t := task.Task{Title: draft.Title, Description: draft.Description, Priority: draft.Priority}
	if err := t.Validate(); err != nil {
		return task.Task{}, err
	}
	body := map[string]any{
		"title":       draft.Title,
		"description": draft.Description,
		"priority":    draft.Priority.Wire(),
	}
	if draft.DueDate != "" {
		body["due_date"] = draft.DueDate
	}
	var payload taskPayload
	if err := s.c.do(ctx, http.MethodPost, "/api/tasks/", body, &payload); err != nil {
		return task.Task{}, err
	}
	return payload.toTask(), nil
}

// Update replaces a task's fields. The identifier is validated before
// anything touches the network; a 409 response means the task was
// modified by another writer.
func (s *TaskService) Update(ctx context.Context, id string, u TaskUpdate) (task.Task, error) {
	if !task.ValidID(id) {
		return task.Task{}, fmt.Errorf("update task %q: %w", id, ErrInvalidTaskID)
	}
	body := map[string]any{
		"title":       u.Title,
		"description": u.Description,
		"status":      u.Completed,
		"priority":    u.Priority.Wire(),
	}
	if u.DueDate != "" {
		body["due_date"] = u.DueDate
	}
	if u.Version > 0 {
		body["version"] = u.Version
	}
	var payload taskPayload
	if err := s.c.do(ctx, http.MethodPut, "/api/tasks/"+id, body, &payload); err != nil {
		return task.Task{}, err
	}
	return payload.toTask(), nil
}

// Delete removes a task. Deletion is irreversible, so the id check
// fails closed here even though callers validate too.
func (s *TaskService) Delete(ctx context.Context, id string) error {
	if !task.ValidID(id) {
		return fmt.Errorf("delete task %q: %w", id, ErrInvalidTaskID)
	}
	return s.c.do(ctx, http.MethodDelete, "/api/tasks/"+id, nil, nil)
}
