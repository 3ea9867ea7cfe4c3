// Package tasklist owns the in-memory task collection and all
// mutation orchestration against the backend. Optimistic writes are
// applied locally first, then reconciled or rolled back when the
// gateway call settles.
package tasklist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mistakeknot/taskdeck/internal/api"
	"github.com/mistakeknot/taskdeck/internal/task"
)

// ErrMutationPending is returned when a mutation targets a row whose
// previous mutation has not settled yet.
var ErrMutationPending = errors.New("mutation already pending for this task")

// Gateway is the slice of the task API the controller needs.
type Gateway interface {
	List(ctx context.Context) ([]task.Task, error)
	Create(ctx context.Context, draft api.TaskDraft) (task.Task, error)
	Update(ctx context.Context, id string, u api.TaskUpdate) (task.Task, error)
	Delete(ctx context.Context, id string) error
}

// Listener receives change notifications from the controller. The
// dashboard aggregator registers here: TasksChanged feeds its
// optimistic counts, RefreshStats triggers the authoritative fetch.
type Listener interface {
	TasksChanged(tasks []task.Task)
	RefreshStats(ctx context.Context)
}

// Controller is the single source of truth for the visible task list.
// All exported methods are safe for concurrent use.
type Controller struct {
	gw  Gateway
	log *slog.Logger

	mu        sync.RWMutex
	tasks     []task.Task
	pending   map[string]bool
	listeners []Listener

	consolidating     bool
	consolidateQueued bool
}

// New returns a controller backed by the given gateway.
func New(gw Gateway, log *slog.Logger) *Controller {
	if log == nil {
		log = slog.Default()
	}
	return &Controller{
		gw:      gw,
		log:     log,
		pending: make(map[string]bool),
	}
}

// AddListener registers a listener for task and stats notifications.
func (c *Controller) AddListener(l Listener) {
	c.mu.Lock()
	c.listeners = append(c.listeners, l)
	c.mu.Unlock()
}

// Tasks returns a copy of the current in-memory list.
func (c *Controller) Tasks() []task.Task {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]task.Task, len(c.tasks))
	copy(out, c.tasks)
	return out
}

// Pending reports whether a mutation on the given row is still in
// flight.
func (c *Controller) Pending(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pending[id]
}

// Refresh replaces the entire list with the server's response. On
// gateway failure the list is cleared rather than left stale; an
// obviously-empty view beats a silently wrong one.
func (c *Controller) Refresh(ctx context.Context) error {
	tasks, err := c.gw.List(ctx)
	if err != nil {
		c.log.Error("task refresh failed", "error", err, "kind", api.Classify(err))
		c.setTasks(nil)
		return err
	}
	c.setTasks(tasks)
	return nil
}

// Toggle flips a task's completion state optimistically, then sends
// the full field set to the backend. On success the local flip is
// kept as-is; the response may lag and is never merged back. On
// failure the flip is reverted and a full refresh restores server
// truth.
func (c *Controller) Toggle(ctx context.Context, id string) error {
	c.mu.Lock()
	if c.pending[id] {
		c.mu.Unlock()
		return fmt.Errorf("toggle task %s: %w", id, ErrMutationPending)
	}
	idx := c.indexLocked(id)
	if idx < 0 {
		c.mu.Unlock()
		return fmt.Errorf("toggle: no task with id %s", id)
	}
	c.tasks[idx].Completed = !c.tasks[idx].Completed
	flipped := c.tasks[idx]
	c.pending[id] = true
	tasks := c.snapshotLocked()
	listeners := c.listeners
	c.mu.Unlock()

	for _, l := range listeners {
		l.TasksChanged(tasks)
	}

	_, err := c.gw.Update(ctx, id, api.TaskUpdate{
		Title:       flipped.Title,
		Description: flipped.Description,
		Completed:   flipped.Completed,
		Priority:    flipped.Priority,
		DueDate:     flipped.DueDate,
		Version:     flipped.Version,
	})

	c.mu.Lock()
	delete(c.pending, id)
	if err != nil {
		if idx := c.indexLocked(id); idx >= 0 {
			c.tasks[idx].Completed = !flipped.Completed
		}
	}
	c.mu.Unlock()

	if err != nil {
		c.log.Error("toggle failed, reverting", "task", id, "error", err, "kind", api.Classify(err))
		if rerr := c.Refresh(ctx); rerr != nil {
			c.log.Error("post-toggle refresh failed", "error", rerr)
		}
		return err
	}
	// The flip stays optimistic and the list is not refetched, but the
	// dashboard still needs authoritative counts after every settled
	// mutation.
	c.notifyTasksChanged()
	c.mu.RLock()
	listeners = c.listeners
	c.mu.RUnlock()
	for _, l := range listeners {
		l.RefreshStats(ctx)
	}
	return nil
}

// Delete removes a task. The id is validated before any network call,
// and the row stays visible until the backend confirms: deletion is
// irreversible, so a ghost-removed row on failure is the worse
// outcome.
func (c *Controller) Delete(ctx context.Context, id string) error {
	if !task.ValidID(id) {
		return fmt.Errorf("delete task %q: %w", id, api.ErrInvalidTaskID)
	}
	c.mu.Lock()
	if c.pending[id] {
		c.mu.Unlock()
		return fmt.Errorf("delete task %s: %w", id, ErrMutationPending)
	}
	c.pending[id] = true
	c.mu.Unlock()

	err := c.gw.Delete(ctx, id)

	c.mu.Lock()
	delete(c.pending, id)
	var updated []task.Task
	if err == nil {
		kept := c.tasks[:0:0]
		for _, t := range c.tasks {
			if t.ID != id {
				kept = append(kept, t)
			}
		}
		c.tasks = kept
		updated = c.snapshotLocked()
	}
	c.mu.Unlock()

	if err != nil {
		c.log.Error("delete failed", "task", id, "error", err, "kind", api.Classify(err))
		return err
	}
	return c.consolidate(ctx, updated)
}

// CommitEdit sends a task's full edited field set, then runs one
// consolidated refresh instead of merging the response, so
// server-computed fields never drift.
func (c *Controller) CommitEdit(ctx context.Context, t task.Task) error {
	if err := t.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	if c.pending[t.ID] {
		c.mu.Unlock()
		return fmt.Errorf("edit task %s: %w", t.ID, ErrMutationPending)
	}
	c.pending[t.ID] = true
	c.mu.Unlock()

	_, err := c.gw.Update(ctx, t.ID, api.TaskUpdate{
		Title:       t.Title,
		Description: t.Description,
		Completed:   t.Completed,
		Priority:    t.Priority,
		DueDate:     t.DueDate,
		Version:     t.Version,
	})

	c.mu.Lock()
	delete(c.pending, t.ID)
	var updated []task.Task
	if err == nil {
		if idx := c.indexLocked(t.ID); idx >= 0 {
			c.tasks[idx] = t
		}
		updated = c.snapshotLocked()
	}
	c.mu.Unlock()

	if err != nil {
		c.log.Error("edit failed", "task", t.ID, "error", err, "kind", api.Classify(err))
		return err
	}
	return c.consolidate(ctx, updated)
}

// Create submits a new task and consolidates.
func (c *Controller) Create(ctx context.Context, draft api.TaskDraft) (task.Task, error) {
	created, err := c.gw.Create(ctx, draft)
	if err != nil {
		c.log.Error("create failed", "error", err, "kind", api.Classify(err))
		return task.Task{}, err
	}
	c.mu.Lock()
	c.tasks = append(c.tasks, created)
	updated := c.snapshotLocked()
	c.mu.Unlock()
	return created, c.consolidate(ctx, updated)
}

// OnExternalMutation reconciles after a mutation that happened outside
// this controller, such as a chat-driven task action.
func (c *Controller) OnExternalMutation(ctx context.Context) error {
	return c.consolidate(ctx, c.Tasks())
}

// consolidate is the single choke-point after a mutation succeeds:
// listeners get the optimistic list for instant feedback, then exactly
// one refresh and one authoritative stats fetch run. Overlapping
// mutations coalesce into one queued re-run instead of each spawning
// their own refresh chain.
func (c *Controller) consolidate(ctx context.Context, updated []task.Task) error {
	c.mu.Lock()
	if c.consolidating {
		c.consolidateQueued = true
		c.mu.Unlock()
		return nil
	}
	c.consolidating = true
	listeners := c.listeners
	c.mu.Unlock()

	var err error
	for {
		for _, l := range listeners {
			l.TasksChanged(updated)
		}
		err = c.Refresh(ctx)
		for _, l := range listeners {
			l.RefreshStats(ctx)
		}

		c.mu.Lock()
		if !c.consolidateQueued {
			c.consolidating = false
			c.mu.Unlock()
			return err
		}
		c.consolidateQueued = false
		updated = c.snapshotLocked()
		c.mu.Unlock()
	}
}

func (c *Controller) setTasks(tasks []task.Task) {
	c.mu.Lock()
	c.tasks = tasks
	c.mu.Unlock()
	c.notifyTasksChanged()
}

func (c *Controller) notifyTasksChanged() {
	c.mu.RLock()
	tasks := c.snapshotLocked()
	listeners := c.listeners
	c.mu.RUnlock()
	for _, l := range listeners {
		l.TasksChanged(tasks)
	}
}

func (c *Controller) indexLocked(id string) int {
	for i := range c.tasks {
		if c.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func (c *Controller) snapshotLocked() []task.Task {
	out := make([]task.Task, len(c.tasks))
	copy(out, c.tasks)
	return out
}
