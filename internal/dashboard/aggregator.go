// Package dashboard aggregates task counts in two freshness tiers:
// optimistic counts derived from the in-memory list for instant
// feedback, and authoritative counts fetched from the backend.
package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/mistakeknot/taskdeck/internal/api"
	"github.com/mistakeknot/taskdeck/internal/task"
)

// StatsGateway is the slice of the API the aggregator needs.
type StatsGateway interface {
	Stats(ctx context.Context) (api.Stats, error)
}

// State is a point-in-time snapshot of the aggregator.
type State struct {
	Stats api.Stats
	// Authoritative is false while the counts come from the local
	// optimistic recompute rather than the backend.
	Authoritative bool
	Err           string
	ErrKind       api.Kind
}

// Aggregator holds the current stats snapshot. It satisfies the task
// list controller's Listener interface so mutations feed it directly.
type Aggregator struct {
	gw  StatsGateway
	log *slog.Logger

	mu    sync.RWMutex
	state State
}

// New returns an aggregator backed by the given gateway.
func New(gw StatsGateway, log *slog.Logger) *Aggregator {
	if log == nil {
		log = slog.Default()
	}
	return &Aggregator{gw: gw, log: log}
}

// State returns a copy of the current snapshot.
func (a *Aggregator) State() State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

// FetchStats fetches the authoritative counts. A malformed or empty
// body falls back to zeros with a recorded error instead of guessing;
// network, timeout, and auth failures are classified for display.
func (a *Aggregator) FetchStats(ctx context.Context) error {
	stats, err := a.gw.Stats(ctx)
	a.mu.Lock()
	defer a.mu.Unlock()
	if err != nil {
		a.state.Stats = api.Stats{}
		a.state.Authoritative = false
		a.state.ErrKind = api.Classify(err)
		if errors.Is(err, api.ErrBadShape) {
			a.state.Err = "stats response was malformed"
		} else {
			a.state.Err = err.Error()
		}
		a.log.Error("stats fetch failed", "error", err, "kind", a.state.ErrKind)
		return err
	}
	a.state = State{Stats: stats, Authoritative: true}
	return nil
}

// ApplyOptimistic recomputes the counts from an in-memory task list.
// Callers must follow up with FetchStats; the derived counts are for
// instant feedback only.
func (a *Aggregator) ApplyOptimistic(tasks []task.Task) {
	var completed int
	for _, t := range tasks {
		if t.Completed {
			completed++
		}
	}
	a.mu.Lock()
	a.state.Stats = api.Stats{
		Total:     len(tasks),
		Completed: completed,
		Pending:   len(tasks) - completed,
	}
	a.state.Authoritative = false
	a.mu.Unlock()
}

// TasksChanged implements the task list Listener.
func (a *Aggregator) TasksChanged(tasks []task.Task) {
	a.ApplyOptimistic(tasks)
}

// RefreshStats implements the task list Listener.
func (a *Aggregator) RefreshStats(ctx context.Context) {
	// Error already recorded in the snapshot for display.
	_ = a.FetchStats(ctx)
}
