package api

import (
	"context"
	"fmt"
	"net/http"
)

// Stats is the backend's task-count snapshot.
type Stats struct {
	Total     int
	Completed int
	Pending   int
}

// DashboardService is the typed gateway to the stats endpoint.
type DashboardService struct {
	c *Client
}

// Stats fetches the authoritative task counts. Pointer fields in the
// payload distinguish a zero count from a missing one; an incomplete
// body is a shape error, never a guess.
func (s *DashboardService) Stats(ctx context.Context) (Stats, error) {
	var payload struct {
		Total     *int `json:"total_tasks"`
		Completed *int `json:"completed_tasks"`
		Pending   *int `json:"pending_tasks"`
	}
	if err := s.c.do(ctx, http.MethodGet, "/api/dashboard/stats", nil, &payload); err != nil {
		return Stats{}, err
	}
	if payload.Total == nil || payload.Completed == nil || payload.Pending == nil {
		return Stats{}, fmt.Errorf("dashboard stats: %w", ErrBadShape)
	}
	return Stats{Total: *payload.Total, Completed: *payload.Completed, Pending: *payload.Pending}, nil
}
