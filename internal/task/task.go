// Package task defines the client-side projection of a backend task.
package task

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	// MaxTitleLen and MaxDescriptionLen mirror the backend's field limits.
	MaxTitleLen       = 200
	MaxDescriptionLen = 1000
)

// Priority is the view representation of a task priority. The backend
// transports priorities as integers (3=High, 2=Medium, 1=Low); the
// mapping is applied at the gateway boundary and nowhere else.
type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

// Wire returns the backend integer for a priority.
func (p Priority) Wire() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	default:
		return 1
	}
}

// PriorityFromWire maps a backend priority integer to the view value.
// Unknown values collapse to Low, matching the backend's default.
func PriorityFromWire(n int) Priority {
	switch n {
	case 3:
		return PriorityHigh
	case 2:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// Valid reports whether p is one of the three known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// Task is the in-memory projection of a backend task. IDs stay strings
// end to end to avoid precision and type mismatches with the backend.
// Meta is an opaque pass-through blob kept for the assistant's context;
// the client never interprets it.
type Task struct {
	ID          string
	Title       string
	Description string
	Completed   bool
	Priority    Priority
	DueDate     string
	CreatedAt   string
	UpdatedAt   string
	Version     int
	Meta        json.RawMessage
}

// ValidID reports whether id is a syntactically positive integer
// string. Destructive gateway calls refuse anything else.
func ValidID(id string) bool {
	if id == "" {
		return false
	}
	nonzero := false
	for _, r := range id {
		if r < '0' || r > '9' {
			return false
		}
		if r != '0' {
			nonzero = true
		}
	}
	return nonzero
}

// Validate checks the client-enforced field constraints before a task
// is sent to the backend.
func (t Task) Validate() error {
	title := strings.TrimSpace(t.Title)
	if title == "" {
		return fmt.Errorf("task title must not be empty")
	}
	if len(t.Title) > MaxTitleLen {
		return fmt.Errorf("task title exceeds %d characters", MaxTitleLen)
	}
	if len(t.Description) > MaxDescriptionLen {
		return fmt.Errorf("task description exceeds %d characters", MaxDescriptionLen)
	}
	if t.Priority != "" && !t.Priority.Valid() {
		return fmt.Errorf("unknown priority %q", t.Priority)
	}
	return nil
}
