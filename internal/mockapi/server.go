// Package mockapi is an in-memory implementation of the backend's
// REST contract, used by the integration tests and by `taskdeck mockd`
// for local development without the real backend.
package mockapi

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const sessionCookie = "taskdeck_session"

type user struct {
	id       int
	name     string
	email    string
	password string
}

type taskRec struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      bool   `json:"status"`
	Priority    int    `json:"priority"`
	DueDate     string `json:"due_date,omitempty"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
	Version     int    `json:"version"`
}

type chatMsg struct {
	Sender    string `json:"sender"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// Server holds all state behind one mutex; the mock favors obvious
// correctness over throughput.
type Server struct {
	log *slog.Logger

	mu            sync.Mutex
	users         map[string]*user // by email
	sessions      map[string]int   // token -> user id
	tasks         map[int]map[int]*taskRec
	conversations map[string][]chatMsg
	nextUserID    int
	nextTaskID    int
}

// New returns an empty mock backend.
func New(log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		log:           log,
		users:         make(map[string]*user),
		sessions:      make(map[string]int),
		tasks:         make(map[int]map[int]*taskRec),
		conversations: make(map[string][]chatMsg),
		nextUserID:    1,
		nextTaskID:    1,
	}
}

// Handler returns the HTTP handler implementing the REST contract.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/signup", s.handleSignup)
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.HandleFunc("POST /api/auth/logout", s.handleLogout)
	mux.HandleFunc("GET /api/auth/session", s.handleSession)
	mux.HandleFunc("GET /api/tasks/", s.handleListTasks)
	mux.HandleFunc("POST /api/tasks/", s.handleCreateTask)
	mux.HandleFunc("PUT /api/tasks/{id}", s.handleUpdateTask)
	mux.HandleFunc("DELETE /api/tasks/{id}", s.handleDeleteTask)
	mux.HandleFunc("GET /api/dashboard/stats", s.handleStats)
	mux.HandleFunc("POST /api/chat/{user}/conversation", s.handleChatSend)
	mux.HandleFunc("GET /api/chat/{user}/conversation/{conv}", s.handleChatHistory)
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func (s *Server) authed(r *http.Request) *user {
	ck, err := r.Cookie(sessionCookie)
	if err != nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	uid, ok := s.sessions[ck.Value]
	if !ok {
		return nil
	}
	for _, u := range s.users {
		if u.id == uid {
			return u
		}
	}
	return nil
}

func userPayload(u *user) map[string]any {
	return map[string]any{"user": map[string]any{"id": u.id, "email": u.email, "name": u.name}}
}

func (s *Server) issueSession(w http.ResponseWriter, u *user) {
	token := uuid.NewString()
	s.mu.Lock()
	s.sessions[token] = u.id
	s.mu.Unlock()
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: token, Path: "/", HttpOnly: true})
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var body struct{ Name, Email, Password string }
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Email == "" || body.Password == "" {
		writeErr(w, http.StatusUnprocessableEntity, "name, email and password are required")
		return
	}
	s.mu.Lock()
	if _, exists := s.users[body.Email]; exists {
		s.mu.Unlock()
		writeErr(w, http.StatusConflict, "email already registered")
		return
	}
	u := &user{id: s.nextUserID, name: body.Name, email: body.Email, password: body.Password}
	s.nextUserID++
	s.users[body.Email] = u
	s.tasks[u.id] = make(map[int]*taskRec)
	s.mu.Unlock()

	s.issueSession(w, u)
	writeJSON(w, http.StatusCreated, userPayload(u))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct{ Email, Password string }
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErr(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}
	s.mu.Lock()
	u, ok := s.users[body.Email]
	s.mu.Unlock()
	if !ok || u.password != body.Password {
		writeErr(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	s.issueSession(w, u)
	writeJSON(w, http.StatusOK, userPayload(u))
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if ck, err := r.Cookie(sessionCookie); err == nil {
		s.mu.Lock()
		delete(s.sessions, ck.Value)
		s.mu.Unlock()
	}
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "", Path: "/", MaxAge: -1})
	writeJSON(w, http.StatusOK, map[string]any{})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	u := s.authed(r)
	if u == nil {
		writeErr(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	writeJSON(w, http.StatusOK, userPayload(u))
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	u := s.authed(r)
	if u == nil {
		writeErr(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	s.mu.Lock()
	list := s.sortedTasksLocked(u.id)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) sortedTasksLocked(uid int) []*taskRec {
	list := make([]*taskRec, 0, len(s.tasks[uid]))
	for id := 1; id < s.nextTaskID; id++ {
		if t, ok := s.tasks[uid][id]; ok {
			list = append(list, t)
		}
	}
	return list
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	u := s.authed(r)
	if u == nil {
		writeErr(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	var body struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Priority    int    `json:"priority"`
		DueDate     string `json:"due_date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || strings.TrimSpace(body.Title) == "" {
		writeErr(w, http.StatusUnprocessableEntity, "title is required")
		return
	}
	s.mu.Lock()
	t := s.createTaskLocked(u.id, body.Title, body.Description, body.Priority, body.DueDate)
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) createTaskLocked(uid int, title, desc string, priority int, due string) *taskRec {
	if priority < 1 || priority > 3 {
		priority = 1
	}
	now := time.Now().UTC().Format(time.RFC3339)
	t := &taskRec{
		ID:          s.nextTaskID,
		Title:       title,
		Description: desc,
		Priority:    priority,
		DueDate:     due,
		CreatedAt:   now,
		UpdatedAt:   now,
		Version:     1,
	}
	s.nextTaskID++
	if s.tasks[uid] == nil {
		s.tasks[uid] = make(map[int]*taskRec)
	}
	s.tasks[uid][t.ID] = t
	return t
}

func (s *Server) taskFromPath(r *http.Request, uid int) (*taskRec, error) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id <= 0 {
		return nil, fmt.Errorf("invalid task id")
	}
	t, ok := s.tasks[uid][id]
	if !ok {
		return nil, fmt.Errorf("task not found")
	}
	return t, nil
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	u := s.authed(r)
	if u == nil {
		writeErr(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	var body struct {
		Title       *string `json:"title"`
		Description *string `json:"description"`
		Status      *bool   `json:"status"`
		Priority    *int    `json:"priority"`
		DueDate     *string `json:"due_date"`
		Version     *int    `json:"version"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErr(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.taskFromPath(r, u.id)
	if err != nil {
		writeErr(w, http.StatusNotFound, err.Error())
		return
	}
	if body.Version != nil && *body.Version != t.Version {
		writeErr(w, http.StatusConflict, "task was modified by another request")
		return
	}
	if body.Title != nil {
		t.Title = *body.Title
	}
	if body.Description != nil {
		t.Description = *body.Description
	}
	if body.Status != nil {
		t.Status = *body.Status
	}
	if body.Priority != nil {
		t.Priority = *body.Priority
	}
	if body.DueDate != nil {
		t.DueDate = *body.DueDate
	}
	t.Version++
	t.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	u := s.authed(r)
	if u == nil {
		writeErr(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.taskFromPath(r, u.id)
	if err != nil {
		writeErr(w, http.StatusNotFound, err.Error())
		return
	}
	delete(s.tasks[u.id], t.ID)
	writeJSON(w, http.StatusOK, map[string]any{})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	u := s.authed(r)
	if u == nil {
		writeErr(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	s.mu.Lock()
	var total, completed int
	for _, t := range s.tasks[u.id] {
		total++
		if t.Status {
			completed++
		}
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]int{
		"total_tasks":     total,
		"completed_tasks": completed,
		"pending_tasks":   total - completed,
	})
}
