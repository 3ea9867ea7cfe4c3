package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mistakeknot/taskdeck/internal/task"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, srv
}

func TestListTasksBareArray(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tasks/" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id": 7, "title": "write report", "status": true, "priority": 3, "version": 2}]`))
	}))

	tasks, err := c.Tasks().List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("got %d tasks, want 1", len(tasks))
	}
	got := tasks[0]
	if got.ID != "7" {
		t.Errorf("numeric id not normalized to string: %q", got.ID)
	}
	if !got.Completed {
		t.Error("status not mapped to Completed")
	}
	if got.Priority != task.PriorityHigh {
		t.Errorf("priority = %s, want high", got.Priority)
	}
	if got.Version != 2 {
		t.Errorf("version = %d, want 2", got.Version)
	}
}

func TestListTasksWrappedObject(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"tasks": [{"id": "3", "title": "a"}, {"id": "4", "title": "b"}]}`))
	}))

	tasks, err := c.Tasks().List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("got %d tasks, want 2", len(tasks))
	}
	if tasks[1].ID != "4" {
		t.Errorf("id = %q, want 4", tasks[1].ID)
	}
}

func TestListTasksBadShape(t *testing.T) {
	bodies := map[string]string{
		"object without tasks key": `{"items": []}`,
		"tasks is not an array":    `{"tasks": "nope"}`,
		"tasks is null":            `{"tasks": null}`,
		"bare string":              `"tasks"`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(body))
			}))

			if _, err := c.Tasks().List(context.Background()); !errors.Is(err, ErrBadShape) {
				t.Errorf("err = %v, want ErrBadShape", err)
			}
		})
	}
}

func TestUpdateRejectsBadIDWithoutNetwork(t *testing.T) {
	var hits int
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))

	_, err := c.Tasks().Update(context.Background(), "abc", TaskUpdate{Title: "x"})
	if !errors.Is(err, ErrInvalidTaskID) {
		t.Fatalf("err = %v, want ErrInvalidTaskID", err)
	}
	if hits != 0 {
		t.Errorf("server was hit %d times for an invalid id", hits)
	}
}

func TestDeleteRejectsBadIDWithoutNetwork(t *testing.T) {
	var hits int
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))

	for _, id := range []string{"", "0", "-1", "1.5", "abc"} {
		if err := c.Tasks().Delete(context.Background(), id); !errors.Is(err, ErrInvalidTaskID) {
			t.Errorf("Delete(%q) = %v, want ErrInvalidTaskID", id, err)
		}
	}
	if hits != 0 {
		t.Errorf("server was hit %d times for invalid ids", hits)
	}
}

func TestUpdateConflictClassifiesAs409(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"detail": "task was modified"}`))
	}))

	_, err := c.Tasks().Update(context.Background(), "9", TaskUpdate{Title: "x", Version: 1})
	if !IsConflict(err) {
		t.Fatalf("Classify(%v) = %s, want conflict", err, Classify(err))
	}
	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.Detail != "task was modified" {
		t.Errorf("detail not surfaced: %v", err)
	}
}

func TestChatSendDecodesAction(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat/u1/conversation" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"response": "done", "conversation_id": "c-1", "action": {"type": "task_created", "data": {"id": 5}}}`))
	}))

	reply, err := c.Chat().Send(context.Background(), "u1", "", "add a task")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if reply.ConversationID != "c-1" {
		t.Errorf("conversation id = %q", reply.ConversationID)
	}
	if reply.Action != ActionTaskCreated || !reply.Action.Mutates() {
		t.Errorf("action = %s, want mutating task_created", reply.Action)
	}
}

func TestChatSendMissingActionIsNone(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response": "hi", "conversation_id": "c-2"}`))
	}))

	reply, err := c.Chat().Send(context.Background(), "u1", "c-2", "hello")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if reply.Action != ActionNone || reply.Action.Mutates() {
		t.Errorf("action = %s, want none", reply.Action)
	}
}

func TestChatHistoryFieldFallbacks(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"messages": [
			{"sender": "user", "content": "hi", "timestamp": "t1"},
			{"role": "bot", "text": "hello", "created_at": "t2"}
		]}`))
	}))

	msgs, err := c.Chat().History(context.Background(), "u1", "c-1")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	if msgs[1].Sender != "bot" || msgs[1].Content != "hello" || msgs[1].Timestamp != "t2" {
		t.Errorf("fallback fields not applied: %+v", msgs[1])
	}
}

func TestStatsShapeError(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"total_tasks": 3}`))
	}))

	if _, err := c.Dashboard().Stats(context.Background()); !errors.Is(err, ErrBadShape) {
		t.Errorf("err = %v, want ErrBadShape", err)
	}
}

func TestStatsZeroCountsAreValid(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"total_tasks": 0, "completed_tasks": 0, "pending_tasks": 0}`))
	}))

	stats, err := c.Dashboard().Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Total != 0 || stats.Completed != 0 || stats.Pending != 0 {
		t.Errorf("stats = %+v, want zeros", stats)
	}
}

func TestSessionNilWhenUnauthenticated(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail": "not logged in"}`))
	}))

	user, err := c.Auth().Session(context.Background())
	if err != nil {
		t.Fatalf("Session: %v", err)
	}
	if user != nil {
		t.Errorf("user = %+v, want nil", user)
	}
}

func TestLoginKeepsSessionCookie(t *testing.T) {
	c, srv := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/login":
			http.SetCookie(w, &http.Cookie{Name: "session", Value: "tok-1", Path: "/"})
			w.Write([]byte(`{"user": {"id": 1, "email": "a@b.c", "name": "A"}}`))
		case "/api/tasks/":
			if ck, err := r.Cookie("session"); err != nil || ck.Value != "tok-1" {
				t.Error("session cookie not replayed on follow-up request")
			}
			w.Write([]byte(`[]`))
		}
	}))
	_ = srv

	user, err := c.Auth().Login(context.Background(), "a@b.c", "pw")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if user.ID != "1" {
		t.Errorf("user id = %q, want 1", user.ID)
	}
	if _, err := c.Tasks().List(context.Background()); err != nil {
		t.Fatalf("List after login: %v", err)
	}
}

func TestUnknownTaskActionStillMutates(t *testing.T) {
	k := actionFromWire("task_archived")
	if k != ActionTaskOther || !k.Mutates() {
		t.Errorf("task_archived decoded as %s, want mutating task_other", k)
	}
	if actionFromWire("task_listed").Mutates() {
		t.Error("task_listed must not count as a mutation")
	}
	if actionFromWire("message_processed").Mutates() {
		t.Error("message_processed must not count as a mutation")
	}
}
