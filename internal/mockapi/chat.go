package mockapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// handleChatSend runs a naive command parser over the message so the
// client's mutation plumbing can be exercised without a real agent.
func (s *Server) handleChatSend(w http.ResponseWriter, r *http.Request) {
	u := s.authed(r)
	if u == nil {
		writeErr(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	var body struct {
		Message        string `json:"message"`
		ConversationID string `json:"conversation_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Message == "" {
		writeErr(w, http.StatusUnprocessableEntity, "message is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	convID := body.ConversationID
	if convID == "" {
		convID = uuid.NewString()
		s.conversations[convID] = nil
	}

	response, action := s.interpretLocked(u.id, body.Message)

	now := time.Now().UTC().Format(time.RFC3339)
	s.conversations[convID] = append(s.conversations[convID],
		chatMsg{Sender: "user", Content: body.Message, Timestamp: now},
		chatMsg{Sender: "bot", Content: response, Timestamp: now},
	)

	out := map[string]any{"response": response, "conversation_id": convID}
	if action != "" {
		out["action"] = map[string]any{"type": action, "data": nil}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) interpretLocked(uid int, message string) (response, action string) {
	msg := strings.ToLower(strings.TrimSpace(message))
	switch {
	case msg == "init":
		return "Conversation started.", ""

	case strings.HasPrefix(msg, "add ") || strings.HasPrefix(msg, "create "):
		title := strings.TrimSpace(message[strings.Index(message, " ")+1:])
		t := s.createTaskLocked(uid, title, "", 1, "")
		return fmt.Sprintf("Created task %d: %s", t.ID, t.Title), "task_created"

	case strings.HasPrefix(msg, "complete ") || strings.HasPrefix(msg, "done "):
		title := strings.TrimSpace(msg[strings.Index(msg, " ")+1:])
		for _, t := range s.tasks[uid] {
			if strings.Contains(strings.ToLower(t.Title), title) {
				t.Status = true
				t.Version++
				return fmt.Sprintf("Marked %q as completed.", t.Title), "task_updated"
			}
		}
		return "I could not find that task.", ""

	case strings.HasPrefix(msg, "delete ") || strings.HasPrefix(msg, "remove "):
		title := strings.TrimSpace(msg[strings.Index(msg, " ")+1:])
		for id, t := range s.tasks[uid] {
			if strings.Contains(strings.ToLower(t.Title), title) {
				delete(s.tasks[uid], id)
				return fmt.Sprintf("Deleted %q.", t.Title), "task_deleted"
			}
		}
		return "I could not find that task.", ""

	case strings.HasPrefix(msg, "list"):
		tasks := s.sortedTasksLocked(uid)
		if len(tasks) == 0 {
			return "You have no tasks.", "task_listed"
		}
		var b strings.Builder
		fmt.Fprintf(&b, "You have %d tasks:\n", len(tasks))
		for _, t := range tasks {
			mark := " "
			if t.Status {
				mark = "x"
			}
			fmt.Fprintf(&b, "- [%s] %s\n", mark, t.Title)
		}
		return b.String(), "task_listed"
	}
	return "I can add, complete, delete, or list tasks.", "message_processed"
}

func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	u := s.authed(r)
	if u == nil {
		writeErr(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	s.mu.Lock()
	msgs := s.conversations[r.PathValue("conv")]
	s.mu.Unlock()
	if msgs == nil {
		msgs = []chatMsg{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": msgs})
}
