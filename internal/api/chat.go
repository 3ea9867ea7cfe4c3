package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

// ActionKind classifies the action a chat turn performed on the
// backend. Unknown wire values collapse to ActionNone unless they
// carry the task_ prefix, which is treated as a mutation so the
// client never misses a refresh.
type ActionKind int

const (
	ActionNone ActionKind = iota
	ActionTaskCreated
	ActionTaskUpdated
	ActionTaskDeleted
	ActionTaskListed
	ActionTaskOther
)

func actionFromWire(s string) ActionKind {
	switch s {
	case "task_created":
		return ActionTaskCreated
	case "task_updated":
		return ActionTaskUpdated
	case "task_deleted":
		return ActionTaskDeleted
	case "task_listed":
		return ActionTaskListed
	case "message_processed", "operation_performed", "":
		return ActionNone
	}
	if strings.HasPrefix(s, "task_") {
		return ActionTaskOther
	}
	return ActionNone
}

// Mutates reports whether the action changed task data and the local
// view should be reconciled against the server.
func (k ActionKind) Mutates() bool {
	switch k {
	case ActionTaskCreated, ActionTaskUpdated, ActionTaskDeleted, ActionTaskOther:
		return true
	}
	return false
}

func (k ActionKind) String() string {
	switch k {
	case ActionTaskCreated:
		return "task_created"
	case ActionTaskUpdated:
		return "task_updated"
	case ActionTaskDeleted:
		return "task_deleted"
	case ActionTaskListed:
		return "task_listed"
	case ActionTaskOther:
		return "task_other"
	}
	return "none"
}

// ChatReply is the backend's answer to a single chat message.
type ChatReply struct {
	Response       string
	ConversationID string
	Action         ActionKind
	ActionData     json.RawMessage
}

// ChatMessage is one entry of a persisted conversation transcript.
type ChatMessage struct {
	Sender    string
	Content   string
	Timestamp string
}

// ChatService is the typed gateway to the chat endpoints.
type ChatService struct {
	c *Client
}

type chatActionPayload struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type chatReplyPayload struct {
	Response       string             `json:"response"`
	ConversationID string             `json:"conversation_id"`
	Action         *chatActionPayload `json:"action"`
}

type chatMessagePayload struct {
	Sender    string `json:"sender"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
	CreatedAt string `json:"created_at"`
}

func (p chatMessagePayload) toMessage() ChatMessage {
	m := ChatMessage{Sender: p.Sender, Content: p.Content, Timestamp: p.Timestamp}
	if m.Sender == "" {
		m.Sender = p.Role
	}
	if m.Content == "" {
		m.Content = p.Text
	}
	if m.Timestamp == "" {
		m.Timestamp = p.CreatedAt
	}
	return m
}

// Send posts a message to the user's conversation. An empty
// conversation id starts a new conversation; the returned reply
// carries the id the backend assigned.
func (s *ChatService) Send(ctx context.Context, userID, conversationID, message string) (ChatReply, error) {
	body := map[string]any{"message": message}
	if conversationID != "" {
		body["conversation_id"] = conversationID
	}
	var payload chatReplyPayload
	if err := s.c.do(ctx, http.MethodPost, "/api/chat/"+userID+"/conversation", body, &payload); err != nil {
		return ChatReply{}, err
	}
	reply := ChatReply{
		Response:       payload.Response,
		ConversationID: payload.ConversationID,
	}
	if payload.Action != nil {
		reply.Action = actionFromWire(payload.Action.Type)
		reply.ActionData = payload.Action.Data
	}
	return reply, nil
}

// History fetches the transcript of a conversation. A missing or
// empty transcript is returned as an empty slice, not an error.
func (s *ChatService) History(ctx context.Context, userID, conversationID string) ([]ChatMessage, error) {
	var payload struct {
		Messages []chatMessagePayload `json:"messages"`
	}
	err := s.c.do(ctx, http.MethodGet, "/api/chat/"+userID+"/conversation/"+conversationID, nil, &payload)
	if err != nil {
		return nil, err
	}
	msgs := make([]ChatMessage, len(payload.Messages))
	for i, p := range payload.Messages {
		msgs[i] = p.toMessage()
	}
	return msgs, nil
}
