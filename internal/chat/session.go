// Package chat maintains one logical conversation per user and
// bridges chat-originated task mutations back into the task list.
package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mistakeknot/taskdeck/internal/api"
)

const (
	// initSentinel is the first message sent to a fresh conversation.
	// The backend answers with a conversation id; the reply text is
	// discarded in favor of the local greeting.
	initSentinel = "init"

	greetingText     = "Hi! I'm your task assistant. Ask me to add, update, list, or complete tasks."
	authRequiredText = "Please log in to use the assistant."
	failureText      = "Sorry, something went wrong. Please try again."
)

const (
	SenderUser = "user"
	SenderBot  = "bot"
)

// ErrEmptyMessage is returned when a send is attempted with blank text.
var ErrEmptyMessage = errors.New("message is empty")

// Gateway is the slice of the chat API the session needs.
type Gateway interface {
	Send(ctx context.Context, userID, conversationID, message string) (api.ChatReply, error)
	History(ctx context.Context, userID, conversationID string) ([]api.ChatMessage, error)
}

// Store persists the conversation id across restarts. Injected so
// tests can use an in-memory fake.
type Store interface {
	ConversationID() string
	SetConversationID(id string) error
	Clear() error
}

// MemoryStore is a Store that forgets everything on process exit.
type MemoryStore struct {
	mu sync.Mutex
	id string
}

func (m *MemoryStore) ConversationID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.id
}

func (m *MemoryStore) SetConversationID(id string) error {
	m.mu.Lock()
	m.id = id
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Clear() error {
	return m.SetConversationID("")
}

// Message is one visible transcript entry. ID is assigned locally;
// the backend's history endpoint does not guarantee one.
type Message struct {
	ID        string
	Sender    string
	Content   string
	Timestamp time.Time
}

// Session owns the transcript and the send/receive cycle. Messages
// are appended in send order and never rolled back; failures surface
// as bot messages instead.
type Session struct {
	gw    Gateway
	store Store
	log   *slog.Logger

	mu       sync.RWMutex
	userID   string
	messages []Message
	typing   bool

	onTaskMutation func(ctx context.Context, kind api.ActionKind)
}

// NewSession returns a session for the given user. An empty userID is
// allowed; sends will be answered locally with an auth prompt.
func NewSession(gw Gateway, store Store, userID string, log *slog.Logger) *Session {
	if log == nil {
		log = slog.Default()
	}
	s := &Session{gw: gw, store: store, userID: userID, log: log}
	s.messages = []Message{botMessage(greetingText)}
	return s
}

// OnTaskMutation registers the callback fired once per chat reply
// whose action mutated task data.
func (s *Session) OnTaskMutation(fn func(ctx context.Context, kind api.ActionKind)) {
	s.mu.Lock()
	s.onTaskMutation = fn
	s.mu.Unlock()
}

// Messages returns a copy of the transcript.
func (s *Session) Messages() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Typing reports whether a send is awaiting its reply.
func (s *Session) Typing() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.typing
}

// ConversationID returns the persisted conversation id, if any.
func (s *Session) ConversationID() string {
	return s.store.ConversationID()
}

// Initialize restores an existing conversation or starts a fresh one.
// A new conversation id is persisted before any history load so a
// crash between the two never orphans the conversation. An empty
// history response keeps the greeting and is not an error.
func (s *Session) Initialize(ctx context.Context) error {
	if s.userID == "" {
		return nil
	}
	convID := s.store.ConversationID()
	if convID == "" {
		reply, err := s.gw.Send(ctx, s.userID, "", initSentinel)
		if err != nil {
			s.log.Error("conversation init failed", "error", err, "kind", api.Classify(err))
			return err
		}
		if reply.ConversationID != "" {
			if err := s.store.SetConversationID(reply.ConversationID); err != nil {
				return err
			}
		}
		return nil
	}

	history, err := s.gw.History(ctx, s.userID, convID)
	if err != nil {
		s.log.Error("history load failed", "error", err, "kind", api.Classify(err))
		return err
	}
	if len(history) == 0 {
		return nil
	}
	msgs := make([]Message, 0, len(history)+1)
	msgs = append(msgs, botMessage(greetingText))
	for _, h := range history {
		sender := SenderBot
		if h.Sender == SenderUser {
			sender = SenderUser
		}
		msgs = append(msgs, Message{
			ID:        uuid.NewString(),
			Sender:    sender,
			Content:   h.Content,
			Timestamp: parseTimestamp(h.Timestamp),
		})
	}
	s.mu.Lock()
	s.messages = msgs
	s.mu.Unlock()
	return nil
}

// Send posts a message. The user's text is appended immediately and
// never removed; the typing flag clears only once the gateway call
// settles.
func (s *Session) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}
	if s.userID == "" {
		s.append(userMessage(text))
		s.append(botMessage(authRequiredText))
		return nil
	}

	s.mu.Lock()
	s.messages = append(s.messages, userMessage(text))
	s.typing = true
	s.mu.Unlock()

	reply, err := s.gw.Send(ctx, s.userID, s.store.ConversationID(), text)

	s.mu.Lock()
	s.typing = false
	s.mu.Unlock()

	if err != nil {
		s.log.Error("chat send failed", "error", err, "kind", api.Classify(err))
		s.append(botMessage(failureText))
		return err
	}

	if reply.ConversationID != "" && reply.ConversationID != s.store.ConversationID() {
		if serr := s.store.SetConversationID(reply.ConversationID); serr != nil {
			s.log.Error("conversation id persist failed", "error", serr)
		}
	}
	s.append(botMessage(reply.Response))

	if reply.Action.Mutates() {
		s.mu.RLock()
		fn := s.onTaskMutation
		s.mu.RUnlock()
		if fn != nil {
			fn(ctx, reply.Action)
		}
	}
	return nil
}

// StartNew discards the conversation id and transcript, returning to
// the greeting state. Nothing is deleted server-side.
func (s *Session) StartNew() error {
	if err := s.store.Clear(); err != nil {
		return err
	}
	s.mu.Lock()
	s.messages = []Message{botMessage(greetingText)}
	s.typing = false
	s.mu.Unlock()
	return nil
}

func (s *Session) append(m Message) {
	s.mu.Lock()
	s.messages = append(s.messages, m)
	s.mu.Unlock()
}

func botMessage(text string) Message {
	return Message{ID: uuid.NewString(), Sender: SenderBot, Content: text, Timestamp: time.Now()}
}

func userMessage(text string) Message {
	return Message{ID: uuid.NewString(), Sender: SenderUser, Content: text, Timestamp: time.Now()}
}

func parseTimestamp(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
