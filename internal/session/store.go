// Package session persists local session artifacts: the backend's
// session cookies and the active chat conversation id. State lives in
// a small YAML file under the user's state directory.
package session

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// State is the on-disk shape.
type State struct {
	ConversationID string   `yaml:"conversation_id,omitempty"`
	Cookies        []Cookie `yaml:"cookies,omitempty"`
}

// Cookie is the persisted subset of an HTTP cookie.
type Cookie struct {
	Name    string    `yaml:"name"`
	Value   string    `yaml:"value"`
	Domain  string    `yaml:"domain,omitempty"`
	Path    string    `yaml:"path,omitempty"`
	Expires time.Time `yaml:"expires,omitempty"`
}

// FileStore reads and writes session state atomically under a mutex.
// It implements the chat package's Store interface.
type FileStore struct {
	path string

	mu    sync.Mutex
	state State
}

// DefaultPath returns the session file location under the user's
// state directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(dir, "taskdeck", "session.yaml"), nil
}

// Open loads the session file at path, creating an empty store when
// the file does not exist yet.
func Open(path string) (*FileStore, error) {
	s := &FileStore{path: path}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}
	if err := yaml.Unmarshal(data, &s.state); err != nil {
		// A corrupt session file is a fresh start, not a fatal error.
		s.state = State{}
	}
	return s, nil
}

// ConversationID returns the persisted conversation id.
func (s *FileStore) ConversationID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ConversationID
}

// SetConversationID persists a new conversation id immediately.
func (s *FileStore) SetConversationID(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.ConversationID = id
	return s.saveLocked()
}

// Clear drops the conversation id but keeps the login session.
func (s *FileStore) Clear() error {
	return s.SetConversationID("")
}

// Cookies returns the persisted cookies, dropping expired ones.
func (s *FileStore) Cookies() []*http.Cookie {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	var out []*http.Cookie
	for _, c := range s.state.Cookies {
		if !c.Expires.IsZero() && c.Expires.Before(now) {
			continue
		}
		out = append(out, &http.Cookie{
			Name:    c.Name,
			Value:   c.Value,
			Domain:  c.Domain,
			Path:    c.Path,
			Expires: c.Expires,
		})
	}
	return out
}

// SetCookies replaces the persisted cookies.
func (s *FileStore) SetCookies(cookies []*http.Cookie) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Cookies = s.state.Cookies[:0]
	for _, c := range cookies {
		s.state.Cookies = append(s.state.Cookies, Cookie{
			Name:    c.Name,
			Value:   c.Value,
			Domain:  c.Domain,
			Path:    c.Path,
			Expires: c.Expires,
		})
	}
	return s.saveLocked()
}

// Reset wipes all session artifacts, cookies included. Used on logout
// and on auth errors.
func (s *FileStore) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = State{}
	return s.saveLocked()
}

func (s *FileStore) saveLocked() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	data, err := yaml.Marshal(s.state)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return os.Rename(tmp, s.path)
}
