package api

import (
	"context"
	"net/http"
)

// User identifies the authenticated account.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// AuthService is the typed gateway to the auth endpoints. The session
// cookie itself lives in the client's jar; this service only moves it
// through login and logout.
type AuthService struct {
	c *Client
}

type sessionPayload struct {
	User *struct {
		ID    flexID `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name"`
	} `json:"user"`
}

// Session returns the currently authenticated user, or nil when the
// session cookie is absent or expired.
func (s *AuthService) Session(ctx context.Context) (*User, error) {
	var payload sessionPayload
	if err := s.c.do(ctx, http.MethodGet, "/api/auth/session", nil, &payload); err != nil {
		if IsAuth(err) {
			return nil, nil
		}
		return nil, err
	}
	if payload.User == nil {
		return nil, nil
	}
	return &User{ID: string(payload.User.ID), Email: payload.User.Email, Name: payload.User.Name}, nil
}

// Login exchanges credentials for a session cookie.
func (s *AuthService) Login(ctx context.Context, email, password string) (*User, error) {
	body := map[string]string{"email": email, "password": password}
	var payload sessionPayload
	if err := s.c.do(ctx, http.MethodPost, "/api/auth/login", body, &payload); err != nil {
		return nil, err
	}
	if payload.User == nil {
		return nil, ErrBadShape
	}
	return &User{ID: string(payload.User.ID), Email: payload.User.Email, Name: payload.User.Name}, nil
}

// Signup registers a new account and logs it in.
func (s *AuthService) Signup(ctx context.Context, name, email, password string) (*User, error) {
	body := map[string]string{"name": name, "email": email, "password": password}
	var payload sessionPayload
	if err := s.c.do(ctx, http.MethodPost, "/api/auth/signup", body, &payload); err != nil {
		return nil, err
	}
	if payload.User == nil {
		return nil, ErrBadShape
	}
	return &User{ID: string(payload.User.ID), Email: payload.User.Email, Name: payload.User.Name}, nil
}

// Logout clears the server-side session. Local artifacts are the
// caller's responsibility.
func (s *AuthService) Logout(ctx context.Context) error {
	return s.c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
}
