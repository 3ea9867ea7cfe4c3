package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/mistakeknot/taskdeck/internal/api"
	"github.com/mistakeknot/taskdeck/internal/config"
	"github.com/mistakeknot/taskdeck/internal/session"
)

// app bundles the pieces every command needs: config, the persisted
// session and an API client with the session cookies loaded.
type app struct {
	cfg    *config.Config
	store  *session.FileStore
	client *api.Client
	log    *slog.Logger
}

func newApp(cfgPath string, logLevel slog.Level) (*app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	sessPath, err := session.DefaultPath()
	if err != nil {
		return nil, err
	}
	store, err := session.Open(sessPath)
	if err != nil {
		return nil, err
	}

	client, err := api.New(cfg.Server.BaseURL, api.WithTimeout(cfg.Server.Timeout))
	if err != nil {
		return nil, fmt.Errorf("bad base_url %q: %w", cfg.Server.BaseURL, err)
	}
	client.SetCookies(store.Cookies())

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	return &app{cfg: cfg, store: store, client: client, log: log}, nil
}

// persistCookies writes the client's current cookies back to disk.
// Called after any request that may have rotated the session.
func (a *app) persistCookies() error {
	return a.store.SetCookies(a.client.Cookies())
}

// userID resolves the chat user id: config override first, then the
// authenticated session.
func (a *app) userID(ctx context.Context) (string, error) {
	if a.cfg.Chat.UserID != "" {
		return a.cfg.Chat.UserID, nil
	}
	user, err := a.client.Auth().Session(ctx)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", nil
	}
	return user.ID, nil
}
