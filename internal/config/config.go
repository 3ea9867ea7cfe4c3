package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Server Server `toml:"server"`
	Chat   Chat   `toml:"chat"`
	UI     UI     `toml:"ui"`
}

type Server struct {
	BaseURL string        `toml:"base_url"`
	Timeout time.Duration `toml:"timeout"`
}

type Chat struct {
	// UserID overrides the id from the auth session, mostly useful
	// against the mock backend.
	UserID string `toml:"user_id"`
}

type UI struct {
	// CompactTasks renders the task list without descriptions.
	CompactTasks bool `toml:"compact_tasks"`
}

func Load(path string) (*Config, error) {
	cfg := &Config{
		Server: Server{
			BaseURL: "http://localhost:8000",
			Timeout: 30 * time.Second,
		},
	}

	// Try default paths if not specified
	if path == "" {
		candidates := []string{
			expandHome("~/.config/taskdeck/config.toml"),
			"./taskdeck.toml",
		}
		for _, c := range candidates {
			if _, err := os.Stat(c); err == nil {
				path = c
				break
			}
		}
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, cfg); err != nil {
				return nil, err
			}
		}
	}

	if v := os.Getenv("TASKDECK_BASE_URL"); v != "" {
		cfg.Server.BaseURL = v
	}

	return cfg, nil
}

func expandHome(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[1:])
	}
	return path
}
