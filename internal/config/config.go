package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type AppConfig struct {
	ListenAddr string

	RedisURL    string
	DatabaseURL string

	ExplorerBaseURL string
	CloudEvalURL    string

	SessionTTLSec  int
	MessageDir     string
	SnapshotBoards bool
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		ListenAddr:      ":8080",
		ExplorerBaseURL: "https://explorer.lichess.ovh",
		CloudEvalURL:    "https://lichess.org/api/cloud-eval",
		SessionTTLSec:   86400,
		SnapshotBoards:  true,
	}

	if v := strings.TrimSpace(os.Getenv("LISTEN_ADDR")); v != "" {
		cfg.ListenAddr = v
	}
	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))

	if v := strings.TrimSpace(os.Getenv("EXPLORER_BASE_URL")); v != "" {
		cfg.ExplorerBaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("CLOUD_EVAL_URL")); v != "" {
		cfg.CloudEvalURL = v
	}
	if v := strings.TrimSpace(os.Getenv("SESSION_TTL")); v != "" { // seconds
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SessionTTLSec = n
		}
	}
	cfg.MessageDir = strings.TrimSpace(os.Getenv("MESSAGE_DIR"))
	if v := strings.TrimSpace(os.Getenv("SNAPSHOT_BOARDS")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.SnapshotBoards = b
		}
	}

	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}

	return cfg, nil
}

func (c *AppConfig) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLSec) * time.Second
}
