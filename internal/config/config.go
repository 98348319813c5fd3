package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Backend selects which cloud collaborator the device syncs against.
const (
	BackendBlob  = "blob"
	BackendTable = "table"
)

// Server holds settings for the cloud collaborator daemon.
type Server struct {
	Port          string
	LogLevel      string
	DatabaseURL   string
	AuthToken     string
	MigrationsDir string
	BlobDir       string
	RetentionCron string
	RetentionAge  time.Duration
}

// LoadServer reads daemon configuration from environment variables.
func LoadServer() Server {
	cfg := Server{
		Port:          envOrDefault("TASKTRACKER_PORT", "8090"),
		LogLevel:      envOrDefault("TASKTRACKER_LOG_LEVEL", "info"),
		DatabaseURL:   envOrDefault("TASKTRACKER_DATABASE_URL", "file:tasktracker.db"),
		AuthToken:     strings.TrimSpace(os.Getenv("TASKTRACKER_AUTH_TOKEN")),
		MigrationsDir: envOrDefault("TASKTRACKER_MIGRATIONS_DIR", "migrations"),
		BlobDir:       envOrDefault("TASKTRACKER_BLOB_DIR", "blobs"),
		RetentionCron: strings.TrimSpace(os.Getenv("TASKTRACKER_RETENTION_CRON")),
		RetentionAge:  durationOrDefault("TASKTRACKER_RETENTION_AGE", 30*24*time.Hour),
	}
	if p := strings.TrimSpace(os.Getenv("PORT")); p != "" {
		cfg.Port = p
	}
	return cfg
}

// Device holds settings for the device-side sync engine.
type Device struct {
	Backend   string
	BaseURL   string
	AuthToken string
	UserID    string
	DeviceID  string
	Filename  string
	StatePath string
	LogLevel  string

	PublishDebounce time.Duration
	ActivePoll      time.Duration
	IdlePoll        time.Duration
	ActivityWindow  time.Duration
}

// LoadDevice reads device configuration from environment variables.
// The device id is generated once and persisted next to the task file
// so it stays stable across restarts.
func LoadDevice() Device {
	statePath := envOrDefault("TASKTRACKER_STATE_PATH", defaultStatePath())
	cfg := Device{
		Backend:         envOrDefault("TASKTRACKER_BACKEND", BackendBlob),
		BaseURL:         envOrDefault("TASKTRACKER_BASE_URL", "http://localhost:8090"),
		AuthToken:       strings.TrimSpace(os.Getenv("TASKTRACKER_AUTH_TOKEN")),
		UserID:          envOrDefault("TASKTRACKER_USER_ID", "default"),
		Filename:        envOrDefault("TASKTRACKER_BLOB_FILENAME", "tasks.json"),
		StatePath:       statePath,
		LogLevel:        envOrDefault("TASKTRACKER_LOG_LEVEL", "info"),
		PublishDebounce: durationOrDefault("TASKTRACKER_PUBLISH_DEBOUNCE", 2*time.Second),
		ActivePoll:      durationOrDefault("TASKTRACKER_ACTIVE_POLL", 6*time.Second),
		IdlePoll:        durationOrDefault("TASKTRACKER_IDLE_POLL", 20*time.Second),
		ActivityWindow:  durationOrDefault("TASKTRACKER_ACTIVITY_WINDOW", 20*time.Second),
	}
	cfg.DeviceID = loadOrCreateDeviceID(filepath.Join(filepath.Dir(statePath), "device-id"))
	return cfg
}

func defaultStatePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "tasks.json"
	}
	return filepath.Join(home, ".tasktracker", "tasks.json")
}

func loadOrCreateDeviceID(path string) string {
	if b, err := os.ReadFile(path); err == nil {
		if id := strings.TrimSpace(string(b)); id != "" {
			return id
		}
	}
	id := uuid.NewString()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err == nil {
		_ = os.WriteFile(path, []byte(id+"\n"), 0o644)
	}
	return id
}

func envOrDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func durationOrDefault(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
