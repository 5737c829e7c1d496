package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Profile is the configuration to start the main server.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// Data is the data directory
	Data string
	// DSN points to where parley stores its own data
	DSN string
	// Driver is the database driver (sqlite or postgres)
	Driver string
	// Version is the current version of server
	Version string

	// LLM provider configuration
	LLMBaseURL string        // PARLEY_LLM_BASE_URL (default: https://api.openai.com/v1)
	LLMAPIKey  string        // PARLEY_LLM_API_KEY
	LLMModel   string        // PARLEY_LLM_MODEL (default: gpt-4o-mini)
	LLMTimeout time.Duration // PARLEY_LLM_TIMEOUT_SECONDS (default: 60s)
	LLMRetries int           // PARLEY_LLM_MAX_RETRIES (default: 3)

	// Pipeline configuration
	ContextWindow int // PARLEY_CONTEXT_WINDOW (default: 20 events)
	MaxMessageLen int // PARLEY_MAX_MESSAGE_LENGTH (default: 8000 runes)

	// Rate limiting for message sends, per user
	SendRatePerMinute int // PARLEY_SEND_RATE_PER_MINUTE (default: 30)
	SendBurst         int // PARLEY_SEND_BURST (default: 10)

	// Optional redis L2 session cache. Empty disables it.
	RedisAddr string // PARLEY_REDIS_ADDR
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnvOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		slog.Warn("invalid integer in environment, using default",
			slog.String("key", key), slog.String("value", value))
		return defaultValue
	}
	return n
}

// FromEnv loads configuration from PARLEY_* environment variables.
func (p *Profile) FromEnv() {
	p.LLMBaseURL = getEnvOrDefault("PARLEY_LLM_BASE_URL", "https://api.openai.com/v1")
	p.LLMAPIKey = os.Getenv("PARLEY_LLM_API_KEY")
	p.LLMModel = getEnvOrDefault("PARLEY_LLM_MODEL", "gpt-4o-mini")
	p.LLMTimeout = time.Duration(getIntEnvOrDefault("PARLEY_LLM_TIMEOUT_SECONDS", 60)) * time.Second
	p.LLMRetries = getIntEnvOrDefault("PARLEY_LLM_MAX_RETRIES", 3)

	p.ContextWindow = getIntEnvOrDefault("PARLEY_CONTEXT_WINDOW", 20)
	p.MaxMessageLen = getIntEnvOrDefault("PARLEY_MAX_MESSAGE_LENGTH", 8000)

	p.SendRatePerMinute = getIntEnvOrDefault("PARLEY_SEND_RATE_PER_MINUTE", 30)
	p.SendBurst = getIntEnvOrDefault("PARLEY_SEND_BURST", 10)

	p.RedisAddr = os.Getenv("PARLEY_REDIS_ADDR")
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Mode == "prod" && p.Data == "" {
		if runtime.GOOS == "windows" {
			p.Data = filepath.Join(os.Getenv("ProgramData"), "parley")
			if _, err := os.Stat(p.Data); os.IsNotExist(err) {
				if err := os.MkdirAll(p.Data, 0770); err != nil {
					slog.Error("failed to create data directory", slog.String("data", p.Data), slog.String("error", err.Error()))
					return err
				}
			}
		} else {
			p.Data = "/var/opt/parley"
		}
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check data dir", slog.String("data", dataDir), slog.String("error", err.Error()))
		return err
	}

	p.Data = dataDir
	if p.Driver == "sqlite" && p.DSN == "" {
		dbFile := fmt.Sprintf("parley_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}

	return nil
}
