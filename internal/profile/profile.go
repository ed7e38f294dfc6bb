package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pkg/errors"
)

// Profile is the configuration to start main server.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// Data is the data directory
	Data string
	// DSN points to where confluo stores its own data
	DSN string
	// Driver is the database driver (sqlite or postgres)
	Driver string
	// Version is the current version of server
	Version string
	// InstanceURL is the url of your confluo instance.
	InstanceURL string

	// AI configuration for the chat assistant.
	AIEnabled    bool   // CONFLUO_AI_ENABLED
	AIAPIKey     string // CONFLUO_AI_API_KEY
	AIBaseURL    string // CONFLUO_AI_BASE_URL (default: https://api.openai.com/v1)
	AIModel      string // CONFLUO_AI_MODEL (default: gpt-4o-mini)

	// Calendar provider configuration.
	CalendarEnabled         bool   // CONFLUO_CALENDAR_ENABLED
	CalendarCredentialsFile string // CONFLUO_CALENDAR_CREDENTIALS (OAuth client JSON)
	CalendarTokenFile       string // CONFLUO_CALENDAR_TOKEN (cached OAuth token)
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAIEnabled returns true if the chat assistant can reach an LLM backend.
func (p *Profile) IsAIEnabled() bool {
	return p.AIEnabled && p.AIAPIKey != ""
}

// IsCalendarEnabled returns true if a calendar provider is configured.
func (p *Profile) IsCalendarEnabled() bool {
	return p.CalendarEnabled && p.CalendarCredentialsFile != ""
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// FromEnv loads configuration from CONFLUO_* environment variables.
func (p *Profile) FromEnv() {
	p.AIEnabled = os.Getenv("CONFLUO_AI_ENABLED") == "true"
	p.AIAPIKey = os.Getenv("CONFLUO_AI_API_KEY")
	p.AIBaseURL = getEnvOrDefault("CONFLUO_AI_BASE_URL", "https://api.openai.com/v1")
	p.AIModel = getEnvOrDefault("CONFLUO_AI_MODEL", "gpt-4o-mini")

	p.CalendarEnabled = os.Getenv("CONFLUO_CALENDAR_ENABLED") == "true"
	p.CalendarCredentialsFile = os.Getenv("CONFLUO_CALENDAR_CREDENTIALS")
	p.CalendarTokenFile = os.Getenv("CONFLUO_CALENDAR_TOKEN")
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
			p.Data = filepath.Join(os.Getenv("ProgramData"), "confluo")
			if _, err := os.Stat(p.Data); os.IsNotExist(err) {
				if err := os.MkdirAll(p.Data, 0770); err != nil {
					slog.Error("failed to create data directory", slog.String("data", p.Data), slog.String("error", err.Error()))
					return err
				}
			}
		} else {
			p.Data = "/var/opt/confluo"
		}
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check data dir", slog.String("data", dataDir), slog.String("error", err.Error()))
		return err
	}

	p.Data = dataDir
	if p.Driver == "sqlite" && p.DSN == "" {
		dbFile := fmt.Sprintf("confluo_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}

	return nil
}
