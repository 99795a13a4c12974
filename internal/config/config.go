package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Autocapture is the immutable capture policy snapshot handed to the gate
// and each observer at start. Nothing mutates it after initialization.
// MaxEventsPerSession < 0 means no ceiling; 0 drops every event.
type Autocapture struct {
	Clicks              bool
	PageViews           bool
	DebugLog            bool
	SamplingRate        float64
	MaxEventsPerSession int
	FlushDwellOnStop    bool
}

// Config holds all configuration for the capture agent.
type Config struct {
	// CDP connection settings
	CDPAddress   string
	CDPPort      int
	TabURLFilter string

	// Collector settings
	CollectorURL string
	AppID        string
	UserID       string

	// Control API
	ControlBindAddr string

	// Optional managed browser
	LaunchBrowser     bool
	BrowserProfileDir string
	BrowserStartURL   string

	// Local spool
	SpoolDir     string
	SpoolEnabled bool
	SpoolMaxMB   int
	SpoolBuffer  int

	Autocapture Autocapture
}

// Load reads configuration from environment variables and optional .env file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	}

	cfg := &Config{
		CDPAddress:      getEnvOrDefault("CHROMIUM_CDP_ADDRESS", "127.0.0.1"),
		CDPPort:         getEnvIntOrDefault("CHROMIUM_CDP_PORT", 9222),
		TabURLFilter:    getEnvOrDefault("PAGEPULSE_TAB_URL_FILTER", ""),
		CollectorURL:    getEnvOrDefault("PAGEPULSE_COLLECTOR_URL", "http://127.0.0.1:8085/events"),
		AppID:           getEnvOrDefault("PAGEPULSE_APP_ID", "pagepulse"),
		UserID:          getEnvOrDefault("PAGEPULSE_USER_ID", ""),
		ControlBindAddr: getEnvOrDefault("PAGEPULSE_CONTROL_BIND", "127.0.0.1:8830"),

		LaunchBrowser:     getEnvBoolOrDefault("PAGEPULSE_LAUNCH_BROWSER", false),
		BrowserProfileDir: getEnvOrDefault("PAGEPULSE_BROWSER_PROFILE_DIR", "./browser_profile"),
		BrowserStartURL:   getEnvOrDefault("PAGEPULSE_BROWSER_START_URL", ""),
		SpoolDir:          getEnvOrDefault("PAGEPULSE_SPOOL_DIR", "./spool"),
		SpoolEnabled:      getEnvBoolOrDefault("PAGEPULSE_SPOOL_ENABLED", true),
		SpoolMaxMB:        getEnvIntOrDefault("PAGEPULSE_SPOOL_MAX_MB", 100),
		SpoolBuffer:       getEnvIntOrDefault("PAGEPULSE_SPOOL_BUFFER", 1000),
		Autocapture: Autocapture{
			Clicks:              getEnvBoolOrDefault("PAGEPULSE_CAPTURE_CLICKS", true),
			PageViews:           getEnvBoolOrDefault("PAGEPULSE_CAPTURE_PAGEVIEWS", true),
			DebugLog:            getEnvBoolOrDefault("PAGEPULSE_DEBUG_LOG", false),
			SamplingRate:        getEnvFloatOrDefault("PAGEPULSE_SAMPLING_RATE", 1.0),
			MaxEventsPerSession: getEnvIntOrDefault("PAGEPULSE_MAX_EVENTS_PER_SESSION", -1),
			FlushDwellOnStop:    getEnvBoolOrDefault("PAGEPULSE_FLUSH_DWELL_ON_STOP", false),
		},
	}

	return cfg, nil
}

// GetCDPURL returns the full CDP HTTP endpoint used by chromedp remote allocator.
func (c *Config) GetCDPURL() string {
	return fmt.Sprintf("http://%s:%d", c.CDPAddress, c.CDPPort)
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvIntOrDefault(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBoolOrDefault(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvFloatOrDefault(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
