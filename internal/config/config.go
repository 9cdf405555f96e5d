package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the chart bridge service.
type Config struct {
	// HTTP bind settings
	BindAddr      string
	FallbackAddrs []string

	// Chart defaults pushed into freshly attached engine instances
	DefaultSymbol string
	DefaultTheme  string

	// Sequencing delays
	ApplySettle time.Duration
	ModalMount  time.Duration
	ModalClose  time.Duration

	// Layout persistence
	DataDir string

	// Engine bundle origin for the asset cache
	AssetOrigin string

	// Line-cross notifications; empty disables them
	NotifyEndpoint string

	// Logging
	LogLevel string
	LogFile  string
}

// Load reads configuration from environment variables and optional .env file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	}

	cfg := &Config{
		BindAddr:       getEnvOrDefault("BRIDGE_BIND_ADDR", "127.0.0.1:8189"),
		FallbackAddrs:  splitList(getEnvOrDefault("BRIDGE_FALLBACK_ADDRS", "127.0.0.1:8190,127.0.0.1:8191")),
		DefaultSymbol:  getEnvOrDefault("BRIDGE_DEFAULT_SYMBOL", "VNINDEX"),
		DefaultTheme:   strings.ToLower(getEnvOrDefault("BRIDGE_DEFAULT_THEME", "light")),
		ApplySettle:    getEnvDurationMS("BRIDGE_APPLY_SETTLE_MS", 500),
		ModalMount:     getEnvDurationMS("BRIDGE_MODAL_MOUNT_MS", 200),
		ModalClose:     getEnvDurationMS("BRIDGE_MODAL_CLOSE_MS", 800),
		DataDir:        getEnvOrDefault("BRIDGE_DATA_DIR", "./bridge_data"),
		AssetOrigin:    getEnvOrDefault("BRIDGE_ASSET_ORIGIN", "https://charting.fireant.vn/bundle"),
		NotifyEndpoint: getEnvOrDefault("BRIDGE_NOTIFY_ENDPOINT", ""),
		LogLevel:       strings.ToLower(getEnvOrDefault("BRIDGE_LOG_LEVEL", "info")),
		LogFile:        getEnvOrDefault("BRIDGE_LOG_FILE", "logs/chart_bridge.log"),
	}

	return cfg, nil
}

func splitList(val string) []string {
	var out []string
	for _, item := range strings.Split(val, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
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

func getEnvDurationMS(key string, defaultMS int) time.Duration {
	return time.Duration(getEnvIntOrDefault(key, defaultMS)) * time.Millisecond
}
