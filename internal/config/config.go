// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for databases, results and cache (always absolute)
	Port     int
	LogLevel string
	DevMode  bool

	Scan   ScanConfig
	Exit   ExitConfig
	Sync   SyncConfig
	AI     AIConfig
	Backup BackupConfig
}

// ScanConfig holds the tunables of the opportunity scan cycle
type ScanConfig struct {
	Interval     time.Duration // Delay between scan cycles
	ChunkSize    int           // Tickers per snapshot batch request
	TopMovers    int           // Snapshot rows (by percent change) promoted to strategy candidates
	Targets      []string      // Explicit candidate tickers; overrides TopMovers selection when set
	LookbackDays int           // Trailing daily bars loaded per scan candidate
	ResultsPath  string        // Where the scan results document is written

	// Box breakout parameters
	BoxWindow          int
	BoxPriceMultiplier float64
	BoxVolumeMult      float64
	BoxAmplitudeMax    float64
	BoxAmplitudeMin    float64 // 0 disables the lower amplitude bound

	// Moving-average crossover parameters
	MAShortWindow int
	MALongWindow  int
}

// ExitConfig holds the exit-rule thresholds for open positions
type ExitConfig struct {
	StopLossThreshold   float64 // Profit ratio at or below which stop-loss fires (negative)
	TakeProfitThreshold float64 // Profit ratio at or above which take-profit fires (positive)
}

// SyncConfig holds the daily bar sync settings
type SyncConfig struct {
	Cron         string        // Cron spec (with seconds) for the daily sync job
	BackfillDays int           // Calendar days backfilled for tickers with no stored bars
	Politeness   time.Duration // Delay between per-ticker history requests
}

// AIConfig holds the commentary generator settings. With no API key the
// generator produces deterministic template reports.
type AIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// BackupConfig holds S3-compatible backup settings. Backups are skipped
// (log only) when the bucket is not configured.
type BackupConfig struct {
	Cron            string
	Bucket          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Prefix          string
	RetentionDays   int // 0 keeps every backup
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("DATA_DIR", "./data")

	// Always resolve to absolute path
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	// Ensure directory exists
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:  absDataDir,
		Port:     getEnvAsInt("PORT", 8000),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		DevMode:  getEnvAsBool("DEV_MODE", false),
		Scan: ScanConfig{
			Interval:     time.Duration(getEnvAsInt("SCAN_INTERVAL_SECONDS", 60)) * time.Second,
			ChunkSize:    getEnvAsInt("SCAN_CHUNK_SIZE", 100),
			TopMovers:    getEnvAsInt("SCAN_TOP_MOVERS", 50),
			Targets:      splitList(getEnv("SCAN_TARGETS", "")),
			LookbackDays: getEnvAsInt("SCAN_LOOKBACK_DAYS", 365),
			ResultsPath:  filepath.Join(absDataDir, "scan_results.json"),

			BoxWindow:          getEnvAsInt("BOX_WINDOW", 60),
			BoxPriceMultiplier: getEnvAsFloat("BOX_PRICE_MULTIPLIER", 1.0),
			BoxVolumeMult:      getEnvAsFloat("BOX_VOLUME_MULTIPLIER", 1.5),
			BoxAmplitudeMax:    getEnvAsFloat("BOX_AMPLITUDE_MAX", 0.5),
			BoxAmplitudeMin:    getEnvAsFloat("BOX_AMPLITUDE_MIN", 0),

			MAShortWindow: getEnvAsInt("MA_SHORT_WINDOW", 5),
			MALongWindow:  getEnvAsInt("MA_LONG_WINDOW", 20),
		},
		Exit: ExitConfig{
			StopLossThreshold:   getEnvAsFloat("STOP_LOSS_THRESHOLD", -0.05),
			TakeProfitThreshold: getEnvAsFloat("TAKE_PROFIT_THRESHOLD", 0.10),
		},
		Sync: SyncConfig{
			// Weekday pre-open, after the exchange publishes the previous session
			Cron:         getEnv("SYNC_CRON", "0 30 8 * * MON-FRI"),
			BackfillDays: getEnvAsInt("SYNC_BACKFILL_DAYS", 365),
			Politeness:   time.Duration(getEnvAsInt("SYNC_POLITENESS_MS", 100)) * time.Millisecond,
		},
		AI: AIConfig{
			APIKey:  getEnv("AI_API_KEY", ""),
			BaseURL: getEnv("AI_BASE_URL", "https://api.deepseek.com/v1"),
			Model:   getEnv("AI_MODEL", "deepseek-chat"),
		},
		Backup: BackupConfig{
			Cron:            getEnv("BACKUP_CRON", "0 0 2 * * *"),
			Bucket:          getEnv("BACKUP_S3_BUCKET", ""),
			Endpoint:        getEnv("BACKUP_S3_ENDPOINT", ""),
			AccessKeyID:     getEnv("BACKUP_S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("BACKUP_S3_SECRET_ACCESS_KEY", ""),
			Prefix:          getEnv("BACKUP_S3_PREFIX", "alphahunter"),
			RetentionDays:   getEnvAsInt("BACKUP_RETENTION_DAYS", 30),
		},
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that configured tunables are internally consistent
func (c *Config) Validate() error {
	if c.Scan.ChunkSize <= 0 {
		return fmt.Errorf("SCAN_CHUNK_SIZE must be positive, got %d", c.Scan.ChunkSize)
	}
	if c.Scan.BoxWindow <= 0 {
		return fmt.Errorf("BOX_WINDOW must be positive, got %d", c.Scan.BoxWindow)
	}
	if c.Scan.MAShortWindow >= c.Scan.MALongWindow {
		return fmt.Errorf("MA_SHORT_WINDOW (%d) must be smaller than MA_LONG_WINDOW (%d)",
			c.Scan.MAShortWindow, c.Scan.MALongWindow)
	}
	if c.Exit.StopLossThreshold >= 0 {
		return fmt.Errorf("STOP_LOSS_THRESHOLD must be negative, got %f", c.Exit.StopLossThreshold)
	}
	if c.Exit.TakeProfitThreshold <= 0 {
		return fmt.Errorf("TAKE_PROFIT_THRESHOLD must be positive, got %f", c.Exit.TakeProfitThreshold)
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
