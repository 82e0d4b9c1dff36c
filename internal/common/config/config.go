package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"github.com/uma-arai/hotelgen-batch/internal/common/database"
)

// 出力先
const (
	OutputPostgres = "postgres"
	OutputFile     = "file"
)

type Config struct {
	Env string
	DB  database.Config
	SFN struct {
		TaskToken string
	}
	EnableTracing bool
	LogLevel      string
	Generation    Generation
}

// Generation はデータ生成バッチの実行設定です
// ジョブ定義 (YAML) に含まれない、実行環境ごとに変わる値を持ちます
type Generation struct {
	JobFile         string
	Output          string
	OutputDir       string
	Workers         int
	BatchSize       int
	CheckpointEvery int
	ResumeRunID     string
	Reset           bool
	// Seed はジョブ定義のシードを上書きします
	Seed *uint64
}

// IsLocal はローカル実行かを返します
func (c *Config) IsLocal() bool {
	return c.Env == "LOCAL"
}

// LoadConfig は設定を読み込みます
func LoadConfig(taskToken string) (*Config, error) {
	// ローカルでは.envがあれば読み込む。既に設定済みの環境変数は上書きしない
	if os.Getenv("ENV") == "LOCAL" {
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	cfg := &Config{
		Env: os.Getenv("ENV"),
		DB: database.Config{
			Host:     getEnvOrDefault("DB_HOST", "localhost"),
			Port:     getEnvAsIntOrDefault("DB_PORT", 5432),
			UserName: getEnvOrDefault("DB_USERNAME", "hotelgen"),
			Password: getEnvOrDefault("DB_PASSWORD", "password"),
			DBName:   getEnvOrDefault("DB_NAME", "hotelgen"),
			SSLMode:  os.Getenv("DB_SSLMODE"),
		},
		SFN: struct {
			TaskToken string
		}{
			TaskToken: taskToken,
		},
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
		Generation: Generation{
			JobFile:         getEnvOrDefault("HOTELGEN_JOB_FILE", "configs/job.yaml"),
			Output:          strings.ToLower(getEnvOrDefault("HOTELGEN_OUTPUT", OutputPostgres)),
			OutputDir:       getEnvOrDefault("HOTELGEN_OUTPUT_DIR", "out"),
			Workers:         getEnvAsIntOrDefault("HOTELGEN_WORKERS", runtime.NumCPU()),
			BatchSize:       getEnvAsIntOrDefault("HOTELGEN_BATCH_SIZE", 5000),
			CheckpointEvery: getEnvAsIntOrDefault("HOTELGEN_CHECKPOINT_EVERY", 30),
			ResumeRunID:     os.Getenv("HOTELGEN_RESUME_RUN_ID"),
			Reset:           getEnvAsBool("HOTELGEN_RESET"),
		},
	}

	if v := os.Getenv("HOTELGEN_SEED"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("HOTELGEN_SEED must be an unsigned integer: %w", err)
		}
		cfg.Generation.Seed = &seed
	}

	switch cfg.Generation.Output {
	case OutputPostgres, OutputFile:
	default:
		return nil, fmt.Errorf("HOTELGEN_OUTPUT must be %q or %q, got %q", OutputPostgres, OutputFile, cfg.Generation.Output)
	}
	if cfg.Generation.Workers < 1 {
		cfg.Generation.Workers = 1
	}
	if cfg.Generation.BatchSize < 1 {
		return nil, fmt.Errorf("HOTELGEN_BATCH_SIZE must be positive, got %d", cfg.Generation.BatchSize)
	}
	if cfg.Generation.CheckpointEvery < 0 {
		return nil, fmt.Errorf("HOTELGEN_CHECKPOINT_EVERY must not be negative, got %d", cfg.Generation.CheckpointEvery)
	}
	if cfg.Generation.Reset && cfg.Generation.ResumeRunID != "" {
		return nil, fmt.Errorf("HOTELGEN_RESET and HOTELGEN_RESUME_RUN_ID cannot be combined")
	}

	// 環境変数[SBCNTR_ENABLE_TRACING]を見てトレースを有効にする。対応しているTracingはAWS_XRAYのみ。
	// 環境変数[AWS_XRAY_SDK_DISABLED]がtrueの場合は必ずトレースを無効にする。
	enableKey := os.Getenv("SBCNTR_ENABLE_TRACING")
	if !sdkDisabled() && (strings.ToLower(enableKey) == "true" || enableKey == "1") {
		os.Setenv("AWS_XRAY_SDK_DISABLED", "FALSE")
		cfg.EnableTracing = true
	} else {
		os.Setenv("AWS_XRAY_SDK_DISABLED", "TRUE")
		cfg.EnableTracing = false
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	log.Debug("environment variable is not set, using default value", "key", key, "default", defaultValue)
	return defaultValue
}

func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
		log.Warn("environment variable is not an integer, using default value", "key", key, "value", value)
	}
	return defaultValue
}

func getEnvAsBool(key string) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && v
}

// Check if SDK is disabled
func sdkDisabled() bool {
	disableKey := os.Getenv("AWS_XRAY_SDK_DISABLED")
	return strings.ToLower(disableKey) == "true"
}
