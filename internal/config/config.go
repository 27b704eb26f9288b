// Package config centralizes how RelayDrop reads environment variables and
// exposes them as strongly typed Go values.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ProviderConfig toggles one external host and points at its endpoint(s).
type ProviderConfig struct {
	Enabled   bool
	UploadURL string
	// ServerURL is only used by hosts that assign an upload server first.
	ServerURL string
	MaxSize   int64
}

// Config represents runtime configuration for the service.
type Config struct {
	Address         string
	MaxUploadSize   int64
	RegistryCap     int
	SweepInterval   time.Duration
	SearchMinLength int
	ProviderTimeout time.Duration

	FileIO    ProviderConfig
	GoFile    ProviderConfig
	TmpNinja  ProviderConfig
	AnonFiles ProviderConfig

	// Redis backs the asynq remote-cleanup queue. Leaving the address empty
	// disables the queue; deletes then clean up inline.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CleanupPool   int

	// S3 settings for the durable host variant. The adapter is only placed in
	// the chain when an endpoint is configured.
	S3Enabled   bool
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3Region    string
	S3UseSSL    bool
}

const (
	defaultAddress       = ":8080"
	defaultMaxUploadSize = 100 << 20 // 100 MiB
	defaultRegistryCap   = 1000
	defaultSweepInterval = 60 * time.Second
	defaultSearchMinLen  = 3
	defaultProviderTO    = 30 * time.Second
	defaultCleanupPool   = 2

	defaultFileIOURL       = "https://file.io"
	defaultGoFileServerURL = "https://api.gofile.io/getServer"
	defaultGoFileUploadURL = "https://{server}.gofile.io/uploadFile"
	defaultTmpNinjaURL     = "https://tmp.ninja/api.php?d=upload"
	defaultAnonFilesURL    = "https://api.anonfiles.com/upload"
)

// Load reads configuration from environment variables falling back to defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Address:         readEnv("RELAYDROP_ADDRESS", defaultAddress),
		MaxUploadSize:   parseInt64("RELAYDROP_MAX_UPLOAD_BYTES", defaultMaxUploadSize),
		RegistryCap:     parseInt("RELAYDROP_REGISTRY_CAP", defaultRegistryCap),
		SweepInterval:   parseDuration("RELAYDROP_SWEEP_INTERVAL", defaultSweepInterval),
		SearchMinLength: parseInt("RELAYDROP_SEARCH_MIN_LENGTH", defaultSearchMinLen),
		ProviderTimeout: parseDuration("RELAYDROP_PROVIDER_TIMEOUT", defaultProviderTO),
		FileIO: ProviderConfig{
			Enabled:   parseBool("RELAYDROP_FILEIO_ENABLED", true),
			UploadURL: readEnv("RELAYDROP_FILEIO_URL", defaultFileIOURL),
			MaxSize:   100 << 20,
		},
		GoFile: ProviderConfig{
			Enabled:   parseBool("RELAYDROP_GOFILE_ENABLED", true),
			UploadURL: readEnv("RELAYDROP_GOFILE_UPLOAD_URL", defaultGoFileUploadURL),
			ServerURL: readEnv("RELAYDROP_GOFILE_SERVER_URL", defaultGoFileServerURL),
		},
		TmpNinja: ProviderConfig{
			Enabled:   parseBool("RELAYDROP_TMPNINJA_ENABLED", true),
			UploadURL: readEnv("RELAYDROP_TMPNINJA_URL", defaultTmpNinjaURL),
			MaxSize:   500 << 20,
		},
		AnonFiles: ProviderConfig{
			Enabled:   parseBool("RELAYDROP_ANONFILES_ENABLED", true),
			UploadURL: readEnv("RELAYDROP_ANONFILES_URL", defaultAnonFilesURL),
			MaxSize:   100 << 20,
		},
		RedisAddr:     readEnv("RELAYDROP_REDIS_ADDR", ""),
		RedisPassword: readEnv("RELAYDROP_REDIS_PASSWORD", ""),
		RedisDB:       parseInt("RELAYDROP_REDIS_DB", 0),
		CleanupPool:   parseInt("RELAYDROP_CLEANUP_WORKERS", defaultCleanupPool),
		S3Endpoint:    readEnv("RELAYDROP_S3_ENDPOINT", ""),
		S3AccessKey:   readEnv("RELAYDROP_S3_ACCESS_KEY", ""),
		S3SecretKey:   readEnv("RELAYDROP_S3_SECRET_KEY", ""),
		S3Bucket:      readEnv("RELAYDROP_S3_BUCKET", "relaydrop"),
		S3Region:      readEnv("RELAYDROP_S3_REGION", "us-east-1"),
		S3UseSSL:      parseBool("RELAYDROP_S3_USE_SSL", true),
	}
	cfg.S3Enabled = parseBool("RELAYDROP_S3_ENABLED", cfg.S3Endpoint != "")
	if cfg.MaxUploadSize <= 0 {
		cfg.MaxUploadSize = defaultMaxUploadSize
	}
	if cfg.RegistryCap <= 0 {
		cfg.RegistryCap = defaultRegistryCap
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = defaultSweepInterval
	}
	if cfg.SearchMinLength < 1 {
		cfg.SearchMinLength = 1
	}
	if cfg.ProviderTimeout <= 0 {
		cfg.ProviderTimeout = defaultProviderTO
	}
	if cfg.CleanupPool <= 0 {
		cfg.CleanupPool = defaultCleanupPool
	}
	return cfg, nil
}

func readEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func parseInt64(key string, def int64) int64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			return parsed
		}
	}
	return def
}

func parseInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func parseBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		switch strings.ToLower(v) {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
	}
	return def
}

func parseDuration(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return def
}
