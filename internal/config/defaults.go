package config

import (
	"strings"
	"time"
)

const (
	defaultMaxFileSize  int64 = 15 * 1024 * 1024
	defaultQuotaBytes   int64 = 50 * 1024 * 1024
	defaultSessionTTL         = 7 * 24 * time.Hour
	defaultCookieName         = "filevault_sid"
	defaultCookiePath         = "/"
	defaultCookieSameSite     = "Lax"
)

// ApplyDefaults fills zero-valued fields. Explicit values are preserved;
// backend-specific options are defaulted here only so that generated
// config files show them.
func ApplyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.AppEnv) == "" {
		cfg.AppEnv = "dev"
	}
	cfg.AppEnv = strings.ToLower(strings.TrimSpace(cfg.AppEnv))

	applyLoggingDefaults(&cfg.Logging)
	applyServerDefaults(&cfg.Server)
	applyDatabaseDefaults(&cfg.Database)
	applyBlobDefaults(&cfg.Blob)
	applySessionDefaults(&cfg.Session)

	if cfg.Upload.MaxFileSize == 0 {
		cfg.Upload.MaxFileSize = defaultMaxFileSize
	}
	if cfg.Quota.PerUserBytes == 0 {
		cfg.Quota.PerUserBytes = defaultQuotaBytes
	}
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
}

func applyServerDefaults(cfg *ServerConfig) {
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 15 * time.Second
	}
	if cfg.PublicBaseURL == "" {
		cfg.PublicBaseURL = "http://localhost:8080"
	}
	cfg.PublicBaseURL = strings.TrimRight(cfg.PublicBaseURL, "/")
	if cfg.CORSAllowedOrigins == nil {
		cfg.CORSAllowedOrigins = []string{"http://localhost:3000"}
	}
}

func applyDatabaseDefaults(cfg *DatabaseConfig) {
	if cfg.DSN == "" {
		cfg.DSN = "filevault.db"
	}
}

func applyBlobDefaults(cfg *BlobConfig) {
	if cfg.Type == "" {
		cfg.Type = "filesystem"
	}

	if cfg.Filesystem == nil {
		cfg.Filesystem = make(map[string]any)
	}
	if cfg.S3 == nil {
		cfg.S3 = make(map[string]any)
	}

	if _, ok := cfg.Filesystem["path"]; !ok {
		cfg.Filesystem["path"] = "./uploads"
	}
	if _, ok := cfg.S3["region"]; !ok {
		cfg.S3["region"] = "us-east-1"
	}
}

func applySessionDefaults(cfg *SessionConfig) {
	if cfg.Store == "" {
		cfg.Store = "badger"
	}
	if cfg.Secret == "" {
		cfg.Secret = defaultSessionSecret
	}
	if cfg.TTL == 0 {
		cfg.TTL = defaultSessionTTL
	}
	if cfg.CookieName == "" {
		cfg.CookieName = defaultCookieName
	}
	if cfg.CookiePath == "" {
		cfg.CookiePath = defaultCookiePath
	}
	if cfg.CookieSameSite == "" {
		cfg.CookieSameSite = defaultCookieSameSite
	}

	if cfg.Badger == nil {
		cfg.Badger = make(map[string]any)
	}
	if _, ok := cfg.Badger["path"]; !ok {
		cfg.Badger["path"] = "./data/sessions"
	}
	if _, ok := cfg.Badger["in_memory"]; !ok {
		cfg.Badger["in_memory"] = false
	}
}

// GetDefaultConfig returns a Config with every default applied.
func GetDefaultConfig() *Config {
	cfg := &Config{Database: DatabaseConfig{AutoMigrate: true}}
	ApplyDefaults(cfg)
	return cfg
}
