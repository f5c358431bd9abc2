package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix = "FILEVAULT"

	defaultSessionSecret = "change-me-session-secret"
)

// Config is the complete runtime configuration of the service.
//
// Sources, highest precedence first: FILEVAULT_* environment variables
// (DATABASE_URL is also honoured for the DSN), the YAML config file,
// built-in defaults.
type Config struct {
	AppEnv   string         `mapstructure:"app_env" yaml:"app_env" validate:"required"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Blob     BlobConfig     `mapstructure:"blob" yaml:"blob"`
	Session  SessionConfig  `mapstructure:"session" yaml:"session"`
	Upload   UploadConfig   `mapstructure:"upload" yaml:"upload"`
	Quota    QuotaConfig    `mapstructure:"quota" yaml:"quota"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"required,oneof=text json"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr" yaml:"addr" validate:"required"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" validate:"required,gt=0"`
	// PublicBaseURL prefixes share links handed back to clients.
	PublicBaseURL      string   `mapstructure:"public_base_url" yaml:"public_base_url"`
	CORSAllowedOrigins []string `mapstructure:"cors_allowed_origins" yaml:"cors_allowed_origins"`
}

type DatabaseConfig struct {
	// DSN starting with postgres:// or postgresql:// selects PostgreSQL,
	// anything else is treated as a SQLite path/DSN.
	DSN         string `mapstructure:"dsn" yaml:"dsn" validate:"required"`
	AutoMigrate bool   `mapstructure:"auto_migrate" yaml:"auto_migrate"`
}

// BlobConfig selects the blob store. Only the section matching Type is read;
// each store decodes its own options.
type BlobConfig struct {
	Type       string         `mapstructure:"type" yaml:"type" validate:"required,oneof=filesystem s3 memory"`
	Filesystem map[string]any `mapstructure:"filesystem" yaml:"filesystem,omitempty"`
	S3         map[string]any `mapstructure:"s3" yaml:"s3,omitempty"`
}

type SessionConfig struct {
	Store          string         `mapstructure:"store" yaml:"store" validate:"required,oneof=badger database"`
	Secret         string         `mapstructure:"secret" yaml:"secret" validate:"required"`
	TTL            time.Duration  `mapstructure:"ttl" yaml:"ttl" validate:"required,gt=0"`
	CookieName     string         `mapstructure:"cookie_name" yaml:"cookie_name" validate:"required"`
	CookieSecure   bool           `mapstructure:"cookie_secure" yaml:"cookie_secure"`
	CookieSameSite string         `mapstructure:"cookie_same_site" yaml:"cookie_same_site" validate:"required"`
	CookiePath     string         `mapstructure:"cookie_path" yaml:"cookie_path" validate:"required"`
	Badger         map[string]any `mapstructure:"badger" yaml:"badger,omitempty"`
}

type UploadConfig struct {
	// MaxFileSize is the per-request transport limit, independent of the quota.
	MaxFileSize int64 `mapstructure:"max_file_size" yaml:"max_file_size" validate:"required,gt=0"`
}

type QuotaConfig struct {
	PerUserBytes int64 `mapstructure:"per_user_bytes" yaml:"per_user_bytes" validate:"required,gt=0"`
}

// Load reads configuration from the environment, the config file and defaults,
// then validates it.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only resolves keys viper already knows about.
	registerDefaults(v, GetDefaultConfig())
	_ = v.BindEnv("database.dsn", envPrefix+"_DATABASE_DSN", "DATABASE_URL")
	_ = v.BindEnv("app_env", envPrefix+"_APP_ENV", "APP_ENV")
	for _, key := range []string{"bucket", "endpoint", "key_prefix", "access_key_id", "secret_access_key", "max_retries"} {
		_ = v.BindEnv("blob.s3." + key)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}
	v.AddConfigPath(getConfigDir())
	v.SetConfigName("config")
	v.SetConfigType("yaml")
}

func registerDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("app_env", d.AppEnv)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	v.SetDefault("server.public_base_url", d.Server.PublicBaseURL)
	v.SetDefault("server.cors_allowed_origins", d.Server.CORSAllowedOrigins)
	v.SetDefault("database.dsn", d.Database.DSN)
	v.SetDefault("database.auto_migrate", d.Database.AutoMigrate)
	v.SetDefault("blob.type", d.Blob.Type)
	v.SetDefault("blob.filesystem.path", d.Blob.Filesystem["path"])
	v.SetDefault("blob.s3.region", d.Blob.S3["region"])
	v.SetDefault("session.store", d.Session.Store)
	v.SetDefault("session.secret", d.Session.Secret)
	v.SetDefault("session.ttl", d.Session.TTL)
	v.SetDefault("session.cookie_name", d.Session.CookieName)
	v.SetDefault("session.cookie_secure", d.Session.CookieSecure)
	v.SetDefault("session.cookie_same_site", d.Session.CookieSameSite)
	v.SetDefault("session.cookie_path", d.Session.CookiePath)
	v.SetDefault("session.badger.path", d.Session.Badger["path"])
	v.SetDefault("session.badger.in_memory", d.Session.Badger["in_memory"])
	v.SetDefault("upload.max_file_size", d.Upload.MaxFileSize)
	v.SetDefault("quota.per_user_bytes", d.Quota.PerUserBytes)
}

func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// getConfigDir returns $XDG_CONFIG_HOME/filevault, ~/.config/filevault, or "."
func getConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "filevault")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "filevault")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// IsProdLike reports whether the environment name denotes production.
func IsProdLike(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "prod" || env == "production" || env == "release"
}

func isEmptyOrDefault(v, def string) bool {
	trimmed := strings.TrimSpace(v)
	return trimmed == "" || trimmed == def
}
