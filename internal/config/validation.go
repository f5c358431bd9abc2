package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate runs struct-tag validation followed by the rules tags cannot express.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	return validateCustomRules(cfg)
}

func validateCustomRules(cfg *Config) error {
	sameSite := strings.ToLower(strings.TrimSpace(cfg.Session.CookieSameSite))
	if sameSite != "lax" && sameSite != "none" && sameSite != "strict" {
		return fmt.Errorf("session.cookie_same_site must be one of: Lax, None, Strict")
	}
	if sameSite == "none" && !cfg.Session.CookieSecure {
		return fmt.Errorf("session.cookie_secure must be true when session.cookie_same_site=None")
	}

	if cfg.Upload.MaxFileSize > cfg.Quota.PerUserBytes {
		return fmt.Errorf("upload.max_file_size (%d) must not exceed quota.per_user_bytes (%d)",
			cfg.Upload.MaxFileSize, cfg.Quota.PerUserBytes)
	}

	if cfg.Blob.Type == "s3" {
		if bucket, _ := cfg.Blob.S3["bucket"].(string); strings.TrimSpace(bucket) == "" {
			return fmt.Errorf("blob.s3.bucket is required when blob.type=s3")
		}
	}

	if IsProdLike(cfg.AppEnv) {
		if isEmptyOrDefault(cfg.Session.Secret, defaultSessionSecret) {
			return fmt.Errorf("in prod/release session.secret must be set and not default")
		}
		if !cfg.Session.CookieSecure {
			return fmt.Errorf("in prod/release session.cookie_secure must be true")
		}
		if cfg.Blob.Type == "memory" {
			return fmt.Errorf("in prod/release blob.type must not be memory")
		}
	}

	return nil
}

func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok && len(validationErrs) > 0 {
		e := validationErrs[0]
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
			e.Namespace(), e.Tag(), e.Value())
	}
	return err
}
