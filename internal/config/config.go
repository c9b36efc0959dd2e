// Package config holds runtime settings for the vault, built from defaults,
// an optional JSON file and command-line flags, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/passvault/internal/cryptox"
)

// Config holds runtime settings.
//
// Vault-wide cost parameters (Scrypt, PBKDF2Iterations) apply to newly
// registered users and to master-password rotation; existing users keep the
// parameters recorded with their credentials.
type Config struct {
	DatabaseDSN string
	LogLevel    string
	LogFormat   string

	Scrypt           cryptox.ScryptParams
	PBKDF2Iterations int

	LockoutThreshold int
	LockoutWindow    time.Duration
	AttemptRetention time.Duration

	DefaultClipboardTimeout time.Duration
	DefaultAutoLockTimeout  time.Duration
	DefaultTheme            string
	DefaultLanguage         string
	DefaultCategory         string

	MinPassphraseScore int
	GeneratorLength    int
	GeneratorCharset   string

	ExportBackend  string
	ExportDir      string
	S3Bucket       string
	S3Region       string
	S3BaseEndpoint string
	S3AccessKey    string
	S3SecretKey    string
}

// LoadDefaults populates c with the defaults of a local single-user vault.
func (c *Config) LoadDefaults() {
	c.DatabaseDSN = "vault.db"
	c.LogLevel = "info"
	c.LogFormat = "text"

	c.Scrypt = cryptox.DefaultScrypt
	c.PBKDF2Iterations = cryptox.DefaultPBKDF2Iterations

	c.LockoutThreshold = 5
	c.LockoutWindow = time.Hour
	c.AttemptRetention = 24 * time.Hour

	c.DefaultClipboardTimeout = 30 * time.Second
	c.DefaultAutoLockTimeout = 300 * time.Second
	c.DefaultTheme = "dark"
	c.DefaultLanguage = "ar"
	c.DefaultCategory = "general"

	c.MinPassphraseScore = 0
	c.GeneratorLength = cryptox.DefaultPassphraseLength
	c.GeneratorCharset = cryptox.DefaultCharset

	c.ExportBackend = ExportBackendFile
	c.ExportDir = "exports"
	c.S3Region = "us-east-1"
}

const (
	ExportBackendFile = "file"
	ExportBackendS3   = "s3"
)

// Validate rejects settings that would weaken the vault or cannot work.
func (c *Config) Validate() error {
	var errs []error

	if c.DatabaseDSN == "" {
		errs = append(errs, errors.New("database DSN is empty"))
	}
	if err := c.Scrypt.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.PBKDF2Iterations < cryptox.MinPBKDF2Iterations {
		errs = append(errs, fmt.Errorf("pbkdf2 iterations %d below %d", c.PBKDF2Iterations, cryptox.MinPBKDF2Iterations))
	}
	if c.LockoutThreshold < 1 {
		errs = append(errs, errors.New("lockout threshold must be at least 1"))
	}
	if c.LockoutWindow <= 0 {
		errs = append(errs, errors.New("lockout window must be positive"))
	}
	if c.AttemptRetention < c.LockoutWindow {
		errs = append(errs, errors.New("attempt retention must cover the lockout window"))
	}
	if c.DefaultClipboardTimeout < time.Second || c.DefaultAutoLockTimeout < time.Second {
		errs = append(errs, errors.New("default timeouts must be at least one second"))
	}
	if c.MinPassphraseScore < 0 || c.MinPassphraseScore > 4 {
		errs = append(errs, errors.New("minimum passphrase score must be within 0..4"))
	}
	if c.GeneratorLength < 1 || c.GeneratorCharset == "" {
		errs = append(errs, errors.New("generator needs a positive length and a charset"))
	}
	switch c.ExportBackend {
	case ExportBackendFile:
	case ExportBackendS3:
		if c.S3Bucket == "" {
			errs = append(errs, errors.New("s3 export backend requires a bucket"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown export backend %q", c.ExportBackend))
	}

	return errors.Join(errs...)
}

// LoadConfig applies defaults, then the JSON file named by -c/-config in
// args, then the flags in args, and validates the result.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
