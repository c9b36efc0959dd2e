package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/passvault/internal/flagx"
	"github.com/dmitrijs2005/passvault/internal/timex"
)

// JsonConfig is the on-disk representation of Config. Durations use
// timex.Duration so they may be written as "30s" or as nanoseconds.
type JsonConfig struct {
	DatabaseDSN string `json:"database_dsn"`
	LogLevel    string `json:"log_level"`
	LogFormat   string `json:"log_format"`

	ScryptN          int `json:"scrypt_n"`
	ScryptR          int `json:"scrypt_r"`
	ScryptP          int `json:"scrypt_p"`
	PBKDF2Iterations int `json:"pbkdf2_iterations"`

	LockoutThreshold int            `json:"lockout_threshold"`
	LockoutWindow    timex.Duration `json:"lockout_window"`
	AttemptRetention timex.Duration `json:"attempt_retention"`

	DefaultClipboardTimeout timex.Duration `json:"default_clipboard_timeout"`
	DefaultAutoLockTimeout  timex.Duration `json:"default_auto_lock_timeout"`
	DefaultTheme            string         `json:"default_theme"`
	DefaultLanguage         string         `json:"default_language"`
	DefaultCategory         string         `json:"default_category"`

	MinPassphraseScore int    `json:"min_passphrase_score"`
	GeneratorLength    int    `json:"generator_length"`
	GeneratorCharset   string `json:"generator_charset"`

	ExportBackend  string `json:"export_backend"`
	ExportDir      string `json:"export_dir"`
	S3Bucket       string `json:"s3_bucket"`
	S3Region       string `json:"s3_region"`
	S3BaseEndpoint string `json:"s3_base_endpoint"`
	S3AccessKey    string `json:"s3_access_key"`
	S3SecretKey    string `json:"s3_secret_key"`
}

func toJson(c *Config) JsonConfig {
	return JsonConfig{
		DatabaseDSN:             c.DatabaseDSN,
		LogLevel:                c.LogLevel,
		LogFormat:               c.LogFormat,
		ScryptN:                 c.Scrypt.N,
		ScryptR:                 c.Scrypt.R,
		ScryptP:                 c.Scrypt.P,
		PBKDF2Iterations:        c.PBKDF2Iterations,
		LockoutThreshold:        c.LockoutThreshold,
		LockoutWindow:           timex.Duration{Duration: c.LockoutWindow},
		AttemptRetention:        timex.Duration{Duration: c.AttemptRetention},
		DefaultClipboardTimeout: timex.Duration{Duration: c.DefaultClipboardTimeout},
		DefaultAutoLockTimeout:  timex.Duration{Duration: c.DefaultAutoLockTimeout},
		DefaultTheme:            c.DefaultTheme,
		DefaultLanguage:         c.DefaultLanguage,
		DefaultCategory:         c.DefaultCategory,
		MinPassphraseScore:      c.MinPassphraseScore,
		GeneratorLength:         c.GeneratorLength,
		GeneratorCharset:        c.GeneratorCharset,
		ExportBackend:           c.ExportBackend,
		ExportDir:               c.ExportDir,
		S3Bucket:                c.S3Bucket,
		S3Region:                c.S3Region,
		S3BaseEndpoint:          c.S3BaseEndpoint,
		S3AccessKey:             c.S3AccessKey,
		S3SecretKey:             c.S3SecretKey,
	}
}

func (jc JsonConfig) apply(c *Config) {
	c.DatabaseDSN = jc.DatabaseDSN
	c.LogLevel = jc.LogLevel
	c.LogFormat = jc.LogFormat
	c.Scrypt.N, c.Scrypt.R, c.Scrypt.P = jc.ScryptN, jc.ScryptR, jc.ScryptP
	c.PBKDF2Iterations = jc.PBKDF2Iterations
	c.LockoutThreshold = jc.LockoutThreshold
	c.LockoutWindow = jc.LockoutWindow.Duration
	c.AttemptRetention = jc.AttemptRetention.Duration
	c.DefaultClipboardTimeout = jc.DefaultClipboardTimeout.Duration
	c.DefaultAutoLockTimeout = jc.DefaultAutoLockTimeout.Duration
	c.DefaultTheme = jc.DefaultTheme
	c.DefaultLanguage = jc.DefaultLanguage
	c.DefaultCategory = jc.DefaultCategory
	c.MinPassphraseScore = jc.MinPassphraseScore
	c.GeneratorLength = jc.GeneratorLength
	c.GeneratorCharset = jc.GeneratorCharset
	c.ExportBackend = jc.ExportBackend
	c.ExportDir = jc.ExportDir
	c.S3Bucket = jc.S3Bucket
	c.S3Region = jc.S3Region
	c.S3BaseEndpoint = jc.S3BaseEndpoint
	c.S3AccessKey = jc.S3AccessKey
	c.S3SecretKey = jc.S3SecretKey
}

// parseJson overlays cfg with the JSON file named by -c/-config. Keys missing
// from the file keep their current values.
func parseJson(cfg *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	jc := toJson(cfg)
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	jc.apply(cfg)
	return nil
}
