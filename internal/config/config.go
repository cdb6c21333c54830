// Package config loads oprdesk settings from an optional YAML file with
// OPRDESK_* environment overrides on top.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"oprdesk/internal/assist"
	"oprdesk/internal/blob"
	"oprdesk/internal/export"
	"oprdesk/internal/logging"
	"oprdesk/internal/persistence"
	"oprdesk/internal/upload"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "OPRDESK_"

// Config is the full process configuration.
type Config struct {
	HTTP    HTTPConfig          `yaml:"http"`
	Log     LogConfig           `yaml:"log"`
	Drafts  DraftsConfig        `yaml:"drafts"`
	Storage persistence.Config  `yaml:"storage"`
	Blob    blob.Config         `yaml:"blob"`
	Upload  upload.Config       `yaml:"upload"`
	GenAI   assist.GeminiConfig `yaml:"genai"`
	Chrome  export.ChromeConfig `yaml:"chrome"`
	Layout  export.Layout       `yaml:"layout"`
}

// HTTPConfig configures the API server.
type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes"`
}

// DraftsConfig bounds the open-draft registry.
type DraftsConfig struct {
	IdleTTL time.Duration `yaml:"idle_ttl"`
	MaxOpen int           `yaml:"max_open"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns a configuration that works locally without any services:
// sqlite storage, filesystem blobs, uploads disabled.
func Default() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
			MaxUploadBytes:  32 << 20,
		},
		Log:     LogConfig{Level: "info"},
		Drafts:  DraftsConfig{IdleTTL: 24 * time.Hour, MaxOpen: 64},
		Storage: persistence.Config{Driver: persistence.DriverSQLite, SQLitePath: "oprdesk.db"},
		Blob:    blob.Config{Driver: blob.DriverFilesystem, FSRoot: "./blobdata"},
		Upload:  upload.Config{Driver: upload.DriverNone},
		GenAI:   assist.GeminiConfig{Model: assist.DefaultGeminiModel},
		Layout:  export.DefaultLayout,
	}
}

// Load reads path (if non-empty and present) over the defaults and then
// applies environment overrides.
func Load(path string) (*Config, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			*dst = v
		}
	}
	str("HTTP_ADDR", &c.HTTP.Addr)
	str("LOG_LEVEL", &c.Log.Level)

	var storageDriver, blobDriver, uploadDriver string
	str("STORAGE_DRIVER", &storageDriver)
	if storageDriver != "" {
		c.Storage.Driver = persistence.Driver(strings.ToLower(storageDriver))
	}
	str("SQLITE_PATH", &c.Storage.SQLitePath)
	str("POSTGRES_DSN", &c.Storage.PostgresDSN)

	str("BLOB_DRIVER", &blobDriver)
	if blobDriver != "" {
		c.Blob.Driver = blob.Driver(strings.ToLower(blobDriver))
	}
	str("BLOB_FS_ROOT", &c.Blob.FSRoot)
	str("BLOB_S3_BUCKET", &c.Blob.S3.Bucket)
	str("BLOB_S3_REGION", &c.Blob.S3.Region)
	str("BLOB_S3_ENDPOINT", &c.Blob.S3.Endpoint)
	if v, ok := lookup(EnvPrefix + "BLOB_S3_PATH_STYLE"); ok && v != "" {
		c.Blob.S3.PathStyle = strings.EqualFold(v, "true") || v == "1"
	}

	str("UPLOAD_DRIVER", &uploadDriver)
	if uploadDriver != "" {
		c.Upload.Driver = upload.Driver(strings.ToLower(uploadDriver))
	}
	str("UPLOAD_WEBHOOK_URL", &c.Upload.WebhookURL)

	if v, ok := lookup("GEMINI_API_KEY"); ok && v != "" && c.GenAI.APIKey == "" {
		c.GenAI.APIKey = v
	}
	str("GENAI_API_KEY", &c.GenAI.APIKey)
	str("GENAI_MODEL", &c.GenAI.Model)
	str("CHROME_BIN", &c.Chrome.Bin)
	str("CHROME_URL", &c.Chrome.ControlURL)

	if v, ok := lookup(EnvPrefix + "DRAFT_IDLE_TTL"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sDRAFT_IDLE_TTL: %w", EnvPrefix, err)
		}
		c.Drafts.IdleTTL = d
	}
	if v, ok := lookup(EnvPrefix + "SHUTDOWN_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sSHUTDOWN_TIMEOUT: %w", EnvPrefix, err)
		}
		c.HTTP.ShutdownTimeout = d
	}
	return nil
}

// Validate rejects unknown drivers and incomplete driver settings.
func (c *Config) Validate() error {
	var errs []error
	switch c.Storage.Driver {
	case persistence.DriverMemory, persistence.DriverSQLite, persistence.DriverBlob:
	case persistence.DriverPostgres:
		if c.Storage.PostgresDSN == "" {
			errs = append(errs, errors.New("storage: postgres driver needs postgres_dsn"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage: unknown driver %q", c.Storage.Driver))
	}
	switch c.Blob.Driver {
	case blob.DriverFilesystem, blob.DriverMemory:
	case blob.DriverS3:
		if c.Blob.S3.Bucket == "" {
			errs = append(errs, errors.New("blob: s3 driver needs a bucket"))
		}
	default:
		errs = append(errs, fmt.Errorf("blob: unknown driver %q", c.Blob.Driver))
	}
	switch c.Upload.Driver {
	case upload.DriverNone, "":
	case upload.DriverWebhook:
		if c.Upload.WebhookURL == "" {
			errs = append(errs, errors.New("upload: webhook driver needs webhook_url"))
		}
	case upload.DriverS3:
		if c.Blob.Driver != blob.DriverS3 {
			errs = append(errs, errors.New("upload: s3 driver needs the s3 blob driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("upload: unknown driver %q", c.Upload.Driver))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log: %w", err))
	}
	if c.Drafts.IdleTTL < 0 || c.Drafts.MaxOpen < 0 {
		errs = append(errs, errors.New("drafts: idle_ttl and max_open must not be negative"))
	}
	if c.HTTP.ShutdownTimeout < 0 {
		errs = append(errs, errors.New("http: shutdown_timeout must not be negative"))
	}
	return errors.Join(errs...)
}

// AssistEnabled reports whether an AI model can be built.
func (c *Config) AssistEnabled() bool { return c.GenAI.APIKey != "" }
