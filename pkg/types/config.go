package types

import (
	"fmt"
	"strings"
)

// Supported blob backends.
const (
	BlobBackendFS = "fs"
	BlobBackendS3 = "s3"
)

// DefaultAppFolder is the per-owner attachment root directory name.
const DefaultAppFolder = "Daybook"

// Config holds everything needed to open the store, the blob backend, and
// the owner-removed event consumer.
type Config struct {
	DataDir   string        `json:"data_dir" yaml:"data_dir" mapstructure:"data_dir" validate:"required"`
	AppFolder string        `json:"app_folder" yaml:"app_folder" mapstructure:"app_folder" validate:"required"`
	Blob      BlobConfig    `json:"blob" yaml:"blob" mapstructure:"blob"`
	Events    EventsConfig  `json:"events" yaml:"events" mapstructure:"events"`
	Log       LogConfig     `json:"log" yaml:"log" mapstructure:"log"`
	Metrics   MetricsConfig `json:"metrics" yaml:"metrics" mapstructure:"metrics"`
}

// BlobConfig selects where attachment content lives.
type BlobConfig struct {
	// Backend is "fs" (local directory tree) or "s3".
	Backend string `json:"backend" yaml:"backend" mapstructure:"backend" validate:"oneof=fs s3"`

	// Root is the directory of the fs backend. Empty means <data_dir>/blobs.
	Root string `json:"root" yaml:"root" mapstructure:"root"`

	S3 S3Config `json:"s3" yaml:"s3" mapstructure:"s3"`
}

// S3Config configures the S3-compatible blob backend.
type S3Config struct {
	Endpoint        string `json:"endpoint" yaml:"endpoint" mapstructure:"endpoint"`
	Region          string `json:"region" yaml:"region" mapstructure:"region"`
	Bucket          string `json:"bucket" yaml:"bucket" mapstructure:"bucket"`
	AccessKeyID     string `json:"access_key_id" yaml:"access_key_id" mapstructure:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key" yaml:"secret_access_key" mapstructure:"secret_access_key"`
	UsePathStyle    bool   `json:"use_path_style" yaml:"use_path_style" mapstructure:"use_path_style"`
}

// EventsConfig configures the account-lifecycle subscription.
type EventsConfig struct {
	NATSURL string `json:"nats_url" yaml:"nats_url" mapstructure:"nats_url"`
	Subject string `json:"subject" yaml:"subject" mapstructure:"subject" validate:"required"`
	Queue   string `json:"queue" yaml:"queue" mapstructure:"queue"`
}

// LogConfig configures the structured logger.
type LogConfig struct {
	Level  string `json:"level" yaml:"level" mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `json:"format" yaml:"format" mapstructure:"format" validate:"oneof=json console"`
}

// MetricsConfig configures the Prometheus endpoint served by the listener.
type MetricsConfig struct {
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`
}

// DefaultConfig returns a Config with every default applied except DataDir.
func DefaultConfig() Config {
	return Config{
		AppFolder: DefaultAppFolder,
		Blob:      BlobConfig{Backend: BlobBackendFS, S3: S3Config{Region: "us-east-1"}},
		Events:    EventsConfig{Subject: "accounts.owner.removed", Queue: "daybook"},
		Log:       LogConfig{Level: "info", Format: "json"},
	}
}

// Validate checks that the Config is well-formed. Failures wrap
// ErrInvalidConfig.
func (c Config) Validate() error {
	if err := validateStruct(ErrInvalidConfig, c); err != nil {
		return err
	}
	if strings.ContainsAny(c.AppFolder, `/\`) || c.AppFolder == "." || c.AppFolder == ".." {
		return fmt.Errorf("%w: app_folder must be a single path segment", ErrInvalidConfig)
	}
	if c.Blob.Backend == BlobBackendS3 && c.Blob.S3.Bucket == "" {
		return fmt.Errorf("%w: blob.s3.bucket is required for the s3 backend", ErrInvalidConfig)
	}
	return nil
}
