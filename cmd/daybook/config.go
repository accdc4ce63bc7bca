// Config loading for the daybook CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/mesh-intelligence/daybook/internal/paths"
	"github.com/mesh-intelligence/daybook/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	envPrefix = "DAYBOOK"

	cfgKeyDataDir = "data_dir"
)

// defaultConfigYAML is written to config.yaml on first run.
const defaultConfigYAML = `# daybook configuration
# Every key can be overridden with a DAYBOOK_ environment variable,
# e.g. DAYBOOK_BLOB_BACKEND=s3 or DAYBOOK_LOG_LEVEL=debug.

# Data directory (optional; overridable by --data-dir)
# data_dir:

# Per-owner attachment folder name.
app_folder: Daybook

blob:
  # fs or s3
  backend: fs
  # root: /var/lib/daybook/blobs
  s3:
    region: us-east-1
    # endpoint: http://localhost:9000
    # bucket: daybook
    # use_path_style: true

events:
  # nats_url: nats://127.0.0.1:4222
  subject: accounts.owner.removed
  queue: daybook

log:
  level: info
  format: json

metrics:
  # Listen address of /metrics for "daybook listen", e.g. 127.0.0.1:9464.
  addr: ""
`

// configDefaults lists every config key with its default. Each key is
// bound to DAYBOOK_<KEY> with dots replaced by underscores. data_dir is
// absent: its precedence is owned by paths.ResolveDataDir.
func configDefaults() map[string]any {
	d := types.DefaultConfig()
	return map[string]any{
		"app_folder":                d.AppFolder,
		"blob.backend":              d.Blob.Backend,
		"blob.root":                 d.Blob.Root,
		"blob.s3.endpoint":          d.Blob.S3.Endpoint,
		"blob.s3.region":            d.Blob.S3.Region,
		"blob.s3.bucket":            d.Blob.S3.Bucket,
		"blob.s3.access_key_id":     d.Blob.S3.AccessKeyID,
		"blob.s3.secret_access_key": d.Blob.S3.SecretAccessKey,
		"blob.s3.use_path_style":    d.Blob.S3.UsePathStyle,
		"events.nats_url":           d.Events.NATSURL,
		"events.subject":            d.Events.Subject,
		"events.queue":              d.Events.Queue,
		"log.level":                 d.Log.Level,
		"log.format":                d.Log.Format,
		"metrics.addr":              d.Metrics.Addr,
	}
}

// loadConfig reads config.yaml from the resolved config directory using
// Viper. It creates the directory and a default config.yaml on first run.
// A missing config.yaml is not an error.
func loadConfig(configDir string) (*viper.Viper, error) {
	if err := ensureConfigDir(configDir); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}

	if err := ensureDefaultConfigFile(configDir); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for key, val := range configDefaults() {
		v.SetDefault(key, val)
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	return v, nil
}

// decodeConfig unmarshals v, resolves the data directory and validates
// the result.
func decodeConfig(v *viper.Viper, flagDataDir string) (types.Config, error) {
	cfg := types.DefaultConfig()
	if err := v.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("decode config: %w", err)
	}
	dataDir, err := paths.ResolveDataDir(flagDataDir, v.GetString(cfgKeyDataDir))
	if err != nil {
		return types.Config{}, fmt.Errorf("resolve data dir: %w", err)
	}
	cfg.DataDir = dataDir
	if err := cfg.Validate(); err != nil {
		return types.Config{}, err
	}
	return cfg, nil
}

// ensureConfigDir creates the config directory if it does not exist.
func ensureConfigDir(configDir string) error {
	return os.MkdirAll(configDir, 0o755)
}

// ensureDefaultConfigFile creates a default config.yaml if the file does
// not exist in the config directory.
func ensureDefaultConfigFile(configDir string) error {
	path := filepath.Join(configDir, configFileExt)

	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}

	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}
