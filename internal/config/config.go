// Package config loads flowvault's configuration file.
//
// Both YAML and JSON are accepted. YAML is coerced to JSON bytes so one
// strict decoder (DisallowUnknownFields) covers both formats.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	yaml "go.yaml.in/yaml/v3"
)

type Config struct {
	Storage   StorageConfig   `json:"storage"`
	Retention RetentionConfig `json:"retention,omitempty"`
	Watch     WatchConfig     `json:"watch,omitempty"`
	Logging   LoggingConfig   `json:"logging,omitempty"`
}

// StorageConfig selects and locates the snapshot store.
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
type StorageConfig struct {
	// Driver is "sqlite" (default) or "file".
	Driver string `json:"driver,omitempty"`
	Path   string `json:"path"`

	// BusyTimeout applies to the sqlite driver only.
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

type RetentionConfig struct {
	// MaxSnapshots bounds the rolling window. Defaults to 3.
	MaxSnapshots int `json:"max_snapshots,omitempty"`
}

// WatchConfig controls the autosave daemon (the `watch` subcommand).
type WatchConfig struct {
	// FlowPath is the flow JSON file the editor writes.
	FlowPath string `json:"flow_path,omitempty"`

	// Debounce delays a save after a burst of write events. Default "250ms".
	Debounce string `json:"debounce,omitempty"`

	// MinInterval caps snapshot frequency under event storms. Default "2s".
	MinInterval string `json:"min_interval,omitempty"`

	// Schedule is an optional cron spec (e.g. "*/5 * * * *" or "@every 10m")
	// for periodic snapshots independent of file events.
	Schedule string `json:"schedule,omitempty"`
}

type LoggingConfig struct {
	Level   string            `json:"level,omitempty"`
	Console *bool             `json:"console,omitempty"`
	File    LoggingFileConfig `json:"file,omitempty"`
}

type LoggingFileConfig struct {
	Enabled bool   `json:"enabled,omitempty"`
	Path    string `json:"path,omitempty"`
}

// Load reads, decodes, and validates the config file at path.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := Parse(path, b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes config bytes strictly. The path picks the format by
// extension; anything but .yaml/.yml is treated as JSON.
func Parse(path string, data []byte) (*Config, error) {
	jb, err := coerceToJSONBytes(path, data)
	if err != nil {
		return nil, err
	}

	var cfg Config
	dec := json.NewDecoder(bytes.NewReader(jb))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, err
	}
	// reject trailing tokens (e.g. concatenated JSON)
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return nil, fmt.Errorf("invalid config: trailing data")
		}
		return nil, err
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when no config file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.Storage.Driver) == "" {
		c.Storage.Driver = "sqlite"
	}
	if strings.TrimSpace(c.Storage.Path) == "" {
		c.Storage.Path = "./flowvault.db"
	}
	if c.Retention.MaxSnapshots == 0 {
		c.Retention.MaxSnapshots = 3
	}
	if strings.TrimSpace(c.Watch.Debounce) == "" {
		c.Watch.Debounce = "250ms"
	}
	if strings.TrimSpace(c.Watch.MinInterval) == "" {
		c.Watch.MinInterval = "2s"
	}
	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Console == nil {
		on := true
		c.Logging.Console = &on
	}
}

func (c *Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Storage.Driver)) {
	case "sqlite", "sqlite3", "file":
	default:
		return fmt.Errorf("storage.driver: unknown driver %q", c.Storage.Driver)
	}
	if c.Retention.MaxSnapshots < 1 {
		return fmt.Errorf("retention.max_snapshots: must be >= 1")
	}
	if _, err := ParseDurationField("storage.busy_timeout", c.Storage.BusyTimeout); err != nil {
		return err
	}
	if _, err := ParseDurationField("watch.debounce", c.Watch.Debounce); err != nil {
		return err
	}
	if _, err := ParseDurationField("watch.min_interval", c.Watch.MinInterval); err != nil {
		return err
	}
	return nil
}

// BusyTimeout returns storage.busy_timeout as a duration (0 if unset).
func (c *Config) BusyTimeout() time.Duration {
	d, _ := ParseDurationField("storage.busy_timeout", c.Storage.BusyTimeout)
	return d
}

// Debounce returns watch.debounce, falling back to 250ms.
func (c *Config) Debounce() time.Duration {
	d, _ := ParseDurationOrDefault("watch.debounce", c.Watch.Debounce, 250*time.Millisecond)
	return d
}

// MinInterval returns watch.min_interval, falling back to 2s.
func (c *Config) MinInterval() time.Duration {
	d, _ := ParseDurationOrDefault("watch.min_interval", c.Watch.MinInterval, 2*time.Second)
	return d
}

// ConsoleLogging reports whether console output is enabled.
func (c *Config) ConsoleLogging() bool {
	return c.Logging.Console == nil || *c.Logging.Console
}

func ParseDurationField(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0", path)
	}
	return d, nil
}

func ParseDurationOrDefault(path, raw string, def time.Duration) (time.Duration, error) {
	d, err := ParseDurationField(path, raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return def, nil
	}
	return d, nil
}

// coerceToJSONBytes converts YAML config to JSON bytes so the strict
// JSON decoder can be shared by both formats.
func coerceToJSONBytes(path string, data []byte) ([]byte, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return data, nil
	}

	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("yaml unmarshal: %w", err)
	}

	v = normalizeYAML(v)

	j, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("yaml->json marshal: %w", err)
	}
	return j, nil
}

// normalizeYAML ensures all map keys are strings so the result can be JSON-marshaled.
func normalizeYAML(in any) any {
	switch x := in.(type) {
	case map[any]any:
		m := make(map[string]any, len(x))
		for k, v := range x {
			m[fmt.Sprint(k)] = normalizeYAML(v)
		}
		return m
	case map[string]any:
		m := make(map[string]any, len(x))
		for k, v := range x {
			m[k] = normalizeYAML(v)
		}
		return m
	case []any:
		for i := range x {
			x[i] = normalizeYAML(x[i])
		}
		return x
	default:
		return in
	}
}
