// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/poiesic/strata/index"
	"github.com/poiesic/strata/lease"
	"gopkg.in/yaml.v3"
)

// Storage backend types.
const (
	StorageLocal  = "localfs"
	StorageRemote = "weedfs"
)

// Index backend types.
const (
	IndexPath   = "path"
	IndexBadger = "badger"
)

// Config holds everything needed to open a database.
type Config struct {
	// StorageType selects the backend: "localfs" or "weedfs".
	StorageType string `yaml:"storage_type"`

	// LocalBaseFolder is the root directory used by the local backend.
	// Default: "data"
	LocalBaseFolder string `yaml:"local_base_folder"`

	// FilerURL is the base URL of the SeaweedFS filer.
	// Example: "http://localhost:8888"
	FilerURL string `yaml:"filer_url"`

	// RemoteBaseFolder is the root directory on the filer.
	// Default: "/myfundquest"
	RemoteBaseFolder string `yaml:"remote_base_folder"`

	// Separator is the path separator records are stored with.
	Separator string `yaml:"separator"`

	// MaxLatest bounds the latest-campaigns index.
	// Default: 100
	MaxLatest int `yaml:"max_latest"`

	// IndexBackend selects where index relations live: "path" keeps marker
	// files in the object store, "badger" keeps them in BadgerDB.
	IndexBackend string `yaml:"index_backend"`

	// IndexDir is the BadgerDB directory. Empty runs badger in memory.
	IndexDir string `yaml:"index_dir"`

	// Language selects the stop-word list used by the word index.
	Language string `yaml:"language"`

	// LegacyLoad enables loading records saved without a kind tag.
	LegacyLoad bool `yaml:"legacy_load"`

	// LockTimeout is the age after which a lease marker is stale.
	LockTimeout time.Duration `yaml:"lock_timeout"`

	// LockPollInterval is the wait between lease acquisition attempts.
	LockPollInterval time.Duration `yaml:"lock_poll_interval"`

	// LockMaxAttempts bounds lease acquisition.
	LockMaxAttempts int `yaml:"lock_max_attempts"`

	// Metrics wraps the backend with Prometheus instrumentation.
	Metrics bool `yaml:"metrics"`
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithLocalStorage selects the local backend rooted at dir.
func WithLocalStorage(dir string) ConfigOption {
	return func(c *Config) {
		c.StorageType = StorageLocal
		c.LocalBaseFolder = dir
	}
}

// WithRemoteStorage selects the filer backend.
func WithRemoteStorage(filerURL, baseFolder string) ConfigOption {
	return func(c *Config) {
		c.StorageType = StorageRemote
		c.FilerURL = filerURL
		c.RemoteBaseFolder = baseFolder
	}
}

// WithSeparator sets the path separator.
func WithSeparator(sep string) ConfigOption {
	return func(c *Config) {
		c.Separator = sep
	}
}

// WithMaxLatest sets the latest-campaigns bound.
func WithMaxLatest(n int) ConfigOption {
	return func(c *Config) {
		c.MaxLatest = n
	}
}

// WithBadgerIndex keeps index relations in BadgerDB at dir.
func WithBadgerIndex(dir string) ConfigOption {
	return func(c *Config) {
		c.IndexBackend = IndexBadger
		c.IndexDir = dir
	}
}

// WithLanguage sets the stop-word language.
func WithLanguage(language string) ConfigOption {
	return func(c *Config) {
		c.Language = language
	}
}

// WithLegacyLoad enables untagged record loading.
func WithLegacyLoad(enabled bool) ConfigOption {
	return func(c *Config) {
		c.LegacyLoad = enabled
	}
}

// WithLockTimeout sets the lease staleness timeout.
func WithLockTimeout(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.LockTimeout = d
	}
}

// WithMetrics enables backend instrumentation.
func WithMetrics(enabled bool) ConfigOption {
	return func(c *Config) {
		c.Metrics = enabled
	}
}

// DefaultConfig returns a Config for a local store under ./data.
func DefaultConfig() *Config {
	return &Config{
		StorageType:      StorageLocal,
		LocalBaseFolder:  "data",
		RemoteBaseFolder: "/myfundquest",
		Separator:        "/",
		MaxLatest:        index.DefaultMaxLatest,
		IndexBackend:     IndexPath,
		Language:         index.DefaultLanguage,
		LockTimeout:      lease.DefaultTimeout,
		LockPollInterval: lease.DefaultPollInterval,
		LockMaxAttempts:  lease.DefaultMaxAttempts,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Load reads a YAML file over the defaults, applies environment overrides
// and validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from environment variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("FILE_SYSTEM_TYPE", &c.StorageType)
	str("LOCAL_BASE_FOLDER", &c.LocalBaseFolder)
	str("WEEDFS_FILER_URL", &c.FilerURL)
	str("WEEDFS_BASE_FOLDER", &c.RemoteBaseFolder)
	str("PATH_SEPERATOR", &c.Separator)
	str("STRATA_INDEX_BACKEND", &c.IndexBackend)
	str("STRATA_INDEX_DIR", &c.IndexDir)
	str("STRATA_LANGUAGE", &c.Language)

	if v, ok := lookup("MAX_LATEST_COUNT"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MAX_LATEST_COUNT: %w", err)
		}
		c.MaxLatest = n
	}
	if v, ok := lookup("STRATA_LEGACY_LOAD"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("STRATA_LEGACY_LOAD: %w", err)
		}
		c.LegacyLoad = b
	}
	if v, ok := lookup("STRATA_METRICS"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("STRATA_METRICS: %w", err)
		}
		c.Metrics = b
	}
	if v, ok := lookup("STRATA_LOCK_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("STRATA_LOCK_TIMEOUT: %w", err)
		}
		c.LockTimeout = d
	}
	return nil
}

// Validate checks that the configuration is valid and complete.
func (c *Config) Validate() error {
	switch c.StorageType {
	case StorageLocal:
		if c.LocalBaseFolder == "" {
			return errors.New("config: LocalBaseFolder is required for localfs")
		}
	case StorageRemote:
		if c.FilerURL == "" {
			return errors.New("config: FilerURL is required for weedfs")
		}
	default:
		return fmt.Errorf("config: unknown storage type %q", c.StorageType)
	}
	switch c.IndexBackend {
	case IndexPath, IndexBadger:
	default:
		return fmt.Errorf("config: unknown index backend %q", c.IndexBackend)
	}
	if c.Separator == "" {
		return errors.New("config: Separator is required")
	}
	if c.MaxLatest < 1 {
		return errors.New("config: MaxLatest must be positive")
	}
	if c.LockMaxAttempts < 1 {
		return errors.New("config: LockMaxAttempts must be positive")
	}
	if c.LockTimeout <= 0 || c.LockPollInterval <= 0 {
		return errors.New("config: lock timeout and poll interval must be positive")
	}
	if _, err := index.StopWords(c.Language); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// LeaseOptions returns the lease options the configuration describes.
func (c *Config) LeaseOptions() []lease.Option {
	return []lease.Option{
		lease.WithTimeout(c.LockTimeout),
		lease.WithPollInterval(c.LockPollInterval),
		lease.WithMaxAttempts(c.LockMaxAttempts),
	}
}
