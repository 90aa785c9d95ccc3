package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(vars map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, StorageLocal, cfg.StorageType)
	assert.Equal(t, "data", cfg.LocalBaseFolder)
	assert.Equal(t, "/myfundquest", cfg.RemoteBaseFolder)
	assert.Equal(t, "/", cfg.Separator)
	assert.Equal(t, 100, cfg.MaxLatest)
	assert.Equal(t, IndexPath, cfg.IndexBackend)
	assert.Equal(t, "english", cfg.Language)
	assert.Equal(t, time.Second, cfg.LockTimeout)
	assert.Equal(t, 30, cfg.LockMaxAttempts)
	require.NoError(t, cfg.Validate())
}

func TestNewConfig(t *testing.T) {
	t.Run("with no options", func(t *testing.T) {
		cfg := NewConfig()
		assert.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("with remote storage", func(t *testing.T) {
		cfg := NewConfig(WithRemoteStorage("http://filer:8888", "/fq"))

		assert.Equal(t, StorageRemote, cfg.StorageType)
		assert.Equal(t, "http://filer:8888", cfg.FilerURL)
		assert.Equal(t, "/fq", cfg.RemoteBaseFolder)
	})

	t.Run("with badger index", func(t *testing.T) {
		cfg := NewConfig(WithBadgerIndex("/tmp/idx"), WithMaxLatest(5), WithLegacyLoad(true))

		assert.Equal(t, IndexBadger, cfg.IndexBackend)
		assert.Equal(t, "/tmp/idx", cfg.IndexDir)
		assert.Equal(t, 5, cfg.MaxLatest)
		assert.True(t, cfg.LegacyLoad)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		opts    []ConfigOption
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults"},
		{name: "remote without url", opts: []ConfigOption{WithRemoteStorage("", "/x")}, wantErr: true},
		{name: "remote", opts: []ConfigOption{WithRemoteStorage("http://f:8888", "/x")}},
		{name: "unknown storage", mutate: func(c *Config) { c.StorageType = "s3" }, wantErr: true},
		{name: "unknown index", mutate: func(c *Config) { c.IndexBackend = "redis" }, wantErr: true},
		{name: "empty separator", opts: []ConfigOption{WithSeparator("")}, wantErr: true},
		{name: "zero latest", opts: []ConfigOption{WithMaxLatest(0)}, wantErr: true},
		{name: "unknown language", opts: []ConfigOption{WithLanguage("klingon")}, wantErr: true},
		{name: "zero lock timeout", opts: []ConfigOption{WithLockTimeout(0)}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig(tt.opts...)
			if tt.mutate != nil {
				tt.mutate(cfg)
			}
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.ApplyEnv(env(map[string]string{
		"FILE_SYSTEM_TYPE":     "weedfs",
		"WEEDFS_FILER_URL":     "http://seaweed:8888",
		"WEEDFS_BASE_FOLDER":   "/other",
		"PATH_SEPERATOR":       "|",
		"MAX_LATEST_COUNT":     "25",
		"STRATA_INDEX_BACKEND": "badger",
		"STRATA_LEGACY_LOAD":   "true",
		"STRATA_LOCK_TIMEOUT":  "2m",
		"LOCAL_BASE_FOLDER":    "",
	}))
	require.NoError(t, err)

	assert.Equal(t, StorageRemote, cfg.StorageType)
	assert.Equal(t, "http://seaweed:8888", cfg.FilerURL)
	assert.Equal(t, "/other", cfg.RemoteBaseFolder)
	assert.Equal(t, "|", cfg.Separator)
	assert.Equal(t, 25, cfg.MaxLatest)
	assert.Equal(t, IndexBadger, cfg.IndexBackend)
	assert.True(t, cfg.LegacyLoad)
	assert.Equal(t, 2*time.Minute, cfg.LockTimeout)
	assert.Equal(t, "data", cfg.LocalBaseFolder, "empty values do not override")
}

func TestApplyEnv_Invalid(t *testing.T) {
	for _, key := range []string{"MAX_LATEST_COUNT", "STRATA_LEGACY_LOAD", "STRATA_METRICS", "STRATA_LOCK_TIMEOUT"} {
		t.Run(key, func(t *testing.T) {
			cfg := DefaultConfig()
			assert.Error(t, cfg.ApplyEnv(env(map[string]string{key: "bogus"})))
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "strata.yaml")
	data := `
storage_type: localfs
local_base_folder: /srv/strata
max_latest: 10
index_backend: badger
index_dir: /srv/index
lock_timeout: 5s
metrics: true
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	t.Setenv("MAX_LATEST_COUNT", "12")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/strata", cfg.LocalBaseFolder)
	assert.Equal(t, 12, cfg.MaxLatest)
	assert.Equal(t, IndexBadger, cfg.IndexBackend)
	assert.Equal(t, "/srv/index", cfg.IndexDir)
	assert.Equal(t, 5*time.Second, cfg.LockTimeout)
	assert.True(t, cfg.Metrics)
	assert.Equal(t, "/", cfg.Separator, "unset fields keep defaults")
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("bad yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("max_latest: [1, 2"), 0o644))
		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("invalid result", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("storage_type: s3\n"), 0o644))
		_, err := Load(path)
		assert.Error(t, err)
	})
}

func TestLeaseOptions(t *testing.T) {
	assert.Len(t, DefaultConfig().LeaseOptions(), 3)
}
