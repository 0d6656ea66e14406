package testsupport

import (
	"path/filepath"
	"testing"

	"episodic/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Browser waits are shortened so scripted sites resolve quickly.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Catalog.URL = "https://catalog.test/"
	cfgVal.Paths.DownloadDir = filepath.Join(base, "library")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "state", "logs")
	cfgVal.Browser.FindTimeout = 1
	cfgVal.Browser.PollIntervalMS = 5
	cfgVal.Auth.SettleDelayMS = 1
	cfgVal.Capture.PlayerTimeout = 1
	cfgVal.Capture.MinFreeMB = 0
	cfgVal.Capture.Progress = false

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithCatalogURL points the config at a different catalog root.
func WithCatalogURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Catalog.URL = url
	}
}

// WithCredentials sets catalog login credentials.
func WithCredentials(username, password string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Catalog.Username = username
		b.cfg.Catalog.Password = password
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DownloadDir)
}
