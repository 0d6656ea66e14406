package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"episodic/internal/config"
)

func clearCatalogEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"EPISODIC_CATALOG_URL", "EPISODIC_USERNAME", "EPISODIC_PASSWORD"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	clearCatalogEnv(t)
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantState := filepath.Join(tempHome, ".local", "share", "episodic")
	if cfg.Paths.StateDir != wantState {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, wantState)
	}
	if cfg.Paths.DownloadDir != filepath.Join(tempHome, "Downloads") {
		t.Fatalf("unexpected download dir: %q", cfg.Paths.DownloadDir)
	}
	if cfg.Paths.LogDir != filepath.Join(wantState, "logs") {
		t.Fatalf("unexpected log dir: %q", cfg.Paths.LogDir)
	}
	if !cfg.Browser.Headless {
		t.Fatal("expected headless browser by default")
	}
	if cfg.FindTimeout() != 2*time.Second {
		t.Fatalf("unexpected find timeout: %s", cfg.FindTimeout())
	}
	if cfg.SettleDelay() != time.Second {
		t.Fatalf("unexpected settle delay: %s", cfg.SettleDelay())
	}
	if cfg.HasCredentials() {
		t.Fatal("expected no credentials by default")
	}
	if err := cfg.RequireCatalog(); !errors.Is(err, config.ErrCatalogURLMissing) {
		t.Fatalf("expected ErrCatalogURLMissing, got %v", err)
	}
}

func TestLoadUsesEnvironmentFallbacks(t *testing.T) {
	clearCatalogEnv(t)
	t.Setenv("HOME", t.TempDir())
	t.Setenv("EPISODIC_CATALOG_URL", "https://catalog.test")
	t.Setenv("EPISODIC_USERNAME", "viewer")
	t.Setenv("EPISODIC_PASSWORD", "secret")

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Catalog.URL != "https://catalog.test/" {
		t.Fatalf("expected trailing slash on catalog url, got %q", cfg.Catalog.URL)
	}
	if !cfg.HasCredentials() {
		t.Fatal("expected credentials from environment")
	}
	if err := cfg.RequireCatalog(); err != nil {
		t.Fatalf("RequireCatalog: %v", err)
	}
}

func TestLoadCustomPath(t *testing.T) {
	clearCatalogEnv(t)
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg := config.Default()
	cfg.Catalog.URL = "http://catalog.local/site/"
	cfg.Paths.DownloadDir = "~/media/shows"
	cfg.Browser.Headless = false
	cfg.Browser.NavigationIntervalMS = 250
	cfg.Logging.Format = "JSON"
	cfg.Locators = map[string]string{" Season_Links ": "css=ul.seasons a"}

	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	path := filepath.Join(t.TempDir(), "custom.toml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	loaded, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("unexpected resolution: %q exists=%v", resolved, exists)
	}
	if loaded.Paths.DownloadDir != filepath.Join(tempHome, "media", "shows") {
		t.Fatalf("unexpected download dir: %q", loaded.Paths.DownloadDir)
	}
	if loaded.Browser.Headless {
		t.Fatal("expected headless override to be honored")
	}
	if loaded.NavigationInterval() != 250*time.Millisecond {
		t.Fatalf("unexpected navigation interval: %s", loaded.NavigationInterval())
	}
	if loaded.Logging.Format != "json" {
		t.Fatalf("expected lowercased log format, got %q", loaded.Logging.Format)
	}
	if loaded.Locators["season_links"] != "css=ul.seasons a" {
		t.Fatalf("expected normalized locator override, got %v", loaded.Locators)
	}
}

func TestLoadRejectsUnknownLocator(t *testing.T) {
	clearCatalogEnv(t)
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "bad.toml")
	body := "[locators]\nseason_linkz = \"css=a\"\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	_, _, _, err := config.Load(path)
	if err == nil || !strings.Contains(err.Error(), "season_linkz") {
		t.Fatalf("expected unknown locator error, got %v", err)
	}
}

func TestValidateRejectsHalfCredentials(t *testing.T) {
	cfg := config.Default()
	cfg.Catalog.URL = "https://catalog.test/"
	cfg.Catalog.Username = "viewer"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for username without password")
	}
}

func TestValidateRejectsNonHTTPCatalog(t *testing.T) {
	cfg := config.Default()
	cfg.Catalog.URL = "ftp://catalog.test/"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for ftp catalog url")
	}
}

func TestCreateSampleIsLoadable(t *testing.T) {
	clearCatalogEnv(t)
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat sample: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("unexpected sample permissions: %v", info.Mode().Perm())
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if cfg.Catalog.URL != "https://catalog.example/" {
		t.Fatalf("unexpected sample catalog url: %q", cfg.Catalog.URL)
	}
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Paths.LogDir = filepath.Join(base, "state", "logs")
	cfg.Paths.DownloadDir = filepath.Join(base, "downloads")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, dir := range []string{cfg.Paths.StateDir, cfg.Paths.LogDir, cfg.Paths.DownloadDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q: %v", dir, err)
		}
	}
}
