package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Catalog contains the remote catalog location and stored credentials.
type Catalog struct {
	URL      string `toml:"url"`
	Username string `toml:"username"`
	Password string `toml:"password"`
}

// Paths contains directory configuration.
type Paths struct {
	DownloadDir string `toml:"download_dir"`
	StateDir    string `toml:"state_dir"`
	LogDir      string `toml:"log_dir"`
}

// Browser contains automation backend settings.
type Browser struct {
	Headless             bool `toml:"headless"`
	FindTimeout          int  `toml:"find_timeout"`
	NavigationTimeout    int  `toml:"navigation_timeout"`
	NavigationIntervalMS int  `toml:"navigation_interval_ms"`
	PollIntervalMS       int  `toml:"poll_interval_ms"`
}

// Auth contains login timing settings.
type Auth struct {
	// SettleDelayMS is the wait between entering credentials and clicking
	// submit; the login form is not clickable until its scripts initialize.
	SettleDelayMS int `toml:"settle_delay_ms"`
}

// Capture contains settings for the per-episode capture collaborator.
type Capture struct {
	PlayerTimeout int  `toml:"player_timeout"`
	MinFreeMB     int  `toml:"min_free_mb"`
	Progress      bool `toml:"progress"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for episodic.
//
// Configuration sections by subsystem:
//   - Catalog: site root URL and optional login credentials
//   - Paths: download destination, state and log directories
//   - Browser: headless mode, find/navigation timeouts and pacing
//   - Auth: login settling delay
//   - Capture: player wait, free space floor, progress bar
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
//   - Locators: selector overrides keyed by locator name
type Config struct {
	Catalog       Catalog           `toml:"catalog"`
	Paths         Paths             `toml:"paths"`
	Browser       Browser           `toml:"browser"`
	Auth          Auth              `toml:"auth"`
	Capture       Capture           `toml:"capture"`
	Notifications Notifications     `toml:"notifications"`
	Logging       Logging           `toml:"logging"`
	Locators      map[string]string `toml:"locators"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("episodic.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state and log directories. The download
// directory is created on a best-effort basis so listing commands still work
// when external storage is temporarily unavailable.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.DownloadDir) != "" {
		_ = os.MkdirAll(c.Paths.DownloadDir, 0o755)
	}
	return nil
}

// HasCredentials reports whether both catalog username and password are set.
func (c *Config) HasCredentials() bool {
	return c.Catalog.Username != "" && c.Catalog.Password != ""
}

// FindTimeout returns the element visibility polling timeout.
func (c *Config) FindTimeout() time.Duration {
	return time.Duration(c.Browser.FindTimeout) * time.Second
}

// NavigationTimeout returns the page load timeout.
func (c *Config) NavigationTimeout() time.Duration {
	return time.Duration(c.Browser.NavigationTimeout) * time.Second
}

// NavigationInterval returns the minimum spacing between navigations.
func (c *Config) NavigationInterval() time.Duration {
	return time.Duration(c.Browser.NavigationIntervalMS) * time.Millisecond
}

// PollInterval returns the visibility polling period.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Browser.PollIntervalMS) * time.Millisecond
}

// SettleDelay returns the login settling delay.
func (c *Config) SettleDelay() time.Duration {
	return time.Duration(c.Auth.SettleDelayMS) * time.Millisecond
}

// PlayerTimeout returns how long capture waits for the video player.
func (c *Config) PlayerTimeout() time.Duration {
	return time.Duration(c.Capture.PlayerTimeout) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
