package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	c.normalizeCatalog()
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeBrowser()
	if c.Auth.SettleDelayMS < 0 {
		c.Auth.SettleDelayMS = 0
	}
	if c.Capture.PlayerTimeout <= 0 {
		c.Capture.PlayerTimeout = defaultPlayerTimeout
	}
	if c.Capture.MinFreeMB < 0 {
		c.Capture.MinFreeMB = 0
	}
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
	c.normalizeLogging()
	c.normalizeLocators()
	return nil
}

func (c *Config) normalizeCatalog() {
	if strings.TrimSpace(c.Catalog.URL) == "" {
		if value, ok := os.LookupEnv("EPISODIC_CATALOG_URL"); ok {
			c.Catalog.URL = value
		}
	}
	if c.Catalog.Username == "" {
		if value, ok := os.LookupEnv("EPISODIC_USERNAME"); ok {
			c.Catalog.Username = value
		}
	}
	if c.Catalog.Password == "" {
		if value, ok := os.LookupEnv("EPISODIC_PASSWORD"); ok {
			c.Catalog.Password = value
		}
	}
	c.Catalog.URL = strings.TrimSpace(c.Catalog.URL)
	if c.Catalog.URL != "" && !strings.HasSuffix(c.Catalog.URL, "/") {
		// Catalog paths are appended directly to the root.
		c.Catalog.URL += "/"
	}
	c.Catalog.Username = strings.TrimSpace(c.Catalog.Username)
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DownloadDir) == "" {
		c.Paths.DownloadDir = defaultDownloadDir
	}
	if c.Paths.DownloadDir, err = expandPath(c.Paths.DownloadDir); err != nil {
		return fmt.Errorf("paths.download_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeBrowser() {
	if c.Browser.FindTimeout <= 0 {
		c.Browser.FindTimeout = defaultFindTimeout
	}
	if c.Browser.NavigationTimeout <= 0 {
		c.Browser.NavigationTimeout = defaultNavigationTimeout
	}
	if c.Browser.NavigationIntervalMS < 0 {
		c.Browser.NavigationIntervalMS = 0
	}
	if c.Browser.PollIntervalMS <= 0 {
		c.Browser.PollIntervalMS = defaultPollIntervalMS
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func (c *Config) normalizeLocators() {
	if len(c.Locators) == 0 {
		return
	}
	cleaned := make(map[string]string, len(c.Locators))
	for name, selector := range c.Locators {
		name = strings.ToLower(strings.TrimSpace(name))
		selector = strings.TrimSpace(selector)
		if name == "" || selector == "" {
			continue
		}
		cleaned[name] = selector
	}
	c.Locators = cleaned
}
