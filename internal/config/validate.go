package config

import (
	"errors"
	"fmt"
	"net/url"
	"sort"

	"episodic/internal/locators"
)

// ErrCatalogURLMissing indicates a browser-backed command ran without a catalog URL.
var ErrCatalogURLMissing = errors.New("catalog.url is required")

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateCatalog(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateLocators(); err != nil {
		return err
	}
	if c.Notifications.NtfyTopic != "" {
		if _, err := parseHTTPURL(c.Notifications.NtfyTopic); err != nil {
			return fmt.Errorf("notifications.ntfy_topic: %w", err)
		}
	}
	return nil
}

// RequireCatalog reports ErrCatalogURLMissing when no catalog URL is configured.
func (c *Config) RequireCatalog() error {
	if c.Catalog.URL == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("%w: set EPISODIC_CATALOG_URL or edit %s (create with 'episodic config init')", ErrCatalogURLMissing, defaultPath)
	}
	return nil
}

func (c *Config) validateCatalog() error {
	if c.Catalog.URL == "" {
		return nil
	}
	if _, err := parseHTTPURL(c.Catalog.URL); err != nil {
		return fmt.Errorf("catalog.url: %w", err)
	}
	if (c.Catalog.Username == "") != (c.Catalog.Password == "") {
		// Half-configured credentials are skipped at login; flag them early.
		return errors.New("catalog.username and catalog.password must be set together")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func (c *Config) validateLocators() error {
	if len(c.Locators) == 0 {
		return nil
	}
	known := make(map[string]struct{})
	for _, name := range locators.Names() {
		known[name] = struct{}{}
	}
	var unknown []string
	for name := range c.Locators {
		if _, ok := known[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("locators: unknown names %v", unknown)
	}
	return nil
}

func parseHTTPURL(raw string) (*url.URL, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return nil, errors.New("missing host")
	}
	return parsed, nil
}
