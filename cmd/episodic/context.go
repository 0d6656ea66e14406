package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"episodic/internal/catalog"
	"episodic/internal/config"
	"episodic/internal/engine"
	"episodic/internal/history"
	"episodic/internal/logging"
)

type commandContext struct {
	configFlag  *string
	verboseFlag *bool
	driver      engine.DriverFactory

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
}

func newCommandContext(configFlag *string, verboseFlag *bool) *commandContext {
	return &commandContext{
		configFlag:  configFlag,
		verboseFlag: verboseFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if c.verboseFlag != nil && *c.verboseFlag {
			cfg.Logging.Level = "debug"
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// loggerFor returns the process logger, falling back to a no-op logger when
// the log file cannot be opened.
func (c *commandContext) loggerFor(cfg *config.Config) *slog.Logger {
	c.loggerOnce.Do(func() {
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			logger = logging.NewNop()
		}
		c.logger = logger
	})
	return c.logger
}

// withEngine starts an engine for the command's lifetime.
func (c *commandContext) withEngine(cmd *cobra.Command, picker catalog.Picker, fn func(*engine.Engine) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	eng, err := engine.New(cfg, engine.Options{
		Driver:         c.driver,
		Picker:         picker,
		Logger:         c.loggerFor(cfg),
		ProgressWriter: cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	if err := eng.Start(cmd.Context()); err != nil {
		return fmt.Errorf("start engine: %w", err)
	}
	defer eng.Close()
	return fn(eng)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

// withHistory opens the history database without starting a browser.
func (c *commandContext) withHistory(fn func(*history.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := history.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}
