package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"episodic/internal/config"
	"episodic/internal/locators"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigValidateCommand(ctx))
	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigLocatorsCommand(ctx))

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				target = expanded
			}

			dir := filepath.Dir(target)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create config directory %q: %w", dir, err)
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Edit catalog.url (or export EPISODIC_CATALOG_URL) before running episodic.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "validate",
		Short:       "Validate configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, exists, err := config.Load(strings.TrimSpace(*ctx.configFlag))
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			fmt.Fprintf(out, "Config path: %s\n", path)
			if !exists {
				fmt.Fprintln(out, "Config file did not exist; defaults were used")
			}
			lines := []string{
				renderStatusLine("Download dir", statusInfo, cfg.Paths.DownloadDir, colorize),
				renderStatusLine("State dir", statusInfo, cfg.Paths.StateDir, colorize),
			}
			if err := cfg.RequireCatalog(); err != nil {
				lines = append(lines, renderStatusLine("Catalog", statusWarn, "url not set", colorize))
			} else {
				lines = append(lines, renderStatusLine("Catalog", statusOK, cfg.Catalog.URL, colorize))
			}
			if cfg.HasCredentials() {
				lines = append(lines, renderStatusLine("Credentials", statusOK, "configured", colorize))
			} else {
				lines = append(lines, renderStatusLine("Credentials", statusInfo, "none; login is skipped", colorize))
			}
			printLines(out, lines...)
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}

func newConfigLocatorsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "locators",
		Short: "Show the page locators in effect",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			set, err := locators.Default().WithOverrides(cfg.Locators)
			if err != nil {
				return err
			}
			rows := make([][]string, 0)
			for _, loc := range set.All() {
				source := "default"
				if _, ok := cfg.Locators[loc.Name]; ok {
					source = "override"
				}
				rows = append(rows, []string{loc.Name, loc.Selector, source})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Locator set %s\n", set.Version)
			fmt.Fprintln(out, renderTable([]string{"Name", "Selector", "Source"}, rows, []columnAlignment{alignLeft, alignWrap, alignLeft}))
			return nil
		},
	}
}
