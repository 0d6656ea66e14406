package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := env.run(t, "", "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, env.cfg.Catalog.URL)
	requireContains(t, out, "configured")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, err = env.run(t, "", "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, err := env.run(t, "", "config", "init", "--path", target); err == nil {
		t.Fatal("expected init to refuse overwriting without --overwrite")
	}
	if _, err := env.run(t, "", "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestConfigLocatorsMarksOverrides(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.Locators = map[string]string{"season_links": "css=ul.seasons a"}
	writeTestConfig(t, env.configPath, env.cfg)

	out, err := env.run(t, "", "config", "locators")
	if err != nil {
		t.Fatalf("config locators: %v", err)
	}
	requireContains(t, out, "+overrides")
	requireContains(t, out, "css=ul.seasons a")
	requireContains(t, out, "override")
	requireContains(t, out, "video_player")
}
