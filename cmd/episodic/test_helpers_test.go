package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"episodic/internal/browser"
	"episodic/internal/browser/browsertest"
	"episodic/internal/config"
	"episodic/internal/engine"
	"episodic/internal/locators"
	"episodic/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	site       *browsertest.Catalog
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	for _, key := range []string{"EPISODIC_CATALOG_URL", "EPISODIC_USERNAME", "EPISODIC_PASSWORD"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("media " + r.URL.Path))
	}))
	t.Cleanup(server.Close)
	root := server.URL + "/"

	cfg := testsupport.NewConfig(t,
		testsupport.WithCatalogURL(root),
		testsupport.WithCredentials("viewer", "secret"),
	)
	t.Setenv("HOME", filepath.Join(testsupport.BaseDir(cfg), "home"))

	site := browsertest.NewCatalog(root, locators.Default())
	site.RequireLogin("viewer", "secret")
	site.AddSeries(browsertest.Series{
		Slug:  "show",
		Title: "Show",
		Seasons: []browsertest.Season{
			{Name: "Season 1", Episodes: []string{"Pilot", "Second"}},
			{Name: "Season 2"},
			{Name: "Season 3", Episodes: []string{"Return"}},
		},
	})
	site.AddSeries(browsertest.Series{Slug: "show-again", Title: "Show Again", Seasons: []browsertest.Season{{Name: "Season 1", Episodes: []string{"One"}}}})
	site.AddDirectHit("Show", "show")
	site.AddSearch("Sho", "show-again", "show")

	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)
	return &cliTestEnv{cfg: cfg, configPath: configPath, site: site}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func (env *cliTestEnv) driver() engine.DriverFactory {
	return func(*config.Config) (browser.Driver, error) { return env.site.Site, nil }
}

func (env *cliTestEnv) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	return runCLI(t, env.driver(), env.configPath, stdin, args...)
}

func runCLI(t *testing.T, driver engine.DriverFactory, configPath, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := buildRootCommand(driver)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
