package engine_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"episodic/internal/acquire"
	"episodic/internal/auth"
	"episodic/internal/browser"
	"episodic/internal/browser/browsertest"
	"episodic/internal/catalog"
	"episodic/internal/config"
	"episodic/internal/engine"
	"episodic/internal/locators"
	"episodic/internal/testsupport"
)

type fixture struct {
	cfg  *config.Config
	site *browsertest.Catalog
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("media " + r.URL.Path))
	}))
	t.Cleanup(server.Close)
	root := server.URL + "/"

	cfg := testsupport.NewConfig(t,
		testsupport.WithCatalogURL(root),
		testsupport.WithCredentials("viewer", "secret"),
	)
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
	site.AddDirectHit("Show", "show")
	return &fixture{cfg: cfg, site: site}
}

func (f *fixture) engine(t *testing.T) *engine.Engine {
	t.Helper()
	eng, err := engine.New(f.cfg, engine.Options{
		Driver: func(*config.Config) (browser.Driver, error) { return f.site.Site, nil },
	})
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	return eng
}

func (f *fixture) started(t *testing.T) *engine.Engine {
	t.Helper()
	eng := f.engine(t)
	if err := eng.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = eng.Close() })
	return eng
}

func TestStartLogsInWithConfiguredCredentials(t *testing.T) {
	f := newFixture(t)
	eng := f.started(t)

	if got := f.site.LoginAttempts(); got != 1 {
		t.Fatalf("got %d login attempts want 1", got)
	}
	state, err := eng.LoginState(context.Background())
	if err != nil {
		t.Fatalf("LoginState: %v", err)
	}
	if state != auth.LoggedIn {
		t.Fatalf("got state %s want %s", state, auth.LoggedIn)
	}
	state, err = eng.Login(context.Background())
	if err != nil || state != auth.LoggedIn {
		t.Fatalf("Login = %s, %v", state, err)
	}
	if got := f.site.LoginAttempts(); got != 1 {
		t.Fatalf("already logged in, yet %d attempts", got)
	}
}

func TestStartFailsOnRejectedLogin(t *testing.T) {
	f := newFixture(t)
	f.cfg.Catalog.Password = "wrong"
	eng := f.engine(t)
	if err := eng.Start(context.Background()); !errors.Is(err, auth.ErrLoginFailed) {
		t.Fatalf("expected ErrLoginFailed, got %v", err)
	}
	if f.site.Site.Quits() != 1 {
		t.Fatal("browser should be closed after failed start")
	}
}

func TestStartWithoutCredentialsSkipsLogin(t *testing.T) {
	f := newFixture(t)
	f.cfg.Catalog.Username, f.cfg.Catalog.Password = "", ""
	eng := f.started(t)
	if f.site.LoginAttempts() != 0 {
		t.Fatal("expected no login attempt")
	}
	if _, err := eng.Login(context.Background()); !errors.Is(err, engine.ErrNoCredentials) {
		t.Fatalf("expected ErrNoCredentials, got %v", err)
	}
}

func TestSecondInstanceIsRejected(t *testing.T) {
	f := newFixture(t)
	f.started(t)

	other := f.engine(t)
	if err := other.Start(context.Background()); !errors.Is(err, engine.ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
}

func TestCloseReleasesLockAndBrowser(t *testing.T) {
	f := newFixture(t)
	eng := f.engine(t)
	if err := eng.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := eng.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := eng.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if f.site.Site.Quits() != 1 {
		t.Fatalf("got %d quits want 1", f.site.Site.Quits())
	}
	if err := eng.Do(context.Background(), func(context.Context) error { return nil }); !errors.Is(err, engine.ErrNotRunning) {
		t.Fatalf("expected ErrNotRunning, got %v", err)
	}

	f.started(t)
}

func TestWorkRunsSequentially(t *testing.T) {
	f := newFixture(t)
	eng := f.started(t)

	var active, overlaps int32
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = eng.Do(context.Background(), func(context.Context) error {
				if atomic.AddInt32(&active, 1) > 1 {
					atomic.AddInt32(&overlaps, 1)
				}
				time.Sleep(5 * time.Millisecond)
				atomic.AddInt32(&active, -1)
				return nil
			})
		}()
	}
	wg.Wait()
	if overlaps != 0 {
		t.Fatalf("observed %d overlapping tasks", overlaps)
	}
}

func TestDoGivesUpWhileQueued(t *testing.T) {
	f := newFixture(t)
	eng := f.started(t)

	busy := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = eng.Do(context.Background(), func(context.Context) error {
			close(busy)
			<-release
			return nil
		})
	}()
	<-busy
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := eng.Do(ctx, func(context.Context) error { return nil })
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestDoWaitsForRunningWork(t *testing.T) {
	f := newFixture(t)
	eng := f.started(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	finished := false
	err := eng.Do(ctx, func(ctx context.Context) error {
		cancel()
		<-ctx.Done()
		time.Sleep(10 * time.Millisecond)
		finished = true
		return errors.New("wound down")
	})
	if err == nil || err.Error() != "wound down" {
		t.Fatalf("expected the task's own error, got %v", err)
	}
	if !finished {
		t.Fatal("Do returned before the task finished")
	}
}

func TestDownloadAbortReportsCompletedEpisodes(t *testing.T) {
	f := newFixture(t)
	eng := f.started(t)

	result, err := eng.Search(context.Background(), "Show")
	if err != nil || result.Outcome != catalog.Found {
		t.Fatalf("Search = %+v, %v", result, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	seen := 0
	job := acquire.Job{Mode: acquire.WholeSeries, Series: result.Series}
	run, err := eng.Download(ctx, job, nil, func(p acquire.Progress) {
		seen = p.Done
		if p.Done == 2 {
			cancel()
		}
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if run.Completed != 2 || seen != 2 || run.JobID == "" {
		t.Fatalf("got completed=%d job=%q seen=%d, want 2 episodes reported", run.Completed, run.JobID, seen)
	}

	stored, err := eng.History().GetJob(context.Background(), run.JobID)
	if err != nil || stored == nil {
		t.Fatalf("GetJob = %v, %v", stored, err)
	}
	if stored.Status != acquire.StatusCanceled || stored.Completed != 2 {
		t.Fatalf("unexpected history row %#v", stored)
	}
	if _, err := os.Stat(filepath.Join(f.cfg.Paths.DownloadDir, "Show", "Season 3", "S2E1.mp4")); !os.IsNotExist(err) {
		t.Fatalf("third episode should not be captured: %v", err)
	}
}

func TestSearchOverviewAndDownload(t *testing.T) {
	f := newFixture(t)
	eng := f.started(t)
	ctx := context.Background()

	result, err := eng.Search(ctx, "Show")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if result.Outcome != catalog.Found || result.Series.Name != "Show" {
		t.Fatalf("unexpected search result %+v", result)
	}

	overview, err := eng.Overview(ctx, result.Series)
	if err != nil {
		t.Fatalf("Overview: %v", err)
	}
	if len(overview.Seasons) != 2 || overview.Episodes() != 3 || overview.HasLast {
		t.Fatalf("unexpected overview %+v", overview)
	}

	job := acquire.Job{Mode: acquire.WholeSeries, Series: result.Series}
	run, err := eng.Download(ctx, job, nil, nil)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if run.Completed != 3 {
		t.Fatalf("got %d completed want 3", run.Completed)
	}
	want := filepath.Join(f.cfg.Paths.DownloadDir, "Show", "Season 3", "S2E1.mp4")
	if content, err := os.ReadFile(want); err != nil || string(content) != "media /media/show/2/0.mp4" {
		t.Fatalf("unexpected capture at %s: %q %v", want, content, err)
	}

	jobs, err := eng.History().ListJobs(ctx, 10)
	if err != nil || len(jobs) != 1 {
		t.Fatalf("ListJobs = %v, %v", jobs, err)
	}
	if jobs[0].Status != acquire.StatusCompleted || jobs[0].Completed != 3 || jobs[0].ID != run.JobID {
		t.Fatalf("unexpected history row %#v", jobs[0])
	}

	overview, err = eng.Overview(ctx, result.Series)
	if err != nil {
		t.Fatalf("Overview: %v", err)
	}
	if !overview.HasLast || overview.Last.Label() != "S2E1" {
		t.Fatalf("expected resume pointer S2E1, got %+v", overview)
	}
	if _, ok := overview.Next(); ok {
		t.Fatal("complete series should have no next episode")
	}
}

func TestNewRequiresCatalogURL(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithCatalogURL(""))
	if _, err := engine.New(cfg, engine.Options{}); !errors.Is(err, config.ErrCatalogURLMissing) {
		t.Fatalf("expected ErrCatalogURLMissing, got %v", err)
	}
}
