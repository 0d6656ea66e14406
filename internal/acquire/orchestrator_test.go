package acquire_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"episodic/internal/acquire"
	"episodic/internal/catalog"
	"episodic/internal/resume"
)

// fakeCatalog serves a raw season layout, dropping empty seasons the way the
// navigator does.
type fakeCatalog struct {
	raw []int
}

func (f *fakeCatalog) ListSeasons(context.Context) ([]catalog.Season, error) {
	var out []catalog.Season
	for pos, n := range f.raw {
		if n == 0 {
			continue
		}
		out = append(out, catalog.Season{Index: len(out), Name: fmt.Sprintf("Season %d", pos+1), Position: pos, Episodes: n})
	}
	return out, nil
}

func (f *fakeCatalog) EpisodesOf(_ context.Context, s catalog.Season) ([]catalog.Episode, error) {
	eps := make([]catalog.Episode, f.raw[s.Position])
	for i := range eps {
		eps[i] = catalog.Episode{SeasonIndex: s.Index, EpisodeIndex: i, Name: fmt.Sprintf("Episode %d", i+1)}
	}
	return eps, nil
}

type fakeCapturer struct {
	mu     sync.Mutex
	got    []resume.Pointer
	before func(req acquire.Request) error
	after  func(req acquire.Request)
}

func (f *fakeCapturer) Capture(_ context.Context, req acquire.Request) (string, error) {
	if f.before != nil {
		if err := f.before(req); err != nil {
			return "", err
		}
	}
	f.mu.Lock()
	f.got = append(f.got, req.Pointer())
	f.mu.Unlock()
	if f.after != nil {
		f.after(req)
	}
	return filepath.Join(req.Root, req.SeriesName, req.Pointer().Label()+".mp4"), nil
}

type recorder struct {
	started  []string
	episodes int
	status   acquire.Status
	finished int
	message  string
}

func (r *recorder) StartJob(_ context.Context, job acquire.Job) error {
	r.started = append(r.started, job.ID)
	return nil
}

func (r *recorder) RecordEpisode(context.Context, string, acquire.EpisodeRecord) error {
	r.episodes++
	return nil
}

func (r *recorder) FinishJob(_ context.Context, _ string, status acquire.Status, completed int, message string) error {
	r.status, r.finished, r.message = status, completed, message
	return nil
}

func newJob(mode acquire.Mode) acquire.Job {
	return acquire.Job{
		Mode:            mode,
		Series:          catalog.SeriesHandle{Name: "Show", URL: "https://catalog.test/watch/show"},
		DestinationRoot: "/library",
	}
}

func pointers(ps ...[2]int) []resume.Pointer {
	out := make([]resume.Pointer, len(ps))
	for i, p := range ps {
		out[i] = resume.Pointer{SeasonIndex: p[0], EpisodeIndex: p[1]}
	}
	return out
}

func assertPointers(t *testing.T, got, want []resume.Pointer) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("captured %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("captured %v, want %v", got, want)
		}
	}
}

func TestWholeSeriesCancelBetweenEpisodes(t *testing.T) {
	token := acquire.NewToken()
	capturer := &fakeCapturer{after: func(req acquire.Request) {
		if req.Season.Index == 1 && req.Episode.EpisodeIndex == 0 {
			token.Cancel()
		}
	}}
	rec := &recorder{}
	orch := acquire.New(&fakeCatalog{raw: []int{3, 0, 2}}, capturer, acquire.Options{Recorder: rec})

	var updates []acquire.Progress
	result, err := orch.Run(context.Background(), newJob(acquire.WholeSeries), token, func(p acquire.Progress) {
		updates = append(updates, p)
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !result.Canceled || result.Completed != 4 {
		t.Fatalf("result = %+v, want 4 completed and canceled", result)
	}
	assertPointers(t, capturer.got, pointers([2]int{0, 0}, [2]int{0, 1}, [2]int{0, 2}, [2]int{1, 0}))
	if len(updates) != 4 || updates[3].Done != 4 || updates[3].Total != 5 {
		t.Fatalf("unexpected progress %+v", updates)
	}
	if rec.status != acquire.StatusCanceled || rec.finished != 4 || rec.episodes != 4 {
		t.Fatalf("unexpected history %+v", rec)
	}
	if len(rec.started) != 1 || rec.started[0] != result.JobID || result.JobID == "" {
		t.Fatalf("job id not propagated: %+v / %q", rec.started, result.JobID)
	}
}

func TestWholeSeriesCompletes(t *testing.T) {
	capturer := &fakeCapturer{}
	orch := acquire.New(&fakeCatalog{raw: []int{3, 0, 2}}, capturer, acquire.Options{})
	result, err := orch.Run(context.Background(), newJob(acquire.WholeSeries), nil, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Canceled || result.Completed != 5 || len(result.Paths) != 5 {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestWholeSeasonStartsAtFirstEpisode(t *testing.T) {
	capturer := &fakeCapturer{}
	orch := acquire.New(&fakeCatalog{raw: []int{3, 0, 2}}, capturer, acquire.Options{})
	job := newJob(acquire.WholeSeason)
	job.StartSeason = 1
	job.StartEpisode = 1
	if _, err := orch.Run(context.Background(), job, nil, nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	assertPointers(t, capturer.got, pointers([2]int{1, 0}, [2]int{1, 1}))
}

func TestFixedCountRollsIntoNextSeason(t *testing.T) {
	capturer := &fakeCapturer{}
	orch := acquire.New(&fakeCatalog{raw: []int{3, 0, 2, 4}}, capturer, acquire.Options{})
	job := newJob(acquire.FixedCount)
	job.StartSeason = 0
	job.StartEpisode = 2
	job.Count = 4
	result, err := orch.Run(context.Background(), job, nil, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	assertPointers(t, capturer.got, pointers([2]int{0, 2}, [2]int{1, 0}, [2]int{1, 1}, [2]int{2, 0}))
	if result.Completed != 4 {
		t.Fatalf("completed = %d", result.Completed)
	}
}

func TestFixedCountStopsAtSeriesEnd(t *testing.T) {
	capturer := &fakeCapturer{}
	orch := acquire.New(&fakeCatalog{raw: []int{2}}, capturer, acquire.Options{})
	job := newJob(acquire.FixedCount)
	job.StartEpisode = 1
	job.Count = 10
	var last acquire.Progress
	result, err := orch.Run(context.Background(), job, nil, func(p acquire.Progress) { last = p })
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Completed != 1 || last.Total != 1 {
		t.Fatalf("result %+v progress %+v", result, last)
	}
}

func TestCaptureFailureStopsJob(t *testing.T) {
	boom := errors.New("player never appeared")
	capturer := &fakeCapturer{before: func(req acquire.Request) error {
		if req.Episode.EpisodeIndex == 1 {
			return boom
		}
		return nil
	}}
	rec := &recorder{}
	orch := acquire.New(&fakeCatalog{raw: []int{3}}, capturer, acquire.Options{Recorder: rec})
	result, err := orch.Run(context.Background(), newJob(acquire.WholeSeries), nil, nil)
	if !errors.Is(err, boom) {
		t.Fatalf("expected capture error, got %v", err)
	}
	if result.Completed != 1 || result.Canceled {
		t.Fatalf("unexpected result %+v", result)
	}
	if rec.status != acquire.StatusFailed || rec.message == "" {
		t.Fatalf("unexpected history %+v", rec)
	}
}

func TestContextCancellationIsRecordedAsCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	capturer := &fakeCapturer{after: func(acquire.Request) { cancel() }}
	rec := &recorder{}
	orch := acquire.New(&fakeCatalog{raw: []int{3}}, capturer, acquire.Options{Recorder: rec})
	result, err := orch.Run(ctx, newJob(acquire.WholeSeries), nil, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if result.Completed != 1 || rec.status != acquire.StatusCanceled {
		t.Fatalf("result %+v history %+v", result, rec)
	}
}

func TestRunRejectsInvalidJobs(t *testing.T) {
	orch := acquire.New(&fakeCatalog{raw: []int{3}}, &fakeCapturer{}, acquire.Options{})
	cases := map[string]func(*acquire.Job){
		"zero count":      func(j *acquire.Job) { j.Count = 0 },
		"season range":    func(j *acquire.Job) { j.Count = 1; j.StartSeason = 4 },
		"episode range":   func(j *acquire.Job) { j.Count = 1; j.StartEpisode = 3 },
		"missing root":    func(j *acquire.Job) { j.Count = 1; j.DestinationRoot = "" },
		"missing series":  func(j *acquire.Job) { j.Count = 1; j.Series.Name = " " },
		"negative offset": func(j *acquire.Job) { j.Count = 1; j.StartEpisode = -1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			job := newJob(acquire.FixedCount)
			mutate(&job)
			if _, err := orch.Run(context.Background(), job, nil, nil); !errors.Is(err, acquire.ErrInvalidJob) {
				t.Fatalf("expected ErrInvalidJob, got %v", err)
			}
		})
	}
}

func TestTokenIsIdempotent(t *testing.T) {
	token := acquire.NewToken()
	if token.Canceled() {
		t.Fatal("fresh token must not be canceled")
	}
	token.Cancel()
	token.Cancel()
	if !token.Canceled() {
		t.Fatal("expected canceled token")
	}
	select {
	case <-token.Done():
	default:
		t.Fatal("Done should be closed")
	}
}

func TestSuggestAndNextAfter(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "Show", "Season 1")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "S1E3.mp4"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	p, ok := acquire.Suggest("Show", root)
	if !ok || p != (resume.Pointer{SeasonIndex: 0, EpisodeIndex: 2}) {
		t.Fatalf("Suggest = %+v, %v", p, ok)
	}

	seasons, _ := (&fakeCatalog{raw: []int{3, 0, 2}}).ListSeasons(context.Background())
	next, ok := acquire.NextAfter(p, seasons)
	if !ok || next != (resume.Pointer{SeasonIndex: 1, EpisodeIndex: 0}) {
		t.Fatalf("NextAfter = %+v, %v", next, ok)
	}
	if _, ok := acquire.NextAfter(resume.Pointer{SeasonIndex: 1, EpisodeIndex: 1}, seasons); ok {
		t.Fatal("last episode has no successor")
	}
}

func TestResumeFromNarrowsJobToRemainingEpisodes(t *testing.T) {
	seasons, _ := (&fakeCatalog{raw: []int{3, 0, 2, 4}}).ListSeasons(context.Background())
	next := resume.Pointer{SeasonIndex: 1, EpisodeIndex: 1}

	tests := []struct {
		name   string
		job    acquire.Job
		wantOK bool
		want   acquire.Job
	}{
		{
			name:   "series",
			job:    acquire.Job{Mode: acquire.WholeSeries},
			wantOK: true,
			want:   acquire.Job{Mode: acquire.FixedCount, StartSeason: 1, StartEpisode: 1, Count: 5},
		},
		{
			name:   "same season",
			job:    acquire.Job{Mode: acquire.WholeSeason, StartSeason: 1},
			wantOK: true,
			want:   acquire.Job{Mode: acquire.FixedCount, StartSeason: 1, StartEpisode: 1, Count: 1},
		},
		{
			name:   "later season untouched",
			job:    acquire.Job{Mode: acquire.WholeSeason, StartSeason: 2},
			wantOK: true,
			want:   acquire.Job{Mode: acquire.WholeSeason, StartSeason: 2},
		},
		{
			name: "earlier season done",
			job:  acquire.Job{Mode: acquire.WholeSeason, StartSeason: 0},
		},
		{
			name:   "count keeps its size",
			job:    acquire.Job{Mode: acquire.FixedCount, Count: 3},
			wantOK: true,
			want:   acquire.Job{Mode: acquire.FixedCount, StartSeason: 1, StartEpisode: 1, Count: 3},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := acquire.ResumeFrom(tt.job, next, seasons)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Fatalf("ResumeFrom = %+v, want %+v", got, tt.want)
			}
		})
	}

	if _, ok := acquire.ResumeFrom(acquire.Job{Mode: acquire.WholeSeries}, resume.Pointer{SeasonIndex: 3}, seasons); ok {
		t.Fatal("pointer past the listing should leave nothing to do")
	}
}

func TestParseModeAndDescribe(t *testing.T) {
	for _, m := range []acquire.Mode{acquire.FixedCount, acquire.WholeSeason, acquire.WholeSeries} {
		got, err := acquire.ParseMode(m.String())
		if err != nil || got != m {
			t.Fatalf("ParseMode(%q) = %v, %v", m.String(), got, err)
		}
	}
	if _, err := acquire.ParseMode("bogus"); err == nil {
		t.Fatal("expected error for unknown mode")
	}
	job := newJob(acquire.FixedCount)
	job.Count = 3
	job.StartSeason = 1
	if got := job.Describe(); got != "3 episodes from S2E1" {
		t.Fatalf("Describe = %q", got)
	}
}
