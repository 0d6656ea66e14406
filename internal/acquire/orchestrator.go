package acquire

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"episodic/internal/catalog"
	"episodic/internal/logging"
	"episodic/internal/notifications"
	"episodic/internal/resume"
	"episodic/internal/textutil"
)

// Catalog is the listing surface the orchestrator walks.
type Catalog interface {
	ListSeasons(ctx context.Context) ([]catalog.Season, error)
	EpisodesOf(ctx context.Context, season catalog.Season) ([]catalog.Episode, error)
}

// Request is one episode handed to a Capturer.
type Request struct {
	JobID      string
	Root       string
	SeriesName string
	Season     catalog.Season
	Episode    catalog.Episode
}

// Pointer is the request's position in file naming terms.
func (r Request) Pointer() resume.Pointer {
	return resume.Pointer{SeasonIndex: r.Season.Index, EpisodeIndex: r.Episode.EpisodeIndex}
}

// Capturer retrieves one episode and returns the stored file's path.
type Capturer interface {
	Capture(ctx context.Context, req Request) (string, error)
}

// Status is a job's terminal or running state as recorded in history.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusCanceled  Status = "canceled"
	StatusFailed    Status = "failed"
)

// EpisodeRecord describes one captured episode.
type EpisodeRecord struct {
	SeasonIndex  int
	EpisodeIndex int
	SeasonName   string
	EpisodeName  string
	Path         string
}

// Recorder persists job history.
type Recorder interface {
	StartJob(ctx context.Context, job Job) error
	RecordEpisode(ctx context.Context, jobID string, rec EpisodeRecord) error
	FinishJob(ctx context.Context, jobID string, status Status, completed int, message string) error
}

// Progress is reported after every captured episode.
type Progress struct {
	JobID   string
	Season  catalog.Season
	Episode catalog.Episode
	Path    string
	Done    int
	Total   int
}

// ProgressFunc receives Progress updates on the orchestrator's goroutine.
type ProgressFunc func(Progress)

// Result summarizes a finished run.
type Result struct {
	JobID     string
	Completed int
	Canceled  bool
	Paths     []string
	Duration  time.Duration
}

// Options wires the optional collaborators.
type Options struct {
	Recorder Recorder
	Notifier notifications.Service
	Logger   *slog.Logger
}

// Orchestrator runs jobs against one catalog and capturer.
type Orchestrator struct {
	catalog  Catalog
	capturer Capturer
	recorder Recorder
	notifier notifications.Service
	logger   *slog.Logger
}

// New builds an Orchestrator.
func New(cat Catalog, capturer Capturer, opts Options) *Orchestrator {
	return &Orchestrator{
		catalog:  cat,
		capturer: capturer,
		recorder: opts.Recorder,
		notifier: opts.Notifier,
		logger:   logging.NewComponentLogger(opts.Logger, "acquire"),
	}
}

// segment is a run of consecutive episodes inside one season.
type segment struct {
	season catalog.Season
	from   int
	// limit caps the episodes taken; negative means through season end.
	limit int
}

// Run executes job. Cancellation through token is a normal outcome
// (Result.Canceled, nil error). A capture failure stops the job and is
// returned along with the episodes completed before it.
func (o *Orchestrator) Run(ctx context.Context, job Job, token *Token, progress ProgressFunc) (Result, error) {
	if err := job.Validate(); err != nil {
		return Result{}, err
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	ctx = logging.WithJobID(ctx, job.ID)
	logger := logging.WithContext(ctx, o.logger).With(logging.String(logging.FieldSeries, job.Series.Name))
	started := time.Now()
	result := Result{JobID: job.ID}

	seasons, err := o.catalog.ListSeasons(ctx)
	if err != nil {
		return result, fmt.Errorf("list seasons: %w", err)
	}
	segments, total, err := plan(job, seasons)
	if err != nil {
		return result, err
	}

	o.startJob(ctx, logger, job)
	logger.Info("job started",
		logging.String("mode", job.Mode.String()),
		logging.String("plan", job.Describe()),
		logging.Int("planned", total),
	)

	// Only fixed-count jobs are capped; season runs take whatever the page lists.
	budget := -1
	if job.Mode == FixedCount {
		budget = job.Count
	}
	runErr := func() error {
		for _, seg := range segments {
			if budget == 0 {
				return nil
			}
			if stop, err := stopRequested(ctx, token); stop {
				result.Canceled = true
				return err
			}
			episodes, err := o.catalog.EpisodesOf(ctx, seg.season)
			if err != nil {
				return fmt.Errorf("list episodes of %q: %w", seg.season.Name, err)
			}
			end := len(episodes)
			if seg.limit >= 0 && seg.from+seg.limit < end {
				end = seg.from + seg.limit
			}
			for i := seg.from; i < end && budget != 0; i++ {
				if stop, err := stopRequested(ctx, token); stop {
					result.Canceled = true
					return err
				}
				req := Request{
					JobID:      job.ID,
					Root:       job.DestinationRoot,
					SeriesName: job.Series.Name,
					Season:     seg.season,
					Episode:    episodes[i],
				}
				path, err := o.capturer.Capture(ctx, req)
				if err != nil {
					return fmt.Errorf("capture %s: %w", req.Pointer().Label(), err)
				}
				result.Completed++
				result.Paths = append(result.Paths, path)
				if budget > 0 {
					budget--
				}
				o.recordEpisode(ctx, logger, job.ID, req, path)
				logger.Info("episode captured",
					logging.Int(logging.FieldSeason, seg.season.Index),
					logging.Int(logging.FieldEpisode, episodes[i].EpisodeIndex),
					logging.String("progress", textutil.ProgressString(result.Completed, total)),
					logging.String("path", textutil.TruncateTail(path, pathDisplayLimit)),
				)
				if progress != nil {
					progress(Progress{JobID: job.ID, Season: seg.season, Episode: episodes[i], Path: path, Done: result.Completed, Total: total})
				}
			}
		}
		return nil
	}()

	result.Duration = time.Since(started)
	o.finishJob(ctx, logger, job, result, runErr)
	return result, runErr
}

const (
	pathDisplayLimit = 120
	// ErrorDisplayLimit caps error text shown in history and tables.
	ErrorDisplayLimit = 100
)

func stopRequested(ctx context.Context, token *Token) (bool, error) {
	if err := ctx.Err(); err != nil {
		return true, err
	}
	return token.Canceled(), nil
}

// plan turns a job into season segments and the number of episodes expected.
func plan(job Job, seasons []catalog.Season) ([]segment, int, error) {
	if len(seasons) == 0 {
		return nil, 0, fmt.Errorf("%w: series has no episodes", ErrInvalidJob)
	}
	switch job.Mode {
	case WholeSeries:
		segments := make([]segment, 0, len(seasons))
		total := 0
		for _, s := range seasons {
			segments = append(segments, segment{season: s, limit: -1})
			total += s.Episodes
		}
		return segments, total, nil
	case WholeSeason:
		if job.StartSeason >= len(seasons) {
			return nil, 0, seasonRangeError(job.StartSeason, len(seasons))
		}
		s := seasons[job.StartSeason]
		return []segment{{season: s, limit: -1}}, s.Episodes, nil
	default:
		if job.StartSeason >= len(seasons) {
			return nil, 0, seasonRangeError(job.StartSeason, len(seasons))
		}
		first := seasons[job.StartSeason]
		if job.StartEpisode >= first.Episodes {
			return nil, 0, fmt.Errorf("%w: episode %d of %d in %q", ErrInvalidJob, job.StartEpisode+1, first.Episodes, first.Name)
		}
		// Runs past the end of a season continue into the next one.
		segments := []segment{{season: first, from: job.StartEpisode, limit: -1}}
		available := first.Episodes - job.StartEpisode
		for _, s := range seasons[job.StartSeason+1:] {
			if available >= job.Count {
				break
			}
			segments = append(segments, segment{season: s, limit: -1})
			available += s.Episodes
		}
		return segments, min(job.Count, available), nil
	}
}

func seasonRangeError(index, count int) error {
	return fmt.Errorf("%w: season %d of %d", ErrInvalidJob, index+1, count)
}

func (o *Orchestrator) startJob(ctx context.Context, logger *slog.Logger, job Job) {
	if o.recorder != nil {
		if err := o.recorder.StartJob(ctx, job); err != nil {
			logging.WarnWithContext(logger, "job history unavailable", "history_write_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "this job will be missing from history"),
			)
		}
	}
	if o.notifier != nil {
		if err := o.notifier.NotifyJobStarted(ctx, job.Series.Name, job.Describe()); err != nil {
			logger.Debug("start notification failed", logging.Error(err))
		}
	}
}

func (o *Orchestrator) recordEpisode(ctx context.Context, logger *slog.Logger, jobID string, req Request, path string) {
	if o.recorder == nil {
		return
	}
	rec := EpisodeRecord{
		SeasonIndex:  req.Season.Index,
		EpisodeIndex: req.Episode.EpisodeIndex,
		SeasonName:   req.Season.Name,
		EpisodeName:  req.Episode.Name,
		Path:         path,
	}
	if err := o.recorder.RecordEpisode(ctx, jobID, rec); err != nil {
		logger.Debug("record episode failed", logging.Error(err))
	}
}

// finishJob writes the terminal state with a fresh context: the run's
// context may already be canceled.
func (o *Orchestrator) finishJob(ctx context.Context, logger *slog.Logger, job Job, result Result, runErr error) {
	status := StatusCompleted
	message := ""
	switch {
	case result.Canceled || errors.Is(runErr, context.Canceled):
		status = StatusCanceled
	case runErr != nil:
		status = StatusFailed
		message = textutil.TruncateHead(textutil.OneLine(runErr.Error()), ErrorDisplayLimit)
	}

	finishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if o.recorder != nil {
		if err := o.recorder.FinishJob(finishCtx, job.ID, status, result.Completed, message); err != nil {
			logger.Debug("finish job history failed", logging.Error(err))
		}
	}

	var notifyErr error
	switch status {
	case StatusFailed:
		logging.ErrorWithContext(logger, "job failed", "job_failed",
			logging.Error(runErr),
			logging.Int("completed", result.Completed),
			logging.String(logging.FieldErrorHint, "rerun the download; finished episodes are kept"),
		)
		if o.notifier != nil {
			notifyErr = o.notifier.NotifyError(finishCtx, runErr, job.Series.Name)
		}
	case StatusCanceled:
		logger.Info("job canceled", logging.Int("completed", result.Completed))
		if o.notifier != nil {
			notifyErr = o.notifier.NotifyJobCanceled(finishCtx, job.Series.Name, result.Completed)
		}
	default:
		logger.Info("job completed", logging.Int("completed", result.Completed), logging.Duration("duration", result.Duration))
		if o.notifier != nil {
			notifyErr = o.notifier.NotifyJobCompleted(finishCtx, job.Series.Name, result.Completed, result.Duration)
		}
	}
	if notifyErr != nil {
		logger.Debug("finish notification failed", logging.Error(notifyErr))
	}
}
