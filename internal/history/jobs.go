package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"episodic/internal/acquire"
)

// Job is one recorded download job.
type Job struct {
	ID          string
	SeriesName  string
	SeriesURL   string
	Mode        string
	Plan        string
	Destination string
	Status      acquire.Status
	Completed   int
	Error       string
	StartedAt   time.Time
	FinishedAt  time.Time
}

// Duration is the wall time of a finished job, zero while running.
func (j Job) Duration() time.Duration {
	if j.FinishedAt.IsZero() {
		return 0
	}
	return j.FinishedAt.Sub(j.StartedAt)
}

// Episode is one stored episode of a job.
type Episode struct {
	JobID        string
	SeasonIndex  int
	EpisodeIndex int
	SeasonName   string
	EpisodeName  string
	Path         string
	StoredAt     time.Time
}

var _ acquire.Recorder = (*Store)(nil)

const jobColumns = "id, series_name, series_url, mode, plan, destination, status, completed, error_message, started_at, finished_at"

// StartJob records a job in the running state.
func (s *Store) StartJob(ctx context.Context, job acquire.Job) error {
	_, err := s.exec(ctx,
		`INSERT INTO jobs (id, series_name, series_url, mode, plan, destination, status, completed, started_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?)`,
		job.ID,
		job.Series.Name,
		nullableString(job.Series.URL),
		job.Mode.String(),
		job.Describe(),
		job.DestinationRoot,
		acquire.StatusRunning,
		formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// RecordEpisode appends a stored episode and bumps the job's counter.
func (s *Store) RecordEpisode(ctx context.Context, jobID string, rec acquire.EpisodeRecord) error {
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO episodes (job_id, season_index, episode_index, season_name, episode_name, path, stored_at)
             VALUES (?, ?, ?, ?, ?, ?, ?)`,
			jobID, rec.SeasonIndex, rec.EpisodeIndex,
			nullableString(rec.SeasonName), nullableString(rec.EpisodeName),
			rec.Path, formatTime(time.Now()),
		); err != nil {
			return fmt.Errorf("insert episode: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE jobs SET completed = completed + 1 WHERE id = ?`, jobID); err != nil {
			return fmt.Errorf("bump completed: %w", err)
		}
		return tx.Commit()
	})
}

// FinishJob records the terminal status.
func (s *Store) FinishJob(ctx context.Context, jobID string, status acquire.Status, completed int, message string) error {
	res, err := s.exec(ctx,
		`UPDATE jobs SET status = ?, completed = ?, error_message = ?, finished_at = ? WHERE id = ?`,
		status, completed, nullableString(message), formatTime(time.Now()), jobID,
	)
	if err != nil {
		return fmt.Errorf("finish job: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish job %s: not found", jobID)
	}
	return nil
}

// MarkInterrupted fails jobs left running by a process that died. It returns
// how many rows changed.
func (s *Store) MarkInterrupted(ctx context.Context) (int64, error) {
	res, err := s.exec(ctx,
		`UPDATE jobs SET status = ?, error_message = ?, finished_at = ? WHERE status = ?`,
		acquire.StatusFailed, "interrupted", formatTime(time.Now()), acquire.StatusRunning,
	)
	if err != nil {
		return 0, fmt.Errorf("mark interrupted: %w", err)
	}
	return res.RowsAffected()
}

// GetJob fetches a job by ID; a missing job yields nil without error.
func (s *Store) GetJob(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// ListJobs returns the most recent jobs first. A limit <= 0 returns all.
func (s *Store) ListJobs(ctx context.Context, limit int) ([]*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs ORDER BY started_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Episodes lists a job's stored episodes in capture order.
func (s *Store) Episodes(ctx context.Context, jobID string) ([]Episode, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT job_id, season_index, episode_index, season_name, episode_name, path, stored_at
         FROM episodes WHERE job_id = ? ORDER BY id`, jobID)
	if err != nil {
		return nil, fmt.Errorf("list episodes: %w", err)
	}
	defer rows.Close()

	var out []Episode
	for rows.Next() {
		var (
			ep          Episode
			seasonName  sql.NullString
			episodeName sql.NullString
			storedRaw   string
		)
		if err := rows.Scan(&ep.JobID, &ep.SeasonIndex, &ep.EpisodeIndex, &seasonName, &episodeName, &ep.Path, &storedRaw); err != nil {
			return nil, fmt.Errorf("scan episode: %w", err)
		}
		ep.SeasonName = seasonName.String
		ep.EpisodeName = episodeName.String
		ep.StoredAt = parseTime(storedRaw)
		out = append(out, ep)
	}
	return out, rows.Err()
}

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		job         Job
		seriesURL   sql.NullString
		plan        sql.NullString
		status      string
		errorMsg    sql.NullString
		startedRaw  string
		finishedRaw sql.NullString
	)
	if err := scanner.Scan(
		&job.ID,
		&job.SeriesName,
		&seriesURL,
		&job.Mode,
		&plan,
		&job.Destination,
		&status,
		&job.Completed,
		&errorMsg,
		&startedRaw,
		&finishedRaw,
	); err != nil {
		return nil, err
	}
	job.SeriesURL = seriesURL.String
	job.Plan = plan.String
	job.Status = acquire.Status(status)
	job.Error = errorMsg.String
	job.StartedAt = parseTime(startedRaw)
	if finishedRaw.Valid {
		job.FinishedAt = parseTime(finishedRaw.String)
	}
	return &job, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(raw string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}
