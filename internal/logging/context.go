package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldJobID identifies the acquisition job a line belongs to.
	FieldJobID = "job_id"
	// FieldSeries is the series title as the catalog renders it.
	FieldSeries = "series"
	// FieldSeason and FieldEpisode are 0-based catalog indices.
	FieldSeason  = "season"
	FieldEpisode = "episode"
	// FieldLocator names the page region a lookup targeted.
	FieldLocator = "locator"
	// FieldURL is the page or media address involved.
	FieldURL = "url"
	// FieldEventType classifies warnings and errors for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint is the suggested next step for the operator.
	FieldErrorHint = "error_hint"
	// FieldImpact is the user-facing consequence of a warning.
	FieldImpact = "impact"
)

type jobIDKey struct{}

// WithJobID tags ctx so every line logged through it carries the job ID.
func WithJobID(ctx context.Context, jobID string) context.Context {
	if jobID == "" {
		return ctx
	}
	return context.WithValue(ctx, jobIDKey{}, jobID)
}

// JobIDFromContext returns the job ID stored by WithJobID.
func JobIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(jobIDKey{}).(string)
	return id, ok && id != ""
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if id, ok := JobIDFromContext(ctx); ok {
		return []slog.Attr{slog.String(FieldJobID, id)}
	}
	return nil
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
