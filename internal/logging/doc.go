// Package logging assembles structured slog loggers and the attribute helpers
// used across episodic.
//
// It owns the console and JSON handlers, maps configuration onto level and
// output routing, and tags lines with the component and active job so a
// download run can be followed in the log file after the fact. A no-op
// logger is provided for tests and wiring code that cannot fail.
package logging
