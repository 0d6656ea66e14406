// Package notifications announces finished acquisition jobs via ntfy.
//
// NewService returns a no-op implementation when no topic is configured, so
// callers never branch on whether notifications are enabled.
package notifications
