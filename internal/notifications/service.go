package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"episodic/internal/config"
)

const userAgent = "episodic/0.1"

// Service defines the notification surface used by the acquisition engine.
type Service interface {
	NotifyJobStarted(ctx context.Context, series, plan string) error
	NotifyJobCompleted(ctx context.Context, series string, episodes int, duration time.Duration) error
	NotifyJobCanceled(ctx context.Context, series string, episodes int) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}
	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyJobStarted(ctx context.Context, series, plan string) error {
	message := fmt.Sprintf("Downloading %s", strings.TrimSpace(series))
	if plan = strings.TrimSpace(plan); plan != "" {
		message += " (" + plan + ")"
	}
	return n.send(ctx, payload{
		title:    "episodic - Download Started",
		message:  message,
		tags:     []string{"episodic", "download", "started"},
		priority: "low",
	})
}

func (n *ntfyService) NotifyJobCompleted(ctx context.Context, series string, episodes int, duration time.Duration) error {
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}
	return n.send(ctx, payload{
		title:   "episodic - Download Complete",
		message: fmt.Sprintf("✅ %s: %s in %s", strings.TrimSpace(series), pluralEpisodes(episodes), duration),
		tags:    []string{"episodic", "download", "completed"},
	})
}

func (n *ntfyService) NotifyJobCanceled(ctx context.Context, series string, episodes int) error {
	return n.send(ctx, payload{
		title:   "episodic - Download Stopped",
		message: fmt.Sprintf("⏹ %s: stopped after %s", strings.TrimSpace(series), pluralEpisodes(episodes)),
		tags:    []string{"episodic", "download", "canceled"},
	})
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	var builder strings.Builder
	builder.WriteString("❌ Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}
	return n.send(ctx, payload{
		title:    "episodic - Error",
		message:  builder.String(),
		tags:     []string{"episodic", "error", "alert"},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "episodic - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"episodic", "test"},
		priority: "low",
	})
}

func pluralEpisodes(n int) string {
	if n == 1 {
		return "1 episode"
	}
	return fmt.Sprintf("%d episodes", n)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyJobStarted(context.Context, string, string) error               { return nil }
func (noopService) NotifyJobCompleted(context.Context, string, int, time.Duration) error { return nil }
func (noopService) NotifyJobCanceled(context.Context, string, int) error                 { return nil }
func (noopService) NotifyError(context.Context, error, string) error                     { return nil }
func (noopService) TestNotification(context.Context) error                               { return nil }
