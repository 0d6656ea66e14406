package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"

	"episodic/internal/acquire"
	"episodic/internal/browser"
	"episodic/internal/catalog"
	"episodic/internal/locators"
	"episodic/internal/logging"
	"episodic/internal/resume"
	"episodic/internal/textutil"
)

// ErrPlayerMissing reports an episode page whose player never got a source.
var ErrPlayerMissing = errors.New("video player did not load")

// EpisodeOpener selects an episode on the series page.
type EpisodeOpener interface {
	OpenEpisode(ctx context.Context, season catalog.Season, episodeIndex int) error
}

// Page is the slice of the browser session a capture reads from.
type Page interface {
	FindVisibleWithin(ctx context.Context, loc locators.Locator, timeout time.Duration) (browser.Element, bool)
	Cookies(ctx context.Context) ([]*http.Cookie, error)
	CurrentURL() string
}

// Options configures a Capturer.
type Options struct {
	PlayerTimeout time.Duration
	MinFreeBytes  uint64
	// ProgressWriter receives a byte progress bar per episode when set.
	ProgressWriter io.Writer
	Client         *http.Client
	Logger         *slog.Logger
}

// Capturer implements acquire.Capturer over a browser session.
type Capturer struct {
	opener   EpisodeOpener
	page     Page
	player   locators.Locator
	timeout  time.Duration
	minFree  uint64
	progress io.Writer
	client   *http.Client
	logger   *slog.Logger

	// lastSource is the media URL of the last stored episode. Captures run
	// one at a time on the engine worker.
	lastSource string
}

var _ acquire.Capturer = (*Capturer)(nil)

// New builds a Capturer.
func New(opener EpisodeOpener, page Page, set locators.Set, opts Options) *Capturer {
	client := opts.Client
	if client == nil {
		client = &http.Client{}
	}
	timeout := opts.PlayerTimeout
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	return &Capturer{
		opener:   opener,
		page:     page,
		player:   set.VideoPlayer,
		timeout:  timeout,
		minFree:  opts.MinFreeBytes,
		progress: opts.ProgressWriter,
		client:   client,
		logger:   logging.NewComponentLogger(opts.Logger, "capture"),
	}
}

// Capture opens req's episode and stores its media. It returns the final path.
func (c *Capturer) Capture(ctx context.Context, req acquire.Request) (string, error) {
	pointer := req.Pointer()
	logger := logging.WithContext(ctx, c.logger).With(
		logging.Int(logging.FieldSeason, pointer.SeasonIndex),
		logging.Int(logging.FieldEpisode, pointer.EpisodeIndex),
	)

	dir := SeasonDir(req.Root, req.SeriesName, req.Season.Name)
	if err := CheckDestination(dir, c.minFree); err != nil {
		return "", err
	}
	if err := c.opener.OpenEpisode(ctx, req.Season, req.Episode.EpisodeIndex); err != nil {
		return "", fmt.Errorf("open episode: %w", err)
	}
	source, err := c.mediaSource(ctx)
	if err != nil {
		return "", err
	}

	target := filepath.Join(dir, EpisodeFileName(pointer, ExtensionFor(source)))
	logger.Debug("media source resolved", logging.String(logging.FieldURL, source))
	written, err := c.download(ctx, source, target, pointer.Label())
	if err != nil {
		return "", err
	}
	c.lastSource = source
	logger.Info("media stored",
		logging.String("path", textutil.TruncateTail(target, 120)),
		logging.String("size", humanize.IBytes(uint64(written))),
	)
	return target, nil
}

// mediaSource waits for the player to expose a downloadable source other
// than the one the previous capture used. The page swaps sources
// asynchronously, so the old one can still be visible right after a click.
func (c *Capturer) mediaSource(ctx context.Context) (string, error) {
	deadline := time.Now().Add(c.timeout)
	for {
		source, err := c.readSource(ctx, time.Until(deadline))
		if err != nil {
			return "", err
		}
		if source != "" && source != c.lastSource {
			return source, nil
		}
		if !time.Now().Before(deadline) {
			if source != "" {
				return "", fmt.Errorf("%w: source still points at the previous episode", ErrPlayerMissing)
			}
			return "", fmt.Errorf("%w: no downloadable source", ErrPlayerMissing)
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(sourcePollInterval):
		}
	}
}

const sourcePollInterval = 100 * time.Millisecond

// readSource returns the player's absolute source URL, or "" while it has
// none worth downloading.
func (c *Capturer) readSource(ctx context.Context, timeout time.Duration) (string, error) {
	player, ok := c.page.FindVisibleWithin(ctx, c.player, max(timeout, 0))
	if !ok {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		return "", fmt.Errorf("%w within %s", ErrPlayerMissing, c.timeout)
	}
	src, err := player.Attribute("src")
	if err != nil {
		return "", fmt.Errorf("read player source: %w", err)
	}
	src = strings.TrimSpace(src)
	if src == "" || strings.HasPrefix(src, "blob:") {
		return "", nil
	}
	base, err := url.Parse(c.page.CurrentURL())
	if err != nil {
		return src, nil
	}
	ref, err := url.Parse(src)
	if err != nil {
		return "", fmt.Errorf("parse player source: %w", err)
	}
	return base.ResolveReference(ref).String(), nil
}

func (c *Capturer) download(ctx context.Context, source, target, label string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return 0, fmt.Errorf("build media request: %w", err)
	}
	if referer := c.page.CurrentURL(); referer != "" {
		req.Header.Set("Referer", referer)
	}
	cookies, err := c.page.Cookies(ctx)
	if err != nil && !errors.Is(err, browser.ErrCookiesUnsupported) {
		return 0, fmt.Errorf("read session cookies: %w", err)
	}
	for _, cookie := range cookies {
		req.AddCookie(&http.Cookie{Name: cookie.Name, Value: cookie.Value})
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetch media: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("fetch media: unexpected status %s", resp.Status)
	}

	partial := target + resume.PartialSuffix
	out, err := os.Create(partial)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", partial, err)
	}
	var dst io.Writer = out
	if c.progress != nil {
		bar := progressbar.NewOptions64(resp.ContentLength,
			progressbar.OptionSetWriter(c.progress),
			progressbar.OptionSetDescription(label),
			progressbar.OptionShowBytes(true),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
		defer bar.Close()
		dst = io.MultiWriter(out, bar)
	}

	written, copyErr := io.Copy(dst, resp.Body)
	closeErr := out.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		_ = os.Remove(partial)
		return 0, fmt.Errorf("write media: %w", err)
	}
	if resp.ContentLength > 0 && written != resp.ContentLength {
		_ = os.Remove(partial)
		return 0, fmt.Errorf("write media: got %d of %d bytes", written, resp.ContentLength)
	}
	if err := os.Rename(partial, target); err != nil {
		_ = os.Remove(partial)
		return 0, fmt.Errorf("finalize %s: %w", target, err)
	}
	return written, nil
}
