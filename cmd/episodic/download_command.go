package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"episodic/internal/acquire"
	"episodic/internal/catalog"
	"episodic/internal/config"
	"episodic/internal/engine"
	"episodic/internal/textutil"
)

type downloadOptions struct {
	mode    string
	season  int
	episode int
	count   int
	resume  bool
	dest    string
	pick    int
}

func newDownloadCommand(ctx *commandContext) *cobra.Command {
	opts := downloadOptions{}

	cmd := &cobra.Command{
		Use:   "download <title>",
		Short: "Download episodes of a series",
		Long: `Download episodes of a series into <download_dir>/<series>/<season>/S#E#.

Modes:
  count   --count episodes starting at --season/--episode, continuing into
          later seasons when a season runs out (default)
  season  every episode of --season
  series  every episode of every season

With --resume the job starts after the last episode already on disk; season
and series jobs shrink to the episodes that remain.

Interrupt once to stop after the current episode; interrupt again to abort it.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := acquire.ParseMode(opts.mode)
			if err != nil {
				return err
			}
			if opts.season < 1 || opts.episode < 1 {
				return errors.New("--season and --episode are 1-based")
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			dest, err := resolveDestination(cfg, opts.dest)
			if err != nil {
				return err
			}

			title := strings.Join(args, " ")
			picker := newPromptPicker(cmd.InOrStdin(), cmd.OutOrStdout(), opts.pick)
			return ctx.withEngine(cmd, picker, func(eng *engine.Engine) error {
				return runDownload(cmd, eng, title, mode, dest, opts)
			})
		},
	}

	cmd.Flags().StringVarP(&opts.mode, "mode", "m", "count", "Job shape: count, season or series")
	cmd.Flags().IntVarP(&opts.season, "season", "s", 1, "Starting season (1-based, among seasons with episodes)")
	cmd.Flags().IntVarP(&opts.episode, "episode", "e", 1, "Starting episode (1-based)")
	cmd.Flags().IntVarP(&opts.count, "count", "n", 1, "Episodes to download in count mode")
	cmd.Flags().BoolVar(&opts.resume, "resume", false, "Skip episodes up to the last one already on disk")
	cmd.Flags().StringVarP(&opts.dest, "dest", "d", "", "Destination root (defaults to paths.download_dir)")
	cmd.Flags().IntVar(&opts.pick, "pick", 0, "Choose the Nth search result without prompting")
	return cmd
}

func resolveDestination(cfg *config.Config, flag string) (string, error) {
	if strings.TrimSpace(flag) == "" {
		return cfg.Paths.DownloadDir, nil
	}
	dest, err := config.ExpandPath(flag)
	if err != nil {
		return "", fmt.Errorf("resolve destination: %w", err)
	}
	return dest, nil
}

func runDownload(cmd *cobra.Command, eng *engine.Engine, title string, mode acquire.Mode, dest string, opts downloadOptions) error {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	result, err := eng.Search(cmd.Context(), title)
	if err != nil {
		return err
	}
	if result.Outcome != catalog.Found {
		fmt.Fprintln(out, renderStatusLine("Search", statusWarn, describeOutcome(title, result.Outcome), colorize))
		return nil
	}

	job := acquire.Job{
		Mode:            mode,
		Series:          result.Series,
		StartSeason:     opts.season - 1,
		StartEpisode:    opts.episode - 1,
		Count:           opts.count,
		DestinationRoot: dest,
	}
	if opts.resume {
		overview, err := eng.Overview(cmd.Context(), result.Series)
		if err != nil {
			return err
		}
		next, ok := overview.Next()
		if !ok {
			fmt.Fprintln(out, renderStatusLine(result.Series.Name, statusOK, "library is complete", colorize))
			return nil
		}
		resumed, ok := acquire.ResumeFrom(job, next, overview.Seasons)
		if !ok {
			fmt.Fprintln(out, renderStatusLine(result.Series.Name, statusOK, job.Describe()+" is complete", colorize))
			return nil
		}
		job = resumed
	}
	fmt.Fprintln(out, renderStatusLine(result.Series.Name, statusInfo, job.Describe(), colorize))

	runCtx, stop := interruptContext(cmd.Context(), cmd.ErrOrStderr())
	defer stop.release()

	run, runErr := eng.Download(runCtx, job, stop.token, func(p acquire.Progress) {
		label := fmt.Sprintf("%s %s", p.Season.Name, episodeLabel(p))
		fmt.Fprintln(out, renderStatusLine(label, statusOK, textutil.ProgressString(p.Done, p.Total), colorize))
	})
	return reportDownload(out, colorize, run, runErr)
}

func episodeLabel(p acquire.Progress) string {
	return fmt.Sprintf("S%dE%d", p.Season.Index+1, p.Episode.EpisodeIndex+1)
}

func reportDownload(out io.Writer, colorize bool, run acquire.Result, runErr error) error {
	summary := fmt.Sprintf("%d episodes in %s", run.Completed, run.Duration.Round(time.Second))
	switch {
	case runErr != nil && errors.Is(runErr, context.Canceled):
		fmt.Fprintln(out, renderStatusLine("Download", statusWarn, "aborted after "+summary, colorize))
		return nil
	case runErr != nil:
		message := textutil.TruncateHead(textutil.OneLine(runErr.Error()), acquire.ErrorDisplayLimit)
		fmt.Fprintln(out, renderStatusLine("Download", statusError, message, colorize))
		return runErr
	case run.Canceled:
		fmt.Fprintln(out, renderStatusLine("Download", statusWarn, "stopped after "+summary, colorize))
		return nil
	default:
		fmt.Fprintln(out, renderStatusLine("Download", statusOK, summary, colorize))
		return nil
	}
}

type interruptHandle struct {
	token   *acquire.Token
	release func()
}

// interruptContext turns the first SIGINT/SIGTERM into a cooperative stop
// and the second into context cancellation.
func interruptContext(parent context.Context, errOut io.Writer) (context.Context, interruptHandle) {
	ctx, cancel := context.WithCancel(parent)
	token := acquire.NewToken()
	signals := make(chan os.Signal, 2)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		count := 0
		for {
			select {
			case <-signals:
				count++
				if count == 1 {
					fmt.Fprintln(errOut, "\nstopping after the current episode (interrupt again to abort)")
					token.Cancel()
					continue
				}
				cancel()
				return
			case <-done:
				return
			}
		}
	}()

	return ctx, interruptHandle{
		token: token,
		release: func() {
			signal.Stop(signals)
			close(done)
			cancel()
		},
	}
}
