package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"episodic/internal/acquire"
	"episodic/internal/history"
	"episodic/internal/textutil"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent download jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHistory(func(store *history.Store) error {
				jobs, err := store.ListJobs(cmd.Context(), limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(jobs) == 0 {
					fmt.Fprintln(out, "No download jobs recorded")
					return nil
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Started", "Series", "Plan", "Status", "Episodes", "Duration", "Error"},
					jobRows(jobs),
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of jobs to show (0 for all)")

	cmd.AddCommand(newHistoryShowCommand(ctx))
	cmd.AddCommand(newHistoryClearCommand(ctx))
	return cmd
}

func jobRows(jobs []*history.Job) [][]string {
	rows := make([][]string, 0, len(jobs))
	for _, job := range jobs {
		duration := "-"
		if d := job.Duration(); d > 0 {
			duration = d.Round(time.Second).String()
		}
		rows = append(rows, []string{
			shortID(job.ID),
			job.StartedAt.Local().Format("2006-01-02 15:04"),
			job.SeriesName,
			job.Plan,
			string(job.Status),
			strconv.Itoa(job.Completed),
			duration,
			textutil.TruncateHead(job.Error, acquire.ErrorDisplayLimit),
		})
	}
	return rows
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <job-id>",
		Short: "List the episodes a job stored",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHistory(func(store *history.Store) error {
				job, err := findJob(cmd, store, args[0])
				if err != nil {
					return err
				}
				episodes, err := store.Episodes(cmd.Context(), job.ID)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				printLines(out, renderSectionHeader(job.SeriesName+" ("+string(job.Status)+")", shouldColorize(out))...)
				rows := make([][]string, 0, len(episodes))
				for _, ep := range episodes {
					rows = append(rows, []string{
						fmt.Sprintf("S%dE%d", ep.SeasonIndex+1, ep.EpisodeIndex+1),
						ep.SeasonName,
						textutil.TruncateTail(ep.Path, 120),
					})
				}
				fmt.Fprintln(out, renderTable([]string{"Episode", "Season", "Path"}, rows, []columnAlignment{alignLeft, alignLeft, alignWrap}))
				return nil
			})
		},
	}
}

// findJob resolves a full ID or the 8-character prefix shown by `history`.
func findJob(cmd *cobra.Command, store *history.Store, id string) (*history.Job, error) {
	job, err := store.GetJob(cmd.Context(), id)
	if err != nil {
		return nil, err
	}
	if job != nil {
		return job, nil
	}
	jobs, err := store.ListJobs(cmd.Context(), 0)
	if err != nil {
		return nil, err
	}
	var match *history.Job
	for _, candidate := range jobs {
		if len(id) >= 4 && len(candidate.ID) >= len(id) && candidate.ID[:len(id)] == id {
			if match != nil {
				return nil, fmt.Errorf("job id %q is ambiguous", id)
			}
			match = candidate
		}
	}
	if match == nil {
		return nil, fmt.Errorf("job %q not found", id)
	}
	return match, nil
}

func newHistoryClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete all recorded jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHistory(func(store *history.Store) error {
				removed, err := store.Clear(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d jobs\n", removed)
				return nil
			})
		},
	}
}
