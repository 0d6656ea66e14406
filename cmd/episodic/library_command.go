package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"episodic/internal/resume"
)

func newLibraryCommand(ctx *commandContext) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "library",
		Short: "List series already in the download directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			root, err := resolveDestination(cfg, dir)
			if err != nil {
				return err
			}
			series, err := resume.ListSeries(root)
			if err != nil {
				return fmt.Errorf("list library: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(series) == 0 {
				fmt.Fprintf(out, "No series in %s\n", root)
				return nil
			}

			rows := make([][]string, 0, len(series))
			for _, name := range series {
				last := "-"
				if p, ok := resume.LastCompleted(name, root); ok {
					last = p.Label()
				}
				count := resume.CountEpisodes(resume.SeriesDir(root, name))
				rows = append(rows, []string{name, strconv.Itoa(count), last})
			}
			fmt.Fprintln(out, renderTable([]string{"Series", "Episodes", "Last"}, rows, []columnAlignment{alignLeft, alignRight, alignLeft}))
			return nil
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "d", "", "Library root (defaults to paths.download_dir)")
	return cmd
}
