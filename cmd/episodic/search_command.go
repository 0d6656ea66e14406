package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"episodic/internal/catalog"
	"episodic/internal/engine"
)

func newSearchCommand(ctx *commandContext) *cobra.Command {
	var pick int

	cmd := &cobra.Command{
		Use:   "search <title>",
		Short: "Find a series and list its seasons",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := strings.Join(args, " ")
			picker := newPromptPicker(cmd.InOrStdin(), cmd.OutOrStdout(), pick)
			return ctx.withEngine(cmd, picker, func(eng *engine.Engine) error {
				result, err := eng.Search(cmd.Context(), title)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if result.Outcome != catalog.Found {
					fmt.Fprintln(out, renderStatusLine("Search", statusWarn, describeOutcome(title, result.Outcome), shouldColorize(out)))
					return nil
				}
				overview, err := eng.Overview(cmd.Context(), result.Series)
				if err != nil {
					return err
				}
				renderOverview(out, overview)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&pick, "pick", 0, "Choose the Nth search result without prompting")
	return cmd
}

func describeOutcome(title string, outcome catalog.Outcome) string {
	switch outcome {
	case catalog.NotFound:
		return fmt.Sprintf("no series matches %q", title)
	case catalog.NoEpisodes:
		return fmt.Sprintf("%q has no episodes yet", title)
	case catalog.Canceled:
		return "selection canceled"
	default:
		return outcome.String()
	}
}

func renderOverview(out io.Writer, overview engine.Overview) {
	colorize := shouldColorize(out)
	printLines(out, renderSectionHeader(overview.Series.Name, colorize)...)

	rows := make([][]string, 0, len(overview.Seasons))
	for _, season := range overview.Seasons {
		rows = append(rows, []string{strconv.Itoa(season.Index + 1), season.Name, strconv.Itoa(season.Episodes)})
	}
	fmt.Fprintln(out, renderTable([]string{"#", "Season", "Episodes"}, rows, []columnAlignment{alignRight, alignLeft, alignRight}))

	if overview.HasLast {
		fmt.Fprintln(out, renderStatusLine("On disk through", statusInfo, overview.Last.Label(), colorize))
	} else {
		fmt.Fprintln(out, renderStatusLine("On disk", statusInfo, "nothing yet", colorize))
	}
	if next, ok := overview.Next(); ok {
		fmt.Fprintln(out, renderStatusLine("Next episode", statusOK, next.Label(), colorize))
	} else {
		fmt.Fprintln(out, renderStatusLine("Next episode", statusOK, "library is complete", colorize))
	}
}
