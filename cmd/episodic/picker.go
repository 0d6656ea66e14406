package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"episodic/internal/catalog"
	"episodic/internal/textutil"
)

// promptPicker asks the user to choose among ambiguous search results.
type promptPicker struct {
	in  *bufio.Reader
	out io.Writer
	// preset selects a 1-based tile without prompting when > 0.
	preset int
}

func newPromptPicker(in io.Reader, out io.Writer, preset int) *promptPicker {
	return &promptPicker{in: bufio.NewReader(in), out: out, preset: preset}
}

func (p *promptPicker) Pick(ctx context.Context, query string, tiles []catalog.Tile) (int, bool, error) {
	if len(tiles) == 0 {
		return 0, false, nil
	}
	if p.preset > 0 {
		return p.preset - 1, p.preset <= len(tiles), nil
	}

	titles := make([]string, len(tiles))
	for i, tile := range tiles {
		titles[i] = tile.Title
	}
	best, score := textutil.BestMatch(query, titles)

	rows := make([][]string, 0, len(tiles))
	for i, tile := range tiles {
		marker := ""
		if i == best && score > 0 {
			marker = "*"
		}
		rows = append(rows, []string{strconv.Itoa(i + 1), tile.Title, marker})
	}
	fmt.Fprintf(p.out, "Several series match %q:\n", query)
	fmt.Fprintln(p.out, renderTable([]string{"#", "Title", "Closest"}, rows, []columnAlignment{alignRight, alignWrap, alignLeft}))
	fmt.Fprint(p.out, "Select a series (blank to cancel): ")

	line, err := readLine(ctx, p.in)
	if err != nil {
		return 0, false, nil
	}
	index, ok := parseSelection(line, len(tiles))
	return index, ok, nil
}

// parseSelection turns a 1-based answer into a 0-based index. Blank, "q" and
// anything out of range cancel.
func parseSelection(answer string, count int) (int, bool) {
	answer = strings.TrimSpace(answer)
	if answer == "" || strings.EqualFold(answer, "q") {
		return 0, false
	}
	n, err := strconv.Atoi(answer)
	if err != nil || n < 1 || n > count {
		return 0, false
	}
	return n - 1, true
}

func readLine(ctx context.Context, in *bufio.Reader) (string, error) {
	type result struct {
		line string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		line, err := in.ReadString('\n')
		if err == io.EOF && line != "" {
			err = nil
		}
		ch <- result{line, err}
	}()
	select {
	case r := <-ch:
		return r.line, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
