package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/keshon/searchpanel/internal/provider/youtube"
	"github.com/keshon/searchpanel/internal/search"
	"github.com/keshon/searchpanel/pkg/util"
)

type queryResult struct {
	out search.Outcome
	err error
}

func newSearchCmd(a *app) *cobra.Command {
	var (
		provider string
		workers  int
	)

	c := &cobra.Command{
		Use:   "search <query>...",
		Short: "Run one or more searches and print the normalized results",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, queries []string) error {
			s, err := a.searcher(provider)
			if err != nil {
				return err
			}

			results := make([]queryResult, len(queries))
			err = util.Parallel(cmd.Context(), queries, workers, func(ctx context.Context, i int, q string) error {
				ctx, cancel := context.WithTimeout(ctx, a.cfg.LookupTimeout)
				defer cancel()

				out, err := s.Search(ctx, q)
				a.log.WithField("query", q).WithError(err).Debug("lookup finished")
				results[i] = queryResult{out: out, err: err}
				return nil
			})
			if err != nil {
				return err
			}

			failed := 0
			for i, q := range queries {
				if results[i].err != nil {
					failed++
				}
				printResult(cmd, q, results[i])
			}
			if failed == len(queries) {
				return fmt.Errorf("all %d searches failed", failed)
			}
			return nil
		},
	}

	c.Flags().StringVarP(&provider, "provider", "p", youtube.Name, "provider to search with (youtube, playlist)")
	c.Flags().IntVarP(&workers, "workers", "w", 4, "searches to run at once")
	return c
}

func printResult(cmd *cobra.Command, query string, r queryResult) {
	header := "== " + query
	if r.out.Query != "" && !strings.EqualFold(r.out.Query, query) {
		header += fmt.Sprintf(" (showing results for %q)", r.out.Query)
	}
	cmd.Println(header)

	switch {
	case r.err != nil:
		cmd.Printf("   error: %v\n", r.err)
	case len(r.out.Results) == 0:
		cmd.Println("   no results")
	}
	for i, res := range r.out.Results {
		line := fmt.Sprintf("%2d. %s", i+1, res.Label())
		if res.Duration != "" {
			line += " [" + res.Duration + "]"
		}
		if res.Author != "" {
			line += " " + res.Author
		}
		cmd.Println(line)
		cmd.Println("    " + res.URL)
	}
}
