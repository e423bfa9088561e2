// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/idp-client/internal/doclist"
	"github.com/pdiddy/idp-client/internal/search"
)

var searchCmd = &cobra.Command{
	Use:   "search QUERY...",
	Short: "Semantic search over your processed documents",
	Long: `Search submits a free-text query and prints matching documents ranked by
relevance. Matches are cross-referenced against your document list so each
result shows its filename.

--limit selects how many results to return: 5, 10, 20, or 50.`,
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().Int("limit", 0, "number of results: 5, 10, 20, or 50 (default from search.limit, 10)")
	searchCmd.Flags().Bool("json", false, "output results as JSON")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if _, err := requireSession(ctx); err != nil {
		return err
	}

	limit, _ := cmd.Flags().GetInt("limit")
	limit = searchLimit(limit)

	names := make(map[int64]string)
	s := search.New(env.client)
	s.OnResults(func(ids []int64) {
		if len(ids) == 0 {
			return
		}
		docs, err := env.client.ListDocuments(ctx)
		if err != nil {
			slog.Debug("cross-referencing search results", "error", err)
			return
		}
		for _, d := range doclist.Filter(docs, ids) {
			names[d.ID] = d.Filename
		}
	})

	results, err := s.Search(ctx, strings.Join(args, " "), limit)
	if err != nil {
		return checkAuth(ctx, err)
	}

	out := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return printJSON(out, results)
	}
	if msg := s.EmptyMessage(); msg != "" {
		fmt.Fprintln(out, msg)
		return nil
	}
	fmt.Fprintf(out, "Results for %q (%d):\n", s.Query(), len(results))
	printResults(out, results, names)
	return nil
}

// searchLimit falls back to the configured default when no --limit is given.
func searchLimit(flag int) int {
	if flag != 0 {
		return flag
	}
	return env.cfg.Search.Limit
}
