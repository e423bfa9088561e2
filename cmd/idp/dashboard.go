// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/idp-client/internal/doclist"
	"github.com/pdiddy/idp-client/internal/search"
	"github.com/pdiddy/idp-client/pkg/types"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Show document statistics and the document list",
	Long: `Dashboard prints how many documents are in each processing stage,
followed by the document list. With --search, only documents matching the
semantic query are listed, in relevance order.`,
	Args: cobra.NoArgs,
	RunE: runDashboard,
}

func init() {
	dashboardCmd.Flags().Bool("json", false, "output statistics and documents as JSON")
	dashboardCmd.Flags().String("search", "", "only list documents matching this query")
	dashboardCmd.Flags().Int("limit", 0, "result limit for --search: 5, 10, 20, or 50")

	rootCmd.AddCommand(dashboardCmd)
}

func runDashboard(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	mgr, err := requireSession(ctx)
	if err != nil {
		return err
	}

	docs, err := doclist.New(env.client).Refresh(ctx)
	if err != nil {
		return checkAuth(ctx, err)
	}
	stats := doclist.Stats(docs)

	listed := docs
	query, _ := cmd.Flags().GetString("search")
	if query != "" {
		limit, _ := cmd.Flags().GetInt("limit")
		results, err := search.New(env.client).Search(ctx, query, searchLimit(limit))
		if err != nil {
			return checkAuth(ctx, err)
		}
		ids := make([]int64, len(results))
		for i, r := range results {
			ids[i] = r.DocumentID
		}
		listed = doclist.Filter(docs, ids)
	}

	out := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return printJSON(out, struct {
			Stats     types.DashboardStats `json:"stats"`
			Documents []types.Document     `json:"documents"`
		}{stats, listed})
	}

	fmt.Fprintf(out, "Signed in as %s\n\n", mgr.User().Username)
	printStats(out, stats)
	fmt.Fprintln(out)
	if query != "" {
		fmt.Fprintf(out, "Documents matching %q:\n", query)
	}
	printDocuments(out, listed)
	return nil
}
