// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the backend is up and ready",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		h, err := env.client.Health(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%-8s %s %s\n", "Health:", colorGreen.Sprint(h.Status), h.Message)

		r, err := env.client.Ready(ctx)
		if err != nil {
			return err
		}
		state := colorGreen.Sprint("ready")
		if !r.Ready {
			state = colorRed.Sprint("not ready")
		}
		fmt.Fprintf(out, "%-8s %s\n", "Ready:", state)

		names := make([]string, 0, len(r.Checks))
		for name := range r.Checks {
			names = append(names, name)
		}
		slices.Sort(names)
		for _, name := range names {
			mark := colorGreen.Sprint("ok")
			if !r.Checks[name] {
				mark = colorRed.Sprint("down")
			}
			fmt.Fprintf(out, "  %-12s %s\n", name, mark)
		}
		for _, e := range r.Errors {
			fmt.Fprintf(out, "  %s\n", colorRed.Sprint(e))
		}

		if !r.Ready {
			return errors.New("backend is not ready")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
