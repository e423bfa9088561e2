// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/fatih/color"

	"github.com/pdiddy/idp-client/internal/search"
	"github.com/pdiddy/idp-client/pkg/types"
)

var (
	colorGreen  = color.New(color.FgGreen, color.Bold)
	colorYellow = color.New(color.FgYellow)
	colorRed    = color.New(color.FgRed, color.Bold)
	colorCyan   = color.New(color.FgCyan)
	colorFaint  = color.New(color.Faint)
)

// statusText pads s to width and colours it by stage.
func statusText(s types.DocumentStatus, width int) string {
	text := fmt.Sprintf("%-*s", width, s)
	switch s {
	case types.StatusCompleted:
		return colorGreen.Sprint(text)
	case types.StatusFailed:
		return colorRed.Sprint(text)
	case types.StatusProcessing, types.StatusPending:
		return colorYellow.Sprint(text)
	case types.StatusUploaded:
		return colorCyan.Sprint(text)
	default:
		return colorFaint.Sprint(text)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printDocuments(w io.Writer, docs []types.Document) {
	if len(docs) == 0 {
		fmt.Fprintln(w, "No documents uploaded yet.")
		return
	}
	fmt.Fprintf(w, "%-6s  %-40s  %-10s  %-20s  %s\n", "ID", "FILENAME", "STATUS", "CLASSIFICATION", "UPLOADED")
	for _, d := range docs {
		created := "-"
		if !d.CreatedAt.IsZero() {
			created = d.CreatedAt.Local().Format("2006-01-02 15:04")
		}
		class := d.Classification
		if class == "" {
			class = "-"
		}
		fmt.Fprintf(w, "%-6d  %-40s  %s  %-20s  %s\n",
			d.ID, truncate(d.Filename, 40), statusText(d.Status, 10), truncate(class, 20), created)
	}
}

func printStats(w io.Writer, s types.DashboardStats) {
	fmt.Fprintf(w, "Total documents: %d\n", s.Total)

	var extra []types.DocumentStatus
	for st := range s.ByStatus {
		if !slices.Contains(types.KnownStatuses, st) {
			extra = append(extra, st)
		}
	}
	slices.Sort(extra)
	statuses := append(slices.Clone(types.KnownStatuses), extra...)
	for _, st := range statuses {
		fmt.Fprintf(w, "  %s %d\n", statusText(st, 11), s.Count(st))
	}
}

func summary(s types.DashboardStats) string {
	parts := []string{fmt.Sprintf("%d total", s.Total)}
	for _, st := range types.KnownStatuses {
		if n := s.Count(st); n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, st))
		}
	}
	return strings.Join(parts, ", ")
}

func printResults(w io.Writer, results []search.Ranked, names map[int64]string) {
	for _, r := range results {
		name := names[r.DocumentID]
		if name == "" {
			name = fmt.Sprintf("document %d", r.DocumentID)
		}
		fmt.Fprintf(w, "#%-3d %s  %s\n", r.Rank, colorCyan.Sprint(name), colorFaint.Sprintf("score %.3f", r.Score))
		if r.Classification != "" {
			fmt.Fprintf(w, "     classification: %s\n", r.Classification)
		}
		if snippet := strings.TrimSpace(r.Snippet); snippet != "" {
			fmt.Fprintf(w, "     %s\n", truncate(strings.Join(strings.Fields(snippet), " "), 160))
		}
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
