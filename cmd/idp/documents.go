// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/spf13/cobra"

	"github.com/pdiddy/idp-client/internal/doclist"
	"github.com/pdiddy/idp-client/internal/export"
	"github.com/pdiddy/idp-client/internal/poller"
	"github.com/pdiddy/idp-client/internal/upload"
	"github.com/pdiddy/idp-client/pkg/types"
)

var documentsCmd = &cobra.Command{
	Use:     "documents",
	Aliases: []string{"docs"},
	Short:   "List, upload, and track documents",
}

var documentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your documents",
	Args:  cobra.NoArgs,
	RunE:  runDocumentsList,
}

var documentsUploadCmd = &cobra.Command{
	Use:   "upload FILE...",
	Short: "Upload PDF files",
	Long: `Upload sends each PDF to the backend and prints the assigned document id.
Files that are not PDFs are rejected before any request is made.

With --watch, each uploaded document is polled until processing completes
or fails, and the document summary is refreshed as they finish.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDocumentsUpload,
}

var documentsStatusCmd = &cobra.Command{
	Use:   "status ID",
	Short: "Show a document's processing status",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentsStatus,
}

var documentsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the document list to YAML, JSON, or XLSX",
	Args:  cobra.NoArgs,
	RunE:  runDocumentsExport,
}

func init() {
	documentsListCmd.Flags().Bool("json", false, "output documents as JSON")

	documentsUploadCmd.Flags().Bool("watch", false, "poll each upload until processing finishes")

	documentsStatusCmd.Flags().Bool("watch", false, "poll until processing finishes")

	documentsExportCmd.Flags().String("format", "", "yaml, json, or xlsx (default: from --out extension)")
	documentsExportCmd.Flags().String("out", "documents.yaml", "output file, or - for stdout")

	documentsCmd.AddCommand(documentsListCmd, documentsUploadCmd, documentsStatusCmd, documentsExportCmd)
	rootCmd.AddCommand(documentsCmd)
}

func runDocumentsList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if _, err := requireSession(ctx); err != nil {
		return err
	}

	docs, err := doclist.New(env.client).Refresh(ctx)
	if err != nil {
		return checkAuth(ctx, err)
	}

	asJSON, _ := cmd.Flags().GetBool("json")
	if asJSON {
		return printJSON(cmd.OutOrStdout(), docs)
	}
	printDocuments(cmd.OutOrStdout(), docs)
	return nil
}

func runDocumentsUpload(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if _, err := requireSession(ctx); err != nil {
		return err
	}
	watch, _ := cmd.Flags().GetBool("watch")
	out := cmd.OutOrStdout()

	var (
		wg      sync.WaitGroup
		outMu   sync.Mutex
		refresh = make(chan struct{}, 1)
		failed  int
	)
	signalRefresh := func() {
		select {
		case refresh <- struct{}{}:
		default:
		}
	}

	// The list follows uploads and terminal poll results while watching.
	listCtx, stopList := context.WithCancel(ctx)
	listDone := make(chan struct{})
	if watch {
		list := doclist.New(env.client)
		go func() {
			defer close(listDone)
			list.Run(listCtx, refresh, func(docs []types.Document, err error) {
				outMu.Lock()
				defer outMu.Unlock()
				if err != nil {
					fmt.Fprintf(out, "Documents: %s\n", colorRed.Sprint(err))
					return
				}
				fmt.Fprintf(out, "Documents: %s\n", summary(doclist.Stats(docs)))
			})
		}()
	} else {
		close(listDone)
	}

	p := poller.New(env.client, env.cfg.Poll, env.metrics)
	up := upload.New(env.client)
	up.OnUploaded(func(types.Document) { signalRefresh() })
	if watch {
		up.OnUploaded(func(doc types.Document) {
			wg.Add(1)
			go func() {
				defer wg.Done()
				final, err := p.Watch(ctx, doc.ID, func(u poller.Update) {
					outMu.Lock()
					defer outMu.Unlock()
					printUpdate(out, doc.Filename, u)
				})
				if err == nil && final.Status.IsTerminal() {
					signalRefresh()
				}
				if err != nil && !errors.Is(err, context.Canceled) {
					outMu.Lock()
					fmt.Fprintf(out, "%s: %v\n", doc.Filename, err)
					outMu.Unlock()
				}
			}()
		})
	}

	for _, path := range args {
		if _, err := up.Select(path); err != nil {
			fmt.Fprintf(out, "skip %s: %v\n", path, err)
			failed++
			continue
		}
		sel, _ := up.Selection()

		doc, err := up.Upload(ctx, progressPrinter(out, &outMu, sel.Name))
		if err != nil {
			err = checkAuth(ctx, err)
			outMu.Lock()
			fmt.Fprintf(out, "\nupload %s failed: %v\n", sel.Name, err)
			outMu.Unlock()
			failed++
			continue
		}

		pages := ""
		if sel.Pages > 0 {
			pages = fmt.Sprintf(", %d pages", sel.Pages)
		}
		outMu.Lock()
		fmt.Fprintf(out, "\nUploaded %s as document %d (%s%s)\n", doc.Filename, doc.ID, humanSize(sel.Size), pages)
		outMu.Unlock()
	}

	wg.Wait()
	stopList()
	<-listDone

	if failed > 0 {
		return fmt.Errorf("%d of %d file(s) failed to upload", failed, len(args))
	}
	return nil
}

func progressPrinter(w io.Writer, mu *sync.Mutex, name string) func(int) {
	return func(percent int) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(w, "\rUploading %s %3d%%", name, percent)
	}
}

func printUpdate(w io.Writer, name string, u poller.Update) {
	switch {
	case u.Err != nil:
		fmt.Fprintf(w, "%s: status check failed (%d in a row): %v\n", name, u.Failures, u.Err)
	case u.Changed:
		line := fmt.Sprintf("%s: %s", name, statusText(u.Document.Status, 0))
		if u.Document.Classification != "" {
			line += "  classification: " + u.Document.Classification
		}
		fmt.Fprintln(w, line)
	}
}

func runDocumentsStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if _, err := requireSession(ctx); err != nil {
		return err
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return fmt.Errorf("invalid document id %q", args[0])
	}
	out := cmd.OutOrStdout()

	watch, _ := cmd.Flags().GetBool("watch")
	if !watch {
		doc, err := env.client.GetDocument(ctx, id)
		if err != nil {
			return checkAuth(ctx, err)
		}
		printDocuments(out, []types.Document{doc})
		return nil
	}

	name := fmt.Sprintf("document %d", id)
	_, err = poller.New(env.client, env.cfg.Poll, env.metrics).Watch(ctx, id, func(u poller.Update) {
		printUpdate(out, name, u)
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return checkAuth(ctx, err)
}

func runDocumentsExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if _, err := requireSession(ctx); err != nil {
		return err
	}
	path, _ := cmd.Flags().GetString("out")
	formatName, _ := cmd.Flags().GetString("format")

	var (
		format export.Format
		err    error
	)
	switch {
	case formatName != "":
		format, err = export.ParseFormat(formatName)
	case path == "-":
		format = export.YAML
	default:
		format, err = export.FormatFromPath(path)
	}
	if err != nil {
		return err
	}

	docs, err := env.client.ListDocuments(ctx)
	if err != nil {
		return checkAuth(ctx, err)
	}

	if path == "-" {
		return export.Write(cmd.OutOrStdout(), format, docs)
	}
	if err := export.WriteFile(path, format, docs); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d document(s) to %s\n", len(docs), path)
	return nil
}

func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGT"[exp])
}
