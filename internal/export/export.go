// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package export writes the document collection to YAML, JSON, or XLSX.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/idp-client/pkg/types"
)

// Format names an export encoding.
type Format string

const (
	YAML Format = "yaml"
	JSON Format = "json"
	XLSX Format = "xlsx"
)

const sheetName = "Documents"

// Header is the column order used by the XLSX export.
var Header = []string{"ID", "Filename", "Status", "Classification", "Content type", "Size", "Created"}

// Entry is one exported document.
type Entry struct {
	ID             int64  `json:"id" yaml:"id"`
	Filename       string `json:"filename" yaml:"filename"`
	Status         string `json:"status" yaml:"status"`
	Classification string `json:"classification,omitempty" yaml:"classification,omitempty"`
	ContentType    string `json:"content_type,omitempty" yaml:"content_type,omitempty"`
	Size           int64  `json:"size,omitempty" yaml:"size,omitempty"`
	CreatedAt      string `json:"created_at,omitempty" yaml:"created_at,omitempty"`
}

// ParseFormat accepts yaml, yml, json, or xlsx in any case.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yaml", "yml":
		return YAML, nil
	case "json":
		return JSON, nil
	case "xlsx":
		return XLSX, nil
	default:
		return "", fmt.Errorf("unsupported export format %q: use yaml, json, or xlsx", s)
	}
}

// FormatFromPath infers the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	return ParseFormat(strings.TrimPrefix(filepath.Ext(path), "."))
}

// Entries converts documents to export rows.
func Entries(docs []types.Document) []Entry {
	entries := make([]Entry, len(docs))
	for i, d := range docs {
		entries[i] = Entry{
			ID:             d.ID,
			Filename:       d.Filename,
			Status:         string(d.Status),
			Classification: d.Classification,
			ContentType:    d.ContentType,
			Size:           d.Size,
		}
		if !d.CreatedAt.IsZero() {
			entries[i].CreatedAt = d.CreatedAt.UTC().Format(time.RFC3339)
		}
	}
	return entries
}

// Write encodes docs to w in format f.
func Write(w io.Writer, f Format, docs []types.Document) error {
	entries := Entries(docs)
	switch f {
	case YAML:
		data, err := yaml.Marshal(entries)
		if err != nil {
			return fmt.Errorf("marshaling YAML: %w", err)
		}
		_, err = w.Write(data)
		return err
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(entries); err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		return nil
	case XLSX:
		return writeXLSX(w, entries)
	default:
		return fmt.Errorf("unsupported export format %q", f)
	}
}

// WriteFile writes docs to path, creating parent directories.
func WriteFile(path string, f Format, docs []types.Document) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating export directory: %w", err)
	}
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := Write(out, f, docs); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func writeXLSX(w io.Writer, entries []Entry) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}

	header := make([]any, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, e := range entries {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{e.ID, e.Filename, e.Status, e.Classification, e.ContentType, e.Size, e.CreatedAt}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}

	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freezing header: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("writing xlsx: %w", err)
	}
	return nil
}
