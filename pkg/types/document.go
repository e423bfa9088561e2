// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the idp client.
// Documents, sessions, and search results mirror records owned by the
// document processing backend; the client observes them and never mutates
// them except through the REST API.
package types

import "time"

// DocumentStatus is the backend-assigned processing stage of a document.
type DocumentStatus string

const (
	StatusUploaded   DocumentStatus = "uploaded"
	StatusProcessing DocumentStatus = "processing"
	StatusCompleted  DocumentStatus = "completed"
	StatusFailed     DocumentStatus = "failed"
	StatusPending    DocumentStatus = "pending"
	StatusSkipped    DocumentStatus = "skipped"
)

// KnownStatuses lists every status the backend is known to emit, in
// lifecycle order. Dashboard output uses this order.
var KnownStatuses = []DocumentStatus{
	StatusUploaded,
	StatusPending,
	StatusProcessing,
	StatusCompleted,
	StatusFailed,
	StatusSkipped,
}

// IsTerminal reports whether no further transitions are expected.
func (s DocumentStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Document is a processed file as reported by the backend.
type Document struct {
	// ID is the backend-assigned identifier.
	ID int64 `json:"id" yaml:"id"`

	// Filename is the original name of the uploaded file.
	Filename string `json:"filename" yaml:"filename"`

	// Size is the declared size in bytes, zero when the backend omits it.
	Size int64 `json:"size,omitempty" yaml:"size,omitempty"`

	// ContentType is the MIME type recorded at upload.
	ContentType string `json:"content_type" yaml:"content_type"`

	// CreatedAt is the upload timestamp.
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`

	// Status is the current processing stage.
	Status DocumentStatus `json:"status" yaml:"status"`

	// Classification is an opaque label attached by backend processing.
	Classification string `json:"classification,omitempty" yaml:"classification,omitempty"`
}

// DashboardStats counts documents per status.
type DashboardStats struct {
	Total    int                    `json:"total" yaml:"total"`
	ByStatus map[DocumentStatus]int `json:"by_status" yaml:"by_status"`
}

// Count returns the number of documents in status s.
func (d DashboardStats) Count(s DocumentStatus) int {
	return d.ByStatus[s]
}
