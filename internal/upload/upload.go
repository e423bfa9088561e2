// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package upload implements the single-file upload flow: select a PDF,
// send it with progress feedback, and notify listeners on success.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/h2non/filetype"
	"github.com/ledongthuc/pdf"

	"github.com/pdiddy/idp-client/internal/api"
	"github.com/pdiddy/idp-client/pkg/types"
)

const pdfMIME = "application/pdf"

// headerSize is how many leading bytes filetype needs to sniff a type.
const headerSize = 261

var (
	ErrNoFile = errors.New("please select a file to upload")
	ErrNotPDF = errors.New("please select a PDF file")
)

// Client is the upload half of the API client.
type Client interface {
	UploadDocument(ctx context.Context, filename, contentType string, r io.Reader, onProgress api.ProgressFunc) (types.Document, error)
}

// Selection describes the file chosen for upload.
type Selection struct {
	Path        string
	Name        string
	Size        int64
	ContentType string

	// Pages is the PDF page count, or 0 when it could not be read.
	Pages int
}

// Uploader holds the current selection and the outcome of the last attempt.
// It is safe for concurrent use, but only one Upload should be in flight.
type Uploader struct {
	client Client

	mu        sync.Mutex
	selection *Selection
	err       error
	listeners []func(types.Document)
}

// New returns an Uploader sending through c.
func New(c Client) *Uploader {
	return &Uploader{client: c}
}

// OnUploaded registers fn to run after every successful upload.
func (u *Uploader) OnUploaded(fn func(types.Document)) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.listeners = append(u.listeners, fn)
}

// Select validates path as a PDF and makes it the current selection. A
// rejected file clears the selection and is recorded as the current error;
// an accepted file clears any previous error. No network call is made.
func (u *Uploader) Select(path string) (Selection, error) {
	sel, err := inspect(path)

	u.mu.Lock()
	defer u.mu.Unlock()
	if err != nil {
		u.selection, u.err = nil, err
		return Selection{}, err
	}
	u.selection, u.err = &sel, nil
	return sel, nil
}

// Selection returns the current selection.
func (u *Uploader) Selection() (Selection, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.selection == nil {
		return Selection{}, false
	}
	return *u.selection, true
}

// Err returns the error from the last Select or Upload, or nil.
func (u *Uploader) Err() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.err
}

// Upload sends the current selection. onProgress, if non-nil, receives the
// integer percentage sent. On success the selection is reset and listeners
// run; on failure the selection is kept so the same file can be retried.
func (u *Uploader) Upload(ctx context.Context, onProgress func(percent int)) (types.Document, error) {
	sel, ok := u.Selection()
	if !ok {
		u.setErr(ErrNoFile)
		return types.Document{}, ErrNoFile
	}

	f, err := os.Open(sel.Path)
	if err != nil {
		err = fmt.Errorf("opening %s: %w", sel.Name, err)
		u.setErr(err)
		return types.Document{}, err
	}
	defer f.Close()

	var progress api.ProgressFunc
	if onProgress != nil {
		last := -1
		progress = func(sent, total int64) {
			if p := Percent(sent, total); p != last {
				last = p
				onProgress(p)
			}
		}
	}

	doc, err := u.client.UploadDocument(ctx, sel.Name, sel.ContentType, f, progress)
	if err != nil {
		u.setErr(err)
		return types.Document{}, err
	}
	slog.Info("document uploaded", "document_id", doc.ID, "filename", doc.Filename, "bytes", sel.Size)

	u.mu.Lock()
	u.selection, u.err = nil, nil
	listeners := append([]func(types.Document){}, u.listeners...)
	u.mu.Unlock()

	for _, fn := range listeners {
		fn(doc)
	}
	return doc, nil
}

func (u *Uploader) setErr(err error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.err = err
}

// Percent maps bytes sent to an integer 0-100. An unknown or zero total
// counts as 1.
func Percent(sent, total int64) int {
	if total <= 0 {
		total = 1
	}
	p := sent * 100 / total
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return int(p)
}

// IsPDF reports whether a file named name whose content starts with head
// is a PDF. Both the extension and the magic number must agree.
func IsPDF(name string, head []byte) bool {
	if !strings.EqualFold(filepath.Ext(name), ".pdf") {
		return false
	}
	return filetype.Is(head, "pdf")
}

func inspect(path string) (Selection, error) {
	f, err := os.Open(path)
	if err != nil {
		return Selection{}, fmt.Errorf("opening %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return Selection{}, fmt.Errorf("reading %s: %w", filepath.Base(path), err)
	}
	if info.IsDir() {
		return Selection{}, fmt.Errorf("%s: %w", filepath.Base(path), ErrNotPDF)
	}

	head := make([]byte, headerSize)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return Selection{}, fmt.Errorf("reading %s: %w", filepath.Base(path), err)
	}
	if !IsPDF(path, head[:n]) {
		return Selection{}, fmt.Errorf("%s: %w", filepath.Base(path), ErrNotPDF)
	}

	return Selection{
		Path:        path,
		Name:        filepath.Base(path),
		Size:        info.Size(),
		ContentType: pdfMIME,
		Pages:       pageCount(f, info.Size()),
	}, nil
}

// pageCount reads the page tree. Malformed files report 0; the backend is
// the authority on whether a PDF is usable.
func pageCount(r io.ReaderAt, size int64) (pages int) {
	defer func() {
		if rec := recover(); rec != nil {
			pages = 0
		}
	}()
	rd, err := pdf.NewReader(r, size)
	if err != nil {
		return 0
	}
	return rd.NumPage()
}
