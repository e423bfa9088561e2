// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package upload

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/idp-client/internal/api"
	"github.com/pdiddy/idp-client/pkg/types"
)

const minimalPDF = "%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF\n"

type fakeClient struct {
	calls    int
	err      error
	received []byte
	name     string
	mime     string
}

func (f *fakeClient) UploadDocument(_ context.Context, filename, contentType string, r io.Reader, onProgress api.ProgressFunc) (types.Document, error) {
	f.calls++
	f.name, f.mime = filename, contentType
	data, err := io.ReadAll(r)
	if err != nil {
		return types.Document{}, err
	}
	f.received = data
	if onProgress != nil {
		total := int64(len(data))
		onProgress(total/2, total)
		onProgress(total, total)
	}
	if f.err != nil {
		return types.Document{}, f.err
	}
	return types.Document{ID: 12, Filename: filename, Status: types.StatusUploaded}, nil
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestSelect_RejectsNonPDFWithoutNetwork(t *testing.T) {
	client := &fakeClient{}
	u := New(client)

	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"text file", "notes.txt", "hello"},
		{"pdf extension, wrong content", "fake.pdf", "PK\x03\x04 not a pdf"},
		{"pdf content, wrong extension", "report.doc", minimalPDF},
		{"empty pdf", "empty.pdf", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := u.Select(writeFile(t, tt.file, tt.content))
			assert.ErrorIs(t, err, ErrNotPDF)
			assert.ErrorIs(t, u.Err(), ErrNotPDF)
			_, ok := u.Selection()
			assert.False(t, ok, "rejection clears the selection")

			_, err = u.Upload(context.Background(), nil)
			assert.ErrorIs(t, err, ErrNoFile)
		})
	}
	assert.Zero(t, client.calls)
}

func TestSelect_ValidPDFClearsPreviousError(t *testing.T) {
	u := New(&fakeClient{})

	_, err := u.Select(writeFile(t, "notes.txt", "hello"))
	require.ErrorIs(t, err, ErrNotPDF)

	sel, err := u.Select(writeFile(t, "Invoice.PDF", minimalPDF))
	require.NoError(t, err)
	assert.NoError(t, u.Err())
	assert.Equal(t, "Invoice.PDF", sel.Name)
	assert.Equal(t, int64(len(minimalPDF)), sel.Size)
	assert.Equal(t, "application/pdf", sel.ContentType)
}

func TestSelect_MissingFile(t *testing.T) {
	u := New(&fakeClient{})
	_, err := u.Select(filepath.Join(t.TempDir(), "missing.pdf"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestUpload_SuccessResetsAndNotifies(t *testing.T) {
	client := &fakeClient{}
	u := New(client)

	var notified []types.Document
	u.OnUploaded(func(d types.Document) { notified = append(notified, d) })

	_, err := u.Select(writeFile(t, "a.pdf", minimalPDF))
	require.NoError(t, err)

	var percents []int
	doc, err := u.Upload(context.Background(), func(p int) { percents = append(percents, p) })
	require.NoError(t, err)

	assert.Equal(t, int64(12), doc.ID)
	assert.Equal(t, "a.pdf", client.name)
	assert.Equal(t, "application/pdf", client.mime)
	assert.Equal(t, minimalPDF, string(client.received))
	total := int64(len(minimalPDF))
	assert.Equal(t, []int{Percent(total/2, total), 100}, percents)
	assert.Equal(t, []types.Document{doc}, notified)

	_, ok := u.Selection()
	assert.False(t, ok)
	assert.NoError(t, u.Err())
}

func TestUpload_FailureKeepsSelection(t *testing.T) {
	boom := errors.New("Upload failed")
	client := &fakeClient{err: boom}
	u := New(client)

	var notified int
	u.OnUploaded(func(types.Document) { notified++ })

	_, err := u.Select(writeFile(t, "a.pdf", minimalPDF))
	require.NoError(t, err)

	_, err = u.Upload(context.Background(), nil)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, u.Err(), boom)
	assert.Zero(t, notified)

	sel, ok := u.Selection()
	require.True(t, ok, "selection kept for retry")
	assert.Equal(t, "a.pdf", sel.Name)

	client.err = nil
	_, err = u.Upload(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, client.calls)
	assert.Equal(t, 1, notified)
}

func TestPercent(t *testing.T) {
	tests := []struct {
		sent, total int64
		want        int
	}{
		{0, 100, 0},
		{1, 3, 33},
		{2, 3, 66},
		{100, 100, 100},
		{150, 100, 100},
		{0, 0, 0},
		{1, 0, 100},
		{-5, 10, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Percent(tt.sent, tt.total), "Percent(%d, %d)", tt.sent, tt.total)
	}
}

func TestIsPDF(t *testing.T) {
	assert.True(t, IsPDF("a.pdf", []byte(minimalPDF)))
	assert.True(t, IsPDF("A.Pdf", []byte("%PDF-1.7")))
	assert.False(t, IsPDF("a.pdf", []byte("%PD")))
	assert.False(t, IsPDF("a.txt", []byte(minimalPDF)))
	assert.False(t, IsPDF("a.pdf", nil))
}
