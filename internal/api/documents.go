// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/idp-client/pkg/types"
)

// documentPayload is the wire shape of a document. Backend versions differ
// in which status field they populate and in how they encode the
// classification, so every response goes through toDocument.
type documentPayload struct {
	ID              int64           `json:"id"`
	Filename        string          `json:"filename"`
	Size            *int64          `json:"size"`
	FileSize        *int64          `json:"file_size"`
	ContentType     string          `json:"content_type"`
	CreatedAt       string          `json:"created_at"`
	Status          string          `json:"status"`
	EmbeddingStatus string          `json:"embedding_status"`
	Classification  json.RawMessage `json:"classification"`
}

// createdAtLayouts covers RFC 3339 and the naive ISO timestamps FastAPI
// emits for timezone-less columns.
var createdAtLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
}

func (p documentPayload) toDocument() types.Document {
	d := types.Document{
		ID:             p.ID,
		Filename:       p.Filename,
		ContentType:    p.ContentType,
		Status:         resolveStatus(p.Status, p.EmbeddingStatus),
		Classification: labelString(p.Classification),
	}
	switch {
	case p.Size != nil:
		d.Size = *p.Size
	case p.FileSize != nil:
		d.Size = *p.FileSize
	}
	for _, layout := range createdAtLayouts {
		if t, err := time.Parse(layout, p.CreatedAt); err == nil {
			d.CreatedAt = t
			break
		}
	}
	return d
}

// resolveStatus applies the fallback chain: primary status field, then the
// legacy embedding_status field, then "uploaded".
func resolveStatus(primary, legacy string) types.DocumentStatus {
	for _, s := range []string{primary, legacy} {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			return types.DocumentStatus(s)
		}
	}
	return types.StatusUploaded
}

// labelString renders an opaque classification value. Strings are returned
// unquoted; objects with a label-like field use that field; anything else
// is returned as compact JSON.
func labelString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err == nil {
		for _, key := range []string{"label", "category", "type", "class"} {
			if v, ok := obj[key].(string); ok && v != "" {
				return v
			}
		}
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

// ListDocuments returns every document visible to the current user.
func (c *Client) ListDocuments(ctx context.Context) ([]types.Document, error) {
	var out []documentPayload
	if err := c.getJSON(ctx, "documents.list", "/documents", &out); err != nil {
		return nil, err
	}
	docs := make([]types.Document, len(out))
	for i, p := range out {
		docs[i] = p.toDocument()
	}
	return docs, nil
}

// GetDocument returns one document's current state, including status.
func (c *Client) GetDocument(ctx context.Context, id int64) (types.Document, error) {
	var out documentPayload
	path := "/documents/" + strconv.FormatInt(id, 10)
	if err := c.getJSON(ctx, "documents.get", path, &out); err != nil {
		return types.Document{}, err
	}
	return out.toDocument(), nil
}

// ProgressFunc receives the bytes sent so far and the total body size.
type ProgressFunc func(sent, total int64)

// UploadDocument sends r as the multipart field "file" to
// POST /documents/upload. contentType is the declared MIME type of the
// file. onProgress may be nil.
func (c *Client) UploadDocument(ctx context.Context, filename, contentType string, r io.Reader, onProgress ProgressFunc) (types.Document, error) {
	if c.uploadLimiter != nil {
		if err := c.uploadLimiter.Wait(ctx); err != nil {
			return types.Document{}, fmt.Errorf("waiting for upload slot: %w", err)
		}
	}

	body, boundary, err := multipartBody(filename, contentType, r)
	if err != nil {
		return types.Document{}, err
	}
	total := int64(len(body))

	req, err := c.newRequest(ctx, http.MethodPost, "/documents/upload",
		newProgressReader(body, onProgress), "multipart/form-data; boundary="+boundary)
	if err != nil {
		return types.Document{}, err
	}
	req.ContentLength = total
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(newProgressReader(body, onProgress)), nil
	}

	var out documentPayload
	if err := c.send(ctx, "documents.upload", req, &out); err != nil {
		return types.Document{}, err
	}
	c.metrics.UploadBytes(total)
	return out.toDocument(), nil
}

func multipartBody(filename, contentType string, r io.Reader) ([]byte, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)

	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("creating multipart part: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, "", fmt.Errorf("reading upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("closing multipart body: %w", err)
	}
	return buf.Bytes(), mw.Boundary(), nil
}

// progressReader reports cumulative bytes read from an in-memory body.
type progressReader struct {
	r     *bytes.Reader
	total int64
	sent  int64
	fn    ProgressFunc
}

func newProgressReader(body []byte, fn ProgressFunc) *progressReader {
	return &progressReader{r: bytes.NewReader(body), total: int64(len(body)), fn: fn}
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.sent += int64(n)
		if p.fn != nil {
			p.fn(p.sent, p.total)
		}
	}
	return n, err
}
