// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/idp-client/pkg/types"
)

func sampleDocs() []types.Document {
	return []types.Document{
		{
			ID: 1, Filename: "invoice.pdf", Status: types.StatusCompleted, Classification: "invoice",
			ContentType: "application/pdf", Size: 2048,
			CreatedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		},
		{ID: 2, Filename: "contract.pdf", Status: types.StatusProcessing},
	}
}

func TestWrite_YAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, YAML, sampleDocs()))

	var got []Entry
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "invoice", got[0].Classification)
	assert.Equal(t, "2026-03-01T10:00:00Z", got[0].CreatedAt)
	assert.Equal(t, "processing", got[1].Status)
	assert.Empty(t, got[1].CreatedAt)
}

func TestWrite_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, JSON, sampleDocs()))

	var got []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "invoice.pdf", got[0]["filename"])
	assert.NotContains(t, got[1], "classification")
}

func TestWriteFile_XLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "documents.xlsx")
	require.NoError(t, WriteFile(path, XLSX, sampleDocs()))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, Header, rows[0])
	assert.Equal(t, []string{"1", "invoice.pdf", "completed", "invoice", "application/pdf", "2048", "2026-03-01T10:00:00Z"}, rows[1])
	assert.Equal(t, "contract.pdf", rows[2][1])
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"yaml", YAML, false},
		{"YML", YAML, false},
		{" json ", JSON, false},
		{"xlsx", XLSX, false},
		{"csv", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	f, err := FormatFromPath("/tmp/docs.xlsx")
	require.NoError(t, err)
	assert.Equal(t, XLSX, f)
	_, err = FormatFromPath("/tmp/docs")
	assert.Error(t, err)
}
