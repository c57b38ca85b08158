package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMimeTypeFor(t *testing.T) {
	assert.Equal(t, "application/pdf", MimeTypeFor("report.PDF"))
	assert.Equal(t, "text/plain", MimeTypeFor("notes.txt"))
	assert.Equal(t, "text/csv", MimeTypeFor("data.csv"))
	assert.Equal(t, "application/octet-stream", MimeTypeFor("archive.zip"))
	assert.Equal(t, "application/octet-stream", MimeTypeFor("README"))
}

func TestTextLoader(t *testing.T) {
	pages, err := LoaderFor("text/plain").Load([]byte("hello\nworld"))

	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, "hello\nworld", pages[0].Content)
	assert.Equal(t, 0, pages[0].Page)
}

func TestCSVLoaderRendersRecords(t *testing.T) {
	data := []byte("name,city\nAda,London\nGrace,Arlington\n")

	pages, err := LoaderFor("text/csv").Load(data)

	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Contains(t, pages[0].Content, "name: Ada\ncity: London")
	assert.Contains(t, pages[0].Content, "name: Grace\ncity: Arlington")
}

func TestCSVLoaderRaggedRows(t *testing.T) {
	data := []byte("name,city\nAda,London,extra\n")

	pages, err := LoaderFor("text/csv").Load(data)

	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Contains(t, pages[0].Content, "column_2: extra")
}

func TestUnknownMimeFallsBackToText(t *testing.T) {
	pages, err := LoaderFor("application/octet-stream").Load([]byte("raw bytes"))

	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, "raw bytes", pages[0].Content)
}
