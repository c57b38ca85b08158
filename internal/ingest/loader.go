package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Page is a unit of extracted document text with its source page
// number (0 for formats without pages).
type Page struct {
	Content string
	Page    int
}

// Loader extracts text from raw document bytes.
type Loader interface {
	Load(data []byte) ([]Page, error)
}

// LoaderFor picks a loader by MIME type, defaulting to plain text for
// anything unrecognised.
func LoaderFor(mimeType string) Loader {
	switch strings.ToLower(mimeType) {
	case "application/pdf":
		return pdfLoader{}
	case "text/csv", "application/csv":
		return csvLoader{}
	case "text/plain":
		return textLoader{}
	default:
		return textLoader{}
	}
}

// MimeTypeFor maps a file extension to a MIME type the loaders handle.
func MimeTypeFor(fileName string) string {
	idx := strings.LastIndex(fileName, ".")
	if idx < 0 {
		return "application/octet-stream"
	}
	switch strings.ToLower(fileName[idx+1:]) {
	case "pdf":
		return "application/pdf"
	case "txt":
		return "text/plain"
	case "csv":
		return "text/csv"
	default:
		return "application/octet-stream"
	}
}

type pdfLoader struct{}

func (pdfLoader) Load(data []byte) ([]Page, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}

	var pages []Page
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		pages = append(pages, Page{Content: text, Page: i - 1})
	}
	return pages, nil
}

type textLoader struct{}

func (textLoader) Load(data []byte) ([]Page, error) {
	return []Page{{Content: string(data), Page: 0}}, nil
}

type csvLoader struct{}

// Load renders each CSV record as one "column: value" block per line,
// so rows survive chunking as coherent passages.
func (csvLoader) Load(data []byte) ([]Page, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read CSV header: %w", err)
	}

	var sb strings.Builder
	row := 0
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read CSV row %d: %w", row, err)
		}
		for i, field := range record {
			name := fmt.Sprintf("column_%d", i)
			if i < len(header) {
				name = header[i]
			}
			fmt.Fprintf(&sb, "%s: %s\n", name, field)
		}
		sb.WriteString("\n")
		row++
	}

	return []Page{{Content: strings.TrimSuffix(sb.String(), "\n"), Page: 0}}, nil
}
