package ingestion

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Format identifies a supported document format.
type Format string

const (
	FormatText Format = "text"
	FormatPDF  Format = "pdf"
)

// ErrUnsupportedFormat is returned for uploads that are neither plain
// text nor PDF.
type ErrUnsupportedFormat struct {
	Filename    string
	ContentType string
}

func (e *ErrUnsupportedFormat) Error() string {
	return fmt.Sprintf("unsupported document format: %s (%s)", e.Filename, e.ContentType)
}

// DetectFormat decides how to parse an upload from its filename
// extension, falling back to the declared content type.
func DetectFormat(filename, contentType string) (Format, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return FormatPDF, nil
	case ".txt", ".md", ".text", ".markdown":
		return FormatText, nil
	}

	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "application/pdf"):
		return FormatPDF, nil
	case strings.HasPrefix(ct, "text/"):
		return FormatText, nil
	}

	return "", &ErrUnsupportedFormat{Filename: filename, ContentType: contentType}
}

// Load extracts plain text from a document in the given format.
func Load(data []byte, format Format) (string, error) {
	switch format {
	case FormatPDF:
		return LoadPDF(data)
	case FormatText:
		return LoadText(data), nil
	default:
		return "", fmt.Errorf("unknown document format %q", format)
	}
}

// LoadText normalizes line endings in a plain-text document.
func LoadText(data []byte) string {
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	return strings.TrimSpace(text)
}

// LoadPDF extracts the plain text of every page of a PDF document.
func LoadPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	content, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(content); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}
