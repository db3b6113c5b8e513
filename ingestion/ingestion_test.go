package ingestion_test

import (
	"errors"
	"strings"
	"testing"

	"docquery/ingestion"
)

func TestSplitTextRespectsSizeAndOverlap(t *testing.T) {
	text := strings.Repeat("a", 2500)
	splitter := ingestion.NewSplitter()

	chunks := splitter.SplitText(text)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if len(chunks[0]) != 1000 || len(chunks[1]) != 1000 {
		t.Fatalf("expected full chunks of 1000, got %d and %d", len(chunks[0]), len(chunks[1]))
	}
	if len(chunks[2]) != 900 {
		t.Fatalf("expected final chunk of 900, got %d", len(chunks[2]))
	}
}

func TestSplitTextOverlapCarriesContext(t *testing.T) {
	var b strings.Builder
	for i := 0; b.Len() < 1500; i++ {
		b.WriteString(strings.Repeat(string(rune('a'+i%26)), 10))
	}
	text := b.String()

	splitter := ingestion.CharacterSplitter{ChunkSize: 100, Overlap: 20}
	chunks := splitter.SplitText(text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	tail := chunks[0][len(chunks[0])-20:]
	if !strings.HasPrefix(chunks[1], tail) {
		t.Fatalf("expected chunk 2 to start with the last 20 chars of chunk 1")
	}
}

func TestSplitTextShortInputSingleChunk(t *testing.T) {
	splitter := ingestion.NewSplitter()
	chunks := splitter.SplitText("short document")
	if len(chunks) != 1 || chunks[0] != "short document" {
		t.Fatalf("expected the text back as one chunk, got %v", chunks)
	}
}

func TestSplitTextEmptyInput(t *testing.T) {
	if chunks := ingestion.NewSplitter().SplitText(""); chunks != nil {
		t.Fatalf("expected no chunks for empty input, got %v", chunks)
	}
}

func TestSplitTextHandlesMultibyteRunes(t *testing.T) {
	text := strings.Repeat("日本語テキスト", 100)
	splitter := ingestion.CharacterSplitter{ChunkSize: 50, Overlap: 10}

	chunks := splitter.SplitText(text)
	for i, chunk := range chunks {
		if n := len([]rune(chunk)); n > 50 {
			t.Fatalf("chunk %d has %d runes, expected at most 50", i, n)
		}
	}
	if strings.Join(chunks, "") == "" {
		t.Fatal("expected non-empty chunks")
	}
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		filename    string
		contentType string
		want        ingestion.Format
		wantErr     bool
	}{
		{"report.pdf", "", ingestion.FormatPDF, false},
		{"notes.txt", "", ingestion.FormatText, false},
		{"readme.md", "", ingestion.FormatText, false},
		{"upload.bin", "application/pdf", ingestion.FormatPDF, false},
		{"upload.bin", "text/plain; charset=utf-8", ingestion.FormatText, false},
		{"image.png", "image/png", "", true},
	}

	for _, tt := range tests {
		got, err := ingestion.DetectFormat(tt.filename, tt.contentType)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("%s: expected error", tt.filename)
			}
			var unsupported *ingestion.ErrUnsupportedFormat
			if !errors.As(err, &unsupported) {
				t.Fatalf("%s: expected ErrUnsupportedFormat, got %T", tt.filename, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s: %v", tt.filename, err)
		}
		if got != tt.want {
			t.Fatalf("%s: expected %q, got %q", tt.filename, tt.want, got)
		}
	}
}

func TestLoadTextNormalizesLineEndings(t *testing.T) {
	got := ingestion.LoadText([]byte("line one\r\nline two\r\n"))
	if got != "line one\nline two" {
		t.Fatalf("unexpected normalized text: %q", got)
	}
}
