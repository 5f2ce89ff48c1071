// Package ingest builds the index artifact from a corpus directory.
package ingest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// ExtractFile reads the document at path and returns its plain text.
// PDF is extracted page by page; everything else is treated as UTF-8 text.
func ExtractFile(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return extractPDF(content)
	default:
		return extractPlain(content)
	}
}

func extractPDF(content []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open PDF: %w", err)
	}
	var buf bytes.Buffer
	numPages := r.NumPage()
	for i := 0; i < numPages; i++ {
		page := r.Page(i + 1)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("extract page %d: %w", i+1, err)
		}
		buf.WriteString(text)
		if i < numPages-1 {
			buf.WriteByte('\n')
		}
	}
	return buf.String(), nil
}

// extractPlain validates UTF-8, replacing invalid sequences with the
// replacement character.
func extractPlain(content []byte) (string, error) {
	if !utf8.Valid(content) {
		content = []byte(strings.ToValidUTF8(string(content), "�"))
	}
	return string(content), nil
}
