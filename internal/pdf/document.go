// Package pdf opens documents and renders their pages to images.
package pdf

import (
	"crypto/sha256"
	"fmt"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// Document describes an opened PDF. The fingerprint is a stable hash
// of the file bytes and identifies the document across requests and
// process restarts.
type Document struct {
	Path        string
	Fingerprint string
	PageCount   int
}

// Source opens documents by path.
type Source interface {
	Open(path string) (Document, error)
}

// FileSource opens PDFs from the local filesystem.
type FileSource struct{}

// Open reads the file, computes its content fingerprint, and asks
// pdfcpu for the page count. Any failure here is a document-level
// failure: nothing downstream runs for an unopenable PDF.
func (FileSource) Open(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("read pdf: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return Document{}, fmt.Errorf("open pdf: %w", err)
	}
	pageCount, err := api.PageCount(f, nil)
	f.Close()
	if err != nil {
		return Document{}, fmt.Errorf("page count: %w", err)
	}
	if pageCount <= 0 {
		return Document{}, fmt.Errorf("pdf has no pages")
	}

	return Document{
		Path:        path,
		Fingerprint: FingerprintHex(data),
		PageCount:   pageCount,
	}, nil
}

// FingerprintHex computes SHA-256 of content and returns hex string.
func FingerprintHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
