package pdf

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFingerprintHex_Consistency(t *testing.T) {
	data := []byte("hello world")
	h1 := FingerprintHex(data)
	h2 := FingerprintHex(data)
	if h1 != h2 {
		t.Errorf("expected identical fingerprints, got %q and %q", h1, h2)
	}
	// SHA-256 of "hello world" is well-known.
	want := "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"
	if h1 != want {
		t.Errorf("expected fingerprint %q, got %q", want, h1)
	}
}

func TestFingerprintHex_DifferentInputs(t *testing.T) {
	h1 := FingerprintHex([]byte("aaa"))
	h2 := FingerprintHex([]byte("bbb"))
	if h1 == h2 {
		t.Error("expected different fingerprints for different inputs")
	}
}

func TestFileSource_OpenMissing(t *testing.T) {
	_, err := FileSource{}.Open(filepath.Join(t.TempDir(), "nope.pdf"))
	if err == nil {
		t.Error("expected error for missing file")
	}
}

func TestFileSource_OpenNotAPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.pdf")
	if err := os.WriteFile(path, []byte("not a pdf"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := FileSource{}.Open(path)
	if err == nil {
		t.Error("expected error for invalid pdf content")
	}
}

func TestPdftoppmRenderer_PageOutOfRange(t *testing.T) {
	doc := Document{Path: "whatever.pdf", PageCount: 3}
	if _, err := (PdftoppmRenderer{}).Render(t.Context(), doc, 3); err == nil {
		t.Error("expected error for page index beyond page count")
	}
	if _, err := (PdftoppmRenderer{}).Render(t.Context(), doc, -1); err == nil {
		t.Error("expected error for negative page index")
	}
}
