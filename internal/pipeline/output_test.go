package pipeline

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteTOCFile_DefaultPath(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteTOCFile(dir, "", "some toc")
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if path != filepath.Join(dir, "table_of_contents.txt") {
		t.Errorf("unexpected default path %q", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)
	if !strings.HasPrefix(content, "```\n") || !strings.HasSuffix(content, "\n```") {
		t.Errorf("expected fenced content, got %q", content)
	}
	if !strings.Contains(content, "some toc") {
		t.Errorf("toc body missing from %q", content)
	}
}

func TestWriteTOCFile_ExplicitPathCreatesDirs(t *testing.T) {
	target := filepath.Join(t.TempDir(), "nested", "out.txt")
	path, err := WriteTOCFile("unused", target, "toc")
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if path != target {
		t.Errorf("expected %q, got %q", target, path)
	}
	if _, err := os.Stat(target); err != nil {
		t.Errorf("expected file at %q: %v", target, err)
	}
}
