package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteTOCFile saves the merged TOC under outputPath, or under
// dir/table_of_contents.txt when outputPath is empty. The content is
// fenced so the dotted leader lines keep their monospace layout.
func WriteTOCFile(dir, outputPath, toc string) (string, error) {
	if outputPath == "" {
		outputPath = filepath.Join(dir, "table_of_contents.txt")
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	formatted := "```\n" + toc + "\n```"
	if err := os.WriteFile(outputPath, []byte(formatted), 0o644); err != nil {
		return "", fmt.Errorf("write toc file: %w", err)
	}
	return outputPath, nil
}
