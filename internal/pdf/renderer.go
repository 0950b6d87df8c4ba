package pdf

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// Renderer rasterizes a single page of a document. Page indices are
// 0-based; implementations return PNG bytes.
type Renderer interface {
	Render(ctx context.Context, doc Document, pageIndex int) ([]byte, error)
}

// PdftoppmRenderer shells out to pdftoppm (poppler-utils), one
// invocation per page.
type PdftoppmRenderer struct {
	// DPI for rendering. Higher resolution improves what the vision
	// model can read from the page. Defaults to 150.
	DPI int
}

func (r PdftoppmRenderer) Render(ctx context.Context, doc Document, pageIndex int) ([]byte, error) {
	if pageIndex < 0 || pageIndex >= doc.PageCount {
		return nil, fmt.Errorf("page index %d out of range [0,%d)", pageIndex, doc.PageCount)
	}

	dpi := r.DPI
	if dpi <= 0 {
		dpi = 150
	}

	tmpDir, err := os.MkdirTemp("", "tocbuilder-page-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	outputPrefix := filepath.Join(tmpDir, "page")

	// pdftoppm pages are 1-indexed.
	pageStr := fmt.Sprintf("%d", pageIndex+1)
	cmd := exec.CommandContext(ctx, "pdftoppm",
		"-png",
		"-f", pageStr,
		"-l", pageStr,
		"-r", fmt.Sprintf("%d", dpi),
		"-singlefile",
		doc.Path,
		outputPrefix,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("pdftoppm failed: %w (output: %s)", err, string(output))
	}

	data, err := os.ReadFile(outputPrefix + ".png")
	if err != nil {
		return nil, fmt.Errorf("read rendered image: %w", err)
	}
	return data, nil
}
