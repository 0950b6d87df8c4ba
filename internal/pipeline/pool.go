package pipeline

import (
	"context"
	"log/slog"
	"sync"

	"github.com/serodriguez/tocbuilder/internal/pdf"
)

// Extractor turns a rendered page image into a TOC fragment.
type Extractor interface {
	ExtractPage(ctx context.Context, image []byte, model string) (string, error)
	Model() string
}

// WorkerPool fans page jobs out to a bounded number of goroutines.
// Each job renders its page and forwards the image to the extractor;
// a failed page is reported in its PageResult and never aborts
// siblings.
type WorkerPool struct {
	renderer  pdf.Renderer
	extractor Extractor
	workers   int
	log       *slog.Logger
}

func NewWorkerPool(renderer pdf.Renderer, extractor Extractor, workers int, log *slog.Logger) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	return &WorkerPool{
		renderer:  renderer,
		extractor: extractor,
		workers:   workers,
		log:       log,
	}
}

// Render processes pages [0, pages) of doc and streams exactly one
// PageResult per page. The caller bounds pages before calling; the
// pool never schedules an index at or beyond the bound. On
// cancellation, undispatched pages report the context error and the
// channel closes only after every in-flight job has returned, so no
// goroutine outlives the request.
func (p *WorkerPool) Render(ctx context.Context, doc pdf.Document, pages int, model string) <-chan PageResult {
	results := make(chan PageResult, pages)
	sem := make(chan struct{}, p.workers)

	go func() {
		var wg sync.WaitGroup
		defer func() {
			wg.Wait()
			close(results)
		}()

		for i := 0; i < pages; i++ {
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				for j := i; j < pages; j++ {
					results <- PageResult{PageIndex: j, Stage: StageRender, Err: ctx.Err()}
				}
				return
			}

			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				defer func() { <-sem }()
				results <- p.processPage(ctx, doc, idx, model)
			}(i)
		}
	}()

	return results
}

func (p *WorkerPool) processPage(ctx context.Context, doc pdf.Document, idx int, model string) PageResult {
	if err := ctx.Err(); err != nil {
		return PageResult{PageIndex: idx, Stage: StageRender, Err: err}
	}

	image, err := p.renderer.Render(ctx, doc, idx)
	if err != nil {
		p.log.Warn("page render failed", "page", idx, "error", err)
		return PageResult{PageIndex: idx, Stage: StageRender, Err: err}
	}

	fragment, err := extractWithRetry(ctx, p.extractor, image, model)
	if err != nil {
		p.log.Warn("page extraction failed", "page", idx, "error", err)
		return PageResult{PageIndex: idx, Stage: StageExtract, Err: err}
	}

	return PageResult{PageIndex: idx, Fragment: fragment}
}
