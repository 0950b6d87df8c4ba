// Package pipeline renders PDF pages with a bounded worker pool,
// extracts TOC fragments per page, and merges them into one ordered
// result, caching merged output per document.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/serodriguez/tocbuilder/internal/cache"
	"github.com/serodriguez/tocbuilder/internal/config"
	"github.com/serodriguez/tocbuilder/internal/pdf"
)

// ResponseCache persists merged results across requests and restarts.
// Satisfied by *cache.Store.
type ResponseCache interface {
	Get(ctx context.Context, key string) (cache.Entry, bool, error)
	Put(ctx context.Context, key, toc, model string) error
	Sweep(ctx context.Context) (int64, error)
}

// Request describes one extraction run.
type Request struct {
	PDFPath    string
	MaxPages   int    // 0 means the configured default
	Model      string // "" means the extractor's default
	OutputFile string // "" means OutputDir/table_of_contents.txt
}

// Orchestrator wires the worker pool, the response cache, and the
// aggregation step, and runs the async ticket queue.
type Orchestrator struct {
	cfg    config.Config
	source pdf.Source
	pool   *WorkerPool
	cache  ResponseCache
	jobs   *JobStore
	queue  chan *Job
	log    *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Number of queue consumers for async tickets. Each consumer runs one
// extraction at a time, so this also bounds how many documents fan out
// page jobs concurrently.
const jobWorkers = 2

func NewOrchestrator(cfg config.Config, source pdf.Source, pool *WorkerPool, rc ResponseCache, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:    cfg,
		source: source,
		pool:   pool,
		cache:  rc,
		jobs:   NewJobStore(cfg.JobTTL),
		queue:  make(chan *Job, cfg.MaxQueueSize),
		log:    log,
	}
}

// Process runs the full pipeline for one document:
// cache check, page fan-out, merge, cache write-back.
// Page-level failures land in the result; only an unopenable document
// or cancellation returns an error.
func (o *Orchestrator) Process(ctx context.Context, req Request) (PipelineResult, error) {
	doc, err := o.source.Open(req.PDFPath)
	if err != nil {
		return PipelineResult{Status: ResultFailed}, fmt.Errorf("open document: %w", err)
	}

	model := req.Model
	if model == "" {
		model = o.pool.extractor.Model()
	}

	pages := req.MaxPages
	if pages <= 0 {
		pages = o.cfg.DefaultMaxPages
	}
	pages = min(pages, doc.PageCount, o.cfg.MaxPages)

	log := o.log.With("fingerprint", doc.Fingerprint[:12], "pages", pages, "model", model)

	key := cache.Key(doc.Fingerprint, cache.PageRange(pages), model)
	if entry, ok, err := o.cache.Get(ctx, key); err != nil {
		// A broken cache degrades to a full recompute.
		log.Warn("cache read failed, recomputing", "error", err)
	} else if ok {
		log.Info("cache hit, skipping render")
		res := PipelineResult{
			Success:    true,
			Status:     ResultCompleted,
			TOC:        entry.TOC,
			CacheHit:   true,
			PagesTotal: pages,
		}
		o.saveOutput(&res, req.OutputFile, log)
		return res, nil
	}

	outcome := Merge(o.pool.Render(ctx, doc, pages, model))

	if ctx.Err() != nil {
		// Cancellation discards partial work: nothing is cached and
		// the run is a failure, not a partial success.
		return PipelineResult{Status: ResultFailed, PagesTotal: pages}, fmt.Errorf("extraction cancelled: %w", ctx.Err())
	}

	status := outcome.Status()
	res := PipelineResult{
		Success:    status != ResultFailed,
		Status:     status,
		TOC:        outcome.TOC,
		PageErrors: outcome.PageErrors,
		PagesTotal: pages,
	}

	if status == ResultFailed {
		log.Error("all pages failed", "errors", len(outcome.PageErrors))
		return res, nil
	}

	// Losing a cache write must not fail the request.
	if err := o.cache.Put(ctx, key, outcome.TOC, model); err != nil {
		log.Warn("cache write failed", "error", err)
	}

	o.saveOutput(&res, req.OutputFile, log)
	log.Info("extraction complete", "status", status, "failed_pages", len(outcome.PageErrors))
	return res, nil
}

func (o *Orchestrator) saveOutput(res *PipelineResult, outputFile string, log *slog.Logger) {
	path, err := WriteTOCFile(o.cfg.OutputDir, outputFile, res.TOC)
	if err != nil {
		log.Warn("toc file write failed", "error", err)
		return
	}
	res.OutputFile = path
}

// Start launches the async ticket consumers plus the job-store and
// cache maintenance tickers.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for range jobWorkers {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			for {
				select {
				case <-workerCtx.Done():
					return
				case job, ok := <-o.queue:
					if !ok {
						return
					}
					o.runJob(workerCtx, job)
				}
			}
		}()
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				o.jobs.Cleanup()
			}
		}
	}()

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(o.cfg.SweepEvery)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				evicted, err := o.cache.Sweep(workerCtx)
				if err != nil {
					o.log.Warn("cache sweep failed", "error", err)
				} else if evicted > 0 {
					o.log.Info("cache sweep", "evicted", evicted)
				}
			}
		}
	}()
}

// Stop gracefully shuts down the queue and maintenance goroutines.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	close(o.queue)
	o.wg.Wait()
}

// Submit queues an async ticket for processing.
func (o *Orchestrator) Submit(job *Job) error {
	o.jobs.Put(job)
	select {
	case o.queue <- job:
		return nil
	default:
		job.Fail("queue_full")
		return fmt.Errorf("job queue is full (%d)", o.cfg.MaxQueueSize)
	}
}

// GetJob returns a ticket by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}

// runJob materializes a ticket's upload to disk and runs Process.
func (o *Orchestrator) runJob(ctx context.Context, job *Job) {
	log := o.log.With("ticket_id", job.ID, "filename", job.Filename)
	job.SetStatus(StatusProcessing)

	tmp, err := os.CreateTemp("", "tocbuilder-upload-*.pdf")
	if err != nil {
		log.Error("temp file failed", "error", err)
		job.Fail("temp file: " + err.Error())
		return
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(job.PDFData()); err != nil {
		tmp.Close()
		log.Error("temp write failed", "error", err)
		job.Fail("temp write: " + err.Error())
		return
	}
	tmp.Close()

	res, err := o.Process(ctx, Request{
		PDFPath:  tmpPath,
		MaxPages: job.MaxPages,
		Model:    job.Model,
	})
	if err != nil {
		log.Error("processing failed", "error", err)
		job.Fail(err.Error())
		return
	}
	job.SetResult(res)
	log.Info("ticket done", "status", job.Snapshot().Status)
}
