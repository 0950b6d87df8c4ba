package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/serodriguez/tocbuilder/internal/pipeline"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":      "ok",
		"queue_depth": s.orchestrator.QueueDepth(),
	})
}

// handleExtract runs the pipeline synchronously on an uploaded PDF and
// returns the merged table of contents.
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	data, filename, params, ok := s.readUpload(w, r)
	if !ok {
		return
	}
	s.log.Info("sync extraction", "filename", filename, "bytes", len(data))

	path, cleanup, err := writeTempPDF(data)
	if err != nil {
		jsonError(w, "failed to stage upload", http.StatusInternalServerError)
		return
	}
	defer cleanup()

	res, err := s.orchestrator.Process(r.Context(), pipeline.Request{
		PDFPath:    path,
		MaxPages:   params.maxPages,
		Model:      params.model,
		OutputFile: params.outputFile,
	})
	s.writeResult(w, res, err)
}

// handleExtractFromURL downloads a PDF and runs the pipeline on it.
func (s *Server) handleExtractFromURL(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PDFURL     string `json:"pdf_url"`
		MaxPages   int    `json:"max_pages"`
		Model      string `json:"model"`
		OutputFile string `json:"output_file"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.PDFURL == "" {
		jsonError(w, "pdf_url is required", http.StatusBadRequest)
		return
	}

	data, err := s.downloadPDF(r.Context(), req.PDFURL)
	if err != nil {
		jsonError(w, "failed to download pdf: "+err.Error(), http.StatusBadGateway)
		return
	}

	path, cleanup, err := writeTempPDF(data)
	if err != nil {
		jsonError(w, "failed to stage download", http.StatusInternalServerError)
		return
	}
	defer cleanup()

	res, err := s.orchestrator.Process(r.Context(), pipeline.Request{
		PDFPath:    path,
		MaxPages:   req.MaxPages,
		Model:      req.Model,
		OutputFile: req.OutputFile,
	})
	s.writeResult(w, res, err)
}

// handleSubmitJob enqueues an async extraction and returns a ticket.
func (s *Server) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	data, filename, params, ok := s.readUpload(w, r)
	if !ok {
		return
	}

	now := time.Now()
	job := &pipeline.Job{
		ID:        uuid.New().String(),
		Status:    pipeline.StatusQueued,
		Filename:  filename,
		MaxPages:  params.maxPages,
		Model:     params.model,
		CreatedAt: now,
		UpdatedAt: now,
	}
	job.SetPDFData(data)

	if err := s.orchestrator.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{
		"ticket_id": job.ID,
		"status":    job.Status,
		"poll_url":  fmt.Sprintf("/api/v1/toc/jobs/%s", job.ID),
	})
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "ticketID")
	job := s.orchestrator.GetJob(ticketID)
	if job == nil {
		jsonError(w, "ticket not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(job.Snapshot())
}

// extractParams are the optional form fields shared by the sync and
// async upload endpoints.
type extractParams struct {
	maxPages   int
	model      string
	outputFile string
}

// readUpload parses a multipart PDF upload, enforcing the size cap and
// extension check. On failure it writes the error response itself.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, string, extractParams, bool) {
	var params extractParams

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return nil, "", params, false
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return nil, "", params, false
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if !strings.EqualFold(filepath.Ext(filename), ".pdf") {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return nil, "", params, false
	}

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return nil, "", params, false
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return nil, "", params, false
	}

	if v := r.FormValue("max_pages"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			jsonError(w, "max_pages must be a positive integer", http.StatusBadRequest)
			return nil, "", params, false
		}
		params.maxPages = n
	}
	params.model = r.FormValue("model")
	params.outputFile = r.FormValue("output_file")

	return data, filename, params, true
}

// writeResult maps a pipeline outcome onto an HTTP response.
func (s *Server) writeResult(w http.ResponseWriter, res pipeline.PipelineResult, err error) {
	if err != nil {
		if errors.Is(err, context.Canceled) {
			// Client went away; there is nobody to answer.
			return
		}
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	code := http.StatusOK
	if res.Status == pipeline.ResultFailed {
		code = http.StatusBadGateway
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(res)
}

// downloadPDF fetches a remote PDF, capped at the upload size limit.
func (s *Server) downloadPDF(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, s.cfg.MaxUploadBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return nil, fmt.Errorf("pdf exceeds max size (%d bytes)", s.cfg.MaxUploadBytes)
	}
	return data, nil
}

func writeTempPDF(data []byte) (string, func(), error) {
	f, err := os.CreateTemp("", "tocbuilder-upload-*.pdf")
	if err != nil {
		return "", nil, err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", nil, err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", nil, err
	}
	return f.Name(), func() { os.Remove(f.Name()) }, nil
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
