package pipeline

import (
	"sync"
	"time"
)

// JobStatus represents the state of an async extraction ticket.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusPartial    JobStatus = "partial"
	StatusFailed     JobStatus = "failed"
)

// Job tracks one async extraction request from submission to result.
type Job struct {
	mu sync.Mutex

	ID       string    `json:"ticket_id"`
	Status   JobStatus `json:"status"`
	Filename string    `json:"filename"`

	MaxPages int    `json:"max_pages"`
	Model    string `json:"model,omitempty"`

	Result *PipelineResult `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Internal: not serialized.
	pdfData []byte
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.UpdatedAt = time.Now()
}

// SetResult records the pipeline outcome and the matching status.
func (j *Job) SetResult(res PipelineResult) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Result = &res
	switch res.Status {
	case ResultCompleted:
		j.Status = StatusCompleted
	case ResultPartial:
		j.Status = StatusPartial
	default:
		j.Status = StatusFailed
	}
	j.UpdatedAt = time.Now()
}

// Fail marks the job failed with a request-level error message.
func (j *Job) Fail(msg string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = StatusFailed
	j.Error = msg
	j.UpdatedAt = time.Now()
}

// SetPDFData sets the raw upload bytes for processing.
func (j *Job) SetPDFData(data []byte) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.pdfData = data
}

// PDFData returns the raw upload bytes.
func (j *Job) PDFData() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.pdfData
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID       string          `json:"ticket_id"`
	Status   JobStatus       `json:"status"`
	Filename string          `json:"filename"`
	Result   *PipelineResult `json:"result,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	snap := JobSnapshot{
		ID:       j.ID,
		Status:   j.Status,
		Filename: j.Filename,
		Error:    j.Error,
	}
	if j.Result != nil {
		res := *j.Result
		snap.Result = &res
	}
	return snap
}

// JobStore is a thread-safe in-memory ticket registry with TTL
// eviction. Finished tickets linger for polling until the TTL passes.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		if now.Sub(job.UpdatedAt) > s.ttl {
			delete(s.jobs, id)
		}
	}
}
