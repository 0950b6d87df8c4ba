package pipeline

import (
	"testing"
	"time"
)

func TestJob_SetResultMapsStatus(t *testing.T) {
	tests := []struct {
		result ResultStatus
		want   JobStatus
	}{
		{ResultCompleted, StatusCompleted},
		{ResultPartial, StatusPartial},
		{ResultFailed, StatusFailed},
	}
	for _, tt := range tests {
		job := &Job{ID: "j", Status: StatusProcessing, UpdatedAt: time.Now()}
		job.SetResult(PipelineResult{Status: tt.result})
		if job.Snapshot().Status != tt.want {
			t.Errorf("result %s: expected job status %s, got %s", tt.result, tt.want, job.Snapshot().Status)
		}
	}
}

func TestJob_SnapshotCopiesResult(t *testing.T) {
	job := &Job{ID: "j", UpdatedAt: time.Now()}
	job.SetResult(PipelineResult{Status: ResultCompleted, TOC: "toc"})

	snap := job.Snapshot()
	snap.Result.TOC = "mutated"

	if job.Snapshot().Result.TOC != "toc" {
		t.Error("snapshot must not share the result with the job")
	}
}

func TestJob_PDFData(t *testing.T) {
	job := &Job{ID: "j"}
	data := []byte("%PDF-1.4")
	job.SetPDFData(data)
	if string(job.PDFData()) != string(data) {
		t.Error("pdf data round trip failed")
	}
}

func TestJobStore_PutGet(t *testing.T) {
	store := NewJobStore(time.Hour)
	store.Put(&Job{ID: "t1", UpdatedAt: time.Now()})

	if store.Get("t1") == nil {
		t.Fatal("expected to get job back")
	}
	if store.Get("missing") != nil {
		t.Error("expected nil for missing ticket")
	}
}

func TestJobStore_TTLCleanup(t *testing.T) {
	store := NewJobStore(50 * time.Millisecond)

	store.Put(&Job{ID: "old", UpdatedAt: time.Now()})
	time.Sleep(100 * time.Millisecond)
	store.Put(&Job{ID: "new", UpdatedAt: time.Now()})

	store.Cleanup()

	if store.Get("old") != nil {
		t.Error("expected expired ticket to be cleaned up")
	}
	if store.Get("new") == nil {
		t.Error("expected fresh ticket to survive cleanup")
	}
}
