package pipeline

import (
	"log"
	"sync"
	"time"

	"github.com/serisow/lecahier/pipeline_type"
)

type RunStatus string

const (
	StatusStarted   RunStatus = "started"
	StatusCompleted RunStatus = "completed"
	StatusFailed    RunStatus = "failed"
)

// RunResult tracks one asynchronous processing run so callers can poll its
// status while the pipeline works. Artifact and Failure are populated when
// the run reaches a terminal status.
type RunResult struct {
	RunID         string                          `json:"run_id"`
	DocumentTitle string                          `json:"document_title"`
	Status        RunStatus                       `json:"status"`
	StartTime     int64                           `json:"start_time"`
	EndTime       int64                           `json:"end_time,omitempty"`
	ErrorMessage  string                          `json:"error_message,omitempty"`
	SubmittedAt   string                          `json:"submitted_at"`
	CompletedAt   string                          `json:"completed_at,omitempty"`
	Artifact      *pipeline_type.NotebookArtifact `json:"artifact,omitempty"`
	Failure       *pipeline_type.FailureReport    `json:"failure,omitempty"`
}

// StartRunStoreCleanup starts a goroutine that periodically cleans up old run results.
// - threshold: Duration after which run results are considered expired.
// - cleanupInterval: How often the cleanup process runs.

var (
	RunStore = struct {
		sync.RWMutex
		Runs map[string]*RunResult
	}{
		Runs: make(map[string]*RunResult),
	}
	cleanupTicker *time.Ticker
	stopCleanup   chan struct{}
)

func StartRunStoreCleanup(threshold time.Duration, cleanupInterval time.Duration) {
	stopCleanup = make(chan struct{})
	cleanupTicker = time.NewTicker(cleanupInterval)

	go func() {
		for {
			select {
			case <-cleanupTicker.C:
				performCleanup(threshold)
			case <-stopCleanup:
				cleanupTicker.Stop()
				return
			}
		}
	}()
}

func StopRunStoreCleanup() {
	if stopCleanup != nil {
		close(stopCleanup)
	}
}

func performCleanup(threshold time.Duration) {
	now := timeProvider.Now()
	RunStore.Lock()
	defer RunStore.Unlock()

	for runID, runResult := range RunStore.Runs {
		if runResult.CompletedAt != "" {
			completedAt, err := time.Parse(time.RFC3339, runResult.CompletedAt)
			if err == nil && now.Sub(completedAt) > threshold {
				delete(RunStore.Runs, runID)
				log.Printf("Deleted run result %s due to expiration", runID)
			}
		}
	}
}

func AddRun(runID string, result *RunResult) {
	RunStore.Lock()
	defer RunStore.Unlock()
	RunStore.Runs[runID] = result
}

// GetRun returns a snapshot of the run so callers can read or encode it
// without racing CompleteRun.
func GetRun(runID string) (RunResult, bool) {
	RunStore.RLock()
	defer RunStore.RUnlock()
	result, exists := RunStore.Runs[runID]
	if !exists {
		return RunResult{}, false
	}
	return *result, true
}

// CompleteRun marks a run terminal in one critical section so pollers never
// observe a half-updated record.
func CompleteRun(runID string, artifact *pipeline_type.NotebookArtifact, failure *pipeline_type.FailureReport) {
	now := timeProvider.Now()
	RunStore.Lock()
	defer RunStore.Unlock()

	result, exists := RunStore.Runs[runID]
	if !exists {
		return
	}
	result.EndTime = now.Unix()
	result.CompletedAt = now.Format(time.RFC3339)
	if failure != nil {
		result.Status = StatusFailed
		result.ErrorMessage = failure.Cause
		result.Failure = failure
		return
	}
	result.Status = StatusCompleted
	result.Artifact = artifact
}
