package pipeline

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"
)

type mockTimeProvider struct {
	currentTime time.Time
	mutex       sync.Mutex
}

func (mtp *mockTimeProvider) Now() time.Time {
	mtp.mutex.Lock()
	defer mtp.mutex.Unlock()
	return mtp.currentTime
}

func (mtp *mockTimeProvider) Add(d time.Duration) {
	mtp.mutex.Lock()
	mtp.currentTime = mtp.currentTime.Add(d)
	mtp.mutex.Unlock()
}

func TestConcurrentRunStoreOperations(t *testing.T) {
	startTime := time.Now()
	mtp := &mockTimeProvider{currentTime: startTime}
	timeProvider = mtp
	defer func() { timeProvider = &realTimeProvider{} }()

	threshold := 5 * time.Minute
	cleanupInterval := 100 * time.Millisecond // More frequent cleanup for testing

	StartRunStoreCleanup(threshold, cleanupInterval)
	defer StopRunStoreCleanup()

	var wg sync.WaitGroup
	for i := 0; i < 1000; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			addRandomRun(mtp.Now())
		}()
	}

	// Simulate time passing while more runs are added
	for i := 0; i < 10; i++ {
		mtp.Add(cleanupInterval)
		time.Sleep(10 * time.Millisecond) // Allow cleanup goroutine to run

		for j := 0; j < 100; j++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				addRandomRun(mtp.Now())
			}()
		}
	}

	wg.Wait()

	// Final cleanup
	mtp.Add(threshold + time.Second)
	performCleanup(threshold)

	RunStore.RLock()
	defer RunStore.RUnlock()
	for _, run := range RunStore.Runs {
		completedAt, _ := time.Parse(time.RFC3339, run.CompletedAt)
		if mtp.Now().Sub(completedAt) > threshold {
			t.Errorf("Found expired run that should have been cleaned up: %v", run)
		}
	}
}

func TestCompleteRunMarksTerminalState(t *testing.T) {
	id := "run_complete_test"
	AddRun(id, &RunResult{
		RunID:       id,
		Status:      StatusStarted,
		StartTime:   timeProvider.Now().Unix(),
		SubmittedAt: timeProvider.Now().Format(time.RFC3339),
	})

	CompleteRun(id, newTestArtifact(), nil)

	run, ok := GetRun(id)
	if !ok {
		t.Fatal("run disappeared from store")
	}
	if run.Status != StatusCompleted {
		t.Errorf("expected status %s, got %s", StatusCompleted, run.Status)
	}
	if run.Artifact == nil {
		t.Error("completed run should carry its artifact")
	}
	if run.CompletedAt == "" {
		t.Error("completed run should carry a completion timestamp")
	}
}

// Status polls encode a snapshot, so encoding must stay safe while the
// background run is being completed.
func TestStatusPollDuringCompletion(t *testing.T) {
	id := "run_poll_during_completion"
	AddRun(id, &RunResult{
		RunID:       id,
		Status:      StatusStarted,
		StartTime:   timeProvider.Now().Unix(),
		SubmittedAt: timeProvider.Now().Format(time.RFC3339),
	})

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			run, ok := GetRun(id)
			if !ok {
				t.Error("run disappeared while polling")
				return
			}
			if _, err := json.Marshal(run); err != nil {
				t.Errorf("encoding polled run: %v", err)
				return
			}
		}
	}()

	CompleteRun(id, newTestArtifact(), nil)
	close(stop)
	wg.Wait()

	run, ok := GetRun(id)
	if !ok {
		t.Fatal("run disappeared from store")
	}
	if run.Status != StatusCompleted {
		t.Errorf("expected status %s, got %s", StatusCompleted, run.Status)
	}
}

func addRandomRun(now time.Time) {
	id := fmt.Sprintf("run_%d", rand.Int())
	completedAt := now.Add(-time.Duration(rand.Intn(600)) * time.Second)
	result := &RunResult{
		RunID:       id,
		Status:      StatusCompleted,
		CompletedAt: completedAt.Format(time.RFC3339),
	}
	AddRun(id, result)
}
