package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/a-runebou/DD2480-CI-V/model"
)

// BlockingRunner records concurrency and blocks every run until release
// is closed.
type BlockingRunner struct {
	release chan struct{}
	started chan model.Job

	running    int32
	maxRunning int32
	finished   int32
}

func newBlockingRunner() *BlockingRunner {
	return &BlockingRunner{
		release: make(chan struct{}),
		started: make(chan model.Job, 64),
	}
}

func (r *BlockingRunner) Run(ctx context.Context, job model.Job) Result {
	current := atomic.AddInt32(&r.running, 1)
	for {
		max := atomic.LoadInt32(&r.maxRunning)
		if current <= max || atomic.CompareAndSwapInt32(&r.maxRunning, max, current) {
			break
		}
	}
	r.started <- job
	<-r.release
	atomic.AddInt32(&r.running, -1)
	atomic.AddInt32(&r.finished, 1)
	return Result{Outcome: model.OUTCOME_SUCCESS}
}

type RunnerFunc func(ctx context.Context, job model.Job) Result

func (f RunnerFunc) Run(ctx context.Context, job model.Job) Result {
	return f(ctx, job)
}

func jobFor(commit string) model.Job {
	return model.Job{RepositoryURL: "https://example.test/r.git", Branch: "main", Commit: commit}
}

func waitStarted(t *testing.T, runner *BlockingRunner, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-runner.started:
		case <-time.After(5 * time.Second):
			t.Fatalf("only %d of %d runs started", i, n)
		}
	}
}

func TestDispatcher_RunsSubmittedJob(t *testing.T) {
	done := make(chan model.Job, 1)
	dispatcher := NewDispatcher(RunnerFunc(func(ctx context.Context, job model.Job) Result {
		done <- job
		return Result{Outcome: model.OUTCOME_SUCCESS}
	}), 1, 1, testLogger())
	defer dispatcher.Close(context.Background())

	if err := dispatcher.Submit(jobFor("abc1234")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case job := <-done:
		if job.Commit != "abc1234" {
			t.Errorf("expected commit abc1234, got %s", job.Commit)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("job was never run")
	}
}

func TestDispatcher_LimitsConcurrency(t *testing.T) {
	runner := newBlockingRunner()
	dispatcher := NewDispatcher(runner, 2, 8, testLogger())

	for i := 0; i < 6; i++ {
		if err := dispatcher.Submit(jobFor(string(rune('a' + i)))); err != nil {
			t.Fatalf("unexpected error on submit %d: %v", i, err)
		}
	}

	waitStarted(t, runner, 2)
	// Give a misbehaving dispatcher the chance to start a third run.
	time.Sleep(50 * time.Millisecond)
	if running := atomic.LoadInt32(&runner.running); running != 2 {
		t.Errorf("expected 2 concurrent runs, got %d", running)
	}

	close(runner.release)
	if err := dispatcher.Close(context.Background()); err != nil {
		t.Fatalf("unexpected error on close: %v", err)
	}
	if max := atomic.LoadInt32(&runner.maxRunning); max > 2 {
		t.Errorf("expected at most 2 concurrent runs, observed %d", max)
	}
	if finished := atomic.LoadInt32(&runner.finished); finished != 6 {
		t.Errorf("expected 6 finished runs, got %d", finished)
	}
}

func TestDispatcher_QueueFull(t *testing.T) {
	runner := newBlockingRunner()
	dispatcher := NewDispatcher(runner, 1, 1, testLogger())

	if err := dispatcher.Submit(jobFor("first")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	waitStarted(t, runner, 1)

	if err := dispatcher.Submit(jobFor("queued")); err != nil {
		t.Fatalf("expected room for one queued job, got %v", err)
	}
	if err := dispatcher.Submit(jobFor("rejected")); !errors.Is(err, ErrQueueFull) {
		t.Errorf("expected ErrQueueFull, got %v", err)
	}

	close(runner.release)
	dispatcher.Close(context.Background())
}

func TestDispatcher_SubmitAfterClose(t *testing.T) {
	dispatcher := NewDispatcher(RunnerFunc(func(ctx context.Context, job model.Job) Result {
		return Result{}
	}), 1, 1, testLogger())

	if err := dispatcher.Close(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := dispatcher.Submit(jobFor("late")); !errors.Is(err, ErrDispatcherClosed) {
		t.Errorf("expected ErrDispatcherClosed, got %v", err)
	}
	// Closing twice is harmless.
	if err := dispatcher.Close(context.Background()); err != nil {
		t.Errorf("unexpected error on second close: %v", err)
	}
}

func TestDispatcher_CloseDrainsQueue(t *testing.T) {
	var mu sync.Mutex
	var ran []string
	dispatcher := NewDispatcher(RunnerFunc(func(ctx context.Context, job model.Job) Result {
		time.Sleep(5 * time.Millisecond)
		mu.Lock()
		ran = append(ran, job.Commit)
		mu.Unlock()
		return Result{}
	}), 1, 4, testLogger())

	for _, commit := range []string{"one", "two", "three"} {
		if err := dispatcher.Submit(jobFor(commit)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if err := dispatcher.Close(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(ran) != 3 {
		t.Errorf("expected all queued jobs to run before Close returned, ran %v", ran)
	}
}

func TestDispatcher_CloseHonoursContext(t *testing.T) {
	runner := newBlockingRunner()
	dispatcher := NewDispatcher(runner, 1, 1, testLogger())
	defer close(runner.release)

	if err := dispatcher.Submit(jobFor("stuck")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	waitStarted(t, runner, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := dispatcher.Close(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected context.DeadlineExceeded, got %v", err)
	}
}

func TestDispatcher_SurvivesPanickingRunner(t *testing.T) {
	var calls int32
	done := make(chan struct{})
	dispatcher := NewDispatcher(RunnerFunc(func(ctx context.Context, job model.Job) Result {
		if atomic.AddInt32(&calls, 1) == 1 {
			panic("boom")
		}
		close(done)
		return Result{}
	}), 1, 2, testLogger())
	defer dispatcher.Close(context.Background())

	dispatcher.Submit(jobFor("panics"))
	dispatcher.Submit(jobFor("runs"))

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not survive a panicking run")
	}
}

func TestDispatcher_RunsPipeline(t *testing.T) {
	provider, _ := fakeCheckout(t)
	reporter := &RecordingReporter{}
	pipeline := New(provider, exitWith(0, "ok"), reporter, nil, Config{}, testLogger())

	dispatcher := NewDispatcher(pipeline, 1, 1, testLogger())
	if err := dispatcher.Submit(testJob); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := dispatcher.Close(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	assertStates(t, reporter, "pending", "success")
}
