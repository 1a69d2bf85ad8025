package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/a-runebou/DD2480-CI-V/model"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// StatusReporter is notified of the pending and terminal state of a commit.
// Errors are logged by the pipeline and never affect the outcome.
type StatusReporter interface {
	Pending(ctx context.Context, sha, description string) error
	Success(ctx context.Context, sha, description string) error
	Failure(ctx context.Context, sha, description string) error
	Error(ctx context.Context, sha, description string) error
}

// RecordStore persists build outcomes keyed by commit.
type RecordStore interface {
	AddEntry(ctx context.Context, sha, branch string, outcome model.Outcome) error
	UpdateEntry(ctx context.Context, sha, branch string, outcome model.Outcome, description string) error
}

// TestCommand locates the test entry point of a checked out project.
// Wrapper is preferred when the file exists in the workspace root.
type TestCommand struct {
	Wrapper  string
	Fallback string
	Args     []string
}

var DefaultTestCommand = TestCommand{
	Wrapper:  "mvnw",
	Fallback: "mvn",
	Args:     []string{"test"},
}

func (c TestCommand) Resolve(dir string) (string, []string) {
	if len(c.Wrapper) > 0 {
		wrapper := filepath.Join(dir, c.Wrapper)
		if info, err := os.Stat(wrapper); err == nil && !info.IsDir() {
			return wrapper, c.Args
		}
	}
	return c.Fallback, c.Args
}

type Config struct {
	Command TestCommand
	// Timeout bounds a whole run when positive.
	Timeout time.Duration
}

// Result is the terminal classification of a run.
type Result struct {
	Outcome model.Outcome
	// Summary is the short description sent to the status reporter.
	Summary string
	// Output is the captured output of the test command, if it ran.
	Output string
}

// RecordDescription is the description persisted in the build record.
func (r Result) RecordDescription() string {
	if len(r.Output) == 0 {
		return r.Summary
	}
	return r.Summary + "\n" + r.Output
}

type Pipeline struct {
	workspaces WorkspaceProvider
	executor   CommandExecutor
	reporter   StatusReporter
	records    RecordStore
	config     Config
	log        *logrus.Logger
}

// New creates a pipeline. reporter and records may be nil, in which case
// the corresponding calls are skipped.
func New(workspaces WorkspaceProvider, executor CommandExecutor, reporter StatusReporter, records RecordStore, config Config, logger *logrus.Logger) *Pipeline {
	if len(config.Command.Wrapper) == 0 && len(config.Command.Fallback) == 0 {
		config.Command = DefaultTestCommand
	}
	if config.Command.Args == nil {
		config.Command.Args = DefaultTestCommand.Args
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Pipeline{
		workspaces: workspaces,
		executor:   executor,
		reporter:   reporter,
		records:    records,
		config:     config,
		log:        logger,
	}
}

// Run executes one job to completion. It never panics; every failure ends
// up in the returned Result.
func (p *Pipeline) Run(ctx context.Context, job model.Job) (result Result) {
	entry := p.log.WithFields(logrus.Fields{
		"run":    uuid.NewString(),
		"branch": job.Branch,
		"commit": job.ShortCommit(),
	})
	entry.Info("CI start")
	defer func() {
		entry.WithField("outcome", result.Outcome.String()).Info("CI end")
	}()

	if p.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.config.Timeout)
		defer cancel()
	}

	var workspace *Workspace
	defer p.cleanup(entry, &workspace)

	p.reportPending(ctx, entry, job)

	result = p.execute(ctx, entry, job, &workspace)

	p.reportTerminal(ctx, entry, job, result)

	return result
}

func (p *Pipeline) execute(ctx context.Context, entry *logrus.Entry, job model.Job, workspace **Workspace) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			entry.WithField("panic", r).Error("Pipeline panicked")
			result = Result{
				Outcome: model.OUTCOME_ERROR,
				Summary: fmt.Sprintf("internal error: %v", r),
			}
		}
	}()

	acquired, err := p.workspaces.Acquire(ctx, job.RepositoryURL, job.Branch, job.Commit)
	if err != nil {
		entry.WithError(err).Error("Checkout failed")
		return Result{Outcome: model.OUTCOME_ERROR, Summary: err.Error()}
	}
	*workspace = acquired

	name, args := p.config.Command.Resolve(acquired.Dir)
	entry.WithField("cmd", strings.TrimSpace(name+" "+strings.Join(args, " "))).Info("Running tests")

	execution, err := p.executor.Execute(ctx, acquired.Dir, name, args...)
	if err != nil {
		entry.WithError(err).Error("Test command could not run")
		return Result{Outcome: model.OUTCOME_ERROR, Summary: err.Error(), Output: execution.Output}
	}

	if execution.ExitCode == 0 {
		return Result{Outcome: model.OUTCOME_SUCCESS, Summary: "CI passed", Output: execution.Output}
	}
	return Result{
		Outcome: model.OUTCOME_FAILURE,
		Summary: fmt.Sprintf("CI failed (exit=%d)", execution.ExitCode),
		Output:  execution.Output,
	}
}

func (p *Pipeline) reportPending(ctx context.Context, entry *logrus.Entry, job model.Job) {
	if !p.hasCommit(entry, job) {
		return
	}
	if p.reporter != nil {
		safely(entry, "report pending status", func() error {
			return p.reporter.Pending(ctx, job.Commit, "CI running")
		})
	}
	if p.records != nil {
		safely(entry, "add build record", func() error {
			return p.records.AddEntry(ctx, job.Commit, job.Branch, model.OUTCOME_PENDING)
		})
	}
}

func (p *Pipeline) reportTerminal(ctx context.Context, entry *logrus.Entry, job model.Job, result Result) {
	if !p.hasCommit(entry, job) {
		return
	}
	// The run context may be past its deadline; terminal reports must still go out.
	ctx = context.WithoutCancel(ctx)

	if p.reporter != nil {
		safely(entry, "report "+result.Outcome.String()+" status", func() error {
			switch result.Outcome {
			case model.OUTCOME_SUCCESS:
				return p.reporter.Success(ctx, job.Commit, result.Summary)
			case model.OUTCOME_FAILURE:
				return p.reporter.Failure(ctx, job.Commit, result.Summary)
			default:
				return p.reporter.Error(ctx, job.Commit, result.Summary)
			}
		})
	}
	if p.records != nil {
		safely(entry, "update build record", func() error {
			return p.records.UpdateEntry(ctx, job.Commit, job.Branch, result.Outcome, result.RecordDescription())
		})
	}
}

func (p *Pipeline) hasCommit(entry *logrus.Entry, job model.Job) bool {
	if len(strings.TrimSpace(job.Commit)) == 0 {
		entry.Debug("No commit given, skipping status and record reporting")
		return false
	}
	return true
}

func (p *Pipeline) cleanup(entry *logrus.Entry, workspace **Workspace) {
	if *workspace == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			entry.WithField("panic", r).Error("Workspace cleanup panicked")
		}
	}()
	if err := (*workspace).Destroy(); err != nil {
		entry.WithError(err).WithField("dir", (*workspace).Dir).Error("Failed to remove workspace")
	}
}

// safely runs a reporting call and logs instead of propagating any error
// or panic it raises.
func safely(entry *logrus.Entry, action string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			entry.WithField("panic", r).Warnf("Failed to %s", action)
		}
	}()
	if err := fn(); err != nil {
		entry.WithError(err).Warnf("Failed to %s", action)
	}
}
