package pipeline

import (
	"context"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func requireTool(t *testing.T, name string) {
	t.Helper()
	if _, err := exec.LookPath(name); err != nil {
		t.Skipf("%s not available, skipping", name)
	}
}

func TestProcessExecutor_ExitCodes(t *testing.T) {
	requireTool(t, "sh")

	tests := []struct {
		name     string
		script   string
		exitCode int
		output   string
	}{
		{"Zero exit", "echo hello", 0, "hello"},
		{"Non-zero exit is a result", "echo broken; exit 3", 3, "broken"},
		{"Stderr is captured", "echo oops >&2; exit 1", 1, "oops"},
	}

	executor := NewProcessExecutor(testLogger())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := executor.Execute(context.Background(), t.TempDir(), "sh", "-c", tt.script)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.ExitCode != tt.exitCode {
				t.Errorf("expected exit code %d, got %d", tt.exitCode, result.ExitCode)
			}
			if !strings.Contains(result.Output, tt.output) {
				t.Errorf("expected output to contain %q, got %q", tt.output, result.Output)
			}
		})
	}
}

func TestProcessExecutor_MergesStreams(t *testing.T) {
	requireTool(t, "sh")

	executor := NewProcessExecutor(testLogger())
	result, err := executor.Execute(context.Background(), t.TempDir(), "sh", "-c", "echo out; echo err >&2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result.Output, "out") || !strings.Contains(result.Output, "err") {
		t.Errorf("expected both streams in output, got %q", result.Output)
	}
}

func TestProcessExecutor_WorkingDirectory(t *testing.T) {
	requireTool(t, "pwd")

	dir := t.TempDir()
	executor := NewProcessExecutor(testLogger())
	result, err := executor.Execute(context.Background(), dir, "pwd")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resolved, _ := filepath.EvalSymlinks(dir)
	got := strings.TrimSpace(result.Output)
	if got != dir && got != resolved {
		t.Errorf("expected working directory %s, got %s", dir, got)
	}
}

func TestProcessExecutor_DisablesTerminalPrompt(t *testing.T) {
	requireTool(t, "sh")

	executor := NewProcessExecutor(testLogger())
	result, err := executor.Execute(context.Background(), t.TempDir(), "sh", "-c", "echo $GIT_TERMINAL_PROMPT")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(result.Output) != "0" {
		t.Errorf("expected GIT_TERMINAL_PROMPT=0, got %q", result.Output)
	}
}

func TestProcessExecutor_MissingExecutable(t *testing.T) {
	executor := NewProcessExecutor(testLogger())
	_, err := executor.Execute(context.Background(), t.TempDir(), "definitely-not-a-real-binary-4711")
	if err == nil {
		t.Fatal("expected an error for a missing executable")
	}
	if !IsInfrastructureError(err) {
		t.Errorf("expected InfrastructureError, got %T: %v", err, err)
	}
}

func TestProcessExecutor_InvalidWorkingDirectory(t *testing.T) {
	requireTool(t, "sh")

	executor := NewProcessExecutor(testLogger())
	_, err := executor.Execute(context.Background(), filepath.Join(t.TempDir(), "missing"), "sh", "-c", "true")
	if !IsInfrastructureError(err) {
		t.Errorf("expected InfrastructureError, got %v", err)
	}
}

func TestProcessExecutor_Timeout(t *testing.T) {
	requireTool(t, "sleep")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	executor := NewProcessExecutor(testLogger())
	start := time.Now()
	_, err := executor.Execute(ctx, t.TempDir(), "sleep", "10")
	if !IsInfrastructureError(err) {
		t.Errorf("expected InfrastructureError, got %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Error("expected the process to be killed at the deadline")
	}
}
