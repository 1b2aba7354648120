// Package dispatch runs external tools as retryable, memoized units of work
// whose output goes to per-task log files.
package dispatch

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/carbocation/ensemblefit/logging"
	"github.com/carbocation/pfx"
)

// DefaultRetries is how many attempts a task gets before it is failed.
const DefaultRetries = 3

// StateRecorder persists task state transitions.
type StateRecorder interface {
	RecordState(taskID, state string, attempt int, message string) error
}

// TaskError is the terminal failure of a task after every attempt failed.
type TaskError struct {
	TaskID   string
	Attempts int
	Stderr   string
	Err      error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("%s failed after %d attempt(s): %v (see %s)", e.TaskID, e.Attempts, e.Err, e.Stderr)
}

func (e *TaskError) Unwrap() error {
	return e.Err
}

// Outcome describes how a task resolved.
type Outcome struct {
	Task     *Task
	Cached   bool
	Attempts int
}

// Dispatcher runs tasks. The zero value is not usable; Registry, Cache and
// LogDir must be set.
type Dispatcher struct {
	Registry Registry
	Cache    *Cache
	LogDir   string

	// Retries is the total number of attempts per task. Values below 1 mean
	// DefaultRetries.
	Retries    int
	RetryDelay time.Duration

	// States, if set, receives every state transition.
	States StateRecorder
}

func (d *Dispatcher) attemptLimit() int {
	if d.Retries < 1 {
		return DefaultRetries
	}

	return d.Retries
}

// LogPaths are the files that capture a task's stdout and stderr.
func (d *Dispatcher) LogPaths(t *Task) (stdout, stderr string) {
	base := filepath.Join(d.LogDir, t.ID())
	return base + ".stdout", base + ".stderr"
}

// Run executes t unless a memoized run with the same inputs still has its
// outputs on disk. A failed attempt, including one that exits cleanly
// without writing every output, is retried; after the last attempt Run
// returns a *TaskError.
func (d *Dispatcher) Run(ctx context.Context, t *Task) (Outcome, error) {
	log := logging.New("dispatch").With("task", t.ID())

	inv, err := d.Registry.Lookup(t.Tool)
	if err != nil {
		d.transition(t, Failed, 0, err)
		return Outcome{Task: t}, err
	}

	key, err := d.Cache.Key(t)
	if err != nil {
		d.transition(t, Failed, 0, err)
		return Outcome{Task: t}, err
	}

	entry, hit, err := d.Cache.Lookup(key)
	if err != nil {
		log.Warn("memo lookup failed, running task", "error", err)
	}
	if hit && outputsExist(entry.Outputs) {
		log.Info("reusing memoized result", "key", key[:12])
		d.transition(t, Succeeded, 0, nil)
		return Outcome{Task: t, Cached: true}, nil
	}
	if hit {
		d.Cache.Forget(key)
	}

	stdoutPath, stderrPath := d.LogPaths(t)
	if err := os.MkdirAll(d.LogDir, 0o755); err != nil {
		d.transition(t, Failed, 0, err)
		return Outcome{Task: t}, pfx.Err(err)
	}

	maxAttempts, attempts := d.attemptLimit(), 0
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		attempts = attempt
		d.transition(t, Running, attempt, nil)

		err = d.attempt(ctx, inv, t, attempt, maxAttempts, stdoutPath, stderrPath)
		if err == nil {
			break
		}

		if attempt == maxAttempts {
			// Ongoing failure at maxAttempts is a terminal error
			terr := &TaskError{TaskID: t.ID(), Attempts: attempt, Stderr: stderrPath, Err: err}
			d.transition(t, Failed, attempt, terr)
			log.Error("task failed", "attempts", attempt, "error", err)
			return Outcome{Task: t, Attempts: attempt}, terr
		}

		log.Warn("attempt failed, retrying", "attempt", attempt, "of", maxAttempts, "error", err, "delay", d.RetryDelay)
		if d.RetryDelay > 0 {
			time.Sleep(d.RetryDelay)
		}
	}

	if err := d.Cache.Record(Entry{Key: key, TaskID: t.ID(), Outputs: t.Outputs}); err != nil {
		log.Warn("could not memoize result", "error", err)
	}
	d.transition(t, Succeeded, 0, nil)

	return Outcome{Task: t, Attempts: attempts}, nil
}

// attempt runs the tool once, appending its output to the task's log files
// under a banner, and checks that every output was written.
func (d *Dispatcher) attempt(ctx context.Context, inv Invoker, t *Task, attempt, maxAttempts int, stdoutPath, stderrPath string) error {
	stdout, err := os.OpenFile(stdoutPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return pfx.Err(err)
	}
	defer stdout.Close()

	stderr, err := os.OpenFile(stderrPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return pfx.Err(err)
	}
	defer stderr.Close()

	banner := fmt.Sprintf("=== %s attempt %d/%d at %s ===\n", t.ID(), attempt, maxAttempts, time.Now().UTC().Format(time.RFC3339))
	for _, w := range []io.Writer{stdout, stderr} {
		io.WriteString(w, banner)
	}

	if err := inv.Invoke(ctx, t.Args, stdout, stderr); err != nil {
		return err
	}

	for _, out := range t.Outputs {
		if _, err := os.Stat(out); err != nil {
			return fmt.Errorf("expected output %s was not written", out)
		}
	}

	return nil
}

func (d *Dispatcher) transition(t *Task, s State, attempt int, err error) {
	t.setState(s)
	if d.States == nil {
		return
	}

	msg := ""
	if err != nil {
		msg = err.Error()
	}
	if rerr := d.States.RecordState(t.ID(), s.String(), attempt, msg); rerr != nil {
		logging.New("dispatch").Warn("could not checkpoint task state", "task", t.ID(), "state", s, "error", rerr)
	}
}
