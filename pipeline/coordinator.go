// Package pipeline runs a job end to end: it prepares the catalogue, fans
// out one task per assignment tool, then aggregates, scores and delivers the
// results.
package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/carbocation/ensemblefit/dispatch"
	"github.com/carbocation/ensemblefit/logging"
	"golang.org/x/sync/errgroup"
)

// FanOutError reports every task that failed during a fan-out. Err is the
// first failure to be observed.
type FanOutError struct {
	Failed []string
	Err    error
}

func (e *FanOutError) Error() string {
	return fmt.Sprintf("%d task(s) failed (%s): %v", len(e.Failed), strings.Join(e.Failed, ", "), e.Err)
}

func (e *FanOutError) Unwrap() error {
	return e.Err
}

// Coordinator runs tasks concurrently through a dispatcher.
type Coordinator struct {
	Dispatcher *dispatch.Dispatcher

	// Parallelism bounds how many tasks run at once. Values below 1 run
	// everything at once.
	Parallelism int
}

// FanOut runs every task and waits for all of them, whatever happens to the
// others: a failing task never cancels its siblings. Outcomes are returned in
// task order. If any task failed, the error is a *FanOutError.
func (c *Coordinator) FanOut(ctx context.Context, tasks []*dispatch.Task) ([]dispatch.Outcome, error) {
	log := logging.New("pipeline")

	outcomes := make([]dispatch.Outcome, len(tasks))
	errs := make([]error, len(tasks))

	g := errgroup.Group{}
	if c.Parallelism > 0 {
		g.SetLimit(c.Parallelism)
	}
	for i, t := range tasks {
		i, t := i, t
		g.Go(func() error {
			outcomes[i], errs[i] = c.Dispatcher.Run(ctx, t)
			return errs[i]
		})
	}

	// Wait returns the first error any task returned, after every task is
	// done.
	first := g.Wait()
	if first == nil {
		log.Info("fan-out complete", "tasks", len(tasks))
		return outcomes, nil
	}

	fe := &FanOutError{Err: first}
	for i, err := range errs {
		if err != nil {
			fe.Failed = append(fe.Failed, tasks[i].ID())
		}
	}
	log.Error("fan-out failed", "failed", fe.Failed, "error", first)

	return outcomes, fe
}
