// Package poll implements the single polling loop used for every
// asynchronous remote operation in the tool: crawler runs, function
// activation, and query executions. The success and terminal predicates
// differ per call site; the loop shape does not.
package poll

import (
	"context"
	"time"
)

type Result int

const (
	Succeeded Result = iota
	FailedTerminal
	TimedOut
)

func (r Result) String() string {
	switch r {
	case Succeeded:
		return "SUCCEEDED"
	case FailedTerminal:
		return "FAILED"
	case TimedOut:
		return "TIMEOUT"
	default:
		return "UNKNOWN"
	}
}

// Status is one observation of a remote state machine. Reason carries the
// remote's explanation for a failed state when it provides one.
type Status struct {
	State  string
	Reason string
}

// Outcome is the final verdict of a polling run.
type Outcome struct {
	Result   Result
	Status   Status // last observed status
	Attempts int    // fetches performed
}

type StatusFunc func(ctx context.Context) (Status, error)

// Options bounds a polling run. Sleep is injectable for tests; when nil a
// context-aware timer sleep is used.
type Options struct {
	Interval    time.Duration
	MaxAttempts int
	Sleep       func(ctx context.Context, d time.Duration) error
}

// Run waits Interval, fetches the status, and checks it against the
// predicates, up to MaxAttempts times. A success match returns immediately
// with no further waiting. A terminal match returns FailedTerminal at once,
// never retrying, regardless of remaining budget. A fetch error is treated
// as a transient remote hiccup and consumes the attempt. Exhausting the
// budget without either match returns TimedOut.
//
// Callers that must not wait before the first check (a crawler already
// READY, a function already Active) perform their own initial fetch and
// enter the loop only when the resource is genuinely in flight.
//
// The returned error is non-nil only for context cancellation.
func Run(ctx context.Context, fetch StatusFunc, isSuccess, isTerminal func(string) bool, opts Options) (Outcome, error) {
	sleep := opts.Sleep
	if sleep == nil {
		sleep = defaultSleep
	}

	out := Outcome{Result: TimedOut}

	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		if err := sleep(ctx, opts.Interval); err != nil {
			return out, err
		}

		status, err := fetch(ctx)
		out.Attempts = attempt
		if err != nil {
			if ctx.Err() != nil {
				return out, ctx.Err()
			}
			// Transient: the attempt is spent, the budget decides.
			continue
		}
		out.Status = status

		if isSuccess(status.State) {
			out.Result = Succeeded
			return out, nil
		}
		if isTerminal(status.State) {
			out.Result = FailedTerminal
			return out, nil
		}
	}

	out.Result = TimedOut
	return out, nil
}

func defaultSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
