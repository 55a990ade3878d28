package poll

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedFetch returns the scripted states in order, repeating the last
// one when the script runs out.
func scriptedFetch(states ...string) StatusFunc {
	i := 0
	return func(ctx context.Context) (Status, error) {
		state := states[len(states)-1]
		if i < len(states) {
			state = states[i]
		}
		i++
		return Status{State: state}, nil
	}
}

func countingSleep(count *int) func(context.Context, time.Duration) error {
	return func(ctx context.Context, d time.Duration) error {
		*count++
		return nil
	}
}

func isState(want string) func(string) bool {
	return func(state string) bool { return state == want }
}

func TestRunSucceedsWithinBudget(t *testing.T) {
	sleeps := 0
	outcome, err := Run(context.Background(),
		scriptedFetch("RUNNING", "RUNNING", "SUCCEEDED"),
		isState("SUCCEEDED"),
		isState("FAILED"),
		Options{Interval: time.Millisecond, MaxAttempts: 5, Sleep: countingSleep(&sleeps)},
	)

	require.NoError(t, err)
	assert.Equal(t, Succeeded, outcome.Result)
	assert.Equal(t, 3, outcome.Attempts)
	assert.Equal(t, "SUCCEEDED", outcome.Status.State)
}

func TestRunTerminalFailureStopsImmediately(t *testing.T) {
	fetches := 0
	fetch := func(ctx context.Context) (Status, error) {
		fetches++
		if fetches == 2 {
			return Status{State: "FAILED", Reason: "table not found"}, nil
		}
		return Status{State: "RUNNING"}, nil
	}

	sleeps := 0
	outcome, err := Run(context.Background(), fetch,
		isState("SUCCEEDED"),
		isState("FAILED"),
		Options{Interval: time.Millisecond, MaxAttempts: 10, Sleep: countingSleep(&sleeps)},
	)

	require.NoError(t, err)
	assert.Equal(t, FailedTerminal, outcome.Result)
	assert.Equal(t, "table not found", outcome.Status.Reason)
	// Never retries a terminal failure, regardless of remaining budget.
	assert.Equal(t, 2, fetches)
}

func TestRunTimesOutWhenBudgetExhausted(t *testing.T) {
	sleeps := 0
	outcome, err := Run(context.Background(),
		scriptedFetch("RUNNING"),
		isState("SUCCEEDED"),
		isState("FAILED"),
		Options{Interval: time.Millisecond, MaxAttempts: 4, Sleep: countingSleep(&sleeps)},
	)

	require.NoError(t, err)
	assert.Equal(t, TimedOut, outcome.Result)
	assert.Equal(t, 4, outcome.Attempts)
	assert.Equal(t, 4, sleeps)
}

func TestRunCrawlerTransitionSleepCount(t *testing.T) {
	// A RUNNING crawler that turns READY on the 2nd poll finishes after
	// exactly 2 waits, not the full 3-attempt budget.
	sleeps := 0
	outcome, err := Run(context.Background(),
		scriptedFetch("RUNNING", "READY"),
		isState("READY"),
		func(state string) bool { return state != "RUNNING" && state != "READY" },
		Options{Interval: 2 * time.Second, MaxAttempts: 3, Sleep: countingSleep(&sleeps)},
	)

	require.NoError(t, err)
	assert.Equal(t, Succeeded, outcome.Result)
	assert.Equal(t, 2, sleeps)
	assert.Equal(t, 2, outcome.Attempts)
}

func TestRunFetchErrorIsTransient(t *testing.T) {
	fetches := 0
	fetch := func(ctx context.Context) (Status, error) {
		fetches++
		if fetches == 1 {
			return Status{}, errors.New("throttled")
		}
		return Status{State: "SUCCEEDED"}, nil
	}

	sleeps := 0
	outcome, err := Run(context.Background(), fetch,
		isState("SUCCEEDED"),
		isState("FAILED"),
		Options{Interval: time.Millisecond, MaxAttempts: 3, Sleep: countingSleep(&sleeps)},
	)

	require.NoError(t, err)
	assert.Equal(t, Succeeded, outcome.Result)
	assert.Equal(t, 2, outcome.Attempts)
}

func TestRunFetchErrorsExhaustBudget(t *testing.T) {
	fetch := func(ctx context.Context) (Status, error) {
		return Status{}, errors.New("throttled")
	}

	sleeps := 0
	outcome, err := Run(context.Background(), fetch,
		isState("SUCCEEDED"),
		isState("FAILED"),
		Options{Interval: time.Millisecond, MaxAttempts: 3, Sleep: countingSleep(&sleeps)},
	)

	require.NoError(t, err)
	assert.Equal(t, TimedOut, outcome.Result)
	assert.Equal(t, 3, outcome.Attempts)
}

func TestRunHonorsCancellationMidWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx,
		scriptedFetch("RUNNING"),
		isState("SUCCEEDED"),
		isState("FAILED"),
		Options{Interval: time.Minute, MaxAttempts: 3},
	)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResultString(t *testing.T) {
	assert.Equal(t, "SUCCEEDED", Succeeded.String())
	assert.Equal(t, "FAILED", FailedTerminal.String())
	assert.Equal(t, "TIMEOUT", TimedOut.String())
}
