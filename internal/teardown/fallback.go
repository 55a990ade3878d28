package teardown

import (
	"context"
)

// Action is one named teardown operation. Run must be idempotent: an
// already-absent target is a successful no-op.
type Action struct {
	Name string
	Run  func(ctx context.Context) error
}

// StepError records one failed fallback step. Steps target unrelated
// resources, so failures are collected, never propagated mid-chain.
type StepError struct {
	Name string
	Err  error
}

// ChainOutcome reports what the recovery chain did. When the primary
// action succeeds, nothing else ran and the other fields are zero.
type ChainOutcome struct {
	PrimaryErr error
	StepErrors []StepError
	ForceErr   error
	forceRan   bool
}

// Converged reports whether the chain ended with the delegated teardown
// done: either the primary action succeeded or the forced cleanup did.
func (o *ChainOutcome) Converged() bool {
	if o.PrimaryErr == nil {
		return true
	}
	return o.forceRan && o.ForceErr == nil
}

// ExecuteWithFallback attempts the primary delegated teardown first; it is
// both faster and safer than the fallback path because it respects
// inter-resource dependency ordering. Only when the primary fails or times
// out does the chain degrade to the independent best-effort steps, and it
// always finishes those with the forced cleanup as a last convergence
// attempt. Context cancellation stops the chain between actions.
func ExecuteWithFallback(ctx context.Context, primary Action, steps []Action, force Action, log Logger) ChainOutcome {
	outcome := ChainOutcome{}

	log.Infof("Attempting %s", primary.Name)
	outcome.PrimaryErr = primary.Run(ctx)
	if outcome.PrimaryErr == nil {
		log.Successf("%s completed successfully", primary.Name)
		return outcome
	}
	if ctx.Err() != nil {
		return outcome
	}
	log.Warnf("%s failed, falling back to per-resource cleanup: %v", primary.Name, outcome.PrimaryErr)

	for _, step := range steps {
		if ctx.Err() != nil {
			return outcome
		}
		if err := step.Run(ctx); err != nil {
			outcome.StepErrors = append(outcome.StepErrors, StepError{Name: step.Name, Err: err})
			log.Warnf("%s: %v", step.Name, err)
		}
	}

	if ctx.Err() != nil {
		return outcome
	}

	log.Infof("Attempting %s", force.Name)
	outcome.forceRan = true
	outcome.ForceErr = force.Run(ctx)
	if outcome.ForceErr == nil {
		log.Successf("%s completed successfully", force.Name)
	} else {
		log.Failf("%s: %v", force.Name, outcome.ForceErr)
	}

	return outcome
}
