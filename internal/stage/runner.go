// Package stage executes an ordered workflow of independently fallible
// steps. The declared order encodes real dependency between steps, so the
// runner never reorders or parallelizes them.
package stage

import (
	"context"
	"time"
)

type Criticality int

const (
	// Blocking stage failure aborts the remaining sequence.
	Blocking Criticality = iota
	// Advisory stage failure is recorded and execution continues.
	Advisory
)

type Status int

const (
	StatusPassed Status = iota
	StatusWarning
	StatusFailed
	StatusSkipped
)

func (s Status) String() string {
	switch s {
	case StatusPassed:
		return "PASSED"
	case StatusWarning:
		return "WARNING"
	case StatusFailed:
		return "FAILED"
	case StatusSkipped:
		return "SKIPPED"
	default:
		return "UNKNOWN"
	}
}

// Stage is one named step of a workflow. Run must be idempotent: acting on
// a target already in the desired end state is a successful no-op.
type Stage struct {
	Name        string
	Criticality Criticality
	Run         func(ctx context.Context) error
}

// Result records one stage's outcome and elapsed time.
type Result struct {
	Name        string
	Criticality Criticality
	Status      Status
	Err         error
	Elapsed     time.Duration
}

// Report records the whole run, stage by stage, in execution order.
type Report struct {
	Stages []Result
}

// Failed reports whether a blocking stage failed.
func (r *Report) Failed() bool {
	for _, s := range r.Stages {
		if s.Status == StatusFailed {
			return true
		}
	}
	return false
}

// Warnings returns the results of advisory stages that did not pass.
func (r *Report) Warnings() []Result {
	var out []Result
	for _, s := range r.Stages {
		if s.Status == StatusWarning {
			out = append(out, s)
		}
	}
	return out
}

// Notifier receives stage lifecycle events as they happen, so an operator
// sees each stage's line the moment it completes.
type Notifier interface {
	StageStart(name string)
	StageDone(result Result)
}

type Runner struct {
	notifier Notifier
}

func NewRunner(n Notifier) *Runner {
	return &Runner{notifier: n}
}

// Run executes stages strictly in order. A blocking stage's failure marks
// the remaining stages skipped and the run failed; an advisory stage's
// failure is recorded as a warning and execution continues. Context
// cancellation stops the run at the next stage boundary.
func (r *Runner) Run(ctx context.Context, stages []Stage) *Report {
	report := &Report{}
	halted := false

	for _, st := range stages {
		if halted || ctx.Err() != nil {
			res := Result{Name: st.Name, Criticality: st.Criticality, Status: StatusSkipped}
			report.Stages = append(report.Stages, res)
			r.notifier.StageDone(res)
			continue
		}

		r.notifier.StageStart(st.Name)
		start := time.Now()
		err := st.Run(ctx)
		res := Result{
			Name:        st.Name,
			Criticality: st.Criticality,
			Elapsed:     time.Since(start),
			Err:         err,
		}

		switch {
		case err == nil:
			res.Status = StatusPassed
		case st.Criticality == Advisory:
			res.Status = StatusWarning
		default:
			res.Status = StatusFailed
			halted = true
		}

		report.Stages = append(report.Stages, res)
		r.notifier.StageDone(res)
	}

	return report
}
