// Package query submits the catalog of named interactive queries, tracks
// each execution identifier against its originating intent, and joins
// remote result files back to that intent for reporting.
package query

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"data-pipeline-tool/internal/aws"
	"data-pipeline-tool/internal/config"
	"data-pipeline-tool/internal/poll"
)

// Shape declares how a query's result rows should be summarized for the
// operator. It is presentation-only and never affects pass/fail status.
type Shape int

const (
	ShapeScalar Shape = iota
	ShapeRows
	ShapeGrouped
)

func (s Shape) String() string {
	switch s {
	case ShapeScalar:
		return "scalar"
	case ShapeRows:
		return "rows"
	case ShapeGrouped:
		return "grouped"
	default:
		return "unknown"
	}
}

func ParseShape(s string) (Shape, error) {
	switch s {
	case "scalar":
		return ShapeScalar, nil
	case "rows", "":
		return ShapeRows, nil
	case "grouped":
		return ShapeGrouped, nil
	default:
		return ShapeRows, fmt.Errorf("unknown result shape %q", s)
	}
}

// Intent is one named query with its human-readable description and
// declared result shape. SQL is fully rendered at this point.
type Intent struct {
	Name        string
	Description string
	SQL         string
	Shape       Shape
}

// IntentsFromConfig renders the configured query catalog against the
// qualified table name.
func IntentsFromConfig(defs []config.QueryDefinition, qualifiedTable string) ([]Intent, error) {
	intents := make([]Intent, 0, len(defs))
	for _, def := range defs {
		shape, err := ParseShape(def.Shape)
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", def.Name, err)
		}
		intents = append(intents, Intent{
			Name:        def.Name,
			Description: def.Description,
			SQL:         fmt.Sprintf(def.SQL, qualifiedTable),
			Shape:       shape,
		})
	}
	return intents, nil
}

// Execution tracks one submitted query for the duration of the run. The
// mapping from ID back to Intent lets the reporting pass join result files,
// which the remote service names only by execution identifier, to the
// query's human-readable description.
type Execution struct {
	ID      string
	Intent  Intent
	State   string
	Reason  string
	Summary []string
}

func (e *Execution) Succeeded() bool {
	return e.State == "SUCCEEDED"
}

type Service interface {
	StartQuery(ctx context.Context, sql, workgroup, outputLocation string) (string, error)
	GetQueryStatus(ctx context.Context, executionID string) (aws.QueryStatus, error)
	GetQueryResults(ctx context.Context, executionID string) ([][]string, error)
}

type Logger interface {
	Infof(format string, args ...any)
	Successf(format string, args ...any)
	Warnf(format string, args ...any)
	Failf(format string, args ...any)
}

type Tracker struct {
	svc           Service
	workgroup     string
	resultsBucket string
	resultsPrefix string
	pollOpts      poll.Options
	log           Logger
}

func NewTracker(svc Service, workgroup, resultsBucket, resultsPrefix string, log Logger) *Tracker {
	return &Tracker{
		svc:           svc,
		workgroup:     workgroup,
		resultsBucket: resultsBucket,
		resultsPrefix: resultsPrefix,
		pollOpts: poll.Options{
			Interval:    2 * time.Second,
			MaxAttempts: 30,
		},
		log: log,
	}
}

// SetPollOptions overrides the per-query polling budget.
func (t *Tracker) SetPollOptions(opts poll.Options) {
	t.pollOpts = opts
}

// OutputLocation returns the dedicated result location for a named query,
// keyed by the query's human name so result artifacts stay traceable to
// intent.
func (t *Tracker) OutputLocation(name string) string {
	return fmt.Sprintf("s3://%s/%s%s/", t.resultsBucket, t.resultsPrefix, name)
}

// SubmitAndTrack submits each query independently and polls it to a
// terminal state. One query's failure never cancels the others; the
// aggregate flag is true only when every query succeeded. The returned
// error is non-nil only for context cancellation.
func (t *Tracker) SubmitAndTrack(ctx context.Context, intents []Intent) (bool, []Execution, error) {
	allSucceeded := true
	executions := make([]Execution, 0, len(intents))

	for i, intent := range intents {
		t.log.Infof("Query %d: %s (%s)", i+1, intent.Description, intent.Name)

		exec := Execution{Intent: intent}

		id, err := t.svc.StartQuery(ctx, intent.SQL, t.workgroup, t.OutputLocation(intent.Name))
		if err != nil {
			if ctx.Err() != nil {
				return false, executions, ctx.Err()
			}
			exec.State = "SUBMIT_FAILED"
			exec.Reason = err.Error()
			executions = append(executions, exec)
			allSucceeded = false
			t.log.Failf("Failed to submit query %s: %v", intent.Name, err)
			continue
		}
		exec.ID = id
		t.log.Infof("Execution ID: %s", id)

		outcome, err := poll.Run(ctx,
			func(ctx context.Context) (poll.Status, error) {
				status, err := t.svc.GetQueryStatus(ctx, id)
				if err != nil {
					return poll.Status{}, err
				}
				return poll.Status{State: status.State, Reason: status.Reason}, nil
			},
			func(state string) bool { return state == "SUCCEEDED" },
			func(state string) bool {
				switch state {
				case "QUEUED", "RUNNING":
					return false
				default:
					// FAILED, CANCELLED, and anything unrecognized
					// are terminal; never loop on an unknown state.
					return true
				}
			},
			t.pollOpts,
		)
		if err != nil {
			exec.State = "INTERRUPTED"
			executions = append(executions, exec)
			return false, executions, err
		}

		switch outcome.Result {
		case poll.Succeeded:
			exec.State = outcome.Status.State
			exec.Summary = t.summarize(ctx, &exec)
			t.log.Successf("Query %s succeeded", intent.Name)
			for _, line := range exec.Summary {
				t.log.Infof("  %s", line)
			}
		case poll.FailedTerminal:
			exec.State = outcome.Status.State
			exec.Reason = outcome.Status.Reason
			allSucceeded = false
			t.log.Failf("Query %s reached state %s: %s", intent.Name, exec.State, exec.Reason)
		case poll.TimedOut:
			exec.State = "TIMEOUT"
			allSucceeded = false
			t.log.Failf("Query %s did not finish within the polling budget", intent.Name)
		}

		executions = append(executions, exec)
	}

	return allSucceeded, executions, nil
}

// summarize interprets result rows according to the declared shape. Any
// trouble fetching results degrades to an empty summary; it never affects
// the query's pass/fail status.
func (t *Tracker) summarize(ctx context.Context, exec *Execution) []string {
	rows, err := t.svc.GetQueryResults(ctx, exec.ID)
	if err != nil {
		return []string{fmt.Sprintf("results unavailable: %v", err)}
	}
	return Summarize(exec.Intent.Shape, rows)
}

// Summarize renders result rows (header row included) for human reading.
func Summarize(shape Shape, rows [][]string) []string {
	if len(rows) <= 1 {
		return []string{"no result rows"}
	}
	data := rows[1:]

	switch shape {
	case ShapeScalar:
		if len(data[0]) == 0 {
			return []string{"no result rows"}
		}
		return []string{fmt.Sprintf("result: %s", data[0][0])}
	case ShapeGrouped:
		out := []string{fmt.Sprintf("%d group(s)", len(data))}
		for _, row := range data {
			if len(row) >= 2 {
				out = append(out, fmt.Sprintf("%s: %s", row[0], row[1]))
			}
		}
		return out
	default:
		out := []string{fmt.Sprintf("%d row(s)", len(data))}
		for i, row := range data {
			if i == 3 {
				break
			}
			out = append(out, strings.Join(row, " | "))
		}
		return out
	}
}

// Lister is the slice of the object store the result-file join needs.
type Lister interface {
	ListObjectsPages(ctx context.Context, bucket, prefix string, fn func(page []aws.Object) error) error
}

// ResultFile ties one remote result object back to the query that produced
// it.
type ResultFile struct {
	ExecutionID string
	Name        string
	Description string
	Key         string
	MetadataKey string
	Size        int64
}

// MapResultFiles lists the result prefix and joins `<executionID>.csv`
// objects back to the tracked executions, preserving execution order.
func MapResultFiles(ctx context.Context, store Lister, bucket, prefix string, executions []Execution) ([]ResultFile, error) {
	byID := make(map[string]Intent, len(executions))
	for _, exec := range executions {
		if exec.ID != "" {
			byID[exec.ID] = exec.Intent
		}
	}

	found := make(map[string]ResultFile)
	err := store.ListObjectsPages(ctx, bucket, prefix, func(page []aws.Object) error {
		for _, obj := range page {
			if !strings.HasSuffix(obj.Key, ".csv") {
				continue
			}
			id := strings.TrimSuffix(path.Base(obj.Key), ".csv")
			intent, ok := byID[id]
			if !ok {
				continue
			}
			found[id] = ResultFile{
				ExecutionID: id,
				Name:        intent.Name,
				Description: intent.Description,
				Key:         obj.Key,
				MetadataKey: obj.Key + ".metadata",
				Size:        obj.Size,
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	files := make([]ResultFile, 0, len(found))
	for _, exec := range executions {
		if file, ok := found[exec.ID]; ok {
			files = append(files, file)
		}
	}
	return files, nil
}
