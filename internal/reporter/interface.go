package reporter

import (
	"data-pipeline-tool/internal/query"
	"data-pipeline-tool/internal/stage"
	"data-pipeline-tool/internal/verify"
)

// Summary is everything a run wants restated at the end, so an operator
// never has to scroll back through the stage output to find the one
// failure.
type Summary struct {
	Title        string
	Run          *stage.Report
	Verification *verify.Report
	Queries      []query.Execution
	ResultFiles  []query.ResultFile
}

// Succeeded is the overall verdict: no blocking stage failed and, when a
// verification ran, every category converged.
func (s *Summary) Succeeded() bool {
	if s.Run != nil && s.Run.Failed() {
		return false
	}
	if s.Verification != nil && !s.Verification.Converged() {
		return false
	}
	return true
}

// Reporter receives progress as it happens and the final summary. It
// doubles as the stage runner's notifier and as the Logger the workflow
// packages print through.
type Reporter interface {
	StageStart(name string)
	StageDone(result stage.Result)

	Infof(format string, args ...any)
	Successf(format string, args ...any)
	Warnf(format string, args ...any)
	Failf(format string, args ...any)

	Summary(summary *Summary) error
	Error(err error)
}
