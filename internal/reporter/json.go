package reporter

import (
	"encoding/json"
	"fmt"
	"os"

	"data-pipeline-tool/internal/stage"
)

// JSONReporter buffers progress and emits a single machine-readable
// document at summary time. Progress lines are suppressed; scripts consume
// the final document, not the stream.
type JSONReporter struct {
	notes []jsonNote
}

func NewJSONReporter() *JSONReporter {
	return &JSONReporter{}
}

type jsonNote struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

type jsonStage struct {
	Name      string `json:"name"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	ElapsedMS int64  `json:"elapsed_ms"`
}

type jsonCategory struct {
	Category  string   `json:"category"`
	Passed    bool     `json:"passed"`
	Detail    string   `json:"detail"`
	Offending []string `json:"offending,omitempty"`
}

type jsonQuery struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	ExecutionID string `json:"execution_id,omitempty"`
	State       string `json:"state"`
	Reason      string `json:"reason,omitempty"`
}

type jsonResultFile struct {
	Description string `json:"description"`
	ExecutionID string `json:"execution_id"`
	Key         string `json:"key"`
	MetadataKey string `json:"metadata_key"`
	Size        int64  `json:"size"`
}

type jsonSummary struct {
	Title        string           `json:"title"`
	Succeeded    bool             `json:"succeeded"`
	Stages       []jsonStage      `json:"stages,omitempty"`
	Verification []jsonCategory   `json:"verification,omitempty"`
	Queries      []jsonQuery      `json:"queries,omitempty"`
	ResultFiles  []jsonResultFile `json:"result_files,omitempty"`
	Notes        []jsonNote       `json:"notes,omitempty"`
}

func (r *JSONReporter) StageStart(name string) {}

func (r *JSONReporter) StageDone(result stage.Result) {}

func (r *JSONReporter) Infof(format string, args ...any) {
	r.note("info", format, args...)
}

func (r *JSONReporter) Successf(format string, args ...any) {
	r.note("success", format, args...)
}

func (r *JSONReporter) Warnf(format string, args ...any) {
	r.note("warning", format, args...)
}

func (r *JSONReporter) Failf(format string, args ...any) {
	r.note("failure", format, args...)
}

func (r *JSONReporter) note(level, format string, args ...any) {
	r.notes = append(r.notes, jsonNote{Level: level, Message: fmt.Sprintf(format, args...)})
}

func (r *JSONReporter) Summary(summary *Summary) error {
	doc := jsonSummary{
		Title:     summary.Title,
		Succeeded: summary.Succeeded(),
		Notes:     r.notes,
	}

	if summary.Run != nil {
		for _, res := range summary.Run.Stages {
			js := jsonStage{
				Name:      res.Name,
				Status:    res.Status.String(),
				ElapsedMS: res.Elapsed.Milliseconds(),
			}
			if res.Err != nil {
				js.Error = res.Err.Error()
			}
			doc.Stages = append(doc.Stages, js)
		}
	}

	if summary.Verification != nil {
		for _, cat := range summary.Verification.Categories {
			doc.Verification = append(doc.Verification, jsonCategory{
				Category:  string(cat.Category),
				Passed:    cat.Passed,
				Detail:    cat.Detail,
				Offending: cat.Offending,
			})
		}
	}

	for _, exec := range summary.Queries {
		doc.Queries = append(doc.Queries, jsonQuery{
			Name:        exec.Intent.Name,
			Description: exec.Intent.Description,
			ExecutionID: exec.ID,
			State:       exec.State,
			Reason:      exec.Reason,
		})
	}

	for _, file := range summary.ResultFiles {
		doc.ResultFiles = append(doc.ResultFiles, jsonResultFile{
			Description: file.Description,
			ExecutionID: file.ExecutionID,
			Key:         file.Key,
			MetadataKey: file.MetadataKey,
			Size:        file.Size,
		})
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(doc)
}

func (r *JSONReporter) Error(err error) {
	fmt.Fprintf(os.Stderr, `{"error": %q}`+"\n", err.Error())
}
