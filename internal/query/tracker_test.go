package query

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"data-pipeline-tool/internal/aws"
	"data-pipeline-tool/internal/config"
	"data-pipeline-tool/internal/poll"
)

type nopLogger struct{}

func (nopLogger) Infof(string, ...any)    {}
func (nopLogger) Successf(string, ...any) {}
func (nopLogger) Warnf(string, ...any)    {}
func (nopLogger) Failf(string, ...any)    {}

// queryScript drives one submitted query through a fixed state sequence.
type queryScript struct {
	states  []string
	reason  string
	rows    [][]string
	current int
}

type fakeAthena struct {
	submitErr error
	scripts   map[string]*queryScript // keyed by rendered SQL
	byID      map[string]*queryScript
	locations []string
	nextID    int
}

func newFakeAthena() *fakeAthena {
	return &fakeAthena{
		scripts: make(map[string]*queryScript),
		byID:    make(map[string]*queryScript),
	}
}

func (f *fakeAthena) StartQuery(ctx context.Context, sql, workgroup, outputLocation string) (string, error) {
	if f.submitErr != nil {
		return "", f.submitErr
	}
	script, ok := f.scripts[sql]
	if !ok {
		return "", fmt.Errorf("unexpected query %q", sql)
	}
	f.nextID++
	id := fmt.Sprintf("exec-%04d", f.nextID)
	f.byID[id] = script
	f.locations = append(f.locations, outputLocation)
	return id, nil
}

func (f *fakeAthena) GetQueryStatus(ctx context.Context, executionID string) (aws.QueryStatus, error) {
	script, ok := f.byID[executionID]
	if !ok {
		return aws.QueryStatus{}, fmt.Errorf("unknown execution %q", executionID)
	}
	idx := script.current
	if idx >= len(script.states) {
		idx = len(script.states) - 1
	}
	script.current++
	return aws.QueryStatus{State: script.states[idx], Reason: script.reason}, nil
}

func (f *fakeAthena) GetQueryResults(ctx context.Context, executionID string) ([][]string, error) {
	script, ok := f.byID[executionID]
	if !ok {
		return nil, fmt.Errorf("unknown execution %q", executionID)
	}
	return script.rows, nil
}

func instantPoll() poll.Options {
	return poll.Options{
		Interval:    time.Millisecond,
		MaxAttempts: 5,
		Sleep:       func(context.Context, time.Duration) error { return nil },
	}
}

func defaultIntents(t *testing.T) []Intent {
	t.Helper()
	intents, err := IntentsFromConfig(config.Defaults().Queries, "data_pipeline_db.raw_data")
	require.NoError(t, err)
	return intents
}

func TestIntentsFromConfigRendersTableName(t *testing.T) {
	intents := defaultIntents(t)

	require.Len(t, intents, 3)
	assert.Equal(t, "count_rows", intents[0].Name)
	assert.Equal(t, ShapeScalar, intents[0].Shape)
	assert.Equal(t, "SELECT COUNT(*) as record_count FROM data_pipeline_db.raw_data", intents[0].SQL)
	assert.Equal(t, ShapeRows, intents[1].Shape)
	assert.Equal(t, ShapeGrouped, intents[2].Shape)
}

func TestIntentsFromConfigRejectsUnknownShape(t *testing.T) {
	_, err := IntentsFromConfig([]config.QueryDefinition{
		{Name: "bad", SQL: "SELECT 1", Shape: "pivot"},
	}, "db.t")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pivot")
}

func TestSubmitAndTrackAllSucceed(t *testing.T) {
	intents := defaultIntents(t)
	svc := newFakeAthena()
	for _, intent := range intents {
		svc.scripts[intent.SQL] = &queryScript{
			states: []string{"QUEUED", "RUNNING", "SUCCEEDED"},
			rows:   [][]string{{"col"}, {"42"}},
		}
	}

	tracker := NewTracker(svc, "data-pipeline-workgroup", "results-bucket", "query-results/", nopLogger{})
	tracker.SetPollOptions(instantPoll())

	ok, executions, err := tracker.SubmitAndTrack(context.Background(), intents)

	require.NoError(t, err)
	assert.True(t, ok)
	require.Len(t, executions, 3)
	for i, exec := range executions {
		assert.True(t, exec.Succeeded(), exec.Intent.Name)
		assert.Equal(t, intents[i].Name, exec.Intent.Name)
		assert.NotEmpty(t, exec.ID)
	}

	// Each query gets a dedicated output location keyed by its name.
	assert.Equal(t, []string{
		"s3://results-bucket/query-results/count_rows/",
		"s3://results-bucket/query-results/users/",
		"s3://results-bucket/query-results/users_by_city/",
	}, svc.locations)
}

func TestSubmitAndTrackOneFailureDoesNotCancelOthers(t *testing.T) {
	intents := defaultIntents(t)
	svc := newFakeAthena()
	svc.scripts[intents[0].SQL] = &queryScript{
		states: []string{"SUCCEEDED"},
		rows:   [][]string{{"n"}, {"1"}},
	}
	svc.scripts[intents[1].SQL] = &queryScript{
		states: []string{"RUNNING", "FAILED"},
		reason: "SYNTAX_ERROR: table not found",
	}
	svc.scripts[intents[2].SQL] = &queryScript{
		states: []string{"SUCCEEDED"},
		rows:   [][]string{{"city", "n"}, {"Gwenborough", "2"}},
	}

	tracker := NewTracker(svc, "wg", "bucket", "query-results/", nopLogger{})
	tracker.SetPollOptions(instantPoll())

	ok, executions, err := tracker.SubmitAndTrack(context.Background(), intents)

	require.NoError(t, err)
	assert.False(t, ok)
	require.Len(t, executions, 3)
	assert.True(t, executions[0].Succeeded())
	assert.Equal(t, "FAILED", executions[1].State)
	assert.Contains(t, executions[1].Reason, "SYNTAX_ERROR")
	assert.True(t, executions[2].Succeeded())
}

func TestSubmitAndTrackTimeout(t *testing.T) {
	intents := defaultIntents(t)[:1]
	svc := newFakeAthena()
	svc.scripts[intents[0].SQL] = &queryScript{states: []string{"RUNNING"}}

	tracker := NewTracker(svc, "wg", "bucket", "query-results/", nopLogger{})
	tracker.SetPollOptions(instantPoll())

	ok, executions, err := tracker.SubmitAndTrack(context.Background(), intents)

	require.NoError(t, err)
	assert.False(t, ok)
	require.Len(t, executions, 1)
	assert.Equal(t, "TIMEOUT", executions[0].State)
}

func TestSubmitAndTrackSubmitFailure(t *testing.T) {
	intents := defaultIntents(t)[:1]
	svc := newFakeAthena()
	svc.submitErr = fmt.Errorf("workgroup is disabled")

	tracker := NewTracker(svc, "wg", "bucket", "query-results/", nopLogger{})
	tracker.SetPollOptions(instantPoll())

	ok, executions, err := tracker.SubmitAndTrack(context.Background(), intents)

	require.NoError(t, err)
	assert.False(t, ok)
	require.Len(t, executions, 1)
	assert.Equal(t, "SUBMIT_FAILED", executions[0].State)
	assert.Empty(t, executions[0].ID)
}

type fakeLister struct {
	objects []aws.Object
}

func (f *fakeLister) ListObjectsPages(ctx context.Context, bucket, prefix string, fn func(page []aws.Object) error) error {
	return fn(f.objects)
}

func TestMapResultFilesJoinsByExecutionID(t *testing.T) {
	executions := []Execution{
		{ID: "exec-0001", Intent: Intent{Name: "count_rows", Description: "Total record count"}, State: "SUCCEEDED"},
		{ID: "exec-0002", Intent: Intent{Name: "users", Description: "User data"}, State: "SUCCEEDED"},
	}
	store := &fakeLister{objects: []aws.Object{
		{Key: "query-results/users/exec-0002.csv", Size: 512},
		{Key: "query-results/users/exec-0002.csv.metadata", Size: 90},
		{Key: "query-results/count_rows/exec-0001.csv", Size: 17},
		{Key: "query-results/stale/exec-9999.csv", Size: 3},
	}}

	files, err := MapResultFiles(context.Background(), store, "bucket", "query-results/", executions)

	require.NoError(t, err)
	require.Len(t, files, 2)
	// Execution order is preserved regardless of listing order, and the
	// untracked stale object is ignored.
	assert.Equal(t, "count_rows", files[0].Name)
	assert.Equal(t, "query-results/count_rows/exec-0001.csv", files[0].Key)
	assert.Equal(t, "query-results/count_rows/exec-0001.csv.metadata", files[0].MetadataKey)
	assert.Equal(t, int64(17), files[0].Size)
	assert.Equal(t, "users", files[1].Name)
}

func TestSummarizeShapes(t *testing.T) {
	scalar := Summarize(ShapeScalar, [][]string{{"record_count"}, {"10"}})
	assert.Equal(t, []string{"result: 10"}, scalar)

	grouped := Summarize(ShapeGrouped, [][]string{
		{"address_city", "user_count"},
		{"Gwenborough", "2"},
		{"Wisokyburgh", "1"},
	})
	assert.Equal(t, []string{"2 group(s)", "Gwenborough: 2", "Wisokyburgh: 1"}, grouped)

	rows := Summarize(ShapeRows, [][]string{
		{"name", "email"},
		{"Leanne", "a@b.c"},
		{"Ervin", "d@e.f"},
		{"Clementine", "g@h.i"},
		{"Patricia", "j@k.l"},
	})
	require.Len(t, rows, 4) // header line plus at most 3 sample rows
	assert.Equal(t, "4 row(s)", rows[0])
	assert.Equal(t, "Leanne | a@b.c", rows[1])

	assert.Equal(t, []string{"no result rows"}, Summarize(ShapeRows, [][]string{{"header"}}))
}
