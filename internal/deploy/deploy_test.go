package deploy

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"data-pipeline-tool/internal/aws"
	"data-pipeline-tool/internal/config"
	"data-pipeline-tool/internal/poll"
	"data-pipeline-tool/internal/stage"
)

type nopLogger struct{}

func (nopLogger) Infof(string, ...any)    {}
func (nopLogger) Successf(string, ...any) {}
func (nopLogger) Warnf(string, ...any)    {}
func (nopLogger) Failf(string, ...any)    {}

type fakeFunctions struct {
	states       []string // consumed by successive FunctionState calls
	stateCalls   int
	updated      []byte
	invokePaylds []any
	invokeResult *aws.InvokeResult
	invokeErr    error
}

func (f *fakeFunctions) UpdateFunctionCode(ctx context.Context, name string, archive []byte) (*aws.CodeUpdate, error) {
	f.updated = archive
	return &aws.CodeUpdate{ARN: "arn:aws:lambda:us-east-1:123456789012:function:" + name, LastModified: "2026-08-29T10:00:00Z", CodeSize: int64(len(archive))}, nil
}

func (f *fakeFunctions) FunctionState(ctx context.Context, name string) (string, error) {
	idx := f.stateCalls
	if idx >= len(f.states) {
		idx = len(f.states) - 1
	}
	f.stateCalls++
	return f.states[idx], nil
}

func (f *fakeFunctions) Invoke(ctx context.Context, name string, payload any) (*aws.InvokeResult, error) {
	f.invokePaylds = append(f.invokePaylds, payload)
	if f.invokeErr != nil {
		return nil, f.invokeErr
	}
	return f.invokeResult, nil
}

func writeSource(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

func newDeployer(fns *fakeFunctions, sourceDir string) *Deployer {
	d := New(fns, config.Defaults().Resources(), sourceDir, nopLogger{})
	d.PollOpts = poll.Options{
		Interval:    time.Millisecond,
		MaxAttempts: 5,
		Sleep:       func(context.Context, time.Duration) error { return nil },
	}
	return d
}

func TestBuildArchivePreservesRelativePaths(t *testing.T) {
	dir := writeSource(t, map[string]string{
		"handler.py":      "def handler(event, context): pass",
		"lib/helpers.py":  "X = 1",
		"requirements.txt": "requests",
	})

	data, err := BuildArchive(dir)
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.ElementsMatch(t, []string{"handler.py", "lib/helpers.py", "requirements.txt"}, names)
}

func TestBuildArchiveRejectsEmptyDirectory(t *testing.T) {
	_, err := BuildArchive(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no files found")
}

func TestBuildArchiveRejectsMissingDirectory(t *testing.T) {
	_, err := BuildArchive(filepath.Join(t.TempDir(), "absent"))
	require.Error(t, err)
}

func TestDeployHappyPath(t *testing.T) {
	dir := writeSource(t, map[string]string{"handler.py": "def handler(event, context): pass"})
	fns := &fakeFunctions{
		states:       []string{"Active"},
		invokeResult: &aws.InvokeResult{StatusCode: 200, Payload: []byte(`{"statusCode": 200}`)},
	}

	runner := stage.NewRunner(&nopNotifier{})
	report := runner.Run(context.Background(), newDeployer(fns, dir).Stages())

	assert.False(t, report.Failed())
	for _, res := range report.Stages {
		assert.Equal(t, stage.StatusPassed, res.Status, res.Name)
	}

	assert.NotEmpty(t, fns.updated)
	require.Len(t, fns.invokePaylds, 1)
	assert.Equal(t, map[string]string{"bucket_name": config.Defaults().DataBucket}, fns.invokePaylds[0])
}

func TestWaitReadyPollsPendingToActive(t *testing.T) {
	fns := &fakeFunctions{states: []string{"Pending", "Pending", "Active"}}
	d := newDeployer(fns, t.TempDir())

	err := d.waitReady(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 3, fns.stateCalls)
}

func TestWaitReadyFailsOnUnexpectedState(t *testing.T) {
	fns := &fakeFunctions{states: []string{"Failed"}}
	err := newDeployer(fns, t.TempDir()).waitReady(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "Failed")
}

func TestSmokeTestRejectsFunctionError(t *testing.T) {
	fns := &fakeFunctions{invokeResult: &aws.InvokeResult{
		StatusCode:    200,
		FunctionError: "Unhandled",
		Payload:       []byte(`{"errorMessage": "NoSuchBucket"}`),
	}}

	err := newDeployer(fns, t.TempDir()).smokeTest(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unhandled")
	assert.Contains(t, err.Error(), "NoSuchBucket")
}

func TestBlockingFailureSkipsRemainingStages(t *testing.T) {
	// Packaging fails on an empty source dir; nothing after it may run.
	fns := &fakeFunctions{states: []string{"Active"}, invokeErr: fmt.Errorf("must not be called")}

	runner := stage.NewRunner(&nopNotifier{})
	report := runner.Run(context.Background(), newDeployer(fns, t.TempDir()).Stages())

	assert.True(t, report.Failed())
	require.Len(t, report.Stages, 4)
	assert.Equal(t, stage.StatusFailed, report.Stages[0].Status)
	for _, res := range report.Stages[1:] {
		assert.Equal(t, stage.StatusSkipped, res.Status, res.Name)
	}
	assert.Empty(t, fns.invokePaylds)
	assert.Empty(t, fns.updated)
}

type nopNotifier struct{}

func (nopNotifier) StageStart(string)      {}
func (nopNotifier) StageDone(stage.Result) {}
