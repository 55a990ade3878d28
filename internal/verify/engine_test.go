package verify

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"data-pipeline-tool/internal/aws"
	"data-pipeline-tool/internal/config"
)

// fakeTopology answers every read-only category query from fixed state.
type fakeTopology struct {
	stack      *aws.Stack
	buckets    map[string]bool
	funcState  string
	databases  []string
	tables     []aws.Table
	workgroups []string
}

func (f *fakeTopology) DescribeStack(ctx context.Context, name string) (*aws.Stack, error) {
	if f.stack == nil {
		return nil, fmt.Errorf("stack %q: %w", name, aws.ErrNotFound)
	}
	return f.stack, nil
}

func (f *fakeTopology) BucketExists(ctx context.Context, bucket string) (bool, error) {
	return f.buckets[bucket], nil
}

func (f *fakeTopology) FunctionState(ctx context.Context, name string) (string, error) {
	if f.funcState == "" {
		return "", fmt.Errorf("function %q: %w", name, aws.ErrNotFound)
	}
	return f.funcState, nil
}

func (f *fakeTopology) DatabaseNames(ctx context.Context) ([]string, error) {
	return f.databases, nil
}

func (f *fakeTopology) ListTables(ctx context.Context, database string) ([]aws.Table, error) {
	return f.tables, nil
}

func (f *fakeTopology) WorkgroupNames(ctx context.Context) ([]string, error) {
	return f.workgroups, nil
}

func newEngine(topo *fakeTopology) *Engine {
	return NewEngine(topo, topo, topo, topo, topo, config.Defaults().Resources())
}

func provisionedTopology() *fakeTopology {
	cfg := config.Defaults()
	return &fakeTopology{
		stack: &aws.Stack{Name: cfg.StackName, Status: "CREATE_COMPLETE"},
		buckets: map[string]bool{
			cfg.DataBucket:    true,
			cfg.ResultsBucket: true,
		},
		funcState:  "Active",
		databases:  []string{"default", cfg.DatabaseName},
		tables:     []aws.Table{{Name: "raw_data"}},
		workgroups: []string{"primary", cfg.Workgroup},
	}
}

func TestProvisionedTopologyConverges(t *testing.T) {
	report := newEngine(provisionedTopology()).Verify(context.Background(), Provisioned)

	assert.True(t, report.Converged())
	assert.Empty(t, report.Failures())
	require.Len(t, report.Categories, 5)
	for _, cat := range report.Categories {
		assert.True(t, cat.Passed, string(cat.Category))
		assert.Empty(t, cat.Offending, string(cat.Category))
	}
}

func TestEmptyTopologyConvergesInAbsentMode(t *testing.T) {
	topo := &fakeTopology{
		buckets:    map[string]bool{},
		databases:  []string{"default"},
		workgroups: []string{"primary"},
	}
	report := newEngine(topo).Verify(context.Background(), Absent)

	assert.True(t, report.Converged())
	for _, cat := range report.Categories {
		assert.True(t, cat.Passed, string(cat.Category))
	}
}

func TestDeletedStackRecordPassesAbsentMode(t *testing.T) {
	// A DELETE_COMPLETE record can linger after teardown; it still counts
	// as gone.
	topo := &fakeTopology{
		stack:   &aws.Stack{Name: config.Defaults().StackName, Status: "DELETE_COMPLETE"},
		buckets: map[string]bool{},
	}
	report := newEngine(topo).Verify(context.Background(), Absent)

	assert.True(t, report.Categories[0].Passed)
	assert.Equal(t, CategoryStack, report.Categories[0].Category)
}

func TestMissingStackFailsProvisionedMode(t *testing.T) {
	topo := provisionedTopology()
	topo.stack = nil

	report := newEngine(topo).Verify(context.Background(), Provisioned)

	assert.False(t, report.Converged())
	failures := report.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, CategoryStack, failures[0].Category)
	assert.Equal(t, []string{config.Defaults().StackName}, failures[0].Offending)
}

func TestLeftoverBucketNamedInAbsentFailure(t *testing.T) {
	cfg := config.Defaults()
	topo := &fakeTopology{
		buckets: map[string]bool{cfg.DataBucket: true},
	}
	report := newEngine(topo).Verify(context.Background(), Absent)

	assert.False(t, report.Converged())
	var storage CategoryResult
	for _, cat := range report.Categories {
		if cat.Category == CategoryStorage {
			storage = cat
		}
	}
	assert.False(t, storage.Passed)
	assert.Equal(t, []string{cfg.DataBucket}, storage.Offending)
}

func TestPendingFunctionFailsProvisionedMode(t *testing.T) {
	topo := provisionedTopology()
	topo.funcState = "Pending"

	report := newEngine(topo).Verify(context.Background(), Provisioned)

	assert.False(t, report.Converged())
	failures := report.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, CategoryFunction, failures[0].Category)
	assert.Contains(t, failures[0].Detail, "Pending")
}

func TestCatalogDetailReportsTableCount(t *testing.T) {
	topo := provisionedTopology()
	topo.tables = []aws.Table{{Name: "raw_data"}, {Name: "sessions"}}

	report := newEngine(topo).Verify(context.Background(), Provisioned)

	var catalog CategoryResult
	for _, cat := range report.Categories {
		if cat.Category == CategoryCatalog {
			catalog = cat
		}
	}
	assert.True(t, catalog.Passed)
	assert.Contains(t, catalog.Detail, "2 table(s)")
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "provisioned", Provisioned.String())
	assert.Equal(t, "absent", Absent.String())
}
