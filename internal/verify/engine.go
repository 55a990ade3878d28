// Package verify re-queries every managed resource category read-only and
// aggregates a convergence verdict. It is the authority on whether a
// provisioning or teardown actually converged; stage outcomes are not.
package verify

import (
	"context"
	"fmt"
	"strings"

	"data-pipeline-tool/internal/aws"
	"data-pipeline-tool/internal/config"
)

// Mode selects which end state counts as a pass.
type Mode int

const (
	// Provisioned passes when every category is present and in its
	// expected state.
	Provisioned Mode = iota
	// Absent passes when every category is gone. A missing deployment
	// record is itself a pass here: a deleted stack takes its record
	// with it.
	Absent
)

func (m Mode) String() string {
	switch m {
	case Provisioned:
		return "provisioned"
	case Absent:
		return "absent"
	default:
		return "unknown"
	}
}

type Category string

const (
	CategoryStack     Category = "CloudFormation"
	CategoryStorage   Category = "S3"
	CategoryFunction  Category = "Lambda"
	CategoryCatalog   Category = "Glue"
	CategoryWorkgroup Category = "Athena"
)

// CategoryResult is one category's verdict. Offending names the specific
// resource identifiers that caused a failure, never a generic message.
type CategoryResult struct {
	Category  Category
	Passed    bool
	Detail    string
	Offending []string
}

type Report struct {
	Mode       Mode
	Categories []CategoryResult
}

// Converged reports whether every category passed.
func (r *Report) Converged() bool {
	for _, c := range r.Categories {
		if !c.Passed {
			return false
		}
	}
	return true
}

// Failures returns the categories that did not pass.
func (r *Report) Failures() []CategoryResult {
	var out []CategoryResult
	for _, c := range r.Categories {
		if !c.Passed {
			out = append(out, c)
		}
	}
	return out
}

type StackAPI interface {
	DescribeStack(ctx context.Context, stackName string) (*aws.Stack, error)
}

type ObjectStore interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
}

type FunctionAPI interface {
	FunctionState(ctx context.Context, functionName string) (string, error)
}

type CatalogAPI interface {
	DatabaseNames(ctx context.Context) ([]string, error)
	ListTables(ctx context.Context, database string) ([]aws.Table, error)
}

type WorkgroupAPI interface {
	WorkgroupNames(ctx context.Context) ([]string, error)
}

type Engine struct {
	stacks     StackAPI
	store      ObjectStore
	functions  FunctionAPI
	catalog    CatalogAPI
	workgroups WorkgroupAPI
	cfg        config.ResourceConfig
}

func NewEngine(stacks StackAPI, store ObjectStore, functions FunctionAPI, catalog CatalogAPI, workgroups WorkgroupAPI, cfg config.ResourceConfig) *Engine {
	return &Engine{
		stacks:     stacks,
		store:      store,
		functions:  functions,
		catalog:    catalog,
		workgroups: workgroups,
		cfg:        cfg,
	}
}

// Verify issues one read-only existence or status query per category and
// classifies the answer against the mode's expected end state.
func (e *Engine) Verify(ctx context.Context, mode Mode) *Report {
	report := &Report{Mode: mode}
	report.Categories = append(report.Categories,
		e.checkStack(ctx, mode),
		e.checkStorage(ctx, mode),
		e.checkFunction(ctx, mode),
		e.checkCatalog(ctx, mode),
		e.checkWorkgroup(ctx, mode),
	)
	return report
}

func (e *Engine) checkStack(ctx context.Context, mode Mode) CategoryResult {
	result := CategoryResult{Category: CategoryStack}
	stackName := e.cfg.ID(config.RoleStack)

	stack, err := e.stacks.DescribeStack(ctx, stackName)
	switch {
	case err != nil && aws.IsNotFound(err):
		if mode == Absent {
			result.Passed = true
			result.Detail = "stack not found"
		} else {
			result.Detail = "stack not found"
			result.Offending = []string{stackName}
		}
	case err != nil:
		result.Detail = fmt.Sprintf("failed to check stack: %v", err)
		result.Offending = []string{stackName}
	case mode == Absent:
		if stack.Status == "DELETE_COMPLETE" {
			result.Passed = true
			result.Detail = "stack deleted"
		} else {
			result.Detail = fmt.Sprintf("stack status is %s", stack.Status)
			result.Offending = []string{stackName}
		}
	default:
		if strings.HasSuffix(stack.Status, "_COMPLETE") && !strings.HasPrefix(stack.Status, "DELETE") {
			result.Passed = true
			result.Detail = fmt.Sprintf("stack status is %s", stack.Status)
		} else {
			result.Detail = fmt.Sprintf("stack status is %s", stack.Status)
			result.Offending = []string{stackName}
		}
	}

	return result
}

func (e *Engine) checkStorage(ctx context.Context, mode Mode) CategoryResult {
	result := CategoryResult{Category: CategoryStorage}
	buckets := []string{
		e.cfg.ID(config.RoleDataBucket),
		e.cfg.ID(config.RoleResultsBucket),
	}

	var present, missing []string
	for _, bucket := range buckets {
		exists, err := e.store.BucketExists(ctx, bucket)
		if err != nil {
			result.Detail = fmt.Sprintf("failed to check bucket: %v", err)
			result.Offending = append(result.Offending, bucket)
			return result
		}
		if exists {
			present = append(present, bucket)
		} else {
			missing = append(missing, bucket)
		}
	}

	if mode == Absent {
		if len(present) == 0 {
			result.Passed = true
			result.Detail = "no pipeline buckets found"
		} else {
			result.Detail = "buckets still exist"
			result.Offending = present
		}
	} else {
		if len(missing) == 0 {
			result.Passed = true
			result.Detail = fmt.Sprintf("%d buckets present", len(present))
		} else {
			result.Detail = "buckets missing"
			result.Offending = missing
		}
	}

	return result
}

func (e *Engine) checkFunction(ctx context.Context, mode Mode) CategoryResult {
	result := CategoryResult{Category: CategoryFunction}
	functionName := e.cfg.ID(config.RoleFunction)

	state, err := e.functions.FunctionState(ctx, functionName)
	switch {
	case err != nil && aws.IsNotFound(err):
		if mode == Absent {
			result.Passed = true
			result.Detail = "function not found"
		} else {
			result.Detail = "function not found"
			result.Offending = []string{functionName}
		}
	case err != nil:
		result.Detail = fmt.Sprintf("failed to check function: %v", err)
		result.Offending = []string{functionName}
	case mode == Absent:
		result.Detail = fmt.Sprintf("function still exists (state %s)", state)
		result.Offending = []string{functionName}
	case state == "Active":
		result.Passed = true
		result.Detail = "function is Active"
	default:
		result.Detail = fmt.Sprintf("function state is %s", state)
		result.Offending = []string{functionName}
	}

	return result
}

func (e *Engine) checkCatalog(ctx context.Context, mode Mode) CategoryResult {
	result := CategoryResult{Category: CategoryCatalog}
	database := e.cfg.ID(config.RoleDatabase)

	names, err := e.catalog.DatabaseNames(ctx)
	if err != nil {
		result.Detail = fmt.Sprintf("failed to list databases: %v", err)
		result.Offending = []string{database}
		return result
	}

	found := false
	for _, name := range names {
		if name == database {
			found = true
			break
		}
	}

	if mode == Absent {
		if !found {
			result.Passed = true
			result.Detail = "database not found"
		} else {
			result.Detail = "database still exists"
			result.Offending = []string{database}
		}
		return result
	}

	if !found {
		result.Detail = "database not found"
		result.Offending = []string{database}
		return result
	}

	result.Passed = true
	result.Detail = "database present"
	if tables, err := e.catalog.ListTables(ctx, database); err == nil {
		result.Detail = fmt.Sprintf("database present with %d table(s)", len(tables))
	}
	return result
}

func (e *Engine) checkWorkgroup(ctx context.Context, mode Mode) CategoryResult {
	result := CategoryResult{Category: CategoryWorkgroup}
	workgroup := e.cfg.ID(config.RoleWorkgroup)

	names, err := e.workgroups.WorkgroupNames(ctx)
	if err != nil {
		result.Detail = fmt.Sprintf("failed to list workgroups: %v", err)
		result.Offending = []string{workgroup}
		return result
	}

	found := false
	for _, name := range names {
		if name == workgroup {
			found = true
			break
		}
	}

	if mode == Absent {
		if !found {
			result.Passed = true
			result.Detail = "workgroup not found"
		} else {
			result.Detail = "workgroup still exists"
			result.Offending = []string{workgroup}
		}
	} else {
		if found {
			result.Passed = true
			result.Detail = "workgroup present"
		} else {
			result.Detail = "workgroup not found"
			result.Offending = []string{workgroup}
		}
	}

	return result
}
