// Package locator resolves live resource identifiers from the deployment
// record, falling back to configured defaults when the record is gone or
// unreachable.
package locator

import (
	"context"

	"data-pipeline-tool/internal/aws"
	"data-pipeline-tool/internal/config"
)

// Output keys the stack publishes for the dynamically named resources.
const (
	outputDataBucket    = "DataBucketName"
	outputResultsBucket = "AthenaResultsBucketName"
	outputFunctionName  = "LambdaFunctionName"
)

type StackAPI interface {
	DescribeStack(ctx context.Context, stackName string) (*aws.Stack, error)
}

// Source describes where the resolution came from, so callers can decide
// how much to trust the identifiers.
type Source struct {
	// FromStack is true when the deployment record supplied the
	// identifiers. False means the static defaults are in effect.
	FromStack bool
	// StackStatus is the record's status when it was reachable.
	StackStatus string
	// Err is the lookup error when the record was unreachable or absent.
	Err error
}

type Locator struct {
	stacks   StackAPI
	defaults *config.PipelineConfig

	resolved config.ResourceConfig
	source   Source
	done     bool
}

func New(stacks StackAPI, defaults *config.PipelineConfig) *Locator {
	return &Locator{stacks: stacks, defaults: defaults}
}

// Resolve returns an identifier for every role. It never fails: roles the
// deployment record cannot supply come from the defaults. The one remote
// read is cached for the remainder of the run.
func (l *Locator) Resolve(ctx context.Context) (config.ResourceConfig, Source) {
	if l.done {
		return l.resolved, l.source
	}

	resolved := l.defaults.Resources()

	stack, err := l.stacks.DescribeStack(ctx, l.defaults.StackName)
	if err != nil {
		l.source = Source{Err: err}
	} else {
		l.source = Source{FromStack: true, StackStatus: stack.Status}
		overlayOutputs(resolved, stack.Outputs)
	}

	l.resolved = resolved
	l.done = true
	return l.resolved, l.source
}

func overlayOutputs(cfg config.ResourceConfig, outputs map[string]string) {
	if v := outputs[outputDataBucket]; v != "" {
		cfg[config.RoleDataBucket] = v
	}
	if v := outputs[outputResultsBucket]; v != "" {
		cfg[config.RoleResultsBucket] = v
	}
	if v := outputs[outputFunctionName]; v != "" {
		cfg[config.RoleFunction] = v
	}
}
