// Package teardown removes every pipeline resource in dependency order:
// workgroup first, then bucket contents, then the stack itself, degrading
// to per-resource deletion when the delegated stack teardown fails.
package teardown

import (
	"context"
	"fmt"
	"time"

	"data-pipeline-tool/internal/aws"
	"data-pipeline-tool/internal/config"
	"data-pipeline-tool/internal/stage"
)

const (
	// Primary delegated teardown is bounded at 5 minutes; the forced
	// last-resort deletion gets the full 10-minute waiter budget.
	primaryDelay    = 15 * time.Second
	primaryAttempts = 20
	forceDelay      = 15 * time.Second
	forceAttempts   = 40
)

type StackManager interface {
	DescribeStack(ctx context.Context, stackName string) (*aws.Stack, error)
	DeleteStackAndWait(ctx context.Context, stackName string, delay time.Duration, maxAttempts int) error
}

type ObjectStore interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	ListObjectsPages(ctx context.Context, bucket, prefix string, fn func(page []aws.Object) error) error
	DeleteObjects(ctx context.Context, bucket string, keys []string) (int, error)
	DeleteBucket(ctx context.Context, bucket string) error
}

type FunctionService interface {
	DeleteFunction(ctx context.Context, functionName string) error
}

type CrawlerService interface {
	DeleteCrawler(ctx context.Context, crawlerName string) error
}

type CatalogService interface {
	DeleteDatabase(ctx context.Context, database string) error
}

type WorkgroupService interface {
	WorkgroupNames(ctx context.Context) ([]string, error)
	DeleteWorkgroup(ctx context.Context, workgroup string, recursive bool) error
}

type Logger interface {
	Infof(format string, args ...any)
	Successf(format string, args ...any)
	Warnf(format string, args ...any)
	Failf(format string, args ...any)
}

// Cleanup drives the ordered teardown workflow against a resolved resource
// configuration.
type Cleanup struct {
	Stacks     StackManager
	Store      ObjectStore
	Functions  FunctionService
	Crawlers   CrawlerService
	Catalog    CatalogService
	Workgroups WorkgroupService
	Config     config.ResourceConfig
	// ExtraBuckets are statically known bucket names cleaned in addition
	// to the resolved ones, for runs where the deployment record was
	// already gone.
	ExtraBuckets []string
	Log          Logger
}

// Stages returns the teardown sequence. Order matters: query state and
// bucket contents must go before the stack that owns them, or the stack
// deletion gets stuck on non-empty buckets.
func (c *Cleanup) Stages() []stage.Stage {
	return []stage.Stage{
		{Name: "Clean Athena workgroup", Criticality: stage.Advisory, Run: c.cleanWorkgroup},
		{Name: "Empty S3 buckets", Criticality: stage.Advisory, Run: c.emptyBuckets},
		{Name: "Destroy stack", Criticality: stage.Blocking, Run: c.destroyStack},
	}
}

func (c *Cleanup) cleanWorkgroup(ctx context.Context) error {
	workgroup := c.Config.ID(config.RoleWorkgroup)

	names, err := c.Workgroups.WorkgroupNames(ctx)
	if err != nil {
		return fmt.Errorf("failed to list workgroups: %w", err)
	}

	found := false
	for _, name := range names {
		if name == workgroup {
			found = true
			break
		}
	}
	if !found {
		c.Log.Successf("Workgroup %s not found (already deleted)", workgroup)
		return nil
	}

	if err := c.Workgroups.DeleteWorkgroup(ctx, workgroup, true); err != nil {
		if aws.IsNotFound(err) {
			c.Log.Successf("Workgroup %s not found (already deleted)", workgroup)
			return nil
		}
		return err
	}
	c.Log.Successf("Deleted workgroup: %s", workgroup)
	return nil
}

// buckets returns the distinct bucket names to clean, resolved identifiers
// first, preserving order.
func (c *Cleanup) buckets() []string {
	candidates := []string{
		c.Config.ID(config.RoleDataBucket),
		c.Config.ID(config.RoleResultsBucket),
	}
	candidates = append(candidates, c.ExtraBuckets...)

	seen := make(map[string]bool, len(candidates))
	var out []string
	for _, name := range candidates {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

func (c *Cleanup) emptyBuckets(ctx context.Context) error {
	var firstErr error
	for _, bucket := range c.buckets() {
		count, err := c.EmptyBucket(ctx, bucket)
		if err != nil {
			if aws.IsNotFound(err) {
				c.Log.Successf("Bucket not found: %s (already deleted)", bucket)
				continue
			}
			c.Log.Warnf("Error emptying bucket %s: %v", bucket, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		c.Log.Successf("Emptied bucket: %s (%d objects)", bucket, count)
	}
	return firstErr
}

// EmptyBucket deletes every object in the bucket, page by page, and
// returns the total number of deleted objects. An absent bucket is
// ErrNotFound.
func (c *Cleanup) EmptyBucket(ctx context.Context, bucket string) (int, error) {
	exists, err := c.Store.BucketExists(ctx, bucket)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, fmt.Errorf("bucket %q: %w", bucket, aws.ErrNotFound)
	}

	deleted := 0
	err = c.Store.ListObjectsPages(ctx, bucket, "", func(page []aws.Object) error {
		keys := make([]string, 0, len(page))
		for _, obj := range page {
			keys = append(keys, obj.Key)
		}
		n, err := c.Store.DeleteObjects(ctx, bucket, keys)
		deleted += n
		return err
	})
	return deleted, err
}

// destroyStack runs the recovery chain: delegated stack deletion first,
// per-resource fallback steps plus forced deletion only when it fails. A
// stack that is already gone still gets the fallback steps, since orphaned
// resources can outlive their stack record.
func (c *Cleanup) destroyStack(ctx context.Context) error {
	stackName := c.Config.ID(config.RoleStack)

	stack, err := c.Stacks.DescribeStack(ctx, stackName)
	if err != nil && !aws.IsNotFound(err) {
		return fmt.Errorf("failed to check stack %s: %w", stackName, err)
	}

	if err != nil || stack.Status == "DELETE_COMPLETE" {
		c.Log.Infof("Stack %s not found, cleaning up individual resources", stackName)
		for _, step := range c.fallbackSteps() {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if stepErr := step.Run(ctx); stepErr != nil {
				c.Log.Warnf("%s: %v", step.Name, stepErr)
			}
		}
		return nil
	}

	outcome := ExecuteWithFallback(ctx,
		Action{
			Name: "delegated stack teardown",
			Run: func(ctx context.Context) error {
				return c.Stacks.DeleteStackAndWait(ctx, stackName, primaryDelay, primaryAttempts)
			},
		},
		c.fallbackSteps(),
		Action{
			Name: "forced stack deletion",
			Run: func(ctx context.Context) error {
				return c.Stacks.DeleteStackAndWait(ctx, stackName, forceDelay, forceAttempts)
			},
		},
		c.Log,
	)

	if ctx.Err() != nil {
		return ctx.Err()
	}
	if !outcome.Converged() {
		return fmt.Errorf("stack %s could not be deleted: %w", stackName, outcome.ForceErr)
	}
	return nil
}

// fallbackSteps are the independent per-resource deletions, each safe to
// run against an already-absent target.
func (c *Cleanup) fallbackSteps() []Action {
	steps := []Action{
		{Name: "delete function", Run: func(ctx context.Context) error {
			return c.deleteBenign(ctx, "function", c.Config.ID(config.RoleFunction), c.Functions.DeleteFunction)
		}},
		{Name: "delete crawler", Run: func(ctx context.Context) error {
			return c.deleteBenign(ctx, "crawler", c.Config.ID(config.RoleCrawler), c.Crawlers.DeleteCrawler)
		}},
		{Name: "delete database", Run: func(ctx context.Context) error {
			return c.deleteBenign(ctx, "database", c.Config.ID(config.RoleDatabase), c.Catalog.DeleteDatabase)
		}},
	}
	for _, bucket := range c.buckets() {
		bucket := bucket
		steps = append(steps, Action{
			Name: "delete bucket " + bucket,
			Run: func(ctx context.Context) error {
				return c.deleteBenign(ctx, "bucket", bucket, c.Store.DeleteBucket)
			},
		})
	}
	return steps
}

// deleteBenign runs a one-shot delete where absence is success. The call
// is never retried: it succeeds, reports already-absent, or fails hard.
func (c *Cleanup) deleteBenign(ctx context.Context, kind, name string, del func(context.Context, string) error) error {
	if err := del(ctx, name); err != nil {
		if aws.IsNotFound(err) {
			c.Log.Successf("%s %s not found (already deleted)", kind, name)
			return nil
		}
		return err
	}
	c.Log.Successf("Deleted %s: %s", kind, name)
	return nil
}
