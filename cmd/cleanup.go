package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"data-pipeline-tool/internal/reporter"
	"data-pipeline-tool/internal/stage"
	"data-pipeline-tool/internal/teardown"
	"data-pipeline-tool/internal/verify"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Tear down every pipeline resource and verify convergence",
	Long: `Removes the Athena workgroup, empties the S3 buckets, destroys the
deployment stack (falling back to per-resource deletion when the delegated
teardown fails), then independently verifies that every resource category
is gone. Safe to re-run against an already-clean environment.`,
	RunE: runCleanup,
}

func init() {
	rootCmd.AddCommand(cleanupCmd)
}

func runCleanup(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	rep := newReporter()

	client, pc, resolved, err := setup(ctx, rep)
	if err != nil {
		rep.Error(err)
		return err
	}

	cleanup := &teardown.Cleanup{
		Stacks:     client,
		Store:      client,
		Functions:  client,
		Crawlers:   client,
		Catalog:    client,
		Workgroups: client,
		Config:     resolved,
		// Default names double as a safety net for buckets orphaned by
		// an earlier partial teardown.
		ExtraBuckets: []string{pc.DataBucket, pc.ResultsBucket},
		Log:          rep,
	}

	runner := stage.NewRunner(rep)
	report := runner.Run(ctx, cleanup.Stages())

	if ctx.Err() != nil {
		rep.Error(ctx.Err())
		return ctx.Err()
	}

	// Verification runs regardless of stage outcomes; it is the
	// authority on convergence.
	engine := verify.NewEngine(client, client, client, client, client, resolved)
	verification := engine.Verify(ctx, verify.Absent)

	summary := &reporter.Summary{
		Title:        "Cleanup Summary",
		Run:          report,
		Verification: verification,
	}
	if err := rep.Summary(summary); err != nil {
		return err
	}

	if !summary.Succeeded() {
		return fmt.Errorf("cleanup did not converge")
	}
	return nil
}
