package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"data-pipeline-tool/internal/config"
	"data-pipeline-tool/internal/pipeline"
	"data-pipeline-tool/internal/query"
	"data-pipeline-tool/internal/reporter"
	"data-pipeline-tool/internal/stage"
	"data-pipeline-tool/internal/verify"
)

var runTestsCmd = &cobra.Command{
	Use:   "run-tests",
	Short: "Exercise the deployed pipeline end-to-end",
	Long: `Invokes the extractor function, checks the stored objects, runs the
catalog crawler to completion, checks the catalog tables, and runs the
named interactive queries, ending with a provisioning verification and a
pass/fail table.`,
	RunE: runTests,
}

func init() {
	rootCmd.AddCommand(runTestsCmd)
}

func runTests(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	rep := newReporter()

	client, pc, resolved, err := setup(ctx, rep)
	if err != nil {
		rep.Error(err)
		return err
	}

	tracker := query.NewTracker(client,
		resolved.ID(config.RoleWorkgroup),
		resolved.ID(config.RoleResultsBucket),
		pc.ResultsPrefix,
		rep,
	)

	p := pipeline.New(client, client, client, client, tracker, resolved, pc, rep)

	runner := stage.NewRunner(rep)
	report := runner.Run(ctx, p.Stages())

	if ctx.Err() != nil {
		rep.Error(ctx.Err())
		return ctx.Err()
	}

	engine := verify.NewEngine(client, client, client, client, client, resolved)
	verification := engine.Verify(ctx, verify.Provisioned)

	summary := &reporter.Summary{
		Title:        "Pipeline Test Summary",
		Run:          report,
		Verification: verification,
		Queries:      p.Executions(),
		ResultFiles:  p.ResultFiles(),
	}
	if err := rep.Summary(summary); err != nil {
		return err
	}

	// Unlike cleanup, where verification is the convergence authority,
	// a test run is only a full pass when every stage passed.
	if !summary.Succeeded() || len(report.Warnings()) > 0 {
		return fmt.Errorf("pipeline tests failed")
	}
	return nil
}
