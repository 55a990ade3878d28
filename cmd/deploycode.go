package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"data-pipeline-tool/internal/deploy"
	"data-pipeline-tool/internal/reporter"
	"data-pipeline-tool/internal/stage"
)

var sourceDir string

var deployCodeCmd = &cobra.Command{
	Use:   "deploy-code",
	Short: "Push new extractor code to the live function and smoke-test it",
	Long: `Zips the extractor function sources, updates the live function's code,
waits for the function to become Active, and runs a smoke invocation,
without redeploying the rest of the stack.`,
	RunE: runDeployCode,
}

func init() {
	rootCmd.AddCommand(deployCodeCmd)

	deployCodeCmd.Flags().StringVarP(&sourceDir, "source-dir", "s", "", "function source directory (default from pipeline config)")
}

func runDeployCode(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	rep := newReporter()

	client, pc, resolved, err := setup(ctx, rep)
	if err != nil {
		rep.Error(err)
		return err
	}

	dir := sourceDir
	if dir == "" {
		dir = pc.FunctionSourceDir
	}

	deployer := deploy.New(client, resolved, dir, rep)

	runner := stage.NewRunner(rep)
	report := runner.Run(ctx, deployer.Stages())

	if ctx.Err() != nil {
		rep.Error(ctx.Err())
		return ctx.Err()
	}

	summary := &reporter.Summary{
		Title: "Code Deployment Summary",
		Run:   report,
	}
	if err := rep.Summary(summary); err != nil {
		return err
	}

	if report.Failed() {
		return fmt.Errorf("code deployment failed")
	}
	return nil
}
