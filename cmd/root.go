package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"data-pipeline-tool/internal/aws"
	"data-pipeline-tool/internal/config"
	"data-pipeline-tool/internal/locator"
	"data-pipeline-tool/internal/reporter"
)

var cfgFile string
var verbose bool
var outputFormat string
var region string
var profile string
var pipelineFile string

var rootCmd = &cobra.Command{
	Use:   "data-pipeline-tool",
	Short: "Operations tool for the batch data pipeline",
	Long: `data-pipeline-tool drives the deployed batch data pipeline:
it pushes new extractor code, exercises the pipeline end-to-end, and
tears everything down again, verifying convergence after each run.

Resource identifiers are resolved from the deployment stack's outputs
when the stack is reachable, falling back to configured defaults.`,
	SilenceUsage: true,
}

func Execute(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.data-pipeline-tool.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "console", "output format (console, json)")
	rootCmd.PersistentFlags().StringVarP(&region, "region", "r", "us-east-1", "AWS region")
	rootCmd.PersistentFlags().StringVarP(&profile, "profile", "p", "", "AWS profile")
	rootCmd.PersistentFlags().StringVar(&pipelineFile, "pipeline-config", "", "pipeline topology file overriding the built-in defaults")

	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
	viper.BindPFlag("region", rootCmd.PersistentFlags().Lookup("region"))
	viper.BindPFlag("profile", rootCmd.PersistentFlags().Lookup("profile"))
	viper.BindPFlag("pipeline_config", rootCmd.PersistentFlags().Lookup("pipeline-config"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".data-pipeline-tool")
	}

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		if verbose {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}

// newReporter picks the output implementation from the flags.
func newReporter() reporter.Reporter {
	if viper.GetString("output") == "json" {
		return reporter.NewJSONReporter()
	}
	return reporter.NewConsoleReporter(viper.GetBool("verbose"))
}

// setup wires the per-run collaborators every subcommand needs: the AWS
// client, the pipeline configuration, and the resolved resource
// identifiers.
func setup(ctx context.Context, rep reporter.Reporter) (*aws.Client, *config.PipelineConfig, config.ResourceConfig, error) {
	client, err := aws.NewClient(ctx, viper.GetString("region"), viper.GetString("profile"))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize AWS client: %w", err)
	}

	manager := config.NewManager(viper.GetString("pipeline_config"))
	pc, err := manager.Load()
	if err != nil {
		return nil, nil, nil, err
	}

	loc := locator.New(client, pc)
	resolved, source := loc.Resolve(ctx)
	if source.FromStack {
		rep.Infof("Resolved resource names from stack %s (%s)", pc.StackName, source.StackStatus)
	} else {
		rep.Warnf("Could not read stack %s, using configured defaults: %v", pc.StackName, source.Err)
	}

	return client, pc, resolved, nil
}
