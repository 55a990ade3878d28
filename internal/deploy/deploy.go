// Package deploy pushes new extractor code to the live function and smoke
// tests it, without touching the rest of the stack.
package deploy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"data-pipeline-tool/internal/aws"
	"data-pipeline-tool/internal/config"
	"data-pipeline-tool/internal/poll"
	"data-pipeline-tool/internal/stage"
)

type FunctionAPI interface {
	UpdateFunctionCode(ctx context.Context, functionName string, archive []byte) (*aws.CodeUpdate, error)
	FunctionState(ctx context.Context, functionName string) (string, error)
	Invoke(ctx context.Context, functionName string, payload any) (*aws.InvokeResult, error)
}

type Logger interface {
	Infof(format string, args ...any)
	Successf(format string, args ...any)
	Warnf(format string, args ...any)
	Failf(format string, args ...any)
}

type Deployer struct {
	Functions FunctionAPI
	Config    config.ResourceConfig
	SourceDir string
	Log       Logger
	// PollOpts bounds the wait for the function to leave Pending.
	PollOpts poll.Options

	archive []byte
}

func New(functions FunctionAPI, cfg config.ResourceConfig, sourceDir string, log Logger) *Deployer {
	return &Deployer{
		Functions: functions,
		Config:    cfg,
		SourceDir: sourceDir,
		Log:       log,
		PollOpts: poll.Options{
			Interval:    2 * time.Second,
			MaxAttempts: 30,
		},
	}
}

// Stages returns the deployment workflow. Every step is blocking: pushing
// code makes no sense if packaging failed, and the smoke test is the whole
// point of the command.
func (d *Deployer) Stages() []stage.Stage {
	return []stage.Stage{
		{Name: "Package function code", Criticality: stage.Blocking, Run: d.packageCode},
		{Name: "Update function code", Criticality: stage.Blocking, Run: d.updateCode},
		{Name: "Wait for function ready", Criticality: stage.Blocking, Run: d.waitReady},
		{Name: "Smoke-test function", Criticality: stage.Blocking, Run: d.smokeTest},
	}
}

func (d *Deployer) packageCode(ctx context.Context) error {
	archive, err := BuildArchive(d.SourceDir)
	if err != nil {
		return err
	}
	d.archive = archive
	d.Log.Successf("Deployment archive built (%d bytes)", len(archive))
	return nil
}

func (d *Deployer) updateCode(ctx context.Context) error {
	functionName := d.Config.ID(config.RoleFunction)

	update, err := d.Functions.UpdateFunctionCode(ctx, functionName, d.archive)
	if err != nil {
		return err
	}

	d.Log.Successf("Function code updated")
	d.Log.Infof("Function ARN: %s", update.ARN)
	d.Log.Infof("Last modified: %s", update.LastModified)
	d.Log.Infof("Code size: %d bytes", update.CodeSize)
	return nil
}

// waitReady polls the function's activation state until it leaves Pending.
// A function that is already Active skips the polling loop entirely.
func (d *Deployer) waitReady(ctx context.Context) error {
	functionName := d.Config.ID(config.RoleFunction)

	state, err := d.Functions.FunctionState(ctx, functionName)
	if err != nil {
		return err
	}
	if state == "Active" {
		d.Log.Successf("Function is ready")
		return nil
	}
	if state != "Pending" {
		return fmt.Errorf("function %s is in unexpected state %s", functionName, state)
	}

	outcome, err := poll.Run(ctx,
		func(ctx context.Context) (poll.Status, error) {
			state, err := d.Functions.FunctionState(ctx, functionName)
			if err != nil {
				return poll.Status{}, err
			}
			return poll.Status{State: state}, nil
		},
		func(state string) bool { return state == "Active" },
		func(state string) bool { return state != "Pending" },
		d.PollOpts,
	)
	if err != nil {
		return err
	}

	switch outcome.Result {
	case poll.Succeeded:
		d.Log.Successf("Function is ready")
		return nil
	case poll.FailedTerminal:
		return fmt.Errorf("function %s entered unexpected state %s", functionName, outcome.Status.State)
	default:
		return fmt.Errorf("timed out waiting for function %s to become Active", functionName)
	}
}

func (d *Deployer) smokeTest(ctx context.Context) error {
	functionName := d.Config.ID(config.RoleFunction)
	dataBucket := d.Config.ID(config.RoleDataBucket)

	result, err := d.Functions.Invoke(ctx, functionName, map[string]string{
		"bucket_name": dataBucket,
	})
	if err != nil {
		return err
	}
	if result.FunctionError != "" {
		return fmt.Errorf("function returned error %s: %s", result.FunctionError, compactPayload(result.Payload))
	}
	if result.StatusCode != 200 {
		return fmt.Errorf("function invocation returned status %d", result.StatusCode)
	}

	d.Log.Successf("Smoke test passed")
	d.Log.Infof("Response: %s", compactPayload(result.Payload))
	return nil
}

// compactPayload renders an invocation payload on one line for the log.
func compactPayload(payload []byte) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, payload); err != nil {
		return string(payload)
	}
	return buf.String()
}
