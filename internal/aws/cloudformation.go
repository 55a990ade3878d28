package aws

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
)

// Stack is the deployment record for the pipeline: its status plus the
// outputs that carry the live resource identifiers.
type Stack struct {
	Name    string
	Status  string
	Outputs map[string]string
}

// DescribeStack returns the stack's status and outputs. A missing stack is
// reported as ErrNotFound so callers can distinguish "already torn down"
// from an API failure.
func (c *Client) DescribeStack(ctx context.Context, stackName string) (*Stack, error) {
	result, err := c.CloudFormation.DescribeStacks(ctx, &cloudformation.DescribeStacksInput{
		StackName: aws.String(stackName),
	})
	if err != nil {
		if stackMissing(err) {
			return nil, notFoundErr("stack", stackName)
		}
		return nil, fmt.Errorf("failed to describe stack %s: %w", stackName, err)
	}

	if len(result.Stacks) == 0 {
		return nil, notFoundErr("stack", stackName)
	}

	stack := result.Stacks[0]

	cfStack := &Stack{
		Name:    stackName,
		Status:  string(stack.StackStatus),
		Outputs: make(map[string]string),
	}

	for _, output := range stack.Outputs {
		if output.OutputKey != nil && output.OutputValue != nil {
			cfStack.Outputs[*output.OutputKey] = *output.OutputValue
		}
	}

	return cfStack, nil
}

// DeleteStack starts stack deletion. Deleting an absent stack is a no-op on
// the service side, so no not-found translation is needed here.
func (c *Client) DeleteStack(ctx context.Context, stackName string) error {
	_, err := c.CloudFormation.DeleteStack(ctx, &cloudformation.DeleteStackInput{
		StackName: aws.String(stackName),
	})
	if err != nil {
		return fmt.Errorf("failed to delete stack %s: %w", stackName, err)
	}
	return nil
}

// DeleteStackAndWait starts deletion and blocks until the stack reaches
// DELETE_COMPLETE, polling every delay up to maxAttempts times. A stack
// that disappears while waiting counts as deleted.
func (c *Client) DeleteStackAndWait(ctx context.Context, stackName string, delay time.Duration, maxAttempts int) error {
	if err := c.DeleteStack(ctx, stackName); err != nil {
		return err
	}

	waiter := cloudformation.NewStackDeleteCompleteWaiter(c.CloudFormation, func(o *cloudformation.StackDeleteCompleteWaiterOptions) {
		o.MinDelay = delay
		o.MaxDelay = delay
	})

	err := waiter.Wait(ctx, &cloudformation.DescribeStacksInput{
		StackName: aws.String(stackName),
	}, delay*time.Duration(maxAttempts))
	if err != nil {
		if stackMissing(err) {
			return nil
		}
		return fmt.Errorf("stack %s did not finish deleting: %w", stackName, err)
	}
	return nil
}
