package aws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"
)

// InvokeResult is the synchronous invocation outcome. FunctionError is set
// when the function ran but its own code raised an error.
type InvokeResult struct {
	StatusCode    int32
	Payload       []byte
	FunctionError string
}

// CodeUpdate reports the function metadata after a code push.
type CodeUpdate struct {
	ARN          string
	LastModified string
	CodeSize     int64
}

// Invoke calls the function synchronously with a JSON payload.
func (c *Client) Invoke(ctx context.Context, functionName string, payload any) (*InvokeResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal invoke payload: %w", err)
	}

	result, err := c.Lambda.Invoke(ctx, &lambda.InvokeInput{
		FunctionName: aws.String(functionName),
		Payload:      body,
	})
	if err != nil {
		var notFound *types.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return nil, notFoundErr("function", functionName)
		}
		return nil, fmt.Errorf("failed to invoke function %s: %w", functionName, err)
	}

	return &InvokeResult{
		StatusCode:    result.StatusCode,
		Payload:       result.Payload,
		FunctionError: aws.ToString(result.FunctionError),
	}, nil
}

// UpdateFunctionCode pushes a zip archive as the function's new code.
func (c *Client) UpdateFunctionCode(ctx context.Context, functionName string, archive []byte) (*CodeUpdate, error) {
	result, err := c.Lambda.UpdateFunctionCode(ctx, &lambda.UpdateFunctionCodeInput{
		FunctionName: aws.String(functionName),
		ZipFile:      archive,
	})
	if err != nil {
		var notFound *types.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return nil, notFoundErr("function", functionName)
		}
		return nil, fmt.Errorf("failed to update code for function %s: %w", functionName, err)
	}

	return &CodeUpdate{
		ARN:          aws.ToString(result.FunctionArn),
		LastModified: aws.ToString(result.LastModified),
		CodeSize:     result.CodeSize,
	}, nil
}

// FunctionState returns the function's activation state (Pending, Active,
// Inactive, Failed). An absent function is ErrNotFound.
func (c *Client) FunctionState(ctx context.Context, functionName string) (string, error) {
	result, err := c.Lambda.GetFunction(ctx, &lambda.GetFunctionInput{
		FunctionName: aws.String(functionName),
	})
	if err != nil {
		var notFound *types.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return "", notFoundErr("function", functionName)
		}
		return "", fmt.Errorf("failed to get function %s: %w", functionName, err)
	}

	if result.Configuration == nil {
		return "", fmt.Errorf("function %s has no configuration", functionName)
	}
	return string(result.Configuration.State), nil
}

// DeleteFunction removes the function. Absence is ErrNotFound.
func (c *Client) DeleteFunction(ctx context.Context, functionName string) error {
	_, err := c.Lambda.DeleteFunction(ctx, &lambda.DeleteFunctionInput{
		FunctionName: aws.String(functionName),
	})
	if err != nil {
		var notFound *types.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return notFoundErr("function", functionName)
		}
		return fmt.Errorf("failed to delete function %s: %w", functionName, err)
	}
	return nil
}
