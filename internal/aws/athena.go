package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/athena"
	"github.com/aws/aws-sdk-go-v2/service/athena/types"
)

// QueryStatus is one observation of a query execution's state machine.
type QueryStatus struct {
	State  string
	Reason string
}

// WorkgroupNames lists every workgroup name, paginating as needed.
func (c *Client) WorkgroupNames(ctx context.Context) ([]string, error) {
	var names []string

	paginator := athena.NewListWorkGroupsPaginator(c.Athena, &athena.ListWorkGroupsInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list workgroups: %w", err)
		}
		for _, wg := range page.WorkGroups {
			names = append(names, aws.ToString(wg.Name))
		}
	}

	return names, nil
}

// DeleteWorkgroup removes the workgroup; recursive also drops its stored
// query executions. A workgroup that is already gone surfaces as
// ErrNotFound.
func (c *Client) DeleteWorkgroup(ctx context.Context, workgroup string, recursive bool) error {
	_, err := c.Athena.DeleteWorkGroup(ctx, &athena.DeleteWorkGroupInput{
		WorkGroup:             aws.String(workgroup),
		RecursiveDeleteOption: aws.Bool(recursive),
	})
	if err != nil {
		if apiErrorCode(err, "InvalidRequestException") {
			return notFoundErr("workgroup", workgroup)
		}
		return fmt.Errorf("failed to delete workgroup %s: %w", workgroup, err)
	}
	return nil
}

// StartQuery submits a query and returns its execution identifier. Result
// files land under outputLocation regardless of the workgroup's default.
func (c *Client) StartQuery(ctx context.Context, sql, workgroup, outputLocation string) (string, error) {
	result, err := c.Athena.StartQueryExecution(ctx, &athena.StartQueryExecutionInput{
		QueryString: aws.String(sql),
		WorkGroup:   aws.String(workgroup),
		ResultConfiguration: &types.ResultConfiguration{
			OutputLocation: aws.String(outputLocation),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to start query in workgroup %s: %w", workgroup, err)
	}
	return aws.ToString(result.QueryExecutionId), nil
}

// GetQueryStatus fetches the execution's state and, for failed states, the
// service's reason.
func (c *Client) GetQueryStatus(ctx context.Context, executionID string) (QueryStatus, error) {
	result, err := c.Athena.GetQueryExecution(ctx, &athena.GetQueryExecutionInput{
		QueryExecutionId: aws.String(executionID),
	})
	if err != nil {
		return QueryStatus{}, fmt.Errorf("failed to get query execution %s: %w", executionID, err)
	}

	if result.QueryExecution == nil || result.QueryExecution.Status == nil {
		return QueryStatus{}, fmt.Errorf("query execution %s has no status", executionID)
	}

	status := result.QueryExecution.Status
	return QueryStatus{
		State:  string(status.State),
		Reason: aws.ToString(status.StateChangeReason),
	}, nil
}

// GetQueryResults returns the result rows, header row included, with every
// cell as its string value.
func (c *Client) GetQueryResults(ctx context.Context, executionID string) ([][]string, error) {
	var rows [][]string

	paginator := athena.NewGetQueryResultsPaginator(c.Athena, &athena.GetQueryResultsInput{
		QueryExecutionId: aws.String(executionID),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get results for query %s: %w", executionID, err)
		}
		if page.ResultSet == nil {
			continue
		}
		for _, row := range page.ResultSet.Rows {
			cells := make([]string, 0, len(row.Data))
			for _, datum := range row.Data {
				cells = append(cells, aws.ToString(datum.VarCharValue))
			}
			rows = append(rows, cells)
		}
	}

	return rows, nil
}
