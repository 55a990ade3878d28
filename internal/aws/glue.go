package aws

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/glue"
	"github.com/aws/aws-sdk-go-v2/service/glue/types"
)

// Table is one catalog table with its discovered column count.
type Table struct {
	Name    string
	Columns int
}

// CrawlerState returns the crawler's current state (READY, RUNNING,
// STOPPING). An absent crawler is ErrNotFound.
func (c *Client) CrawlerState(ctx context.Context, crawlerName string) (string, error) {
	result, err := c.Glue.GetCrawler(ctx, &glue.GetCrawlerInput{
		Name: aws.String(crawlerName),
	})
	if err != nil {
		var notFound *types.EntityNotFoundException
		if errors.As(err, &notFound) {
			return "", notFoundErr("crawler", crawlerName)
		}
		return "", fmt.Errorf("failed to get crawler %s: %w", crawlerName, err)
	}

	if result.Crawler == nil {
		return "", notFoundErr("crawler", crawlerName)
	}
	return string(result.Crawler.State), nil
}

// StartCrawler kicks off a crawl. Starting a crawler that is already
// running is reported as a benign nil so callers can fall through to
// polling it.
func (c *Client) StartCrawler(ctx context.Context, crawlerName string) error {
	_, err := c.Glue.StartCrawler(ctx, &glue.StartCrawlerInput{
		Name: aws.String(crawlerName),
	})
	if err != nil {
		var running *types.CrawlerRunningException
		if errors.As(err, &running) {
			return nil
		}
		var notFound *types.EntityNotFoundException
		if errors.As(err, &notFound) {
			return notFoundErr("crawler", crawlerName)
		}
		return fmt.Errorf("failed to start crawler %s: %w", crawlerName, err)
	}
	return nil
}

// DeleteCrawler removes the crawler. Absence is ErrNotFound.
func (c *Client) DeleteCrawler(ctx context.Context, crawlerName string) error {
	_, err := c.Glue.DeleteCrawler(ctx, &glue.DeleteCrawlerInput{
		Name: aws.String(crawlerName),
	})
	if err != nil {
		var notFound *types.EntityNotFoundException
		if errors.As(err, &notFound) {
			return notFoundErr("crawler", crawlerName)
		}
		return fmt.Errorf("failed to delete crawler %s: %w", crawlerName, err)
	}
	return nil
}

// ListTables returns the tables of a catalog database. An absent database
// is ErrNotFound.
func (c *Client) ListTables(ctx context.Context, database string) ([]Table, error) {
	var tables []Table

	paginator := glue.NewGetTablesPaginator(c.Glue, &glue.GetTablesInput{
		DatabaseName: aws.String(database),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			var notFound *types.EntityNotFoundException
			if errors.As(err, &notFound) {
				return nil, notFoundErr("database", database)
			}
			return nil, fmt.Errorf("failed to list tables in %s: %w", database, err)
		}

		for _, t := range page.TableList {
			table := Table{Name: aws.ToString(t.Name)}
			if t.StorageDescriptor != nil {
				table.Columns = len(t.StorageDescriptor.Columns)
			}
			tables = append(tables, table)
		}
	}

	return tables, nil
}

// DatabaseNames lists every catalog database name.
func (c *Client) DatabaseNames(ctx context.Context) ([]string, error) {
	var names []string

	paginator := glue.NewGetDatabasesPaginator(c.Glue, &glue.GetDatabasesInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list databases: %w", err)
		}
		for _, db := range page.DatabaseList {
			names = append(names, aws.ToString(db.Name))
		}
	}

	return names, nil
}

// DeleteDatabase removes the catalog database and its tables. Absence is
// ErrNotFound.
func (c *Client) DeleteDatabase(ctx context.Context, database string) error {
	_, err := c.Glue.DeleteDatabase(ctx, &glue.DeleteDatabaseInput{
		Name: aws.String(database),
	})
	if err != nil {
		var notFound *types.EntityNotFoundException
		if errors.As(err, &notFound) {
			return notFoundErr("database", database)
		}
		return fmt.Errorf("failed to delete database %s: %w", database, err)
	}
	return nil
}
