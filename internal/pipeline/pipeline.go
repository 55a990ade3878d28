// Package pipeline exercises the deployed batch pipeline end-to-end:
// extractor invocation, stored objects, crawler run, catalog tables, and
// the interactive query batch.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"data-pipeline-tool/internal/aws"
	"data-pipeline-tool/internal/config"
	"data-pipeline-tool/internal/poll"
	"data-pipeline-tool/internal/query"
	"data-pipeline-tool/internal/stage"
)

type FunctionService interface {
	Invoke(ctx context.Context, functionName string, payload any) (*aws.InvokeResult, error)
}

type ObjectStore interface {
	ListObjectsPages(ctx context.Context, bucket, prefix string, fn func(page []aws.Object) error) error
}

type CrawlerService interface {
	CrawlerState(ctx context.Context, crawlerName string) (string, error)
	StartCrawler(ctx context.Context, crawlerName string) error
}

type CatalogService interface {
	ListTables(ctx context.Context, database string) ([]aws.Table, error)
}

type Logger interface {
	Infof(format string, args ...any)
	Successf(format string, args ...any)
	Warnf(format string, args ...any)
	Failf(format string, args ...any)
}

// Pipeline holds the collaborators and the state the stages pass forward:
// the discovered table name and the tracked query executions.
type Pipeline struct {
	Functions FunctionService
	Store     ObjectStore
	Crawlers  CrawlerService
	Catalog   CatalogService
	Tracker   *query.Tracker
	Config    config.ResourceConfig
	Queries   []config.QueryDefinition

	DataPrefix    string
	ResultsPrefix string
	Log           Logger

	// SettleWait is how long to let the extractor's upload land before
	// checking storage.
	SettleWait time.Duration
	// CrawlerPoll bounds the wait for a crawler run to finish.
	CrawlerPoll poll.Options
	// Sleep is injectable for tests.
	Sleep func(ctx context.Context, d time.Duration) error

	tableName  string
	executions []query.Execution
	files      []query.ResultFile
}

func New(functions FunctionService, store ObjectStore, crawlers CrawlerService, catalog CatalogService, tracker *query.Tracker, cfg config.ResourceConfig, pc *config.PipelineConfig, log Logger) *Pipeline {
	return &Pipeline{
		Functions:     functions,
		Store:         store,
		Crawlers:      crawlers,
		Catalog:       catalog,
		Tracker:       tracker,
		Config:        cfg,
		Queries:       pc.Queries,
		DataPrefix:    pc.DataPrefix,
		ResultsPrefix: pc.ResultsPrefix,
		Log:           log,
		SettleWait:    10 * time.Second,
		CrawlerPoll: poll.Options{
			Interval:    10 * time.Second,
			MaxAttempts: 30,
		},
		Sleep: sleep,
	}
}

// Executions returns the tracked query executions after the run.
func (p *Pipeline) Executions() []query.Execution { return p.executions }

// ResultFiles returns the joined result-file report after the run.
func (p *Pipeline) ResultFiles() []query.ResultFile { return p.files }

// Stages returns the end-to-end sequence. The catalog check is blocking:
// without tables the query stage has nothing to run against, so it is
// skipped rather than failed noisily. Everything before it is advisory so
// one broken piece still lets the rest of the pipeline be exercised and
// reported.
func (p *Pipeline) Stages() []stage.Stage {
	return []stage.Stage{
		{Name: "Invoke extractor function", Criticality: stage.Advisory, Run: p.invokeExtractor},
		{Name: "Check stored data", Criticality: stage.Advisory, Run: p.checkStoredData},
		{Name: "Run catalog crawler", Criticality: stage.Advisory, Run: p.runCrawler},
		{Name: "Check catalog tables", Criticality: stage.Blocking, Run: p.checkCatalog},
		{Name: "Run interactive queries", Criticality: stage.Advisory, Run: p.runQueries},
	}
}

func (p *Pipeline) invokeExtractor(ctx context.Context) error {
	functionName := p.Config.ID(config.RoleFunction)
	dataBucket := p.Config.ID(config.RoleDataBucket)

	result, err := p.Functions.Invoke(ctx, functionName, map[string]string{
		"bucket_name": dataBucket,
	})
	if err != nil {
		return err
	}
	if result.FunctionError != "" {
		return fmt.Errorf("extractor returned error %s", result.FunctionError)
	}
	if result.StatusCode != 200 {
		return fmt.Errorf("extractor invocation returned status %d", result.StatusCode)
	}
	p.Log.Successf("Extractor executed successfully")

	p.Log.Infof("Waiting %s for data upload to settle", p.SettleWait)
	return p.Sleep(ctx, p.SettleWait)
}

func (p *Pipeline) checkStoredData(ctx context.Context) error {
	dataBucket := p.Config.ID(config.RoleDataBucket)

	var total int
	var sample []aws.Object
	err := p.Store.ListObjectsPages(ctx, dataBucket, p.DataPrefix, func(page []aws.Object) error {
		for _, obj := range page {
			if total < 5 {
				sample = append(sample, obj)
			}
			total++
		}
		return nil
	})
	if err != nil {
		return err
	}
	if total == 0 {
		return fmt.Errorf("no objects found under s3://%s/%s", dataBucket, p.DataPrefix)
	}

	p.Log.Successf("Found %d object(s) in bucket %s", total, dataBucket)
	for _, obj := range sample {
		p.Log.Infof("- %s (%d bytes)", obj.Key, obj.Size)
	}
	return nil
}

// runCrawler starts the crawler when it is idle and polls until the run
// finishes. A crawler already running is polled as-is; a READY crawler is
// started first.
func (p *Pipeline) runCrawler(ctx context.Context) error {
	crawlerName := p.Config.ID(config.RoleCrawler)

	state, err := p.Crawlers.CrawlerState(ctx, crawlerName)
	if err != nil {
		return err
	}
	p.Log.Infof("Crawler state: %s", state)

	switch state {
	case "READY":
		if err := p.Crawlers.StartCrawler(ctx, crawlerName); err != nil {
			return err
		}
		p.Log.Successf("Crawler started")
	case "RUNNING", "STOPPING":
		p.Log.Infof("Crawler is already running")
	default:
		return fmt.Errorf("crawler %s is in unexpected state %s", crawlerName, state)
	}

	outcome, err := poll.Run(ctx,
		func(ctx context.Context) (poll.Status, error) {
			state, err := p.Crawlers.CrawlerState(ctx, crawlerName)
			if err != nil {
				return poll.Status{}, err
			}
			return poll.Status{State: state}, nil
		},
		func(state string) bool { return state == "READY" },
		func(state string) bool { return state != "RUNNING" && state != "STOPPING" },
		p.CrawlerPoll,
	)
	if err != nil {
		return err
	}

	switch outcome.Result {
	case poll.Succeeded:
		p.Log.Successf("Crawler run finished")
		return nil
	case poll.FailedTerminal:
		return fmt.Errorf("crawler %s ended in unexpected state %s", crawlerName, outcome.Status.State)
	default:
		return fmt.Errorf("timed out waiting for crawler %s to finish", crawlerName)
	}
}

func (p *Pipeline) checkCatalog(ctx context.Context) error {
	database := p.Config.ID(config.RoleDatabase)

	tables, err := p.Catalog.ListTables(ctx, database)
	if err != nil {
		return err
	}
	if len(tables) == 0 {
		return fmt.Errorf("no tables found in database %s (crawler may not have completed)", database)
	}

	p.Log.Successf("Found %d table(s) in database %s", len(tables), database)
	for _, t := range tables {
		p.Log.Infof("- %s (%d columns)", t.Name, t.Columns)
	}

	p.tableName = tables[0].Name
	return nil
}

func (p *Pipeline) runQueries(ctx context.Context) error {
	database := p.Config.ID(config.RoleDatabase)
	resultsBucket := p.Config.ID(config.RoleResultsBucket)
	qualified := fmt.Sprintf("%s.%s", database, p.tableName)

	intents, err := query.IntentsFromConfig(p.Queries, qualified)
	if err != nil {
		return err
	}

	ok, executions, err := p.Tracker.SubmitAndTrack(ctx, intents)
	p.executions = executions
	if err != nil {
		return err
	}

	files, listErr := query.MapResultFiles(ctx, p.Store, resultsBucket, p.ResultsPrefix, executions)
	if listErr != nil {
		p.Log.Warnf("Could not list query result files: %v", listErr)
	} else {
		p.files = files
	}

	if !ok {
		return fmt.Errorf("some queries did not succeed")
	}
	p.Log.Successf("All queries completed successfully")
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
