package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/athena"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/glue"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Client bundles the control-plane service clients the pipeline touches.
// It is constructed once per run and handed to each component; the
// orchestration packages depend on small interfaces this client satisfies,
// never on the SDK directly.
type Client struct {
	cfg            aws.Config
	CloudFormation *cloudformation.Client
	S3             *s3.Client
	Lambda         *lambda.Client
	Glue           *glue.Client
	Athena         *athena.Client
}

func NewClient(ctx context.Context, region string, profile string) (*Client, error) {
	var optFns []func(*config.LoadOptions) error

	if region != "" {
		optFns = append(optFns, config.WithRegion(region))
	}

	if profile != "" {
		optFns = append(optFns, config.WithSharedConfigProfile(profile))
	}

	cfg, err := config.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	return &Client{
		cfg:            cfg,
		CloudFormation: cloudformation.NewFromConfig(cfg),
		S3:             s3.NewFromConfig(cfg),
		Lambda:         lambda.NewFromConfig(cfg),
		Glue:           glue.NewFromConfig(cfg),
		Athena:         athena.NewFromConfig(cfg),
	}, nil
}

func (c *Client) GetRegion() string {
	return c.cfg.Region
}
