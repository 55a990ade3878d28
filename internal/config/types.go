package config

// Role is a logical resource role in the pipeline topology. Stage and
// verification code looks resources up by role, never by hardcoded name.
type Role string

const (
	RoleStack         Role = "stack"
	RoleDataBucket    Role = "data-bucket"
	RoleResultsBucket Role = "results-bucket"
	RoleFunction      Role = "function"
	RoleCrawler       Role = "crawler"
	RoleDatabase      Role = "database"
	RoleWorkgroup     Role = "workgroup"
)

// AllRoles lists every role a stage may consult, in report order.
var AllRoles = []Role{
	RoleStack,
	RoleDataBucket,
	RoleResultsBucket,
	RoleFunction,
	RoleCrawler,
	RoleDatabase,
	RoleWorkgroup,
}

// ResourceConfig maps every role to a live identifier. It is resolved once
// per run and treated as immutable afterwards.
type ResourceConfig map[Role]string

// ID returns the identifier for a role, empty when unresolved.
func (c ResourceConfig) ID(role Role) string {
	return c[role]
}

// PipelineConfig holds the static defaults for the pipeline topology plus
// the query catalog. Values resolved from the deployment record override
// the bucket and function names at runtime.
type PipelineConfig struct {
	StackName     string `yaml:"stack_name"`
	DataBucket    string `yaml:"data_bucket"`
	ResultsBucket string `yaml:"results_bucket"`
	FunctionName  string `yaml:"function_name"`
	CrawlerName   string `yaml:"crawler_name"`
	DatabaseName  string `yaml:"database_name"`
	Workgroup     string `yaml:"workgroup"`
	DataPrefix    string `yaml:"data_prefix"`
	ResultsPrefix string `yaml:"results_prefix"`

	FunctionSourceDir string `yaml:"function_source_dir"`

	Queries []QueryDefinition `yaml:"queries"`
}

// QueryDefinition describes one named interactive query. SQL may contain a
// single %[1]s placeholder for the fully qualified table name, filled in at
// submission time once the catalog table is known.
type QueryDefinition struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	SQL         string `yaml:"sql"`
	Shape       string `yaml:"shape"`
}

// Defaults returns the built-in topology matching the deployed stack.
func Defaults() *PipelineConfig {
	return &PipelineConfig{
		StackName:         "DataPipelineStack",
		DataBucket:        "data-pipeline-bucket-jsonplaceholder",
		ResultsBucket:     "data-pipeline-athena-results-jsonplaceholder",
		FunctionName:      "data-pipeline-data-extractor",
		CrawlerName:       "data-pipeline-crawler",
		DatabaseName:      "data_pipeline_db",
		Workgroup:         "data-pipeline-workgroup",
		DataPrefix:        "raw-data/",
		ResultsPrefix:     "query-results/",
		FunctionSourceDir: "lambda_functions",
		Queries: []QueryDefinition{
			{
				Name:        "count_rows",
				Description: "Total record count",
				SQL:         "SELECT COUNT(*) as record_count FROM %[1]s",
				Shape:       "scalar",
			},
			{
				Name:        "users",
				Description: "User data",
				SQL:         "SELECT name, email, address_city FROM %[1]s LIMIT 5",
				Shape:       "rows",
			},
			{
				Name:        "users_by_city",
				Description: "Users by city",
				SQL:         "SELECT address_city, COUNT(*) as user_count FROM %[1]s GROUP BY address_city ORDER BY user_count DESC LIMIT 3",
				Shape:       "grouped",
			},
		},
	}
}

// Resources maps the static defaults onto roles. The locator layers the
// deployment record's outputs on top of this.
func (p *PipelineConfig) Resources() ResourceConfig {
	return ResourceConfig{
		RoleStack:         p.StackName,
		RoleDataBucket:    p.DataBucket,
		RoleResultsBucket: p.ResultsBucket,
		RoleFunction:      p.FunctionName,
		RoleCrawler:       p.CrawlerName,
		RoleDatabase:      p.DatabaseName,
		RoleWorkgroup:     p.Workgroup,
	}
}
