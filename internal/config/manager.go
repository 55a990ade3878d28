package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// Manager loads the pipeline configuration once and caches it for the
// remainder of the run.
type Manager struct {
	path   string
	loaded *PipelineConfig
}

func NewManager(path string) *Manager {
	return &Manager{path: path}
}

// Load returns the pipeline configuration: built-in defaults overlaid with
// any values set in the YAML file at the configured path. A missing file is
// not an error; the defaults stand on their own.
func (m *Manager) Load() (*PipelineConfig, error) {
	if m.loaded != nil {
		return m.loaded, nil
	}

	cfg := Defaults()

	if m.path != "" {
		data, err := os.ReadFile(m.path)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read pipeline config file: %w", err)
			}
		} else {
			var override PipelineConfig
			if err := yaml.Unmarshal(data, &override); err != nil {
				return nil, fmt.Errorf("failed to unmarshal pipeline config: %w", err)
			}
			merge(cfg, &override)
		}
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	m.loaded = cfg
	return cfg, nil
}

func merge(base, override *PipelineConfig) {
	if override.StackName != "" {
		base.StackName = override.StackName
	}
	if override.DataBucket != "" {
		base.DataBucket = override.DataBucket
	}
	if override.ResultsBucket != "" {
		base.ResultsBucket = override.ResultsBucket
	}
	if override.FunctionName != "" {
		base.FunctionName = override.FunctionName
	}
	if override.CrawlerName != "" {
		base.CrawlerName = override.CrawlerName
	}
	if override.DatabaseName != "" {
		base.DatabaseName = override.DatabaseName
	}
	if override.Workgroup != "" {
		base.Workgroup = override.Workgroup
	}
	if override.DataPrefix != "" {
		base.DataPrefix = override.DataPrefix
	}
	if override.ResultsPrefix != "" {
		base.ResultsPrefix = override.ResultsPrefix
	}
	if override.FunctionSourceDir != "" {
		base.FunctionSourceDir = override.FunctionSourceDir
	}
	if len(override.Queries) > 0 {
		base.Queries = override.Queries
	}
}

func validate(cfg *PipelineConfig) error {
	for role, id := range cfg.Resources() {
		if id == "" {
			return fmt.Errorf("pipeline config resolves role %q to an empty identifier", role)
		}
	}
	for i, q := range cfg.Queries {
		if q.Name == "" || q.SQL == "" {
			return fmt.Errorf("query %d is missing a name or sql", i)
		}
	}
	return nil
}
