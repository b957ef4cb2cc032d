package store

import (
	"context"
	"os"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

type seedFile struct {
	Jobs []seedEntry `yaml:"jobs"`
}

type seedEntry struct {
	JobName                 string         `yaml:"job_name"`
	Enabled                 *bool          `yaml:"enabled"`
	ScheduleIntervalMinutes int            `yaml:"schedule_interval_minutes"`
	Parameters              map[string]any `yaml:"parameters"`
}

// LoadSeedFile reads job configs from a YAML file of the form
//
//	jobs:
//	  - job_name: listings.posts.publish
//	    enabled: true
//	    schedule_interval_minutes: 15
//	    parameters: {batch_size: 50}
func LoadSeedFile(path string) ([]JobConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read seed file %s", path)
	}
	return ParseSeed(data)
}

func ParseSeed(data []byte) ([]JobConfig, error) {
	var file seedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrap(err, "failed to parse seed file")
	}

	configs := make([]JobConfig, 0, len(file.Jobs))
	seen := make(map[string]bool, len(file.Jobs))
	for _, job := range file.Jobs {
		if job.JobName == "" {
			return nil, errors.New("seed entry without job_name")
		}
		if seen[job.JobName] {
			return nil, errors.Newf("duplicate seed entry for %s", job.JobName)
		}
		if err := validateInterval(job.ScheduleIntervalMinutes); err != nil {
			return nil, errors.Wrapf(err, "seed entry %s", job.JobName)
		}
		seen[job.JobName] = true

		enabled := true
		if job.Enabled != nil {
			enabled = *job.Enabled
		}
		configs = append(configs, JobConfig{
			JobName:                 job.JobName,
			Enabled:                 enabled,
			ScheduleIntervalMinutes: job.ScheduleIntervalMinutes,
			Parameters:              job.Parameters,
		})
	}
	return configs, nil
}

// Seed upserts every config, returning the first error after trying all
func Seed(ctx context.Context, s ConfigStore, configs []JobConfig) error {
	var firstErr error
	for _, cfg := range configs {
		if err := s.Upsert(ctx, cfg); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
