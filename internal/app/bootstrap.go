package app

import (
	"fmt"
	"sort"

	"github.com/cockroachdb/errors"

	"github.com/localpulse/jobs/pkg/alerts"
	"github.com/localpulse/jobs/pkg/jobs"
	"github.com/localpulse/jobs/pkg/logger"
	"github.com/localpulse/jobs/pkg/repository"
	"github.com/localpulse/jobs/pkg/services"
	"github.com/localpulse/jobs/pkg/store"
)

// Deps are the shared collaborators job modules are built from. Any field
// may be nil; a module that needs a missing one fails to build.
type Deps struct {
	Store    store.ConfigStore
	Sink     alerts.Sink
	Queries  *repository.Queries
	Alerts   *alerts.Repository
	Listings *services.ListingsClient
	Ads      *services.AdsClient
	Calendar *services.CalendarClient
}

// Module is one entry of the fixed job table
type Module struct {
	Name  string
	Build func(d *Deps) (jobs.Job, error)
}

var errMissingDep = errors.New("dependency not configured")

func missing(what string) error {
	return errors.Wrap(errMissingDep, what)
}

// Modules lists every job this binary knows about
func Modules() []Module {
	return []Module{
		{
			Name: jobs.PostsPublishJobName,
			Build: func(d *Deps) (jobs.Job, error) {
				if d.Queries == nil {
					return nil, missing("database")
				}
				if d.Listings == nil {
					return nil, missing("listings client")
				}
				return jobs.NewPostsPublishJob(d.Queries, d.Listings, d.Store, d.Sink), nil
			},
		},
		{
			Name: jobs.ReviewsSyncJobName,
			Build: func(d *Deps) (jobs.Job, error) {
				if d.Queries == nil {
					return nil, missing("database")
				}
				if d.Listings == nil {
					return nil, missing("listings client")
				}
				return jobs.NewReviewsSyncJob(d.Queries, d.Listings, d.Store, d.Sink), nil
			},
		},
		{
			Name: jobs.AdsInsightsJobName,
			Build: func(d *Deps) (jobs.Job, error) {
				if d.Queries == nil {
					return nil, missing("database")
				}
				if d.Ads == nil {
					return nil, missing("ads client")
				}
				return jobs.NewAdsInsightsJob(d.Queries, d.Ads, d.Store, d.Sink), nil
			},
		},
		{
			Name: jobs.CalendarSyncJobName,
			Build: func(d *Deps) (jobs.Job, error) {
				if d.Queries == nil {
					return nil, missing("database")
				}
				if d.Calendar == nil {
					return nil, missing("calendar client")
				}
				return jobs.NewCalendarSyncJob(d.Queries, d.Calendar, d.Store, d.Sink), nil
			},
		},
		{
			Name: jobs.AlertsDigestJobName,
			Build: func(d *Deps) (jobs.Job, error) {
				if d.Alerts == nil {
					return nil, missing("alerts repository")
				}
				return jobs.NewAlertsDigestJob(d.Alerts, d.Store, d.Sink), nil
			},
		},
	}
}

// ModuleNames lists the names of Modules in lexicographic order without
// building any job
func ModuleNames() []string {
	mods := Modules()
	names := make([]string, 0, len(mods))
	for _, m := range mods {
		names = append(names, m.Name)
	}
	sort.Strings(names)
	return names
}

// Bootstrap builds and registers every module. A module that fails or
// panics is logged and skipped so the rest still register. It returns the
// names that could not be registered.
func Bootstrap(registry *jobs.Registry, deps *Deps, modules []Module, log *logger.Logger) []string {
	var failed []string
	for _, m := range modules {
		if err := register(registry, deps, m); err != nil {
			log.Warn().
				Err(err).
				Str("action", "bootstrap_module_failed").
				Str("module", m.Name).
				Msg("Job module could not be registered, continuing")
			failed = append(failed, m.Name)
		}
	}

	log.Info().
		Str("action", "bootstrap_complete").
		Int("registered", registry.Len()).
		Int("failed", len(failed)).
		Strs("jobs", registry.Names()).
		Msg("Job registry ready")
	return failed
}

func register(registry *jobs.Registry, deps *Deps, m Module) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = errors.Newf("module %s panicked: %s", m.Name, fmt.Sprint(p))
		}
	}()

	job, err := m.Build(deps)
	if err != nil {
		return errors.Wrapf(err, "build %s", m.Name)
	}
	if job.Name() != m.Name {
		return errors.Newf("module %s built job named %s", m.Name, job.Name())
	}
	return registry.RegisterJob(job)
}
