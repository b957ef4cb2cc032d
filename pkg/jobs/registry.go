package jobs

import (
	"sort"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/localpulse/jobs/pkg/logger"
	"github.com/localpulse/jobs/pkg/utils"
)

// Registry maps job names to their entry points. It is built once at start
// and passed to the runners explicitly.
type Registry struct {
	mu     sync.RWMutex
	jobs   map[string]Func
	logger *logger.Logger
}

func NewRegistry(log *logger.Logger) *Registry {
	if log == nil {
		log = logger.New("job-registry")
	}
	return &Registry{
		jobs:   make(map[string]Func),
		logger: log,
	}
}

// Register stores fn under name. Registering an existing name replaces the
// previous entry with a warning.
func (r *Registry) Register(name string, fn Func) error {
	if name == "" {
		return errors.New("job name cannot be empty")
	}
	if fn == nil {
		return errors.Newf("job %q has no entry point", name)
	}
	if !utils.IsDottedName(name) {
		r.logger.Warn().
			Str("action", "register_job_unusual_name").
			Str("job_name", name).
			Msg("Job name is not a lowercase dotted name")
	}

	r.mu.Lock()
	_, exists := r.jobs[name]
	r.jobs[name] = fn
	r.mu.Unlock()

	if exists {
		r.logger.Warn().
			Str("action", "register_job_overwrite").
			Str("job_name", name).
			Msg("Job already registered, replacing previous entry point")
		return nil
	}

	r.logger.Debug().
		Str("action", "register_job").
		Str("job_name", name).
		Msg("Registered job")
	return nil
}

// RegisterJob registers job.Execute under job.Name()
func (r *Registry) RegisterJob(job Job) error {
	if job == nil {
		return errors.New("job cannot be nil")
	}
	return r.Register(job.Name(), job.Execute)
}

// Resolve never fails; ok is false for unknown names
func (r *Registry) Resolve(name string) (Func, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.jobs[name]
	return fn, ok
}

// Lookup is Resolve for callers that report the miss; the error is marked
// ErrUnknownJob.
func (r *Registry) Lookup(name string) (Func, error) {
	if fn, ok := r.Resolve(name); ok {
		return fn, nil
	}
	return nil, errors.Mark(errors.Newf("unknown job %q", name), ErrUnknownJob)
}

// Names returns the registered names in lexicographic order
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.jobs))
	for name := range r.jobs {
		names = append(names, name)
	}
	r.mu.RUnlock()

	sort.Strings(names)
	return names
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}
