package jobs

import "context"

// Func is the entry point every job exposes. The returned Result is optional
// telemetry; only the error decides success.
type Func func(ctx context.Context) (*Result, error)

// Result counts the rows a job looked at in one run
type Result struct {
	Processed int `json:"processed"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// Add folds another result into r
func (r *Result) Add(other *Result) {
	if other == nil {
		return
	}
	r.Processed += other.Processed
	r.Succeeded += other.Succeeded
	r.Failed += other.Failed
}

// Job is implemented by the concrete jobs so they can be registered by name
type Job interface {
	// Name is the dotted registry name, e.g. "listings.posts.publish"
	Name() string

	Execute(ctx context.Context) (*Result, error)
}
