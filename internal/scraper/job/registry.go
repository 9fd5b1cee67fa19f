package job

import (
	"fmt"

	"github.com/asurada/appstore-spending/internal/scraper/appstore"
)

// Registry tracks at most one job per context. It replaces the
// process-wide singleton of older revisions: one Registry per owning
// controller, passed by reference, never ambient.
type Registry struct {
	jobs map[string]*Job
}

func NewRegistry() *Registry {
	return &Registry{jobs: make(map[string]*Job)}
}

// Create allocates a NOT_STARTED job for the context. It fails with
// ErrConcurrentJob while an existing job is past NOT_STARTED; a job
// still in NOT_STARTED is silently replaced.
func (r *Registry) Create(contextID string, cred appstore.Credential, client Fetcher, opts ...Option) (*Job, error) {
	if existing, ok := r.jobs[contextID]; ok && existing.State() != StateNotStarted {
		return nil, fmt.Errorf("%w: job %s is %s",
			appstore.ErrConcurrentJob, existing.ID, existing.State())
	}

	j := New(contextID, cred, client, opts...)
	r.jobs[contextID] = j
	return j, nil
}

// Get returns the context's job, nil if none exists.
func (r *Registry) Get(contextID string) *Job {
	return r.jobs[contextID]
}

// Drop removes the context's job after aborting it if still running.
func (r *Registry) Drop(contextID string) {
	if j, ok := r.jobs[contextID]; ok {
		j.Abort()
		delete(r.jobs, contextID)
	}
}
