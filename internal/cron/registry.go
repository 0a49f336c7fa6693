package cron

import "context"

// Job is a batch task runnable both from the scheduler loop and from the
// one-shot batch binary.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry tracks registered batch jobs.
type Registry struct {
	jobs []Job
}

// NewRegistry builds a registry preloaded with the provided jobs.
func NewRegistry(jobs ...Job) *Registry {
	registry := &Registry{}
	for _, job := range jobs {
		if job == nil {
			continue
		}
		registry.jobs = append(registry.jobs, job)
	}
	return registry
}

// Register adds a job to the registry.
func (r *Registry) Register(job Job) {
	if job == nil {
		return
	}
	r.jobs = append(r.jobs, job)
}

// Jobs returns the registered jobs in the order they were added.
func (r *Registry) Jobs() []Job {
	jobs := make([]Job, len(r.jobs))
	copy(jobs, r.jobs)
	return jobs
}

// Find returns the job with the given name, or nil.
func (r *Registry) Find(name string) Job {
	for _, job := range r.jobs {
		if job.Name() == name {
			return job
		}
	}
	return nil
}
