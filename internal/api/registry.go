package api

import (
	"fmt"
	"sort"
)

// Registry statically maps job-type identifiers to job values. It is
// populated once at startup and read-only afterwards.
type Registry struct {
	jobs map[string]Job
}

// NewRegistry builds a registry from the given jobs.
func NewRegistry(jobs ...Job) (*Registry, error) {
	byName := make(map[string]Job, len(jobs))
	for _, job := range jobs {
		name := job.Name()
		if name == "" {
			return nil, fmt.Errorf("api: job with empty name")
		}
		if _, exists := byName[name]; exists {
			return nil, fmt.Errorf("api: duplicate job %q", name)
		}
		byName[name] = job
	}
	return &Registry{jobs: byName}, nil
}

// Lookup resolves a job type before validation begins.
func (r *Registry) Lookup(name string) (Job, bool) {
	job, ok := r.jobs[name]
	return job, ok
}

// Names lists registered job types, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.jobs))
	for name := range r.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
