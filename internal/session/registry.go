// Package session keeps live workflows addressable over HTTP. The registry
// is in-memory with a TTL; an idle workflow simply expires.
package session

import (
	"time"

	"github.com/google/uuid"
	cache "github.com/patrickmn/go-cache"

	"storybook/internal/story"
)

const defaultTTL = 30 * time.Minute

// Registry maps workflow ids to live *story.Workflow instances.
type Registry struct {
	c   *cache.Cache
	ttl time.Duration
}

// NewRegistry builds a registry whose entries expire after ttl of
// inactivity.
func NewRegistry(ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Registry{
		c:   cache.New(ttl, ttl/2),
		ttl: ttl,
	}
}

// Create registers a workflow and returns its id.
func (r *Registry) Create(w *story.Workflow) string {
	id := uuid.NewString()
	r.c.Set(id, w, cache.DefaultExpiration)
	return id
}

// Get looks up a workflow by id, refreshing its TTL on hit.
func (r *Registry) Get(id string) (*story.Workflow, bool) {
	v, ok := r.c.Get(id)
	if !ok {
		return nil, false
	}
	w, ok := v.(*story.Workflow)
	if !ok {
		return nil, false
	}
	r.c.Set(id, w, cache.DefaultExpiration)
	return w, true
}

// Delete drops a workflow.
func (r *Registry) Delete(id string) {
	r.c.Delete(id)
}

// Len counts live workflows, for diagnostics.
func (r *Registry) Len() int {
	return r.c.ItemCount()
}
