package session

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"storybook/internal/story"
)

func newWorkflow() *story.Workflow {
	return story.New(story.Options{Logger: zerolog.Nop()})
}

func TestRegistryCreateGetDelete(t *testing.T) {
	t.Parallel()
	r := NewRegistry(time.Minute)
	wf := newWorkflow()
	id := r.Create(wf)
	if id == "" {
		t.Fatal("empty id")
	}

	got, ok := r.Get(id)
	if !ok {
		t.Fatal("workflow not found after create")
	}
	if got != wf {
		t.Fatal("registry returned a different workflow instance")
	}

	r.Delete(id)
	if _, ok := r.Get(id); ok {
		t.Fatal("workflow still present after delete")
	}
}

func TestRegistryUnknownID(t *testing.T) {
	t.Parallel()
	r := NewRegistry(time.Minute)
	if _, ok := r.Get("nope"); ok {
		t.Fatal("expected miss for unknown id")
	}
}

func TestRegistryExpiry(t *testing.T) {
	t.Parallel()
	r := NewRegistry(20 * time.Millisecond)
	id := r.Create(newWorkflow())
	time.Sleep(60 * time.Millisecond)
	if _, ok := r.Get(id); ok {
		t.Fatal("workflow should have expired")
	}
}

func TestRegistryDistinctIDs(t *testing.T) {
	t.Parallel()
	r := NewRegistry(time.Minute)
	a := r.Create(newWorkflow())
	b := r.Create(newWorkflow())
	if a == b {
		t.Fatalf("ids collide: %s", a)
	}
	if r.Len() != 2 {
		t.Fatalf("Len = %d, want 2", r.Len())
	}
}
