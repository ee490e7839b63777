// Package taskcache holds the single shared task collection every view reads
// from. Publishing replaces the collection wholesale and notifies subscribers
// synchronously, in publish order.
//
// Publish and Subscribe belong to one goroutine (the UI event loop). The lock
// only protects readers that look at the collection from elsewhere.
package taskcache

import (
	"slices"
	"sync"
	"sync/atomic"

	"taskdeck/internal/task"
)

// Observer receives the full collection on every publish.
type Observer func(tasks []task.Task)

type subscriber struct {
	id     int
	fn     Observer
	active atomic.Bool
	// since is the generation the subscriber already saw on Subscribe.
	since uint64
}

type delivery struct {
	gen   uint64
	tasks []task.Task
}

type Cache struct {
	mu     sync.RWMutex
	tasks  []task.Task
	subs   []*subscriber
	nextID int

	gen        uint64
	queue      []delivery
	delivering bool
}

func New() *Cache {
	return &Cache{}
}

// Read returns a copy of the last published collection, or an empty slice.
func (c *Cache) Read() []task.Task {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return clone(c.tasks)
}

// Find looks up a task in the current collection by id.
func (c *Cache) Find(id int) (task.Task, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, t := range c.tasks {
		if t.ID == id {
			return t, true
		}
	}
	return task.Task{}, false
}

// Publish replaces the collection and notifies every subscriber before
// returning. A Publish made by an observer during delivery is queued and
// delivered after the current value has reached all subscribers, so every
// observer sees publishes in order and ends on the cached value.
func (c *Cache) Publish(tasks []task.Task) {
	c.mu.Lock()
	c.gen++
	c.tasks = clone(tasks)
	c.queue = append(c.queue, delivery{gen: c.gen, tasks: clone(tasks)})
	if c.delivering {
		c.mu.Unlock()
		return
	}
	c.delivering = true

	for len(c.queue) > 0 {
		next := c.queue[0]
		c.queue = c.queue[1:]
		subs := slices.Clone(c.subs)
		c.mu.Unlock()

		for _, s := range subs {
			if !s.active.Load() || next.gen <= s.since {
				continue
			}
			s.fn(clone(next.tasks))
		}

		c.mu.Lock()
	}
	c.delivering = false
	c.mu.Unlock()
}

// Subscribe delivers the current collection to fn right away and then every
// later publish. The returned func stops delivery; calling it twice is safe.
func (c *Cache) Subscribe(fn Observer) func() {
	c.mu.Lock()
	s := &subscriber{id: c.nextID, fn: fn, since: c.gen}
	s.active.Store(true)
	c.nextID++
	c.subs = append(c.subs, s)
	current := clone(c.tasks)
	c.mu.Unlock()

	fn(current)

	return func() {
		if !s.active.Swap(false) {
			return
		}
		c.mu.Lock()
		defer c.mu.Unlock()
		c.subs = slices.DeleteFunc(c.subs, func(other *subscriber) bool {
			return other.id == s.id
		})
	}
}

// Subscribers reports how many observers are live.
func (c *Cache) Subscribers() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.subs)
}

func clone(tasks []task.Task) []task.Task {
	if len(tasks) == 0 {
		return []task.Task{}
	}
	return slices.Clone(tasks)
}
