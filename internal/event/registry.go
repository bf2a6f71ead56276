package event

import (
	"sort"
	"sync"

	"github.com/dshills/modkit/internal/event/topic"
)

// Registry holds the live subscriptions and answers topic matches.
// It is safe for concurrent use.
type Registry struct {
	mu   sync.RWMutex
	subs map[string]*subscription
}

// NewRegistry creates an empty subscription registry.
func NewRegistry() *Registry {
	return &Registry{subs: make(map[string]*subscription)}
}

// Add inserts a subscription.
func (r *Registry) Add(s *subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs[s.id] = s
}

// Remove deletes a subscription by ID. Returns false if it was absent.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.subs[id]; !ok {
		return false
	}
	delete(r.subs, id)
	return true
}

// Match returns the active subscriptions whose pattern matches the
// topic, ordered by (priority, subscription order). The returned slice
// is a snapshot; delivery iterates it without holding the registry lock.
func (r *Registry) Match(t topic.Topic) []*subscription {
	r.mu.RLock()
	var matched []*subscription
	for _, s := range r.subs {
		if s.IsActive() && t.Matches(s.topic) {
			matched = append(matched, s)
		}
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].config.Priority != matched[j].config.Priority {
			return matched[i].config.Priority < matched[j].config.Priority
		}
		return matched[i].seq < matched[j].seq
	})
	return matched
}

// RemoveWhere cancels and removes every subscription the predicate
// selects. Returns the number removed.
func (r *Registry) RemoveWhere(pred func(*subscription) bool) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, s := range r.subs {
		if pred(s) {
			s.Cancel()
			delete(r.subs, id)
			removed++
		}
	}
	return removed
}

// CountActive returns the number of active subscriptions.
func (r *Registry) CountActive() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, s := range r.subs {
		if s.IsActive() {
			n++
		}
	}
	return n
}
