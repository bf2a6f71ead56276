package topic

import "sync"

// Matcher tracks a set of subscription patterns and answers which of them
// match a concrete event topic. Exact (wildcard-free) patterns are kept in
// a map for O(1) lookup; wildcard patterns are scanned linearly.
// It is safe for concurrent use.
type Matcher struct {
	mu       sync.RWMutex
	exact    map[Topic]int // pattern -> refcount
	patterns map[Topic]int // wildcard pattern -> refcount
}

// NewMatcher creates a new topic matcher.
func NewMatcher() *Matcher {
	return &Matcher{
		exact:    make(map[Topic]int),
		patterns: make(map[Topic]int),
	}
}

// Add adds a pattern to the matcher. Adding the same pattern multiple
// times is reference counted; Remove must be called the same number of
// times before the pattern stops matching.
func (m *Matcher) Add(pattern Topic) {
	if pattern == "" {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if pattern.IsPattern() {
		m.patterns[pattern]++
	} else {
		m.exact[pattern]++
	}
}

// Remove removes one reference to a pattern.
func (m *Matcher) Remove(pattern Topic) {
	if pattern == "" {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if pattern.IsPattern() {
		if m.patterns[pattern] <= 1 {
			delete(m.patterns, pattern)
		} else {
			m.patterns[pattern]--
		}
	} else {
		if m.exact[pattern] <= 1 {
			delete(m.exact, pattern)
		} else {
			m.exact[pattern]--
		}
	}
}

// Match returns all registered patterns that match the given event topic.
func (m *Matcher) Match(eventTopic Topic) []Topic {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []Topic
	if _, ok := m.exact[eventTopic]; ok {
		matched = append(matched, eventTopic)
	}
	for pattern := range m.patterns {
		if eventTopic.Matches(pattern) {
			matched = append(matched, pattern)
		}
	}
	return matched
}

// Count returns the number of distinct registered patterns.
func (m *Matcher) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.exact) + len(m.patterns)
}

// Clear removes all patterns.
func (m *Matcher) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exact = make(map[Topic]int)
	m.patterns = make(map[Topic]int)
}
