package hook

import "sort"

// Conflict reports a set of entries whose explicit before/after relations
// form a cycle. The entries are excluded from the resolved chain; the
// remaining entries still resolve.
type Conflict struct {
	// Target is the host function identifier the entries were registered
	// against.
	Target string

	// Keys are the excluded entry keys, sorted.
	Keys []string
}

// Resolve computes a deterministic total order for the enabled entries of
// one target.
//
// Ordering discipline:
//   - primary: tier (lower tiers first)
//   - secondary: an explicit before/after relation between two entries
//     overrides tier ordering between exactly that pair
//   - tertiary: registration order (first registered runs first)
//
// Relations that reference keys not present on the target are ignored.
// Entries whose relations form a cycle are excluded and reported; the
// rest still resolve.
func Resolve(targetID string, entries []*Entry) (*Chain, []Conflict) {
	active := make([]*Entry, 0, len(entries))
	for _, e := range entries {
		if e.enabled {
			active = append(active, e)
		}
	}
	if len(active) == 0 {
		return NewChain(nil), nil
	}

	byKey := make(map[string]*Entry, len(active))
	for _, e := range active {
		byKey[e.Key()] = e
	}

	// Explicit relation edges: succ[a] contains b iff a must run before b.
	succ := make(map[string]map[string]bool, len(active))
	addEdge := func(from, to string) {
		if _, ok := byKey[from]; !ok {
			return
		}
		if _, ok := byKey[to]; !ok {
			return
		}
		if succ[from] == nil {
			succ[from] = make(map[string]bool)
		}
		succ[from][to] = true
	}
	for _, e := range active {
		for _, other := range e.Before {
			addEdge(e.Key(), other)
		}
		for _, other := range e.After {
			addEdge(other, e.Key())
		}
	}

	// Exclude entries participating in relation cycles.
	excluded := cyclicKeys(byKey, succ)
	var conflicts []Conflict
	if len(excluded) > 0 {
		for _, group := range excluded {
			sort.Strings(group)
			conflicts = append(conflicts, Conflict{Target: targetID, Keys: group})
		}
	}
	dropped := make(map[string]bool)
	for _, group := range excluded {
		for _, k := range group {
			dropped[k] = true
		}
	}

	// Kahn's algorithm over the remaining entries; the ready set is
	// always drained in (tier, registration order), which yields the
	// deterministic total order.
	indegree := make(map[string]int, len(active))
	for _, e := range active {
		if !dropped[e.Key()] {
			indegree[e.Key()] = 0
		}
	}
	for from, tos := range succ {
		if dropped[from] {
			continue
		}
		for to := range tos {
			if !dropped[to] {
				indegree[to]++
			}
		}
	}

	var ready []*Entry
	for _, e := range active {
		if !dropped[e.Key()] && indegree[e.Key()] == 0 {
			ready = append(ready, e)
		}
	}

	ordered := make([]*Entry, 0, len(indegree))
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool {
			if ready[i].Tier != ready[j].Tier {
				return ready[i].Tier < ready[j].Tier
			}
			return ready[i].seq < ready[j].seq
		})

		next := ready[0]
		ready = ready[1:]
		ordered = append(ordered, next)

		for to := range succ[next.Key()] {
			if dropped[to] {
				continue
			}
			indegree[to]--
			if indegree[to] == 0 {
				ready = append(ready, byKey[to])
			}
		}
	}

	return NewChain(ordered), conflicts
}

// cyclicKeys returns the groups of entry keys that participate in
// relation cycles: strongly connected components of size > 1, plus any
// self-loops. Uses Tarjan's algorithm.
func cyclicKeys(byKey map[string]*Entry, succ map[string]map[string]bool) [][]string {
	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	index := make(map[string]int, len(keys))
	lowlink := make(map[string]int, len(keys))
	onStack := make(map[string]bool, len(keys))
	var stack []string
	counter := 0

	var groups [][]string

	var strongconnect func(v string)
	strongconnect = func(v string) {
		index[v] = counter
		lowlink[v] = counter
		counter++
		stack = append(stack, v)
		onStack[v] = true

		// Deterministic neighbor order keeps component reporting stable.
		neighbors := make([]string, 0, len(succ[v]))
		for w := range succ[v] {
			neighbors = append(neighbors, w)
		}
		sort.Strings(neighbors)

		for _, w := range neighbors {
			if _, seen := index[w]; !seen {
				strongconnect(w)
				if lowlink[w] < lowlink[v] {
					lowlink[v] = lowlink[w]
				}
			} else if onStack[w] {
				if index[w] < lowlink[v] {
					lowlink[v] = index[w]
				}
			}
		}

		if lowlink[v] == index[v] {
			var component []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				component = append(component, w)
				if w == v {
					break
				}
			}
			if len(component) > 1 || succ[v][v] {
				groups = append(groups, component)
			}
		}
	}

	for _, k := range keys {
		if _, seen := index[k]; !seen {
			strongconnect(k)
		}
	}

	return groups
}
