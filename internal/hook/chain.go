package hook

// Chain is an immutable, resolved ordering of the enabled entries for one
// target. Chains are replaced wholesale when the entry set changes, never
// mutated in place, so in-flight dispatches complete on the snapshot they
// started with.
type Chain struct {
	entries []*Entry
}

// NewChain builds a chain over the given ordered entries.
func NewChain(entries []*Entry) *Chain {
	return &Chain{entries: entries}
}

// Entries returns the ordered entries. Callers must not modify the
// returned slice.
func (c *Chain) Entries() []*Entry {
	if c == nil {
		return nil
	}
	return c.entries
}

// Len returns the number of entries in the chain.
func (c *Chain) Len() int {
	if c == nil {
		return 0
	}
	return len(c.entries)
}

// IsEmpty reports whether the chain has no entries.
func (c *Chain) IsEmpty() bool {
	return c.Len() == 0
}

// Keys returns the entry keys in chain order.
func (c *Chain) Keys() []string {
	if c == nil {
		return nil
	}
	keys := make([]string, len(c.entries))
	for i, e := range c.entries {
		keys[i] = e.Key()
	}
	return keys
}
