package event

// And combines filters; all must pass.
func And(filters ...FilterFunc) FilterFunc {
	return func(ev Event) bool {
		for _, f := range filters {
			if !f(ev) {
				return false
			}
		}
		return true
	}
}

// Or combines filters; any may pass.
func Or(filters ...FilterFunc) FilterFunc {
	return func(ev Event) bool {
		for _, f := range filters {
			if f(ev) {
				return true
			}
		}
		return false
	}
}

// Not inverts a filter.
func Not(f FilterFunc) FilterFunc {
	return func(ev Event) bool {
		return !f(ev)
	}
}

// FromSource passes events published by the given source.
func FromSource(source string) FilterFunc {
	return func(ev Event) bool {
		return ev.Meta.Source == source
	}
}

// PayloadIs passes events whose payload satisfies the predicate after a
// successful type assertion.
func PayloadIs[T any](pred func(T) bool) FilterFunc {
	return func(ev Event) bool {
		p, ok := ev.Payload.(T)
		return ok && pred(p)
	}
}
