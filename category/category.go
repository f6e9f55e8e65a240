// Package category implements the trace category model: statically declared
// categories, per-session enable state, and the session config filter that
// decides which categories record.
package category

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// MaxInstances is the number of tracing sessions that can be concurrently
// active against one registry. Each gets an independent enable bit per
// category.
const MaxInstances = 8

// Category describes one statically declared trace category.
//
// A group category does not record events itself; its name is a
// comma-separated list of member category names and it is enabled whenever
// any member is. Groups must not reference other groups.
type Category struct {
	Name        string
	Description string
	Tags        []string
	Group       bool
}

// GroupMembers returns the member names of a group category. For non-group
// categories it returns nil.
func (c *Category) GroupMembers() []string {
	if !c.Group {
		return nil
	}
	return strings.Split(c.Name, ",")
}

// HasTag reports whether the category carries the given tag.
func (c *Category) HasTag(tag string) bool {
	for _, t := range c.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Registry is an ordered set of categories with per-(category, instance)
// enable state. The category list is fixed at construction; enable bits are
// written under the session lock and read lock-free on every event emission.
type Registry struct {
	categories []Category
	// One word per category, one enable bit per session instance.
	state []atomic.Uint32
}

// NewRegistry builds a registry over the given categories.
func NewRegistry(categories ...Category) *Registry {
	return &Registry{
		categories: categories,
		state:      make([]atomic.Uint32, len(categories)),
	}
}

// Count returns the number of categories.
func (r *Registry) Count() int {
	return len(r.categories)
}

// Category returns the category at index i.
func (r *Registry) Category(i int) *Category {
	return &r.categories[i]
}

// Find locates a non-group category by exact name. Names compare by full
// byte content; group categories are never returned, matching how group
// members resolve.
func (r *Registry) Find(name string) (int, bool) {
	for i := range r.categories {
		if !r.categories[i].Group && r.categories[i].Name == name {
			return i, true
		}
	}
	return 0, false
}

// SetEnabled flips the enable bit for (category i, session instance). Called
// only during session transitions, under the session lock.
func (r *Registry) SetEnabled(i int, instance uint32, enabled bool) {
	if instance >= MaxInstances {
		return
	}
	bit := uint32(1) << instance
	for {
		old := r.state[i].Load()
		var next uint32
		if enabled {
			next = old | bit
		} else {
			next = old &^ bit
		}
		if old == next || r.state[i].CompareAndSwap(old, next) {
			return
		}
	}
}

// Enabled reports whether category i is enabled for the given session
// instance. Lock-free; raced reads during a concurrent session transition
// see either the old or the new state, which is acceptable for a best-effort
// filter.
func (r *Registry) Enabled(i int, instance uint32) bool {
	if instance >= MaxInstances {
		return false
	}
	return r.state[i].Load()&(1<<instance) != 0
}

// EnabledAny reports whether category i is enabled for any active session.
func (r *Registry) EnabledAny(i int) bool {
	return r.state[i].Load() != 0
}

// DisableAll clears the enable bit of every category for one instance.
func (r *Registry) DisableAll(instance uint32) {
	for i := range r.state {
		r.SetEnabled(i, instance, false)
	}
}

// Validate rejects configurations the filter cannot resolve. The only such
// case is a group category whose member resolves to another group: the
// matching loop would silently treat it as a dynamic category instead, so it
// is surfaced as a startup error.
func (r *Registry) Validate() error {
	for i := range r.categories {
		c := &r.categories[i]
		if !c.Group {
			continue
		}
		for _, member := range c.GroupMembers() {
			for j := range r.categories {
				if r.categories[j].Group && i != j && r.categories[j].Name == member {
					return fmt.Errorf("category group %q references group %q", c.Name, member)
				}
			}
		}
	}
	return nil
}
