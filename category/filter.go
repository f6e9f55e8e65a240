package category

import (
	"strings"

	"github.com/tracekit/trackevent/internal/assert"
)

// Session filter evaluation. Runs once per (category, config) pair at
// session transition time, never per event, so clarity beats speed here.

// matchType orders the tiers of name matching. All rules of one tier are
// evaluated before any rule of the next.
type matchType int

const (
	matchExact    matchType = iota // name == pattern, byte for byte
	matchPattern                   // pattern has a trailing "*" prefix-matching the name
	matchWildcard                  // the global "*" pattern
)

// IsEnabled decides whether a category records under the given config.
//
// Group categories are enabled iff any member is: members resolve against
// the registry by exact name (non-group entries only); unknown members are
// evaluated as dynamic categories of that name.
//
// Non-group categories walk the match tiers in order (exact, trailing
// wildcard, global wildcard) and within a tier apply, in order: the enabled
// categories list, the disabled categories list, the disabled tags list
// (with "slow" and "debug" implicitly disabled when no enabled tags were
// configured), and the enabled tags list. The first rule to fire wins. If no
// rule fires in any tier the category defaults to enabled.
func IsEnabled(r *Registry, cfg *TraceConfig, c *Category) bool {
	if c.Group {
		for _, member := range c.GroupMembers() {
			if i, ok := r.Find(member); ok {
				if IsEnabled(r, cfg, r.Category(i)) {
					return true
				}
				continue
			}
			// Unregistered member: match it as a dynamic category.
			dynamic := Category{Name: member}
			if IsEnabled(r, cfg, &dynamic) {
				return true
			}
		}
		return false
	}

	for _, mt := range []matchType{matchExact, matchPattern, matchWildcard} {
		if matchesAny(cfg.EnabledCategories, c.Name, mt) {
			return true
		}
		if matchesAny(cfg.DisabledCategories, c.Name, mt) {
			return false
		}
		if hasMatchingTag(c, cfg, mt, false) {
			return false
		}
		if hasMatchingTag(c, cfg, mt, true) {
			return true
		}
	}
	return true
}

// hasMatchingTag checks the category's tags against the enabled or disabled
// tag rules of the config at one match tier. When no enabled tags are
// configured, the built-in slow and debug tags act as an implicit disabled
// list.
func hasMatchingTag(c *Category, cfg *TraceConfig, mt matchType, enabled bool) bool {
	for _, tag := range c.Tags {
		if enabled {
			if matchesAny(cfg.EnabledTags, tag, mt) {
				return true
			}
			continue
		}
		if matchesAny(cfg.DisabledTags, tag, mt) {
			return true
		}
		if len(cfg.EnabledTags) == 0 {
			if matches(TagSlow, tag, mt) || matches(TagDebug, tag, mt) {
				return true
			}
		}
	}
	return false
}

func matchesAny(patterns []string, name string, mt matchType) bool {
	for _, p := range patterns {
		if matches(p, name, mt) {
			return true
		}
	}
	return false
}

// matches evaluates one pattern against a name at one match tier. Only a
// single trailing "*" is a supported wildcard; anything else trips a strict
// mode check and is otherwise treated as a literal.
func matches(pattern, name string, mt matchType) bool {
	switch mt {
	case matchExact:
		return pattern == name
	case matchPattern:
		if len(pattern) < 2 || pattern[len(pattern)-1] != '*' {
			return false
		}
		prefix := pattern[:len(pattern)-1]
		assert.Thatf(strings.IndexByte(prefix, '*') < 0,
			"unsupported category pattern %q: only a single trailing * is allowed", pattern)
		return strings.HasPrefix(name, prefix)
	case matchWildcard:
		return pattern == "*"
	}
	return false
}
